package debug

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hitzhangjie/ldb/pkg/debugger"
	"github.com/hitzhangjie/ldb/pkg/tracer"
)

type tracerMode struct {
	show bool // 只打印当前模式
	mode tracer.Mode
	path string
}

type tracerRun struct{}

type obfuscateCmd struct {
	kind string // traceme, time
	set  bool
	on   bool
}

func (tracerMode) isCommand()   {}
func (tracerRun) isCommand()    {}
func (obfuscateCmd) isCommand() {}

func parseTracer(args []string) (command, error) {
	if len(args) == 0 {
		return nil, errUsage
	}

	switch args[0] {
	case "run":
		if len(args) != 1 {
			return nil, errUsage
		}
		return tracerRun{}, nil
	case "mode":
		if len(args) == 1 {
			return tracerMode{show: true}, nil
		}
		switch args[1] {
		case "none":
			if len(args) == 2 {
				return tracerMode{mode: tracer.None}, nil
			}
		case "stdout":
			if len(args) == 2 {
				return tracerMode{mode: tracer.Stdout}, nil
			}
		case "file":
			return tracerMode{mode: tracer.File, path: strings.Join(args[2:], " ")}, nil
		}
	}
	return nil, errUsage
}

func (c *Commands) tracerMode(l *debugger.Loop, cmd tracerMode) error {
	out := l.Output()
	t := l.Tracer()

	if cmd.show {
		fmt.Fprintf(out, "Tracer mode: %s.\n", t.Mode())
		return nil
	}

	switch cmd.mode {
	case tracer.None:
		if err := t.Close(); err != nil {
			return err
		}
	case tracer.Stdout:
		t.SelectStdout()
	case tracer.File:
		path := cmd.path
		if path == "" {
			path = c.traceFile
		}
		if path == "" {
			return errors.New("Please provide a trace file path as parameter.")
		}
		if err := t.SelectFile(path); err != nil {
			return err
		}
		fmt.Fprintf(out, "Tracing to file %s.\n", path)
		return nil
	}
	fmt.Fprintf(out, "Tracer mode: %s.\n", t.Mode())
	return nil
}

// tracerRun 开始单步跟踪，直到收到SIGTRAP以外的信号
func (c *Commands) tracerRun(l *debugger.Loop) error {
	t := l.Tracer()
	if t.Mode() == tracer.None {
		return errors.New("Please select a tracer mode first.")
	}

	fmt.Fprintln(l.Output(), "Tracing the execution ...")
	t.SetActive(true)
	if err := l.Tracee().Step(); err != nil {
		t.SetActive(false)
		return err
	}
	l.SetShowPrompt(false)
	l.SetKeepLooping(true)
	return nil
}

func parseObfuscate(args []string) (command, error) {
	if len(args) == 0 || len(args) > 2 {
		return nil, errUsage
	}
	cmd := obfuscateCmd{kind: strings.ToLower(args[0])}
	if cmd.kind != "traceme" && cmd.kind != "time" {
		return nil, errUsage
	}
	if len(args) == 2 {
		switch strings.ToLower(args[1]) {
		case "on":
			cmd.on = true
		case "off":
		default:
			return nil, errUsage
		}
		cmd.set = true
	}
	return cmd, nil
}

func (c *Commands) obfuscate(l *debugger.Loop, cmd obfuscateCmd) error {
	var on bool
	switch cmd.kind {
	case "traceme":
		if cmd.set {
			l.SetObfuscateTraceMe(cmd.on)
		}
		on = l.ObfuscateTraceMe()
	case "time":
		if cmd.set {
			l.SetObfuscateTime(cmd.on)
		}
		on = l.ObfuscateTime()
	}

	state := "off"
	if on {
		state = "on"
	}
	fmt.Fprintf(l.Output(), "Obfuscation %q: %s.\n", cmd.kind, state)
	return nil
}
