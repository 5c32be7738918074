package debug

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/hitzhangjie/ldb/pkg/debugger"
	"golang.org/x/sys/unix"
)

type continueCmd struct {
	sig unix.Signal
}

type stepCmd struct{}

type detachCmd struct {
	sig unix.Signal
}

type exitCmd struct{}

func (continueCmd) isCommand() {}
func (stepCmd) isCommand()     {}
func (detachCmd) isCommand()   {}
func (exitCmd) isCommand()     {}

func parseContinue(args []string) (command, error) {
	sig, err := parseOptionalSignal(args)
	if err != nil {
		return nil, err
	}
	return continueCmd{sig: sig}, nil
}

func parseStep(args []string) (command, error) {
	if len(args) != 0 {
		return nil, errUsage
	}
	return stepCmd{}, nil
}

func parseDetach(args []string) (command, error) {
	sig, err := parseOptionalSignal(args)
	if err != nil {
		return nil, err
	}
	return detachCmd{sig: sig}, nil
}

func parseExit(args []string) (command, error) {
	if len(args) != 0 {
		return nil, errUsage
	}
	return exitCmd{}, nil
}

// parseOptionalSignal 支持信号编号(如9)或名字(如SIGKILL、kill)
func parseOptionalSignal(args []string) (unix.Signal, error) {
	switch len(args) {
	case 0:
		return 0, nil
	case 1:
	default:
		return 0, errUsage
	}

	s := args[0]
	if n, err := strconv.Atoi(s); err == nil {
		if n < 0 || n > 64 {
			return 0, fmt.Errorf("invalid signal %q", s)
		}
		return unix.Signal(n), nil
	}
	name := strings.ToUpper(s)
	if !strings.HasPrefix(name, "SIG") {
		name = "SIG" + name
	}
	sig := unix.SignalNum(name)
	if sig == 0 {
		return 0, fmt.Errorf("invalid signal %q", s)
	}
	return sig, nil
}

func (c *Commands) cont(l *debugger.Loop, cmd continueCmd) error {
	out := l.Output()
	if cmd.sig != 0 {
		fmt.Fprintf(out, "Continuing the execution with signal %s ...\n", cmd.sig)
	} else {
		fmt.Fprintln(out, "Continuing the execution ...")
	}

	summary := l.SetBreakpointsInstalled(true)
	for _, r := range summary.Failed() {
		fmt.Fprintf(out, "failed to install breakpoint at %#x: %v\n", r.Addr, r.Err)
	}

	if err := l.Tracee().Continue(int(cmd.sig)); err != nil {
		return err
	}
	l.SetShowPrompt(false)
	l.SetKeepLooping(true)
	return nil
}

func (c *Commands) step(l *debugger.Loop) error {
	fmt.Fprintln(l.Output(), "Performing a single step ...")
	if err := l.Tracee().Step(); err != nil {
		return err
	}
	l.SetShowPrompt(false)
	l.SetKeepLooping(true)
	return nil
}

func (c *Commands) detach(l *debugger.Loop, cmd detachCmd) error {
	fmt.Fprintln(l.Output(), "Detaching from the debugged process ...")
	if err := l.Tracee().Detach(int(cmd.sig)); err != nil {
		return err
	}
	l.SetShowPrompt(false)
	l.SetKeepLooping(false)
	return nil
}

func (c *Commands) exit(l *debugger.Loop) error {
	fmt.Fprintln(l.Output(), "Killing the debugged process ...")
	if err := l.Tracee().Kill(); err != nil {
		return err
	}
	l.SetShowPrompt(false)
	l.SetKeepLooping(false)
	return nil
}
