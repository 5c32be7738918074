// Package debug implements the interactive commands of a debug session.
package debug

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/cosiner/argv"
	"github.com/derekparker/trie"
	"github.com/hitzhangjie/ldb/pkg/debugger"
)

const (
	cmdGroupBreakpoints = "1-breaks"
	cmdGroupCtrlFlow    = "2-execute"
	cmdGroupInfo        = "3-info"
	cmdGroupTrace       = "4-trace"
	cmdGroupOthers      = "5-other"

	cmdGroupDelimiter = "-"
)

var (
	errInvalidCommand = errors.New("Invalid command.")
	errUsage          = errors.New("bad usage")
)

// command 是解析后的命令，每种命令只携带自己的参数
type command interface {
	isCommand()
}

// verb 描述一个命令动词：名字、分组、用法及参数解析
type verb struct {
	names []string
	group string
	usage string
	short string
	parse func(args []string) (command, error)
}

func (v *verb) name() string {
	return v.names[0]
}

// Commands parses operator input and runs it against the debug loop.
type Commands struct {
	verbs     []*verb
	byName    map[string]*verb
	names     *trie.Trie
	traceFile string
}

// NewCommands creates the command set. traceFile is used by "tracer mode
// file" when no path is given.
func NewCommands(traceFile string) *Commands {
	c := &Commands{
		byName:    map[string]*verb{},
		names:     trie.New(),
		traceFile: traceFile,
	}
	c.verbs = []*verb{
		{
			names: []string{"breakpoint", "break", "bp", "b"},
			group: cmdGroupBreakpoints,
			usage: "breakpoint <list|addr <hex>|sym <name>|entry|del <hex>|del sym <name>> [base <hex>]",
			short: "管理断点，断点命中一次后即删除",
			parse: parseBreakpoint,
		},
		{
			names: []string{"continue", "ct"},
			group: cmdGroupCtrlFlow,
			usage: "continue [signal]",
			short: "安装断点并恢复执行，可附带信号",
			parse: parseContinue,
		},
		{
			names: []string{"step", "next", "nextstep", "st", "ns", "s"},
			group: cmdGroupCtrlFlow,
			usage: "step",
			short: "执行一条指令",
			parse: parseStep,
		},
		{
			names: []string{"detach", "dt"},
			group: cmdGroupCtrlFlow,
			usage: "detach [signal]",
			short: "脱离被调试进程",
			parse: parseDetach,
		},
		{
			names: []string{"exit", "kill", "quit", "qt"},
			group: cmdGroupCtrlFlow,
			usage: "exit",
			short: "杀死被调试进程并退出",
			parse: parseExit,
		},
		{
			names: []string{"registers", "regs", "reg", "r", "rg"},
			group: cmdGroupInfo,
			usage: "registers <get [name]|set <name> <hex>>",
			short: "读写寄存器",
			parse: parseRegisters,
		},
		{
			names: []string{"stack", "sta", "stk"},
			group: cmdGroupInfo,
			usage: "stack <words>",
			short: "从栈顶开始打印若干个字",
			parse: parseStack,
		},
		{
			names: []string{"disassemble", "d", "ds", "disas", "disasm"},
			group: cmdGroupInfo,
			usage: "disassemble <count> [addr <hex>] [att|intel|go|obj]",
			short: "反汇编指令",
			parse: parseDisassemble,
		},
		{
			names: []string{"memory", "mem"},
			group: cmdGroupInfo,
			usage: "memory <read <hex> <count>|write <hex> <hexword>>",
			short: "读写内存",
			parse: parseMemory,
		},
		{
			names: []string{"tracer", "trace", "tr"},
			group: cmdGroupTrace,
			usage: "tracer <mode [none|stdout|file [path]]|run>",
			short: "单步跟踪并记录执行的指令",
			parse: parseTracer,
		},
		{
			names: []string{"obfuscate", "of"},
			group: cmdGroupTrace,
			usage: "obfuscate <traceme|time> [on|off]",
			short: "篡改系统调用结果，对抗反调试",
			parse: parseObfuscate,
		},
		{
			names: []string{"help", "h"},
			group: cmdGroupOthers,
			usage: "help [command]",
			short: "显示帮助信息",
			parse: parseHelp,
		},
	}
	for _, v := range c.verbs {
		for _, n := range v.names {
			c.byName[n] = v
			c.names.Add(n, v)
		}
	}
	return c
}

// Run parses line and executes it. The prompt stays active unless the
// command resumes the tracee or ends the session.
func (c *Commands) Run(l *debugger.Loop, line string) error {
	l.SetShowPrompt(true)

	cmd, err := c.parse(line)
	if err != nil {
		return err
	}
	if cmd == nil {
		return nil
	}
	return c.execute(l, cmd)
}

func (c *Commands) parse(line string) (command, error) {
	if strings.TrimSpace(line) == "" {
		return nil, nil
	}
	argvs, err := argv.Argv(line, func(s string) (string, error) {
		return "", fmt.Errorf("backtick not supported in '%s'", s)
	}, nil)
	if err != nil {
		return nil, err
	}
	if len(argvs) == 0 || len(argvs[0]) == 0 {
		return nil, nil
	}
	if len(argvs) > 1 {
		return nil, errors.New("pipes are not supported")
	}
	args := argvs[0]

	v, ok := c.byName[strings.ToLower(args[0])]
	if !ok {
		return nil, errInvalidCommand
	}
	cmd, err := v.parse(args[1:])
	if errors.Is(err, errUsage) {
		return nil, fmt.Errorf("Command syntax: %s", v.usage)
	}
	return cmd, err
}

// execute 根据命令类型分派到对应的处理函数
func (c *Commands) execute(l *debugger.Loop, cmd command) error {
	switch cmd := cmd.(type) {
	case breakpointList:
		return c.breakpointList(l)
	case breakpointAdd:
		return c.breakpointAdd(l, cmd)
	case breakpointDel:
		return c.breakpointDel(l, cmd)
	case continueCmd:
		return c.cont(l, cmd)
	case stepCmd:
		return c.step(l)
	case detachCmd:
		return c.detach(l, cmd)
	case exitCmd:
		return c.exit(l)
	case registersGet:
		return c.registersGet(l, cmd)
	case registersSet:
		return c.registersSet(l, cmd)
	case stackCmd:
		return c.stack(l, cmd)
	case disassembleCmd:
		return c.disassemble(l, cmd)
	case memoryRead:
		return c.memoryRead(l, cmd)
	case memoryWrite:
		return c.memoryWrite(l, cmd)
	case tracerMode:
		return c.tracerMode(l, cmd)
	case tracerRun:
		return c.tracerRun(l)
	case obfuscateCmd:
		return c.obfuscate(l, cmd)
	case helpCmd:
		return c.help(l, cmd)
	default:
		return fmt.Errorf("unhandled command %T", cmd)
	}
}

// Complete returns the verbs starting with the first word of line.
func (c *Commands) Complete(line string) []string {
	if strings.ContainsAny(line, " \t") {
		return nil
	}
	names := c.names.PrefixSearch(strings.ToLower(line))
	sort.Strings(names)
	return names
}

// parseHex accepts both "0x1f" and "1f".
func parseHex(s string) (uint64, error) {
	t := strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	v, err := strconv.ParseUint(t, 16, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid hex value %q", s)
	}
	return v, nil
}

func parseCount(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid count %q", s)
	}
	return n, nil
}
