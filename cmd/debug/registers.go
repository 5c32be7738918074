package debug

import (
	"fmt"
	"strings"

	"github.com/hitzhangjie/ldb/pkg/debugger"
	"github.com/hitzhangjie/ldb/pkg/target"
)

type registersGet struct {
	name string // empty: all registers
}

type registersSet struct {
	name  string
	value uint64
}

func (registersGet) isCommand() {}
func (registersSet) isCommand() {}

func parseRegisters(args []string) (command, error) {
	if len(args) == 0 {
		return nil, errUsage
	}

	switch args[0] {
	case "get":
		switch len(args) {
		case 1:
			return registersGet{}, nil
		case 2:
			return registersGet{name: strings.ToLower(args[1])}, nil
		}
	case "set":
		if len(args) != 3 {
			return nil, errUsage
		}
		v, err := parseHex(args[2])
		if err != nil {
			return nil, err
		}
		return registersSet{name: strings.ToLower(args[1]), value: v}, nil
	}
	return nil, errUsage
}

func (c *Commands) registersGet(l *debugger.Loop, cmd registersGet) error {
	out := l.Output()
	regs := l.Tracee().Registers()
	width := 2 * target.WordSize

	if cmd.name != "" {
		v, ok := regs.Get(cmd.name)
		if !ok {
			return fmt.Errorf("unknown register: %q", cmd.name)
		}
		fmt.Fprintf(out, "\t%s: 0x%0*x\n", strings.ToUpper(cmd.name), width, v)
		return nil
	}

	// 每行两个寄存器
	names := regs.Names()
	for i := 0; i < len(names); i += 2 {
		v, _ := regs.Get(names[i])
		fmt.Fprintf(out, "\t%-3s: 0x%0*x", strings.ToUpper(names[i]), width, v)
		if i+1 < len(names) {
			v, _ := regs.Get(names[i+1])
			fmt.Fprintf(out, "\t\t%-3s: 0x%0*x", strings.ToUpper(names[i+1]), width, v)
		}
		fmt.Fprintln(out)
	}
	return nil
}

func (c *Commands) registersSet(l *debugger.Loop, cmd registersSet) error {
	t := l.Tracee()
	regs := t.Registers()
	if err := regs.Set(cmd.name, cmd.value); err != nil {
		return err
	}
	if err := t.SetRegisters(regs); err != nil {
		return err
	}
	if err := t.UpdateRegisters(); err != nil {
		return err
	}
	fmt.Fprintf(l.Output(), "Wrote value 0x%0*x to %s.\n", 2*target.WordSize, cmd.value, strings.ToUpper(cmd.name))
	return nil
}
