package debug

import (
	"fmt"
	"strings"

	"github.com/hitzhangjie/ldb/pkg/debugger"
	"github.com/hitzhangjie/ldb/pkg/disasm"
	"github.com/hitzhangjie/ldb/pkg/target"
)

type disassembleCmd struct {
	count     int
	addr      uint64
	hasAddr   bool
	flavor    disasm.Flavor
	hasFlavor bool
	obj       bool // 输出机器码而非汇编
}

func (disassembleCmd) isCommand() {}

func parseDisassemble(args []string) (command, error) {
	if len(args) == 0 {
		return nil, errUsage
	}
	n, err := parseCount(args[0])
	if err != nil {
		return nil, err
	}
	cmd := disassembleCmd{count: n}

	for rest := args[1:]; len(rest) > 0; {
		switch rest[0] {
		case "addr":
			if cmd.hasAddr || len(rest) < 2 {
				return nil, errUsage
			}
			if cmd.addr, err = parseHex(rest[1]); err != nil {
				return nil, err
			}
			cmd.hasAddr = true
			rest = rest[2:]
			continue
		case "obj":
			if cmd.hasFlavor || cmd.obj {
				return nil, errUsage
			}
			cmd.obj = true
		default:
			if cmd.hasFlavor || cmd.obj {
				return nil, errUsage
			}
			f, err := disasm.ParseFlavor(rest[0])
			if err != nil {
				return nil, err
			}
			cmd.flavor, cmd.hasFlavor = f, true
		}
		rest = rest[1:]
	}
	return cmd, nil
}

func (c *Commands) disassemble(l *debugger.Loop, cmd disassembleCmd) error {
	addr := l.Tracee().Registers().PC()
	if cmd.hasAddr {
		addr = cmd.addr
	}
	flavor := l.Flavor()
	if cmd.hasFlavor {
		flavor = cmd.flavor
	}

	insts, err := l.Disassemble(addr, cmd.count, flavor)

	out := l.Output()
	for _, inst := range insts {
		text := inst.Text
		if cmd.obj {
			text = strings.TrimSpace(fmt.Sprintf("% x", inst.Bytes))
		}
		fmt.Fprintf(out, "\t<0x%0*x>\t%s\n", 2*target.WordSize, inst.Addr, text)
	}
	return err
}
