package debug

import (
	"fmt"

	"github.com/hitzhangjie/ldb/pkg/debugger"
	"github.com/hitzhangjie/ldb/pkg/target"
)

const bytesPerLine = 16

type stackCmd struct {
	words int
}

type memoryRead struct {
	addr  uint64
	count int
}

type memoryWrite struct {
	addr  uint64
	value uint64
}

func (stackCmd) isCommand()    {}
func (memoryRead) isCommand()  {}
func (memoryWrite) isCommand() {}

func parseStack(args []string) (command, error) {
	if len(args) != 1 {
		return nil, errUsage
	}
	n, err := parseCount(args[0])
	if err != nil {
		return nil, err
	}
	return stackCmd{words: n}, nil
}

func parseMemory(args []string) (command, error) {
	if len(args) != 3 {
		return nil, errUsage
	}
	addr, err := parseHex(args[1])
	if err != nil {
		return nil, err
	}

	switch args[0] {
	case "read":
		n, err := parseCount(args[2])
		if err != nil {
			return nil, err
		}
		return memoryRead{addr: addr, count: n}, nil
	case "write":
		v, err := parseHex(args[2])
		if err != nil {
			return nil, err
		}
		return memoryWrite{addr: addr, value: v}, nil
	}
	return nil, errUsage
}

// stack 从sp开始按字打印，标注sp和bp所在位置
func (c *Commands) stack(l *debugger.Loop, cmd stackCmd) error {
	out := l.Output()
	t := l.Tracee()
	regs := t.Registers()
	width := 2 * target.WordSize

	sp := regs.SP()
	for i := 0; i < cmd.words; i++ {
		addr := sp + uint64(i*target.WordSize)
		w, err := t.PeekWord(uintptr(addr))
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "\t<0x%0*x>\t0x%0*x", width, addr, width, w)
		if addr == sp {
			fmt.Fprint(out, "\t<-- stack pointer")
		}
		if addr == regs.BP() {
			fmt.Fprint(out, "\t<-- base pointer")
		}
		fmt.Fprintln(out)
	}
	return nil
}

func (c *Commands) memoryRead(l *debugger.Loop, cmd memoryRead) error {
	buf := make([]byte, cmd.count)
	if err := l.Tracee().PeekInto(uintptr(cmd.addr), buf); err != nil {
		return err
	}

	out := l.Output()
	for off := 0; off < len(buf); off += bytesPerLine {
		end := off + bytesPerLine
		if end > len(buf) {
			end = len(buf)
		}
		fmt.Fprintf(out, "0x%0*x:  % x\n", 2*target.WordSize, cmd.addr+uint64(off), buf[off:end])
	}
	return nil
}

func (c *Commands) memoryWrite(l *debugger.Loop, cmd memoryWrite) error {
	if err := l.Tracee().PokeWord(uintptr(cmd.addr), cmd.value); err != nil {
		return err
	}
	width := 2 * target.WordSize
	fmt.Fprintf(l.Output(), "Wrote value 0x%0*x to 0x%0*x.\n", width, cmd.value, width, cmd.addr)
	return nil
}
