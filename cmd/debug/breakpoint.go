package debug

import (
	"errors"
	"fmt"

	"github.com/hitzhangjie/ldb/pkg/debugger"
	"github.com/hitzhangjie/ldb/pkg/symbol"
	"github.com/hitzhangjie/ldb/pkg/target"
)

// location 断点位置：地址、符号名或程序入口，base为附加的偏移
type location struct {
	addr  uint64
	sym   string
	entry bool
	base  uint64
}

type breakpointList struct{}

type breakpointAdd struct {
	loc location
}

type breakpointDel struct {
	loc location
}

func (breakpointList) isCommand() {}
func (breakpointAdd) isCommand()  {}
func (breakpointDel) isCommand()  {}

func parseBreakpoint(args []string) (command, error) {
	if len(args) == 0 {
		return nil, errUsage
	}

	switch args[0] {
	case "list":
		if len(args) != 1 {
			return nil, errUsage
		}
		return breakpointList{}, nil
	case "addr", "sym", "entry":
		loc, err := parseLocation(args)
		if err != nil {
			return nil, err
		}
		return breakpointAdd{loc: loc}, nil
	case "del":
		rest := args[1:]
		if len(rest) > 0 && rest[0] != "sym" {
			rest = append([]string{"addr"}, rest...)
		}
		loc, err := parseLocation(rest)
		if err != nil {
			return nil, err
		}
		return breakpointDel{loc: loc}, nil
	}
	return nil, errUsage
}

// parseLocation parses "addr <hex>", "sym <name>" or "entry", followed by an
// optional "base <hex>".
func parseLocation(args []string) (location, error) {
	var (
		loc  location
		rest []string
		err  error
	)
	if len(args) == 0 {
		return loc, errUsage
	}

	switch args[0] {
	case "addr":
		if len(args) < 2 {
			return loc, errors.New("Address parameter needed.")
		}
		if loc.addr, err = parseHex(args[1]); err != nil {
			return loc, err
		}
		rest = args[2:]
	case "sym":
		if len(args) < 2 {
			return loc, errors.New("Symbol parameter needed.")
		}
		loc.sym = args[1]
		rest = args[2:]
	case "entry":
		loc.entry = true
		rest = args[1:]
	default:
		return loc, errUsage
	}

	switch {
	case len(rest) == 0:
	case len(rest) == 2 && rest[0] == "base":
		if loc.base, err = parseHex(rest[1]); err != nil {
			return loc, err
		}
	default:
		return loc, errUsage
	}
	return loc, nil
}

// resolve 计算断点的绝对地址
func resolve(t debugger.Tracee, loc location) (uintptr, error) {
	addr := loc.addr
	switch {
	case loc.sym != "":
		if t.Symbols() == nil {
			return 0, &symbol.NotFoundError{Name: loc.sym}
		}
		a, err := t.Symbols().Lookup(loc.sym)
		if err != nil {
			return 0, err
		}
		addr = a
	case loc.entry:
		a, err := t.EntryPoint()
		if err != nil {
			return 0, fmt.Errorf("read entry point error: %v", err)
		}
		addr = a
	}
	return uintptr(addr + loc.base), nil
}

func (c *Commands) breakpointList(l *debugger.Loop) error {
	out := l.Output()
	bps := l.Breakpoints()
	if len(bps) == 0 {
		fmt.Fprintln(out, "Current breakpoints: none")
		return nil
	}
	fmt.Fprintln(out, "Current breakpoints:")
	for _, b := range bps {
		fmt.Fprintf(out, "\tbreakpoint[%d] 0x%0*x\n", b.ID, 2*target.WordSize, b.Addr)
	}
	return nil
}

func (c *Commands) breakpointAdd(l *debugger.Loop, cmd breakpointAdd) error {
	addr, err := resolve(l.Tracee(), cmd.loc)
	if err != nil {
		return err
	}
	b, err := l.AddBreakpoint(addr)
	if err != nil {
		return err
	}
	fmt.Fprintf(l.Output(), "Breakpoint (%d) at 0x%0*x added.\n", b.ID, 2*target.WordSize, b.Addr)
	return nil
}

func (c *Commands) breakpointDel(l *debugger.Loop, cmd breakpointDel) error {
	addr, err := resolve(l.Tracee(), cmd.loc)
	if err != nil {
		return err
	}
	if err := l.RemoveBreakpoint(addr); err != nil {
		return fmt.Errorf("remove breakpoint at %#x: %w", addr, err)
	}
	fmt.Fprintf(l.Output(), "Breakpoint removed (%d remaining).\n", len(l.Breakpoints()))
	return nil
}
