package debugger

import (
	"errors"
	"fmt"
	"sort"

	"github.com/hitzhangjie/ldb/pkg/target"
)

var (
	ErrBreakpointNotExisted = errors.New("breakpoint not existed")
)

// CollisionError is returned when a new breakpoint would overlap an
// existing one.
type CollisionError struct {
	Addr     uintptr
	Existing uintptr
}

func (e *CollisionError) Error() string {
	return fmt.Sprintf("breakpoint at %#x collides with breakpoint at %#x", e.Addr, e.Existing)
}

// ToggleResult is the outcome of installing or restoring one breakpoint.
type ToggleResult struct {
	Addr uintptr
	Err  error
}

// InstallSummary is the outcome of a bulk install or restore pass.
type InstallSummary struct {
	Installed bool
	Results   []ToggleResult
}

// Failed returns the breakpoints that could not be toggled.
func (s InstallSummary) Failed() []ToggleResult {
	var failed []ToggleResult
	for _, r := range s.Results {
		if r.Err != nil {
			failed = append(failed, r)
		}
	}
	return failed
}

// Breakpoints returns the breakpoint set ordered by address.
func (l *Loop) Breakpoints() []*target.Breakpoint {
	bs := make(target.Breakpoints, 0, len(l.breakpoints))
	for _, b := range l.breakpoints {
		bs = append(bs, b)
	}
	sort.Sort(bs)
	return bs
}

// AddBreakpoint creates a breakpoint at addr, snapshotting the original
// instruction bytes. It is installed with the next bulk install.
func (l *Loop) AddBreakpoint(addr uintptr) (*target.Breakpoint, error) {
	for a := range l.breakpoints {
		d := a - addr
		if addr > a {
			d = addr - a
		}
		if d < uintptr(target.TrapLen) {
			return nil, &CollisionError{Addr: addr, Existing: a}
		}
	}

	b, err := target.NewBreakpoint(l.tracee, addr)
	if err != nil {
		return nil, err
	}
	l.breakpoints[addr] = b
	l.log.Debugf("add breakpoint %d at %#x", b.ID, addr)
	return b, nil
}

// RemoveBreakpoint discards the breakpoint at addr, restoring the original
// bytes first if it is installed.
func (l *Loop) RemoveBreakpoint(addr uintptr) error {
	b, ok := l.breakpoints[addr]
	if !ok {
		return ErrBreakpointNotExisted
	}
	if b.Installed() {
		if err := b.SetInstalled(false); err != nil {
			return err
		}
	}
	delete(l.breakpoints, addr)
	l.log.Debugf("remove breakpoint %d at %#x", b.ID, addr)
	return nil
}

// SetBreakpointsInstalled installs (true) or restores (false) every
// breakpoint whose state differs from flag. Individual failures are
// collected in the summary, the session wide flag is set regardless.
func (l *Loop) SetBreakpointsInstalled(flag bool) InstallSummary {
	summary := InstallSummary{Installed: flag}
	for _, b := range l.Breakpoints() {
		if b.Installed() == flag {
			continue
		}
		err := b.SetInstalled(flag)
		if err != nil {
			l.log.Debugf("toggle breakpoint at %#x to %v error: %v", b.Addr, flag, err)
		}
		summary.Results = append(summary.Results, ToggleResult{Addr: b.Addr, Err: err})
	}
	l.breakpointsInstalled = flag
	return summary
}

// BreakpointsInstalled reports the state of the last bulk toggle.
func (l *Loop) BreakpointsInstalled() bool {
	return l.breakpointsInstalled
}

// breakpointHit reports whether the current stop is the trap of a tracked
// breakpoint: breakpoints were installed, the stop is SIGTRAP and the
// instruction right before pc is a breakpoint.
func (l *Loop) breakpointHit(wereInstalled bool) (uintptr, bool) {
	if !wereInstalled || l.stopSignal != trapSignal {
		return 0, false
	}
	addr := uintptr(l.tracee.Registers().PC() - uint64(target.TrapLen))
	_, ok := l.breakpoints[addr]
	return addr, ok
}

// performBreakpoint handles a one-shot hit: the breakpoint leaves the set
// and pc is rewound to its address. Failures are logged, the hit is still
// reported.
func (l *Loop) performBreakpoint(addr uintptr) {
	if err := l.RemoveBreakpoint(addr); err != nil {
		l.log.Debugf("remove hit breakpoint at %#x error: %v", addr, err)
	}

	regs := l.tracee.Registers()
	regs.SetPC(uint64(addr))
	if err := l.tracee.SetRegisters(regs); err != nil {
		l.log.Debugf("rewind pc to %#x error: %v", addr, err)
	} else if err := l.tracee.UpdateRegisters(); err != nil {
		l.log.Debugf("update registers error: %v", err)
	}

	fmt.Fprintln(l.out, "This is a breakpoint.")
}
