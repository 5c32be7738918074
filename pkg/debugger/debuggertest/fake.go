// Package debuggertest provides an in-memory tracee for testing code built
// on the debug loop without ptrace.
package debuggertest

import (
	"errors"
	"fmt"

	"github.com/hitzhangjie/ldb/pkg/symbol"
	"github.com/hitzhangjie/ldb/pkg/target"
	"golang.org/x/sys/unix"
)

// Event is one scripted state change, returned by Wait in order.
type Event struct {
	Status unix.WaitStatus
	Regs   func(r *target.Registers) // applied to the live registers first
}

// Stopped returns a stop event for sig.
func Stopped(sig unix.Signal, regs func(r *target.Registers)) Event {
	return Event{Status: unix.WaitStatus(uint32(sig)<<8 | 0x7f), Regs: regs}
}

// SyscallStop returns a syscall entry or exit stop event.
func SyscallStop(regs func(r *target.Registers)) Event {
	return Stopped(unix.SIGTRAP|0x80, regs)
}

// Exited returns an exit event.
func Exited(code int) Event {
	return Event{Status: unix.WaitStatus(uint32(code) << 8)}
}

// Signaled returns a termination-by-signal event.
func Signaled(sig unix.Signal) Event {
	return Event{Status: unix.WaitStatus(sig)}
}

// AtPC moves the instruction pointer.
func AtPC(pc uint64) func(r *target.Registers) {
	return func(r *target.Registers) { r.SetPC(pc) }
}

// Tracee is a fake tracee with byte addressed memory.
type Tracee struct {
	Mem     map[uintptr]byte
	Regs    target.Registers // live registers
	Events  []Event
	Calls   []string
	PokeErr error
	Entry   uint64
	Table   *symbol.Table

	// OnResume runs before Continue and Step are recorded.
	OnResume func(t *Tracee)

	snapshot target.Registers
}

// New creates a tracee with code mapped at addr.
func New(addr uintptr, code []byte, events ...Event) *Tracee {
	t := &Tracee{
		Mem:    map[uintptr]byte{},
		Events: events,
		Entry:  uint64(addr),
		Table:  symbol.NewTable(map[string]uint64{"_start": uint64(addr)}),
	}
	t.Map(addr, code)
	return t
}

// Map writes dat to memory at addr.
func (t *Tracee) Map(addr uintptr, dat []byte) {
	for i, b := range dat {
		t.Mem[addr+uintptr(i)] = b
	}
}

// Read returns n bytes of memory at addr, unmapped bytes read as zero.
func (t *Tracee) Read(addr uintptr, n int) []byte {
	buf := make([]byte, n)
	for i := range buf {
		buf[i] = t.Mem[addr+uintptr(i)]
	}
	return buf
}

// Count returns how often call was made.
func (t *Tracee) Count(call string) int {
	n := 0
	for _, c := range t.Calls {
		if c == call {
			n++
		}
	}
	return n
}

func (t *Tracee) Initialize() error {
	t.Calls = append(t.Calls, "initialize")
	return nil
}

func (t *Tracee) Wait() (unix.WaitStatus, error) {
	if len(t.Events) == 0 {
		return 0, errors.New("no more events")
	}
	ev := t.Events[0]
	t.Events = t.Events[1:]
	if ev.Regs != nil {
		ev.Regs(&t.Regs)
	}
	return ev.Status, nil
}

func (t *Tracee) UpdateRegisters() error {
	t.snapshot = t.Regs
	return nil
}

func (t *Tracee) Registers() target.Registers {
	return t.snapshot
}

func (t *Tracee) SetRegisters(regs target.Registers) error {
	t.Calls = append(t.Calls, "setregs")
	t.Regs = regs
	return nil
}

func (t *Tracee) Continue(sig int) error {
	if t.OnResume != nil {
		t.OnResume(t)
	}
	t.Calls = append(t.Calls, fmt.Sprintf("continue %d", sig))
	return nil
}

func (t *Tracee) Step() error {
	if t.OnResume != nil {
		t.OnResume(t)
	}
	t.Calls = append(t.Calls, "step")
	return nil
}

func (t *Tracee) Detach(sig int) error {
	t.Calls = append(t.Calls, fmt.Sprintf("detach %d", sig))
	return nil
}

func (t *Tracee) Kill() error {
	t.Calls = append(t.Calls, "kill")
	return nil
}

func (t *Tracee) PeekWord(addr uintptr) (uint64, error) {
	var w uint64
	for i := target.WordSize - 1; i >= 0; i-- {
		b, ok := t.Mem[addr+uintptr(i)]
		if !ok {
			return 0, &target.MemoryAccessError{Op: "peek", Addr: addr, Err: unix.EIO}
		}
		w = w<<8 | uint64(b)
	}
	return w, nil
}

func (t *Tracee) PokeWord(addr uintptr, word uint64) error {
	if t.PokeErr != nil {
		return &target.MemoryAccessError{Op: "poke", Addr: addr, Err: t.PokeErr}
	}
	for i := 0; i < target.WordSize; i++ {
		t.Mem[addr+uintptr(i)] = byte(word >> (8 * i))
	}
	return nil
}

func (t *Tracee) PeekInto(addr uintptr, buf []byte) error {
	for i := range buf {
		b, ok := t.Mem[addr+uintptr(i)]
		if !ok {
			return &target.MemoryAccessError{Op: "peek", Addr: addr + uintptr(i), Err: unix.EIO}
		}
		buf[i] = b
	}
	return nil
}

func (t *Tracee) EntryPoint() (uint64, error) {
	return t.Entry, nil
}

func (t *Tracee) Symbols() *symbol.Table {
	return t.Table
}
