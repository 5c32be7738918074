package debugger

import (
	"github.com/hitzhangjie/ldb/pkg/symbol"
	"github.com/hitzhangjie/ldb/pkg/target"
	"golang.org/x/sys/unix"
)

// Tracee is the process control surface the loop drives, implemented by
// *target.Process.
type Tracee interface {
	Initialize() error
	Wait() (unix.WaitStatus, error)

	UpdateRegisters() error
	Registers() target.Registers
	SetRegisters(regs target.Registers) error

	Continue(sig int) error
	Step() error
	Detach(sig int) error
	Kill() error

	PeekWord(addr uintptr) (uint64, error)
	PokeWord(addr uintptr, word uint64) error
	PeekInto(addr uintptr, buf []byte) error

	EntryPoint() (uint64, error)
	Symbols() *symbol.Table
}

var _ Tracee = (*target.Process)(nil)

// LineReader reads one operator command line.
type LineReader interface {
	Prompt(prompt string) (string, error)
}

// Commander runs one operator command line against the loop.
type Commander interface {
	Run(l *Loop, line string) error
}
