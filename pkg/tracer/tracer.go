// Package tracer records single-step traces to the console or a file.
package tracer

import (
	"fmt"
	"io"
	"os"

	"github.com/hitzhangjie/ldb/pkg/disasm"
	"github.com/hitzhangjie/ldb/pkg/logflags"
	"github.com/hitzhangjie/ldb/pkg/target"
	"github.com/sirupsen/logrus"
)

// Mode is the trace destination.
type Mode int

const (
	None Mode = iota
	Stdout
	File
)

func (m Mode) String() string {
	switch m {
	case Stdout:
		return "stdout"
	case File:
		return "file"
	default:
		return "none"
	}
}

// IOError is returned when the trace file can't be opened.
type IOError struct {
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("failed to open trace file %s: %v", e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// Tracer is the trace sink. At most one destination is open at a time.
type Tracer struct {
	mode   Mode
	active bool

	console io.Writer
	out     io.Writer
	file    *os.File

	log *logrus.Entry
}

// New creates a tracer in mode none, console is used by SelectStdout.
func New(console io.Writer) *Tracer {
	return &Tracer{
		console: console,
		log:     logflags.TracerLogger(),
	}
}

// Mode returns the current destination.
func (t *Tracer) Mode() Mode {
	return t.mode
}

// Active reports whether a trace run is in progress.
func (t *Tracer) Active() bool {
	return t.active
}

// SetActive starts or stops a trace run.
func (t *Tracer) SetActive(active bool) {
	t.active = active
}

// SelectStdout closes the current destination and traces to the console.
func (t *Tracer) SelectStdout() {
	t.Close()
	t.out = t.console
	t.mode = Stdout
}

// SelectFile closes the current destination and traces to path, truncating
// it. On failure the tracer is left in mode none.
func (t *Tracer) SelectFile(path string) error {
	t.Close()

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return &IOError{Path: path, Err: err}
	}
	t.file = f
	t.out = f
	t.mode = File
	return nil
}

// Close closes the current destination and switches to mode none.
func (t *Tracer) Close() error {
	var err error
	if t.file != nil {
		err = t.file.Close()
		t.file = nil
	}
	t.out = nil
	t.mode = None
	return err
}

// Trace records one executed instruction. Write failures are logged and
// otherwise ignored.
func (t *Tracer) Trace(inst disasm.Instruction, regs target.Registers) {
	if t.mode == None || t.out == nil {
		return
	}
	_, err := fmt.Fprintf(t.out, "\t0x%0*x\t%s\n", 2*target.WordSize, regs.PC(), inst.Text)
	if err != nil {
		t.log.Debugf("trace write error: %v", err)
	}
}
