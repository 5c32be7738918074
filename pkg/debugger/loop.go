// Package debugger implements the debug loop: it waits for the tracee to
// stop, classifies each stop and decides between prompting the operator and
// resuming the tracee on its own.
package debugger

import (
	"fmt"
	"io"
	"os"

	"github.com/hitzhangjie/ldb/pkg/disasm"
	"github.com/hitzhangjie/ldb/pkg/logflags"
	"github.com/hitzhangjie/ldb/pkg/target"
	"github.com/hitzhangjie/ldb/pkg/tracer"
	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
)

const (
	trapSignal    = unix.SIGTRAP
	syscallSignal = unix.SIGTRAP | 0x80
)

// Loop is the debug loop of one session. It is driven by a single goroutine,
// all state changes happen while the tracee is stopped.
type Loop struct {
	tracee    Tracee
	commander Commander
	reader    LineReader

	out       io.Writer
	prompt    string
	flavor    disasm.Flavor
	cacheSize int
	decoder   *disasm.Decoder
	tracer    *tracer.Tracer

	initialized bool
	keepLooping bool
	showPrompt  bool
	stopSignal  unix.Signal

	breakpoints          map[uintptr]*target.Breakpoint
	breakpointsInstalled bool

	syscall    syscallCapture
	obfuscator *Obfuscator
	hooks      []SyscallHook

	log *logrus.Entry
}

// Option configures a Loop.
type Option func(*Loop)

// WithOutput sets where operator messages go, os.Stdout by default.
func WithOutput(w io.Writer) Option {
	return func(l *Loop) { l.out = w }
}

// WithPrompt sets the prompt string, "(ldb)" by default.
func WithPrompt(prompt string) Option {
	return func(l *Loop) { l.prompt = prompt }
}

// WithFlavor sets the default disassembly flavor.
func WithFlavor(f disasm.Flavor) Option {
	return func(l *Loop) { l.flavor = f }
}

// WithDecodeCache sets the size of the decoded instruction cache.
func WithDecodeCache(size int) Option {
	return func(l *Loop) { l.cacheSize = size }
}

// WithSyscallHook adds a hook run after the built-in obfuscation.
func WithSyscallHook(h SyscallHook) Option {
	return func(l *Loop) { l.hooks = append(l.hooks, h) }
}

// New creates the debug loop for tracee t. Command lines are read from r
// and executed by c.
func New(t Tracee, c Commander, r LineReader, opts ...Option) (*Loop, error) {
	l := &Loop{
		tracee:      t,
		commander:   c,
		reader:      r,
		out:         os.Stdout,
		prompt:      "(ldb)",
		flavor:      disasm.Intel,
		cacheSize:   4096,
		breakpoints: map[uintptr]*target.Breakpoint{},
		log:         logflags.DebuggerLogger(),
	}
	for _, o := range opts {
		o(l)
	}

	decoder, err := disasm.NewDecoder(target.DecodeMode, l.cacheSize)
	if err != nil {
		return nil, err
	}
	l.decoder = decoder
	l.tracer = tracer.New(l.out)
	l.obfuscator = NewObfuscator(l.out)
	l.hooks = append([]SyscallHook{l.obfuscator}, l.hooks...)
	return l, nil
}

// Run waits for and handles tracee state changes until the session ends.
func (l *Loop) Run() error {
	l.keepLooping = true

	for l.keepLooping {
		status, err := l.tracee.Wait()
		if err != nil {
			return fmt.Errorf("wait error: %w", err)
		}

		switch {
		case status.Exited():
			l.handleExit(fmt.Sprintf("exited with code %d", status.ExitStatus()))
		case status.Signaled():
			l.handleExit(fmt.Sprintf("was terminated by signal: %s", status.Signal()))
		case status.Stopped():
			if err := l.handleStop(status.StopSignal()); err != nil {
				return err
			}
		case status.Continued():
			l.handleContinue()
		}
	}
	return nil
}

// Close releases the trace destination.
func (l *Loop) Close() error {
	return l.tracer.Close()
}

func (l *Loop) handleExit(how string) {
	fmt.Fprintf(l.out, "Debugged process %s.\n", how)
	l.keepLooping = false
}

// handleContinue is never reached in practice, only the debugger resumes
// the tracee.
func (l *Loop) handleContinue() {
	l.log.Debug("tracee continued")
}

func (l *Loop) handleStop(sig unix.Signal) error {
	if !l.initialized {
		fmt.Fprintln(l.out, "Initializing ...")
		if err := l.tracee.Initialize(); err != nil {
			return fmt.Errorf("initialize error: %w", err)
		}
		l.initialized = true
	}

	l.stopSignal = sig
	if err := l.tracee.UpdateRegisters(); err != nil {
		return err
	}

	wereInstalled := l.breakpointsInstalled
	l.SetBreakpointsInstalled(false)

	addr, hit := l.breakpointHit(wereInstalled)
	l.log.Debugf("stop, signal: %d, pc: %#x, breakpoint hit: %v", sig, l.tracee.Registers().PC(), hit)

	switch {
	case hit:
		// operator stop below

	case sig == trapSignal && l.tracer.Active() && l.tracer.Mode() != tracer.None:
		l.performTrace()
		return l.tracee.Step()

	case sig == syscallSignal:
		l.performSyscall()
		l.SetBreakpointsInstalled(true)
		return l.tracee.Continue(0)
	}

	l.tracer.SetActive(false)
	fmt.Fprintf(l.out, "Debugged process has received signal: %s.\n", sig)

	if hit {
		l.performBreakpoint(addr)
	}

	l.printCurrentInstruction()

	l.showPrompt = true
	for l.showPrompt {
		l.promptOnce()
	}
	return nil
}

// promptOnce reads and runs one command. Command errors are printed and the
// operator is prompted again. End of input detaches from the tracee.
func (l *Loop) promptOnce() {
	line, err := l.reader.Prompt(l.prompt + " ")
	if err != nil {
		if err != io.EOF {
			fmt.Fprintf(l.out, "read command error: %v\n", err)
		}
		fmt.Fprintln(l.out, "Detaching from the debugged process ...")
		l.showPrompt = false
		l.keepLooping = false
		if err := l.tracee.Detach(0); err != nil {
			fmt.Fprintln(l.out, err)
		}
		return
	}

	if err := l.commander.Run(l, line); err != nil {
		fmt.Fprintln(l.out, err)
		l.showPrompt = true
	}
}

func (l *Loop) performTrace() {
	regs := l.tracee.Registers()
	insts, err := l.Disassemble(regs.PC(), 1, l.flavor)
	if err != nil {
		l.log.Debugf("trace decode at %#x error: %v", regs.PC(), err)
		return
	}
	l.tracer.Trace(insts[0], regs)
}

func (l *Loop) printCurrentInstruction() {
	pc := l.tracee.Registers().PC()
	insts, err := l.Disassemble(pc, 1, l.flavor)
	if err != nil {
		fmt.Fprintln(l.out, err)
		return
	}
	fmt.Fprintf(l.out, "\t<0x%0*x>\t%s\n", 2*target.WordSize, pc, insts[0].Text)
}

// Disassemble decodes count instructions starting at addr.
func (l *Loop) Disassemble(addr uint64, count int, flavor disasm.Flavor) ([]disasm.Instruction, error) {
	insts := make([]disasm.Instruction, 0, count)
	buf := make([]byte, target.MaxInstructionBytes)
	for i := 0; i < count; i++ {
		if err := l.tracee.PeekInto(uintptr(addr), buf); err != nil {
			return insts, err
		}
		inst := l.decoder.Decode(addr, buf, flavor)
		insts = append(insts, inst)
		addr += uint64(inst.Len())
	}
	return insts, nil
}

// KeepLooping reports whether Run waits for another stop.
func (l *Loop) KeepLooping() bool { return l.keepLooping }

// SetKeepLooping ends (false) or continues (true) the session after the
// current command.
func (l *Loop) SetKeepLooping(v bool) { l.keepLooping = v }

// ShowPrompt reports whether the operator is prompted again.
func (l *Loop) ShowPrompt() bool { return l.showPrompt }

// SetShowPrompt keeps prompting (true) or returns to waiting (false).
func (l *Loop) SetShowPrompt(v bool) { l.showPrompt = v }

// Tracee returns the process under control.
func (l *Loop) Tracee() Tracee { return l.tracee }

// Tracer returns the trace sink.
func (l *Loop) Tracer() *tracer.Tracer { return l.tracer }

// StopSignal returns the signal of the last stop.
func (l *Loop) StopSignal() unix.Signal { return l.stopSignal }

// Flavor returns the default disassembly flavor.
func (l *Loop) Flavor() disasm.Flavor { return l.flavor }

// Output returns the writer for operator messages.
func (l *Loop) Output() io.Writer { return l.out }
