package debugger

import (
	"fmt"
	"io"

	"go.uber.org/atomic"
	"golang.org/x/sys/unix"
)

const (
	sysPtrace = unix.SYS_PTRACE
	sysTime   = unix.SYS_TIME

	// 2000-01-01 00:00:00 UTC
	obfuscatedTime = 946684800
)

// Syscall is one completed system call of the tracee.
type Syscall struct {
	Number uint64
	Args   []uint64
	Result uint64
}

// SyscallHook is invoked once per completed syscall, at the exit stop and
// before the tracee resumes. It may change the result register or memory
// through t.
type SyscallHook interface {
	AfterSyscall(t Tracee, sc Syscall) error
}

// SyscallHookFunc adapts a function to SyscallHook.
type SyscallHookFunc func(t Tracee, sc Syscall) error

func (f SyscallHookFunc) AfterSyscall(t Tracee, sc Syscall) error {
	return f(t, sc)
}

// syscallCapture 系统调用入口处记录的信息，出口处使用后清空
type syscallCapture struct {
	active bool
	number uint64
	args   []uint64
}

// performSyscall handles one syscall stop. The entry stop records the
// number and arguments, the matching exit stop runs the hooks with the
// result and resets the capture.
func (l *Loop) performSyscall() {
	regs := l.tracee.Registers()

	if !l.syscall.active {
		l.syscall = syscallCapture{
			active: true,
			number: regs.SyscallNum(),
			args:   regs.SyscallArgs(),
		}
		l.log.Debugf("syscall %d entry, args: %#x", l.syscall.number, l.syscall.args)
		return
	}

	sc := Syscall{Number: l.syscall.number, Args: l.syscall.args, Result: regs.Ret()}
	l.log.Debugf("syscall %d exit, result: %#x", sc.Number, sc.Result)
	for _, h := range l.hooks {
		if err := h.AfterSyscall(l.tracee, sc); err != nil {
			l.log.Debugf("syscall %d hook error: %v", sc.Number, err)
		}
	}
	l.syscall = syscallCapture{}
}

// Obfuscator falsifies syscall results to hide the debugger from the tracee.
//
// traceme: the first ptrace(PTRACE_TRACEME) of the session succeeds.
// time: time(2) returns 2000-01-01, also stored at its pointer argument.
type Obfuscator struct {
	traceMe bool
	time    bool

	traceMeFired *atomic.Bool
	out          io.Writer
}

// NewObfuscator creates an obfuscator with both toggles off, reporting to out.
func NewObfuscator(out io.Writer) *Obfuscator {
	return &Obfuscator{
		traceMeFired: atomic.NewBool(false),
		out:          out,
	}
}

// AfterSyscall implements SyscallHook.
func (o *Obfuscator) AfterSyscall(t Tracee, sc Syscall) error {
	switch {
	case sc.Number == sysPtrace:
		if !o.traceMe || len(sc.Args) == 0 || sc.Args[0] != unix.PTRACE_TRACEME {
			return nil
		}
		if !o.traceMeFired.CAS(false, true) {
			return nil
		}
		regs := t.Registers()
		regs.SetRet(0)
		if err := t.SetRegisters(regs); err != nil {
			return err
		}
		fmt.Fprintln(o.out, "<Obfuscation> traceme")

	case sc.Number == sysTime && o.time:
		regs := t.Registers()
		regs.SetRet(obfuscatedTime)
		if err := t.SetRegisters(regs); err != nil {
			return err
		}
		if len(sc.Args) > 0 && sc.Args[0] != 0 {
			if err := t.PokeWord(uintptr(sc.Args[0]), obfuscatedTime); err != nil {
				return err
			}
		}
		fmt.Fprintln(o.out, "<Obfuscation> time")
	}
	return nil
}

// ObfuscateTraceMe reports whether PTRACE_TRACEME obfuscation is on.
func (l *Loop) ObfuscateTraceMe() bool {
	return l.obfuscator.traceMe
}

// SetObfuscateTraceMe toggles PTRACE_TRACEME obfuscation.
func (l *Loop) SetObfuscateTraceMe(on bool) {
	l.obfuscator.traceMe = on
}

// ObfuscateTime reports whether time obfuscation is on.
func (l *Loop) ObfuscateTime() bool {
	return l.obfuscator.time
}

// SetObfuscateTime toggles time obfuscation.
func (l *Loop) SetObfuscateTime(on bool) {
	l.obfuscator.time = on
}
