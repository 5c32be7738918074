//go:build linux

package target

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"sync"
	"syscall"

	"github.com/hitzhangjie/ldb/pkg/logflags"
	"github.com/hitzhangjie/ldb/pkg/symbol"
	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
)

// Kind 发起调试的类型
type Kind int

const (
	LAUNCH Kind = iota // 启动并跟踪一个新进程
	ATTACH             // 跟踪一个已经运行的进程
)

func (k Kind) String() string {
	if k == ATTACH {
		return "attach"
	}
	return "run"
}

// Process 被调试进程信息
//
// Process is the only type issuing ptrace requests against the tracee. It is
// not safe for concurrent use, the debug loop drives it from one goroutine.
type Process struct {
	Pid  int      // 进程ID
	Kind Kind     // 发起调试的类型
	Path string   // 可执行程序的绝对路径
	Name string   // 可执行程序名, argv[0]
	Args []string // 进程启动参数，不包含argv[0]

	regs    Registers     // 最近一次停止时的寄存器快照
	symbols *symbol.Table // 符号表

	log *logrus.Entry

	once       sync.Once
	stopOnce   sync.Once
	ptraceCh   chan func() error // ptrace请求统一发送到这里，由专门协程处理
	ptraceDone chan error        // ptrace请求完成
	stopCh     chan struct{}     // 通知需要停止调试
}

var errPtraceStopped = fmt.Errorf("ptrace goroutine stopped")

func newProcess(kind Kind) *Process {
	return &Process{
		Kind:       kind,
		log:        logflags.TargetLogger(),
		ptraceCh:   make(chan func() error),
		ptraceDone: make(chan error),
		stopCh:     make(chan struct{}),
	}
}

// resolvePath returns the absolute, symlink free path of a binary.
func resolvePath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", &PathResolutionError{Path: path, Err: err}
	}
	abs, err = filepath.EvalSymlinks(abs)
	if err != nil {
		return "", &PathResolutionError{Path: path, Err: err}
	}
	return abs, nil
}

// Launch starts the binary at path under ptrace with the given arguments.
// The child gets the base name of the binary as argv[0], inherits the stdio
// and environment of the debugger plus env, and stops with SIGTRAP right
// after exec. The caller observes that stop with Wait.
func Launch(path string, args []string, env ...string) (*Process, error) {
	abs, err := resolvePath(path)
	if err != nil {
		return nil, err
	}

	p := newProcess(LAUNCH)
	p.Path = abs
	p.Name = filepath.Base(abs)
	p.Args = args

	// the tracer of a PTRACE_TRACEME child is the thread that forked it
	var cmd *exec.Cmd
	err = p.execPtrace(func() error {
		cmd = exec.Command(abs)
		cmd.Args = append([]string{p.Name}, args...)
		cmd.Stdin = os.Stdin
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
		cmd.Env = append(os.Environ(), env...)
		cmd.SysProcAttr = &syscall.SysProcAttr{Ptrace: true}
		return cmd.Start()
	})
	if err != nil {
		p.Close()
		return nil, &ProcessCreationError{Path: abs, Cause: causeOf(err), Err: err}
	}
	p.Pid = cmd.Process.Pid

	p.log.Debugf("launched %s, pid: %d, args: %q", abs, p.Pid, args)
	return p, nil
}

// Attach traces the running process whose id is given as a decimal string.
// The tracee stops with SIGSTOP, observed by the caller with Wait.
func Attach(pidStr string) (*Process, error) {
	pid, err := strconv.Atoi(pidStr)
	if err != nil {
		return nil, &AttachError{Pid: pidStr, Cause: CauseNotANumber, Err: err}
	}

	exe, err := os.Readlink(fmt.Sprintf("/proc/%d/exe", pid))
	if err != nil {
		return nil, &AttachError{Pid: pidStr, Cause: causeOf(err), Err: err}
	}
	abs, err := resolvePath(exe)
	if err != nil {
		return nil, err
	}

	p := newProcess(ATTACH)
	p.Pid = pid
	p.Path = abs
	p.Name = filepath.Base(abs)

	err = p.execPtrace(func() error {
		return unix.PtraceAttach(pid)
	})
	if err != nil {
		p.Close()
		return nil, &AttachError{Pid: pidStr, Cause: causeOf(err), Err: err}
	}

	// 仅用于展示，读取失败不影响调试
	if args, err := readProcCommArgs(pid); err == nil {
		p.Args = args
	}

	p.log.Debugf("attached to %s, pid: %d", abs, pid)
	return p, nil
}

// execPtrace runs fn on the ptrace goroutine.
//
// Linux binds a tracee to the tracer thread, not the tracer process, so all
// ptrace requests must come from the same OS thread.
//
// issue: https://github.com/golang/go/issues/7699
func (p *Process) execPtrace(fn func() error) error {
	p.once.Do(func() {
		go func() {
			runtime.LockOSThread()
			defer runtime.UnlockOSThread()

			for {
				select {
				case reqFn := <-p.ptraceCh:
					p.ptraceDone <- reqFn()
				case <-p.stopCh:
					return
				}
			}
		}()
	})

	select {
	case p.ptraceCh <- fn:
		return <-p.ptraceDone
	case <-p.stopCh:
		return errPtraceStopped
	}
}

// Close stops the ptrace goroutine. The tracee itself is left untouched.
func (p *Process) Close() {
	p.stopOnce.Do(func() {
		close(p.stopCh)
	})
}

// Initialize sets the ptrace options, must be called at the first stop.
func (p *Process) Initialize() error {
	err := p.execPtrace(func() error {
		return unix.PtraceSetOptions(p.Pid, unix.PTRACE_O_TRACESYSGOOD)
	})
	p.log.Debugf("set options PTRACE_O_TRACESYSGOOD, err: %v", err)
	return err
}

// Wait blocks until the tracee changes state.
func (p *Process) Wait() (unix.WaitStatus, error) {
	var status unix.WaitStatus
	for {
		_, err := unix.Wait4(p.Pid, &status, unix.WALL, nil)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			p.log.Debugf("wait4 error: %v", err)
			return 0, err
		}
		p.log.Debugf("process %d %s", p.Pid, desc(status))
		return status, nil
	}
}

// UpdateRegisters refreshes the register snapshot from the tracee.
func (p *Process) UpdateRegisters() error {
	var regs unix.PtraceRegs
	err := p.execPtrace(func() error {
		return unix.PtraceGetRegs(p.Pid, &regs)
	})
	if err != nil {
		return &RegisterAccessError{Op: "get", Err: err}
	}
	p.regs = fromPtraceRegs(&regs)
	return nil
}

// Registers returns a copy of the last fetched register snapshot.
func (p *Process) Registers() Registers {
	return p.regs
}

// SetRegisters writes regs to the tracee. The snapshot is not refreshed, call
// UpdateRegisters to observe the written values.
func (p *Process) SetRegisters(regs Registers) error {
	err := p.execPtrace(func() error {
		return unix.PtraceSetRegs(p.Pid, regs.toPtraceRegs())
	})
	if err != nil {
		return &RegisterAccessError{Op: "set", Err: err}
	}
	return nil
}

// Continue resumes the tracee until the next syscall stop or signal,
// delivering sig if it is not zero.
func (p *Process) Continue(sig int) error {
	err := p.execPtrace(func() error {
		return unix.PtraceSyscall(p.Pid, sig)
	})
	p.log.Debugf("ptrace syscall, sig: %d, err: %v", sig, err)
	return err
}

// Step executes exactly one instruction.
func (p *Process) Step() error {
	err := p.execPtrace(func() error {
		return unix.PtraceSingleStep(p.Pid)
	})
	p.log.Debugf("ptrace singlestep, err: %v", err)
	return err
}

// Detach releases the tracee, delivering sig if it is not zero.
func (p *Process) Detach(sig int) error {
	err := p.execPtrace(func() error {
		_, _, errno := unix.Syscall6(unix.SYS_PTRACE, unix.PTRACE_DETACH, uintptr(p.Pid), 1, uintptr(sig), 0, 0)
		if errno != 0 {
			return errno
		}
		return nil
	})
	p.log.Debugf("ptrace detach, sig: %d, err: %v", sig, err)
	return err
}

// Kill sends SIGKILL to the tracee.
func (p *Process) Kill() error {
	err := unix.Kill(p.Pid, unix.SIGKILL)
	p.log.Debugf("kill, err: %v", err)
	return err
}

// PeekWord reads one machine word at addr.
func (p *Process) PeekWord(addr uintptr) (uint64, error) {
	buf := make([]byte, WordSize)
	var n int
	err := p.execPtrace(func() error {
		var err error
		// 不能依赖返回的数据判断是否出错，peek的结果可能恰好是-1
		n, err = unix.PtracePeekData(p.Pid, addr, buf)
		return err
	})
	if err == nil && n != WordSize {
		err = fmt.Errorf("short read, %d bytes", n)
	}
	if err != nil {
		return 0, &MemoryAccessError{Op: "peek", Addr: addr, Err: err}
	}
	return getWord(buf), nil
}

// PokeWord writes one machine word at addr.
func (p *Process) PokeWord(addr uintptr, word uint64) error {
	buf := make([]byte, WordSize)
	putWord(buf, word)

	var n int
	err := p.execPtrace(func() error {
		var err error
		n, err = unix.PtracePokeData(p.Pid, addr, buf)
		return err
	})
	if err == nil && n != WordSize {
		err = fmt.Errorf("short write, %d bytes", n)
	}
	if err != nil {
		return &MemoryAccessError{Op: "poke", Addr: addr, Err: err}
	}
	return nil
}

// PeekInto fills buf with the memory starting at addr.
func (p *Process) PeekInto(addr uintptr, buf []byte) error {
	return peekInto(p, addr, buf)
}

// EntryPoint returns the program entry address from the aux vector.
func (p *Process) EntryPoint() (uint64, error) {
	return readAuxEntry(p.Pid)
}

// Symbols returns the symbol table of the traced binary.
func (p *Process) Symbols() *symbol.Table {
	return p.symbols
}

// SetSymbols attaches the symbol table loaded from p.Path.
func (p *Process) SetSymbols(t *symbol.Table) {
	p.symbols = t
}

func (p *Process) String() string {
	n := 0
	if p.symbols != nil {
		n = p.symbols.Len()
	}
	return fmt.Sprintf("File path: %q, PID: %d, Creation mode: %s, Symbol table: %d symbols loaded.",
		p.Path, p.Pid, p.Kind, n)
}

func desc(status unix.WaitStatus) string {
	switch {
	case status.Exited():
		return "exited: " + strconv.Itoa(status.ExitStatus())
	case status.Signaled():
		return "signaled: " + status.Signal().String()
	case status.Stopped():
		if status.StopSignal() == unix.SIGTRAP|0x80 {
			return "stopped: syscall"
		}
		return "stopped: " + status.StopSignal().String()
	case status.Continued():
		return "continued"
	default:
		return strconv.Itoa(int(status))
	}
}
