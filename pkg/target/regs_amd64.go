//go:build linux

package target

import (
	"fmt"
	"strings"

	"golang.org/x/sys/unix"
)

// Registers is the general purpose register set of an amd64 tracee.
type Registers struct {
	Rip, Rsp, Rbp, Eflags  uint64
	Rax, Rbx, Rcx, Rdx     uint64
	Rsi, Rdi               uint64
	R8, R9, R10, R11       uint64
	R12, R13, R14, R15     uint64
	OrigRax                uint64
	Cs, Ss, Ds, Es, Fs, Gs uint64
	FsBase, GsBase         uint64
}

func fromPtraceRegs(r *unix.PtraceRegs) Registers {
	return Registers{
		Rip: r.Rip, Rsp: r.Rsp, Rbp: r.Rbp, Eflags: r.Eflags,
		Rax: r.Rax, Rbx: r.Rbx, Rcx: r.Rcx, Rdx: r.Rdx,
		Rsi: r.Rsi, Rdi: r.Rdi,
		R8: r.R8, R9: r.R9, R10: r.R10, R11: r.R11,
		R12: r.R12, R13: r.R13, R14: r.R14, R15: r.R15,
		OrigRax: r.Orig_rax,
		Cs:      r.Cs, Ss: r.Ss, Ds: r.Ds, Es: r.Es, Fs: r.Fs, Gs: r.Gs,
		FsBase: r.Fs_base, GsBase: r.Gs_base,
	}
}

func (r *Registers) toPtraceRegs() *unix.PtraceRegs {
	return &unix.PtraceRegs{
		Rip: r.Rip, Rsp: r.Rsp, Rbp: r.Rbp, Eflags: r.Eflags,
		Rax: r.Rax, Rbx: r.Rbx, Rcx: r.Rcx, Rdx: r.Rdx,
		Rsi: r.Rsi, Rdi: r.Rdi,
		R8: r.R8, R9: r.R9, R10: r.R10, R11: r.R11,
		R12: r.R12, R13: r.R13, R14: r.R14, R15: r.R15,
		Orig_rax: r.OrigRax,
		Cs:       r.Cs, Ss: r.Ss, Ds: r.Ds, Es: r.Es, Fs: r.Fs, Gs: r.Gs,
		Fs_base: r.FsBase, Gs_base: r.GsBase,
	}
}

// PC returns the instruction pointer.
func (r Registers) PC() uint64 { return r.Rip }

// SetPC sets the instruction pointer.
func (r *Registers) SetPC(pc uint64) { r.Rip = pc }

// SP returns the stack pointer.
func (r Registers) SP() uint64 { return r.Rsp }

// BP returns the frame base pointer.
func (r Registers) BP() uint64 { return r.Rbp }

// Ret returns the syscall return value register.
func (r Registers) Ret() uint64 { return r.Rax }

// SetRet sets the syscall return value register.
func (r *Registers) SetRet(v uint64) { r.Rax = v }

// SyscallNum returns the number of the syscall the tracee is stopped in.
func (r Registers) SyscallNum() uint64 { return r.OrigRax }

// SyscallArgs returns the syscall arguments in kernel calling order.
func (r Registers) SyscallArgs() []uint64 {
	return []uint64{r.Rdi, r.Rsi, r.Rdx, r.R10, r.R8, r.R9}
}

// Names returns the register names accepted by Get and Set, in display order.
func (r Registers) Names() []string {
	return []string{
		"rip", "flg", "rsp", "rbp", "rax", "rbx", "rcx", "rdx", "rsi", "rdi",
		"r8", "r9", "r10", "r11", "r12", "r13", "r14", "r15",
	}
}

func (r *Registers) fields() map[string]*uint64 {
	return map[string]*uint64{
		"rip": &r.Rip, "flg": &r.Eflags, "rsp": &r.Rsp, "rbp": &r.Rbp,
		"rax": &r.Rax, "rbx": &r.Rbx, "rcx": &r.Rcx, "rdx": &r.Rdx,
		"rsi": &r.Rsi, "rdi": &r.Rdi,
		"r8": &r.R8, "r9": &r.R9, "r10": &r.R10, "r11": &r.R11,
		"r12": &r.R12, "r13": &r.R13, "r14": &r.R14, "r15": &r.R15,
	}
}

// Get returns the value of the named register, names are case-insensitive.
func (r Registers) Get(name string) (uint64, bool) {
	p, ok := r.fields()[strings.ToLower(name)]
	if !ok {
		return 0, false
	}
	return *p, true
}

// Set changes the value of the named register in the snapshot.
func (r *Registers) Set(name string, v uint64) error {
	p, ok := r.fields()[strings.ToLower(name)]
	if !ok {
		return fmt.Errorf("unknown register: %q", name)
	}
	*p = v
	return nil
}
