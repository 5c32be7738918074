//go:build linux

package target

import (
	"fmt"
	"strings"

	"golang.org/x/sys/unix"
)

// Registers is the general purpose register set of a 386 tracee.
type Registers struct {
	Eip, Esp, Ebp, Eflags       uint32
	Eax, Ebx, Ecx, Edx          uint32
	Esi, Edi                    uint32
	OrigEax                     uint32
	Xcs, Xss, Xds, Xes, Xfs, Xgs uint32
}

func fromPtraceRegs(r *unix.PtraceRegs) Registers {
	return Registers{
		Eip: uint32(r.Eip), Esp: uint32(r.Esp), Ebp: uint32(r.Ebp), Eflags: uint32(r.Eflags),
		Eax: uint32(r.Eax), Ebx: uint32(r.Ebx), Ecx: uint32(r.Ecx), Edx: uint32(r.Edx),
		Esi: uint32(r.Esi), Edi: uint32(r.Edi),
		OrigEax: uint32(r.Orig_eax),
		Xcs:     uint32(r.Xcs), Xss: uint32(r.Xss), Xds: uint32(r.Xds),
		Xes: uint32(r.Xes), Xfs: uint32(r.Xfs), Xgs: uint32(r.Xgs),
	}
}

func (r *Registers) toPtraceRegs() *unix.PtraceRegs {
	return &unix.PtraceRegs{
		Eip: int32(r.Eip), Esp: int32(r.Esp), Ebp: int32(r.Ebp), Eflags: int32(r.Eflags),
		Eax: int32(r.Eax), Ebx: int32(r.Ebx), Ecx: int32(r.Ecx), Edx: int32(r.Edx),
		Esi: int32(r.Esi), Edi: int32(r.Edi),
		Orig_eax: int32(r.OrigEax),
		Xcs:      int32(r.Xcs), Xss: int32(r.Xss), Xds: int32(r.Xds),
		Xes: int32(r.Xes), Xfs: int32(r.Xfs), Xgs: int32(r.Xgs),
	}
}

// PC returns the instruction pointer.
func (r Registers) PC() uint64 { return uint64(r.Eip) }

// SetPC sets the instruction pointer.
func (r *Registers) SetPC(pc uint64) { r.Eip = uint32(pc) }

// SP returns the stack pointer.
func (r Registers) SP() uint64 { return uint64(r.Esp) }

// BP returns the frame base pointer.
func (r Registers) BP() uint64 { return uint64(r.Ebp) }

// Ret returns the syscall return value register.
func (r Registers) Ret() uint64 { return uint64(r.Eax) }

// SetRet sets the syscall return value register.
func (r *Registers) SetRet(v uint64) { r.Eax = uint32(v) }

// SyscallNum returns the number of the syscall the tracee is stopped in.
func (r Registers) SyscallNum() uint64 { return uint64(r.OrigEax) }

// SyscallArgs returns the syscall arguments in kernel calling order.
func (r Registers) SyscallArgs() []uint64 {
	return []uint64{
		uint64(r.Ebx), uint64(r.Ecx), uint64(r.Edx),
		uint64(r.Esi), uint64(r.Edi), uint64(r.Ebp),
	}
}

// Names returns the register names accepted by Get and Set, in display order.
func (r Registers) Names() []string {
	return []string{"eip", "flg", "esp", "ebp", "eax", "ebx", "ecx", "edx", "esi", "edi"}
}

func (r *Registers) fields() map[string]*uint32 {
	return map[string]*uint32{
		"eip": &r.Eip, "flg": &r.Eflags, "esp": &r.Esp, "ebp": &r.Ebp,
		"eax": &r.Eax, "ebx": &r.Ebx, "ecx": &r.Ecx, "edx": &r.Edx,
		"esi": &r.Esi, "edi": &r.Edi,
	}
}

// Get returns the value of the named register, names are case-insensitive.
func (r Registers) Get(name string) (uint64, bool) {
	p, ok := r.fields()[strings.ToLower(name)]
	if !ok {
		return 0, false
	}
	return uint64(*p), true
}

// Set changes the value of the named register in the snapshot.
func (r *Registers) Set(name string, v uint64) error {
	p, ok := r.fields()[strings.ToLower(name)]
	if !ok {
		return fmt.Errorf("unknown register: %q", name)
	}
	*p = uint32(v)
	return nil
}
