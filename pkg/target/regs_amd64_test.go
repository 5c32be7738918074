//go:build linux

package target

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestRegisters_ptraceConversion(t *testing.T) {
	in := unix.PtraceRegs{Rip: 0x401000, Rsp: 0x7ffe0000, Orig_rax: 201, Rdi: 1, R10: 4, Eflags: 0x246}

	regs := fromPtraceRegs(&in)
	assert.Equal(t, uint64(0x401000), regs.PC())
	assert.Equal(t, uint64(0x7ffe0000), regs.SP())
	assert.Equal(t, uint64(201), regs.SyscallNum())
	assert.Equal(t, []uint64{1, 0, 0, 4, 0, 0}, regs.SyscallArgs())
	assert.Equal(t, in, *regs.toPtraceRegs())
}

func TestRegisters_getSet(t *testing.T) {
	var regs Registers

	require.NoError(t, regs.Set("RAX", 0x10))
	require.NoError(t, regs.Set("flg", 0x202))
	v, ok := regs.Get("rax")
	assert.True(t, ok)
	assert.Equal(t, uint64(0x10), v)
	assert.Equal(t, uint64(0x202), regs.Eflags)

	_, ok = regs.Get("xmm0")
	assert.False(t, ok)
	assert.Error(t, regs.Set("xmm0", 1))

	regs.SetPC(0x1234)
	regs.SetRet(7)
	assert.Equal(t, uint64(0x1234), regs.Rip)
	assert.Equal(t, uint64(7), regs.Ret())

	for _, name := range regs.Names() {
		_, ok := regs.Get(name)
		assert.True(t, ok, name)
	}
}
