package target

import (
	"go.uber.org/atomic"
)

var (
	bpSeqNo = atomic.NewUint64(0)
)

// Breakpoint 断点信息
//
// The original words covering the trap footprint are captured once, when the
// breakpoint is created, and are the only source used to restore memory.
type Breakpoint struct {
	ID   uint64  // 断点编号
	Addr uintptr // 断点地址

	orig      []uint64 // 原内存数据，按机器字保存
	installed bool     // 断点指令是否已写入内存
	mem       Memory
}

// NewBreakpoint 在指令地址addr处创建一个断点，并保存该地址处的原始数据
func NewBreakpoint(mem Memory, addr uintptr) (*Breakpoint, error) {
	orig := make([]uint64, trapWords)
	for i := range orig {
		w, err := mem.PeekWord(addr + uintptr(i*WordSize))
		if err != nil {
			return nil, err
		}
		orig[i] = w
	}
	return &Breakpoint{
		ID:   bpSeqNo.Add(1),
		Addr: addr,
		orig: orig,
		mem:  mem,
	}, nil
}

// Installed reports whether the trap instruction is patched into memory.
func (b *Breakpoint) Installed() bool {
	return b.installed
}

// Orig returns the original bytes covered by the trap instruction.
func (b *Breakpoint) Orig() []byte {
	buf := make([]byte, trapWords*WordSize)
	for i, w := range b.orig {
		putWord(buf[i*WordSize:], w)
	}
	return buf[:TrapLen]
}

// SetInstalled writes the trap instruction (true) or the original bytes
// (false) to memory. Bytes of the last word outside the trap footprint are
// taken from a fresh read, they may have changed since the breakpoint was
// created. The installed flag changes only after every word was written.
func (b *Breakpoint) SetInstalled(flag bool) error {
	buf := make([]byte, trapWords*WordSize)
	if flag {
		copy(buf, trapInstruction[:])
	} else {
		for i, w := range b.orig {
			putWord(buf[i*WordSize:], w)
		}
	}

	last := b.Addr + uintptr((trapWords-1)*WordSize)
	if deadBytes > 0 {
		w, err := b.mem.PeekWord(last)
		if err != nil {
			return err
		}
		cur := make([]byte, WordSize)
		putWord(cur, w)
		copy(buf[len(buf)-deadBytes:], cur[WordSize-deadBytes:])
	}

	for i := 0; i < trapWords; i++ {
		err := b.mem.PokeWord(b.Addr+uintptr(i*WordSize), getWord(buf[i*WordSize:]))
		if err != nil {
			return err
		}
	}
	b.installed = flag
	return nil
}

// Breakpoints 所有的断点信息，按地址排序
type Breakpoints []*Breakpoint

// Len 返回长度
func (b Breakpoints) Len() int {
	return len(b)
}

// Less 检查b[i]是否小于b[j]
func (b Breakpoints) Less(i, j int) bool {
	return b[i].Addr < b[j].Addr
}

// Swap 交换b[i]和b[j]
func (b Breakpoints) Swap(i, j int) {
	b[i], b[j] = b[j], b[i]
}
