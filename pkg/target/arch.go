package target

import "encoding/binary"

// Trap instruction table, int3 on both x86 flavours. The table is read-only,
// callers get copies via TrapInstruction.
var trapInstruction = [...]byte{0xCC}

const (
	// TrapLen is the length in bytes of the trap instruction.
	TrapLen = len(trapInstruction)

	// MaxInstructionBytes is the longest x86 instruction encoding.
	MaxInstructionBytes = 15

	// trapWords 覆盖断点指令所需的机器字数
	trapWords = (TrapLen-1)/WordSize + 1

	// deadBytes 最后一个机器字中不属于断点指令的字节数
	deadBytes = trapWords*WordSize - TrapLen
)

// TrapInstruction returns the trap bytes of this architecture.
func TrapInstruction() []byte {
	b := make([]byte, TrapLen)
	copy(b, trapInstruction[:])
	return b
}

// putWord encodes w into b[:WordSize] in target byte order.
func putWord(b []byte, w uint64) {
	if WordSize == 4 {
		binary.LittleEndian.PutUint32(b, uint32(w))
		return
	}
	binary.LittleEndian.PutUint64(b, w)
}

// getWord decodes b[:WordSize] in target byte order.
func getWord(b []byte) uint64 {
	if WordSize == 4 {
		return uint64(binary.LittleEndian.Uint32(b))
	}
	return binary.LittleEndian.Uint64(b)
}
