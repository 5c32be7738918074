package target

const (
	// WordSize is the size of a machine word in bytes.
	WordSize = 8

	// DecodeMode is the x86asm decoding mode.
	DecodeMode = 64
)
