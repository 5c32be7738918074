package target

const (
	// WordSize is the size of a machine word in bytes.
	WordSize = 4

	// DecodeMode is the x86asm decoding mode.
	DecodeMode = 32
)
