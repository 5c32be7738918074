package target

// Memory is word granular access to the tracee's address space.
type Memory interface {
	PeekWord(addr uintptr) (uint64, error)
	PokeWord(addr uintptr, word uint64) error
}

type wordPeeker interface {
	PeekWord(addr uintptr) (uint64, error)
}

// peekInto reads len(buf) bytes at addr: whole words for the aligned part,
// then the low-order bytes of one more word for the remainder.
func peekInto(m wordPeeker, addr uintptr, buf []byte) error {
	word := make([]byte, WordSize)

	full := len(buf) / WordSize
	for i := 0; i < full; i++ {
		w, err := m.PeekWord(addr + uintptr(i*WordSize))
		if err != nil {
			return err
		}
		putWord(buf[i*WordSize:], w)
	}

	dead := len(buf) % WordSize
	if dead == 0 {
		return nil
	}
	w, err := m.PeekWord(addr + uintptr(full*WordSize))
	if err != nil {
		return err
	}
	putWord(word, w)
	copy(buf[full*WordSize:], word[:dead])
	return nil
}
