// Package disasm decodes x86 instructions into assembly text.
package disasm

import (
	"fmt"
	"strings"

	lru "github.com/hashicorp/golang-lru"
	"golang.org/x/arch/x86/x86asm"
)

// Flavor selects the assembly syntax.
type Flavor int

const (
	Intel Flavor = iota
	ATT
	GoSyntax
)

func (f Flavor) String() string {
	switch f {
	case ATT:
		return "att"
	case GoSyntax:
		return "go"
	default:
		return "intel"
	}
}

// ParseFlavor parses intel, att (or gnu) and go.
func ParseFlavor(s string) (Flavor, error) {
	switch strings.ToLower(s) {
	case "intel":
		return Intel, nil
	case "att", "gnu":
		return ATT, nil
	case "go":
		return GoSyntax, nil
	default:
		return Intel, fmt.Errorf("invalid asm syntax: %q", s)
	}
}

// Instruction is one decoded instruction.
type Instruction struct {
	Addr  uint64
	Bytes []byte // 指令编码
	Text  string
}

// Len returns the encoded length of the instruction.
func (i Instruction) Len() int {
	return len(i.Bytes)
}

type cacheKey struct {
	addr   uint64
	flavor Flavor
	code   string
}

// Decoder decodes instructions of one x86 mode (32 or 64). Results are kept
// in an LRU cache keyed by address, flavor and bytes; single stepping a loop
// decodes the same instructions over and over.
type Decoder struct {
	mode  int
	cache *lru.Cache
}

// NewDecoder creates a decoder, cacheSize <= 0 disables caching.
func NewDecoder(mode int, cacheSize int) (*Decoder, error) {
	d := &Decoder{mode: mode}
	if cacheSize > 0 {
		c, err := lru.New(cacheSize)
		if err != nil {
			return nil, err
		}
		d.cache = c
	}
	return d, nil
}

// Decode decodes the instruction at the start of code, located at addr.
// Undecodable bytes yield a one byte "(bad)" instruction so callers can
// always advance.
func (d *Decoder) Decode(addr uint64, code []byte, flavor Flavor) Instruction {
	key := cacheKey{addr: addr, flavor: flavor, code: string(code)}
	if d.cache != nil {
		if v, ok := d.cache.Get(key); ok {
			return v.(Instruction)
		}
	}

	inst := d.decode(addr, code, flavor)
	if d.cache != nil {
		d.cache.Add(key, inst)
	}
	return inst
}

func (d *Decoder) decode(addr uint64, code []byte, flavor Flavor) Instruction {
	inst, err := x86asm.Decode(code, d.mode)
	if err != nil || inst.Len == 0 {
		n := 1
		if len(code) == 0 {
			n = 0
		}
		return Instruction{Addr: addr, Bytes: append([]byte(nil), code[:n]...), Text: "(bad)"}
	}

	var text string
	switch flavor {
	case ATT:
		text = x86asm.GNUSyntax(inst, addr, nil)
	case GoSyntax:
		text = x86asm.GoSyntax(inst, addr, nil)
	default:
		text = x86asm.IntelSyntax(inst, addr, nil)
	}
	return Instruction{
		Addr:  addr,
		Bytes: append([]byte(nil), code[:inst.Len]...),
		Text:  text,
	}
}
