// Package symbol loads the name to address mapping of an ELF binary.
package symbol

import (
	"debug/elf"
	"errors"
	"fmt"
	"sort"
)

// Table maps symbol names to addresses.
type Table struct {
	syms map[string]uint64
}

// NotFoundError is returned by Lookup for unknown symbols.
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("symbol %q not found", e.Name)
}

// Analyze Analyze executable `execFile` and return its symbol table
//
// The static .symtab is used when present, stripped binaries fall back to
// .dynsym. A binary without any symbols yields an empty table.
func Analyze(execFile string) (*Table, error) {
	file, err := elf.Open(execFile)
	if err != nil {
		return nil, fmt.Errorf("open elf %s: %w", execFile, err)
	}
	defer file.Close()

	syms, err := file.Symbols()
	if errors.Is(err, elf.ErrNoSymbols) {
		syms, err = file.DynamicSymbols()
	}
	if err != nil && !errors.Is(err, elf.ErrNoSymbols) {
		return nil, fmt.Errorf("read symbols of %s: %w", execFile, err)
	}

	t := &Table{syms: make(map[string]uint64, len(syms))}
	for _, s := range syms {
		if s.Name == "" {
			continue
		}
		t.syms[s.Name] = s.Value
	}
	return t, nil
}

// NewTable builds a table from an existing mapping.
func NewTable(syms map[string]uint64) *Table {
	t := &Table{syms: make(map[string]uint64, len(syms))}
	for k, v := range syms {
		t.syms[k] = v
	}
	return t
}

// Lookup returns the address of symbol name.
func (t *Table) Lookup(name string) (uint64, error) {
	addr, ok := t.syms[name]
	if !ok {
		return 0, &NotFoundError{Name: name}
	}
	return addr, nil
}

// Names returns all symbol names, sorted.
func (t *Table) Names() []string {
	names := make([]string, 0, len(t.syms))
	for k := range t.syms {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of symbols.
func (t *Table) Len() int {
	return len(t.syms)
}
