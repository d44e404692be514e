// Package symtab implements the assembler's and linker's shared symbol
// table: label bookkeeping across both assembly passes, linking, and the
// .sym sidecar codec.
package symtab

import "fmt"

// Status classifies how a symbol crosses image boundaries.
type Status int

const (
	Private Status = iota
	Export
	Import
)

func (s Status) String() string {
	switch s {
	case Private:
		return "private"
	case Export:
		return "export"
	case Import:
		return "import"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Symbol is one label: its relative and absolute addresses, the source
// line that defines it, how many words it owns, and its cross-image
// status.
type Symbol struct {
	Name      string
	RelAddr   uint16
	AbsAddr   uint16
	DefLine   int
	SizeWords int // >= 1; grows for .STRINGZ and .BLKW
	Status    Status
}

// Table manages symbols during assembly, in declaration order (the order
// AdjustSymbols and linking depend on).
type Table struct {
	CaseSensitive bool
	order         []string
	byName        map[string]*Symbol
}

// New creates an empty symbol table.
func New(caseSensitive bool) *Table {
	return &Table{
		CaseSensitive: caseSensitive,
		byName:        make(map[string]*Symbol),
	}
}

func (t *Table) key(name string) string {
	if t.CaseSensitive {
		return name
	}
	return normalizeCase(name)
}

func normalizeCase(name string) string {
	out := make([]byte, len(name))
	for i := 0; i < len(name); i++ {
		c := name[i]
		if c >= 'a' && c <= 'z' {
			c -= 'a' - 'A'
		}
		out[i] = c
	}
	return string(out)
}

// Define adds a new symbol at the given relative address and definition
// line. Returns an error (including the prior definition's line) if the
// name is already taken.
func (t *Table) Define(name string, relAddr uint16, defLine int) error {
	k := t.key(name)
	if existing, ok := t.byName[k]; ok {
		return fmt.Errorf("duplicate label %q: first defined at line %d, redefined at line %d",
			name, existing.DefLine, defLine)
	}
	sym := &Symbol{Name: name, RelAddr: relAddr, DefLine: defLine, SizeWords: 1, Status: Private}
	t.byName[k] = sym
	t.order = append(t.order, k)
	return nil
}

// Lookup finds a symbol by name, honoring the table's case sensitivity.
func (t *Table) Lookup(name string) (*Symbol, bool) {
	sym, ok := t.byName[t.key(name)]
	return sym, ok
}

// Grow increases a symbol's size-in-words by delta (used by .STRINGZ and
// .BLKW, which reserve more than one word).
func (t *Table) Grow(name string, delta int) error {
	sym, ok := t.Lookup(name)
	if !ok {
		return fmt.Errorf("cannot grow undefined symbol %q", name)
	}
	sym.SizeWords += delta
	return nil
}

// SetStatus marks a symbol Export or Import.
func (t *Table) SetStatus(name string, status Status) error {
	sym, ok := t.Lookup(name)
	if !ok {
		return fmt.Errorf("cannot set status of undefined symbol %q", name)
	}
	sym.Status = status
	return nil
}

// InOrder returns every symbol in declaration order, the order
// AdjustSymbols and the .sym codec both rely on.
func (t *Table) InOrder() []*Symbol {
	out := make([]*Symbol, len(t.order))
	for i, k := range t.order {
		out[i] = t.byName[k]
	}
	return out
}

// SetAddress overwrites a symbol's relative address directly, for callers
// that compute a line's final (already-shifted) address themselves instead
// of relying on AdjustSymbols's declaration-order growth walk.
func (t *Table) SetAddress(name string, relAddr uint16) error {
	sym, ok := t.Lookup(name)
	if !ok {
		return fmt.Errorf("cannot set address of undefined symbol %q", name)
	}
	sym.RelAddr = relAddr
	return nil
}

// StampAbsAddr computes AbsAddr = origin + RelAddr for every symbol,
// without altering RelAddr. Use this when RelAddr has already been
// finalized (e.g. via SetAddress); use AdjustSymbols instead when RelAddr
// still needs the declaration-order growth shift applied.
func (t *Table) StampAbsAddr(origin uint16) {
	for _, k := range t.order {
		sym := t.byName[k]
		sym.AbsAddr = origin + sym.RelAddr
	}
}

// AdjustSymbols walks the symbol table in declaration order, accumulating
// each symbol's (SizeWords-1) into a running offset added to every
// subsequent symbol's relative address, then computes AbsAddr = origin +
// RelAddr. This is the step that keeps multi-word directives
// (.STRINGZ/.BLKW) from desynchronizing later labels' addresses.
func (t *Table) AdjustSymbols(origin uint16) {
	var offset uint16
	for _, k := range t.order {
		sym := t.byName[k]
		sym.RelAddr += offset
		sym.AbsAddr = origin + sym.RelAddr
		offset += uint16(sym.SizeWords - 1)
	}
}
