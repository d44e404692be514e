// Package linker resolves cross-image symbol imports against companion
// images' exported symbols, and detects address-range overlap between
// images placed into the same VM memory.
package linker

import (
	"fmt"
	"strings"

	"github.com/kjellberg/lc3toolchain/asmerr"
	"github.com/kjellberg/lc3toolchain/symtab"
)

// Companion is one already-assembled image's origin and symbol table, as
// read back from a .sym sidecar file.
type Companion struct {
	Name    string // the object file's name, for diagnostics
	Origin  uint16
	Symbols []*symtab.Symbol
}

// Range is an image's placement in the 64K address space.
type Range struct {
	Name   string
	Origin uint16
	Len    uint16
}

func foldName(s string) string {
	return strings.ToUpper(s)
}

// exporters returns every Export-status symbol across all companions whose
// name matches (case-insensitively, the cross-image default).
func exporters(name string, companions []Companion) []*symtab.Symbol {
	var out []*symtab.Symbol
	folded := foldName(name)
	for _, c := range companions {
		for _, sym := range c.Symbols {
			if sym.Status == symtab.Export && foldName(sym.Name) == folded {
				out = append(out, sym)
			}
		}
	}
	return out
}

// ResolveImports walks primary's Import-status symbols, finds each one's
// unique Export match among companions, and sets the import's relative
// address to the exporter's absolute address minus primary's origin — so
// that subsequent PC-relative encoding treats it exactly like a local
// forward reference. Call this before symtab.Table.StampAbsAddr, so the
// stamped AbsAddr comes out equal to the exporter's.
func ResolveImports(primary *symtab.Table, origin uint16, companions []Companion) *asmerr.List {
	list := &asmerr.List{}
	for _, sym := range primary.InOrder() {
		if sym.Status != symtab.Import {
			continue
		}
		matches := exporters(sym.Name, companions)
		switch len(matches) {
		case 0:
			list.Add(asmerr.New("", sym.DefLine, asmerr.KindLink, "",
				fmt.Sprintf("unresolved import %q: no matching export among linked companions", sym.Name)))
		case 1:
			relAddr := matches[0].AbsAddr - origin // wrapping difference; read back as signed
			if err := primary.SetAddress(sym.Name, relAddr); err != nil {
				list.Add(asmerr.New("", sym.DefLine, asmerr.KindLink, "", err.Error()))
			}
		default:
			list.Add(asmerr.New("", sym.DefLine, asmerr.KindLink, "",
				fmt.Sprintf("duplicate export %q: matched by %d companions", sym.Name, len(matches))))
		}
	}
	if !list.HasErrors() {
		return nil
	}
	return list
}

// CheckOverlap reports the first pair of ranges whose [origin, origin+len-1]
// intervals are not disjoint, or nil if every image's range is disjoint from
// every other's.
func CheckOverlap(ranges []Range) *asmerr.Error {
	for i := 0; i < len(ranges); i++ {
		for j := i + 1; j < len(ranges); j++ {
			a, b := ranges[i], ranges[j]
			if a.Len == 0 || b.Len == 0 {
				continue
			}
			aEnd := a.Origin + a.Len - 1
			bEnd := b.Origin + b.Len - 1
			if a.Origin <= bEnd && b.Origin <= aEnd {
				return asmerr.New("", 0, asmerr.KindLink, "",
					fmt.Sprintf("image %q [x%04X..x%04X] overlaps image %q [x%04X..x%04X]",
						a.Name, a.Origin, aEnd, b.Name, b.Origin, bEnd))
			}
		}
	}
	return nil
}
