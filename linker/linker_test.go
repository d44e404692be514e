package linker_test

import (
	"testing"

	"github.com/kjellberg/lc3toolchain/linker"
	"github.com/kjellberg/lc3toolchain/symtab"
)

func TestResolveImports(t *testing.T) {
	// Primary imports PRINT; companion exports PRINT at 0x4100.
	primary := symtab.New(false)
	if err := primary.Define("PRINT", 3, 4); err != nil {
		t.Fatal(err)
	}
	if err := primary.SetStatus("PRINT", symtab.Import); err != nil {
		t.Fatal(err)
	}

	companion := linker.Companion{
		Name:   "service.obj",
		Origin: 0x4100,
		Symbols: []*symtab.Symbol{
			{Name: "PRINT", RelAddr: 0, AbsAddr: 0x4100, Status: symtab.Export},
		},
	}

	if errs := linker.ResolveImports(primary, 0x3000, []linker.Companion{companion}); errs != nil {
		t.Fatalf("unexpected resolution errors: %v", errs)
	}

	primary.StampAbsAddr(0x3000)
	sym, _ := primary.Lookup("PRINT")
	if sym.AbsAddr != 0x4100 {
		t.Errorf("AbsAddr = 0x%04X, want 0x4100", sym.AbsAddr)
	}
}

func TestResolveImportsUnresolved(t *testing.T) {
	primary := symtab.New(false)
	_ = primary.Define("MISSING", 0, 1)
	_ = primary.SetStatus("MISSING", symtab.Import)

	errs := linker.ResolveImports(primary, 0x3000, nil)
	if errs == nil || !errs.HasErrors() {
		t.Fatal("expected unresolved-import error")
	}
}

func TestResolveImportsDuplicateExport(t *testing.T) {
	primary := symtab.New(false)
	_ = primary.Define("X", 0, 1)
	_ = primary.SetStatus("X", symtab.Import)

	companions := []linker.Companion{
		{Name: "a.obj", Symbols: []*symtab.Symbol{{Name: "X", Status: symtab.Export}}},
		{Name: "b.obj", Symbols: []*symtab.Symbol{{Name: "X", Status: symtab.Export}}},
	}
	errs := linker.ResolveImports(primary, 0x3000, companions)
	if errs == nil || !errs.HasErrors() {
		t.Fatal("expected duplicate-export error")
	}
}

func TestCheckOverlap(t *testing.T) {
	// Origins 0x3000 (len 4) and 0x3002 (len 1) overlap.
	ranges := []linker.Range{
		{Name: "a.obj", Origin: 0x3000, Len: 4},
		{Name: "b.obj", Origin: 0x3002, Len: 1},
	}
	if err := linker.CheckOverlap(ranges); err == nil {
		t.Fatal("expected overlap error")
	}
}

func TestCheckOverlapDisjoint(t *testing.T) {
	ranges := []linker.Range{
		{Name: "a.obj", Origin: 0x3000, Len: 4},
		{Name: "b.obj", Origin: 0x4100, Len: 10},
	}
	if err := linker.CheckOverlap(ranges); err != nil {
		t.Fatalf("unexpected overlap: %v", err)
	}
}
