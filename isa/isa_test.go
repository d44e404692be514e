package isa_test

import (
	"testing"

	"github.com/kjellberg/lc3toolchain/isa"
)

func TestRequiredForbiddenInvariant(t *testing.T) {
	// A word built purely from a definition's required bits must satisfy
	// Matches, and the required and forbidden masks must never overlap.
	for name, d := range isa.Table {
		w := d.Required
		if !d.Matches(w) {
			t.Errorf("%s: required-bits word 0x%04X does not match its own definition", name, w)
		}
		if w&d.Forbidden != 0 {
			t.Errorf("%s: required and forbidden bits overlap", name)
		}
	}
}

func TestNotRequiredBits(t *testing.T) {
	d, ok := isa.Lookup("NOT")
	if !ok {
		t.Fatal("NOT not found")
	}
	if d.Required != 0x3F {
		t.Errorf("NOT required = 0x%04X, want 0x003F", d.Required)
	}
}

func TestRetPrecedesJmp(t *testing.T) {
	order := isa.DisassemblyOrder()
	defs := order[0xC]
	if len(defs) < 2 || defs[0].Mnemonic != "RET" || defs[1].Mnemonic != "JMP" {
		t.Fatalf("expected RET before JMP in disassembly order, got %v", names(defs))
	}
	// RET is JMP R7: required baseR field (bits 6-8) = 111.
	retWord := uint16(0xC000) | defs[0].Required
	resolved, ok := isa.ResolveVariant(retWord, defs)
	if !ok || resolved.Mnemonic != "RET" {
		t.Errorf("JMP R7 word should resolve to RET, got %+v", resolved)
	}
}

func TestTrapAliasesPrecedeGeneralTrap(t *testing.T) {
	order := isa.DisassemblyOrder()
	defs := order[0xF]
	haltWord := uint16(0xF000) | isa.TrapHalt
	resolved, ok := isa.ResolveVariant(haltWord, defs)
	if !ok || resolved.Mnemonic != "HALT" {
		t.Errorf("trap vector 0x25 should resolve to HALT, got %+v", resolved)
	}
}

func TestApplyTrapVectorOverridesRetargetsAlias(t *testing.T) {
	d, ok := isa.Lookup("OUT")
	if !ok {
		t.Fatal("OUT not found")
	}
	original := d.Required

	isa.ApplyTrapVectorOverrides(map[string]uint8{"OUT": 0x30})
	defer isa.ApplyTrapVectorOverrides(map[string]uint8{"OUT": uint8(original)}) // restore for other tests

	d, ok = isa.Lookup("OUT")
	if !ok || d.Required != 0x30 {
		t.Errorf("OUT required = 0x%04X, want 0x0030", d.Required)
	}
}

func TestApplyTrapVectorOverridesIgnoresGeneralTrapAndUnknownMnemonics(t *testing.T) {
	before, _ := isa.Lookup("TRAP")
	isa.ApplyTrapVectorOverrides(map[string]uint8{"TRAP": 0x99, "NOSUCH": 0x01})
	after, _ := isa.Lookup("TRAP")
	if after.Required != before.Required {
		t.Errorf("TRAP's Required should be untouched by overrides, got 0x%04X", after.Required)
	}
	if _, ok := isa.Lookup("NOSUCH"); ok {
		t.Error("unknown mnemonic should not be inserted into the table")
	}
}

func names(defs []isa.Def) []string {
	out := make([]string, len(defs))
	for i, d := range defs {
		out[i] = d.Mnemonic
	}
	return out
}
