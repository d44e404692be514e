// Package isa holds the canonical LC-3 mnemonic-to-encoding table. It is the
// single source of truth both the assembler's encoder and the disassembler
// (Disassemble) consult.
package isa

// OperandKind identifies the shape of one operand slot in an instruction's
// schema.
type OperandKind int

const (
	// OpRegister is a plain register operand placed at a single field.
	OpRegister OperandKind = iota
	// OpRegisterMultiMapped places the same register value at two fields
	// (e.g. a stack macro that both reads and writes SP).
	OpRegisterMultiMapped
	// OpBits is an n-bit immediate, sign-encoded via two's complement.
	OpBits
	// OpLabel is a PC-relative label, encoded as a signed 9- or 11-bit
	// field depending on the opcode.
	OpLabel
	// OpRegisterOrImm5 selects register vs. immediate encoding via bit 5,
	// as ADD/AND do.
	OpRegisterOrImm5
)

// Operand describes one operand slot of an instruction definition.
type Operand struct {
	Kind OperandKind
	// LowBit is the field's least-significant bit position for
	// OpRegister/OpBits/OpRegisterOrImm5.
	LowBit int
	// LowBit2 is the second field position for OpRegisterMultiMapped.
	LowBit2 int
	// Width is the field width in bits for OpBits.
	Width int
	// LabelWidth is 9 or 11 for OpLabel.
	LabelWidth int
}

// Def is one instruction (or synthetic macro) definition.
type Def struct {
	Mnemonic  string
	Opcode    uint16 // top nibble, bits 15..12
	Required  uint16 // bits that must be set for this variant
	Forbidden uint16 // bits that must be clear to distinguish from related variants
	Operands  []Operand
}

// Word composes required bits, the opcode nibble, and a pre-encoded operand
// payload into a 16-bit instruction word. Callers are expected to have
// already validated and shifted operand values into payload.
func (d Def) Word(payload uint16) uint16 {
	return (d.Opcode << 12) | d.Required | payload
}

// Matches reports whether word w is a valid encoding of definition d: every
// required bit is set, every forbidden bit is clear, and any multi-mapped
// register operand carries the same value at both of its fields.
func (d Def) Matches(w uint16) bool {
	if (w&d.Required) != d.Required || (w&d.Forbidden) != 0 {
		return false
	}
	for _, op := range d.Operands {
		if op.Kind == OpRegisterMultiMapped {
			if (w>>uint(op.LowBit))&0x7 != (w>>uint(op.LowBit2))&0x7 {
				return false
			}
		}
	}
	return true
}

// Condition-code bits within a BR instruction, bits 11..9.
const (
	CondN uint16 = 1 << 11
	CondZ uint16 = 1 << 10
	CondP uint16 = 1 << 9
)

// Trap vectors for the synthetic convenience mnemonics.
const (
	TrapGetc = 0x20
	TrapOut  = 0x21
	TrapPuts = 0x22
	TrapIn   = 0x23
	TrapHalt = 0x25
)

// Table is the canonical mnemonic -> definition map. Mnemonic lookup is
// case-insensitive; callers must upcase before indexing (the lexer already
// does this for TokenInstruction).
var Table = buildTable()

func buildTable() map[string]Def {
	t := make(map[string]Def)

	add := func(d Def) { t[d.Mnemonic] = d }

	// ADD/AND: three-operand Rd, Rs, (Rt | imm5); mode bit 5 selects.
	add(Def{
		Mnemonic: "ADD", Opcode: 0x1,
		Operands: []Operand{
			{Kind: OpRegister, LowBit: 9},       // Rd
			{Kind: OpRegister, LowBit: 6},       // Rs
			{Kind: OpRegisterOrImm5, LowBit: 0}, // Rt or imm5
		},
	})
	add(Def{
		Mnemonic: "AND", Opcode: 0x5,
		Operands: []Operand{
			{Kind: OpRegister, LowBit: 9},
			{Kind: OpRegister, LowBit: 6},
			{Kind: OpRegisterOrImm5, LowBit: 0},
		},
	})

	// NOT: Rd, Rs; required bits 0..5 = 0b111111.
	add(Def{
		Mnemonic: "NOT", Opcode: 0x9, Required: 0x3F,
		Operands: []Operand{
			{Kind: OpRegister, LowBit: 9},
			{Kind: OpRegister, LowBit: 6},
		},
	})

	// BR variants: condition mask in bits 11..9, 9-bit PC-relative offset.
	brVariant := func(mnemonic string, mask uint16) {
		add(Def{
			Mnemonic: mnemonic, Opcode: 0x0, Required: mask,
			Operands: []Operand{{Kind: OpLabel, LabelWidth: 9}},
		})
	}
	brVariant("BRN", CondN)
	brVariant("BRZ", CondZ)
	brVariant("BRP", CondP)
	brVariant("BRNZ", CondN|CondZ)
	brVariant("BRNP", CondN|CondP)
	brVariant("BRZP", CondZ|CondP)
	brVariant("BRNZP", CondN|CondZ|CondP)
	brVariant("BR", CondN|CondZ|CondP)

	// RET (synthetic JMP R7) must precede JMP so the specific match wins.
	add(Def{
		Mnemonic: "RET", Opcode: 0xC, Required: 0x1C0, // baseR = R7 (111) at bits 6..8
	})
	add(Def{
		Mnemonic: "JMP", Opcode: 0xC,
		Operands: []Operand{{Kind: OpRegister, LowBit: 6}},
	})

	// JSR label (bit 11 set, 11-bit PC-relative); JSRR Rb (bit 11 clear).
	add(Def{
		Mnemonic: "JSR", Opcode: 0x4, Required: 1 << 11,
		Operands: []Operand{{Kind: OpLabel, LabelWidth: 11}},
	})
	add(Def{
		Mnemonic: "JSRR", Opcode: 0x4, Forbidden: 1 << 11,
		Operands: []Operand{{Kind: OpRegister, LowBit: 6}},
	})

	// LD, LDI, LEA, ST, STI: register + 9-bit PC-relative label.
	memLabel := func(mnemonic string, opcode uint16) {
		add(Def{
			Mnemonic: mnemonic, Opcode: opcode,
			Operands: []Operand{
				{Kind: OpRegister, LowBit: 9},
				{Kind: OpLabel, LabelWidth: 9},
			},
		})
	}
	memLabel("LD", 0x2)
	memLabel("LDI", 0xA)
	memLabel("LEA", 0xE)
	memLabel("ST", 0x3)
	memLabel("STI", 0xB)

	// LDR, STR: register + base register + 6-bit signed offset.
	memBase := func(mnemonic string, opcode uint16) {
		add(Def{
			Mnemonic: mnemonic, Opcode: opcode,
			Operands: []Operand{
				{Kind: OpRegister, LowBit: 9},
				{Kind: OpRegister, LowBit: 6},
				{Kind: OpBits, LowBit: 0, Width: 6},
			},
		})
	}
	memBase("LDR", 0x6)
	memBase("STR", 0x7)

	// TRAP x: 8-bit trap vector.
	add(Def{
		Mnemonic: "TRAP", Opcode: 0xF,
		Operands: []Operand{{Kind: OpBits, LowBit: 0, Width: 8}},
	})

	// Synthetic convenience forms mapping to fixed trap vectors. The
	// forbidden mask pins the whole low-12-bit field so TRAP words with a
	// different vector never resolve to an alias.
	trapAlias := func(mnemonic string, vector uint16) {
		add(Def{Mnemonic: mnemonic, Opcode: 0xF, Required: vector, Forbidden: 0x0FFF &^ vector})
	}
	trapAlias("GETC", TrapGetc)
	trapAlias("OUT", TrapOut)
	trapAlias("PUTS", TrapPuts)
	trapAlias("IN", TrapIn)
	trapAlias("HALT", TrapHalt)

	// Stack-style macros: each pre-fills enough of the required-bit mask
	// that the remaining operand(s) alone determine a single encoded
	// word; none of these expand to more than one instruction. R6 is the
	// conventional stack pointer register for these macros.
	const (
		immModeBit = 1 << 5
		spReg      = 6
	)
	add(Def{
		// STR Rd, R6, #0 — store to the current stack-top address.
		Mnemonic: "PUSH!", Opcode: 0x7, Required: uint16(spReg) << 6, Forbidden: 0x3F | (^uint16(spReg)&0x7)<<6,
		Operands: []Operand{{Kind: OpRegister, LowBit: 9}},
	})
	add(Def{
		// LDR Rd, R6, #0 — load from the current stack-top address.
		Mnemonic: "POP!", Opcode: 0x6, Required: uint16(spReg) << 6, Forbidden: 0x3F | (^uint16(spReg)&0x7)<<6,
		Operands: []Operand{{Kind: OpRegister, LowBit: 9}},
	})
	add(Def{
		// AND Rd, Rd, #0 — clear a register and set CC to Z.
		Mnemonic: "ZERO!", Opcode: 0x5, Required: immModeBit, Forbidden: 0x1F,
		Operands: []Operand{{Kind: OpRegisterMultiMapped, LowBit: 9, LowBit2: 6}},
	})
	add(Def{
		// ADD Rd, Rs, #0 — register-to-register copy, updates CC.
		Mnemonic: "COPY!", Opcode: 0x1, Required: immModeBit, Forbidden: 0x1F,
		Operands: []Operand{
			{Kind: OpRegister, LowBit: 9},
			{Kind: OpRegister, LowBit: 6},
		},
	})
	add(Def{
		// ADD R6, R6, #1 — increment the stack pointer.
		Mnemonic: "SP++", Opcode: 0x1,
		Required:  immModeBit | (uint16(spReg) << 9) | (uint16(spReg) << 6) | 1,
		Forbidden: 0x1E | (^uint16(spReg)&0x7)<<9 | (^uint16(spReg)&0x7)<<6,
	})
	add(Def{
		// ADD R6, R6, #-1 — decrement the stack pointer.
		Mnemonic: "SP--", Opcode: 0x1,
		Required:  immModeBit | (uint16(spReg) << 9) | (uint16(spReg) << 6) | 0x1F,
		Forbidden: (^uint16(spReg)&0x7)<<9 | (^uint16(spReg)&0x7)<<6,
	})
	add(Def{
		// ADD Rd, Rd, #0 — re-evaluate CC from Rd without changing it.
		Mnemonic: "SET_COND!", Opcode: 0x1, Required: immModeBit, Forbidden: 0x1F,
		Operands: []Operand{{Kind: OpRegisterMultiMapped, LowBit: 9, LowBit2: 6}},
	})

	return t
}

// Lookup finds the definition for a case-folded mnemonic.
func Lookup(mnemonic string) (Def, bool) {
	d, ok := Table[mnemonic]
	return d, ok
}

// ApplyTrapVectorOverrides rewrites the Required vector of the named
// synthetic trap aliases (GETC/OUT/PUTS/IN/HALT), letting config.Config's
// trap_vectors table retarget them away from their built-in defaults.
// Unknown mnemonics are ignored; TRAP itself (the general 8-bit-operand
// form) is never touched.
func ApplyTrapVectorOverrides(overrides map[string]uint8) {
	for mnemonic, vector := range overrides {
		d, ok := Table[mnemonic]
		if !ok || mnemonic == "TRAP" {
			continue
		}
		d.Required = uint16(vector)
		d.Forbidden = 0x0FFF &^ uint16(vector)
		Table[mnemonic] = d
	}
	// The disassembly candidate lists hold Def copies; rebuild them so an
	// overridden vector resolves to its alias rather than plain TRAP.
	disasmOrder = DisassemblyOrder()
}

// ResolveVariant returns the most specific definition among all entries
// sharing word w's opcode: the unique match whose required bits are all
// set and forbidden bits all clear. Candidates must be supplied in
// most-specific-first order (synthetic macros and RET before their
// general forms) since ties are resolved by listing order.
func ResolveVariant(w uint16, candidates []Def) (Def, bool) {
	for _, d := range candidates {
		if d.Matches(w) {
			return d, true
		}
	}
	return Def{}, false
}

// DisassemblyOrder lists, per opcode nibble, every definition sharing that
// opcode with the most specific variants first — synthetic macros and RET
// ahead of their general JMP/ADD/AND/STR/LDR forms — so ResolveVariant picks
// the most informative mnemonic during disassembly.
func DisassemblyOrder() map[uint16][]Def {
	order := map[uint16][]string{
		0x0: {"BRNZP", "BRNZ", "BRNP", "BRZP", "BRN", "BRZ", "BRP", "BR"},
		0x1: {"SP++", "SP--", "SET_COND!", "COPY!", "ADD"},
		0x2: {"LD"},
		0x3: {"ST"},
		0x4: {"JSR", "JSRR"},
		0x5: {"ZERO!", "AND"},
		0x6: {"POP!", "LDR"},
		0x7: {"PUSH!", "STR"},
		0x9: {"NOT"},
		0xA: {"LDI"},
		0xB: {"STI"},
		0xC: {"RET", "JMP"},
		0xE: {"LEA"},
		0xF: {"GETC", "OUT", "PUTS", "IN", "HALT", "TRAP"},
	}
	result := make(map[uint16][]Def, len(order))
	for opcode, names := range order {
		defs := make([]Def, 0, len(names))
		for _, name := range names {
			if d, ok := Table[name]; ok {
				defs = append(defs, d)
			}
		}
		result[opcode] = defs
	}
	return result
}
