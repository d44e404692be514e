package isa

import (
	"fmt"
	"strings"
)

// disasmOrder is built once; Disassemble is called per traced instruction
// and must not rebuild the per-opcode candidate lists every time.
var disasmOrder = DisassemblyOrder()

// Disassemble renders word w as a mnemonic plus operand list, picking the
// most specific variant for w's opcode. PC-relative label operands are
// rendered as signed immediate offsets, since the symbol names are gone by
// the time a word sits in memory; re-encoding such an operand as an
// immediate of the same value yields the original word. Returns false when
// no definition matches (RTI and the reserved opcode).
func Disassemble(w uint16) (string, bool) {
	defs, ok := disasmOrder[(w>>12)&0xF]
	if !ok {
		return "", false
	}
	d, ok := ResolveVariant(w, defs)
	if !ok {
		return "", false
	}

	var parts []string
	for _, op := range d.Operands {
		switch op.Kind {
		case OpRegister, OpRegisterMultiMapped:
			parts = append(parts, fmt.Sprintf("R%d", (w>>uint(op.LowBit))&0x7))
		case OpBits:
			parts = append(parts, fmt.Sprintf("#%d", signedField(w, op.LowBit, op.Width)))
		case OpLabel:
			parts = append(parts, fmt.Sprintf("#%d", signedField(w, 0, op.LabelWidth)))
		case OpRegisterOrImm5:
			if w&(1<<5) != 0 {
				parts = append(parts, fmt.Sprintf("#%d", signedField(w, 0, 5)))
			} else {
				parts = append(parts, fmt.Sprintf("R%d", w&0x7))
			}
		}
	}
	if len(parts) == 0 {
		return d.Mnemonic, true
	}
	return d.Mnemonic + " " + strings.Join(parts, ", "), true
}

// signedField extracts a width-bit field at lowBit and interprets it as
// two's complement.
func signedField(w uint16, lowBit, width int) int {
	field := (w >> uint(lowBit)) & ((1 << uint(width)) - 1)
	if field&(1<<uint(width-1)) != 0 {
		return int(field) - (1 << uint(width))
	}
	return int(field)
}
