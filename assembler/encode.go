package assembler

import (
	"fmt"

	"github.com/kjellberg/lc3toolchain/asmerr"
	"github.com/kjellberg/lc3toolchain/bitutil"
	"github.com/kjellberg/lc3toolchain/isa"
	"github.com/kjellberg/lc3toolchain/lexer"
	"github.com/kjellberg/lc3toolchain/symtab"
)

// splitOperands validates the comma placement of an operand token list and
// returns the operand tokens with commas removed: tokens must alternate
// operand, comma, operand, ... with no leading, trailing, or doubled comma.
func splitOperands(tokens []lexer.Token) ([]lexer.Token, error) {
	var operands []lexer.Token
	expectOperand := true
	for _, tok := range tokens {
		if tok.Type == lexer.TokenComma {
			if expectOperand {
				return nil, fmt.Errorf("unexpected comma")
			}
			expectOperand = true
			continue
		}
		if !expectOperand {
			return nil, fmt.Errorf("missing comma between operands")
		}
		operands = append(operands, tok)
		expectOperand = false
	}
	if expectOperand && len(tokens) > 0 {
		return nil, fmt.Errorf("trailing comma")
	}
	return operands, nil
}

// isNumeric reports whether a token carries a NumberLiteral payload.
func isNumeric(t lexer.Token) bool {
	switch t.Type {
	case lexer.TokenDecimal, lexer.TokenHex, lexer.TokenBin:
		return true
	default:
		return false
	}
}

// fitsSigned reports whether v fits in an n-bit two's-complement field.
func fitsSigned(v int32, n int) bool {
	lo := -(int32(1) << uint(n-1))
	hi := (int32(1) << uint(n-1)) - 1
	return v >= lo && v <= hi
}

// fitsField reports whether v fits in an n-bit field read either as
// two's complement or as an unsigned magnitude (what Bits(n) operands
// accept: TRAP xFF is legal even though 255 exceeds the signed range).
func fitsField(v int32, n int) bool {
	return fitsSigned(v, n) || (v >= 0 && v < int32(1)<<uint(n))
}

// encodeInstruction composes the output word for one instruction line.
// relAddr is the line's own relative address (the *not-yet-incremented* PC
// at fetch time); Label operands are resolved against st and encoded
// relative to the incremented PC.
func encodeInstruction(def isa.Def, operandTokens []lexer.Token, relAddr uint16, st *symtab.Table) (uint16, error) {
	if len(operandTokens) != len(def.Operands) {
		return 0, fmt.Errorf("%s expects %d operand(s), got %d", def.Mnemonic, len(def.Operands), len(operandTokens))
	}

	var payload uint16
	for i, spec := range def.Operands {
		tok := operandTokens[i]
		switch spec.Kind {
		case isa.OpRegister:
			if tok.Type != lexer.TokenRegister {
				return 0, fmt.Errorf("%s operand %d: expected register, got %s", def.Mnemonic, i+1, tok.Type)
			}
			payload |= uint16(tok.Register&0x7) << uint(spec.LowBit)

		case isa.OpRegisterMultiMapped:
			if tok.Type != lexer.TokenRegister {
				return 0, fmt.Errorf("%s operand %d: expected register, got %s", def.Mnemonic, i+1, tok.Type)
			}
			r := uint16(tok.Register & 0x7)
			payload |= r << uint(spec.LowBit)
			payload |= r << uint(spec.LowBit2)

		case isa.OpBits:
			if !isNumeric(tok) {
				return 0, fmt.Errorf("%s operand %d: expected numeric literal, got %s", def.Mnemonic, i+1, tok.Type)
			}
			v := tok.Number.Signed()
			if !fitsField(v, spec.Width) {
				return 0, fmt.Errorf("%s operand %d: value %d out of range for %d-bit field", def.Mnemonic, i+1, v, spec.Width)
			}
			field := bitutil.Truncate(uint16(int32(v)), spec.Width)
			payload |= field << uint(spec.LowBit)

		case isa.OpRegisterOrImm5:
			if tok.Type == lexer.TokenRegister {
				payload |= uint16(tok.Register&0x7) << uint(spec.LowBit)
				continue
			}
			if !isNumeric(tok) {
				return 0, fmt.Errorf("%s operand %d: expected register or immediate, got %s", def.Mnemonic, i+1, tok.Type)
			}
			v := tok.Number.Signed()
			if !fitsSigned(v, 5) {
				return 0, fmt.Errorf("%s operand %d: immediate %d out of range for imm5", def.Mnemonic, i+1, v)
			}
			field := bitutil.Truncate(uint16(int32(v)), 5)
			payload |= (1 << 5) | field

		case isa.OpLabel:
			if tok.Type != lexer.TokenLabel {
				return 0, fmt.Errorf("%s operand %d: expected label, got %s", def.Mnemonic, i+1, tok.Type)
			}
			sym, ok := st.Lookup(tok.Text)
			if !ok {
				return 0, fmt.Errorf("undefined label %q", tok.Text)
			}
			// The wrapping uint16 difference keeps linked imports correct:
			// an exporter below this image's origin has a RelAddr that
			// wrapped negative, and only the mod-2^16 signed distance is
			// meaningful for a PC-relative field.
			offset := bitutil.SignedValue(sym.RelAddr - (relAddr + 1))
			if !fitsSigned(offset, spec.LabelWidth) {
				return 0, fmt.Errorf("%s operand %d: offset to %q (%d) out of range for %d-bit PC-relative field",
					def.Mnemonic, i+1, tok.Text, offset, spec.LabelWidth)
			}
			field := bitutil.Truncate(uint16(int32(offset)), spec.LabelWidth)
			payload |= field
		}
	}
	return def.Word(payload), nil
}

// resolveFillOperand computes the word for a .FILL directive: a numeric
// literal is used verbatim (truncated to 16 bits); a label operand is
// replaced with the referenced symbol's absolute address — the common
// address-of idiom.
func resolveFillOperand(tok lexer.Token, st *symtab.Table) (uint16, error) {
	if isNumeric(tok) {
		v := tok.Number.Signed()
		return bitutil.Truncate(uint16(int32(v)), 16), nil
	}
	if tok.Type == lexer.TokenLabel {
		sym, ok := st.Lookup(tok.Text)
		if !ok {
			return 0, fmt.Errorf("undefined label %q", tok.Text)
		}
		return sym.AbsAddr, nil
	}
	return 0, fmt.Errorf(".FILL operand must be a number or label, got %s", tok.Type)
}

func rangeErr(file string, line int, context, msg string) *asmerr.Error {
	return asmerr.New(file, line, asmerr.KindRange, context, msg)
}

func parseErr(file string, line int, context, msg string) *asmerr.Error {
	return asmerr.New(file, line, asmerr.KindParse, context, msg)
}
