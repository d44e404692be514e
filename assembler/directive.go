package assembler

import (
	"fmt"

	"github.com/kjellberg/lc3toolchain/image"
	"github.com/kjellberg/lc3toolchain/lexer"
	"github.com/kjellberg/lc3toolchain/symtab"
)

// pendingInstr is an instruction line whose final word can't be composed
// until every label in the image has a resolved address.
type pendingInstr struct {
	Mnemonic      string
	OperandTokens []lexer.Token
	RelAddr       uint16
	SourceLineNo  int
	RawText       string
}

// pendingFill is a .FILL line whose operand may name a label, resolved
// only after addressing (and linking) finishes.
type pendingFill struct {
	Token        lexer.Token
	RelAddr      uint16
	SourceLineNo int
	RawText      string
}

// materializeLine classifies one label-stripped line, recording its
// contribution to pendingInstr/pendingFills/dataWrites, and returns how
// many words it reserves in the image.
func materializeLine(
	rest []lexer.Token,
	lineAddr uint16,
	tl tokenizedLine,
	label string,
	st *symtab.Table,
	pendingInstr_ *[]pendingInstr,
	pendingFills *[]pendingFill,
	dataWrites *[]image.Write,
) (int, error) {
	if len(rest) == 0 {
		return 0, nil // label-only line; the label binds to whatever follows
	}

	head := rest[0]
	switch head.Type {
	case lexer.TokenDirective:
		return materializeDirective(head.Text, rest[1:], lineAddr, tl, label, st, pendingFills, dataWrites)

	case lexer.TokenInstruction:
		*pendingInstr_ = append(*pendingInstr_, pendingInstr{
			Mnemonic:      head.Text,
			OperandTokens: rest[1:],
			RelAddr:       lineAddr,
			SourceLineNo:  tl.SourceLineNo,
			RawText:       tl.RawText,
		})
		return 1, nil

	default:
		return 0, fmt.Errorf("expected an instruction or directive, found %s", head.Type)
	}
}

func materializeDirective(
	name string,
	operands []lexer.Token,
	lineAddr uint16,
	tl tokenizedLine,
	label string,
	st *symtab.Table,
	pendingFills *[]pendingFill,
	dataWrites *[]image.Write,
) (int, error) {
	switch name {
	case "FILL":
		if len(operands) != 1 {
			return 0, fmt.Errorf(".FILL requires exactly one operand")
		}
		*pendingFills = append(*pendingFills, pendingFill{
			Token: operands[0], RelAddr: lineAddr, SourceLineNo: tl.SourceLineNo, RawText: tl.RawText,
		})
		return 1, nil

	case "BLKW":
		if len(operands) != 1 || !isNumeric(operands[0]) {
			return 0, fmt.Errorf(".BLKW requires one numeric operand")
		}
		if operands[0].Number.Negative {
			return 0, fmt.Errorf(".BLKW operand must not be negative")
		}
		n := int(operands[0].Number.Magnitude)
		for k := 0; k < n; k++ {
			*dataWrites = append(*dataWrites, image.Write{RelAddr: lineAddr + uint16(k), Word: 0})
		}
		return n, nil

	case "STRINGZ":
		if len(operands) != 1 || operands[0].Type != lexer.TokenString {
			return 0, fmt.Errorf(".STRINGZ requires a string operand")
		}
		text := operands[0].Text
		for i := 0; i < len(text); i++ {
			if text[i] > 127 {
				return 0, fmt.Errorf(".STRINGZ contains a non-ASCII byte")
			}
			*dataWrites = append(*dataWrites, image.Write{RelAddr: lineAddr + uint16(i), Word: uint16(text[i])})
		}
		*dataWrites = append(*dataWrites, image.Write{RelAddr: lineAddr + uint16(len(text)), Word: 0})
		return len(text) + 1, nil

	case "IMPORT":
		if label == "" {
			return 0, fmt.Errorf(".IMPORT requires a label on the same line")
		}
		if err := st.SetStatus(label, symtab.Import); err != nil {
			return 0, err
		}
		return 0, nil

	case "EXPORT":
		if label == "" {
			return 0, fmt.Errorf(".EXPORT requires a label on the same line")
		}
		if err := st.SetStatus(label, symtab.Export); err != nil {
			return 0, err
		}
		return 0, nil

	default:
		return 0, fmt.Errorf("unexpected directive .%s in the instruction body", name)
	}
}
