package assembler

import (
	"github.com/kjellberg/lc3toolchain/asmerr"
	"github.com/kjellberg/lc3toolchain/lexer"
)

// findOrigEnd locates the mandatory, singular .ORIG and .END lines, and
// rejects any other directive appearing before .ORIG.
func findOrigEnd(lines []tokenizedLine, file string) (origin uint16, origIdx, endIdx int, err *asmerr.Error) {
	origIdx, endIdx = -1, -1

	for i, tl := range lines {
		// A directive may sit behind a leading label (e.g. "MSG .STRINGZ").
		_, rest := leadingLabel(tl.Tokens)
		if len(rest) == 0 || rest[0].Type != lexer.TokenDirective {
			continue
		}
		name := rest[0].Text
		switch name {
		case "ORIG":
			if origIdx != -1 {
				return 0, 0, 0, asmerr.New(file, tl.SourceLineNo, asmerr.KindDirective, tl.RawText,
					".ORIG may only appear once")
			}
			origIdx = i
		case "END":
			if origIdx == -1 {
				return 0, 0, 0, asmerr.New(file, tl.SourceLineNo, asmerr.KindDirective, tl.RawText,
					".END encountered before .ORIG")
			}
			if endIdx != -1 {
				return 0, 0, 0, asmerr.New(file, tl.SourceLineNo, asmerr.KindDirective, tl.RawText,
					".END may only appear once")
			}
			endIdx = i
		default:
			if origIdx == -1 {
				return 0, 0, 0, asmerr.New(file, tl.SourceLineNo, asmerr.KindDirective, tl.RawText,
					"directive encountered before .ORIG")
			}
		}
	}

	if origIdx == -1 {
		return 0, 0, 0, asmerr.New(file, 0, asmerr.KindDirective, "", "missing mandatory .ORIG directive")
	}
	if endIdx == -1 {
		return 0, 0, 0, asmerr.New(file, 0, asmerr.KindDirective, "", "missing mandatory .END directive")
	}

	origLine := lines[origIdx]
	_, origToks := leadingLabel(origLine.Tokens)
	if len(origToks) != 2 || !isNumeric(origToks[1]) {
		return 0, 0, 0, asmerr.New(file, origLine.SourceLineNo, asmerr.KindDirective, origLine.RawText,
			".ORIG requires exactly one numeric operand")
	}
	if origToks[1].Number.Negative {
		return 0, 0, 0, asmerr.New(file, origLine.SourceLineNo, asmerr.KindDirective, origLine.RawText,
			".ORIG operand must be non-negative")
	}

	return uint16(origToks[1].Number.Magnitude), origIdx, endIdx, nil
}

// stripOrigEnd drops the .ORIG and .END lines from the body, so the
// remaining lines' indices run contiguously from zero.
func stripOrigEnd(lines []tokenizedLine, origIdx, endIdx int) []tokenizedLine {
	body := make([]tokenizedLine, 0, len(lines))
	for i, tl := range lines {
		if i == origIdx || i == endIdx {
			continue
		}
		body = append(body, tl)
	}
	return body
}
