package assembler

import (
	"strings"

	"github.com/kjellberg/lc3toolchain/lexer"
)

// sourceLine is one non-blank, comment-stripped input line together with
// its position metadata.
type sourceLine struct {
	Text         string // comment-stripped text
	SourceLineNo int    // 1-based, for diagnostics
	RawText      string // original text, for error context
}

// tokenizedLine is the tokens of one source line plus its position
// metadata for diagnostics.
type tokenizedLine struct {
	Tokens       []lexer.Token
	SourceLineNo int
	RawText      string
}

// splitLines strips everything from ';' onward and returns only the
// resulting non-blank lines. Comment-only lines (anywhere, not just a
// leading block) therefore never consume a relative address: a line that
// tokenizes to nothing never entered the body in the first place.
func splitLines(src string) []sourceLine {
	var out []sourceLine
	for i, raw := range strings.Split(src, "\n") {
		stripped := stripComment(raw)
		trimmed := strings.TrimSpace(stripped)
		if trimmed == "" {
			continue
		}
		out = append(out, sourceLine{Text: trimmed, SourceLineNo: i + 1, RawText: raw})
	}
	return out
}

func stripComment(line string) string {
	inString := false
	for i := 0; i < len(line); i++ {
		switch line[i] {
		case '"':
			inString = !inString
		case ';':
			if !inString {
				return line[:i]
			}
		}
	}
	return line
}

// leadingLabel separates an optional leading label token from the rest of
// a tokenized line's operand tokens. A label is recognized by lexer.TokenLabel
// occupying position 0.
func leadingLabel(tokens []lexer.Token) (label string, rest []lexer.Token) {
	if len(tokens) > 0 && tokens[0].Type == lexer.TokenLabel {
		return tokens[0].Text, tokens[1:]
	}
	return "", tokens
}
