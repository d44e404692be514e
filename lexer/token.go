// Package lexer turns one comment-stripped LC-3 source line into an ordered
// token sequence.
package lexer

import "fmt"

// TokenType identifies the shape of a Token.
type TokenType int

const (
	TokenDecimal TokenType = iota
	TokenHex
	TokenBin
	TokenRegister
	TokenLabel
	TokenInstruction
	TokenDirective
	TokenString
	TokenComma
)

var tokenTypeNames = map[TokenType]string{
	TokenDecimal:     "DECIMAL",
	TokenHex:         "HEX",
	TokenBin:         "BIN",
	TokenRegister:    "REGISTER",
	TokenLabel:       "LABEL",
	TokenInstruction: "INSTRUCTION",
	TokenDirective:   "DIRECTIVE",
	TokenString:      "STRING",
	TokenComma:       "COMMA",
}

func (t TokenType) String() string {
	if name, ok := tokenTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("TokenType(%d)", t)
}

// NumberLiteral is a sign, magnitude and minimum-bit-width hint for a
// numeric token.
type NumberLiteral struct {
	Negative  bool
	Magnitude uint32
}

// BitsRequired reports the minimum bit width needed to hold the literal's
// magnitude (unsigned).
func (n NumberLiteral) BitsRequired() int {
	k := 0
	for (n.Magnitude >> uint(k)) != 0 {
		k++
	}
	return k
}

// Signed returns the literal's value as a signed integer.
func (n NumberLiteral) Signed() int32 {
	if n.Negative {
		return -int32(n.Magnitude)
	}
	return int32(n.Magnitude)
}

// Token is a tagged variant over the lexical categories of LC-3 source.
// Two comparisons exist on purpose: SameShape matches the variant only
// (what the encoder's operand-schema matcher needs), Equal also checks the
// payload (what tests need). Collapsing them is a bug.
type Token struct {
	Type     TokenType
	Number   NumberLiteral // valid when Type is TokenDecimal/TokenHex/TokenBin
	Register int           // valid when Type is TokenRegister
	Text     string        // valid when Type is TokenLabel/TokenInstruction/TokenDirective/TokenString
}

// SameShape reports whether two tokens have the same variant, ignoring
// payload. This is the comparison the encoder's operand-schema matcher
// uses.
func (t Token) SameShape(other Token) bool {
	return t.Type == other.Type
}

// Equal performs a full deep comparison of type and payload, the comparison
// tests require.
func (t Token) Equal(other Token) bool {
	if t.Type != other.Type {
		return false
	}
	switch t.Type {
	case TokenDecimal, TokenHex, TokenBin:
		return t.Number == other.Number
	case TokenRegister:
		return t.Register == other.Register
	case TokenLabel, TokenInstruction, TokenDirective, TokenString:
		return t.Text == other.Text
	case TokenComma:
		return true
	default:
		return false
	}
}

func (t Token) String() string {
	switch t.Type {
	case TokenDecimal, TokenHex, TokenBin:
		return fmt.Sprintf("%s(%d)", t.Type, t.Number.Signed())
	case TokenRegister:
		return fmt.Sprintf("R%d", t.Register)
	case TokenLabel, TokenInstruction, TokenDirective, TokenString:
		return fmt.Sprintf("%s(%q)", t.Type, t.Text)
	default:
		return t.Type.String()
	}
}
