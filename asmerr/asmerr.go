// Package asmerr defines the assembler's diagnostic types: a categorized,
// positioned error and a list that accumulates every error from a phase
// before the caller decides whether to abort.
package asmerr

import (
	"fmt"
	"strings"
)

// Kind categorizes a diagnostic, shown uppercase to the user per the CLI
// contract.
type Kind int

const (
	KindLex Kind = iota
	KindParse
	KindRange
	KindSymbol
	KindLink
	KindDirective
	KindRuntime
)

var kindNames = map[Kind]string{
	KindLex:       "LEX",
	KindParse:     "PARSE",
	KindRange:     "RANGE",
	KindSymbol:    "SYMBOL",
	KindLink:      "LINK",
	KindDirective: "DIRECTIVE",
	KindRuntime:   "RUNTIME",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", k)
}

// Error is one diagnostic: the source file, the line number (0 when not
// applicable), a category, the offending line's text, and a terse message.
type Error struct {
	File    string
	Line    int // 1-based; 0 when no specific line applies
	Kind    Kind
	Context string
	Message string
}

func (e *Error) Error() string {
	var sb strings.Builder
	if e.Line > 0 {
		fmt.Fprintf(&sb, "%s:%d: %s: %s", e.File, e.Line, e.Kind, e.Message)
	} else {
		fmt.Fprintf(&sb, "%s: %s: %s", e.File, e.Kind, e.Message)
	}
	if e.Context != "" {
		fmt.Fprintf(&sb, "\n    %s", e.Context)
	}
	return sb.String()
}

// New creates an Error.
func New(file string, line int, kind Kind, context, message string) *Error {
	return &Error{File: file, Line: line, Kind: kind, Context: context, Message: message}
}

// List accumulates diagnostics across a phase so the assembler can finish
// the phase it can and report everything at once.
type List struct {
	Errors []*Error
}

// Add appends a diagnostic.
func (l *List) Add(err *Error) {
	l.Errors = append(l.Errors, err)
}

// HasErrors reports whether any diagnostic has been recorded.
func (l *List) HasErrors() bool {
	return len(l.Errors) > 0
}

// Error implements the error interface, rendering every diagnostic.
func (l *List) Error() string {
	lines := make([]string, len(l.Errors))
	for i, err := range l.Errors {
		lines[i] = err.Error()
	}
	return strings.Join(lines, "\n")
}
