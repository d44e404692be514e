// Package assembler implements the two-pass LC-3 assembler: lexing each
// source line, discovering labels and reserving the words their directives
// need, resolving imports against linked companions, and encoding
// instructions against the canonical isa.Table.
package assembler

import (
	"fmt"

	"github.com/kjellberg/lc3toolchain/asmerr"
	"github.com/kjellberg/lc3toolchain/image"
	"github.com/kjellberg/lc3toolchain/isa"
	"github.com/kjellberg/lc3toolchain/lexer"
	"github.com/kjellberg/lc3toolchain/linker"
	"github.com/kjellberg/lc3toolchain/symtab"
)

// Options controls one assembly run.
type Options struct {
	// FileName is attached to every diagnostic for source-position context.
	FileName string
	// CaseSensitive controls label comparison; default (false) folds case.
	CaseSensitive bool
	// Companions, when non-nil, are consulted to resolve this image's
	// .IMPORT symbols at assembly time (the --link CLI contract).
	Companions []linker.Companion
}

// Result is a successfully assembled image together with its symbol table,
// ready for the .obj/.sym codec or for use as another assembly's companion.
type Result struct {
	Image  *image.Image
	Symtab *symtab.Table
}

// Assemble runs the full pipeline over src and returns either a Result or
// every diagnostic accumulated by the first phase that failed.
func Assemble(src string, opts Options) (*Result, *asmerr.List) {
	file := opts.FileName
	list := &asmerr.List{}

	// Phase 1: load + tokenize. A lex error anywhere aborts before any
	// later phase runs, since addressing depends on every line's shape.
	rawLines := splitLines(src)
	toklines := make([]tokenizedLine, 0, len(rawLines))
	for _, rl := range rawLines {
		toks, err := lexer.Tokenize(rl.Text)
		if err != nil {
			list.Add(asmerr.New(file, rl.SourceLineNo, asmerr.KindLex, rl.RawText, err.Error()))
			continue
		}
		toklines = append(toklines, tokenizedLine{Tokens: toks, SourceLineNo: rl.SourceLineNo, RawText: rl.RawText})
	}
	if list.HasErrors() {
		return nil, list
	}

	// Phase 2: .ORIG/.END.
	origin, origIdx, endIdx, oerr := findOrigEnd(toklines, file)
	if oerr != nil {
		list.Add(oerr)
		return nil, list
	}

	// Phase 3: strip layout-neutral lines, leaving a contiguous body.
	body := stripOrigEnd(toklines, origIdx, endIdx)

	// Phase 4: addressing, symbol discovery, and directive materialization
	// in one forward pass — a line's word count is known from its own
	// shape, so every line's address is final the moment it is visited,
	// whether or not it carries a label (see symtab.Table.SetAddress).
	st := symtab.New(opts.CaseSensitive)
	var pendingInstrs []pendingInstr
	var pendingFills []pendingFill
	var dataWrites []image.Write

	addr := uint16(0)
	for _, tl := range body {
		label, rest := leadingLabel(tl.Tokens)
		lineAddr := addr

		if label != "" {
			if err := st.Define(label, lineAddr, tl.SourceLineNo); err != nil {
				list.Add(asmerr.New(file, tl.SourceLineNo, asmerr.KindSymbol, tl.RawText, err.Error()))
			}
		}

		wordCount, err := materializeLine(rest, lineAddr, tl, label, st, &pendingInstrs, &pendingFills, &dataWrites)
		if err != nil {
			list.Add(asmerr.New(file, tl.SourceLineNo, asmerr.KindParse, tl.RawText, err.Error()))
		}
		if label != "" && wordCount > 1 {
			// Default SizeWords is 1 at Define; only multi-word directives
			// need to grow it further. Grow's only failure is "undefined
			// symbol", which cannot happen here since we just defined it.
			_ = st.Grow(label, wordCount-1)
		}
		addr += uint16(wordCount)
	}
	if list.HasErrors() {
		return nil, list
	}

	st.StampAbsAddr(origin)

	// Phase 5: resolve .IMPORT symbols against whatever
	// companions were supplied for assembly-time linking. Run this even
	// with zero companions, so an import with nothing to resolve against
	// is reported rather than silently encoded against its placeholder
	// address.
	if errs := linker.ResolveImports(st, origin, opts.Companions); errs != nil {
		for _, e := range errs.Errors {
			e.File = file
			list.Add(e)
		}
		return nil, list
	}
	st.StampAbsAddr(origin)

	// Phase 6: resolve .FILL operands that name a label, now that every
	// symbol (local and imported) has a final address.
	for _, pf := range pendingFills {
		w, err := resolveFillOperand(pf.Token, st)
		if err != nil {
			list.Add(asmerr.New(file, pf.SourceLineNo, asmerr.KindSymbol, pf.RawText, err.Error()))
			continue
		}
		dataWrites = append(dataWrites, image.Write{RelAddr: pf.RelAddr, Word: w})
	}

	// Phase 7: instruction encoding.
	var instrWrites []image.Write
	for _, pi := range pendingInstrs {
		def, ok := isa.Lookup(pi.Mnemonic)
		if !ok {
			list.Add(parseErr(file, pi.SourceLineNo, pi.RawText, fmt.Sprintf("unknown mnemonic %q", pi.Mnemonic)))
			continue
		}
		operands, err := splitOperands(pi.OperandTokens)
		if err != nil {
			list.Add(parseErr(file, pi.SourceLineNo, pi.RawText, err.Error()))
			continue
		}
		word, err := encodeInstruction(def, operands, pi.RelAddr, st)
		if err != nil {
			list.Add(rangeErr(file, pi.SourceLineNo, pi.RawText, err.Error()))
			continue
		}
		instrWrites = append(instrWrites, image.Write{RelAddr: pi.RelAddr, Word: word})
	}

	if list.HasErrors() {
		return nil, list
	}

	img := &image.Image{Origin: origin, Instr: instrWrites, Data: dataWrites, Symbols: st.InOrder()}
	return &Result{Image: img, Symtab: st}, nil
}
