// Package image implements the LC-3 object/symbol codec: the
// placement-ready output of assembly and linking, and its on-disk
// serialization (big-endian words for .obj, whitespace-delimited text
// records for .sym).
package image

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/kjellberg/lc3toolchain/symtab"
)

// Write is one word emitted at a relative address.
type Write struct {
	RelAddr uint16
	Word    uint16
}

// Image is the output of assembly and linking: an origin, the instruction
// and data writes produced during encoding, and the symbol table that
// accompanies it.
type Image struct {
	Origin  uint16
	Instr   []Write
	Data    []Write
	Symbols []*symtab.Symbol
}

// Len reports the image's length in words (one past the highest written
// relative address), the span ToWords fills.
func (img *Image) Len() uint16 {
	var maxRel uint16
	for _, w := range img.Instr {
		if w.RelAddr+1 > maxRel {
			maxRel = w.RelAddr + 1
		}
	}
	for _, w := range img.Data {
		if w.RelAddr+1 > maxRel {
			maxRel = w.RelAddr + 1
		}
	}
	return maxRel
}

// ToWords flattens instruction and data writes, in assembly order, into the
// unified word stream a Loaded image carries: order preserves assembly
// order, instructions and data unified.
func (img *Image) ToWords() []uint16 {
	n := int(img.Len())
	words := make([]uint16, n)
	for _, w := range img.Data {
		words[w.RelAddr] = w.Word
	}
	for _, w := range img.Instr {
		words[w.RelAddr] = w.Word
	}
	return words
}

// WriteObject serializes an image to the big-endian .obj format: the first
// word is the origin, every subsequent word is loaded in order starting at
// origin, regardless of host byte order.
func WriteObject(w io.Writer, img *Image) error {
	bw := bufio.NewWriter(w)
	if err := binary.Write(bw, binary.BigEndian, img.Origin); err != nil {
		return fmt.Errorf("image: write origin: %w", err)
	}
	for _, word := range img.ToWords() {
		if err := binary.Write(bw, binary.BigEndian, word); err != nil {
			return fmt.Errorf("image: write word: %w", err)
		}
	}
	return bw.Flush()
}

// Loaded is the in-memory result of reading a .obj file: an origin and the
// unified word stream ready for placement into VM memory.
type Loaded struct {
	Origin uint16
	Words  []uint16
}

// ReadObject parses the big-endian .obj format produced by WriteObject.
func ReadObject(r io.Reader) (*Loaded, error) {
	br := bufio.NewReader(r)
	var origin uint16
	if err := binary.Read(br, binary.BigEndian, &origin); err != nil {
		return nil, fmt.Errorf("image: read origin: %w", err)
	}
	var words []uint16
	for {
		var w uint16
		err := binary.Read(br, binary.BigEndian, &w)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("image: read word: %w", err)
		}
		words = append(words, w)
	}
	return &Loaded{Origin: origin, Words: words}, nil
}

// WriteSymbols serializes a symbol table to the .sym text format: one
// record per line, four whitespace-separated fields (name, #dec_rel_addr,
// xhex_abs_addr, status), terminated by a trailing newline.
func WriteSymbols(w io.Writer, symbols []*symtab.Symbol) error {
	bw := bufio.NewWriter(w)
	for _, sym := range symbols {
		if _, err := fmt.Fprintf(bw, "%s #%d x%X %d\n", sym.Name, sym.RelAddr, sym.AbsAddr, int(sym.Status)); err != nil {
			return fmt.Errorf("image: write symbol record: %w", err)
		}
	}
	return bw.Flush()
}

// ReadSymbols parses the .sym text format back into symbol records.
func ReadSymbols(r io.Reader) ([]*symtab.Symbol, error) {
	scanner := bufio.NewScanner(r)
	var out []*symtab.Symbol
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 4 {
			return nil, fmt.Errorf("image: .sym line %d: expected 4 fields, got %d", lineNo, len(fields))
		}
		relAddr, err := parseDecField(fields[1])
		if err != nil {
			return nil, fmt.Errorf("image: .sym line %d: %w", lineNo, err)
		}
		absAddr, err := parseHexField(fields[2])
		if err != nil {
			return nil, fmt.Errorf("image: .sym line %d: %w", lineNo, err)
		}
		status, err := strconv.Atoi(fields[3])
		if err != nil || status < 0 || status > 2 {
			return nil, fmt.Errorf("image: .sym line %d: invalid status %q", lineNo, fields[3])
		}
		out = append(out, &symtab.Symbol{
			Name:    fields[0],
			RelAddr: relAddr,
			AbsAddr: absAddr,
			Status:  symtab.Status(status),
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("image: read .sym: %w", err)
	}
	return out, nil
}

func parseDecField(field string) (uint16, error) {
	if !strings.HasPrefix(field, "#") {
		return 0, fmt.Errorf("expected #dec_rel_addr field, got %q", field)
	}
	v, err := strconv.ParseUint(field[1:], 10, 16)
	if err != nil {
		return 0, fmt.Errorf("invalid rel_addr %q: %w", field, err)
	}
	return uint16(v), nil
}

func parseHexField(field string) (uint16, error) {
	if !strings.HasPrefix(field, "x") {
		return 0, fmt.Errorf("expected xhex_abs_addr field, got %q", field)
	}
	v, err := strconv.ParseUint(field[1:], 16, 16)
	if err != nil {
		return 0, fmt.Errorf("invalid abs_addr %q: %w", field, err)
	}
	return uint16(v), nil
}
