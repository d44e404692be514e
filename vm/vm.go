// Package vm implements the LC-3 virtual machine: a flat 65536-word memory,
// eight general registers, a single-flag condition code, and a
// fetch/decode/execute loop, with memory-mapped I/O registers interposed on
// reads/writes and cooperating keyboard/display agents on the other side
// of those registers.
package vm

import (
	"fmt"

	"github.com/kjellberg/lc3toolchain/bitutil"
	"github.com/kjellberg/lc3toolchain/ioagent"
	"github.com/kjellberg/lc3toolchain/isa"
	"github.com/kjellberg/lc3toolchain/logging"
)

// ConditionCode is exactly one of N, Z, or P at any time.
type ConditionCode uint8

const (
	CondZero ConditionCode = iota
	CondNegative
	CondPositive
)

// VM is one LC-3 machine instance: its memory, registers, and the shared
// I/O records its agents run against.
type VM struct {
	Mem [MemSize]uint16
	Reg [8]uint16
	PC  uint16
	CC  ConditionCode

	Origin uint16

	// MaxCycles bounds execution; 0 means unbounded.
	MaxCycles uint64
	Cycles    uint64

	Running bool

	// HaltVector is the TRAP vector shortcut to a native MCR clear.
	// Defaults to isa.TrapHalt but follows a config TrapVectors["HALT"]
	// override, so an image assembled against a retargeted HALT vector
	// still halts natively instead of falling through to the generic
	// R7<-PC;PC<-memory[vector] rule against an unloaded OS subroutine.
	HaltVector uint16

	KeyboardRecord *ioagent.Record
	DisplayRecord  *ioagent.Record

	Logger *logging.Logger
}

// New creates a VM with zeroed memory, fresh I/O records, and the run flag
// set. Logger may be nil, in which case trace output is discarded.
func New(logger *logging.Logger) *VM {
	if logger == nil {
		logger = logging.Default(false)
	}
	m := &VM{
		HaltVector:     isa.TrapHalt,
		KeyboardRecord: ioagent.NewKeyboardRecord(),
		DisplayRecord:  ioagent.NewDisplayRecord(),
		Logger:         logger,
	}
	m.Mem[AddrMCR] = mcrRunBit
	m.Running = true
	return m
}

// LoadWords places words into memory starting at addr.
func (m *VM) LoadWords(addr uint16, words []uint16) {
	for i, w := range words {
		m.Mem[addr+uint16(i)] = w
	}
}

// SetOrigin sets both PC and Origin: the image's placement address is also
// where execution begins.
func (m *VM) SetOrigin(origin uint16) {
	m.PC = origin
	m.Origin = origin
}

// ReadMem reads one memory word, interposing on the four I/O register
// addresses: reading KBDR clears KBSR's ready bit atomically with respect
// to the keyboard agent (both under KeyboardRecord's lock).
func (m *VM) ReadMem(addr uint16) uint16 {
	switch addr {
	case AddrKBSR:
		unlock := m.KeyboardRecord.Lock()
		m.Mem[AddrKBSR] = m.KeyboardRecord.Signal
		unlock()
	case AddrKBDR:
		unlock := m.KeyboardRecord.Lock()
		m.Mem[AddrKBDR] = m.KeyboardRecord.Data
		m.KeyboardRecord.Signal &^= 1 << ioagent.ReadyBit
		unlock()
	case AddrDSR:
		unlock := m.DisplayRecord.Lock()
		m.Mem[AddrDSR] = m.DisplayRecord.Signal
		unlock()
	case AddrDDR:
		unlock := m.DisplayRecord.Lock()
		m.Mem[AddrDDR] = m.DisplayRecord.Data
		unlock()
	}
	return m.Mem[addr]
}

// WriteMem writes one memory word, interposing on KBSR and DDR: writing
// DDR clears DSR's ready bit, handing the byte to the display agent's next
// scan.
func (m *VM) WriteMem(addr uint16, value uint16) {
	switch addr {
	case AddrKBSR:
		unlock := m.KeyboardRecord.Lock()
		m.KeyboardRecord.Signal = value
		unlock()
	case AddrDDR:
		unlock := m.DisplayRecord.Lock()
		m.DisplayRecord.Data = value
		m.DisplayRecord.Signal &^= 1 << ioagent.ReadyBit
		unlock()
	}
	m.Mem[addr] = value
}

// updateCC: result==0 -> Z, bit 15 set -> N, otherwise P.
func (m *VM) updateCC(result uint16) {
	switch {
	case result == 0:
		m.CC = CondZero
	case result&0x8000 != 0:
		m.CC = CondNegative
	default:
		m.CC = CondPositive
	}
}

// Step executes one fetch/decode/execute cycle. It returns false (with the
// run flag cleared) once MCR's bit 15 goes clear, whether from a HALT trap,
// a RTI/reserved opcode, or an instruction that writes MCR.
func (m *VM) Step() (bool, error) {
	if !m.Running {
		return false, nil
	}
	if m.MaxCycles > 0 && m.Cycles >= m.MaxCycles {
		return false, fmt.Errorf("vm: cycle limit exceeded (%d cycles)", m.MaxCycles)
	}

	// Fetch.
	if m.PC >= 0xFFFF {
		m.Running = false
		return false, fmt.Errorf("vm: program counter 0x%04X out of range before fetch", m.PC)
	}
	instr := m.ReadMem(m.PC)
	if m.Logger.Verbose {
		if text, ok := isa.Disassemble(instr); ok {
			m.Logger.Debugf("[0x%04X] %016b  %s", m.PC, instr, text)
		} else {
			m.Logger.Debugf("[0x%04X] %016b", m.PC, instr)
		}
	}
	m.PC++

	// Decode.
	opcode := bitutil.FieldExtract(instr, 12, 15)

	// Execute.
	switch opcode {
	case 0x1:
		m.execAddAnd(instr, true)
	case 0x5:
		m.execAddAnd(instr, false)
	case 0x9:
		m.execNot(instr)
	case 0x0:
		m.execBr(instr)
	case 0xC:
		m.execJmp(instr)
	case 0x4:
		m.execJsr(instr)
	case 0x2:
		m.execLd(instr)
	case 0xA:
		m.execLdi(instr)
	case 0x6:
		m.execLdr(instr)
	case 0xE:
		m.execLea(instr)
	case 0x3:
		m.execSt(instr)
	case 0xB:
		m.execSti(instr)
	case 0x7:
		m.execStr(instr)
	case 0xF:
		m.execTrap(instr)
	default:
		// RTI (0x8) and the reserved opcode (0xD) halt the machine; this
		// core has no supervisor mode for RTI to return from.
		m.halt()
	}
	// An instruction that cleared MCR bit 15 directly (e.g. ST to MCR)
	// stops the loop the same way a HALT trap does.
	if m.Running && m.Mem[AddrMCR]&mcrRunBit == 0 {
		m.halt()
	}

	m.Cycles++
	return m.Running, nil
}

// Run steps until halt, a cycle-limit error, or a fatal execution error.
func (m *VM) Run() error {
	for {
		running, err := m.Step()
		if err != nil {
			return err
		}
		if !running {
			return nil
		}
	}
}

// halt clears MCR bit 15 and signals both I/O agents to terminate.
func (m *VM) halt() {
	m.Mem[AddrMCR] &^= mcrRunBit
	m.Running = false
	m.KeyboardRecord.RequestTerminate()
	m.DisplayRecord.RequestTerminate()
}

func (m *VM) execAddAnd(instr uint16, isAdd bool) {
	dr := bitutil.FieldExtract(instr, 9, 11)
	sr1 := bitutil.FieldExtract(instr, 6, 8)
	var result uint16
	if bitutil.FieldExtract(instr, 5, 5) != 0 {
		imm5 := bitutil.SignExtend(bitutil.Truncate(instr, 5), 4)
		if isAdd {
			result = bitutil.Add2C(m.Reg[sr1], imm5)
		} else {
			result = m.Reg[sr1] & imm5
		}
	} else {
		sr2 := bitutil.FieldExtract(instr, 0, 2)
		if isAdd {
			result = bitutil.Add2C(m.Reg[sr1], m.Reg[sr2])
		} else {
			result = m.Reg[sr1] & m.Reg[sr2]
		}
	}
	m.Reg[dr] = result
	m.updateCC(result)
}

func (m *VM) execNot(instr uint16) {
	dr := bitutil.FieldExtract(instr, 9, 11)
	sr := bitutil.FieldExtract(instr, 6, 8)
	result := ^m.Reg[sr]
	m.Reg[dr] = result
	m.updateCC(result)
}

func (m *VM) execBr(instr uint16) {
	n := bitutil.FieldExtract(instr, 11, 11) != 0
	z := bitutil.FieldExtract(instr, 10, 10) != 0
	p := bitutil.FieldExtract(instr, 9, 9) != 0
	take := (n && m.CC == CondNegative) || (z && m.CC == CondZero) || (p && m.CC == CondPositive)
	if take {
		offset9 := bitutil.SignExtend(bitutil.Truncate(instr, 9), 8)
		m.PC = bitutil.Add2C(m.PC, offset9)
	}
}

func (m *VM) execJmp(instr uint16) {
	base := bitutil.FieldExtract(instr, 6, 8)
	m.PC = m.Reg[base]
}

func (m *VM) execJsr(instr uint16) {
	linkPC := m.PC
	if bitutil.FieldExtract(instr, 11, 11) != 0 {
		offset11 := bitutil.SignExtend(bitutil.Truncate(instr, 11), 10)
		m.PC = bitutil.Add2C(m.PC, offset11)
	} else {
		base := bitutil.FieldExtract(instr, 6, 8)
		m.PC = m.Reg[base]
	}
	m.Reg[7] = linkPC
}

func (m *VM) execLd(instr uint16) {
	dr := bitutil.FieldExtract(instr, 9, 11)
	offset9 := bitutil.SignExtend(bitutil.Truncate(instr, 9), 8)
	addr := bitutil.Add2C(m.PC, offset9)
	value := m.ReadMem(addr)
	m.Reg[dr] = value
	m.updateCC(value)
}

func (m *VM) execLdi(instr uint16) {
	dr := bitutil.FieldExtract(instr, 9, 11)
	offset9 := bitutil.SignExtend(bitutil.Truncate(instr, 9), 8)
	ptr := bitutil.Add2C(m.PC, offset9)
	addr := m.ReadMem(ptr)
	value := m.ReadMem(addr)
	m.Reg[dr] = value
	m.updateCC(value)
}

func (m *VM) execLdr(instr uint16) {
	dr := bitutil.FieldExtract(instr, 9, 11)
	base := bitutil.FieldExtract(instr, 6, 8)
	offset6 := bitutil.SignExtend(bitutil.Truncate(instr, 6), 5)
	addr := bitutil.Add2C(m.Reg[base], offset6)
	value := m.ReadMem(addr)
	m.Reg[dr] = value
	m.updateCC(value)
}

// execLea updates CC from the computed address; strict LC-3 leaves CC
// untouched on LEA, this machine does not.
func (m *VM) execLea(instr uint16) {
	dr := bitutil.FieldExtract(instr, 9, 11)
	offset9 := bitutil.SignExtend(bitutil.Truncate(instr, 9), 8)
	addr := bitutil.Add2C(m.PC, offset9)
	m.Reg[dr] = addr
	m.updateCC(addr)
}

func (m *VM) execSt(instr uint16) {
	sr := bitutil.FieldExtract(instr, 9, 11)
	offset9 := bitutil.SignExtend(bitutil.Truncate(instr, 9), 8)
	addr := bitutil.Add2C(m.PC, offset9)
	m.WriteMem(addr, m.Reg[sr])
}

func (m *VM) execSti(instr uint16) {
	sr := bitutil.FieldExtract(instr, 9, 11)
	offset9 := bitutil.SignExtend(bitutil.Truncate(instr, 9), 8)
	ptr := bitutil.Add2C(m.PC, offset9)
	addr := m.ReadMem(ptr)
	m.WriteMem(addr, m.Reg[sr])
}

func (m *VM) execStr(instr uint16) {
	sr := bitutil.FieldExtract(instr, 9, 11)
	base := bitutil.FieldExtract(instr, 6, 8)
	offset6 := bitutil.SignExtend(bitutil.Truncate(instr, 6), 5)
	addr := bitutil.Add2C(m.Reg[base], offset6)
	m.WriteMem(addr, m.Reg[sr])
}

// execTrap shortcuts the HaltVector (0x25 by default, isa.TrapHalt) to a
// native MCR clear rather than requiring a loaded OS subroutine at that
// vector; the observable effect is the same, the run loop stops. Every
// other vector follows the generic rule: R7 <- PC; PC <- memory[vector].
func (m *VM) execTrap(instr uint16) {
	vector := bitutil.Truncate(instr, 8)
	if vector == m.HaltVector {
		m.halt()
		return
	}
	m.Reg[7] = m.PC
	m.PC = m.ReadMem(vector)
}
