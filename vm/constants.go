package vm

// MemSize is the machine's full 16-bit address space.
const MemSize = 1 << 16

// Memory-mapped I/O addresses, all in the high 4K of address space. MCR is
// the conventional LC-3 machine-control register address.
const (
	AddrKBSR = 0xFE00
	AddrKBDR = 0xFE02
	AddrDSR  = 0xFE04
	AddrDDR  = 0xFE06
	AddrMCR  = 0xFFFE
)

// mcrRunBit is MCR bit 15: clear it to halt the fetch/decode/execute loop.
const mcrRunBit uint16 = 1 << 15
