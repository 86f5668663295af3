// Package interfaces holds the small set of cross-package contracts
// this emulator needs. Unlike the teacher's interface-segregation
// layer (one interface per concern, several of them unused or
// internally inconsistent), this domain needs exactly one: the
// address bus, shared by the CPU core and the VFP coprocessor so
// neither depends on the concrete memory/MMIO wiring in internal/bus.
package interfaces

// Bus is the 32-bit address space the CPU and VFP read and write
// through: SDRAM plus every memory-mapped peripheral, already
// resolved to little-endian word/halfword/byte accessors the way
// original_source/memory.c's memory_read_*/memory_write_* functions
// are.
type Bus interface {
	ReadByte(addr uint32) uint8
	WriteByte(addr uint32, v uint8)
	ReadWord(addr uint32) uint16
	WriteWord(addr uint32, v uint16)
	ReadDword(addr uint32) uint32
	WriteDword(addr uint32, v uint32)
}
