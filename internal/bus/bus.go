// Package bus implements the emulator's address-space dispatcher: the
// single point all CPU/VFP memory traffic passes through, routing
// between SDRAM and the memory-mapped peripherals. Grounded on
// original_source/memory.c, which this reproduces closely, including
// its two documented asymmetries:
//
//   - 16-bit accesses never probe GPIO/mailbox/AUX: a 16-bit read that
//     misses SDRAM is always an error, and a 16-bit write that misses
//     SDRAM only probes the framebuffer before erroring.
//   - 32-bit accesses, on the other hand, probe the full device set
//     (system timer, GPIO, mailbox, AUX, DMA) in a fixed order before
//     reporting a final "unmapped" error.
//
// Every address is masked to the 30-bit guest address space
// (addr & 0x3FFFFFFF) on entry, matching memory.c's blanket masking.
package bus

import (
	"piemu/internal/aux"
	"piemu/internal/framebuffer"
	"piemu/internal/gpio"
	"piemu/internal/mailbox"
	"piemu/internal/memory"
	"piemu/util/dbg"
)

const (
	addrMask = 0x3FFFFFFF

	sysTimerLo = 0x20003004
	sysTimerHi = 0x20003008

	dmaBase = 0x20007000
	dmaEnd  = 0x20007FF4
)

// fbGuestMemory adapts Bus to framebuffer.GuestMemory without the
// framebuffer package needing to know about Bus.
type fbGuestMemory struct{ b *Bus }

func (m fbGuestMemory) ReadDwordLE(addr uint32) uint32 { return m.b.SDRAM.ReadDwordLE(addr) }
func (m fbGuestMemory) WriteDwordLE(addr uint32, v uint32) { m.b.SDRAM.WriteDwordLE(addr, v) }
func (m fbGuestMemory) ReadWordLE(addr uint32) uint16  { return m.b.SDRAM.ReadWordLE(addr) }

// mboxFramebuffer adapts Bus+Framebuffer to mailbox.FramebufferRequester.
type mboxFramebuffer struct{ b *Bus }

func (m mboxFramebuffer) Request(addr uint32) bool {
	return m.b.Framebuffer.Request(addr, fbGuestMemory{m.b})
}

// Bus owns every addressable component and implements
// interfaces.Bus. It holds no back-pointer to the emulator/CPU —
// the system timer is supplied as a callback, matching spec.md §9's
// redesign note against cyclic ownership.
type Bus struct {
	SDRAM       *memory.SDRAM
	GPIO        *gpio.Controller
	Mailbox     *mailbox.Mailbox
	Framebuffer *framebuffer.Framebuffer
	Aux         *aux.Peripheral

	// SystemTimer returns the guest system timer's current
	// microsecond count, backing the 0x20003004/0x20003008 dword
	// read ports.
	SystemTimer func() uint64
}

// New wires a bus together and connects the mailbox to the
// framebuffer (channel-1 forwarding).
func New(sdram *memory.SDRAM, g *gpio.Controller, mb *mailbox.Mailbox, fb *framebuffer.Framebuffer, ax *aux.Peripheral) *Bus {
	b := &Bus{SDRAM: sdram, GPIO: g, Mailbox: mb, Framebuffer: fb, Aux: ax}
	mb.Framebuffer = mboxFramebuffer{b}
	return b
}

func (b *Bus) ReadByte(addr uint32) uint8 {
	addr &= addrMask
	if b.SDRAM.Contains(addr, 1) {
		return b.SDRAM.ReadByte(addr)
	}
	dbg.Error("Unmapped byte read 0x%08x", addr)
	return 0
}

func (b *Bus) WriteByte(addr uint32, v uint8) {
	addr &= addrMask
	if b.SDRAM.Contains(addr, 1) {
		b.SDRAM.WriteByte(addr, v)
		return
	}
	dbg.Error("Unmapped byte write 0x%08x", addr)
}

// ReadWord reads a 16-bit little-endian value. Matches
// memory_read_word_le: SDRAM only, never probes devices.
func (b *Bus) ReadWord(addr uint32) uint16 {
	addr &= addrMask
	if b.SDRAM.Contains(addr, 2) {
		return b.SDRAM.ReadWordLE(addr)
	}
	dbg.Error("Unmapped word read 0x%08x", addr)
	return 0
}

// WriteWord writes a 16-bit little-endian value. Matches
// memory_write_word_le: SDRAM, else the framebuffer, else error.
func (b *Bus) WriteWord(addr uint32, v uint16) {
	addr &= addrMask
	switch {
	case b.SDRAM.Contains(addr, 2):
		b.SDRAM.WriteWordLE(addr, v)
	case b.Framebuffer.IsBuffer(addr):
		b.Framebuffer.WriteWord(addr, v)
	default:
		dbg.Error("Unmapped word write 0x%08x", addr)
	}
}

// ReadDword reads a 32-bit little-endian value, probing SDRAM, the
// system timer, GPIO, mailbox, AUX, then DMA (ignored), matching
// memory_read_dword_le's exact probe order.
func (b *Bus) ReadDword(addr uint32) uint32 {
	addr &= addrMask
	switch {
	case b.SDRAM.Contains(addr, 4):
		return b.SDRAM.ReadDwordLE(addr)
	case addr == sysTimerLo:
		return uint32(b.systemTimer())
	case addr == sysTimerHi:
		return uint32(b.systemTimer() >> 32)
	case b.GPIO.IsPort(addr):
		return b.GPIO.Read(addr)
	case b.Mailbox.IsPort(addr):
		return b.Mailbox.Read(addr)
	case b.Aux.IsPort(addr):
		return b.Aux.Read(addr)
	case addr >= dmaBase && addr < dmaEnd:
		return 0
	default:
		dbg.Error("Unmapped dword read 0x%08x", addr)
		return 0
	}
}

// WriteDword writes a 32-bit little-endian value, probing SDRAM,
// GPIO, mailbox, framebuffer, AUX, then DMA (ignored), matching
// memory_write_dword_le's exact probe order. Only the low byte of v
// reaches AUX, matching pr_write's uint8_t parameter.
func (b *Bus) WriteDword(addr uint32, v uint32) {
	addr &= addrMask
	switch {
	case b.SDRAM.Contains(addr, 4):
		b.SDRAM.WriteDwordLE(addr, v)
	case b.GPIO.IsPort(addr):
		b.GPIO.Write(addr, v)
	case b.Mailbox.IsPort(addr):
		b.Mailbox.Write(addr, v)
	case b.Framebuffer.IsBuffer(addr):
		b.Framebuffer.WriteDword(addr, v)
	case b.Aux.IsPort(addr):
		b.Aux.Write(addr, uint8(v))
	case addr >= dmaBase && addr < dmaEnd:
		// DMA is recognized but silently ignored, matching dma_is_port.
	default:
		dbg.Error("Unmapped dword write 0x%08x", addr)
	}
}

func (b *Bus) systemTimer() uint64 {
	if b.SystemTimer == nil {
		return 0
	}
	return b.SystemTimer()
}
