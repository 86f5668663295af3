// Package framebuffer emulates the VideoCore mailbox-allocated pixel
// buffer: a 10-word descriptor exchanged with the guest over mailbox
// channel 1, a host-addressable pixel region placed immediately after
// SDRAM, and (for 8bpp mode) a 256-entry colour palette. Grounded on
// original_source/bcm2835/framebuffer.c and framebuffer.h.
//
// Two RGB bit-order quirks are preserved deliberately, per spec.md §9's
// explicit instruction not to silently "fix" them: the 8bpp palette
// path unpacks R from the HIGH 5 bits of each 16-bit palette entry,
// while the 16bpp direct (R5G6B5) path unpacks R from the LOW 5 bits —
// an asymmetry present in the original's SDL pixel-format handling,
// preserved byte-for-byte here.
package framebuffer

import "piemu/util/dbg"

const descriptorWords = 10
const addressBias = 0x40000000

// GuestMemory is the narrow view of SDRAM the framebuffer needs to
// read the incoming request descriptor/palette and write the
// rewritten descriptor back.
type GuestMemory interface {
	ReadDwordLE(addr uint32) uint32
	WriteDwordLE(addr uint32, v uint32)
	ReadWordLE(addr uint32) uint16
}

// Descriptor is the mailbox framebuffer allocation request/response,
// laid out exactly as the 10 consecutive guest words of
// original_source/bcm2835/framebuffer.h's framebuffer_req_t union.
type Descriptor struct {
	PhysWidth  uint32
	PhysHeight uint32
	VirtWidth  uint32
	VirtHeight uint32
	Pitch      uint32
	Depth      uint32
	OffX       uint32
	OffY       uint32
	Addr       uint32
	Size       uint32
}

func (d *Descriptor) words() [descriptorWords]uint32 {
	return [descriptorWords]uint32{
		d.PhysWidth, d.PhysHeight, d.VirtWidth, d.VirtHeight,
		d.Pitch, d.Depth, d.OffX, d.OffY, d.Addr, d.Size,
	}
}

func (d *Descriptor) setFromWords(w [descriptorWords]uint32) {
	d.PhysWidth, d.PhysHeight, d.VirtWidth, d.VirtHeight = w[0], w[1], w[2], w[3]
	d.Pitch, d.Depth, d.OffX, d.OffY = w[4], w[5], w[6], w[7]
	d.Addr, d.Size = w[8], w[9]
}

// Framebuffer is the pixel buffer plus the descriptor state last
// negotiated with the guest.
type Framebuffer struct {
	Graphics bool
	memSize  uint32

	pixels  []byte
	bpp     uint32 // bytes per pixel: 1, 2, 3 or 4
	pitch   uint32 // unrounded bytes per row, used for internal indexing
	address uint32 // guest-visible base address of the pixel region
	palette [256]uint16

	Width, Height uint32 // host presentation surface dimensions

	lastError bool
}

// New creates a framebuffer. memSize is the SDRAM size — the pixel
// region is placed immediately after it in guest address space,
// matching fb_request's fb_address = emu->mem_size.
func New(memSize uint32, graphics bool) *Framebuffer {
	return &Framebuffer{memSize: memSize, Graphics: graphics}
}

// IsBuffer reports whether address falls within the currently
// allocated pixel region. Always false without --graphics, matching
// fb_is_buffer.
func (f *Framebuffer) IsBuffer(address uint32) bool {
	if !f.Graphics {
		return false
	}
	return address >= f.address && address < f.address+uint32(len(f.pixels))
}

// Request services a mailbox channel-1 framebuffer allocation
// request. addr is the mailbox-channel-masked guest address of the
// 10-word descriptor (still biased by +0x40000000, matching
// fb_request's raw mailbox payload). Returns true if the request
// failed, mirroring the flag MBOX_READ later reports.
func (f *Framebuffer) Request(addr uint32, mem GuestMemory) bool {
	f.lastError = false

	if !f.Graphics {
		dbg.Error("Framebuffer request without --graphics")
		f.lastError = true
		return true
	}
	if addr < addressBias {
		dbg.Error("Invalid framebuffer address 0x%08x", addr)
		f.lastError = true
		return true
	}
	addr -= addressBias

	var w [descriptorWords]uint32
	for i := range w {
		w[i] = mem.ReadDwordLE(addr + uint32(i)*4)
	}
	var req Descriptor
	req.setFromWords(w)

	if req.Depth == 8 {
		paletteAddr := addr + descriptorWords*4
		for i := 0; i < 256; i++ {
			f.palette[i] = mem.ReadWordLE(paletteAddr + uint32(i)*2)
		}
	}

	bpp := req.Depth >> 3
	pitch := req.VirtWidth * bpp
	size := pitch * req.VirtHeight

	f.bpp = bpp
	f.pitch = pitch
	f.address = f.memSize
	f.pixels = make([]byte, size)
	f.Width = req.VirtWidth
	f.Height = req.VirtHeight

	roundedPitch := pitch + (4-pitch%4)%4
	req.Pitch = roundedPitch
	req.Size = size
	req.Addr = f.address

	out := req.words()
	for i, word := range out {
		mem.WriteDwordLE(addr+uint32(i)*4, word)
	}

	return false
}

func (f *Framebuffer) WriteWord(address uint32, data uint16) {
	off := address - f.address
	f.pixels[off] = byte(data)
	f.pixels[off+1] = byte(data >> 8)
}

func (f *Framebuffer) WriteDword(address uint32, data uint32) {
	off := address - f.address
	f.pixels[off] = byte(data)
	f.pixels[off+1] = byte(data >> 8)
	f.pixels[off+2] = byte(data >> 16)
	f.pixels[off+3] = byte(data >> 24)
}

// Dimensions returns the host presentation surface's current pixel
// dimensions, or (0, 0) before any buffer has been allocated.
func (f *Framebuffer) Dimensions() (w, h uint32) {
	return f.Width, f.Height
}

// GetPixel decodes the pixel at (x, y) into 8-bit RGB, matching
// fb_get_pixel's per-depth logic. Returns magenta (0xff, 0x00, 0xff)
// before any buffer has been allocated, the original's "uninitialized"
// sentinel colour.
func (f *Framebuffer) GetPixel(x, y uint32) (r, g, b uint8) {
	if f.pixels == nil {
		return 0xff, 0x00, 0xff
	}

	idx := y*f.pitch + x*f.bpp
	switch f.bpp {
	case 1:
		key := f.pixels[idx]
		value := f.palette[key]
		rr := (value >> 11) & 0x1F
		gg := (value >> 5) & 0x3F
		bb := value & 0x1F
		return uint8(rr * 255 / 31), uint8(gg * 255 / 63), uint8(bb * 255 / 31)
	case 2:
		value := uint16(f.pixels[idx]) | uint16(f.pixels[idx+1])<<8
		rr := value & 0x1F
		gg := (value >> 5) & 0x3F
		bb := (value >> 11) & 0x1F
		return uint8(rr * 255 / 31), uint8(gg * 255 / 63), uint8(bb * 255 / 31)
	case 3, 4:
		return f.pixels[idx], f.pixels[idx+1], f.pixels[idx+2]
	default:
		dbg.Error("Unsupported pixel format depth %d", f.bpp)
		return 0, 0, 0
	}
}
