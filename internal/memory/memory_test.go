package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestByteReadWrite(t *testing.T) {
	m := New(16)
	m.WriteByte(4, 0xAB)
	assert.Equal(t, uint8(0xAB), m.ReadByte(4))
}

func TestAlignedWordReadWrite(t *testing.T) {
	m := New(16)
	m.WriteWordLE(8, 0x1234)
	assert.Equal(t, uint16(0x1234), m.ReadWordLE(8))
}

func TestAlignedDwordReadWrite(t *testing.T) {
	m := New(16)
	m.WriteDwordLE(0, 0xDEADBEEF)
	assert.Equal(t, uint32(0xDEADBEEF), m.ReadDwordLE(0))
}

// TestUnalignedDwordRotates exercises the aligned-rotate quirk: an
// unaligned dword read wraps within the 4-byte-aligned word containing
// the address, rather than reading 4 bytes starting at addr.
func TestUnalignedDwordRotates(t *testing.T) {
	m := New(16)
	for i, b := range []byte{0x11, 0x22, 0x33, 0x44} {
		m.WriteByte(uint32(i), b)
	}

	// addr=1 is misaligned within the [0,4) aligned word; the read
	// wraps: byte 1,2,3,0 become the little-endian word 0x11443322.
	got := m.ReadDwordLE(1)
	assert.Equal(t, uint32(0x11443322), got)
}

func TestUnalignedWordRotates(t *testing.T) {
	m := New(16)
	m.WriteByte(0, 0xAA)
	m.WriteByte(1, 0xBB)

	// addr=1 is misaligned within [0,2); wraps to byte1,byte0 -> 0xAABB
	assert.Equal(t, uint16(0xAABB), m.ReadWordLE(1))
}

func TestReadDwordBEDoesNotRotate(t *testing.T) {
	m := New(16)
	for i, b := range []byte{0x11, 0x22, 0x33, 0x44} {
		m.WriteByte(uint32(i), b)
	}
	assert.Equal(t, uint32(0x11223344), m.ReadDwordBE(0))
}

func TestWriteDwordBEIsCorrectFullWidthSwap(t *testing.T) {
	m := New(16)
	m.WriteDwordBE(0, 0x11223344)
	assert.Equal(t, uint32(0x11223344), m.ReadDwordBE(0))
	// Byte order really is swapped, not truncated.
	assert.Equal(t, uint8(0x11), m.ReadByte(0))
	assert.Equal(t, uint8(0x44), m.ReadByte(3))
}

func TestContains(t *testing.T) {
	m := New(16)
	assert.True(t, m.Contains(12, 4))
	assert.False(t, m.Contains(13, 4))
	assert.False(t, m.Contains(16, 1))
}

func TestNonZeroWords(t *testing.T) {
	m := New(16)
	m.WriteDwordLE(4, 0x1)
	m.WriteDwordLE(12, 0x2)

	var found []uint32
	m.NonZeroWords(16, func(addr uint32, word uint32) {
		found = append(found, addr)
	})
	assert.Equal(t, []uint32{4, 12}, found)
}

func TestNonZeroWordsRespectsLimit(t *testing.T) {
	m := New(16)
	m.WriteDwordLE(12, 0x1)

	var found []uint32
	m.NonZeroWords(8, func(addr uint32, word uint32) {
		found = append(found, addr)
	})
	assert.Empty(t, found)
}
