package aux

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEnablesRoundTrip(t *testing.T) {
	p := New()
	p.Write(enables, 0x5) // uart + spi2
	v := p.Read(enables)
	assert.Equal(t, uint32(0x5), v)
}

func TestLSRAlwaysReportsTransmitterIdle(t *testing.T) {
	p := New()
	assert.Equal(t, uint32(0x60), p.Read(muLSR))
}

func TestOutputCallbackFiresOnMuIOWrite(t *testing.T) {
	p := New()
	var got []byte
	p.Output = func(c byte) { got = append(got, c) }

	p.Write(muLCR, 0x1) // 8 data bits, irrelevant to output routing
	p.Write(muIO, 'A')

	assert.Equal(t, []byte{'A'}, got)
}

// TestIERBaudMSBQuirk preserves the original's bug: writing the IER
// register while DLAB is set always contributes zero to the baud
// divisor's high byte, since the write right-shifts an already-8-bit
// value by 8.
func TestIERBaudMSBQuirk(t *testing.T) {
	p := New()
	p.uartDLAB = true
	p.Write(muIO, 0x34) // set the baud rate's low byte
	p.Write(muIER, 0xFF) // attempt to set the high byte via IER

	assert.Equal(t, uint16(0x34), p.uartBaudRate)
}

func TestIERSharedIRQBit(t *testing.T) {
	p := New()
	p.uartDLAB = false
	p.Write(muIER, 0x1)
	assert.True(t, p.irqRx)
	assert.True(t, p.irqTx)

	v := p.Read(muIER)
	assert.Equal(t, uint32(0x3), v)
}

func TestIsPortRange(t *testing.T) {
	p := New()
	assert.True(t, p.IsPort(Base))
	assert.True(t, p.IsPort(spi1CNTL1))
	assert.False(t, p.IsPort(Base-4))
	assert.False(t, p.IsPort(spi1CNTL1+4))
}

func TestLCRSetsWordLength(t *testing.T) {
	p := New()
	p.Write(muLCR, 0x1)
	assert.Equal(t, uint8(8), p.uartBits)
	p.Write(muLCR, 0x0)
	assert.Equal(t, uint8(7), p.uartBits)
}
