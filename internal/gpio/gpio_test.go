package gpio

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFselReadWrite(t *testing.T) {
	c := New()
	c.Write(fsel0, 0x7) // port 0 func = 0x7 (ALT3 or whatever, bits just round-trip)
	assert.Equal(t, uint32(0x7), c.Read(fsel0))
	assert.Equal(t, uint8(0x7), c.Ports[0].Func)
}

func TestSetClrPorts0to31(t *testing.T) {
	c := New()
	c.Write(set0, 1<<5)
	assert.True(t, c.Ports[5].State)
	assert.Equal(t, uint32(1<<5), c.Read(lev0))

	c.Write(clr0, 1<<5)
	assert.False(t, c.Ports[5].State)
}

func TestSetPorts32Plus(t *testing.T) {
	c := New()
	c.Write(set1, 1<<3)
	assert.True(t, c.Ports[35].State)
}

func TestNotifyNESOnlyFiresForSet0Clr0(t *testing.T) {
	c := New()
	var notified []int
	c.NotifyNES = func(port int, value bool) { notified = append(notified, port) }

	c.Write(set0, 1<<2)
	assert.Equal(t, []int{2}, notified)

	c.Write(set1, 1<<2)
	// Still just the one notification: SET1 never notifies.
	assert.Equal(t, []int{2}, notified)
}

func TestSetDataLineBypassesRegisters(t *testing.T) {
	c := New()
	c.SetDataLine(true)
	assert.True(t, c.Ports[4].State)
}

func TestSetTestPort(t *testing.T) {
	c := New()
	c.SetTestPort(10, 2, true)
	assert.True(t, c.Ports[12].State)
	c.SetTestPort(10, 2, false)
	assert.False(t, c.Ports[12].State)
}

func TestSetTestPortOutOfRangeIsNoop(t *testing.T) {
	c := New()
	assert.NotPanics(t, func() {
		c.SetTestPort(50, 10, true)
	})
}

func TestIsPortWiderThanImplementedRegisters(t *testing.T) {
	c := New()
	assert.True(t, c.IsPort(eds0))
	// eds0 is recognized but not implemented: reads log and return 0.
	assert.Equal(t, uint32(0), c.Read(eds0))
}

func TestIsPortRejectsOutOfRange(t *testing.T) {
	c := New()
	assert.False(t, c.IsPort(Base-4))
	assert.False(t, c.IsPort(udclk1+4))
}
