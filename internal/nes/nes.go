// Package nes emulates a NES-style gamepad exposed through three GPIO
// pins as an 8-bit parallel-to-serial shift register: LATCH loads the
// button snapshot, CLOCK shifts the next bit onto DATA. Grounded on
// original_source/nes.c and nes.h.
package nes

// GPIO pin assignments, matching nes.h.
const (
	PortLatch = 11
	PortClock = 10
	PortData  = 4
)

// Button indexes, in shift-register order.
const (
	A = iota
	B
	Select
	Start
	Up
	Down
	Left
	Right
	ButtonCount
)

// GPIOWriter is the narrow view of the GPIO controller the gamepad
// needs in order to drive the DATA pin — keeping nes from depending
// on the gpio package and creating a cyclic import, since gpio is the
// one that owns the notification callback into nes.
type GPIOWriter interface {
	SetDataLine(high bool)
}

// Key is a host key identifier, opaque to this package. The emulator
// binds ASCII character codes (' ', 'a', ...) and both host front ends
// translate their input to those codes.
type Key int

// Gamepad is the 8-button shift register plus its default key bindings.
type Gamepad struct {
	GPIO GPIOWriter

	state    [ButtonCount]bool
	bindings [ButtonCount]Key

	lastLatch, lastClock bool
	counter              int
}

// New creates a gamepad with the original's default key bindings:
// A=Space, B=Tab, Start=Enter, Select=P, Left=A, Right=D, Up=W, Down=S.
func New(gpio GPIOWriter, spaceKey, tabKey, enterKey, pKey, aKey, dKey, wKey, sKey Key) *Gamepad {
	g := &Gamepad{GPIO: gpio}
	g.bindings[A] = spaceKey
	g.bindings[B] = tabKey
	g.bindings[Start] = enterKey
	g.bindings[Select] = pKey
	g.bindings[Left] = aKey
	g.bindings[Right] = dKey
	g.bindings[Up] = wKey
	g.bindings[Down] = sKey
	return g
}

// OnKeyDown/OnKeyUp update a button's pressed state from a host key
// event, linear-searching the binding table as nes_on_key_down/up do.
func (g *Gamepad) OnKeyDown(key Key) {
	for i, bound := range g.bindings {
		if bound == key {
			g.state[i] = true
		}
	}
}

func (g *Gamepad) OnKeyUp(key Key) {
	for i, bound := range g.bindings {
		if bound == key {
			g.state[i] = false
		}
	}
}

// writeButton drives DATA with button's state, active-low (pressed →
// 0, released → 1), matching nes_write_button.
func (g *Gamepad) writeButton(button int) {
	g.GPIO.SetDataLine(!g.state[button])
}

// GPIOWrite handles a write to one of the three wired GPIO pins,
// matching nes_gpio_write's edge-triggered latch/clock handling
// exactly, including the latch handler immediately writing button 0
// and advancing the counter to 1 in the same call.
func (g *Gamepad) GPIOWrite(port int, value bool) {
	switch port {
	case PortLatch:
		if !g.lastLatch && value {
			g.counter = 0
			g.writeButton(g.counter)
			g.counter++
		}
		g.lastLatch = value
	case PortClock:
		if value && !g.lastClock {
			if g.counter < ButtonCount {
				g.writeButton(g.counter)
			} else {
				g.GPIO.SetDataLine(true)
			}
			g.counter++
		}
		g.lastClock = value
	}
}
