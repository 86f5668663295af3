// Package termhost routes host keypresses into the emulator when no
// graphical front end is running: raw terminal input driving the same
// "keys 1-9 toggle a GPIO test port, everything else routes to the NES
// gamepad" scheme fb_tick implements for the SDL window, for the
// --graphics=false + --nes case where there is no window to capture
// key events from. Grounded on
// IntuitionAmiga-IntuitionEngine/terminal_host.go's raw-mode,
// non-blocking stdin reader.
package termhost

import (
	"os"
	"syscall"
	"time"

	"golang.org/x/term"

	"piemu/internal/nes"
)

// GPIOTestPorts is the narrow view of the GPIO controller needed to
// drive the keys-1-9 test harness, matching
// presentation.GPIOTestPorts so both front ends share one contract.
type GPIOTestPorts interface {
	SetTestPort(offset int, key int, high bool)
}

// pressDuration is how long a raw terminal keystroke is treated as
// "held": unlike a windowed key event, a raw stdin read carries no
// key-up signal, so each byte read is modeled as a brief press/release
// pulse rather than a sustained level.
const pressDuration = 50 * time.Millisecond

// Host reads stdin in raw, non-blocking mode and routes bytes to the
// GPIO test harness or the NES gamepad.
type Host struct {
	GPIO           GPIOTestPorts
	NES            *nes.Gamepad
	GPIOTestOffset int

	fd           int
	nonblockSet  bool
	oldTermState *term.State
	stopCh       chan struct{}
	done         chan struct{}
}

// New creates a Host. gpio and nesPad may be nil if their respective
// features are unused.
func New(gpio GPIOTestPorts, nesPad *nes.Gamepad, gpioTestOffset int) *Host {
	return &Host{
		GPIO:           gpio,
		NES:            nesPad,
		GPIOTestOffset: gpioTestOffset,
		stopCh:         make(chan struct{}),
		done:           make(chan struct{}),
	}
}

// Start puts stdin into raw, non-blocking mode and begins routing
// keystrokes in a background goroutine. Call Stop to restore stdin.
func (h *Host) Start() error {
	h.fd = int(os.Stdin.Fd())

	oldState, err := term.MakeRaw(h.fd)
	if err != nil {
		close(h.done)
		return err
	}
	h.oldTermState = oldState

	if err := syscall.SetNonblock(h.fd, true); err != nil {
		_ = term.Restore(h.fd, h.oldTermState)
		h.oldTermState = nil
		close(h.done)
		return err
	}
	h.nonblockSet = true

	go h.run()
	return nil
}

func (h *Host) run() {
	defer close(h.done)
	buf := make([]byte, 1)

	for {
		select {
		case <-h.stopCh:
			return
		default:
		}

		n, err := syscall.Read(h.fd, buf)
		if n > 0 {
			h.route(buf[0])
		}
		if err == syscall.EAGAIN || err == syscall.EWOULDBLOCK {
			time.Sleep(5 * time.Millisecond)
			continue
		}
		if err != nil {
			return
		}
		if n == 0 {
			time.Sleep(5 * time.Millisecond)
		}
	}
}

// route dispatches one raw keystroke, matching fb_tick's SDLK_1..
// SDLK_9-vs-everything-else branch: digits 1-9 pulse a GPIO test port,
// anything else is a tap on the NES gamepad.
func (h *Host) route(b byte) {
	if b >= '1' && b <= '9' {
		port := int(b - '1')
		if h.GPIO != nil {
			h.GPIO.SetTestPort(h.GPIOTestOffset, port, true)
			go func() {
				time.Sleep(pressDuration)
				h.GPIO.SetTestPort(h.GPIOTestOffset, port, false)
			}()
		}
		return
	}

	if h.NES != nil {
		key := nes.Key(b)
		h.NES.OnKeyDown(key)
		go func() {
			time.Sleep(pressDuration)
			h.NES.OnKeyUp(key)
		}()
	}
}

// Stop terminates the reader goroutine and restores stdin to its
// original (cooked, blocking) mode, matching TerminalHost.Stop.
func (h *Host) Stop() {
	close(h.stopCh)
	<-h.done
	if h.nonblockSet {
		_ = syscall.SetNonblock(h.fd, false)
		h.nonblockSet = false
	}
	if h.oldTermState != nil {
		_ = term.Restore(h.fd, h.oldTermState)
		h.oldTermState = nil
	}
}
