// Package presentation implements the optional graphical front end:
// an ebiten window presenting the guest framebuffer and routing
// keyboard input back into the emulator, behind the --graphics flag.
// Grounded on original_source/bcm2835/framebuffer.c's fb_tick, whose
// SDL event loop (SDL_QUIT terminates, keys 1-9 toggle GPIO test
// ports, all other keys route to the NES gamepad when enabled) this
// reproduces using ebiten's Update/Draw callback model instead of a
// blocking SDL_PollEvent loop — the architectural adjustment an
// ebiten-backed front end requires, per spec.md §9's guidance to
// adapt rather than force SDL's inversion-of-control shape onto Go.
package presentation

import (
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"

	"piemu/internal/nes"
)

const (
	windowWidth  = 640
	windowHeight = 480
)

// GPIOTestPorts is the narrow view of the GPIO controller needed to
// drive the keys-1-9 test harness.
type GPIOTestPorts interface {
	SetTestPort(offset int, key int, high bool)
}

// FrameSource is the narrow view of the framebuffer the presentation
// layer reads pixels from.
type FrameSource interface {
	GetPixel(x, y uint32) (r, g, b uint8)
	Dimensions() (w, h uint32)
}

// Game adapts the emulator's tick loop and framebuffer to ebiten's
// Game interface.
type Game struct {
	FB   FrameSource
	GPIO GPIOTestPorts
	NES  *nes.Gamepad

	GPIOTestOffset int
	NESEnabled     bool

	// Tick runs one "frame's worth" of CPU execution and reports
	// whether the guest has terminated.
	Tick func() (terminated bool)

	terminated bool
}

// NewGame wires a presentation Game. gpio and nesPad may be nil if
// their respective features are unused.
func NewGame(fb FrameSource, gpio GPIOTestPorts, nesPad *nes.Gamepad, nesEnabled bool, gpioTestOffset int, tick func() bool) *Game {
	return &Game{
		FB:             fb,
		GPIO:           gpio,
		NES:            nesPad,
		NESEnabled:     nesEnabled,
		GPIOTestOffset: gpioTestOffset,
		Tick:           tick,
	}
}

// Update advances the emulator by one display frame's worth of CPU
// execution and routes keyboard state, matching fb_tick's per-event
// dispatch with ebiten's per-frame input snapshot instead.
func (g *Game) Update() error {
	if g.terminated {
		return ebiten.Termination
	}

	g.routeTestKeys()
	g.routeNESKeys()

	if g.Tick != nil && g.Tick() {
		g.terminated = true
	}
	return nil
}

// testKeys maps ebiten.Key1..Key9 to GPIO test ports 0-8, matching
// fb_tick's `SDLK_1 ... SDLK_9` range.
var testKeys = []ebiten.Key{
	ebiten.Key1, ebiten.Key2, ebiten.Key3, ebiten.Key4, ebiten.Key5,
	ebiten.Key6, ebiten.Key7, ebiten.Key8, ebiten.Key9,
}

func (g *Game) routeTestKeys() {
	if g.GPIO == nil {
		return
	}
	for i, k := range testKeys {
		if ebiten.IsKeyPressed(k) {
			g.GPIO.SetTestPort(g.GPIOTestOffset, i, true)
		} else {
			g.GPIO.SetTestPort(g.GPIOTestOffset, i, false)
		}
	}
}

// nesKeys are the ebiten keys polled for the NES gamepad; nesKeyCodes
// holds, at the same index, the ASCII code that emulator.New binds in
// nes.Gamepad for that key, so the nes package never sees ebiten key
// codes.
var nesKeys = []ebiten.Key{
	ebiten.KeySpace, ebiten.KeyTab, ebiten.KeyEnter, ebiten.KeyP,
	ebiten.KeyA, ebiten.KeyD, ebiten.KeyW, ebiten.KeyS,
}

var nesKeyCodes = []nes.Key{' ', '\t', '\r', 'p', 'a', 'd', 'w', 's'}

func (g *Game) routeNESKeys() {
	if !g.NESEnabled || g.NES == nil {
		return
	}
	for i, k := range nesKeys {
		key := nesKeyCodes[i]
		if ebiten.IsKeyPressed(k) {
			g.NES.OnKeyDown(key)
		} else {
			g.NES.OnKeyUp(key)
		}
	}
}

// Draw paints the guest framebuffer into the window, matching
// put_pixel/fb_tick's per-pixel blit. Pixels outside the guest's
// reported dimensions are left black.
func (g *Game) Draw(screen *ebiten.Image) {
	screen.Fill(color.Black)
	if g.FB == nil {
		return
	}
	w, h := g.FB.Dimensions()
	if w == 0 || h == 0 {
		return
	}
	for y := uint32(0); y < h && y < windowHeight; y++ {
		for x := uint32(0); x < w && x < windowWidth; x++ {
			r, gr, b := g.FB.GetPixel(x, y)
			screen.Set(int(x), int(y), color.RGBA{r, gr, b, 255})
		}
	}
}

// Layout fixes the window to the original's 640x480 SDL surface size.
func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	return windowWidth, windowHeight
}

// Run launches the ebiten window with the original's caption. It
// blocks until the game terminates.
func Run(g *Game) error {
	ebiten.SetWindowSize(windowWidth, windowHeight)
	ebiten.SetWindowTitle("Raspberry Pi Emulator")
	return ebiten.RunGame(g)
}
