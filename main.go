// Command piemu is a user-space emulator for a Raspberry Pi-class
// 32-bit ARM platform: an ARMv6/v7-A integer core, a VFPv2 coprocessor,
// GPIO, the VideoCore mailbox/framebuffer protocol, the AUX mini-UART
// and an NES-style gamepad. Grounded on original_source/main.c's
// cmdline_parse/cmdline_check, reworked from getopt_long onto cobra,
// matching the rest of this codebase's CLI conventions.
package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"piemu/internal/emulator"
	"piemu/internal/presentation"
	"piemu/internal/termhost"
)

var memSizeArg string

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cfg := emulator.NewConfig()

	cmd := &cobra.Command{
		Use:           "piemu [flags] image",
		Short:         "Emulate a Raspberry Pi-class ARM platform",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg.Image = args[0]

			size, err := parseMemSize(memSizeArg)
			if err != nil {
				return err
			}
			cfg.MemSize = size

			return run(cfg, cmd.Flags().Changed("gpio-test"))
		},
	}

	// cobra's --help prints usage and exits 0, unlike the original's
	// cmdline_check, whose `emu->usage` branch returns 0 and causes
	// main to report EXIT_FAILURE even though usage was deliberately
	// requested. That quirk is not reproduced here (see DESIGN.md).
	cmd.Flags().BoolVar(&cfg.Quiet, "quiet", false, "Does not dump CPU state")
	cmd.Flags().BoolVar(&cfg.Graphics, "graphics", false, "Emulate framebuffer")
	cmd.Flags().BoolVar(&cfg.NESEnabled, "nes", false, "Emulate NES gamepad on GPIO")
	cmd.Flags().StringVar(&memSizeArg, "memory", "64k", "Memory size in bytes (k/m suffix allowed)")
	cmd.Flags().Uint32Var(&cfg.StartAddr, "addr", 0, "Kernel start address")
	cmd.Flags().IntVar(&cfg.GPIOTestOffset, "gpio-test", 0, "GPIO port offset for the keys 1-9 test harness")

	return cmd
}

// parseMemSize reproduces cmdline_parse's memory-size suffix handling:
// a trailing 'k'/'K' multiplies by 1024, 'm'/'M' by 1024*1024,
// anything else is a plain byte count.
func parseMemSize(s string) (uint32, error) {
	if s == "" {
		return 0, fmt.Errorf("invalid memory size %q", s)
	}

	suffix := s[len(s)-1]
	digits := s
	var mult uint64 = 1
	switch suffix {
	case 'm', 'M':
		digits = s[:len(s)-1]
		mult = 1024 * 1024
	case 'k', 'K':
		digits = s[:len(s)-1]
		mult = 1024
	}

	n, err := strconv.ParseUint(strings.TrimSpace(digits), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid memory size %q", s)
	}
	return uint32(n * mult), nil
}

func run(cfg emulator.Config, gpioTest bool) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	emu := emulator.New(cfg)

	if err := emu.Load(cfg.Image); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		return err
	}

	var runErr error
	if cfg.Graphics {
		runErr = runGraphical(emu, cfg, gpioTest)
	} else {
		runErr = runHeadless(emu, cfg)
	}
	if runErr != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", runErr)
	}

	if !cfg.Quiet {
		emu.Dump()
	}

	if runErr != nil {
		return runErr
	}
	return nil
}

// runHeadless drives the emulator with no window. When --nes is set,
// a raw-terminal keystroke host takes the place of fb_tick's SDL
// keyboard routing, since there is no window to capture key events
// from; it is not started otherwise, leaving stdin in its normal
// cooked mode for the debug REPL.
func runHeadless(emu *emulator.Emulator, cfg emulator.Config) error {
	if !cfg.NESEnabled {
		return emu.Run()
	}

	host := termhost.New(emu.GPIO, emu.NES, cfg.GPIOTestOffset)
	if err := host.Start(); err != nil {
		return emu.Run()
	}
	defer host.Stop()

	return emu.Run()
}

// instructionsPerUpdate is how many CPU instructions runGraphical
// executes per ebiten Update call. The original drives cpu_tick from a
// tight, unthrottled while loop; ebiten instead calls Update once per
// display refresh, so a batch size is needed to keep the guest
// running at a reasonable instruction rate under that callback model.
const instructionsPerUpdate = 20000

// runGraphical drives the emulator inside an ebiten window, matching
// main's tick loop plus emulator_tick's fb_tick refresh when
// --graphics is set. Keys 1-9 drive GPIO test ports only when
// --gpio-test was given.
func runGraphical(emu *emulator.Emulator, cfg emulator.Config, gpioTest bool) error {
	var tickErr error
	var testPorts presentation.GPIOTestPorts
	if gpioTest {
		testPorts = emu.GPIO
	}
	game := presentation.NewGame(
		emu.Framebuffer,
		testPorts,
		emu.NES,
		cfg.NESEnabled,
		cfg.GPIOTestOffset,
		func() bool {
			for i := 0; i < instructionsPerUpdate; i++ {
				if err := emu.Tick(func() {}); err != nil {
					tickErr = err
					return true
				}
				if !emu.Running() {
					return true
				}
			}
			return false
		},
	)

	if err := presentation.Run(game); err != nil {
		return err
	}

	return tickErr
}
