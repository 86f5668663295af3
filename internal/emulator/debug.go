package emulator

import (
	"bufio"
	"fmt"
	"os"
)

// debugBreak implements the WFI-triggered debug REPL, matching
// debug_break's exact command grammar: c/v/e dump state; sa<n>/sd<n>
// print the last n stack words ascending/descending; ma<n>r<r>/
// md<n>r<r> print n words at the address in register r; q quits;
// anything else resumes execution. It returns true to request
// termination (the "q" command), matching cpu_tick's
// `if (cpu->emu->on_breakpoint()) { ...ErrTerminated }` wiring.
func (e *Emulator) debugBreak() (quit bool) {
	if e.debugIn == nil {
		e.debugIn = bufio.NewReader(os.Stdin)
	}
	in := e.debugIn

	fmt.Println("Breakpoint reached!")
	fmt.Println("Commands")
	fmt.Println("\tc         - Dump CPU")
	fmt.Println("\tv         - Dump VFP")
	fmt.Println("\te         - Dump Emulator")
	fmt.Println("\tsa<n>     - Dump last n words on the stack (asc)")
	fmt.Println("\tsd<n>     - Dump last n words on the stack (dsc)")
	fmt.Println("\tma<n>r<r> - Dump n words at memory address in register r (asc)")
	fmt.Println("\tmd<n>r<r> - Dump n words at memory address in register r (dsc)")
	fmt.Println("\tq         - Quit the emulator")

	for {
		fmt.Println()
		fmt.Print("Enter a command: ")

		line, err := in.ReadString('\n')
		if err != nil && line == "" {
			return true
		}

		switch {
		case len(line) > 0 && line[0] == 'c':
			e.CPU.Dump()
		case len(line) > 0 && line[0] == 'e':
			e.Dump()
		case len(line) > 0 && line[0] == 'v':
			e.VFP.Dump()
		case len(line) > 1 && line[0] == 's' && line[1] == 'a':
			e.dumpStack(line[2:], true)
		case len(line) > 1 && line[0] == 's' && line[1] == 'd':
			e.dumpStack(line[2:], false)
		case len(line) > 1 && line[0] == 'm' && line[1] == 'a':
			e.dumpMemoryAt(line[2:], true)
		case len(line) > 1 && line[0] == 'm' && line[1] == 'd':
			e.dumpMemoryAt(line[2:], false)
		case len(line) > 0 && line[0] == 'q':
			return true
		default:
			return false
		}
	}
}

const stackPointerReg = 13

// dumpStack prints n words addressed from SP, n parsed from arg.
// ascending prints the n words at and below SP (SP-0, SP-4, ...),
// matching debug_break's 's'+'a' branch; descending prints the n
// words at and above SP, from SP+4(n-1) down to SP+0, matching the
// 's'+'d' branch.
func (e *Emulator) dumpStack(arg string, ascending bool) {
	var n uint32
	fmt.Sscanf(arg, "%d", &n)
	e.dumpWords(e.CPU.Regs.Get(stackPointerReg), n, ascending, "SP")
}

// dumpMemoryAt prints n words addressed from register r, parsed from
// an "<n>r<r>" argument, matching debug_break's 'm'+'a'/'m'+'d'
// branches.
func (e *Emulator) dumpMemoryAt(arg string, ascending bool) {
	var n, r uint32
	fmt.Sscanf(arg, "%dr%d", &n, &r)
	e.dumpWords(e.CPU.Regs.Get(uint8(r)), n, ascending, fmt.Sprintf("r%d", r))
}

func (e *Emulator) dumpWords(addr uint32, n uint32, ascending bool, label string) {
	n <<= 2
	for i := uint32(0); i < n; i += 4 {
		var offset, printed uint32
		if ascending {
			offset = -i
			printed = i
		} else {
			offset = n - i - 4
			printed = offset
		}
		a := addr + offset
		data := e.Bus.ReadDword(a)
		sign := "-"
		if !ascending {
			sign = "+"
		}
		fmt.Printf("%s%s%-2d \t0x%08x : 0x%08x : '%c%c%c%c'\n",
			label, sign, printed, a, data,
			byte(data>>24), byte(data>>16), byte(data>>8), byte(data))
	}
}
