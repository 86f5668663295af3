// Package cpu implements the ARMv6/v7-A integer core: register file,
// condition evaluation, barrel shifter and the full instruction set
// this emulator supports (data processing, multiply, PSR transfer,
// block/single/halfword data transfer, swap, branch/exchange,
// software interrupt, undefined-instruction trap and coprocessor
// dispatch). Grounded on original_source/cpu.c, whose bitmask
// discriminators in cpu_tick this package's decode table reproduces
// exactly. THUMB decoding is out of scope, matching spec.md's
// Non-goals.
package cpu

import (
	"errors"

	"piemu/internal/interfaces"
	"piemu/util/dbg"
)

// ErrTerminated is returned by Tick when the guest program has
// signalled normal termination (a zero instruction word), matching
// cpu_tick's `if (instr == 0) { cpu->emu->terminated = 1; return; }`.
var ErrTerminated = errors.New("cpu: terminated")

// pldEncoding is the single PLD opcode this core recognizes and
// silently ignores, matching cpu_tick's `if (instr == 0xf5d1f100)`.
const pldEncoding = 0xf5d1f100

// wfiMask/wfiEncoding recognize a WFI instruction (repurposed as a
// "breakpoint" instruction for the debug REPL), matching cpu_tick's
// `if ((instr & 0x0fff00ff) == 0x03200003)`.
const (
	wfiMask     = 0x0fff00ff
	wfiEncoding = 0x03200003
)

// Coprocessor is the narrow view of the VFP unit the CPU dispatches
// coprocessor instructions to. It is defined here, not in the vfp
// package, so cpu does not import vfp (vfp imports cpu for
// Registers); internal/emulator wires a *vfp.Unit into CPU.VFP.
type Coprocessor interface {
	DataProc(instr uint32) error
	DataTransfer(instr uint32, regs *Registers, bus interfaces.Bus) error
	RegTransfer(instr uint32, regs *Registers) error
}

// CPU ties the register file, address bus and VFP coprocessor
// together into a single fetch-decode-execute step. It holds no
// back-pointer to an owning emulator struct: OnBreakpoint is supplied
// as a callback, invoked when guest code executes the WFI breakpoint
// encoding, and its return value (true to quit) is surfaced to the
// caller as ErrTerminated.
type CPU struct {
	Regs *Registers
	Bus  interfaces.Bus
	VFP  Coprocessor

	OnBreakpoint func() (quit bool)

	err error
}

// New creates a CPU with a freshly reset register file and sets PC to
// startAddr, matching cpu_init.
func New(bus interfaces.Bus, startAddr uint32) *CPU {
	regs := NewRegisters()
	regs.SetPC(startAddr)
	return &CPU{Regs: regs, Bus: bus}
}

// Tick fetches, decodes and executes a single instruction, matching
// cpu_tick. It returns ErrTerminated on normal termination (including
// a breakpoint "q" quit) or a *dbg.FatalError if execution hit an
// unrecoverable condition.
func (cpu *CPU) Tick() error {
	cpu.err = nil

	pc := cpu.Regs.PC()
	instr := cpu.Bus.ReadDword(pc)
	cpu.Regs.SetPC(pc + 4)

	if instr == 0 {
		return ErrTerminated
	}
	if instr == pldEncoding {
		return nil
	}
	if !checkCond(cpu.Regs, instr>>28) {
		return nil
	}

	if instr&wfiMask == wfiEncoding && cpu.OnBreakpoint != nil {
		if cpu.OnBreakpoint() {
			return ErrTerminated
		}
	}

	switch (instr >> 24) & 0xF {
	case 0x0, 0x1, 0x2, 0x3:
		cpu.decodeGroup0(instr)
	case 0x4, 0x5, 0x6, 0x7:
		if instr&0x0E000010 == 0x06000010 {
			cpu.execUndefined()
		} else {
			cpu.execSingleDataTransfer(instr)
		}
	case 0x8, 0x9:
		cpu.execBlockDataTransfer(instr)
	case 0xA, 0xB:
		cpu.execBranch(instr)
	case 0xC, 0xD:
		cpu.execCoprocDataTransfer(instr)
	case 0xE:
		if instr&0x10 == 0 {
			cpu.execCoprocDataProc(instr)
		} else {
			cpu.execCoprocRegTransfer(instr)
		}
	case 0xF:
		cpu.execSWI()
	}

	return cpu.err
}

// decodeGroup0 resolves the data-processing/multiply/PSR-transfer/
// halfword-transfer overlap in instruction bits [27:24]==0x0-0x3,
// matching cpu_tick's first switch case in their exact probe order.
func (cpu *CPU) decodeGroup0(instr uint32) {
	switch {
	case instr&0x0FFFFFF0 == 0x012FFF10:
		cpu.execBranchExchange(instr)
	case instr&0x0FC000F0 == 0x00000090:
		cpu.execMultiply(instr)
	case instr&0x0FC000F0 == 0x00800090:
		cpu.execMultiplyLong(instr)
	case instr&0x0F400FF0 == 0x01000090:
		cpu.execSingleDataSwap(instr)
	case instr&0x003F0FFF == 0x000F0000:
		cpu.execMRS(instr)
	case instr&0x0FBFFFF0 == 0x0129F000:
		cpu.execMSR(instr)
	case instr&0x0DBFF000 == 0x0128F000:
		cpu.execMSRFlags(instr)
	case instr&0x0E400F90 == 0x00000090:
		cpu.execHwSdTransfer(instr)
	case instr&0x0E400090 == 0x00400090:
		cpu.execHwSdTransfer(instr)
	default:
		cpu.execDataProcessing(instr)
	}
}

// Dump writes the full register file to dbg.Info in cpu_dump's
// format: R0-R12, the pipelined PC and CPSR with the mode bits masked
// out.
func (cpu *CPU) Dump() {
	r := cpu.Regs
	dbg.Info("Registers:")
	for i := uint8(0); i <= 12; i++ {
		v := r.Get(i)
		dbg.Info("$%-3d: %10d (0x%08x)", i, int32(v), v)
	}
	pc := r.Get(15)
	dbg.Info("PC  : %10d (0x%08x)", int32(pc), pc)
	cpsr := r.CPSR() &^ 0x1F
	dbg.Info("CPSR: %10d (0x%08x)", int32(cpsr), cpsr)
}
