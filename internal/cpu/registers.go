package cpu

import "piemu/util/dbg"

// CPU operating modes, matching original_source/cpu.h's armMode_t enum
// values exactly (the low 5 bits of CPSR).
const (
	ModeUSR = 0x10
	ModeFIQ = 0x11
	ModeIRQ = 0x12
	ModeSVC = 0x13
	ModeABT = 0x17
	ModeUND = 0x1B
	ModeSYS = 0x1F
)

// CPSR bit positions.
const (
	cpsrN = 31
	cpsrZ = 30
	cpsrC = 29
	cpsrV = 28
	cpsrI = 7
	cpsrF = 6
	cpsrT = 5
)

// Registers is the ARMv6/v7-A banked register file: R0-R7 are never
// banked, R8-R12 bank only in FIQ mode, R13(SP)/R14(LR) bank across
// USR/SYS (shared), FIQ, IRQ, SVC, ABT and UND. Grounded on
// original_source/cpu.c's cpu_read_register/cpu_write_register and
// cpu.h's r_usr/r_fiq/r_irq/r_svc/r_abt/r_und unions.
type Registers struct {
	usr [13]uint32 // R0-R12 for every mode except FIQ's R8-R12
	fiq [5]uint32  // R8_fiq-R12_fiq

	spUsr, lrUsr uint32
	spFiq, lrFiq uint32
	spIrq, lrIrq uint32
	spSvc, lrSvc uint32
	spAbt, lrAbt uint32
	spUnd, lrUnd uint32

	pc uint32

	cpsr uint32

	spsrFiq, spsrIrq, spsrSvc, spsrAbt, spsrUnd uint32
}

// NewRegisters returns a reset register file: SVC mode, IRQ/FIQ
// disabled, all GPRs zero.
func NewRegisters() *Registers {
	r := &Registers{}
	r.cpsr = ModeSVC | (1 << cpsrI) | (1 << cpsrF)
	return r
}

func (r *Registers) Mode() uint32 { return r.cpsr & 0x1F }

// ChangeMode sets the mode field of CPSR. Only USR..SYS (0x10-0x1F)
// are valid, matching change_mode's fatal-on-invalid-mode check.
func (r *Registers) ChangeMode(mode uint32) error {
	if mode < ModeUSR || mode > ModeSYS {
		return dbg.Fatal("Invalid mode 0x%x", mode)
	}
	r.cpsr = (r.cpsr &^ 0x1F) | mode
	return nil
}

// Get reads general-purpose register reg (0-15). R15 returns the
// pipelined PC (PC+4), matching cpu_read_register's `r_usr.reg.pc + 4`.
func (r *Registers) Get(reg uint8) uint32 {
	if reg == 15 {
		return r.pc + 4
	}
	if reg >= 8 && reg <= 12 && r.Mode() == ModeFIQ {
		return r.fiq[reg-8]
	}
	if reg == 13 {
		return *r.spBank()
	}
	if reg == 14 {
		return *r.lrBank()
	}
	return r.usr[reg]
}

// Set writes general-purpose register reg. R15 is written directly
// (not pipelined), matching cpu_write_register's PC branch.
func (r *Registers) Set(reg uint8, value uint32) {
	if reg == 15 {
		r.pc = value
		return
	}
	if reg >= 8 && reg <= 12 && r.Mode() == ModeFIQ {
		r.fiq[reg-8] = value
		return
	}
	if reg == 13 {
		*r.spBank() = value
		return
	}
	if reg == 14 {
		*r.lrBank() = value
		return
	}
	r.usr[reg] = value
}

func (r *Registers) spBank() *uint32 {
	switch r.Mode() {
	case ModeUSR, ModeSYS:
		return &r.spUsr
	case ModeFIQ:
		return &r.spFiq
	case ModeIRQ:
		return &r.spIrq
	case ModeSVC:
		return &r.spSvc
	case ModeABT:
		return &r.spAbt
	case ModeUND:
		return &r.spUnd
	default:
		return &r.spUsr
	}
}

func (r *Registers) lrBank() *uint32 {
	switch r.Mode() {
	case ModeUSR, ModeSYS:
		return &r.lrUsr
	case ModeFIQ:
		return &r.lrFiq
	case ModeIRQ:
		return &r.lrIrq
	case ModeSVC:
		return &r.lrSvc
	case ModeABT:
		return &r.lrAbt
	case ModeUND:
		return &r.lrUnd
	default:
		return &r.lrUsr
	}
}

// GetUserBank reads R0-R14 from the USR bank regardless of current
// mode, used by LDM/STM's S-bit handling. R15 is not banked and reads
// as Get(15) does.
func (r *Registers) GetUserBank(reg uint8) uint32 {
	if reg == 15 {
		return r.pc + 4
	}
	if reg == 13 {
		return r.spUsr
	}
	if reg == 14 {
		return r.lrUsr
	}
	return r.usr[reg]
}

// SetUserBank writes R0-R14 into the USR bank regardless of current
// mode, used by LDM/STM's S-bit handling. R15 is not banked and is
// written as Set(15) does.
func (r *Registers) SetUserBank(reg uint8, value uint32) {
	if reg == 15 {
		r.pc = value
		return
	}
	if reg == 13 {
		r.spUsr = value
		return
	}
	if reg == 14 {
		r.lrUsr = value
		return
	}
	r.usr[reg] = value
}

// PC returns the raw (non-pipelined) program counter.
func (r *Registers) PC() uint32 { return r.pc }

// SetPC sets the raw program counter.
func (r *Registers) SetPC(v uint32) { r.pc = v }

// CPSR returns the full current program status register.
func (r *Registers) CPSR() uint32 { return r.cpsr }

// SetCPSR replaces the full CPSR.
func (r *Registers) SetCPSR(v uint32) { r.cpsr = v }

// SPSR reads the saved program status register for the current mode.
// Returns 0 for USR/SYS, which have none, matching read_spsr's
// non-fatal error path.
func (r *Registers) SPSR() uint32 {
	switch r.Mode() {
	case ModeFIQ:
		return r.spsrFiq
	case ModeIRQ:
		return r.spsrIrq
	case ModeSVC:
		return r.spsrSvc
	case ModeABT:
		return r.spsrAbt
	case ModeUND:
		return r.spsrUnd
	default:
		dbg.Error("No SPSR in mode 0x%x", r.Mode())
		return 0
	}
}

// SetSPSR writes the saved program status register for the current
// mode. No-op for USR/SYS.
func (r *Registers) SetSPSR(v uint32) {
	switch r.Mode() {
	case ModeFIQ:
		r.spsrFiq = v
	case ModeIRQ:
		r.spsrIrq = v
	case ModeSVC:
		r.spsrSvc = v
	case ModeABT:
		r.spsrAbt = v
	case ModeUND:
		r.spsrUnd = v
	default:
		dbg.Error("No SPSR in mode 0x%x", r.Mode())
	}
}

func (r *Registers) flag(bit uint) bool { return (r.cpsr>>bit)&1 != 0 }

func (r *Registers) setFlag(bit uint, v bool) {
	if v {
		r.cpsr |= 1 << bit
	} else {
		r.cpsr &^= 1 << bit
	}
}

func (r *Registers) N() bool { return r.flag(cpsrN) }
func (r *Registers) Z() bool { return r.flag(cpsrZ) }
func (r *Registers) C() bool { return r.flag(cpsrC) }
func (r *Registers) V() bool { return r.flag(cpsrV) }

func (r *Registers) SetN(v bool) { r.setFlag(cpsrN, v) }
func (r *Registers) SetZ(v bool) { r.setFlag(cpsrZ, v) }
func (r *Registers) SetC(v bool) { r.setFlag(cpsrC, v) }
func (r *Registers) SetV(v bool) { r.setFlag(cpsrV, v) }
