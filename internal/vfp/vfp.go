// Package vfp implements the VFPv2 single-precision floating point
// coprocessor (CP10): 32 single-precision registers S0-S31, the
// FPSID/FPSCR/FPEXC system registers, and the three coprocessor
// instruction classes (data processing, data transfer, register
// transfer) the ARM core dispatches to it. Grounded on
// original_source/vfp.c, including its FCPYS/FABSS extension-opcode
// swap (FCPYS computes fabs(), FABSS negates — backwards from real
// VFPv2, but reproduced exactly since spec.md directs quirks be
// preserved unless explicitly flagged otherwise).
package vfp

import (
	"math"

	"piemu/internal/cpu"
	"piemu/internal/interfaces"
	"piemu/util/dbg"
)

// Unit is the VFP register file. It holds no back-pointer to the CPU
// or emulator; DataTransfer/RegTransfer are given the CPU's Registers
// and Bus directly by the caller, matching the narrow-interface wiring
// the rest of this emulator uses instead of cyclic struct pointers.
type Unit struct {
	S [32]uint32

	FPSID uint32
	FPSCR uint32
	FPEXC uint32
}

// New returns a VFP unit with every register zeroed, matching vfp_init.
func New() *Unit {
	return &Unit{}
}

func sBits(f float32) uint32  { return math.Float32bits(f) }
func sFloat(u uint32) float32 { return math.Float32frombits(u) }

// dpFcmps compares a and b and writes the NZCV bits into FPSCR's top
// flags nibble, matching dp_fcmps's unordered/equal/less/greater cases
// exactly (mode, which distinguishes FCMPS's quiet-NaN behavior from
// FCMPES's signalling behavior, is accepted for fidelity but unused:
// the original ignores it too).
func (v *Unit) dpFcmps(a, b float32, _ uint32) {
	var flags uint32
	switch {
	case a != a || b != b:
		flags = 0x3
	case a == b:
		flags = 0x6
	case a < b:
		flags = 0x8
	default:
		flags = 0x2
	}
	v.FPSCR = (v.FPSCR &^ 0xF0000000) | (flags << 28)
}

// DataProc implements CDP: the 9 basic arithmetic opcodes plus the
// 0xF extension-opcode block (FCMPS/FCPYS/FABSS/FSQRTS/compare
// variants/int-float conversions), matching vfp_data_proc's bit
// extraction from the coprocessor instruction's CP_opcode/CP/CRd/CRn/
// CRm fields exactly.
func (v *Unit) DataProc(instr uint32) error {
	crm := instr & 0xF
	cp := (instr >> 5) & 0x7
	crd := (instr >> 12) & 0xF
	crn := (instr >> 16) & 0xF
	cpOpcode := (instr >> 20) & 0xF

	opcode := ((cpOpcode >> 3) & 0x1) << 3
	opcode |= (cpOpcode & 0x3) << 1
	opcode |= (cp >> 1) & 0x1

	fd := crd<<1 | (cpOpcode>>2)&0x1
	fn := crn<<1 | (cp>>2)&0x1
	fm := crm<<1 | cp&0x1

	var in uint32
	if opcode != 0xF {
		in = v.S[fn]
	}
	im := v.S[fm]
	o := v.S[fd]

	inF, imF, oF := sFloat(in), sFloat(im), sFloat(o)

	// result holds the raw bits to write back to Sd; set in every
	// reachable case below (dp_fcmps cases write FPSCR instead and
	// leave Sd untouched, matching the original not writing o.u there).
	result := o
	writeback := true

	switch opcode {
	case 0x0: // FMACS
		result = sBits(oF + inF*imF)
	case 0x1: // FNMACS
		result = sBits(oF - inF*imF)
	case 0x2: // FMSCS
		result = sBits(-oF + inF*imF)
	case 0x3: // FNMSCS
		result = sBits(-oF - inF*imF)
	case 0x4: // FMULS
		result = sBits(inF * imF)
	case 0x5: // FNMULS
		result = sBits(-(inF * imF))
	case 0x6: // FADDS
		result = sBits(inF + imF)
	case 0x7: // FSUBS
		result = sBits(inF - imF)
	case 0x8: // FDIVS
		result = sBits(inF / imF)
	case 0xF:
		switch fn {
		case 0x0: // FCMPS (encoded here as a raw move; see 0x8 for the comparison)
			result = im
		case 0x1: // FCPYS - swapped with FABSS in the original; computes |Sm|
			result = sBits(float32(math.Abs(float64(imF))))
		case 0x2: // FABSS - swapped with FCPYS in the original; negates Sm
			result = sBits(-imF)
		case 0x3: // FSQRTS
			result = sBits(float32(math.Sqrt(float64(imF))))
		case 0x8: // FCMPS
			v.dpFcmps(oF, imF, 0)
			writeback = false
		case 0x9: // FCMPES
			v.dpFcmps(oF, imF, 1)
			writeback = false
		case 0xA: // FCMPZS
			v.dpFcmps(oF, 0, 0)
			writeback = false
		case 0xB: // FCMPEZS
			v.dpFcmps(oF, 0, 1)
			writeback = false
		case 0x10: // FUITOS
			result = sBits(float32(im))
		case 0x11: // FSITOS
			result = sBits(float32(int32(im)))
		case 0x18: // FTOUIS
			result = uint32(math.Round(float64(imF)))
		case 0x19: // FTOUIZS
			result = uint32(math.Trunc(float64(imF)))
		case 0x1A: // FTOSIS
			result = uint32(int32(math.Round(float64(imF))))
		case 0x1B: // FTOSIZS
			result = uint32(int32(math.Trunc(float64(imF))))
		default:
			dbg.Error("Undefined VFP extension data proc instruction")
			writeback = false
		}
	default:
		return dbg.Fatal("Undefined VFP data proc instruction")
	}

	if writeback {
		v.S[fd] = result
	}
	return nil
}

func (v *Unit) dtSingle(regs *cpu.Registers, bus interfaces.Bus, fd, rn uint32, offset int32, load bool) {
	base := regs.Get(uint8(rn)) + uint32(offset<<2)
	if load {
		v.S[fd] = bus.ReadDword(base)
	} else {
		bus.WriteDword(base, v.S[fd])
	}
}

func (v *Unit) dtMultiple(regs *cpu.Registers, bus interfaces.Bus, fd, rn, count uint32, load bool, mode int) {
	base := regs.Get(uint8(rn)) &^ 0x3

	if mode == 2 {
		base -= count << 2
		regs.Set(uint8(rn), base)
	}

	for i := uint32(0); i < count; i++ {
		if load {
			v.S[fd+i] = bus.ReadDword(base + i<<2)
		} else {
			bus.WriteDword(base+i<<2, v.S[fd+i])
		}
	}

	if mode == 1 {
		regs.Set(uint8(rn), base+count<<2)
	}
}

// DataTransfer implements the single/multiple VFP load-store
// addressing modes, matching vfp_data_transfer's opcode table built
// from the p/u/w bits.
func (v *Unit) DataTransfer(instr uint32, regs *cpu.Registers, bus interfaces.Bus) error {
	offset := instr & 0xFF
	crd := (instr >> 12) & 0xF
	crn := (instr >> 16) & 0xF
	l := (instr>>20)&1 != 0
	w := (instr >> 21) & 1
	n := (instr >> 22) & 1
	u := (instr >> 23) & 1
	p := (instr >> 24) & 1

	opcode := p<<2 | u<<1 | w
	fd := crd<<1 | n
	rn := crn

	switch opcode {
	case 0x2:
		v.dtMultiple(regs, bus, fd, rn, offset, l, 0)
	case 0x3:
		v.dtMultiple(regs, bus, fd, rn, offset, l, 1)
	case 0x4:
		v.dtSingle(regs, bus, fd, rn, -int32(offset), l)
	case 0x5:
		v.dtMultiple(regs, bus, fd, rn, offset, l, 2)
	case 0x6:
		v.dtSingle(regs, bus, fd, rn, int32(offset), l)
	default:
		return dbg.Fatal("Unimplemented VFP data transfer instruction")
	}
	return nil
}

func (v *Unit) rtRegTransfer(regs *cpu.Registers, fn, rd uint32, load bool) {
	if load {
		regs.Set(uint8(rd), v.S[fn])
	} else {
		v.S[fn] = regs.Get(uint8(rd))
	}
}

// rtStatusRegTransfer implements FMXR/FMRX/FMSTAT, including the
// Rd==15-means-FMSTAT special case that copies FPSCR's top 4 flag
// bits directly into CPSR, matching rt_status_reg_transfer.
func (v *Unit) rtStatusRegTransfer(regs *cpu.Registers, fn, rd uint32, load bool) error {
	if load {
		var value uint32
		switch fn {
		case 0x0:
			value = v.FPSID
		case 0x2:
			value = v.FPSCR
		case 0x10:
			value = v.FPEXC
		default:
			return dbg.Fatal("Unrecognised VFP system register")
		}

		if rd == 15 {
			if fn != 0x2 {
				return dbg.Fatal("Cannot copy to r15")
			}
			regs.SetCPSR((regs.CPSR() & 0x0FFFFFFF) | (value & 0xF0000000))
			return nil
		}
		regs.Set(uint8(rd), value)
		return nil
	}

	value := regs.Get(uint8(rd))
	switch fn {
	case 0x0:
		v.FPSID = value
	case 0x2:
		v.FPSCR = value
	case 0x10:
		v.FPEXC = value
	default:
		return dbg.Fatal("Unrecognised VFP system register")
	}
	return nil
}

// RegTransfer implements FMSR/FMRS (opcode 0) and FMXR/FMRX/FMSTAT
// (opcode 7), matching vfp_reg_transfer.
func (v *Unit) RegTransfer(instr uint32, regs *cpu.Registers) error {
	cp := (instr >> 5) & 0x7
	rd := (instr >> 12) & 0xF
	crn := (instr >> 16) & 0xF
	l := (instr>>20)&1 != 0
	cpOpcode := (instr >> 21) & 0x7

	fn := crn<<1 | (cp>>2)&0x1

	switch cpOpcode {
	case 0x0:
		v.rtRegTransfer(regs, fn, rd, l)
		return nil
	case 0x7:
		return v.rtStatusRegTransfer(regs, fn, rd, l)
	default:
		return dbg.Fatal("Unimplemented VFP reg transfer instruction")
	}
}

// Dump writes every S register's float value to dbg.Info, matching
// vfp_dump.
func (v *Unit) Dump() {
	for i, u := range v.S {
		dbg.Info("s%02d: %f", i, sFloat(u))
	}
}
