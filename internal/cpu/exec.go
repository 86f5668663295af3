package cpu

import "piemu/util/dbg"

// Condition code evaluation, matching original_source/cpu.c's
// check_cond. Condition 0xF ("never"/reserved) is treated as false
// rather than fatal, per spec.md's decision to not kill the emulator
// over a reserved encoding a real kernel never emits.
func checkCond(r *Registers, cc uint32) bool {
	switch cc {
	case 0x0:
		return r.Z()
	case 0x1:
		return !r.Z()
	case 0x2:
		return r.C()
	case 0x3:
		return !r.C()
	case 0x4:
		return r.N()
	case 0x5:
		return !r.N()
	case 0x6:
		return r.V()
	case 0x7:
		return !r.V()
	case 0x8:
		return r.C() && !r.Z()
	case 0x9:
		return !r.C() || r.Z()
	case 0xA:
		return r.N() == r.V()
	case 0xB:
		return r.N() != r.V()
	case 0xC:
		return !r.Z() && r.N() == r.V()
	case 0xD:
		return r.Z() || r.N() != r.V()
	case 0xE:
		return true
	default:
		return false
	}
}

// readSPSR/writeSPSR/changeMode wrap the Registers accessors with the
// CPU's sticky-fatal discipline for the invalid-mode case.
func (cpu *CPU) changeMode(mode uint32) {
	if err := cpu.Regs.ChangeMode(mode); err != nil {
		cpu.setErr(err)
	}
}

func (cpu *CPU) setErr(err error) {
	if cpu.err == nil {
		cpu.err = err
	}
}

func (cpu *CPU) fatal(format string, a ...interface{}) {
	cpu.setErr(dbg.Fatal(format, a...))
}

// execMultiplyLong implements MULL/MLAL (UMULL/UMLAL/SMULL/SMLAL).
func (cpu *CPU) execMultiplyLong(instr uint32) {
	r := cpu.Regs
	rm := uint8(instr & 0xF)
	rs := uint8((instr >> 8) & 0xF)
	rdLo := uint8((instr >> 12) & 0xF)
	rdHi := uint8((instr >> 16) & 0xF)
	s := (instr>>20)&1 != 0
	a := (instr>>21)&1 != 0
	u := (instr>>22)&1 != 0

	var lo, hi uint32
	if a {
		lo = r.Get(rdLo)
		hi = r.Get(rdHi)
	}
	acc := uint64(hi)<<32 | uint64(lo)

	opA := r.Get(rm)
	opB := r.Get(rs)

	var result uint64
	if u {
		result = uint64(int64(int32(opA))*int64(int32(opB)) + int64(acc))
	} else {
		result = uint64(opA)*uint64(opB) + acc
	}

	if s {
		r.SetN(result>>63 != 0)
		r.SetZ(result == 0)
	}

	r.Set(rdLo, uint32(result))
	r.Set(rdHi, uint32(result>>32))
}

// execMultiply implements MUL/MLA.
func (cpu *CPU) execMultiply(instr uint32) {
	r := cpu.Regs
	rm := uint8(instr & 0xF)
	rs := uint8((instr >> 8) & 0xF)
	rn := uint8((instr >> 12) & 0xF)
	rd := uint8((instr >> 16) & 0xF)
	s := (instr>>20)&1 != 0
	a := (instr>>21)&1 != 0

	op1 := int32(r.Get(rm))
	op2 := int32(r.Get(rs))

	var res int32
	if a {
		res = int32(r.Get(rn)) + op1*op2
	} else {
		res = op1 * op2
	}

	if s {
		r.SetZ(res == 0)
		r.SetN(res>>31 != 0)
	}

	r.Set(rd, uint32(res))
}

// execMRS implements MRS (PSR to register transfer).
func (cpu *CPU) execMRS(instr uint32) {
	r := cpu.Regs
	rd := uint8((instr >> 12) & 0xF)
	ps := (instr>>22)&1 != 0

	if !ps {
		r.Set(rd, r.CPSR())
		return
	}
	if r.Mode() == ModeUSR {
		cpu.fatal("Cannot read from SPSR in user mode")
		return
	}
	r.Set(rd, r.SPSR())
}

// writePSR implements write_psr: CPSR/SPSR update with the
// user-mode-forces-flags-only rule and the remaining-bits-preserved
// merge.
func (cpu *CPU) writePSR(pd uint32, value uint32, flagsOnly bool) {
	r := cpu.Regs
	const mask = 0xF0000000

	if flagsOnly || r.Mode() == ModeUSR {
		value &= mask
		if pd == 0 {
			r.SetCPSR(value | (r.CPSR() &^ mask))
		} else {
			if r.Mode() == ModeUSR {
				cpu.fatal("Cannot write to SPSR in user mode")
				return
			}
			r.SetSPSR(value | (r.SPSR() &^ mask))
		}
		return
	}

	if pd == 0 {
		r.SetCPSR(value)
	} else {
		r.SetSPSR(value)
	}
}

// execMSR implements MSR (register to PSR transfer).
func (cpu *CPU) execMSR(instr uint32) {
	rm := uint8(instr & 0xF)
	pd := (instr >> 22) & 1
	cpu.writePSR(pd, cpu.Regs.Get(rm), false)
}

// execMSRFlags implements MSR with the flags-only addressing mode
// (register or rotated immediate source, writing only the top 4 bits).
func (cpu *CPU) execMSRFlags(instr uint32) {
	src := instr & 0xFFF
	pd := (instr >> 22) & 1
	i := (instr>>25)&1 != 0

	if !i {
		cpu.writePSR(pd, cpu.Regs.Get(uint8(src&0xF)), true)
		return
	}
	value := rotateRight(src&0xFF, uint8(((src>>8)&0xF)*2))
	cpu.writePSR(pd, value, true)
}

// execDataProcessing implements the 16 data-processing opcodes with
// corrected flag semantics (the teacher's ARM core wrote ADD's result
// to Rn instead of Rd and hardcoded carry to 0 for ADC/SBC/RSC; this
// follows original_source/cpu.c's instr_single_data_processing
// exactly instead).
func (cpu *CPU) execDataProcessing(instr uint32) {
	r := cpu.Regs
	imm := instr & 0xFFF
	rd := uint8((instr >> 12) & 0xF)
	rn := uint8((instr >> 16) & 0xF)
	s := (instr>>20)&1 != 0
	op := (instr >> 21) & 0xF
	i := (instr>>25)&1 != 0

	op1 := int32(r.Get(rn))

	var op2 int32
	if i {
		rotateAmount := (imm >> 8) & 0xF
		op2 = int32(rotateRight(imm&0xFF, uint8(rotateAmount*2)))
	} else {
		op2 = computeOffsetOperand2(cpu, imm, s)
	}
	if cpu.err != nil {
		return
	}

	switch op {
	case 0x0, 0x8: // AND, TST
		res := op1 & op2
		if s || op == 0x8 {
			r.SetZ(res == 0)
			r.SetN(res>>31 != 0)
		}
		if op == 0x0 {
			r.Set(rd, uint32(res))
		}
	case 0x1, 0x9: // EOR, TEQ
		res := op1 ^ op2
		if s || op == 0x9 {
			r.SetZ(res == 0)
			r.SetN(res>>31 != 0)
		}
		if op == 0x1 {
			r.Set(rd, uint32(res))
		}
	case 0x2, 0xA, 0x3: // SUB, CMP, RSB
		if op == 0x3 {
			op1, op2 = op2, op1
		}
		res64 := int64(op1) - int64(op2)
		res := int32(res64)
		if s || op == 0xA {
			r.SetZ(res == 0)
			r.SetN(res>>31 != 0)
			r.SetC((res64>>32)&1 == 0)
			r.SetV((op1 >= 0 && op2 < 0 && res < 0) || (op1 < 0 && op2 >= 0 && res >= 0))
		}
		if op == 0x2 || op == 0x3 {
			r.Set(rd, uint32(res))
		}
	case 0x4, 0xB: // ADD, CMN
		res64 := int64(op1) + int64(op2)
		res := int32(res64)
		if s || op == 0xB {
			r.SetZ(res == 0)
			r.SetN(res>>31 != 0)
			r.SetC((res64>>32)&0xFFFFFFFF != 0)
			r.SetV((op1 < 0 && op2 < 0 && res > 0) || (op1 > 0 && op2 > 0 && res < 0))
		}
		if op == 0x4 {
			r.Set(rd, uint32(res))
		}
	case 0x5: // ADC
		carry := int64(0)
		if r.C() {
			carry = 1
		}
		res64 := int64(op1) + int64(op2) + carry
		res := int32(res64)
		if s {
			r.SetZ(res == 0)
			r.SetN(res>>31 != 0)
			if op1 < 0 && op2 < 0 && res > 0 {
				r.SetV(true)
			}
			if op1 > 0 && op2 > 0 && res < 0 {
				r.SetV(true)
			}
			r.SetC((res64>>32)&0xFFFFFFFF != 0)
		}
		r.Set(rd, uint32(res))
	case 0x6, 0x7: // SBC, RSC
		if op == 0x7 {
			op1, op2 = op2, op1
		}
		carry := int64(0)
		if r.C() {
			carry = 1
		}
		res64 := int64(op1) - int64(op2) + carry - 1
		res := int32(res64)
		if s {
			r.SetZ(res == 0)
			r.SetN(res>>31 != 0)
			r.SetC((^(res64 >> 32)) != 0)
			r.SetV((op1 >= 0 && op2 < 0 && res < 0) || (op1 < 0 && op2 >= 0 && res >= 0))
		}
		r.Set(rd, uint32(res))
	case 0xC: // ORR
		res := op1 | op2
		if s {
			r.SetZ(res == 0)
			r.SetN(res>>31 != 0)
		}
		r.Set(rd, uint32(res))
	case 0xD: // MOV
		if s {
			r.SetZ(op2 == 0)
			r.SetN(op2>>31 != 0)
		}
		r.Set(rd, uint32(op2))
	case 0xE: // BIC
		res := op1 &^ op2
		if s {
			r.SetZ(res == 0)
			r.SetN(res>>31 != 0)
		}
		r.Set(rd, uint32(res))
	case 0xF: // MVN
		res := ^op2
		if s {
			r.SetZ(res == 0)
			r.SetN(res>>31 != 0)
		}
		r.Set(rd, uint32(res))
	}
}

// execBlockDataTransfer implements LDM/STM, including the S-bit
// user-bank semantics, the mid-loop base writeback-to-PC-target quirk,
// and the base-in-register-list writeback suppression, matching
// instr_block_data_transfer exactly.
func (cpu *CPU) execBlockDataTransfer(instr uint32) {
	r := cpu.Regs
	rl := instr & 0xFFFF
	rn := uint8((instr >> 16) & 0xF)
	l := (instr>>20)&1 != 0
	w := (instr>>21)&1 != 0
	s := (instr>>22)&1 != 0
	u := (instr>>23)&1 != 0
	p := (instr>>24)&1 != 0

	if rl == 0 {
		cpu.fatal("The register list cannot be empty")
		return
	}
	if rn == 15 {
		cpu.fatal("Base register cannot be PC")
		return
	}
	if s && (r.Mode() == ModeUSR || r.Mode() == ModeSYS) {
		cpu.fatal("Force user mode set in non-priveleged mode")
		return
	}

	address := r.Get(rn) &^ 0x3
	var offset uint32 = 4
	if !u {
		offset = ^uint32(4) + 1
	}

	step := func(reg int) {
		if p {
			address += offset
		}
		if w && reg == int(rn) {
			r.Set(rn, address)
		}
		if l {
			if s {
				r.SetUserBank(uint8(reg), cpu.Bus.ReadDword(address))
			} else {
				r.Set(uint8(reg), cpu.Bus.ReadDword(address))
			}
		} else {
			if s {
				cpu.Bus.WriteDword(address, r.GetUserBank(uint8(reg)))
			} else {
				cpu.Bus.WriteDword(address, r.Get(uint8(reg)))
			}
		}
		if !p {
			address += offset
		}
	}

	if u {
		for reg := 0; reg < 16; reg++ {
			if rl&(1<<uint(reg)) != 0 {
				step(reg)
			}
		}
	} else {
		for reg := 15; reg >= 0; reg-- {
			if rl&(1<<uint(reg)) != 0 {
				step(reg)
			}
		}
	}

	if l && s && rl&(1<<15) != 0 {
		r.SetCPSR(r.SPSR())
	}

	if w && rl&(1<<rn) == 0 {
		r.Set(rn, address)
	}
}

// execBranch implements B/BL.
func (cpu *CPU) execBranch(instr uint32) {
	r := cpu.Regs
	offset := (instr & 0xFFFFFF) << 2
	if offset&(1<<25) != 0 {
		offset |= ^uint32(0x03FFFFFF)
	}
	l := (instr>>24)&1 != 0

	pc := r.Get(15)
	lr := pc - 4
	pc += offset
	r.Set(15, pc)

	if l {
		r.Set(14, lr)
	}
}

// execBranchExchange implements BX.
func (cpu *CPU) execBranchExchange(instr uint32) {
	r := cpu.Regs
	rn := uint8(instr & 0xF)
	target := r.Get(rn)
	if target&1 != 0 {
		cpu.fatal("Cannot switch to THUMB instruction set")
		return
	}
	r.Set(15, target)
}

// execSingleDataTransfer implements LDR/STR (word and byte).
func (cpu *CPU) execSingleDataTransfer(instr uint32) {
	r := cpu.Regs
	rd := uint8((instr >> 12) & 0xF)
	rn := uint8((instr >> 16) & 0xF)
	l := (instr>>20)&1 != 0
	w := (instr>>21)&1 != 0
	b := (instr>>22)&1 != 0
	u := (instr>>23)&1 != 0
	p := (instr>>24)&1 != 0
	i := (instr>>25)&1 != 0

	var offset uint32
	if i {
		offset = uint32(computeOffsetOperand2(cpu, instr&0xFFF, false))
		if cpu.err != nil {
			return
		}
	} else {
		offset = instr & 0xFFF
	}

	base := r.Get(rn)
	var addr uint32
	if p {
		if u {
			base += offset
		} else {
			base -= offset
		}
		addr = base
	} else {
		addr = base
		if u {
			base += offset
		} else {
			base -= offset
		}
	}

	if l {
		if b {
			r.Set(rd, uint32(cpu.Bus.ReadByte(addr)))
		} else {
			r.Set(rd, cpu.Bus.ReadDword(addr))
		}
	} else {
		if b {
			cpu.Bus.WriteByte(addr, uint8(r.Get(rd)))
		} else {
			cpu.Bus.WriteDword(addr, r.Get(rd))
		}
	}

	if w || !p {
		if rn == 15 {
			cpu.fatal("Writeback to PC not allowed")
			return
		}
		r.Set(rn, base)
	}
}

// execSingleDataSwap implements SWP/SWPB.
func (cpu *CPU) execSingleDataSwap(instr uint32) {
	r := cpu.Regs
	rm := uint8(instr & 0xF)
	rd := uint8((instr >> 12) & 0xF)
	rn := uint8((instr >> 16) & 0xF)
	b := (instr>>22)&1 != 0

	if rd == 15 || rn == 15 || rm == 15 {
		cpu.fatal("PC cannot be used as an operand (Rd, Rn or Rm) in a SWAP instruction")
		return
	}

	addr := r.Get(rn)
	if b {
		tmp := cpu.Bus.ReadByte(addr)
		cpu.Bus.WriteByte(addr, uint8(r.Get(rm)))
		r.Set(rd, uint32(tmp))
	} else {
		tmp := cpu.Bus.ReadDword(addr)
		cpu.Bus.WriteDword(addr, r.Get(rm))
		r.Set(rd, tmp)
	}
}

// hwSdTransferFunSel dispatches on the sh field shared by the
// halfword/signed-data-transfer encoding, matching
// hw_sd_transfer_fun_sel including the SWP aliasing at sh==0.
func (cpu *CPU) hwSdTransferFunSel(instr uint32, address uint32) {
	r := cpu.Regs
	sh := (instr >> 5) & 0x3
	rd := uint8((instr >> 12) & 0xF)
	l := (instr>>20)&1 != 0

	switch sh {
	case 0:
		cpu.execSingleDataSwap(instr)
	case 1:
		if l {
			r.Set(rd, uint32(cpu.Bus.ReadWord(address)))
		} else {
			if rd == 15 {
				address += 12
			}
			cpu.Bus.WriteWord(address, uint16(r.Get(rd)))
		}
	case 2:
		if !l {
			cpu.fatal("l bit can't be 0, when signed operations have been selected")
			return
		}
		val := int32(cpu.Bus.ReadByte(address))
		if val&(1<<7) != 0 {
			val |= ^0xFF
		}
		r.Set(rd, uint32(val))
	case 3:
		if !l {
			cpu.fatal("l but can't be 0, when signed operaitons have been selected")
			return
		}
		val := int32(cpu.Bus.ReadWord(address))
		if val&(1<<15) != 0 {
			val |= ^0xFFFF
		}
		r.Set(rd, uint32(val))
	}
}

// execHwSdTransfer implements LDRH/STRH/LDRSB/LDRSH, including the
// STRH-with-Rd==PC "stored address is PC+12" quirk.
func (cpu *CPU) execHwSdTransfer(instr uint32) {
	r := cpu.Regs
	rmLn := instr & 0xF
	hn := (instr >> 8) & 0xF
	rn := uint8((instr >> 16) & 0xF)
	w := (instr>>21)&1 != 0
	o := (instr>>22)&1 != 0
	u := (instr>>23)&1 != 0
	p := (instr>>24)&1 != 0

	base := r.Get(rn)
	var offset uint32

	if o {
		offset = rmLn | (hn << 4)
	} else {
		if rmLn == 15 {
			cpu.fatal("PC used as offset")
			return
		}
		offset = r.Get(uint8(rmLn))
	}

	if p {
		if u {
			base += offset
		} else {
			base -= offset
		}
		cpu.hwSdTransferFunSel(instr, base)
	} else {
		cpu.hwSdTransferFunSel(instr, base)
		if u {
			base += offset
		} else {
			base -= offset
		}
	}
	if cpu.err != nil {
		return
	}

	if w || !p {
		if rn == 15 {
			cpu.fatal("Cannot write back to PC")
			return
		}
		r.Set(rn, base)
	}
}

// execSWI implements the software interrupt trap.
func (cpu *CPU) execSWI() {
	r := cpu.Regs
	cpu.changeMode(ModeSVC)
	if cpu.err != nil {
		return
	}
	r.Set(14, r.Get(15))
	r.Set(15, 0x08)
	r.SetSPSR(r.CPSR())
}

// execUndefined implements the undefined-instruction trap.
func (cpu *CPU) execUndefined() {
	r := cpu.Regs
	cpu.changeMode(ModeUND)
	if cpu.err != nil {
		return
	}
	r.Set(14, r.Get(15))
	r.Set(15, 0x04)
	r.SetSPSR(r.CPSR())
}

// execCoprocDataProc dispatches CDP: CP10 to the VFP single-precision
// coprocessor, CP11 (double precision) is unsupported, CP15 is
// ignored, anything else is fatal.
func (cpu *CPU) execCoprocDataProc(instr uint32) {
	coproc := (instr >> 8) & 0xF
	switch coproc {
	case 10:
		if cpu.VFP != nil {
			cpu.setErr(cpu.VFP.DataProc(instr))
		}
	case 11:
		cpu.fatal("Double-precision VFP unsupported")
	case 15:
	default:
		cpu.fatal("Unimplemented coprocessor CP%d", coproc)
	}
}

func (cpu *CPU) execCoprocDataTransfer(instr uint32) {
	coproc := (instr >> 8) & 0xF
	switch coproc {
	case 10:
		if cpu.VFP != nil {
			cpu.setErr(cpu.VFP.DataTransfer(instr, cpu.Regs, cpu.Bus))
		}
	case 11:
		cpu.fatal("Double-precision VFP unsupported")
	case 15:
	default:
		cpu.fatal("Unimplemented coprocessor CP%d", coproc)
	}
}

func (cpu *CPU) execCoprocRegTransfer(instr uint32) {
	coproc := (instr >> 8) & 0xF
	switch coproc {
	case 10:
		if cpu.VFP != nil {
			cpu.setErr(cpu.VFP.RegTransfer(instr, cpu.Regs))
		}
	case 11:
		cpu.fatal("Double-precision VFP unsupported")
	case 15:
	default:
		cpu.fatal("Unimplemented coprocessor CP%d", coproc)
	}
}
