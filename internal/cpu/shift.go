package cpu

// rotateRight rotates a 32-bit value right by shift bits (0-31).
func rotateRight(value uint32, shift uint8) uint32 {
	shift &= 0x1F
	if shift == 0 {
		return value
	}
	return (value >> shift) | (value << (32 - shift))
}

// computeOffsetOperand2 decodes the shifted-register operand2/offset
// form shared by data-processing and single-data-transfer
// instructions: bits[3:0] the base register, bit4 selects
// register-specified vs immediate shift amount, bits[6:5] the shift
// type, matching original_source/cpu.c's compute_offset_operand2
// exactly, including its carry-out side effect on the shifter when s
// is true.
func computeOffsetOperand2(cpu *CPU, imm uint32, s bool) int32 {
	r := cpu.Regs
	rm := imm & 0xF
	shiftType := (imm >> 5) & 0x3

	rmData := r.Get(uint8(rm))

	var shiftAmount uint32
	if (imm>>4)&1 != 0 {
		rs := (imm >> 8) & 0xF
		if rs == 15 {
			cpu.fatal("PC cannot be used as offset")
		}
		shiftAmount = r.Get(uint8(rs)) & 0xFF
	} else {
		shiftAmount = (imm >> 7) & 0x1F
	}

	if shiftAmount == 0 {
		return int32(rmData)
	}

	var res uint32
	switch shiftType {
	case 0x0: // logical left
		if shiftAmount >= 32 {
			res = 0
			if s {
				r.SetC(shiftAmount == 32 && rmData&0x1 != 0)
			}
		} else {
			if s {
				r.SetC((rmData>>(32-shiftAmount))&1 != 0)
			}
			res = rmData << shiftAmount
		}
	case 0x1: // logical right
		if shiftAmount >= 32 {
			res = 0
			if s {
				r.SetC(shiftAmount == 32 && rmData>>31 != 0)
			}
		} else {
			if s {
				r.SetC((rmData>>(shiftAmount-1))&1 != 0)
			}
			res = rmData >> shiftAmount
		}
	case 0x2: // arithmetic right
		if shiftAmount >= 32 {
			bit31 := rmData >> 31
			if bit31 != 0 {
				res = 0xFFFFFFFF
			} else {
				res = 0
			}
			if s {
				r.SetC(bit31 != 0)
			}
		} else {
			if s {
				r.SetC((rmData>>(shiftAmount-1))&1 != 0)
			}
			res = uint32(int32(rmData) >> shiftAmount)
		}
	case 0x3: // rotate right
		for shiftAmount > 32 {
			shiftAmount -= 32
		}
		if shiftAmount == 32 {
			res = rmData
			if s {
				r.SetC(rmData>>31 != 0)
			}
		} else {
			if s {
				r.SetC((rmData>>(shiftAmount-1))&1 != 0)
			}
			res = rotateRight(rmData, uint8(shiftAmount))
		}
	}
	return int32(res)
}
