package vfp

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"piemu/internal/cpu"
)

// fakeBus is a flat uint32-indexed store standing in for internal/bus
// during VFP-only tests.
type fakeBus struct {
	mem map[uint32]uint32
}

func newFakeBus() *fakeBus { return &fakeBus{mem: map[uint32]uint32{}} }

func (b *fakeBus) ReadByte(addr uint32) uint8      { return 0 }
func (b *fakeBus) WriteByte(addr uint32, v uint8)  {}
func (b *fakeBus) ReadWord(addr uint32) uint16     { return 0 }
func (b *fakeBus) WriteWord(addr uint32, v uint16) {}
func (b *fakeBus) ReadDword(addr uint32) uint32    { return b.mem[addr] }
func (b *fakeBus) WriteDword(addr uint32, v uint32) { b.mem[addr] = v }

// dataProcInstr rebuilds a CDP coprocessor instruction from the field
// values DataProc decodes it into, inverting vfp_data_proc's bit
// extraction exactly since every field occupies a disjoint bit range.
func dataProcInstr(cpOpcode, crn, crd, cp, crm uint32) uint32 {
	return (cpOpcode << 20) | (crn << 16) | (crd << 12) | (cp << 5) | crm
}

func TestFaddsAddsTwoRegisters(t *testing.T) {
	v := New()
	// opcode=0x6 (FADDS), fd=2, fn=4, fm=6.
	v.S[4] = sBits(2)
	v.S[6] = sBits(3)
	v.DataProc(dataProcInstr(3, 2, 1, 0, 3))
	assert.Equal(t, float32(5), sFloat(v.S[2]))
}

func TestFmulsMultipliesTwoRegisters(t *testing.T) {
	v := New()
	// opcode=0x4 (FMULS): cpOpcode&3<<1==4 -> cpOpcode&3==2, bit3=0 -> cpOpcode=2.
	v.S[4] = sBits(3)
	v.S[6] = sBits(4)
	v.DataProc(dataProcInstr(2, 2, 1, 0, 3))
	assert.Equal(t, float32(12), sFloat(v.S[2]))
}

// TestFcpysComputesAbsoluteValue preserves the original's swapped
// extension opcodes: the encoding that is architecturally FCPYS (a
// plain copy) instead computes fabs(Sm).
func TestFcpysComputesAbsoluteValue(t *testing.T) {
	v := New()
	v.S[10] = sBits(-4)
	v.DataProc(dataProcInstr(0xB, 0, 7, 6, 5)) // sub-opcode fn=1 (FCPYS slot)
	assert.Equal(t, float32(4), sFloat(v.S[14]))
}

// TestFabsNegatesInsteadOfAbs preserves the other half of the swap:
// the encoding that is architecturally FABSS instead negates Sm.
func TestFabsNegatesInsteadOfAbs(t *testing.T) {
	v := New()
	v.S[10] = sBits(4)
	v.DataProc(dataProcInstr(0xB, 1, 7, 2, 5)) // sub-opcode fn=2 (FABSS slot)
	assert.Equal(t, float32(-4), sFloat(v.S[14]))
}

func TestFcmpsLessThanSetsNFlagOnly(t *testing.T) {
	v := New()
	v.S[14] = sBits(1) // Sd (the 'a' operand)
	v.S[10] = sBits(2) // Sm (the 'b' operand)
	v.DataProc(dataProcInstr(0xB, 4, 7, 2, 5)) // sub-opcode fn=8 (FCMPS slot)
	assert.Equal(t, uint32(0x80000000), v.FPSCR&0xF0000000)
}

func TestFcmpsUnorderedSetsVAndCFlags(t *testing.T) {
	v := New()
	v.S[14] = sBits(float32(math.NaN()))
	v.S[10] = sBits(2)
	v.DataProc(dataProcInstr(0xB, 4, 7, 2, 5))
	assert.Equal(t, uint32(0x30000000), v.FPSCR&0xF0000000)
}

func TestFuitosConvertsRawBitsAsUnsigned(t *testing.T) {
	v := New()
	v.S[10] = 7 // raw integer 7, not a float bit pattern
	v.DataProc(dataProcInstr(0xB, 8, 7, 2, 5)) // sub-opcode fn=0x10 (FUITOS slot)
	assert.Equal(t, float32(7), sFloat(v.S[14]))
}

func TestDataTransferSingleStoreAndLoad(t *testing.T) {
	v := New()
	bus := newFakeBus()
	regs := cpu.NewRegisters()
	regs.Set(1, 0x1000)
	v.S[0] = sBits(3.5)

	// opcode 0x6: p=1,u=1,w=0 -> offset-up single store, fd = crd<<1|n,
	// rn = crn. crn=1 (base in r1), crd=0/n=0 (fd=0), offset=4 words.
	storeInstr := uint32(1<<24) | uint32(1<<23) | (1 << 16) | 4
	v.DataTransfer(storeInstr, regs, bus)
	assert.Equal(t, sBits(3.5), bus.mem[0x1000+4*4])

	v.S[0] = 0
	loadInstr := storeInstr | (1 << 20)
	v.DataTransfer(loadInstr, regs, bus)
	assert.Equal(t, sBits(3.5), v.S[0])
}

func TestRegTransferFmsrAndFmrs(t *testing.T) {
	v := New()
	regs := cpu.NewRegisters()
	regs.Set(3, sBits(9.5))

	// cpOpcode=0, l=0 (store): FMSR Sn, Rd.
	storeInstr := uint32((0 << 21) | (0 << 20) | (2 << 16) | (3 << 12))
	v.RegTransfer(storeInstr, regs)
	assert.Equal(t, float32(9.5), sFloat(v.S[4]))

	regs.Set(5, 0)
	loadInstr := uint32((0 << 21) | (1 << 20) | (2 << 16) | (5 << 12))
	v.RegTransfer(loadInstr, regs)
	assert.Equal(t, sBits(9.5), regs.Get(5))
}

// TestFmstatCopiesFPSCRFlagsIntoCPSR covers the Rd==15 special case:
// FMRX with fn==FPSCR and Rd==15 copies FPSCR's top 4 bits straight
// into CPSR instead of a GPR, matching rt_status_reg_transfer.
func TestFmstatCopiesFPSCRFlagsIntoCPSR(t *testing.T) {
	v := New()
	regs := cpu.NewRegisters()
	v.FPSCR = 0xA0000000
	regs.SetCPSR(0)

	// cpOpcode=7, l=1 (load, FPSCR->CPSR), fn=2, rd=15.
	instr := (uint32(7) << 21) | (1 << 20) | (1 << 16) | (15 << 12)
	v.RegTransfer(instr, regs)
	assert.Equal(t, uint32(0xA0000000), regs.CPSR()&0xF0000000)
}

func TestFmrxRejectsWritingToR15ForNonFPSCR(t *testing.T) {
	v := New()
	regs := cpu.NewRegisters()
	v.FPSID = 0x41 // would be selected by fn==0
	regs.SetCPSR(0x12345670)

	instr := (uint32(7) << 21) | (1 << 20) | (0 << 16) | (15 << 12)
	err := v.RegTransfer(instr, regs)
	assert.Error(t, err)
	// CPSR untouched since fn != FPSCR.
	assert.Equal(t, uint32(0x12345670), regs.CPSR())
}

// TestDataProcUndefinedOpcodeIsFatal matches vfp.c's
// emulator_fatal("Undefined VFP data proc instruction") for an
// undefined main CDP opcode (opcode==0x9 here, outside the 0x0-0x8/0xF
// dispatch table).
func TestDataProcUndefinedOpcodeIsFatal(t *testing.T) {
	v := New()
	err := v.DataProc(dataProcInstr(0x8, 2, 1, 2, 3)) // opcode=0x9
	assert.Error(t, err)
}

// TestDataTransferUnimplementedAddressingModeIsFatal matches vfp.c's
// emulator_fatal("Unimplemented VFP data transfer instruction") for an
// opcode outside the {0x2,0x3,0x4,0x5,0x6} table (opcode 0x0 here:
// p=0,u=0,w=0).
func TestDataTransferUnimplementedAddressingModeIsFatal(t *testing.T) {
	v := New()
	bus := newFakeBus()
	regs := cpu.NewRegisters()
	err := v.DataTransfer(0, regs, bus)
	assert.Error(t, err)
}

// TestRtStatusRegTransferLoadUnrecognisedRegisterIsFatal matches
// vfp.c's emulator_fatal for a load from an fn outside {0x0,0x2,0x10}.
func TestRtStatusRegTransferLoadUnrecognisedRegisterIsFatal(t *testing.T) {
	v := New()
	regs := cpu.NewRegisters()
	instr := (uint32(7) << 21) | (1 << 20) | (3 << 16) | (1 << 12) // fn=6
	err := v.RegTransfer(instr, regs)
	assert.Error(t, err)
}

// TestRtStatusRegTransferStoreUnrecognisedRegisterIsFatal matches
// vfp.c's emulator_fatal for a store to an fn outside {0x0,0x2,0x10}.
func TestRtStatusRegTransferStoreUnrecognisedRegisterIsFatal(t *testing.T) {
	v := New()
	regs := cpu.NewRegisters()
	instr := (uint32(7) << 21) | (0 << 20) | (3 << 16) | (1 << 12) // fn=6
	err := v.RegTransfer(instr, regs)
	assert.Error(t, err)
}

// TestRegTransferUnimplementedOpcodeIsFatal matches vfp.c's
// emulator_fatal("Unimplemented VFP reg transfer instruction") for a
// cpOpcode outside {0x0,0x7}.
func TestRegTransferUnimplementedOpcodeIsFatal(t *testing.T) {
	v := New()
	regs := cpu.NewRegisters()
	instr := uint32(3) << 21 // cpOpcode=3
	err := v.RegTransfer(instr, regs)
	assert.Error(t, err)
}
