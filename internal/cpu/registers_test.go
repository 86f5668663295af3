package cpu

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResetStateIsSVCInterruptsMasked(t *testing.T) {
	r := NewRegisters()
	assert.Equal(t, uint32(ModeSVC), r.Mode())
	assert.True(t, r.flag(cpsrI))
	assert.True(t, r.flag(cpsrF))
}

func TestR8ToR12BankOnlyInFIQ(t *testing.T) {
	r := NewRegisters()
	r.Set(8, 0x111)
	r.ChangeMode(ModeFIQ)
	r.Set(8, 0x222)
	r.ChangeMode(ModeSVC)
	assert.Equal(t, uint32(0x111), r.Get(8))
	r.ChangeMode(ModeFIQ)
	assert.Equal(t, uint32(0x222), r.Get(8))
}

func TestR0ToR7NeverBank(t *testing.T) {
	r := NewRegisters()
	r.Set(3, 0xAAAA)
	r.ChangeMode(ModeFIQ)
	assert.Equal(t, uint32(0xAAAA), r.Get(3))
}

func TestSPBanksPerModeUSRAndSYSShared(t *testing.T) {
	r := NewRegisters()
	r.ChangeMode(ModeUSR)
	r.Set(13, 0x1000)
	r.ChangeMode(ModeSYS)
	assert.Equal(t, uint32(0x1000), r.Get(13))

	r.ChangeMode(ModeSVC)
	r.Set(13, 0x2000)
	assert.Equal(t, uint32(0x2000), r.Get(13))
	r.ChangeMode(ModeUSR)
	assert.Equal(t, uint32(0x1000), r.Get(13))
}

func TestGetR15ReturnsPipelinedPC(t *testing.T) {
	r := NewRegisters()
	r.SetPC(0x8000)
	assert.Equal(t, uint32(0x8004), r.Get(15))
}

func TestSetR15WritesRawPC(t *testing.T) {
	r := NewRegisters()
	r.Set(15, 0x9000)
	assert.Equal(t, uint32(0x9000), r.PC())
}

func TestChangeModeRejectsInvalidMode(t *testing.T) {
	r := NewRegisters()
	err := r.ChangeMode(0x09)
	assert.Error(t, err)
	assert.Equal(t, uint32(ModeSVC), r.Mode())
}

func TestSPSRIsNoOpInUSR(t *testing.T) {
	r := NewRegisters()
	r.ChangeMode(ModeUSR)
	r.SetSPSR(0xDEAD)
	assert.Equal(t, uint32(0), r.SPSR())
}

func TestSPSRRoundTripsPerMode(t *testing.T) {
	r := NewRegisters()
	r.ChangeMode(ModeIRQ)
	r.SetSPSR(0x1234)
	r.ChangeMode(ModeABT)
	r.SetSPSR(0x5678)
	r.ChangeMode(ModeIRQ)
	assert.Equal(t, uint32(0x1234), r.SPSR())
	r.ChangeMode(ModeABT)
	assert.Equal(t, uint32(0x5678), r.SPSR())
}

func TestFlagsRoundTrip(t *testing.T) {
	r := NewRegisters()
	r.SetN(true)
	r.SetZ(true)
	r.SetC(false)
	r.SetV(true)
	assert.True(t, r.N())
	assert.True(t, r.Z())
	assert.False(t, r.C())
	assert.True(t, r.V())
}

func TestUserBankAccessorsBypassCurrentMode(t *testing.T) {
	r := NewRegisters()
	r.ChangeMode(ModeFIQ)
	r.SetUserBank(13, 0x7777)
	assert.Equal(t, uint32(0x7777), r.GetUserBank(13))
	// Current (FIQ) SP is untouched.
	assert.NotEqual(t, uint32(0x7777), r.Get(13))
}
