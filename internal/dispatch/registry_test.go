package dispatch

import (
	"testing"

	"github.com/qatdrv/go-qat/internal/wire"
	"github.com/stretchr/testify/require"
)

func TestRegistryCoversAllGenerations(t *testing.T) {
	for g := Gen1; g < MaxGeneration; g++ {
		spec, ok := Lookup(g)
		require.True(t, ok, "generation %s should be registered", g)
		require.Equal(t, g, spec.Generation)
		require.NotNil(t, spec.Layout.RingHeadOffset)
		require.NotNil(t, spec.Layout.RingTailOffset)
		require.NotNil(t, spec.Layout.ArbiterEnableOffset)
	}
}

func TestLookupRejectsOutOfRange(t *testing.T) {
	_, ok := Lookup(MaxGeneration)
	require.False(t, ok)

	_, ok = Lookup(Generation(-1))
	require.False(t, ok)
}

func TestGetHWDataDistributesAcrossBundles(t *testing.T) {
	spec, ok := Lookup(Gen3)
	require.True(t, ok)

	pairsPerBundle := spec.RingsPerService(wire.ServiceSymmetric) / 2
	require.Greater(t, pairsPerBundle, uint32(0))

	b0, r0 := spec.GetHWData(wire.ServiceSymmetric, 0)
	require.Equal(t, uint32(0), b0)
	require.Equal(t, uint32(0), r0)

	b1, r1 := spec.GetHWData(wire.ServiceSymmetric, 1)
	require.Equal(t, uint32(0), b1)
	require.Equal(t, uint32(2), r1, "second logical queue pair starts at the next ring pair")

	// logicalQP == pairsPerBundle rolls over into the next bundle, back at
	// its first ring pair.
	bN, rN := spec.GetHWData(wire.ServiceSymmetric, pairsPerBundle)
	require.Equal(t, uint32(1), bN)
	require.Equal(t, uint32(0), rN)
}

func TestArbEnableDisableRoundTrip(t *testing.T) {
	spec, ok := Lookup(Gen1)
	require.True(t, ok)

	bank := NewCSRBank(4096)
	lock := &ArbSpinlock{}

	spec.ArbEnable(bank, lock, 2)
	off := spec.Layout.ArbiterEnableOffset(2)
	require.NotEqual(t, uint32(0), bank.ReadWord(off)&(1<<2))

	spec.ArbDisable(bank, lock, 2)
	require.Equal(t, uint32(0), bank.ReadWord(off)&(1<<2))
}

func TestBuildRingBaseSplitsHighLow(t *testing.T) {
	spec, ok := Lookup(Gen5)
	require.True(t, ok)

	bank := NewCSRBank(1 << 16)
	addr := uint64(0x40_0000_0040) // exercises the >>6 shift crossing into the high word
	spec.BuildRingBase(bank, 0, 0, addr)

	lowOff := spec.Layout.RingBaseLowOffset(0, 0)
	highOff := spec.Layout.RingBaseHighOffset(0, 0)
	shifted := (uint64(bank.ReadWord(highOff)) << 32) | uint64(bank.ReadWord(lowOff))
	require.Equal(t, addr>>6, shifted)
}
