package ring

import (
	"testing"

	"github.com/qatdrv/go-qat/internal/constants"
	"github.com/qatdrv/go-qat/internal/dispatch"
	"github.com/stretchr/testify/require"
)

type fakeAllocator struct{ addr uint64 }

func (f fakeAllocator) Alloc(buf []byte) uint64 { return f.addr }

func TestNewRejectsNonPowerOfTwoSize(t *testing.T) {
	spec, _ := dispatch.Lookup(dispatch.Gen1)
	bank := dispatch.NewCSRBank(4096)
	_, err := New(fakeAllocator{}, spec, bank, 0, 0, 3, 128)
	require.Error(t, err)
}

func TestNewFillsSentinel(t *testing.T) {
	spec, _ := dispatch.Lookup(dispatch.Gen1)
	bank := dispatch.NewCSRBank(4096)
	p, err := New(fakeAllocator{}, spec, bank, 0, 0, 8, 128)
	require.NoError(t, err)
	defer p.Close()

	require.True(t, p.IsEmptySlot(0))
	require.True(t, p.IsEmptySlot(128))
	require.Equal(t, uint32(8*128-1), p.Modulo())
	require.Equal(t, uint32(8-constants.SafetyMargin), p.MaxInflights())
}

func TestNewRejectsMisalignedBase(t *testing.T) {
	spec, _ := dispatch.Lookup(dispatch.Gen1)
	bank := dispatch.NewCSRBank(4096)
	_, err := New(fakeAllocator{addr: 0x41}, spec, bank, 0, 0, 8, 128)
	require.Error(t, err)
}

func TestScrubRangeWraps(t *testing.T) {
	spec, _ := dispatch.Lookup(dispatch.Gen1)
	bank := dispatch.NewCSRBank(4096)
	p, err := New(fakeAllocator{}, spec, bank, 0, 0, 4, 128)
	require.NoError(t, err)
	defer p.Close()

	copy(p.Slot(0), []byte{1, 2, 3, 4})
	copy(p.Slot(3*128), []byte{1, 2, 3, 4})
	require.False(t, p.IsEmptySlot(0))
	require.False(t, p.IsEmptySlot(3*128))

	p.ScrubRange(3*128, 128) // wraps: scrubs slot 3, then slot 0
	require.True(t, p.IsEmptySlot(0))
	require.True(t, p.IsEmptySlot(3*128))
}

func TestCloseRefusesWhileInflight(t *testing.T) {
	spec, _ := dispatch.Lookup(dispatch.Gen1)
	bank := dispatch.NewCSRBank(4096)
	p, err := New(fakeAllocator{}, spec, bank, 0, 0, 4, 128)
	require.NoError(t, err)

	p.AddInflights(1)
	require.Error(t, p.Close())

	p.AddInflights(-1)
	require.NoError(t, p.Close())
}
