package dma

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAllocTranslateRoundTrips(t *testing.T) {
	b := NewBus()
	buf := []byte{1, 2, 3, 4}
	addr := b.Alloc(buf)

	got, err := b.Translate(addr, 4)
	require.NoError(t, err)
	require.Equal(t, buf, got)
}

func TestTranslateRejectsUnknownAddress(t *testing.T) {
	b := NewBus()
	_, err := b.Translate(0x9999, 4)
	require.Error(t, err)
}

func TestTranslateRejectsOverreadPastRegionEnd(t *testing.T) {
	b := NewBus()
	addr := b.Alloc(make([]byte, 8))
	_, err := b.Translate(addr, 16)
	require.Error(t, err)
}

func TestAllocPadsRegionsSoAdjacentBuffersDontAppearContiguous(t *testing.T) {
	b := NewBus()
	first := b.Alloc(make([]byte, 16))
	second := b.Alloc(make([]byte, 16))
	require.NotEqual(t, b.End(first, 16), second)
	require.Greater(t, second, b.End(first, 16))
}

func TestFreeDropsRegion(t *testing.T) {
	b := NewBus()
	addr := b.Alloc(make([]byte, 4))
	b.Free(addr)
	_, err := b.Translate(addr, 4)
	require.Error(t, err)
}
