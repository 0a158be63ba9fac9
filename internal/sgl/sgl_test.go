package sgl

import (
	"testing"

	"github.com/qatdrv/go-qat/internal/model"
	"github.com/qatdrv/go-qat/internal/wire"
	"github.com/stretchr/testify/require"
)

func TestBuildSingleBufferFitsWhole(t *testing.T) {
	head := &model.Chain{IOVA: 0x1000, DataLen: 64}
	var dest wire.SGL
	require.NoError(t, Build(head, 0x1000, 64, &dest))
	require.Equal(t, uint32(1), dest.NumBufs)
	require.Equal(t, uint64(0x1000), dest.Entries[0].PhysicalAddress)
	require.Equal(t, uint32(64), dest.Entries[0].Length)
}

func TestBuildSpansMultipleBuffers(t *testing.T) {
	b2 := &model.Chain{IOVA: 0x2000, DataLen: 32}
	head := &model.Chain{IOVA: 0x1000, DataLen: 16, Next: b2}
	var dest wire.SGL
	require.NoError(t, Build(head, 0x1000, 40, &dest))
	require.Equal(t, uint32(2), dest.NumBufs)
	require.Equal(t, uint32(16), dest.Entries[0].Length)
	require.Equal(t, uint32(24), dest.Entries[1].Length) // shrunk by overshoot
}

func TestBuildFailsOnShortChain(t *testing.T) {
	head := &model.Chain{IOVA: 0x1000, DataLen: 16}
	var dest wire.SGL
	err := Build(head, 0x1000, 100, &dest)
	require.Error(t, err)
}

func TestBuildFailsOnMaxSegmentsExceeded(t *testing.T) {
	head := &model.Chain{IOVA: 0, DataLen: 1}
	cur := head
	for i := 1; i < 40; i++ {
		next := &model.Chain{IOVA: uint64(i * 2), DataLen: 1}
		cur.Next = next
		cur = next
	}
	var dest wire.SGL
	err := Build(head, 0, 40, &dest)
	require.Error(t, err)
}

func TestBuildHandlesAlignedDownStartOffset(t *testing.T) {
	// Simulates the in-place 64-byte-align trick: start_offset rounds
	// down 8 bytes before the first buffer's iova, so the first entry's
	// length must stretch to include that headroom.
	head := &model.Chain{IOVA: 0x1008, DataLen: 56}
	var dest wire.SGL
	require.NoError(t, Build(head, 0x1000, 64, &dest))
	require.Equal(t, uint64(0x1000), dest.Entries[0].PhysicalAddress)
	require.Equal(t, uint32(64), dest.Entries[0].Length)
}

func TestAppendDigestMergesWhenAdjacent(t *testing.T) {
	dest := wire.SGL{Entries: []wire.FlatBufferDescriptor{{PhysicalAddress: 0x1000, Length: 32}}, NumBufs: 1}
	require.NoError(t, AppendDigest(&dest, 0x1020, 16))
	require.Equal(t, uint32(1), dest.NumBufs)
	require.Equal(t, uint32(48), dest.Entries[0].Length)
}

func TestAppendDigestAddsEntryWhenNotAdjacent(t *testing.T) {
	dest := wire.SGL{Entries: []wire.FlatBufferDescriptor{{PhysicalAddress: 0x1000, Length: 32}}, NumBufs: 1}
	require.NoError(t, AppendDigest(&dest, 0x5000, 16))
	require.Equal(t, uint32(2), dest.NumBufs)
	require.Equal(t, uint64(0x5000), dest.Entries[1].PhysicalAddress)
}

func TestIsDigestAdjacent(t *testing.T) {
	require.True(t, IsDigestAdjacent(0x1020, 0x1020))
	require.False(t, IsDigestAdjacent(0x1020, 0x1021))
}
