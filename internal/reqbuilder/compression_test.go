package reqbuilder

import (
	"testing"

	"github.com/qatdrv/go-qat/internal/cookie"
	"github.com/qatdrv/go-qat/internal/dma"
	"github.com/qatdrv/go-qat/internal/model"
	"github.com/qatdrv/go-qat/internal/wire"
	"github.com/stretchr/testify/require"
)

func TestBuildCompressionSingleSegmentFlat(t *testing.T) {
	bus := dma.NewBus()
	b := New(bus)

	src := make([]byte, 64)
	srcAddr := bus.Alloc(src)
	dst := make([]byte, 128)
	dstAddr := bus.Alloc(dst)

	sess := &model.Session{CommandID: model.CmdCipher}
	op := &model.Operation{
		Session:     sess,
		SrcChain:    &model.Chain{IOVA: srcAddr, DataLen: 64},
		DstChain:    &model.Chain{IOVA: dstAddr, DataLen: 128},
		Compression: &model.CompressionParams{OutputLenMax: 128},
	}

	slot := make([]byte, 128)
	c := &cookie.Cookie{}
	require.NoError(t, b.BuildCompression(op, slot, c))

	req := wire.UnmarshalCompRequest(slot)
	require.Equal(t, srcAddr, req.Mid.SrcDataAddr)
	require.Equal(t, dstAddr, req.Mid.DstDataAddr)
	require.Equal(t, uint32(64), req.Mid.SrcLength)
	require.Equal(t, uint32(128), req.Mid.DstLength)
	require.NotEqual(t, uint16(0), req.Header.ServSpecifFlags&wire.FlagCompSOP)
	require.NotEqual(t, uint16(0), req.Header.ServSpecifFlags&wire.FlagCompEOP)
}

func TestBuildCompressionRejectsMissingDestination(t *testing.T) {
	bus := dma.NewBus()
	b := New(bus)
	sess := &model.Session{CommandID: model.CmdCipher}
	op := &model.Operation{
		Session:     sess,
		SrcChain:    &model.Chain{IOVA: 0x1000, DataLen: 16},
		Compression: &model.CompressionParams{OutputLenMax: 64},
	}
	slot := make([]byte, 128)
	c := &cookie.Cookie{}
	require.Error(t, b.BuildCompression(op, slot, c))
}

func TestBuildCompressionSetsCNVOnDecompress(t *testing.T) {
	bus := dma.NewBus()
	b := New(bus)

	src := make([]byte, 32)
	srcAddr := bus.Alloc(src)
	dst := make([]byte, 64)
	dstAddr := bus.Alloc(dst)

	sess := &model.Session{CommandID: model.CmdCipher}
	sess.FWRequestTemplate[48+14] = wire.CompDirDecompress // Direction byte within the params block

	op := &model.Operation{
		Session:     sess,
		SrcChain:    &model.Chain{IOVA: srcAddr, DataLen: 32},
		DstChain:    &model.Chain{IOVA: dstAddr, DataLen: 64},
		Compression: &model.CompressionParams{OutputLenMax: 64},
	}

	slot := make([]byte, 128)
	c := &cookie.Cookie{}
	require.NoError(t, b.BuildCompression(op, slot, c))

	req := wire.UnmarshalCompRequest(slot)
	require.NotEqual(t, uint16(0), req.Header.ServSpecifFlags&wire.FlagCompCNV)
}
