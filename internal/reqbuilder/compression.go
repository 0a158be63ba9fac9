package reqbuilder

import (
	"github.com/qatdrv/go-qat/internal/cookie"
	"github.com/qatdrv/go-qat/internal/model"
	"github.com/qatdrv/go-qat/internal/wire"
)

// BuildCompression builds a 128-byte compression request: a simpler
// descriptor than BuildSymmetric since there is only one data span (no
// cipher/auth offset split) and the session template already carries the
// fixed depth/algorithm/direction byte triple.
func (b *Builder) BuildCompression(op *model.Operation, slot []byte, c *cookie.Cookie) error {
	if op.Session == nil {
		return errInvalid("sessionless operation")
	}
	sess := op.Session
	if op.Compression == nil {
		return errInvalid("compression operation missing CompressionParams")
	}

	copy(slot, sess.FWRequestTemplate[:])
	req := wire.UnmarshalCompRequest(slot)
	req.Mid.OpaqueData = opaqueFromOperation(op)

	req.Params.InitialAdler = op.Compression.InitialAdler
	req.Params.InitialCRC = op.Compression.InitialCRC
	req.Params.OutputLenMax = op.Compression.OutputLenMax

	req.Header.ServSpecifFlags |= wire.FlagCompSOP | wire.FlagCompEOP | wire.FlagCompBFinal
	if req.Params.Direction == wire.CompDirDecompress {
		req.Header.ServSpecifFlags |= wire.FlagCompCNV
	}

	srcLen := op.SrcChain.DataLen
	cur := op.SrcChain.Next
	for cur != nil {
		srcLen += cur.DataLen
		cur = cur.Next
	}
	req.Mid.SrcLength = srcLen
	req.Mid.DstLength = op.Compression.OutputLenMax

	dstChain := op.DstChain
	if dstChain == nil {
		return errInvalid("compression requires a distinct destination chain")
	}

	srcAddr, err := b.buildSGLOrFlat(op.SrcChain, op.SrcChain.IOVA, srcLen, &c.SrcSGL, op.SrcChain.Next != nil)
	if err != nil {
		return errInvalid("%v", err)
	}
	c.SrcSGLPhysAddr = srcAddr
	req.Mid.SrcDataAddr = srcAddr

	dstAddr, err := b.buildSGLOrFlat(dstChain, dstChain.IOVA, req.Mid.DstLength, &c.DstSGL, dstChain.Next != nil)
	if err != nil {
		return errInvalid("%v", err)
	}
	c.DstSGLPhysAddr = dstAddr
	req.Mid.DstDataAddr = dstAddr

	if op.SrcChain.Next != nil || dstChain.Next != nil {
		req.Header.CmnReqFlags |= wire.FlagPtrTypeSGL
	} else {
		req.Header.CmnReqFlags &^= wire.FlagPtrTypeSGL
	}

	copy(slot, req.Marshal())
	return nil
}
