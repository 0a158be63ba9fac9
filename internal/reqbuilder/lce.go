package reqbuilder

import (
	"github.com/qatdrv/go-qat/internal/cookie"
	"github.com/qatdrv/go-qat/internal/model"
	"github.com/qatdrv/go-qat/internal/sgl"
	"github.com/qatdrv/go-qat/internal/wire"
)

// BuildLCEAEAD builds a single-pass AEAD request for the LCE generation,
// which only supports AES-256-GCM. Besides the descriptor's digest field,
// the digest span is carried in the SGL firmware uses it from (source when
// decrypting, destination when encrypting), merged into the last
// cipher-text entry when the caller placed the digest buffer immediately
// after the cipher-text (the digest-adjacency optimization) and as its own
// entry otherwise.
func (b *Builder) BuildLCEAEAD(op *model.Operation, slot []byte, c *cookie.Cookie) error {
	if op.Session == nil {
		return errInvalid("sessionless operation")
	}
	sess := op.Session
	if sess.CipherAlgorithm != model.CipherAES256GCM {
		return errInvalid("LCE generation only supports AES-256-GCM, got algorithm %d", sess.CipherAlgorithm)
	}
	if op.Cipher == nil || op.AEAD == nil {
		return errInvalid("LCE AEAD operation missing CipherParams or AEADParams")
	}
	// LCE single-pass AEAD is always in-place; a caller-supplied
	// destination chain violates that invariant and is rejected rather
	// than silently producing wrong output.
	if op.DstChain != nil {
		return errInvalid("LCE AEAD operation must be in-place, got a distinct destination chain")
	}

	copy(slot, sess.FWRequestTemplate[:])
	req := wire.UnmarshalSymRequest(slot)
	req.Mid.OpaqueData = opaqueFromOperation(op)

	ivBytes := op.Cipher.IV
	if len(ivBytes) > 16 {
		return errInvalid("IV length %d exceeds inline capacity", len(ivBytes))
	}
	if len(ivBytes) > 0 {
		req.Tail.CipherIV.SetInline(ivBytes)
	}
	req.Header.CmnReqFlags &^= wire.FlagCipherIVFldPtr
	if len(ivBytes) == 12 {
		req.Header.ServSpecifFlags |= wire.FlagGCMIVLen12Octets
	}
	req.Header.ServSpecifFlags |= wire.FlagGCMProto

	req.Tail.AADAddr = op.AEAD.AADAddr
	req.Tail.AADSize = op.AEAD.AADLength
	req.Tail.DigestAddr = op.AEAD.DigestAddr
	req.Tail.DigestSize = sess.DigestLength

	cipherOfs, cipherLen := op.Cipher.Offset, op.Cipher.Length
	req.Tail.CipherOffset = 0
	req.Tail.CipherLength = cipherLen
	req.Mid.SrcLength = cipherLen

	srcAddr, _, err := sgl.IOVAOffset(op.SrcChain, cipherOfs)
	if err != nil {
		return errInvalid("%v", err)
	}

	decrypting := sess.CipherDirection == model.DirDecrypt
	adjacent := sgl.IsDigestAdjacent(srcAddr+uint64(cipherLen), op.AEAD.DigestAddr)

	// Source SGL is always AAD -> cipher-text, with the digest appended
	// (merged when physically adjacent) only on the decrypt path, where
	// firmware needs the tag as verification input.
	var cipherEntries wire.SGL
	if err := sgl.Build(op.SrcChain, srcAddr, cipherLen, &cipherEntries); err != nil {
		return errInvalid("%v", err)
	}

	c.SrcSGL = wire.SGL{}
	if op.AEAD.AADLength > 0 {
		c.SrcSGL.Entries = append(c.SrcSGL.Entries, wire.FlatBufferDescriptor{
			PhysicalAddress: op.AEAD.AADAddr,
			Length:          op.AEAD.AADLength,
		})
	}
	c.SrcSGL.Entries = append(c.SrcSGL.Entries, cipherEntries.Entries...)
	c.SrcSGL.NumBufs = uint32(len(c.SrcSGL.Entries))
	c.SrcSGL.NumMapped = c.SrcSGL.NumBufs
	if decrypting && sess.DigestLength > 0 {
		if err := sgl.AppendDigest(&c.SrcSGL, op.AEAD.DigestAddr, sess.DigestLength); err != nil {
			return errInvalid("%v", err)
		}
	}
	c.SrcSGLPhysAddr = b.registerSGL(&c.SrcSGL)
	req.Mid.SrcDataAddr = c.SrcSGLPhysAddr

	// Destination SGL is always cipher-text alone (in-place, so it covers
	// the same physical span the source's cipher-text entries do, minus
	// the AAD prefix), with the digest appended only on the encrypt path,
	// where firmware produces the tag as output.
	c.DstSGL = wire.SGL{Entries: append([]wire.FlatBufferDescriptor{}, cipherEntries.Entries...)}
	c.DstSGL.NumBufs = uint32(len(c.DstSGL.Entries))
	c.DstSGL.NumMapped = c.DstSGL.NumBufs
	dstLength := cipherLen
	if !decrypting && sess.DigestLength > 0 {
		if err := sgl.AppendDigest(&c.DstSGL, op.AEAD.DigestAddr, sess.DigestLength); err != nil {
			return errInvalid("%v", err)
		}
		if !adjacent {
			dstLength += sess.DigestLength
		}
	}
	c.DstSGLPhysAddr = b.registerSGL(&c.DstSGL)
	req.Mid.DstDataAddr = c.DstSGLPhysAddr
	req.Mid.DstLength = dstLength

	req.Header.CmnReqFlags |= wire.FlagPtrTypeSGL

	copy(slot, req.Marshal())
	return nil
}
