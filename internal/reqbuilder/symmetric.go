package reqbuilder

import (
	"github.com/qatdrv/go-qat/internal/cookie"
	"github.com/qatdrv/go-qat/internal/model"
	"github.com/qatdrv/go-qat/internal/sgl"
	"github.com/qatdrv/go-qat/internal/wire"
)

// BuildSymmetric builds a 128-byte symmetric/AEAD-on-generic-gens request
// into slot, following spec's twelve-step recipe. op.Session must be
// non-nil; c is the cookie loaned for this ring slot.
func (b *Builder) BuildSymmetric(op *model.Operation, slot []byte, c *cookie.Cookie) error {
	if op.Session == nil {
		return errInvalid("sessionless operation")
	}
	sess := op.Session

	// Step 1: copy the session template (already 128 bytes) into the slot.
	copy(slot, sess.FWRequestTemplate[:])
	req := wire.UnmarshalSymRequest(slot)

	// Step 2.
	req.Mid.OpaqueData = opaqueFromOperation(op)

	doCipher, doAuth, doAEAD := classify(sess)

	var cipherOfs, cipherLen, authOfs, authLen uint32
	var ivBytes []byte

	if doCipher || doAEAD {
		if op.Cipher == nil {
			return errInvalid("cipher operation missing CipherParams")
		}
		cipherOfs, cipherLen = op.Cipher.Offset, op.Cipher.Length

		// Step 4: bit-oriented byte-alignment check.
		if sess.CipherAlgorithm.IsBitOriented() {
			if cipherOfs%8 != 0 || cipherLen%8 != 0 {
				return errInvalid("bit-oriented cipher requires offset and length divisible by 8, got ofs=%d len=%d", cipherOfs, cipherLen)
			}
			cipherOfs, cipherLen = cipherOfs/8, cipherLen/8
		}

		ivBytes = op.Cipher.IV

		// DOCSIS BPI pre-process narrows cipher_len by the residue; the
		// bpi package returns the adjusted byte length directly.
		if sess.BPI != nil {
			adjusted, err := b.bpiPreProcessLen(sess, op, cipherOfs, cipherLen, ivBytes)
			if err != nil {
				return err
			}
			cipherLen = adjusted
		}
	}

	if doAuth {
		if op.Auth == nil {
			return errInvalid("auth operation missing AuthParams")
		}
		authOfs, authLen = op.Auth.Offset, op.Auth.Length
	}

	// Step 5: IV placement. This core only implements the inline path
	// (IV length <= 16); the 64-bit-pointer path exists in the wire
	// format for IVs that don't fit, which none of this core's supported
	// algorithms produce.
	if len(ivBytes) > 16 {
		return errInvalid("IV length %d exceeds inline capacity", len(ivBytes))
	}
	if len(ivBytes) > 0 {
		req.Tail.CipherIV.SetInline(ivBytes)
	}
	req.Header.CmnReqFlags &^= wire.FlagCipherIVFldPtr // always inline on this core

	// Step 6: GCM 12-byte IV.
	if isGCM(sess.CipherAlgorithm) && len(ivBytes) == 12 {
		req.Header.ServSpecifFlags |= wire.FlagGCMIVLen12Octets
	}

	// Step 7: CCM B0 block.
	if sess.CipherAlgorithm == model.CipherAESCCM {
		if op.AEAD == nil {
			return errInvalid("CCM operation missing AEADParams")
		}
		aadAddr, aadSize, err := b.buildCCMB0(c, op.AEAD, ivBytes, cipherLen, sess.DigestLength)
		if err != nil {
			return err
		}
		req.Tail.AADAddr = aadAddr
		req.Tail.AADSize = aadSize
		req.Header.ServSpecifFlags |= wire.FlagCCMProto
	} else if isGCM(sess.CipherAlgorithm) && op.AEAD != nil {
		req.Tail.AADAddr = op.AEAD.AADAddr
		req.Tail.AADSize = op.AEAD.AADLength
		req.Header.ServSpecifFlags |= wire.FlagGCMProto
	}

	if op.AEAD != nil {
		req.Tail.DigestAddr = op.AEAD.DigestAddr
		req.Tail.DigestSize = sess.DigestLength
	}

	// Step 8: min_offset across whichever sub-operations apply.
	var minOffset uint32
	switch {
	case (doCipher || doAEAD) && doAuth:
		minOffset = cipherOfs
		if authOfs < cipherOfs {
			minOffset = authOfs
		}
	case doCipher || doAEAD:
		minOffset = cipherOfs
	default:
		minOffset = authOfs
	}

	inPlace := op.DstChain == nil

	// Steps 9-11: resolve addresses, align (in-place only), rewrite
	// offsets as deltas, compute total DMA length.
	srcAddr, headroom, err := sgl.IOVAOffset(op.SrcChain, minOffset)
	if err != nil {
		return errInvalid("%v", err)
	}

	var srcBufStart uint64
	var shift uint32
	if inPlace {
		srcBufStart, shift = alignedStart(srcAddr, headroom)
	} else {
		srcBufStart, shift = srcAddr, 0
	}
	baseOffset := minOffset - shift

	var dstBufStart uint64
	if !inPlace {
		dstBufStart, _, err = sgl.IOVAOffset(op.DstChain, minOffset)
		if err != nil {
			return errInvalid("%v", err)
		}
	}

	if doCipher || doAEAD {
		req.Tail.CipherOffset = cipherOfs - baseOffset
		req.Tail.CipherLength = cipherLen
	}
	if doAuth {
		req.Tail.AuthOffset = authOfs - baseOffset
		req.Tail.AuthLength = authLen
	}

	cipherEnd := cipherOfs + cipherLen
	authEnd := authOfs + authLen
	totalLen := max32(cipherEnd, authEnd) - baseOffset
	req.Mid.SrcLength = totalLen

	// Step 12: SGL vs flat dispatch.
	multiSeg := op.SrcChain.Next != nil
	if !inPlace {
		req.Mid.DstLength = totalLen
		dstAddr, err := b.buildSGLOrFlat(op.DstChain, dstBufStart, totalLen, &c.DstSGL, true)
		if err != nil {
			return errInvalid("%v", err)
		}
		c.DstSGLPhysAddr = dstAddr
		req.Mid.DstDataAddr = dstAddr
	} else {
		req.Mid.DstLength = totalLen
		req.Mid.DstDataAddr = srcBufStart
	}

	srcAddrOut, err := b.buildSGLOrFlat(op.SrcChain, srcBufStart, totalLen, &c.SrcSGL, multiSeg || !inPlace)
	if err != nil {
		return errInvalid("%v", err)
	}
	c.SrcSGLPhysAddr = srcAddrOut
	req.Mid.SrcDataAddr = srcAddrOut

	if multiSeg || !inPlace {
		req.Header.CmnReqFlags |= wire.FlagPtrTypeSGL
	} else {
		req.Header.CmnReqFlags &^= wire.FlagPtrTypeSGL
	}

	copy(slot, req.Marshal())
	return nil
}

// classify determines do_cipher/do_auth/do_aead from the session's
// command and algorithm, collapsing AES-GCM/CCM cipher commands into AEAD
// per spec step 3.
func classify(sess *model.Session) (doCipher, doAuth, doAEAD bool) {
	switch sess.CommandID {
	case model.CmdCipher:
		doCipher = true
	case model.CmdAuth:
		doAuth = true
	case model.CmdCipherThenHash, model.CmdHashThenCipher:
		doCipher, doAuth = true, true
	case model.CmdAEAD:
		doAEAD = true
	}
	if doCipher && (sess.CipherAlgorithm == model.CipherAESGCM ||
		sess.CipherAlgorithm == model.CipherAESCCM ||
		sess.CipherAlgorithm == model.CipherAES256GCM) {
		doCipher, doAEAD = false, true
	}
	return
}

func isGCM(a model.CipherAlgorithm) bool {
	return a == model.CipherAESGCM || a == model.CipherAES256GCM
}
