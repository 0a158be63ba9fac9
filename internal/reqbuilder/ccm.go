package reqbuilder

import (
	"encoding/binary"

	"github.com/qatdrv/go-qat/internal/constants"
	"github.com/qatdrv/go-qat/internal/cookie"
	"github.com/qatdrv/go-qat/internal/model"
)

// buildCCMB0 writes the CCM B0 block, and when AAD is present its 2-byte
// length prefix plus the AAD payload itself (zero-padded to a 16-byte
// boundary), into the cookie's CD scratch area and registers the result on
// the bus. It returns the address and size the descriptor's AAD fields
// should carry.
//
// B0's flags byte packs three fields: bit 6 set when AAD is present, bits
// 3-5 carry (digest_len-2)/2, bits 0-2 carry q-1 where q is the CCM
// length-field size (the nonce occupies the other 15-q bytes of the
// block). The message length is then packed big-endian into the trailing
// q bytes.
func (b *Builder) buildCCMB0(c *cookie.Cookie, aead *model.AEADParams, nonce []byte, cipherLen, digestLen uint32) (uint64, uint32, error) {
	q := aead.Q
	if q == 0 {
		q = 8
	}
	if q < 2 || q > 8 {
		return 0, 0, errInvalid("CCM q=%d out of range [2,8]", q)
	}
	nonceLen := 15 - int(q)
	if len(nonce) < nonceLen {
		return 0, 0, errInvalid("CCM nonce too short: need %d bytes, got %d", nonceLen, len(nonce))
	}

	scratch := c.CDScratch[:]
	for i := range scratch {
		scratch[i] = 0
	}

	hasAAD := aead.AADLength > 0
	flags := byte(0)
	if hasAAD {
		flags |= 0x40
	}
	flags |= byte(((digestLen - 2) / 2) << 3)
	flags |= byte(q - 1)
	scratch[0] = flags

	copy(scratch[1:1+nonceLen], nonce[:nonceLen])
	putBigEndianTail(scratch[1+nonceLen:constants.CCMB0BlockSize], uint64(cipherLen))

	aadSize := uint32(constants.CCMB0BlockSize)
	if hasAAD {
		binary.BigEndian.PutUint16(scratch[constants.CCMAADB0LenOffset:], uint16(aead.AADLength))

		aadPayload, err := b.Bus.Translate(aead.AADAddr, aead.AADLength)
		if err != nil {
			return 0, 0, errInvalid("%v", err)
		}
		end := constants.CCMAADDataOffset + int(aead.AADLength)
		padded := ((end + 15) / 16) * 16
		if padded > len(scratch) {
			return 0, 0, errInvalid("CCM AAD of %d bytes exceeds scratch capacity", aead.AADLength)
		}
		copy(scratch[constants.CCMAADDataOffset:end], aadPayload)
		aadSize = uint32(padded)
	}

	c.CDScratchLen = aadSize
	addr := b.Bus.Alloc(scratch[:aadSize])
	return addr, aadSize, nil
}

// putBigEndianTail writes v into dst, big-endian, sized for CCM's
// variable-width message-length field (2..8 bytes).
func putBigEndianTail(dst []byte, v uint64) {
	for i := len(dst) - 1; i >= 0; i-- {
		dst[i] = byte(v)
		v >>= 8
	}
}
