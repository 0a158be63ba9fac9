// Package bpi implements the DOCSIS Baseline Privacy Interface residue
// handling: hardware only ever processes whole cipher blocks, so the
// trailing partial block of a BPI session is encrypted or decrypted here
// in software, XORing it against a keystream block derived by ECB-
// encrypting either the session IV (first block) or the previous full
// ciphertext block (every later block) with the session key.
//
// There is no dedicated BPI primitive in the standard library or this
// repo's example pack, so the keystream block is produced with a bare
// crypto/cipher.Block.Encrypt call — the same one-block trick
// internal/bpi's callers would reach for if BPI were wired through a real
// AES-NI-backed cipher.Block, just run here directly instead of through
// cipher.NewCBCEncrypter with a throwaway IV.
package bpi

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/des"
	"fmt"

	"github.com/qatdrv/go-qat/internal/dma"
	"github.com/qatdrv/go-qat/internal/model"
)

// blockSize returns the cipher's block size, which is also the unit BPI
// residue handling and the IV operate on.
func blockSize(algo model.CipherAlgorithm) int {
	switch algo {
	case model.CipherDESCBC, model.Cipher3DESCBC:
		return 8
	default:
		return 16
	}
}

func newBlockCipher(algo model.CipherAlgorithm, key []byte) (cipher.Block, error) {
	switch algo {
	case model.CipherDESCBC:
		return des.NewCipher(key)
	case model.Cipher3DESCBC:
		return des.NewTripleDESCipher(key)
	default:
		return aes.NewCipher(key)
	}
}

func ecbEncryptBlock(algo model.CipherAlgorithm, key, block []byte) ([]byte, error) {
	blk, err := newBlockCipher(algo, key)
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(block))
	blk.Encrypt(out, block)
	return out, nil
}

// PreProcess implements BPI residue handling applied before a
// decrypt-direction request is enqueued: the final partial block never
// reaches hardware. It is decrypted here by XORing it against an
// ECB-encrypted keystream block derived from the previous full ciphertext
// block (or the session IV, if the whole span is shorter than one block),
// and the plaintext is written directly into the destination (or back into
// the source for in-place operations). It returns the cipher length
// hardware should process: cipherLen rounded down to a block boundary.
//
// Encrypt-direction sessions defer the symmetric residue handling to
// PostProcess, once hardware has produced the preceding ciphertext block
// the keystream derivation needs; PreProcess for that direction only
// trims the length hardware sees.
func PreProcess(bus *dma.Bus, ctx *model.BPIContext, op *model.Operation, cipherOfs, cipherLen uint32, iv []byte) (uint32, error) {
	if ctx == nil {
		return cipherLen, nil
	}
	bs := uint32(blockSize(ctx.Algorithm))
	residue := cipherLen % bs
	if residue == 0 {
		return cipherLen, nil
	}
	reduced := cipherLen - residue

	if op.Session.CipherDirection != model.DirDecrypt {
		return reduced, nil
	}

	keystreamSrc := iv
	if reduced >= bs {
		block, err := readAt(bus, op.SrcChain, cipherOfs+reduced-bs, bs)
		if err != nil {
			return 0, err
		}
		keystreamSrc = block
	}
	keystream, err := ecbEncryptBlock(ctx.Algorithm, ctx.Key, keystreamSrc)
	if err != nil {
		return 0, err
	}

	residueCiphertext, err := readAt(bus, op.SrcChain, cipherOfs+reduced, residue)
	if err != nil {
		return 0, err
	}
	plain := make([]byte, residue)
	for i := range plain {
		plain[i] = residueCiphertext[i] ^ keystream[i]
	}

	dstChain := op.DstChain
	if dstChain == nil {
		dstChain = op.SrcChain
	}
	if err := writeAt(bus, dstChain, cipherOfs+reduced, plain); err != nil {
		return 0, err
	}

	copy(ctx.PreviousBlock[:bs], keystreamSrc)
	return reduced, nil
}

// PostProcess implements BPI residue handling applied after an
// encrypt-direction request completes: hardware only produced the
// block-aligned prefix, so the response dispatcher calls this to encrypt
// the trailing partial block in software, XORing the plaintext residue
// against an ECB-encrypted keystream block derived from the last
// ciphertext block hardware did produce (now sitting in the destination).
func PostProcess(bus *dma.Bus, ctx *model.BPIContext, op *model.Operation, cipherOfs, cipherLen uint32, iv []byte) error {
	if ctx == nil {
		return nil
	}
	bs := uint32(blockSize(ctx.Algorithm))
	residue := cipherLen % bs
	if residue == 0 {
		return nil
	}
	reduced := cipherLen - residue

	dstChain := op.DstChain
	if dstChain == nil {
		dstChain = op.SrcChain
	}

	keystreamSrc := iv
	if reduced >= bs {
		block, err := readAt(bus, dstChain, cipherOfs+reduced-bs, bs)
		if err != nil {
			return err
		}
		keystreamSrc = block
	}
	keystream, err := ecbEncryptBlock(ctx.Algorithm, ctx.Key, keystreamSrc)
	if err != nil {
		return err
	}

	plain, err := readAt(bus, op.SrcChain, cipherOfs+reduced, residue)
	if err != nil {
		return err
	}
	ciphertext := make([]byte, residue)
	for i := range ciphertext {
		ciphertext[i] = plain[i] ^ keystream[i]
	}
	if err := writeAt(bus, dstChain, cipherOfs+reduced, ciphertext); err != nil {
		return err
	}

	copy(ctx.PreviousBlock[:bs], keystreamSrc)
	return nil
}

// locateSegment finds the chain segment holding [offset, offset+length)
// and the in-segment offset. BPI residues are at most one block (16 bytes
// at most), so in practice they never straddle a segment boundary; this
// returns an error in the one case they would rather than silently
// truncating.
func locateSegment(head *model.Chain, offset, length uint32) (*model.Chain, uint32, error) {
	cur := head
	remaining := offset
	for cur != nil {
		if remaining < cur.DataLen {
			if remaining+length > cur.DataLen {
				return nil, 0, fmt.Errorf("bpi: residue span crosses a buffer-chain segment boundary")
			}
			return cur, remaining, nil
		}
		remaining -= cur.DataLen
		cur = cur.Next
	}
	return nil, 0, fmt.Errorf("bpi: offset %d beyond end of chain", offset)
}

func readAt(bus *dma.Bus, head *model.Chain, offset, length uint32) ([]byte, error) {
	seg, segOfs, err := locateSegment(head, offset, length)
	if err != nil {
		return nil, err
	}
	buf, err := bus.Translate(seg.IOVA, seg.DataLen)
	if err != nil {
		return nil, err
	}
	out := make([]byte, length)
	copy(out, buf[segOfs:segOfs+length])
	return out, nil
}

func writeAt(bus *dma.Bus, head *model.Chain, offset uint32, data []byte) error {
	seg, segOfs, err := locateSegment(head, offset, uint32(len(data)))
	if err != nil {
		return err
	}
	buf, err := bus.Translate(seg.IOVA, seg.DataLen)
	if err != nil {
		return err
	}
	copy(buf[segOfs:segOfs+uint32(len(data))], data)
	return nil
}
