// Package fwmodel is a test-only software stand-in for the accelerator:
// it reads a request descriptor the same way firmware would, performs
// the cipher/auth/compression work with the standard library, and writes
// back a completion descriptor. Round-trip tests dequeue from this
// instead of a real device.
//
// Key material is supplied directly to ExecuteSymmetric rather than carried on
// model.Session, since session-builder internals (content-descriptor
// population, key derivation) are out of scope for this core; the
// firmware model only needs to know which key and algorithm a given
// request was built under, which test code already knows.
package fwmodel

import (
	"bytes"
	"compress/flate"
	"crypto/aes"
	"crypto/cipher"
	"crypto/des"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"

	"github.com/qatdrv/go-qat/internal/dma"
	"github.com/qatdrv/go-qat/internal/model"
	"github.com/qatdrv/go-qat/internal/wire"
)

// Firmware resolves request buffer addresses against bus, the same one
// the request builder registered SGLs and scratch against.
type Firmware struct {
	Bus *dma.Bus
}

// New creates a Firmware bound to bus.
func New(bus *dma.Bus) *Firmware {
	return &Firmware{Bus: bus}
}

func blockCipherFor(algo model.CipherAlgorithm, key []byte) (cipher.Block, error) {
	switch algo {
	case model.CipherDESCBC:
		return des.NewCipher(key)
	case model.Cipher3DESCBC:
		return des.NewTripleDESCipher(key)
	default:
		return aes.NewCipher(key)
	}
}

// readSGLHeader reads an SGL's fixed 16-byte header to learn NumBufs,
// then re-reads the exact header+entries span UnmarshalSGL needs.
func (f *Firmware) readSGLHeader(addr uint64) (wire.SGL, error) {
	head, err := f.Bus.Translate(addr, 16)
	if err != nil {
		return wire.SGL{}, err
	}
	numBufs := binary.LittleEndian.Uint32(head[8:12])
	full, err := f.Bus.Translate(addr, 16+numBufs*16)
	if err != nil {
		return wire.SGL{}, err
	}
	return wire.UnmarshalSGL(full), nil
}

// resolveSpan reads the span a descriptor's data-addr/length pair
// addresses, following the SGL if FlagPtrTypeSGL is set.
func (f *Firmware) resolveSpan(addr uint64, length uint32, sgl bool) ([]byte, error) {
	if !sgl {
		return f.Bus.Translate(addr, length)
	}
	hdr, err := f.readSGLHeader(addr)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, length)
	for _, e := range hdr.Entries {
		seg, err := f.Bus.Translate(e.PhysicalAddress, e.Length)
		if err != nil {
			return nil, err
		}
		out = append(out, seg...)
	}
	if uint32(len(out)) < length {
		return nil, fmt.Errorf("fwmodel: SGL total %d bytes shorter than requested length %d", len(out), length)
	}
	return out[:length], nil
}

// writeSpan writes data back to the span a descriptor's data-addr/length
// pair addresses, following the SGL if present.
func (f *Firmware) writeSpan(addr uint64, data []byte, sgl bool) error {
	if !sgl {
		dst, err := f.Bus.Translate(addr, uint32(len(data)))
		if err != nil {
			return err
		}
		copy(dst, data)
		return nil
	}
	hdr, err := f.readSGLHeader(addr)
	if err != nil {
		return err
	}
	off := 0
	for _, e := range hdr.Entries {
		n := int(e.Length)
		if off+n > len(data) {
			n = len(data) - off
		}
		if n <= 0 {
			break
		}
		seg, err := f.Bus.Translate(e.PhysicalAddress, e.Length)
		if err != nil {
			return err
		}
		copy(seg, data[off:off+n])
		off += n
	}
	return nil
}

// ExecuteSymmetric plays firmware for one symmetric/AEAD request slot: it
// decodes the descriptor, performs the cipher keyed by key (and, for GCM,
// authenticates aad/tag), and writes a completion into respSlot. algo and
// direction describe the session the request was built under, the two
// pieces of information the wire descriptor alone doesn't carry (real
// firmware gets them from the content descriptor, which this core treats
// as opaque session-builder output).
func (f *Firmware) ExecuteSymmetric(reqSlot, respSlot []byte, key []byte, algo model.CipherAlgorithm, direction model.Direction) error {
	req := wire.UnmarshalSymRequest(reqSlot)
	sgl := req.Header.CmnReqFlags&wire.FlagPtrTypeSGL != 0

	src, err := f.resolveSpan(req.Mid.SrcDataAddr, req.Mid.SrcLength, sgl)
	if err != nil {
		return err
	}

	var iv []byte
	if req.Header.ServSpecifFlags&wire.FlagCipherIVFldPtr != 0 {
		ivAddr := req.Tail.CipherIV.Pointer()
		ivLen := 16
		if req.Header.ServSpecifFlags&wire.FlagGCMIVLen12Octets != 0 {
			ivLen = 12
		}
		iv, err = f.Bus.Translate(ivAddr, uint32(ivLen))
		if err != nil {
			return err
		}
	} else {
		ivLen := 16
		if req.Header.ServSpecifFlags&wire.FlagGCMIVLen12Octets != 0 {
			ivLen = 12
		}
		iv = append([]byte{}, req.Tail.CipherIV[:ivLen]...)
	}

	cipherOfs, cipherLen := req.Tail.CipherOffset, req.Tail.CipherLength
	if int(cipherOfs+cipherLen) > len(src) {
		return fmt.Errorf("fwmodel: cipher span [%d,%d) exceeds resolved source of %d bytes", cipherOfs, cipherOfs+cipherLen, len(src))
	}
	plaintextOrCipher := src[cipherOfs : cipherOfs+cipherLen]

	status := uint32(wire.RespFlagOK)
	var out []byte

	switch {
	case req.Header.ServSpecifFlags&wire.FlagGCMProto != 0:
		block, err := aes.NewCipher(key)
		if err != nil {
			return err
		}
		gcm, err := cipher.NewGCMWithNonceSize(block, len(iv))
		if err != nil {
			return err
		}
		aad, err := f.Bus.Translate(req.Tail.AADAddr, req.Tail.AADSize)
		if err != nil && req.Tail.AADSize > 0 {
			return err
		}
		if direction == model.DirEncrypt {
			sealed := gcm.Seal(nil, iv, plaintextOrCipher, aad)
			ct := sealed[:len(sealed)-gcm.Overhead()]
			tag := sealed[len(sealed)-gcm.Overhead():]
			out = ct
			if req.Tail.DigestAddr != 0 {
				dst, err := f.Bus.Translate(req.Tail.DigestAddr, uint32(len(tag)))
				if err != nil {
					return err
				}
				copy(dst, tag)
			}
		} else {
			tag, err := f.Bus.Translate(req.Tail.DigestAddr, req.Tail.DigestSize)
			if err != nil {
				return err
			}
			sealed := append(append([]byte{}, plaintextOrCipher...), tag...)
			opened, err := gcm.Open(nil, iv, sealed, aad)
			if err != nil {
				status = 0 // auth failure: leave RespFlagOK unset
				out = make([]byte, len(plaintextOrCipher))
			} else {
				out = opened
			}
		}
	default: // CBC/CTR/ECB
		block, err := blockCipherFor(algo, key)
		if err != nil {
			return err
		}
		out = make([]byte, len(plaintextOrCipher))
		switch algo {
		case model.CipherAESCTR:
			cipher.NewCTR(block, iv).XORKeyStream(out, plaintextOrCipher)
		case model.CipherAESECB:
			bs := block.BlockSize()
			for off := 0; off+bs <= len(plaintextOrCipher); off += bs {
				if direction == model.DirEncrypt {
					block.Encrypt(out[off:off+bs], plaintextOrCipher[off:off+bs])
				} else {
					block.Decrypt(out[off:off+bs], plaintextOrCipher[off:off+bs])
				}
			}
		default: // CBC family
			if direction == model.DirEncrypt {
				cipher.NewCBCEncrypter(block, iv).CryptBlocks(out, plaintextOrCipher)
			} else {
				cipher.NewCBCDecrypter(block, iv).CryptBlocks(out, plaintextOrCipher)
			}
		}
	}

	dstAddr, dstLen := req.Mid.DstDataAddr, req.Mid.DstLength
	full := make([]byte, dstLen)
	copy(full, out)
	if err := f.writeSpan(dstAddr, full, sgl); err != nil {
		return err
	}

	resp := wire.Response{
		ServiceType: wire.ServiceSymmetric,
		CmnStatus:   uint8(status),
		OpaqueData:  req.Mid.OpaqueData,
	}
	copy(respSlot, resp.Marshal())
	return nil
}

// ExecuteCompression plays firmware for one compression request slot:
// DEFLATE compress or decompress via compress/flate, a running CRC-32
// via hash/crc32 (the only checksum this core's wire layout carries).
func (f *Firmware) ExecuteCompression(reqSlot, respSlot []byte) error {
	req := wire.UnmarshalCompRequest(reqSlot)
	sgl := req.Header.CmnReqFlags&wire.FlagPtrTypeSGL != 0

	src, err := f.resolveSpan(req.Mid.SrcDataAddr, req.Mid.SrcLength, sgl)
	if err != nil {
		return err
	}

	var out []byte
	if req.Params.Direction == wire.CompDirDecompress {
		r := flate.NewReader(bytes.NewReader(src))
		out, err = io.ReadAll(r)
		if err != nil {
			return err
		}
		r.Close()
	} else {
		var buf bytes.Buffer
		w, err := flate.NewWriter(&buf, 5)
		if err != nil {
			return err
		}
		if _, err := w.Write(src); err != nil {
			return err
		}
		if err := w.Close(); err != nil {
			return err
		}
		out = buf.Bytes()
	}

	if uint32(len(out)) > req.Params.OutputLenMax {
		return fmt.Errorf("fwmodel: compression output %d bytes exceeds output_len_max %d", len(out), req.Params.OutputLenMax)
	}

	full := make([]byte, req.Params.OutputLenMax)
	copy(full, out)
	if err := f.writeSpan(req.Mid.DstDataAddr, full, sgl); err != nil {
		return err
	}

	resp := wire.Response{
		ServiceType:    wire.ServiceCompress,
		CmnStatus:      uint8(wire.RespFlagOK),
		OpaqueData:     req.Mid.OpaqueData,
		ProducedLength: uint32(len(out)),
		Checksum:       crc32.ChecksumIEEE(out),
		ConsumedLength: uint32(len(src)),
	}
	copy(respSlot, resp.Marshal())
	return nil
}
