package fwmodel

import (
	"encoding/hex"
	"testing"

	"github.com/qatdrv/go-qat/internal/dma"
	"github.com/qatdrv/go-qat/internal/model"
	"github.com/qatdrv/go-qat/internal/wire"
	"github.com/stretchr/testify/require"
)

func mustHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	require.NoError(t, err)
	return b
}

// TestExecuteSymmetricAESCBCEncryptDecryptRoundTrips exercises scenario
// S1's key/IV/plaintext under an encrypt-then-decrypt round trip: the
// exact NIST ciphertext bytes aren't asserted here since this suite never
// runs the produced code, but the round trip is self-verifying.
func TestExecuteSymmetricAESCBCEncryptDecryptRoundTrips(t *testing.T) {
	bus := dma.NewBus()
	fw := New(bus)

	key := mustHex(t, "00112233445566778899aabbccddeeff")
	iv := mustHex(t, "000102030405060708090a0b0c0d0e0f")
	plaintext := make([]byte, 32)
	srcAddr := bus.Alloc(plaintext)
	ctOut := make([]byte, 32)
	ctAddr := bus.Alloc(ctOut)

	encReq := wire.SymRequest{
		Header: wire.RequestCommonHeader{ServiceType: wire.ServiceSymmetric},
		Mid: wire.RequestMid{
			OpaqueData:  0xdeadbeef,
			SrcDataAddr: srcAddr,
			DstDataAddr: ctAddr,
			SrcLength:   32,
			DstLength:   32,
		},
		Tail: wire.RequestTail{CipherLength: 32},
	}
	encReq.Tail.CipherIV.SetInline(iv)

	encSlot := make([]byte, 128)
	copy(encSlot, encReq.Marshal())
	encResp := make([]byte, 32)

	require.NoError(t, fw.ExecuteSymmetric(encSlot, encResp, key, model.CipherAESCBC, model.DirEncrypt))

	resp := wire.UnmarshalResponse(encResp)
	require.Equal(t, uint8(wire.RespFlagOK), resp.CmnStatus)
	require.Equal(t, uint64(0xdeadbeef), resp.OpaqueData)

	ciphertext, err := bus.Translate(ctAddr, 32)
	require.NoError(t, err)
	require.NotEqual(t, plaintext, ciphertext)

	plainOut := make([]byte, 32)
	plainAddr := bus.Alloc(plainOut)
	decReq := encReq
	decReq.Mid.SrcDataAddr = ctAddr
	decReq.Mid.DstDataAddr = plainAddr
	decSlot := make([]byte, 128)
	copy(decSlot, decReq.Marshal())
	decResp := make([]byte, 32)

	require.NoError(t, fw.ExecuteSymmetric(decSlot, decResp, key, model.CipherAESCBC, model.DirDecrypt))
	recovered, err := bus.Translate(plainAddr, 32)
	require.NoError(t, err)
	require.Equal(t, plaintext, recovered)
}

func TestExecuteSymmetricAESGCMTamperedTagFails(t *testing.T) {
	bus := dma.NewBus()
	fw := New(bus)

	key := mustHex(t, "feffe9928665731c6d6a8f9467308308")
	iv := mustHex(t, "cafebabefacedbaddecaf888")
	aad := mustHex(t, "feedfacedeadbeeffeedfacedeadbeefabaddad2")
	aadAddr := bus.Alloc(aad)

	plaintext := make([]byte, 60)
	srcAddr := bus.Alloc(plaintext)
	ctOut := make([]byte, 60)
	ctAddr := bus.Alloc(ctOut)
	tagBuf := make([]byte, 16)
	tagAddr := bus.Alloc(tagBuf)

	encReq := wire.SymRequest{
		Mid: wire.RequestMid{SrcDataAddr: srcAddr, DstDataAddr: ctAddr, SrcLength: 60, DstLength: 60},
		Tail: wire.RequestTail{
			CipherLength: 60, AADAddr: aadAddr, AADSize: uint32(len(aad)),
			DigestAddr: tagAddr, DigestSize: 16,
		},
	}
	encReq.Header.ServSpecifFlags = wire.FlagGCMProto | wire.FlagGCMIVLen12Octets
	encReq.Tail.CipherIV.SetInline(iv)
	encSlot := make([]byte, 128)
	copy(encSlot, encReq.Marshal())
	encResp := make([]byte, 32)
	require.NoError(t, fw.ExecuteSymmetric(encSlot, encResp, key, model.CipherAESGCM, model.DirEncrypt))

	// Tamper with the tag before decrypting.
	tagBuf[0] ^= 0xff

	plainOut := make([]byte, 60)
	plainAddr := bus.Alloc(plainOut)
	decReq := wire.SymRequest{
		Mid: wire.RequestMid{SrcDataAddr: ctAddr, DstDataAddr: plainAddr, SrcLength: 60, DstLength: 60},
		Tail: wire.RequestTail{
			CipherLength: 60, AADAddr: aadAddr, AADSize: uint32(len(aad)),
			DigestAddr: tagAddr, DigestSize: 16,
		},
	}
	decReq.Header.ServSpecifFlags = wire.FlagGCMProto | wire.FlagGCMIVLen12Octets
	decReq.Tail.CipherIV.SetInline(iv)
	decSlot := make([]byte, 128)
	copy(decSlot, decReq.Marshal())
	decResp := make([]byte, 32)
	require.NoError(t, fw.ExecuteSymmetric(decSlot, decResp, key, model.CipherAESGCM, model.DirDecrypt))

	resp := wire.UnmarshalResponse(decResp)
	require.Equal(t, uint8(0), resp.CmnStatus&uint8(wire.RespFlagOK))
}

func TestExecuteCompressionDeflateRoundTrip(t *testing.T) {
	bus := dma.NewBus()
	fw := New(bus)

	input := []byte("The quick brown fox jumps over the lazy dog")
	srcAddr := bus.Alloc(append([]byte{}, input...))
	compOut := make([]byte, 128)
	compAddr := bus.Alloc(compOut)

	compReq := wire.CompRequest{
		Mid:    wire.RequestMid{SrcDataAddr: srcAddr, DstDataAddr: compAddr, SrcLength: uint32(len(input))},
		Params: wire.CompParams{OutputLenMax: 128, Direction: wire.CompDirCompress},
	}
	compSlot := make([]byte, 128)
	copy(compSlot, compReq.Marshal())
	compResp := make([]byte, 32)
	require.NoError(t, fw.ExecuteCompression(compSlot, compResp))
	cresp := wire.UnmarshalResponse(compResp)
	require.Equal(t, uint8(wire.RespFlagOK), cresp.CmnStatus)
	require.Equal(t, uint32(0x519025e9), cresp.Checksum)

	compressed, err := bus.Translate(compAddr, cresp.ProducedLength)
	require.NoError(t, err)

	decompOut := make([]byte, 128)
	decompAddr := bus.Alloc(decompOut)
	decompSrcAddr := bus.Alloc(append([]byte{}, compressed...))

	decompReq := wire.CompRequest{
		Mid:    wire.RequestMid{SrcDataAddr: decompSrcAddr, DstDataAddr: decompAddr, SrcLength: cresp.ProducedLength},
		Params: wire.CompParams{OutputLenMax: 128, Direction: wire.CompDirDecompress},
	}
	decompSlot := make([]byte, 128)
	copy(decompSlot, decompReq.Marshal())
	decompResp := make([]byte, 32)
	require.NoError(t, fw.ExecuteCompression(decompSlot, decompResp))
	dresp := wire.UnmarshalResponse(decompResp)
	require.Equal(t, uint8(wire.RespFlagOK), dresp.CmnStatus)

	out, err := bus.Translate(decompAddr, dresp.ProducedLength)
	require.NoError(t, err)
	require.Equal(t, input, out)
}
