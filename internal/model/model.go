// Package model holds the domain types shared across the request builder,
// response dispatcher, and queue-pair engine: Session and Operation. It
// has no dependency on the root package so both the root package and the
// internal request-processing packages can import it without a cycle.
package model

import "github.com/qatdrv/go-qat/internal/dispatch"

// CommandID mirrors the wire LA command IDs at the session level, before
// they're written into a request descriptor.
type CommandID int

const (
	CmdCipher CommandID = iota
	CmdAuth
	CmdCipherThenHash
	CmdHashThenCipher
	CmdAEAD
)

// CipherAlgorithm enumerates the symmetric ciphers this core builds
// requests for, including the bit-oriented 3G algorithms that need the
// byte-alignment check in the symmetric builder.
type CipherAlgorithm int

const (
	CipherNone CipherAlgorithm = iota
	CipherAESCBC
	CipherAESCTR
	CipherAESECB
	CipherAESGCM
	CipherAESCCM
	CipherAES256GCM
	CipherDESCBC
	Cipher3DESCBC
	CipherSNOW3GUEA2
	CipherKASUMIF8
	CipherZUCEEA3
	CipherZUC256
)

// bitOriented is consulted by the symmetric builder's byte-alignment
// check (spec step 4: offsets and lengths must be divisible by 8 for
// these algorithms, since hardware addresses them in bits).
var bitOriented = map[CipherAlgorithm]bool{
	CipherSNOW3GUEA2: true,
	CipherKASUMIF8:   true,
	CipherZUCEEA3:    true,
	CipherZUC256:     true,
}

// IsBitOriented reports whether a cipher algorithm is bit-addressed by
// firmware rather than byte-addressed.
func (a CipherAlgorithm) IsBitOriented() bool {
	return bitOriented[a]
}

// IsLegacy reports whether a cipher is only usable when legacy_capa is
// set, matching the driver-argument gate from the external interfaces.
func (a CipherAlgorithm) IsLegacy() bool {
	switch a {
	case CipherDESCBC, Cipher3DESCBC, CipherAESECB:
		return true
	default:
		return false
	}
}

// HashAlgorithm enumerates the supported MAC/digest algorithms for auth
// and chained cipher+auth sessions.
type HashAlgorithm int

const (
	HashNone HashAlgorithm = iota
	HashSHA1HMAC
	HashSHA256HMAC
	HashAESXCBC
	HashAESGMAC
)

// BPIContext carries the running DOCSIS Baseline Privacy Interface
// residue state for a session using block-cipher residue handling.
type BPIContext struct {
	Algorithm     CipherAlgorithm
	Key           []byte   // block-cipher key, needed to ECB-encrypt the residue IV
	PreviousBlock [16]byte // last full ciphertext block, updated post-process
}

// Session is the opaque-to-callers-but-not-to-this-core template the
// session builder hands the engine: everything the request builder
// consults is cached here rather than recomputed per request.
type Session struct {
	CommandID       CommandID
	CipherAlgorithm CipherAlgorithm
	CipherDirection Direction
	HashAlgorithm   HashAlgorithm

	CipherIVOffset uint32
	CipherIVLength uint32
	AuthIVOffset   uint32
	AuthIVLength   uint32

	AADLength     uint32
	DigestLength  uint32
	AuthKeyLength uint32

	BPI *BPIContext

	// FWRequestTemplate is the pre-built 128-byte descriptor with
	// per-session immutable fields already filled in (service type,
	// command id, static flags); the request builder copies this into
	// the output slot and overlays per-operation fields.
	FWRequestTemplate [128]byte

	MinDeviceGeneration dispatch.Generation
}

// Direction is cipher direction: encrypt or decrypt.
type Direction int

const (
	DirEncrypt Direction = iota
	DirDecrypt
)

// Status is the per-operation outcome the dispatcher writes back,
// distinct from the engine-level Error taxonomy: this rides on the op
// itself rather than being returned from enqueue/dequeue.
type Status int

const (
	StatusPending Status = iota
	StatusSuccess
	StatusAuthFailed
	StatusInvalidArgs
	StatusInvalidSession
)

// CipherParams carries a cipher (or the cipher half of a chained/AEAD
// operation)'s per-request offsets, lengths, and IV.
type CipherParams struct {
	Offset uint32
	Length uint32
	IV     []byte // inline IV bytes; len determines inline-vs-pointer placement upstream
}

// AuthParams carries the auth half of a chained operation.
type AuthParams struct {
	Offset uint32
	Length uint32
}

// AEADParams carries additional-authenticated-data and digest placement
// for AEAD/CCM/GCM operations.
type AEADParams struct {
	AADAddr    uint64
	AADLength  uint32
	DigestAddr uint64
	Q          uint8 // CCM length-field size, 2..8
}

// CompressionParams carries per-request compression knobs that vary
// independent of the session template (checksums reset per request).
type CompressionParams struct {
	InitialAdler uint32
	InitialCRC   uint32
	OutputLenMax uint32
}

// Operation is the application-supplied unit of work: a buffer chain,
// optional destination chain, and whichever of Cipher/Auth/AEAD/
// Compression applies to this session's command.
type Operation struct {
	Session *Session

	SrcChain *Chain
	DstChain *Chain // nil implies in-place

	Cipher      *CipherParams
	Auth        *AuthParams
	AEAD        *AEADParams
	Compression *CompressionParams

	Status Status

	// ProducedLength/Checksum are filled in by the response dispatcher
	// for compression operations.
	ProducedLength uint32
	Checksum       uint32
}

// Chain is a buffer chain: a linked list of physically addressed
// segments. internal/sgl builds scatter-gather lists from it, so sgl
// depends on model and not the reverse.
type Chain struct {
	IOVA    uint64
	DataLen uint32
	Next    *Chain

	// Headroom is how many unused bytes sit immediately before IOVA in
	// this segment's allocation — the Go-native stand-in for an mbuf's
	// headroom, consulted by the in-place alignment fallback (spec step
	// 9: round down to 64 bytes, but never past the buffer's headroom).
	Headroom uint32
}
