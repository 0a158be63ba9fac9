package wire

import "unsafe"

// RequestCommonHeader is the first 16 bytes of every request descriptor,
// identical across services. Field layout has no implicit Go padding
// (verified below), but Marshal/Unmarshal still write it explicitly byte
// by byte rather than relying on in-memory struct layout, since the wire
// contract belongs to the firmware, not to this compiler's ABI.
type RequestCommonHeader struct {
	ServiceType     uint8
	ServiceCmdID    uint8
	CmnID           uint8
	Rsvd            uint8
	ServSpecifFlags uint16
	CmnReqFlags     uint16
	Rsvd2           uint64
}

// Compile-time size check: this particular field order happens to need no
// Go padding, so the in-memory and wire sizes agree.
var _ [16]byte = [unsafe.Sizeof(RequestCommonHeader{})]byte{}

// RequestMid is the 32-byte opaque/address/length block common to
// symmetric, AEAD, and compression requests.
type RequestMid struct {
	OpaqueData  uint64
	SrcDataAddr uint64
	DstDataAddr uint64
	SrcLength   uint32
	DstLength   uint32
}

var _ [32]byte = [unsafe.Sizeof(RequestMid{})]byte{}

// CipherIVField is the union of "IV inline" (16 bytes) and "IV as a
// pointer" (8 bytes, rest unused), selected by FlagCipherIVFldPtr.
type CipherIVField [16]byte

// SetInline copies up to 16 bytes of IV directly into the field.
func (f *CipherIVField) SetInline(iv []byte) {
	*f = CipherIVField{}
	copy(f[:], iv)
}

// SetPointer stores a 64-bit pointer to an out-of-line IV in the first 8
// bytes, zeroing the rest.
func (f *CipherIVField) SetPointer(addr uint64) {
	*f = CipherIVField{}
	putUint64(f[0:8], addr)
}

// Pointer reads back a pointer previously stored with SetPointer.
func (f *CipherIVField) Pointer() uint64 {
	return getUint64(f[0:8])
}

// RequestTail holds the per-service parameter block shared by symmetric,
// AEAD (non-LCE), and CCM-B0-in-AAD requests, plus the trailing
// content-descriptor control fields. It occupies the 80 bytes that follow
// Header+Mid in a 128-byte SymRequest; Marshal lays it out at fixed
// offsets (see marshal.go) rather than depending on Go's struct alignment.
type RequestTail struct {
	CipherIV     CipherIVField
	CipherOffset uint32
	CipherLength uint32
	AuthOffset   uint32
	AuthLength   uint32
	AADAddr      uint64
	AADSize      uint32
	DigestAddr   uint64
	DigestSize   uint32
	HashStateSz  uint32
	HashPrefixSz uint32

	CDAddr  uint64
	CDSize  uint32
	CDFlags uint32
}

// SymRequest is the full 128-byte symmetric/AEAD request descriptor.
type SymRequest struct {
	Header RequestCommonHeader
	Mid    RequestMid
	Tail   RequestTail
}

// CompParams is the compression-specific parameter block that occupies
// the same 80-byte params budget as RequestTail on a compression request.
type CompParams struct {
	InitialAdler uint32
	InitialCRC   uint32
	OutputLenMax uint32
	CompDepth    uint8
	Algorithm    uint8
	Direction    uint8
	CDAddr       uint64
}

// CompRequest is the full 128-byte compression request descriptor.
type CompRequest struct {
	Header RequestCommonHeader
	Mid    RequestMid
	Params CompParams
}

// CompDirection values.
const (
	CompDirCompress   uint8 = 0
	CompDirDecompress uint8 = 1
)

// AsymRequest is a minimal 64-byte placeholder descriptor for the
// asymmetric service. Public-key request construction is out of scope for
// this core (the Operation data model carries no asymmetric substructure);
// this struct exists only so the dispatch table's message-size and
// ring-pair code has a concrete type to size against.
type AsymRequest struct {
	Header RequestCommonHeader
	Mid    RequestMid
	Rsvd   [16]byte
}

// Response is the fixed 32-byte completion descriptor.
type Response struct {
	ServiceType    uint8
	ServiceCmdID   uint8
	CmnStatus      uint8
	CmdID          uint8
	OpaqueData     uint64
	ExtraStatus    uint32
	ProducedLength uint32 // compression: bytes produced
	Checksum       uint32 // compression: CRC32 or Adler32
	ConsumedLength uint32 // compression: bytes consumed
	Rsvd           uint32
}

// FlatBufferDescriptor addresses one physically contiguous span.
type FlatBufferDescriptor struct {
	Length          uint32
	Rsvd            uint32
	PhysicalAddress uint64
}

var _ [16]byte = [unsafe.Sizeof(FlatBufferDescriptor{})]byte{}

// SGL is a scatter-gather list: a header plus up to MaxSGLEntries flat
// buffer descriptors. NumBufs tracks how many of Entries are populated.
type SGL struct {
	Rsvd      uint64
	NumBufs   uint32
	NumMapped uint32
	Entries   []FlatBufferDescriptor
}
