// Package wire defines the bit-exact request/response descriptors the
// accelerator firmware expects, plus the marshal/unmarshal helpers that
// turn them into ring bytes. Every layout here is fixed by the firmware
// contract: explicit byte offsets and masks are used throughout instead of
// Go struct tags or language bit-fields, since neither has a portable,
// bit-for-bit guaranteed layout.
package wire

// Service types, assigned per ring bundle by the dispatch table's
// read_config.
const (
	ServiceSymmetric  uint8 = 0
	ServiceAsymmetric uint8 = 1
	ServiceCompress   uint8 = 2
)

// LA (symmetric crypto) command IDs.
const (
	CmdCipher       uint8 = 0
	CmdAuth         uint8 = 1
	CmdCipherHash   uint8 = 2
	CmdHashCipher   uint8 = 3
	CmdAEAD         uint8 = 4 // LCE generation specializes this to AEAD
	CmdCipherCRC    uint8 = 17
)

// Compression command IDs.
const (
	CmdCompressStatic  uint8 = 0
	CmdCompressDynamic uint8 = 1
	CmdDecompress      uint8 = 2
)

// comn_req_flags / serv_specif_flags bits (selected, per spec).
const (
	FlagGCMIVLen12Octets uint16 = 1 << 0
	FlagZUC3GProto       uint16 = 1 << 1
	FlagDigestInBuffer   uint16 = 1 << 2
	FlagReturnAuthRes    uint16 = 1 << 3
	FlagUpdateState      uint16 = 1 << 4
	FlagCipherIVFldPtr   uint16 = 1 << 5
	FlagCCMProto         uint16 = 1 << 6
	FlagGCMProto         uint16 = 1 << 7
	FlagSNOW3GProto      uint16 = 1 << 8
	FlagPartialStart     uint16 = 1 << 9
	FlagPartialMid       uint16 = 1 << 10
	FlagPartialEnd       uint16 = 1 << 11

	// CmnReqFlags: pointer type for src/dst addresses.
	FlagPtrTypeSGL  uint16 = 1 << 0
	FlagPtrTypeFlat uint16 = 0
)

// Compression flags (reuse ServSpecifFlags on a compression request).
const (
	FlagCompSOP    uint16 = 1 << 0
	FlagCompEOP    uint16 = 1 << 1
	FlagCompBFinal uint16 = 1 << 2
	FlagCompCNV    uint16 = 1 << 3 // CRC/checksum validation on decompress
)

// Response comn_status bits.
const (
	RespFlagOK             uint32 = 1 << 0
	RespFlagLCEVerStatusFail uint32 = 1 << 1
)

// DeflateAlgorithm marks the only supported compression algorithm on this
// core; LZS is rejected at session build time.
const DeflateAlgorithm uint8 = 0

// Compression hardware search depths, selected from the application's
// 1..9 level by CompressionDepthForLevel.
const (
	CompDepth1  = 1
	CompDepth4  = 4
	CompDepth8  = 8
	CompDepth16 = 16
)

// CompressionDepthForLevel maps an application compression level (1, 2,
// 3, or 4-9) to a hardware search depth. Anything outside that mapping
// (including 0) defaults to depth 8.
func CompressionDepthForLevel(level int) uint8 {
	switch {
	case level == 1:
		return CompDepth1
	case level == 2:
		return CompDepth4
	case level == 3:
		return CompDepth8
	case level >= 4 && level <= 9:
		return CompDepth16
	default:
		return CompDepth8
	}
}
