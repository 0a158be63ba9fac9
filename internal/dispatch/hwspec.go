package dispatch

import (
	"sync"
	"sync/atomic"

	"github.com/qatdrv/go-qat/internal/barrier"
	"github.com/qatdrv/go-qat/internal/wire"
)

// CSRBank stands in for a PCI BAR: a flat word-addressed register space
// the HWSpec offset formulas index into. Production firmware would back
// this with an mmap'd BAR; here it's plain memory standing in for that
// mapping.
type CSRBank struct {
	regs []uint32
}

// NewCSRBank allocates a bank sized to hold wordCount 32-bit registers.
func NewCSRBank(wordCount int) *CSRBank {
	return &CSRBank{regs: make([]uint32, wordCount)}
}

// ReadWord performs a release-ordered read of register at byte offset.
func (c *CSRBank) ReadWord(byteOffset uint32) uint32 {
	return atomic.LoadUint32(&c.regs[byteOffset/4])
}

// WriteWord performs a fenced store to the register at byteOffset.
func (c *CSRBank) WriteWord(byteOffset uint32, v uint32) {
	barrier.Sfence()
	atomic.StoreUint32(&c.regs[byteOffset/4], v)
}

// BundleLayout gives the CSR-offset formulas for one device generation.
// Every field is a function value, not an interface implementation, so
// the hot path (csr_write_tail/csr_write_head) pays no dynamic dispatch.
type BundleLayout struct {
	RingHeadOffset      func(bundle, ring uint32) uint32
	RingTailOffset      func(bundle, ring uint32) uint32
	RingConfigOffset    func(bundle, ring uint32) uint32
	RingBaseLowOffset   func(bundle, ring uint32) uint32
	RingBaseHighOffset  func(bundle, ring uint32) uint32
	ArbiterEnableOffset func(bundle uint32) uint32
}

// HWSpec is one row of the dispatch table: everything that differs by
// device generation, resolved once at init and never mutated after.
type HWSpec struct {
	Generation Generation

	RingsPerBundle uint32
	BundleStride   uint32

	// LegacyAlgorithms marks generations that offer DES/3DES/MD5/ARC4
	// style ciphers. The request builders do not consult it.
	LegacyAlgorithms bool

	// SupportsLCEAEAD marks the LCE single-pass AES-256-GCM-only path.
	SupportsLCEAEAD bool

	// SupportsCompressionCNV marks generations that can validate a
	// decompress checksum in hardware (CNV).
	SupportsCompressionCNV bool

	Layout BundleLayout
}

// ReadConfig populates a bundle's service-type / message-size assignment
// by asking the mailbox which service a bundle was provisioned for, then
// resolving the wire message size for that service.
func (h *HWSpec) ReadConfig(mailbox PFVFMailbox, bundle uint32) (service uint8, messageSize uint32, err error) {
	service, err = mailbox.QueryServiceAssignment(bundle)
	if err != nil {
		return 0, 0, err
	}
	switch service {
	case wire.ServiceAsymmetric:
		messageSize = 64
	default:
		messageSize = 128
	}
	return service, messageSize, nil
}

// RingsPerService counts, of a bundle's RingsPerBundle rings, how many are
// assigned to the given service (a fixed split in this simplified table:
// a quarter, rounded down, to asymmetric; the rest to symmetric or
// compression).
func (h *HWSpec) RingsPerService(service uint8) uint32 {
	total := h.RingsPerBundle
	switch service {
	case wire.ServiceAsymmetric:
		return total / 4
	default:
		return total - total/4
	}
}

// BuildRingBase writes the lower and upper halves of a ring's DMA base
// address into its two base-address CSRs. Firmware requires the address
// pre-shifted right by 6 (64-byte ring-base granularity).
func (h *HWSpec) BuildRingBase(bank *CSRBank, bundle, ring uint32, physAddr uint64) {
	shifted := physAddr >> 6
	lowOff := h.Layout.RingBaseLowOffset(bundle, ring)
	highOff := h.Layout.RingBaseHighOffset(bundle, ring)
	bank.WriteWord(lowOff, uint32(shifted&0xFFFFFFFF))
	bank.WriteWord(highOff, uint32(shifted>>32))
}

// ArbSpinlock guards arb_enable/arb_disable for one device. It is
// per-device, not per-bundle: concurrent enable/disable calls across
// bundles on the same device must not interleave their read-modify-write
// of the shared arbiter-mask register.
type ArbSpinlock struct {
	mu sync.Mutex
}

// ArbEnable sets bundle's bit in the arbiter-enable mask CSR.
func (h *HWSpec) ArbEnable(bank *CSRBank, lock *ArbSpinlock, bundle uint32) {
	lock.mu.Lock()
	defer lock.mu.Unlock()
	off := h.Layout.ArbiterEnableOffset(bundle)
	mask := bank.ReadWord(off)
	mask |= 1 << (bundle % 32)
	bank.WriteWord(off, mask)
}

// ArbDisable clears bundle's bit in the arbiter-enable mask CSR.
func (h *HWSpec) ArbDisable(bank *CSRBank, lock *ArbSpinlock, bundle uint32) {
	lock.mu.Lock()
	defer lock.mu.Unlock()
	off := h.Layout.ArbiterEnableOffset(bundle)
	mask := bank.ReadWord(off)
	mask &^= 1 << (bundle % 32)
	bank.WriteWord(off, mask)
}

// ConfigureQueues writes the ring-config CSR: size (as a log2 index) plus
// near-empty/near-full watermarks packed into the same word.
func (h *HWSpec) ConfigureQueues(bank *CSRBank, bundle, ring uint32, sizeBits uint8, nearEmpty, nearFull uint8) {
	off := h.Layout.RingConfigOffset(bundle, ring)
	v := uint32(sizeBits) | uint32(nearEmpty)<<8 | uint32(nearFull)<<16
	bank.WriteWord(off, v)
}

// CSRWriteTail performs the release-ordered tail-pointer doorbell write
// that tells firmware new descriptors are ready to consume.
func (h *HWSpec) CSRWriteTail(bank *CSRBank, bundle, ring uint32, tail uint32) {
	off := h.Layout.RingTailOffset(bundle, ring)
	bank.WriteWord(off, tail)
}

// CSRWriteHead performs the release-ordered head-pointer write telling
// firmware which response slots the driver has consumed and may reuse.
func (h *HWSpec) CSRWriteHead(bank *CSRBank, bundle, ring uint32, head uint32) {
	off := h.Layout.RingHeadOffset(bundle, ring)
	bank.WriteWord(off, head)
}

// GetHWData resolves a (service, logical queue-pair id) pair to the
// physical (bundle, ring) location that backs it, given how many rings
// per bundle are assigned to each service. Each logical queue pair
// consumes a ring PAIR (TX at ring, RX at ring+1), so the rings a service
// owns within a bundle are divided into pairs before indexing.
func (h *HWSpec) GetHWData(service uint8, logicalQP uint32) (bundle, ring uint32) {
	pairsPerBundle := h.RingsPerService(service) / 2
	if pairsPerBundle == 0 {
		return 0, 0
	}
	bundle = logicalQP / pairsPerBundle
	ring = (logicalQP % pairsPerBundle) * 2
	return bundle, ring
}
