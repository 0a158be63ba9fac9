// Package ring implements the DMA-coherent TX/RX ring pair a queue pair
// is built on: anonymously-mmap'd memory standing in for a real memzone,
// filled with the empty-slot sentinel, and addressed through the
// dispatch-table CSR formulas for its device generation.
package ring

import (
	"fmt"

	"github.com/qatdrv/go-qat/internal/barrier"
	"github.com/qatdrv/go-qat/internal/constants"
	"github.com/qatdrv/go-qat/internal/dispatch"
	"golang.org/x/sys/unix"
)

// Pair is one ring (the TX or the RX side of a ring pair): a block of
// DMA-coherent memory plus the
// head/tail bookkeeping the queue-pair engine advances as it builds and
// harvests requests.
type Pair struct {
	mem []byte // mmap'd backing memory; len == queueSize

	basePhysical uint64 // synthetic physical address written to the base CSRs
	queueSize    uint32 // bytes
	messageSize  uint32 // bytes per descriptor

	hwBundle uint32
	hwRing   uint32

	head uint32 // next slot the driver/firmware will fill (byte offset)
	tail uint32 // next slot the driver will fill (byte offset)

	csrHead uint32
	csrTail uint32

	modulo       uint32
	maxInflights uint32

	pendingRequests    uint32
	processedResponses uint32
	inflights          int64
}

// sizeBitsRange mirrors spec's MIN..MAX ring-size-index bound.
func sizeBitsRange(descriptors, messageSize uint32) (sizeBits uint8, ok bool) {
	size := descriptors * messageSize
	for bits := uint8(constants.MinRingSizeBits); bits <= constants.MaxRingSizeBits; bits++ {
		if uint32(1)<<bits == size {
			return bits, true
		}
	}
	return 0, false
}

// New allocates and initializes a ring pair. descriptors must combine with
// messageSize to produce a power-of-two byte size within
// [MinRingSizeBits, MaxRingSizeBits]; alignment equals size, satisfying
// the wrap-masking invariant `((queue_size-1) & base_phys) == 0`.
func New(bus physAllocator, spec dispatch.HWSpec, bank *dispatch.CSRBank, bundle, ringNum, descriptors, messageSize uint32) (*Pair, error) {
	sizeBits, ok := sizeBitsRange(descriptors, messageSize)
	if !ok {
		return nil, fmt.Errorf("ring: queue_size must be a power of two between 2^%d and 2^%d bytes, got %d descriptors * %d bytes",
			constants.MinRingSizeBits, constants.MaxRingSizeBits, descriptors, messageSize)
	}
	queueSize := descriptors * messageSize

	mem, err := unix.Mmap(-1, 0, int(queueSize), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANONYMOUS)
	if err != nil {
		return nil, fmt.Errorf("ring: mmap %d bytes: %w", queueSize, err)
	}
	fillSentinel(mem)

	physAddr := bus.Alloc(mem)
	if physAddr&uint64(queueSize-1) != 0 {
		return nil, fmt.Errorf("ring: allocator returned unaligned base address 0x%x for size %d", physAddr, queueSize)
	}

	p := &Pair{
		mem:          mem,
		basePhysical: physAddr,
		queueSize:    queueSize,
		messageSize:  messageSize,
		hwBundle:     bundle,
		hwRing:       ringNum,
		modulo:       queueSize - 1,
		maxInflights: (queueSize / messageSize) - constants.SafetyMargin,
	}

	spec.BuildRingBase(bank, bundle, ringNum, physAddr)
	spec.ConfigureQueues(bank, bundle, ringNum, sizeBits, 0, 0)

	return p, nil
}

// physAllocator is the minimal surface Pair needs from internal/dma.Bus,
// kept as an interface so ring pair tests can substitute a fixed-address
// fake without pulling in the dma package.
type physAllocator interface {
	Alloc(buf []byte) uint64
}

func fillSentinel(mem []byte) {
	for i := range mem {
		mem[i] = constants.EmptySlotByte
	}
}

// Slot returns the descriptor-sized window at the given byte offset.
func (p *Pair) Slot(offset uint32) []byte {
	return p.mem[offset : offset+p.messageSize]
}

// IsEmptySlot reports whether the first word at offset still reads as the
// empty-slot sentinel, meaning firmware hasn't completed it yet.
func (p *Pair) IsEmptySlot(offset uint32) bool {
	w := p.Slot(offset)
	return w[0] == constants.EmptySlotByte && w[1] == constants.EmptySlotByte &&
		w[2] == constants.EmptySlotByte && w[3] == constants.EmptySlotByte
}

// ScrubSlot re-fills one descriptor-sized slot with the sentinel byte,
// done after the queue-pair engine has consumed a response.
func (p *Pair) ScrubSlot(offset uint32) {
	s := p.Slot(offset)
	for i := range s {
		s[i] = constants.EmptySlotByte
	}
}

// ScrubRange re-fills [from, to) with the sentinel byte, wrapping modulo
// queueSize if to < from (the "wrap mode" the queue-pair engine's head
// CSR write needs).
func (p *Pair) ScrubRange(from, to uint32) {
	if to >= from {
		for o := from; o < to; o += p.messageSize {
			p.ScrubSlot(o)
		}
		return
	}
	for o := from; o < p.queueSize; o += p.messageSize {
		p.ScrubSlot(o)
	}
	for o := uint32(0); o < to; o += p.messageSize {
		p.ScrubSlot(o)
	}
}

// Head, Tail, Modulo, MaxInflights, MessageSize, QueueSize, BasePhysical,
// HWBundle, HWRing are the plain accessors the queue-pair engine and
// tests read ring-pair state through.
func (p *Pair) Head() uint32          { return p.head }
func (p *Pair) Tail() uint32          { return p.tail }
func (p *Pair) Modulo() uint32        { return p.modulo }
func (p *Pair) MaxInflights() uint32  { return p.maxInflights }
func (p *Pair) MessageSize() uint32   { return p.messageSize }
func (p *Pair) QueueSize() uint32     { return p.queueSize }
func (p *Pair) BasePhysical() uint64  { return p.basePhysical }
func (p *Pair) HWBundle() uint32      { return p.hwBundle }
func (p *Pair) HWRing() uint32        { return p.hwRing }
func (p *Pair) Inflights() int64      { return p.inflights }

func (p *Pair) SetHead(h uint32)      { p.head = h }
func (p *Pair) SetTail(t uint32)      { p.tail = t }
func (p *Pair) AddInflights(n int64)  { p.inflights += n }

func (p *Pair) PendingRequests() uint32        { return p.pendingRequests }
func (p *Pair) SetPendingRequests(n uint32)    { p.pendingRequests = n }
func (p *Pair) AddPendingRequests(n uint32)    { p.pendingRequests += n }
func (p *Pair) ProcessedResponses() uint32     { return p.processedResponses }
func (p *Pair) SetProcessedResponses(n uint32) { p.processedResponses = n }
func (p *Pair) AddProcessedResponses(n uint32) { p.processedResponses += n }
func (p *Pair) CSRTail() uint32                { return p.csrTail }
func (p *Pair) SetCSRTail(t uint32)            { p.csrTail = t }
func (p *Pair) CSRHead() uint32                { return p.csrHead }
func (p *Pair) SetCSRHead(h uint32)            { p.csrHead = h }

// WriteTail performs the fenced CSR doorbell write advertising the new
// tail to firmware, then records csrTail.
func (p *Pair) WriteTail(spec dispatch.HWSpec, bank *dispatch.CSRBank) {
	barrier.Sfence()
	spec.CSRWriteTail(bank, p.hwBundle, p.hwRing, p.tail)
	p.csrTail = p.tail
}

// WriteHead performs the fenced CSR write telling firmware which slots
// the driver has consumed and may reuse, then records csrHead.
func (p *Pair) WriteHead(spec dispatch.HWSpec, bank *dispatch.CSRBank) {
	barrier.Mfence()
	spec.CSRWriteHead(bank, p.hwBundle, p.hwRing, p.head)
	p.csrHead = p.head
}

// Close tears down the ring pair. If requests are still in flight it
// refuses with ErrBusy-shaped behavior (caller retries after draining);
// otherwise it scrubs memory back to the sentinel and releases the mmap.
func (p *Pair) Close() error {
	if p.inflights > 0 {
		return fmt.Errorf("ring: %d requests still in flight", p.inflights)
	}
	fillSentinel(p.mem)
	return unix.Munmap(p.mem)
}
