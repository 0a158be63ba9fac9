// Package reqbuilder implements the per-service request construction
// logic: copying a session template into a ring slot, overlaying
// operation-specific parameters, and patching SGL pointers.
package reqbuilder

import (
	"fmt"
	"unsafe"

	"github.com/qatdrv/go-qat/internal/constants"
	"github.com/qatdrv/go-qat/internal/dma"
	"github.com/qatdrv/go-qat/internal/model"
	"github.com/qatdrv/go-qat/internal/sgl"
	"github.com/qatdrv/go-qat/internal/wire"
)

// Builder constructs wire requests against a shared DMA bus, which it
// uses to register the SGLs and scratch buffers a request's descriptor
// points at.
type Builder struct {
	Bus *dma.Bus
}

// New creates a Builder bound to bus.
func New(bus *dma.Bus) *Builder {
	return &Builder{Bus: bus}
}

// opaqueFromOperation encodes a Go pointer as the wire opaque_data field.
// There is no real device behind this repo, so the "opaque" handle the
// accelerator hands back on completion is, in fact, the operation
// pointer itself — the same trick the dispatcher's recovery step relies
// on.
func opaqueFromOperation(op *model.Operation) uint64 {
	return uint64(uintptr(unsafe.Pointer(op)))
}

// min32 and max32 are tiny helpers kept local to avoid pulling in a
// generics-based min/max package; only max32 currently has a caller.
func min32(a, b uint32) uint32 {
	if a < b {
		return a
	}
	return b
}

func max32(a, b uint32) uint32 {
	if a > b {
		return a
	}
	return b
}

// alignedStart applies the in-place 64-byte-alignment trick: it rounds
// srcAddr down to a 64-byte boundary, but only when enough headroom sits
// before it; otherwise it returns the unaligned address unchanged. The
// return value is how many bytes the effective start moved back, which
// the caller subtracts from every offset it rewrites.
func alignedStart(addr uint64, headroom uint32) (effective uint64, shift uint32) {
	aligned := addr & uint64(constants.AlignMask64)
	back := addr - aligned
	if back == 0 || uint32(back) > headroom {
		return addr, 0
	}
	return aligned, uint32(back)
}

// registerSGL marshals sgl into the bus and returns its physical address.
// Each call registers a new region; earlier registrations are not freed.
func (b *Builder) registerSGL(s *wire.SGL) uint64 {
	return b.Bus.Alloc(wire.MarshalSGL(s))
}

// buildSGLOrFlat decides, per spec step 12, whether a chain needs the SGL
// path (more than one segment, or a distinct destination chain) or can
// use a flat inline address. It returns the address to patch into the
// descriptor's src/dst-data-addr field.
func (b *Builder) buildSGLOrFlat(head *model.Chain, startAddr uint64, length uint32, dest *wire.SGL, forceSGL bool) (uint64, error) {
	if !forceSGL && head.Next == nil {
		return startAddr, nil
	}
	if err := sgl.Build(head, startAddr, length, dest); err != nil {
		return 0, err
	}
	return b.registerSGL(dest), nil
}

// errInvalid is a small local helper kept plain (no root package error
// taxonomy here) since reqbuilder sits under the root package and must
// not import it back; callers upstack wrap these into *qat.Error.
func errInvalid(format string, args ...any) error {
	return fmt.Errorf("reqbuilder: "+format, args...)
}
