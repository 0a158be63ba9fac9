// Package dispatcher implements the response dispatcher: decoding a
// completed descriptor, recovering the operation it completes, and
// running the post-processing a completion needs before the caller sees
// it (BPI residue re-encryption, compression length/checksum copy-back).
package dispatcher

import (
	"fmt"
	"unsafe"

	"github.com/qatdrv/go-qat/internal/bpi"
	"github.com/qatdrv/go-qat/internal/cookie"
	"github.com/qatdrv/go-qat/internal/dispatch"
	"github.com/qatdrv/go-qat/internal/dma"
	"github.com/qatdrv/go-qat/internal/model"
	"github.com/qatdrv/go-qat/internal/wire"
)

// Dispatcher decodes completions against a shared DMA bus, the same bus
// the request builder registered its SGLs and BPI residue buffers
// against.
type Dispatcher struct {
	Bus *dma.Bus
}

// New creates a Dispatcher bound to bus.
func New(bus *dma.Bus) *Dispatcher {
	return &Dispatcher{Bus: bus}
}

// operationFromOpaque is the inverse of reqbuilder's opaqueFromOperation:
// the opaque_data field the wire hands back on completion is, in fact,
// the operation pointer itself.
func operationFromOpaque(opaque uint64) *model.Operation {
	return (*model.Operation)(unsafe.Pointer(uintptr(opaque)))
}

// Dispatch parses a completed 32-byte response descriptor and returns the
// model.Operation it completes, with Status and any post-processed
// fields filled in. Its signature matches queue.ProcessFunc so an
// Engine can be wired directly to (*Dispatcher).Dispatch.
func (d *Dispatcher) Dispatch(resp []byte, c *cookie.Cookie, gen dispatch.Generation) (*model.Operation, error) {
	r := wire.UnmarshalResponse(resp)
	op := operationFromOpaque(r.OpaqueData)
	if op == nil {
		return nil, fmt.Errorf("dispatcher: response carried a nil opaque handle")
	}
	if op.Session == nil {
		return nil, fmt.Errorf("dispatcher: response completes a sessionless operation")
	}

	switch {
	case r.CmnStatus&uint8(wire.RespFlagOK) != 0:
		op.Status = model.StatusSuccess
	case r.CmnStatus&uint8(wire.RespFlagLCEVerStatusFail) != 0:
		op.Status = model.StatusAuthFailed
	default:
		op.Status = model.StatusAuthFailed
	}

	if op.Status != model.StatusSuccess {
		return op, nil
	}

	if op.Compression != nil {
		op.ProducedLength = r.ProducedLength
		op.Checksum = r.Checksum
	}

	if op.Session.BPI != nil && op.Cipher != nil {
		if err := bpi.PostProcess(d.Bus, op.Session.BPI, op, op.Cipher.Offset, op.Cipher.Length, op.Cipher.IV); err != nil {
			op.Status = model.StatusInvalidArgs
			return op, fmt.Errorf("dispatcher: BPI post-process: %w", err)
		}
	}

	return op, nil
}
