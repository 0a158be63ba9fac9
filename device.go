package qat

import (
	"fmt"

	"github.com/qatdrv/go-qat/internal/constants"
	"github.com/qatdrv/go-qat/internal/cookie"
	"github.com/qatdrv/go-qat/internal/dispatch"
	"github.com/qatdrv/go-qat/internal/dispatcher"
	"github.com/qatdrv/go-qat/internal/dma"
	"github.com/qatdrv/go-qat/internal/logging"
	"github.com/qatdrv/go-qat/internal/model"
	"github.com/qatdrv/go-qat/internal/queue"
	"github.com/qatdrv/go-qat/internal/reqbuilder"
	"github.com/qatdrv/go-qat/internal/ring"
)

// Session and Operation are the public names for the domain types every
// queue pair builds requests from and writes completions back onto; they
// live in internal/model so the request builder, queue-pair engine, and
// response dispatcher can all share them without importing this package.
type Session = model.Session
type Operation = model.Operation

// Device owns the hardware plumbing shared by every queue pair carved out
// of it: the CSR bank, the DMA bus operation buffer chains are registered
// against, the per-device arbiter spinlock, and the generation-specific
// dispatch-table row. PCI discovery and capability negotiation are out of
// scope; a Device is handed an already-resolved generation and mailbox.
type Device struct {
	ID      uint32
	Gen     dispatch.Generation
	Args    DriverArgs
	spec    dispatch.HWSpec
	bank    *dispatch.CSRBank
	bus     *dma.Bus
	arbLock *dispatch.ArbSpinlock
	mailbox dispatch.PFVFMailbox

	builder    *reqbuilder.Builder
	dispatcher *dispatcher.Dispatcher
	log        *logging.Logger

	queuePairs []*QueuePair
}

// NewDevice constructs a Device for the given generation, backed by bank
// for its CSR space and bus for its operation buffer chains. mailbox may
// be dispatch.NoopMailbox{} when no real PF/VF transport is available.
func NewDevice(id uint32, gen dispatch.Generation, args DriverArgs, bank *dispatch.CSRBank, bus *dma.Bus, mailbox dispatch.PFVFMailbox) (*Device, error) {
	spec, ok := dispatch.Lookup(gen)
	if !ok {
		return nil, NewError("new_device", CodeInvalid, fmt.Sprintf("unknown generation %d", gen))
	}
	log := logging.Default().WithDevice(id)
	log.Infof("device attached, generation=%s", gen)
	return &Device{
		ID: id, Gen: gen, Args: args,
		spec: spec, bank: bank, bus: bus,
		arbLock:    &dispatch.ArbSpinlock{},
		mailbox:    mailbox,
		builder:    reqbuilder.New(bus),
		dispatcher: dispatcher.New(bus),
		log:        log,
	}, nil
}

// QueuePair is the public handle a caller enqueues operations onto and
// dequeues completions from: a thin wrapper over the internal queue-pair
// engine that translates its plain errors into *Error and its Stats into
// the public Stats shape.
type QueuePair struct {
	dev    *Device
	bundle uint32
	engine *queue.Engine
	log    *logging.Logger
}

// NewQueuePair resolves the logicalQP'th queue pair of service to its
// (bundle, ring) location via the dispatch table, confirms that bundle's
// provisioned service and wire message size with the PF over the mailbox,
// and allocates its TX/RX ring pair. On gen4+ hardware it first asks the
// PF to reset the bundle's ring pairs; that reset (like the service-
// assignment query before it) has no retry path, so a mailbox failure
// here fails queue-pair setup hard rather than leaving a half-initialized
// ring pair behind.
func (d *Device) NewQueuePair(service uint8, logicalQP uint32, descriptors uint32) (*QueuePair, error) {
	bundle, ringIdx := d.spec.GetHWData(service, logicalQP)
	_, messageSize, err := d.spec.ReadConfig(d.mailbox, bundle)
	if err != nil {
		return nil, WrapError("new_queue_pair", err)
	}

	if d.Gen >= dispatch.Gen4 {
		if err := d.mailbox.ResetRingPairs(bundle); err != nil {
			return nil, WrapError("new_queue_pair", err)
		}
	}

	tx, err := ring.New(d.bus, d.spec, d.bank, bundle, ringIdx, descriptors, messageSize)
	if err != nil {
		return nil, WrapError("new_queue_pair", err)
	}
	rx, err := ring.New(d.bus, d.spec, d.bank, bundle, ringIdx+1, descriptors, constants.RespMessageSize)
	if err != nil {
		return nil, WrapError("new_queue_pair", err)
	}
	cookies := cookie.NewPool(int(descriptors))

	gen := d.Gen
	build := func(op *model.Operation, slot []byte, c *cookie.Cookie, gen dispatch.Generation) error {
		return d.buildRequest(op, slot, c, gen)
	}
	process := d.dispatcher.Dispatch

	engine := queue.New(tx, rx, cookies, d.spec, d.bank, d.arbLock, gen, build, process)
	qpLog := d.log.WithQueue(int(bundle))
	qpLog.Debugf("queue pair allocated, descriptors=%d message_size=%d", descriptors, messageSize)
	qp := &QueuePair{dev: d, bundle: bundle, engine: engine, log: qpLog}
	d.queuePairs = append(d.queuePairs, qp)
	return qp, nil
}

// buildRequest routes an operation to the request-builder path its
// session and this device's generation call for: compression always goes
// through the compression builder regardless of generation; AEAD
// operations on a generation that supports the LCE single-pass path use
// it; everything else (cipher, auth, chained, AEAD-on-generic-gens, CCM)
// goes through the symmetric builder.
func (d *Device) buildRequest(op *model.Operation, slot []byte, c *cookie.Cookie, gen dispatch.Generation) error {
	if op.Session == nil {
		return NewError("build_request", CodeInvalid, "sessionless operation")
	}
	if op.Session.MinDeviceGeneration > gen {
		op.Status = model.StatusInvalidSession
		return NewError("build_request", CodeInvalidSession,
			fmt.Sprintf("session requires generation >= %s, device is %s", op.Session.MinDeviceGeneration, gen))
	}

	switch {
	case op.Compression != nil:
		return d.builder.BuildCompression(op, slot, c)
	case op.AEAD != nil && d.spec.SupportsLCEAEAD:
		return d.builder.BuildLCEAEAD(op, slot, c)
	default:
		return d.builder.BuildSymmetric(op, slot, c)
	}
}

// Activate transitions the queue pair from IDLE to ACTIVE, enabling its
// bundle's arbiter.
func (qp *QueuePair) Activate() error {
	if err := qp.engine.Activate(); err != nil {
		return WrapError("activate", err)
	}
	qp.log.Info("queue pair activated")
	return nil
}

// TX and RX expose the queue pair's ring pair for a test harness standing
// in for real firmware; production code never calls these.
func (qp *QueuePair) TX() *ring.Pair { return qp.engine.TX() }
func (qp *QueuePair) RX() *ring.Pair { return qp.engine.RX() }

// EnqueueBurst builds and submits up to len(ops) requests, returning how
// many were actually enqueued (a short count is not itself an error: a
// full ring or an admission-control shortfall is ordinary backpressure).
func (qp *QueuePair) EnqueueBurst(ops []*model.Operation) (int, error) {
	n, err := qp.engine.EnqueueBurst(ops)
	if err != nil {
		return n, WrapError("enqueue_burst", err)
	}
	return n, nil
}

// DequeueBurst harvests up to len(outOps) completions.
func (qp *QueuePair) DequeueBurst(outOps []*model.Operation) (int, error) {
	n, err := qp.engine.DequeueBurst(outOps)
	if err != nil {
		return n, WrapError("dequeue_burst", err)
	}
	return n, nil
}

// Release tears the queue pair down, returning CodeBusy while operations
// remain in flight (the caller must keep draining and retry).
func (qp *QueuePair) Release() error {
	if err := qp.engine.Release(); err != nil {
		if err == queue.ErrBusy {
			qp.log.Warn("release refused, requests still in flight")
			return NewQueueError("release", qp.dev.ID, int(qp.bundle), CodeBusy, err.Error())
		}
		return WrapError("release", err)
	}
	qp.log.Info("queue pair released")
	return nil
}

// Stats returns a snapshot of this queue pair's counters.
func (qp *QueuePair) Stats() Stats {
	var s Stats
	s.Enqueued.Store(qp.engine.Stats.Enqueued.Load())
	s.Dequeued.Store(qp.engine.Stats.Dequeued.Load())
	s.EnqueueErr.Store(qp.engine.Stats.EnqueueErr.Load())
	s.DequeueErr.Store(qp.engine.Stats.DequeueErr.Load())
	return s
}
