// Package queue implements the queue-pair engine: the per-QP state
// machine and the enqueue/dequeue burst loops that drive a ring pair
// through the request builder and response dispatcher.
package queue

import (
	"fmt"
	"sync/atomic"

	"github.com/qatdrv/go-qat/internal/constants"
	"github.com/qatdrv/go-qat/internal/cookie"
	"github.com/qatdrv/go-qat/internal/dispatch"
	"github.com/qatdrv/go-qat/internal/model"
	"github.com/qatdrv/go-qat/internal/ring"
)

// State is a queue pair's position in the IDLE->ACTIVE->DRAINING->RELEASED
// lifecycle.
type State int

const (
	StateIdle State = iota
	StateActive
	StateDraining
	StateReleased
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateActive:
		return "active"
	case StateDraining:
		return "draining"
	case StateReleased:
		return "released"
	default:
		return "unknown"
	}
}

// BuildFunc constructs a request descriptor for op into slot, using c as
// the slot's scratch cookie, targeting the given device generation.
type BuildFunc func(op *model.Operation, slot []byte, c *cookie.Cookie, gen dispatch.Generation) error

// ProcessFunc parses a completed response descriptor and returns the
// operation it completes (recovered from the response's opaque handle),
// with its Status field already filled in.
type ProcessFunc func(resp []byte, c *cookie.Cookie, gen dispatch.Generation) (*model.Operation, error)

// Stats are the plain atomic counters an Engine keeps. The root package
// folds these into its own aggregate rather than this package depending
// on the root package's type, which would create an import cycle.
type Stats struct {
	Enqueued   atomic.Uint64
	Dequeued   atomic.Uint64
	EnqueueErr atomic.Uint64
	DequeueErr atomic.Uint64
}

// ErrBusy is returned by Release while operations are still in flight; the
// caller must keep draining (calling DequeueBurst) and retry.
var ErrBusy = fmt.Errorf("queue: requests still in flight, release refused")

// Engine is one queue pair: a TX ring for requests, an RX ring for
// responses, a cookie pool shared by both (indexed by slot position, which
// advances in lockstep on both rings under the single-producer
// single-consumer discipline this engine assumes), and the hardware
// plumbing needed to reach the CSRs.
//
// Engine performs no internal locking of its own: EnqueueBurst and
// DequeueBurst may run concurrently with each other (one producer thread,
// one consumer thread) but never concurrently with themselves. The
// arbiter spinlock is the one piece of shared state an Engine does not
// own outright, since it is shared across every queue pair on the same
// device.
type Engine struct {
	tx      *ring.Pair
	rx      *ring.Pair
	cookies *cookie.Pool

	spec    dispatch.HWSpec
	bank    *dispatch.CSRBank
	arbLock *dispatch.ArbSpinlock
	gen     dispatch.Generation

	build   BuildFunc
	process ProcessFunc

	state State
	Stats Stats
}

// New wires an Engine to an already-constructed TX/RX ring pair and cookie
// pool. arbLock must be the same spinlock shared by every queue pair on
// this device, since the arbiter-enable CSR is bundle-wide, not
// per-ring-pair. The engine starts IDLE.
func New(tx, rx *ring.Pair, cookies *cookie.Pool, spec dispatch.HWSpec, bank *dispatch.CSRBank, arbLock *dispatch.ArbSpinlock, gen dispatch.Generation, build BuildFunc, process ProcessFunc) *Engine {
	return &Engine{
		tx: tx, rx: rx, cookies: cookies,
		spec: spec, bank: bank, arbLock: arbLock, gen: gen,
		build: build, process: process,
		state: StateIdle,
	}
}

// State reports the engine's current lifecycle state.
func (e *Engine) State() State { return e.state }

// TX and RX expose the underlying ring pair. Production code never
// touches these directly (the engine drives them); they exist so a test
// harness standing in for real firmware can read built requests off the
// TX ring and write completions onto the RX ring.
func (e *Engine) TX() *ring.Pair { return e.tx }
func (e *Engine) RX() *ring.Pair { return e.rx }

// Activate enables the bundle's arbiter and transitions IDLE to ACTIVE.
func (e *Engine) Activate() error {
	if e.state != StateIdle {
		return fmt.Errorf("queue: Activate called from state %s, want idle", e.state)
	}
	e.spec.ArbEnable(e.bank, e.arbLock, e.tx.HWBundle())
	e.state = StateActive
	return nil
}

// EnqueueBurst builds up to len(ops) requests and pushes them onto the TX
// ring, returning how many were actually enqueued. A full ring, or a batch
// that only partly fits, is not an error: EnqueueBurst short-returns.
func (e *Engine) EnqueueBurst(ops []*model.Operation) (int, error) {
	if e.state != StateActive {
		return 0, fmt.Errorf("queue: EnqueueBurst called from state %s, want active", e.state)
	}
	nbOps := len(ops)
	if nbOps == 0 {
		return 0, nil
	}

	// Step 1: admission control. Tentatively reserve nbOps inflight slots;
	// if that overshoots max_inflights, give back the overflow and shrink
	// how many of ops this burst will actually attempt.
	e.tx.AddInflights(int64(nbOps))
	overflow := e.tx.Inflights() - int64(e.tx.MaxInflights())
	nbPossible := nbOps
	if overflow > 0 {
		nbPossible -= int(overflow)
		e.tx.AddInflights(-overflow)
	}
	if nbPossible <= 0 {
		return 0, nil
	}

	// Step 2: build each op's request directly into its ring slot.
	built := 0
	for i := 0; i < nbPossible; i++ {
		op := ops[i]
		tail := e.tx.Tail()
		slot := e.tx.Slot(tail)
		idx := int(tail / e.tx.MessageSize())

		c := e.cookies.Get(idx)
		op.Status = model.StatusPending
		if err := e.build(op, slot, c, e.gen); err != nil {
			e.Stats.EnqueueErr.Add(1)
			// A builder that rejected with a more specific status keeps it.
			if op.Status == model.StatusPending {
				op.Status = model.StatusInvalidArgs
			}
			break
		}

		e.tx.SetTail((tail + e.tx.MessageSize()) & e.tx.Modulo())
		e.tx.AddPendingRequests(1)
		built++
	}

	// Refund the reservations for ops that were admitted but never built
	// (the one that failed, and anything after it this burst didn't try).
	if refund := int64(nbPossible - built); refund > 0 {
		e.tx.AddInflights(-refund)
	}

	// Step 3: deferred tail flush, amortizing MMIO cost across bursts.
	if e.tx.Inflights() < int64(constants.TailForceWriteThresh) || e.tx.PendingRequests() > constants.TailWriteThresh {
		e.tx.WriteTail(e.spec, e.bank)
		e.tx.SetPendingRequests(0)
	}

	e.Stats.Enqueued.Add(uint64(built))
	return built, nil
}

// DequeueBurst pops up to len(outOps) completions, writing each harvested
// operation into outOps and returning the count harvested. An empty ring
// is not an error: DequeueBurst returns 0.
func (e *Engine) DequeueBurst(outOps []*model.Operation) (int, error) {
	if e.state != StateActive && e.state != StateDraining {
		return 0, fmt.Errorf("queue: DequeueBurst called from state %s, want active or draining", e.state)
	}

	harvested := 0
	for harvested < len(outOps) {
		head := e.rx.Head()
		if e.rx.IsEmptySlot(head) {
			break
		}

		resp := e.rx.Slot(head)
		idx := int(head / e.rx.MessageSize())
		c := e.cookies.Peek(idx)

		op, err := e.process(resp, c, e.gen)
		if err != nil {
			e.Stats.DequeueErr.Add(1)
			break
		}

		outOps[harvested] = op
		harvested++

		e.rx.SetHead((head + e.rx.MessageSize()) & e.rx.Modulo())
		e.rx.AddProcessedResponses(1)
		e.tx.AddInflights(-1)
	}

	// Step 3: periodic head CSR write, scrubbing the consumed range back
	// to the empty-slot sentinel before the device can see the new head
	// (ScrubRange handles both the wrap and contiguous cases).
	if e.rx.ProcessedResponses() > constants.HeadWriteThresh {
		e.rx.ScrubRange(e.rx.CSRHead(), e.rx.Head())
		e.rx.WriteHead(e.spec, e.bank)
		e.rx.SetProcessedResponses(0)
	}

	// Step 4: opportunistic tail flush, catching requests a prior
	// EnqueueBurst deferred.
	if e.tx.Inflights() <= int64(constants.TailForceWriteThresh) && e.tx.Tail() != e.tx.CSRTail() {
		e.tx.WriteTail(e.spec, e.bank)
		e.tx.SetPendingRequests(0)
	}

	e.Stats.Dequeued.Add(uint64(harvested))
	return harvested, nil
}

// Release tears the queue pair down: ErrBusy while operations remain in
// flight (the caller must keep draining), otherwise disables the arbiter
// and frees both rings.
func (e *Engine) Release() error {
	if e.state == StateReleased {
		return fmt.Errorf("queue: Release called from state %s", e.state)
	}
	if e.tx.Inflights() > 0 {
		e.state = StateDraining
		return ErrBusy
	}

	e.spec.ArbDisable(e.bank, e.arbLock, e.tx.HWBundle())
	if err := e.tx.Close(); err != nil {
		return err
	}
	if err := e.rx.Close(); err != nil {
		return err
	}
	e.state = StateReleased
	return nil
}
