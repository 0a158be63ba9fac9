// Package cookie implements the per-slot request scratch area: a
// slice-backed arena addressed by index rather than pointer, so no
// pointer graph needs to survive device teardown.
package cookie

import "github.com/qatdrv/go-qat/internal/wire"

// Cookie is the scratch state paired 1:1 with a ring slot: the SGL
// descriptors backing a built request's src/dst pointers, their
// precomputed physical addresses, and (for single-pass AEAD) scratch
// space for a content-descriptor block.
type Cookie struct {
	SrcSGL wire.SGL
	DstSGL wire.SGL

	SrcSGLPhysAddr uint64
	DstSGLPhysAddr uint64

	// CDScratch backs a content-descriptor/B0-block write for requests
	// that need inline scratch memory beyond the 128-byte descriptor
	// (CCM B0 block, single-pass GCM content descriptor).
	CDScratch    [64]byte
	CDScratchLen uint32
}

func (c *Cookie) reset() {
	c.SrcSGL = wire.SGL{}
	c.DstSGL = wire.SGL{}
	c.SrcSGLPhysAddr = 0
	c.DstSGLPhysAddr = 0
	c.CDScratchLen = 0
}

// Pool is a fixed-size arena of Cookies, one per ring slot, indexed by
// slot number (byte offset / message size) rather than by pointer.
type Pool struct {
	cookies []Cookie
}

// NewPool allocates n cookies up front; n should equal a ring pair's
// descriptor count so every slot has a corresponding cookie index.
func NewPool(n int) *Pool {
	return &Pool{cookies: make([]Cookie, n)}
}

// Get returns the cookie for slot index idx with its SGLs, SGL addresses
// and scratch length reset (the arena reuses cookies across the ring's
// wraparound). The CDScratch bytes themselves are left as they were.
func (p *Pool) Get(idx int) *Cookie {
	c := &p.cookies[idx]
	c.reset()
	return c
}

// Peek returns the cookie for slot index idx without resetting it, for the
// response dispatcher to read back the SGLs a completed request was built
// with.
func (p *Pool) Peek(idx int) *Cookie {
	return &p.cookies[idx]
}

// Len reports how many slots this pool backs.
func (p *Pool) Len() int {
	return len(p.cookies)
}
