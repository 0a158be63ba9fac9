//go:build !linux || !cgo

package barrier

import "sync/atomic"

// fenceWord gives the atomic package something to operate on; on
// non-cgo/non-Linux builds (CI, cross-compilation, darwin dev boxes) a
// sequentially-consistent atomic op is the portable stand-in for an
// explicit SFENCE/MFENCE.
var fenceWord uint32

// Sfence is a portable approximation of a store fence.
func Sfence() {
	atomic.AddUint32(&fenceWord, 1)
}

// Mfence is a portable approximation of a full fence.
func Mfence() {
	atomic.AddUint32(&fenceWord, 1)
}
