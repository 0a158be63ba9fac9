//go:build linux && cgo

// Package barrier provides the store/full memory fences the ring pair
// needs around CSR doorbell writes, so a compiler or CPU reorder never lets
// a tail-pointer update become visible before the descriptors it points at.
package barrier

/*
#include <stdint.h>

static inline void sfence_impl(void) {
    __asm__ __volatile__("sfence" ::: "memory");
}

static inline void mfence_impl(void) {
    __asm__ __volatile__("mfence" ::: "memory");
}
*/
import "C"

// Sfence issues a store fence (x86 SFENCE): all prior stores are globally
// visible before any subsequent store. Used before a CSR tail-pointer
// write, so the firmware never reads a doorbell update that reveals a
// descriptor it hasn't been written yet.
func Sfence() {
	C.sfence_impl()
}

// Mfence issues a full fence (x86 MFENCE): all prior loads and stores
// complete before any subsequent one. Used around head-pointer CSR reads
// that gate reuse of a ring slot.
func Mfence() {
	C.mfence_impl()
}
