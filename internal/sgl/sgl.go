// Package sgl builds scatter-gather lists from a generic buffer chain —
// the Go-native stand-in for an mbuf chain (mbuf itself is a DPDK-specific
// type out of scope here).
package sgl

import (
	"fmt"

	"github.com/qatdrv/go-qat/internal/constants"
	"github.com/qatdrv/go-qat/internal/model"
	"github.com/qatdrv/go-qat/internal/wire"
)

// Build populates dest with up to MaxSGLEntries flat-buffer descriptors
// covering [startOffset, startOffset+dataLength) of the chain rooted at
// head. startOffset is itself a physical address, not an offset into the
// first buffer: it may sit before head's data (the in-place alignment
// fallback rounds down into headroom) or after it (skipping a prefix).
func Build(head *model.Chain, startOffset uint64, dataLength uint32, dest *wire.SGL) error {
	if head == nil || dataLength == 0 {
		return fmt.Errorf("sgl: empty chain or zero length")
	}

	firstLen := int64(head.DataLen) + int64(head.IOVA) - int64(startOffset)
	if firstLen <= 0 {
		return fmt.Errorf("sgl: start_offset 0x%x lies past the first buffer's data", startOffset)
	}
	remaining := int64(dataLength)
	if firstLen > remaining {
		firstLen = remaining
	}

	entries := make([]wire.FlatBufferDescriptor, 0, constants.MaxSGLEntries)
	entries = append(entries, wire.FlatBufferDescriptor{
		PhysicalAddress: startOffset,
		Length:          uint32(firstLen),
	})
	remaining -= firstLen

	cur := head.Next
	for remaining > 0 {
		if cur == nil {
			return fmt.Errorf("sgl: chain too short, %d bytes unfulfilled", remaining)
		}
		if len(entries) >= constants.MaxSGLEntries {
			return fmt.Errorf("sgl: exceeded max segments (%d)", constants.MaxSGLEntries)
		}
		segLen := int64(cur.DataLen)
		if segLen > remaining {
			segLen = remaining
		}
		entries = append(entries, wire.FlatBufferDescriptor{
			PhysicalAddress: cur.IOVA,
			Length:          uint32(segLen),
		})
		remaining -= segLen
		cur = cur.Next
	}

	dest.NumBufs = uint32(len(entries))
	dest.NumMapped = dest.NumBufs
	dest.Entries = entries
	return nil
}

// AppendDigest adds the digest span to an already-built SGL, merging it
// into the last entry when it is physically adjacent to the data the SGL
// already covers (the AEAD/LCE digest-adjacency optimization), or
// appending a new entry otherwise.
func AppendDigest(dest *wire.SGL, digestAddr uint64, digestLen uint32) error {
	if digestLen == 0 {
		return nil
	}
	if len(dest.Entries) > 0 {
		last := &dest.Entries[len(dest.Entries)-1]
		if last.PhysicalAddress+uint64(last.Length) == digestAddr {
			last.Length += digestLen
			return nil
		}
	}
	if len(dest.Entries) >= constants.MaxSGLEntries {
		return fmt.Errorf("sgl: exceeded max segments (%d) appending digest", constants.MaxSGLEntries)
	}
	dest.Entries = append(dest.Entries, wire.FlatBufferDescriptor{
		PhysicalAddress: digestAddr,
		Length:          digestLen,
	})
	dest.NumBufs = uint32(len(dest.Entries))
	dest.NumMapped = dest.NumBufs
	return nil
}

// IsDigestAdjacent reports whether a digest at digestAddr immediately
// follows cipherEnd — the condition AppendDigest's merge relies on,
// exposed separately so the request builder can decide whether to emit a
// combined span without building the whole SGL first.
func IsDigestAdjacent(cipherEnd, digestAddr uint64) bool {
	return cipherEnd == digestAddr
}

// IOVAOffset walks head's chain to find the physical address and segment
// headroom at a byte offset from the chain's logical start (offset 0 is
// head.IOVA). The request builder uses this to resolve cipher/auth
// offsets into addresses before applying the in-place alignment trick.
func IOVAOffset(head *model.Chain, offset uint32) (addr uint64, headroom uint32, err error) {
	cur := head
	remaining := offset
	for cur != nil {
		if remaining < cur.DataLen {
			return cur.IOVA + uint64(remaining), cur.Headroom, nil
		}
		remaining -= cur.DataLen
		cur = cur.Next
	}
	return 0, 0, fmt.Errorf("sgl: offset %d beyond end of chain", offset)
}
