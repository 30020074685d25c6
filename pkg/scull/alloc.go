package scull

import (
	"fmt"
	"sync/atomic"
	"unsafe"
)

// Kind identifies what the storage engine is allocating.
type Kind uint8

const (
	// KindNode is a quantum-set node (one link of the chain).
	KindNode Kind = iota + 1

	// KindSlots is a node's array of quantum slots.
	KindSlots

	// KindQuantum is a single quantum buffer.
	KindQuantum
)

// String returns the lowercase name of the kind.
func (k Kind) String() string {
	switch k {
	case KindNode:
		return "node"
	case KindSlots:
		return "slots"
	case KindQuantum:
		return "quantum"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Sizes used for accounting. Go owns the real memory; these only have to be
// consistent between Reserve and Release.
var (
	nodeBytes = int64(unsafe.Sizeof(qset{}))
	slotBytes = int64(unsafe.Sizeof([]byte(nil)))
)

// Allocator is the backing store the engine reserves memory from.
//
// Every node, slot array and quantum buffer is reserved before it is created
// and released exactly once, by [Device.Trim]. Reserve must either succeed
// fully or return an error; the engine reports any error as [ErrNoMemory].
//
// Implementations must be safe for concurrent use: one Allocator may back
// several devices.
type Allocator interface {
	Reserve(kind Kind, size int64) error
	Release(kind Kind, size int64)
}

// Heap is an [Allocator] backed by the Go heap with an optional byte limit.
type Heap struct {
	limit int64
	used  atomic.Int64
}

// NewHeap returns a Heap that refuses reservations once limit bytes are in
// use. A limit <= 0 means unlimited.
func NewHeap(limit int64) *Heap {
	return &Heap{limit: limit}
}

// Reserve implements [Allocator].
func (h *Heap) Reserve(kind Kind, size int64) error {
	if h.limit <= 0 {
		h.used.Add(size)

		return nil
	}

	for {
		used := h.used.Load()
		if used+size > h.limit {
			return fmt.Errorf("%w: %s of %d bytes exceeds limit (%d/%d in use)", ErrNoMemory, kind, size, used, h.limit)
		}

		if h.used.CompareAndSwap(used, used+size) {
			return nil
		}
	}
}

// Release implements [Allocator].
func (h *Heap) Release(_ Kind, size int64) {
	h.used.Add(-size)
}

// Used returns the number of bytes currently reserved.
func (h *Heap) Used() int64 {
	return h.used.Load()
}

// Limit returns the configured limit, 0 when unlimited.
func (h *Heap) Limit() int64 {
	if h.limit <= 0 {
		return 0
	}

	return h.limit
}
