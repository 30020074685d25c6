package scull

import (
	"errors"
	"fmt"
)

// qset is one node of a device's storage chain.
//
// data is nil until the first write lands in the node; each entry of data is
// nil until the first write lands in that quantum. Every node exclusively
// owns its slot array, its buffers and the next node.
type qset struct {
	data [][]byte
	next *qset
}

// reserve asks the allocator for size bytes of the given kind and normalizes
// any failure to ErrNoMemory.
func (d *Device) reserve(kind Kind, size int64) error {
	err := d.alloc.Reserve(kind, size)
	if err == nil {
		return nil
	}

	if errors.Is(err, ErrNoMemory) {
		return fmt.Errorf("allocate %s: %w", kind, err)
	}

	return fmt.Errorf("allocate %s: %w: %w", kind, ErrNoMemory, err)
}

func (d *Device) newNode() (*qset, error) {
	err := d.reserve(KindNode, nodeBytes)
	if err != nil {
		return nil, err
	}

	return &qset{}, nil
}

// locate returns the node at index n, allocating the head and every missing
// node up to and including n.
//
// Nodes linked before an allocation failure stay linked. Callers must hold
// d.mu.
func (d *Device) locate(n int64) (*qset, error) {
	if d.data == nil {
		head, err := d.newNode()
		if err != nil {
			return nil, err
		}

		d.data = head
	}

	qs := d.data

	for ; n > 0; n-- {
		if qs.next == nil {
			next, err := d.newNode()
			if err != nil {
				return nil, err
			}

			qs.next = next
		}

		qs = qs.next
	}

	return qs, nil
}

// follow returns the node at index n, or nil if the chain is shorter.
// It never allocates. Callers must hold d.mu.
func (d *Device) follow(n int64) *qset {
	qs := d.data

	for ; qs != nil && n > 0; n-- {
		qs = qs.next
	}

	return qs
}

// slots returns the slot array of qs, allocating it if needed.
func (d *Device) slots(qs *qset) ([][]byte, error) {
	if qs.data != nil {
		return qs.data, nil
	}

	err := d.reserve(KindSlots, int64(d.geom.QSet)*slotBytes)
	if err != nil {
		return nil, err
	}

	qs.data = make([][]byte, d.geom.QSet)

	return qs.data, nil
}

// quantum returns the buffer in slot s of qs, allocating it if needed.
func (d *Device) quantum(qs *qset, s int) ([]byte, error) {
	if qs.data[s] != nil {
		return qs.data[s], nil
	}

	err := d.reserve(KindQuantum, int64(d.geom.Quantum))
	if err != nil {
		return nil, err
	}

	qs.data[s] = make([]byte, d.geom.Quantum)

	return qs.data[s], nil
}

// trim frees the whole chain, returning every reservation to the allocator,
// and resets size and geometry to the configured defaults.
//
// Always succeeds. Callers must hold d.mu.
func (d *Device) trim() {
	for qs := d.data; qs != nil; {
		if qs.data != nil {
			for i, buf := range qs.data {
				if buf != nil {
					d.alloc.Release(KindQuantum, int64(len(buf)))
					qs.data[i] = nil
				}
			}

			d.alloc.Release(KindSlots, int64(len(qs.data))*slotBytes)
			qs.data = nil
		}

		next := qs.next
		qs.next = nil

		d.alloc.Release(KindNode, nodeBytes)

		qs = next
	}

	d.data = nil
	d.size = 0
	d.geom = d.defaults
}

// census walks the chain and counts what is allocated.
// Callers must hold d.mu.
func (d *Device) census() (nodes, slotArrays, buffers int) {
	for qs := d.data; qs != nil; qs = qs.next {
		nodes++

		if qs.data == nil {
			continue
		}

		slotArrays++

		for _, buf := range qs.data {
			if buf != nil {
				buffers++
			}
		}
	}

	return nodes, slotArrays, buffers
}
