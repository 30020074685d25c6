package scull

import (
	"context"
	"fmt"

	"github.com/containerd/log"
)

// Device is one independent scull storage stream.
//
// All methods are safe for concurrent use. Every operation runs under one
// exclusive per-device lock; see the locking notes in lock.go.
type Device struct {
	mu mutex

	name  string
	alloc Allocator

	// Guarded by mu.
	data     *qset
	size     int64
	geom     Geometry
	defaults Geometry
	closed   bool
}

// Stats is a snapshot of a device's state.
type Stats struct {
	Name     string
	Size     int64
	Geometry Geometry
	Defaults Geometry

	Nodes      int
	SlotArrays int
	Buffers    int

	// Bytes is the number of bytes held in quantum buffers.
	Bytes int64
}

// New creates a device from opts. See [Options] for defaults.
//
// Possible errors:
//   - [ErrInvalidInput]: bad geometry or negative size
func New(opts Options) (*Device, error) {
	opts = opts.withDefaults()

	err := opts.validate()
	if err != nil {
		return nil, err
	}

	geom := Geometry{Quantum: opts.Quantum, QSet: opts.QSet}

	return &Device{
		mu:       newMutex(),
		name:     opts.Name,
		alloc:    opts.Allocator,
		size:     opts.Size,
		geom:     geom,
		defaults: geom,
	}, nil
}

// Name returns the device name.
func (d *Device) Name() string {
	return d.name
}

// lock acquires the device lock and checks that the device is still open.
func (d *Device) lock(ctx context.Context) error {
	err := d.mu.lock(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", d.name, err)
	}

	if d.closed {
		d.mu.unlock()

		return fmt.Errorf("%s: %w", d.name, ErrClosed)
	}

	return nil
}

// Trim frees all storage and restores the configured default geometry.
// Size becomes 0. Trimming an empty device is a no-op.
//
// Possible errors:
//   - [ErrInterrupted]: ctx ended while waiting for the lock
//   - [ErrClosed]: the device was closed
func (d *Device) Trim(ctx context.Context) error {
	err := d.lock(ctx)
	if err != nil {
		return err
	}
	defer d.mu.unlock()

	d.trimLogged(ctx)

	return nil
}

func (d *Device) trimLogged(ctx context.Context) {
	nodes, _, buffers := d.census()

	d.trim()

	log.G(ctx).WithFields(log.Fields{
		"device":  d.name,
		"nodes":   nodes,
		"buffers": buffers,
	}).Debug("scull: trimmed")
}

// Read copies up to len(p) bytes starting at off into p.
//
// A single call never crosses a quantum boundary and never reads past the
// device size; callers loop at off+n for more. Reading at or past the size
// returns 0, nil. Reading a hole (a quantum that was never written) also
// returns 0, nil.
//
// Read never allocates.
//
// Possible errors:
//   - [ErrInvalidInput]: negative offset
//   - [ErrInterrupted]: ctx ended while waiting for the lock
//   - [ErrClosed]: the device was closed
func (d *Device) Read(ctx context.Context, p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, fmt.Errorf("read at offset %d: %w", off, ErrInvalidInput)
	}

	err := d.lock(ctx)
	if err != nil {
		return 0, err
	}
	defer d.mu.unlock()

	n, hole := d.readLocked(p, off)
	if hole {
		return 0, nil
	}

	return n, nil
}

// readLocked performs a quantum-bounded read. hole reports that the range
// [off, off+n) is not backed by a buffer; in that case nothing was copied
// and n is the length the hole would have supplied.
func (d *Device) readLocked(p []byte, off int64) (n int, hole bool) {
	if off >= d.size || len(p) == 0 {
		return 0, false
	}

	count := int64(len(p))
	if count > d.size-off {
		count = d.size - off
	}

	item, s, q := d.split(off)

	if rest := int64(d.geom.Quantum - q); count > rest {
		count = rest
	}

	qs := d.follow(item)
	if qs == nil || qs.data == nil || qs.data[s] == nil {
		return int(count), true
	}

	return copy(p[:count], qs.data[s][q:]), false
}

// Write copies up to len(p) bytes from p into the device at off,
// allocating any node, slot array or quantum buffer it needs.
//
// A single call never crosses a quantum boundary; callers loop at off+n for
// the rest. The size grows to off+n if that is larger.
//
// Possible errors:
//   - [ErrInvalidInput]: negative offset
//   - [ErrTooLarge]: off is beyond the addressable range
//   - [ErrNoMemory]: an allocation failed; nothing was copied
//   - [ErrInterrupted]: ctx ended while waiting for the lock
//   - [ErrClosed]: the device was closed
func (d *Device) Write(ctx context.Context, p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, fmt.Errorf("write at offset %d: %w", off, ErrInvalidInput)
	}

	err := d.lock(ctx)
	if err != nil {
		return 0, err
	}
	defer d.mu.unlock()

	n, err := d.writeLocked(p, off)
	if err != nil {
		log.G(ctx).WithError(err).WithFields(log.Fields{
			"device": d.name,
			"offset": off,
		}).Warn("scull: write failed")

		return 0, fmt.Errorf("%s: write at offset %d: %w", d.name, off, err)
	}

	return n, nil
}

func (d *Device) writeLocked(p []byte, off int64) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	item, s, q := d.split(off)

	count := min(len(p), d.geom.Quantum-q)

	if item >= maxNodes || off > maxAddressable-int64(count) {
		return 0, ErrTooLarge
	}

	qs, err := d.locate(item)
	if err != nil {
		return 0, err
	}

	_, err = d.slots(qs)
	if err != nil {
		return 0, err
	}

	buf, err := d.quantum(qs, s)
	if err != nil {
		return 0, err
	}

	n := copy(buf[q:], p[:count])

	if end := off + int64(n); end > d.size {
		d.size = end
	}

	return n, nil
}

// split decomposes off into node index, slot index and offset inside the
// quantum, using the live geometry.
func (d *Device) split(off int64) (item int64, slot, inQuantum int) {
	itemSize := d.geom.itemSize()
	item = off / itemSize
	rest := off % itemSize

	return item, int(rest / int64(d.geom.Quantum)), int(rest % int64(d.geom.Quantum))
}

// Size returns the current logical size.
func (d *Device) Size(ctx context.Context) (int64, error) {
	err := d.lock(ctx)
	if err != nil {
		return 0, err
	}
	defer d.mu.unlock()

	return d.size, nil
}

// Stats returns a snapshot of the device's size, geometry and allocations.
func (d *Device) Stats(ctx context.Context) (Stats, error) {
	err := d.lock(ctx)
	if err != nil {
		return Stats{}, err
	}
	defer d.mu.unlock()

	nodes, slotArrays, buffers := d.census()

	return Stats{
		Name:       d.name,
		Size:       d.size,
		Geometry:   d.geom,
		Defaults:   d.defaults,
		Nodes:      nodes,
		SlotArrays: slotArrays,
		Buffers:    buffers,
		Bytes:      int64(buffers) * int64(d.geom.Quantum),
	}, nil
}

// SetDefaults changes the geometry the next [Device.Trim] restores.
//
// The live geometry is left alone: existing data keeps its layout until the
// device is trimmed.
func (d *Device) SetDefaults(ctx context.Context, g Geometry) error {
	err := g.validate()
	if err != nil {
		return err
	}

	err = d.lock(ctx)
	if err != nil {
		return err
	}
	defer d.mu.unlock()

	d.defaults = g

	return nil
}

// Close tears the device down: it trims all storage and makes every later
// operation fail with [ErrClosed]. Closing twice returns [ErrClosed].
func (d *Device) Close(ctx context.Context) error {
	err := d.lock(ctx)
	if err != nil {
		return err
	}
	defer d.mu.unlock()

	d.trimLogged(ctx)
	d.closed = true

	return nil
}
