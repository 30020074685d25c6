package scull

import "fmt"

// Default geometry, matching the classic scull driver.
const (
	// DefaultQuantum is the default number of bytes per quantum buffer.
	DefaultQuantum = 4000

	// DefaultQSet is the default number of quantum slots per node.
	DefaultQSet = 1000
)

// Geometry is the shape of a device's storage: quantum buffers of Quantum
// bytes grouped QSet to a node.
type Geometry struct {
	Quantum int
	QSet    int
}

// DefaultGeometry returns the default quantum and qset.
func DefaultGeometry() Geometry {
	return Geometry{Quantum: DefaultQuantum, QSet: DefaultQSet}
}

// itemSize is the number of bytes one node can hold.
func (g Geometry) itemSize() int64 {
	return int64(g.Quantum) * int64(g.QSet)
}

func (g Geometry) validate() error {
	if g.Quantum < 1 {
		return fmt.Errorf("quantum must be >= 1, got %d: %w", g.Quantum, ErrInvalidInput)
	}

	if g.Quantum > maxQuantum {
		return fmt.Errorf("quantum %d exceeds max %d: %w", g.Quantum, maxQuantum, ErrInvalidInput)
	}

	if g.QSet < 1 {
		return fmt.Errorf("qset must be >= 1, got %d: %w", g.QSet, ErrInvalidInput)
	}

	if g.QSet > maxQSet {
		return fmt.Errorf("qset %d exceeds max %d: %w", g.QSet, maxQSet, ErrInvalidInput)
	}

	return nil
}

// Options configures a [Device].
//
// The zero value is valid and yields the classic defaults: 4000-byte quanta,
// 1000 quanta per node, size 0 and an unlimited [Heap] allocator.
type Options struct {
	// Name identifies the device in logs. Defaults to "scull".
	Name string

	// Quantum is the configured number of bytes per quantum buffer.
	//
	// 0 means [DefaultQuantum]. [Device.Trim] restores this value.
	Quantum int

	// QSet is the configured number of quantum slots per node.
	//
	// 0 means [DefaultQSet]. [Device.Trim] restores this value.
	//
	// A write allocates every missing node up to its offset while holding
	// the device lock, so with a small Quantum*QSet a single far write can
	// build a long chain. Offsets are capped at 1 TiB and chains at 2^20
	// nodes; a limited [Heap] bounds the memory further.
	QSet int

	// Size is the initial logical size of the device.
	//
	// Bytes below Size that were never written read as holes.
	Size int64

	// Allocator accounts for every node, slot array and quantum buffer.
	//
	// nil means an unlimited [Heap]. An Allocator may be shared by several
	// devices (see [Registry]) and must be safe for concurrent use.
	Allocator Allocator
}

func (o Options) withDefaults() Options {
	if o.Name == "" {
		o.Name = "scull"
	}

	if o.Quantum == 0 {
		o.Quantum = DefaultQuantum
	}

	if o.QSet == 0 {
		o.QSet = DefaultQSet
	}

	if o.Allocator == nil {
		o.Allocator = NewHeap(0)
	}

	return o
}

func (o Options) validate() error {
	err := Geometry{Quantum: o.Quantum, QSet: o.QSet}.validate()
	if err != nil {
		return err
	}

	if o.Size < 0 {
		return fmt.Errorf("size must be >= 0, got %d: %w", o.Size, ErrInvalidInput)
	}

	return nil
}
