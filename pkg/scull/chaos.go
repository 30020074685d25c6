package scull

import (
	"errors"
	"math/rand/v2"
	"sync"
	"sync/atomic"
)

// ChaosConfig controls allocation fault injection probabilities.
// Each rate is a float64 from 0.0 (never) to 1.0 (always).
//
// The zero value disables all fault injection.
type ChaosConfig struct {
	// NodeFailRate controls how often reserving a chain node fails.
	NodeFailRate float64

	// SlotsFailRate controls how often reserving a node's slot array fails.
	SlotsFailRate float64

	// QuantumFailRate controls how often reserving a quantum buffer fails.
	QuantumFailRate float64
}

// ChaosMode controls how [Chaos] behaves.
type ChaosMode uint8

const (
	// ChaosModeActive injects failures according to [ChaosConfig].
	ChaosModeActive ChaosMode = iota

	// ChaosModeNoOp passes every reservation to the underlying allocator.
	ChaosModeNoOp
)

// ChaosStats counts injected failures per allocation kind.
type ChaosStats struct {
	NodeFails    int64
	SlotsFails   int64
	QuantumFails int64
}

type chaosError struct {
	Err error
}

// Error returns a formatted error message.
func (e *chaosError) Error() string {
	return "chaos: " + e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *chaosError) Unwrap() error {
	return e.Err
}

// IsChaosErr reports whether err (or any wrapped error) was injected by
// [Chaos]. Returns false if err is nil.
func IsChaosErr(err error) bool {
	var injected *chaosError

	return errors.As(err, &injected)
}

// Chaos wraps an [Allocator] and injects random reservation failures.
//
// Injected errors wrap [ErrNoMemory] and are marked so tests can tell them
// apart from real limit failures with [IsChaosErr]. Each call independently
// decides whether to inject; there is no sticky failure state.
type Chaos struct {
	alloc  Allocator
	rng    *rand.Rand
	config ChaosConfig
	mode   atomic.Uint32

	rngMu sync.Mutex

	nodeFails    atomic.Int64
	slotsFails   atomic.Int64
	quantumFails atomic.Int64
}

// NewChaos creates a [Chaos] allocator wrapping underlying.
// The seed makes injection reproducible. Panics if underlying is nil.
func NewChaos(underlying Allocator, seed int64, config *ChaosConfig) *Chaos {
	if underlying == nil {
		panic("underlying allocator is nil")
	}

	return &Chaos{
		alloc:  underlying,
		rng:    rand.New(rand.NewPCG(uint64(seed), uint64(seed))),
		config: *config,
	}
}

// SetMode updates [Chaos] behavior. Safe to call concurrently with
// reservations.
func (c *Chaos) SetMode(m ChaosMode) { c.mode.Store(uint32(m)) }

// Stats returns the number of injected failures so far.
func (c *Chaos) Stats() ChaosStats {
	return ChaosStats{
		NodeFails:    c.nodeFails.Load(),
		SlotsFails:   c.slotsFails.Load(),
		QuantumFails: c.quantumFails.Load(),
	}
}

// Reserve implements [Allocator].
func (c *Chaos) Reserve(kind Kind, size int64) error {
	if ChaosMode(c.mode.Load()) == ChaosModeActive && c.should(kind) {
		switch kind {
		case KindNode:
			c.nodeFails.Add(1)
		case KindSlots:
			c.slotsFails.Add(1)
		case KindQuantum:
			c.quantumFails.Add(1)
		}

		return &chaosError{Err: ErrNoMemory}
	}

	return c.alloc.Reserve(kind, size)
}

// Release implements [Allocator].
func (c *Chaos) Release(kind Kind, size int64) {
	c.alloc.Release(kind, size)
}

func (c *Chaos) should(kind Kind) bool {
	var rate float64

	switch kind {
	case KindNode:
		rate = c.config.NodeFailRate
	case KindSlots:
		rate = c.config.SlotsFailRate
	case KindQuantum:
		rate = c.config.QuantumFailRate
	}

	if rate <= 0 {
		return false
	}

	if rate >= 1 {
		return true
	}

	c.rngMu.Lock()
	defer c.rngMu.Unlock()

	return c.rng.Float64() < rate
}
