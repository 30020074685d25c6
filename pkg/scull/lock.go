package scull

import (
	"context"
	"fmt"
)

// Locking architecture
//
//  1. Device.mu: one exclusive lock per device. Trim, Read, Write, Stats,
//     Open, SetDefaults and Close all run entirely inside it. There is no
//     per-node locking: operations on one device serialize completely,
//     operations on different devices never contend.
//
//  2. File.mu: per-open cursor. Guards the file offset only and is always
//     taken before Device.mu, never after.
//
//  3. Allocator: shared allocators do their own (lock-free) accounting and
//     are called with Device.mu held.
//
// Lock ordering: File.mu → Device.mu → Allocator

// mutex is an exclusive lock whose wait can be abandoned through a context.
//
// The zero value is not usable; create with newMutex.
type mutex struct {
	ch chan struct{}
}

func newMutex() mutex {
	return mutex{ch: make(chan struct{}, 1)}
}

// lock acquires the mutex, blocking until it is free or ctx is done.
//
// An uncontended lock is always acquired, even with ctx already done; only a
// caller that actually has to wait can be interrupted. On interruption the
// returned error wraps both ErrInterrupted and the context cause.
func (m *mutex) lock(ctx context.Context) error {
	if m.tryLock() {
		return nil
	}

	select {
	case m.ch <- struct{}{}:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", ErrInterrupted, context.Cause(ctx))
	}
}

// tryLock acquires the mutex if it is free. Reports whether it did.
func (m *mutex) tryLock() bool {
	select {
	case m.ch <- struct{}{}:
		return true
	default:
		return false
	}
}

// unlock releases the mutex. Panics if it is not held.
func (m *mutex) unlock() {
	select {
	case <-m.ch:
	default:
		panic("scull: unlock of unlocked mutex")
	}
}
