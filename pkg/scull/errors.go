package scull

import "errors"

// Sentinel errors returned by scull operations.
//
// Callers should use [errors.Is] to check error types:
//
//	n, err := dev.Write(ctx, p, off)
//	if errors.Is(err, scull.ErrNoMemory) {
//	    // trim or give up
//	}
//
// Holes and quantum-boundary clamps are not errors: they show up as short
// (or zero-length) results with a nil error.
var (
	// ErrNoMemory indicates a node, slot array or quantum buffer could not be
	// allocated.
	//
	// No bytes were copied by the failing call and the device size is
	// unchanged. Nodes linked before the failure stay linked.
	//
	// Recovery: trim the device or raise the allocator limit.
	ErrNoMemory = errors.New("scull: out of memory")

	// ErrInterrupted indicates the wait for the device lock was canceled.
	//
	// The returned error also wraps the context cause, so
	// errors.Is(err, context.Canceled) works as expected. No mutation
	// happened.
	//
	// Recovery: reissue the operation.
	ErrInterrupted = errors.New("scull: interrupted")

	// ErrInvalidInput indicates invalid arguments were provided.
	//
	// Common causes: negative offset, bad geometry in [Options], invalid
	// whence for [File.Seek].
	//
	// This is a programming error.
	ErrInvalidInput = errors.New("scull: invalid input")

	// ErrTooLarge indicates a write offset beyond the addressable range of
	// the device.
	ErrTooLarge = errors.New("scull: offset too large")

	// ErrClosed indicates the [Device] or [File] has already been closed.
	//
	// This is a programming error.
	ErrClosed = errors.New("scull: closed")

	// ErrBadAccess indicates a read on a write-only [File] or a write on a
	// read-only one.
	ErrBadAccess = errors.New("scull: bad access mode")

	// ErrNoDevice indicates a minor number outside the [Registry].
	ErrNoDevice = errors.New("scull: no such device")
)
