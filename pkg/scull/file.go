package scull

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/containerd/log"
	"github.com/google/uuid"
)

// File is one open handle on a [Device], with its own cursor.
//
// File implements [io.Reader], [io.Writer] and [io.Seeker] on top of the
// quantum-bounded device operations. Unlike [Device.Read], File reads fill
// holes below the device size with zero bytes, the way a sparse file does.
//
// A File is safe for concurrent use; concurrent calls share the cursor.
type File struct {
	mu mutex

	id   uuid.UUID
	dev  *Device
	flag int

	// Guarded by mu.
	off    int64
	closed bool
}

// Open opens a handle on the device. flag uses the [os.O_RDONLY],
// [os.O_WRONLY] and [os.O_RDWR] access modes; [os.O_TRUNC] is honored.
//
// The device is trimmed before the handle is returned when the access mode
// is write-only, or when O_TRUNC is combined with write access.
//
// Possible errors:
//   - [ErrInvalidInput]: unknown access mode
//   - [ErrInterrupted]: ctx ended while waiting for the lock
//   - [ErrClosed]: the device was closed
func (d *Device) Open(ctx context.Context, flag int) (*File, error) {
	accmode := flag & (os.O_RDONLY | os.O_WRONLY | os.O_RDWR)

	switch accmode {
	case os.O_RDONLY, os.O_WRONLY, os.O_RDWR:
	default:
		return nil, fmt.Errorf("open %s: access mode %#x: %w", d.name, accmode, ErrInvalidInput)
	}

	err := d.lock(ctx)
	if err != nil {
		return nil, err
	}
	defer d.mu.unlock()

	if accmode == os.O_WRONLY || (accmode == os.O_RDWR && flag&os.O_TRUNC != 0) {
		d.trimLogged(ctx)
	}

	f := &File{
		mu:   newMutex(),
		id:   uuid.New(),
		dev:  d,
		flag: flag,
	}

	log.G(ctx).WithFields(log.Fields{
		"device": d.name,
		"file":   f.id,
		"flag":   flag,
	}).Debug("scull: opened")

	return f, nil
}

// ID returns the handle's unique identifier.
func (f *File) ID() uuid.UUID {
	return f.id
}

// Device returns the device the handle was opened on.
func (f *File) Device() *Device {
	return f.dev
}

func (f *File) readable() bool {
	return f.flag&(os.O_WRONLY|os.O_RDWR) != os.O_WRONLY
}

func (f *File) writable() bool {
	return f.flag&(os.O_WRONLY|os.O_RDWR) != 0
}

func (f *File) lock(ctx context.Context) error {
	err := f.mu.lock(ctx)
	if err != nil {
		return err
	}

	if f.closed {
		f.mu.unlock()

		return ErrClosed
	}

	return nil
}

// Read implements [io.Reader]. It is ReadContext with a background context.
func (f *File) Read(p []byte) (int, error) {
	return f.ReadContext(context.Background(), p)
}

// ReadContext reads up to one quantum at the cursor and advances it.
//
// Holes below the device size read as zeros. At or past the device size it
// returns 0, [io.EOF].
func (f *File) ReadContext(ctx context.Context, p []byte) (int, error) {
	if !f.readable() {
		return 0, fmt.Errorf("read %s: %w", f.dev.name, ErrBadAccess)
	}

	err := f.lock(ctx)
	if err != nil {
		return 0, err
	}
	defer f.mu.unlock()

	if len(p) == 0 {
		return 0, nil
	}

	d := f.dev

	err = d.lock(ctx)
	if err != nil {
		return 0, err
	}
	defer d.mu.unlock()

	n, hole := d.readLocked(p, f.off)
	if n == 0 {
		return 0, io.EOF
	}

	if hole {
		clear(p[:n])
	}

	f.off += int64(n)

	return n, nil
}

// Write implements [io.Writer]. It is WriteContext with a background context.
func (f *File) Write(p []byte) (int, error) {
	return f.WriteContext(context.Background(), p)
}

// WriteContext writes all of p at the cursor, one quantum at a time, and
// advances the cursor past what was written.
//
// The device lock is taken per quantum, so writers on other handles may
// interleave between quanta but never inside one. On error the returned n
// counts the bytes that did land.
func (f *File) WriteContext(ctx context.Context, p []byte) (int, error) {
	if !f.writable() {
		return 0, fmt.Errorf("write %s: %w", f.dev.name, ErrBadAccess)
	}

	err := f.lock(ctx)
	if err != nil {
		return 0, err
	}
	defer f.mu.unlock()

	var written int

	for written < len(p) {
		n, err := f.dev.Write(ctx, p[written:], f.off)

		written += n
		f.off += int64(n)

		if err != nil {
			return written, err
		}
	}

	return written, nil
}

// Seek implements [io.Seeker]. Seeking past the device size is allowed;
// a later write there leaves a hole behind.
func (f *File) Seek(offset int64, whence int) (int64, error) {
	return f.SeekContext(context.Background(), offset, whence)
}

// SeekContext is [File.Seek] with a context for the device lock taken by
// [io.SeekEnd].
func (f *File) SeekContext(ctx context.Context, offset int64, whence int) (int64, error) {
	err := f.lock(ctx)
	if err != nil {
		return 0, err
	}
	defer f.mu.unlock()

	var base int64

	switch whence {
	case io.SeekStart:
	case io.SeekCurrent:
		base = f.off
	case io.SeekEnd:
		base, err = f.dev.Size(ctx)
		if err != nil {
			return 0, err
		}
	default:
		return 0, fmt.Errorf("seek whence %d: %w", whence, ErrInvalidInput)
	}

	if (offset > 0 && base > math.MaxInt64-offset) || base+offset < 0 {
		return 0, fmt.Errorf("seek to %d%+d: %w", base, offset, ErrInvalidInput)
	}

	f.off = base + offset

	return f.off, nil
}

// Close releases the handle. It has no effect on the device's storage.
// Closing twice returns [ErrClosed].
func (f *File) Close() error {
	err := f.lock(context.Background())
	if err != nil {
		return err
	}
	defer f.mu.unlock()

	f.closed = true

	return nil
}
