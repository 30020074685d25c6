package scull

import (
	"errors"

	"golang.org/x/sys/unix"
)

// Errno maps an error from this package to the errno a character-device
// layer would hand back to its caller. A nil error maps to 0 and anything
// not produced by this package to EIO.
func Errno(err error) unix.Errno {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, ErrNoMemory):
		return unix.ENOMEM
	case errors.Is(err, ErrInterrupted):
		return unix.EINTR
	case errors.Is(err, ErrInvalidInput):
		return unix.EINVAL
	case errors.Is(err, ErrTooLarge):
		return unix.EFBIG
	case errors.Is(err, ErrClosed), errors.Is(err, ErrBadAccess):
		return unix.EBADF
	case errors.Is(err, ErrNoDevice):
		return unix.ENODEV
	default:
		return unix.EIO
	}
}
