package cli

import (
	"errors"

	"golang.org/x/sys/unix"

	"github.com/calvinalkan/scull/pkg/scull"
)

var (
	errUsage          = errors.New("usage")
	errUnknownCommand = errors.New("unknown command")
	errNoFile         = errors.New("no open file (use 'open <minor>')")
	errMismatch       = errors.New("read back different bytes")
	errSignal         = errors.New("signal received")

	// errExit ends the shell loop. It is never printed.
	errExit = errors.New("exit")
)

// errnoOf maps a shell error to the errno a device layer would report.
func errnoOf(err error) unix.Errno {
	switch {
	case errors.Is(err, errUsage), errors.Is(err, errUnknownCommand):
		return unix.EINVAL
	case errors.Is(err, errNoFile):
		return unix.EBADF
	default:
		return scull.Errno(err)
	}
}

// printError renders err as "error: <msg> (<ERRNO>)".
func printError(o *IO, err error) {
	o.ErrPrintf("error: %v (%s)\n", err, unix.ErrnoName(errnoOf(err)))
}
