package cli

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/natefinch/atomic"

	"github.com/calvinalkan/scull/pkg/scull"
)

const defaultReadLen = 64

func (s *Session) readCmd() *Command {
	flags := newFlags("read")
	count := flags.IntP("count", "n", defaultReadLen, "Maximum number of bytes to read")
	asHex := flags.Bool("hex", false, "Print a hex dump instead of quoted text")

	return &Command{
		Flags: flags,
		Usage: "read [flags]",
		Short: "Read from the cursor of the current file",
		Long: `Read up to -n bytes from the cursor and advance it. Holes read as zero
bytes. Prints (eof) at or past the end of the device.`,
		Exec: func(ctx context.Context, o *IO, args []string) error {
			if len(args) != 0 {
				return fmt.Errorf("%w: read takes no arguments", errUsage)
			}

			if *count < 1 {
				return fmt.Errorf("%w: -n must be >= 1, got %d", errUsage, *count)
			}

			f, err := s.current()
			if err != nil {
				return err
			}

			buf := make([]byte, *count)

			n, err := io.ReadFull(contextReader{ctx: ctx, f: f}, buf)
			if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
				if n > 0 {
					printData(o, buf[:n], *asHex)
				}

				return err
			}

			if n == 0 {
				o.Println("(eof)")

				return nil
			}

			printData(o, buf[:n], *asHex)

			return nil
		},
	}
}

func printData(o *IO, data []byte, asHex bool) {
	if asHex {
		o.Printf("%s", hex.Dump(data))

		return
	}

	o.Println(strconv.Quote(string(data)))
}

func (s *Session) writeCmd() *Command {
	flags := newFlags("write")
	asHex := flags.Bool("hex", false, "Arguments are hex encoded bytes")

	return &Command{
		Flags: flags,
		Usage: "write [flags] <text...>",
		Short: "Write at the cursor of the current file",
		Long: `Write the arguments, joined by single spaces, at the cursor and advance
it. With --hex the arguments are concatenated and hex decoded instead.
Writing past the end leaves a hole behind.`,
		Exec: func(ctx context.Context, o *IO, args []string) error {
			if len(args) == 0 {
				return fmt.Errorf("%w: write requires <text>", errUsage)
			}

			f, err := s.current()
			if err != nil {
				return err
			}

			data := []byte(strings.Join(args, " "))

			if *asHex {
				data, err = hex.DecodeString(strings.Join(args, ""))
				if err != nil {
					return fmt.Errorf("%w: %w", errUsage, err)
				}
			}

			n, err := f.WriteContext(ctx, data)
			if err != nil {
				return fmt.Errorf("wrote %d of %d bytes: %w", n, len(data), err)
			}

			o.Printf("wrote %d bytes\n", n)

			return nil
		},
	}
}

func (s *Session) seekCmd() *Command {
	flags := newFlags("seek")
	whence := flags.StringP("whence", "w", "set", "Origin: set, cur or end")

	return &Command{
		Flags: flags,
		Usage: "seek [flags] <offset>",
		Short: "Move the cursor of the current file",
		Long: `Move the cursor to <offset> relative to --whence. Negative offsets must
follow "--", as in: seek --whence end -- -4`,
		Exec: func(ctx context.Context, o *IO, args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("%w: seek requires exactly one <offset>", errUsage)
			}

			off, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("%w: offset %q is not a number", errUsage, args[0])
			}

			var w int

			switch *whence {
			case "set":
				w = io.SeekStart
			case "cur":
				w = io.SeekCurrent
			case "end":
				w = io.SeekEnd
			default:
				return fmt.Errorf("%w: whence %q is not one of set, cur, end", errUsage, *whence)
			}

			f, err := s.current()
			if err != nil {
				return err
			}

			pos, err := f.SeekContext(ctx, off, w)
			if err != nil {
				return err
			}

			o.Printf("offset %d\n", pos)

			return nil
		},
	}
}

func (s *Session) dumpCmd() *Command {
	flags := newFlags("dump")
	minor := flags.IntP("minor", "m", -1, "Device to dump (default: device of the current file)")

	return &Command{
		Flags: flags,
		Usage: "dump [flags] <path>",
		Short: "Write a device's contents to a file atomically",
		Long: `Copy the whole device, holes as zero bytes, into <path>. The file is
replaced atomically, so readers never see a partial dump.`,
		Exec: func(ctx context.Context, o *IO, args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("%w: dump requires exactly one <path>", errUsage)
			}

			var devArgs []string
			if *minor >= 0 {
				devArgs = []string{strconv.Itoa(*minor)}
			}

			dev, err := s.device(devArgs)
			if err != nil {
				return err
			}

			f, err := dev.Open(ctx, os.O_RDONLY)
			if err != nil {
				return err
			}
			defer f.Close()

			path := s.path(args[0])
			r := &countingReader{r: contextReader{ctx: ctx, f: f}}

			err = atomic.WriteFile(path, r)
			if err != nil {
				return fmt.Errorf("dump %s: %w", dev.Name(), err)
			}

			o.Printf("dumped %d bytes from %s to %s\n", r.n, dev.Name(), path)

			return nil
		},
	}
}

// contextReader adapts a File to io.Reader while honoring ctx.
type contextReader struct {
	ctx context.Context //nolint:containedctx // io.Reader has no ctx parameter
	f   *scull.File
}

func (r contextReader) Read(p []byte) (int, error) {
	return r.f.ReadContext(r.ctx, p)
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)

	return n, err
}
