package cli

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/calvinalkan/scull/pkg/scull"
)

func (s *Session) stressCmd() *Command {
	flags := newFlags("stress")
	workers := flags.IntP("workers", "w", 4, "Number of concurrent writers")
	writes := flags.IntP("writes", "n", 100, "Writes per worker")
	block := flags.IntP("block", "b", 64, "Bytes per write")
	minor := flags.IntP("minor", "m", -1, "Device to use (default: device of the current file)")

	return &Command{
		Flags: flags,
		Usage: "stress [flags]",
		Short: "Run concurrent writers against a device and verify",
		Long: `Start -w workers, each with its own handle, writing -n blocks of -b bytes
at interleaved offsets, then read every block back and compare. Existing
contents in the touched range are overwritten.`,
		Exec: func(ctx context.Context, o *IO, args []string) error {
			if len(args) != 0 {
				return fmt.Errorf("%w: stress takes no arguments", errUsage)
			}

			if *workers < 1 || *writes < 1 || *block < 1 {
				return fmt.Errorf("%w: -w, -n and -b must be >= 1", errUsage)
			}

			var devArgs []string
			if *minor >= 0 {
				devArgs = []string{strconv.Itoa(*minor)}
			}

			dev, err := s.device(devArgs)
			if err != nil {
				return err
			}

			start := time.Now()

			g, gctx := errgroup.WithContext(ctx)

			for w := range *workers {
				g.Go(func() error {
					return stressWorker(gctx, dev, w, *workers, *writes, *block)
				})
			}

			err = g.Wait()
			if err != nil {
				return fmt.Errorf("stress %s: %w", dev.Name(), err)
			}

			total := int64(*workers) * int64(*writes) * int64(*block)

			o.Printf("stress: %d workers x %d writes of %d bytes (%d bytes) verified on %s in %v\n",
				*workers, *writes, *block, total, dev.Name(), time.Since(start).Round(time.Millisecond))

			return nil
		},
	}
}

// stressWorker owns every block whose index is w modulo workers.
func stressWorker(ctx context.Context, dev *scull.Device, w, workers, writes, block int) error {
	f, err := dev.Open(ctx, os.O_RDWR)
	if err != nil {
		return err
	}
	defer f.Close()

	data := bytes.Repeat([]byte{byte('a' + w%26)}, block)

	offset := func(j int) int64 {
		return int64(j*workers+w) * int64(block)
	}

	for j := range writes {
		_, err = f.SeekContext(ctx, offset(j), io.SeekStart)
		if err != nil {
			return err
		}

		_, err = f.WriteContext(ctx, data)
		if err != nil {
			return fmt.Errorf("worker %d write %d: %w", w, j, err)
		}
	}

	got := make([]byte, block)

	for j := range writes {
		_, err = f.SeekContext(ctx, offset(j), io.SeekStart)
		if err != nil {
			return err
		}

		_, err = io.ReadFull(contextReader{ctx: ctx, f: f}, got)
		if err != nil {
			return fmt.Errorf("worker %d read %d: %w", w, j, err)
		}

		if !bytes.Equal(got, data) {
			return fmt.Errorf("worker %d at offset %d: %w", w, offset(j), errMismatch)
		}
	}

	return nil
}
