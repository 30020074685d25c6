package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
)

func (s *Session) devicesCmd() *Command {
	return &Command{
		Flags: newFlags("devices"),
		Usage: "devices",
		Short: "List devices with size, geometry and allocation counts",
		Long: `List every device. The device of the open file is marked with '*'.
nodes, slots and buffers count the allocated quantum-set nodes, slot arrays
and quantum buffers.`,
		Exec: func(ctx context.Context, o *IO, args []string) error {
			if len(args) != 0 {
				return fmt.Errorf("%w: devices takes no arguments", errUsage)
			}

			for minor, dev := range s.reg.Devices() {
				st, err := dev.Stats(ctx)
				if err != nil {
					return err
				}

				marker := " "
				if s.file != nil && s.minor == minor {
					marker = "*"
				}

				o.Printf("%s %-8s size=%d quantum=%d qset=%d nodes=%d slots=%d buffers=%d\n",
					marker, st.Name, st.Size, st.Geometry.Quantum, st.Geometry.QSet,
					st.Nodes, st.SlotArrays, st.Buffers)
			}

			return nil
		},
	}
}

func (s *Session) openCmd() *Command {
	flags := newFlags("open")
	mode := flags.StringP("mode", "m", "rw", "Access mode: r, w or rw (w truncates)")
	trunc := flags.Bool("trunc", false, "Truncate on open (implied by --mode w)")

	return &Command{
		Flags: flags,
		Usage: "open [flags] <minor>",
		Short: "Open a device, closing any previously open file",
		Long: `Open device <minor> and make it the current file. The cursor starts at 0.
Opening write-only, or read-write with --trunc, trims the device first.`,
		Exec: func(ctx context.Context, o *IO, args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("%w: open requires exactly one <minor>", errUsage)
			}

			minor, err := parseMinor(args[0])
			if err != nil {
				return err
			}

			flag, err := openFlag(*mode, *trunc)
			if err != nil {
				return err
			}

			dev, err := s.reg.Device(minor)
			if err != nil {
				return err
			}

			f, err := dev.Open(ctx, flag)
			if err != nil {
				return err
			}

			_ = s.Close()

			s.file, s.minor, s.mode = f, minor, *mode

			o.Printf("opened %s mode=%s id=%s\n", dev.Name(), *mode, f.ID())

			return nil
		},
	}
}

func (s *Session) closeCmd() *Command {
	return &Command{
		Flags: newFlags("close"),
		Usage: "close",
		Short: "Close the current file",
		Exec: func(_ context.Context, o *IO, _ []string) error {
			f, err := s.current()
			if err != nil {
				return err
			}

			name := f.Device().Name()

			err = s.Close()
			if err != nil {
				return err
			}

			o.Println("closed", name)

			return nil
		},
	}
}

func (s *Session) trimCmd() *Command {
	return &Command{
		Flags: newFlags("trim"),
		Usage: "trim [minor]",
		Short: "Free all storage of a device and reset its geometry",
		Long: `Free every quantum, slot array and node of device [minor], or of the
device of the current file, set its size to 0 and restore the default
quantum and qset.`,
		Exec: func(ctx context.Context, o *IO, args []string) error {
			dev, err := s.device(args)
			if err != nil {
				return err
			}

			err = dev.Trim(ctx)
			if err != nil {
				return err
			}

			o.Println("trimmed", dev.Name())

			return nil
		},
	}
}

func (s *Session) infoCmd() *Command {
	return &Command{
		Flags: newFlags("info"),
		Usage: "info [minor]",
		Short: "Show file, device and memory details",
		Exec: func(ctx context.Context, o *IO, args []string) error {
			dev, err := s.device(args)
			if err != nil {
				return err
			}

			st, err := dev.Stats(ctx)
			if err != nil {
				return err
			}

			if s.file != nil && s.file.Device() == dev {
				off, err := s.file.SeekContext(ctx, 0, io.SeekCurrent)
				if err != nil {
					return err
				}

				o.Printf("File:\n")
				o.Printf("  ID:          %s\n", s.file.ID())
				o.Printf("  Mode:        %s\n", s.mode)
				o.Printf("  Offset:      %d\n", off)
			}

			o.Printf("Device %s:\n", st.Name)
			o.Printf("  Size:        %d\n", st.Size)
			o.Printf("  Quantum:     %d (default %d)\n", st.Geometry.Quantum, st.Defaults.Quantum)
			o.Printf("  QSet:        %d (default %d)\n", st.Geometry.QSet, st.Defaults.QSet)
			o.Printf("  Nodes:       %d\n", st.Nodes)
			o.Printf("  Slot arrays: %d\n", st.SlotArrays)
			o.Printf("  Buffers:     %d (%d bytes)\n", st.Buffers, st.Bytes)

			limit := "unlimited"
			if s.heap.Limit() > 0 {
				limit = strconv.FormatInt(s.heap.Limit(), 10)
			}

			o.Printf("Memory:\n")
			o.Printf("  Reserved:    %d\n", s.heap.Used())
			o.Printf("  Limit:       %s\n", limit)

			return nil
		},
	}
}

func parseMinor(arg string) (int, error) {
	minor, err := strconv.Atoi(arg)
	if err != nil {
		return 0, fmt.Errorf("%w: minor %q is not a number", errUsage, arg)
	}

	return minor, nil
}

// openFlag converts a shell access mode into open(2) flags.
func openFlag(mode string, trunc bool) (int, error) {
	var flag int

	switch mode {
	case "r":
		flag = os.O_RDONLY
	case "w":
		flag = os.O_WRONLY
	case "rw":
		flag = os.O_RDWR
	default:
		return 0, fmt.Errorf("%w: mode %q is not one of r, w, rw", errUsage, mode)
	}

	if trunc {
		flag |= os.O_TRUNC
	}

	return flag, nil
}
