package cli

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"

	"golang.org/x/sys/unix"

	"github.com/calvinalkan/scull/pkg/scull"
)

func Test_Command_Name_Is_First_Word_Of_Usage(t *testing.T) {
	t.Parallel()

	cmd := &Command{Usage: "open [flags] <minor>"}

	if got, want := cmd.Name(), "open"; got != want {
		t.Fatalf("Name()=%q, want=%q", got, want)
	}
}

func Test_Command_Run_Wraps_ErrUsage_When_Flag_Parse_Fails(t *testing.T) {
	t.Parallel()

	var out, errOut bytes.Buffer

	flags := newFlags("read")
	flags.IntP("count", "n", 1, "count")

	cmd := &Command{
		Flags: flags,
		Usage: "read [flags]",
		Exec: func(context.Context, *IO, []string) error {
			t.Fatal("Exec must not run")

			return nil
		},
	}

	err := cmd.Run(context.Background(), NewIO(&out, &errOut), []string{"-n", "x"})
	if !errors.Is(err, errUsage) {
		t.Fatalf("err=%v, want errUsage", err)
	}

	if out.Len() != 0 || errOut.Len() != 0 {
		t.Fatalf("unexpected output: stdout=%q stderr=%q", out.String(), errOut.String())
	}
}

func Test_Command_Run_Prints_Help_When_Help_Flag_Is_Given(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer

	cmd := &Command{
		Usage: "trim [minor]",
		Short: "Free all storage",
		Exec: func(context.Context, *IO, []string) error {
			t.Fatal("Exec must not run")

			return nil
		},
	}

	err := cmd.Run(context.Background(), NewIO(&out, &out), []string{"--help"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if !strings.Contains(out.String(), "Usage: trim [minor]") || !strings.Contains(out.String(), "Free all storage") {
		t.Fatalf("help output=%q", out.String())
	}
}

func Test_Command_Run_Passes_Positional_Args_When_Flags_Are_Interspersed(t *testing.T) {
	t.Parallel()

	flags := newFlags("seek")
	whence := flags.String("whence", "set", "")

	var got []string

	cmd := &Command{
		Flags: flags,
		Usage: "seek",
		Exec: func(_ context.Context, _ *IO, args []string) error {
			got = args

			return nil
		},
	}

	err := cmd.Run(context.Background(), NewIO(&bytes.Buffer{}, &bytes.Buffer{}), []string{"12", "--whence", "cur"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(got) != 1 || got[0] != "12" || *whence != "cur" {
		t.Fatalf("args=%v whence=%q, want [12] cur", got, *whence)
	}
}

func Test_ErrnoOf_Maps_Shell_And_Device_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err  error
		want unix.Errno
	}{
		{fmt.Errorf("%w: x", errUsage), unix.EINVAL},
		{errUnknownCommand, unix.EINVAL},
		{errNoFile, unix.EBADF},
		{fmt.Errorf("write: %w", scull.ErrNoMemory), unix.ENOMEM},
		{scull.ErrInterrupted, unix.EINTR},
		{errMismatch, unix.EIO},
	}

	for _, tt := range tests {
		if got := errnoOf(tt.err); got != tt.want {
			t.Errorf("errnoOf(%v)=%v, want=%v", tt.err, got, tt.want)
		}
	}
}

func Test_PrintError_Appends_Errno_Name(t *testing.T) {
	t.Parallel()

	var errOut bytes.Buffer

	printError(NewIO(&bytes.Buffer{}, &errOut), fmt.Errorf("minor 9: %w", scull.ErrNoDevice))

	if got, want := errOut.String(), "error: minor 9: scull: no such device (ENODEV)\n"; got != want {
		t.Fatalf("stderr=%q, want=%q", got, want)
	}
}

func Test_Interrupter_Cancels_Command_Context_When_Fired(t *testing.T) {
	t.Parallel()

	var intr interrupter

	if intr.fire() {
		t.Fatal("fire with no running command reported true")
	}

	ctx, cancel := context.WithCancelCause(context.Background())
	intr.set(cancel)

	if !intr.fire() {
		t.Fatal("fire with running command reported false")
	}

	if !errors.Is(context.Cause(ctx), errSignal) {
		t.Fatalf("cause=%v, want errSignal", context.Cause(ctx))
	}

	intr.set(nil)

	if intr.fire() {
		t.Fatal("fire after command finished reported true")
	}
}

func Test_ScanReader_Returns_EOF_When_Input_Ends(t *testing.T) {
	t.Parallel()

	r := scanReader{sc: bufio.NewScanner(strings.NewReader("one\ntwo"))}

	for _, want := range []string{"one", "two"} {
		got, err := r.Prompt(prompt)
		if err != nil || got != want {
			t.Fatalf("Prompt()=%q, %v, want %q", got, err, want)
		}
	}

	_, err := r.Prompt(prompt)
	if !errors.Is(err, io.EOF) {
		t.Fatalf("err=%v, want EOF", err)
	}
}
