package cli_test

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/calvinalkan/scull/internal/cli"
)

// deviceLine returns the "devices" listing row for name.
func deviceLine(t *testing.T, out, name string) string {
	t.Helper()

	for line := range strings.SplitSeq(out, "\n") {
		fields := strings.Fields(strings.TrimPrefix(line, "*"))
		if len(fields) > 1 && fields[0] == name && strings.HasPrefix(fields[1], "size=") {
			return line
		}
	}

	t.Fatalf("no devices row for %q\noutput:\n%s", name, out)

	return ""
}

func Test_Shell_Reads_Back_Data_When_Written_Then_Read(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	stdout := c.MustRun("open 0\nwrite hello world\nseek 0\nread\n")

	cli.AssertContains(t, stdout, "opened scull0 mode=rw")
	cli.AssertContains(t, stdout, "wrote 11 bytes")
	cli.AssertContains(t, stdout, "offset 0")
	cli.AssertContains(t, stdout, `"hello world"`)
}

func Test_Shell_Reads_Zeros_When_Range_Is_A_Hole(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	stdout := c.MustRun("open 0\nseek 10\nwrite xy\nseek 0\nread -n 20\n", "--quantum", "4", "--qset", "2")

	cli.AssertContains(t, stdout, `"\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00xy"`)

	stdout = c.MustRun("open 0\nseek 10\nwrite xy\ndevices\n", "--quantum", "4", "--qset", "2")

	line := deviceLine(t, stdout, "scull0")
	cli.AssertContains(t, line, "size=12")
	cli.AssertContains(t, line, "nodes=2")
	cli.AssertContains(t, line, "buffers=1")
}

func Test_Shell_Prints_EOF_When_Reading_Past_End(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	stdout := c.MustRun("open 2\nread\n")

	cli.AssertContains(t, stdout, "(eof)")
}

func Test_Shell_Prints_Hex_Dump_When_Hex_Flag_Is_Set(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	stdout := c.MustRun("open 0\nwrite --hex 00ff41\nseek 0\nread --hex\n")

	cli.AssertContains(t, stdout, "wrote 3 bytes")
	cli.AssertContains(t, stdout, "00 ff 41")
}

func Test_Shell_Seeks_From_End_When_Offset_Is_Negative(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	stdout := c.MustRun("open 0\nwrite abcdef\nseek --whence end -- -2\nread\n")

	cli.AssertContains(t, stdout, "offset 4")
	cli.AssertContains(t, stdout, `"ef"`)
}

func Test_Shell_Spans_Quanta_When_Write_Is_Larger_Than_One_Quantum(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	stdout := c.MustRun("open 0\nwrite abcdefghij\nseek 0\nread\ndevices\n", "--quantum", "4", "--qset", "2")

	cli.AssertContains(t, stdout, "wrote 10 bytes")
	cli.AssertContains(t, stdout, `"abcdefghij"`)

	line := deviceLine(t, stdout, "scull0")
	cli.AssertContains(t, line, "buffers=3")
	cli.AssertContains(t, line, "nodes=2")
}

func Test_Shell_Trims_Device_When_Trim_Command_Runs(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	stdout := c.MustRun("open 0\nwrite abc\ntrim\ndevices\n")

	cli.AssertContains(t, stdout, "trimmed scull0")

	line := deviceLine(t, stdout, "scull0")
	cli.AssertContains(t, line, "size=0")
	cli.AssertContains(t, line, "nodes=0")
}

func Test_Shell_Trims_Other_Device_When_Minor_Is_Given(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	stdout := c.MustRun("open 3\nwrite abc\nopen 0\ntrim 3\ndevices\n")

	cli.AssertContains(t, stdout, "trimmed scull3")
	cli.AssertContains(t, deviceLine(t, stdout, "scull3"), "size=0")
}

func Test_Shell_Truncates_Device_When_Opened_Write_Only(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	stdout := c.MustRun("open 0\nwrite abc\nopen --mode w 0\ndevices\n")

	cli.AssertContains(t, deviceLine(t, stdout, "scull0"), "size=0")
}

func Test_Shell_Keeps_Data_When_Opened_Read_Only(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	stdout := c.MustRun("open 0\nwrite abc\nopen -m r 0\nread\n")

	cli.AssertContains(t, stdout, `"abc"`)
}

func Test_Shell_Marks_Current_Device_When_Listing(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	stdout := c.MustRun("open 1\ndevices\n")

	if line := deviceLine(t, stdout, "scull1"); !strings.HasPrefix(line, "*") {
		t.Fatalf("line=%q, want '*' marker", line)
	}

	if line := deviceLine(t, stdout, "scull0"); strings.HasPrefix(line, "*") {
		t.Fatalf("line=%q, want no marker", line)
	}
}

func Test_Shell_Prints_Errno_When_No_File_Is_Open(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	stderr := c.MustFail("read\n")

	cli.AssertContains(t, stderr, "error: no open file")
	cli.AssertContains(t, stderr, "(EBADF)")
}

func Test_Shell_Prints_ENODEV_When_Minor_Is_Out_Of_Range(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	stderr := c.MustFail("open 9\n")

	cli.AssertContains(t, stderr, "no such device")
	cli.AssertContains(t, stderr, "(ENODEV)")
}

func Test_Shell_Prints_EBADF_When_Writing_Read_Only_File(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	stderr := c.MustFail("open --mode r 0\nwrite x\n")

	cli.AssertContains(t, stderr, "(EBADF)")
}

func Test_Shell_Prints_ENOMEM_When_Memory_Limit_Is_Exceeded(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	stdout, stderr, code := c.Run("open 0\nwrite abc\ndevices\n", "--max-bytes", "100")

	if code != 1 {
		t.Fatalf("exit code=%d, want 1", code)
	}

	cli.AssertContains(t, stderr, "wrote 0 of 3 bytes")
	cli.AssertContains(t, stderr, "(ENOMEM)")

	// The shell keeps going after a failed command.
	cli.AssertContains(t, deviceLine(t, stdout, "scull0"), "size=0")
}

func Test_Shell_Prints_EINVAL_When_Command_Is_Unknown(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	stderr := c.MustFail("frobnicate\n")

	cli.AssertContains(t, stderr, "unknown command: frobnicate")
	cli.AssertContains(t, stderr, "(EINVAL)")
}

func Test_Shell_Prints_EINVAL_When_Flag_Is_Unknown(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	stderr := c.MustFail("open --bogus 0\n")

	cli.AssertContains(t, stderr, "unknown flag: --bogus")
	cli.AssertContains(t, stderr, "(EINVAL)")
}

func Test_Shell_Resets_Flags_When_Command_Runs_Again(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	stdout := c.MustRun("open 0\nwrite hi\nseek 0\nread --hex\nseek 0\nread\n")

	cli.AssertContains(t, stdout, `"hi"`)
}

func Test_Shell_Stops_When_Exit_Is_Read(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	stdout := c.MustRun("exit\nopen 0\n")

	cli.AssertNotContains(t, stdout, "opened")
}

func Test_Shell_Ignores_Comments_And_Blank_Lines(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	stdout := c.MustRun("# setup\n\n   \nopen 0\n")

	cli.AssertContains(t, stdout, "opened scull0")
}

func Test_Shell_Writes_Device_Contents_When_Dumping(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	stdout := c.MustRun("open 0\nseek 2\nwrite hello\ndump out.bin\n", "--quantum", "3")

	cli.AssertContains(t, stdout, "dumped 7 bytes from scull0 to "+filepath.Join(c.Dir, "out.bin"))

	if got, want := c.ReadFile("out.bin"), "\x00\x00hello"; got != want {
		t.Fatalf("dump=%q, want=%q", got, want)
	}
}

func Test_Shell_Dumps_Other_Device_When_Minor_Flag_Is_Set(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	c.MustRun("open 1\nwrite one\nopen 2\nwrite two\ndump -m 1 one.bin\n")

	if got, want := c.ReadFile("one.bin"), "one"; got != want {
		t.Fatalf("dump=%q, want=%q", got, want)
	}
}

func Test_Shell_Verifies_Concurrent_Writers_When_Stress_Runs(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	stdout := c.MustRun("open 1\nstress -w 4 -n 10 -b 7\ndevices\n", "--quantum", "16", "--qset", "3")

	cli.AssertContains(t, stdout, "stress: 4 workers x 10 writes of 7 bytes (280 bytes) verified on scull1")
	cli.AssertContains(t, deviceLine(t, stdout, "scull1"), "size=280")
}

func Test_Shell_Shows_Offset_When_Info_Runs_With_Open_File(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	stdout := c.MustRun("open 0\nwrite abcde\ninfo\n", "--max-bytes", "1000000")

	cli.AssertContains(t, stdout, "Offset:      5")
	cli.AssertContains(t, stdout, "Size:        5")
	cli.AssertContains(t, stdout, "Limit:       1000000")
}

func Test_Shell_Lists_Commands_When_Help_Runs(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	stdout := c.MustRun("help\n")

	for _, name := range []string{"devices", "open", "close", "read", "write", "seek", "trim", "info", "dump", "stress", "help", "exit"} {
		cli.AssertContains(t, stdout, "  "+name)
	}
}

func Test_Shell_Prints_Command_Help_When_Help_Flag_Is_Given(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	stdout := c.MustRun("open --help\nhelp seek\n")

	cli.AssertContains(t, stdout, "Usage: open [flags] <minor>")
	cli.AssertContains(t, stdout, "--trunc")
	cli.AssertContains(t, stdout, "Usage: seek [flags] <offset>")
}

func Test_Shell_Closes_File_When_Close_Runs(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	stdout, stderr, code := c.Run("open 0\nclose\nread\n")

	if code != 1 {
		t.Fatalf("exit code=%d, want 1", code)
	}

	cli.AssertContains(t, stdout, "closed scull0")
	cli.AssertContains(t, stderr, "no open file")
}
