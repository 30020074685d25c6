package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/containerd/log"
	"github.com/sirupsen/logrus"
	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/scull/internal/config"
	"github.com/calvinalkan/scull/pkg/scull"
)

// globalFlags maps flag names to the config keys they override.
var globalFlags = map[string]string{
	"devices":   config.KeyDevices,
	"quantum":   config.KeyQuantum,
	"qset":      config.KeyQSet,
	"size":      config.KeySize,
	"max-bytes": config.KeyMaxBytes,
	"log-level": config.KeyLogLevel,
	"history":   config.KeyHistory,
}

// Run is the main entry point. Returns exit code.
//
// Input from a terminal gets an interactive line editor; any other input is
// read as a script, one command per line. A signal on sigCh cancels the
// running command, or stops the shell when none is running. The exit code
// is 1 when any command failed.
func Run(in io.Reader, out io.Writer, errOut io.Writer, args []string, env map[string]string, sigCh <-chan os.Signal) int {
	o := NewIO(out, errOut)

	var overrides config.Config

	flags := flag.NewFlagSet("scull", flag.ContinueOnError)
	flags.SetOutput(io.Discard)
	flags.Usage = func() {}

	workDir := flags.StringP("cwd", "C", "", "Run as if started in `dir`")
	configPath := flags.StringP("config", "c", "", "Use specified config `file`")
	flags.IntVar(&overrides.Devices, "devices", 0, "Number of devices")
	flags.IntVar(&overrides.Quantum, "quantum", 0, "Bytes per quantum")
	flags.IntVar(&overrides.QSet, "qset", 0, "Quanta per quantum set")
	flags.Int64Var(&overrides.Size, "size", 0, "Initial device size in bytes")
	flags.Int64Var(&overrides.MaxBytes, "max-bytes", 0, "Memory limit shared by all devices (0 = unlimited)")
	flags.StringVar(&overrides.LogLevel, "log-level", "", "Log level: trace, debug, info, warn, error")
	flags.StringVar(&overrides.History, "history", "", "History `file` for the interactive shell")
	printConfig := flags.Bool("print-config", false, "Print the resolved configuration and exit")
	help := flags.BoolP("help", "h", false, "Show help")

	var rest []string
	if len(args) > 1 {
		rest = args[1:]
	}

	err := flags.Parse(rest)
	if err != nil {
		o.ErrPrintln("error:", err)
		printUsage(o.ErrPrintln, flags)

		return 1
	}

	if *help {
		printUsage(o.Println, flags)

		return 0
	}

	if flags.NArg() > 0 {
		o.ErrPrintln("error: unexpected argument:", flags.Arg(0))
		printUsage(o.ErrPrintln, flags)

		return 1
	}

	if *workDir == "" {
		*workDir, err = os.Getwd()
		if err != nil {
			o.ErrPrintln("error: cannot get working directory:", err)

			return 1
		}
	}

	var set []string

	flags.Visit(func(f *flag.Flag) {
		if key, ok := globalFlags[f.Name]; ok {
			set = append(set, key)
		}
	})

	cfg, sources, err := config.Load(*workDir, *configPath, overrides, set, env)
	if err != nil {
		o.ErrPrintln("error:", err)

		return 1
	}

	if *printConfig {
		err = printResolvedConfig(o, cfg, sources)
		if err != nil {
			o.ErrPrintln("error:", err)

			return 1
		}

		return 0
	}

	ctx, err := withLogger(context.Background(), errOut, cfg.LogLevel)
	if err != nil {
		o.ErrPrintln("error:", err)

		return 1
	}

	heap := scull.NewHeap(cfg.MaxBytes)

	reg, err := scull.NewRegistry(ctx, cfg.Devices, scull.Options{
		Quantum:   cfg.Quantum,
		QSet:      cfg.QSet,
		Size:      cfg.Size,
		Allocator: heap,
	})
	if err != nil {
		printError(o, err)

		return 1
	}

	session := NewSession(reg, heap, *workDir, o)
	sh := &shell{session: session, o: o}

	if isTerminal(in) {
		sh.history = historyPath(cfg.History, *workDir, env)
		err = sh.runInteractive(ctx, sigCh)
	} else {
		if in == nil {
			in = strings.NewReader("")
		}

		err = sh.runScript(ctx, in, sigCh)
	}

	err = errors.Join(err, session.Close(), reg.Close(ctx))
	if err != nil {
		printError(o, err)

		return 1
	}

	code := o.Finish()
	if sh.failed {
		return 1
	}

	return code
}

// withLogger attaches a logger writing to w at level to ctx.
func withLogger(ctx context.Context, w io.Writer, level string) (context.Context, error) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", config.ErrInvalid, err)
	}

	logger := logrus.New()
	logger.SetOutput(w)
	logger.SetLevel(lvl)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: log.RFC3339NanoFixed,
	})

	return log.WithLogger(ctx, logrus.NewEntry(logger)), nil
}

// isTerminal reports whether in is the process's terminal stdin, the only
// input liner can drive.
func isTerminal(in io.Reader) bool {
	f, ok := in.(*os.File)
	if !ok || f != os.Stdin {
		return false
	}

	fi, err := f.Stat()
	if err != nil {
		return false
	}

	return fi.Mode()&os.ModeCharDevice != 0
}

// historyPath resolves the history file. An explicit path is relative to
// workDir; otherwise ~/.scull_history is used when HOME is known.
func historyPath(configured, workDir string, env map[string]string) string {
	if configured != "" {
		if filepath.IsAbs(configured) {
			return configured
		}

		return filepath.Join(workDir, configured)
	}

	if home := env["HOME"]; home != "" {
		return filepath.Join(home, ".scull_history")
	}

	return ""
}

func printResolvedConfig(o *IO, cfg config.Config, sources config.Sources) error {
	formatted, err := config.Format(cfg)
	if err != nil {
		return err
	}

	o.Println(formatted)

	o.Println("")
	o.Println("# Sources:")

	if sources.Global != "" {
		o.Println("#   global:", sources.Global)
	}

	if sources.Project != "" {
		o.Println("#   project:", sources.Project)
	}

	if sources.Global == "" && sources.Project == "" {
		o.Println("#   (using defaults only)")
	}

	return nil
}

func printUsage(emit func(a ...any), flags *flag.FlagSet) {
	emit(`scull - in-memory quantum-set devices

Usage: scull [flags] < script

Reads shell commands from a terminal, or one per line from stdin.
Type 'help' in the shell for the list of commands.

Global flags:`)
	emit(strings.TrimRight(flags.FlagUsages(), "\n"))
}
