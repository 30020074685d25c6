package cli

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/containerd/log"

	"github.com/calvinalkan/scull/pkg/scull"
)

// Session is the state behind one shell: the device registry, the shared
// heap and at most one open file.
type Session struct {
	reg     *scull.Registry
	heap    *scull.Heap
	workDir string
	o       *IO

	file  *scull.File
	minor int
	mode  string
}

// NewSession creates a session over reg. heap is the allocator shared by the
// registry's devices and is only read for reporting. Relative paths given to
// commands resolve against workDir.
func NewSession(reg *scull.Registry, heap *scull.Heap, workDir string, o *IO) *Session {
	return &Session{reg: reg, heap: heap, workDir: workDir, o: o}
}

// commands returns a fresh set of commands. Flag sets keep parsed values,
// so every line gets new ones.
func (s *Session) commands() []*Command {
	return []*Command{
		s.devicesCmd(),
		s.openCmd(),
		s.closeCmd(),
		s.readCmd(),
		s.writeCmd(),
		s.seekCmd(),
		s.trimCmd(),
		s.infoCmd(),
		s.dumpCmd(),
		s.stressCmd(),
		s.helpCmd(),
		s.exitCmd(),
	}
}

func (s *Session) lookup(name string) *Command {
	for _, cmd := range s.commands() {
		if cmd.Name() == name {
			return cmd
		}
	}

	switch name {
	case "quit", "q":
		return s.exitCmd()
	case "?":
		return s.helpCmd()
	}

	return nil
}

// Exec runs one input line. Empty lines are ignored. It returns errExit when
// the line asks the shell to stop.
func (s *Session) Exec(ctx context.Context, line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}

	name := strings.ToLower(fields[0])

	cmd := s.lookup(name)
	if cmd == nil {
		return fmt.Errorf("%w: %s (type 'help' for commands)", errUnknownCommand, name)
	}

	log.G(ctx).WithField("command", name).Trace("shell: exec")

	return cmd.Run(ctx, s.o, fields[1:])
}

// Close closes the open file, if any.
func (s *Session) Close() error {
	if s.file == nil {
		return nil
	}

	err := s.file.Close()
	s.file = nil

	return err
}

// current returns the open file.
func (s *Session) current() (*scull.File, error) {
	if s.file == nil {
		return nil, errNoFile
	}

	return s.file, nil
}

// device resolves an optional minor argument, falling back to the device of
// the open file.
func (s *Session) device(args []string) (*scull.Device, error) {
	switch len(args) {
	case 0:
		f, err := s.current()
		if err != nil {
			return nil, err
		}

		return f.Device(), nil
	case 1:
		minor, err := parseMinor(args[0])
		if err != nil {
			return nil, err
		}

		return s.reg.Device(minor)
	default:
		return nil, fmt.Errorf("%w: too many arguments", errUsage)
	}
}

func (s *Session) path(p string) string {
	if filepath.IsAbs(p) || s.workDir == "" {
		return p
	}

	return filepath.Join(s.workDir, p)
}

// names lists every command name, for completion.
func (s *Session) names() []string {
	cmds := s.commands()

	names := make([]string, 0, len(cmds))
	for _, cmd := range cmds {
		names = append(names, cmd.Name())
	}

	return names
}

// complete returns the command names starting with line.
func (s *Session) complete(line string) []string {
	var completions []string

	lower := strings.ToLower(line)
	for _, name := range s.names() {
		if strings.HasPrefix(name, lower) {
			completions = append(completions, name)
		}
	}

	return completions
}

func isExit(err error) bool {
	return errors.Is(err, errExit)
}
