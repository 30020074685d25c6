package cli

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// CLI provides a clean interface for running shell scripts in tests.
// It manages a temp directory and environment variables.
type CLI struct {
	t   *testing.T
	Dir string
	Env map[string]string
}

// NewCLI creates a new test CLI with a temp directory. The global config
// lookup is pointed at an empty directory so the host's config never leaks in.
func NewCLI(t *testing.T) *CLI {
	t.Helper()

	return &CLI{
		t:   t,
		Dir: t.TempDir(),
		Env: map[string]string{"XDG_CONFIG_HOME": t.TempDir()},
	}
}

// Run feeds script to the shell and returns stdout, stderr, and exit code.
// Args should not include "scull" or "--cwd" - those are added automatically,
// as is "--log-level=error" ahead of args.
func (r *CLI) Run(script string, args ...string) (string, string, int) {
	var outBuf, errBuf bytes.Buffer

	fullArgs := append([]string{"scull", "--cwd", r.Dir, "--log-level=error"}, args...)
	code := Run(strings.NewReader(script), &outBuf, &errBuf, fullArgs, r.Env, nil)

	return outBuf.String(), errBuf.String(), code
}

// RunWithSignals runs the shell on in with sigCh as its signal source.
// Unlike Run, in may block, so callers can signal an idle shell.
func (r *CLI) RunWithSignals(in io.Reader, sigCh <-chan os.Signal, args ...string) (string, string, int) {
	var outBuf, errBuf bytes.Buffer

	fullArgs := append([]string{"scull", "--cwd", r.Dir, "--log-level=error"}, args...)
	code := Run(in, &outBuf, &errBuf, fullArgs, r.Env, sigCh)

	return outBuf.String(), errBuf.String(), code
}

// MustRun runs script and fails the test if the shell exits non-zero.
// Returns stdout.
func (r *CLI) MustRun(script string, args ...string) string {
	r.t.Helper()

	stdout, stderr, code := r.Run(script, args...)
	if code != 0 {
		r.t.Fatalf("script %q failed with exit code %d\nstderr: %s", script, code, stderr)
	}

	return stdout
}

// MustFail runs script and fails the test if the shell exits zero.
// Returns trimmed stderr.
func (r *CLI) MustFail(script string, args ...string) string {
	r.t.Helper()

	stdout, stderr, code := r.Run(script, args...)
	if code == 0 {
		r.t.Fatalf("script %q should have failed but succeeded\nstdout: %s", script, stdout)
	}

	return strings.TrimSpace(stderr)
}

// WriteFile writes content to a file relative to Dir.
func (r *CLI) WriteFile(name, content string) {
	r.t.Helper()

	err := os.WriteFile(filepath.Join(r.Dir, name), []byte(content), 0o600)
	if err != nil {
		r.t.Fatalf("failed to write %s: %v", name, err)
	}
}

// ReadFile reads a file relative to Dir.
func (r *CLI) ReadFile(name string) string {
	r.t.Helper()

	content, err := os.ReadFile(filepath.Join(r.Dir, name))
	if err != nil {
		r.t.Fatalf("failed to read %s: %v", name, err)
	}

	return string(content)
}

// AssertContains fails the test if content doesn't contain substr.
func AssertContains(t *testing.T, content, substr string) {
	t.Helper()

	if !strings.Contains(content, substr) {
		t.Errorf("content should contain %q\ncontent:\n%s", substr, content)
	}
}

// AssertNotContains fails the test if content contains substr.
func AssertNotContains(t *testing.T, content, substr string) {
	t.Helper()

	if strings.Contains(content, substr) {
		t.Errorf("content should NOT contain %q\ncontent:\n%s", substr, content)
	}
}
