package cli

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/containerd/log"
	"github.com/natefinch/atomic"
	"github.com/peterh/liner"
)

const prompt = "scull> "

// lineReader is the part of liner.State the shell loop needs.
type lineReader interface {
	Prompt(prompt string) (string, error)
	AppendHistory(item string)
}

// scanReader reads lines from a non-terminal input without prompting.
type scanReader struct {
	sc *bufio.Scanner
}

func (r scanReader) Prompt(string) (string, error) {
	if !r.sc.Scan() {
		err := r.sc.Err()
		if err == nil {
			err = io.EOF
		}

		return "", err
	}

	return r.sc.Text(), nil
}

func (scanReader) AppendHistory(string) {}

// interrupter cancels the command that is currently running.
type interrupter struct {
	mu     sync.Mutex
	cancel context.CancelCauseFunc
}

func (i *interrupter) set(cancel context.CancelCauseFunc) {
	i.mu.Lock()
	i.cancel = cancel
	i.mu.Unlock()
}

// fire cancels the running command. It reports false when none is running.
func (i *interrupter) fire() bool {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.cancel == nil {
		return false
	}

	i.cancel(errSignal)

	return true
}

// shell runs the read-eval-print loop until exit, end of input or a signal
// that arrives while no command is running.
type shell struct {
	session *Session
	o       *IO
	history string
	failed  bool
}

// runInteractive drives the loop with liner line editing and history.
func (sh *shell) runInteractive(ctx context.Context, sigCh <-chan os.Signal) error {
	state := liner.NewLiner()
	defer state.Close()

	state.SetCtrlCAborts(true)
	state.SetCompleter(sh.session.complete)

	sh.loadHistory(ctx, state)

	sh.o.Println("scull shell. Type 'help' for available commands.")

	err := sh.loop(ctx, state, sigCh)

	sh.saveHistory(ctx, state)

	if err == nil {
		sh.o.Println("Bye!")
	}

	return err
}

// runScript drives the loop from a non-terminal reader, one command per line.
func (sh *shell) runScript(ctx context.Context, in io.Reader, sigCh <-chan os.Signal) error {
	return sh.loop(ctx, scanReader{sc: bufio.NewScanner(in)}, sigCh)
}

func (sh *shell) loop(ctx context.Context, lines lineReader, sigCh <-chan os.Signal) error {
	ctx, stop := context.WithCancelCause(ctx)
	defer stop(nil)

	var intr interrupter

	done := make(chan struct{})
	defer close(done)

	go func() {
		for {
			select {
			case <-sigCh:
				if !intr.fire() {
					stop(errSignal)
				}
			case <-done:
				return
			}
		}
	}()

	next := make(chan struct{})
	defer close(next)

	results := readLines(lines, next)

	for {
		select {
		case next <- struct{}{}:
		case <-ctx.Done():
			return nil
		}

		var in input

		select {
		case in = <-results:
		case <-ctx.Done():
			log.G(ctx).WithError(context.Cause(ctx)).Debug("shell: stopped while waiting for input")

			return nil
		}

		if in.err != nil {
			if errors.Is(in.err, liner.ErrPromptAborted) || errors.Is(in.err, io.EOF) {
				return nil
			}

			return fmt.Errorf("reading input: %w", in.err)
		}

		line := strings.TrimSpace(in.line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		lines.AppendHistory(line)

		cmdCtx, cancel := context.WithCancelCause(ctx)
		intr.set(cancel)

		err := sh.session.Exec(cmdCtx, line)

		intr.set(nil)
		cancel(nil)

		if isExit(err) {
			return nil
		}

		if err != nil {
			sh.failed = true
			printError(sh.o, err)
			log.G(ctx).WithError(err).WithField("line", line).Debug("shell: command failed")
		}
	}
}

// input is one line, or the error that ended the input.
type input struct {
	line string
	err  error
}

// readLines prompts once per value received on next, so nothing is read
// while a command runs. A prompt still blocked when the shell stops is
// abandoned; the goroutine exits once that prompt returns.
func readLines(lines lineReader, next <-chan struct{}) <-chan input {
	results := make(chan input, 1)

	go func() {
		defer close(results)

		for range next {
			line, err := lines.Prompt(prompt)
			results <- input{line: line, err: err}

			if err != nil {
				return
			}
		}
	}()

	return results
}

func (sh *shell) loadHistory(ctx context.Context, state *liner.State) {
	if sh.history == "" {
		return
	}

	f, err := os.Open(sh.history)
	if err != nil {
		if !os.IsNotExist(err) {
			sh.o.Warn("cannot read history "+sh.history, "check file permissions")
		}

		return
	}
	defer f.Close()

	_, err = state.ReadHistory(f)
	if err != nil {
		log.G(ctx).WithError(err).Debug("shell: history not loaded")
	}
}

// saveHistory replaces the history file atomically.
func (sh *shell) saveHistory(ctx context.Context, state *liner.State) {
	if sh.history == "" {
		return
	}

	var buf bytes.Buffer

	_, err := state.WriteHistory(&buf)
	if err != nil {
		log.G(ctx).WithError(err).Debug("shell: history not saved")

		return
	}

	err = atomic.WriteFile(sh.history, &buf)
	if err != nil {
		sh.o.Warn("cannot save history "+sh.history, "check file permissions")
	}
}
