// Package invoke runs external tools for ao's pipelines.
//
// It is the only place in the repository that turns a command-line string into
// a process: command lines are tokenized with POSIX shell quoting rules,
// spawned directly (no shell), and observed for exit status and output. A
// non-zero exit is a normal Result; only failures to start or to finish the
// process are returned as errors.
package invoke

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/google/shlex"
)

// interruptGrace is how long a cancelled subprocess gets to exit after
// receiving an interrupt before it is killed.
const interruptGrace = 10 * time.Second

// Invoker runs one external command to completion.
type Invoker interface {
	// Invoke tokenizes line and runs it.
	Invoke(ctx context.Context, line string, opts Options) (*Result, error)
	// Exec runs an already tokenized command.
	Exec(ctx context.Context, argv []string, opts Options) (*Result, error)
}

// Options control a single invocation.
type Options struct {
	// Dir is the working directory. Empty means the current directory.
	Dir string
	// Timeout bounds the invocation. Zero means no limit.
	Timeout time.Duration
	// Env holds extra KEY=VALUE pairs appended to the inherited environment.
	Env []string
	// Stdout and Stderr, when set, receive a live copy of the output in
	// addition to the captured buffers.
	Stdout io.Writer
	Stderr io.Writer
}

// Result describes a completed invocation.
type Result struct {
	Command  string        `json:"command"`
	Args     []string      `json:"args"`
	ExitCode int           `json:"exit_code"`
	Stdout   string        `json:"stdout,omitempty"`
	Stderr   string        `json:"stderr,omitempty"`
	Duration time.Duration `json:"duration"`
}

// Succeeded reports whether the process exited with status zero.
func (r *Result) Succeeded() bool { return r != nil && r.ExitCode == 0 }

// Output returns stdout and stderr combined, trimmed of surrounding whitespace.
func (r *Result) Output() string {
	if r == nil {
		return ""
	}
	out := strings.TrimSpace(r.Stdout)
	errOut := strings.TrimSpace(r.Stderr)
	switch {
	case out == "":
		return errOut
	case errOut == "":
		return out
	default:
		return out + "\n" + errOut
	}
}

// Tail returns at most the last n lines of Output.
func (r *Result) Tail(n int) string {
	out := r.Output()
	if n <= 0 || out == "" {
		return out
	}
	lines := strings.Split(out, "\n")
	if len(lines) <= n {
		return out
	}
	return strings.Join(lines[len(lines)-n:], "\n")
}

// Error reports an invocation that could not be started or did not finish.
type Error struct {
	Command string
	// Timeout is set when Options.Timeout expired.
	Timeout bool
	// Canceled is set when the parent context ended first.
	Canceled bool
	// Result holds whatever was captured before the process was stopped.
	Result *Result
	Err    error
}

func (e *Error) Error() string {
	switch {
	case e.Timeout:
		return fmt.Sprintf("command %q timed out after %s", e.Command, e.Result.Duration.Round(time.Millisecond))
	case e.Canceled:
		return fmt.Sprintf("command %q was canceled", e.Command)
	default:
		return fmt.Sprintf("cannot run %q: %v", e.Command, e.Err)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Tokenize splits a command line into arguments using POSIX shell quoting.
// Quoted arguments keep their spaces; no expansion or globbing is performed.
func Tokenize(line string) ([]string, error) {
	argv, err := shlex.Split(line)
	if err != nil {
		return nil, fmt.Errorf("cannot parse command line %q: %w", line, err)
	}
	if len(argv) == 0 {
		return nil, fmt.Errorf("empty command line %q", line)
	}
	return argv, nil
}

// Runner is the process-backed Invoker.
type Runner struct {
	logger *slog.Logger
}

// NewRunner creates a Runner. A nil logger discards all records.
func NewRunner(logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Runner{logger: logger}
}

// Invoke tokenizes line and runs it.
func (r *Runner) Invoke(ctx context.Context, line string, opts Options) (*Result, error) {
	argv, err := Tokenize(line)
	if err != nil {
		return nil, &Error{Command: line, Err: err}
	}
	return r.run(ctx, line, argv, opts)
}

// Exec runs argv without any further parsing.
func (r *Runner) Exec(ctx context.Context, argv []string, opts Options) (*Result, error) {
	if len(argv) == 0 {
		return nil, &Error{Command: "", Err: errors.New("command cannot be empty")}
	}
	return r.run(ctx, strings.Join(argv, " "), argv, opts)
}

func (r *Runner) run(ctx context.Context, line string, argv []string, opts Options) (*Result, error) {
	runCtx := ctx
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	// Lookup failures surface through cmd.Err and are returned by Run.
	cmd := exec.CommandContext(runCtx, argv[0], argv[1:]...)
	cmd.Dir = opts.Dir
	if len(opts.Env) > 0 {
		cmd.Env = append(os.Environ(), opts.Env...)
	}
	cmd.Cancel = func() error { return cmd.Process.Signal(os.Interrupt) }
	cmd.WaitDelay = interruptGrace

	var stdout, stderr bytes.Buffer
	cmd.Stdout = teeTo(&stdout, opts.Stdout)
	cmd.Stderr = teeTo(&stderr, opts.Stderr)

	r.logger.Debug("invoking tool", "command", line, "dir", opts.Dir)

	start := time.Now()
	err := cmd.Run()
	result := &Result{
		Command:  line,
		Args:     append([]string(nil), argv...),
		ExitCode: 0,
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}

	// A context that ended while the process ran takes precedence over the
	// exit status: the process was stopped, it did not finish.
	if ctxErr := runCtx.Err(); ctxErr != nil && err != nil {
		result.ExitCode = exitCode(err)
		invErr := &Error{Command: line, Result: result, Err: ctxErr}
		if ctx.Err() != nil {
			invErr.Canceled = true
		} else {
			invErr.Timeout = true
		}
		r.logger.Warn("tool stopped", "command", line, "timeout", invErr.Timeout, "duration", result.Duration)
		return result, invErr
	}

	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return nil, &Error{Command: line, Err: err}
		}
		result.ExitCode = exitErr.ExitCode()
	}

	r.logger.Debug("tool finished", "command", line, "exit_code", result.ExitCode, "duration", result.Duration)
	return result, nil
}

func exitCode(err error) int {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}

func teeTo(buf *bytes.Buffer, w io.Writer) io.Writer {
	if w == nil {
		return buf
	}
	return io.MultiWriter(buf, w)
}
