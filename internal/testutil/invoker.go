package testutil

import (
	"context"
	"strings"
	"sync"

	"github.com/leapstack-labs/anops/internal/invoke"
)

// Call is one invocation seen by a Recorder.
type Call struct {
	Line string
	Argv []string
	Opts invoke.Options
}

// Recorder is a scripted invoke.Invoker. Every call is recorded; the outcome
// is looked up by exact command line, then by executable name, and defaults
// to a successful exit.
type Recorder struct {
	mu sync.Mutex
	// ExitCodes maps a command line or executable name to its exit status.
	ExitCodes map[string]int
	// Errors maps a command line or executable name to a spawn failure.
	Errors map[string]error
	// Output maps a command line or executable name to its stdout.
	Output map[string]string
	calls  []Call
}

// NewRecorder returns an empty Recorder that succeeds for every command.
func NewRecorder() *Recorder {
	return &Recorder{
		ExitCodes: map[string]int{},
		Errors:    map[string]error{},
		Output:    map[string]string{},
	}
}

// Invoke records line and returns its scripted outcome.
func (r *Recorder) Invoke(_ context.Context, line string, opts invoke.Options) (*invoke.Result, error) {
	argv, err := invoke.Tokenize(line)
	if err != nil {
		return nil, &invoke.Error{Command: line, Err: err}
	}
	return r.record(line, argv, opts)
}

// Exec records argv and returns its scripted outcome.
func (r *Recorder) Exec(_ context.Context, argv []string, opts invoke.Options) (*invoke.Result, error) {
	return r.record(strings.Join(argv, " "), argv, opts)
}

func (r *Recorder) record(line string, argv []string, opts invoke.Options) (*invoke.Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.calls = append(r.calls, Call{Line: line, Argv: append([]string(nil), argv...), Opts: opts})

	if err, ok := lookup(r.Errors, line, argv); ok {
		return nil, &invoke.Error{Command: line, Err: err}
	}
	code, _ := lookup(r.ExitCodes, line, argv)
	out, _ := lookup(r.Output, line, argv)
	return &invoke.Result{
		Command:  line,
		Args:     append([]string(nil), argv...),
		ExitCode: code,
		Stdout:   out,
	}, nil
}

func lookup[V any](m map[string]V, line string, argv []string) (V, bool) {
	if v, ok := m[line]; ok {
		return v, true
	}
	if len(argv) > 0 {
		if v, ok := m[argv[0]]; ok {
			return v, true
		}
	}
	var zero V
	return zero, false
}

// Calls returns every recorded invocation in order.
func (r *Recorder) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Call(nil), r.calls...)
}

// Lines returns the command line of every recorded invocation in order.
func (r *Recorder) Lines() []string {
	calls := r.Calls()
	lines := make([]string, len(calls))
	for i, c := range calls {
		lines[i] = c.Line
	}
	return lines
}
