// Package task runs the named command sequences declared under [tasks].
package task

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/leapstack-labs/anops/internal/config"
	"github.com/leapstack-labs/anops/internal/invoke"
)

// Config configures an Executor.
type Config struct {
	Invoker invoke.Invoker
	Logger  *slog.Logger
	// Timeout bounds each step. Zero means no limit.
	Timeout time.Duration
	// Stdout and Stderr receive live tool output when set.
	Stdout io.Writer
	Stderr io.Writer
}

// Step is the result of one command in a task.
type Step struct {
	Index   int            `json:"index"`
	Command string         `json:"command"`
	Result  *invoke.Result `json:"result,omitempty"`
}

// Outcome summarizes a task run. Steps holds every step that was attempted.
type Outcome struct {
	Task     string        `json:"task"`
	Success  bool          `json:"success"`
	Steps    []Step        `json:"steps"`
	Duration time.Duration `json:"duration"`
}

// Executor runs tasks step by step, stopping at the first failure.
type Executor struct {
	cfg Config
}

// NewExecutor creates an Executor. A nil Invoker uses an invoke.Runner.
func NewExecutor(cfg Config) *Executor {
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	if cfg.Invoker == nil {
		cfg.Invoker = invoke.NewRunner(cfg.Logger)
	}
	return &Executor{cfg: cfg}
}

// Run executes the task called name from the project root. The returned
// Outcome is non-nil whenever the task exists, including on failure.
func (e *Executor) Run(ctx context.Context, proj *config.Project, name string) (*Outcome, error) {
	commands, ok := proj.Task(name)
	if !ok {
		return nil, &UnknownTaskError{Name: name, Available: proj.TaskNames()}
	}

	log := e.cfg.Logger.With("task", name)
	log.Debug("running task", "steps", len(commands))

	out := &Outcome{Task: name, Steps: make([]Step, 0, len(commands))}
	start := time.Now()
	defer func() { out.Duration = time.Since(start) }()

	opts := invoke.Options{
		Dir:     proj.Root(),
		Timeout: e.cfg.Timeout,
		Stdout:  e.cfg.Stdout,
		Stderr:  e.cfg.Stderr,
	}

	for i, line := range commands {
		index := i + 1
		res, err := e.cfg.Invoker.Invoke(ctx, line, opts)
		out.Steps = append(out.Steps, Step{Index: index, Command: line, Result: res})

		if err != nil {
			var invErr *invoke.Error
			if errors.As(err, &invErr) && res == nil {
				res = invErr.Result
			}
			log.Warn("task step could not run", "step", index, "command", line, "error", err)
			return out, &StepError{Task: name, Index: index, Command: line, Result: res, Err: err}
		}
		if !res.Succeeded() {
			log.Warn("task step failed", "step", index, "command", line, "exit_code", res.ExitCode)
			return out, &StepError{Task: name, Index: index, Command: line, Result: res}
		}
	}

	out.Success = true
	log.Debug("task finished", "steps", len(out.Steps))
	return out, nil
}
