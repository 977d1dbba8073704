package check

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/leapstack-labs/anops/internal/config"
	"github.com/leapstack-labs/anops/internal/invoke"
	"github.com/leapstack-labs/anops/internal/project"
)

// defaultTailLines is how much tool output a violation keeps.
const defaultTailLines = 20

// Config configures a Pipeline.
type Config struct {
	Invoker invoke.Invoker
	Logger  *slog.Logger
	// Timeout bounds each tool when the manifest sets no check.timeout.
	Timeout time.Duration
	// TailLines limits the tool output kept in a violation's detail.
	TailLines int
	// Stdout and Stderr receive live tool output when set.
	Stdout io.Writer
	Stderr io.Writer
}

// Pipeline runs structure validation followed by linters and testers.
type Pipeline struct {
	cfg Config
}

// NewPipeline creates a Pipeline. A nil Invoker uses an invoke.Runner.
func NewPipeline(cfg Config) *Pipeline {
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	if cfg.Invoker == nil {
		cfg.Invoker = invoke.NewRunner(cfg.Logger)
	}
	if cfg.TailLines <= 0 {
		cfg.TailLines = defaultTailLines
	}
	return &Pipeline{cfg: cfg}
}

// Run checks proj. On violations the Outcome is returned together with a
// *FailedError. Other errors mean the check itself was interrupted.
func (p *Pipeline) Run(ctx context.Context, proj *config.Project) (*Outcome, error) {
	out := &Outcome{RunID: uuid.NewString()}
	log := p.cfg.Logger.With("run_id", out.RunID, "project", proj.Name())
	start := time.Now()
	defer func() { out.Duration = time.Since(start) }()

	log.Debug("check started", "stage", StageStructure)
	for _, prob := range project.LayoutFor(proj).Validate(proj.Root()) {
		out.Violations = append(out.Violations, Violation{Stage: StageStructure, Name: prob.Path, Detail: prob.Reason})
	}

	// Tools only make sense against a complete project.
	if len(out.Violations) == 0 {
		if err := p.runTools(ctx, log, proj, out); err != nil {
			return out, err
		}
	} else {
		log.Warn("structure validation failed, skipping tools", "violations", len(out.Violations))
	}

	sort.SliceStable(out.Violations, func(i, j int) bool {
		return out.Violations[i].Stage.rank() < out.Violations[j].Stage.rank()
	})

	if len(out.Violations) > 0 {
		log.Warn("check failed", "violations", len(out.Violations))
		return out, &FailedError{Violations: append([]Violation(nil), out.Violations...)}
	}
	out.Success = true
	log.Debug("check passed", "tools", len(out.Tools))
	return out, nil
}

func (p *Pipeline) runTools(ctx context.Context, log *slog.Logger, proj *config.Project, out *Outcome) error {
	timeout := proj.CheckTimeout()
	if timeout == 0 {
		timeout = p.cfg.Timeout
	}
	opts := invoke.Options{
		Dir:     proj.Root(),
		Timeout: timeout,
		Stdout:  p.cfg.Stdout,
		Stderr:  p.cfg.Stderr,
	}

	stages := []struct {
		stage Stage
		lines []string
	}{
		{StageLint, proj.Linters()},
		{StageTest, proj.Testers()},
	}
	for _, s := range stages {
		for _, line := range s.lines {
			log.Debug("running tool", "stage", s.stage, "tool", line)
			res, err := p.cfg.Invoker.Invoke(ctx, line, opts)
			if err != nil {
				var invErr *invoke.Error
				if errors.As(err, &invErr) && invErr.Canceled {
					return err
				}
				if res == nil && invErr != nil {
					res = invErr.Result
				}
				out.Tools = append(out.Tools, ToolRun{Stage: s.stage, Line: line, Result: res})
				out.Violations = append(out.Violations, Violation{Stage: s.stage, Name: line, Detail: err.Error()})
				continue
			}

			out.Tools = append(out.Tools, ToolRun{Stage: s.stage, Line: line, Result: res})
			if !res.Succeeded() {
				out.Violations = append(out.Violations, Violation{
					Stage:  s.stage,
					Name:   line,
					Detail: failureDetail(res, p.cfg.TailLines),
				})
			}
		}
	}
	return nil
}

func failureDetail(res *invoke.Result, tail int) string {
	detail := fmt.Sprintf("exited with status %d", res.ExitCode)
	if output := res.Tail(tail); output != "" {
		detail += "\n" + output
	}
	return detail
}
