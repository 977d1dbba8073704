package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/anops/internal/check"
	"github.com/leapstack-labs/anops/internal/cli/output"
)

// NewCheckCommand creates the check command.
func NewCheckCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Validate the project layout and run linters and testers",
		Long: `Validate that the project has the required directories and files, then run
every configured linter and tester from the project root.

All problems are reported, not just the first: every linter and every tester
runs even when an earlier one fails. Linters and testers are skipped when
the layout itself is invalid.`,
		Example: `  # Check the project containing the current directory
  ao check

  # Machine-readable result for CI
  ao check -o json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCheck(cmd)
		},
	}
}

// CheckOutput is the JSON output for the check command.
type CheckOutput struct {
	Project    string            `json:"project"`
	RunID      string            `json:"run_id"`
	Success    bool              `json:"success"`
	Violations []check.Violation `json:"violations"`
	Tools      []check.ToolRun   `json:"tools"`
	Duration   string            `json:"duration"`
}

func runCheck(cmd *cobra.Command) error {
	cmdCtx, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	r := cmdCtx.Renderer
	stdout, stderr := cmdCtx.ToolOutput()

	pipeline := check.NewPipeline(check.Config{
		Invoker: cmdCtx.Invoker,
		Logger:  cmdCtx.Logger,
		Timeout: cmdCtx.Timeout(),
		Stdout:  stdout,
		Stderr:  stderr,
	})
	outcome, runErr := pipeline.Run(cmd.Context(), cmdCtx.Project)
	if outcome == nil {
		return runErr
	}

	if r.EffectiveMode() == output.ModeJSON {
		violations := outcome.Violations
		if violations == nil {
			violations = []check.Violation{}
		}
		tools := outcome.Tools
		if tools == nil {
			tools = []check.ToolRun{}
		}
		if err := r.JSON(CheckOutput{
			Project:    cmdCtx.Project.Name(),
			RunID:      outcome.RunID,
			Success:    outcome.Success,
			Violations: violations,
			Tools:      tools,
			Duration:   outcome.Duration.Round(time.Millisecond).String(),
		}); err != nil {
			return err
		}
		return runErr
	}

	r.Header(1, fmt.Sprintf("Check: %s", cmdCtx.Project.Name()))
	renderStructure(r, outcome)
	for _, tool := range outcome.Tools {
		status, detail := "success", ""
		if tool.Result != nil {
			detail = tool.Result.Duration.Round(time.Millisecond).String()
		}
		if !tool.Result.Succeeded() {
			status = "failed"
		}
		r.StatusLine(fmt.Sprintf("%s %s", output.Label(string(tool.Stage)), tool.Line), status, detail)
	}

	if runErr != nil {
		return runErr
	}
	r.Println("")
	r.Success("Check passed")
	return nil
}

func renderStructure(r *output.Renderer, outcome *check.Outcome) {
	if n := outcome.Count(check.StageStructure); n > 0 {
		r.StatusLine("Structure", "failed", fmt.Sprintf("%d problem(s), linters and testers skipped", n))
		return
	}
	r.StatusLine("Structure", "success", "")
}
