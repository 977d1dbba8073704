package commands

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/anops/internal/cli/output"
	"github.com/leapstack-labs/anops/internal/task"
)

// RunOptions holds options for the run command.
type RunOptions struct {
	List bool
}

// NewRunCommand creates the run command.
func NewRunCommand() *cobra.Command {
	opts := &RunOptions{}

	cmd := &cobra.Command{
		Use:   "run <task>",
		Short: "Run a task defined in ao.toml",
		Long: `Run the commands of a [tasks] entry in order from the project root.

The first command that exits with a non-zero status stops the task; later
commands are not run. Command output is shown as it is produced.`,
		Example: `  # Run the "train" task
  ao run train

  # List the available tasks
  ao run --list

  # Bound each step
  ao --timeout 10m run train`,
		Args: func(cmd *cobra.Command, args []string) error {
			if opts.List {
				return cobra.NoArgs(cmd, args)
			}
			return cobra.ExactArgs(1)(cmd, args)
		},
		ValidArgsFunction: completeTaskNames,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.List {
				return runListTasks(cmd)
			}
			return runTask(cmd, args[0])
		},
	}

	cmd.Flags().BoolVarP(&opts.List, "list", "l", false, "List available tasks")

	return cmd
}

// TaskListOutput is the JSON output for run --list.
type TaskListOutput struct {
	Tasks map[string][]string `json:"tasks"`
}

func runListTasks(cmd *cobra.Command) error {
	cmdCtx, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	r := cmdCtx.Renderer
	proj := cmdCtx.Project

	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(TaskListOutput{Tasks: proj.Summary().Tasks})
	}

	names := proj.TaskNames()
	if len(names) == 0 {
		r.Warning("No tasks defined in " + proj.Path())
		return nil
	}

	rows := make([][]string, 0, len(names))
	for _, name := range names {
		cmds, _ := proj.Task(name)
		rows = append(rows, []string{name, fmt.Sprintf("%d", len(cmds)), firstOr(cmds, "(empty)")})
	}
	r.Header(1, fmt.Sprintf("Tasks (%d total)", len(names)))
	r.Table([]string{"Task", "Steps", "First command"}, rows)
	return nil
}

func runTask(cmd *cobra.Command, name string) error {
	cmdCtx, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	r := cmdCtx.Renderer
	jsonMode := r.EffectiveMode() == output.ModeJSON

	// Task output is the point of a task; stream it unless stdout carries JSON.
	var stdout, stderr io.Writer = r.Out(), r.ErrOut()
	if jsonMode {
		stdout, stderr = cmdCtx.ToolOutput()
	}

	exec := task.NewExecutor(task.Config{
		Invoker: cmdCtx.Invoker,
		Logger:  cmdCtx.Logger,
		Timeout: cmdCtx.Timeout(),
		Stdout:  stdout,
		Stderr:  stderr,
	})
	outcome, runErr := exec.Run(cmd.Context(), cmdCtx.Project, name)
	if outcome == nil {
		return runErr
	}

	if jsonMode {
		if err := r.JSON(outcome); err != nil {
			return err
		}
		return runErr
	}
	if runErr != nil {
		return runErr
	}

	_, _ = fmt.Fprintln(r.ErrOut(), r.Styles().Success.Render(fmt.Sprintf("%s task %q finished: %d step(s) in %s",
		output.SymbolSuccess, name, len(outcome.Steps), outcome.Duration.Round(time.Millisecond))))
	return nil
}

func completeTaskNames(cmd *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	cmdCtx, err := NewCommandContext(cmd)
	if err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	return cmdCtx.Project.TaskNames(), cobra.ShellCompDirectiveNoFileComp
}

func firstOr(items []string, fallback string) string {
	if len(items) == 0 {
		return fallback
	}
	return items[0]
}
