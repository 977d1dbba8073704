package commands

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	cliconfig "github.com/leapstack-labs/anops/internal/cli/config"
	"github.com/leapstack-labs/anops/internal/cli/output"
	"github.com/leapstack-labs/anops/internal/config"
	"github.com/leapstack-labs/anops/internal/invoke"
	"github.com/leapstack-labs/anops/internal/project"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Settings *cliconfig.Settings
	Logger   *slog.Logger
	Renderer *output.Renderer
	Project  *config.Project
	Invoker  invoke.Invoker
}

// invokerKey is used to store an invoke.Invoker in context.
type invokerKey struct{}

// WithInvoker returns a copy of ctx whose commands run tools through inv
// instead of spawning processes directly.
func WithInvoker(ctx context.Context, inv invoke.Invoker) context.Context {
	return context.WithValue(ctx, invokerKey{}, inv)
}

// NewCommandContext creates a CommandContext for the project that contains
// the configured project directory.
func NewCommandContext(cmd *cobra.Command) (*CommandContext, error) {
	cmdCtx := NewCommandContextWithoutProject(cmd)

	root, err := project.FindRoot(cmdCtx.Settings.ProjectDir)
	if err != nil {
		return nil, err
	}
	proj, err := config.Load(root)
	if err != nil {
		return nil, err
	}
	cmdCtx.Project = proj
	cmdCtx.Logger = cmdCtx.Logger.With("project", proj.Name())
	cmdCtx.Logger.Debug("project loaded", "root", root)
	return cmdCtx, nil
}

// NewCommandContextWithoutProject creates a CommandContext without loading
// a project. Useful for commands that create or describe one.
func NewCommandContextWithoutProject(cmd *cobra.Command) *CommandContext {
	settings := cliconfig.GetSettings(cmd.Context())
	logger := cliconfig.GetLogger(cmd.Context())
	r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(settings.Output))

	inv, ok := cmd.Context().Value(invokerKey{}).(invoke.Invoker)
	if !ok {
		inv = invoke.NewRunner(logger)
	}

	return &CommandContext{
		Settings: settings,
		Logger:   logger,
		Renderer: r,
		Invoker:  inv,
	}
}

// Timeout returns the --timeout setting.
func (c *CommandContext) Timeout() time.Duration { return c.Settings.Timeout }

// ToolOutput returns the writers that receive live tool output. Tool output
// is streamed to stderr in verbose mode and never mixed into JSON output.
func (c *CommandContext) ToolOutput() (stdout, stderr io.Writer) {
	if !c.Settings.Verbose {
		return nil, nil
	}
	return c.Renderer.ErrOut(), c.Renderer.ErrOut()
}
