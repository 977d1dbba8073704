// Package cli provides the command-line interface for ao.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/anops/internal/cli/commands"
	cliconfig "github.com/leapstack-labs/anops/internal/cli/config"
)

// Version information (set at build time).
var (
	Version   = "0.1.0"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "ao",
		Short: "ao - project automation for multi-service model deployments",
		Long: `ao drives the lifecycle of a model deployment project: an HTTP API service
and a gRPC model service sharing a Protocol Buffer contract.

It loads the ao.toml manifest from the project root, validates the project
layout, runs the configured linters, testers and tasks, generates the gRPC
bindings and builds the service images.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// Skip settings loading for help and completion commands
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
				return nil
			}

			settings, err := cliconfig.Load(cmd.Root().PersistentFlags())
			if err != nil {
				return err
			}

			ctx := cliconfig.WithSettings(cmd.Context(), settings)
			logger := cliconfig.NewLogger(settings, cmd.ErrOrStderr())
			ctx = cliconfig.WithLogger(ctx, logger)
			cmd.SetContext(ctx)

			logger.Debug("settings loaded",
				"project_dir", settings.ProjectDir,
				"output", settings.Output,
				"timeout", settings.Timeout)
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Set version template
	rootCmd.SetVersionTemplate(`{{.Name}} {{.Version}}
`)

	// Global persistent flags
	rootCmd.PersistentFlags().String("project-dir", cliconfig.DefaultProjectDir, "Directory to start the project root search from")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Verbose output (debug logs and live tool output)")
	rootCmd.PersistentFlags().StringP("output", "o", "", "Output format (auto|text|markdown|json)")
	rootCmd.PersistentFlags().Duration("timeout", 0, "Per-command timeout for tasks and stages without a configured timeout (0 = none)")

	// Register completion for output flag
	_ = rootCmd.RegisterFlagCompletionFunc("output", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return cliconfig.OutputModes, cobra.ShellCompDirectiveNoFileComp
	})

	// Add subcommands
	rootCmd.AddCommand(commands.NewVersionCommand(commands.BuildInfo{Version: Version, Commit: GitCommit, BuildDate: BuildDate}))
	rootCmd.AddCommand(commands.NewInitCommand())
	rootCmd.AddCommand(commands.NewCheckCommand())
	rootCmd.AddCommand(commands.NewBuildCommand())
	rootCmd.AddCommand(commands.NewRunCommand())
	rootCmd.AddCommand(commands.NewConfigCommand())
	rootCmd.AddCommand(NewCompletionCommand())

	return rootCmd
}

// Execute runs the root command with the process arguments and returns the
// process exit code. SIGINT and SIGTERM cancel the running command.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return ExecuteContext(ctx, NewRootCmd(), os.Args[1:], os.Stdout, os.Stderr)
}

// ExecuteContext runs rootCmd with args and renders any error to errOut.
// It returns 0 on success and 1 on any failure.
func ExecuteContext(ctx context.Context, rootCmd *cobra.Command, args []string, out, errOut io.Writer) int {
	rootCmd.SetArgs(args)
	rootCmd.SetOut(out)
	rootCmd.SetErr(errOut)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		renderError(errOut, err)
		return 1
	}
	return 0
}

// NewCompletionCommand creates the completion command.
func NewCompletionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for ao.

To load completions:

Bash:
  $ source <(ao completion bash)

Zsh:
  $ ao completion zsh > "${fpath[1]}/_ao"

Fish:
  $ ao completion fish | source

PowerShell:
  PS> ao completion powershell | Out-String | Invoke-Expression
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(out)
			case "zsh":
				return cmd.Root().GenZshCompletion(out)
			case "fish":
				return cmd.Root().GenFishCompletion(out, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(out)
			}
			return fmt.Errorf("unsupported shell %q", args[0])
		},
	}
	return cmd
}
