package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/leapstack-labs/anops/internal/cli/output"
)

// ConfigOptions holds options for the config command.
type ConfigOptions struct {
	Format string // Output format override: yaml
}

// NewConfigCommand creates the config command.
func NewConfigCommand() *cobra.Command {
	opts := &ConfigOptions{}

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show the loaded project manifest",
		Long: `Print the project manifest as ao sees it, with defaults applied.

Useful to confirm which ao.toml was found and what the check, codegen and
build stages will do.`,
		Example: `  ao config
  ao config -o json
  ao config --format yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runConfig(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Format, "format", "f", "", "Output format: yaml (overrides --output)")

	return cmd
}

func runConfig(cmd *cobra.Command, opts *ConfigOptions) error {
	cmdCtx, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	r := cmdCtx.Renderer
	summary := cmdCtx.Project.Summary()

	switch opts.Format {
	case "":
	case "yaml", "yml":
		data, err := yaml.Marshal(summary)
		if err != nil {
			return fmt.Errorf("failed to encode manifest: %w", err)
		}
		_, err = r.Out().Write(data)
		return err
	case "json":
		return r.JSON(summary)
	default:
		return fmt.Errorf("unsupported format %q (expected yaml or json)", opts.Format)
	}

	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(summary)
	}

	r.Header(1, "Project: "+summary.Name)
	r.KeyValue("Manifest", summary.Manifest)
	r.KeyValue("Root", summary.Root)
	if summary.ModelType != "" {
		r.KeyValue("Model Type", summary.ModelType)
	}
	r.Println("")

	r.Header(2, "Check")
	r.KeyValue("Linters", joinOrNone(summary.Linters))
	r.KeyValue("Testers", joinOrNone(summary.Testers))
	r.Println("")

	r.Header(2, "Codegen")
	r.KeyValue("Compiler", summary.Codegen.Compiler)
	r.KeyValue("Contract", summary.Codegen.Contract)
	r.KeyValue("Targets", joinOrNone(summary.Codegen.Targets))
	r.Println("")

	r.Header(2, "Build")
	r.KeyValue("Tool", summary.Build.Tool)
	r.KeyValue("Tag", summary.Build.Tag)
	registry := summary.Build.Registry
	if registry == "" {
		registry = "(none, images are not pushed)"
	}
	r.KeyValue("Registry", registry)
	r.Println("")

	r.Header(2, "Tasks")
	names := cmdCtx.Project.TaskNames()
	if len(names) == 0 {
		r.Muted("(none)")
		return nil
	}
	rows := make([][]string, 0, len(names))
	for _, name := range names {
		rows = append(rows, []string{name, strings.Join(summary.Tasks[name], " && ")})
	}
	r.Table([]string{"Task", "Commands"}, rows)
	return nil
}

func joinOrNone(items []string) string {
	if len(items) == 0 {
		return "(none)"
	}
	return strings.Join(items, ", ")
}
