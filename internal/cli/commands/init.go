package commands

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/anops/internal/cli/output"
	"github.com/leapstack-labs/anops/internal/config"
)

// projectNamePattern restricts names to what is safe in TOML strings and
// image references.
var projectNamePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// InitOptions holds options for the init command.
type InitOptions struct {
	Force     bool
	ModelType string
}

// NewInitCommand creates the init command.
func NewInitCommand() *cobra.Command {
	opts := &InitOptions{}

	cmd := &cobra.Command{
		Use:   "init <name>",
		Short: "Initialize a new ao project",
		Long: `Create a new project directory with the standard multi-service layout.

This creates:
  - ao.toml project manifest
  - api-service/ HTTP entry point (Dockerfile, requirements, app skeleton)
  - model-service/ gRPC model server (Dockerfile, requirements, server skeleton)
  - model-interface/ Protocol Buffer contract (anops.proto)
  - tests/ and notebooks/
  - docker-compose.yml, .gitignore and README.md

The project name is the last element of <name>.`,
		Example: `  # Create ./fraud-detector
  ao init fraud-detector

  # Record the model framework in the manifest
  ao init churn --model-type sklearn

  # Re-create missing template files in an existing project
  ao init churn --force`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(cmd, args[0], opts)
		},
	}

	cmd.Flags().BoolVar(&opts.Force, "force", false, "Initialize even if ao.toml exists, overwriting template files")
	cmd.Flags().StringVar(&opts.ModelType, "model-type", "", "Model framework recorded as project.model_type")

	return cmd
}

func runInit(cmd *cobra.Command, dir string, opts *InitOptions) error {
	cmdCtx := NewCommandContextWithoutProject(cmd)
	r := cmdCtx.Renderer

	abs, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("invalid directory %s: %w", dir, err)
	}
	name := filepath.Base(abs)
	if !projectNamePattern.MatchString(name) {
		return fmt.Errorf("invalid project name %q: use letters, digits, '.', '_' and '-'", name)
	}
	if strings.ContainsAny(opts.ModelType, "\"\\\n") {
		return fmt.Errorf("invalid model type %q", opts.ModelType)
	}

	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	manifestPath := filepath.Join(dir, config.FileName)
	if _, err := os.Stat(manifestPath); err == nil && !opts.Force {
		return fmt.Errorf("%s already exists. Use --force to overwrite", manifestPath)
	} else if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to inspect %s: %w", manifestPath, err)
	}

	data := templateData{Name: name, Slug: strings.ToLower(name), ModelType: opts.ModelType}
	written, err := copyTemplate("project", dir, data, opts.Force)
	if err != nil {
		return fmt.Errorf("failed to initialize project: %w", err)
	}
	cmdCtx.Logger.Debug("project initialized", "project", name, "dir", dir, "files", len(written))

	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(InitOutput{Project: name, Directory: dir, Files: written})
	}

	r.Header(2, "Created")
	for _, f := range written {
		r.StatusLine(f, "success", "")
	}

	r.Println("")
	r.Success(fmt.Sprintf("Project %q initialized!", name))
	r.Println("")
	r.Println("Next steps:")
	r.Println("  cd " + dir)
	r.Println("  ao check         Validate the layout and run linters/testers")
	r.Println("  ao build         Generate gRPC code and build the service images")
	r.Println("  docker compose up")

	return nil
}

// InitOutput is the JSON output for the init command.
type InitOutput struct {
	Project   string   `json:"project"`
	Directory string   `json:"directory"`
	Files     []string `json:"files"`
}
