package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/anops/internal/build"
	"github.com/leapstack-labs/anops/internal/cli/output"
)

// NewBuildCommand creates the build command.
func NewBuildCommand() *cobra.Command {
	opts := build.Options{}

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Generate interface code, check, and build service images",
		Long: `Build the project in four stages, stopping at the first failure:

  1. codegen  compile the gRPC contract into each service
  2. check    run the full check; no image is built if it fails
  3. image    build one image per directory containing a Dockerfile
  4. push     push the images, only when a registry is configured

Images are tagged [registry/]<project>-<service>:<tag>.`,
		Example: `  # Build all service images
  ao build

  # Build and push to a registry with a release tag
  ao build --registry ghcr.io/acme --tag v1.2.0

  # Use the manifest registry for naming but do not push
  ao build --no-push`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBuild(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Registry, "registry", "", "Registry to tag and push images to (overrides build.registry)")
	cmd.Flags().StringVar(&opts.Tag, "tag", "", "Image tag (overrides build.tag)")
	cmd.Flags().BoolVar(&opts.NoPush, "no-push", false, "Skip the push stage")

	return cmd
}

func runBuild(cmd *cobra.Command, opts build.Options) error {
	cmdCtx, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	r := cmdCtx.Renderer
	stdout, stderr := cmdCtx.ToolOutput()

	pipeline := build.NewPipeline(build.Config{
		Invoker: cmdCtx.Invoker,
		Logger:  cmdCtx.Logger,
		Options: opts,
		Timeout: cmdCtx.Timeout(),
		Stdout:  stdout,
		Stderr:  stderr,
	})
	outcome, runErr := pipeline.Run(cmd.Context(), cmdCtx.Project)

	if r.EffectiveMode() == output.ModeJSON {
		if err := r.JSON(outcome); err != nil {
			return err
		}
		return runErr
	}

	r.Header(1, fmt.Sprintf("Build: %s", cmdCtx.Project.Name()))
	for _, sr := range outcome.Stages {
		name := output.Label(string(sr.Stage))
		if sr.Service != "" {
			name += " " + sr.Service
		}
		status := "success"
		if !sr.Success {
			status = "failed"
		}
		r.StatusLine(name, status, sr.Duration.Round(time.Millisecond).String())
	}

	if runErr != nil {
		return runErr
	}

	r.Println("")
	if len(outcome.Images) > 0 {
		r.Header(2, "Images")
		for _, img := range outcome.Images {
			r.Println("  " + img)
		}
		r.Println("")
	}
	r.Success(fmt.Sprintf("Build finished in %s", outcome.Duration.Round(time.Millisecond)))
	return nil
}
