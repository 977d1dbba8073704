package commands

import (
	"runtime"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/anops/internal/cli/output"
)

// BuildInfo describes the running binary.
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
}

// NewVersionCommand creates the version command.
func NewVersionCommand(info BuildInfo) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  `Display ao version and build information.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			r := NewCommandContextWithoutProject(cmd).Renderer
			if info.GoVersion == "" {
				info.GoVersion = runtime.Version()
			}
			if r.EffectiveMode() == output.ModeJSON {
				return r.JSON(info)
			}

			r.Printf("ao v%s\n", info.Version)
			r.Println("Project automation for multi-service model deployments")
			r.Muted("commit " + info.Commit + ", built " + info.BuildDate + " with " + info.GoVersion)
			return nil
		},
	}
}
