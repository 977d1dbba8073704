// Package config loads the settings that control the ao command line itself:
// where to look for the project, how verbose to be, how to render output and
// how long a task step may run. Project data lives in ao.toml and is loaded
// by internal/config.
package config

import "time"

// Settings holds all CLI configuration options.
type Settings struct {
	ProjectDir string        `koanf:"project_dir"`
	Verbose    bool          `koanf:"verbose"`
	Output     string        `koanf:"output"`
	Timeout    time.Duration `koanf:"timeout"`
}

// Default configuration values.
const (
	DefaultProjectDir = "."
	DefaultOutput     = "auto" // Auto-detect: TTY=text, non-TTY=markdown
	EnvPrefix         = "AO_"
)

// OutputModes lists the accepted values of --output.
var OutputModes = []string{"auto", "text", "markdown", "json"}
