package config

import (
	"fmt"
	"slices"
	"strings"
)

// Validate checks if the settings are usable.
func (s *Settings) Validate() error {
	if !slices.Contains(OutputModes, s.Output) {
		return fmt.Errorf("invalid output format %q (expected one of: %s)", s.Output, strings.Join(OutputModes, ", "))
	}
	if s.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative, got %s", s.Timeout)
	}
	if s.ProjectDir == "" {
		return fmt.Errorf("project_dir must not be empty")
	}
	return nil
}
