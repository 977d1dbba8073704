// Package project locates ao projects on disk and describes the layout a
// project is expected to have.
package project

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/leapstack-labs/anops/internal/config"
)

// NotFoundError reports that no ancestor of Start contains an ao.toml.
type NotFoundError struct {
	Start string
	Err   error
}

func (e *NotFoundError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("could not find project root (%s) starting from %s: %v", config.FileName, e.Start, e.Err)
	}
	return fmt.Sprintf("could not find project root (%s) starting from %s", config.FileName, e.Start)
}

func (e *NotFoundError) Unwrap() error { return e.Err }

// FindRoot walks upward from start and returns the first directory that
// contains a regular ao.toml file. start may be relative; symlinks are
// resolved first so the result only depends on the filesystem contents.
func FindRoot(start string) (string, error) {
	if start == "" {
		start = "."
	}
	abs, err := filepath.Abs(start)
	if err != nil {
		return "", &NotFoundError{Start: start, Err: err}
	}
	dir, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", &NotFoundError{Start: start, Err: err}
	}

	// A file argument searches from its directory.
	if info, err := os.Stat(dir); err == nil && !info.IsDir() {
		dir = filepath.Dir(dir)
	}

	for {
		if isManifest(filepath.Join(dir, config.FileName)) {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached filesystem root
			return "", &NotFoundError{Start: start}
		}
		dir = parent
	}
}

func isManifest(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
