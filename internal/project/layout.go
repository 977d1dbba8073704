package project

import (
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/leapstack-labs/anops/internal/config"
)

// Service directories created by the project template.
const (
	APIServiceDir     = "api-service"
	ModelServiceDir   = "model-service"
	ModelInterfaceDir = "model-interface"
)

// BuildDescriptor is the file that marks a directory as a buildable service.
const BuildDescriptor = "Dockerfile"

// Layout lists the directories and files a valid project must contain. All
// paths are slash-separated and relative to the project root.
type Layout struct {
	Dirs  []string
	Files []string
}

// Problem is a single structural defect.
type Problem struct {
	Path   string
	Reason string
}

// LayoutFor derives the required layout from the project template and the
// project's codegen settings: every codegen target is a service that needs a
// build descriptor, its dependencies file, and the generated bindings.
func LayoutFor(proj *config.Project) Layout {
	cg := proj.Codegen()
	stem := strings.TrimSuffix(path.Base(cg.Contract), path.Ext(cg.Contract))

	var l Layout
	seen := map[string]bool{}
	addDir := func(d string) {
		d = path.Clean(d)
		if d == "." || seen[d] {
			return
		}
		seen[d] = true
		l.Dirs = append(l.Dirs, d)
	}

	for _, target := range cg.Targets {
		addDir(target)
	}
	addDir(path.Dir(cg.Contract))

	for _, target := range cg.Targets {
		target = path.Clean(target)
		l.Files = append(l.Files,
			path.Join(target, BuildDescriptor),
			path.Join(target, "requirements.txt"),
			path.Join(target, stem+"_pb2.py"),
			path.Join(target, stem+"_pb2_grpc.py"),
		)
	}
	l.Files = append(l.Files, path.Clean(cg.Contract))
	return l
}

// Validate checks the layout against root and returns every problem found, in
// layout order. Files under a missing directory are not reported separately.
func (l Layout) Validate(root string) []Problem {
	var problems []Problem
	missingDirs := map[string]bool{}

	for _, d := range l.Dirs {
		info, err := os.Stat(filepath.Join(root, filepath.FromSlash(d)))
		switch {
		case err != nil:
			missingDirs[d] = true
			problems = append(problems, Problem{Path: d, Reason: "required directory not found"})
		case !info.IsDir():
			missingDirs[d] = true
			problems = append(problems, Problem{Path: d, Reason: "path is not a directory"})
		}
	}

	for _, f := range l.Files {
		if underMissing(f, missingDirs) {
			continue
		}
		info, err := os.Stat(filepath.Join(root, filepath.FromSlash(f)))
		switch {
		case err != nil:
			problems = append(problems, Problem{Path: f, Reason: "required file not found"})
		case !info.Mode().IsRegular():
			problems = append(problems, Problem{Path: f, Reason: "path is not a file"})
		}
	}
	return problems
}

func underMissing(file string, missing map[string]bool) bool {
	for dir := path.Dir(file); dir != "." && dir != "/"; dir = path.Dir(dir) {
		if missing[dir] {
			return true
		}
	}
	return false
}

// Services returns the immediate subdirectories of root that contain a build
// descriptor, sorted by name.
func Services(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}
	var services []string
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		info, err := os.Stat(filepath.Join(root, e.Name(), BuildDescriptor))
		if err == nil && info.Mode().IsRegular() {
			services = append(services, e.Name())
		}
	}
	sort.Strings(services)
	return services, nil
}
