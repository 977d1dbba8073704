// Package config loads the ao.toml project manifest.
//
// A loaded Project is immutable: its fields are unexported and every accessor
// returns a copy, so the value can be shared by every pipeline stage of one
// invocation without any of them being able to change what the others see.
package config

import (
	"slices"
	"sort"
	"time"
)

// manifest mirrors the on-disk layout of ao.toml. It is only used while decoding.
type manifest struct {
	Project projectSection      `koanf:"project"`
	Check   checkSection        `koanf:"check"`
	Tasks   map[string][]string `koanf:"tasks"`
	Codegen codegenSection      `koanf:"codegen"`
	Build   buildSection        `koanf:"build"`
}

type projectSection struct {
	Name      string `koanf:"name"`
	ModelType string `koanf:"model_type"`
}

type checkSection struct {
	Linters []string      `koanf:"linters"`
	Testers []string      `koanf:"testers"`
	Timeout time.Duration `koanf:"timeout"`
}

type codegenSection struct {
	Compiler string        `koanf:"compiler"`
	Contract string        `koanf:"contract"`
	Targets  []string      `koanf:"targets"`
	Timeout  time.Duration `koanf:"timeout"`
}

type buildSection struct {
	Tool     string        `koanf:"tool"`
	Tag      string        `koanf:"tag"`
	Registry string        `koanf:"registry"`
	Timeout  time.Duration `koanf:"timeout"`
}

// Codegen describes how interface bindings are generated from the shared contract.
type Codegen struct {
	// Compiler is the command line of the interface-definition compiler.
	Compiler string `json:"compiler" yaml:"compiler"`
	// Contract is the project-relative path of the .proto contract.
	Contract string `json:"contract" yaml:"contract"`
	// Targets are the project-relative service directories that receive bindings.
	Targets []string `json:"targets" yaml:"targets"`
	// Timeout bounds each compiler invocation. Zero means unbounded.
	Timeout time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

// Build describes how container images are produced and published.
type Build struct {
	// Tool is the container CLI used for build and push (docker, podman, ...).
	Tool string `json:"tool" yaml:"tool"`
	// Tag is the image tag applied to every service image.
	Tag string `json:"tag" yaml:"tag"`
	// Registry is the push destination. Empty disables the push stage.
	Registry string `json:"registry,omitempty" yaml:"registry,omitempty"`
	// Timeout bounds each build or push invocation. Zero means unbounded.
	Timeout time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

// Project is the immutable, typed view of an ao.toml manifest.
type Project struct {
	root      string
	path      string
	name      string
	modelType string
	linters   []string
	testers   []string
	timeout   time.Duration
	tasks     map[string][]string
	codegen   Codegen
	build     Build
}

// Root returns the directory containing the manifest.
func (p *Project) Root() string { return p.root }

// Path returns the manifest file path.
func (p *Project) Path() string { return p.path }

// Name returns project.name.
func (p *Project) Name() string { return p.name }

// ModelType returns project.model_type, or "" when unset.
func (p *Project) ModelType() string { return p.modelType }

// Linters returns the configured linter command lines in declaration order.
func (p *Project) Linters() []string { return slices.Clone(p.linters) }

// Testers returns the configured tester command lines in declaration order.
func (p *Project) Testers() []string { return slices.Clone(p.testers) }

// CheckTimeout bounds each linter and tester invocation. Zero means unbounded.
func (p *Project) CheckTimeout() time.Duration { return p.timeout }

// Task returns the commands of the named task.
func (p *Project) Task(name string) ([]string, bool) {
	cmds, ok := p.tasks[name]
	if !ok {
		return nil, false
	}
	return slices.Clone(cmds), true
}

// TaskNames returns all task names, sorted.
func (p *Project) TaskNames() []string {
	names := make([]string, 0, len(p.tasks))
	for name := range p.tasks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Codegen returns the code generation settings with defaults applied.
func (p *Project) Codegen() Codegen {
	c := p.codegen
	c.Targets = slices.Clone(c.Targets)
	return c
}

// Build returns the image build settings with defaults applied.
func (p *Project) Build() Build { return p.build }

// Summary is a plain, serializable snapshot of a Project used for display.
type Summary struct {
	Root      string              `json:"root" yaml:"root"`
	Manifest  string              `json:"manifest" yaml:"manifest"`
	Name      string              `json:"name" yaml:"name"`
	ModelType string              `json:"model_type,omitempty" yaml:"model_type,omitempty"`
	Linters   []string            `json:"linters" yaml:"linters"`
	Testers   []string            `json:"testers" yaml:"testers"`
	Tasks     map[string][]string `json:"tasks" yaml:"tasks"`
	Codegen   Codegen             `json:"codegen" yaml:"codegen"`
	Build     Build               `json:"build" yaml:"build"`
}

// Summary returns a deep copy of the project suitable for rendering.
func (p *Project) Summary() Summary {
	tasks := make(map[string][]string, len(p.tasks))
	for name, cmds := range p.tasks {
		tasks[name] = slices.Clone(cmds)
	}
	return Summary{
		Root:      p.root,
		Manifest:  p.path,
		Name:      p.name,
		ModelType: p.modelType,
		Linters:   p.Linters(),
		Testers:   p.Testers(),
		Tasks:     tasks,
		Codegen:   p.Codegen(),
		Build:     p.build,
	}
}
