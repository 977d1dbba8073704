package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/leapstack-labs/anops/internal/invoke"
)

// Error reports a manifest that is missing, malformed, or semantically invalid.
type Error struct {
	Path    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Path, e.Message)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Load reads and validates a manifest. path may name the manifest file itself or
// a directory containing ao.toml.
func Load(path string) (*Project, error) {
	manifestPath, err := resolveManifestPath(path)
	if err != nil {
		return nil, err
	}

	k := koanf.New(".")
	if err := k.Load(file.Provider(manifestPath), toml.Parser()); err != nil {
		return nil, &Error{Path: manifestPath, Message: "failed to parse manifest", Err: err}
	}

	var m manifest
	if err := k.UnmarshalWithConf("", &m, koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
			),
			// Strict typing: a task written as a bare string, or a list of
			// numbers, is an error rather than something to coerce.
			WeaklyTypedInput: false,
			Result:           &m,
		},
	}); err != nil {
		return nil, &Error{Path: manifestPath, Message: "invalid manifest", Err: err}
	}

	if err := m.validate(); err != nil {
		return nil, &Error{Path: manifestPath, Message: err.Error()}
	}
	m.applyDefaults()

	return m.freeze(filepath.Dir(manifestPath), manifestPath), nil
}

// resolveManifestPath maps a file-or-directory argument to the manifest file.
func resolveManifestPath(path string) (string, error) {
	if path == "" {
		path = "."
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", &Error{Path: path, Message: "invalid path", Err: err}
	}

	info, err := os.Stat(abs)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", &Error{Path: abs, Message: "manifest not found"}
		}
		return "", &Error{Path: abs, Message: "cannot access manifest", Err: err}
	}
	if !info.IsDir() {
		return abs, nil
	}

	candidate := filepath.Join(abs, FileName)
	info, err = os.Stat(candidate)
	if err != nil || info.IsDir() {
		return "", &Error{Path: candidate, Message: "manifest not found"}
	}
	return candidate, nil
}

func (m *manifest) validate() error {
	if m.Project.Name == "" {
		return errors.New("project.name is required")
	}
	for name, cmds := range m.Tasks {
		if name == "" {
			return errors.New("task names must not be empty")
		}
		for i, line := range cmds {
			if _, err := invoke.Tokenize(line); err != nil {
				return fmt.Errorf("tasks.%s[%d]: %w", name, i, err)
			}
		}
	}
	for i, line := range m.Check.Linters {
		if _, err := invoke.Tokenize(line); err != nil {
			return fmt.Errorf("check.linters[%d]: %w", i, err)
		}
	}
	for i, line := range m.Check.Testers {
		if _, err := invoke.Tokenize(line); err != nil {
			return fmt.Errorf("check.testers[%d]: %w", i, err)
		}
	}
	if m.Codegen.Compiler != "" {
		if _, err := invoke.Tokenize(m.Codegen.Compiler); err != nil {
			return fmt.Errorf("codegen.compiler: %w", err)
		}
	}
	for _, target := range m.Codegen.Targets {
		if filepath.IsAbs(target) {
			return fmt.Errorf("codegen.targets: %q must be relative to the project root", target)
		}
	}
	if filepath.IsAbs(m.Codegen.Contract) {
		return fmt.Errorf("codegen.contract: %q must be relative to the project root", m.Codegen.Contract)
	}
	return nil
}

func (m *manifest) freeze(root, path string) *Project {
	tasks := make(map[string][]string, len(m.Tasks))
	for name, cmds := range m.Tasks {
		tasks[name] = append([]string{}, cmds...)
	}
	return &Project{
		root:      root,
		path:      path,
		name:      m.Project.Name,
		modelType: m.Project.ModelType,
		linters:   append([]string{}, m.Check.Linters...),
		testers:   append([]string{}, m.Check.Testers...),
		timeout:   m.Check.Timeout,
		tasks:     tasks,
		codegen: Codegen{
			Compiler: m.Codegen.Compiler,
			Contract: m.Codegen.Contract,
			Targets:  append([]string{}, m.Codegen.Targets...),
			Timeout:  m.Codegen.Timeout,
		},
		build: Build{
			Tool:     m.Build.Tool,
			Tag:      m.Build.Tag,
			Registry: m.Build.Registry,
			Timeout:  m.Build.Timeout,
		},
	}
}
