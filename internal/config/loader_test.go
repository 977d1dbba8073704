package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeManifest(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(content), 0600))
	return dir
}

func TestLoad_Minimal(t *testing.T) {
	dir := writeManifest(t, "[project]\nname = \"test-project\"\n")

	proj, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "test-project", proj.Name())
	assert.Empty(t, proj.ModelType())
	assert.Empty(t, proj.Linters())
	assert.Empty(t, proj.Testers())
	assert.Empty(t, proj.TaskNames())
	assert.Equal(t, filepath.Join(dir, FileName), proj.Path())
	assert.Equal(t, dir, proj.Root())

	cg := proj.Codegen()
	assert.Equal(t, DefaultCompiler, cg.Compiler)
	assert.Equal(t, DefaultContract, cg.Contract)
	assert.Equal(t, DefaultTargets, cg.Targets)

	b := proj.Build()
	assert.Equal(t, DefaultTool, b.Tool)
	assert.Equal(t, DefaultTag, b.Tag)
	assert.Empty(t, b.Registry)
}

func TestLoad_AllSections(t *testing.T) {
	dir := writeManifest(t, `[project]
name = "full"
model_type = "sklearn"

[check]
linters = ["ruff check .", "mypy src"]
testers = ["pytest -q"]
timeout = "90s"

[tasks]
build = ["echo building...", "mkdir dist"]
deploy = ["echo deploying..."]
empty = []

[codegen]
compiler = "protoc"
contract = "contracts/svc.proto"
targets = ["api"]
timeout = "2m"

[build]
tool = "podman"
tag = "v1"
registry = "registry.example.com/team"
timeout = "30m"
`)

	proj, err := Load(filepath.Join(dir, FileName))
	require.NoError(t, err)

	assert.Equal(t, "sklearn", proj.ModelType())
	assert.Equal(t, []string{"ruff check .", "mypy src"}, proj.Linters())
	assert.Equal(t, []string{"pytest -q"}, proj.Testers())
	assert.Equal(t, 90*time.Second, proj.CheckTimeout())
	assert.Equal(t, []string{"build", "deploy", "empty"}, proj.TaskNames())

	cmds, ok := proj.Task("build")
	require.True(t, ok)
	assert.Equal(t, []string{"echo building...", "mkdir dist"}, cmds)

	cmds, ok = proj.Task("empty")
	require.True(t, ok)
	assert.Empty(t, cmds)

	_, ok = proj.Task("missing")
	assert.False(t, ok)

	assert.Equal(t, Codegen{Compiler: "protoc", Contract: "contracts/svc.proto", Targets: []string{"api"}, Timeout: 2 * time.Minute}, proj.Codegen())
	assert.Equal(t, Build{Tool: "podman", Tag: "v1", Registry: "registry.example.com/team", Timeout: 30 * time.Minute}, proj.Build())
}

func TestLoad_IgnoresUnknownKeys(t *testing.T) {
	dir := writeManifest(t, `[project]
name = "fwd"
future_field = 1

[deploy]
cluster = "prod"
`)
	proj, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "fwd", proj.Name())
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "malformed syntax", content: "[project]name="},
		{name: "missing project table", content: "[tasks]\nbuild = ['a']\n"},
		{name: "missing project name", content: "[project]\n# name intentionally missing\n"},
		{name: "task is a string", content: "[project]\nname = \"p\"\n\n[tasks]\nbuild = \"not-an-array\"\n"},
		{name: "task steps are integers", content: "[project]\nname = \"p\"\n\n[tasks]\nbuild = [1, 2, 3]\n"},
		{name: "linters is a string", content: "[project]\nname = \"p\"\n\n[check]\nlinters = \"not-an-array\"\n"},
		{name: "unterminated quote", content: "[project]\nname = \"p\"\n\n[tasks]\nbuild = [\"echo 'oops\"]\n"},
		{name: "empty command", content: "[project]\nname = \"p\"\n\n[tasks]\nbuild = [\"\"]\n"},
		{name: "duplicate task", content: "[project]\nname = \"p\"\n\n[tasks]\na = [\"x\"]\na = [\"y\"]\n"},
		{name: "bad duration", content: "[project]\nname = \"p\"\n\n[check]\ntimeout = \"soon\"\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := writeManifest(t, tt.content)
			_, err := Load(dir)
			require.Error(t, err)

			var cfgErr *Error
			assert.True(t, errors.As(err, &cfgErr), "expected *config.Error, got %T", err)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(t.TempDir())
	require.Error(t, err)

	var cfgErr *Error
	require.True(t, errors.As(err, &cfgErr))
	assert.Contains(t, err.Error(), "manifest not found")

	_, err = Load(filepath.Join(t.TempDir(), "nope", FileName))
	require.Error(t, err)
	assert.True(t, errors.As(err, &cfgErr))
}

func TestProject_AccessorsReturnCopies(t *testing.T) {
	dir := writeManifest(t, `[project]
name = "immutable"

[check]
linters = ["a"]

[tasks]
t = ["one", "two"]
`)
	proj, err := Load(dir)
	require.NoError(t, err)

	linters := proj.Linters()
	linters[0] = "mutated"
	assert.Equal(t, []string{"a"}, proj.Linters())

	cmds, _ := proj.Task("t")
	cmds[0] = "mutated"
	again, _ := proj.Task("t")
	assert.Equal(t, []string{"one", "two"}, again)

	cg := proj.Codegen()
	cg.Targets[0] = "mutated"
	assert.Equal(t, DefaultTargets, proj.Codegen().Targets)

	summary := proj.Summary()
	summary.Tasks["t"][0] = "mutated"
	again, _ = proj.Task("t")
	assert.Equal(t, []string{"one", "two"}, again)
}
