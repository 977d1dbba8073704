package cli

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/anops/internal/build"
	"github.com/leapstack-labs/anops/internal/cli/output"
	clitestutil "github.com/leapstack-labs/anops/internal/cli/testutil"
	"github.com/leapstack-labs/anops/internal/invoke"
	"github.com/leapstack-labs/anops/internal/task"
	"github.com/leapstack-labs/anops/internal/testutil"
)

func run(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var out, errOut bytes.Buffer
	code := ExecuteContext(context.Background(), NewRootCmd(), args, &out, &errOut)
	return code, out.String(), errOut.String()
}

func TestNewRootCmd(t *testing.T) {
	root := NewRootCmd()

	assert.Equal(t, "ao", root.Use)
	for _, name := range []string{"version", "init", "check", "build", "run", "config", "completion"} {
		cmd, _, err := root.Find([]string{name})
		require.NoError(t, err)
		assert.Equal(t, name, cmd.Name())
	}
	for _, flag := range []string{"project-dir", "verbose", "output", "timeout"} {
		assert.NotNil(t, root.PersistentFlags().Lookup(flag), "flag %q should exist", flag)
	}
}

func TestExecute_ExitCodes(t *testing.T) {
	root := testutil.SetupTestProject(t, `[project]
name = "demo"

[check]
linters = ["true"]
testers = ["false"]

[tasks]
greet = ["echo hello", "echo world"]
fail = ["sh -c 'echo compiling; echo boom >&2; exit 3'"]
`)

	t.Run("task success", func(t *testing.T) {
		code, out, _ := run(t, "--project-dir", root, "run", "greet")
		assert.Equal(t, 0, code)
		assert.Equal(t, "hello\nworld\n", out)
	})

	t.Run("task failure renders captured output", func(t *testing.T) {
		code, _, errOut := run(t, "--project-dir", root, "run", "fail")
		assert.Equal(t, 1, code)
		assert.Contains(t, errOut, `Error: task "fail" step 1`)
		assert.Contains(t, errOut, "exit status 3")
		assert.Contains(t, errOut, "  boom")
	})

	t.Run("check failure", func(t *testing.T) {
		code, _, errOut := run(t, "--project-dir", root, "check")
		assert.Equal(t, 1, code)
		assert.Contains(t, errOut, "check failed with 1 violation(s)")
		assert.Contains(t, errOut, "[test] false")
		assert.NotContains(t, errOut, "[lint]")
	})

	t.Run("invalid settings", func(t *testing.T) {
		code, _, errOut := run(t, "--project-dir", root, "-o", "html", "check")
		assert.Equal(t, 1, code)
		assert.Contains(t, errOut, "invalid output format")
	})

	t.Run("unknown command", func(t *testing.T) {
		code, _, _ := run(t, "deploy")
		assert.Equal(t, 1, code)
	})
}

func TestExecute_Version(t *testing.T) {
	code, out, _ := run(t, "version")
	assert.Equal(t, 0, code)
	assert.Contains(t, out, "ao v"+Version)
}

func TestExecute_Completion(t *testing.T) {
	code, out, _ := run(t, "completion", "bash")
	assert.Equal(t, 0, code)
	assert.Contains(t, out, "bash completion")
}

func TestExecute_InitThenConfig(t *testing.T) {
	dir := t.TempDir() + "/scoring"

	code, out, errOut := run(t, "init", dir)
	require.Equal(t, 0, code, errOut)
	clitestutil.AssertPlain(t, out)
	clitestutil.AssertMarkdown(t, out)

	code, out, errOut = run(t, "--project-dir", dir, "-o", "markdown", "config")
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "# Project: scoring")
}

func TestRenderError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		contains []string
		excludes []string
	}{
		{
			name:     "plain error",
			err:      errors.New("something broke"),
			contains: []string{"Error: something broke"},
			excludes: []string{"Output of"},
		},
		{
			name: "task step",
			err: &task.StepError{Task: "train", Index: 2, Command: "python train.py",
				Result: &invoke.Result{Command: "python train.py", ExitCode: 1, Stderr: "Traceback\nValueError: bad"}},
			contains: []string{`Output of "python train.py" (exit status 1)`, "  ValueError: bad"},
		},
		{
			name: "image build",
			err: &build.Error{Stage: build.StageImage, Service: "api-service",
				Result: &invoke.Result{Command: "docker build", ExitCode: 1, Stdout: "step 3/7 failed"}},
			contains: []string{"image stage failed for api-service", "  step 3/7 failed"},
		},
		{
			name:     "codegen",
			err:      &build.CodegenError{Target: "api-service", Message: "compiler exited with status 1", Result: &invoke.Result{Command: "protoc", ExitCode: 1, Stderr: "anops.proto:3: syntax error"}},
			contains: []string{"code generation for api-service failed", "anops.proto:3: syntax error"},
		},
		{
			name:     "result without output",
			err:      &task.StepError{Task: "t", Index: 1, Command: "false", Result: &invoke.Result{Command: "false", ExitCode: 1}},
			excludes: []string{"Output of"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			renderError(&buf, tt.err)
			for _, want := range tt.contains {
				assert.Contains(t, buf.String(), want)
			}
			for _, unwanted := range tt.excludes {
				assert.NotContains(t, buf.String(), unwanted)
			}
		})
	}
}

func TestOutputModes(t *testing.T) {
	tr := clitestutil.NewCapture(output.ModeMarkdown, false)
	tr.Header(1, "Build: demo")
	tr.StatusLine("Image api-service", "success", "1.2s")
	clitestutil.AssertPlain(t, tr.Stdout.String())
	clitestutil.AssertMarkdown(t, tr.Stdout.String())
	assert.Contains(t, tr.Stdout.String(), "# Build: demo")
	assert.Empty(t, tr.Stderr.String())
}
