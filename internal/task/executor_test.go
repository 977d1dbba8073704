package task

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/anops/internal/config"
	"github.com/leapstack-labs/anops/internal/invoke"
	"github.com/leapstack-labs/anops/internal/testutil"
)

func loadProject(t *testing.T, manifest string) *config.Project {
	t.Helper()
	root := testutil.SetupTestProject(t, manifest)
	proj, err := config.Load(root)
	require.NoError(t, err)
	return proj
}

const manifestWithTasks = `[project]
name = "tasks"

[tasks]
pipeline = ["c1", "c2", "c3", "c4"]
empty = []
greet = ["echo hello", "echo world"]
`

func TestExecutor_FailFast(t *testing.T) {
	tests := []struct {
		name      string
		failing   string
		wantCalls []string
		wantIndex int
	}{
		{name: "first step fails", failing: "c1", wantCalls: []string{"c1"}, wantIndex: 1},
		{name: "middle step fails", failing: "c3", wantCalls: []string{"c1", "c2", "c3"}, wantIndex: 3},
		{name: "last step fails", failing: "c4", wantCalls: []string{"c1", "c2", "c3", "c4"}, wantIndex: 4},
		{name: "all succeed", wantCalls: []string{"c1", "c2", "c3", "c4"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			proj := loadProject(t, manifestWithTasks)
			rec := testutil.NewRecorder()
			if tt.failing != "" {
				rec.ExitCodes[tt.failing] = 2
			}

			out, err := NewExecutor(Config{Invoker: rec}).Run(context.Background(), proj, "pipeline")
			require.NotNil(t, out)
			assert.Equal(t, tt.wantCalls, rec.Lines())
			assert.Len(t, out.Steps, len(tt.wantCalls))

			if tt.failing == "" {
				require.NoError(t, err)
				assert.True(t, out.Success)
				return
			}

			require.Error(t, err)
			assert.False(t, out.Success)
			var stepErr *StepError
			require.True(t, errors.As(err, &stepErr))
			assert.Equal(t, tt.wantIndex, stepErr.Index)
			assert.Equal(t, tt.failing, stepErr.Command)
			assert.Equal(t, 2, stepErr.Result.ExitCode)
			assert.Nil(t, stepErr.Unwrap())
		})
	}
}

func TestExecutor_RunsInProjectRoot(t *testing.T) {
	proj := loadProject(t, manifestWithTasks)
	rec := testutil.NewRecorder()

	_, err := NewExecutor(Config{Invoker: rec}).Run(context.Background(), proj, "greet")
	require.NoError(t, err)

	for _, call := range rec.Calls() {
		assert.Equal(t, proj.Root(), call.Opts.Dir)
	}
}

func TestExecutor_EmptyTaskSucceeds(t *testing.T) {
	proj := loadProject(t, manifestWithTasks)
	rec := testutil.NewRecorder()

	out, err := NewExecutor(Config{Invoker: rec}).Run(context.Background(), proj, "empty")
	require.NoError(t, err)
	assert.True(t, out.Success)
	assert.Empty(t, out.Steps)
	assert.Empty(t, rec.Calls())
}

func TestExecutor_UnknownTask(t *testing.T) {
	proj := loadProject(t, manifestWithTasks)
	rec := testutil.NewRecorder()

	out, err := NewExecutor(Config{Invoker: rec}).Run(context.Background(), proj, "deploy")
	assert.Nil(t, out)
	require.Error(t, err)

	var unknown *UnknownTaskError
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, "deploy", unknown.Name)
	assert.Equal(t, []string{"empty", "greet", "pipeline"}, unknown.Available)
	assert.Contains(t, err.Error(), "greet")
	assert.Empty(t, rec.Calls())
}

func TestExecutor_SpawnFailure(t *testing.T) {
	proj := loadProject(t, manifestWithTasks)
	rec := testutil.NewRecorder()
	rec.Errors["c2"] = errors.New("executable file not found")

	out, err := NewExecutor(Config{Invoker: rec}).Run(context.Background(), proj, "pipeline")
	require.Error(t, err)
	assert.Equal(t, []string{"c1", "c2"}, rec.Lines())
	assert.False(t, out.Success)

	var stepErr *StepError
	require.True(t, errors.As(err, &stepErr))
	assert.Equal(t, 2, stepErr.Index)

	var invErr *invoke.Error
	assert.True(t, errors.As(err, &invErr), "spawn failure stays matchable")
}

func TestExecutor_RealProcesses(t *testing.T) {
	proj := loadProject(t, `[project]
name = "real"

[tasks]
greet = ["echo hello", "echo world"]
record = ["sh -c 'echo one >> log.txt'", "sh -c 'echo two >> log.txt'", "sh -c 'exit 7'", "sh -c 'echo four >> log.txt'"]
`)
	exec := NewExecutor(Config{Invoker: invoke.NewRunner(testutil.NewTestLogger(t)), Logger: testutil.NewTestLogger(t)})

	t.Run("greet prints in order", func(t *testing.T) {
		var stdout strings.Builder
		e := NewExecutor(Config{Stdout: &stdout})

		out, err := e.Run(context.Background(), proj, "greet")
		require.NoError(t, err)
		assert.True(t, out.Success)
		assert.Equal(t, "hello\nworld\n", stdout.String())
		assert.Equal(t, "hello\n", out.Steps[0].Result.Stdout)
		assert.Equal(t, "world\n", out.Steps[1].Result.Stdout)
	})

	t.Run("later steps do not run after a failure", func(t *testing.T) {
		_, err := exec.Run(context.Background(), proj, "record")
		require.Error(t, err)

		var stepErr *StepError
		require.True(t, errors.As(err, &stepErr))
		assert.Equal(t, 3, stepErr.Index)
		assert.Equal(t, 7, stepErr.Result.ExitCode)

		data, err := os.ReadFile(filepath.Join(proj.Root(), "log.txt"))
		require.NoError(t, err)
		assert.Equal(t, "one\ntwo\n", string(data))
	})
}
