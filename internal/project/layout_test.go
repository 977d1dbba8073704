package project

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/anops/internal/config"
	"github.com/leapstack-labs/anops/internal/testutil"
)

func loadProject(t *testing.T, root string) *config.Project {
	t.Helper()
	proj, err := config.Load(root)
	require.NoError(t, err)
	return proj
}

func TestLayoutFor_Defaults(t *testing.T) {
	root := testutil.SetupTestProject(t, testutil.MinimalManifest)
	l := LayoutFor(loadProject(t, root))

	assert.Equal(t, []string{APIServiceDir, ModelServiceDir, ModelInterfaceDir}, l.Dirs)
	assert.ElementsMatch(t, testutil.ValidLayout, l.Files)
}

func TestLayoutFor_CustomCodegen(t *testing.T) {
	root := t.TempDir()
	testutil.WriteFile(t, root, "ao.toml", `[project]
name = "custom"

[codegen]
contract = "contracts/scoring.proto"
targets = ["gateway"]
`)
	l := LayoutFor(loadProject(t, root))

	assert.Equal(t, []string{"gateway", "contracts"}, l.Dirs)
	assert.Equal(t, []string{
		"gateway/Dockerfile",
		"gateway/requirements.txt",
		"gateway/scoring_pb2.py",
		"gateway/scoring_pb2_grpc.py",
		"contracts/scoring.proto",
	}, l.Files)
}

func TestLayout_Validate(t *testing.T) {
	t.Run("valid project has no problems", func(t *testing.T) {
		root := testutil.SetupTestProject(t, testutil.MinimalManifest)
		assert.Empty(t, LayoutFor(loadProject(t, root)).Validate(root))
	})

	t.Run("reports every missing file", func(t *testing.T) {
		root := testutil.SetupTestProject(t, testutil.MinimalManifest)
		require.NoError(t, os.Remove(filepath.Join(root, "api-service", "anops_pb2.py")))
		require.NoError(t, os.Remove(filepath.Join(root, "model-interface", "anops.proto")))

		problems := LayoutFor(loadProject(t, root)).Validate(root)
		assert.Equal(t, []Problem{
			{Path: "api-service/anops_pb2.py", Reason: "required file not found"},
			{Path: "model-interface/anops.proto", Reason: "required file not found"},
		}, problems)
	})

	t.Run("missing directory suppresses its files", func(t *testing.T) {
		root := testutil.SetupTestProject(t, testutil.MinimalManifest)
		require.NoError(t, os.RemoveAll(filepath.Join(root, "api-service")))

		problems := LayoutFor(loadProject(t, root)).Validate(root)
		assert.Equal(t, []Problem{{Path: "api-service", Reason: "required directory not found"}}, problems)
	})

	t.Run("wrong kinds are problems", func(t *testing.T) {
		root := testutil.SetupTestProject(t, testutil.MinimalManifest)
		require.NoError(t, os.RemoveAll(filepath.Join(root, "model-service")))
		testutil.WriteFile(t, root, "model-service", "not a dir")
		require.NoError(t, os.Remove(filepath.Join(root, "api-service", "Dockerfile")))
		require.NoError(t, os.Mkdir(filepath.Join(root, "api-service", "Dockerfile"), 0750))

		problems := LayoutFor(loadProject(t, root)).Validate(root)
		assert.Equal(t, []Problem{
			{Path: "model-service", Reason: "path is not a directory"},
			{Path: "api-service/Dockerfile", Reason: "path is not a file"},
		}, problems)
	})
}

func TestServices(t *testing.T) {
	root := testutil.SetupTestProject(t, testutil.MinimalManifest)
	testutil.WriteFile(t, root, "batch-worker/Dockerfile", "FROM scratch\n")
	testutil.WriteFile(t, root, ".hidden/Dockerfile", "FROM scratch\n")

	services, err := Services(root)
	require.NoError(t, err)
	assert.Equal(t, []string{"api-service", "batch-worker", "model-service"}, services)

	_, err = Services(filepath.Join(root, "missing"))
	assert.Error(t, err)
}
