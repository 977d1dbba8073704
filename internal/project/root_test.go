package project

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/anops/internal/testutil"
)

func canonical(t *testing.T, path string) string {
	t.Helper()
	resolved, err := filepath.EvalSymlinks(path)
	require.NoError(t, err)
	return resolved
}

func TestFindRoot_FromRoot(t *testing.T) {
	root := testutil.SetupTestProject(t, testutil.MinimalManifest)

	found, err := FindRoot(root)
	require.NoError(t, err)
	assert.Equal(t, canonical(t, root), found)
}

func TestFindRoot_FromNestedSubdirectories(t *testing.T) {
	root := testutil.SetupTestProject(t, testutil.MinimalManifest)
	want := canonical(t, root)

	nested := []string{
		"notebooks",
		"api-service",
		filepath.Join("model-service", "app", "handlers", "v1", "deep", "deeper"),
	}
	for _, rel := range nested {
		t.Run(rel, func(t *testing.T) {
			dir := filepath.Join(root, rel)
			require.NoError(t, os.MkdirAll(dir, 0750))

			first, err := FindRoot(dir)
			require.NoError(t, err)
			assert.Equal(t, want, first)

			second, err := FindRoot(dir)
			require.NoError(t, err)
			assert.Equal(t, first, second, "repeated calls must agree")
		})
	}
}

func TestFindRoot_FromFile(t *testing.T) {
	root := testutil.SetupTestProject(t, testutil.MinimalManifest)

	found, err := FindRoot(filepath.Join(root, "api-service", "Dockerfile"))
	require.NoError(t, err)
	assert.Equal(t, canonical(t, root), found)
}

func TestFindRoot_Relative(t *testing.T) {
	root := testutil.SetupTestProject(t, testutil.MinimalManifest)
	oldWd, _ := os.Getwd()
	require.NoError(t, os.Chdir(filepath.Join(root, "notebooks")))
	defer func() { _ = os.Chdir(oldWd) }()

	found, err := FindRoot(".")
	require.NoError(t, err)
	assert.Equal(t, canonical(t, root), found)

	found, err = FindRoot("")
	require.NoError(t, err)
	assert.Equal(t, canonical(t, root), found)
}

func TestFindRoot_NestedProjectWins(t *testing.T) {
	outer := testutil.SetupTestProject(t, testutil.MinimalManifest)
	inner := filepath.Join(outer, "notebooks", "inner")
	testutil.WriteFile(t, inner, "ao.toml", testutil.MinimalManifest)

	found, err := FindRoot(filepath.Join(inner))
	require.NoError(t, err)
	assert.Equal(t, canonical(t, inner), found)
}

func TestFindRoot_IgnoresManifestDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "ao.toml"), 0750))

	_, err := FindRoot(dir)
	var nf *NotFoundError
	assert.True(t, errors.As(err, &nf))
}

func TestFindRoot_NotFound(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "no_config_project")
	require.NoError(t, os.MkdirAll(dir, 0750))

	_, err := FindRoot(dir)
	require.Error(t, err)

	var nf *NotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Contains(t, err.Error(), "could not find project root")
}

func TestFindRoot_MissingStart(t *testing.T) {
	_, err := FindRoot(filepath.Join(t.TempDir(), "does", "not", "exist"))
	require.Error(t, err)

	var nf *NotFoundError
	require.True(t, errors.As(err, &nf))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}
