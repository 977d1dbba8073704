package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// MinimalManifest is an ao.toml with only the required project section.
const MinimalManifest = "[project]\nname = \"testproj\"\n"

// ValidLayout lists every file a structurally valid default project contains.
var ValidLayout = []string{
	"api-service/Dockerfile",
	"api-service/requirements.txt",
	"api-service/anops_pb2.py",
	"api-service/anops_pb2_grpc.py",
	"model-service/Dockerfile",
	"model-service/requirements.txt",
	"model-service/anops_pb2.py",
	"model-service/anops_pb2_grpc.py",
	"model-interface/anops.proto",
}

// SetupTestProject creates a structurally valid project with the given
// manifest in a temporary directory and returns its root.
func SetupTestProject(t *testing.T, manifest string) string {
	t.Helper()

	root := t.TempDir()
	WriteFile(t, root, "ao.toml", manifest)
	for _, f := range ValidLayout {
		WriteFile(t, root, f, "")
	}
	for _, dir := range []string{"tests", "notebooks"} {
		if err := os.MkdirAll(filepath.Join(root, dir), 0750); err != nil {
			t.Fatalf("failed to create directory %s: %v", dir, err)
		}
	}

	return root
}

// WriteFile writes content to the slash-separated rel path under root,
// creating parent directories as needed.
func WriteFile(t *testing.T, root, rel, content string) {
	t.Helper()

	path := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		t.Fatalf("failed to create directory for %s: %v", rel, err)
	}
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write %s: %v", rel, err)
	}
}
