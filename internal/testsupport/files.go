package testsupport

import (
	"os"
	"path/filepath"
	"testing"
)

// WriteArtifact creates a fake generated image at path, creating parent
// directories as needed, and returns the path.
func WriteArtifact(t testing.TB, path string, content string) string {
	t.Helper()

	if content == "" {
		content = "\x89PNG fake image bytes"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}
