package fileutil

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCopyFileVerified(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.png")
	dst := filepath.Join(dir, "nested", "dst.png")
	payload := []byte("fake png payload")
	if err := os.WriteFile(src, payload, 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}

	if err := CopyFileVerified(src, dst); err != nil {
		t.Fatalf("CopyFileVerified returned error: %v", err)
	}

	copied, err := os.ReadFile(dst)
	if err != nil {
		t.Fatalf("read destination: %v", err)
	}
	if string(copied) != string(payload) {
		t.Fatalf("destination content mismatch: %q", copied)
	}

	// Source must survive the copy untouched.
	if _, err := os.Stat(src); err != nil {
		t.Fatalf("source missing after copy: %v", err)
	}
}

func TestCopyFileVerifiedMissingSource(t *testing.T) {
	dir := t.TempDir()
	err := CopyFileVerified(filepath.Join(dir, "absent.png"), filepath.Join(dir, "out.png"))
	if err == nil {
		t.Fatal("expected error for missing source")
	}
}

func TestFileExists(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "file.txt")
	if FileExists(path) {
		t.Fatal("expected missing file to report false")
	}
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if !FileExists(path) {
		t.Fatal("expected existing file to report true")
	}
	if FileExists(dir) {
		t.Fatal("directories must not count as files")
	}
}
