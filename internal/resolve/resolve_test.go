package resolve

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"storyart/internal/services"
)

func writeFile(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte("png"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestResolveAbsolutePath(t *testing.T) {
	root := t.TempDir()
	target := filepath.Join(root, "elsewhere", "img.png")
	writeFile(t, target)

	resolver := New(filepath.Join(root, "unused"))
	got, err := resolver.Resolve(target, time.Now())
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if got != target {
		t.Fatalf("expected %s, got %s", target, got)
	}
}

func TestResolveRelativeToRoot(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "raw", "img.png"))

	resolver := New(root)
	got, err := resolver.Resolve("raw/img.png", time.Now())
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if got != filepath.Join(root, "raw", "img.png") {
		t.Fatalf("unexpected path %s", got)
	}
}

func TestResolveTodayBucket(t *testing.T) {
	root := t.TempDir()
	now := time.Date(2026, 8, 23, 14, 0, 0, 0, time.UTC)
	writeFile(t, filepath.Join(root, "2026-08-23", "img.png"))

	resolver := &Resolver{OutputRoot: root, Now: fixedClock(now)}
	got, err := resolver.Resolve("img.png", now)
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if got != filepath.Join(root, "2026-08-23", "img.png") {
		t.Fatalf("unexpected path %s", got)
	}
}

func TestResolveMidnightRollover(t *testing.T) {
	// Request issued at 23:59, resolved after midnight: the file sits in
	// yesterday's bucket and must still be found.
	root := t.TempDir()
	requestStart := time.Date(2026, 8, 22, 23, 59, 0, 0, time.UTC)
	now := time.Date(2026, 8, 23, 0, 1, 0, 0, time.UTC)
	writeFile(t, filepath.Join(root, "2026-08-22", "img.png"))

	resolver := &Resolver{OutputRoot: root, Now: fixedClock(now)}
	got, err := resolver.Resolve("img.png", requestStart)
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if got != filepath.Join(root, "2026-08-22", "img.png") {
		t.Fatalf("unexpected path %s", got)
	}
}

func TestResolvePrefersTodayOverYesterday(t *testing.T) {
	root := t.TempDir()
	now := time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC)
	writeFile(t, filepath.Join(root, "2026-08-22", "img.png"))
	writeFile(t, filepath.Join(root, "2026-08-23", "img.png"))

	resolver := &Resolver{OutputRoot: root, Now: fixedClock(now)}
	got, err := resolver.Resolve("img.png", now)
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if got != filepath.Join(root, "2026-08-23", "img.png") {
		t.Fatalf("expected today's bucket to win, got %s", got)
	}
}

func TestResolveMissReportsSearchedLocations(t *testing.T) {
	root := t.TempDir()
	now := time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC)
	resolver := &Resolver{OutputRoot: root, Now: fixedClock(now)}

	_, err := resolver.Resolve("ghost.png", now)
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	msg := err.Error()
	for _, want := range []string{"ghost.png", "2026-08-23", "2026-08-22"} {
		if !strings.Contains(msg, want) {
			t.Fatalf("error %q missing %q", msg, want)
		}
	}
}

func TestResolveEmptyReference(t *testing.T) {
	resolver := New(t.TempDir())
	_, err := resolver.Resolve("  ", time.Now())
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}
