package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, _, exists, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if exists {
		t.Fatal("expected exists=false for missing file")
	}
	if cfg.Backend.URL != "http://localhost:7801" {
		t.Fatalf("unexpected default backend url %q", cfg.Backend.URL)
	}
	if cfg.Session.KeyPrefix != "storyart:session:" {
		t.Fatalf("unexpected default key prefix %q", cfg.Session.KeyPrefix)
	}
}

func TestLoadParsesAndNormalizes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[paths]
generation_output_dir = "` + dir + `/output"
project_dir = "` + dir + `/projects"

[backend]
url = "http://backend:7801/"
request_timeout = 120

[session]
redis_addr = " localhost:6390 "
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("expected resolved path %q, got %q (exists=%v)", path, resolved, exists)
	}
	if cfg.Backend.URL != "http://backend:7801" {
		t.Fatalf("trailing slash not trimmed: %q", cfg.Backend.URL)
	}
	if cfg.Session.RedisAddr != "localhost:6390" {
		t.Fatalf("redis addr not trimmed: %q", cfg.Session.RedisAddr)
	}
	if !filepath.IsAbs(cfg.Paths.ProjectDir) {
		t.Fatalf("project dir not absolute: %q", cfg.Paths.ProjectDir)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[backend]
request_timeout = -5
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, _, err := Load(path); err == nil {
		t.Fatal("expected validation error for negative timeout")
	} else if !strings.Contains(err.Error(), "request_timeout") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("STORYART_BACKEND_URL", "http://other:7801")
	t.Setenv("STORYART_REDIS_ADDR", "redis:6379")

	cfg, _, _, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Backend.URL != "http://other:7801" {
		t.Fatalf("backend url override missing: %q", cfg.Backend.URL)
	}
	if cfg.Session.RedisAddr != "redis:6379" {
		t.Fatalf("redis addr override missing: %q", cfg.Session.RedisAddr)
	}
}

func TestEnsureDirectories(t *testing.T) {
	dir := t.TempDir()
	cfg := Default()
	cfg.Paths.ProjectDir = filepath.Join(dir, "projects")
	cfg.Paths.StateDir = filepath.Join(dir, "state")
	cfg.Paths.LogDir = filepath.Join(dir, "logs")
	cfg.Paths.GenerationOutputDir = filepath.Join(dir, "backend-output")

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories returned error: %v", err)
	}
	for _, sub := range []string{"projects", "state", "logs"} {
		if _, err := os.Stat(filepath.Join(dir, sub)); err != nil {
			t.Fatalf("directory %s not created: %v", sub, err)
		}
	}
	// Backend output tree belongs to the backend.
	if _, err := os.Stat(filepath.Join(dir, "backend-output")); !os.IsNotExist(err) {
		t.Fatal("generation output dir must not be created")
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := CreateSample(path); err != nil {
		t.Fatalf("CreateSample returned error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(data), "[backend]") {
		t.Fatalf("sample config missing backend section")
	}
}
