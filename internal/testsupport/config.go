package testsupport

import (
	"path/filepath"
	"testing"

	"storyart/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.GenerationOutputDir = filepath.Join(base, "output")
	cfg.Paths.ProjectDir = filepath.Join(base, "project")
	cfg.Paths.StateDir = filepath.Join(base, "state")
	cfg.Paths.LogDir = filepath.Join(base, "logs")

	for _, opt := range opts {
		opt(&cfg)
	}
	return &cfg
}

// WithBackendURL points the test config at a stub backend.
func WithBackendURL(url string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Backend.URL = url
	}
}

// WithImagesPerPrompt overrides the per-prompt image count.
func WithImagesPerPrompt(n int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Backend.ImagesPerPrompt = n
	}
}
