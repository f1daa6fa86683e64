package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	// GenerationOutputDir is the backend's output root, organized by
	// calendar-date subdirectories. Read-only from this tool's perspective.
	GenerationOutputDir string `toml:"generation_output_dir"`
	// ProjectDir is the editing-project root the organizer writes into.
	ProjectDir string `toml:"project_dir"`
	// StateDir holds the run-history database and lock files.
	StateDir string `toml:"state_dir"`
	LogDir   string `toml:"log_dir"`
}

// Backend contains configuration for the image generation backend.
type Backend struct {
	URL             string `toml:"url"`
	RequestTimeout  int    `toml:"request_timeout"`
	ImagesPerPrompt int    `toml:"images_per_prompt"`
}

// Session contains configuration for the Redis session store.
type Session struct {
	RedisAddr     string `toml:"redis_addr"`
	RedisPassword string `toml:"redis_password"`
	RedisDB       int    `toml:"redis_db"`
	KeyPrefix     string `toml:"key_prefix"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for the pipeline.
type Config struct {
	Paths   Paths   `toml:"paths"`
	Backend Backend `toml:"backend"`
	Session Session `toml:"session"`
	Logging Logging `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration
// file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/storyart/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized, with environment
// overrides applied.
func Load(path string) (*Config, string, bool, error) {
	// .env is optional; ignore absence.
	_ = godotenv.Load()

	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func (c *Config) applyEnvOverrides() {
	if v := strings.TrimSpace(os.Getenv("STORYART_BACKEND_URL")); v != "" {
		c.Backend.URL = v
	}
	if v := strings.TrimSpace(os.Getenv("STORYART_REDIS_ADDR")); v != "" {
		c.Session.RedisAddr = v
	}
	if v := os.Getenv("STORYART_REDIS_PASSWORD"); v != "" {
		c.Session.RedisPassword = v
	}
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	projectPath, err := filepath.Abs("storyart.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}
	return defaultPath, false, nil
}

func (c *Config) normalize() error {
	var err error
	if c.Paths.GenerationOutputDir, err = expandPath(c.Paths.GenerationOutputDir); err != nil {
		return err
	}
	if c.Paths.ProjectDir, err = expandPath(c.Paths.ProjectDir); err != nil {
		return err
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return err
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return err
	}
	c.Backend.URL = strings.TrimRight(strings.TrimSpace(c.Backend.URL), "/")
	c.Session.RedisAddr = strings.TrimSpace(c.Session.RedisAddr)
	c.Session.KeyPrefix = strings.TrimSpace(c.Session.KeyPrefix)
	return nil
}

// EnsureDirectories creates the directories this tool owns. The generation
// output root belongs to the backend and is never created here.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.ProjectDir, c.Paths.StateDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
