package config

import (
	"fmt"
	"strings"
)

// Validate checks the configuration for values that would make a run fail in
// confusing ways later.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Paths.GenerationOutputDir) == "" {
		return fmt.Errorf("config: paths.generation_output_dir is required")
	}
	if strings.TrimSpace(c.Paths.ProjectDir) == "" {
		return fmt.Errorf("config: paths.project_dir is required")
	}
	if strings.TrimSpace(c.Backend.URL) == "" {
		return fmt.Errorf("config: backend.url is required")
	}
	if c.Backend.RequestTimeout <= 0 {
		return fmt.Errorf("config: backend.request_timeout must be positive, got %d", c.Backend.RequestTimeout)
	}
	if c.Backend.ImagesPerPrompt <= 0 {
		return fmt.Errorf("config: backend.images_per_prompt must be positive, got %d", c.Backend.ImagesPerPrompt)
	}
	if strings.TrimSpace(c.Session.RedisAddr) == "" {
		return fmt.Errorf("config: session.redis_addr is required")
	}
	if c.Session.RedisDB < 0 {
		return fmt.Errorf("config: session.redis_db must not be negative, got %d", c.Session.RedisDB)
	}
	switch strings.ToLower(strings.TrimSpace(c.Logging.Format)) {
	case "", "console", "json":
	default:
		return fmt.Errorf("config: logging.format must be console or json, got %q", c.Logging.Format)
	}
	return nil
}
