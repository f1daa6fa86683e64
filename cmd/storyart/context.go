package main

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"storyart/internal/config"
	"storyart/internal/logging"
	"storyart/internal/organizer"
	"storyart/internal/pipeline"
	"storyart/internal/resolve"
	"storyart/internal/runlog"
	"storyart/internal/services/swarm"
	"storyart/internal/session"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		c.logger, c.loggerErr = logging.New(logging.Options{
			Level:  cfg.Logging.Level,
			Format: cfg.Logging.Format,
		})
	})
	return c.logger, c.loggerErr
}

// toolkit bundles the wired collaborators for one command invocation.
type toolkit struct {
	cfg     *config.Config
	logger  *slog.Logger
	store   *session.Store
	adapter *session.Adapter
	client  *swarm.Client
	history *runlog.Store
	runner  *pipeline.Runner
}

func (t *toolkit) close() {
	if t.store != nil {
		_ = t.store.Close()
	}
	if t.history != nil {
		_ = t.history.Close()
	}
}

// withToolkit wires the full pipeline for the duration of fn. Run history is
// best effort: if the database cannot be opened the run proceeds without it.
func (c *commandContext) withToolkit(cmd *cobra.Command, fn func(*toolkit) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return err
	}

	kit := &toolkit{cfg: cfg, logger: logger}
	defer kit.close()

	kit.store = session.NewStore(cfg)
	kit.adapter = session.NewAdapter(kit.store, logger)
	kit.client = swarm.NewClient(cfg)

	kit.history, err = runlog.Open(cfg)
	if err != nil {
		logger.Warn("run history unavailable", logging.Error(err))
		kit.history = nil
	}

	var history pipeline.History
	if kit.history != nil {
		history = kit.history
	}
	kit.runner = pipeline.NewRunner(
		cfg,
		kit.adapter,
		kit.client,
		resolve.New(cfg.Paths.GenerationOutputDir),
		organizer.New(cfg.Paths.ProjectDir, logger),
		history,
		logger,
	)
	return fn(kit)
}

// withHistory opens just the run history store for read-only commands.
func (c *commandContext) withHistory(fn func(*runlog.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	store, err := runlog.Open(cfg)
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(store)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
