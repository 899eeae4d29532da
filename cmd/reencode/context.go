package main

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"reencode/internal/codec"
	"reencode/internal/config"
	"reencode/internal/logging"
	"reencode/internal/tags"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configPath string
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) flagPath() string {
	if c.configFlag == nil {
		return ""
	}
	return strings.TrimSpace(*c.configFlag)
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, path, _, err := config.Load(c.flagPath())
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = path
	})
	return c.config, c.configErr
}

// ensureLogger builds the process logger and prunes expired log files.
func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		logger, err := logging.NewFromConfig(cfg, "")
		if err != nil {
			c.loggerErr = fmt.Errorf("init logging: %w", err)
			return
		}
		logging.CleanupOldLogs(logger, cfg.Logging.RetentionDays, logging.RetentionTarget{
			Dir:     cfg.Paths.LogDir,
			Pattern: logging.LogFilePattern,
		})
		c.logger = logger
	})
	return c.logger, c.loggerErr
}

// catalog returns the builtin codecs extended by the config's [[codecs]].
func (c *commandContext) catalog() (*codec.Catalog, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	extra := make([]codec.Codec, 0, len(cfg.Codecs))
	for _, entry := range cfg.Codecs {
		extra = append(extra, codec.Codec{
			Name:      entry.Name,
			Family:    codec.Family(entry.Family),
			Extension: entry.Extension,
			Options:   entry.Options,
			Lossless:  entry.Lossless,
		})
	}
	catalog, err := codec.Builtin().With(extra...)
	if err != nil {
		return nil, fmt.Errorf("codec catalog: %w", err)
	}
	return catalog, nil
}

// newTagStore builds the metadata store used by transcode. Tests replace it.
var newTagStore = func(cfg *config.Config, logger *slog.Logger) tags.Store {
	return &tags.ToolStore{
		FFprobe:   cfg.Binaries.FFprobe,
		Metaflac:  cfg.Binaries.Metaflac,
		FFmpeg:    cfg.Binaries.FFmpeg,
		KillGrace: cfg.KillGrace(),
		Logger:    logger,
	}
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
