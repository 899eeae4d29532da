package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeTranscode()
	c.normalizeBinaries()
	c.normalizeTracker()
	c.normalizeCodecs()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeoutSeconds <= 0 {
		c.Notifications.RequestTimeoutSeconds = defaultNtfyTimeoutSeconds
	}
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir()
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = filepath.Join(c.Paths.StateDir, defaultLogDirName)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		c.Paths.OutputDir = defaultOutputDir
	}
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.TorrentDir) == "" {
		c.Paths.TorrentDir = defaultTorrentDir
	}
	if c.Paths.TorrentDir, err = expandPath(c.Paths.TorrentDir); err != nil {
		return fmt.Errorf("paths.torrent_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeTranscode() {
	if c.Transcode.Parallelism <= 0 {
		c.Transcode.Parallelism = runtime.NumCPU()
	}
	if c.Transcode.PoolTimeoutMinutes <= 0 {
		c.Transcode.PoolTimeoutMinutes = defaultPoolTimeoutMinutes
	}
	if c.Transcode.JobTimeoutSeconds < 0 {
		c.Transcode.JobTimeoutSeconds = 0
	}
	if c.Transcode.KillGraceSeconds < 0 {
		c.Transcode.KillGraceSeconds = 0
	}
	if c.Transcode.StderrLimitKiB <= 0 {
		c.Transcode.StderrLimitKiB = defaultStderrLimitKiB
	}

	exts := make([]string, 0, len(c.Transcode.AuxiliaryExtensions))
	seen := make(map[string]struct{}, len(c.Transcode.AuxiliaryExtensions))
	for _, ext := range c.Transcode.AuxiliaryExtensions {
		normalized := strings.ToLower(strings.TrimSpace(ext))
		if normalized == "" {
			continue
		}
		if !strings.HasPrefix(normalized, ".") {
			normalized = "." + normalized
		}
		if _, exists := seen[normalized]; exists {
			continue
		}
		seen[normalized] = struct{}{}
		exts = append(exts, normalized)
	}
	c.Transcode.AuxiliaryExtensions = exts
}

func (c *Config) normalizeBinaries() {
	defaults := Default().Binaries
	fields := []struct {
		value    *string
		fallback string
	}{
		{&c.Binaries.Flac, defaults.Flac},
		{&c.Binaries.Metaflac, defaults.Metaflac},
		{&c.Binaries.Sox, defaults.Sox},
		{&c.Binaries.Lame, defaults.Lame},
		{&c.Binaries.Oggenc, defaults.Oggenc},
		{&c.Binaries.FFmpeg, defaults.FFmpeg},
		{&c.Binaries.FFprobe, defaults.FFprobe},
		{&c.Binaries.Mktorrent, defaults.Mktorrent},
	}
	for _, field := range fields {
		*field.value = strings.TrimSpace(*field.value)
		if *field.value == "" {
			*field.value = field.fallback
		}
	}
}

func (c *Config) normalizeTracker() {
	c.Tracker.AnnounceURL = strings.TrimRight(strings.TrimSpace(c.Tracker.AnnounceURL), "/")
	c.Tracker.Passkey = strings.TrimSpace(c.Tracker.Passkey)
	if value, ok := os.LookupEnv("REENCODE_PASSKEY"); ok && strings.TrimSpace(value) != "" {
		c.Tracker.Passkey = strings.TrimSpace(value)
	}
	c.Tracker.Source = strings.TrimSpace(c.Tracker.Source)
}

func (c *Config) normalizeCodecs() {
	for i := range c.Codecs {
		codec := &c.Codecs[i]
		codec.Name = strings.TrimSpace(codec.Name)
		codec.Family = strings.ToLower(strings.TrimSpace(codec.Family))
		codec.Extension = strings.ToLower(strings.TrimSpace(codec.Extension))
		if codec.Extension != "" && !strings.HasPrefix(codec.Extension, ".") {
			codec.Extension = "." + codec.Extension
		}
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json", "auto":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}
