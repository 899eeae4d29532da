package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	OutputDir  string `toml:"output_dir"`
	TorrentDir string `toml:"torrent_dir"`
	StateDir   string `toml:"state_dir"`
	LogDir     string `toml:"log_dir"`
}

// Transcode contains worker pool and pipeline settings.
type Transcode struct {
	// Parallelism is the worker pool size. Zero selects the number of CPUs.
	Parallelism        int `toml:"parallelism"`
	PoolTimeoutMinutes int `toml:"pool_timeout_minutes"`
	// JobTimeoutSeconds bounds a single file's pipeline. Zero disables it.
	JobTimeoutSeconds int `toml:"job_timeout_seconds"`
	KillGraceSeconds  int `toml:"kill_grace_seconds"`
	// CollapseLosslessResample runs a single sox invocation instead of a
	// decode|resample|encode pipe when resampling into a lossless target.
	CollapseLosslessResample bool     `toml:"collapse_lossless_resample"`
	AuxiliaryExtensions      []string `toml:"auxiliary_extensions"`
	StderrLimitKiB           int      `toml:"stderr_limit_kib"`
}

// Binaries names the external executables used by pipelines.
type Binaries struct {
	Flac      string `toml:"flac"`
	Metaflac  string `toml:"metaflac"`
	Sox       string `toml:"sox"`
	Lame      string `toml:"lame"`
	Oggenc    string `toml:"oggenc"`
	FFmpeg    string `toml:"ffmpeg"`
	FFprobe   string `toml:"ffprobe"`
	Mktorrent string `toml:"mktorrent"`
}

// Tracker contains the details needed to package a torrent.
type Tracker struct {
	AnnounceURL string `toml:"announce_url"`
	Passkey     string `toml:"passkey"`
	Source      string `toml:"source"`
}

// Codec is an extra (or overriding) codec catalog entry.
type Codec struct {
	Name      string   `toml:"name"`
	Family    string   `toml:"family"`
	Extension string   `toml:"extension"`
	Options   []string `toml:"options"`
	Lossless  bool     `toml:"lossless"`
}

// Notifications configures ntfy push messages for finished transcodes.
type Notifications struct {
	// NtfyTopic is the full topic URL. Empty disables notifications.
	NtfyTopic             string `toml:"ntfy_topic"`
	RequestTimeoutSeconds int    `toml:"request_timeout_seconds"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for reencode.
//
// Configuration sections by subsystem:
//   - Paths: default output parent, torrent output, state and log directories
//   - Transcode: worker pool sizing, timeouts, collapse and auxiliary files
//   - Binaries: external executable names
//   - Tracker: announce URL, passkey, and source flag for torrents
//   - Codecs: additional codec catalog entries
//   - Notifications: ntfy topic for completion messages
//   - Logging: log format, level, and retention
type Config struct {
	Paths         Paths         `toml:"paths"`
	Transcode     Transcode     `toml:"transcode"`
	Binaries      Binaries      `toml:"binaries"`
	Tracker       Tracker       `toml:"tracker"`
	Codecs        []Codec       `toml:"codecs"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/reencode/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
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

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
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

	projectPath, err := filepath.Abs("reencode.toml")
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

// EnsureDirectories creates the state and log directories. The output and
// torrent directories are created lazily by the commands that write there.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StateDir, c.Paths.LogDir, c.LockDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// HistoryPath returns the location of the run history database.
func (c *Config) HistoryPath() string {
	return filepath.Join(c.Paths.StateDir, "history.db")
}

// LockDir returns the directory holding output-directory ownership locks.
func (c *Config) LockDir() string {
	return filepath.Join(c.Paths.StateDir, "locks")
}

// PoolTimeout returns the hard ceiling for one release's worker pool.
func (c *Config) PoolTimeout() time.Duration {
	return time.Duration(c.Transcode.PoolTimeoutMinutes) * time.Minute
}

// JobTimeout returns the per-file pipeline timeout, or zero when disabled.
func (c *Config) JobTimeout() time.Duration {
	if c.Transcode.JobTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(c.Transcode.JobTimeoutSeconds) * time.Second
}

// KillGrace returns how long a terminated process group gets before SIGKILL.
func (c *Config) KillGrace() time.Duration {
	return time.Duration(c.Transcode.KillGraceSeconds) * time.Second
}

// StderrLimit returns the per-stage stderr capture limit in bytes.
func (c *Config) StderrLimit() int {
	return c.Transcode.StderrLimitKiB * 1024
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

func defaultStateDir() string {
	if base, ok := os.LookupEnv("XDG_STATE_HOME"); ok && strings.TrimSpace(base) != "" {
		return filepath.Join(base, "reencode")
	}
	return "~/.local/state/reencode"
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
