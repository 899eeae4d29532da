package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateTranscode(); err != nil {
		return err
	}
	if err := c.validateTracker(); err != nil {
		return err
	}
	if err := c.validateCodecs(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateNotifications() error {
	if c.Notifications.NtfyTopic == "" {
		return nil
	}
	parsed, err := url.Parse(c.Notifications.NtfyTopic)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return fmt.Errorf("notifications.ntfy_topic must be an http(s) URL, got %q", c.Notifications.NtfyTopic)
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		return errors.New("paths.state_dir must be set")
	}
	return nil
}

func (c *Config) validateTranscode() error {
	if err := ensurePositiveMap(map[string]int{
		"transcode.parallelism":          c.Transcode.Parallelism,
		"transcode.pool_timeout_minutes": c.Transcode.PoolTimeoutMinutes,
		"transcode.stderr_limit_kib":     c.Transcode.StderrLimitKiB,
	}); err != nil {
		return err
	}
	if c.Transcode.JobTimeoutSeconds < 0 {
		return errors.New("transcode.job_timeout_seconds must be >= 0")
	}
	if c.Transcode.KillGraceSeconds < 0 {
		return errors.New("transcode.kill_grace_seconds must be >= 0")
	}
	if c.Transcode.JobTimeoutSeconds > 0 && c.Transcode.JobTimeoutSeconds > c.Transcode.PoolTimeoutMinutes*60 {
		return errors.New("transcode.job_timeout_seconds must not exceed transcode.pool_timeout_minutes")
	}
	return nil
}

func (c *Config) validateTracker() error {
	if c.Tracker.AnnounceURL == "" {
		return nil
	}
	parsed, err := url.Parse(c.Tracker.AnnounceURL)
	if err != nil {
		return fmt.Errorf("tracker.announce_url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" && parsed.Scheme != "udp" {
		return fmt.Errorf("tracker.announce_url must use http, https, or udp (got %q)", parsed.Scheme)
	}
	return nil
}

func (c *Config) validateCodecs() error {
	seen := make(map[string]struct{}, len(c.Codecs))
	for i, codec := range c.Codecs {
		if codec.Name == "" {
			return fmt.Errorf("codecs[%d].name must be set", i)
		}
		key := strings.ToUpper(codec.Name)
		if _, dup := seen[key]; dup {
			return fmt.Errorf("codecs[%d]: duplicate codec %q", i, codec.Name)
		}
		seen[key] = struct{}{}
		if codec.Family == "" {
			return fmt.Errorf("codecs[%d].family must be set", i)
		}
		if codec.Extension == "" {
			return fmt.Errorf("codecs[%d].extension must be set", i)
		}
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
