// Package config loads, normalizes, and validates reencode configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// REENCODE_PASSKEY. The Config type centralizes every knob the CLI and the
// transcode coordinator need: output/state directories, worker pool sizing
// and timeouts, external binary names, extra codec catalog entries, and
// tracker details for torrent packaging.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
