// Package logging assembles structured slog loggers and formatting helpers used
// across reencode.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so coordinator and worker code
// can tag log lines with run IDs, coordinator stages, and job labels. The
// package also provides a no-op logger for tests and wiring code that cannot
// fail.
//
// Log output defaults to stderr: stdout is reserved for command results such
// as the transcoded directory path.
package logging
