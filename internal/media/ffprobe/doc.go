// Package ffprobe provides a typed wrapper around ffprobe JSON output for
// audio files.
//
// Key types:
//   - Result: parsed ffprobe output containing streams and format metadata
//   - Stream: per-stream codec, sample rate, bit depth, channels, and tags
//   - Format: container-level metadata and tags
//
// Inspect runs ffprobe through the pipeline executor so the probe shares the
// cancellation and process-group handling of every other external tool.
// Parse decodes a payload that was captured elsewhere.
package ffprobe
