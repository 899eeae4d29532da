// Package services defines shared utilities consumed by the transcode
// coordinator, the pipeline executor, and the external tool adapters.
//
// Key responsibilities:
//   - Context helpers that stamp run identifiers, coordinator states, and
//     job labels for logging and tracing.
//   - Structured error markers plus the Wrap helper that keep failure
//     classification uniform (external tool vs validation vs configuration).
//
// Use these helpers when wiring new components so operational behaviour
// (error handling, observability) stays uniform across the pipeline.
package services
