// Package tags copies metadata tags from a source file to its transcode and
// verifies the result.
//
// Store abstracts reading, writing, and probing audio files. ToolStore is the
// concrete adapter: ffprobe for reads and probes, metaflac for FLAC writes,
// and an ffmpeg stream-copy remux for every other container.
package tags
