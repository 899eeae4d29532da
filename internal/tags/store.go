package tags

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"reencode/internal/logging"
	"reencode/internal/media/ffprobe"
	"reencode/internal/pipeline"
	"reencode/internal/services"
)

// Tags maps lowercase tag names to values. Multi-valued tags are joined the
// way ffprobe reports them.
type Tags map[string]string

// Properties are the stream facts the source analyzer needs.
type Properties struct {
	Codec         string
	SampleRate    int
	BitsPerSample int
	Channels      int
}

// Store reads and writes file metadata.
type Store interface {
	Probe(ctx context.Context, path string) (Properties, error)
	ReadTags(ctx context.Context, path string) (Tags, error)
	WriteTags(ctx context.Context, path string, tags Tags) error
}

// ToolStore implements Store with ffprobe, metaflac, and ffmpeg.
type ToolStore struct {
	FFprobe   string
	Metaflac  string
	FFmpeg    string
	KillGrace time.Duration
	Logger    *slog.Logger
}

// ffprobe/ffmpeg generic keys and the names used here
var keyAliases = map[string]string{
	"track":        "tracknumber",
	"disc":         "discnumber",
	"album_artist": "albumartist",
	"album artist": "albumartist",
}

// names ffmpeg's muxers understand for our canonical keys
var ffmpegKeys = map[string]string{
	"tracknumber": "track",
	"discnumber":  "disc",
	"albumartist": "album_artist",
}

// Probe returns the first audio stream's properties.
func (s *ToolStore) Probe(ctx context.Context, path string) (Properties, error) {
	result, err := ffprobe.Inspect(ctx, s.FFprobe, path)
	if err != nil {
		return Properties{}, err
	}
	audio, ok := result.FirstAudio()
	if !ok {
		return Properties{}, services.Wrap(services.ErrValidation, "probe", path, "no audio stream", nil)
	}
	return Properties{
		Codec:         audio.CodecName,
		SampleRate:    audio.SampleRateHz(),
		BitsPerSample: audio.BitDepth(),
		Channels:      audio.Channels,
	}, nil
}

// ReadTags returns the file's tags with canonical lowercase keys.
func (s *ToolStore) ReadTags(ctx context.Context, path string) (Tags, error) {
	result, err := ffprobe.Inspect(ctx, s.FFprobe, path)
	if err != nil {
		return nil, err
	}
	return canonicalTags(result.Tags()), nil
}

// WriteTags replaces every tag on path with tags.
func (s *ToolStore) WriteTags(ctx context.Context, path string, tags Tags) error {
	if strings.EqualFold(filepath.Ext(path), ".flac") {
		return s.writeVorbis(ctx, path, tags)
	}
	return s.remux(ctx, path, tags)
}

func (s *ToolStore) writeVorbis(ctx context.Context, path string, tags Tags) error {
	binary := defaultString(s.Metaflac, "metaflac")
	args := []string{binary, "--remove-all-tags"}
	for _, key := range slices.Sorted(maps.Keys(tags)) {
		args = append(args, "--set-tag="+strings.ToUpper(key)+"="+tags[key])
	}
	args = append(args, safePath(path))
	return s.run(ctx, "metaflac", args)
}

// remux rewrites the container with new metadata and swaps it into place.
func (s *ToolStore) remux(ctx context.Context, path string, tags Tags) error {
	binary := defaultString(s.FFmpeg, "ffmpeg")
	ext := filepath.Ext(path)
	tmp := filepath.Join(filepath.Dir(path), ".tagging-"+strings.TrimSuffix(filepath.Base(path), ext)+ext)

	args := []string{binary, "-v", "error", "-nostdin", "-y", "-i", "file:" + path, "-map", "0", "-c", "copy", "-map_metadata", "-1"}
	for _, key := range slices.Sorted(maps.Keys(tags)) {
		name := key
		if alias, ok := ffmpegKeys[key]; ok {
			name = alias
		}
		args = append(args, "-metadata", name+"="+tags[key])
	}
	if strings.EqualFold(ext, ".mp3") {
		args = append(args, "-id3v2_version", "3")
	}
	args = append(args, "file:"+tmp)

	if err := s.run(ctx, "ffmpeg", args); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return services.Wrap(services.ErrExternalTool, "tags", "replace", path, err)
	}
	return nil
}

func (s *ToolStore) run(ctx context.Context, tool string, args []string) error {
	var stdout bytes.Buffer
	res, err := pipeline.Execute(ctx, []pipeline.Stage{{Args: args}}, pipeline.Options{
		Stdout:    &stdout,
		KillGrace: s.KillGrace,
		Logger:    s.Logger,
	})
	if err != nil {
		return err
	}
	if err := pipeline.Classify(res); err != nil {
		return fmt.Errorf("%s: %w", tool, err)
	}
	logging.NewComponentLogger(s.Logger, "tags").Debug("tags written",
		logging.String("tool", tool),
		logging.String("path", args[len(args)-1]),
	)
	return nil
}

func canonicalTags(raw map[string]string) Tags {
	out := make(Tags, len(raw))
	for key, value := range raw {
		key = strings.ToLower(strings.TrimSpace(key))
		if alias, ok := keyAliases[key]; ok {
			key = alias
		}
		out[key] = value
	}
	return out
}

// safePath keeps a relative path that starts with '-' from reading as a flag.
func safePath(path string) string {
	if strings.HasPrefix(path, "-") {
		return "." + string(filepath.Separator) + path
	}
	return path
}

func defaultString(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
