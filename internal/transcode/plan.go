package transcode

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"reencode/internal/codec"
	"reencode/internal/config"
	"reencode/internal/pipeline"
)

// PlanOptions carries the binaries and switches the planner needs.
type PlanOptions struct {
	Binaries config.Binaries
	// CollapseLosslessResample replaces decode|resample|flac with one sox call.
	CollapseLosslessResample bool
}

// Plan builds the stage chain that turns src into dest plus the target's
// extension, and returns that output path.
func Plan(src, dest string, profile SourceProfile, target codec.Codec, opts PlanOptions) ([]pipeline.Stage, string, error) {
	if !target.Family.Known() {
		return nil, "", fmt.Errorf("%w: codec %s has encoder family %q", ErrUnsupportedTarget, target.Name, target.Family)
	}
	if profile.NeedsResample && profile.TargetSampleRate <= 0 {
		return nil, "", fmt.Errorf("%w: resample requested without a target rate", ErrUnsupportedSampleRate)
	}
	bins := opts.Binaries
	out := dest + target.Extension
	rate := strconv.Itoa(profile.TargetSampleRate)

	if target.Family == codec.FamilyFlac && profile.NeedsResample && !profile.NeedsDownmix && opts.CollapseLosslessResample {
		return numbered([]string{
			binary(bins.Sox, "sox"), safeArg(src), "-G", "-b", "16", safeArg(out), "rate", "-v", "-L", rate, "dither",
		}), out, nil
	}

	chain := [][]string{
		{binary(bins.Flac, "flac"), "-dcs", "--", src},
	}
	if profile.NeedsDownmix {
		chain = append(chain, []string{binary(bins.Sox, "sox"), "-t", "wav", "-", "-t", "wav", "-", "channels", "2"})
	}
	if profile.NeedsResample {
		chain = append(chain, []string{binary(bins.Sox, "sox"), "-t", "wav", "-", "-G", "-b", "16", "-t", "wav", "-", "rate", "-v", "-L", rate, "dither"})
	}
	chain = append(chain, encoder(target, bins, out))
	return numbered(chain...), out, nil
}

func encoder(target codec.Codec, bins config.Binaries, out string) []string {
	opts := slices.Clone(target.Options)
	switch target.Family {
	case codec.FamilyLame:
		args := append([]string{binary(bins.Lame, "lame"), "-S"}, opts...)
		return append(args, "-", safeArg(out))
	case codec.FamilyOggenc:
		args := append([]string{binary(bins.Oggenc, "oggenc"), "-Q"}, opts...)
		return append(args, "-o", safeArg(out), "-")
	case codec.FamilyFFmpeg:
		args := append([]string{binary(bins.FFmpeg, "ffmpeg"), "-v", "error", "-nostdin", "-y", "-i", "-"}, opts...)
		return append(args, "file:"+out)
	default:
		args := append([]string{binary(bins.Flac, "flac")}, opts...)
		return append(args, "-o", safeArg(out), "-")
	}
}

func numbered(argvs ...[]string) []pipeline.Stage {
	stages := make([]pipeline.Stage, len(argvs))
	for i, args := range argvs {
		stages[i] = pipeline.Stage{Args: args, Ordinal: i}
	}
	return stages
}

// safeArg keeps a path that starts with '-' from reading as a flag.
func safeArg(path string) string {
	if strings.HasPrefix(path, "-") {
		return "./" + path
	}
	return path
}

func binary(configured, fallback string) string {
	if strings.TrimSpace(configured) == "" {
		return fallback
	}
	return configured
}
