package transcode

import (
	"context"
	"fmt"

	"reencode/internal/services"
	"reencode/internal/tags"
)

// Sample rates a resampled release may land on, in order of preference.
var targetRates = []int{44100, 48000}

const (
	maxBitsPerSample = 16
	maxSampleRate    = 48000
	maxChannels      = 2
)

// Prober reports stream properties for one file.
type Prober interface {
	Probe(ctx context.Context, path string) (tags.Properties, error)
}

// SourceProfile is the per-release signal-processing decision.
type SourceProfile struct {
	NeedsResample bool
	// TargetSampleRate is 0 unless NeedsResample is set.
	TargetSampleRate int
	NeedsDownmix     bool

	MaxSampleRate    int
	MaxBitsPerSample int
	MaxChannels      int
}

// Analyze probes every path and decides resampling and downmixing for the
// release as a whole: one file over 16 bit or 48 kHz resamples all of them,
// one file over two channels downmixes all of them.
func Analyze(ctx context.Context, prober Prober, paths []string) (SourceProfile, error) {
	if len(paths) == 0 {
		return SourceProfile{}, ErrNoSourceFiles
	}

	var profile SourceProfile
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return SourceProfile{}, fmt.Errorf("%w: %w", services.ErrCancelled, err)
		}
		props, err := prober.Probe(ctx, path)
		if err != nil {
			return SourceProfile{}, fmt.Errorf("probe %s: %w", path, err)
		}
		profile.MaxSampleRate = max(profile.MaxSampleRate, props.SampleRate)
		profile.MaxBitsPerSample = max(profile.MaxBitsPerSample, props.BitsPerSample)
		profile.MaxChannels = max(profile.MaxChannels, props.Channels)
	}

	profile.NeedsResample = profile.MaxBitsPerSample > maxBitsPerSample || profile.MaxSampleRate > maxSampleRate
	profile.NeedsDownmix = profile.MaxChannels > maxChannels

	if profile.NeedsResample {
		rate, err := TargetRate(profile.MaxSampleRate)
		if err != nil {
			return SourceProfile{}, err
		}
		profile.TargetSampleRate = rate
	}
	return profile, nil
}

// TargetRate returns the smallest supported rate that evenly divides rate.
func TargetRate(rate int) (int, error) {
	if rate > 0 {
		for _, candidate := range targetRates {
			if rate%candidate == 0 {
				return candidate, nil
			}
		}
	}
	return 0, fmt.Errorf("%w: %d Hz is not a multiple of 44100 or 48000", ErrUnsupportedSampleRate, rate)
}
