package transcode_test

import (
	"context"
	"errors"
	"testing"

	"reencode/internal/tags"
	"reencode/internal/testsupport"
	"reencode/internal/transcode"
)

func TestAnalyzeUsesReleaseMaximums(t *testing.T) {
	store := testsupport.NewMemoryStore()
	store.Props["b.flac"] = tags.Properties{SampleRate: 88200, BitsPerSample: 24, Channels: 2}
	store.Props["c.flac"] = tags.Properties{SampleRate: 44100, BitsPerSample: 16, Channels: 6}

	profile, err := transcode.Analyze(context.Background(), store, []string{"a.flac", "b.flac", "c.flac"})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	want := transcode.SourceProfile{
		NeedsResample:    true,
		TargetSampleRate: 44100,
		NeedsDownmix:     true,
		MaxSampleRate:    88200,
		MaxBitsPerSample: 24,
		MaxChannels:      6,
	}
	if profile != want {
		t.Fatalf("profile = %+v, want %+v", profile, want)
	}
	if store.Probes() != 3 {
		t.Fatalf("probes = %d, want 3", store.Probes())
	}
}

func TestAnalyzeCDQualityNeedsNothing(t *testing.T) {
	profile, err := transcode.Analyze(context.Background(), testsupport.NewMemoryStore(), []string{"a.flac"})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if profile.NeedsResample || profile.NeedsDownmix || profile.TargetSampleRate != 0 {
		t.Fatalf("unexpected profile %+v", profile)
	}
}

func TestAnalyzeErrors(t *testing.T) {
	if _, err := transcode.Analyze(context.Background(), testsupport.NewMemoryStore(), nil); !errors.Is(err, transcode.ErrNoSourceFiles) {
		t.Fatalf("expected ErrNoSourceFiles, got %v", err)
	}
	store := testsupport.NewMemoryStore()
	store.ProbeErr = errors.New("ffprobe exploded")
	if _, err := transcode.Analyze(context.Background(), store, []string{"a.flac"}); !errors.Is(err, store.ProbeErr) {
		t.Fatalf("expected probe error, got %v", err)
	}
}

func TestTargetRate(t *testing.T) {
	tests := []struct {
		rate int
		want int
		ok   bool
	}{
		{44100, 44100, true},
		{48000, 48000, true},
		{88200, 44100, true},
		{96000, 48000, true},
		{176400, 44100, true},
		{192000, 48000, true},
		{352800, 44100, true},
		{50000, 0, false},
		{0, 0, false},
	}
	for _, tt := range tests {
		got, err := transcode.TargetRate(tt.rate)
		if tt.ok != (err == nil) {
			t.Fatalf("TargetRate(%d) err = %v, want ok=%v", tt.rate, err, tt.ok)
		}
		if !tt.ok && !errors.Is(err, transcode.ErrUnsupportedSampleRate) {
			t.Fatalf("TargetRate(%d) err = %v, want ErrUnsupportedSampleRate", tt.rate, err)
		}
		if got != tt.want {
			t.Fatalf("TargetRate(%d) = %d, want %d", tt.rate, got, tt.want)
		}
	}
}
