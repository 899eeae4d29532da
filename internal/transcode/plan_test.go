package transcode_test

import (
	"errors"
	"slices"
	"testing"

	"reencode/internal/codec"
	"reencode/internal/config"
	"reencode/internal/transcode"
)

func lookup(t *testing.T, name string) codec.Codec {
	t.Helper()
	c, ok := codec.Builtin().Lookup(name)
	if !ok {
		t.Fatalf("codec %s missing from catalog", name)
	}
	return c
}

func TestPlanStageChains(t *testing.T) {
	bins := config.Default().Binaries
	resample := transcode.SourceProfile{NeedsResample: true, TargetSampleRate: 44100}
	resampleDownmix := transcode.SourceProfile{NeedsResample: true, TargetSampleRate: 48000, NeedsDownmix: true}

	tests := []struct {
		name     string
		codec    string
		profile  transcode.SourceProfile
		collapse bool
		want     [][]string
		out      string
	}{
		{
			name:  "mp3 straight encode",
			codec: "V0",
			want: [][]string{
				{"flac", "-dcs", "--", "/src/01.flac"},
				{"lame", "-S", "-V", "0", "--vbr-new", "--ignore-tag-errors", "-", "/dst/01.mp3"},
			},
			out: "/dst/01.mp3",
		},
		{
			name:    "ogg with resample",
			codec:   "Q8",
			profile: resample,
			want: [][]string{
				{"flac", "-dcs", "--", "/src/01.flac"},
				{"sox", "-t", "wav", "-", "-G", "-b", "16", "-t", "wav", "-", "rate", "-v", "-L", "44100", "dither"},
				{"oggenc", "-Q", "-q", "8", "-o", "/dst/01.ogg", "-"},
			},
			out: "/dst/01.ogg",
		},
		{
			name:    "aac with downmix and resample",
			codec:   "AAC",
			profile: resampleDownmix,
			want: [][]string{
				{"flac", "-dcs", "--", "/src/01.flac"},
				{"sox", "-t", "wav", "-", "-t", "wav", "-", "channels", "2"},
				{"sox", "-t", "wav", "-", "-G", "-b", "16", "-t", "wav", "-", "rate", "-v", "-L", "48000", "dither"},
				{"ffmpeg", "-v", "error", "-nostdin", "-y", "-i", "-", "-c:a", "aac", "-b:a", "320k", "file:/dst/01.m4a"},
			},
			out: "/dst/01.m4a",
		},
		{
			name:     "flac resample collapses to one sox call",
			codec:    "FLAC",
			profile:  resample,
			collapse: true,
			want: [][]string{
				{"sox", "/src/01.flac", "-G", "-b", "16", "/dst/01.flac", "rate", "-v", "-L", "44100", "dither"},
			},
			out: "/dst/01.flac",
		},
		{
			name:    "flac resample without collapse",
			codec:   "FLAC",
			profile: resample,
			want: [][]string{
				{"flac", "-dcs", "--", "/src/01.flac"},
				{"sox", "-t", "wav", "-", "-G", "-b", "16", "-t", "wav", "-", "rate", "-v", "-L", "44100", "dither"},
				{"flac", "--best", "-o", "/dst/01.flac", "-"},
			},
			out: "/dst/01.flac",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stages, out, err := transcode.Plan("/src/01.flac", "/dst/01", tt.profile, lookup(t, tt.codec), transcode.PlanOptions{
				Binaries:                 bins,
				CollapseLosslessResample: tt.collapse,
			})
			if err != nil {
				t.Fatalf("Plan: %v", err)
			}
			if out != tt.out {
				t.Fatalf("out = %q, want %q", out, tt.out)
			}
			if len(stages) != len(tt.want) {
				t.Fatalf("got %d stages, want %d", len(stages), len(tt.want))
			}
			for i, stage := range stages {
				if stage.Ordinal != i {
					t.Fatalf("stage %d has ordinal %d", i, stage.Ordinal)
				}
				if !slices.Equal(stage.Args, tt.want[i]) {
					t.Fatalf("stage %d args = %q, want %q", i, stage.Args, tt.want[i])
				}
			}
		})
	}
}

func TestPlanProtectsDashLeadingPaths(t *testing.T) {
	stages, _, err := transcode.Plan("-src.flac", "-out", transcode.SourceProfile{}, lookup(t, "320"), transcode.PlanOptions{})
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if got := stages[1].Args[len(stages[1].Args)-1]; got != "./-out.mp3" {
		t.Fatalf("encoder output = %q, want ./-out.mp3", got)
	}
	if !slices.Contains(stages[0].Args, "--") {
		t.Fatalf("decoder should end option parsing before the source: %q", stages[0].Args)
	}
}

func TestPlanRejectsUnknownFamilies(t *testing.T) {
	bogus := codec.Codec{Name: "WAV", Family: "wav", Extension: ".wav"}
	if _, _, err := transcode.Plan("a.flac", "a", transcode.SourceProfile{}, bogus, transcode.PlanOptions{}); !errors.Is(err, transcode.ErrUnsupportedTarget) {
		t.Fatalf("expected ErrUnsupportedTarget, got %v", err)
	}
	broken := transcode.SourceProfile{NeedsResample: true}
	if _, _, err := transcode.Plan("a.flac", "a", broken, lookup(t, "V0"), transcode.PlanOptions{}); !errors.Is(err, transcode.ErrUnsupportedSampleRate) {
		t.Fatalf("expected ErrUnsupportedSampleRate, got %v", err)
	}
}
