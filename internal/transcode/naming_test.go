package transcode_test

import (
	"slices"
	"testing"

	"reencode/internal/codec"
	"reencode/internal/transcode"
)

func TestDirName(t *testing.T) {
	resampled := transcode.SourceProfile{NeedsResample: true, TargetSampleRate: 44100}

	tests := []struct {
		source  string
		codec   string
		profile transcode.SourceProfile
		want    string
	}{
		{"/music/Artist - Album (2001) [FLAC]", "V0", transcode.SourceProfile{}, "Artist - Album (2001) [MP3 V0]"},
		{"/music/Artist - Album (2001)", "320", transcode.SourceProfile{}, "Artist - Album (2001) [MP3 320]"},
		{"/music/Artist - Album [FLAC 24-96]", "V0", resampled, "Artist - Album [MP3 V0]"},
		{"/music/Artist - Album [24bit FLAC 96kHz]", "FLAC", resampled, "Artist - Album [FLAC]"},
		{"/music/Artist - Album (24-bit) [WEB FLAC]", "Q8", resampled, "Artist - Album [WEB Ogg Q8]"},
		{"/music/Artist - Album [24bit FLAC]", "V2", transcode.SourceProfile{}, "Artist - Album [24bit MP3 V2]"},
		{"/music/Café - Album/", "AAC", transcode.SourceProfile{}, "Café - Album [AAC]"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			got := transcode.DirName(tt.source, lookup(t, tt.codec), tt.profile)
			if got != tt.want {
				t.Fatalf("DirName(%q, %s) = %q, want %q", tt.source, tt.codec, got, tt.want)
			}
		})
	}
}

func TestAllowedTranscodes(t *testing.T) {
	catalog := codec.Builtin()
	if got := transcode.AllowedTranscodes("Artist - Album (Pre-Emphasised) [FLAC]", catalog); len(got) != 0 {
		t.Fatalf("pre-emphasised release allowed %v", got)
	}
	got := transcode.AllowedTranscodes("Artist - Album [FLAC]", catalog)
	if !slices.Equal(got, catalog.Names()) {
		t.Fatalf("allowed = %v, want %v", got, catalog.Names())
	}
}

func TestDirNameSanitizesCustomLabel(t *testing.T) {
	custom := codec.Codec{Name: "V1/joint", Family: codec.FamilyLame, Extension: ".mp3"}
	got := transcode.DirName("/music/Artist - Album [FLAC]", custom, transcode.SourceProfile{})
	if got != "Artist - Album [MP3 V1-joint]" {
		t.Fatalf("DirName = %q", got)
	}
}
