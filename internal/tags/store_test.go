package tags_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"reencode/internal/tags"
	"reencode/internal/testsupport"
)

const probePayload = `{"streams":[{"index":0,"codec_name":"flac","codec_type":"audio","sample_rate":"88200","channels":6,"bits_per_raw_sample":"24"}],
"format":{"format_name":"flac","tags":{"ARTIST":"Artist","TITLE":"Song","track":"4","disc":"1","album_artist":"Various"}}}`

func newToolStore(t *testing.T) (*tags.ToolStore, string) {
	t.Helper()
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("/bin/sh not available")
	}
	base := t.TempDir()
	payload := filepath.Join(base, "probe.json")
	if err := os.WriteFile(payload, []byte(probePayload), 0o644); err != nil {
		t.Fatalf("write payload: %v", err)
	}
	argsLog := filepath.Join(base, "args.log")
	store := &tags.ToolStore{
		FFprobe:  testsupport.WriteStub(t, base, "ffprobe", "cat '"+payload+"'"),
		Metaflac: testsupport.WriteStub(t, base, "metaflac", `for a in "$@"; do printf '%s\n' "$a"; done > '`+argsLog+`'`),
		// The last argument is file:<tmp>; create it so the rename succeeds.
		FFmpeg: testsupport.WriteStub(t, base, "ffmpeg", `for a in "$@"; do printf '%s\n' "$a"; last="$a"; done > '`+argsLog+`'; : > "${last#file:}"`),
	}
	return store, argsLog
}

func TestToolStoreProbeAndRead(t *testing.T) {
	store, _ := newToolStore(t)

	props, err := store.Probe(context.Background(), "/music/01.flac")
	if err != nil {
		t.Fatalf("Probe returned error: %v", err)
	}
	if props.SampleRate != 88200 || props.BitsPerSample != 24 || props.Channels != 6 || props.Codec != "flac" {
		t.Fatalf("unexpected properties: %+v", props)
	}

	got, err := store.ReadTags(context.Background(), "/music/01.flac")
	if err != nil {
		t.Fatalf("ReadTags returned error: %v", err)
	}
	if got["artist"] != "Artist" || got["tracknumber"] != "4" || got["discnumber"] != "1" || got["albumartist"] != "Various" {
		t.Fatalf("unexpected canonical tags: %v", got)
	}
}

func TestToolStoreWritesFLACWithMetaflac(t *testing.T) {
	store, argsLog := newToolStore(t)

	err := store.WriteTags(context.Background(), "/out/01.flac", tags.Tags{"title": "Song", "artist": "A = B"})
	if err != nil {
		t.Fatalf("WriteTags returned error: %v", err)
	}
	args := readArgs(t, argsLog)
	want := []string{"--remove-all-tags", "--set-tag=ARTIST=A = B", "--set-tag=TITLE=Song", "/out/01.flac"}
	if strings.Join(args, "\n") != strings.Join(want, "\n") {
		t.Fatalf("metaflac args = %q want %q", args, want)
	}
}

func TestToolStoreRemuxesMP3WithFFmpeg(t *testing.T) {
	store, argsLog := newToolStore(t)
	dir := t.TempDir()
	target := filepath.Join(dir, "01.mp3")
	if err := os.WriteFile(target, []byte("old"), 0o644); err != nil {
		t.Fatalf("write target: %v", err)
	}

	err := store.WriteTags(context.Background(), target, tags.Tags{"tracknumber": "1/9", "albumartist": "Various"})
	if err != nil {
		t.Fatalf("WriteTags returned error: %v", err)
	}
	joined := strings.Join(readArgs(t, argsLog), " ")
	for _, want := range []string{"-map_metadata -1", "-metadata album_artist=Various", "-metadata track=1/9", "-id3v2_version 3", "-i file:" + target} {
		if !strings.Contains(joined, want) {
			t.Fatalf("ffmpeg args missing %q: %s", want, joined)
		}
	}
	if data, _ := os.ReadFile(target); len(data) != 0 {
		t.Fatalf("expected remuxed file swapped into place, still have %q", data)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Fatalf("expected temp file cleaned up, found %d entries", len(entries))
	}
}

func readArgs(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read args: %v", err)
	}
	return strings.Split(strings.TrimRight(string(data), "\n"), "\n")
}
