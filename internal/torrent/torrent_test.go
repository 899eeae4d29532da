package torrent_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"reencode/internal/pipeline"
	"reencode/internal/services"
	"reencode/internal/testsupport"
	"reencode/internal/torrent"
)

func TestPackageInvokesMktorrent(t *testing.T) {
	base := t.TempDir()
	argsFile := filepath.Join(base, "args")
	bin := testsupport.WriteStub(t, base, "mktorrent", `printf '%s\n' "$@" > "`+argsFile+`"
while [ $# -gt 0 ]; do
  if [ "$1" = "-o" ]; then shift; : > "$1"; fi
  shift
done`)
	release := testsupport.WriteRelease(t, base, "Artist - Album [MP3 V0]", "01.mp3")

	p := &torrent.Packager{Binary: bin, Source: "RED"}
	out, err := p.Package(context.Background(), release, filepath.Join(base, "torrents"), "https://tracker.example/", "secret")
	if err != nil {
		t.Fatalf("Package: %v", err)
	}
	want := filepath.Join(base, "torrents", "Artist - Album [MP3 V0].torrent")
	if out != want {
		t.Fatalf("out = %q, want %q", out, want)
	}
	if _, err := os.Stat(out); err != nil {
		t.Fatalf("torrent not created: %v", err)
	}

	data, err := os.ReadFile(argsFile)
	if err != nil {
		t.Fatalf("read args: %v", err)
	}
	got := strings.Split(strings.TrimSpace(string(data)), "\n")
	expected := []string{"-p", "-s", "RED", "-a", "https://tracker.example/secret/announce", "-o", want, release}
	if !slices.Equal(got, expected) {
		t.Fatalf("args = %q, want %q", got, expected)
	}
}

func TestPackageFailureRemovesPartialTorrent(t *testing.T) {
	base := t.TempDir()
	bin := testsupport.WriteStub(t, base, "mktorrent", `while [ $# -gt 0 ]; do
  if [ "$1" = "-o" ]; then shift; : > "$1"; fi
  shift
done
echo "hashing failed" >&2
exit 3`)
	release := testsupport.WriteRelease(t, base, "Album", "01.mp3")
	outDir := filepath.Join(base, "torrents")

	p := &torrent.Packager{Binary: bin}
	_, err := p.Package(context.Background(), release, outDir, "https://tracker.example", "secret")
	var stageErr *pipeline.StageFailedError
	if !errors.As(err, &stageErr) || stageErr.ExitCode != 3 {
		t.Fatalf("expected stage failure with exit 3, got %v", err)
	}
	if _, statErr := os.Stat(filepath.Join(outDir, "Album.torrent")); !errors.Is(statErr, os.ErrNotExist) {
		t.Fatalf("partial torrent should be removed, stat err = %v", statErr)
	}
}

func TestPackageValidatesInputs(t *testing.T) {
	base := t.TempDir()
	release := testsupport.WriteRelease(t, base, "Album", "01.mp3")
	p := &torrent.Packager{Binary: "/nonexistent/mktorrent"}

	if _, err := p.Package(context.Background(), release, base, "", "secret"); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("missing tracker: expected ErrConfiguration, got %v", err)
	}
	if _, err := p.Package(context.Background(), filepath.Join(base, "missing"), base, "https://t", "k"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("missing input: expected ErrNotFound, got %v", err)
	}
	testsupport.WriteFile(t, filepath.Join(base, "out", "Album.torrent"), 1)
	if _, err := p.Package(context.Background(), release, filepath.Join(base, "out"), "https://t", "k"); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("existing torrent: expected ErrValidation, got %v", err)
	}
}

func TestAnnounceURL(t *testing.T) {
	if got := torrent.AnnounceURL("https://flacsfor.me///", "abc"); got != "https://flacsfor.me/abc/announce" {
		t.Fatalf("AnnounceURL = %q", got)
	}
}
