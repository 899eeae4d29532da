package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"reencode/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.OutputDir = filepath.Join(base, "out")
	cfgVal.Paths.TorrentDir = filepath.Join(base, "torrents")
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.LogDir = filepath.Join(base, "state", "logs")
	cfgVal.Transcode.Parallelism = 2
	cfgVal.Transcode.KillGraceSeconds = 1

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithParallelism sets the worker pool size.
func WithParallelism(n int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Transcode.Parallelism = n
	}
}

// WithStubbedBinaries writes stub executables that exit 0 for the provided
// names and prepends them to PATH. If names is empty, every configured
// external binary is stubbed.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			bins := b.cfg.Binaries
			names = []string{bins.Flac, bins.Metaflac, bins.Sox, bins.Lame, bins.Oggenc, bins.FFmpeg, bins.FFprobe, bins.Mktorrent}
		}
		for _, name := range names {
			WriteStub(b.t, b.baseDir, name, "exit 0")
		}
		prependPath(b.t, filepath.Join(b.baseDir, "bin"))
	}
}

// WithStub writes one stub executable whose body is the given shell snippet
// and prepends its directory to PATH.
func WithStub(name, body string) ConfigOption {
	return func(b *configBuilder) {
		WriteStub(b.t, b.baseDir, name, body)
		prependPath(b.t, filepath.Join(b.baseDir, "bin"))
	}
}

// WriteStub writes base/bin/name as a /bin/sh script and returns its path.
func WriteStub(t testing.TB, base, name, body string) string {
	t.Helper()
	binDir := filepath.Join(base, "bin")
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		t.Fatalf("mkdir bin dir: %v", err)
	}
	target := filepath.Join(binDir, name)
	if err := os.WriteFile(target, []byte("#!/bin/sh\n"+body+"\n"), 0o755); err != nil {
		t.Fatalf("write stub %s: %v", name, err)
	}
	return target
}

func prependPath(t testing.TB, dir string) {
	oldPath := os.Getenv("PATH")
	if err := os.Setenv("PATH", dir+string(os.PathListSeparator)+oldPath); err != nil {
		t.Fatalf("set PATH: %v", err)
	}
	t.Cleanup(func() {
		_ = os.Setenv("PATH", oldPath)
	})
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StateDir)
}

// WithNtfyTopic points notifications at url.
func WithNtfyTopic(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Notifications.NtfyTopic = url
	}
}

// WithTracker sets the announce URL and passkey used for torrents.
func WithTracker(announceURL, passkey string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Tracker.AnnounceURL = announceURL
		b.cfg.Tracker.Passkey = passkey
	}
}
