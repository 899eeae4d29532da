package main

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"reencode/internal/config"
	"reencode/internal/pipeline"
	"reencode/internal/tags"
	"reencode/internal/testsupport"
	"reencode/internal/transcode"
)

type cliTestEnv struct {
	cfg        *config.Config
	store      *testsupport.MemoryStore
	configPath string
	baseDir    string
}

func setupCLITestEnv(t *testing.T, opts ...testsupport.ConfigOption) *cliTestEnv {
	t.Helper()

	cfg := testsupport.NewConfig(t, append([]testsupport.ConfigOption{testsupport.WithStubbedBinaries()}, opts...)...)
	cfg.Logging.Level = "error"
	base := testsupport.BaseDir(cfg)
	t.Setenv("HOME", filepath.Join(base, "home"))

	configPath := filepath.Join(base, "config.toml")
	writeTestConfig(t, configPath, cfg)

	store := testsupport.NewMemoryStore()
	previous := newTagStore
	newTagStore = func(*config.Config, *slog.Logger) tags.Store { return store }
	t.Cleanup(func() { newTagStore = previous })

	t.Cleanup(transcode.SetExecutorForTests(fakeEncoder))

	return &cliTestEnv{cfg: cfg, store: store, configPath: configPath, baseDir: base}
}

// fakeEncoder creates the encoder's output file and reports success.
func fakeEncoder(ctx context.Context, stages []pipeline.Stage, opts pipeline.Options) (pipeline.Result, error) {
	var result pipeline.Result
	for _, stage := range stages {
		result.Stages = append(result.Stages, pipeline.StageResult{Ordinal: stage.Ordinal, Args: stage.Args, Started: true})
	}
	last := stages[len(stages)-1].Args
	for _, arg := range last {
		arg = strings.TrimPrefix(arg, "file:")
		if filepath.IsAbs(arg) {
			if err := os.WriteFile(arg, []byte("audio"), 0o644); err != nil {
				return result, err
			}
		}
	}
	return result, nil
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}
