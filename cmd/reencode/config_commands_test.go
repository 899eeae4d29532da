package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"reencode/internal/config"
)

func configCodec(name, family, ext string, options ...string) config.Codec {
	return config.Codec{Name: name, Family: family, Extension: ext, Options: options}
}

func TestConfigInitWritesSample(t *testing.T) {
	target := filepath.Join(t.TempDir(), "nested", "config.toml")

	stdout, _, err := runCLI(t, []string{"config", "init", "--path", target}, "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	if !strings.Contains(stdout, target) {
		t.Fatalf("expected path in output, got %q", stdout)
	}
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("sample not written: %v", err)
	}

	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, ""); err == nil {
		t.Fatal("expected refusal to overwrite")
	}
	if _, _, err := runCLI(t, []string{"config", "init", "--path", target, "--overwrite"}, ""); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	env := setupCLITestEnv(t)
	stdout, _, err := runCLI(t, []string{"config", "validate"}, env.configPath)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if !strings.Contains(stdout, "Configuration valid") {
		t.Fatalf("unexpected output %q", stdout)
	}
	if !strings.Contains(stdout, "Output dir:") || !strings.Contains(stdout, env.cfg.Paths.OutputDir) || !strings.Contains(stdout, "V0") {
		t.Fatalf("resolved settings missing:\n%s", stdout)
	}

	env.cfg.Codecs = []config.Codec{configCodec("WAV", "sox", ".wav")}
	writeTestConfig(t, env.configPath, env.cfg)
	if _, _, err := runCLI(t, []string{"config", "validate"}, env.configPath); err == nil {
		t.Fatal("expected unknown encoder family to fail validation")
	}
}
