package deps

import (
	"os"
	"path/filepath"
	"testing"

	"reencode/internal/config"
)

func TestCheckBinaries(t *testing.T) {
	binDir := t.TempDir()
	present := filepath.Join(binDir, "present")
	script := []byte("#!/bin/sh\nexit 0\n")
	if err := os.WriteFile(present, script, 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	reqs := []Requirement{
		{Name: "Present", Command: present},
		{Name: "Missing", Command: "clearly-not-present-binary"},
		{Name: "Blank", Command: "  "},
	}

	results := CheckBinaries(reqs)
	if len(results) != len(reqs) {
		t.Fatalf("expected %d results, got %d", len(reqs), len(results))
	}
	if !results[0].Available || results[0].Path != present {
		t.Fatalf("expected first requirement to resolve to %s, got %#v", present, results[0])
	}
	if results[0].Detail != "" {
		t.Fatalf("unexpected detail for available dependency: %s", results[0].Detail)
	}
	if results[1].Available || results[1].Detail == "" {
		t.Fatalf("expected missing binary with detail, got %#v", results[1])
	}
	if results[1].Command != "clearly-not-present-binary" {
		t.Fatalf("unexpected command recorded: %s", results[1].Command)
	}
	if results[2].Detail != "command not configured" {
		t.Fatalf("blank command detail = %q", results[2].Detail)
	}
}

func TestRequirementsMarkTorrentOptional(t *testing.T) {
	bins := config.Default().Binaries
	find := func(reqs []Requirement, name string) Requirement {
		for _, r := range reqs {
			if r.Name == name {
				return r
			}
		}
		t.Fatalf("requirement %s missing", name)
		return Requirement{}
	}
	if !find(Requirements(bins, false), "mktorrent").Optional {
		t.Fatal("mktorrent should be optional without torrents")
	}
	if find(Requirements(bins, true), "mktorrent").Optional {
		t.Fatal("mktorrent should be required with torrents")
	}
	if find(Requirements(bins, false), "sox").Optional {
		t.Fatal("sox is always required")
	}
}

func TestMissingIgnoresOptional(t *testing.T) {
	statuses := []Status{
		{Name: "a", Available: true},
		{Name: "b", Optional: true},
		{Name: "c"},
	}
	missing := Missing(statuses)
	if len(missing) != 1 || missing[0].Name != "c" {
		t.Fatalf("missing = %+v", missing)
	}
}
