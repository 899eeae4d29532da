package main

import (
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"reencode/internal/testsupport"
)

func TestLogsCommandPrintsTailOfLatestFile(t *testing.T) {
	env := setupCLITestEnv(t)
	if err := os.MkdirAll(env.cfg.Paths.LogDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	older := filepath.Join(env.cfg.Paths.LogDir, "reencode-20260101.log")
	latest := filepath.Join(env.cfg.Paths.LogDir, "reencode-20261017.log")
	if err := os.WriteFile(older, []byte(`{"msg":"old","run_id":"aaa"}`+"\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	content := `{"msg":"first","run_id":"aaa"}
{"msg":"second","run_id":"bbb"}
{"msg":"third","run_id":"aaa"}
`
	if err := os.WriteFile(latest, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	stdout, _, err := runCLI(t, []string{"logs", "-n", "2"}, env.configPath)
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	if strings.Contains(stdout, "first") || !strings.Contains(stdout, "second") || !strings.Contains(stdout, "third") {
		t.Fatalf("unexpected tail:\n%s", stdout)
	}

	stdout, _, err = runCLI(t, []string{"logs", "--run", "aaa"}, env.configPath)
	if err != nil {
		t.Fatalf("logs --run: %v", err)
	}
	if strings.Contains(stdout, "second") || strings.Contains(stdout, "old") || strings.Count(stdout, "\n") != 2 {
		t.Fatalf("unexpected filtered output:\n%s", stdout)
	}
}

func TestLogsCommandWithoutFiles(t *testing.T) {
	env := setupCLITestEnv(t)
	_, _, err := runCLI(t, []string{"logs"}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "no log files") {
		t.Fatalf("expected missing log error, got %v", err)
	}
}

func TestTranscodeCommandSendsNotification(t *testing.T) {
	var (
		mu     sync.Mutex
		titles []string
		bodies []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		titles = append(titles, r.Header.Get("Title"))
		bodies = append(bodies, string(body))
		mu.Unlock()
	}))
	t.Cleanup(srv.Close)

	env := setupCLITestEnv(t, testsupport.WithNtfyTopic(srv.URL))
	source := testsupport.WriteRelease(t, env.baseDir, "Artist - Album (2001) [FLAC]", "01.flac")

	if _, _, err := runCLI(t, []string{"transcode", source, "--codec", "320"}, env.configPath); err != nil {
		t.Fatalf("transcode: %v", err)
	}
	if _, _, err := runCLI(t, []string{"transcode", source, "--codec", "320"}, env.configPath); err == nil {
		t.Fatal("expected second transcode to fail on existing output")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(titles) != 2 || titles[0] != "reencode - 320 ready" || titles[1] != "reencode - 320 failed" {
		t.Fatalf("unexpected titles: %#v", titles)
	}
	if !strings.Contains(bodies[1], "OutputAlreadyExists") {
		t.Fatalf("failure body = %q", bodies[1])
	}
}

func TestNotifyTestRequiresTopic(t *testing.T) {
	env := setupCLITestEnv(t)
	_, _, err := runCLI(t, []string{"notify", "test"}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "ntfy_topic") {
		t.Fatalf("expected configuration error, got %v", err)
	}
}
