package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestRunIDHandlerInjectsField(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(newRunIDHandler(slog.NewJSONHandler(&buf, nil), "run-123")).With("extra", "value")
	logger.Info("test message")

	output := buf.String()
	if !strings.Contains(output, `"run_id":"run-123"`) {
		t.Fatalf("expected run_id in output, got: %s", output)
	}
	if !strings.Contains(output, `"extra":"value"`) {
		t.Fatalf("expected extra attr in output, got: %s", output)
	}
	if _, ok := newRunIDHandler(nil, "x").(noopHandler); !ok {
		t.Fatal("expected noop handler when base is nil")
	}
}

func TestPrettyHandlerHeaderAndFields(t *testing.T) {
	var buf bytes.Buffer
	lvl := new(slog.LevelVar)
	logger := slog.New(newPrettyHandler(&buf, lvl, false))

	logger.Info("job finished",
		String(FieldComponent, "transcode"),
		String(FieldStage, "transcode"),
		String(FieldJob, "CD1/01.flac"),
		String(FieldEventType, "job_finished"),
		Int("exit_code", 0),
	)

	out := buf.String()
	if !strings.Contains(out, "INFO [transcode] transcode (CD1/01.flac): job finished") {
		t.Fatalf("unexpected header: %q", out)
	}
	if !strings.Contains(out, "    - exit_code: 0") {
		t.Fatalf("expected field line: %q", out)
	}
	if strings.Contains(out, "event_type") {
		t.Fatalf("event_type should be hidden at info: %q", out)
	}
}

func TestPrettyHandlerQuotesAwkwardValues(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(newPrettyHandler(&buf, new(slog.LevelVar), false))
	logger.Warn("stage failed", String("stderr", "bad input file"), String("empty", ""))

	out := buf.String()
	if !strings.Contains(out, `stderr: "bad input file"`) {
		t.Fatalf("expected quoted value: %q", out)
	}
	if !strings.Contains(out, `empty: ""`) {
		t.Fatalf("expected quoted empty value: %q", out)
	}
}
