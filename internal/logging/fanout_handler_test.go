package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestNewFanoutHandlerCollapses(t *testing.T) {
	if _, ok := newFanoutHandler(nil, nil).(noopHandler); !ok {
		t.Fatal("expected noop handler when every handler is nil")
	}
	var buf bytes.Buffer
	inner := slog.NewJSONHandler(&buf, nil)
	if h := newFanoutHandler(nil, inner); h != inner {
		t.Fatal("expected single non-nil handler to be returned unwrapped")
	}
}

func TestFanoutHandlerRespectsPerHandlerLevel(t *testing.T) {
	var infoBuf, debugBuf bytes.Buffer
	info := slog.NewJSONHandler(&infoBuf, &slog.HandlerOptions{Level: slog.LevelInfo})
	debug := slog.NewJSONHandler(&debugBuf, &slog.HandlerOptions{Level: slog.LevelDebug})

	h := newFanoutHandler(info, debug)
	if !h.Enabled(context.Background(), slog.LevelDebug) {
		t.Fatal("expected fanout enabled for debug")
	}

	logger := slog.New(h)
	logger.Debug("debug only")
	logger.Info("both")

	if strings.Contains(infoBuf.String(), "debug only") {
		t.Fatalf("info handler received debug record: %s", infoBuf.String())
	}
	if !strings.Contains(debugBuf.String(), "debug only") || !strings.Contains(debugBuf.String(), "both") {
		t.Fatalf("debug handler missing records: %s", debugBuf.String())
	}
	if !strings.Contains(infoBuf.String(), "both") {
		t.Fatalf("info handler missing info record: %s", infoBuf.String())
	}
}

func TestTeeLoggerCarriesAttrs(t *testing.T) {
	var baseBuf, extraBuf bytes.Buffer
	base := slog.New(slog.NewJSONHandler(&baseBuf, nil))
	extra := slog.NewJSONHandler(&extraBuf, nil)

	logger := TeeLogger(base, extra).With("job", "01.flac")
	logger.Info("encoded")

	for name, buf := range map[string]*bytes.Buffer{"base": &baseBuf, "extra": &extraBuf} {
		if !strings.Contains(buf.String(), `"job":"01.flac"`) {
			t.Fatalf("%s handler missing attr: %s", name, buf.String())
		}
	}
}
