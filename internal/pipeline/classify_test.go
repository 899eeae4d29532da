package pipeline

import (
	"errors"
	"strings"
	"syscall"
	"testing"

	"reencode/internal/services"
)

func exited(ordinal, code int) StageResult {
	return StageResult{Ordinal: ordinal, Args: []string{"stage"}, Started: true, ExitCode: code}
}

func signaled(ordinal int, sig syscall.Signal) StageResult {
	return StageResult{Ordinal: ordinal, Args: []string{"stage"}, Started: true, ExitCode: -int(sig), Signal: sig}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name      string
		stages    []StageResult
		wantStage int // -1 means success
		wantCode  int
	}{
		{
			name:      "all succeed",
			stages:    []StageResult{exited(0, 0), exited(1, 0), exited(2, 0)},
			wantStage: -1,
		},
		{
			name:      "sigpipe upstream of genuine failure",
			stages:    []StageResult{signaled(0, syscall.SIGPIPE), exited(1, 2)},
			wantStage: 1,
			wantCode:  2,
		},
		{
			name:      "first genuine failure wins",
			stages:    []StageResult{exited(0, 0), exited(1, 3), exited(2, 1)},
			wantStage: 1,
			wantCode:  3,
		},
		{
			name:      "sole sigpipe is promoted",
			stages:    []StageResult{signaled(0, syscall.SIGPIPE), exited(1, 0)},
			wantStage: 0,
			wantCode:  -int(syscall.SIGPIPE),
		},
		{
			name:      "last sigpipe promoted when several",
			stages:    []StageResult{signaled(0, syscall.SIGPIPE), exited(1, 141), exited(2, 0)},
			wantStage: 1,
			wantCode:  141,
		},
		{
			name:      "signal other than sigpipe is genuine",
			stages:    []StageResult{exited(0, 0), signaled(1, syscall.SIGKILL)},
			wantStage: 1,
			wantCode:  -int(syscall.SIGKILL),
		},
		{
			name:      "unstarted stage is a failure",
			stages:    []StageResult{exited(0, 0), {Ordinal: 1, Args: []string{"missing"}, ExitCode: -1}},
			wantStage: 1,
			wantCode:  -1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Classify(Result{Stages: tt.stages})
			if tt.wantStage < 0 {
				if err != nil {
					t.Fatalf("expected success, got %v", err)
				}
				return
			}
			var failed *StageFailedError
			if !errors.As(err, &failed) {
				t.Fatalf("expected StageFailedError, got %v", err)
			}
			if failed.Stage != tt.wantStage || failed.ExitCode != tt.wantCode {
				t.Fatalf("got stage %d code %d, want stage %d code %d", failed.Stage, failed.ExitCode, tt.wantStage, tt.wantCode)
			}
			if len(failed.Results) != len(tt.stages) {
				t.Fatalf("expected all results attached, got %d", len(failed.Results))
			}
			if !errors.Is(err, services.ErrExternalTool) {
				t.Fatal("expected ErrExternalTool marker")
			}
		})
	}
}

func TestStageFailedErrorMessage(t *testing.T) {
	err := &StageFailedError{
		Stage:    1,
		Args:     []string{"lame", "-S"},
		ExitCode: 2,
		Stderr:   []byte("warming up\nUnsupported data format\n"),
	}
	msg := err.Error()
	if !strings.Contains(msg, "stage 1 (lame)") || !strings.Contains(msg, "exit code 2") || !strings.Contains(msg, "Unsupported data format") {
		t.Fatalf("unexpected message %q", msg)
	}

	sig := &StageFailedError{Stage: 0, Args: []string{"flac"}, Signal: syscall.SIGPIPE, ExitCode: -13}
	if !strings.Contains(sig.Error(), "killed by broken pipe") {
		t.Fatalf("unexpected signal message %q", sig.Error())
	}
}

func TestTailBufferKeepsTail(t *testing.T) {
	buf := newTailBuffer(8)
	_, _ = buf.Write([]byte("abcdef"))
	_, _ = buf.Write([]byte("ghij"))
	got, truncated := buf.Bytes()
	if string(got) != "cdefghij" || !truncated {
		t.Fatalf("got %q truncated=%v", got, truncated)
	}

	big := newTailBuffer(4)
	_, _ = big.Write([]byte("0123456789"))
	got, truncated = big.Bytes()
	if string(got) != "6789" || !truncated {
		t.Fatalf("got %q truncated=%v", got, truncated)
	}

	small := newTailBuffer(16)
	_, _ = small.Write([]byte("ok"))
	got, truncated = small.Bytes()
	if string(got) != "ok" || truncated {
		t.Fatalf("got %q truncated=%v", got, truncated)
	}
}

func TestRenderQuotes(t *testing.T) {
	stages := []Stage{
		{Args: []string{"flac", "-dcs", "--", "/music/My Album/01.flac"}},
		{Args: []string{"lame", "-S", "-V", "0", "-", "out.mp3"}},
	}
	got := Render(stages)
	want := `flac -dcs -- "/music/My Album/01.flac" | lame -S -V 0 - out.mp3`
	if got != want {
		t.Fatalf("Render = %q want %q", got, want)
	}
}
