package pipeline

import (
	"fmt"
	"strings"
	"syscall"

	"reencode/internal/services"
)

// StageFailedError reports the stage that decided a chain's failure.
type StageFailedError struct {
	Stage    int
	Args     []string
	ExitCode int
	Signal   syscall.Signal
	Stderr   []byte
	// Results holds every stage's outcome for diagnostics.
	Results []StageResult
}

func (e *StageFailedError) Error() string {
	name := "?"
	if len(e.Args) > 0 {
		name = e.Args[0]
	}
	var status string
	if e.Signal != 0 {
		status = "killed by " + e.Signal.String()
	} else {
		status = fmt.Sprintf("exit code %d", e.ExitCode)
	}
	msg := fmt.Sprintf("stage %d (%s) failed: %s", e.Stage, name, status)
	if tail := lastLine(e.Stderr); tail != "" {
		msg += ": " + tail
	}
	return msg
}

// Unwrap lets errors.Is match services.ErrExternalTool.
func (e *StageFailedError) Unwrap() error {
	return services.ErrExternalTool
}

// Classify scans every stage result in order after the chain has finished.
// The first stage that exited non-zero for a reason other than a broken pipe
// is the failure. Broken-pipe stages are expected when a downstream stage
// stops reading early; only when no other stage failed is the last of them
// reported. A nil return means every stage succeeded.
func Classify(result Result) error {
	var lastPipe *StageResult
	for i := range result.Stages {
		stage := &result.Stages[i]
		if stage.Success() {
			continue
		}
		if stage.BrokenPipe() {
			lastPipe = stage
			continue
		}
		return newStageFailed(*stage, result.Stages)
	}
	if lastPipe != nil {
		return newStageFailed(*lastPipe, result.Stages)
	}
	return nil
}

func newStageFailed(stage StageResult, all []StageResult) *StageFailedError {
	return &StageFailedError{
		Stage:    stage.Ordinal,
		Args:     stage.Args,
		ExitCode: stage.ExitCode,
		Signal:   stage.Signal,
		Stderr:   stage.Stderr,
		Results:  all,
	}
}

func lastLine(stderr []byte) string {
	text := strings.TrimSpace(string(stderr))
	if idx := strings.LastIndexByte(text, '\n'); idx >= 0 {
		text = strings.TrimSpace(text[idx+1:])
	}
	const maxLen = 200
	if len(text) > maxLen {
		text = text[:maxLen] + "..."
	}
	return text
}
