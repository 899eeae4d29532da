package pipeline

import (
	"io"
	"log/slog"
	"strconv"
	"strings"
	"syscall"
	"time"
)

// DefaultStderrLimit is the per-stage stderr tail kept when Options leaves it unset.
const DefaultStderrLimit = 64 * 1024

// Stage is one process in a chain.
type Stage struct {
	Args    []string
	Ordinal int
}

// String renders the argv for logs. The rendering is never executed.
func (s Stage) String() string {
	return quoteArgs(s.Args)
}

// StageResult is the outcome of one stage.
type StageResult struct {
	Ordinal int
	Args    []string
	// Started is false when the chain failed before this stage was launched.
	Started bool
	// ExitCode is the process exit status, or the negated signal number when
	// the process was killed by a signal.
	ExitCode        int
	Signal          syscall.Signal
	Stderr          []byte
	StderrTruncated bool
	Duration        time.Duration
}

// Success reports whether the stage ran and exited zero.
func (r StageResult) Success() bool {
	return r.Started && r.ExitCode == 0
}

// BrokenPipe reports whether the stage died writing to a closed pipe, either
// directly through SIGPIPE or as a shell-style 128+SIGPIPE exit.
func (r StageResult) BrokenPipe() bool {
	if !r.Started {
		return false
	}
	if r.Signal == syscall.SIGPIPE {
		return true
	}
	return r.Signal == 0 && r.ExitCode == 128+int(syscall.SIGPIPE)
}

// Result holds one StageResult per stage in stage order.
type Result struct {
	Stages   []StageResult
	Duration time.Duration
}

// Options tunes one Execute call.
type Options struct {
	// Stdin feeds the first stage. Nil reads from the null device.
	Stdin io.Reader
	// Stdout receives the last stage's output. Nil discards it.
	Stdout io.Writer
	Dir    string
	Env    []string
	// StderrLimit bounds the captured stderr tail per stage.
	StderrLimit int
	// KillGrace is the delay between SIGTERM and SIGKILL on cancellation.
	KillGrace time.Duration
	Logger    *slog.Logger
}

func quoteArgs(args []string) string {
	parts := make([]string, len(args))
	for i, arg := range args {
		if arg == "" || strings.ContainsAny(arg, " \t\n\"'\\$`|&;<>()*?[]#~") {
			parts[i] = strconv.Quote(arg)
			continue
		}
		parts[i] = arg
	}
	return strings.Join(parts, " ")
}

// Render formats a chain as a single pipe expression for logs.
func Render(stages []Stage) string {
	parts := make([]string, len(stages))
	for i, stage := range stages {
		parts[i] = stage.String()
	}
	return strings.Join(parts, " | ")
}
