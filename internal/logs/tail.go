package logs

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"reencode/internal/logging"
	"reencode/internal/services"
)

const (
	maxLineBytes        = 1024 * 1024
	defaultPollInterval = 250 * time.Millisecond
)

// Match reports whether a raw log line should be shown.
type Match func(line string) bool

// Options controls Tail.
type Options struct {
	// Lines is the number of trailing lines to return. Zero returns none and
	// only positions the offset at the end of the file.
	Lines int
	Match Match
}

// Result holds tailed lines and the byte offset just past them.
type Result struct {
	Lines  []string
	Offset int64
}

// Latest returns the newest daily log file in dir.
func Latest(dir string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, logging.LogFilePattern))
	if err != nil {
		return "", fmt.Errorf("list log files: %w", err)
	}
	if len(matches) == 0 {
		return "", services.Wrap(services.ErrNotFound, "logs", "latest", "no log files in "+dir, nil)
	}
	// Daily names sort chronologically.
	slices.Sort(matches)
	return matches[len(matches)-1], nil
}

// RunFilter matches JSON records whose run_id starts with prefix.
func RunFilter(prefix string) Match {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return nil
	}
	return func(line string) bool {
		var record struct {
			RunID string `json:"run_id"`
		}
		if err := json.Unmarshal([]byte(line), &record); err != nil {
			return false
		}
		return strings.HasPrefix(record.RunID, prefix)
	}
}

// Tail returns the last opts.Lines matching lines of path.
func Tail(path string, opts Options) (Result, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Result{}, nil
		}
		return Result{}, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return Result{}, fmt.Errorf("stat log file: %w", err)
	}
	if info.IsDir() {
		return Result{}, fmt.Errorf("log path %q is a directory", path)
	}
	if opts.Lines <= 0 {
		return Result{Offset: info.Size()}, nil
	}

	ring := make([]string, opts.Lines)
	count, next := 0, 0
	offset, err := scanLines(file, 0, func(line string) {
		if opts.Match != nil && !opts.Match(line) {
			return
		}
		ring[next] = line
		next = (next + 1) % len(ring)
		if count < len(ring) {
			count++
		}
	})
	if err != nil {
		return Result{}, err
	}

	lines := make([]string, 0, count)
	start := 0
	if count == len(ring) {
		start = next
	}
	for i := range count {
		lines = append(lines, ring[(start+i)%len(ring)])
	}
	return Result{Lines: lines, Offset: offset}, nil
}

// Follow polls path from offset and calls emit for each new matching line
// until ctx ends. A file that shrinks is read again from the start.
func Follow(ctx context.Context, path string, offset int64, interval time.Duration, match Match, emit func(string) error) error {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		next, err := readFrom(path, offset, match, emit)
		if err != nil {
			return err
		}
		offset = next

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func readFrom(path string, offset int64, match Match, emit func(string) error) (int64, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		return offset, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return offset, fmt.Errorf("stat log file: %w", err)
	}
	if info.Size() < offset {
		offset = 0
	}
	if info.Size() == offset {
		return offset, nil
	}

	var emitErr error
	next, err := scanLines(file, offset, func(line string) {
		if emitErr != nil || (match != nil && !match(line)) {
			return
		}
		emitErr = emit(line)
	})
	if err != nil {
		return offset, err
	}
	return next, emitErr
}

// scanLines reads complete lines starting at offset and returns the offset
// after the last newline. A trailing partial line is left for the next read.
func scanLines(file *os.File, offset int64, fn func(string)) (int64, error) {
	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return offset, fmt.Errorf("seek log file: %w", err)
	}
	reader := bufio.NewReaderSize(file, 64*1024)
	for {
		line, err := reader.ReadString('\n')
		if errors.Is(err, io.EOF) {
			return offset, nil
		}
		if err != nil {
			return offset, fmt.Errorf("read log file: %w", err)
		}
		offset += int64(len(line))
		if len(line) > maxLineBytes {
			continue
		}
		fn(strings.TrimRight(line, "\r\n"))
	}
}
