package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"reencode/internal/preflight"
)

// checkStatus is the outcome shown for one preflight result.
type checkStatus string

const (
	checkOK       checkStatus = "OK"
	checkOptional checkStatus = "OPTIONAL"
	checkFail     checkStatus = "FAIL"
)

const (
	ansiReset  = "\x1b[0m"
	ansiBold   = "\x1b[1m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
)

const checkLabelWidth = 20

func statusOf(r preflight.Result) checkStatus {
	switch {
	case r.Passed:
		return checkOK
	case r.Optional:
		return checkOptional
	default:
		return checkFail
	}
}

func (s checkStatus) color() string {
	switch s {
	case checkOK:
		return ansiGreen
	case checkOptional:
		return ansiYellow
	default:
		return ansiRed
	}
}

// renderCheckReport writes one line per result followed by a tally. Only the
// status tag is coloured.
func renderCheckReport(w io.Writer, results []preflight.Result, colorize bool) {
	title := "reencode check"
	if colorize {
		title = ansiBold + title + ansiReset
	}
	fmt.Fprintln(w, title)

	counts := map[checkStatus]int{}
	for _, r := range results {
		status := statusOf(r)
		counts[status]++
		tag := "[" + string(status) + "]"
		if colorize {
			tag = status.color() + tag + ansiReset
		}
		line := fmt.Sprintf("  %-*s %s", checkLabelWidth, r.Name+":", tag)
		if detail := strings.TrimSpace(r.Detail); detail != "" {
			line += " " + detail
		}
		fmt.Fprintln(w, line)
	}
	fmt.Fprintf(w, "%d ok, %d optional missing, %d failed\n", counts[checkOK], counts[checkOptional], counts[checkFail])
}

func shouldColorize(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
