// Package deps reports which external audio tools reencode can find.
package deps

import (
	"fmt"
	"os/exec"
	"strings"

	"reencode/internal/config"
)

// Requirement defines an external binary reencode shells out to.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a requirement.
type Status struct {
	Name        string `json:"name"`
	Command     string `json:"command"`
	Path        string `json:"path,omitempty"`
	Description string `json:"description"`
	Optional    bool   `json:"optional"`
	Available   bool   `json:"available"`
	Detail      string `json:"detail,omitempty"`
}

// Requirements lists the binaries the configured tool set needs. mktorrent is
// only required when torrents are produced.
func Requirements(bins config.Binaries, torrents bool) []Requirement {
	return []Requirement{
		{Name: "flac", Command: bins.Flac, Description: "Decodes FLAC sources and encodes FLAC targets"},
		{Name: "metaflac", Command: bins.Metaflac, Description: "Writes tags on FLAC outputs"},
		{Name: "sox", Command: bins.Sox, Description: "Resamples, dithers and downmixes"},
		{Name: "lame", Command: bins.Lame, Description: "Encodes MP3 targets", Optional: true},
		{Name: "oggenc", Command: bins.Oggenc, Description: "Encodes Ogg Vorbis targets", Optional: true},
		{Name: "ffmpeg", Command: bins.FFmpeg, Description: "Encodes AAC/ALAC targets and remuxes tags"},
		{Name: "ffprobe", Command: bins.FFprobe, Description: "Probes stream properties and reads tags"},
		{Name: "mktorrent", Command: bins.Mktorrent, Description: "Creates torrents for finished transcodes", Optional: !torrents},
	}
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		if cmd == "" {
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		path, err := exec.LookPath(cmd)
		if err != nil {
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
			results = append(results, status)
			continue
		}
		status.Path = path
		status.Available = true
		results = append(results, status)
	}
	return results
}

// Missing returns the required statuses that are unavailable.
func Missing(statuses []Status) []Status {
	var missing []Status
	for _, s := range statuses {
		if !s.Available && !s.Optional {
			missing = append(missing, s)
		}
	}
	return missing
}
