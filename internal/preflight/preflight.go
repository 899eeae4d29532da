package preflight

import (
	"context"

	"reencode/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail"`
	// Optional failures are reported but do not block a transcode.
	Optional bool `json:"optional,omitempty"`
}

// RunAll executes every applicable check for cfg. Tracker reachability is
// only checked when torrents are requested.
func RunAll(ctx context.Context, cfg *config.Config, torrents bool) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result
	results = append(results, CheckDirectoryAccess("State directory", cfg.Paths.StateDir))
	results = append(results, CheckCreatable("Output directory", cfg.Paths.OutputDir))
	for _, status := range CheckSystemDeps(cfg, torrents) {
		result := Result{Name: status.Name, Passed: status.Available, Detail: status.Detail, Optional: status.Optional}
		if status.Available {
			result.Detail = status.Path
		}
		results = append(results, result)
	}
	if torrents {
		results = append(results, CheckCreatable("Torrent directory", cfg.Paths.TorrentDir))
		results = append(results, CheckTracker(ctx, cfg.Tracker.AnnounceURL, cfg.Tracker.Passkey))
	}
	return results
}

// Failed returns the non-optional results that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed && !r.Optional {
			failed = append(failed, r)
		}
	}
	return failed
}
