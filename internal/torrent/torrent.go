// Package torrent builds .torrent files for finished transcodes.
package torrent

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"reencode/internal/logging"
	"reencode/internal/pipeline"
	"reencode/internal/services"
)

// Packager wraps mktorrent.
type Packager struct {
	Binary string
	// Source is the tracker source tag embedded with -s. Empty omits it.
	Source    string
	KillGrace time.Duration
	Logger    *slog.Logger
}

// Package creates a private torrent for inputDir in outputDir and returns the
// torrent file path. The announce URL is trackerURL/passkey/announce.
func (p *Packager) Package(ctx context.Context, inputDir, outputDir, trackerURL, passkey string) (string, error) {
	if strings.TrimSpace(trackerURL) == "" || strings.TrimSpace(passkey) == "" {
		return "", services.Wrap(services.ErrConfiguration, "torrent", "announce", "tracker announce_url and passkey are required", nil)
	}
	info, err := os.Stat(inputDir)
	if err != nil {
		return "", services.Wrap(services.ErrNotFound, "torrent", "stat input", inputDir, err)
	}
	if !info.IsDir() {
		return "", services.Wrap(services.ErrValidation, "torrent", "stat input", inputDir+" is not a directory", nil)
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", services.Wrap(services.ErrConfiguration, "torrent", "create output dir", outputDir, err)
	}

	out := filepath.Join(outputDir, filepath.Base(filepath.Clean(inputDir))+".torrent")
	if _, err := os.Lstat(out); err == nil {
		return "", services.Wrap(services.ErrValidation, "torrent", "create", out+" already exists", nil)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return "", services.Wrap(services.ErrConfiguration, "torrent", "stat output", out, err)
	}

	args := []string{p.binary(), "-p"}
	if p.Source != "" {
		args = append(args, "-s", p.Source)
	}
	args = append(args, "-a", AnnounceURL(trackerURL, passkey), "-o", out, inputDir)

	logger := logging.NewComponentLogger(p.Logger, "torrent")
	// The announce URL embeds the passkey, so the command line is not logged.
	logger.Debug("creating torrent", logging.String("input", inputDir), logging.String("output", out))

	result, err := pipeline.Execute(ctx, []pipeline.Stage{{Args: args}}, pipeline.Options{
		KillGrace: p.KillGrace,
		Logger:    logger,
	})
	if err == nil {
		err = pipeline.Classify(result)
	}
	if err != nil {
		_ = os.Remove(out)
		return "", fmt.Errorf("mktorrent %s: %w", filepath.Base(inputDir), err)
	}
	logger.Info("torrent created",
		logging.String(logging.FieldEventType, "torrent_created"),
		logging.String("path", out),
	)
	return out, nil
}

// AnnounceURL joins a tracker base URL and passkey.
func AnnounceURL(trackerURL, passkey string) string {
	return strings.TrimRight(trackerURL, "/") + "/" + passkey + "/announce"
}

func (p *Packager) binary() string {
	if strings.TrimSpace(p.Binary) == "" {
		return "mktorrent"
	}
	return p.Binary
}
