package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"reencode/internal/config"
	"reencode/internal/deps"
	"reencode/internal/history"
	"reencode/internal/logging"
	"reencode/internal/notifications"
	"reencode/internal/services"
	"reencode/internal/torrent"
	"reencode/internal/transcode"
)

// kindError carries the transcode error class to main for the exit message.
type kindError struct {
	kind transcode.ErrorKind
	err  error
}

func (e *kindError) Error() string {
	return fmt.Sprintf("error (%s): %v", e.kind, e.err)
}

func (e *kindError) Unwrap() error {
	return e.err
}

func newTranscodeCommand(ctx *commandContext) *cobra.Command {
	var (
		outputDir   string
		codecName   string
		parallel    int
		makeTorrent bool
		skipChecks  bool
	)

	cmd := &cobra.Command{
		Use:   "transcode SOURCE",
		Short: "Transcode a FLAC release directory",
		Long: `Transcode every FLAC file in SOURCE into a new release directory.

The new directory is printed on success. When the target is lossless and the
source needs no resampling, the source directory itself is printed and nothing
is written.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			catalog, err := ctx.catalog()
			if err != nil {
				return err
			}

			if !skipChecks {
				if missing := deps.Missing(deps.CheckBinaries(deps.Requirements(cfg.Binaries, makeTorrent))); len(missing) > 0 {
					names := make([]string, 0, len(missing))
					for _, m := range missing {
						names = append(names, m.Command)
					}
					return services.Wrap(services.ErrConfiguration, "preflight", "binaries",
						"missing "+strings.Join(names, ", ")+" (run `reencode check`)", nil)
				}
			}

			tc := transcode.New(cfg, newTagStore(cfg, logger), catalog, logger)
			outcome, runErr := tc.TranscodeRelease(cmd.Context(), transcode.Request{
				SourceDir:   args[0],
				OutputDir:   outputDir,
				Codec:       codecName,
				MaxParallel: parallel,
			})
			run := history.FromOutcome(outcome, runErr)
			recordRun(cmd.Context(), cfg, logger, run)

			if runErr == nil && makeTorrent {
				if outcome.State == transcode.StateNoOp {
					logging.WarnWithContext(logger, "skipping torrent for untouched source", "torrent_skipped",
						logging.String("dir", outcome.Dir),
						logging.String(logging.FieldImpact, "no torrent was created"),
						logging.String(logging.FieldErrorHint, "the source release can be seeded as is"),
					)
				} else {
					path, err := packageTorrent(cmd.Context(), cfg, logger, outcome.Dir)
					if err != nil {
						return err
					}
					attachTorrent(cmd.Context(), cfg, logger, run.RunID, path)
				}
			}
			notifyRun(cmd.Context(), cfg, logger, args[0], codecName, outcome, runErr)

			if runErr != nil {
				return &kindError{kind: transcode.Kind(runErr), err: runErr}
			}
			fmt.Fprintln(cmd.OutOrStdout(), outcome.Dir)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputDir, "output", "o", "", "Output directory (default: derived name under paths.output_dir)")
	cmd.Flags().StringVar(&codecName, "codec", "", "Target codec (see `reencode codecs`)")
	cmd.Flags().IntVarP(&parallel, "parallel", "j", 0, "Maximum concurrent files (default: transcode.parallelism)")
	cmd.Flags().BoolVar(&makeTorrent, "torrent", false, "Create a torrent for the new release in paths.torrent_dir")
	cmd.Flags().BoolVar(&skipChecks, "skip-checks", false, "Skip the external binary preflight")
	_ = cmd.MarkFlagRequired("codec")
	return cmd
}

func packageTorrent(ctx context.Context, cfg *config.Config, logger *slog.Logger, dir string) (string, error) {
	packager := &torrent.Packager{
		Binary:    cfg.Binaries.Mktorrent,
		Source:    cfg.Tracker.Source,
		KillGrace: cfg.KillGrace(),
		Logger:    logger,
	}
	return packager.Package(ctx, dir, cfg.Paths.TorrentDir, cfg.Tracker.AnnounceURL, cfg.Tracker.Passkey)
}

// recordRun stores run in the history database. Failures are logged only.
func recordRun(ctx context.Context, cfg *config.Config, logger *slog.Logger, run history.Run) {
	if run.RunID == "" {
		return
	}
	// Record even when the run was cancelled.
	ctx = context.WithoutCancel(ctx)
	store, err := history.Open(cfg)
	if err == nil {
		defer store.Close()
		_, err = store.Record(ctx, run)
	}
	if err != nil {
		logging.WarnWithContext(logger, "failed to record run history", "history_write_failed",
			logging.String("run_id", run.RunID),
			logging.Error(err),
			logging.String(logging.FieldImpact, "run will be missing from `reencode history`"),
			logging.String(logging.FieldErrorHint, "check paths.state_dir permissions"),
		)
	}
}

// attachTorrent stores the torrent path on an already recorded run.
func attachTorrent(ctx context.Context, cfg *config.Config, logger *slog.Logger, runID, path string) {
	ctx = context.WithoutCancel(ctx)
	store, err := history.Open(cfg)
	if err == nil {
		defer store.Close()
		err = store.SetTorrent(ctx, runID, path)
	}
	if err != nil {
		logging.WarnWithContext(logger, "failed to record torrent path", "history_write_failed",
			logging.String("run_id", runID),
			logging.String("torrent", path),
			logging.Error(err),
			logging.String(logging.FieldImpact, "`reencode history show` will not list the torrent"),
			logging.String(logging.FieldErrorHint, "check paths.state_dir permissions"),
		)
	}
}

// notifyRun pushes the run result to ntfy. NoOp runs are not announced.
func notifyRun(ctx context.Context, cfg *config.Config, logger *slog.Logger, source, codecName string, outcome transcode.Outcome, runErr error) {
	if runErr == nil && outcome.State == transcode.StateNoOp {
		return
	}
	if outcome.SourceDir != "" {
		source = outcome.SourceDir
	}
	if outcome.Codec.Name != "" {
		codecName = outcome.Codec.Name
	}
	ctx = context.WithoutCancel(ctx)
	svc := notifications.NewService(cfg)
	summary := notifications.Summary{
		Source:  source,
		Output:  outcome.Dir,
		Codec:   codecName,
		Files:   len(outcome.Jobs),
		Elapsed: outcome.Finished.Sub(outcome.Started),
	}
	var err error
	if runErr != nil {
		err = svc.NotifyTranscodeFailed(ctx, summary, string(transcode.Kind(runErr)), runErr)
	} else {
		err = svc.NotifyTranscodeCompleted(ctx, summary)
	}
	if err != nil {
		logging.WarnWithContext(logger, "failed to send notification", "notification_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "transcode result was not pushed"),
			logging.String(logging.FieldErrorHint, "check notifications.ntfy_topic"),
		)
	}
}
