package transcode

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/google/uuid"

	"reencode/internal/codec"
	"reencode/internal/config"
	"reencode/internal/logging"
	"reencode/internal/pipeline"
	"reencode/internal/services"
	"reencode/internal/tags"
)

// State is a coordinator lifecycle state.
type State string

const (
	StateInit        State = "init"
	StatePlanning    State = "planning"
	StateRunningPool State = "running_pool"
	StateFinalizing  State = "finalizing"
	StateDone        State = "done"
	StateRolledBack  State = "rolled_back"
	StateNoOp        State = "noop"
)

// Request describes one release transcode.
type Request struct {
	SourceDir string
	// OutputDir is the directory to create. When empty, a name is derived
	// from the source directory and placed under the configured output parent.
	OutputDir   string
	Codec       string
	MaxParallel int
}

// Job is one source file's unit of work.
type Job struct {
	Source string
	// Dest is the output path without the codec extension.
	Dest string
	Rel  string
}

// JobResult records what happened to one job.
type JobResult struct {
	Job      Job
	Output   string
	Skipped  bool
	Err      error
	Result   pipeline.Result
	Duration time.Duration
}

// Outcome summarizes a release run, successful or not.
type Outcome struct {
	RunID     string
	State     State
	SourceDir string
	Dir       string
	Codec     codec.Codec
	Profile   SourceProfile
	Jobs      []JobResult
	Auxiliary int
	Started   time.Time
	Finished  time.Time
}

// Transcoder coordinates release transcodes.
type Transcoder struct {
	Catalog     *codec.Catalog
	Store       tags.Store
	Binaries    config.Binaries
	Collapse    bool
	OutputRoot  string
	Parallelism int
	PoolTimeout time.Duration
	// JobTimeout bounds one file's pipeline. Zero disables it.
	JobTimeout          time.Duration
	KillGrace           time.Duration
	StderrLimit         int
	AuxiliaryExtensions []string
	LockDir             string
	Logger              *slog.Logger
}

// New builds a Transcoder from configuration.
func New(cfg *config.Config, store tags.Store, catalog *codec.Catalog, logger *slog.Logger) *Transcoder {
	return &Transcoder{
		Catalog:             catalog,
		Store:               store,
		Binaries:            cfg.Binaries,
		Collapse:            cfg.Transcode.CollapseLosslessResample,
		OutputRoot:          cfg.Paths.OutputDir,
		Parallelism:         cfg.Transcode.Parallelism,
		PoolTimeout:         cfg.PoolTimeout(),
		JobTimeout:          cfg.JobTimeout(),
		KillGrace:           cfg.KillGrace(),
		StderrLimit:         cfg.StderrLimit(),
		AuxiliaryExtensions: cfg.Transcode.AuxiliaryExtensions,
		LockDir:             cfg.LockDir(),
		Logger:              logger,
	}
}

// TranscodeRelease transcodes every FLAC file under req.SourceDir.
//
// On success the outcome's Dir is the new directory, or the source directory
// itself when a FLAC target needs no resampling. On any failure after the
// output directory was created, the directory is removed before returning.
func (t *Transcoder) TranscodeRelease(ctx context.Context, req Request) (Outcome, error) {
	out := Outcome{RunID: uuid.NewString(), State: StateInit, Started: time.Now()}
	ctx = services.WithRunID(ctx, out.RunID)
	logger := logging.NewComponentLogger(t.Logger, "transcode")

	err := t.transcode(ctx, req, &out, logger)
	out.Finished = time.Now()
	if err != nil {
		logging.ErrorWithContext(logging.WithContext(ctx, logger), "release transcode failed", "release_failed",
			logging.String("kind", string(Kind(err))),
			logging.String("state", string(out.State)),
			logging.Bool("user_actionable", services.IsUserActionable(err)),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, errorHint(err)),
		)
		return out, err
	}
	logging.WithContext(ctx, logger).Info("release transcode finished",
		logging.String(logging.FieldEventType, "release_done"),
		logging.String("state", string(out.State)),
		logging.String("dir", out.Dir),
		logging.Int("files", len(out.Jobs)),
		logging.Int("auxiliary", out.Auxiliary),
		logging.Duration("elapsed", out.Finished.Sub(out.Started)),
	)
	return out, nil
}

func (t *Transcoder) transcode(ctx context.Context, req Request, out *Outcome, logger *slog.Logger) error {
	// Init
	source, err := filepath.Abs(req.SourceDir)
	if err != nil {
		return services.Wrap(services.ErrValidation, "init", "resolve source", req.SourceDir, err)
	}
	out.SourceDir = source
	info, err := os.Stat(source)
	if err != nil {
		return services.Wrap(services.ErrNotFound, "init", "stat source", source, err)
	}
	if !info.IsDir() {
		return services.Wrap(services.ErrValidation, "init", "stat source", source+" is not a directory", nil)
	}

	target, ok := t.catalog().Lookup(req.Codec)
	if !ok {
		return fmt.Errorf("%w: %q (known: %s)", ErrUnsupportedTarget, req.Codec, strings.Join(t.catalog().Names(), ", "))
	}
	out.Codec = target
	if PreEmphasised(filepath.Base(source)) {
		return fmt.Errorf("%w: %s is marked pre-emphasised", ErrUnsupportedTarget, filepath.Base(source))
	}

	var outputDir string
	if req.OutputDir != "" {
		if outputDir, err = filepath.Abs(req.OutputDir); err != nil {
			return services.Wrap(services.ErrValidation, "init", "resolve output", req.OutputDir, err)
		}
		if err := ensureAbsent(outputDir); err != nil {
			return err
		}
	}

	files, err := sourceFiles(source)
	if err != nil {
		return services.Wrap(services.ErrValidation, "init", "list source", source, err)
	}
	if len(files) == 0 {
		return fmt.Errorf("%w: no .flac files under %s", ErrNoSourceFiles, source)
	}

	// Planning
	out.State = StatePlanning
	ctx = services.WithStage(ctx, string(StatePlanning))
	profile, err := Analyze(ctx, t.Store, files)
	if err != nil {
		return err
	}
	out.Profile = profile
	logging.WithContext(ctx, logger).Info("source analyzed",
		logging.Int("files", len(files)),
		logging.Int("max_sample_rate", profile.MaxSampleRate),
		logging.Int("max_bits_per_sample", profile.MaxBitsPerSample),
		logging.Int("max_channels", profile.MaxChannels),
		logging.Bool("resample", profile.NeedsResample),
		logging.Int("target_rate", profile.TargetSampleRate),
		logging.Bool("downmix", profile.NeedsDownmix),
	)

	// Only a FLAC target can reuse the source as is.
	if target.Family == codec.FamilyFlac && !profile.NeedsResample {
		out.State = StateNoOp
		out.Dir = source
		return nil
	}

	if outputDir == "" {
		outputDir = filepath.Join(t.OutputRoot, DirName(source, target, profile))
		if err := ensureAbsent(outputDir); err != nil {
			return err
		}
	}
	if within(outputDir, source) {
		return services.Wrap(services.ErrValidation, "planning", "output", "output directory may not live inside the source", nil)
	}

	lock, err := acquireOutputLock(t.LockDir, outputDir)
	if err != nil {
		return err
	}
	defer lock.release()

	if err := os.MkdirAll(filepath.Dir(outputDir), 0o755); err != nil {
		return services.Wrap(services.ErrConfiguration, "planning", "create output parent", filepath.Dir(outputDir), err)
	}
	if err := os.Mkdir(outputDir, 0o755); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("%w: %s", ErrOutputAlreadyExists, outputDir)
		}
		return services.Wrap(services.ErrConfiguration, "planning", "create output", outputDir, err)
	}
	out.Dir = outputDir

	// Everything past this point rolls back on failure.
	if err := t.fill(ctx, source, outputDir, files, target, profile, req.MaxParallel, out, logger); err != nil {
		if rmErr := os.RemoveAll(outputDir); rmErr != nil {
			logging.WarnWithContext(logger, "rollback incomplete", "rollback_failed",
				logging.String("dir", outputDir),
				logging.Error(rmErr),
				logging.String(logging.FieldImpact, "partial output remains on disk"),
				logging.String(logging.FieldErrorHint, "remove the directory by hand before retrying"),
			)
		}
		out.State = StateRolledBack
		return err
	}
	out.State = StateDone
	return nil
}

func (t *Transcoder) fill(ctx context.Context, source, outputDir string, files []string, target codec.Codec, profile SourceProfile, parallel int, out *Outcome, logger *slog.Logger) error {
	jobs := make([]Job, 0, len(files))
	for _, file := range files {
		rel, err := filepath.Rel(source, file)
		if err != nil {
			return services.Wrap(services.ErrValidation, "planning", "relative path", file, err)
		}
		jobs = append(jobs, Job{
			Source: file,
			Dest:   filepath.Join(outputDir, strings.TrimSuffix(rel, filepath.Ext(rel))),
			Rel:    rel,
		})
	}

	out.State = StateRunningPool
	if parallel <= 0 {
		parallel = t.Parallelism
	}
	if parallel <= 0 {
		parallel = runtime.NumCPU()
	}
	results, err := t.runPool(services.WithStage(ctx, string(StateRunningPool)), jobs, target, profile, parallel)
	out.Jobs = results
	if err != nil {
		return err
	}

	out.State = StateFinalizing
	copied, err := copyAuxiliary(ctx, source, outputDir, t.AuxiliaryExtensions)
	out.Auxiliary = copied
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("%w: %w", services.ErrCancelled, ctx.Err())
		}
		return services.Wrap(services.ErrExternalTool, "finalizing", "copy auxiliary files", "", err)
	}
	if ctx.Err() != nil {
		return fmt.Errorf("%w: %w", services.ErrCancelled, ctx.Err())
	}
	return nil
}

func (t *Transcoder) catalog() *codec.Catalog {
	if t.Catalog == nil {
		return codec.Builtin()
	}
	return t.Catalog
}

func ensureAbsent(dir string) error {
	if _, err := os.Lstat(dir); err == nil {
		return fmt.Errorf("%w: %s", ErrOutputAlreadyExists, dir)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return services.Wrap(services.ErrConfiguration, "init", "stat output", dir, err)
	}
	return nil
}

func within(path, root string) bool {
	rel, err := filepath.Rel(root, path)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func errorHint(err error) string {
	switch Kind(err) {
	case KindOutputAlreadyExists:
		return "remove the existing directory or choose another --output"
	case KindUnsupportedTarget:
		return "run `reencode codecs` for the available targets"
	case KindUnsupportedSampleRate:
		return "source sample rate is not a multiple of 44.1 or 48 kHz"
	case KindStageFailed, KindExternalTool:
		return "inspect the failing stage's stderr; run `reencode check` to verify binaries"
	case KindTagCheckFailed:
		return "fix the source tags (artist, album, title, tracknumber) and retry"
	case KindPoolTimeout, KindJobTimeout:
		return "raise transcode.pool_timeout_minutes or transcode.job_timeout_seconds"
	default:
		return "check logs for details"
	}
}
