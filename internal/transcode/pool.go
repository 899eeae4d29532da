package transcode

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"reencode/internal/codec"
	"reencode/internal/logging"
	"reencode/internal/pipeline"
	"reencode/internal/services"
	"reencode/internal/tags"
)

var (
	errJobFailed    = errors.New("a transcode job failed")
	errPoolDeadline = errors.New("transcode pool deadline reached")
)

// runPool runs jobs on at most parallel workers. The first failure cancels
// every running pipeline and skips the jobs still queued. Workers are always
// joined before runPool returns.
func (t *Transcoder) runPool(ctx context.Context, jobs []Job, target codec.Codec, profile SourceProfile, parallel int) ([]JobResult, error) {
	results := make([]JobResult, len(jobs))
	for i, job := range jobs {
		results[i] = JobResult{Job: job, Skipped: true}
	}
	if len(jobs) == 0 {
		return results, nil
	}
	parallel = max(1, min(parallel, len(jobs)))

	poolCtx, stopTimer := context.WithTimeoutCause(ctx, t.poolTimeout(), errPoolDeadline)
	defer stopTimer()
	poolCtx, abort := context.WithCancelCause(poolCtx)
	defer abort(nil)

	var (
		aborted  atomic.Bool
		failOnce sync.Once
		firstErr error
	)
	fail := func(err error) {
		failOnce.Do(func() {
			firstErr = err
			aborted.Store(true)
			abort(errJobFailed)
		})
	}

	queue := make(chan int)
	var wg sync.WaitGroup
	for range parallel {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range queue {
				if aborted.Load() || poolCtx.Err() != nil {
					continue
				}
				results[i] = t.runJob(poolCtx, jobs[i], target, profile)
				if err := results[i].Err; err != nil && poolCtx.Err() == nil {
					fail(err)
				}
			}
		}()
	}

feed:
	for i := range jobs {
		select {
		case queue <- i:
		case <-poolCtx.Done():
			break feed
		}
	}
	close(queue)
	wg.Wait()

	switch cause := context.Cause(poolCtx); {
	case cause == nil:
		return results, nil
	case errors.Is(cause, errJobFailed):
		return results, firstErr
	case errors.Is(cause, errPoolDeadline):
		return results, fmt.Errorf("%w after %s", ErrPoolTimeout, t.poolTimeout())
	default:
		return results, fmt.Errorf("%w: %w", services.ErrCancelled, cause)
	}
}

func (t *Transcoder) runJob(ctx context.Context, job Job, target codec.Codec, profile SourceProfile) (res JobResult) {
	res.Job = job
	started := time.Now()
	defer func() { res.Duration = time.Since(started) }()

	ctx = services.WithJob(ctx, job.Rel)
	logger := logging.WithContext(ctx, logging.NewComponentLogger(t.Logger, "transcode"))

	stages, out, err := Plan(job.Source, job.Dest, profile, target, PlanOptions{
		Binaries:                 t.Binaries,
		CollapseLosslessResample: t.Collapse,
	})
	if err != nil {
		res.Err = err
		return res
	}
	res.Output = out
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		res.Err = services.Wrap(services.ErrConfiguration, "transcode", "create directory", filepath.Dir(out), err)
		return res
	}

	runCtx := ctx
	if t.JobTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, t.JobTimeout)
		defer cancel()
	}

	logger.Debug("pipeline starting",
		logging.String(logging.FieldEventType, "job_start"),
		logging.String("pipeline", pipeline.Render(stages)),
	)
	result, err := executePipeline(runCtx, stages, pipeline.Options{
		StderrLimit: t.StderrLimit,
		KillGrace:   t.KillGrace,
		Logger:      logger,
	})
	res.Result = result
	if err == nil {
		err = pipeline.Classify(result)
	}
	if err == nil {
		err = tags.CopyAndVerify(runCtx, t.Store, job.Source, out)
	}
	res.Err = err
	if err != nil {
		logger.Debug("job failed",
			logging.String(logging.FieldEventType, "job_failed"),
			logging.String("kind", string(Kind(err))),
			logging.Error(err),
		)
		return res
	}
	logger.Info("job finished",
		logging.String(logging.FieldEventType, "job_done"),
		logging.String("output", out),
		logging.Duration("elapsed", time.Since(started)),
	)
	return res
}

func (t *Transcoder) poolTimeout() time.Duration {
	if t.PoolTimeout <= 0 {
		return 12 * time.Hour
	}
	return t.PoolTimeout
}
