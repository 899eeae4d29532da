package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"reencode/internal/logging"
	"reencode/internal/services"
)

const minWaitDelay = time.Second

// Execute runs stages as one pipe chain and waits for every process.
//
// The returned error covers failures to run the chain at all (empty chain,
// a stage that could not start, cancellation, deadline). A chain that ran to
// completion returns a nil error even when stages exited non-zero; use
// Classify on the Result for that verdict.
func Execute(ctx context.Context, stages []Stage, opts Options) (Result, error) {
	if len(stages) == 0 {
		return Result{}, services.Wrap(services.ErrValidation, "pipeline", "execute", "empty pipeline", nil)
	}
	for i, stage := range stages {
		if len(stage.Args) == 0 {
			return Result{}, services.Wrap(services.ErrValidation, "pipeline", "execute", fmt.Sprintf("stage %d has no argv", i), nil)
		}
	}
	if err := ctx.Err(); err != nil {
		return Result{}, contextError(ctx)
	}

	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}

	run := &chain{
		stages:  stages,
		opts:    opts,
		cmds:    make([]*exec.Cmd, len(stages)),
		stderr:  make([]*tailBuffer, len(stages)),
		started: make([]time.Time, len(stages)),
		ended:   make([]time.Time, len(stages)),
	}
	begin := time.Now()
	startErr := run.start(ctx)
	if startErr != nil {
		// Tear down whatever did start; nothing is left to feed it.
		run.terminate(syscall.SIGKILL)
	}
	run.wait()
	run.finish()

	result := run.result()
	result.Duration = time.Since(begin)

	logger.Debug("pipeline finished",
		logging.String("command", Render(stages)),
		logging.Duration("duration", result.Duration),
		logging.Bool("cancelled", ctx.Err() != nil),
	)

	if startErr != nil {
		if ctx.Err() != nil {
			return result, contextError(ctx)
		}
		return result, startErr
	}
	if ctx.Err() != nil {
		return result, contextError(ctx)
	}
	return result, nil
}

type chain struct {
	stages  []Stage
	opts    Options
	cmds    []*exec.Cmd
	stderr  []*tailBuffer
	started []time.Time
	ended   []time.Time

	pgid      int
	mu        sync.Mutex
	termOnce  sync.Once
	killTimer *time.Timer
}

func (c *chain) start(ctx context.Context) error {
	var upstream *os.File
	defer func() {
		if upstream != nil {
			_ = upstream.Close()
		}
	}()

	for i, stage := range c.stages {
		cmd := exec.CommandContext(ctx, stage.Args[0], stage.Args[1:]...)
		cmd.Dir = c.opts.Dir
		if len(c.opts.Env) > 0 {
			cmd.Env = c.opts.Env
		}
		joinGroup(cmd, c.pgid)
		cmd.Cancel = func() error {
			c.terminate(syscall.SIGTERM)
			return nil
		}
		cmd.WaitDelay = max(c.opts.KillGrace, 0) + minWaitDelay

		if i == 0 {
			cmd.Stdin = c.opts.Stdin
		} else {
			cmd.Stdin = upstream
		}

		var downstream, nextUpstream *os.File
		if i == len(c.stages)-1 {
			cmd.Stdout = c.opts.Stdout
		} else {
			r, w, err := os.Pipe()
			if err != nil {
				return services.Wrap(services.ErrExternalTool, "pipeline", "pipe", fmt.Sprintf("stage %d", i), err)
			}
			downstream, nextUpstream = w, r
			cmd.Stdout = w
		}

		c.stderr[i] = newTailBuffer(c.opts.StderrLimit)
		cmd.Stderr = c.stderr[i]

		err := cmd.Start()
		// The child holds its own copies of the pipe ends now.
		if downstream != nil {
			_ = downstream.Close()
		}
		if upstream != nil {
			_ = upstream.Close()
			upstream = nil
		}
		if err != nil {
			if nextUpstream != nil {
				_ = nextUpstream.Close()
			}
			return services.Wrap(services.ErrExternalTool, "pipeline", "start", fmt.Sprintf("stage %d (%s)", i, stage.Args[0]), err)
		}
		upstream = nextUpstream

		c.started[i] = time.Now()
		c.cmds[i] = cmd
		if i == 0 {
			c.mu.Lock()
			c.pgid = cmd.Process.Pid
			c.mu.Unlock()
		}
	}
	return nil
}

// terminate signals the whole group once. SIGTERM arms a SIGKILL follow-up
// after the grace period.
func (c *chain) terminate(sig syscall.Signal) {
	c.termOnce.Do(func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.pgid == 0 {
			return
		}
		pgid := c.pgid
		if err := signalGroup(pgid, sig); err != nil || sig == syscall.SIGKILL {
			_ = signalGroup(pgid, syscall.SIGKILL)
			return
		}
		grace := c.opts.KillGrace
		c.killTimer = time.AfterFunc(grace, func() {
			_ = signalGroup(pgid, syscall.SIGKILL)
		})
	})
}

func (c *chain) wait() {
	var wg sync.WaitGroup
	for i, cmd := range c.cmds {
		if cmd == nil {
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			// Exit status comes from ProcessState; the returned error only
			// repeats it or reports context and WaitDelay bookkeeping.
			_ = cmd.Wait()
			c.ended[i] = time.Now()
		}()
	}
	wg.Wait()
}

// finish reaps stragglers that escaped the stage processes but stayed in
// the group, then disarms the kill timer.
func (c *chain) finish() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.killTimer != nil {
		c.killTimer.Stop()
	}
	_ = signalGroup(c.pgid, syscall.SIGKILL)
}

func (c *chain) result() Result {
	out := Result{Stages: make([]StageResult, len(c.stages))}
	for i, stage := range c.stages {
		res := StageResult{
			Ordinal:  i,
			Args:     append([]string(nil), stage.Args...),
			ExitCode: -1,
		}
		if cmd := c.cmds[i]; cmd != nil {
			res.Started = true
			res.ExitCode, res.Signal = exitStatus(cmd.ProcessState)
			res.Duration = c.ended[i].Sub(c.started[i])
		}
		if c.stderr[i] != nil {
			res.Stderr, res.StderrTruncated = c.stderr[i].Bytes()
		}
		out.Stages[i] = res
	}
	return out
}

func contextError(ctx context.Context) error {
	err := ctx.Err()
	if errors.Is(err, context.DeadlineExceeded) {
		return services.Wrap(services.ErrTimeout, "pipeline", "execute", "deadline exceeded", err)
	}
	if cause := context.Cause(ctx); cause != nil && !errors.Is(cause, err) {
		return fmt.Errorf("%w: %w: %w", services.ErrCancelled, err, cause)
	}
	return fmt.Errorf("%w: %w", services.ErrCancelled, err)
}
