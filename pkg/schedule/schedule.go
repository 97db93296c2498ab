// pkg/schedule/schedule.go
//
// Package schedule runs a job now and then on a fixed interval, never more
// than one at a time.
package schedule

import (
	"context"
	"errors"
	"time"

	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/panics"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

// ErrInvalidInterval is returned by Start for a non-positive interval.
var ErrInvalidInterval = errors.New("schedule interval must be positive")

// Job is one run. Its context is not cancelled when the scheduler stops, so a
// run in progress always finishes.
type Job func(ctx context.Context) error

// Runner triggers Job every Interval. A tick that arrives while the previous
// run is still going is skipped.
type Runner struct {
	Interval time.Duration
	Job      Job
	Logger   *zap.Logger

	// OnSkip and OnFinish are optional hooks, called from the runner's
	// goroutines.
	OnSkip   func()
	OnFinish func(elapsed time.Duration, err error)

	running atomic.Bool
	runs    atomic.Int64
	skips   atomic.Int64
}

// Start runs the job immediately, then on every tick until ctx is done. It
// waits for the run in progress before returning.
func (r *Runner) Start(ctx context.Context) error {
	if r.Interval <= 0 {
		return ErrInvalidInterval
	}
	logger := r.logger()

	var wg conc.WaitGroup
	defer wg.Wait()

	logger.Info("scheduler started", zap.Duration("interval", r.Interval))
	r.trigger(ctx, &wg)

	ticker := time.NewTicker(r.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			logger.Info("scheduler stopping", zap.Bool("cycle_running", r.running.Load()))
			return nil
		case <-ticker.C:
			r.trigger(ctx, &wg)
		}
	}
}

// Runs returns how many times the job has been started.
func (r *Runner) Runs() int64 { return r.runs.Load() }

// Skips returns how many ticks were skipped.
func (r *Runner) Skips() int64 { return r.skips.Load() }

func (r *Runner) logger() *zap.Logger {
	if r.Logger == nil {
		return zap.NewNop()
	}
	return r.Logger
}

func (r *Runner) trigger(ctx context.Context, wg *conc.WaitGroup) {
	if !r.running.CAS(false, true) {
		r.skips.Inc()
		r.logger().Warn("previous cycle still running, skipping this one")
		if r.OnSkip != nil {
			r.OnSkip()
		}
		return
	}
	r.runs.Inc()
	jobCtx := context.WithoutCancel(ctx)
	wg.Go(func() {
		defer r.running.Store(false)
		r.run(jobCtx)
	})
}

func (r *Runner) run(ctx context.Context) {
	start := time.Now()
	var err error
	var pc panics.Catcher
	pc.Try(func() { err = r.Job(ctx) })
	if rec := pc.Recovered(); rec != nil {
		err = rec.AsError()
		r.logger().Error("cycle panicked", zap.Error(err))
	} else if err != nil {
		r.logger().Error("cycle failed", zap.Error(err))
	}
	if r.OnFinish != nil {
		r.OnFinish(time.Since(start), err)
	}
}
