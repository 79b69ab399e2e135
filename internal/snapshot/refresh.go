package snapshot

import (
	"context"
	"fmt"
	"time"

	"github.com/wycliu/parkrwa-backend/internal/spaces"
	"github.com/wycliu/parkrwa-backend/pkg/logger"
)

const defaultRefreshInterval = 10 * time.Second

// RefreshJob runs one full synchronization pass and stores the result.
type RefreshJob struct {
	spaces spaces.Service
	store  *Store
}

// NewRefreshJob builds a refresh job over the given synchronizer and store.
func NewRefreshJob(svc spaces.Service, store *Store) (*RefreshJob, error) {
	if svc == nil {
		return nil, fmt.Errorf("spaces service required")
	}
	if store == nil {
		return nil, fmt.Errorf("snapshot store required")
	}
	return &RefreshJob{spaces: svc, store: store}, nil
}

// Name identifies the job in logs.
func (j *RefreshJob) Name() string { return "snapshot-refresh" }

// Run refreshes both stored views. The asset view and the payment feed are
// independent passes; a failure in one does not block the other, and the
// previous snapshot for a failed view stays in place.
func (j *RefreshJob) Run(ctx context.Context) error {
	var firstErr error

	records, err := j.spaces.FetchAll(ctx)
	if err != nil {
		firstErr = fmt.Errorf("refresh spaces: %w", err)
	} else if err := j.store.SaveSpaces(ctx, records); err != nil {
		firstErr = err
	}

	receipts, err := j.spaces.FetchPayments(ctx)
	if err != nil {
		if firstErr == nil {
			firstErr = fmt.Errorf("refresh payments: %w", err)
		}
	} else if err := j.store.SavePayments(ctx, receipts); err != nil {
		if firstErr == nil {
			firstErr = err
		}
	}

	return firstErr
}

// RunnerParams configure the refresh runner.
type RunnerParams struct {
	Logger   *logger.Logger
	Lock     Lock
	Job      *RefreshJob
	Interval time.Duration
}

// Runner executes the refresh job on a fixed cadence, skipping cycles another
// replica already owns.
type Runner struct {
	logg     *logger.Logger
	lock     Lock
	job      *RefreshJob
	interval time.Duration
}

// NewRunner builds a refresh runner.
func NewRunner(params RunnerParams) (*Runner, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Lock == nil {
		return nil, fmt.Errorf("lock required")
	}
	if params.Job == nil {
		return nil, fmt.Errorf("job required")
	}
	interval := params.Interval
	if interval <= 0 {
		interval = defaultRefreshInterval
	}
	return &Runner{
		logg:     params.Logger,
		lock:     params.Lock,
		job:      params.Job,
		interval: interval,
	}, nil
}

// Run starts the refresh loop until the context is canceled.
func (r *Runner) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := r.runCycle(ctx); err != nil {
		r.logg.Error(ctx, "refresh run failed", err)
	}
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logg.Info(ctx, "refresh runner context canceled")
			return ctx.Err()
		case <-ticker.C:
			if err := r.runCycle(ctx); err != nil {
				r.logg.Error(ctx, "refresh run failed", err)
			}
		}
	}
}

func (r *Runner) runCycle(ctx context.Context) error {
	locked, err := r.lock.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("lock acquire: %w", err)
	}
	if !locked {
		r.logg.Info(ctx, "another refresh worker holds the lock; skipping this cycle")
		return nil
	}
	defer func() {
		if relErr := r.lock.Release(ctx); relErr != nil {
			r.logg.Error(ctx, "failed to release refresh lock", relErr)
		}
	}()

	jobCtx := r.logg.WithField(ctx, "job", r.job.Name())
	r.logg.Info(jobCtx, "refresh starting")
	start := time.Now()
	runErr := r.job.Run(jobCtx)
	jobCtx = r.logg.WithField(jobCtx, "duration_ms", time.Since(start).Milliseconds())
	if runErr != nil {
		r.logg.Error(jobCtx, "refresh failed", runErr)
		return runErr
	}
	r.logg.Info(jobCtx, "refresh complete")
	return nil
}
