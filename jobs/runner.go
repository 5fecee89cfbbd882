package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"baikuk-automation/models"
	"baikuk-automation/utils"
)

// ErrShutDown is returned by Start once Shutdown has begun.
var ErrShutDown = errors.New("jobs: runner is shut down")

// Func performs one automation run.
type Func func(ctx context.Context) Outcome

// Runner executes jobs on a worker pool and records their outcome.
type Runner struct {
	tracker *Tracker
	pool    *utils.WorkerPool
	timeout time.Duration
	logger  *utils.Logger

	ctx    context.Context
	cancel context.CancelFunc

	// mu orders pool submissions against Shutdown's wait.
	mu     sync.Mutex
	closed bool
}

// NewRunner wires a tracker to a pool. A zero timeout means runs are only
// bounded by Shutdown.
func NewRunner(tracker *Tracker, pool *utils.WorkerPool, timeout time.Duration, logger *utils.Logger) *Runner {
	ctx, cancel := context.WithCancel(context.Background())
	return &Runner{
		tracker: tracker,
		pool:    pool,
		timeout: timeout,
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Tracker exposes the job records.
func (r *Runner) Tracker() *Tracker {
	return r.tracker
}

// Start queues fn and returns the new job without waiting for it.
func (r *Runner) Start(spec models.Job, fn Func) (models.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return models.Job{}, ErrShutDown
	}
	job, err := r.tracker.Create(spec)
	if err != nil {
		return models.Job{}, err
	}
	r.logger.Info("[jobs] %s job %s queued", job.Kind, job.ID)

	r.pool.Submit(func() { r.run(job.ID, job.Kind, fn) })
	return job, nil
}

// Watch tracks work that is already under way elsewhere, such as a child
// process. It bypasses the pool and is marked running at once.
func (r *Runner) Watch(spec models.Job, fn Func) (models.Job, error) {
	job, err := r.tracker.Create(spec)
	if err != nil {
		return models.Job{}, err
	}
	if err := r.tracker.MarkRunning(job.ID); err != nil {
		return models.Job{}, err
	}
	job.Status = models.JobRunning

	go func() {
		out := r.safeCall(context.Background(), fn)
		r.finish(job.ID, job.Kind, out)
	}()
	return job, nil
}

func (r *Runner) run(id string, kind models.JobKind, fn Func) {
	if err := r.ctx.Err(); err != nil {
		r.finish(id, kind, Outcome{Err: errors.New("server shutting down")})
		return
	}
	if err := r.tracker.MarkRunning(id); err != nil {
		r.logger.Warn("[jobs] %v", err)
		return
	}
	r.logger.Info("[jobs] %s job %s running", kind, id)

	ctx := r.ctx
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	r.finish(id, kind, r.safeCall(ctx, fn))
}

func (r *Runner) safeCall(ctx context.Context, fn Func) (out Outcome) {
	defer func() {
		if p := recover(); p != nil {
			out = Outcome{Err: fmt.Errorf("panic: %v", p)}
		}
	}()
	return fn(ctx)
}

func (r *Runner) finish(id string, kind models.JobKind, out Outcome) {
	if err := r.tracker.Finish(id, out); err != nil {
		r.logger.Warn("[jobs] %v", err)
		return
	}
	switch {
	case out.Err != nil:
		r.logger.Error("[jobs] %s job %s error: %v", kind, id, out.Err)
	case out.OK:
		r.logger.Info("[jobs] %s job %s done", kind, id)
	default:
		r.logger.Warn("[jobs] %s job %s failed: %s", kind, id, out.Reason)
	}
}

// Shutdown cancels running jobs and waits for the pool to drain or ctx to end.
func (r *Runner) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	r.closed = true
	r.cancel()
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.pool.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
