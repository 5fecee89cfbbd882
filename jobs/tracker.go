// Package jobs keeps the in-memory record of background automation runs
// and executes them on a bounded pool of browsers.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"baikuk-automation/models"
	"baikuk-automation/utils"
)

var (
	// ErrTrackerFull is returned by Create when every slot holds an active job.
	ErrTrackerFull = errors.New("jobs: too many active jobs")
	// ErrNotFound is returned for ids the tracker does not know.
	ErrNotFound = errors.New("jobs: unknown job_id")
)

// Recorder receives every job once it reaches a terminal status.
type Recorder interface {
	RecordJob(ctx context.Context, job models.Job) error
}

// Outcome is what a finished run reports back.
type Outcome struct {
	OK      bool
	Reason  string
	Err     error
	LandUse *models.LandUse
	Steps   []models.StepResult
	Extra   map[string]string
}

// Tracker maps job ids to their status records.
type Tracker struct {
	mu       sync.Mutex
	jobs     map[string]*models.Job
	ttl      time.Duration
	maxJobs  int
	now      func() time.Time
	recorder Recorder
	logger   *utils.Logger
}

// NewTracker creates a Tracker. Terminal jobs older than ttl are evicted;
// a ttl of zero keeps them until capacity is needed.
func NewTracker(ttl time.Duration, maxJobs int, logger *utils.Logger) *Tracker {
	if maxJobs < 1 {
		maxJobs = 1
	}
	return &Tracker{
		jobs:    make(map[string]*models.Job),
		ttl:     ttl,
		maxJobs: maxJobs,
		now:     time.Now,
		logger:  logger,
	}
}

// SetRecorder attaches a job history sink.
func (t *Tracker) SetRecorder(r Recorder) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.recorder = r
}

// Create registers a queued job. Kind, Address and Phone are taken from
// spec; id, status and timestamps are assigned here.
func (t *Tracker) Create(spec models.Job) (models.Job, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.jobs) >= t.maxJobs {
		t.evictLocked()
	}
	if len(t.jobs) >= t.maxJobs && !t.evictOldestLocked() {
		return models.Job{}, ErrTrackerFull
	}

	now := t.now()
	job := &models.Job{
		ID:        uuid.NewString(),
		Kind:      spec.Kind,
		Address:   spec.Address,
		Phone:     spec.Phone,
		Status:    models.JobQueued,
		TS:        models.Timestamp(now),
		CreatedAt: now,
		UpdatedAt: now,
	}
	t.jobs[job.ID] = job
	return job.Clone(), nil
}

// MarkRunning moves a queued job to running.
func (t *Tracker) MarkRunning(id string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	job, ok := t.jobs[id]
	if !ok {
		return ErrNotFound
	}
	if job.Status != models.JobQueued {
		return fmt.Errorf("jobs: %s is %s, not queued", id, job.Status)
	}
	t.touchLocked(job)
	job.Status = models.JobRunning
	return nil
}

// Finish records the outcome. ok → done, not ok → fail, error → error.
func (t *Tracker) Finish(id string, out Outcome) error {
	t.mu.Lock()
	job, found := t.jobs[id]
	if !found {
		t.mu.Unlock()
		return ErrNotFound
	}
	if job.Status.Terminal() {
		t.mu.Unlock()
		return fmt.Errorf("jobs: %s already %s", id, job.Status)
	}

	ok := out.OK && out.Err == nil
	job.OK = &ok
	switch {
	case out.Err != nil:
		job.Status = models.JobError
		job.Error = out.Err.Error()
	case out.OK:
		job.Status = models.JobDone
	default:
		job.Status = models.JobFail
		job.Error = out.Reason
	}
	job.LandUse = out.LandUse
	job.Steps = out.Steps
	job.Extra = out.Extra
	t.touchLocked(job)

	snapshot := job.Clone()
	recorder := t.recorder
	t.mu.Unlock()

	if recorder != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := recorder.RecordJob(ctx, snapshot); err != nil {
			t.logger.Warn("[jobs] Recording %s: %v", id, err)
		}
	}
	return nil
}

// Get returns a copy of the job.
func (t *Tracker) Get(id string) (models.Job, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	job, ok := t.jobs[id]
	if !ok {
		return models.Job{}, false
	}
	return job.Clone(), true
}

// Len returns the number of tracked jobs.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.jobs)
}

// Evict drops terminal jobs older than the TTL and returns how many went.
func (t *Tracker) Evict() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.evictLocked()
}

// RunJanitor evicts expired jobs every interval until ctx ends.
func (t *Tracker) RunJanitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := t.Evict(); n > 0 {
				t.logger.Debug("[jobs] Evicted %d expired jobs", n)
			}
		}
	}
}

func (t *Tracker) touchLocked(job *models.Job) {
	now := t.now()
	job.UpdatedAt = now
	job.TS = models.Timestamp(now)
}

func (t *Tracker) evictLocked() int {
	if t.ttl <= 0 {
		return 0
	}
	cutoff := t.now().Add(-t.ttl)
	n := 0
	for id, job := range t.jobs {
		if job.Status.Terminal() && job.UpdatedAt.Before(cutoff) {
			delete(t.jobs, id)
			n++
		}
	}
	return n
}

// evictOldestLocked drops the least recently finished terminal job.
func (t *Tracker) evictOldestLocked() bool {
	var done []*models.Job
	for _, job := range t.jobs {
		if job.Status.Terminal() {
			done = append(done, job)
		}
	}
	if len(done) == 0 {
		return false
	}
	sort.Slice(done, func(i, j int) bool {
		return done[i].UpdatedAt.Before(done[j].UpdatedAt)
	})
	delete(t.jobs, done[0].ID)
	return true
}
