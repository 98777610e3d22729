package imagejob

import (
	"log"
	"sync"
	"time"

	"github.com/glowlabs/glowchat/backend/internal/model/imagejob"
	"github.com/glowlabs/glowchat/backend/pkg/ident"
)

const (
	// MaxAge is how long a job is kept, terminal or not. After the sweep a
	// poll sees not-found, which clients treat as terminal failure.
	MaxAge = 10 * time.Minute

	sweepInterval = 5 * time.Minute
)

// Tracker owns all image-generation job state. Jobs are visible to Get the
// moment Create returns, because the client is handed the id before the
// worker has started and may poll immediately.
type Tracker struct {
	mu   sync.RWMutex
	jobs map[string]*imagejob.Job

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// NewTracker bootstraps the in-memory tracker and starts its staleness
// sweeper. Callers must Close it at shutdown.
func NewTracker() *Tracker {
	t := &Tracker{
		jobs: make(map[string]*imagejob.Job),
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	go t.sweepLoop()
	return t
}

// Close stops the background sweeper. Idempotent.
func (t *Tracker) Close() {
	t.stopOnce.Do(func() { close(t.stop) })
	<-t.done
}

// Create allocates a processing job for the prompt.
func (t *Tracker) Create(prompt string) imagejob.Job {
	job := &imagejob.Job{
		ID:        ident.New(ident.KindJob),
		Prompt:    prompt,
		Status:    imagejob.StatusProcessing,
		CreatedAt: time.Now().UTC(),
	}

	t.mu.Lock()
	t.jobs[job.ID] = job
	t.mu.Unlock()

	return *job
}

// Complete transitions processing→done and records the image URL. Reports
// false without touching anything when the job is unknown (already swept)
// or already terminal; a late worker result must not resurrect a job.
func (t *Tracker) Complete(jobID, imageURL string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	job, ok := t.jobs[jobID]
	if !ok || job.Status.Terminal() {
		return false
	}
	job.Status = imagejob.StatusDone
	job.ImageURL = imageURL
	return true
}

// Fail transitions processing→error. Same no-op contract as Complete.
func (t *Tracker) Fail(jobID, reason string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	job, ok := t.jobs[jobID]
	if !ok || job.Status.Terminal() {
		return false
	}
	job.Status = imagejob.StatusError
	job.Error = reason
	return true
}

// Get returns a copy of the job, or ok=false when unknown or swept.
func (t *Tracker) Get(jobID string) (imagejob.Job, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	job, ok := t.jobs[jobID]
	if !ok {
		return imagejob.Job{}, false
	}
	return *job, true
}

// Count reports the number of tracked jobs, for the health endpoint.
func (t *Tracker) Count() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.jobs)
}

// SweepStale removes jobs created more than maxAge ago, regardless of
// status. Exposed for tests; the sweeper goroutine calls it with MaxAge.
func (t *Tracker) SweepStale(now time.Time, maxAge time.Duration) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	removed := 0
	for id, job := range t.jobs {
		if now.Sub(job.CreatedAt) > maxAge {
			delete(t.jobs, id)
			removed++
		}
	}
	return removed
}

func (t *Tracker) sweepLoop() {
	defer close(t.done)

	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-t.stop:
			return
		case now := <-ticker.C:
			if removed := t.SweepStale(now, MaxAge); removed > 0 {
				log.Printf("[imagejob] sweep removed %d stale job(s)", removed)
			}
		}
	}
}
