// Package imagegen orchestrates asynchronous image generation: it accepts a
// prompt, hands the caller a trackable job id, runs the generator in the
// background, and folds the outcome into the job tracker.
package imagegen

import (
	"context"
	"log"
	"sync"

	"github.com/glowlabs/glowchat/backend/internal/model/imagejob"
	jobtracker "github.com/glowlabs/glowchat/backend/internal/service/imagejob"
	"github.com/glowlabs/glowchat/backend/internal/storage"
	"github.com/glowlabs/glowchat/backend/internal/upstream"
)

// Generator produces an image for a prompt at the given output path. It
// must only create the file on success. Failures carry the upstream
// taxonomy where the cause is known.
type Generator interface {
	Generate(ctx context.Context, prompt, outputPath string) error
}

type result struct {
	jobID string
	err   error
}

// Service ties the tracker, the content store and the generator together.
// Worker goroutines report through a single results channel; the one
// consumer loop is the only caller of Complete/Fail, so terminal
// transitions never race each other.
type Service struct {
	tracker *jobtracker.Tracker
	store   *storage.ContentStore
	gen     Generator

	results chan result

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
	workers  sync.WaitGroup
}

// NewService starts the consumer loop. Callers must Close at shutdown.
func NewService(tracker *jobtracker.Tracker, store *storage.ContentStore, gen Generator) *Service {
	s := &Service{
		tracker: tracker,
		store:   store,
		gen:     gen,
		results: make(chan result, 16),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go s.consumeLoop()
	return s
}

// Close waits for in-flight workers and stops the consumer. Idempotent.
func (s *Service) Close() {
	s.stopOnce.Do(func() {
		s.workers.Wait()
		close(s.stop)
	})
	<-s.done
}

// Request registers a job for the prompt and kicks off generation. The job
// is already visible to Get when this returns; the caller responds with the
// id before any work has happened.
func (s *Service) Request(prompt string) imagejob.Job {
	job := s.tracker.Create(prompt)

	s.workers.Add(1)
	go func() {
		defer s.workers.Done()
		err := s.gen.Generate(context.Background(), prompt, s.store.ScratchPath(job.ID))
		select {
		case s.results <- result{jobID: job.ID, err: err}:
		case <-s.stop:
			log.Printf("[imagegen] dropping result for job=%s: service shutting down", job.ID)
		}
	}()

	return job
}

func (s *Service) consumeLoop() {
	defer close(s.done)

	for {
		select {
		case <-s.stop:
			return
		case res := <-s.results:
			s.settle(res)
		}
	}
}

// settle is the single consumer of worker outcomes. A result that arrives
// after the staleness sweep removed its job is dropped silently; a swept
// job is never resurrected.
func (s *Service) settle(res result) {
	if res.err != nil {
		s.store.Discard(res.jobID)
		reason := upstream.Classify(res.err).Error()
		if !s.tracker.Fail(res.jobID, reason) {
			log.Printf("[imagegen] late failure for job=%s dropped (swept or terminal): %v", res.jobID, res.err)
			return
		}
		log.Printf("[imagegen] job=%s failed: %v", res.jobID, res.err)
		return
	}

	url, err := s.store.Commit(res.jobID)
	if err != nil {
		if !s.tracker.Fail(res.jobID, "failed to store generated image") {
			log.Printf("[imagegen] late commit failure for job=%s dropped: %v", res.jobID, err)
			return
		}
		log.Printf("[imagegen] job=%s commit failed: %v", res.jobID, err)
		return
	}

	if !s.tracker.Complete(res.jobID, url) {
		log.Printf("[imagegen] late result for job=%s dropped (swept or terminal)", res.jobID)
		return
	}
	log.Printf("[imagegen] job=%s done, image at %s", res.jobID, url)
}
