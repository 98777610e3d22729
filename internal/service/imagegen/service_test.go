package imagegen_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	model "github.com/glowlabs/glowchat/backend/internal/model/imagejob"
	"github.com/glowlabs/glowchat/backend/internal/service/imagegen"
	jobtracker "github.com/glowlabs/glowchat/backend/internal/service/imagejob"
	"github.com/glowlabs/glowchat/backend/internal/storage"
	"github.com/glowlabs/glowchat/backend/internal/upstream"
)

type stubGenerator struct {
	err   error
	write bool
}

func (g *stubGenerator) Generate(_ context.Context, _ string, outputPath string) error {
	if g.err != nil {
		return g.err
	}
	if g.write {
		return os.WriteFile(outputPath, []byte("png-bytes"), 0o644)
	}
	return nil
}

func setup(t *testing.T, gen imagegen.Generator) (*imagegen.Service, *jobtracker.Tracker) {
	t.Helper()

	tracker := jobtracker.NewTracker()
	t.Cleanup(tracker.Close)

	store, err := storage.NewContentStore(t.TempDir())
	require.NoError(t, err)

	svc := imagegen.NewService(tracker, store, gen)
	t.Cleanup(svc.Close)
	return svc, tracker
}

func TestRequestJobVisibleBeforeWorkerFinishes(t *testing.T) {
	svc, tracker := setup(t, &stubGenerator{write: true})

	job := svc.Request("cat")
	got, ok := tracker.Get(job.ID)
	require.True(t, ok)
	require.Equal(t, "cat", got.Prompt)
}

func TestSuccessfulGenerationCompletesJob(t *testing.T) {
	svc, tracker := setup(t, &stubGenerator{write: true})

	job := svc.Request("cat")
	require.Eventually(t, func() bool {
		got, ok := tracker.Get(job.ID)
		return ok && got.Status == model.StatusDone
	}, 2*time.Second, 10*time.Millisecond)

	got, _ := tracker.Get(job.ID)
	require.Equal(t, "/generated/img_"+job.ID+".png", got.ImageURL)
	require.Empty(t, got.Error)
}

func TestFailedGenerationFailsJob(t *testing.T) {
	svc, tracker := setup(t, &stubGenerator{err: errors.New("429 Too Many Requests")})

	job := svc.Request("cat")
	require.Eventually(t, func() bool {
		got, ok := tracker.Get(job.ID)
		return ok && got.Status == model.StatusError
	}, 2*time.Second, 10*time.Millisecond)

	got, _ := tracker.Get(job.ID)
	require.Equal(t, upstream.ErrRateLimited.Error(), got.Error)
	require.Empty(t, got.ImageURL)
}

func TestWorkerWithoutOutputFailsJob(t *testing.T) {
	// Generator reports success but never wrote the file; commit must fail
	// and the job must land in error, never exposing a broken URL.
	svc, tracker := setup(t, &stubGenerator{write: false})

	job := svc.Request("cat")
	require.Eventually(t, func() bool {
		got, ok := tracker.Get(job.ID)
		return ok && got.Status == model.StatusError
	}, 2*time.Second, 10*time.Millisecond)

	got, _ := tracker.Get(job.ID)
	require.Empty(t, got.ImageURL)
}

func TestLateResultAfterSweepIsSilentlyDropped(t *testing.T) {
	release := make(chan struct{})
	gen := &blockingGenerator{release: release}
	svc, tracker := setup(t, gen)

	job := svc.Request("cat")
	tracker.SweepStale(job.CreatedAt.Add(jobtracker.MaxAge+time.Second), jobtracker.MaxAge)
	_, ok := tracker.Get(job.ID)
	require.False(t, ok)

	close(release)

	// The settled result must not bring the job back.
	require.Never(t, func() bool {
		_, ok := tracker.Get(job.ID)
		return ok
	}, 300*time.Millisecond, 20*time.Millisecond)
}

type blockingGenerator struct {
	release chan struct{}
}

func (g *blockingGenerator) Generate(_ context.Context, _ string, outputPath string) error {
	<-g.release
	return os.WriteFile(outputPath, []byte("late"), 0o644)
}
