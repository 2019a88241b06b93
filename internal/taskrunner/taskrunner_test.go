package taskrunner

import (
	"context"
	"testing"
	"time"

	"autocut/internal/appcore"
	"autocut/internal/pipeline"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type blockingJobs struct {
	started chan appcore.JobRequest
	release chan struct{}
	done    chan error
}

func newBlockingJobs() *blockingJobs {
	return &blockingJobs{
		started: make(chan appcore.JobRequest, 8),
		release: make(chan struct{}),
		done:    make(chan error, 8),
	}
}

func (b *blockingJobs) RunJob(ctx context.Context, req appcore.JobRequest, _ ...pipeline.Observer) (*pipeline.Result, error) {
	b.started <- req
	select {
	case <-b.release:
		b.done <- nil
		return &pipeline.Result{JobID: req.ID}, nil
	case <-ctx.Done():
		b.done <- ctx.Err()
		return nil, ctx.Err()
	}
}

func waitFor[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("timed out")
		var zero T
		return zero
	}
}

func TestSubmitRunsJob(t *testing.T) {
	jobs := newBlockingJobs()
	r := New(jobs, Config{Concurrency: 1, QueueSize: 4})
	t.Cleanup(r.Close)

	require.NoError(t, r.Submit(context.Background(), appcore.JobRequest{ID: "a", SourceRef: "https://youtu.be/dQw4w9WgXcQ"}))
	got := waitFor(t, jobs.started)
	assert.Equal(t, "a", got.ID)

	close(jobs.release)
	assert.NoError(t, waitFor(t, jobs.done))
}

func TestSubmitRejectsWhenQueueFull(t *testing.T) {
	jobs := newBlockingJobs()
	r := New(jobs, Config{Concurrency: 1, QueueSize: 1})
	t.Cleanup(r.Close)

	require.NoError(t, r.Submit(context.Background(), appcore.JobRequest{ID: "a", SourceRef: "x"}))
	waitFor(t, jobs.started)
	require.NoError(t, r.Submit(context.Background(), appcore.JobRequest{ID: "b", SourceRef: "x"}))
	assert.Equal(t, 1, r.Pending())

	assert.ErrorIs(t, r.Submit(context.Background(), appcore.JobRequest{ID: "c", SourceRef: "x"}), ErrQueueFull)
	assert.Error(t, r.Submit(context.Background(), appcore.JobRequest{ID: "d"}))
}

func TestCancelStopsRunningJob(t *testing.T) {
	jobs := newBlockingJobs()
	r := New(jobs, Config{Concurrency: 1, QueueSize: 1})
	t.Cleanup(r.Close)

	assert.False(t, r.Cancel("a"))
	require.NoError(t, r.Submit(context.Background(), appcore.JobRequest{ID: "a", SourceRef: "x"}))
	waitFor(t, jobs.started)

	assert.True(t, r.Cancel("a"))
	assert.ErrorIs(t, waitFor(t, jobs.done), context.Canceled)
}

func TestCloseRejectsNewJobs(t *testing.T) {
	r := New(newBlockingJobs(), Config{})
	r.Close()
	r.Close()

	assert.ErrorIs(t, r.Submit(context.Background(), appcore.JobRequest{ID: "a", SourceRef: "x"}), ErrRunnerStopped)
}
