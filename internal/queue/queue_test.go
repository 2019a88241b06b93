package queue

import (
	"context"
	"errors"
	"testing"
	"time"

	"autocut/internal/appcore"
	"autocut/internal/pipeline"
	apperrors "autocut/pkg/errors"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type jobsFunc func(ctx context.Context, req appcore.JobRequest) (*pipeline.Result, error)

func (f jobsFunc) RunJob(ctx context.Context, req appcore.JobRequest, _ ...pipeline.Observer) (*pipeline.Result, error) {
	return f(ctx, req)
}

func TestJobTaskRoundTrip(t *testing.T) {
	req := appcore.JobRequest{ID: "dQw4w9WgXcQ", SourceRef: "https://youtu.be/dQw4w9WgXcQ", Force: true, HighlightMode: "scene"}
	task, err := NewJobTask(req)
	require.NoError(t, err)
	assert.Equal(t, TypeJob, task.Type())

	var got appcore.JobRequest
	h := NewTaskHandlers(jobsFunc(func(_ context.Context, r appcore.JobRequest) (*pipeline.Result, error) {
		got = r
		return &pipeline.Result{JobID: r.ID}, nil
	}))
	require.NoError(t, h.HandleJobTask(context.Background(), task))
	assert.Equal(t, req, got)
}

func TestHandleJobTaskRetryPolicy(t *testing.T) {
	task, err := NewJobTask(appcore.JobRequest{ID: "a", SourceRef: "x"})
	require.NoError(t, err)

	transient := NewTaskHandlers(jobsFunc(func(context.Context, appcore.JobRequest) (*pipeline.Result, error) {
		return nil, apperrors.StageFailed("a", "download", apperrors.Adapter("video download", errors.New("timeout")))
	}))
	err = transient.HandleJobTask(context.Background(), task)
	require.Error(t, err)
	assert.False(t, errors.Is(err, asynq.SkipRetry))

	fatal := NewTaskHandlers(jobsFunc(func(context.Context, appcore.JobRequest) (*pipeline.Result, error) {
		return nil, apperrors.StageFailed("a", "caption", apperrors.New(apperrors.CodeNoCaptions, "no captions"))
	}))
	err = fatal.HandleJobTask(context.Background(), task)
	assert.True(t, errors.Is(err, asynq.SkipRetry))

	bad := asynq.NewTask(TypeJob, []byte("{"))
	assert.True(t, errors.Is(transient.HandleJobTask(context.Background(), bad), asynq.SkipRetry))
}

func TestRetryDelay(t *testing.T) {
	assert.Equal(t, 30*time.Second, retryDelay(0, nil, nil))
	assert.Equal(t, 120*time.Second, retryDelay(2, nil, nil))
}
