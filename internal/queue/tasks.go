package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"autocut/internal/appcore"
	"autocut/internal/taskrunner"
	"autocut/log"
	apperrors "autocut/pkg/errors"
)

// TaskHandlers runs dequeued jobs through the service.
type TaskHandlers struct {
	jobs taskrunner.JobRunner
}

func NewTaskHandlers(jobs taskrunner.JobRunner) *TaskHandlers {
	return &TaskHandlers{jobs: jobs}
}

// HandleJobTask processes one job. Input errors are not retried; a stage
// failure is, since the next attempt resumes from the job directory.
func (h *TaskHandlers) HandleJobTask(ctx context.Context, t *asynq.Task) error {
	var req appcore.JobRequest
	if err := json.Unmarshal(t.Payload(), &req); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %v: %w", err, asynq.SkipRetry)
	}

	log.GetLogger().Info("[Queue] Processing job",
		zap.String("job_id", req.ID),
		zap.String("source", req.SourceRef))

	if _, err := h.jobs.RunJob(ctx, req); err != nil {
		if apperrors.Is(err, apperrors.CodeInvalidInput) || apperrors.Is(err, apperrors.CodeNoCaptions) {
			return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
		}
		return err
	}

	log.GetLogger().Info("[Queue] Job completed", zap.String("job_id", req.ID))
	return nil
}

func (h *TaskHandlers) RegisterHandlers(mux *asynq.ServeMux) {
	mux.HandleFunc(TypeJob, h.HandleJobTask)
}

// StartWorker blocks serving dequeued jobs until the process is signaled.
func StartWorker(q *Queue, jobs taskrunner.JobRunner) error {
	mux := asynq.NewServeMux()
	NewTaskHandlers(jobs).RegisterHandlers(mux)

	log.GetLogger().Info("[Queue] Starting worker",
		zap.String("redis_addr", q.config.RedisAddr),
		zap.Int("concurrency", q.config.Concurrency))

	return q.server.Run(mux)
}
