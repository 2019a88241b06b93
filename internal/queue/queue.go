// Package queue runs jobs through a Redis-backed asynq queue, for setups
// where the API server and the workers are separate processes.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"autocut/internal/appcore"
	"autocut/log"
)

const TypeJob = "autocut:job"

const (
	jobMaxRetry = 2
	jobTimeout  = 2 * time.Hour
)

// QueueConfig holds Redis configuration for Asynq
type QueueConfig struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	Concurrency   int
}

// Queue manages job enqueueing and processing
type Queue struct {
	client *asynq.Client
	server *asynq.Server
	config QueueConfig
}

var _ appcore.Submitter = (*Queue)(nil)

func DefaultConfig() QueueConfig {
	return QueueConfig{
		RedisAddr:   "localhost:6379",
		RedisDB:     0,
		Concurrency: 2,
	}
}

func redisOpt(cfg QueueConfig) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}
}

// NewQueue creates a Queue. The server half is only started by StartWorker.
func NewQueue(cfg QueueConfig) *Queue {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConfig().Concurrency
	}
	server := asynq.NewServer(
		redisOpt(cfg),
		asynq.Config{
			Concurrency: cfg.Concurrency,
			Queues: map[string]int{
				"critical": 6,
				"default":  3,
				"low":      1,
			},
			RetryDelayFunc: retryDelay,
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				log.GetLogger().Error("Job task failed",
					zap.String("type", task.Type()),
					zap.ByteString("payload", task.Payload()),
					zap.Error(err))
			}),
		},
	)

	return &Queue{
		client: asynq.NewClient(redisOpt(cfg)),
		server: server,
		config: cfg,
	}
}

// retryDelay backs off 30s, 60s, 120s, ...
func retryDelay(n int, _ error, _ *asynq.Task) time.Duration {
	return time.Duration(30<<uint(n)) * time.Second
}

// NewJobTask encodes req as an asynq task. The job id doubles as the task
// id so a job cannot be queued twice while pending.
func NewJobTask(req appcore.JobRequest) (*asynq.Task, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}
	opts := []asynq.Option{
		asynq.MaxRetry(jobMaxRetry),
		asynq.Timeout(jobTimeout),
		asynq.Queue("default"),
	}
	if req.ID != "" {
		opts = append(opts, asynq.TaskID(req.ID))
	}
	return asynq.NewTask(TypeJob, data, opts...), nil
}

// Submit enqueues req.
func (q *Queue) Submit(ctx context.Context, req appcore.JobRequest) error {
	task, err := NewJobTask(req)
	if err != nil {
		return err
	}

	info, err := q.client.EnqueueContext(ctx, task)
	if err != nil {
		return fmt.Errorf("failed to enqueue job: %w", err)
	}

	log.GetLogger().Info("Job enqueued",
		zap.String("job_id", req.ID),
		zap.String("queue_id", info.ID),
		zap.String("queue", info.Queue))
	return nil
}

// Close gracefully shuts down the queue
func (q *Queue) Close() error {
	if err := q.client.Close(); err != nil {
		return err
	}
	q.server.Shutdown()
	return nil
}
