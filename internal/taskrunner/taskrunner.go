// Package taskrunner executes submitted jobs on in-process workers.
package taskrunner

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"autocut/internal/appcore"
	"autocut/internal/pipeline"
	"autocut/log"
)

const (
	defaultQueueSize   = 128
	defaultConcurrency = 2
)

var (
	ErrRunnerStopped = errors.New("task runner stopped")
	ErrQueueFull     = errors.New("task queue is full")
)

// Config controls in-process task runner behavior.
type Config struct {
	QueueSize   int
	Concurrency int
}

func DefaultConfig() Config {
	return Config{
		QueueSize:   defaultQueueSize,
		Concurrency: defaultConcurrency,
	}
}

// JobRunner is the part of the service the runner drives.
type JobRunner interface {
	RunJob(ctx context.Context, req appcore.JobRequest, observers ...pipeline.Observer) (*pipeline.Result, error)
}

// Runner executes queued jobs with in-memory workers.
type Runner struct {
	jobs   JobRunner
	config Config

	queue  chan appcore.JobRequest
	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	running map[string]context.CancelFunc

	workerWg sync.WaitGroup
	closed   atomic.Bool
}

var _ appcore.Submitter = (*Runner)(nil)

// New creates and starts a task runner.
func New(jobs JobRunner, cfg Config) *Runner {
	cfg = normalizeConfig(cfg)
	ctx, cancel := context.WithCancel(context.Background())

	runner := &Runner{
		jobs:    jobs,
		config:  cfg,
		queue:   make(chan appcore.JobRequest, cfg.QueueSize),
		ctx:     ctx,
		cancel:  cancel,
		running: make(map[string]context.CancelFunc),
	}

	for i := 0; i < cfg.Concurrency; i++ {
		runner.workerWg.Add(1)
		go runner.worker(i + 1)
	}

	return runner
}

func normalizeConfig(cfg Config) Config {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = defaultQueueSize
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaultConcurrency
	}
	return cfg
}

// Submit queues a job without blocking. ctx only bounds the submission.
func (r *Runner) Submit(ctx context.Context, req appcore.JobRequest) error {
	if req.SourceRef == "" {
		return errors.New("job source is required")
	}
	if r.closed.Load() {
		return ErrRunnerStopped
	}

	select {
	case <-r.ctx.Done():
		return ErrRunnerStopped
	case <-ctx.Done():
		return ctx.Err()
	case r.queue <- req:
		log.GetLogger().Info("[TaskRunner] job submitted",
			zap.String("job_id", req.ID),
			zap.String("source", req.SourceRef))
		return nil
	default:
		return ErrQueueFull
	}
}

func (r *Runner) worker(workerID int) {
	defer r.workerWg.Done()

	for {
		select {
		case <-r.ctx.Done():
			return
		default:
		}

		select {
		case <-r.ctx.Done():
			return
		case req := <-r.queue:
			r.process(workerID, req)
		}
	}
}

func (r *Runner) process(workerID int, req appcore.JobRequest) {
	ctx, cancel := context.WithCancel(r.ctx)
	defer cancel()
	r.mu.Lock()
	r.running[req.ID] = cancel
	r.mu.Unlock()
	defer func() {
		r.mu.Lock()
		delete(r.running, req.ID)
		r.mu.Unlock()
	}()

	if _, err := r.jobs.RunJob(ctx, req); err != nil {
		log.GetLogger().Error("[TaskRunner] job failed",
			zap.Int("worker_id", workerID),
			zap.String("job_id", req.ID),
			zap.Error(err))
		return
	}

	log.GetLogger().Info("[TaskRunner] job completed",
		zap.Int("worker_id", workerID),
		zap.String("job_id", req.ID))
}

// Cancel stops a running job at its next stage boundary. It reports whether
// the job was running.
func (r *Runner) Cancel(jobID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	cancel, ok := r.running[jobID]
	if ok {
		cancel()
	}
	return ok
}

// Close stops workers and rejects new jobs. Running jobs see a canceled
// context.
func (r *Runner) Close() {
	if !r.closed.CompareAndSwap(false, true) {
		return
	}

	r.cancel()
	r.workerWg.Wait()
}

// Pending returns the number of queued jobs waiting for workers.
func (r *Runner) Pending() int {
	return len(r.queue)
}
