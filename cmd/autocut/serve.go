package main

import (
	"autocut/config"
	"autocut/internal/appcore"
	"autocut/internal/deps"
	"autocut/internal/events"
	"autocut/internal/handler"
	"autocut/internal/pipeline"
	"autocut/internal/queue"
	"autocut/internal/server"
	"autocut/internal/service"
	"autocut/internal/storage"
	"autocut/internal/taskrunner"
	"autocut/log"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func queueConfig() queue.QueueConfig {
	return queue.QueueConfig{
		RedisAddr:     config.Conf.Queue.RedisAddr,
		RedisPassword: config.Conf.Queue.RedisPassword,
		RedisDB:       config.Conf.Queue.RedisDB,
		Concurrency:   config.Conf.Queue.Concurrency,
	}
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API and run submitted jobs",
		Long: "Serve the HTTP API. Jobs run on in-process workers, or are handed to Redis\n" +
			"for `autocut worker` when queue.redis_addr is configured.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := storage.InitDB(); err != nil {
				return err
			}
			if err := deps.CheckDependency(); err != nil {
				log.GetLogger().Error("依赖环境准备失败", zap.Error(err))
				return err
			}

			svc, err := service.NewService()
			if err != nil {
				return err
			}
			hub := events.NewHub()
			svc.Observers = append(svc.Observers, pipeline.Observer(hub))

			var submitter appcore.Submitter
			if config.Conf.Queue.RedisAddr != "" {
				q := queue.NewQueue(queueConfig())
				defer q.Close()
				submitter = q
				log.GetLogger().Info("jobs are queued to redis", zap.String("redis_addr", config.Conf.Queue.RedisAddr))
			} else {
				// no other process can own a running job, so anything left
				// running by a previous server died with it
				if count, err := storage.MarkStaleJobs(); err != nil {
					log.GetLogger().Warn("Failed to mark stale jobs", zap.Error(err))
				} else if count > 0 {
					log.GetLogger().Info("Marked stale jobs as failed", zap.Int64("count", count))
				}
				runner := taskrunner.New(svc, taskrunner.Config{
					QueueSize:   config.Conf.Queue.QueueSize,
					Concurrency: config.Conf.Queue.Concurrency,
				})
				defer runner.Close()
				submitter = runner
			}

			return server.StartBackend(cmd.Context(), handler.NewHandler(svc, submitter, hub))
		},
	}
}

func newWorkerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Run jobs queued in Redis by `autocut serve`",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if config.Conf.Queue.RedisAddr == "" {
				return errRedisRequired
			}
			if err := storage.InitDB(); err != nil {
				return err
			}
			if err := deps.CheckDependency(); err != nil {
				return err
			}
			svc, err := service.NewService()
			if err != nil {
				return err
			}
			return queue.StartWorker(queue.NewQueue(queueConfig()), svc)
		},
	}
}
