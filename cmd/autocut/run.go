package main

import (
	"encoding/json"

	"autocut/internal/appcore"
	"autocut/internal/deps"
	"autocut/internal/pipeline"
	"autocut/internal/service"
	"autocut/internal/storage"
	"autocut/log"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newRunCmd() *cobra.Command {
	var req appcore.JobRequest
	var history bool

	cmd := &cobra.Command{
		Use:   "run <source>",
		Short: "Process one video in the foreground",
		Long: "Process one video in the foreground. <source> is a YouTube or Bilibili URL,\n" +
			"or local:<path> for a file on disk. Stages already completed in the job\n" +
			"directory are skipped unless --force is given.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req.SourceRef = args[0]
			if err := deps.CheckDependency(); err != nil {
				return err
			}
			if history {
				if err := storage.InitDB(); err != nil {
					log.GetLogger().Warn("任务历史不可用 job history disabled", zap.Error(err))
				}
			}

			svc, err := service.NewService()
			if err != nil {
				return err
			}
			if err = service.ValidateSourceRef(req.SourceRef); err != nil {
				return err
			}

			logger := log.GetLogger()
			progress := pipeline.ObserverFunc(func(ev appcore.JobEvent) {
				logger.Info("stage event",
					zap.String("job_id", ev.JobID),
					zap.String("kind", string(ev.Kind)),
					zap.String("stage", ev.Stage),
					zap.String("error", ev.Error))
			})

			result, err := svc.RunJob(cmd.Context(), req, progress)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		},
	}

	cmd.Flags().StringVar(&req.ID, "id", "", "Job id (defaults to one derived from the source)")
	cmd.Flags().BoolVar(&req.Force, "force", false, "Re-run every stage even if its artifact exists")
	cmd.Flags().StringVar(&req.TargetLanguage, "target", "", "Translation target language (default from config)")
	cmd.Flags().StringVar(&req.HighlightMode, "mode", "", "Highlight mode: llm or scene (default from config)")
	cmd.Flags().BoolVar(&req.Publish, "publish", false, "Upload clips to OSS when it is enabled")
	cmd.Flags().BoolVar(&history, "history", true, "Record the job in the local history database")
	return cmd
}
