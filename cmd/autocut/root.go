package main

import (
	"fmt"

	"autocut/config"
	"autocut/log"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// commands carrying this annotation run without a valid config
const skipConfigCheck = "skip-config-check"

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "autocut",
		Short:        "Download, caption, translate and cut highlight clips from online videos",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			_ = godotenv.Load() // best-effort: load .env if present
			log.InitLogger()

			created, err := config.LoadOrCreateConfig()
			if err != nil {
				return fmt.Errorf("加载配置失败: %w", err)
			}
			if created {
				path, _ := config.ResolveConfigPath()
				log.GetLogger().Info("已生成默认配置文件 default config written", zap.String("path", path))
			}
			if cmd.Annotations[skipConfigCheck] != "" {
				return nil
			}
			if err = config.CheckConfig(); err != nil {
				log.GetLogger().Error("配置检查失败", zap.Error(err))
				return err
			}
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = log.GetLogger().Sync()
		},
	}

	root.AddCommand(newRunCmd(), newServeCmd(), newWorkerCmd(), newDiagnoseCmd(), newVersionCmd())
	return root
}
