// Command tools 提供运维用的离线命令：导入名单、导入/核对旧排期、手动快照。
package main

import (
	"os"

	"github.com/SlpAus/daily-guess-backend/internal/platform/config"
	"github.com/SlpAus/daily-guess-backend/internal/platform/logging"
	"github.com/SlpAus/daily-guess-backend/internal/platform/startup"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var configPath string

func main() {
	if err := newRootCommand().Execute(); err != nil {
		log.Error().Err(err).Msg("命令执行失败")
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "daily-guess-tools",
		Short:         "每日猜人游戏的运维工具",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	flags := root.PersistentFlags()
	flags.StringVarP(&configPath, "config", "c", "", "配置文件路径")
	flags.String("catalog", "", "实体目录JSON文件路径")
	flags.String("redis", "", "Redis地址")
	flags.String("log-level", "", "日志级别")
	flags.Bool("pretty", false, "使用便于阅读的控制台日志格式")

	root.AddCommand(
		newImportRosterCommand(),
		newImportPlanningCommand(),
		newVerifyPlanningCommand(),
		newSnapshotCommand(),
	)
	return root
}

// loadApp 读取配置、初始化日志并组装服务。调用方负责 Close。
func loadApp(cmd *cobra.Command) (*startup.App, error) {
	cfg, err := config.LoadConfig(configPath, cmd.Flags())
	if err != nil {
		return nil, err
	}
	logging.Setup(cfg.Logger)
	return startup.Build(cfg)
}
