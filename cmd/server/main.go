package main

import (
	"context"
	"errors"
	"net/http"
	"os"

	"github.com/SlpAus/daily-guess-backend/api"
	"github.com/SlpAus/daily-guess-backend/internal/platform/config"
	"github.com/SlpAus/daily-guess-backend/internal/platform/logging"
	"github.com/SlpAus/daily-guess-backend/internal/platform/shutdown"
	"github.com/SlpAus/daily-guess-backend/internal/platform/startup"
	"github.com/SlpAus/daily-guess-backend/pkg/lifecycle"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:           "daily-guess-server",
		Short:         "每日猜人游戏的后端服务",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadConfig(configPath, cmd.Flags())
			if err != nil {
				log.Error().Err(err).Msg("加载配置失败")
				return err
			}
			logging.Setup(cfg.Logger)
			if err := run(cfg); err != nil {
				log.Error().Err(err).Msg("服务器启动失败")
				return err
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&configPath, "config", "c", "", "配置文件路径（默认在 ./config 和 . 中查找 config.yaml）")
	flags.String("address", "", "HTTP监听地址，例如 :8080")
	flags.String("catalog", "", "实体目录JSON文件路径")
	flags.String("redis", "", "Redis地址，例如 localhost:6379")
	flags.String("log-level", "", "日志级别 (trace|debug|info|warn|error)")
	flags.Bool("pretty", false, "使用便于阅读的控制台日志格式")
	return cmd
}

func run(cfg *config.Config) error {
	app, err := startup.Build(cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	if err := app.InitializeApplication(context.Background()); err != nil {
		return err
	}

	// 1. 创建生命周期管理器
	gracefulManager := lifecycle.NewManager("graceful")
	forcefulManager := lifecycle.NewManager("forceful")

	// 2. 启动后台服务
	healthHandle, err := gracefulManager.NewServiceHandle("redis-health-checker")
	if err != nil {
		return err
	}
	go app.Health.Start(healthHandle)

	var finalSnapshot func(ctx context.Context) error
	if app.Backup != nil {
		finalSnapshot = app.Backup.Snapshot
		if interval := cfg.Archive.SnapshotInterval; interval > 0 {
			gh, err := gracefulManager.NewServiceHandle("archive-snapshot-scheduler")
			if err != nil {
				return err
			}
			fh, err := forcefulManager.NewServiceHandle("archive-snapshot-scheduler")
			if err != nil {
				return err
			}
			go app.Backup.StartScheduler(gh, fh, interval)
		}
	}

	// 3. 配置HTTP服务器
	router := api.NewRouter(cfg.Server, app.Metrics)
	api.SetupRoutes(router, app)
	server := &http.Server{
		Addr:    cfg.Server.Address,
		Handler: router,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info().Str("address", server.Addr).Msg("服务器已准备就绪，开始监听")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	// 4. 阻塞直到收到停机信号，然后按顺序停机
	coordinator := shutdown.NewCoordinator(gracefulManager, forcefulManager, finalSnapshot, cfg.Server.ShutdownTimeout)
	coordinator.ListenForSignalsAndShutdown(server, serverErr)
	return nil
}
