package startup

import (
	"context"
	"fmt"

	"github.com/SlpAus/daily-guess-backend/internal/catalog"
	"github.com/SlpAus/daily-guess-backend/internal/leaderboard"
	"github.com/SlpAus/daily-guess-backend/internal/platform/backup"
	"github.com/SlpAus/daily-guess-backend/internal/platform/calendar"
	"github.com/SlpAus/daily-guess-backend/internal/platform/config"
	"github.com/SlpAus/daily-guess-backend/internal/platform/database"
	"github.com/SlpAus/daily-guess-backend/internal/platform/health"
	"github.com/SlpAus/daily-guess-backend/internal/platform/metrics"
	"github.com/SlpAus/daily-guess-backend/internal/player"
	"github.com/SlpAus/daily-guess-backend/internal/score"
	"github.com/SlpAus/daily-guess-backend/internal/target"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// App 持有进程内的全部服务，由 Build 按依赖顺序组装
type App struct {
	Config  *config.Config
	Clock   *calendar.Clock
	Catalog *catalog.Catalog
	Store   *database.Store
	Archive *gorm.DB // 未启用归档时为 nil

	Metrics         metrics.Recorder
	MetricsProvider *metrics.Provider // 未启用指标时为 nil

	Players          *player.Registry
	Targets          *target.Service
	Scores           *score.Service
	LeaderboardCache *leaderboard.Cache
	Leaderboard      *leaderboard.Service
	Backup           *backup.Service // 未启用归档时为 nil
	Health           *health.Checker
}

// Build 加载目录、打开归档并创建所有服务。此时还不会连接Redis。
func Build(cfg *config.Config) (*App, error) {
	clock, err := calendar.NewClock(cfg.Game.Timezone)
	if err != nil {
		return nil, err
	}
	cat, err := catalog.Load(cfg.Game.CatalogPath)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config:  cfg,
		Clock:   clock,
		Catalog: cat,
		Store:   database.NewStore(cfg.Database.Redis),
		Metrics: metrics.Noop{},
	}
	if cfg.Metrics.Enabled {
		app.MetricsProvider = metrics.NewProvider()
		app.Metrics = app.MetricsProvider
	}

	if cfg.Archive.Enabled {
		if app.Archive, err = database.OpenArchive(cfg.Archive); err != nil {
			return nil, err
		}
		app.Backup = backup.NewService(app.Archive, app.Store, clock, cfg.Game.PlayedMarkerTTL, app.Metrics)
	}

	app.Players = player.NewRegistry(cat, cfg.Game.RequireKnownPlayer)
	app.Targets = target.NewService(app.Store, cat, clock,
		target.WithMetrics(app.Metrics),
		target.WithFallbackToFirst(cfg.Game.FallbackToFirstEntity),
	)
	app.Scores = score.NewService(app.Store, app.Players, clock, cfg.Game.PlayedMarkerTTL, app.Metrics)
	app.LeaderboardCache = leaderboard.NewCache(cfg.Cache)
	app.Leaderboard = leaderboard.NewService(app.Store, app.Targets, app.Players, clock, app.LeaderboardCache, cfg.Game.LeaderboardSize, app.Metrics)

	// Backup 为 nil 时不能直接作为接口传入，否则接口值非 nil
	var restorer health.Restorer
	if app.Backup != nil {
		restorer = app.Backup
	}
	app.Health = health.NewChecker(app.Store, restorer, cfg.Health, HandleRedisRecovery(app))
	return app, nil
}

// InitializeApplication 是应用首次启动时执行的总入口：
// 连接Redis，迁移归档表，把归档合并回Redis，记录初始run_id并执行一次健康检查。
func (a *App) InitializeApplication(ctx context.Context) error {
	log.Info().Msg("开始应用初始化...")

	if _, err := a.Store.Client(ctx); err != nil {
		return err
	}

	if a.Backup != nil {
		if err := a.Backup.Migrate(); err != nil {
			return err
		}
		// 恢复只写入Redis中不存在的数据，对已有数据的Redis是无害的
		if err := a.Backup.Restore(ctx); err != nil {
			return fmt.Errorf("启动时从归档恢复失败: %w", err)
		}
	}

	if err := a.Health.InitializeRunID(ctx); err != nil {
		return err
	}
	a.Health.PerformCheck(ctx)

	log.Info().
		Int("entities", a.Catalog.Len()).
		Str("today", string(a.Clock.Today())).
		Msg("应用初始化完成")
	return nil
}

// HandleRedisRecovery 返回Redis恢复健康后需要执行的清理操作
func HandleRedisRecovery(a *App) func() {
	return func() {
		log.Info().Msg("检测到Redis已恢复，正在清空排行榜缓存")
		a.LeaderboardCache.Clear()
	}
}

// Close 释放Redis与归档连接
func (a *App) Close() {
	if err := a.Store.Close(); err != nil {
		log.Warn().Err(err).Msg("关闭Redis连接失败")
	}
	if a.Archive != nil {
		if sqlDB, err := a.Archive.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
}
