package health

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/SlpAus/daily-guess-backend/internal/platform/config"
	"github.com/SlpAus/daily-guess-backend/internal/platform/database"
	"github.com/SlpAus/daily-guess-backend/pkg/lifecycle"
	"github.com/rs/zerolog/log"
)

var runIDPattern = regexp.MustCompile(`run_id:([a-f0-9]+)`)

// Restorer 在Redis重启丢失数据后把归档写回Store
type Restorer interface {
	Restore(ctx context.Context) error
}

// Checker 定期检查Redis的连通性和run_id，检测到重启时从归档恢复
type Checker struct {
	store       *database.Store
	restorer    Restorer
	onRecovered func()
	interval    time.Duration
	timeout     time.Duration
	runID       func(ctx context.Context) (string, error)

	status statusManager
}

// NewChecker 创建健康检查器。restorer 为 nil 时（未启用归档）跳过恢复；
// onRecovered 在系统回到健康状态时调用，可以为 nil。
func NewChecker(store *database.Store, restorer Restorer, cfg config.HealthConfig, onRecovered func()) *Checker {
	c := &Checker{
		store:       store,
		restorer:    restorer,
		onRecovered: onRecovered,
		interval:    cfg.CheckInterval,
		timeout:     cfg.PingTimeout,
	}
	c.runID = c.redisRunID
	return c
}

// redisRunID 从Redis服务器信息中提取run_id
func (c *Checker) redisRunID(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	rdb, err := c.store.Client(ctx)
	if err != nil {
		return "", err
	}
	info, err := rdb.Info(ctx, "server").Result()
	if err != nil {
		return "", err
	}
	matches := runIDPattern.FindStringSubmatch(info)
	if len(matches) < 2 {
		return "", fmt.Errorf("无法在Redis INFO中找到run_id")
	}
	return matches[1], nil
}

// InitializeRunID 在应用启动时执行一次，获取并设置初始的run_id
func (c *Checker) InitializeRunID(ctx context.Context) error {
	runID, err := c.runID(ctx)
	if err != nil {
		return fmt.Errorf("无法在启动时获取Redis Run ID，请检查Redis服务: %w", err)
	}
	c.status.setInitialRunID(runID)
	log.Info().Str("runId", runID).Msg("获取初始Redis Run ID成功")
	return nil
}

// State 返回当前的系统健康状态
func (c *Checker) State() State { return c.status.state() }

// PerformCheck 执行一次完整的健康检查和可能的恢复操作
func (c *Checker) PerformCheck(ctx context.Context) {
	before := c.status.state()

	rebuilt := false
	runID, err := c.runID(ctx)
	if c.status.assess(err == nil, runID) {
		success := c.rebuild(ctx)
		after, err := c.runID(ctx)
		c.status.markRebuildComplete(success && err == nil, after)
		rebuilt = success
	}

	healthy := c.status.state() == StateHealthy
	c.store.SetHealthy(healthy)
	if healthy && (before != StateHealthy || rebuilt) && c.onRecovered != nil {
		c.onRecovered()
	}
}

func (c *Checker) rebuild(ctx context.Context) bool {
	if c.restorer == nil {
		log.Warn().Msg("健康检查: 未启用归档，跳过恢复")
		return true
	}
	log.Info().Msg("健康检查: 正在从归档恢复Store...")
	if err := c.restorer.Restore(ctx); err != nil {
		log.Error().Err(err).Msg("健康检查错误: 从归档恢复失败")
		return false
	}
	return true
}

// Start 定期、阻塞式地执行健康检查，直到 handle 被取消
func (c *Checker) Start(handle *lifecycle.Handle) {
	defer handle.Close()
	log.Info().Dur("interval", c.interval).Msg("Redis健康检查器已启动")

	for {
		if err := handle.Sleep(c.interval); err != nil {
			log.Info().Msg("Redis健康检查器: 正在关闭")
			return
		}
		c.PerformCheck(handle.Ctx())
	}
}
