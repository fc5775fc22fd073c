package shutdown

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SlpAus/daily-guess-backend/pkg/lifecycle"
	"github.com/rs/zerolog/log"
)

const (
	gracefulTimeout      = 30 * time.Second
	forcefulTimeout      = 1 * time.Second
	finalSnapshotTimeout = 30 * time.Second
)

// Coordinator 负责编排应用程序的优雅停机流程。
// 它接收外部创建的生命周期管理器，并使用它们来协调停机。
type Coordinator struct {
	GracefulManager *lifecycle.Manager
	ForcefulManager *lifecycle.Manager

	// FinalSnapshot 在所有后台服务退出后执行，可以为 nil
	FinalSnapshot func(ctx context.Context) error
	HTTPTimeout   time.Duration
}

// NewCoordinator 创建一个新的停机协调器。
func NewCoordinator(gracefulMgr, forcefulMgr *lifecycle.Manager, finalSnapshot func(ctx context.Context) error, httpTimeout time.Duration) *Coordinator {
	return &Coordinator{
		GracefulManager: gracefulMgr,
		ForcefulManager: forcefulMgr,
		FinalSnapshot:   finalSnapshot,
		HTTPTimeout:     httpTimeout,
	}
}

// ListenForSignalsAndShutdown 阻塞直到收到停机信号或服务器异常退出，然后完成停机流程。
func (c *Coordinator) ListenForSignalsAndShutdown(server *http.Server, serverErr <-chan error) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case sig := <-sigChan:
		log.Info().Str("signal", sig.String()).Msg("收到关闭信号，开始优雅停机...")
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("HTTP服务器异常退出，开始停机...")
		}
	}

	c.Shutdown(server)
}

// Shutdown 依次关闭HTTP服务器、后台服务，并执行最终快照
func (c *Coordinator) Shutdown(server *http.Server) {
	// 关闭HTTP服务器，允许正在进行的请求完成
	if server != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), c.HTTPTimeout)
		defer shutdownCancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Gin服务器关闭错误")
		} else {
			log.Info().Msg("Gin服务器已关闭")
		}
	}

	// --- 阶段一: 优雅停机 ---
	log.Info().Dur("timeout", gracefulTimeout).Msg("第一阶段停机：等待后台任务完成")
	c.GracefulManager.Shutdown()

	remainingServices := c.GracefulManager.WaitWithTimeout(gracefulTimeout)
	if len(remainingServices) == 0 {
		log.Info().Msg("所有服务已在第一阶段优雅关闭")
	} else {
		// --- 阶段二: 强制停机 ---
		log.Warn().Strs("remaining", remainingServices).Msg("第一阶段超时，发送第二停机信号")
		c.ForcefulManager.Shutdown()
		c.ForcefulManager.WaitWithTimeout(forcefulTimeout)
	}

	// --- 最终步骤 ---
	if c.FinalSnapshot != nil {
		log.Info().Msg("正在执行最终快照...")
		ctx, cancel := context.WithTimeout(context.Background(), finalSnapshotTimeout)
		defer cancel()
		if err := c.FinalSnapshot(ctx); err != nil {
			log.Error().Err(err).Msg("最终快照失败")
		} else {
			log.Info().Msg("最终快照成功")
		}
	}

	log.Info().Msg("优雅停机完成")
}
