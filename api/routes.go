package api

import (
	"net/http"

	"github.com/SlpAus/daily-guess-backend/internal/compare"
	"github.com/SlpAus/daily-guess-backend/internal/leaderboard"
	"github.com/SlpAus/daily-guess-backend/internal/platform/startup"
	"github.com/SlpAus/daily-guess-backend/internal/player"
	"github.com/SlpAus/daily-guess-backend/internal/score"
	"github.com/SlpAus/daily-guess-backend/internal/target"
	"github.com/gin-gonic/gin"
)

// SetupRoutes 注册项目的所有API路由
func SetupRoutes(router *gin.Engine, app *startup.App) {
	targetHandler := target.NewHandler(app.Targets)
	scoreHandler := score.NewHandler(app.Scores)
	leaderboardHandler := leaderboard.NewHandler(app.Leaderboard)
	compareHandler := compare.NewHandler(app.Catalog, app.Targets)
	playerHandler := player.NewHandler(app.Players, app.Scores, app.Clock)

	router.GET("/healthz", func(c *gin.Context) {
		code := http.StatusOK
		if !app.Store.IsHealthy() {
			code = http.StatusServiceUnavailable
		}
		body := gin.H{"state": app.Health.State().String(), "today": app.Clock.Today()}
		if app.Backup != nil {
			if archive, err := app.Backup.Status(); err == nil {
				body["archive"] = archive
			}
		}
		c.JSON(code, body)
	})
	if app.MetricsProvider != nil {
		router.GET("/metrics", gin.WrapH(app.MetricsProvider.Handler()))
	}

	api := router.Group("/api", RequireHealthyStore(app.Store), player.LoadPlayerMiddleware())
	{
		// 每日目标与猜测
		api.GET("/dailyTarget", targetHandler.GetDailyTarget)
		api.POST("/guess", compareHandler.SubmitGuess)

		// 成绩与排行榜
		api.POST("/score", scoreHandler.SubmitScore)
		api.GET("/leaderboard", leaderboardHandler.GetLeaderboard)
		api.GET("/status", playerHandler.GetStatus)

		// 管理接口
		api.POST("/resetToday", RequireAdminToken(app.Config.Server.AdminToken), scoreHandler.ResetToday)
	}
}
