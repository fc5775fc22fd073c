package leaderboard

import (
	"errors"
	"net/http"

	"github.com/SlpAus/daily-guess-backend/internal/platform/calendar"
	"github.com/SlpAus/daily-guess-backend/internal/platform/database"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// Handler 提供排行榜API
type Handler struct {
	service *Service
}

// NewHandler 创建排行榜处理器
func NewHandler(s *Service) *Handler {
	return &Handler{service: s}
}

// GetLeaderboard 返回 date 参数指定日期的排行榜，缺省为今天
func (h *Handler) GetLeaderboard(c *gin.Context) {
	day := h.service.clock.Today()
	if raw := c.Query("date"); raw != "" {
		parsed, err := calendar.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_payload", "detail": err.Error()})
			return
		}
		day = parsed
	}

	lb, err := h.service.GetLeaderboard(c.Request.Context(), day)
	if err != nil {
		if errors.Is(err, database.ErrStoreUnavailable) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "store_unavailable"})
			return
		}
		log.Error().Err(err).Str("day", string(day)).Msg("生成排行榜失败")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
		return
	}
	c.JSON(http.StatusOK, lb)
}
