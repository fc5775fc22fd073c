package target

import (
	"errors"
	"net/http"

	"github.com/SlpAus/daily-guess-backend/internal/platform/database"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// Handler 提供每日目标相关的API
type Handler struct {
	service *Service
}

// NewHandler 创建每日目标处理器
func NewHandler(s *Service) *Handler {
	return &Handler{service: s}
}

// GetDailyTarget 返回今天的目标引用，不存在时先抽取。
// 响应为 {"id": n}，旧数据中只有名称时为 {"name": "..."}。
func (h *Handler) GetDailyTarget(c *gin.Context) {
	ref, err := h.service.SelectTarget(c.Request.Context(), h.service.clock.Today())
	if err != nil {
		if errors.Is(err, database.ErrStoreUnavailable) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "store_unavailable"})
			return
		}
		log.Error().Err(err).Msg("获取每日目标失败")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
		return
	}
	c.JSON(http.StatusOK, ref)
}
