package compare

import (
	"context"
	"errors"
	"net/http"

	"github.com/SlpAus/daily-guess-backend/internal/catalog"
	"github.com/SlpAus/daily-guess-backend/internal/platform/database"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// TargetSource 提供今天的目标实体
type TargetSource interface {
	TodayEntity(ctx context.Context) (catalog.Entity, error)
}

// Handler 处理猜测反馈请求
type Handler struct {
	catalog *catalog.Catalog
	targets TargetSource
}

// NewHandler 创建猜测反馈处理器
func NewHandler(c *catalog.Catalog, targets TargetSource) *Handler {
	return &Handler{catalog: c, targets: targets}
}

// GuessRequestBody 定义了提交一次猜测时的请求体，guessId 与 guessName 二选一
type GuessRequestBody struct {
	GuessID   *int   `json:"guessId" binding:"omitempty,gt=0"`
	GuessName string `json:"guessName"`
}

// SubmitGuess 把猜测的实体与今天的目标逐列比较
func (h *Handler) SubmitGuess(c *gin.Context) {
	var body GuessRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_payload", "detail": err.Error()})
		return
	}

	var (
		guess catalog.Entity
		ok    bool
	)
	switch {
	case body.GuessID != nil:
		guess, ok = h.catalog.ByID(*body.GuessID)
	case body.GuessName != "":
		guess, ok = h.catalog.ByName(body.GuessName)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_payload", "detail": "guessId or guessName is required"})
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown_entity"})
		return
	}

	target, err := h.targets.TodayEntity(c.Request.Context())
	if err != nil {
		switch {
		case errors.Is(err, catalog.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "target_not_found"})
		case errors.Is(err, database.ErrStoreUnavailable):
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "store_unavailable"})
		default:
			log.Error().Err(err).Msg("获取今日目标失败")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
		}
		return
	}

	c.JSON(http.StatusOK, CompareEntities(h.catalog.Schema(), guess, target))
}
