package score

import (
	"errors"
	"net/http"

	"github.com/SlpAus/daily-guess-backend/internal/platform/database"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// Handler 提供成绩相关的API
type Handler struct {
	service *Service
}

// NewHandler 创建成绩处理器
func NewHandler(s *Service) *Handler {
	return &Handler{service: s}
}

// ScoreRequestBody 定义了提交成绩时的请求体
type ScoreRequestBody struct {
	PlayerID int   `json:"playerId" binding:"required,gt=0"`
	Attempts int   `json:"attempts" binding:"required,gt=0"`
	GuessIDs []int `json:"guessIds" binding:"omitempty,dive,gt=0"`
}

// SubmitScore 记录玩家今天的成绩
func (h *Handler) SubmitScore(c *gin.Context) {
	var body ScoreRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_payload", "detail": err.Error()})
		return
	}

	err := h.service.SubmitScore(c.Request.Context(), h.service.clock.Today(), Submission{
		PlayerID: body.PlayerID,
		Attempts: body.Attempts,
		GuessIDs: body.GuessIDs,
	})
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"success": true})
	case errors.Is(err, ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_payload", "detail": err.Error()})
	case errors.Is(err, ErrAlreadyPlayed):
		c.JSON(http.StatusConflict, gin.H{"error": "already_played"})
	case errors.Is(err, database.ErrStoreUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "store_unavailable"})
	default:
		log.Error().Err(err).Int("player", body.PlayerID).Msg("记录成绩失败")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
	}
}

// ResetToday 清空今天的成绩集合，仅供管理使用
func (h *Handler) ResetToday(c *gin.Context) {
	day := h.service.clock.Today()
	if err := h.service.ResetDay(c.Request.Context(), day); err != nil {
		if errors.Is(err, database.ErrStoreUnavailable) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "store_unavailable"})
			return
		}
		log.Error().Err(err).Msg("清空今天的成绩失败")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "date": day})
}
