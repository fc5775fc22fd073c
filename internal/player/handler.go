package player

import (
	"context"
	"errors"
	"net/http"

	"github.com/SlpAus/daily-guess-backend/internal/platform/calendar"
	"github.com/SlpAus/daily-guess-backend/internal/platform/database"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// PlayRecord 是某个玩家在某一天的游玩状态
type PlayRecord struct {
	Played   bool
	Attempts *int
	Guesses  []int // 按顺序猜测的实体id，没有记录时为 nil
}

// RecordSource 查询玩家的游玩记录
type RecordSource interface {
	PlayerRecord(ctx context.Context, day calendar.DayID, playerID int) (PlayRecord, error)
}

// Handler 提供玩家相关的API
type Handler struct {
	registry *Registry
	records  RecordSource
	clock    *calendar.Clock
}

// NewHandler 创建玩家处理器
func NewHandler(registry *Registry, records RecordSource, clock *calendar.Clock) *Handler {
	return &Handler{registry: registry, records: records, clock: clock}
}

// StatusResponse 是 GET /api/status 的响应
type StatusResponse struct {
	Date     calendar.DayID `json:"date"`
	PlayerID int            `json:"playerId"`
	Name     string         `json:"name,omitempty"`
	Played   bool           `json:"played"`
	Attempts *int           `json:"attempts,omitempty"`
	Guesses  []int          `json:"guesses,omitempty"`
}

// GetStatus 返回玩家今天是否已经提交过成绩。
// 玩家id优先取自cookie，其次取自 playerId 查询参数。
func (h *Handler) GetStatus(c *gin.Context) {
	id, ok := FromContext(c)
	if !ok {
		raw := c.Query("playerId")
		if raw == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_payload", "detail": "playerId is required"})
			return
		}
		var err error
		if id, err = ParseID(raw); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_payload", "detail": err.Error()})
			return
		}
	}
	if err := h.registry.Validate(id); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_payload", "detail": err.Error()})
		return
	}

	day := h.clock.Today()
	record, err := h.records.PlayerRecord(c.Request.Context(), day, id)
	if err != nil {
		if errors.Is(err, database.ErrStoreUnavailable) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "store_unavailable"})
			return
		}
		log.Error().Err(err).Int("player", id).Msg("查询玩家状态失败")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
		return
	}

	c.JSON(http.StatusOK, StatusResponse{
		Date:     day,
		PlayerID: id,
		Name:     h.registry.Name(id),
		Played:   record.Played,
		Attempts: record.Attempts,
		Guesses:  record.Guesses,
	})
}
