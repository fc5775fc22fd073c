package leaderboard

import (
	"github.com/SlpAus/daily-guess-backend/internal/catalog"
	"github.com/SlpAus/daily-guess-backend/internal/platform/calendar"
)

// Entry 是排行榜中的一行
type Entry struct {
	Value string `json:"value"` // 玩家id
	Score int    `json:"score"` // 尝试次数
	Rank  int    `json:"rank"`
	Name  string `json:"name,omitempty"`
}

// Leaderboard 是某一天的排行榜
type Leaderboard struct {
	Date   calendar.DayID  `json:"date"`
	Target *catalog.Entity `json:"target"`
	Scores []Entry         `json:"scores"`
}
