package leaderboard

import (
	"time"

	"github.com/SlpAus/daily-guess-backend/internal/platform/calendar"
	"github.com/SlpAus/daily-guess-backend/internal/platform/config"
	"github.com/coocood/freecache"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
)

// Cache 缓存已经结束的日期的排行榜。当天的排行榜仍在变化，不会进入缓存。
type Cache struct {
	fc  *freecache.Cache
	ttl time.Duration
}

// NewCache 根据配置创建缓存，未启用时返回 nil
func NewCache(cfg config.CacheConfig) *Cache {
	if !cfg.Enabled || cfg.SizeMB <= 0 {
		return nil
	}
	return &Cache{
		fc:  freecache.NewCache(cfg.SizeMB * 1024 * 1024),
		ttl: cfg.TTL,
	}
}

// Get 读取缓存的排行榜
func (c *Cache) Get(day calendar.DayID) (*Leaderboard, bool) {
	if c == nil {
		return nil, false
	}
	raw, err := c.fc.Get([]byte(day))
	if err != nil {
		return nil, false
	}
	var lb Leaderboard
	if err := json.Unmarshal(raw, &lb); err != nil {
		log.Warn().Err(err).Str("day", string(day)).Msg("缓存的排行榜无法解析，已丢弃")
		c.fc.Del([]byte(day))
		return nil, false
	}
	return &lb, true
}

// Set 写入缓存，失败时只记录日志
func (c *Cache) Set(lb *Leaderboard) {
	if c == nil {
		return
	}
	raw, err := json.Marshal(lb)
	if err != nil {
		log.Warn().Err(err).Str("day", string(lb.Date)).Msg("排行榜序列化失败，跳过缓存")
		return
	}
	if err := c.fc.Set([]byte(lb.Date), raw, int(c.ttl.Seconds())); err != nil {
		log.Warn().Err(err).Str("day", string(lb.Date)).Msg("写入排行榜缓存失败")
	}
}

// Clear 清空缓存，Redis数据从归档恢复后调用
func (c *Cache) Clear() {
	if c == nil {
		return
	}
	c.fc.Clear()
}
