package score

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const compensateTimeout = 2 * time.Second

// markerCompensator 封装了已写入的游玩标记的回滚逻辑。
// 成绩写入失败时删除标记，让玩家可以重新提交。
type markerCompensator struct {
	rdb       redis.Cmdable
	key       string
	committed bool
}

// Commit 标记成绩已经写入，阻止后续的回滚
func (c *markerCompensator) Commit() {
	c.committed = true
}

// RollbackUnlessCommitted 用于defer调用。如果 Commit 没有被调用，删除游玩标记。
func (c *markerCompensator) RollbackUnlessCommitted(ctx context.Context) {
	if c.committed {
		return
	}
	// 请求可能已经被取消，补偿操作使用独立的超时
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), compensateTimeout)
	defer cancel()
	if err := c.rdb.Del(ctx, c.key).Err(); err != nil {
		log.Error().Err(err).Str("key", c.key).Msg("严重警告: 游玩标记补偿操作失败")
		return
	}
	log.Warn().Str("key", c.key).Msg("成绩写入失败，已删除游玩标记")
}
