package player

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

const (
	CookieName  = "magde-player"
	PlayerIDKey = "playerID"
)

// LoadPlayerMiddleware 读取玩家cookie，格式正确时把id放入Gin上下文。
// cookie缺失或无效不会中断请求，由具体的处理器决定是否需要玩家身份。
func LoadPlayerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, err := c.Cookie(CookieName)
		if err != nil {
			if !errors.Is(err, http.ErrNoCookie) {
				log.Debug().Err(err).Msg("读取玩家Cookie失败")
			}
			c.Next()
			return
		}
		id, err := ParseID(raw)
		if err != nil {
			log.Debug().Str("cookie", raw).Msg("检测到无效的玩家Cookie")
			c.Next()
			return
		}
		c.Set(PlayerIDKey, id)
		c.Next()
	}
}

// FromContext 返回中间件放入上下文的玩家id
func FromContext(c *gin.Context) (int, bool) {
	v, ok := c.Get(PlayerIDKey)
	if !ok {
		return 0, false
	}
	id, ok := v.(int)
	return id, ok
}
