package player

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/SlpAus/daily-guess-backend/internal/catalog"
)

// ErrInvalidPlayer 表示玩家id格式错误或不是已知玩家
var ErrInvalidPlayer = errors.New("invalid player id")

// ParseID 解析玩家id，必须是正整数
func ParseID(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	id, err := strconv.Atoi(raw)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidPlayer, raw)
	}
	return id, nil
}

// Registry 判断一个玩家id是否可以参与游戏。
// 玩家本身就是目录中的实体；关闭 requireKnown 后任何正整数都被接受。
type Registry struct {
	catalog      *catalog.Catalog
	requireKnown bool
}

// NewRegistry 创建玩家注册表
func NewRegistry(c *catalog.Catalog, requireKnown bool) *Registry {
	return &Registry{catalog: c, requireKnown: requireKnown}
}

// Validate 校验玩家id
func (r *Registry) Validate(id int) error {
	if id <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidPlayer, id)
	}
	if r.requireKnown {
		if _, ok := r.catalog.ByID(id); !ok {
			return fmt.Errorf("%w: %d 不在目录中", ErrInvalidPlayer, id)
		}
	}
	return nil
}

// Name 返回玩家在目录中的名称，不是目录实体时返回空字符串
func (r *Registry) Name(id int) string {
	if e, ok := r.catalog.ByID(id); ok {
		return e.Name
	}
	return ""
}
