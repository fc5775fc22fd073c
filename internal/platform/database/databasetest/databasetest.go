// Package databasetest starts an in-memory Redis for tests in other packages.
package databasetest

import (
	"testing"

	"github.com/SlpAus/daily-guess-backend/internal/platform/config"
	"github.com/SlpAus/daily-guess-backend/internal/platform/database"
	"github.com/alicebob/miniredis/v2"
)

// NewStore 启动一个 miniredis 并返回连接到它的 Store，测试结束时自动关闭
func NewStore(t testing.TB) (*database.Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	store := database.NewStore(config.RedisConfig{Address: mr.Addr()})
	t.Cleanup(func() { _ = store.Close() })
	return store, mr
}
