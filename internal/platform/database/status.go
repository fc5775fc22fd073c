package database

import (
	"sync"

	"github.com/rs/zerolog/log"
)

// statusManager 负责线程安全地管理和提供Redis的健康状态。
type statusManager struct {
	mu             sync.RWMutex
	isRedisHealthy bool
}

// IsHealthy 返回当前Redis的健康状态。
func (s *Store) IsHealthy() bool {
	s.status.mu.RLock()
	defer s.status.mu.RUnlock()
	return s.status.isRedisHealthy
}

// SetHealthy 用于线程安全地更新健康状态，由健康检查器调用。
func (s *Store) SetHealthy(isHealthy bool) {
	s.status.mu.Lock()
	defer s.status.mu.Unlock()

	// 只有当状态发生变化时才打印日志
	if s.status.isRedisHealthy == isHealthy {
		return
	}
	s.status.isRedisHealthy = isHealthy
	if isHealthy {
		log.Info().Msg("健康检查: Redis服务状态已更新为 [可用]")
	} else {
		log.Warn().Msg("健康检查警告: Redis服务状态已更新为 [不可用]")
	}
}
