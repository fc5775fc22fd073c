package health

import (
	"sync"

	"github.com/rs/zerolog/log"
)

// State 定义了系统健康状态的枚举类型
type State int

const (
	StateHealthy State = iota
	StateDegraded
	StateRebuilding
)

func (s State) String() string {
	switch s {
	case StateHealthy:
		return "healthy"
	case StateDegraded:
		return "degraded"
	case StateRebuilding:
		return "rebuilding"
	default:
		return "unknown"
	}
}

// statusManager 负责线程安全地管理系统的健康状态。
type statusManager struct {
	mu             sync.RWMutex
	currentState   State
	lastKnownRunID string
}

func (sm *statusManager) state() State {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.currentState
}

func (sm *statusManager) setInitialRunID(runID string) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.lastKnownRunID = runID
}

// assess 根据一次检查的结果决定下一个状态，返回是否需要从归档恢复
func (sm *statusManager) assess(isCurrentlyConnected bool, newRunID string) (needsRebuild bool) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	switch sm.currentState {
	case StateHealthy:
		if !isCurrentlyConnected {
			sm.currentState = StateDegraded
			log.Warn().Msg("健康检查: Redis连接丢失，系统状态 -> [降级]")
		} else if sm.lastKnownRunID != "" && sm.lastKnownRunID != newRunID {
			sm.currentState = StateRebuilding
			needsRebuild = true
			log.Warn().Str("from", sm.lastKnownRunID).Str("to", newRunID).Msg("健康检查: 检测到Redis重启，系统状态 -> [重建中]")
		}
	case StateDegraded:
		if isCurrentlyConnected {
			if sm.lastKnownRunID != "" && sm.lastKnownRunID != newRunID {
				sm.currentState = StateRebuilding
				needsRebuild = true
				log.Warn().Str("from", sm.lastKnownRunID).Str("to", newRunID).Msg("健康检查: Redis已恢复但检测到重启，系统状态 -> [重建中]")
			} else {
				sm.currentState = StateHealthy
				log.Info().Msg("健康检查: Redis连接已恢复，系统状态 -> [健康]")
			}
		}
	case StateRebuilding:
		if !isCurrentlyConnected {
			sm.currentState = StateDegraded
			log.Warn().Msg("健康检查: 在恢复期间Redis连接再次丢失，系统状态 -> [降级]")
		} else {
			// 连接正常但仍处于重建状态，说明上次恢复失败了
			needsRebuild = true
			log.Info().Msg("健康检查: 系统处于[重建中]状态，将再次尝试恢复")
		}
	}

	if isCurrentlyConnected {
		sm.lastKnownRunID = newRunID
	}
	return needsRebuild
}

// markRebuildComplete 在一次恢复尝试之后调用
func (sm *statusManager) markRebuildComplete(success bool, runIDAfterRebuild string) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.currentState != StateRebuilding {
		return
	}

	// 恢复期间Redis再次重启，恢复无效
	if success && sm.lastKnownRunID != runIDAfterRebuild {
		log.Error().Str("from", sm.lastKnownRunID).Str("to", runIDAfterRebuild).Msg("健康检查错误: 恢复期间检测到Redis再次重启，保持[重建中]状态")
		sm.lastKnownRunID = runIDAfterRebuild
		return
	}

	if success {
		sm.currentState = StateHealthy
		log.Info().Msg("健康检查: 恢复成功，系统状态 -> [健康]")
	} else {
		log.Error().Msg("健康检查错误: 恢复失败，系统状态保持 [重建中] 以待重试")
	}
}
