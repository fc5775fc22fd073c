package lifecycle

import (
	"context"
	"time"
)

// Handle 是分发给每个后台服务的生命周期控制器，由 Manager 创建。
type Handle struct {
	ctx context.Context
	// Close 通知Manager其所属的服务已经退出，应在服务的Goroutine中通过 defer 调用。
	Close func()
}

// Ctx 返回随停机信号取消的上下文
func (h *Handle) Ctx() context.Context {
	return h.ctx
}

// Done 在生命周期管理器发出停机信号时关闭
func (h *Handle) Done() <-chan struct{} {
	return h.ctx.Done()
}

// Err 在 Done() 关闭后返回上下文被取消的原因
func (h *Handle) Err() error {
	return h.ctx.Err()
}

// Sleep 暂停指定的时长；期间收到停机信号时提前返回错误。
func (h *Handle) Sleep(duration time.Duration) error {
	timer := time.NewTimer(duration)
	defer timer.Stop()

	select {
	case <-h.Done():
		return h.Err()
	case <-timer.C:
		return nil
	}
}
