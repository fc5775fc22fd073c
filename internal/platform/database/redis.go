package database

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"

	"github.com/SlpAus/daily-guess-backend/internal/platform/config"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// ErrStoreUnavailable 表示无法与Redis建立或维持连接
var ErrStoreUnavailable = errors.New("store unavailable")

// Store 是整个进程共享的Redis句柄。
// 连接在第一次使用时建立，之后的调用者复用同一个客户端；
// 建立连接的过程由互斥锁保护，不会并发地打开重复连接。
type Store struct {
	opts *redis.Options
	mu   sync.Mutex
	// active 只在Ping成功后才被设置，无锁的快速路径只读它
	active atomic.Pointer[redis.Client]
	// pending 是尚未Ping成功的客户端，由 mu 保护
	pending *redis.Client

	status statusManager
}

// NewStore 根据配置创建一个尚未连接的Store
func NewStore(cfg config.RedisConfig) *Store {
	return &Store{
		opts: &redis.Options{
			Addr:     cfg.Address,
			Password: cfg.Password,
			DB:       cfg.DB,
		},
		status: statusManager{isRedisHealthy: true},
	}
}

// Client 返回已连接的Redis客户端，必要时先建立连接
func (s *Store) Client(ctx context.Context) (*redis.Client, error) {
	if client := s.active.Load(); client != nil {
		return client, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if client := s.active.Load(); client != nil {
		return client, nil
	}

	client := s.pending
	if client == nil {
		client = redis.NewClient(s.opts)
		client.AddHook(unavailableHook{})
	}
	// 使用Ping命令来测试连接是否成功
	if err := client.Ping(ctx).Err(); err != nil {
		// 保留客户端，下一次调用会重试Ping
		s.pending = client
		if errors.Is(err, ErrStoreUnavailable) {
			return nil, fmt.Errorf("无法连接到Redis %s: %w", s.opts.Addr, err)
		}
		return nil, fmt.Errorf("%w: 无法连接到Redis %s: %v", ErrStoreUnavailable, s.opts.Addr, err)
	}

	s.pending = nil
	s.active.Store(client)
	log.Info().Str("addr", s.opts.Addr).Msg("Redis 连接成功")
	return client, nil
}

// Close 关闭底层连接池
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	client := s.active.Swap(nil)
	if client == nil {
		client = s.pending
	}
	s.pending = nil
	if client == nil {
		return nil
	}
	return client.Close()
}

// IsUnavailable 判断一个Redis错误是否说明连接本身出了问题（而不是命令被拒绝）
func IsUnavailable(err error) bool {
	if err == nil || errors.Is(err, redis.Nil) {
		return false
	}
	if errors.Is(err, ErrStoreUnavailable) {
		return true
	}
	// context 的超时错误也实现了 net.Error，需要先排除
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, redis.ErrClosed) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

func needsMark(err error) bool {
	return IsUnavailable(err) && !errors.Is(err, ErrStoreUnavailable)
}

func markUnavailable(err error) error {
	if !needsMark(err) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
}

func markCmd(cmd redis.Cmder) {
	if needsMark(cmd.Err()) {
		cmd.SetErr(markUnavailable(cmd.Err()))
	}
}

// unavailableHook 把连接层面的失败统一标记为 ErrStoreUnavailable，
// 处理器据此返回503而不是500。
type unavailableHook struct{}

func (unavailableHook) DialHook(next redis.DialHook) redis.DialHook { return next }

func (unavailableHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		err := next(ctx, cmd)
		markCmd(cmd)
		return markUnavailable(err)
	}
}

func (unavailableHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		err := next(ctx, cmds)
		for _, cmd := range cmds {
			markCmd(cmd)
		}
		return markUnavailable(err)
	}
}
