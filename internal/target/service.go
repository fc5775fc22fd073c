package target

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/SlpAus/daily-guess-backend/internal/catalog"
	"github.com/SlpAus/daily-guess-backend/internal/platform/calendar"
	"github.com/SlpAus/daily-guess-backend/internal/platform/database"
	"github.com/SlpAus/daily-guess-backend/internal/platform/metrics"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

// selectTimeout 限制一次共享抽取的总耗时，与发起它的请求是否断开无关
const selectTimeout = 10 * time.Second

// Service 负责每日目标的查找、迁移与抽取
type Service struct {
	store           *database.Store
	catalog         *catalog.Catalog
	clock           *calendar.Clock
	metrics         metrics.Recorder
	random          func() float64
	fallbackToFirst bool

	// 同一进程内对同一天的并发调用只执行一次抽取
	group singleflight.Group
}

// Option 用于定制 Service
type Option func(*Service)

// WithRandom 替换抽取时使用的 [0,1) 随机数来源
func WithRandom(random func() float64) Option {
	return func(s *Service) { s.random = random }
}

// WithMetrics 设置指标记录器
func WithMetrics(rec metrics.Recorder) Option {
	return func(s *Service) { s.metrics = rec }
}

// WithFallbackToFirst 开启后，今日目标无法解析时退回目录中的第一个实体而不是返回 ErrNotFound
func WithFallbackToFirst(enabled bool) Option {
	return func(s *Service) { s.fallbackToFirst = enabled }
}

// NewService 创建目标选择服务
func NewService(store *database.Store, c *catalog.Catalog, clock *calendar.Clock, opts ...Option) *Service {
	s := &Service{
		store:   store,
		catalog: c,
		clock:   clock,
		metrics: metrics.Noop{},
		random:  rand.Float64,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewSeededRandom 返回一个由固定种子驱动、可并发调用的随机数来源
func NewSeededRandom(seed uint64) func() float64 {
	var mu sync.Mutex
	r := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	return func() float64 {
		mu.Lock()
		defer mu.Unlock()
		return r.Float64()
	}
}

// SelectTarget 返回某一天的目标引用。已经存在时原样返回；不存在时按最近选中日期加权抽取一个并持久化。
// 多个调用者（包括其他进程）并发调用时，都会得到同一个结果。
func (s *Service) SelectTarget(ctx context.Context, day calendar.DayID) (Ref, error) {
	ch := s.group.DoChan(string(day), func() (any, error) {
		// 同一天的所有调用者共享这次抽取，第一个调用者断开不能让其他人一起失败
		flightCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), selectTimeout)
		defer cancel()
		return s.selectTarget(flightCtx, day)
	})
	select {
	case <-ctx.Done():
		return Ref{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return Ref{}, res.Err
		}
		return res.Val.(Ref), nil
	}
}

func (s *Service) selectTarget(ctx context.Context, day calendar.DayID) (Ref, error) {
	rdb, err := s.store.Client(ctx)
	if err != nil {
		return Ref{}, err
	}

	ref, found, err := s.lookup(ctx, rdb, day)
	if err != nil || found {
		return ref, err
	}
	return s.draw(ctx, rdb, day)
}

// Lookup 读取某一天已有的目标，不会触发抽取。旧格式的记录会在读取时迁移到当前格式。
func (s *Service) Lookup(ctx context.Context, day calendar.DayID) (Ref, bool, error) {
	rdb, err := s.store.Client(ctx)
	if err != nil {
		return Ref{}, false, err
	}
	return s.lookup(ctx, rdb, day)
}

func (s *Service) lookup(ctx context.Context, rdb redis.Cmdable, day calendar.DayID) (Ref, bool, error) {
	for _, sc := range schemes {
		raw, ok, err := sc.read(ctx, rdb, day)
		if err != nil {
			return Ref{}, false, err
		}
		if !ok {
			continue
		}
		ref := ParseRef(raw)
		if sc.source != SourceHash {
			ref, err = s.migrate(ctx, rdb, day, ref, sc.source)
			if err != nil {
				return Ref{}, false, err
			}
		}
		s.metrics.IncTargetResolution(sc.source)
		return ref, true, nil
	}
	return Ref{}, false, nil
}

// migrate 把旧格式的记录写入 daily:targets。旧键保留不删。
func (s *Service) migrate(ctx context.Context, rdb redis.Cmdable, day calendar.DayID, ref Ref, source string) (Ref, error) {
	canonical := CanonicalRef(s.catalog, ref)
	won, err := claimTarget(ctx, rdb, day, canonical)
	if err != nil {
		return Ref{}, err
	}
	if !won {
		// 其他实例先完成了迁移，以它写入的值为准
		raw, ok, err := readHashField(ctx, rdb, day)
		if err != nil {
			return Ref{}, err
		}
		if ok {
			return ParseRef(raw), nil
		}
	}
	log.Info().Str("day", string(day)).Str("from", source).Str("ref", canonical.String()).Msg("已将旧格式的每日目标迁移到 daily:targets")
	return canonical, nil
}

func (s *Service) draw(ctx context.Context, rdb *redis.Client, day calendar.DayID) (Ref, error) {
	entities := s.catalog.Entities()
	lastPicked, err := readLastPicked(ctx, rdb, entities)
	if err != nil {
		return Ref{}, err
	}

	weights := make([]float64, len(entities))
	for i, e := range entities {
		weights[i] = s.weightFor(e, lastPicked[i], day)
	}
	idx := PickWeighted(weights, s.random()*TotalWeight(weights))
	chosen := entities[idx]

	won, err := claimDraw(ctx, rdb, day, chosen.ID)
	if err != nil {
		return Ref{}, err
	}
	if !won {
		raw, ok, err := readHashField(ctx, rdb, day)
		if err != nil {
			return Ref{}, err
		}
		if !ok {
			return Ref{}, fmt.Errorf("%s[%s] 写入冲突后读取为空", TargetsKey, day)
		}
		s.metrics.IncTargetResolution(SourceConcurrent)
		return ParseRef(raw), nil
	}

	s.metrics.IncTargetResolution(SourceDrawn)
	log.Info().Str("day", string(day)).Int("entity", chosen.ID).Str("name", chosen.Name).Float64("weight", weights[idx]).Msg("已抽取每日目标")
	return IDRef(chosen.ID), nil
}

func (s *Service) weightFor(e catalog.Entity, lastPicked string, day calendar.DayID) float64 {
	if lastPicked == "" {
		return RecencyWeight(0, false)
	}
	days, err := calendar.DaysBetween(calendar.DayID(lastPicked), day)
	if err != nil {
		log.Warn().Err(err).Int("entity", e.ID).Str("value", lastPicked).Msg("最近选中日期无法解析，按从未选中处理")
		return RecencyWeight(0, false)
	}
	return RecencyWeight(days, true)
}

// ResolveEntity 把引用解析为目录实体
func (s *Service) ResolveEntity(ref Ref) (catalog.Entity, bool) {
	return Resolve(s.catalog, ref)
}

// TodayEntity 返回今天的目标实体，必要时先完成抽取
func (s *Service) TodayEntity(ctx context.Context) (catalog.Entity, error) {
	day := s.clock.Today()
	ref, err := s.SelectTarget(ctx, day)
	if err != nil {
		return catalog.Entity{}, err
	}
	if e, ok := s.ResolveEntity(ref); ok {
		return e, nil
	}
	if s.fallbackToFirst {
		log.Warn().Str("day", string(day)).Str("ref", ref.String()).Msg("今日目标无法解析，退回目录中的第一个实体")
		return s.catalog.First(), nil
	}
	return catalog.Entity{}, fmt.Errorf("今日目标 %q: %w", ref.String(), catalog.ErrNotFound)
}

// EntityForDay 返回某一天已有的目标实体，不会触发抽取。当天没有目标或引用无法解析时返回 nil。
func (s *Service) EntityForDay(ctx context.Context, day calendar.DayID) (*catalog.Entity, error) {
	ref, found, err := s.Lookup(ctx, day)
	if err != nil || !found {
		return nil, err
	}
	e, ok := s.ResolveEntity(ref)
	if !ok {
		log.Warn().Str("day", string(day)).Str("ref", ref.String()).Msg("每日目标引用无法解析")
		return nil, nil
	}
	return &e, nil
}

// ImportPlanning 把预先排好的 日期 -> 引用 写入 daily:targets，已有的日期不会被覆盖。
// 返回实际写入的条数。
func (s *Service) ImportPlanning(ctx context.Context, planning map[calendar.DayID]string) (int, error) {
	rdb, err := s.store.Client(ctx)
	if err != nil {
		return 0, err
	}
	imported := 0
	for day, raw := range planning {
		ref := ParseRef(raw)
		if ref.IsZero() {
			log.Warn().Str("day", string(day)).Msg("排期中的引用为空，已跳过")
			continue
		}
		// 能解析的引用统一写成数字id，客户端只认识id或真实名称
		if e, ok := s.ResolveEntity(ref); ok {
			ref = IDRef(e.ID)
		} else {
			log.Warn().Str("day", string(day)).Str("ref", raw).Msg("排期中的引用无法解析，仍按原样写入")
		}
		won, err := claimTarget(ctx, rdb, day, ref)
		if err != nil {
			return imported, err
		}
		if won {
			imported++
		}
	}
	return imported, nil
}
