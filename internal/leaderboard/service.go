package leaderboard

import (
	"context"
	"fmt"
	"strconv"

	"github.com/SlpAus/daily-guess-backend/internal/catalog"
	"github.com/SlpAus/daily-guess-backend/internal/platform/calendar"
	"github.com/SlpAus/daily-guess-backend/internal/platform/database"
	"github.com/SlpAus/daily-guess-backend/internal/platform/metrics"
	"github.com/SlpAus/daily-guess-backend/internal/player"
	"github.com/SlpAus/daily-guess-backend/internal/score"
	"golang.org/x/sync/errgroup"
)

// DefaultSize 是排行榜返回的最大条目数
const DefaultSize = 50

// TargetReader 读取某一天已有的目标实体，不会触发抽取
type TargetReader interface {
	EntityForDay(ctx context.Context, day calendar.DayID) (*catalog.Entity, error)
}

// Service 负责生成每天的排行榜
type Service struct {
	store   *database.Store
	targets TargetReader
	players *player.Registry
	clock   *calendar.Clock
	cache   *Cache
	size    int
	metrics metrics.Recorder
}

// NewService 创建排行榜服务。cache 可以为 nil；size 不为正时使用 DefaultSize。
func NewService(store *database.Store, targets TargetReader, players *player.Registry, clock *calendar.Clock, cache *Cache, size int, rec metrics.Recorder) *Service {
	if size <= 0 {
		size = DefaultSize
	}
	if rec == nil {
		rec = metrics.Noop{}
	}
	return &Service{
		store:   store,
		targets: targets,
		players: players,
		clock:   clock,
		cache:   cache,
		size:    size,
		metrics: rec,
	}
}

// GetLeaderboard 返回某一天的目标以及按尝试次数升序排列的前N名
func (s *Service) GetLeaderboard(ctx context.Context, day calendar.DayID) (*Leaderboard, error) {
	past := day < s.clock.Today()
	if past && s.cache != nil {
		if lb, ok := s.cache.Get(day); ok {
			s.metrics.IncLeaderboardCache("hit")
			return lb, nil
		}
		s.metrics.IncLeaderboardCache("miss")
	}

	rdb, err := s.store.Client(ctx)
	if err != nil {
		return nil, err
	}

	lb := &Leaderboard{Date: day, Scores: []Entry{}}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		target, err := s.targets.EntityForDay(gctx, day)
		if err != nil {
			return err
		}
		lb.Target = target
		return nil
	})
	g.Go(func() error {
		zs, err := rdb.ZRangeWithScores(gctx, score.ScoresKey(string(day)), 0, int64(s.size-1)).Result()
		if err != nil {
			return fmt.Errorf("读取 %s 失败: %w", score.ScoresKey(string(day)), err)
		}
		entries := make([]Entry, 0, len(zs))
		for _, z := range zs {
			member := fmt.Sprint(z.Member)
			entry := Entry{Value: member, Score: int(z.Score)}
			if id, err := strconv.Atoi(member); err == nil {
				entry.Name = s.players.Name(id)
			}
			entries = append(entries, entry)
		}
		AssignRanks(entries)
		lb.Scores = entries
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if past {
		s.cache.Set(lb)
	}
	return lb, nil
}
