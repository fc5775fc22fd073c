package backup

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/SlpAus/daily-guess-backend/internal/platform/calendar"
	"github.com/SlpAus/daily-guess-backend/internal/platform/database"
	"github.com/SlpAus/daily-guess-backend/internal/platform/metadata"
	"github.com/SlpAus/daily-guess-backend/internal/platform/metrics"
	"github.com/SlpAus/daily-guess-backend/internal/score"
	"github.com/SlpAus/daily-guess-backend/internal/target"
	"github.com/SlpAus/daily-guess-backend/pkg/lifecycle"
	"github.com/cespare/xxhash/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	scanBatchSize   = 500  // 每次SCAN的数量
	insertBatchSize = 500  // 每批写入归档的行数
	restoreBatch    = 1000 // 恢复时每个Pipeline的命令数
)

// ErrShrunkTargets 表示Store中的每日目标比归档中少。每日目标从不删除，
// 这说明Store的数据已经丢失，此时拒绝用它覆盖归档。
var ErrShrunkTargets = errors.New("store has fewer daily targets than the archive")

// Service 负责在Store与归档数据库之间做快照和恢复
type Service struct {
	db        *gorm.DB
	store     *database.Store
	clock     *calendar.Clock
	markerTTL time.Duration
	metrics   metrics.Recorder

	mu sync.Mutex // 快照与恢复互斥
}

// NewService 创建归档服务
func NewService(db *gorm.DB, store *database.Store, clock *calendar.Clock, markerTTL time.Duration, rec metrics.Recorder) *Service {
	if rec == nil {
		rec = metrics.Noop{}
	}
	return &Service{db: db, store: store, clock: clock, markerTTL: markerTTL, metrics: rec}
}

// Status 是归档最近一次快照和恢复的时间，未发生过时为 nil
type Status struct {
	LastSnapshotAt *time.Time `json:"lastSnapshotAt,omitempty"`
	LastRestoreAt  *time.Time `json:"lastRestoreAt,omitempty"`
}

// Status 从元数据表读取归档状态
func (s *Service) Status() (Status, error) {
	var st Status
	for key, dst := range map[string]**time.Time{
		metadata.LastSnapshotAtKey: &st.LastSnapshotAt,
		metadata.LastRestoreAtKey:  &st.LastRestoreAt,
	} {
		t, err := metadata.GetTime(s.db, key)
		if err != nil {
			return Status{}, err
		}
		if !t.IsZero() {
			*dst = &t
		}
	}
	return st, nil
}

// Migrate 迁移归档表结构
func (s *Service) Migrate() error {
	if err := s.db.AutoMigrate(&ArchivedTarget{}, &ArchivedLastPicked{}, &ArchivedScore{}); err != nil {
		return fmt.Errorf("无法迁移归档表: %w", err)
	}
	return metadata.Migrate(s.db)
}

// StartScheduler 启动定时快照。graceful 被取消后不再开始新的快照；
// 正在进行的快照只会被 forceful 中断。
func (s *Service) StartScheduler(graceful, forceful *lifecycle.Handle, interval time.Duration) {
	defer graceful.Close() // 确保在退出时通知管理器
	defer forceful.Close()
	log.Info().Dur("interval", interval).Msg("归档快照调度器已启动")

	for {
		// 可中断的休眠，收到停机信号时立刻退出
		if err := graceful.Sleep(interval); err != nil {
			log.Info().Msg("归档快照调度器: 休眠被中断，正在关闭")
			return
		}

		if !s.store.IsHealthy() {
			log.Warn().Msg("归档快照调度器: 检测到Redis不可用，跳过本次快照")
			continue
		}

		if err := s.Snapshot(forceful.Ctx()); err != nil {
			// 如果错误是由于停机信号导致的，则静默退出
			if !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
				log.Error().Err(err).Msg("归档快照调度器: 执行快照失败")
			}
		}
	}
}

// Snapshot 把Store中的每日目标、最近选中日期、成绩与猜测序列写入归档。
// 内容与上次快照相同则跳过。成绩表按快照整体替换，resetToday 清空的成绩也会从归档中消失。
func (s *Service) Snapshot(ctx context.Context) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer func() {
		if !errors.Is(err, context.Canceled) {
			s.metrics.IncArchiveSnapshot(err == nil)
		}
	}()

	rdb, err := s.store.Client(ctx)
	if err != nil {
		return err
	}

	// 1. 从Redis读取快照
	snap, err := readSnapshot(ctx, rdb)
	if err != nil {
		return err
	}
	digest := snap.digest()

	lastDigest, err := metadata.GetLastSnapshotDigest(s.db)
	if err != nil {
		return fmt.Errorf("获取 LastSnapshotDigest 失败: %w", err)
	}
	// 无需备份
	if digest == lastDigest {
		return nil
	}

	var archived int64
	if err := s.db.Model(&ArchivedTarget{}).Count(&archived).Error; err != nil {
		return fmt.Errorf("统计归档中的每日目标失败: %w", err)
	}
	if int64(len(snap.targets)) < archived {
		return fmt.Errorf("%w (store: %d, archive: %d)", ErrShrunkTargets, len(snap.targets), archived)
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	// 2. 将快照数据持久化到归档
	const maxRetry = 3
	const delay = 50 * time.Millisecond
	for i := 0; i < maxRetry; i++ {
		err = s.db.Transaction(func(tx *gorm.DB) error {
			return writeSnapshot(tx, snap, digest)
		})
		if err == nil || !database.IsRetryableError(err) {
			break
		}
		time.Sleep(delay)
	}
	if err != nil {
		return err
	}

	log.Info().
		Int("targets", len(snap.targets)).
		Int("lastPicked", len(snap.lastPicked)).
		Int("scores", len(snap.scores)).
		Msg("归档快照成功")
	return nil
}

func writeSnapshot(tx *gorm.DB, snap *snapshot, digest uint64) error {
	// a. 每日目标和最近选中日期只增不删，按主键 upsert
	if len(snap.targets) > 0 {
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "day"}},
			DoUpdates: clause.AssignmentColumns([]string{"ref", "updated_at"}),
		}).CreateInBatches(&snap.targets, insertBatchSize).Error
		if err != nil {
			return fmt.Errorf("批量更新每日目标失败: %w", err)
		}
	}
	if len(snap.lastPicked) > 0 {
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "entity_ref"}},
			DoUpdates: clause.AssignmentColumns([]string{"day", "updated_at"}),
		}).CreateInBatches(&snap.lastPicked, insertBatchSize).Error
		if err != nil {
			return fmt.Errorf("批量更新最近选中日期失败: %w", err)
		}
	}

	// b. 成绩整体替换
	if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&ArchivedScore{}).Error; err != nil {
		return fmt.Errorf("清空归档成绩失败: %w", err)
	}
	if len(snap.scores) > 0 {
		if err := tx.CreateInBatches(&snap.scores, insertBatchSize).Error; err != nil {
			return fmt.Errorf("写入归档成绩失败: %w", err)
		}
	}

	// c. 更新元数据
	if err := metadata.SetLastSnapshotDigest(tx, digest); err != nil {
		return fmt.Errorf("更新元数据 LastSnapshotDigest 失败: %w", err)
	}
	if err := metadata.SetTime(tx, metadata.LastSnapshotAtKey, time.Now()); err != nil {
		return fmt.Errorf("更新元数据 LastSnapshotAt 失败: %w", err)
	}
	return nil
}

// readSnapshot 并发读取三类数据，结果按主键排序，保证摘要稳定
func readSnapshot(ctx context.Context, rdb *redis.Client) (*snapshot, error) {
	snap := &snapshot{}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		all, err := rdb.HGetAll(gctx, target.TargetsKey).Result()
		if err != nil {
			return fmt.Errorf("读取 %s 失败: %w", target.TargetsKey, err)
		}
		for day, ref := range all {
			snap.targets = append(snap.targets, ArchivedTarget{Day: day, Ref: ref})
		}
		sort.Slice(snap.targets, func(i, j int) bool { return snap.targets[i].Day < snap.targets[j].Day })
		return nil
	})

	g.Go(func() error {
		keys, err := scanKeys(gctx, rdb, target.LastPickedKeyPrefix+"*")
		if err != nil {
			return err
		}
		if len(keys) == 0 {
			return nil
		}
		values, err := rdb.MGet(gctx, keys...).Result()
		if err != nil {
			return fmt.Errorf("批量读取 %s 失败: %w", target.LastPickedKeyPrefix, err)
		}
		for i, key := range keys {
			day, ok := values[i].(string)
			if !ok {
				continue
			}
			snap.lastPicked = append(snap.lastPicked, ArchivedLastPicked{
				EntityRef: strings.TrimPrefix(key, target.LastPickedKeyPrefix),
				Day:       day,
			})
		}
		return nil
	})

	g.Go(func() error {
		scores, err := readScores(gctx, rdb)
		if err != nil {
			return err
		}
		snap.scores = scores
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return snap, nil
}

func readScores(ctx context.Context, rdb *redis.Client) ([]ArchivedScore, error) {
	keys, err := scanKeys(ctx, rdb, score.ScoresKeyPrefix+"*")
	if err != nil {
		return nil, err
	}

	pipe := rdb.Pipeline()
	zCmds := make([]*redis.ZSliceCmd, len(keys))
	gCmds := make([]*redis.MapStringStringCmd, len(keys))
	for i, key := range keys {
		day := strings.TrimPrefix(key, score.ScoresKeyPrefix)
		zCmds[i] = pipe.ZRangeWithScores(ctx, key, 0, -1)
		gCmds[i] = pipe.HGetAll(ctx, score.GuessesKey(day))
	}
	if len(keys) > 0 {
		if _, err := pipe.Exec(ctx); err != nil {
			return nil, fmt.Errorf("批量读取成绩失败: %w", err)
		}
	}

	var scores []ArchivedScore
	for i, key := range keys {
		day := strings.TrimPrefix(key, score.ScoresKeyPrefix)
		guesses := gCmds[i].Val()
		for _, z := range zCmds[i].Val() {
			player := fmt.Sprint(z.Member)
			scores = append(scores, ArchivedScore{
				Day:      day,
				Player:   player,
				Attempts: int(z.Score),
				Guesses:  guesses[player],
			})
		}
	}
	return scores, nil
}

func scanKeys(ctx context.Context, rdb *redis.Client, pattern string) ([]string, error) {
	var (
		cursor uint64
		keys   []string
	)
	for {
		batch, next, err := rdb.Scan(ctx, cursor, pattern, scanBatchSize).Result()
		if err != nil {
			return nil, fmt.Errorf("扫描 %s 失败: %w", pattern, err)
		}
		keys = append(keys, batch...)
		cursor = next
		if cursor == 0 {
			break
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *snapshot) digest() uint64 {
	sort.Slice(s.lastPicked, func(i, j int) bool { return s.lastPicked[i].EntityRef < s.lastPicked[j].EntityRef })
	sort.Slice(s.scores, func(i, j int) bool {
		if s.scores[i].Day != s.scores[j].Day {
			return s.scores[i].Day < s.scores[j].Day
		}
		return s.scores[i].Player < s.scores[j].Player
	})

	h := xxhash.New()
	for _, t := range s.targets {
		_, _ = h.WriteString("t|" + t.Day + "|" + t.Ref + "\n")
	}
	for _, p := range s.lastPicked {
		_, _ = h.WriteString("p|" + p.EntityRef + "|" + p.Day + "\n")
	}
	for _, sc := range s.scores {
		_, _ = h.WriteString("s|" + sc.Day + "|" + sc.Player + "|" + strconv.Itoa(sc.Attempts) + "|" + sc.Guesses + "\n")
	}
	return h.Sum64()
}

// Restore 把归档写回Store。所有写入都是"不存在才写"，Store中已有的数据不会被覆盖。
// 今天和昨天有成绩的玩家会重新获得游玩标记。
func (s *Service) Restore(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rdb, err := s.store.Client(ctx)
	if err != nil {
		return err
	}

	var (
		targets    []ArchivedTarget
		lastPicked []ArchivedLastPicked
		scores     []ArchivedScore
	)
	if err := s.db.Find(&targets).Error; err != nil {
		return fmt.Errorf("读取归档的每日目标失败: %w", err)
	}
	if err := s.db.Find(&lastPicked).Error; err != nil {
		return fmt.Errorf("读取归档的最近选中日期失败: %w", err)
	}
	if err := s.db.Find(&scores).Error; err != nil {
		return fmt.Errorf("读取归档成绩失败: %w", err)
	}

	markerDays := map[string]bool{
		string(s.clock.Today()):     true,
		string(s.clock.Yesterday()): true,
	}

	b := newBatcher(ctx, rdb)
	for _, t := range targets {
		b.add(func(p redis.Pipeliner) { p.HSetNX(ctx, target.TargetsKey, t.Day, t.Ref) })
	}
	for _, lp := range lastPicked {
		b.add(func(p redis.Pipeliner) { p.SetNX(ctx, target.LastPickedKey(lp.EntityRef), lp.Day, 0) })
	}
	markers := 0
	for _, sc := range scores {
		b.add(func(p redis.Pipeliner) {
			p.ZAddNX(ctx, score.ScoresKey(sc.Day), redis.Z{Score: float64(sc.Attempts), Member: sc.Player})
			if sc.Guesses != "" {
				p.HSetNX(ctx, score.GuessesKey(sc.Day), sc.Player, sc.Guesses)
			}
		})
		if markerDays[sc.Day] {
			if id, err := strconv.Atoi(sc.Player); err == nil {
				markers++
				b.add(func(p redis.Pipeliner) {
					p.SetNX(ctx, score.PlayedKey(sc.Day, id), sc.Attempts, s.markerTTL)
				})
			}
		}
	}
	if err := b.flush(); err != nil {
		return err
	}

	if err := metadata.SetTime(s.db, metadata.LastRestoreAtKey, time.Now()); err != nil {
		log.Warn().Err(err).Msg("更新元数据 LastRestoreAt 失败")
	}
	log.Info().
		Int("targets", len(targets)).
		Int("lastPicked", len(lastPicked)).
		Int("scores", len(scores)).
		Int("markers", markers).
		Msg("已从归档恢复Store")
	return nil
}

// batcher 把大量写入分成多个Pipeline执行
type batcher struct {
	ctx     context.Context
	rdb     *redis.Client
	pending []func(redis.Pipeliner)
}

func newBatcher(ctx context.Context, rdb *redis.Client) *batcher {
	return &batcher{ctx: ctx, rdb: rdb}
}

func (b *batcher) add(fn func(redis.Pipeliner)) {
	b.pending = append(b.pending, fn)
}

func (b *batcher) flush() error {
	for start := 0; start < len(b.pending); start += restoreBatch {
		end := min(start+restoreBatch, len(b.pending))
		_, err := b.rdb.Pipelined(b.ctx, func(p redis.Pipeliner) error {
			for _, fn := range b.pending[start:end] {
				fn(p)
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("写回Store失败: %w", err)
		}
	}
	b.pending = nil
	return nil
}
