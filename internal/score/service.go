package score

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/SlpAus/daily-guess-backend/internal/platform/calendar"
	"github.com/SlpAus/daily-guess-backend/internal/platform/database"
	"github.com/SlpAus/daily-guess-backend/internal/platform/metrics"
	"github.com/SlpAus/daily-guess-backend/internal/player"
	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Service 负责记录每天的成绩
type Service struct {
	store     *database.Store
	players   *player.Registry
	clock     *calendar.Clock
	markerTTL time.Duration
	metrics   metrics.Recorder
	validate  *validator.Validate
}

// NewService 创建成绩服务
func NewService(store *database.Store, players *player.Registry, clock *calendar.Clock, markerTTL time.Duration, rec metrics.Recorder) *Service {
	if rec == nil {
		rec = metrics.Noop{}
	}
	return &Service{
		store:     store,
		players:   players,
		clock:     clock,
		markerTTL: markerTTL,
		metrics:   rec,
		validate:  validator.New(),
	}
}

// SubmitScore 记录玩家某一天的成绩。
// 格式错误返回 ErrValidation 且不写入任何数据；当天已经提交过返回 ErrAlreadyPlayed。
func (s *Service) SubmitScore(ctx context.Context, day calendar.DayID, sub Submission) (err error) {
	defer func() { s.metrics.IncScoreSubmission(outcomeOf(err)) }()

	if err := s.validate.Struct(sub); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if err := s.players.Validate(sub.PlayerID); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}

	var guesses []byte
	if len(sub.GuessIDs) > 0 {
		if guesses, err = json.Marshal(sub.GuessIDs); err != nil {
			return fmt.Errorf("无法序列化猜测序列: %w", err)
		}
	}

	rdb, err := s.store.Client(ctx)
	if err != nil {
		return err
	}

	// 1. 原子地写入游玩标记，已存在说明当天已经提交过
	key := PlayedKey(string(day), sub.PlayerID)
	ok, err := rdb.SetNX(ctx, key, sub.Attempts, s.markerTTL).Result()
	if err != nil {
		return fmt.Errorf("写入游玩标记失败: %w", err)
	}
	if !ok {
		return ErrAlreadyPlayed
	}

	compensator := &markerCompensator{rdb: rdb, key: key}
	defer compensator.RollbackUnlessCommitted(ctx)

	// 2. 成绩与猜测序列在同一个事务中写入。NX保证同一玩家的第一条成绩不会被覆盖。
	member := Member(sub.PlayerID)
	_, err = rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZAddNX(ctx, ScoresKey(string(day)), redis.Z{Score: float64(sub.Attempts), Member: member})
		if guesses != nil {
			pipe.HSet(ctx, GuessesKey(string(day)), member, guesses)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("写入成绩失败: %w", err)
	}

	compensator.Commit()
	log.Debug().Str("day", string(day)).Int("player", sub.PlayerID).Int("attempts", sub.Attempts).Msg("成绩已记录")
	return nil
}

// ResetDay 清空某一天的成绩集合。每日目标、游玩标记和猜测序列都保持不变。
func (s *Service) ResetDay(ctx context.Context, day calendar.DayID) error {
	rdb, err := s.store.Client(ctx)
	if err != nil {
		return err
	}
	if err := rdb.Del(ctx, ScoresKey(string(day))).Err(); err != nil {
		return fmt.Errorf("清空 %s 失败: %w", ScoresKey(string(day)), err)
	}
	log.Warn().Str("day", string(day)).Msg("已清空当天的成绩")
	return nil
}

// PlayerRecord 返回玩家某一天是否已经提交过成绩，以及记录的尝试次数
func (s *Service) PlayerRecord(ctx context.Context, day calendar.DayID, playerID int) (player.PlayRecord, error) {
	rdb, err := s.store.Client(ctx)
	if err != nil {
		return player.PlayRecord{}, err
	}

	pipe := rdb.Pipeline()
	existsCmd := pipe.Exists(ctx, PlayedKey(string(day), playerID))
	scoreCmd := pipe.ZScore(ctx, ScoresKey(string(day)), Member(playerID))
	guessesCmd := pipe.HGet(ctx, GuessesKey(string(day)), Member(playerID))
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return player.PlayRecord{}, fmt.Errorf("查询玩家 %d 的记录失败: %w", playerID, err)
	}

	record := player.PlayRecord{Played: existsCmd.Val() > 0}
	if v, err := scoreCmd.Result(); err == nil {
		attempts := int(v)
		record.Attempts = &attempts
		record.Played = true
	}
	if raw, err := guessesCmd.Bytes(); err == nil {
		if err := json.Unmarshal(raw, &record.Guesses); err != nil {
			// 猜测序列只用于展示，损坏时不影响状态查询
			log.Warn().Err(err).Int("player", playerID).Str("day", string(day)).Msg("无法解析玩家的猜测序列")
			record.Guesses = nil
		}
	}
	return record, nil
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return outcomeAccepted
	case errors.Is(err, ErrAlreadyPlayed):
		return outcomeAlreadyPlayed
	case errors.Is(err, ErrValidation):
		return outcomeInvalid
	default:
		return outcomeError
	}
}
