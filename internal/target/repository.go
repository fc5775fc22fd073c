package target

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/SlpAus/daily-guess-backend/internal/catalog"
	"github.com/SlpAus/daily-guess-backend/internal/platform/calendar"
	"github.com/redis/go-redis/v9"
)

// 每日目标在不同版本中使用过的存储格式，按优先级排列
const (
	SourceHash       = "hash"          // daily:targets 的 day -> ref 字段
	SourceInverted   = "inverted_hash" // daily:targets 中曾经写反的 ref -> day 字段
	SourceLegacyKey  = "legacy_key"    // daily:target:{day} 字符串键
	SourceDrawn      = "drawn"         // 本次调用新抽取
	SourceConcurrent = "concurrent"    // 抽取后发现其他实例已经写入
)

type scheme struct {
	source string
	read   func(ctx context.Context, rdb redis.Cmdable, day calendar.DayID) (string, bool, error)
}

// schemes 按顺序尝试；第一个命中的格式生效
var schemes = []scheme{
	{source: SourceHash, read: readHashField},
	{source: SourceInverted, read: readInvertedField},
	{source: SourceLegacyKey, read: readLegacyKey},
}

func readHashField(ctx context.Context, rdb redis.Cmdable, day calendar.DayID) (string, bool, error) {
	raw, err := rdb.HGet(ctx, TargetsKey, string(day)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("读取 %s[%s] 失败: %w", TargetsKey, day, err)
	}
	return raw, raw != "", nil
}

// readInvertedField 查找字段为实体引用、值为日期的旧记录
func readInvertedField(ctx context.Context, rdb redis.Cmdable, day calendar.DayID) (string, bool, error) {
	all, err := rdb.HGetAll(ctx, TargetsKey).Result()
	if err != nil {
		return "", false, fmt.Errorf("扫描 %s 失败: %w", TargetsKey, err)
	}
	var matches []string
	for field, value := range all {
		if value != string(day) {
			continue
		}
		if _, err := calendar.Parse(field); err == nil {
			continue
		}
		matches = append(matches, field)
	}
	if len(matches) == 0 {
		return "", false, nil
	}
	// 多条记录声明同一天时取字典序最小的一条，保证结果稳定
	sort.Strings(matches)
	return matches[0], true, nil
}

func readLegacyKey(ctx context.Context, rdb redis.Cmdable, day calendar.DayID) (string, bool, error) {
	raw, err := rdb.Get(ctx, LegacyTargetKey(string(day))).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("读取 %s 失败: %w", LegacyTargetKey(string(day)), err)
	}
	return raw, raw != "", nil
}

// claimTarget 仅在当天尚无目标时写入，返回是否由本次调用写入
func claimTarget(ctx context.Context, rdb redis.Cmdable, day calendar.DayID, ref Ref) (bool, error) {
	ok, err := rdb.HSetNX(ctx, TargetsKey, string(day), ref.String()).Result()
	if err != nil {
		return false, fmt.Errorf("写入 %s[%s] 失败: %w", TargetsKey, day, err)
	}
	return ok, nil
}

// readLastPicked 返回每个实体最近一次被选中的日期，与 entities 一一对应；未被选中过的为空字符串。
// 先按id读取，缺失的再按名称读取旧记录。
func readLastPicked(ctx context.Context, rdb redis.Cmdable, entities []catalog.Entity) ([]string, error) {
	result := make([]string, len(entities))
	if len(entities) == 0 {
		return result, nil
	}

	byID, err := getMany(ctx, rdb, entities, func(e catalog.Entity) string {
		return LastPickedKey(strconv.Itoa(e.ID))
	})
	if err != nil {
		return nil, err
	}

	var missing []int
	for i, v := range byID {
		if v == "" {
			missing = append(missing, i)
			continue
		}
		result[i] = v
	}
	if len(missing) == 0 {
		return result, nil
	}

	legacy := make([]catalog.Entity, len(missing))
	for j, i := range missing {
		legacy[j] = entities[i]
	}
	byName, err := getMany(ctx, rdb, legacy, func(e catalog.Entity) string {
		return LastPickedKey(e.Name)
	})
	if err != nil {
		return nil, err
	}
	for j, i := range missing {
		result[i] = byName[j]
	}
	return result, nil
}

func getMany(ctx context.Context, rdb redis.Cmdable, entities []catalog.Entity, key func(catalog.Entity) string) ([]string, error) {
	pipe := rdb.Pipeline()
	cmds := make([]*redis.StringCmd, len(entities))
	for i, e := range entities {
		cmds[i] = pipe.Get(ctx, key(e))
	}
	// 不存在的键会让 Exec 返回 redis.Nil，这是正常情况
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("批量读取 %s 失败: %w", LastPickedKeyPrefix, err)
	}
	values := make([]string, len(entities))
	for i, cmd := range cmds {
		v, err := cmd.Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("读取 %s 失败: %w", key(entities[i]), err)
		}
		values[i] = v
	}
	return values, nil
}

// claimDrawScript 在当天尚无目标时写入抽取结果，并在同一步中更新最近选中日期。
// KEYS[1]: daily:targets  KEYS[2]: daily:lastPicked:{id}
// ARGV[1]: 日期  ARGV[2]: 实体id
var claimDrawScript = redis.NewScript(`
if redis.call('HSETNX', KEYS[1], ARGV[1], ARGV[2]) == 1 then
	redis.call('SET', KEYS[2], ARGV[1])
	return 1
end
return 0
`)

// claimDraw 原子地写入抽取出的目标和它的最近选中日期，返回是否由本次调用写入
func claimDraw(ctx context.Context, rdb redis.Scripter, day calendar.DayID, id int) (bool, error) {
	ref := strconv.Itoa(id)
	won, err := claimDrawScript.Run(ctx, rdb, []string{TargetsKey, LastPickedKey(ref)}, string(day), ref).Int()
	if err != nil {
		return false, fmt.Errorf("写入 %s[%s] 与 %s 失败: %w", TargetsKey, day, LastPickedKey(ref), err)
	}
	return won == 1, nil
}
