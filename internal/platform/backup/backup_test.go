package backup

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/SlpAus/daily-guess-backend/internal/platform/calendar"
	"github.com/SlpAus/daily-guess-backend/internal/platform/database/databasetest"
	"github.com/SlpAus/daily-guess-backend/internal/score"
	"github.com/SlpAus/daily-guess-backend/internal/target"
	"github.com/SlpAus/daily-guess-backend/pkg/lifecycle"
	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestService(t *testing.T) (*Service, *miniredis.Miniredis, *gorm.DB) {
	t.Helper()
	store, mr := databasetest.NewStore(t)
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "archive.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	paris, err := time.LoadLocation("Europe/Paris")
	require.NoError(t, err)
	clock := calendar.NewFixedClock(paris, time.Date(2025, 12, 17, 9, 0, 0, 0, paris))

	s := NewService(db, store, clock, 48*time.Hour, nil)
	require.NoError(t, s.Migrate())
	return s, mr, db
}

func seed(t *testing.T, mr *miniredis.Miniredis) {
	t.Helper()
	mr.HSet(target.TargetsKey, "2025-12-10", "1", "2025-12-17", "2")
	require.NoError(t, mr.Set(target.LastPickedKey("1"), "2025-12-10"))
	require.NoError(t, mr.Set(target.LastPickedKey("2"), "2025-12-17"))
	_, _ = mr.ZAdd(score.ScoresKey("2025-12-10"), 4, "3")
	_, _ = mr.ZAdd(score.ScoresKey("2025-12-17"), 2, "1")
	_, _ = mr.ZAdd(score.ScoresKey("2025-12-17"), 5, "3")
	mr.HSet(score.GuessesKey("2025-12-17"), "1", "[3,2]")
}

func TestSnapshotAndRestore(t *testing.T) {
	s, mr, db := newTestService(t)
	ctx := context.Background()
	seed(t, mr)

	require.NoError(t, s.Snapshot(ctx))

	var scores []ArchivedScore
	require.NoError(t, db.Order("day, player").Find(&scores).Error)
	assert.Equal(t, []ArchivedScore{
		{Day: "2025-12-10", Player: "3", Attempts: 4},
		{Day: "2025-12-17", Player: "1", Attempts: 2, Guesses: "[3,2]"},
		{Day: "2025-12-17", Player: "3", Attempts: 5},
	}, scores)

	// 模拟Redis重启后数据丢失
	mr.FlushAll()
	require.NoError(t, s.Restore(ctx))

	assert.Equal(t, "1", mr.HGet(target.TargetsKey, "2025-12-10"))
	assert.Equal(t, "2", mr.HGet(target.TargetsKey, "2025-12-17"))
	picked, err := mr.Get(target.LastPickedKey("2"))
	require.NoError(t, err)
	assert.Equal(t, "2025-12-17", picked)

	attempts, err := mr.ZScore(score.ScoresKey("2025-12-17"), "3")
	require.NoError(t, err)
	assert.Equal(t, 5.0, attempts)
	assert.Equal(t, "[3,2]", mr.HGet(score.GuessesKey("2025-12-17"), "1"))

	// 只有今天和昨天的成绩会重新生成游玩标记
	assert.True(t, mr.Exists(score.PlayedKey("2025-12-17", 1)))
	assert.True(t, mr.Exists(score.PlayedKey("2025-12-17", 3)))
	assert.Equal(t, 48*time.Hour, mr.TTL(score.PlayedKey("2025-12-17", 1)))
	assert.False(t, mr.Exists(score.PlayedKey("2025-12-10", 3)))
}

func TestRestoreNeverOverwritesLiveData(t *testing.T) {
	s, mr, _ := newTestService(t)
	ctx := context.Background()
	seed(t, mr)
	require.NoError(t, s.Snapshot(ctx))

	mr.HSet(target.TargetsKey, "2025-12-17", "3")
	_, _ = mr.ZAdd(score.ScoresKey("2025-12-17"), 9, "1")

	require.NoError(t, s.Restore(ctx))
	assert.Equal(t, "3", mr.HGet(target.TargetsKey, "2025-12-17"))
	attempts, err := mr.ZScore(score.ScoresKey("2025-12-17"), "1")
	require.NoError(t, err)
	assert.Equal(t, 9.0, attempts)
}

func TestSnapshotSkipsUnchangedState(t *testing.T) {
	s, mr, db := newTestService(t)
	ctx := context.Background()
	seed(t, mr)
	require.NoError(t, s.Snapshot(ctx))

	// 手动删除一行；内容未变时第二次快照不会写入
	require.NoError(t, db.Where("day = ?", "2025-12-10").Delete(&ArchivedScore{}).Error)
	require.NoError(t, s.Snapshot(ctx))
	var count int64
	require.NoError(t, db.Model(&ArchivedScore{}).Count(&count).Error)
	assert.EqualValues(t, 2, count)

	_, _ = mr.ZAdd(score.ScoresKey("2025-12-17"), 7, "2")
	require.NoError(t, s.Snapshot(ctx))
	require.NoError(t, db.Model(&ArchivedScore{}).Count(&count).Error)
	assert.EqualValues(t, 4, count)
}

func TestSnapshotReflectsResetDay(t *testing.T) {
	s, mr, db := newTestService(t)
	ctx := context.Background()
	seed(t, mr)
	require.NoError(t, s.Snapshot(ctx))

	mr.Del(score.ScoresKey("2025-12-17"))
	require.NoError(t, s.Snapshot(ctx))

	var count int64
	require.NoError(t, db.Model(&ArchivedScore{}).Where("day = ?", "2025-12-17").Count(&count).Error)
	assert.Zero(t, count)
	require.NoError(t, db.Model(&ArchivedTarget{}).Count(&count).Error)
	assert.EqualValues(t, 2, count)
}

func TestSnapshotRefusesWipedStore(t *testing.T) {
	s, mr, db := newTestService(t)
	ctx := context.Background()
	seed(t, mr)
	require.NoError(t, s.Snapshot(ctx))

	mr.FlushAll()
	err := s.Snapshot(ctx)
	assert.ErrorIs(t, err, ErrShrunkTargets)

	var count int64
	require.NoError(t, db.Model(&ArchivedScore{}).Count(&count).Error)
	assert.EqualValues(t, 3, count)
}

func TestSchedulerSnapshotsUntilShutdown(t *testing.T) {
	s, mr, db := newTestService(t)
	seed(t, mr)

	graceful := lifecycle.NewManager("graceful")
	forceful := lifecycle.NewManager("forceful")
	gh, err := graceful.NewServiceHandle("backup")
	require.NoError(t, err)
	fh, err := forceful.NewServiceHandle("backup")
	require.NoError(t, err)
	go s.StartScheduler(gh, fh, 10*time.Millisecond)

	require.Eventually(t, func() bool {
		var count int64
		return db.Model(&ArchivedTarget{}).Count(&count).Error == nil && count == 2
	}, 2*time.Second, 10*time.Millisecond)

	graceful.Shutdown()
	assert.Empty(t, graceful.WaitWithTimeout(time.Second))
	assert.Empty(t, forceful.WaitWithTimeout(time.Second))
}

func TestStatusTracksSnapshotAndRestore(t *testing.T) {
	s, mr, _ := newTestService(t)
	ctx := context.Background()

	st, err := s.Status()
	require.NoError(t, err)
	assert.Nil(t, st.LastSnapshotAt)
	assert.Nil(t, st.LastRestoreAt)

	seed(t, mr)
	require.NoError(t, s.Snapshot(ctx))
	require.NoError(t, s.Restore(ctx))

	st, err = s.Status()
	require.NoError(t, err)
	require.NotNil(t, st.LastSnapshotAt)
	require.NotNil(t, st.LastRestoreAt)
	assert.WithinDuration(t, time.Now(), *st.LastSnapshotAt, time.Minute)
}
