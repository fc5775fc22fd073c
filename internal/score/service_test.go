package score

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/SlpAus/daily-guess-backend/internal/catalog/catalogtest"
	"github.com/SlpAus/daily-guess-backend/internal/platform/calendar"
	"github.com/SlpAus/daily-guess-backend/internal/platform/database/databasetest"
	"github.com/SlpAus/daily-guess-backend/internal/player"
	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDay = calendar.DayID("2025-12-17")

func newTestService(t *testing.T, requireKnown bool) (*Service, *miniredis.Miniredis) {
	t.Helper()
	store, mr := databasetest.NewStore(t)
	paris, err := time.LoadLocation("Europe/Paris")
	require.NoError(t, err)
	clock := calendar.NewFixedClock(paris, time.Date(2025, 12, 17, 20, 0, 0, 0, paris))
	registry := player.NewRegistry(catalogtest.Sample(), requireKnown)
	return NewService(store, registry, clock, 48*time.Hour, nil), mr
}

func TestSubmitScoreRecordsEverything(t *testing.T) {
	s, mr := newTestService(t, true)

	err := s.SubmitScore(context.Background(), testDay, Submission{PlayerID: 2, Attempts: 4, GuessIDs: []int{1, 3, 2}})
	require.NoError(t, err)

	score, err := mr.ZScore(ScoresKey(string(testDay)), "2")
	require.NoError(t, err)
	assert.Equal(t, 4.0, score)
	assert.Equal(t, "[1,3,2]", mr.HGet(GuessesKey(string(testDay)), "2"))
	assert.True(t, mr.Exists(PlayedKey(string(testDay), 2)))
	assert.Equal(t, 48*time.Hour, mr.TTL(PlayedKey(string(testDay), 2)))

	record, err := s.PlayerRecord(context.Background(), testDay, 2)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 3, 2}, record.Guesses)
}

func TestDoubleSubmissionKeepsFirstEntry(t *testing.T) {
	s, mr := newTestService(t, false)
	ctx := context.Background()

	require.NoError(t, s.SubmitScore(ctx, testDay, Submission{PlayerID: 7, Attempts: 4}))
	err := s.SubmitScore(ctx, testDay, Submission{PlayerID: 7, Attempts: 9})
	assert.ErrorIs(t, err, ErrAlreadyPlayed)

	members, err := mr.ZMembers(ScoresKey(string(testDay)))
	require.NoError(t, err)
	assert.Equal(t, []string{"7"}, members)
	score, err := mr.ZScore(ScoresKey(string(testDay)), "7")
	require.NoError(t, err)
	assert.Equal(t, 4.0, score)
}

func TestSubmitScoreWithoutGuessesLeavesGuessesUntouched(t *testing.T) {
	s, mr := newTestService(t, true)
	require.NoError(t, s.SubmitScore(context.Background(), testDay, Submission{PlayerID: 1, Attempts: 2}))
	assert.False(t, mr.Exists(GuessesKey(string(testDay))))

	record, err := s.PlayerRecord(context.Background(), testDay, 1)
	require.NoError(t, err)
	assert.True(t, record.Played)
	assert.Nil(t, record.Guesses)
}

func TestTiedAttemptsFromDifferentPlayers(t *testing.T) {
	s, mr := newTestService(t, true)
	ctx := context.Background()
	require.NoError(t, s.SubmitScore(ctx, testDay, Submission{PlayerID: 1, Attempts: 3}))
	require.NoError(t, s.SubmitScore(ctx, testDay, Submission{PlayerID: 2, Attempts: 3}))

	members, err := mr.ZMembers(ScoresKey(string(testDay)))
	require.NoError(t, err)
	assert.Len(t, members, 2)
}

func TestSubmitScoreValidation(t *testing.T) {
	cases := []struct {
		name string
		sub  Submission
	}{
		{"zero attempts", Submission{PlayerID: 1, Attempts: 0}},
		{"negative attempts", Submission{PlayerID: 1, Attempts: -2}},
		{"missing player", Submission{Attempts: 3}},
		{"unknown player", Submission{PlayerID: 42, Attempts: 3}},
		{"bad guess id", Submission{PlayerID: 1, Attempts: 3, GuessIDs: []int{2, 0}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s, mr := newTestService(t, true)
			err := s.SubmitScore(context.Background(), testDay, tc.sub)
			assert.ErrorIs(t, err, ErrValidation)
			assert.Empty(t, mr.Keys(), "no store writes on validation errors")
		})
	}
}

func TestUnknownPlayerAcceptedWhenNotRequired(t *testing.T) {
	s, _ := newTestService(t, false)
	assert.NoError(t, s.SubmitScore(context.Background(), testDay, Submission{PlayerID: 42, Attempts: 3}))
}

func TestMarkerIsRemovedWhenScoreWriteFails(t *testing.T) {
	s, mr := newTestService(t, true)
	// scores:{day} 的类型错误会让 ZADD 失败
	require.NoError(t, mr.Set(ScoresKey(string(testDay)), "oops"))

	err := s.SubmitScore(context.Background(), testDay, Submission{PlayerID: 1, Attempts: 3})
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrAlreadyPlayed))
	assert.False(t, mr.Exists(PlayedKey(string(testDay), 1)))
}

func TestResetDayOnlyClearsScores(t *testing.T) {
	s, mr := newTestService(t, true)
	ctx := context.Background()
	mr.HSet("daily:targets", string(testDay), "2")
	require.NoError(t, s.SubmitScore(ctx, testDay, Submission{PlayerID: 1, Attempts: 3, GuessIDs: []int{2}}))

	require.NoError(t, s.ResetDay(ctx, testDay))
	assert.False(t, mr.Exists(ScoresKey(string(testDay))))
	assert.Equal(t, "2", mr.HGet("daily:targets", string(testDay)))
	assert.True(t, mr.Exists(GuessesKey(string(testDay))))
}

func TestPlayerRecord(t *testing.T) {
	s, _ := newTestService(t, true)
	ctx := context.Background()

	record, err := s.PlayerRecord(ctx, testDay, 1)
	require.NoError(t, err)
	assert.False(t, record.Played)
	assert.Nil(t, record.Attempts)

	require.NoError(t, s.SubmitScore(ctx, testDay, Submission{PlayerID: 1, Attempts: 5}))
	record, err = s.PlayerRecord(ctx, testDay, 1)
	require.NoError(t, err)
	assert.True(t, record.Played)
	require.NotNil(t, record.Attempts)
	assert.Equal(t, 5, *record.Attempts)
}
