package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTodayUsesFixedZone(t *testing.T) {
	paris, err := time.LoadLocation("Europe/Paris")
	require.NoError(t, err)

	// 23:30 UTC on Dec 31 is already Jan 1 in Paris.
	at := time.Date(2025, 12, 31, 23, 30, 0, 0, time.UTC)
	clock := NewFixedClock(paris, at)

	assert.Equal(t, DayID("2026-01-01"), clock.Today())
	assert.Equal(t, DayID("2025-12-31"), clock.Yesterday())
}

func TestNewClockRejectsUnknownZone(t *testing.T) {
	_, err := NewClock("Mars/Olympus_Mons")
	assert.Error(t, err)
}

func TestDaysBetween(t *testing.T) {
	cases := []struct {
		from, to DayID
		want     int
	}{
		{"2025-12-17", "2025-12-17", 0},
		{"2025-12-31", "2026-01-01", 1},
		{"2024-02-28", "2024-03-01", 2},
		{"2025-03-29", "2025-03-31", 2}, // DST switch in Paris
		{"2025-12-20", "2025-12-10", -10},
	}
	for _, tc := range cases {
		got, err := DaysBetween(tc.from, tc.to)
		require.NoError(t, err)
		assert.Equal(t, tc.want, got, "%s -> %s", tc.from, tc.to)
	}
}

func TestDaysBetweenInvalid(t *testing.T) {
	_, err := DaysBetween("2025-13-01", "2025-12-01")
	assert.Error(t, err)
	_, err = DaysBetween("2025-12-01", "yesterday")
	assert.Error(t, err)
}

func TestParse(t *testing.T) {
	d, err := Parse("2025-12-17")
	require.NoError(t, err)
	assert.Equal(t, DayID("2025-12-17"), d)

	_, err = Parse("17/12/2025")
	assert.Error(t, err)
}
