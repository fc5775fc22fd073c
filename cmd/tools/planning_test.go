package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/SlpAus/daily-guess-backend/internal/platform/calendar"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadPlanning(t *testing.T) {
	path := filepath.Join(t.TempDir(), "planning.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"2025-12-10":"QXVyw6lsaWVu","2025-12-11":"QmFzdGllbg=="}`), 0o600))

	planning, err := readPlanning(path)
	require.NoError(t, err)
	assert.Equal(t, map[calendar.DayID]string{
		"2025-12-10": "QXVyw6lsaWVu",
		"2025-12-11": "QmFzdGllbg==",
	}, planning)
}

func TestReadPlanningRejectsBadDates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "planning.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"10/12/2025":"QXVyw6lsaWVu"}`), 0o600))

	_, err := readPlanning(path)
	assert.Error(t, err)
}
