package player

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/SlpAus/daily-guess-backend/internal/catalog/catalogtest"
	"github.com/SlpAus/daily-guess-backend/internal/platform/calendar"
	"github.com/SlpAus/daily-guess-backend/internal/platform/database"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseID(t *testing.T) {
	id, err := ParseID(" 7 ")
	require.NoError(t, err)
	assert.Equal(t, 7, id)

	for _, raw := range []string{"", "0", "-1", "abc", "1.5"} {
		_, err := ParseID(raw)
		assert.ErrorIs(t, err, ErrInvalidPlayer, raw)
	}
}

func TestRegistryValidate(t *testing.T) {
	strict := NewRegistry(catalogtest.Sample(), true)
	assert.NoError(t, strict.Validate(1))
	assert.ErrorIs(t, strict.Validate(42), ErrInvalidPlayer)
	assert.ErrorIs(t, strict.Validate(0), ErrInvalidPlayer)

	loose := NewRegistry(catalogtest.Sample(), false)
	assert.NoError(t, loose.Validate(42))
	assert.Equal(t, "", loose.Name(42))
	assert.Equal(t, "Bastien", loose.Name(2))
}

type stubRecords struct {
	record PlayRecord
	err    error
	gotID  int
}

func (s *stubRecords) PlayerRecord(_ context.Context, _ calendar.DayID, id int) (PlayRecord, error) {
	s.gotID = id
	return s.record, s.err
}

func newStatusRouter(t *testing.T, records RecordSource) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	paris, err := time.LoadLocation("Europe/Paris")
	require.NoError(t, err)
	clock := calendar.NewFixedClock(paris, time.Date(2025, 12, 17, 9, 0, 0, 0, paris))

	r := gin.New()
	r.Use(LoadPlayerMiddleware())
	r.GET("/api/status", NewHandler(NewRegistry(catalogtest.Sample(), true), records, clock).GetStatus)
	return r
}

func TestGetStatusFromCookie(t *testing.T) {
	attempts := 3
	records := &stubRecords{record: PlayRecord{Played: true, Attempts: &attempts, Guesses: []int{3, 1}}}
	r := newStatusRouter(t, records)

	req := httptest.NewRequest(http.MethodGet, "/api/status?playerId=1", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: "2"})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2, records.gotID, "cookie wins over the query")
	assert.JSONEq(t, `{"date":"2025-12-17","playerId":2,"name":"Bastien","played":true,"attempts":3,"guesses":[3,1]}`, w.Body.String())
}

func TestGetStatusFromQuery(t *testing.T) {
	r := newStatusRouter(t, &stubRecords{})

	req := httptest.NewRequest(http.MethodGet, "/api/status?playerId=3", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: "garbage"})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"date":"2025-12-17","playerId":3,"name":"Chloé","played":false}`, w.Body.String())
}

func TestGetStatusErrors(t *testing.T) {
	cases := []struct {
		name    string
		query   string
		records RecordSource
		code    int
	}{
		{"missing", "", &stubRecords{}, http.StatusBadRequest},
		{"malformed", "?playerId=x", &stubRecords{}, http.StatusBadRequest},
		{"unknown", "?playerId=99", &stubRecords{}, http.StatusBadRequest},
		{"store down", "?playerId=1", &stubRecords{err: database.ErrStoreUnavailable}, http.StatusServiceUnavailable},
		{"other", "?playerId=1", &stubRecords{err: errors.New("boom")}, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			newStatusRouter(t, tc.records).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/status"+tc.query, nil))
			assert.Equal(t, tc.code, w.Code)
		})
	}
}
