package compare

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/SlpAus/daily-guess-backend/internal/catalog"
	"github.com/SlpAus/daily-guess-backend/internal/catalog/catalogtest"
	"github.com/SlpAus/daily-guess-backend/internal/platform/database"
	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubTargets struct {
	entity catalog.Entity
	err    error
}

func (s stubTargets) TodayEntity(context.Context) (catalog.Entity, error) { return s.entity, s.err }

func newGuessRouter(targets TargetSource) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/api/guess", NewHandler(catalogtest.Sample(), targets).SubmitGuess)
	return r
}

func postGuess(r *gin.Engine, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/guess", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func TestSubmitGuess(t *testing.T) {
	c := catalogtest.Sample()
	target, _ := c.ByID(2)
	r := newGuessRouter(stubTargets{entity: target})

	w := postGuess(r, `{"guessId":2}`)
	require.Equal(t, http.StatusOK, w.Code)
	var fb Feedback
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &fb))
	assert.True(t, fb.Correct)
	assert.Equal(t, 2, fb.EntityID)

	w = postGuess(r, `{"guessName":"aurelien"}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &fb))
	assert.False(t, fb.Correct)
	assert.Equal(t, 1, fb.EntityID)
}

func TestSubmitGuessErrors(t *testing.T) {
	c := catalogtest.Sample()
	target, _ := c.ByID(2)

	cases := []struct {
		name    string
		targets TargetSource
		body    string
		code    int
	}{
		{"malformed", stubTargets{entity: target}, `{`, http.StatusBadRequest},
		{"empty", stubTargets{entity: target}, `{}`, http.StatusBadRequest},
		{"non-positive id", stubTargets{entity: target}, `{"guessId":0}`, http.StatusBadRequest},
		{"unknown entity", stubTargets{entity: target}, `{"guessId":99}`, http.StatusNotFound},
		{"target missing", stubTargets{err: fmt.Errorf("x: %w", catalog.ErrNotFound)}, `{"guessId":1}`, http.StatusNotFound},
		{"store down", stubTargets{err: fmt.Errorf("x: %w", database.ErrStoreUnavailable)}, `{"guessId":1}`, http.StatusServiceUnavailable},
		{"other", stubTargets{err: fmt.Errorf("boom")}, `{"guessId":1}`, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := postGuess(newGuessRouter(tc.targets), tc.body)
			assert.Equal(t, tc.code, w.Code)
		})
	}
}
