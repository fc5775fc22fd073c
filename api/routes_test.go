package api

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/SlpAus/daily-guess-backend/internal/catalog/catalogtest"
	"github.com/SlpAus/daily-guess-backend/internal/platform/config"
	"github.com/SlpAus/daily-guess-backend/internal/platform/startup"
	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApp(t *testing.T) (*gin.Engine, *startup.App) {
	t.Helper()
	mr := miniredis.RunT(t)

	raw, err := json.Marshal(catalogtest.Entities())
	require.NoError(t, err)
	catalogPath := filepath.Join(t.TempDir(), "catalog.json")
	require.NoError(t, os.WriteFile(catalogPath, raw, 0o600))

	cfg, err := config.LoadConfig("", nil)
	require.NoError(t, err)
	cfg.Server.Mode = gin.TestMode
	cfg.Server.AdminToken = "s3cret"
	cfg.Database.Redis.Address = mr.Addr()
	cfg.Archive.Enabled = false
	cfg.Game.CatalogPath = catalogPath

	app, err := startup.Build(cfg)
	require.NoError(t, err)
	t.Cleanup(app.Close)

	router := NewRouter(cfg.Server, app.Metrics)
	SetupRoutes(router, app)
	return router, app
}

func do(r *gin.Engine, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestFullDay(t *testing.T) {
	r, _ := newTestApp(t)

	w := do(r, http.MethodGet, "/api/dailyTarget", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))
	var ref struct {
		ID int `json:"id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &ref))
	require.Positive(t, ref.ID)

	w = do(r, http.MethodPost, "/api/guess", `{"guessId":`+itoa(ref.ID)+`}`, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"correct":true`)

	w = do(r, http.MethodPost, "/api/score", `{"playerId":1,"attempts":3,"guessIds":[`+itoa(ref.ID)+`]}`, nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = do(r, http.MethodPost, "/api/score", `{"playerId":1,"attempts":1}`, nil)
	require.Equal(t, http.StatusConflict, w.Code)

	w = do(r, http.MethodGet, "/api/leaderboard", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"scores":[{"value":"1","score":3,"rank":1,"name":"Aurélien"}]`)

	w = do(r, http.MethodGet, "/api/status", "", map[string]string{"Cookie": "magde-player=1"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"played":true`)
}

func TestResetTodayRequiresToken(t *testing.T) {
	r, _ := newTestApp(t)

	w := do(r, http.MethodPost, "/api/resetToday", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(r, http.MethodPost, "/api/resetToday", "", map[string]string{AdminTokenHeader: "s3cret"})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestUnhealthyStoreShortCircuits(t *testing.T) {
	r, app := newTestApp(t)
	app.Store.SetHealthy(false)

	w := do(r, http.MethodGet, "/api/dailyTarget", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	w = do(r, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	r, _ := newTestApp(t)
	do(r, http.MethodGet, "/api/dailyTarget", "", nil)

	w := do(r, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `daily_http_requests_total{route="/api/dailyTarget",status="2xx"} 1`)
	assert.Contains(t, w.Body.String(), `daily_target_resolutions_total{source="drawn"} 1`)
}

func itoa(n int) string {
	b, _ := json.Marshal(n)
	return string(b)
}
