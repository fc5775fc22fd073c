package score

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func newScoreRouter(t *testing.T) (*gin.Engine, *Service) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	s, _ := newTestService(t, true)
	h := NewHandler(s)
	r := gin.New()
	r.POST("/api/score", h.SubmitScore)
	r.POST("/api/resetToday", h.ResetToday)
	return r, s
}

func post(r *gin.Engine, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func TestSubmitScoreEndpoint(t *testing.T) {
	r, _ := newScoreRouter(t)

	w := post(r, "/api/score", `{"playerId":2,"attempts":4,"guessIds":[1,2]}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true}`, w.Body.String())

	w = post(r, "/api/score", `{"playerId":2,"attempts":9}`)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.JSONEq(t, `{"error":"already_played"}`, w.Body.String())
}

func TestSubmitScoreEndpointRejectsMalformedPayloads(t *testing.T) {
	r, _ := newScoreRouter(t)
	for _, body := range []string{
		`{`,
		`{"playerId":2}`,
		`{"playerId":2,"attempts":0}`,
		`{"playerId":2,"attempts":2.5}`,
		`{"playerId":"2","attempts":3}`,
		`{"playerId":99,"attempts":3}`,
	} {
		w := post(r, "/api/score", body)
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
	}
}

func TestResetTodayEndpoint(t *testing.T) {
	r, _ := newScoreRouter(t)
	assert.Equal(t, http.StatusOK, post(r, "/api/score", `{"playerId":1,"attempts":3}`).Code)

	w := post(r, "/api/resetToday", ``)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true,"date":"2025-12-17"}`, w.Body.String())
}
