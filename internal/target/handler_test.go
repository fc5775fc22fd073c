package target

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/SlpAus/daily-guess-backend/internal/platform/calendar"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetDailyTarget(t *testing.T) {
	gin.SetMode(gin.TestMode)
	s, mr := newTestService(t)
	router := gin.New()
	router.GET("/api/dailyTarget", NewHandler(s).GetDailyTarget)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/dailyTarget", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id":`+mr.HGet(TargetsKey, string(testDay))+`}`, w.Body.String())

	mr.HSet(TargetsKey, string(testDay), "Bastien")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/dailyTarget", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"name":"Bastien"}`, w.Body.String())
}

func TestGetDailyTargetStoreUnavailable(t *testing.T) {
	gin.SetMode(gin.TestMode)
	s, mr := newTestService(t)
	mr.Close()
	router := gin.New()
	router.GET("/api/dailyTarget", NewHandler(s).GetDailyTarget)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/dailyTarget", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestGetDailyTargetAfterPlanningImport(t *testing.T) {
	gin.SetMode(gin.TestMode)
	s, mr := newTestService(t)
	_, err := s.ImportPlanning(context.Background(), map[calendar.DayID]string{
		testDay: base64.StdEncoding.EncodeToString([]byte("Chloé")),
	})
	require.NoError(t, err)
	assert.Equal(t, "3", mr.HGet(TargetsKey, string(testDay)))

	router := gin.New()
	router.GET("/api/dailyTarget", NewHandler(s).GetDailyTarget)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/dailyTarget", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id":3}`, w.Body.String())
}

func TestGetDailyTargetLostConnection(t *testing.T) {
	gin.SetMode(gin.TestMode)
	s, mr := newTestService(t)
	_, err := s.SelectTarget(context.Background(), testDay)
	require.NoError(t, err)
	mr.Close()

	router := gin.New()
	router.GET("/api/dailyTarget", NewHandler(s).GetDailyTarget)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/dailyTarget", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
