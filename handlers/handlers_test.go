package handlers

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"ramadanprep/config"
	"ramadanprep/core"
	"ramadanprep/database"
	"ramadanprep/models"
	"ramadanprep/service"
	"ramadanprep/state"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubAI struct {
	insight       string
	prepText      string
	prepErr       error
	transcript    string
	transcribeErr error
}

func (s *stubAI) AnalyzeLogs(ctx context.Context, logsJSON []byte) (string, error) {
	return s.insight, nil
}

func (s *stubAI) PrepResearch(ctx context.Context, year int) (string, []models.Source, error) {
	return s.prepText, nil, s.prepErr
}

func (s *stubAI) Transcribe(ctx context.Context, audioData []byte, mimeType string) (string, error) {
	return s.transcript, s.transcribeErr
}

func setupRouter(t *testing.T, ai *stubAI) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.Open(filepath.Join(t.TempDir(), "handlers.db"), config.Settings)
	require.NoError(t, err)

	prevDB, prevServices := database.DB, service.GlobalServices
	database.DB = db
	t.Cleanup(func() {
		database.DB, service.GlobalServices = prevDB, prevServices
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	dial := func(ctx context.Context) (core.LiveSession, error) {
		return nil, errors.New("no live model in tests")
	}
	require.NoError(t, service.InitServices(database.NewKV(db), state.Global, ai, dial, config.Settings))

	r := gin.New()
	RegisterRoutes(r)
	return r
}

func doJSON(t *testing.T, r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestLogsLifecycle(t *testing.T) {
	r := setupRouter(t, &stubAI{insight: `{"summary":"Good start","suggestions":["Pray Fajr"],"motivation":"Go on","spiritualLevel":"Improving"}`})

	w := doJSON(t, r, http.MethodGet, "/api/logs", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())

	w = doJSON(t, r, http.MethodPost, "/api/logs", gin.H{
		"date":       "2026-12-01",
		"quranPages": 4,
		"prayers":    models.Prayers,
		"reflection": "Felt calm",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var saved models.DailyLog
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &saved))
	assert.NotEmpty(t, saved.ID)
	assert.Equal(t, models.DefaultHydrationMl, saved.HydrationMl)

	w = doJSON(t, r, http.MethodGet, "/api/dashboard", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var stats models.DashboardStats
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, 4, stats.TotalPages)
	assert.Equal(t, "5.0", stats.AvgPrayersDisplay)
	assert.Equal(t, 1, stats.DayStreak)
	require.Len(t, stats.Chart, 1)
	assert.True(t, stats.Chart[0].Complete)

	w = doJSON(t, r, http.MethodPost, "/api/insights/refresh", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var st models.InsightState
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &st))
	require.NotNil(t, st.Insight)
	assert.Equal(t, "Good start", st.Insight.Summary)
	assert.False(t, st.Fallback)

	w = doJSON(t, r, http.MethodDelete, "/api/logs", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, http.MethodGet, "/api/logs", nil)
	assert.JSONEq(t, `[]`, w.Body.String())
	w = doJSON(t, r, http.MethodGet, "/api/insights", nil)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &st))
	assert.Nil(t, st.Insight)
}

func TestCreateLog_Invalid(t *testing.T) {
	r := setupRouter(t, &stubAI{})

	w := doJSON(t, r, http.MethodPost, "/api/logs", gin.H{"quranPages": -3})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/logs", bytes.NewBufferString("{"))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetPrep_FallbackOnModelError(t *testing.T) {
	core.ErrorLoggerInstance.ClearErrorLogs()
	r := setupRouter(t, &stubAI{prepErr: errors.New("search unavailable")})

	w := doJSON(t, r, http.MethodGet, "/api/prep", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var info models.PrepInfo
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &info))
	assert.True(t, info.Fallback)
	assert.Equal(t, models.DefaultPrepTips(), info.Tips)
	assert.NotEmpty(t, info.StartDate)

	w = doJSON(t, r, http.MethodGet, "/api/error-logs", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var entries []models.ErrorLog
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &entries))
	require.NotEmpty(t, entries)
	assert.Equal(t, core.SourcePrep, entries[0].Source)

	w = doJSON(t, r, http.MethodDelete, "/api/error-logs", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, core.ErrorLoggerInstance.Count())
}

func TestTranscribe(t *testing.T) {
	r := setupRouter(t, &stubAI{transcript: "I read two pages"})

	w := doJSON(t, r, http.MethodPost, "/api/transcribe", gin.H{
		"audio":      base64.StdEncoding.EncodeToString([]byte("fake-webm")),
		"mimeType":   "audio/webm",
		"reflection": "Long day.",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `{"text":"I read two pages","reflection":"Long day. I read two pages"}`, w.Body.String())

	w = doJSON(t, r, http.MethodPost, "/api/transcribe", gin.H{"audio": "%%%"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, r, http.MethodPost, "/api/transcribe", gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTranscribe_ModelErrorIsBadGateway(t *testing.T) {
	r := setupRouter(t, &stubAI{transcribeErr: errors.New("quota")})

	w := doJSON(t, r, http.MethodPost, "/api/transcribe", gin.H{
		"audio": base64.StdEncoding.EncodeToString([]byte{1, 2, 3}),
	})
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), "detail")
}

func TestHealthAndMetrics(t *testing.T) {
	r := setupRouter(t, &stubAI{})

	w := doJSON(t, r, http.MethodGet, "/api/health", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"db_healthy":true`)

	w = doJSON(t, r, http.MethodGet, "/api/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"insights"`)

	w = doJSON(t, r, http.MethodGet, "/api/metrics/prometheus", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ramadanprep_sqlite_up 1")

	w = doJSON(t, r, http.MethodGet, "/api/coach/sessions", nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = doJSON(t, r, http.MethodDelete, "/api/coach/sessions/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestShutdownCodeValidation(t *testing.T) {
	r := setupRouter(t, &stubAI{})

	w := doJSON(t, r, http.MethodPost, "/api/shutdown/verify", gin.H{"code": "123456"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, r, http.MethodPost, "/api/shutdown/generate-code", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var gen struct {
		Code string `json:"code"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &gen))
	require.Len(t, gen.Code, 6)

	wrong := "000000"
	if gen.Code == wrong {
		wrong = "111111"
	}
	w = doJSON(t, r, http.MethodPost, "/api/shutdown/verify", gin.H{"code": wrong})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid shutdown code")
}
