package handlers

import (
	"bytes"
	"crypto/rand"
	"fmt"
	"math/big"
	"net/http"
	"ramadanprep/config"
	"ramadanprep/core"
	"ramadanprep/database"
	"ramadanprep/service"
	"ramadanprep/state"
	"ramadanprep/version"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// ShutdownManager manages shutdown confirmation codes
type ShutdownManager struct {
	code      string
	expiresAt time.Time
	mu        sync.RWMutex
}

var shutdownMgr = &ShutdownManager{}

// HealthCheck health endpoint
func HealthCheck(c *gin.Context) {
	dbHealthy := database.SQLiteUp(c.Request.Context(), database.DB)

	health := gin.H{
		"status":        "healthy",
		"version":       version.GetVersion(),
		"timestamp":     time.Now().Unix(),
		"sessions":      state.Global.Count(),
		"db_healthy":    dbHealthy,
		"ai_configured": config.Settings.GeminiAPIKey != "",
	}

	if !dbHealthy {
		health["status"] = "degraded"
		c.JSON(http.StatusServiceUnavailable, health)
		return
	}

	c.JSON(http.StatusOK, health)
}

type metricsSnapshot struct {
	timestamp      int64
	sessions       []core.SessionStats
	totalBytesUp   int64
	totalBytesDown int64
	totalChunks    int64
	totalTurns     int64
	logCount       int
	errorLogCount  int
	mem            runtime.MemStats
}

func collectMetricsSnapshot() metricsSnapshot {
	s := metricsSnapshot{
		timestamp:     time.Now().Unix(),
		sessions:      state.Global.Stats(),
		errorLogCount: core.ErrorLoggerInstance.Count(),
	}
	for _, st := range s.sessions {
		s.totalBytesUp += st.BytesUp
		s.totalBytesDown += st.BytesDown
		s.totalChunks += st.ChunksOut
		s.totalTurns += st.Turns
	}
	if logs, err := service.GlobalServices.Logs.List(); err == nil {
		s.logCount = len(logs)
	}
	runtime.ReadMemStats(&s.mem)
	return s
}

// GetMetrics gathers system metrics
func GetMetrics(c *gin.Context) {
	s := collectMetricsSnapshot()
	insights := service.GlobalServices.Insights

	metrics := gin.H{
		"timestamp": s.timestamp,
		"logs": gin.H{
			"total": s.logCount,
		},
		"insights": gin.H{
			"queue_len":       insights.QueueLen(),
			"queue_capacity":  insights.QueueCap(),
			"dropped_total":   insights.DroppedTotal(),
			"coalesced_total": insights.CoalescedTotal(),
			"analyses_total":  insights.AnalysesTotal(),
			"pending":         insights.Current().Pending,
		},
		"prep": gin.H{
			"cached": service.GlobalServices.Prep.Cached(),
		},
		"coach": gin.H{
			"sessions":   len(s.sessions),
			"bytes_up":   s.totalBytesUp,
			"bytes_down": s.totalBytesDown,
			"chunks_out": s.totalChunks,
			"turns":      s.totalTurns,
		},
		"sqlite": gin.H{
			"busy_errors_total":   database.SQLiteBusyErrorsTotal(),
			"locked_errors_total": database.SQLiteLockedErrorsTotal(),
		},
		"error_logs": gin.H{
			"total": s.errorLogCount,
		},
		"system": gin.H{
			"goroutines":   runtime.NumGoroutine(),
			"memory_alloc": s.mem.Alloc,
			"memory_total": s.mem.TotalAlloc,
			"memory_sys":   s.mem.Sys,
			"gc_runs":      s.mem.NumGC,
		},
	}

	c.JSON(http.StatusOK, metrics)
}

func promLabelEscape(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "\"", "\\\"")
	s = strings.ReplaceAll(s, "\n", "\\n")
	return s
}

type promMetric struct {
	name  string
	kind  string
	help  string
	value any
}

// GetPrometheusMetrics writes the metrics in the Prometheus text exposition format.
func GetPrometheusMetrics(c *gin.Context) {
	s := collectMetricsSnapshot()
	insights := service.GlobalServices.Insights

	var buf bytes.Buffer
	buf.WriteString("# HELP ramadanprep_build_info Build information.\n")
	buf.WriteString("# TYPE ramadanprep_build_info gauge\n")
	fmt.Fprintf(&buf, "ramadanprep_build_info{version=\"%s\",commit=\"%s\",build_time=\"%s\"} 1\n",
		promLabelEscape(version.Version),
		promLabelEscape(version.CommitHash),
		promLabelEscape(version.BuildTime),
	)

	sqliteUp := 0
	if database.SQLiteUp(c.Request.Context(), database.DB) {
		sqliteUp = 1
	}

	for _, m := range []promMetric{
		{"ramadanprep_sqlite_up", "gauge", "SQLite connectivity (1=up, 0=down).", sqliteUp},
		{"ramadanprep_sqlite_busy_errors_total", "counter", "Total SQLite busy errors observed.", database.SQLiteBusyErrorsTotal()},
		{"ramadanprep_sqlite_locked_errors_total", "counter", "Total SQLite locked errors observed.", database.SQLiteLockedErrorsTotal()},
		{"ramadanprep_daily_logs", "gauge", "Number of stored daily logs.", s.logCount},
		{"ramadanprep_insight_queue_len", "gauge", "Queued insight recomputations.", insights.QueueLen()},
		{"ramadanprep_insight_queue_capacity", "gauge", "Insight queue capacity.", insights.QueueCap()},
		{"ramadanprep_insight_dropped_total", "counter", "Insight jobs dropped due to backpressure.", insights.DroppedTotal()},
		{"ramadanprep_insight_coalesced_total", "counter", "Insight jobs superseded before running.", insights.CoalescedTotal()},
		{"ramadanprep_insight_analyses_total", "counter", "Model analyses attempted.", insights.AnalysesTotal()},
		{"ramadanprep_coach_sessions", "gauge", "Active coach sessions.", len(s.sessions)},
		{"ramadanprep_coach_bytes_up", "gauge", "Microphone bytes relayed by active sessions.", s.totalBytesUp},
		{"ramadanprep_coach_bytes_down", "gauge", "Model audio bytes relayed by active sessions.", s.totalBytesDown},
		{"ramadanprep_error_logs", "gauge", "Error log entries kept in memory.", s.errorLogCount},
		{"ramadanprep_go_goroutines", "gauge", "Number of goroutines.", runtime.NumGoroutine()},
		{"ramadanprep_memory_alloc_bytes", "gauge", "Bytes of allocated heap objects.", s.mem.Alloc},
		{"ramadanprep_memory_sys_bytes", "gauge", "Bytes obtained from the OS.", s.mem.Sys},
		{"ramadanprep_gc_runs_total", "counter", "Number of completed GC cycles.", s.mem.NumGC},
	} {
		fmt.Fprintf(&buf, "# HELP %s %s\n# TYPE %s %s\n%s %v\n", m.name, m.help, m.name, m.kind, m.name, m.value)
	}

	c.Data(http.StatusOK, "text/plain; version=0.0.4; charset=utf-8", buf.Bytes())
}

// GetErrorLogs returns recent error logs
func GetErrorLogs(c *gin.Context) {
	c.JSON(http.StatusOK, core.ErrorLoggerInstance.GetErrorLogs())
}

// ClearErrorLogs wipes error logs
func ClearErrorLogs(c *gin.Context) {
	core.ErrorLoggerInstance.ClearErrorLogs()
	c.JSON(http.StatusOK, gin.H{"ok": true, "message": "Error logs cleared"})
}

// GenerateShutdownCode creates a shutdown confirmation code
func GenerateShutdownCode(c *gin.Context) {
	shutdownMgr.mu.Lock()
	defer shutdownMgr.mu.Unlock()

	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Failed to generate code"})
		return
	}

	shutdownMgr.code = fmt.Sprintf("%06d", n.Int64())
	shutdownMgr.expiresAt = time.Now().Add(5 * time.Minute)

	c.JSON(http.StatusOK, gin.H{
		"code":       shutdownMgr.code,
		"expires_at": shutdownMgr.expiresAt.Unix(),
	})
}

// VerifyAndShutdown validates the confirmation code and shuts the app down
func VerifyAndShutdown(c *gin.Context) {
	var req struct {
		Code string `json:"code" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Invalid request"})
		return
	}

	shutdownMgr.mu.Lock()
	storedCode := shutdownMgr.code
	expiresAt := shutdownMgr.expiresAt
	switch {
	case storedCode == "":
		shutdownMgr.mu.Unlock()
		c.JSON(http.StatusBadRequest, gin.H{"detail": "No shutdown code generated. Please generate one first."})
		return
	case time.Now().After(expiresAt):
		shutdownMgr.code = ""
		shutdownMgr.mu.Unlock()
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Shutdown code expired. Please generate a new one."})
		return
	case req.Code != storedCode:
		shutdownMgr.mu.Unlock()
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Invalid shutdown code"})
		return
	}
	shutdownMgr.code = ""
	shutdownMgr.mu.Unlock()

	c.JSON(http.StatusOK, gin.H{"ok": true, "message": "Shutdown initiated"})

	go func() {
		// Give the client time to receive the response
		time.Sleep(500 * time.Millisecond)
		core.LogWarn("system", "Shutdown requested via API", "confirmed with shutdown code")
		if shutdownChan != nil {
			shutdownChan <- true
		}
	}()
}

// Global shutdown channel (must be initialized in main.go)
var shutdownChan chan bool

// SetShutdownChannel sets the shutdown channel
func SetShutdownChannel(ch chan bool) {
	shutdownChan = ch
}
