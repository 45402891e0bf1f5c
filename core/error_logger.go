package core

import (
	"encoding/json"
	"ramadanprep/config"
	"ramadanprep/logger"
	"ramadanprep/models"
	"sync"
	"time"
)

// Error sources
const (
	SourceInsights   = "insights"
	SourcePrep       = "prep"
	SourceTranscribe = "transcribe"
	SourceCoach      = "coach"
	SourceStorage    = "storage"
)

// ErrorLogger keeps the most recent degraded operations in memory so the UI
// can show why it is displaying fallback content.
type ErrorLogger struct {
	logs      []*models.ErrorLog
	mu        sync.RWMutex
	maxLogs   int
	idCounter int
}

var ErrorLoggerInstance *ErrorLogger

func init() {
	ErrorLoggerInstance = NewErrorLogger(config.Settings.MaxErrorLogs)
}

// NewErrorLogger creates a ring holding at most maxLogs entries.
func NewErrorLogger(maxLogs int) *ErrorLogger {
	if maxLogs <= 0 {
		maxLogs = 100
	}
	return &ErrorLogger{
		logs:    make([]*models.ErrorLog, 0, maxLogs),
		maxLogs: maxLogs,
	}
}

// LogError records an entry and mirrors it to the process log.
func (e *ErrorLogger) LogError(level, source, message, detail string, contextData map[string]interface{}) {
	contextJSON := ""
	if contextData != nil {
		if data, err := json.Marshal(contextData); err == nil {
			contextJSON = string(data)
		}
	}

	if level == "WARN" {
		logger.Warn(message, "source", source, "detail", detail)
	} else {
		logger.Error(message, "source", source, "detail", detail)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if len(e.logs) >= e.maxLogs {
		e.logs = e.logs[1:]
	}

	e.idCounter++
	e.logs = append(e.logs, &models.ErrorLog{
		ID:        e.idCounter,
		Timestamp: time.Now(),
		Level:     level,
		Source:    source,
		Message:   message,
		Detail:    detail,
		Context:   contextJSON,
	})
}

// GetErrorLogs returns the kept entries, newest first.
func (e *ErrorLogger) GetErrorLogs() []*models.ErrorLog {
	e.mu.RLock()
	defer e.mu.RUnlock()

	total := len(e.logs)
	result := make([]*models.ErrorLog, total)
	for i := 0; i < total; i++ {
		result[i] = e.logs[total-1-i]
	}
	return result
}

// Count returns the number of kept entries.
func (e *ErrorLogger) Count() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.logs)
}

// ClearErrorLogs removes all entries
func (e *ErrorLogger) ClearErrorLogs() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.logs = make([]*models.ErrorLog, 0, e.maxLogs)
	e.idCounter = 0
}

// LogErrorWithDetail records an error with details
func LogErrorWithDetail(source, message string, err error) {
	detail := ""
	if err != nil {
		detail = err.Error()
	}
	ErrorLoggerInstance.LogError("ERROR", source, message, detail, nil)
}

// LogErrorWithContext records an error with context
func LogErrorWithContext(source, message string, err error, context map[string]interface{}) {
	detail := ""
	if err != nil {
		detail = err.Error()
	}
	ErrorLoggerInstance.LogError("ERROR", source, message, detail, context)
}

// LogWarn records a warning
func LogWarn(source, message, detail string) {
	ErrorLoggerInstance.LogError("WARN", source, message, detail, nil)
}
