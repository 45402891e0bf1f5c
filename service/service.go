package service

import (
	"context"
	"fmt"
	"ramadanprep/config"
	"ramadanprep/core"
	"ramadanprep/gemini"
	"ramadanprep/logger"
	"ramadanprep/models"
	"ramadanprep/state"
	"time"
)

// AIClient is everything the services ask of the hosted model.
// *gemini.Client satisfies it.
type AIClient interface {
	LogAnalyzer
	PrepResearcher
	Transcriber
}

// Services is the global service container
type Services struct {
	Logs          *LogService
	Dashboard     *DashboardService
	Insights      *InsightService
	Prep          *PrepService
	Transcription *TranscriptionService
	Coach         *CoachService
}

// GlobalServices is the global service instance
var GlobalServices *Services

// InitServices initializes all services
func InitServices(store Store, appState *state.AppState, ai AIClient, dial core.LiveDialer, cfg *config.Config) error {
	start, err := cfg.RamadanStart()
	if err != nil {
		return fmt.Errorf("invalid ramadan start date: %w", err)
	}

	logSvc := NewLogService(store)
	insightSvc := NewInsightService(ai, store, InsightOptions{
		QueueSize: cfg.InsightQueueSize,
		Debounce:  time.Duration(cfg.InsightDebounceMillis) * time.Millisecond,
		Timeout:   cfg.AITimeout(),
	})
	if err := insightSvc.Load(); err != nil {
		core.LogErrorWithDetail(core.SourceStorage, "Failed to restore insight", err)
	}
	logSvc.OnChange(func(logs []models.DailyLog) {
		insightSvc.OnLogsChanged(logs)
	})

	GlobalServices = &Services{
		Logs:          logSvc,
		Dashboard:     NewDashboardService(time.Local),
		Insights:      insightSvc,
		Prep:          NewPrepService(ai, start, time.Duration(cfg.PrepCacheMinutes)*time.Minute, cfg.AITimeout()),
		Transcription: NewTranscriptionService(ai, cfg.AITimeout()),
		Coach:         NewCoachService(appState, dial, cfg.MaxCoachSessions, time.Duration(cfg.CoachWriteTimeoutSeconds)*time.Second),
	}
	return nil
}

// Start starts background workers and queues an analysis when logs exist
// but no insight was restored.
func (s *Services) Start() {
	s.Insights.Start()

	if s.Insights.Current().Insight != nil {
		return
	}
	logs, err := s.Logs.List()
	if err != nil {
		logger.Warn("Failed to load logs at startup", "error", err)
		return
	}
	if len(logs) > 0 {
		s.Insights.OnLogsChanged(logs)
	}
}

// Stop stops coach sessions and background workers.
func (s *Services) Stop(ctx context.Context) {
	if n := s.Coach.StopAll(); n > 0 {
		logger.Info("Stopped coach sessions", "count", n)
	}

	done := make(chan struct{})
	go func() {
		s.Insights.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		logger.Warn("Insight worker did not stop before deadline")
	}
}

var _ AIClient = (*gemini.Client)(nil)
