package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"ramadanprep/core"
	"ramadanprep/gemini"
	"ramadanprep/logger"
	"ramadanprep/models"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// LogAnalyzer returns the raw JSON insight text for the serialized logs.
type LogAnalyzer interface {
	AnalyzeLogs(ctx context.Context, logsJSON []byte) (string, error)
}

// InsightOptions tunes the background analysis queue.
type InsightOptions struct {
	QueueSize int
	Debounce  time.Duration
	Timeout   time.Duration
}

type insightJob struct {
	generation uint64
	logs       []models.DailyLog
}

type storedInsight struct {
	Insight   models.AIInsight `json:"insight"`
	Fallback  bool             `json:"fallback"`
	UpdatedAt time.Time        `json:"updatedAt"`
}

// InsightService keeps the latest AI reading of the logs. Log changes are
// queued and analysed in the background; a newer change supersedes older ones.
type InsightService struct {
	analyzer LogAnalyzer
	store    Store
	opts     InsightOptions

	mu         sync.RWMutex
	current    *models.AIInsight
	fallback   bool
	pending    bool
	generation uint64

	queueMu  sync.RWMutex
	queue    chan insightJob
	stopChan chan struct{}
	wg       sync.WaitGroup
	running  bool

	dropped   uint64
	coalesced uint64
	analyses  uint64
}

// NewInsightService constructs an insight service
func NewInsightService(analyzer LogAnalyzer, store Store, opts InsightOptions) *InsightService {
	if opts.QueueSize <= 0 {
		opts.QueueSize = 8
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	return &InsightService{
		analyzer: analyzer,
		store:    store,
		opts:     opts,
	}
}

// Load restores the persisted insight, if any.
func (s *InsightService) Load() error {
	raw, ok, err := s.store.Get(models.SettingKeyInsight)
	if err != nil {
		return fmt.Errorf("failed to read insight: %w", err)
	}
	if !ok || raw == "" {
		return nil
	}
	var stored storedInsight
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		return fmt.Errorf("failed to decode stored insight: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = &stored.Insight
	s.fallback = stored.Fallback
	return nil
}

// Start launches the analysis worker
func (s *InsightService) Start() {
	s.queueMu.Lock()
	defer s.queueMu.Unlock()
	if s.running {
		return
	}
	s.queue = make(chan insightJob, s.opts.QueueSize)
	s.stopChan = make(chan struct{})
	s.running = true

	q, stop := s.queue, s.stopChan
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.processQueue(stop, q)
	}()
	logger.Info("Insight worker started", "queue_size", s.opts.QueueSize)
}

// Stop stops the worker and waits for an in-flight analysis to finish.
func (s *InsightService) Stop() {
	s.queueMu.Lock()
	if !s.running {
		s.queueMu.Unlock()
		return
	}
	s.running = false
	close(s.stopChan)
	s.queueMu.Unlock()

	s.wg.Wait()
	logger.Info("Insight worker stopped")
}

// OnLogsChanged schedules a recomputation for the new log array.
// It never blocks: when the queue is full the oldest job is dropped.
// An empty array clears the insight immediately.
func (s *InsightService) OnLogsChanged(logs []models.DailyLog) bool {
	s.mu.Lock()
	s.generation++
	gen := s.generation
	if len(logs) == 0 {
		s.current = nil
		s.fallback = false
		s.pending = false
		err := s.store.Delete(models.SettingKeyInsight)
		s.mu.Unlock()
		if err != nil {
			core.LogErrorWithDetail(core.SourceStorage, "Failed to clear stored insight", err)
		}
		return true
	}
	s.mu.Unlock()

	s.queueMu.RLock()
	defer s.queueMu.RUnlock()
	if !s.running {
		return false
	}

	job := insightJob{generation: gen, logs: logs}
	select {
	case s.queue <- job:
	default:
		select {
		case <-s.queue:
			atomic.AddUint64(&s.dropped, 1)
		default:
		}
		select {
		case s.queue <- job:
		default:
			atomic.AddUint64(&s.dropped, 1)
			return false
		}
	}

	s.mu.Lock()
	if s.generation == gen {
		s.pending = true
	}
	s.mu.Unlock()
	return true
}

func (s *InsightService) processQueue(stop <-chan struct{}, q <-chan insightJob) {
	for {
		select {
		case <-stop:
			return
		case job := <-q:
			if s.opts.Debounce > 0 {
				timer := time.NewTimer(s.opts.Debounce)
			wait:
				for {
					select {
					case <-stop:
						timer.Stop()
						return
					case newer := <-q:
						atomic.AddUint64(&s.coalesced, 1)
						job = newer
					case <-timer.C:
						break wait
					}
				}
			}
			for drained := false; !drained; {
				select {
				case newer := <-q:
					atomic.AddUint64(&s.coalesced, 1)
					job = newer
				default:
					drained = true
				}
			}

			ctx, cancel := context.WithTimeout(context.Background(), s.opts.Timeout)
			s.apply(ctx, job.generation, job.logs)
			cancel()
		}
	}
}

// apply analyses logs and stores the result unless a newer change superseded it.
func (s *InsightService) apply(ctx context.Context, gen uint64, logs []models.DailyLog) models.AIInsight {
	insight, fallback := s.Analyze(ctx, logs)

	data, err := json.Marshal(storedInsight{Insight: insight, Fallback: fallback, UpdatedAt: time.Now()})

	// Check and write under one lock; a reset must not land between them.
	s.mu.Lock()
	stale := s.generation != gen
	if !stale {
		s.current = &insight
		s.fallback = fallback
		s.pending = false
		if err == nil {
			err = s.store.Set(models.SettingKeyInsight, string(data))
		}
	}
	s.mu.Unlock()

	if stale {
		logger.Debug("Discarding superseded insight", "generation", gen)
		return insight
	}
	if err != nil {
		core.LogErrorWithDetail(core.SourceStorage, "Failed to persist insight", err)
	}
	return insight
}

// Refresh analyses logs synchronously and supersedes any queued job.
// It returns nil when there are no logs.
func (s *InsightService) Refresh(ctx context.Context, logs []models.DailyLog) *models.AIInsight {
	if len(logs) == 0 {
		s.OnLogsChanged(logs)
		return nil
	}

	s.mu.Lock()
	s.generation++
	gen := s.generation
	s.pending = true
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()
	insight := s.apply(ctx, gen, logs)
	return &insight
}

// Current returns the latest insight and whether a recomputation is queued.
func (s *InsightService) Current() models.InsightState {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := models.InsightState{Pending: s.pending, Fallback: s.fallback}
	if s.current != nil {
		cp := *s.current
		st.Insight = &cp
	}
	return st
}

// Analyze asks the model for an insight. The second result reports whether
// the default insight was substituted because the call or its output failed.
func (s *InsightService) Analyze(ctx context.Context, logs []models.DailyLog) (models.AIInsight, bool) {
	atomic.AddUint64(&s.analyses, 1)

	data, err := json.Marshal(logs)
	if err != nil {
		core.LogErrorWithDetail(core.SourceInsights, "Failed to encode logs for analysis", err)
		return models.DefaultInsight(), true
	}

	raw, err := s.analyzer.AnalyzeLogs(ctx, data)
	if err != nil {
		core.LogErrorWithContext(core.SourceInsights, "Insight analysis failed", err, map[string]interface{}{"logs": len(logs)})
		return models.DefaultInsight(), true
	}

	insight, err := parseInsight(raw)
	if err != nil {
		core.LogErrorWithContext(core.SourceInsights, "Insight response unusable", err, map[string]interface{}{"logs": len(logs)})
		return models.DefaultInsight(), true
	}
	return insight, false
}

func parseInsight(raw string) (models.AIInsight, error) {
	text := gemini.StripCodeFences(raw)
	if text == "" {
		return models.AIInsight{}, errors.New("empty response")
	}

	var out struct {
		Summary        string   `json:"summary"`
		Suggestions    []string `json:"suggestions"`
		Motivation     string   `json:"motivation"`
		SpiritualLevel string   `json:"spiritualLevel"`
	}
	if err := json.Unmarshal([]byte(text), &out); err != nil {
		return models.AIInsight{}, fmt.Errorf("invalid JSON: %w", err)
	}
	if strings.TrimSpace(out.Summary) == "" {
		return models.AIInsight{}, errors.New("missing summary")
	}

	level, ok := models.ParseSpiritualLevel(out.SpiritualLevel)
	if !ok {
		logger.Warn("Unknown spiritual level, using Stable", "level", out.SpiritualLevel)
	}

	suggestions := make([]string, 0, len(out.Suggestions))
	for _, sug := range out.Suggestions {
		if sug = strings.TrimSpace(sug); sug != "" {
			suggestions = append(suggestions, sug)
		}
	}

	return models.AIInsight{
		Summary:        strings.TrimSpace(out.Summary),
		Suggestions:    suggestions,
		Motivation:     strings.TrimSpace(out.Motivation),
		SpiritualLevel: level,
	}, nil
}

// QueueLen returns the number of queued jobs
func (s *InsightService) QueueLen() int {
	s.queueMu.RLock()
	defer s.queueMu.RUnlock()
	if s.queue == nil {
		return 0
	}
	return len(s.queue)
}

// QueueCap returns the queue capacity
func (s *InsightService) QueueCap() int {
	return s.opts.QueueSize
}

// DroppedTotal returns how many jobs were dropped because the queue was full.
func (s *InsightService) DroppedTotal() uint64 {
	return atomic.LoadUint64(&s.dropped)
}

// CoalescedTotal returns how many jobs were superseded before running.
func (s *InsightService) CoalescedTotal() uint64 {
	return atomic.LoadUint64(&s.coalesced)
}

// AnalysesTotal returns how many model analyses were attempted.
func (s *InsightService) AnalysesTotal() uint64 {
	return atomic.LoadUint64(&s.analyses)
}
