package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"ramadanprep/logger"
	"ramadanprep/models"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrInvalidLog wraps validation failures of a submitted log.
var ErrInvalidLog = errors.New("invalid daily log")

// Store is the key/value persistence the services keep their blobs in.
// *database.KV satisfies it.
type Store interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Delete(key string) error
}

type sentinelError struct {
	msg      string
	sentinel error
}

func (e sentinelError) Error() string {
	return e.msg
}

func (e sentinelError) Unwrap() error {
	return e.sentinel
}

func wrapSentinel(msg string, sentinel error) error {
	return sentinelError{msg: msg, sentinel: sentinel}
}

// LogService owns the daily log array, stored as a single JSON blob.
type LogService struct {
	mu       sync.Mutex
	store    Store
	now      func() time.Time
	onChange func(logs []models.DailyLog)
}

// NewLogService constructs a log service
func NewLogService(store Store) *LogService {
	return &LogService{
		store: store,
		now:   time.Now,
	}
}

// OnChange registers a callback run after every successful Save or Reset
// with a copy of the new log array. It runs under the service lock so
// callbacks arrive in commit order; fn must not block or call back into
// the service.
func (s *LogService) OnChange(fn func(logs []models.DailyLog)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = fn
}

// List returns all logs in insertion order
func (s *LogService) List() ([]models.DailyLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// Save appends a new log and rewrites the blob.
func (s *LogService) Save(req models.DailyLogCreate) (*models.DailyLog, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, wrapSentinel(err.Error(), ErrInvalidLog)
	}

	s.mu.Lock()
	logs, err := s.load()
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}

	entry := req.ToDailyLog(uuid.NewString(), s.now())
	logs = append(logs, entry)
	if err := s.persist(logs); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	if s.onChange != nil {
		s.onChange(append([]models.DailyLog(nil), logs...))
	}
	s.mu.Unlock()

	logger.Info("Daily log saved", "id", entry.ID, "date", entry.Date, "total", len(logs))
	return &entry, nil
}

// Reset deletes every log and the cached insight.
func (s *LogService) Reset() error {
	s.mu.Lock()
	if err := s.store.Delete(models.SettingKeyLogs); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("failed to delete logs: %w", err)
	}
	if err := s.store.Delete(models.SettingKeyInsight); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("failed to delete insight: %w", err)
	}
	if s.onChange != nil {
		s.onChange([]models.DailyLog{})
	}
	s.mu.Unlock()

	logger.Warn("All daily logs reset")
	return nil
}

// load must be called with mu held.
func (s *LogService) load() ([]models.DailyLog, error) {
	raw, ok, err := s.store.Get(models.SettingKeyLogs)
	if err != nil {
		return nil, fmt.Errorf("failed to read logs: %w", err)
	}
	logs := []models.DailyLog{}
	if !ok || raw == "" {
		return logs, nil
	}
	if err := json.Unmarshal([]byte(raw), &logs); err != nil {
		return nil, fmt.Errorf("failed to decode stored logs: %w", err)
	}
	if logs == nil {
		logs = []models.DailyLog{}
	}
	return logs, nil
}

func (s *LogService) persist(logs []models.DailyLog) error {
	data, err := json.Marshal(logs)
	if err != nil {
		return fmt.Errorf("failed to encode logs: %w", err)
	}
	if err := s.store.Set(models.SettingKeyLogs, string(data)); err != nil {
		return fmt.Errorf("failed to write logs: %w", err)
	}
	return nil
}
