package service

import (
	"errors"
	"ramadanprep/models"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogService_SaveAppendsWithDefaults(t *testing.T) {
	store := newMemStore()
	svc := NewLogService(store)
	svc.now = func() time.Time { return time.Date(2026, 12, 1, 9, 0, 0, 0, time.UTC) }

	var changed [][]models.DailyLog
	svc.OnChange(func(logs []models.DailyLog) { changed = append(changed, logs) })

	first, err := svc.Save(models.DailyLogCreate{QuranPages: 4, Prayers: []string{"isha", "Fajr"}})
	require.NoError(t, err)
	assert.NotEmpty(t, first.ID)
	assert.Equal(t, "2026-12-01T09:00:00Z", first.Date)
	assert.Equal(t, []string{"Fajr", "Isha"}, first.Prayers)
	assert.Equal(t, models.DefaultSleepHours, first.SleepHours)
	assert.Equal(t, models.DefaultHydrationMl, first.HydrationMl)

	second, err := svc.Save(models.DailyLogCreate{Date: "2026-12-02", QuranPages: 2})
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	logs, err := svc.List()
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, first.ID, logs[0].ID)
	assert.Equal(t, second.ID, logs[1].ID)
	assert.True(t, store.has(models.SettingKeyLogs))

	require.Len(t, changed, 2)
	assert.Len(t, changed[1], 2)
}

func TestLogService_SaveRejectsInvalid(t *testing.T) {
	svc := NewLogService(newMemStore())

	_, err := svc.Save(models.DailyLogCreate{QuranPages: -1})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidLog))

	logs, err := svc.List()
	require.NoError(t, err)
	assert.Empty(t, logs)
}

func TestLogService_ListEmptyIsNotNil(t *testing.T) {
	logs, err := NewLogService(newMemStore()).List()
	require.NoError(t, err)
	assert.NotNil(t, logs)
	assert.Len(t, logs, 0)
}

func TestLogService_ListCorruptBlob(t *testing.T) {
	store := newMemStore()
	store.data[models.SettingKeyLogs] = "{not json"
	_, err := NewLogService(store).List()
	assert.Error(t, err)
}

func TestLogService_ResetClearsLogsAndInsight(t *testing.T) {
	store := newMemStore()
	svc := NewLogService(store)
	_, err := svc.Save(models.DailyLogCreate{QuranPages: 1})
	require.NoError(t, err)
	store.data[models.SettingKeyInsight] = `{"insight":{"summary":"x"}}`

	var last []models.DailyLog
	svc.OnChange(func(logs []models.DailyLog) { last = logs })

	require.NoError(t, svc.Reset())
	assert.False(t, store.has(models.SettingKeyLogs))
	assert.False(t, store.has(models.SettingKeyInsight))
	assert.NotNil(t, last)
	assert.Empty(t, last)

	logs, err := svc.List()
	require.NoError(t, err)
	assert.Empty(t, logs)
}

func TestLogService_ChangeCallbacksFollowCommitOrder(t *testing.T) {
	svc := NewLogService(newMemStore())

	var (
		mu        sync.Mutex
		delivered []int
		resetDone = make(chan error, 1)
		started   bool
	)
	svc.OnChange(func(logs []models.DailyLog) {
		mu.Lock()
		delivered = append(delivered, len(logs))
		first := !started
		started = true
		mu.Unlock()
		if !first {
			return
		}

		// A reset racing the save must not commit before this delivery returns.
		go func() { resetDone <- svc.Reset() }()
		select {
		case <-resetDone:
			t.Errorf("reset completed while a save was still delivering its change")
		case <-time.After(50 * time.Millisecond):
		}
	})

	_, err := svc.Save(models.DailyLogCreate{QuranPages: 2})
	require.NoError(t, err)
	require.NoError(t, <-resetDone)

	logs, err := svc.List()
	require.NoError(t, err)
	assert.Empty(t, logs)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{1, 0}, delivered, "the last delivery must match what is stored")
}

func TestLogService_ResetDuringAnalysisLeavesNoInsight(t *testing.T) {
	store := newMemStore()
	gate := make(chan struct{})
	ai := &fakeAI{analyzeResp: goodInsight, analyzeGate: gate}

	insights := NewInsightService(ai, store, InsightOptions{QueueSize: 2})
	insights.Start()
	t.Cleanup(insights.Stop)

	logs := NewLogService(store)
	logs.OnChange(func(l []models.DailyLog) { insights.OnLogsChanged(l) })

	_, err := logs.Save(models.DailyLogCreate{QuranPages: 5})
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		n, _ := ai.calls()
		return n == 1
	}, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, logs.Reset())
	close(gate)

	require.Eventually(t, func() bool {
		return !insights.Current().Pending
	}, 2*time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)

	assert.Nil(t, insights.Current().Insight)
	assert.False(t, store.has(models.SettingKeyInsight))
}
