package service

import (
	"fmt"
	"ramadanprep/models"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDashboardService_EmptyLogs(t *testing.T) {
	stats := NewDashboardService(time.UTC).Compute(nil)
	assert.Equal(t, 0, stats.TotalPages)
	assert.Equal(t, 0.0, stats.AvgPrayers)
	assert.Equal(t, "0.0", stats.AvgPrayersDisplay)
	assert.Equal(t, 0, stats.DayStreak)
	assert.NotNil(t, stats.Chart)
	assert.Empty(t, stats.Chart)
}

func TestDashboardService_Aggregates(t *testing.T) {
	logs := []models.DailyLog{
		{Date: "2026-11-30T10:00:00Z", QuranPages: 5, Prayers: models.Prayers, DhikrCount: 33, SleepHours: 7, HydrationMl: 2000, ExerciseMinutes: 20},
		{Date: "2026-12-01T10:00:00Z", QuranPages: 3, Prayers: []string{"Fajr", "Isha"}, DhikrCount: 100, SleepHours: 6, HydrationMl: 1500},
		{Date: "2026-12-02T10:00:00Z", QuranPages: 0, Prayers: []string{}, SleepHours: 8, HydrationMl: 2500, ExerciseMinutes: 10},
	}

	stats := NewDashboardService(time.UTC).Compute(logs)
	assert.Equal(t, 8, stats.TotalPages)
	assert.Equal(t, 2.3, stats.AvgPrayers)
	assert.Equal(t, "2.3", stats.AvgPrayersDisplay)
	assert.Equal(t, 3, stats.DayStreak)
	assert.Equal(t, 133, stats.TotalDhikr)
	assert.Equal(t, 30, stats.TotalExerciseMinutes)
	assert.Equal(t, 7.0, stats.AvgSleepHours)
	assert.Equal(t, 2000.0, stats.AvgHydrationMl)

	require.Len(t, stats.Chart, 3)
	assert.Equal(t, models.ChartPoint{Name: "Mon", Date: "2026-11-30", Pages: 5, Prayers: 5, Complete: true}, stats.Chart[0])
	assert.Equal(t, "Tue", stats.Chart[1].Name)
	assert.False(t, stats.Chart[1].Complete)
}

func TestDashboardService_ChartKeepsLastSeven(t *testing.T) {
	start := time.Date(2026, 12, 1, 0, 0, 0, 0, time.UTC)
	var logs []models.DailyLog
	for i := 0; i < 10; i++ {
		logs = append(logs, models.DailyLog{
			ID:         fmt.Sprint(i),
			Date:       start.AddDate(0, 0, i).Format(time.RFC3339),
			QuranPages: i,
		})
	}

	stats := NewDashboardService(time.UTC).Compute(logs)
	require.Len(t, stats.Chart, ChartWindow)
	assert.Equal(t, 3, stats.Chart[0].Pages)
	assert.Equal(t, 9, stats.Chart[6].Pages)
	assert.Equal(t, 45, stats.TotalPages)
	assert.Equal(t, 10, stats.DayStreak)
}

func TestDashboardService_UnparsableDateStillCounts(t *testing.T) {
	stats := NewDashboardService(time.UTC).Compute([]models.DailyLog{{Date: "yesterday", QuranPages: 2}})
	assert.Equal(t, 2, stats.TotalPages)
	require.Len(t, stats.Chart, 1)
	assert.Empty(t, stats.Chart[0].Name)
}
