package service

import (
	"fmt"
	"math"
	"ramadanprep/models"
	"time"
)

// ChartWindow is how many of the most recent logs the dashboard charts show.
const ChartWindow = 7

// DashboardService derives the dashboard aggregates from the log array.
type DashboardService struct {
	loc *time.Location
}

// NewDashboardService renders chart weekdays in loc (local time when nil).
func NewDashboardService(loc *time.Location) *DashboardService {
	if loc == nil {
		loc = time.Local
	}
	return &DashboardService{loc: loc}
}

// Compute aggregates logs. Logs with an unparsable date still count toward totals.
func (s *DashboardService) Compute(logs []models.DailyLog) models.DashboardStats {
	stats := models.DashboardStats{
		DayStreak: len(logs),
		Chart:     []models.ChartPoint{},
	}

	var prayers, hydration int
	var sleep float64
	for i := range logs {
		l := &logs[i]
		stats.TotalPages += l.QuranPages
		stats.TotalDhikr += l.DhikrCount
		stats.TotalExerciseMinutes += l.ExerciseMinutes
		prayers += l.PrayerCount()
		sleep += l.SleepHours
		hydration += l.HydrationMl
	}

	n := float64(max(len(logs), 1))
	stats.AvgPrayers = round1(float64(prayers) / n)
	stats.AvgPrayersDisplay = fmt.Sprintf("%.1f", float64(prayers)/n)
	stats.AvgSleepHours = round1(sleep / n)
	stats.AvgHydrationMl = math.Round(float64(hydration) / n)

	start := max(len(logs)-ChartWindow, 0)
	for i := start; i < len(logs); i++ {
		stats.Chart = append(stats.Chart, s.chartPoint(&logs[i]))
	}
	return stats
}

func (s *DashboardService) chartPoint(l *models.DailyLog) models.ChartPoint {
	p := models.ChartPoint{
		Pages:    l.QuranPages,
		Prayers:  l.PrayerCount(),
		Complete: l.PrayerCount() >= len(models.Prayers),
	}
	if t, err := l.ParsedDate(); err == nil {
		t = t.In(s.loc)
		p.Name = t.Format("Mon")
		p.Date = t.Format("2006-01-02")
	}
	return p
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
