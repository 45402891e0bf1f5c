package models

// Source is a web citation returned by search grounding.
type Source struct {
	Title string `json:"title"`
	URI   string `json:"uri"`
}

// PrepInfo describes the upcoming Ramadan: countdown, tips and their sources.
type PrepInfo struct {
	DaysRemaining int      `json:"daysRemaining"`
	StartDate     string   `json:"startDate"`
	Tips          []string `json:"tips"`
	Sources       []Source `json:"sources"`
	Fallback      bool     `json:"fallback"`
}

// DefaultPrepTips are used when the grounded answer has no numbered tips.
func DefaultPrepTips() []string {
	return []string{
		"Start fasting Mondays and Thursdays",
		"Read Quran for 15 mins daily",
		"Begin reducing caffeine",
		"Prepare a prayer space",
		"Start nightly Dhikr",
	}
}

// ChartPoint is one bar/point of the dashboard charts.
type ChartPoint struct {
	Name     string `json:"name"` // short weekday
	Date     string `json:"date"`
	Pages    int    `json:"pages"`
	Prayers  int    `json:"prayers"`
	Complete bool   `json:"complete"` // all five prayers
}

// DashboardStats aggregates the log array for the dashboard.
type DashboardStats struct {
	TotalPages           int          `json:"totalPages"`
	AvgPrayers           float64      `json:"avgPrayers"`
	AvgPrayersDisplay    string       `json:"avgPrayersDisplay"`
	DayStreak            int          `json:"dayStreak"`
	TotalDhikr           int          `json:"totalDhikr"`
	AvgSleepHours        float64      `json:"avgSleepHours"`
	TotalExerciseMinutes int          `json:"totalExerciseMinutes"`
	AvgHydrationMl       float64      `json:"avgHydrationMl"`
	Chart                []ChartPoint `json:"chart"`
}
