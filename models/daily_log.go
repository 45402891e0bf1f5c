package models

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Prayers lists the five daily prayers in canonical order.
var Prayers = []string{"Fajr", "Dhuhr", "Asr", "Maghrib", "Isha"}

// Defaults applied when the log form leaves a field out.
const (
	DefaultSleepHours  = 8.0
	DefaultHydrationMl = 2000
)

// DailyLog is one day's self-reported spiritual and health record.
type DailyLog struct {
	ID              string   `json:"id"`
	Date            string   `json:"date"` // RFC3339
	QuranPages      int      `json:"quranPages"`
	Prayers         []string `json:"prayers"`
	DhikrCount      int      `json:"dhikrCount"`
	SleepHours      float64  `json:"sleepHours"`
	ExerciseMinutes int      `json:"exerciseMinutes"`
	HydrationMl     int      `json:"hydrationMl"`
	KindnessNote    string   `json:"kindnessNote"`
	Reflection      string   `json:"reflection"`
}

// PrayerCount returns how many prayers were marked as performed.
func (l *DailyLog) PrayerCount() int {
	return len(l.Prayers)
}

// ParsedDate returns the log date as a time value.
func (l *DailyLog) ParsedDate() (time.Time, error) {
	return time.Parse(time.RFC3339, l.Date)
}

// DailyLogCreate is the request payload for saving a log.
// Pointer fields distinguish "not sent" from zero so form defaults can apply.
type DailyLogCreate struct {
	Date            string   `json:"date"`
	QuranPages      int      `json:"quranPages"`
	Prayers         []string `json:"prayers"`
	DhikrCount      int      `json:"dhikrCount"`
	SleepHours      *float64 `json:"sleepHours"`
	ExerciseMinutes int      `json:"exerciseMinutes"`
	HydrationMl     *int     `json:"hydrationMl"`
	KindnessNote    string   `json:"kindnessNote"`
	Reflection      string   `json:"reflection"`
}

// Normalize trims text fields and canonicalises prayer names.
// Unknown prayer names and duplicates are dropped.
func (r *DailyLogCreate) Normalize() {
	r.Date = strings.TrimSpace(r.Date)
	r.KindnessNote = strings.TrimSpace(r.KindnessNote)
	r.Reflection = strings.TrimSpace(r.Reflection)
	r.Prayers = NormalizePrayers(r.Prayers)
}

// Validate rejects negative quantities and unparsable dates.
func (r *DailyLogCreate) Validate() error {
	var errs []error
	if r.QuranPages < 0 {
		errs = append(errs, errors.New("quranPages must not be negative"))
	}
	if r.DhikrCount < 0 {
		errs = append(errs, errors.New("dhikrCount must not be negative"))
	}
	if r.SleepHours != nil && (*r.SleepHours < 0 || *r.SleepHours > 24) {
		errs = append(errs, errors.New("sleepHours must be between 0 and 24"))
	}
	if r.ExerciseMinutes < 0 {
		errs = append(errs, errors.New("exerciseMinutes must not be negative"))
	}
	if r.HydrationMl != nil && *r.HydrationMl < 0 {
		errs = append(errs, errors.New("hydrationMl must not be negative"))
	}
	if r.Date != "" {
		if _, err := parseLogDate(r.Date); err != nil {
			errs = append(errs, fmt.Errorf("date: %w", err))
		}
	}
	return errors.Join(errs...)
}

// ToDailyLog builds the stored record, applying form defaults.
// now is used when no date was supplied.
func (r *DailyLogCreate) ToDailyLog(id string, now time.Time) DailyLog {
	date := now.UTC().Format(time.RFC3339)
	if r.Date != "" {
		if t, err := parseLogDate(r.Date); err == nil {
			date = t.Format(time.RFC3339)
		}
	}

	sleep := DefaultSleepHours
	if r.SleepHours != nil {
		sleep = *r.SleepHours
	}
	hydration := DefaultHydrationMl
	if r.HydrationMl != nil {
		hydration = *r.HydrationMl
	}

	prayers := r.Prayers
	if prayers == nil {
		prayers = []string{}
	}

	return DailyLog{
		ID:              id,
		Date:            date,
		QuranPages:      r.QuranPages,
		Prayers:         prayers,
		DhikrCount:      r.DhikrCount,
		SleepHours:      sleep,
		ExerciseMinutes: r.ExerciseMinutes,
		HydrationMl:     hydration,
		KindnessNote:    r.KindnessNote,
		Reflection:      r.Reflection,
	}
}

// NormalizePrayers maps names case-insensitively onto Prayers, in canonical order.
func NormalizePrayers(in []string) []string {
	seen := make(map[string]bool, len(in))
	for _, name := range in {
		name = strings.TrimSpace(name)
		for _, p := range Prayers {
			if strings.EqualFold(name, p) {
				seen[p] = true
				break
			}
		}
	}

	out := make([]string, 0, len(seen))
	for _, p := range Prayers {
		if seen[p] {
			out = append(out, p)
		}
	}
	return out
}

// parseLogDate accepts a full RFC3339 timestamp or a bare YYYY-MM-DD day.
func parseLogDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("expected RFC3339 or YYYY-MM-DD, got %q", s)
	}
	return t, nil
}
