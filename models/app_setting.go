package models

import "time"

// AppSetting is a key/value row in SQLite.
// The daily log array, the latest insight and small preferences each live under their own key.
type AppSetting struct {
	Key       string    `gorm:"primaryKey;size:128" json:"key"`
	Value     string    `gorm:"type:text" json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Well-known setting keys
const (
	SettingKeyLogs    = "ramadan_logs"
	SettingKeyInsight = "ramadan_insight"
)
