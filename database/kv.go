package database

import (
	"errors"
	"ramadanprep/models"
	"strings"

	"gorm.io/gorm"
)

// ErrEmptyKey is returned for blank setting keys.
var ErrEmptyKey = errors.New("empty setting key")

// KV is the local key/value store. Each key holds one opaque string blob.
type KV struct {
	db *gorm.DB
}

// NewKV wraps an opened database.
func NewKV(db *gorm.DB) *KV {
	return &KV{db: db}
}

// Get returns the value stored under key; ok is false when the key does not exist.
func (s *KV) Get(key string) (value string, ok bool, err error) {
	if s == nil || s.db == nil {
		return "", false, errors.New("database not initialized")
	}

	key = strings.TrimSpace(key)
	if key == "" {
		return "", false, ErrEmptyKey
	}

	var row models.AppSetting
	if err := s.db.First(&row, "key = ?", key).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", false, nil
		}
		return "", false, err
	}
	return row.Value, true, nil
}

// Set stores value under key, replacing any previous value.
func (s *KV) Set(key, value string) error {
	if s == nil || s.db == nil {
		return errors.New("database not initialized")
	}

	key = strings.TrimSpace(key)
	if key == "" {
		return ErrEmptyKey
	}

	return s.db.Save(&models.AppSetting{Key: key, Value: value}).Error
}

// Delete removes key if it exists.
func (s *KV) Delete(key string) error {
	if s == nil || s.db == nil {
		return errors.New("database not initialized")
	}

	key = strings.TrimSpace(key)
	if key == "" {
		return ErrEmptyKey
	}

	return s.db.Where("key = ?", key).Delete(&models.AppSetting{}).Error
}

// Ping reports whether the underlying connection answers.
func (s *KV) Ping() error {
	if s == nil || s.db == nil {
		return errors.New("database not initialized")
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}
