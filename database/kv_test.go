package database

import (
	"path/filepath"
	"ramadanprep/config"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestKV(t *testing.T) *KV {
	t.Helper()
	cfg := &config.Config{
		SQLitePragmasEnabled: true,
		SQLiteBusyTimeoutMS:  1000,
		SQLiteJournalMode:    "WAL",
		SQLiteSynchronous:    "NORMAL",
		SQLiteMaxOpenConns:   1,
		SQLiteMaxIdleConns:   1,
	}
	db, err := Open(filepath.Join(t.TempDir(), "kv.db"), cfg)
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return NewKV(db)
}

func TestKV_SetGetDelete(t *testing.T) {
	kv := openTestKV(t)

	_, ok, err := kv.Get("ramadan_logs")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, kv.Set("ramadan_logs", `[{"id":"1"}]`))
	require.NoError(t, kv.Set("ramadan_logs", `[{"id":"1"},{"id":"2"}]`))

	v, ok, err := kv.Get("ramadan_logs")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `[{"id":"1"},{"id":"2"}]`, v)

	require.NoError(t, kv.Delete("ramadan_logs"))
	_, ok, err = kv.Get("ramadan_logs")
	require.NoError(t, err)
	assert.False(t, ok)

	// deleting a missing key is not an error
	require.NoError(t, kv.Delete("ramadan_logs"))
}

func TestKV_EmptyKey(t *testing.T) {
	kv := openTestKV(t)
	assert.ErrorIs(t, kv.Set("  ", "x"), ErrEmptyKey)
	_, _, err := kv.Get("")
	assert.ErrorIs(t, err, ErrEmptyKey)
}

func TestKV_Uninitialized(t *testing.T) {
	var kv *KV
	_, _, err := kv.Get("k")
	assert.Error(t, err)
	assert.Error(t, kv.Ping())
}
