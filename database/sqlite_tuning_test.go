package database

import (
	"ramadanprep/config"
	"strings"
	"testing"
)

func TestBuildSQLiteDSN_PragmaParams(t *testing.T) {
	cfg := &config.Config{
		SQLitePragmasEnabled: true,
		SQLiteBusyTimeoutMS:  5000,
		SQLiteJournalMode:    "wal",
		SQLiteSynchronous:    "NORMAL",
		SQLiteForeignKeys:    true,
	}

	dsn := buildSQLiteDSN("ramadanprep.db", cfg)
	for _, want := range []string{
		"_pragma=busy_timeout%285000%29",
		"_pragma=journal_mode%28WAL%29",
		"_pragma=synchronous%28NORMAL%29",
		"_pragma=foreign_keys%281%29",
	} {
		if !strings.Contains(dsn, want) {
			t.Fatalf("expected DSN to contain %q, got %q", want, dsn)
		}
	}
}

func TestBuildSQLiteDSN_DisabledKeepsPath(t *testing.T) {
	cfg := &config.Config{SQLitePragmasEnabled: false}
	if dsn := buildSQLiteDSN("logs.db", cfg); dsn != "logs.db" {
		t.Fatalf("expected bare path, got %q", dsn)
	}
	if dsn := buildSQLiteDSN("logs.db?cache=shared", cfg); dsn != "logs.db?cache=shared" {
		t.Fatalf("expected existing query to be preserved, got %q", dsn)
	}
}

func TestBuildSQLiteDSN_InvalidJournalModeSkipped(t *testing.T) {
	cfg := &config.Config{SQLitePragmasEnabled: true, SQLiteJournalMode: "fast"}
	if dsn := buildSQLiteDSN("logs.db", cfg); strings.Contains(dsn, "journal_mode") {
		t.Fatalf("expected invalid journal mode to be skipped, got %q", dsn)
	}
}

func TestSanitizeSQLitePoolConfig(t *testing.T) {
	got := sanitizeSQLitePoolConfig(sqlitePoolConfig{maxOpenConns: 0, maxIdleConns: 5, maxIdleSec: -1, maxLifeSec: -5})
	want := sqlitePoolConfig{maxOpenConns: 1, maxIdleConns: 1, maxIdleSec: 0, maxLifeSec: 0}
	if got != want {
		t.Fatalf("sanitizeSQLitePoolConfig = %+v, want %+v", got, want)
	}
}
