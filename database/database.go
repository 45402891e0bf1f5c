package database

import (
	"log"
	"ramadanprep/config"
	"ramadanprep/models"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

// InitDB opens the application database described by config.Settings and assigns it to DB.
func InitDB() error {
	db, err := Open(config.Settings.DatabaseURL, config.Settings)
	if err != nil {
		return err
	}
	DB = db
	log.Println("Database initialized successfully")
	return nil
}

// Open opens a SQLite database at dbPath, tunes the connection pool, applies
// PRAGMAs and migrates the key/value table that backs local storage.
func Open(dbPath string, settings *config.Config) (*gorm.DB, error) {
	logLevel := logger.Silent
	if settings.LogLevel == "DEBUG" {
		logLevel = logger.Info
	}

	dsn := buildSQLiteDSN(dbPath, settings)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: sqliteMetricsLogger{inner: logger.New(
			log.New(log.Writer(), "\r\n", log.LstdFlags),
			logger.Config{
				LogLevel:                  logLevel,
				IgnoreRecordNotFoundError: true,
			},
		)},
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	pool := currentSQLitePoolConfig(settings)
	sqlDB.SetMaxIdleConns(pool.maxIdleConns)
	sqlDB.SetMaxOpenConns(pool.maxOpenConns)
	sqlDB.SetConnMaxIdleTime(time.Duration(pool.maxIdleSec) * time.Second)
	sqlDB.SetConnMaxLifetime(time.Duration(pool.maxLifeSec) * time.Second)

	// DSN parameters cover new connections; existing files get the PRAGMAs once more here.
	if settings.SQLitePragmasEnabled {
		if settings.SQLiteBusyTimeoutMS > 0 {
			db.Exec("PRAGMA busy_timeout = ?", settings.SQLiteBusyTimeoutMS)
		}
		if journalMode := normalizeSQLiteJournalMode(settings.SQLiteJournalMode); journalMode != "" {
			db.Exec("PRAGMA journal_mode = " + journalMode)
		}
		if synchronous := normalizeSQLiteSynchronous(settings.SQLiteSynchronous); synchronous != "" {
			db.Exec("PRAGMA synchronous = " + synchronous)
		}
	}

	if err := db.AutoMigrate(&models.AppSetting{}); err != nil {
		return nil, err
	}

	return db, nil
}

// CloseDB closes the database connection and releases resources
func CloseDB() error {
	if DB == nil {
		return nil
	}

	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}

	log.Println("Closing database connection...")
	return sqlDB.Close()
}
