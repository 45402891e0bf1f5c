package logger

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	// Logger is the global structured logger
	Logger *log.Logger

	// out is the writer shared with the standard library logger, gin and gorm
	out io.Writer = os.Stderr
)

// Config holds logger configuration
type Config struct {
	Level    string // DEBUG, INFO, WARN, ERROR
	FilePath string
}

// Init sets up the global logger writing to a rotating file.
// At DEBUG level output is mirrored to stderr.
func Init(cfg Config) (io.Closer, error) {
	if dir := filepath.Dir(cfg.FilePath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, err
		}
	}

	fileWriter := &lumberjack.Logger{
		Filename:   cfg.FilePath,
		MaxSize:    10, // megabytes
		MaxBackups: 3,
		MaxAge:     28, // days
		Compress:   true,
	}

	level := ParseLevel(cfg.Level)
	if level == log.DebugLevel {
		out = io.MultiWriter(os.Stderr, fileWriter)
	} else {
		out = fileWriter
	}

	Logger = log.NewWithOptions(out, log.Options{
		ReportCaller:    level == log.DebugLevel,
		ReportTimestamp: true,
		Level:           level,
		Prefix:          "ramadanprep",
	})

	return fileWriter, nil
}

// InitStderr sets up a logger on stderr only, used by CLI mode and tests.
func InitStderr(level string) {
	out = os.Stderr
	Logger = log.NewWithOptions(out, log.Options{
		ReportTimestamp: true,
		Level:           ParseLevel(level),
		Prefix:          "ramadanprep",
	})
}

// Writer returns the destination shared by every logger in the process.
func Writer() io.Writer {
	return out
}

// ParseLevel maps the config level names onto charmbracelet levels.
func ParseLevel(level string) log.Level {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG":
		return log.DebugLevel
	case "WARN", "WARNING":
		return log.WarnLevel
	case "ERROR":
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}

// Debug logs a debug message
func Debug(msg string, keyvals ...interface{}) {
	if Logger != nil {
		Logger.Debug(msg, keyvals...)
	}
}

// Info logs an info message
func Info(msg string, keyvals ...interface{}) {
	if Logger != nil {
		Logger.Info(msg, keyvals...)
	}
}

// Warn logs a warning message
func Warn(msg string, keyvals ...interface{}) {
	if Logger != nil {
		Logger.Warn(msg, keyvals...)
	}
}

// Error logs an error message
func Error(msg string, keyvals ...interface{}) {
	if Logger != nil {
		Logger.Error(msg, keyvals...)
	}
}

// Fatal logs a fatal error and exits
func Fatal(msg string, keyvals ...interface{}) {
	if Logger != nil {
		Logger.Fatal(msg, keyvals...)
	}
	os.Exit(1)
}
