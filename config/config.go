package config

import (
	"flag"
	"fmt"
	"os"
	"ramadanprep/version"
	"strconv"
	"time"
)

// Config holds RamadanPrep runtime configuration.
type Config struct {
	LogLevel             string
	LogFilePath          string
	Port                 int
	DatabaseURL          string
	SQLitePragmasEnabled bool
	SQLiteBusyTimeoutMS  int
	SQLiteJournalMode    string
	SQLiteSynchronous    string
	SQLiteForeignKeys    bool
	SQLiteMaxOpenConns   int
	SQLiteMaxIdleConns   int
	SQLiteConnMaxIdleSec int
	SQLiteConnMaxLifeSec int
	OpenBrowser          bool
	CLIMode              bool
	CLIServer            string // Server URL for CLI mode

	// Generative model access
	GeminiAPIKey          string
	TranscribeModel       string
	AnalysisModel         string
	PrepModel             string
	LiveModel             string
	CoachVoice            string
	AITimeoutSeconds      int
	RamadanStartDate      string // YYYY-MM-DD
	PrepCacheMinutes      int
	InsightQueueSize      int
	InsightDebounceMillis int

	// Tunable limits
	MaxErrorLogs                    int
	MaxCoachSessions                int
	CoachWriteTimeoutSeconds        int
	GoroutineMonitorIntervalSeconds int
	GoroutineWarnThreshold          int
}

// Settings is the global configuration instance populated from environment variables and flags.
var Settings *Config

// init populates Settings from the environment, falling back to defaults.
func init() {
	Settings = &Config{
		LogLevel:             getEnv("LOG_LEVEL", "INFO"),
		LogFilePath:          getEnv("LOG_FILE", "./ramadanprep.log"),
		Port:                 getEnvInt("PORT", 7790),
		DatabaseURL:          getEnv("DATABASE_URL", "ramadanprep.db"),
		SQLitePragmasEnabled: getEnvBool("SQLITE_PRAGMAS_ENABLED", true),
		SQLiteBusyTimeoutMS:  getEnvInt("SQLITE_BUSY_TIMEOUT_MS", 5000),
		SQLiteJournalMode:    getEnv("SQLITE_JOURNAL_MODE", "WAL"),
		SQLiteSynchronous:    getEnv("SQLITE_SYNCHRONOUS", "NORMAL"),
		SQLiteForeignKeys:    getEnvBool("SQLITE_FOREIGN_KEYS", true),
		SQLiteMaxOpenConns:   getEnvInt("SQLITE_MAX_OPEN_CONNS", 1),
		SQLiteMaxIdleConns:   getEnvInt("SQLITE_MAX_IDLE_CONNS", 1),
		SQLiteConnMaxIdleSec: getEnvInt("SQLITE_CONN_MAX_IDLE_SECONDS", 300),
		SQLiteConnMaxLifeSec: getEnvInt("SQLITE_CONN_MAX_LIFETIME_SECONDS", 0),
		OpenBrowser:          getEnvBool("OPEN_BROWSER", false),
		CLIMode:              getEnvBool("CLI_MODE", false),

		GeminiAPIKey:          getEnv("GEMINI_API_KEY", os.Getenv("API_KEY")),
		TranscribeModel:       getEnv("GEMINI_TRANSCRIBE_MODEL", "gemini-3-flash-preview"),
		AnalysisModel:         getEnv("GEMINI_ANALYSIS_MODEL", "gemini-3-pro-preview"),
		PrepModel:             getEnv("GEMINI_PREP_MODEL", "gemini-3-flash-preview"),
		LiveModel:             getEnv("GEMINI_LIVE_MODEL", "gemini-2.5-flash-native-audio-preview-09-2025"),
		CoachVoice:            getEnv("COACH_VOICE", "Kore"),
		AITimeoutSeconds:      getEnvInt("AI_TIMEOUT_SECONDS", 60),
		RamadanStartDate:      getEnv("RAMADAN_START_DATE", "2027-02-08"),
		PrepCacheMinutes:      getEnvInt("PREP_CACHE_MINUTES", 360),
		InsightQueueSize:      getEnvInt("INSIGHT_QUEUE_SIZE", 8),
		InsightDebounceMillis: getEnvInt("INSIGHT_DEBOUNCE_MS", 500),

		MaxErrorLogs:                    getEnvInt("MAX_ERROR_LOGS", 100),
		MaxCoachSessions:                getEnvInt("MAX_COACH_SESSIONS", 4),
		CoachWriteTimeoutSeconds:        getEnvInt("COACH_WRITE_TIMEOUT_SECONDS", 10),
		GoroutineMonitorIntervalSeconds: getEnvInt("GOROUTINE_MONITOR_INTERVAL_SECONDS", 30),
		GoroutineWarnThreshold:          getEnvInt("GOROUTINE_WARN_THRESHOLD", 1000),
	}
}

// ParseFlags parses command-line flags and applies overrides to Settings.
// --help prints usage and exits, --version prints build info and exits.
func ParseFlags() {
	flag.Usage = func() {
		out := flag.CommandLine.Output()
		fmt.Fprintf(out, "RamadanPrep - daily spiritual log and coach\n\n")
		fmt.Fprintf(out, "Usage: %s [options]\n\n", os.Args[0])
		fmt.Fprintln(out, "Options:")
		flag.PrintDefaults()
		fmt.Fprintln(out, "\nEnvironment variables:")
		fmt.Fprintln(out, "  LOG_LEVEL                         Log level (DEBUG, INFO, WARN, ERROR)")
		fmt.Fprintln(out, "  LOG_FILE                          Log file path (default ./ramadanprep.log)")
		fmt.Fprintln(out, "  PORT                              HTTP server port (default 7790)")
		fmt.Fprintln(out, "  DATABASE_URL                      SQLite database path (default ramadanprep.db)")
		fmt.Fprintln(out, "  SQLITE_PRAGMAS_ENABLED            Enable SQLite PRAGMAs (true/false, default true)")
		fmt.Fprintln(out, "  SQLITE_BUSY_TIMEOUT_MS            SQLite busy_timeout in milliseconds (default 5000)")
		fmt.Fprintln(out, "  SQLITE_JOURNAL_MODE               SQLite journal_mode (default WAL)")
		fmt.Fprintln(out, "  SQLITE_SYNCHRONOUS                SQLite synchronous (default NORMAL)")
		fmt.Fprintln(out, "  GEMINI_API_KEY                    Generative AI API key (falls back to API_KEY)")
		fmt.Fprintln(out, "  GEMINI_TRANSCRIBE_MODEL           Model used for reflection transcription")
		fmt.Fprintln(out, "  GEMINI_ANALYSIS_MODEL             Model used for log analysis")
		fmt.Fprintln(out, "  GEMINI_PREP_MODEL                 Model used for grounded prep tips")
		fmt.Fprintln(out, "  GEMINI_LIVE_MODEL                 Native audio model for the voice coach")
		fmt.Fprintln(out, "  COACH_VOICE                       Prebuilt voice for the coach (default Kore)")
		fmt.Fprintln(out, "  AI_TIMEOUT_SECONDS                Timeout for a single model request (default 60)")
		fmt.Fprintln(out, "  RAMADAN_START_DATE                Expected first day of Ramadan, YYYY-MM-DD (default 2027-02-08)")
		fmt.Fprintln(out, "  PREP_CACHE_MINUTES                Minutes to cache grounded prep info (default 360)")
		fmt.Fprintln(out, "  INSIGHT_QUEUE_SIZE                Pending insight recomputations (default 8)")
		fmt.Fprintln(out, "  INSIGHT_DEBOUNCE_MS               Delay before recomputing insights after a change (default 500)")
		fmt.Fprintln(out, "  MAX_ERROR_LOGS                    Error log entries kept in memory (default 100)")
		fmt.Fprintln(out, "  MAX_COACH_SESSIONS                Concurrent voice coach sessions (default 4)")
		fmt.Fprintln(out, "  OPEN_BROWSER                      Open the UI in a browser on startup (default false)")
		fmt.Fprintln(out, "  GOROUTINE_MONITOR_INTERVAL_SECONDS Interval seconds for goroutine monitor (default 30)")
		fmt.Fprintln(out, "  GOROUTINE_WARN_THRESHOLD          Goroutine count warning threshold (default 1000)")
	}

	port := flag.Int("port", Settings.Port, "HTTP server port (overrides PORT)")
	db := flag.String("db", Settings.DatabaseURL, "SQLite database path (overrides DATABASE_URL)")
	sqlitePragmasEnabled := flag.Bool("sqlite-pragmas", Settings.SQLitePragmasEnabled, "Enable SQLite PRAGMAs (overrides SQLITE_PRAGMAS_ENABLED)")
	sqliteBusyTimeoutMS := flag.Int("sqlite-busy-timeout-ms", Settings.SQLiteBusyTimeoutMS, "SQLite busy_timeout in milliseconds (overrides SQLITE_BUSY_TIMEOUT_MS)")
	sqliteJournalMode := flag.String("sqlite-journal-mode", Settings.SQLiteJournalMode, "SQLite journal_mode (overrides SQLITE_JOURNAL_MODE)")
	logLevel := flag.String("log-level", Settings.LogLevel, "Log level: DEBUG, INFO, WARN, ERROR (overrides LOG_LEVEL)")
	logFile := flag.String("log-file", Settings.LogFilePath, "Log file path (overrides LOG_FILE)")
	apiKey := flag.String("api-key", Settings.GeminiAPIKey, "Generative AI API key (overrides GEMINI_API_KEY)")
	startDate := flag.String("ramadan-start", Settings.RamadanStartDate, "Expected first day of Ramadan, YYYY-MM-DD (overrides RAMADAN_START_DATE)")
	openBrowser := flag.Bool("open", Settings.OpenBrowser, "Open the UI in the default browser (overrides OPEN_BROWSER)")
	cliMode := flag.Bool("cli", Settings.CLIMode, "Run in CLI mode (HTTP client only, no database)")
	cliServer := flag.String("server", "", "Server URL for CLI mode (default: the default server in ~/.ramadanprep/config.yaml)")

	showHelp := flag.Bool("help", false, "Show help and exit")
	showVersion := flag.Bool("version", false, "Show version and exit")

	flag.Parse()

	if *showVersion {
		fmt.Println(version.GetBuildInfo())
		os.Exit(0)
	}

	if *showHelp {
		flag.Usage()
		os.Exit(0)
	}

	Settings.Port = *port
	Settings.DatabaseURL = *db
	Settings.SQLitePragmasEnabled = *sqlitePragmasEnabled
	Settings.SQLiteBusyTimeoutMS = *sqliteBusyTimeoutMS
	Settings.SQLiteJournalMode = *sqliteJournalMode
	Settings.LogLevel = *logLevel
	Settings.LogFilePath = *logFile
	Settings.GeminiAPIKey = *apiKey
	Settings.RamadanStartDate = *startDate
	Settings.OpenBrowser = *openBrowser
	Settings.CLIMode = *cliMode
	Settings.CLIServer = *cliServer
}

// AITimeout returns the per-request model timeout.
func (c *Config) AITimeout() time.Duration {
	if c.AITimeoutSeconds <= 0 {
		return 60 * time.Second
	}
	return time.Duration(c.AITimeoutSeconds) * time.Second
}

// RamadanStart parses RamadanStartDate as a UTC calendar day.
func (c *Config) RamadanStart() (time.Time, error) {
	t, err := time.Parse("2006-01-02", c.RamadanStartDate)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid RAMADAN_START_DATE %q: %w", c.RamadanStartDate, err)
	}
	return t, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
