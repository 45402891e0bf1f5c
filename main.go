package main

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"net"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"ramadanprep/cli"
	"ramadanprep/config"
	"ramadanprep/database"
	"ramadanprep/gemini"
	"ramadanprep/handlers"
	"ramadanprep/logger"
	"ramadanprep/service"
	"ramadanprep/state"
	"ramadanprep/version"
	"runtime"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

//go:embed static/*
var staticFiles embed.FS

func main() {
	// Load environment variables and parse CLI flags
	config.ParseFlags()

	if config.Settings.CLIMode {
		logger.InitStderr("WARN")
		mainCLI()
		return
	}

	logFile, err := setupLogging(config.Settings.LogLevel, config.Settings.LogFilePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to set up logging: %v\n", err)
		os.Exit(1)
	}
	defer logFile.Close()

	logger.Info("System starting up", "version", version.GetVersion())

	if err := database.InitDB(); err != nil {
		logger.Fatal("Failed to initialize database", "error", err)
	}

	ai, err := gemini.NewClient(context.Background(), gemini.Options{
		APIKey:          config.Settings.GeminiAPIKey,
		TranscribeModel: config.Settings.TranscribeModel,
		AnalysisModel:   config.Settings.AnalysisModel,
		PrepModel:       config.Settings.PrepModel,
		LiveModel:       config.Settings.LiveModel,
		Voice:           config.Settings.CoachVoice,
	})
	if err != nil {
		logger.Fatal("Failed to create model client", "error", err)
	}
	if !ai.Configured() {
		logger.Warn("GEMINI_API_KEY is not set; AI features will return fallbacks")
	}

	if err := service.InitServices(database.NewKV(database.DB), state.Global, ai, service.GeminiDialer(ai), config.Settings); err != nil {
		logger.Fatal("Failed to initialize services", "error", err)
	}
	service.GlobalServices.Start()

	go monitorGoroutines()

	if config.Settings.LogLevel != "DEBUG" {
		gin.SetMode(gin.ReleaseMode)
	}
	gin.DisableConsoleColor()

	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowAllOrigins:  true,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"*"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}))

	staticFS, err := fs.Sub(staticFiles, "static")
	if err != nil {
		logger.Fatal("Failed to create static file system", "error", err)
	}
	r.StaticFS("/web", http.FS(staticFS))

	r.GET("/", func(c *gin.Context) {
		c.Redirect(http.StatusMovedPermanently, "/web/index.html")
	})

	handlers.RegisterRoutes(r)

	port := findAvailablePort(config.Settings.Port)
	if port != config.Settings.Port {
		logger.Warn("Default port is busy", "port", config.Settings.Port, "using", port)
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf("0.0.0.0:%d", port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Server starting", "url", fmt.Sprintf("http://127.0.0.1:%d/", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", "error", err)
		}
	}()
	fmt.Printf("RamadanPrep %s listening on http://127.0.0.1:%d/\n", version.GetVersion(), port)

	if config.Settings.OpenBrowser {
		go func() {
			time.Sleep(1500 * time.Millisecond)
			openBrowser(fmt.Sprintf("http://127.0.0.1:%d/", port))
		}()
	}

	shutdownChan := make(chan bool, 1)
	handlers.SetShutdownChannel(shutdownChan)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		logger.Info("Received interrupt signal")
	case <-shutdownChan:
		logger.Info("Shutdown triggered via API")
	}

	logger.Info("System shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Voice sessions and the insight worker stop before the database closes.
	service.GlobalServices.Stop(ctx)

	if err := srv.Shutdown(ctx); err != nil {
		logger.Warn("Server forced to shutdown", "error", err)
	}

	if err := database.CloseDB(); err != nil {
		logger.Error("Error closing database", "error", err)
	}

	logger.Info("Server exited")
}

// findAvailablePort searches for an available port
func findAvailablePort(startPort int) int {
	for port := startPort; port < startPort+100; port++ {
		listener, err := net.Listen("tcp", fmt.Sprintf("0.0.0.0:%d", port))
		if err == nil {
			listener.Close()
			return port
		}
	}
	logger.Fatal("No available ports found", "from", startPort)
	return startPort
}

// openBrowser opens the default browser
func openBrowser(url string) {
	var err error
	switch {
	case fileExists("/usr/bin/xdg-open"):
		err = runCommand("xdg-open", url)
	case fileExists("/usr/bin/open"):
		err = runCommand("open", url)
	default:
		err = runCommand("cmd", "/c", "start", url)
	}
	if err != nil {
		logger.Warn("Failed to open browser; open it manually", "url", url, "error", err)
	}
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func runCommand(name string, args ...string) error {
	cmd := exec.Command(name, args...)
	if err := cmd.Start(); err != nil {
		return err
	}

	// Reap asynchronously
	go func() {
		if err := cmd.Wait(); err != nil {
			logger.Debug("Browser process exited with error", "error", err)
		}
	}()

	return nil
}

// monitorGoroutines tracks goroutine count to catch leaked voice sessions
func monitorGoroutines() {
	ticker := time.NewTicker(time.Duration(config.Settings.GoroutineMonitorIntervalSeconds) * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		count := runtime.NumGoroutine()
		if count > config.Settings.GoroutineWarnThreshold {
			logger.Warn("High goroutine count detected", "count", count, "coach_sessions", state.Global.Count())
		} else {
			logger.Debug("Goroutine count", "count", count)
		}
	}
}

// mainCLI entrypoint for CLI (HTTP client mode)
func mainCLI() {
	serverURL := cli.ResolveServerURL(config.Settings.CLIServer)
	fmt.Printf("RamadanPrep CLI - Connecting to %s\n", serverURL)

	cliInstance, err := cli.NewCLIHttp(serverURL)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		fmt.Println("\nTips:")
		fmt.Println("  1. Make sure the RamadanPrep server is running:")
		fmt.Println("     ./ramadanprep")
		fmt.Println("  2. Or specify a different server:")
		fmt.Printf("     ./ramadanprep --cli --server http://your-server:%d\n", config.Settings.Port)
		os.Exit(1)
	}

	cliInstance.Start()
}
