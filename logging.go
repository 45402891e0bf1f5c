package main

import (
	"fmt"
	"io"
	"log"
	"ramadanprep/logger"

	"github.com/gin-gonic/gin"
)

// setupLogging configures the structured logger on a rotating file and points
// the standard library logger and gin at the same destination.
// It returns the file writer so callers can close it on shutdown.
func setupLogging(level, path string) (io.Closer, error) {
	if path == "" {
		return nil, fmt.Errorf("log file path is empty")
	}

	closer, err := logger.Init(logger.Config{Level: level, FilePath: path})
	if err != nil {
		return nil, fmt.Errorf("failed to open log file %s: %w", path, err)
	}

	w := logger.Writer()
	log.SetOutput(w)
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	gin.DefaultWriter = w
	gin.DefaultErrorWriter = w
	return closer, nil
}
