package handlers

import (
	"errors"
	"net/http"
	"ramadanprep/config"
	"ramadanprep/logger"
	"ramadanprep/service"
	"ramadanprep/state"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  16 << 10,
	WriteBufferSize: 64 << 10,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// CoachWebSocket upgrades to a websocket and runs a voice coach session on it
func CoachWebSocket(c *gin.Context) {
	if limit := config.Settings.MaxCoachSessions; limit > 0 && state.Global.Count() >= limit {
		c.JSON(http.StatusTooManyRequests, gin.H{"detail": state.ErrTooManySessions.Error()})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Warn("Coach websocket upgrade failed", "error", err)
		return
	}

	if err := service.GlobalServices.Coach.Serve(c.Request.Context(), conn); err != nil &&
		!errors.Is(err, state.ErrTooManySessions) {
		logger.Debug("Coach session ended with error", "error", err)
	}
}

// ListCoachSessions lists active coach sessions
func ListCoachSessions(c *gin.Context) {
	c.JSON(http.StatusOK, service.GlobalServices.Coach.List())
}

// StopCoachSession ends a coach session
func StopCoachSession(c *gin.Context) {
	id := c.Param("id")
	if err := service.GlobalServices.Coach.Stop(id); err != nil {
		if errors.Is(err, service.ErrCoachSessionNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"detail": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"detail": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
