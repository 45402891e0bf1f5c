package service

import (
	"context"
	"errors"
	"ramadanprep/core"
	"ramadanprep/gemini"
	"ramadanprep/state"
	"time"

	"github.com/gorilla/websocket"
)

var ErrCoachSessionNotFound = errors.New("coach session not found")

// CoachService runs voice coach sessions and tracks them in the app state.
type CoachService struct {
	state        *state.AppState
	dial         core.LiveDialer
	maxSessions  int
	writeTimeout time.Duration
}

// NewCoachService constructs a coach service
func NewCoachService(appState *state.AppState, dial core.LiveDialer, maxSessions int, writeTimeout time.Duration) *CoachService {
	return &CoachService{
		state:        appState,
		dial:         dial,
		maxSessions:  maxSessions,
		writeTimeout: writeTimeout,
	}
}

// GeminiDialer adapts the model client to core.LiveDialer.
func GeminiDialer(client *gemini.Client) core.LiveDialer {
	return func(ctx context.Context) (core.LiveSession, error) {
		live, err := client.Dial(ctx)
		if err != nil {
			return nil, err
		}
		return live, nil
	}
}

// Serve registers a session for ws and relays until it ends.
// The socket is closed when the session limit is reached.
func (s *CoachService) Serve(ctx context.Context, ws *websocket.Conn) error {
	session := core.NewCoachSession(ws, s.dial, core.CoachOptions{
		WriteTimeout: s.writeTimeout,
		OnStop:       s.state.RemoveSession,
	})
	if err := s.state.AddSession(session, s.maxSessions); err != nil {
		msg := websocket.FormatCloseMessage(websocket.CloseTryAgainLater, err.Error())
		_ = ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		_ = ws.Close()
		return err
	}
	return session.Run(ctx)
}

// List returns stats of active sessions
func (s *CoachService) List() []core.SessionStats {
	return s.state.Stats()
}

// Stop ends one session
func (s *CoachService) Stop(id string) error {
	if !s.state.RemoveAndStopSession(id) {
		return ErrCoachSessionNotFound
	}
	return nil
}

// StopAll ends every session
func (s *CoachService) StopAll() int {
	return s.state.StopAll()
}
