package core

import (
	"context"
	"errors"
	"ramadanprep/gemini"
	"time"
)

// ErrSessionClosed is returned when writing to a stopped coach session.
var ErrSessionClosed = errors.New("coach session closed")

// Session is a long-lived per-connection worker tracked in the app state
type Session interface {
	ID() string
	Stop()
	GetStats() SessionStats
}

// Coach session statuses, in lifecycle order
const (
	StatusIdle       = "idle"
	StatusConnecting = "connecting"
	StatusConnected  = "connected"
)

// SessionStats holds session metrics
type SessionStats struct {
	ID               string    `json:"id"`
	Status           string    `json:"status"`
	StartedAt        time.Time `json:"started_at"`
	BytesUp          int64     `json:"bytes_up"`
	BytesDown        int64     `json:"bytes_down"`
	ChunksOut        int64     `json:"chunks_out"`
	Turns            int64     `json:"turns"`
	Interruptions    int64     `json:"interruptions"`
	TranscriptLines  int       `json:"transcript_lines"`
	PlaybackInFlight int       `json:"playback_in_flight"`
}

// LiveSession is the remote half of a coach conversation.
type LiveSession interface {
	SendAudio(pcm []byte) error
	Receive() (*gemini.LiveEvent, error)
	Close() error
}

// LiveDialer opens a remote live session.
type LiveDialer func(ctx context.Context) (LiveSession, error)
