package core

import (
	"context"
	"encoding/json"
	"errors"
	"ramadanprep/audio"
	"ramadanprep/gemini"
	"ramadanprep/logger"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Messages sent to the browser
const (
	MsgStatus       = "status"
	MsgTranscript   = "transcript"
	MsgAudio        = "audio"
	MsgInterrupted  = "interrupted"
	MsgTurnComplete = "turn_complete"
	MsgError        = "error"
)

// Messages accepted from the browser. Binary frames are raw PCM16 16kHz.
const (
	ClientAudio    = "audio"
	ClientAudioF32 = "audio_f32"
	ClientStop     = "stop"
)

// Transcript roles
const (
	RoleAI   = "AI"
	RoleUser = "You"
)

// CoachMessage is one server-to-browser frame.
type CoachMessage struct {
	Type      string   `json:"type"`
	SessionID string   `json:"sessionId,omitempty"`
	Status    string   `json:"status,omitempty"`
	Role      string   `json:"role,omitempty"`
	Text      string   `json:"text,omitempty"`
	Data      string   `json:"data,omitempty"`
	MIMEType  string   `json:"mimeType,omitempty"`
	Seq       uint64   `json:"seq,omitempty"`
	StartAt   float64  `json:"startAt"`
	Duration  float64  `json:"duration"`
	Stop      []uint64 `json:"stop,omitempty"`
	Message   string   `json:"message,omitempty"`
}

// ClientMessage is one browser-to-server JSON frame.
type ClientMessage struct {
	Type string `json:"type"`
	Data string `json:"data"`
}

// CoachOptions tunes a coach session.
type CoachOptions struct {
	WriteTimeout time.Duration
	OnStop       func(id string)
}

// CoachSession relays one browser websocket to one live model session.
// Model audio is placed on a playback timeline so the browser can queue chunks gap-free.
type CoachSession struct {
	id      string
	ws      *websocket.Conn
	dial    LiveDialer
	opts    CoachOptions
	started time.Time
	sched   *audio.PlaybackScheduler

	writeMu sync.Mutex

	mu         sync.RWMutex
	status     string
	live       LiveSession
	transcript []string

	bytesUp       int64
	bytesDown     int64
	chunksOut     int64
	turns         int64
	interruptions int64

	stopOnce sync.Once
	stopChan chan struct{}
}

// NewCoachSession wraps an upgraded websocket. Call Run to connect and relay.
func NewCoachSession(ws *websocket.Conn, dial LiveDialer, opts CoachOptions) *CoachSession {
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 10 * time.Second
	}
	return &CoachSession{
		id:       uuid.NewString(),
		ws:       ws,
		dial:     dial,
		opts:     opts,
		started:  time.Now(),
		sched:    audio.NewPlaybackScheduler(),
		status:   StatusIdle,
		stopChan: make(chan struct{}),
	}
}

func (s *CoachSession) ID() string {
	return s.id
}

// Status returns idle, connecting or connected.
func (s *CoachSession) Status() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// Transcript returns the lines so far, each prefixed with its speaker.
func (s *CoachSession) Transcript() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.transcript))
	copy(out, s.transcript)
	return out
}

// Run dials the model and relays until either side closes. It always stops the session.
func (s *CoachSession) Run(ctx context.Context) error {
	defer s.Stop()

	s.setStatus(StatusConnecting)
	live, err := s.dial(ctx)
	if err != nil {
		LogErrorWithContext(SourceCoach, "Live session connect failed", err, map[string]interface{}{"session_id": s.id})
		_ = s.send(CoachMessage{Type: MsgError, Message: "Could not connect to the coach. Please try again."})
		s.setStatus(StatusIdle)
		return err
	}

	s.mu.Lock()
	select {
	case <-s.stopChan:
		s.mu.Unlock()
		_ = live.Close()
		return ErrSessionClosed
	default:
	}
	s.live = live
	s.mu.Unlock()

	s.setStatus(StatusConnected)
	logger.Info("Coach session connected", "session_id", s.id)

	go s.relayModel(live)
	return s.relayClient(live)
}

// Stop closes both sides once.
func (s *CoachSession) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopChan)

		s.mu.Lock()
		live := s.live
		s.live = nil
		s.mu.Unlock()

		if live != nil {
			_ = live.Close()
		}
		s.sched.Interrupt()
		s.setStatus(StatusIdle)
		_ = s.ws.Close()

		logger.Info("Coach session stopped", "session_id", s.id,
			"bytes_up", atomic.LoadInt64(&s.bytesUp), "bytes_down", atomic.LoadInt64(&s.bytesDown))
		if s.opts.OnStop != nil {
			s.opts.OnStop(s.id)
		}
	})
}

func (s *CoachSession) GetStats() SessionStats {
	s.mu.RLock()
	status := s.status
	lines := len(s.transcript)
	s.mu.RUnlock()

	return SessionStats{
		ID:               s.id,
		Status:           status,
		StartedAt:        s.started,
		BytesUp:          atomic.LoadInt64(&s.bytesUp),
		BytesDown:        atomic.LoadInt64(&s.bytesDown),
		ChunksOut:        atomic.LoadInt64(&s.chunksOut),
		Turns:            atomic.LoadInt64(&s.turns),
		Interruptions:    atomic.LoadInt64(&s.interruptions),
		TranscriptLines:  lines,
		PlaybackInFlight: s.sched.InFlight(),
	}
}

func (s *CoachSession) stopped() bool {
	select {
	case <-s.stopChan:
		return true
	default:
		return false
	}
}

func (s *CoachSession) setStatus(status string) {
	s.mu.Lock()
	changed := s.status != status
	s.status = status
	s.mu.Unlock()

	if changed {
		_ = s.send(CoachMessage{Type: MsgStatus, SessionID: s.id, Status: status})
	}
}

func (s *CoachSession) appendTranscript(role, text string) {
	s.mu.Lock()
	s.transcript = append(s.transcript, role+": "+text)
	s.mu.Unlock()
}

// send serializes websocket writes; gorilla allows one concurrent writer.
func (s *CoachSession) send(msg CoachMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if s.stopped() && msg.Type != MsgStatus {
		return ErrSessionClosed
	}
	_ = s.ws.SetWriteDeadline(time.Now().Add(s.opts.WriteTimeout))
	return s.ws.WriteMessage(websocket.TextMessage, data)
}

// relayClient forwards microphone frames until the browser stops or disconnects.
func (s *CoachSession) relayClient(live LiveSession) error {
	for {
		mt, data, err := s.ws.ReadMessage()
		if err != nil {
			if s.stopped() || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return err
		}

		var pcm []byte
		switch mt {
		case websocket.BinaryMessage:
			pcm = data
		case websocket.TextMessage:
			var msg ClientMessage
			if err := json.Unmarshal(data, &msg); err != nil {
				_ = s.send(CoachMessage{Type: MsgError, Message: "invalid message"})
				continue
			}
			switch msg.Type {
			case ClientStop:
				return nil
			case ClientAudio:
				pcm, err = audio.DecodeBase64(msg.Data)
			case ClientAudioF32:
				var raw []byte
				raw, err = audio.DecodeBase64(msg.Data)
				if err == nil {
					var samples []float32
					samples, err = audio.BytesToFloat32(raw)
					pcm = audio.FloatTo16BitPCM(samples)
				}
			default:
				_ = s.send(CoachMessage{Type: MsgError, Message: "unknown message type: " + msg.Type})
				continue
			}
			if err != nil {
				_ = s.send(CoachMessage{Type: MsgError, Message: "invalid audio payload"})
				continue
			}
		default:
			continue
		}

		if len(pcm) == 0 {
			continue
		}
		if err := live.SendAudio(pcm); err != nil {
			if s.stopped() {
				return nil
			}
			LogErrorWithContext(SourceCoach, "Forward audio failed", err, map[string]interface{}{"session_id": s.id})
			return err
		}
		atomic.AddInt64(&s.bytesUp, int64(len(pcm)))
	}
}

// relayModel forwards model events until the remote session ends, then stops the session.
func (s *CoachSession) relayModel(live LiveSession) {
	defer s.Stop()

	for {
		ev, err := live.Receive()
		if err != nil {
			if !s.stopped() && !errors.Is(err, ErrSessionClosed) {
				LogErrorWithContext(SourceCoach, "Live session receive failed", err, map[string]interface{}{"session_id": s.id})
				_ = s.send(CoachMessage{Type: MsgError, Message: "The coach connection was lost."})
			}
			return
		}
		if ev.Empty() {
			continue
		}
		if err := s.handleEvent(ev); err != nil {
			return
		}
	}
}

func (s *CoachSession) handleEvent(ev *gemini.LiveEvent) error {
	now := time.Since(s.started)

	if text := strings.TrimSpace(ev.OutputTranscript); text != "" {
		s.appendTranscript(RoleAI, text)
		if err := s.send(CoachMessage{Type: MsgTranscript, Role: RoleAI, Text: text}); err != nil {
			return err
		}
	}
	if text := strings.TrimSpace(ev.InputTranscript); text != "" {
		s.appendTranscript(RoleUser, text)
		if err := s.send(CoachMessage{Type: MsgTranscript, Role: RoleUser, Text: text}); err != nil {
			return err
		}
	}

	if len(ev.Audio) > 0 {
		rate, _ := audio.ParsePCMRate(ev.AudioMIMEType)
		if rate == 0 {
			rate = audio.OutputSampleRate
		}
		s.sched.Reap(now)
		chunk := s.sched.Schedule(now, audio.PCMDuration(len(ev.Audio), rate, 1))
		atomic.AddInt64(&s.bytesDown, int64(len(ev.Audio)))
		atomic.AddInt64(&s.chunksOut, 1)

		if err := s.send(CoachMessage{
			Type:     MsgAudio,
			Data:     audio.EncodeBase64(ev.Audio),
			MIMEType: audio.PCMMIMEType(rate),
			Seq:      chunk.Seq,
			StartAt:  chunk.StartAt.Seconds(),
			Duration: chunk.Duration.Seconds(),
		}); err != nil {
			return err
		}
	}

	if ev.Interrupted {
		atomic.AddInt64(&s.interruptions, 1)
		if err := s.send(CoachMessage{Type: MsgInterrupted, Stop: s.sched.Interrupt()}); err != nil {
			return err
		}
	}

	if ev.TurnComplete {
		atomic.AddInt64(&s.turns, 1)
		if err := s.send(CoachMessage{Type: MsgTurnComplete}); err != nil {
			return err
		}
	}
	return nil
}
