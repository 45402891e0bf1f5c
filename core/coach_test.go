package core

import (
	"context"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"ramadanprep/audio"
	"ramadanprep/gemini"

	"github.com/gorilla/websocket"
)

type fakeLive struct {
	events    chan *gemini.LiveEvent
	sent      chan []byte
	closed    chan struct{}
	closeOnce sync.Once
}

func newFakeLive() *fakeLive {
	return &fakeLive{
		events: make(chan *gemini.LiveEvent, 8),
		sent:   make(chan []byte, 8),
		closed: make(chan struct{}),
	}
}

func (f *fakeLive) SendAudio(pcm []byte) error {
	select {
	case <-f.closed:
		return ErrSessionClosed
	case f.sent <- append([]byte(nil), pcm...):
		return nil
	}
}

func (f *fakeLive) Receive() (*gemini.LiveEvent, error) {
	select {
	case ev, ok := <-f.events:
		if !ok {
			return nil, io.EOF
		}
		return ev, nil
	case <-f.closed:
		return nil, ErrSessionClosed
	}
}

func (f *fakeLive) Close() error {
	f.closeOnce.Do(func() { close(f.closed) })
	return nil
}

func startCoachServer(t *testing.T, dial LiveDialer, stopped chan<- string) string {
	t.Helper()

	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		s := NewCoachSession(conn, dial, CoachOptions{
			WriteTimeout: 2 * time.Second,
			OnStop: func(id string) {
				if stopped != nil {
					stopped <- id
				}
			},
		})
		_ = s.Run(context.Background())
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func readCoachMessage(t *testing.T, c *websocket.Conn) CoachMessage {
	t.Helper()
	_ = c.SetReadDeadline(time.Now().Add(3 * time.Second))
	_, data, err := c.ReadMessage()
	if err != nil {
		t.Fatalf("read coach message: %v", err)
	}
	var msg CoachMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("decode coach message %q: %v", data, err)
	}
	return msg
}

func expectStatus(t *testing.T, c *websocket.Conn, want string) {
	t.Helper()
	msg := readCoachMessage(t, c)
	if msg.Type != MsgStatus || msg.Status != want {
		t.Fatalf("expected status %q, got %+v", want, msg)
	}
}

func TestCoachSession_RelaysAudioBothWays(t *testing.T) {
	live := newFakeLive()
	stopped := make(chan string, 1)
	wsURL := startCoachServer(t, func(ctx context.Context) (LiveSession, error) {
		return live, nil
	}, stopped)

	c, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial coach: %v", err)
	}
	defer c.Close()

	expectStatus(t, c, StatusConnecting)
	expectStatus(t, c, StatusConnected)

	// Binary frames are forwarded untouched.
	if err := c.WriteMessage(websocket.BinaryMessage, []byte{1, 2, 3, 4}); err != nil {
		t.Fatalf("write binary: %v", err)
	}
	select {
	case got := <-live.sent:
		if string(got) != string([]byte{1, 2, 3, 4}) {
			t.Fatalf("unexpected forwarded pcm: %v", got)
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("binary frame was not forwarded")
	}

	// Float frames are converted to PCM16.
	raw := make([]byte, 8)
	binary.LittleEndian.PutUint32(raw[0:], math.Float32bits(1))
	binary.LittleEndian.PutUint32(raw[4:], math.Float32bits(-1))
	f32, _ := json.Marshal(ClientMessage{Type: ClientAudioF32, Data: base64.StdEncoding.EncodeToString(raw)})
	if err := c.WriteMessage(websocket.TextMessage, f32); err != nil {
		t.Fatalf("write f32: %v", err)
	}
	select {
	case got := <-live.sent:
		want := audio.FloatTo16BitPCM([]float32{1, -1})
		if string(got) != string(want) {
			t.Fatalf("expected %v, got %v", want, got)
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("f32 frame was not forwarded")
	}

	// One second of 24kHz mono PCM16 per chunk.
	chunk := make([]byte, 48000)
	live.events <- &gemini.LiveEvent{OutputTranscript: "Welcome back", Audio: chunk, AudioMIMEType: "audio/pcm;rate=24000"}
	live.events <- &gemini.LiveEvent{Audio: chunk, AudioMIMEType: "audio/pcm;rate=24000"}

	tr := readCoachMessage(t, c)
	if tr.Type != MsgTranscript || tr.Role != RoleAI || tr.Text != "Welcome back" {
		t.Fatalf("unexpected transcript: %+v", tr)
	}
	first := readCoachMessage(t, c)
	second := readCoachMessage(t, c)
	if first.Type != MsgAudio || second.Type != MsgAudio {
		t.Fatalf("expected two audio messages, got %q and %q", first.Type, second.Type)
	}
	if first.Duration != 1 || second.Duration != 1 {
		t.Fatalf("expected 1s chunks, got %v and %v", first.Duration, second.Duration)
	}
	if math.Abs(second.StartAt-(first.StartAt+first.Duration)) > 1e-6 {
		t.Fatalf("second chunk should start when the first ends: %v vs %v", second.StartAt, first.StartAt+first.Duration)
	}
	if first.MIMEType != "audio/pcm;rate=24000" {
		t.Fatalf("unexpected mime type %q", first.MIMEType)
	}

	live.events <- &gemini.LiveEvent{Interrupted: true, InputTranscript: "wait"}
	you := readCoachMessage(t, c)
	if you.Role != RoleUser || you.Text != "wait" {
		t.Fatalf("unexpected user transcript: %+v", you)
	}
	intr := readCoachMessage(t, c)
	if intr.Type != MsgInterrupted || len(intr.Stop) != 2 {
		t.Fatalf("expected both chunks stopped, got %+v", intr)
	}

	// Remote end closing stops the session.
	close(live.events)
	select {
	case <-stopped:
	case <-time.After(3 * time.Second):
		t.Fatalf("session did not stop after the live session ended")
	}
}

func TestCoachSession_DialFailureReportsError(t *testing.T) {
	wsURL := startCoachServer(t, func(ctx context.Context) (LiveSession, error) {
		return nil, errors.New("quota exceeded")
	}, nil)

	c, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial coach: %v", err)
	}
	defer c.Close()

	expectStatus(t, c, StatusConnecting)
	msg := readCoachMessage(t, c)
	if msg.Type != MsgError || msg.Message == "" {
		t.Fatalf("expected error message, got %+v", msg)
	}
	expectStatus(t, c, StatusIdle)
}

func TestCoachSession_StopMessageEndsSession(t *testing.T) {
	live := newFakeLive()
	stopped := make(chan string, 1)
	wsURL := startCoachServer(t, func(ctx context.Context) (LiveSession, error) {
		return live, nil
	}, stopped)

	c, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial coach: %v", err)
	}
	defer c.Close()

	expectStatus(t, c, StatusConnecting)
	expectStatus(t, c, StatusConnected)

	stop, _ := json.Marshal(ClientMessage{Type: ClientStop})
	if err := c.WriteMessage(websocket.TextMessage, stop); err != nil {
		t.Fatalf("write stop: %v", err)
	}

	select {
	case id := <-stopped:
		if id == "" {
			t.Fatalf("expected session id on stop")
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("session did not stop")
	}
	select {
	case <-live.closed:
	default:
		t.Fatalf("expected live session to be closed")
	}
}

func TestCoachSession_BarePCMDefaultsToOutputRate(t *testing.T) {
	live := newFakeLive()
	wsURL := startCoachServer(t, func(ctx context.Context) (LiveSession, error) {
		return live, nil
	}, nil)

	c, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial coach: %v", err)
	}
	defer c.Close()

	expectStatus(t, c, StatusConnecting)
	expectStatus(t, c, StatusConnected)

	// 48000 bytes is one second at 24kHz and 1.5s at 16kHz.
	live.events <- &gemini.LiveEvent{Audio: make([]byte, 48000), AudioMIMEType: "audio/pcm"}

	_ = c.SetReadDeadline(time.Now().Add(3 * time.Second))
	_, data, err := c.ReadMessage()
	if err != nil {
		t.Fatalf("read audio message: %v", err)
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("decode %q: %v", data, err)
	}
	for _, key := range []string{"startAt", "duration"} {
		if _, ok := raw[key]; !ok {
			t.Fatalf("audio message %s is missing %q", data, key)
		}
	}

	var msg CoachMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("decode coach message: %v", err)
	}
	if msg.MIMEType != audio.PCMMIMEType(audio.OutputSampleRate) {
		t.Fatalf("expected output rate mime type, got %q", msg.MIMEType)
	}
	if msg.Duration != 1 {
		t.Fatalf("expected a 1s chunk, got %v", msg.Duration)
	}
}
