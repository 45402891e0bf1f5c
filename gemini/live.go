package gemini

import (
	"context"
	"fmt"
	"ramadanprep/audio"
	"strings"

	"google.golang.org/genai"
)

// LiveEvent is one server message of a live session, flattened to what the coach relays.
type LiveEvent struct {
	Audio            []byte
	AudioMIMEType    string
	InputTranscript  string
	OutputTranscript string
	Interrupted      bool
	TurnComplete     bool
}

// Empty reports whether the event carries nothing worth relaying.
func (e *LiveEvent) Empty() bool {
	return e == nil || (len(e.Audio) == 0 && e.InputTranscript == "" && e.OutputTranscript == "" && !e.Interrupted && !e.TurnComplete)
}

// LiveSession is an open bidirectional audio session with the native-audio model.
type LiveSession struct {
	session *genai.Session
}

// Dial opens a coach session: audio out, the configured prebuilt voice,
// and transcription of both sides.
func (c *Client) Dial(ctx context.Context) (*LiveSession, error) {
	if !c.Configured() {
		return nil, ErrNoAPIKey
	}

	cfg := &genai.LiveConnectConfig{
		ResponseModalities: []genai.Modality{genai.ModalityAudio},
		SpeechConfig: &genai.SpeechConfig{
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: c.opts.Voice},
			},
		},
		SystemInstruction:        genai.NewContentFromText(coachInstruction, genai.RoleUser),
		InputAudioTranscription:  &genai.AudioTranscriptionConfig{},
		OutputAudioTranscription: &genai.AudioTranscriptionConfig{},
	}

	session, err := c.genai.Live.Connect(ctx, c.opts.LiveModel, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect live session: %w", err)
	}
	return &LiveSession{session: session}, nil
}

// SendAudio streams one PCM16 16kHz microphone frame.
func (s *LiveSession) SendAudio(pcm []byte) error {
	return s.session.SendRealtimeInput(genai.LiveRealtimeInput{
		Audio: &genai.Blob{Data: pcm, MIMEType: audio.InputMIMEType},
	})
}

// Receive blocks for the next server message.
func (s *LiveSession) Receive() (*LiveEvent, error) {
	msg, err := s.session.Receive()
	if err != nil {
		return nil, err
	}
	return toLiveEvent(msg), nil
}

// Close ends the remote session.
func (s *LiveSession) Close() error {
	return s.session.Close()
}

func toLiveEvent(msg *genai.LiveServerMessage) *LiveEvent {
	ev := &LiveEvent{}
	if msg == nil || msg.ServerContent == nil {
		return ev
	}
	sc := msg.ServerContent

	if sc.OutputTranscription != nil {
		ev.OutputTranscript = strings.TrimSpace(sc.OutputTranscription.Text)
	}
	if sc.InputTranscription != nil {
		ev.InputTranscript = strings.TrimSpace(sc.InputTranscription.Text)
	}
	if sc.ModelTurn != nil {
		for _, part := range sc.ModelTurn.Parts {
			if part != nil && part.InlineData != nil && len(part.InlineData.Data) > 0 {
				ev.Audio = append(ev.Audio, part.InlineData.Data...)
				if ev.AudioMIMEType == "" {
					ev.AudioMIMEType = part.InlineData.MIMEType
				}
			}
		}
	}
	if len(ev.Audio) > 0 && ev.AudioMIMEType == "" {
		ev.AudioMIMEType = audio.PCMMIMEType(audio.OutputSampleRate)
	}
	ev.Interrupted = sc.Interrupted
	ev.TurnComplete = sc.TurnComplete
	return ev
}
