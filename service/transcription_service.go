package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"ramadanprep/audio"
	"ramadanprep/core"
	"ramadanprep/logger"
	"strings"
	"time"
)

// ErrInvalidAudio is returned for empty or undecodable uploads.
var ErrInvalidAudio = errors.New("invalid audio")

// DefaultRecordingMIMEType is assumed when the browser recorder sends no type.
const DefaultRecordingMIMEType = "audio/webm"

// Transcriber turns recorded audio into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audioData []byte, mimeType string) (string, error)
}

// TranscriptionService transcribes spoken reflections.
type TranscriptionService struct {
	transcriber Transcriber
	timeout     time.Duration
}

// NewTranscriptionService constructs a transcription service
func NewTranscriptionService(t Transcriber, timeout time.Duration) *TranscriptionService {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &TranscriptionService{transcriber: t, timeout: timeout}
}

// Transcribe returns the text of the recording. Raw PCM is wrapped in WAV first.
func (s *TranscriptionService) Transcribe(ctx context.Context, data []byte, mimeType string) (string, error) {
	if len(data) == 0 {
		return "", wrapSentinel("audio is empty", ErrInvalidAudio)
	}
	mimeType = strings.TrimSpace(mimeType)
	if mimeType == "" {
		mimeType = DefaultRecordingMIMEType
	}

	if rate, ok := audio.ParsePCMRate(mimeType); ok {
		if rate == 0 {
			rate = audio.InputSampleRate
		}
		var buf bytes.Buffer
		if err := audio.EncodeWAV(&buf, data, rate, 1); err != nil {
			return "", wrapSentinel(err.Error(), ErrInvalidAudio)
		}
		data, mimeType = buf.Bytes(), "audio/wav"
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	text, err := s.transcriber.Transcribe(ctx, data, mimeType)
	if err != nil {
		core.LogErrorWithContext(core.SourceTranscribe, "Transcription failed", err, map[string]interface{}{
			"mime_type": mimeType,
			"bytes":     len(data),
		})
		return "", fmt.Errorf("transcription failed: %w", err)
	}
	logger.Debug("Reflection transcribed", "mime_type", mimeType, "chars", len(text))
	return strings.TrimSpace(text), nil
}

// AppendReflection appends text to an existing reflection, separated by a space.
func AppendReflection(prev, text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return prev
	}
	if prev == "" {
		return text
	}
	return prev + " " + text
}
