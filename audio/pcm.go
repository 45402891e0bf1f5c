// Package audio holds the PCM plumbing around the hosted speech models:
// float/int16 conversion, base64 framing, WAV wrapping and playback scheduling.
package audio

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const (
	// InputSampleRate is the microphone rate the live model expects.
	InputSampleRate = 16000
	// OutputSampleRate is the rate of audio returned by the live model.
	OutputSampleRate = 24000

	bitDepth = 16
)

// InputMIMEType is the MIME type for microphone frames sent to the live model.
var InputMIMEType = PCMMIMEType(InputSampleRate)

// PCMMIMEType formats a raw PCM16 MIME type for rate.
func PCMMIMEType(rate int) string {
	return "audio/pcm;rate=" + strconv.Itoa(rate)
}

// FloatTo16BitPCM converts float samples in [-1, 1] to little-endian PCM16.
// Out-of-range samples are clamped and NaN becomes silence.
func FloatTo16BitPCM(samples []float32) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		if math.IsNaN(float64(s)) {
			continue
		}
		s = float32(math.Max(-1, math.Min(1, float64(s))))
		var v int16
		if s < 0 {
			v = int16(s * 0x8000)
		} else {
			v = int16(s * 0x7FFF)
		}
		binary.LittleEndian.PutUint16(out[i*2:], uint16(v))
	}
	return out
}

// BytesToFloat32 decodes little-endian float32 samples.
func BytesToFloat32(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("float32 frame length %d is not a multiple of 4", len(b))
	}
	out := make([]float32, len(b)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return out, nil
}

// PCM16ToInts widens PCM16 little-endian bytes to ints for go-audio buffers.
func PCM16ToInts(pcm []byte) []int {
	out := make([]int, len(pcm)/2)
	for i := range out {
		out[i] = int(int16(binary.LittleEndian.Uint16(pcm[i*2:])))
	}
	return out
}

// EncodeBase64 frames raw bytes for JSON transport.
func EncodeBase64(b []byte) string {
	return base64.StdEncoding.EncodeToString(b)
}

// DecodeBase64 accepts standard base64, with or without a data: URL prefix.
func DecodeBase64(s string) ([]byte, error) {
	if strings.HasPrefix(s, "data:") {
		if _, payload, ok := strings.Cut(s, ","); ok {
			s = payload
		}
	}
	b, err := base64.StdEncoding.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("decode base64 audio: %w", err)
	}
	return b, nil
}

// PCMDuration returns the play time of a PCM16 buffer.
func PCMDuration(numBytes, sampleRate, channels int) time.Duration {
	if sampleRate <= 0 || channels <= 0 {
		return 0
	}
	frames := numBytes / (2 * channels)
	return time.Duration(frames) * time.Second / time.Duration(sampleRate)
}

// ParsePCMRate reads the rate parameter of an "audio/pcm;rate=N" MIME type.
// ok is false when mime is not raw PCM. rate is 0 when no rate is given;
// callers pick the default for their direction.
func ParsePCMRate(mime string) (rate int, ok bool) {
	base, params, _ := strings.Cut(strings.ToLower(mime), ";")
	if strings.TrimSpace(base) != "audio/pcm" && strings.TrimSpace(base) != "audio/l16" {
		return 0, false
	}
	for _, p := range strings.Split(params, ";") {
		k, v, _ := strings.Cut(strings.TrimSpace(p), "=")
		if k == "rate" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				return n, true
			}
		}
	}
	return 0, true
}

// EncodeWAV wraps mono or multi-channel PCM16 into a WAV container.
// The encoder needs a seekable writer, so it goes through a temp file.
func EncodeWAV(w io.Writer, pcm []byte, sampleRate, channels int) error {
	buf := &goaudio.IntBuffer{
		Data:           PCM16ToInts(pcm),
		Format:         &goaudio.Format{SampleRate: sampleRate, NumChannels: channels},
		SourceBitDepth: bitDepth,
	}

	tmp, err := os.CreateTemp("", "reflection-*.wav")
	if err != nil {
		return fmt.Errorf("create temp wav: %w", err)
	}
	defer os.Remove(tmp.Name())
	defer tmp.Close()

	enc := wav.NewEncoder(tmp, sampleRate, bitDepth, channels, 1)
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("encode wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("finalize wav: %w", err)
	}

	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		return err
	}
	_, err = io.Copy(w, tmp)
	return err
}
