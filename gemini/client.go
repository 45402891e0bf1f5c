// Package gemini adapts the hosted generative model to the operations the
// app needs: reflection transcription, structured log analysis, grounded
// prep research and live voice sessions.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"ramadanprep/models"
	"strconv"
	"strings"

	"google.golang.org/genai"
)

// ErrNoAPIKey is returned when no API key is configured.
var ErrNoAPIKey = errors.New("generative AI API key not configured")

const (
	transcribePrompt = "Transcribe this audio recording of a personal reflection log. Focus on spiritual activities, prayers, and personal health habits mentioned."

	analyzePrompt = `Analyze these daily logs for a user preparing for Ramadan.
Logs: %s
Provide a summary of their progress, achievable goal suggestions, and a motivational message.`

	prepPrompt = "What are the predicted dates for Ramadan %d? Provide 5 practical physical and spiritual preparation tips based on Islamic scholars and health experts."

	coachInstruction = "You are a warm, supportive spiritual coach for someone preparing for Ramadan. Help them with routine, motivation, and spiritual guidance. Keep responses encouraging and short."
)

// Options selects models and voice.
type Options struct {
	APIKey          string
	TranscribeModel string
	AnalysisModel   string
	PrepModel       string
	LiveModel       string
	Voice           string
}

// Client talks to the hosted model. A Client without an API key fails every call with ErrNoAPIKey.
type Client struct {
	opts  Options
	genai *genai.Client
}

// NewClient creates a client. With an empty API key it returns a client whose calls fail.
func NewClient(ctx context.Context, opts Options) (*Client, error) {
	c := &Client{opts: opts}
	if strings.TrimSpace(opts.APIKey) == "" {
		return c, nil
	}

	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  opts.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	c.genai = gc
	return c, nil
}

// Configured reports whether calls can reach the model.
func (c *Client) Configured() bool {
	return c != nil && c.genai != nil
}

// Transcribe returns the text of a recorded reflection.
func (c *Client) Transcribe(ctx context.Context, audioData []byte, mimeType string) (string, error) {
	if !c.Configured() {
		return "", ErrNoAPIKey
	}

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromBytes(audioData, mimeType),
			genai.NewPartFromText(transcribePrompt),
		}, genai.RoleUser),
	}

	resp, err := c.genai.Models.GenerateContent(ctx, c.opts.TranscribeModel, contents, nil)
	if err != nil {
		return "", fmt.Errorf("transcribe: %w", err)
	}
	return strings.TrimSpace(resp.Text()), nil
}

// AnalyzeLogs asks for a JSON insight over the serialized logs and returns the raw response text.
func (c *Client) AnalyzeLogs(ctx context.Context, logsJSON []byte) (string, error) {
	if !c.Configured() {
		return "", ErrNoAPIKey
	}

	levels := make([]string, 0, len(models.SpiritualLevels))
	for _, l := range models.SpiritualLevels {
		levels = append(levels, string(l))
	}

	cfg := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"summary": {Type: genai.TypeString},
				"suggestions": {
					Type:  genai.TypeArray,
					Items: &genai.Schema{Type: genai.TypeString},
				},
				"motivation":     {Type: genai.TypeString},
				"spiritualLevel": {Type: genai.TypeString, Enum: levels},
			},
			Required: []string{"summary", "suggestions", "motivation", "spiritualLevel"},
		},
	}

	resp, err := c.genai.Models.GenerateContent(ctx, c.opts.AnalysisModel,
		genai.Text(fmt.Sprintf(analyzePrompt, logsJSON)), cfg)
	if err != nil {
		return "", fmt.Errorf("analyze logs: %w", err)
	}
	return resp.Text(), nil
}

// PrepResearch runs a search-grounded query for the given Ramadan year.
// It returns the answer text and the web sources the answer was grounded on.
func (c *Client) PrepResearch(ctx context.Context, year int) (string, []models.Source, error) {
	if !c.Configured() {
		return "", nil, ErrNoAPIKey
	}

	cfg := &genai.GenerateContentConfig{
		Tools: []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}},
	}

	resp, err := c.genai.Models.GenerateContent(ctx, c.opts.PrepModel,
		genai.Text(fmt.Sprintf(prepPrompt, year)), cfg)
	if err != nil {
		return "", nil, fmt.Errorf("prep research: %w", err)
	}
	return resp.Text(), groundingSources(resp), nil
}

// groundingSources lists the web chunks of the first candidate, with placeholders for missing fields.
func groundingSources(resp *genai.GenerateContentResponse) []models.Source {
	sources := []models.Source{}
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].GroundingMetadata == nil {
		return sources
	}

	for _, chunk := range resp.Candidates[0].GroundingMetadata.GroundingChunks {
		if chunk == nil {
			continue
		}
		src := models.Source{Title: "Search Result", URI: "#"}
		if chunk.Web != nil {
			if chunk.Web.Title != "" {
				src.Title = chunk.Web.Title
			}
			if chunk.Web.URI != "" {
				src.URI = chunk.Web.URI
			}
		}
		sources = append(sources, src)
	}
	return sources
}

// StripCodeFences removes a surrounding markdown fence that some models wrap JSON in.
func StripCodeFences(raw string) string {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx >= 0 {
			s = s[idx+1:]
		} else {
			s = strings.TrimPrefix(s, "```")
		}
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func (o Options) String() string {
	return "transcribe=" + o.TranscribeModel +
		" analysis=" + o.AnalysisModel +
		" prep=" + o.PrepModel +
		" live=" + o.LiveModel +
		" voice=" + o.Voice +
		" key=" + strconv.FormatBool(o.APIKey != "")
}
