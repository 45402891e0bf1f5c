package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"ramadanprep/audio"
	"ramadanprep/core"
	"ramadanprep/models"
	"strings"
	"time"
)

// Client is the HTTP client for talking to the RamadanPrep server
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new HTTP client.
// Model calls can be slow, so the timeout is generous.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

// doRequest executes an HTTP request
func (c *Client) doRequest(method, path string, body interface{}) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		bodyReader = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequest(method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	return resp, nil
}

// handleResponse decodes a 2xx body into result, or turns the server's detail into an error
func (c *Client) handleResponse(resp *http.Response, result interface{}) error {
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(resp.Body)
		var apiErr struct {
			Detail string `json:"detail"`
		}
		if json.Unmarshal(bodyBytes, &apiErr) == nil && apiErr.Detail != "" {
			return fmt.Errorf("HTTP %d: %s", resp.StatusCode, apiErr.Detail)
		}
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(bodyBytes)))
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

func (c *Client) call(method, path string, body, result interface{}) error {
	resp, err := c.doRequest(method, path, body)
	if err != nil {
		return err
	}
	return c.handleResponse(resp, result)
}

// HealthCheck pings the health endpoint
func (c *Client) HealthCheck() error {
	resp, err := c.doRequest(http.MethodGet, "/api/health", nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server unhealthy: HTTP %d", resp.StatusCode)
	}
	return nil
}

// Health returns the health payload
func (c *Client) Health() (map[string]interface{}, error) {
	var out map[string]interface{}
	err := c.call(http.MethodGet, "/api/health", nil, &out)
	return out, err
}

// ListLogs lists all daily logs
func (c *Client) ListLogs() ([]models.DailyLog, error) {
	var logs []models.DailyLog
	err := c.call(http.MethodGet, "/api/logs", nil, &logs)
	return logs, err
}

// CreateLog saves a daily log
func (c *Client) CreateLog(req models.DailyLogCreate) (*models.DailyLog, error) {
	var entry models.DailyLog
	if err := c.call(http.MethodPost, "/api/logs", req, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

// ResetLogs deletes every log
func (c *Client) ResetLogs() error {
	return c.call(http.MethodDelete, "/api/logs", nil, nil)
}

// Dashboard fetches the dashboard aggregates
func (c *Client) Dashboard() (*models.DashboardStats, error) {
	var stats models.DashboardStats
	if err := c.call(http.MethodGet, "/api/dashboard", nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// Insights fetches the latest insight
func (c *Client) Insights() (*models.InsightState, error) {
	var st models.InsightState
	if err := c.call(http.MethodGet, "/api/insights", nil, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

// RefreshInsights asks the server to analyse the logs now
func (c *Client) RefreshInsights() (*models.InsightState, error) {
	var st models.InsightState
	if err := c.call(http.MethodPost, "/api/insights/refresh", nil, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

// Prep fetches the countdown and preparation tips
func (c *Client) Prep(refresh bool) (*models.PrepInfo, error) {
	path := "/api/prep"
	if refresh {
		path += "?refresh=true"
	}
	var info models.PrepInfo
	if err := c.call(http.MethodGet, path, nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// TranscribeResult is the transcription response
type TranscribeResult struct {
	Text       string `json:"text"`
	Reflection string `json:"reflection"`
}

// Transcribe uploads a recording and returns its text
func (c *Client) Transcribe(data []byte, mimeType, reflection string) (*TranscribeResult, error) {
	body := map[string]string{
		"audio":      audio.EncodeBase64(data),
		"mimeType":   mimeType,
		"reflection": reflection,
	}
	var out TranscribeResult
	if err := c.call(http.MethodPost, "/api/transcribe", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ErrorLogs fetches recent error logs
func (c *Client) ErrorLogs() ([]models.ErrorLog, error) {
	var logs []models.ErrorLog
	err := c.call(http.MethodGet, "/api/error-logs", nil, &logs)
	return logs, err
}

// ClearErrorLogs wipes error logs
func (c *Client) ClearErrorLogs() error {
	return c.call(http.MethodDelete, "/api/error-logs", nil, nil)
}

// CoachSessions lists active voice coach sessions
func (c *Client) CoachSessions() ([]core.SessionStats, error) {
	var stats []core.SessionStats
	err := c.call(http.MethodGet, "/api/coach/sessions", nil, &stats)
	return stats, err
}

// StopCoachSession ends a voice coach session
func (c *Client) StopCoachSession(id string) error {
	return c.call(http.MethodDelete, "/api/coach/sessions/"+id, nil, nil)
}
