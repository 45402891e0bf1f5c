package handlers

import (
	"errors"
	"io"
	"net/http"
	"ramadanprep/audio"
	"ramadanprep/models"
	"ramadanprep/service"
	"strings"

	"github.com/gin-gonic/gin"
)

// maxUploadBytes caps a recorded reflection upload.
const maxUploadBytes = 20 << 20

// ListLogs lists all daily logs
func ListLogs(c *gin.Context) {
	logs, err := service.GlobalServices.Logs.List()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": err.Error()})
		return
	}
	c.JSON(http.StatusOK, logs)
}

// CreateLog saves a daily log
func CreateLog(c *gin.Context) {
	var req models.DailyLogCreate
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}

	entry, err := service.GlobalServices.Logs.Save(req)
	if err != nil {
		if errors.Is(err, service.ErrInvalidLog) {
			c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"detail": err.Error()})
		return
	}

	c.JSON(http.StatusOK, entry)
}

// ResetLogs deletes every log and the cached insight
func ResetLogs(c *gin.Context) {
	if err := service.GlobalServices.Logs.Reset(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "message": "All logs cleared"})
}

// GetDashboard returns the dashboard aggregates
func GetDashboard(c *gin.Context) {
	logs, err := service.GlobalServices.Logs.List()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": err.Error()})
		return
	}
	c.JSON(http.StatusOK, service.GlobalServices.Dashboard.Compute(logs))
}

// GetInsights returns the latest insight and whether one is being computed
func GetInsights(c *gin.Context) {
	c.JSON(http.StatusOK, service.GlobalServices.Insights.Current())
}

// RefreshInsights analyses the logs now
func RefreshInsights(c *gin.Context) {
	logs, err := service.GlobalServices.Logs.List()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": err.Error()})
		return
	}
	service.GlobalServices.Insights.Refresh(c.Request.Context(), logs)
	c.JSON(http.StatusOK, service.GlobalServices.Insights.Current())
}

// GetPrep returns the countdown and preparation tips
func GetPrep(c *gin.Context) {
	if c.Query("refresh") == "true" {
		service.GlobalServices.Prep.Invalidate()
	}
	c.JSON(http.StatusOK, service.GlobalServices.Prep.Get(c.Request.Context()))
}

type transcribeRequest struct {
	Audio      string `json:"audio"`
	MIMEType   string `json:"mimeType"`
	Reflection string `json:"reflection"`
}

// Transcribe converts a recorded reflection to text.
// Accepts JSON with base64 audio or a multipart "audio" file.
func Transcribe(c *gin.Context) {
	req, data, err := readTranscribeRequest(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}

	text, err := service.GlobalServices.Transcription.Transcribe(c.Request.Context(), data, req.MIMEType)
	if err != nil {
		if errors.Is(err, service.ErrInvalidAudio) {
			c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{"detail": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"text":       text,
		"reflection": service.AppendReflection(req.Reflection, text),
	})
}

func readTranscribeRequest(c *gin.Context) (transcribeRequest, []byte, error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadBytes)

	var req transcribeRequest
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		fh, err := c.FormFile("audio")
		if err != nil {
			return req, nil, err
		}
		f, err := fh.Open()
		if err != nil {
			return req, nil, err
		}
		defer f.Close()

		data, err := io.ReadAll(f)
		if err != nil {
			return req, nil, err
		}
		req.MIMEType = c.PostForm("mimeType")
		if req.MIMEType == "" {
			req.MIMEType = fh.Header.Get("Content-Type")
		}
		req.Reflection = c.PostForm("reflection")
		return req, data, nil
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		return req, nil, err
	}
	if req.Audio == "" {
		return req, nil, errors.New("audio is required")
	}
	data, err := audio.DecodeBase64(req.Audio)
	if err != nil {
		return req, nil, err
	}
	return req, data, nil
}
