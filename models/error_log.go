package models

import "time"

// ErrorLog is an in-memory record of a failed model call or other degraded operation
type ErrorLog struct {
	ID        int       `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Level     string    `json:"level"`   // ERROR, WARN
	Source    string    `json:"source"`  // insights, prep, transcribe, coach
	Message   string    `json:"message"` // Short description
	Detail    string    `json:"detail"`  // Underlying error text
	Context   string    `json:"context"` // Extra fields as JSON
}
