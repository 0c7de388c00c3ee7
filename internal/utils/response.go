// Package utils holds the small helpers shared across the HTTP surface.
package utils

import "time"

// APIResponse is the wire envelope every JSON endpoint returns. Success is
// the boolean outcome callers key on; the typed error taxonomy stays
// internal and only its message surfaces in Error.
type APIResponse struct {
	Success   bool        `json:"success"`
	Message   string      `json:"message"`
	Data      interface{} `json:"data,omitempty"`
	Error     string      `json:"error,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// SuccessResponse wraps an operation result in the envelope.
func SuccessResponse(message string, data interface{}) APIResponse {
	return APIResponse{
		Success:   true,
		Message:   message,
		Data:      data,
		Timestamp: time.Now(),
	}
}

// ErrorResponse wraps a failure in the envelope. The error string is the
// diagnostic detail; Success=false is the caller-visible outcome.
func ErrorResponse(message, error string) APIResponse {
	return APIResponse{
		Success:   false,
		Message:   message,
		Error:     error,
		Timestamp: time.Now(),
	}
}
