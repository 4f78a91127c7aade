package dto

import "time"

// ErrorResponse is the standardized JSON error body returned by every
// failing endpoint.
type ErrorResponse struct {
	Message      string    `json:"message" example:"invalid request"`
	ErrorDetails string    `json:"error,omitempty" example:"symbol is required"`
	Timestamp    time.Time `json:"timestamp" example:"2026-01-02T15:04:05Z"`
}

// Error implements the error interface so an ErrorResponse can travel as a
// plain error where convenient.
func (e ErrorResponse) Error() string {
	if e.ErrorDetails != "" {
		return e.Message + ": " + e.ErrorDetails
	}
	return e.Message
}

// NewErrorResponse builds an ErrorResponse with the current timestamp,
// embedding err's text when non-nil.
func NewErrorResponse(message string, err error) ErrorResponse {
	resp := ErrorResponse{
		Message:   message,
		Timestamp: time.Now().UTC(),
	}
	if err != nil {
		resp.ErrorDetails = err.Error()
	}
	return resp
}
