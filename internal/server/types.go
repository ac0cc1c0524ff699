// Package server provides the HTTP surface for the try-on proxy.
// It includes handlers, middleware, routes, and DTOs separated from domain types.
package server

import "time"

// TryonResponse is the HTTP response for a successful generation.
type TryonResponse struct {
	// Success is always true in this response shape.
	Success bool `json:"success"`
	// ImageURL is the public URL of the generated composite image.
	ImageURL string `json:"imageUrl"`
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	// Error is the stable error kind for programmatic handling.
	Error string `json:"error"`
	// Message is the fixed human-readable message for the kind.
	Message string `json:"message"`
	// RequestID correlates the response with server-side logs.
	RequestID string `json:"requestId,omitempty"`
	// Detail carries internal diagnostics; only populated in debug deployments.
	Detail string `json:"detail,omitempty"`
}

// GenerationRecordResponse is the HTTP response for a generation lookup.
type GenerationRecordResponse struct {
	// ID is the correlation ID of the generation request.
	ID string `json:"id"`
	// Status is RUNNING, SUCCEEDED, or FAILED.
	Status string `json:"status"`
	// ImageURL is set for succeeded generations.
	ImageURL string `json:"imageUrl,omitempty"`
	// Error is the error kind for failed generations.
	Error string `json:"error,omitempty"`
	// SwapType echoes the requested style selector.
	SwapType string `json:"swapType,omitempty"`
	// PollAttempts is the number of status reads the job needed.
	PollAttempts int `json:"pollAttempts,omitempty"`
	// ElapsedMs is the total pipeline time in milliseconds.
	ElapsedMs int64 `json:"elapsedMs,omitempty"`
	// CreatedAt is when the request was accepted.
	CreatedAt time.Time `json:"createdAt"`
	// CompletedAt is when the request reached a terminal state.
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// HealthResponse is the HTTP response for the health check endpoint.
type HealthResponse struct {
	// Status is the health status of the service.
	Status string `json:"status"`
}
