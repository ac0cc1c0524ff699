// Package tryon provides the HTTP client and poll loop for the asynchronous
// virtual try-on generation backend.
package tryon

import "encoding/json"

// Status represents the status of a generation job as reported by the backend.
type Status string

// Job statuses aligned with the backend API.
const (
	StatusInQueue    Status = "IN_QUEUE"
	StatusRunning    Status = "RUNNING"
	StatusInProgress Status = "IN_PROGRESS"
	StatusCompleted  Status = "COMPLETED"
	StatusFailed     Status = "FAILED"
	StatusCancelled  Status = "CANCELLED"
	StatusTimedOut   Status = "TIMED_OUT"
)

// IsTerminal returns true if the status is a terminal state.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled, StatusTimedOut:
		return true
	default:
		return false
	}
}

// SubmitInput contains the parameters for submitting a try-on job.
type SubmitInput struct {
	// RequestID is the caller-generated correlation ID passed through as request_id.
	RequestID string
	// ModelImageURL is the public URL of the subject photo.
	ModelImageURL string
	// ClothImageURL is the public URL of the garment photo.
	ClothImageURL string
	// SwapType selects which garment region to replace.
	SwapType string
	// Premium is an opaque passthrough flag; the backend decides what it means.
	Premium bool
}

// SubmitOutcome is the interpreted result of a submit call.
// Exactly one of ImageURL or JobID is set: ImageURL when the backend resolved
// the job immediately, JobID when the job must be polled.
type SubmitOutcome struct {
	ImageURL string
	JobID    string
}

// Immediate reports whether the backend returned a finished image with no job to poll.
func (o SubmitOutcome) Immediate() bool {
	return o.ImageURL != ""
}

// StatusResult contains one status read for a job.
type StatusResult struct {
	Status   Status
	ImageURL string // Set only when Status is StatusCompleted and the output was extractable
	Err      string // Backend error message, set when Status is StatusFailed
}

// submitRequest represents the request body for the backend's /run endpoint.
type submitRequest struct {
	Input submitInput `json:"input"`
}

// submitInput represents the input field in a submit request.
type submitInput struct {
	RequestID     string `json:"request_id"`
	ModelImg      string `json:"model_img"`
	ClothImg      string `json:"cloth_img"`
	SwapType      string `json:"swap_type"`
	OutputFormat  string `json:"output_format"`
	OutputQuality int    `json:"output_quality"`
	Premium       bool   `json:"premium"`
}

// submitResponse represents the response from the backend's /run endpoint.
type submitResponse struct {
	ID     string          `json:"id"`
	Status string          `json:"status"`
	Output json.RawMessage `json:"output,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// statusResponse represents the response from the backend's status endpoint.
type statusResponse struct {
	ID     string          `json:"id"`
	Status string          `json:"status"`
	Output json.RawMessage `json:"output,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// mapStatus normalizes a raw backend status string.
func mapStatus(raw string) Status {
	switch raw {
	case "IN_QUEUE":
		return StatusInQueue
	case "RUNNING":
		return StatusRunning
	case "IN_PROGRESS":
		return StatusInProgress
	case "COMPLETED":
		return StatusCompleted
	case "FAILED":
		return StatusFailed
	case "CANCELLED":
		return StatusCancelled
	case "TIMED_OUT":
		return StatusTimedOut
	default:
		return Status(raw)
	}
}

// extractImageURL pulls an image reference out of the backend's output field.
// The backend is inconsistent: output may be a bare URL string, an array of
// URLs, or an object with one of several URL-ish keys.
func extractImageURL(raw json.RawMessage) (string, bool) {
	if len(raw) == 0 {
		return "", false
	}

	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		if asString != "" {
			return asString, true
		}
		return "", false
	}

	var asArray []string
	if err := json.Unmarshal(raw, &asArray); err == nil {
		if len(asArray) > 0 && asArray[0] != "" {
			return asArray[0], true
		}
		return "", false
	}

	var asObject struct {
		ImageURL string `json:"image_url"`
		Image    string `json:"image"`
		URL      string `json:"url"`
		Output   string `json:"output_url"`
	}
	if err := json.Unmarshal(raw, &asObject); err == nil {
		for _, candidate := range []string{asObject.ImageURL, asObject.Image, asObject.URL, asObject.Output} {
			if candidate != "" {
				return candidate, true
			}
		}
	}

	return "", false
}
