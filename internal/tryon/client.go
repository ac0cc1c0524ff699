package tryon

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

// Static errors for backend client operations.
var (
	// ErrEndpointIDRequired is returned when the endpoint ID is not provided.
	ErrEndpointIDRequired = errors.New("tryon: endpoint ID is required")
	// ErrAPIKeyNotSet is returned when no API key is configured.
	ErrAPIKeyNotSet = errors.New("tryon: TRYON_API_KEY environment variable is not set")
	// ErrJobIDRequired is returned when the job ID is not provided.
	ErrJobIDRequired = errors.New("tryon: job ID is required")
	// ErrNoJobIDReturned is returned when an in-progress submit response carries no job ID.
	ErrNoJobIDReturned = errors.New("tryon: submit accepted but no job ID returned")
	// ErrJobFailed is returned when the backend reports the job FAILED.
	ErrJobFailed = errors.New("tryon: job failed")
	// ErrJobCancelled is returned when the backend reports the job CANCELLED.
	ErrJobCancelled = errors.New("tryon: job cancelled")
	// ErrUnexpectedStatus is returned for a status the client does not recognize.
	ErrUnexpectedStatus = errors.New("tryon: unexpected job status")
	// ErrMalformedCompletion is returned when a COMPLETED response has no extractable image.
	ErrMalformedCompletion = errors.New("tryon: completed without an extractable image")
	// ErrRequestFailed is returned when a request fails with a non-2xx status code.
	ErrRequestFailed = errors.New("tryon: request failed")
)

// Client defines the interface for interacting with the generation backend.
type Client interface {
	// Submit sends a try-on job and interprets the immediate response.
	Submit(ctx context.Context, input SubmitInput) (SubmitOutcome, error)

	// Status reads the current status of a job.
	Status(ctx context.Context, jobID string) (StatusResult, error)
}

// HTTPClient is the HTTP implementation of the backend Client interface.
type HTTPClient struct {
	apiKey     string
	endpointID string
	baseURL    string
	httpClient *http.Client
}

// ClientOption is a function that configures an HTTPClient.
type ClientOption func(*HTTPClient)

// WithAPIKey sets the API key for authentication.
func WithAPIKey(key string) ClientOption {
	return func(hc *HTTPClient) {
		hc.apiKey = key
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(hc *HTTPClient) {
		hc.httpClient = c
	}
}

// WithBaseURL sets a custom base URL for the backend API.
func WithBaseURL(url string) ClientOption {
	return func(hc *HTTPClient) {
		hc.baseURL = url
	}
}

// WithSubmitTimeout bounds each outbound call made by the client.
func WithSubmitTimeout(d time.Duration) ClientOption {
	return func(hc *HTTPClient) {
		hc.httpClient.Timeout = d
	}
}

// NewClient creates a new backend HTTP client.
// The API key can be set via the WithAPIKey option. If not provided,
// it is read from the environment variable TRYON_API_KEY.
// The endpoint ID must be provided.
func NewClient(endpointID string, opts ...ClientOption) (*HTTPClient, error) {
	if endpointID == "" {
		return nil, ErrEndpointIDRequired
	}

	c := &HTTPClient{
		endpointID: endpointID,
		baseURL:    "https://api.runpod.ai/v2",
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}

	// Apply options first to allow WithAPIKey to set the API key
	for _, opt := range opts {
		opt(c)
	}

	// If API key was not set via option, try environment variable
	if c.apiKey == "" {
		c.apiKey = os.Getenv("TRYON_API_KEY")
	}

	if c.apiKey == "" {
		return nil, ErrAPIKeyNotSet
	}

	return c, nil
}

// Submit sends a try-on job and interprets the backend's immediate response.
// A COMPLETED response with an image short-circuits polling entirely; an
// in-progress response must carry a job ID for the poll loop to track.
func (c *HTTPClient) Submit(ctx context.Context, input SubmitInput) (SubmitOutcome, error) {
	reqBody := submitRequest{
		Input: submitInput{
			RequestID:     input.RequestID,
			ModelImg:      input.ModelImageURL,
			ClothImg:      input.ClothImageURL,
			SwapType:      input.SwapType,
			OutputFormat:  "png",
			OutputQuality: 100,
			Premium:       input.Premium,
		},
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return SubmitOutcome{}, fmt.Errorf("tryon: marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/%s/run", c.baseURL, c.endpointID)

	var resp submitResponse
	if err := c.doRequest(ctx, http.MethodPost, url, bodyBytes, &resp); err != nil {
		return SubmitOutcome{}, err
	}

	switch mapStatus(resp.Status) {
	case StatusCompleted:
		imageURL, ok := extractImageURL(resp.Output)
		if !ok {
			return SubmitOutcome{}, ErrMalformedCompletion
		}
		return SubmitOutcome{ImageURL: imageURL}, nil

	case StatusInQueue, StatusRunning, StatusInProgress:
		if resp.ID == "" {
			return SubmitOutcome{}, ErrNoJobIDReturned
		}
		return SubmitOutcome{JobID: resp.ID}, nil

	case StatusFailed:
		if resp.Error != "" {
			return SubmitOutcome{}, fmt.Errorf("%w: %s", ErrJobFailed, resp.Error)
		}
		return SubmitOutcome{}, ErrJobFailed

	case StatusCancelled:
		return SubmitOutcome{}, ErrJobCancelled

	default:
		return SubmitOutcome{}, fmt.Errorf("%w: %q", ErrUnexpectedStatus, resp.Status)
	}
}

// Status reads the job status, trying both URL conventions the backend is
// known to route: ".../status/{id}" first, then ".../{id}" only if the first
// convention fails for this read.
func (c *HTTPClient) Status(ctx context.Context, jobID string) (StatusResult, error) {
	if jobID == "" {
		return StatusResult{}, ErrJobIDRequired
	}

	primary := fmt.Sprintf("%s/%s/status/%s", c.baseURL, c.endpointID, jobID)
	alternate := fmt.Sprintf("%s/%s/%s", c.baseURL, c.endpointID, jobID)

	var resp statusResponse
	err := c.doRequest(ctx, http.MethodGet, primary, nil, &resp)
	if err != nil {
		if altErr := c.doRequest(ctx, http.MethodGet, alternate, nil, &resp); altErr != nil {
			return StatusResult{}, fmt.Errorf("tryon: both status conventions failed: %w (alternate: %w)", err, altErr)
		}
	}

	result := StatusResult{Status: mapStatus(resp.Status)}
	switch result.Status {
	case StatusCompleted:
		if imageURL, ok := extractImageURL(resp.Output); ok {
			result.ImageURL = imageURL
		}
	case StatusFailed:
		result.Err = resp.Error
	}

	return result, nil
}

// doRequest performs a single HTTP request. There is deliberately no retry
// here: submit failures are terminal, and transient status-read failures are
// absorbed by the poll loop instead.
func (c *HTTPClient) doRequest(ctx context.Context, method, url string, body []byte, result interface{}) error {
	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return fmt.Errorf("tryon: create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("tryon: request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("tryon: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w with status %d: %s", ErrRequestFailed, resp.StatusCode, string(respBody))
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("tryon: unmarshal response: %w", err)
		}
	}

	return nil
}

// Compile-time check that HTTPClient implements Client.
var _ Client = (*HTTPClient)(nil)
