package upload

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Static errors for hosting API operations.
var (
	// ErrHostRejected is returned when the hosting API reports success=false.
	ErrHostRejected = errors.New("upload: host rejected image")
	// ErrHostRequestFailed is returned on a non-2xx response from the hosting API.
	ErrHostRequestFailed = errors.New("upload: host request failed")
	// ErrNoURLInResponse is returned when a successful response carries no URL.
	ErrNoURLInResponse = errors.New("upload: no URL in host response")
)

// hostResponse is the response shape shared by the supported hosting APIs.
type hostResponse struct {
	Success bool     `json:"success"`
	Data    hostData `json:"data"`
	Error   struct {
		Message string `json:"message"`
	} `json:"error"`
}

// hostData carries the uploaded image location; hosts disagree on the field name.
type hostData struct {
	URL  string `json:"url"`
	Link string `json:"link"`
}

// publicURL returns whichever location field the host populated.
func (d hostData) publicURL() string {
	if d.URL != "" {
		return d.URL
	}
	return d.Link
}

// HostClient uploads images to an imgbb-compatible hosting API.
// The payload is sent as a base64 form field; the response is expected to be
// {success, data:{url|link}}.
type HostClient struct {
	name        string
	endpoint    string
	apiKey      string
	keyRequired bool
	httpClient  *http.Client
}

// HostOption is a function that configures a HostClient.
type HostOption func(*HostClient)

// WithHostAPIKey sets the API key sent with each upload.
func WithHostAPIKey(key string) HostOption {
	return func(hc *HostClient) {
		hc.apiKey = key
	}
}

// WithHostKeyRequired marks the provider as unusable without an API key.
// Such a provider reports Enabled() == false when no key is configured and
// is skipped silently by the chain.
func WithHostKeyRequired() HostOption {
	return func(hc *HostClient) {
		hc.keyRequired = true
	}
}

// WithHostHTTPClient sets a custom HTTP client.
func WithHostHTTPClient(c *http.Client) HostOption {
	return func(hc *HostClient) {
		hc.httpClient = c
	}
}

// NewHostClient creates a hosting provider that POSTs to the given endpoint.
func NewHostClient(name, endpoint string, opts ...HostOption) *HostClient {
	hc := &HostClient{
		name:       name,
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(hc)
	}
	return hc
}

// Name identifies the provider.
func (hc *HostClient) Name() string {
	return hc.name
}

// Enabled reports whether the provider can be used.
func (hc *HostClient) Enabled() bool {
	if hc.endpoint == "" {
		return false
	}
	if hc.keyRequired && hc.apiKey == "" {
		return false
	}
	return true
}

// Upload sends the image as a base64 form field and returns the public URL.
// A single attempt: any failure is reported to the chain, which falls through
// to the next provider.
func (hc *HostClient) Upload(ctx context.Context, data []byte, filename string) (string, error) {
	form := url.Values{}
	form.Set("image", base64.StdEncoding.EncodeToString(data))
	if filename != "" {
		form.Set("name", filename)
	}
	if hc.apiKey != "" {
		form.Set("key", hc.apiKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, hc.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("upload: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := hc.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload: %s request: %w", hc.name, err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("upload: read %s response: %w", hc.name, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("%w: %s status %d: %s", ErrHostRequestFailed, hc.name, resp.StatusCode, string(respBody))
	}

	var parsed hostResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("upload: unmarshal %s response: %w", hc.name, err)
	}

	if !parsed.Success {
		if parsed.Error.Message != "" {
			return "", fmt.Errorf("%w: %s: %s", ErrHostRejected, hc.name, parsed.Error.Message)
		}
		return "", fmt.Errorf("%w: %s", ErrHostRejected, hc.name)
	}

	publicURL := parsed.Data.publicURL()
	if publicURL == "" {
		return "", fmt.Errorf("%w: %s", ErrNoURLInResponse, hc.name)
	}

	return publicURL, nil
}

// Compile-time check that HostClient implements Provider.
var _ Provider = (*HostClient)(nil)
