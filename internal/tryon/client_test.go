package tryon

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
)

// setTestEnv sets the TRYON_API_KEY env var for the duration of the test.
func setTestEnv(t *testing.T) {
	t.Helper()
	t.Setenv("TRYON_API_KEY", "test-key")
}

func TestStatus_IsTerminal(t *testing.T) {
	tests := []struct {
		status   Status
		terminal bool
	}{
		{StatusInQueue, false},
		{StatusRunning, false},
		{StatusInProgress, false},
		{StatusCompleted, true},
		{StatusFailed, true},
		{StatusCancelled, true},
		{StatusTimedOut, true},
		{Status("UNKNOWN"), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			if got := tt.status.IsTerminal(); got != tt.terminal {
				t.Errorf("Status(%q).IsTerminal() = %v, want %v", tt.status, got, tt.terminal)
			}
		})
	}
}

func TestExtractImageURL(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
		ok   bool
	}{
		{"bare string", `"https://out/img.png"`, "https://out/img.png", true},
		{"empty string", `""`, "", false},
		{"array", `["https://out/a.png","https://out/b.png"]`, "https://out/a.png", true},
		{"empty array", `[]`, "", false},
		{"object image_url", `{"image_url":"https://out/obj.png"}`, "https://out/obj.png", true},
		{"object image", `{"image":"https://out/img2.png"}`, "https://out/img2.png", true},
		{"object url", `{"url":"https://out/u.png"}`, "https://out/u.png", true},
		{"object output_url", `{"output_url":"https://out/o.png"}`, "https://out/o.png", true},
		{"object without url", `{"seed":42}`, "", false},
		{"null", `null`, "", false},
		{"missing", ``, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var raw json.RawMessage
			if tt.raw != "" {
				raw = json.RawMessage(tt.raw)
			}
			got, ok := extractImageURL(raw)
			if ok != tt.ok || got != tt.want {
				t.Errorf("extractImageURL(%s) = (%q, %v), want (%q, %v)", tt.raw, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestNewClient_MissingEndpointID(t *testing.T) {
	setTestEnv(t)

	_, err := NewClient("")
	if !errors.Is(err, ErrEndpointIDRequired) {
		t.Errorf("expected ErrEndpointIDRequired, got %v", err)
	}
}

func TestNewClient_MissingAPIKey(t *testing.T) {
	_ = os.Unsetenv("TRYON_API_KEY")

	_, err := NewClient("test-endpoint")
	if !errors.Is(err, ErrAPIKeyNotSet) {
		t.Errorf("expected ErrAPIKeyNotSet, got %v", err)
	}
}

func TestNewClient_WithAPIKeyOption(t *testing.T) {
	_ = os.Unsetenv("TRYON_API_KEY")

	client, err := NewClient("test-endpoint", WithAPIKey("explicit-api-key"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if client.apiKey != "explicit-api-key" {
		t.Errorf("expected apiKey to be 'explicit-api-key', got %q", client.apiKey)
	}
}

func newTestClient(t *testing.T, baseURL string) *HTTPClient {
	t.Helper()
	client, err := NewClient("test-endpoint", WithAPIKey("test-key"), WithBaseURL(baseURL))
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	return client
}

func TestSubmit_JobStarted(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if r.URL.Path != "/test-endpoint/run" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("unexpected auth header: %s", r.Header.Get("Authorization"))
		}

		var req submitRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}
		if req.Input.ModelImg != "https://img/model.png" {
			t.Errorf("unexpected model_img: %s", req.Input.ModelImg)
		}
		if req.Input.ClothImg != "https://img/cloth.png" {
			t.Errorf("unexpected cloth_img: %s", req.Input.ClothImg)
		}
		if req.Input.SwapType != "upper_body" {
			t.Errorf("unexpected swap_type: %s", req.Input.SwapType)
		}
		if req.Input.OutputFormat != "png" || req.Input.OutputQuality != 100 {
			t.Errorf("unexpected output params: %s/%d", req.Input.OutputFormat, req.Input.OutputQuality)
		}
		if req.Input.RequestID == "" {
			t.Error("expected request_id to be set")
		}

		_, _ = w.Write([]byte(`{"id":"job-123","status":"IN_QUEUE"}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	outcome, err := client.Submit(context.Background(), SubmitInput{
		RequestID:     "req-1",
		ModelImageURL: "https://img/model.png",
		ClothImageURL: "https://img/cloth.png",
		SwapType:      "upper_body",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Immediate() {
		t.Error("expected a started job, not an immediate result")
	}
	if outcome.JobID != "job-123" {
		t.Errorf("unexpected job ID: %s", outcome.JobID)
	}
}

func TestSubmit_ImmediateResult(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":"job-1","status":"COMPLETED","output":"https://out/result.png"}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	outcome, err := client.Submit(context.Background(), SubmitInput{RequestID: "req-1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !outcome.Immediate() {
		t.Fatal("expected an immediate result")
	}
	if outcome.ImageURL != "https://out/result.png" {
		t.Errorf("unexpected image URL: %s", outcome.ImageURL)
	}
}

func TestSubmit_CompletedWithoutImage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":"job-1","status":"COMPLETED"}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	_, err := client.Submit(context.Background(), SubmitInput{RequestID: "req-1"})
	if !errors.Is(err, ErrMalformedCompletion) {
		t.Errorf("expected ErrMalformedCompletion, got %v", err)
	}
}

func TestSubmit_InProgressWithoutJobID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"IN_PROGRESS"}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	_, err := client.Submit(context.Background(), SubmitInput{RequestID: "req-1"})
	if !errors.Is(err, ErrNoJobIDReturned) {
		t.Errorf("expected ErrNoJobIDReturned, got %v", err)
	}
}

func TestSubmit_Failed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":"job-1","status":"FAILED","error":"no GPU available"}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	_, err := client.Submit(context.Background(), SubmitInput{RequestID: "req-1"})
	if !errors.Is(err, ErrJobFailed) {
		t.Fatalf("expected ErrJobFailed, got %v", err)
	}
	if !strings.Contains(err.Error(), "no GPU available") {
		t.Errorf("expected backend reason in error, got %v", err)
	}
}

func TestSubmit_Cancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":"job-1","status":"CANCELLED"}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	_, err := client.Submit(context.Background(), SubmitInput{RequestID: "req-1"})
	if !errors.Is(err, ErrJobCancelled) {
		t.Errorf("expected ErrJobCancelled, got %v", err)
	}
}

func TestSubmit_UnexpectedStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":"job-1","status":"PAUSED"}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	_, err := client.Submit(context.Background(), SubmitInput{RequestID: "req-1"})
	if !errors.Is(err, ErrUnexpectedStatus) {
		t.Errorf("expected ErrUnexpectedStatus, got %v", err)
	}
}

func TestSubmit_Non2xx(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("no capacity"))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	_, err := client.Submit(context.Background(), SubmitInput{RequestID: "req-1"})
	if !errors.Is(err, ErrRequestFailed) {
		t.Fatalf("expected ErrRequestFailed, got %v", err)
	}
	if !strings.Contains(err.Error(), "no capacity") {
		t.Errorf("expected response body in error for diagnostics, got %v", err)
	}
}

func TestStatus_PrimaryConvention(t *testing.T) {
	var paths []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		_, _ = w.Write([]byte(`{"id":"job-1","status":"COMPLETED","output":["https://out/done.png"]}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	res, err := client.Status(context.Background(), "job-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Status != StatusCompleted {
		t.Errorf("unexpected status: %s", res.Status)
	}
	if res.ImageURL != "https://out/done.png" {
		t.Errorf("unexpected image URL: %s", res.ImageURL)
	}
	if len(paths) != 1 || paths[0] != "/test-endpoint/status/job-1" {
		t.Errorf("expected a single primary-convention request, got %v", paths)
	}
}

func TestStatus_FallsBackToAlternateConvention(t *testing.T) {
	var paths []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		if r.URL.Path == "/test-endpoint/status/job-1" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(`{"id":"job-1","status":"IN_PROGRESS"}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	res, err := client.Status(context.Background(), "job-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Status != StatusInProgress {
		t.Errorf("unexpected status: %s", res.Status)
	}
	want := []string{"/test-endpoint/status/job-1", "/test-endpoint/job-1"}
	if len(paths) != 2 || paths[0] != want[0] || paths[1] != want[1] {
		t.Errorf("expected fallback to alternate convention, got %v", paths)
	}
}

func TestStatus_BothConventionsFail(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	_, err := client.Status(context.Background(), "job-1")
	if err == nil {
		t.Fatal("expected error when both conventions fail")
	}
	if !errors.Is(err, ErrRequestFailed) {
		t.Errorf("expected ErrRequestFailed, got %v", err)
	}
}

func TestStatus_MissingJobID(t *testing.T) {
	client := newTestClient(t, "http://unused")

	_, err := client.Status(context.Background(), "")
	if !errors.Is(err, ErrJobIDRequired) {
		t.Errorf("expected ErrJobIDRequired, got %v", err)
	}
}

func TestStatus_FailedCarriesReason(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":"job-1","status":"FAILED","error":"worker crashed"}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	res, err := client.Status(context.Background(), "job-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Status != StatusFailed {
		t.Errorf("unexpected status: %s", res.Status)
	}
	if res.Err != "worker crashed" {
		t.Errorf("unexpected reason: %s", res.Err)
	}
}
