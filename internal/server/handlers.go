package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/acharya-09/cameleon-tryon/internal/generation"
)

// swapTypeRule is the validator rule for the style selector.
const swapTypeRule = "oneof=upper_body lower_body dress full_outfit"

// GenerationService is the port the handlers drive.
type GenerationService interface {
	Generate(ctx context.Context, in generation.Input) (generation.Result, error)
	Records() *generation.RecordStore
}

// Compile-time check that the production service implements the port.
var _ GenerationService = (*generation.Service)(nil)

// Handlers contains the HTTP handlers for the API.
type Handlers struct {
	service         GenerationService
	validator       *validator.Validate
	logger          *slog.Logger
	maxUploadBytes  int64
	defaultSwapType string
	debug           bool
}

// HandlerOption is a function that configures a Handlers instance.
type HandlerOption func(*Handlers)

// WithMaxUploadBytes sets the per-file upload size cap.
func WithMaxUploadBytes(n int64) HandlerOption {
	return func(h *Handlers) {
		if n > 0 {
			h.maxUploadBytes = n
		}
	}
}

// WithDefaultSwapType sets the style selector used when the form omits one.
func WithDefaultSwapType(s string) HandlerOption {
	return func(h *Handlers) {
		if s != "" {
			h.defaultSwapType = s
		}
	}
}

// WithDebug enables echoing internal diagnostic detail in error responses.
func WithDebug(debug bool) HandlerOption {
	return func(h *Handlers) {
		h.debug = debug
	}
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(service GenerationService, logger *slog.Logger, opts ...HandlerOption) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handlers{
		service:         service,
		validator:       validator.New(),
		logger:          logger,
		maxUploadBytes:  8 << 20,
		defaultSwapType: "full_outfit",
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Health handles GET /health requests.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// Tryon handles POST /v1/tryon requests: two multipart image files in, one
// generated image URL (or one classified error) out.
func (h *Handlers) Tryon(w http.ResponseWriter, r *http.Request) {
	requestID := RequestIDFromContext(r.Context())

	// Bound the whole body: two files plus form overhead.
	r.Body = http.MaxBytesReader(w, r.Body, 2*h.maxUploadBytes+(1<<20))

	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		// Oversized bodies are 413; every other malformed form is 400.
		kind := generation.KindBadRequest
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			kind = generation.KindPayloadTooLarge
		}
		h.logger.Warn("malformed multipart form",
			slog.String("request_id", requestID),
			slog.String("error", err.Error()),
		)
		writeFailure(w, kind, requestID, h.detail(err))
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	subject, subjectName, err := h.readImageFile(r, "userImage")
	if err != nil {
		h.failRequest(w, requestID, err)
		return
	}

	garment, garmentName, err := h.readImageFile(r, "clothingImage")
	if err != nil {
		h.failRequest(w, requestID, err)
		return
	}

	swapType := r.FormValue("swapType")
	if swapType == "" {
		swapType = h.defaultSwapType
	}
	if err := h.validator.Var(swapType, swapTypeRule); err != nil {
		h.logger.Warn("invalid swap type",
			slog.String("request_id", requestID),
			slog.String("swap_type", swapType),
		)
		writeFailure(w, generation.KindBadRequest, requestID, h.detail(fmt.Errorf("invalid swapType %q", swapType)))
		return
	}

	// The poll loop keeps its own budget; a caller disconnect must not kill
	// the pipeline mid-flight, so detach the context. The record store still
	// captures the result of an orphaned request.
	result, err := h.service.Generate(context.WithoutCancel(r.Context()), generation.Input{
		RequestID:   requestID,
		Subject:     subject,
		SubjectName: subjectName,
		Garment:     garment,
		GarmentName: garmentName,
		SwapType:    swapType,
	})
	if err != nil {
		kind := generation.Classify(err)
		writeFailure(w, kind, requestID, h.detail(err))
		return
	}

	h.logger.Info("generation succeeded",
		slog.String("request_id", requestID),
		slog.Duration("elapsed", result.Elapsed),
	)
	writeJSON(w, http.StatusOK, TryonResponse{Success: true, ImageURL: result.ImageURL})
}

// GetGeneration handles GET /v1/generations/{id} requests.
func (h *Handlers) GetGeneration(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeFailure(w, generation.KindBadRequest, "", "")
		return
	}

	rec, err := h.service.Records().Get(id)
	if err != nil {
		if errors.Is(err, generation.ErrRecordNotFound) {
			writeJSON(w, http.StatusNotFound, ErrorResponse{
				Error:   "NOT_FOUND",
				Message: "No generation with that ID.",
			})
			return
		}
		writeFailure(w, generation.KindInternalError, RequestIDFromContext(r.Context()), h.detail(err))
		return
	}

	resp := GenerationRecordResponse{
		ID:           rec.ID,
		Status:       string(rec.Status),
		ImageURL:     rec.ImageURL,
		Error:        string(rec.ErrorKind),
		SwapType:     rec.SwapType,
		PollAttempts: rec.Attempts,
		ElapsedMs:    rec.Elapsed.Milliseconds(),
		CreatedAt:    rec.CreatedAt,
	}
	if !rec.CompletedAt.IsZero() {
		completed := rec.CompletedAt
		resp.CompletedAt = &completed
	}

	writeJSON(w, http.StatusOK, resp)
}

// readImageFile reads one uploaded file, enforcing the per-file size cap.
func (h *Handlers) readImageFile(r *http.Request, field string) ([]byte, string, error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		return nil, "", fmt.Errorf("form file %s: %w", field, err)
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(io.LimitReader(file, h.maxUploadBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("read %s: %w", field, err)
	}
	if int64(len(data)) > h.maxUploadBytes {
		return nil, "", fmt.Errorf("%s: %w", field, &http.MaxBytesError{Limit: h.maxUploadBytes})
	}
	if len(data) == 0 {
		return nil, "", fmt.Errorf("%s: %w", field, http.ErrMissingFile)
	}

	return data, header.Filename, nil
}

// failRequest classifies a request-stage error and writes the response.
func (h *Handlers) failRequest(w http.ResponseWriter, requestID string, err error) {
	kind := generation.Classify(err)
	h.logger.Warn("request rejected",
		slog.String("request_id", requestID),
		slog.String("kind", string(kind)),
		slog.String("error", err.Error()),
	)
	writeFailure(w, kind, requestID, h.detail(err))
}

// detail returns the internal error text only in debug deployments.
func (h *Handlers) detail(err error) string {
	if !h.debug || err == nil {
		return ""
	}
	return err.Error()
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
	}
}

// writeFailure writes the standard error response for a kind.
func writeFailure(w http.ResponseWriter, kind generation.Kind, requestID, detail string) {
	writeJSON(w, kind.HTTPStatus(), ErrorResponse{
		Error:     string(kind),
		Message:   kind.Message(),
		RequestID: requestID,
		Detail:    detail,
	})
}
