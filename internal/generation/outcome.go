package generation

import (
	"errors"
	"net/http"

	"github.com/acharya-09/cameleon-tryon/internal/tryon"
	"github.com/acharya-09/cameleon-tryon/internal/upload"
)

// Kind is the stable, caller-facing error category.
type Kind string

// Error kinds, each mapped to one HTTP status and one fixed message.
const (
	KindBadRequest          Kind = "BAD_REQUEST"
	KindPayloadTooLarge     Kind = "PAYLOAD_TOO_LARGE"
	KindRateLimited         Kind = "RATE_LIMITED"
	KindUpstreamUnavailable Kind = "UPSTREAM_UNAVAILABLE"
	KindDeadlineExceeded    Kind = "DEADLINE_EXCEEDED"
	KindInternalError       Kind = "INTERNAL_ERROR"
)

// HTTPStatus returns the HTTP status code for the kind.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindBadRequest:
		return http.StatusBadRequest
	case KindPayloadTooLarge:
		return http.StatusRequestEntityTooLarge
	case KindRateLimited:
		return http.StatusTooManyRequests
	case KindUpstreamUnavailable:
		return http.StatusBadGateway
	case KindDeadlineExceeded:
		return http.StatusRequestTimeout
	default:
		return http.StatusInternalServerError
	}
}

// Message returns the fixed caller-facing message for the kind.
// Internal diagnostic detail is never part of these messages.
func (k Kind) Message() string {
	switch k {
	case KindBadRequest:
		return "Both userImage and clothingImage files are required."
	case KindPayloadTooLarge:
		return "Uploaded image exceeds the size limit."
	case KindRateLimited:
		return "Too many requests. Please try again later."
	case KindUpstreamUnavailable:
		return "The generation service is temporarily unavailable. Please retry."
	case KindDeadlineExceeded:
		return "Image generation took too long to complete."
	default:
		return "An unexpected error occurred."
	}
}

// ErrTimedOut is returned when the poll loop exhausted its wall-clock budget.
var ErrTimedOut = errors.New("generation: timed out waiting for job to complete")

// Classify maps any error from the generation pipeline to a Kind.
// First match wins; anything unclassified is an internal error.
func Classify(err error) Kind {
	if err == nil {
		return KindInternalError
	}

	var maxBytes *http.MaxBytesError
	switch {
	case errors.As(err, &maxBytes):
		return KindPayloadTooLarge

	case errors.Is(err, http.ErrMissingFile),
		errors.Is(err, http.ErrNotMultipart),
		errors.Is(err, upload.ErrEmptyPayload):
		return KindBadRequest

	case errors.Is(err, ErrTimedOut):
		return KindDeadlineExceeded

	case errors.Is(err, upload.ErrAllProvidersFailed),
		errors.Is(err, upload.ErrNoProviders):
		return KindUpstreamUnavailable

	case errors.Is(err, tryon.ErrJobFailed),
		errors.Is(err, tryon.ErrJobCancelled),
		errors.Is(err, tryon.ErrUnexpectedStatus),
		errors.Is(err, tryon.ErrMalformedCompletion),
		errors.Is(err, tryon.ErrNoJobIDReturned),
		errors.Is(err, tryon.ErrRequestFailed):
		return KindUpstreamUnavailable

	default:
		return KindInternalError
	}
}
