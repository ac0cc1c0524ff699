// Package correlation provides correlation-ID generation for inbound requests.
package correlation

import "github.com/google/uuid"

// New returns a fresh correlation ID.
// IDs are UUIDv4 strings: uniqueness is probabilistic, not guaranteed.
// The same ID is used as the backend request_id, the requestId echoed in
// error responses, and the request_id log field.
func New() string {
	return uuid.NewString()
}
