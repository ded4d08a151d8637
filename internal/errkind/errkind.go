// Package errkind defines the closed set of error categories the proxy
// can surface and their HTTP status mapping (spec.md §7).
package errkind

import (
	"net/http"
	"time"
)

// Kind is a closed enum; callers should type-switch or compare by value,
// never extend it with new string constants at call sites.
type Kind string

const (
	// ClientValidation means the request was malformed before any
	// backend call was attempted.
	ClientValidation Kind = "client_validation"
	// Unauthorized means the backend rejected credentials; its status is
	// forwarded unchanged.
	Unauthorized Kind = "unauthorized"
	// BackendUpstream means the backend responded with an error status
	// (5xx, or a 4xx other than 401/403/429), or its reply could not be
	// translated for the client.
	BackendUpstream Kind = "backend_upstream"
	// BackendUnreachable means the backend could not be reached at all
	// (network error, timeout).
	BackendUnreachable Kind = "backend_unreachable"
	// BackendRateLimited means the backend responded 429; by the time
	// this reaches a handler, retries have already been exhausted.
	BackendRateLimited Kind = "backend_rate_limited"
	// StreamInterrupted means the client disconnected mid-stream; it is
	// logged only and never turned into a response.
	StreamInterrupted Kind = "stream_interrupted"
	// ParserInvariant means the XML tool-call parser hit a state its
	// invariants say cannot happen; it is logged only, never surfaced to
	// a client.
	ParserInvariant Kind = "parser_invariant"
)

// Error pairs a Kind with the message and, for backend-originated errors,
// the upstream body excerpt.
type Error struct {
	Kind    Kind
	Message string
	Status  int
	// RetryAfter carries the backend's Retry-After hint for a
	// BackendRateLimited error; zero when absent.
	RetryAfter time.Duration
}

func (e *Error) Error() string {
	return e.Message
}

// New constructs an *Error, filling Status from the kind's default
// mapping unless status is explicitly overridden (used for Unauthorized
// and BackendUpstream, which forward the backend's own status).
func New(kind Kind, message string, status int) *Error {
	if status == 0 {
		status = StatusFor(kind)
	}
	return &Error{Kind: kind, Message: message, Status: status}
}

// StatusFor returns the default HTTP status for a Kind. StreamInterrupted
// and ParserInvariant have no client-facing status: they are never
// written to a response.
func StatusFor(kind Kind) int {
	switch kind {
	case ClientValidation:
		return http.StatusBadRequest
	case Unauthorized:
		return http.StatusUnauthorized
	case BackendUpstream:
		return http.StatusBadGateway
	case BackendUnreachable:
		return http.StatusGatewayTimeout
	case BackendRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
