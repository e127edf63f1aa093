// Package apierr defines the gateway's error taxonomy and the single
// boundary translator that turns any failure into the wire envelope.
//
// DESIGN: Four kinds, each with a fixed HTTP status:
//   - KindValidation:  400, client sent a malformed request
//   - KindRateLimit:   429, admission window exhausted
//   - KindExternalAPI: 502, upstream generation failed after retries
//   - KindInternal:    500, everything else (incl. email transport)
//
// Handlers return errors; only Write touches the ResponseWriter. Clients
// never see stack traces or raw upstream payloads.
package apierr

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"
)

// Kind classifies a failure.
type Kind int

const (
	// KindInternal is the default for unclassified failures.
	KindInternal Kind = iota
	// KindValidation marks input that failed schema/shape checks.
	KindValidation
	// KindRateLimit marks an admission rejection.
	KindRateLimit
	// KindExternalAPI marks an exhausted or malformed upstream call.
	KindExternalAPI
)

// Error is a tagged gateway error.
type Error struct {
	Kind    Kind
	Message string
	Detail  string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Detail != "" {
		return e.Message + ": " + e.Detail
	}
	return e.Message
}

// Status maps the kind to its HTTP status code.
func (e *Error) Status() int {
	switch e.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindRateLimit:
		return http.StatusTooManyRequests
	case KindExternalAPI:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Validation builds a 400-class error naming the violated constraint.
func Validation(message, detail string) *Error {
	return &Error{Kind: KindValidation, Message: message, Detail: detail}
}

// RateLimit builds a 429-class error with a route-specific message.
func RateLimit(message string) *Error {
	return &Error{Kind: KindRateLimit, Message: message}
}

// External builds a 502-class error carrying the upstream's message when
// available.
func External(message, detail string) *Error {
	return &Error{Kind: KindExternalAPI, Message: message, Detail: detail}
}

// Internal builds a 500-class error. The detail is logged, never sent.
func Internal(message, detail string) *Error {
	return &Error{Kind: KindInternal, Message: message, Detail: detail}
}

// FromError classifies err. Tagged errors pass through; anything else is
// degraded to KindInternal so no failure path can leak past the boundary.
func FromError(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return &Error{Kind: KindInternal, Message: "internal server error", Detail: err.Error()}
}

// Envelope is the only failure shape ever sent to a client.
type Envelope struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// WriteStatus emits the envelope for pipeline-level rejections that carry
// their own status (CORS, unknown route, method mismatch) without minting an
// error value first.
func WriteStatus(w http.ResponseWriter, requestID string, status int, message string) {
	log.Warn().
		Str("request_id", requestID).
		Int("status", status).
		Str("error", message).
		Msg("request rejected")
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(Envelope{Error: message})
}

// Write translates err to the wire format: kind → status, envelope body,
// warn logging for 4xx and error logging for 5xx. Internal details are
// withheld from the wire but logged in full.
func Write(w http.ResponseWriter, requestID string, err error) {
	e := FromError(err)
	status := e.Status()

	env := Envelope{Error: e.Message, Details: e.Detail}
	if e.Kind == KindInternal {
		env.Error = "internal server error"
		env.Details = ""
	}

	if status >= 500 {
		log.Error().
			Str("request_id", requestID).
			Int("status", status).
			Str("error", e.Message).
			Str("detail", e.Detail).
			Msg("server error")
	} else {
		log.Warn().
			Str("request_id", requestID).
			Int("status", status).
			Str("error", e.Message).
			Msg("client error")
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(env)
}
