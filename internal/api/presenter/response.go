package presenter

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/darmiel/localhub/internal/core"
)

// correlationHeader mirrors middleware.CorrelationIDHeader, which is set before handlers run.
const correlationHeader = "X-Correlation-ID"

type ErrorResponse struct {
	Error         string `json:"error"`
	Code          string `json:"code,omitempty"`
	CorrelationID string `json:"correlation_id,omitempty"`
}

func JSON(w http.ResponseWriter, r *http.Request, data any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Ctx(r.Context()).Error().Err(err).Msg("failed to write json response")
	}
}

func Error(w http.ResponseWriter, r *http.Request, msg string, status int) {
	ErrorCode(w, r, msg, "", status)
}

// ErrorCode writes an error body with a machine-readable code clients can act on.
func ErrorCode(w http.ResponseWriter, r *http.Request, msg, code string, status int) {
	JSON(w, r, ErrorResponse{
		Error:         msg,
		Code:          code,
		CorrelationID: w.Header().Get(correlationHeader),
	}, status)
}

// StatusOf maps an error of the core taxonomy to its HTTP status.
func StatusOf(err error) int {
	var maxBytes *http.MaxBytesError
	switch {
	case errors.As(err, &maxBytes):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, core.ErrInvalidIdentifier),
		errors.Is(err, core.ErrMissingUserContext),
		errors.Is(err, core.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrNotConnected):
		return http.StatusForbidden
	case errors.Is(err, core.ErrUpstream):
		return http.StatusBadGateway
	case errors.Is(err, core.ErrNotConfigured):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Err writes err with the status from StatusOf. short replaces the error text in the body;
// not-connected errors always carry their own message and reconnect code.
func Err(w http.ResponseWriter, r *http.Request, err error, short string) {
	status := StatusOf(err)

	var notConnected *core.NotConnectedError
	if errors.As(err, &notConnected) {
		ErrorCode(w, r, notConnected.Error(), notConnected.Code(), status)
		return
	}

	if status >= http.StatusInternalServerError {
		log.Ctx(r.Context()).Error().Err(err).Int("status", status).Msg("request.failed")
	}

	msg := short
	if msg == "" {
		msg = err.Error()
	}
	Error(w, r, msg, status)
}
