package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/darmiel/localhub/internal/api/presenter"
	"github.com/darmiel/localhub/internal/buildinfo"
	"github.com/darmiel/localhub/internal/core"
	"github.com/darmiel/localhub/internal/registry"
)

// isoMillis matches JavaScript's Date.toISOString.
const isoMillis = "2006-01-02T15:04:05.000Z07:00"

type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	presenter.JSON(w, r, HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(isoMillis),
	}, http.StatusOK)
}

// handleAbout responds with service information including version and commit hash.
func (s *Server) handleAbout(w http.ResponseWriter, r *http.Request) {
	presenter.JSON(w, r, buildinfo.GetBuildInfo(), http.StatusOK)
}

type ListUsersResponse struct {
	Users []registry.UserSummary `json:"users"`
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.registry.ListUsers(r.Context())
	if err != nil {
		presenter.Err(w, r, err, "Failed to list users")
		return
	}
	presenter.JSON(w, r, ListUsersResponse{Users: users}, http.StatusOK)
}

// DecodePayload decodes a JSON request body into dest. Unknown fields are ignored since the
// UI sends whole view models.
func DecodePayload(r *http.Request, dest any, allowEmpty bool) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dest); err != nil {
		if errors.Is(err, io.EOF) && allowEmpty {
			return nil
		}
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			return err
		}
		return fmt.Errorf("%w: %v", core.ErrInvalidRequest, err)
	}
	// ensure there's no extra data
	if dec.More() {
		return fmt.Errorf("%w: extra data in request body", core.ErrInvalidRequest)
	}
	return nil
}

// userMessage is the short error text the UI shows for err. upstream names the failed
// provider operation.
func userMessage(err error, upstream string) string {
	switch {
	case errors.Is(err, core.ErrMissingUserContext), errors.Is(err, core.ErrInvalidIdentifier):
		return "Missing or invalid X-User-Id header"
	case errors.Is(err, core.ErrUpstream):
		return upstream
	case errors.Is(err, core.ErrWriteFailed):
		return "Write failed"
	case errors.Is(err, core.ErrInvalidRequest):
		return "Invalid request body"
	default:
		return ""
	}
}
