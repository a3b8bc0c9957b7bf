package api

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"github.com/darmiel/localhub/internal/api/middleware"
	"github.com/darmiel/localhub/internal/api/presenter"
	"github.com/darmiel/localhub/internal/calendar"
	"github.com/darmiel/localhub/internal/core"
)

const fetchEventsFailed = "Failed to fetch calendar events"

func (s *Server) handleGoogleCallback(w http.ResponseWriter, r *http.Request) {
	target := s.corsOrigin + "/plugins/calendar?connected=1"
	if code := s.completeCallback(s.google, r); code != "" {
		target = s.corsOrigin + "/plugins/calendar?error=" + url.QueryEscape(code)
	}
	http.Redirect(w, r, target, http.StatusFound)
}

type EventsResponse struct {
	Events []calendar.Event `json:"events"`
}

func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	year, yearErr := strconv.Atoi(r.URL.Query().Get("year"))
	month, monthErr := strconv.Atoi(r.URL.Query().Get("month"))
	if yearErr != nil || monthErr != nil {
		presenter.Error(w, r, "Invalid year or month", http.StatusBadRequest)
		return
	}

	events, err := s.calendar.ListEvents(r.Context(), middleware.PrincipalCtx(r.Context()), year, month)
	if err != nil {
		if errors.Is(err, core.ErrInvalidRequest) {
			presenter.Error(w, r, "Invalid year or month", http.StatusBadRequest)
			return
		}
		presenter.Err(w, r, err, userMessage(err, fetchEventsFailed))
		return
	}
	presenter.JSON(w, r, EventsResponse{Events: events}, http.StatusOK)
}

type CreateEventsRequest struct {
	Events  []calendar.NewEvent `json:"events"`
	ColorID string              `json:"colorId"`
}

func (s *Server) handleCreateEvents(w http.ResponseWriter, r *http.Request) {
	var payload CreateEventsRequest
	if err := DecodePayload(r, &payload, true); err != nil {
		presenter.Err(w, r, err, userMessage(err, ""))
		return
	}
	if len(payload.Events) == 0 {
		presenter.Error(w, r, "No events provided", http.StatusBadRequest)
		return
	}

	result, err := s.calendar.CreateEvents(r.Context(), middleware.PrincipalCtx(r.Context()), payload.Events, payload.ColorID)
	if err != nil {
		presenter.Err(w, r, err, userMessage(err, "Failed to create calendar events"))
		return
	}
	presenter.JSON(w, r, result, http.StatusOK)
}

type DeleteEventsRequest struct {
	EventIDs []string `json:"eventIds"`
}

func (s *Server) handleDeleteEvents(w http.ResponseWriter, r *http.Request) {
	var payload DeleteEventsRequest
	if err := DecodePayload(r, &payload, true); err != nil {
		presenter.Err(w, r, err, userMessage(err, ""))
		return
	}

	result, err := s.calendar.DeleteEvents(r.Context(), middleware.PrincipalCtx(r.Context()), payload.EventIDs)
	if err != nil {
		presenter.Err(w, r, err, userMessage(err, "Failed to delete calendar events"))
		return
	}
	presenter.JSON(w, r, result, http.StatusOK)
}

type TrackedEventsResponse struct {
	EventIDs []string `json:"eventIds"`
}

func (s *Server) handleTrackedEvents(w http.ResponseWriter, r *http.Request) {
	ids, err := s.calendar.TrackedEvents(r.Context(), middleware.PrincipalCtx(r.Context()))
	if err != nil {
		presenter.Err(w, r, err, userMessage(err, ""))
		return
	}
	presenter.JSON(w, r, TrackedEventsResponse{EventIDs: ids}, http.StatusOK)
}

// handleReplaceEvents swaps the tracked generation of events for a new batch.
func (s *Server) handleReplaceEvents(w http.ResponseWriter, r *http.Request) {
	var payload CreateEventsRequest
	if err := DecodePayload(r, &payload, true); err != nil {
		presenter.Err(w, r, err, userMessage(err, ""))
		return
	}

	result, err := s.calendar.ReplaceTrackedEvents(r.Context(), middleware.PrincipalCtx(r.Context()), payload.Events, payload.ColorID)
	if err != nil {
		presenter.Err(w, r, err, userMessage(err, "Failed to replace calendar events"))
		return
	}
	presenter.JSON(w, r, result, http.StatusOK)
}

func (s *Server) handleClearTracked(w http.ResponseWriter, r *http.Request) {
	result, err := s.calendar.ClearTrackedEvents(r.Context(), middleware.PrincipalCtx(r.Context()))
	if err != nil {
		presenter.Err(w, r, err, userMessage(err, "Failed to delete calendar events"))
		return
	}
	presenter.JSON(w, r, result, http.StatusOK)
}
