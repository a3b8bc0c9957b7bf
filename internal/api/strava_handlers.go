package api

import (
	"net/http"
	"net/url"
	"strconv"

	"github.com/darmiel/localhub/internal/api/middleware"
	"github.com/darmiel/localhub/internal/api/presenter"
	"github.com/darmiel/localhub/internal/providers/strava"
)

func (s *Server) handleStravaCallback(w http.ResponseWriter, r *http.Request) {
	target := s.corsOrigin + "/plugins/runner/recent?strava=connected"
	if code := s.completeCallback(s.strava, r); code != "" {
		target = s.corsOrigin + "/plugins/runner/recent?strava=error&message=" + url.QueryEscape(code)
	}
	http.Redirect(w, r, target, http.StatusFound)
}

type ActivitiesResponse struct {
	Activities []strava.Activity `json:"activities"`
}

// handleActivities lists recent activities. Unparsable paging values fall back to defaults.
func (s *Server) handleActivities(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))

	activities, err := s.activities.Activities(r.Context(), middleware.PrincipalCtx(r.Context()), page, perPage)
	if err != nil {
		presenter.Err(w, r, err, userMessage(err, "Failed to fetch Strava activities"))
		return
	}
	presenter.JSON(w, r, ActivitiesResponse{Activities: activities}, http.StatusOK)
}
