package api

import (
	"net/http"

	"github.com/darmiel/localhub/internal/api/middleware"
	"github.com/darmiel/localhub/internal/calendar"
	"github.com/darmiel/localhub/internal/core"
	"github.com/darmiel/localhub/internal/metrics"
	"github.com/darmiel/localhub/internal/oauth"
	"github.com/darmiel/localhub/internal/providers/strava"
	"github.com/darmiel/localhub/internal/registry"
)

// Deps are the components the HTTP surface is built on.
type Deps struct {
	Docs       core.DocumentStore
	Registry   *registry.Registry
	Google     *oauth.Manager
	Strava     *oauth.Manager
	Calendar   *calendar.Gateway
	Activities *strava.Client

	// CORSOrigin is the UI origin; OAuth callbacks redirect there.
	CORSOrigin string
	// PublicDir optionally serves the built frontend.
	PublicDir string
}

type Server struct {
	docs       core.DocumentStore
	registry   *registry.Registry
	google     *oauth.Manager
	strava     *oauth.Manager
	calendar   *calendar.Gateway
	activities *strava.Client

	corsOrigin string
	publicDir  string
}

func NewServer(deps Deps) *Server {
	return &Server{
		docs:       deps.Docs,
		registry:   deps.Registry,
		google:     deps.Google,
		strava:     deps.Strava,
		calendar:   deps.Calendar,
		activities: deps.Activities,
		corsOrigin: deps.CORSOrigin,
		publicDir:  deps.PublicDir,
	}
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	user := middleware.RequireUser

	// public routes
	mux.HandleFunc("GET "+HealthCheckRoute, s.handleHealth)
	mux.HandleFunc("GET "+AboutRoute, s.handleAbout)
	mux.Handle("GET "+MetricsRoute, metrics.Handler())

	// document store
	mux.HandleFunc("GET "+ListUsersRoute, s.handleListUsers)
	mux.HandleFunc("GET "+StoreRoute, s.handleListKeys)
	mux.HandleFunc("GET "+DocumentRoute, s.handleGetDocument)
	mux.HandleFunc("PUT "+DocumentRoute, s.handlePutDocument)

	// google calendar
	mux.HandleFunc("GET "+GoogleAuthURLRoute, s.handleAuthURL(s.google,
		"Google Calendar is not configured. Set GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET."))
	mux.HandleFunc("GET "+GoogleCallbackRoute, s.handleGoogleCallback)
	mux.Handle("GET "+GoogleConnectionRoute, user(s.handleConnection(s.google)))
	mux.Handle("POST "+GoogleDisconnectRoute, user(s.handleDisconnect(s.google)))
	mux.Handle("GET "+GoogleEventsRoute, user(http.HandlerFunc(s.handleListEvents)))
	mux.Handle("POST "+GoogleEventsRoute, user(http.HandlerFunc(s.handleCreateEvents)))
	mux.Handle("POST "+GoogleDeleteEventsRoute, user(http.HandlerFunc(s.handleDeleteEvents)))
	mux.Handle("GET "+GoogleTrackedRoute, user(http.HandlerFunc(s.handleTrackedEvents)))
	mux.Handle("POST "+GoogleReplaceEventsRoute, user(http.HandlerFunc(s.handleReplaceEvents)))
	mux.Handle("POST "+GoogleClearTrackedRoute, user(http.HandlerFunc(s.handleClearTracked)))

	// strava
	mux.HandleFunc("GET "+StravaAuthURLRoute, s.handleAuthURL(s.strava,
		"Strava is not configured. Set STRAVA_CLIENT_ID and STRAVA_CLIENT_SECRET."))
	mux.HandleFunc("GET "+StravaCallbackRoute, s.handleStravaCallback)
	mux.Handle("GET "+StravaActivitiesRoute, user(http.HandlerFunc(s.handleActivities)))
	mux.Handle("GET "+StravaConnectionRoute, user(s.handleConnection(s.strava)))
	mux.Handle("POST "+StravaDisconnectRoute, user(s.handleDisconnect(s.strava)))

	if s.publicDir != "" {
		mux.Handle("GET /", s.spaHandler())
	}

	return middleware.RecoverMiddleware(
		middleware.CorrelationIDMiddleware(
			middleware.LoggingMiddleware(
				middleware.CORS(s.corsOrigin)(
					middleware.BodyLimit(middleware.MaxBodyBytes)(
						mux)))))
}
