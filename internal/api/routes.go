package api

const (
	HealthCheckRoute = "/api/health"
	AboutRoute       = "/api/about"
	MetricsRoute     = "/metrics"

	PluginsParent = "/api/plugins/"

	ListUsersRoute = PluginsParent + "user-management/users"

	StoreRoute    = PluginsParent + "{pluginId}/store"
	DocumentRoute = StoreRoute + "/{key}"

	GoogleParent             = PluginsParent + "calendar/google/"
	GoogleAuthURLRoute       = GoogleParent + "auth-url"
	GoogleCallbackRoute      = GoogleParent + "callback"
	GoogleConnectionRoute    = GoogleParent + "connection"
	GoogleDisconnectRoute    = GoogleParent + "disconnect"
	GoogleEventsRoute        = GoogleParent + "events"
	GoogleDeleteEventsRoute  = GoogleEventsRoute + "/delete"
	GoogleTrackedRoute       = GoogleEventsRoute + "/tracked"
	GoogleClearTrackedRoute  = GoogleTrackedRoute + "/delete"
	GoogleReplaceEventsRoute = GoogleEventsRoute + "/replace"

	StravaParent          = PluginsParent + "strava/"
	StravaAuthURLRoute    = StravaParent + "auth-url"
	StravaCallbackRoute   = StravaParent + "callback"
	StravaActivitiesRoute = StravaParent + "activities"
	StravaConnectionRoute = StravaParent + "connection"
	StravaDisconnectRoute = StravaParent + "disconnect"
)
