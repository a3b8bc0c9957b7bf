package providers

import (
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/darmiel/localhub/internal/config"
	"github.com/darmiel/localhub/internal/core"
	"github.com/darmiel/localhub/internal/oauth"
	"github.com/darmiel/localhub/internal/providers/google"
	"github.com/darmiel/localhub/internal/providers/strava"
	"github.com/darmiel/localhub/internal/registry"
)

// Registry holds one session manager per OAuth app, keyed by app id.
type Registry map[string]*oauth.Manager

// BuildRegistry creates the managers for every known provider. Unconfigured providers are
// still registered so their endpoints can answer "not configured".
func BuildRegistry(cfg *config.Config, docs core.DocumentStore, reg *registry.Registry) Registry {
	httpClient := &http.Client{Timeout: cfg.HTTP.ClientTimeout}

	stravaClient := strava.NewHTTPClient(cfg.HTTP.ClientTimeout, cfg.Strava.InsecureTLS)
	if cfg.Strava.InsecureTLS {
		log.Warn().Msg("TLS verification disabled for Strava requests (LOCALHUB_DEV_INSECURE_TLS), development only")
	}

	providers := []oauth.Provider{
		google.NewProvider(google.Options{
			ClientID:     cfg.Google.ClientID,
			ClientSecret: cfg.Google.ClientSecret,
			BaseURL:      cfg.BaseURL,
			HTTPClient:   httpClient,
		}),
		strava.NewProvider(strava.Options{
			ClientID:     cfg.Strava.ClientID,
			ClientSecret: cfg.Strava.ClientSecret,
			BaseURL:      cfg.BaseURL,
			HTTPClient:   stravaClient,
		}),
	}

	result := make(Registry, len(providers))
	for _, p := range providers {
		m := oauth.NewManager(p, docs, reg)
		result[p.AppID] = m
		log.Info().Str("provider", p.AppID).Bool("configured", m.Configured()).Msg("provider.registered")
	}
	return result
}

// Get returns the manager for appID. It panics on unknown ids, which are programming errors.
func (r Registry) Get(appID string) *oauth.Manager {
	m, ok := r[appID]
	if !ok {
		panic("providers: unknown app " + appID)
	}
	return m
}
