// Package strava wires the Strava OAuth app and the activities API.
package strava

import (
	"context"
	"crypto/tls"
	"net/http"
	"time"

	"golang.org/x/oauth2"

	"github.com/darmiel/localhub/internal/core"
	"github.com/darmiel/localhub/internal/oauth"
	"github.com/darmiel/localhub/internal/vault"
)

const (
	AppID         = "strava"
	PluginID      = "strava"
	ConnectionKey = "strava-connection"
	TokensKey     = "strava-tokens"

	CallbackPath = "/api/plugins/strava/callback"

	AuthURL  = "https://www.strava.com/oauth/authorize"
	TokenURL = "https://www.strava.com/oauth/token"
	APIURL   = "https://www.strava.com/api/v3"

	Scope = "activity:read_all"
)

type Options struct {
	ClientID     string
	ClientSecret string
	BaseURL      string
	HTTPClient   *http.Client

	// Endpoint overrides the Strava endpoints, for tests.
	Endpoint *oauth2.Endpoint
}

// NewHTTPClient returns the client used for all Strava calls. insecureTLS skips certificate
// verification and must only be used behind intercepting proxies in development.
func NewHTTPClient(timeout time.Duration, insecureTLS bool) *http.Client {
	client := &http.Client{Timeout: timeout}
	if insecureTLS {
		transport := http.DefaultTransport.(*http.Transport).Clone()
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // opt-in dev flag
		client.Transport = transport
	}
	return client
}

func NewProvider(opts Options) oauth.Provider {
	endpoint := oauth2.Endpoint{AuthURL: AuthURL, TokenURL: TokenURL, AuthStyle: oauth2.AuthStyleInParams}
	if opts.Endpoint != nil {
		endpoint = *opts.Endpoint
	}
	return oauth.Provider{
		AppID: AppID,
		Name:  "Strava",
		Keys:  vault.Keys{PluginID: PluginID, Connection: ConnectionKey, Tokens: TokensKey},
		Config: &oauth2.Config{
			ClientID:     opts.ClientID,
			ClientSecret: opts.ClientSecret,
			Endpoint:     endpoint,
			RedirectURL:  opts.BaseURL + CallbackPath,
			Scopes:       []string{Scope},
		},
		AuthOptions: []oauth2.AuthCodeOption{oauth2.SetAuthURLParam("approval_prompt", "force")},
		HTTPClient:  opts.HTTPClient,
		Profile:     athleteProfile,
	}
}

// athleteProfile reads the athlete summary Strava embeds in the token response.
func athleteProfile(_ context.Context, _ *http.Client, tok *oauth2.Token) core.ConnectionInfo {
	raw, ok := tok.Extra("athlete").(map[string]any)
	if !ok {
		return core.ConnectionInfo{}
	}
	str := func(key string) string {
		s, _ := raw[key].(string)
		return s
	}
	athlete := &core.Athlete{
		Username:  str("username"),
		Firstname: str("firstname"),
		Lastname:  str("lastname"),
		Profile:   str("profile"),
	}
	if athlete.Profile == "" {
		athlete.Profile = str("profile_medium")
	}
	return core.ConnectionInfo{Athlete: athlete}
}
