// Package google wires the Google Calendar OAuth app.
package google

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"

	"github.com/darmiel/localhub/internal/core"
	"github.com/darmiel/localhub/internal/oauth"
	"github.com/darmiel/localhub/internal/vault"
)

const (
	AppID         = "calendar"
	PluginID      = "calendar"
	ConnectionKey = "google-calendar"
	TokensKey     = "google-calendar-tokens"

	CallbackPath = "/api/plugins/calendar/google/callback"

	AuthURL     = "https://accounts.google.com/o/oauth2/v2/auth"
	TokenURL    = "https://oauth2.googleapis.com/token"
	UserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"
)

var Scopes = []string{
	"openid",
	"email",
	"https://www.googleapis.com/auth/calendar.readonly",
	"https://www.googleapis.com/auth/calendar.events",
}

type Options struct {
	ClientID     string
	ClientSecret string
	// BaseURL is the public URL of this server; the callback path is appended.
	BaseURL    string
	HTTPClient *http.Client

	// Endpoint and UserInfoURL override the Google endpoints, for tests.
	Endpoint    *oauth2.Endpoint
	UserInfoURL string
}

func NewProvider(opts Options) oauth.Provider {
	endpoint := oauth2.Endpoint{AuthURL: AuthURL, TokenURL: TokenURL, AuthStyle: oauth2.AuthStyleInParams}
	if opts.Endpoint != nil {
		endpoint = *opts.Endpoint
	}
	userInfoURL := opts.UserInfoURL
	if userInfoURL == "" {
		userInfoURL = UserInfoURL
	}

	return oauth.Provider{
		AppID: AppID,
		Name:  "Google Calendar",
		Keys:  vault.Keys{PluginID: PluginID, Connection: ConnectionKey, Tokens: TokensKey},
		Config: &oauth2.Config{
			ClientID:     opts.ClientID,
			ClientSecret: opts.ClientSecret,
			Endpoint:     endpoint,
			RedirectURL:  opts.BaseURL + CallbackPath,
			Scopes:       Scopes,
		},
		AuthOptions: []oauth2.AuthCodeOption{
			oauth2.AccessTypeOffline,
			oauth2.SetAuthURLParam("prompt", "consent"),
		},
		HTTPClient: opts.HTTPClient,
		Profile:    emailProfile(userInfoURL),
	}
}

// emailProfile looks up the account email. Failures only cost the email in the UI.
func emailProfile(userInfoURL string) oauth.ProfileFunc {
	return func(ctx context.Context, client *http.Client, tok *oauth2.Token) core.ConnectionInfo {
		if tok.AccessToken == "" {
			return core.ConnectionInfo{}
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, userInfoURL, nil)
		if err != nil {
			return core.ConnectionInfo{}
		}
		req.Header.Set("Authorization", "Bearer "+tok.AccessToken)

		resp, err := client.Do(req)
		if err != nil {
			log.Ctx(ctx).Debug().Err(err).Msg("google.userinfo.failed")
			return core.ConnectionInfo{}
		}
		defer func() {
			_ = resp.Body.Close()
		}()
		if resp.StatusCode != http.StatusOK {
			log.Ctx(ctx).Debug().Int("status", resp.StatusCode).Msg("google.userinfo.failed")
			return core.ConnectionInfo{}
		}

		var user struct {
			Email string `json:"email"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
			return core.ConnectionInfo{}
		}
		return core.ConnectionInfo{Email: user.Email}
	}
}
