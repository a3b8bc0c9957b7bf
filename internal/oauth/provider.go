// Package oauth implements the per-provider OAuth session lifecycle on top of the token vault.
package oauth

import (
	"context"
	"net/http"
	"time"

	"golang.org/x/oauth2"

	"github.com/darmiel/localhub/internal/core"
	"github.com/darmiel/localhub/internal/vault"
)

// DefaultExpiry is assumed when a token response carries neither expires_at nor expires_in.
const DefaultExpiry = 3500 * time.Second

// ProfileFunc extracts the user-facing connection details from a fresh token.
// It must not fail the connect flow; missing details are simply left empty.
type ProfileFunc func(ctx context.Context, client *http.Client, tok *oauth2.Token) core.ConnectionInfo

// Provider describes one OAuth integration.
type Provider struct {
	// AppID is the connection registry id and the prefix of the not-connected code.
	AppID string
	// Name is used in log lines and user-facing messages, e.g. "Google Calendar".
	Name string
	// Keys locates the connection and token documents.
	Keys vault.Keys
	// Config holds client credentials, endpoints, scopes and the redirect URL.
	Config *oauth2.Config
	// AuthOptions are appended to every authorization URL.
	AuthOptions []oauth2.AuthCodeOption
	// HTTPClient is used for token and profile requests. Defaults to a 30s timeout client.
	HTTPClient *http.Client
	// Profile is optional.
	Profile ProfileFunc
}

func (p Provider) configured() bool {
	return p.Config != nil && p.Config.ClientID != "" && p.Config.ClientSecret != ""
}

func (p Provider) notConnected() *core.NotConnectedError {
	return &core.NotConnectedError{App: p.AppID, Message: "Not connected to " + p.Name}
}
