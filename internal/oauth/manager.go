package oauth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"

	"github.com/darmiel/localhub/internal/core"
	"github.com/darmiel/localhub/internal/ident"
	"github.com/darmiel/localhub/internal/metrics"
	"github.com/darmiel/localhub/internal/registry"
	"github.com/darmiel/localhub/internal/vault"
)

// Callback failure codes, forwarded to the UI in the redirect query string.
const (
	CodeInvalidCallback = "invalid_callback"
	CodeNotConfigured   = "not_configured"
	CodeTokenFailed     = "token_failed"
	CodeSaveFailed      = "save_failed"
)

// CallbackError aborts an authorization callback.
type CallbackError struct {
	Code string
	Err  error
}

func (e *CallbackError) Error() string {
	if e.Err == nil {
		return "oauth callback: " + e.Code
	}
	return fmt.Sprintf("oauth callback: %s: %v", e.Code, e.Err)
}

func (e *CallbackError) Unwrap() error {
	return e.Err
}

// CallbackCode returns the UI error code for err, defaulting to token_failed.
func CallbackCode(err error) string {
	var cbErr *CallbackError
	if errors.As(err, &cbErr) {
		return cbErr.Code
	}
	return CodeTokenFailed
}

// Manager drives the connect, refresh and disconnect transitions of one provider.
// It holds no per-user state in memory; everything lives in the vault.
type Manager struct {
	provider Provider
	vault    *vault.Vault
	registry *registry.Registry
	client   *http.Client
	now      func() time.Time
}

func NewManager(provider Provider, docs core.DocumentStore, reg *registry.Registry) *Manager {
	client := provider.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Manager{
		provider: provider,
		vault:    vault.New(docs, provider.Keys),
		registry: reg,
		client:   client,
		now:      time.Now,
	}
}

func (m *Manager) AppID() string {
	return m.provider.AppID
}

// Configured reports whether client credentials are present.
func (m *Manager) Configured() bool {
	return m.provider.configured()
}

// HTTPClient is the client used for provider calls, shared with API clients built on the manager.
func (m *Manager) HTTPClient() *http.Client {
	return m.client
}

func (m *Manager) oauthContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, m.client)
}

// AuthURL returns the provider authorization URL for p. The state parameter is the user id.
func (m *Manager) AuthURL(ctx context.Context, p core.Principal) (string, error) {
	if !m.Configured() {
		return "", core.ErrNotConfigured
	}
	if err := ident.RequireScoped(p); err != nil {
		return "", err
	}
	log.Ctx(ctx).Debug().
		Str("provider", m.provider.AppID).
		Str("user", p.UserID).
		Stringer("state", core.StatePending).
		Msg("oauth.authorize")
	return m.provider.Config.AuthCodeURL(p.UserID, m.provider.AuthOptions...), nil
}

// Complete exchanges an authorization code and persists the resulting connection.
// The connection document is written before the token document; a failure on the second
// write leaves the first in place.
func (m *Manager) Complete(ctx context.Context, code, state string) (core.Principal, error) {
	p, err := ident.Principal(state)
	if code == "" || err != nil || !p.Scoped() {
		return core.Principal{}, &CallbackError{Code: CodeInvalidCallback, Err: err}
	}
	if !m.Configured() {
		return p, &CallbackError{Code: CodeNotConfigured, Err: core.ErrNotConfigured}
	}

	logger := log.Ctx(ctx).With().Str("provider", m.provider.AppID).Str("user", p.UserID).Logger()

	tok, err := m.provider.Config.Exchange(m.oauthContext(ctx), code)
	if err != nil {
		metrics.ProviderRequest(m.provider.AppID, "token_exchange", metrics.ResultError)
		logger.Error().Err(err).Msg("oauth.exchange.failed")
		return p, &CallbackError{Code: CodeTokenFailed, Err: err}
	}
	metrics.ProviderRequest(m.provider.AppID, "token_exchange", metrics.ResultOK)

	info := core.ConnectionInfo{}
	if m.provider.Profile != nil {
		info = m.provider.Profile(ctx, m.client, tok)
	}
	info.Connected = true

	tokens := m.tokensFrom(tok, "")

	if err := m.vault.SaveConnection(ctx, p, info); err != nil {
		return p, &CallbackError{Code: CodeSaveFailed, Err: err}
	}
	if err := m.vault.SaveTokens(ctx, p, tokens); err != nil {
		return p, &CallbackError{Code: CodeSaveFailed, Err: err}
	}
	if err := m.registry.SetConnected(ctx, p, m.provider.AppID, true); err != nil {
		logger.Warn().Err(err).Msg("oauth.registry.update_failed")
	}

	logger.Info().
		Stringer("state", core.SessionFromTokens(tokens, m.now()).State).
		Bool("refresh_token", tokens.RefreshToken != "").
		Msg("oauth.connected")
	return p, nil
}

// tokensFrom converts a token response into the persisted form. An omitted refresh token
// falls back to prior.
func (m *Manager) tokensFrom(tok *oauth2.Token, prior string) core.Tokens {
	tokens := core.Tokens{
		RefreshToken: tok.RefreshToken,
		AccessToken:  tok.AccessToken,
	}
	if tokens.RefreshToken == "" {
		tokens.RefreshToken = prior
	}
	if tokens.AccessToken == "" {
		return tokens
	}

	switch {
	case extraInt(tok, "expires_at") > 0:
		tokens.ExpiresAt = extraInt(tok, "expires_at")
	case !tok.Expiry.IsZero():
		tokens.ExpiresAt = tok.Expiry.Unix()
	default:
		tokens.ExpiresAt = m.now().Add(DefaultExpiry).Unix()
	}
	return tokens
}

func extraInt(tok *oauth2.Token, key string) int64 {
	switch v := tok.Extra(key).(type) {
	case float64:
		return int64(v)
	case int64:
		return v
	case int:
		return int64(v)
	case string:
		var n int64
		if _, err := fmt.Sscan(v, &n); err == nil {
			return n
		}
	}
	return 0
}

// Session returns the state implied by the stored tokens.
func (m *Manager) Session(ctx context.Context, p core.Principal) (core.Session, error) {
	tokens, err := m.vault.Tokens(ctx, p)
	if err != nil {
		return core.Session{}, err
	}
	return core.SessionFromTokens(tokens, m.now()), nil
}

// Connection returns the user-facing connection document.
func (m *Manager) Connection(ctx context.Context, p core.Principal) (core.ConnectionInfo, error) {
	return m.vault.Connection(ctx, p)
}

// AccessToken returns an access token valid for at least FreshnessMargin, refreshing it if
// needed. Any refresh failure yields a NotConnectedError; stored tokens are kept so the next
// call retries.
func (m *Manager) AccessToken(ctx context.Context, p core.Principal) (string, error) {
	tokens, err := m.vault.Tokens(ctx, p)
	if err != nil {
		return "", err
	}

	session := core.SessionFromTokens(tokens, m.now())
	switch session.State {
	case core.StateConnected:
		return tokens.AccessToken, nil
	case core.StateExpiredAccess:
		return m.refresh(ctx, p, tokens)
	default:
		return "", m.provider.notConnected()
	}
}

func (m *Manager) refresh(ctx context.Context, p core.Principal, prior core.Tokens) (string, error) {
	logger := log.Ctx(ctx).With().Str("provider", m.provider.AppID).Str("user", p.UserID).Logger()

	if !m.Configured() {
		logger.Warn().Msg("oauth.refresh.not_configured")
		return "", m.provider.notConnected()
	}

	// no access token on the seed so the token source always hits the refresh grant
	src := m.provider.Config.TokenSource(m.oauthContext(ctx), &oauth2.Token{RefreshToken: prior.RefreshToken})
	tok, err := src.Token()
	if err != nil {
		metrics.TokenRefresh(m.provider.AppID, metrics.ResultError)
		state := core.StateExpiredAccess
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) && retrieveErr.Response != nil &&
			(retrieveErr.Response.StatusCode == http.StatusBadRequest || retrieveErr.Response.StatusCode == http.StatusUnauthorized) {
			state = core.StateRevoked
		}
		logger.Warn().Err(err).Stringer("state", state).Msg("oauth.refresh.failed")
		return "", m.provider.notConnected()
	}

	tokens := m.tokensFrom(tok, prior.RefreshToken)
	if err := m.vault.SaveTokens(ctx, p, tokens); err != nil {
		// the token is still good for this request
		logger.Warn().Err(err).Msg("oauth.refresh.persist_failed")
	}
	metrics.TokenRefresh(m.provider.AppID, metrics.ResultOK)
	logger.Debug().Int64("expires_at", tokens.ExpiresAt).Msg("oauth.refreshed")
	return tokens.AccessToken, nil
}

// Disconnect clears the connection and token documents and the registry entry.
// Write failures are logged, never returned; only a missing user scope is an error.
func (m *Manager) Disconnect(ctx context.Context, p core.Principal) error {
	if err := ident.RequireScoped(p); err != nil {
		return err
	}
	logger := log.Ctx(ctx).With().Str("provider", m.provider.AppID).Str("user", p.UserID).Logger()

	if err := m.vault.SaveConnection(ctx, p, core.ConnectionInfo{Connected: false}); err != nil {
		logger.Warn().Err(err).Msg("oauth.disconnect.connection_write_failed")
	}
	if err := m.vault.ClearTokens(ctx, p); err != nil {
		logger.Warn().Err(err).Msg("oauth.disconnect.tokens_write_failed")
	}
	if err := m.registry.SetConnected(ctx, p, m.provider.AppID, false); err != nil {
		logger.Warn().Err(err).Msg("oauth.disconnect.registry_failed")
	}
	logger.Info().Stringer("state", core.StateDisconnected).Msg("oauth.disconnected")
	return nil
}
