package core

import "time"

// Principal is the caller on whose behalf documents are read and provider APIs are called.
// It only ever holds a user id that already passed sanitization. The zero value is the
// unscoped principal used for shared documents.
type Principal struct {
	// UserID is the validated user identifier, empty for shared (non user-scoped) access.
	UserID string
}

// Scoped reports whether the principal carries a user id.
func (p Principal) Scoped() bool {
	return p.UserID != ""
}

func (p Principal) String() string {
	if p.UserID == "" {
		return "(shared)"
	}
	return p.UserID
}

// FreshnessMargin is subtracted from expires_at before an access token is considered usable.
const FreshnessMargin = 60 * time.Second

// Tokens is the persisted OAuth credential set of one (provider, user) pair.
type Tokens struct {
	RefreshToken string `json:"refresh_token,omitempty"`
	AccessToken  string `json:"access_token,omitempty"`
	// ExpiresAt is the access token expiry in epoch seconds.
	ExpiresAt int64 `json:"expires_at,omitempty"`
}

// Fresh reports whether the cached access token can still be used at now.
func (t Tokens) Fresh(now time.Time) bool {
	return t.AccessToken != "" && t.ExpiresAt > now.Add(FreshnessMargin).Unix()
}

// ConnectionState is the lifecycle state of an OAuth connection.
type ConnectionState int

const (
	// StateDisconnected means there is no refresh token, or it was explicitly cleared.
	StateDisconnected ConnectionState = iota
	// StatePending means an authorization URL was handed out and the callback is outstanding.
	StatePending
	// StateConnected means a refresh token and a fresh access token are present.
	StateConnected
	// StateExpiredAccess means the access token is stale but the refresh token is still held.
	StateExpiredAccess
	// StateRevoked means the provider rejected the last refresh attempt.
	StateRevoked
)

func (s ConnectionState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StatePending:
		return "pending"
	case StateConnected:
		return "connected"
	case StateExpiredAccess:
		return "expired-access"
	case StateRevoked:
		return "revoked"
	default:
		return "unknown"
	}
}

// Session is an OAuth connection together with the tokens backing its state.
// Tokens is only meaningful for StateConnected and StateExpiredAccess.
type Session struct {
	State  ConnectionState
	Tokens Tokens
}

// SessionFromTokens derives the state that the stored tokens imply at now.
func SessionFromTokens(t Tokens, now time.Time) Session {
	switch {
	case t.RefreshToken == "":
		return Session{State: StateDisconnected}
	case t.Fresh(now):
		return Session{State: StateConnected, Tokens: t}
	default:
		return Session{State: StateExpiredAccess, Tokens: t}
	}
}

// Usable reports whether the session can produce an access token, possibly after a refresh.
func (s Session) Usable() bool {
	return s.State == StateConnected || s.State == StateExpiredAccess
}

// Athlete is the Strava athlete summary shown next to a Strava connection.
type Athlete struct {
	Username  string `json:"username,omitempty"`
	Firstname string `json:"firstname,omitempty"`
	Lastname  string `json:"lastname,omitempty"`
	Profile   string `json:"profile,omitempty"`
}

// ConnectionInfo is the user-facing connection document of a provider.
type ConnectionInfo struct {
	Connected bool     `json:"connected"`
	Email     string   `json:"email,omitempty"`
	Athlete   *Athlete `json:"athlete,omitempty"`
}
