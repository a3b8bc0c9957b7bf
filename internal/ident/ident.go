// Package ident validates the identifiers that address documents and OAuth connections.
// Every identifier coming from a request passes through here before any filesystem or
// network operation; a rejected identifier never reaches the store or the OAuth layer.
package ident

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/darmiel/localhub/internal/core"
)

// UserIDHeader is the request header carrying the caller's user id.
const UserIDHeader = "X-User-Id"

var (
	pluginIDPattern = regexp.MustCompile(`^[a-z0-9-]+$`)
	keyPattern      = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
	userIDPattern   = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,128}$`)
)

// Sanitizer validates identifiers. An empty allow-list allows every well-formed plugin id.
type Sanitizer struct {
	allowed map[string]struct{}
}

func NewSanitizer(allowedPluginIDs []string) *Sanitizer {
	allowed := make(map[string]struct{}, len(allowedPluginIDs))
	for _, id := range allowedPluginIDs {
		if id = strings.TrimSpace(id); id != "" {
			allowed[id] = struct{}{}
		}
	}
	return &Sanitizer{allowed: allowed}
}

// PluginID returns pluginID unchanged if it is well-formed and allowed.
func (s *Sanitizer) PluginID(pluginID string) (string, error) {
	if !pluginIDPattern.MatchString(pluginID) {
		return "", fmt.Errorf("%w: plugin id %q", core.ErrInvalidIdentifier, pluginID)
	}
	if len(s.allowed) > 0 {
		if _, ok := s.allowed[pluginID]; !ok {
			return "", fmt.Errorf("%w: plugin id %q is not allowed", core.ErrInvalidIdentifier, pluginID)
		}
	}
	return pluginID, nil
}

// Key returns key unchanged if it is well-formed.
func Key(key string) (string, error) {
	if !keyPattern.MatchString(key) {
		return "", fmt.Errorf("%w: key %q", core.ErrInvalidIdentifier, key)
	}
	return key, nil
}

// ValidUserID reports whether id is a well-formed user id without trimming.
func ValidUserID(id string) bool {
	return userIDPattern.MatchString(id)
}

// Principal builds an optional user scope from a raw user id.
// An empty raw id yields the unscoped principal; anything else must be valid after trimming.
func Principal(raw string) (core.Principal, error) {
	if raw == "" {
		return core.Principal{}, nil
	}
	trimmed := strings.TrimSpace(raw)
	if !userIDPattern.MatchString(trimmed) {
		return core.Principal{}, fmt.Errorf("%w: user id", core.ErrInvalidIdentifier)
	}
	return core.Principal{UserID: trimmed}, nil
}

// RequirePrincipal is Principal for operations that need a user scope.
func RequirePrincipal(raw string) (core.Principal, error) {
	if strings.TrimSpace(raw) == "" {
		return core.Principal{}, core.ErrMissingUserContext
	}
	return Principal(raw)
}

// RequireScoped checks that an already-built principal carries a valid user id.
func RequireScoped(p core.Principal) error {
	if !p.Scoped() {
		return core.ErrMissingUserContext
	}
	if !userIDPattern.MatchString(p.UserID) {
		return fmt.Errorf("%w: user id", core.ErrInvalidIdentifier)
	}
	return nil
}
