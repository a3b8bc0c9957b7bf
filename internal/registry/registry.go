// Package registry maintains the connectedApps list on user profiles.
//
// The list is a UI-facing cache of OAuth state, never the source of truth for whether tokens
// exist. Updates are unlocked read-modify-write cycles; a stale entry self-corrects on the
// next connect or disconnect.
package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	"github.com/darmiel/localhub/internal/core"
	"github.com/darmiel/localhub/internal/ident"
)

const (
	UserManagementPluginID = "user-management"
	ProfileKey             = "profile"

	connectedAppsField = "connectedApps"
	defaultEmoji       = "👤"
)

// UserSummary is one entry of the user listing.
type UserSummary struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Emoji string `json:"emoji"`
}

type Registry struct {
	docs core.DocumentStore
}

func New(docs core.DocumentStore) *Registry {
	return &Registry{docs: docs}
}

// profile loads the user's profile as a field map. A user without a profile of their own
// inherits the legacy shared profile, which is how single-user installs migrate.
func (r *Registry) profile(ctx context.Context, p core.Principal) (map[string]json.RawMessage, error) {
	value, err := r.docs.Get(ctx, UserManagementPluginID, ProfileKey, p)
	if errors.Is(err, core.ErrNotFound) {
		value, err = r.docs.Get(ctx, UserManagementPluginID, ProfileKey, core.Principal{})
	}
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return map[string]json.RawMessage{}, nil
		}
		return nil, err
	}

	fields := map[string]json.RawMessage{}
	if value.Kind() == core.KindObject {
		_ = value.Decode(&fields)
	}
	return fields, nil
}

func appsOf(fields map[string]json.RawMessage) []string {
	var raw []any
	if data, ok := fields[connectedAppsField]; ok {
		_ = json.Unmarshal(data, &raw)
	}
	apps := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			apps = append(apps, s)
		}
	}
	return apps
}

// ConnectedApps returns the app ids recorded as connected for the user.
func (r *Registry) ConnectedApps(ctx context.Context, p core.Principal) ([]string, error) {
	if err := ident.RequireScoped(p); err != nil {
		return nil, err
	}
	fields, err := r.profile(ctx, p)
	if err != nil {
		return nil, err
	}
	return appsOf(fields), nil
}

// SetConnected adds or removes appID from the user's connectedApps and writes the profile
// back to the user's scope. All other profile fields are preserved.
func (r *Registry) SetConnected(ctx context.Context, p core.Principal, appID string, connected bool) error {
	if err := ident.RequireScoped(p); err != nil {
		return err
	}
	fields, err := r.profile(ctx, p)
	if err != nil {
		return err
	}

	apps := appsOf(fields)
	if connected {
		if !slices.Contains(apps, appID) {
			apps = append(apps, appID)
		}
	} else {
		apps = slices.DeleteFunc(apps, func(a string) bool { return a == appID })
	}

	encoded, err := json.Marshal(apps)
	if err != nil {
		return fmt.Errorf("%w: %v", core.ErrWriteFailed, err)
	}
	fields[connectedAppsField] = encoded

	value, err := core.NewValue(fields)
	if err != nil {
		return fmt.Errorf("%w: %v", core.ErrWriteFailed, err)
	}
	return r.docs.Put(ctx, UserManagementPluginID, ProfileKey, value, p)
}

// ListUsers returns every user that has a user-management scope, with display fields
// taken from their profile.
func (r *Registry) ListUsers(ctx context.Context) ([]UserSummary, error) {
	ids, err := r.docs.ListUserIDs(ctx, UserManagementPluginID)
	if err != nil {
		return nil, err
	}

	users := make([]UserSummary, 0, len(ids))
	for _, id := range ids {
		summary := UserSummary{ID: id, Emoji: defaultEmoji}

		value, err := r.docs.Get(ctx, UserManagementPluginID, ProfileKey, core.Principal{UserID: id})
		if err == nil && value.Kind() == core.KindObject {
			var profile map[string]any
			if value.Decode(&profile) == nil {
				if name, ok := profile["name"].(string); ok {
					summary.Name = name
				}
				if emoji, ok := profile["emoji"].(string); ok {
					summary.Emoji = emoji
				}
			}
		}
		users = append(users, summary)
	}
	return users, nil
}
