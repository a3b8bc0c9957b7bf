package calendar

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/darmiel/localhub/internal/core"
	"github.com/darmiel/localhub/internal/ident"
)

// Tracked events are stored where the runner plugin keeps them.
const (
	TrackedPluginID = "runner"
	TrackedKey      = "calendarEventIds"
)

// ReplaceResult reports a replace of the tracked generation of events.
type ReplaceResult struct {
	Deleted DeleteResult `json:"deleted"`
	CreateResult
}

// TrackedEvents returns the ids of the events this system created for the user.
// Missing or malformed documents yield an empty list; non-string entries are dropped.
func (g *Gateway) TrackedEvents(ctx context.Context, p core.Principal) ([]string, error) {
	if err := ident.RequireScoped(p); err != nil {
		return nil, err
	}
	value, err := g.docs.Get(ctx, TrackedPluginID, TrackedKey, p)
	if errors.Is(err, core.ErrNotFound) {
		return []string{}, nil
	}
	if err != nil {
		return nil, err
	}

	var raw []any
	ids := []string{}
	if value.Kind() != core.KindArray || value.Decode(&raw) != nil {
		return ids, nil
	}
	for _, item := range raw {
		if s, ok := item.(string); ok && s != "" {
			ids = append(ids, s)
		}
	}
	return ids, nil
}

func (g *Gateway) saveTracked(ctx context.Context, p core.Principal, ids []string) error {
	if ids == nil {
		ids = []string{}
	}
	value, err := core.NewValue(ids)
	if err != nil {
		return err
	}
	return g.docs.Put(ctx, TrackedPluginID, TrackedKey, value, p)
}

// ReplaceTrackedEvents deletes the previously tracked events, creates the new batch and
// tracks exactly the ids created now. Deletion always runs before creation, even when
// some deletes fail; ids whose delete failed are no longer tracked.
// An empty batch only clears the tracked events.
func (g *Gateway) ReplaceTrackedEvents(ctx context.Context, p core.Principal, events []NewEvent, colorID string) (*ReplaceResult, error) {
	if err := ident.RequireScoped(p); err != nil {
		return nil, err
	}
	previous, err := g.TrackedEvents(ctx, p)
	if err != nil {
		return nil, err
	}

	// resolve the token up front so a disconnected user changes nothing
	if _, err := g.tokens.AccessToken(ctx, p); err != nil {
		return nil, err
	}

	deleted, err := g.DeleteEvents(ctx, p, previous)
	if err != nil {
		return nil, err
	}

	result := &ReplaceResult{Deleted: *deleted, CreateResult: CreateResult{CreatedIDs: []string{}}}
	if len(events) > 0 {
		created, err := g.CreateEvents(ctx, p, events, colorID)
		if err != nil {
			return nil, err
		}
		result.CreateResult = *created
	}

	if err := g.saveTracked(ctx, p, result.CreatedIDs); err != nil {
		log.Ctx(ctx).Error().Err(err).Str("user", p.UserID).Msg("calendar.tracked.save_failed")
		return result, err
	}

	log.Ctx(ctx).Info().
		Str("user", p.UserID).
		Int("previous", len(previous)).
		Int("deleted", deleted.Deleted).
		Int("tracked", len(result.CreatedIDs)).
		Msg("calendar.tracked.replaced")
	return result, nil
}

// ClearTrackedEvents deletes every tracked event and empties the tracked list.
func (g *Gateway) ClearTrackedEvents(ctx context.Context, p core.Principal) (*DeleteResult, error) {
	result, err := g.ReplaceTrackedEvents(ctx, p, nil, "")
	if err != nil {
		return nil, err
	}
	return &result.Deleted, nil
}
