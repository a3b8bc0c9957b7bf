package core

import "context"

// DocumentStore persists opaque JSON documents addressed by (plugin id, key, principal).
type DocumentStore interface {
	// ResolvePath returns the physical location of a document, or ErrInvalidIdentifier.
	ResolvePath(pluginID, key string, principal Principal) (string, error)

	// Get returns the stored document or ErrNotFound.
	Get(ctx context.Context, pluginID, key string, principal Principal) (Value, error)

	// Put overwrites the document wholesale. Failures wrap ErrWriteFailed.
	Put(ctx context.Context, pluginID, key string, value Value, principal Principal) error

	// ListKeys returns the keys stored for a plugin in the principal's scope.
	ListKeys(ctx context.Context, pluginID string, principal Principal) ([]string, error)

	// ListUserIDs returns the user ids that have a scope directory below a plugin.
	ListUserIDs(ctx context.Context, pluginID string) ([]string, error)
}

// AccessTokenSource hands out a usable access token for a principal.
// It returns a *NotConnectedError when no usable token exists.
type AccessTokenSource interface {
	AccessToken(ctx context.Context, principal Principal) (string, error)
}
