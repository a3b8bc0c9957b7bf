package client

import (
	"context"

	"github.com/darmiel/localhub/internal/api"
	"github.com/darmiel/localhub/internal/core"
	"github.com/darmiel/localhub/internal/registry"
)

// ListKeys lists the document keys of a plugin in the client's user scope.
func (c *Client) ListKeys(ctx context.Context, pluginID string) ([]string, string, error) {
	var resp api.ListKeysResponse
	correlation, err := c.get(ctx, c.url().setPath(api.StoreRoute, pluginID).build(), &resp)
	return resp.Keys, correlation, err
}

// GetDocument returns a stored document. A missing document wraps ErrNotFound.
func (c *Client) GetDocument(ctx context.Context, pluginID, key string) (core.Value, string, error) {
	var value core.Value
	correlation, err := c.get(ctx, c.url().setPath(api.DocumentRoute, pluginID, key).build(), &value)
	return value, correlation, err
}

// PutDocument replaces a document and returns the stored value.
func (c *Client) PutDocument(ctx context.Context, pluginID, key string, value core.Value) (core.Value, string, error) {
	var stored core.Value
	correlation, err := c.put(ctx, c.url().setPath(api.DocumentRoute, pluginID, key).build(), value, &stored)
	return stored, correlation, err
}

func (c *Client) ListUsers(ctx context.Context) ([]registry.UserSummary, string, error) {
	var resp api.ListUsersResponse
	correlation, err := c.get(ctx, c.url().setPath(api.ListUsersRoute).build(), &resp)
	return resp.Users, correlation, err
}
