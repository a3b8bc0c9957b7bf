// Package vault keeps OAuth credentials as ordinary documents in the document store.
package vault

import (
	"context"
	"errors"
	"fmt"

	"github.com/darmiel/localhub/internal/core"
	"github.com/darmiel/localhub/internal/ident"
)

// Keys names the two documents a provider persists per user.
type Keys struct {
	// PluginID is the store namespace, e.g. "calendar".
	PluginID string
	// Connection is the key of the user-facing connection document.
	Connection string
	// Tokens is the key of the credential document.
	Tokens string
}

// Vault reads and writes the connection and token documents of one provider.
// It is not a separate physical store; the documents live next to plugin data.
type Vault struct {
	docs core.DocumentStore
	keys Keys
}

func New(docs core.DocumentStore, keys Keys) *Vault {
	return &Vault{docs: docs, keys: keys}
}

// Tokens returns the stored tokens. A missing or unreadable document yields empty tokens.
func (v *Vault) Tokens(ctx context.Context, p core.Principal) (core.Tokens, error) {
	if err := ident.RequireScoped(p); err != nil {
		return core.Tokens{}, err
	}
	value, err := v.docs.Get(ctx, v.keys.PluginID, v.keys.Tokens, p)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return core.Tokens{}, nil
		}
		return core.Tokens{}, err
	}
	var tokens core.Tokens
	if value.Kind() != core.KindObject || value.Decode(&tokens) != nil {
		return core.Tokens{}, nil
	}
	return tokens, nil
}

func (v *Vault) SaveTokens(ctx context.Context, p core.Principal, tokens core.Tokens) error {
	if err := ident.RequireScoped(p); err != nil {
		return err
	}
	value, err := core.NewValue(tokens)
	if err != nil {
		return fmt.Errorf("%w: %v", core.ErrWriteFailed, err)
	}
	return v.docs.Put(ctx, v.keys.PluginID, v.keys.Tokens, value, p)
}

// ClearTokens overwrites the token document with an empty object.
func (v *Vault) ClearTokens(ctx context.Context, p core.Principal) error {
	return v.SaveTokens(ctx, p, core.Tokens{})
}

// Connection returns the connection document, or a disconnected one if absent.
func (v *Vault) Connection(ctx context.Context, p core.Principal) (core.ConnectionInfo, error) {
	if err := ident.RequireScoped(p); err != nil {
		return core.ConnectionInfo{}, err
	}
	value, err := v.docs.Get(ctx, v.keys.PluginID, v.keys.Connection, p)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return core.ConnectionInfo{}, nil
		}
		return core.ConnectionInfo{}, err
	}
	var info core.ConnectionInfo
	if value.Kind() != core.KindObject || value.Decode(&info) != nil {
		return core.ConnectionInfo{}, nil
	}
	return info, nil
}

func (v *Vault) SaveConnection(ctx context.Context, p core.Principal, info core.ConnectionInfo) error {
	if err := ident.RequireScoped(p); err != nil {
		return err
	}
	value, err := core.NewValue(info)
	if err != nil {
		return fmt.Errorf("%w: %v", core.ErrWriteFailed, err)
	}
	return v.docs.Put(ctx, v.keys.PluginID, v.keys.Connection, value, p)
}
