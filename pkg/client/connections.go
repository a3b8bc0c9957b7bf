package client

import (
	"context"
	"fmt"

	"github.com/darmiel/localhub/internal/api"
	"github.com/darmiel/localhub/internal/core"
)

// Provider names accepted by the connection helpers.
const (
	ProviderGoogle = "google"
	ProviderStrava = "strava"
)

func connectionRoutes(provider string) (connection, authURL, disconnect string, err error) {
	switch provider {
	case ProviderGoogle:
		return api.GoogleConnectionRoute, api.GoogleAuthURLRoute, api.GoogleDisconnectRoute, nil
	case ProviderStrava:
		return api.StravaConnectionRoute, api.StravaAuthURLRoute, api.StravaDisconnectRoute, nil
	default:
		return "", "", "", fmt.Errorf("unknown provider %q", provider)
	}
}

func (c *Client) Connection(ctx context.Context, provider string) (*core.ConnectionInfo, string, error) {
	route, _, _, err := connectionRoutes(provider)
	if err != nil {
		return nil, "", err
	}
	var info core.ConnectionInfo
	correlation, err := c.get(ctx, c.url().setPath(route).build(), &info)
	return &info, correlation, err
}

// AuthURL returns the provider authorization URL the user has to open in a browser.
func (c *Client) AuthURL(ctx context.Context, provider string) (string, string, error) {
	_, route, _, err := connectionRoutes(provider)
	if err != nil {
		return "", "", err
	}
	var resp api.AuthURLResponse
	correlation, err := c.get(ctx, c.url().setPath(route).build(), &resp)
	if err != nil {
		return "", correlation, err
	}
	if resp.Error != "" {
		return "", correlation, APIError{CorrelationID: correlation, Message: resp.Error, StatusCode: 200}
	}
	return resp.URL, correlation, nil
}

func (c *Client) Disconnect(ctx context.Context, provider string) (string, error) {
	_, _, route, err := connectionRoutes(provider)
	if err != nil {
		return "", err
	}
	return c.post(ctx, c.url().setPath(route).build(), nil, nil)
}

// TrackedEvents returns the calendar event ids recorded by the last replace.
func (c *Client) TrackedEvents(ctx context.Context) ([]string, string, error) {
	var resp api.TrackedEventsResponse
	correlation, err := c.get(ctx, c.url().setPath(api.GoogleTrackedRoute).build(), &resp)
	return resp.EventIDs, correlation, err
}
