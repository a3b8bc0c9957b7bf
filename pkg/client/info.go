package client

import (
	"context"

	"github.com/darmiel/localhub/internal/api"
	"github.com/darmiel/localhub/internal/buildinfo"
)

func (c *Client) Info(ctx context.Context) (*buildinfo.Info, string, error) {
	var info buildinfo.Info
	correlation, err := c.get(ctx, c.url().setPath(api.AboutRoute).build(), &info)
	return &info, correlation, err
}

func (c *Client) Health(ctx context.Context) (*api.HealthResponse, string, error) {
	var health api.HealthResponse
	correlation, err := c.get(ctx, c.url().setPath(api.HealthCheckRoute).build(), &health)
	return &health, correlation, err
}
