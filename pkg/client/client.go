package client

import (
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client talks to a running LocalHub server.
type Client struct {
	baseURL    string
	userID     string
	httpClient *http.Client
}

type Option func(*Client)

// WithUserID scopes every request to the given user (sent as X-User-Id).
func WithUserID(userID string) Option {
	return func(c *Client) {
		c.userID = userID
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// UserID returns the user the client is scoped to, if any.
func (c *Client) UserID() string {
	return c.userID
}

type urlBuilder struct {
	base  string
	path  string
	query url.Values
}

func (c *Client) url() *urlBuilder {
	return &urlBuilder{base: c.baseURL, query: url.Values{}}
}

// setPath sets the request path. Route patterns like {pluginId} are filled from vars in order.
func (u *urlBuilder) setPath(pattern string, vars ...string) *urlBuilder {
	path := pattern
	for _, v := range vars {
		start := strings.Index(path, "{")
		end := strings.Index(path, "}")
		if start < 0 || end < start {
			break
		}
		path = path[:start] + url.PathEscape(v) + path[end+1:]
	}
	u.path = path
	return u
}

func (u *urlBuilder) set(key, value string) *urlBuilder {
	if value != "" {
		u.query.Set(key, value)
	}
	return u
}

func (u *urlBuilder) build() string {
	s := u.base + u.path
	if len(u.query) > 0 {
		s += "?" + u.query.Encode()
	}
	return s
}
