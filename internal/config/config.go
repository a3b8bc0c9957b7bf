package config

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/darmiel/localhub/internal/ident"
)

const redacted = "********"

// Config is the server configuration. Every key can be set in the config file or through
// the environment variables listed in envBindings.
type Config struct {
	// DataDir is the root of the document tree. Defaults to ./data.
	DataDir string `mapstructure:"data_dir" yaml:"data_dir"`

	Host string `mapstructure:"host" yaml:"host"`
	Port int    `mapstructure:"port" yaml:"port"`

	// CORSOrigin is the UI origin. OAuth callbacks redirect back to it.
	CORSOrigin string `mapstructure:"cors_origin" yaml:"cors_origin"`

	// BaseURL is the externally reachable URL of this server, used for OAuth redirect URIs.
	// Defaults to http://localhost:{port}.
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`

	// PluginIDs is the store allow-list. Empty allows every well-formed plugin id.
	PluginIDs []string `mapstructure:"plugin_ids" yaml:"plugin_ids"`

	// PublicDir optionally serves a built frontend with SPA fallback.
	PublicDir string `mapstructure:"public_dir" yaml:"public_dir,omitempty"`

	Google   OAuthClient    `mapstructure:"google" yaml:"google"`
	Strava   StravaConfig   `mapstructure:"strava" yaml:"strava"`
	Calendar CalendarConfig `mapstructure:"calendar" yaml:"calendar"`
	HTTP     HTTPConfig     `mapstructure:"http" yaml:"http"`
}

// OAuthClient holds the client credentials of an OAuth app. Empty values disable the provider.
type OAuthClient struct {
	ClientID     string `mapstructure:"client_id" yaml:"client_id"`
	ClientSecret string `mapstructure:"client_secret" yaml:"client_secret"`
}

func (c OAuthClient) Configured() bool {
	return c.ClientID != "" && c.ClientSecret != ""
}

type StravaConfig struct {
	OAuthClient `mapstructure:",squash" yaml:",inline"`

	// InsecureTLS disables certificate verification for Strava requests. Development only.
	InsecureTLS bool `mapstructure:"insecure_tls" yaml:"insecure_tls"`
}

type CalendarConfig struct {
	// Concurrency bounds parallel event create/delete calls per batch. 1 runs them in order.
	Concurrency int `mapstructure:"concurrency" yaml:"concurrency"`
}

type HTTPConfig struct {
	// ClientTimeout applies to every outbound provider request.
	ClientTimeout time.Duration `mapstructure:"client_timeout" yaml:"client_timeout"`
	// ShutdownTimeout bounds graceful shutdown of the server.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
}

// envBindings keeps the environment variable names the frontend tooling already uses.
var envBindings = map[string][]string{
	"data_dir":              {"LOCALHUB_DATA"},
	"host":                  {"LOCALHUB_HOST"},
	"port":                  {"PORT", "LOCALHUB_PORT"},
	"cors_origin":           {"CORS_ORIGIN"},
	"base_url":              {"LOCALHUB_BASE_URL"},
	"plugin_ids":            {"LOCALHUB_PLUGIN_IDS"},
	"public_dir":            {"PUBLIC_DIR"},
	"google.client_id":      {"GOOGLE_CLIENT_ID"},
	"google.client_secret":  {"GOOGLE_CLIENT_SECRET"},
	"strava.client_id":      {"STRAVA_CLIENT_ID"},
	"strava.client_secret":  {"STRAVA_CLIENT_SECRET"},
	"strava.insecure_tls":   {"LOCALHUB_DEV_INSECURE_TLS"},
	"calendar.concurrency":  {"LOCALHUB_CALENDAR_CONCURRENCY"},
	"http.client_timeout":   {"LOCALHUB_HTTP_CLIENT_TIMEOUT"},
	"http.shutdown_timeout": {"LOCALHUB_SHUTDOWN_TIMEOUT"},
}

// SetDefaults registers defaults and environment bindings on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("port", 3000)
	v.SetDefault("cors_origin", "http://localhost:4200")
	v.SetDefault("calendar.concurrency", 4)
	v.SetDefault("http.client_timeout", 30*time.Second)
	v.SetDefault("http.shutdown_timeout", 10*time.Second)

	for key, envs := range envBindings {
		_ = v.BindEnv(append([]string{key}, envs...)...)
	}
}

// Load decodes, normalizes and validates the configuration held by v.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	err := v.Unmarshal(&cfg, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)))
	if err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) normalize() error {
	if c.DataDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("resolving working directory: %w", err)
		}
		c.DataDir = filepath.Join(wd, "data")
	}
	if c.BaseURL == "" {
		c.BaseURL = fmt.Sprintf("http://localhost:%d", c.Port)
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	c.CORSOrigin = strings.TrimRight(c.CORSOrigin, "/")

	ids := make([]string, 0, len(c.PluginIDs))
	for _, id := range c.PluginIDs {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	c.PluginIDs = ids
	return nil
}

func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}
	if c.Calendar.Concurrency < 1 {
		return fmt.Errorf("calendar.concurrency must be at least 1, got %d", c.Calendar.Concurrency)
	}
	if c.HTTP.ClientTimeout <= 0 {
		return fmt.Errorf("http.client_timeout must be positive")
	}
	sanitizer := ident.NewSanitizer(nil)
	for _, id := range c.PluginIDs {
		if _, err := sanitizer.PluginID(id); err != nil {
			return fmt.Errorf("plugin_ids: %q: %w", id, err)
		}
	}
	return nil
}

// Addr is the listen address.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Redacted returns a copy safe to print, with client secrets masked.
func (c Config) Redacted() Config {
	if c.Google.ClientSecret != "" {
		c.Google.ClientSecret = redacted
	}
	if c.Strava.ClientSecret != "" {
		c.Strava.ClientSecret = redacted
	}
	c.PluginIDs = append([]string(nil), c.PluginIDs...)
	return c
}
