package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/viper"
)

func load(t *testing.T) (*Config, error) {
	t.Helper()
	v := viper.New()
	SetDefaults(v)
	return Load(v)
}

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := load(t)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Port != 3000 {
		t.Errorf("port = %d", cfg.Port)
	}
	if cfg.BaseURL != "http://localhost:3000" {
		t.Errorf("base url = %q", cfg.BaseURL)
	}
	if cfg.CORSOrigin != "http://localhost:4200" {
		t.Errorf("cors origin = %q", cfg.CORSOrigin)
	}
	if filepath.Base(cfg.DataDir) != "data" || !filepath.IsAbs(cfg.DataDir) {
		t.Errorf("data dir = %q", cfg.DataDir)
	}
	if cfg.Calendar.Concurrency != 4 || cfg.HTTP.ClientTimeout != 30*time.Second {
		t.Errorf("calendar/http defaults = %+v %+v", cfg.Calendar, cfg.HTTP)
	}
	if len(cfg.PluginIDs) != 0 || cfg.Google.Configured() || cfg.Strava.Configured() {
		t.Errorf("unexpected optional config: %+v", cfg)
	}
	if cfg.Addr() != ":3000" {
		t.Errorf("addr = %q", cfg.Addr())
	}
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("LOCALHUB_DATA", "/srv/localhub")
	t.Setenv("PORT", "8081")
	t.Setenv("CORS_ORIGIN", "https://hub.example/")
	t.Setenv("LOCALHUB_PLUGIN_IDS", " habits, calendar ,,user-management")
	t.Setenv("GOOGLE_CLIENT_ID", "gid")
	t.Setenv("GOOGLE_CLIENT_SECRET", "gsecret")
	t.Setenv("STRAVA_CLIENT_ID", "sid")
	t.Setenv("STRAVA_CLIENT_SECRET", "ssecret")
	t.Setenv("LOCALHUB_DEV_INSECURE_TLS", "1")
	t.Setenv("LOCALHUB_CALENDAR_CONCURRENCY", "1")
	t.Setenv("LOCALHUB_HTTP_CLIENT_TIMEOUT", "5s")

	cfg, err := load(t)
	if err != nil {
		t.Fatal(err)
	}

	if cfg.DataDir != "/srv/localhub" || cfg.Port != 8081 {
		t.Errorf("data dir/port = %q/%d", cfg.DataDir, cfg.Port)
	}
	if cfg.BaseURL != "http://localhost:8081" {
		t.Errorf("base url = %q", cfg.BaseURL)
	}
	if cfg.CORSOrigin != "https://hub.example" {
		t.Errorf("cors origin = %q", cfg.CORSOrigin)
	}
	if diff := cmp.Diff([]string{"habits", "calendar", "user-management"}, cfg.PluginIDs); diff != "" {
		t.Errorf("plugin ids mismatch (-want +got):\n%s", diff)
	}
	if !cfg.Google.Configured() || !cfg.Strava.Configured() || !cfg.Strava.InsecureTLS {
		t.Errorf("providers = %+v %+v", cfg.Google, cfg.Strava)
	}
	if cfg.Calendar.Concurrency != 1 || cfg.HTTP.ClientTimeout != 5*time.Second {
		t.Errorf("calendar/http = %+v %+v", cfg.Calendar, cfg.HTTP)
	}

	shown := cfg.Redacted()
	if shown.Google.ClientSecret != redacted || shown.Strava.ClientSecret != redacted {
		t.Errorf("secrets not redacted: %+v", shown)
	}
	if cfg.Google.ClientSecret != "gsecret" {
		t.Error("Redacted must not modify the original")
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "bad plugin id", env: map[string]string{"LOCALHUB_PLUGIN_IDS": "Habits"}},
		{name: "port out of range", env: map[string]string{"PORT": "70000"}},
		{name: "zero concurrency", env: map[string]string{"LOCALHUB_CALENDAR_CONCURRENCY": "0"}},
		{name: "bad duration", env: map[string]string{"LOCALHUB_HTTP_CLIENT_TIMEOUT": "soon"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("LOCALHUB_DATA", t.TempDir())
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if _, err := load(t); err == nil {
				t.Error("expected error")
			}
		})
	}
}
