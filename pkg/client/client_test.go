package client

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/darmiel/localhub/internal/api"
	"github.com/darmiel/localhub/internal/calendar"
	"github.com/darmiel/localhub/internal/core"
	"github.com/darmiel/localhub/internal/ident"
	"github.com/darmiel/localhub/internal/oauth"
	"github.com/darmiel/localhub/internal/providers/google"
	"github.com/darmiel/localhub/internal/providers/strava"
	"github.com/darmiel/localhub/internal/registry"
	"github.com/darmiel/localhub/internal/store"
)

// newTestServer runs the real API with both providers left unconfigured.
func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	docs := store.NewFileStore(t.TempDir(), ident.NewSanitizer(nil))
	reg := registry.New(docs)
	googleManager := oauth.NewManager(google.NewProvider(google.Options{BaseURL: "http://localhost"}), docs, reg)
	stravaManager := oauth.NewManager(strava.NewProvider(strava.Options{BaseURL: "http://localhost"}), docs, reg)

	srv := api.NewServer(api.Deps{
		Docs:       docs,
		Registry:   reg,
		Google:     googleManager,
		Strava:     stravaManager,
		Calendar:   calendar.New(googleManager, docs, nil),
		Activities: strava.NewClient(stravaManager, nil, ""),
		CORSOrigin: "http://localhost:4200",
	})
	ts := httptest.NewServer(srv.Routes())
	t.Cleanup(ts.Close)
	return ts
}

func TestClient_Documents(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()
	alice := New(ts.URL+"/", WithUserID("alice"))

	stored, correlation, err := alice.PutDocument(ctx, "runner", "settings", core.MustValue(map[string]any{"pace": 5}))
	if err != nil {
		t.Fatalf("PutDocument: %v", err)
	}
	if correlation == "" {
		t.Error("expected a correlation id")
	}
	if diff := cmp.Diff(`{"pace":5}`, string(stored.Bytes())); diff != "" {
		t.Errorf("stored mismatch (-want +got):\n%s", diff)
	}

	got, _, err := alice.GetDocument(ctx, "runner", "settings")
	if err != nil {
		t.Fatalf("GetDocument: %v", err)
	}
	if diff := cmp.Diff(`{"pace":5}`, string(got.Bytes())); diff != "" {
		t.Errorf("document mismatch (-want +got):\n%s", diff)
	}

	keys, _, err := alice.ListKeys(ctx, "runner")
	if err != nil {
		t.Fatalf("ListKeys: %v", err)
	}
	if diff := cmp.Diff([]string{"settings"}, keys); diff != "" {
		t.Errorf("keys mismatch (-want +got):\n%s", diff)
	}

	// other users do not see alice's documents
	bob := New(ts.URL, WithUserID("bob"))
	_, _, err = bob.GetDocument(ctx, "runner", "settings")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	var apiErr APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != 404 || apiErr.Message != "Not found" {
		t.Errorf("unexpected api error: %#v", apiErr)
	}
}

func TestClient_InvalidIdentifier(t *testing.T) {
	ts := newTestServer(t)
	cli := New(ts.URL)

	_, _, err := cli.GetDocument(context.Background(), "Bad.Plugin", "key")
	var apiErr APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.StatusCode != 400 || apiErr.Message != "Invalid pluginId or key" {
		t.Errorf("unexpected api error: %#v", apiErr)
	}
	if apiErr.CorrelationID == "" {
		t.Error("expected correlation id on error")
	}
}

func TestClient_Users(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()

	alice := New(ts.URL, WithUserID("alice"))
	_, _, err := alice.PutDocument(ctx, registry.UserManagementPluginID, registry.ProfileKey,
		core.MustValue(map[string]any{"name": "Alice", "emoji": "🏃"}))
	if err != nil {
		t.Fatalf("PutDocument: %v", err)
	}

	users, _, err := New(ts.URL).ListUsers(ctx)
	if err != nil {
		t.Fatalf("ListUsers: %v", err)
	}
	want := []registry.UserSummary{{ID: "alice", Name: "Alice", Emoji: "🏃"}}
	if diff := cmp.Diff(want, users); diff != "" {
		t.Errorf("users mismatch (-want +got):\n%s", diff)
	}
}

func TestClient_InfoAndHealth(t *testing.T) {
	ts := newTestServer(t)
	cli := New(ts.URL)

	health, _, err := cli.Health(context.Background())
	if err != nil {
		t.Fatalf("Health: %v", err)
	}
	if health.Status != "ok" {
		t.Errorf("status = %q", health.Status)
	}

	info, _, err := cli.Info(context.Background())
	if err != nil {
		t.Fatalf("Info: %v", err)
	}
	if info.Service != "LocalHub" {
		t.Errorf("service = %q", info.Service)
	}
}

func TestClient_Connections(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()
	cli := New(ts.URL, WithUserID("alice"))

	if _, _, err := cli.AuthURL(ctx, ProviderStrava); err == nil {
		t.Error("expected not-configured error for auth url")
	}
	if _, err := cli.Disconnect(ctx, ProviderGoogle); err != nil {
		t.Errorf("Disconnect: %v", err)
	}
	if _, _, err := cli.Connection(ctx, "dropbox"); err == nil {
		t.Error("expected error for unknown provider")
	}
}

func TestURLBuilder(t *testing.T) {
	cli := New("http://localhost:3000/")
	tests := []struct {
		name    string
		pattern string
		vars    []string
		want    string
	}{
		{"static", api.HealthCheckRoute, nil, "http://localhost:3000/api/health"},
		{"store", api.StoreRoute, []string{"runner"}, "http://localhost:3000/api/plugins/runner/store"},
		{"document", api.DocumentRoute, []string{"runner", "a b"}, "http://localhost:3000/api/plugins/runner/store/a%20b"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cli.url().setPath(tt.pattern, tt.vars...).build(); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}
