package strava

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"golang.org/x/oauth2"

	"github.com/darmiel/localhub/internal/core"
)

type staticTokens struct {
	token string
	err   error
}

func (s staticTokens) AccessToken(context.Context, core.Principal) (string, error) {
	return s.token, s.err
}

var alice = core.Principal{UserID: "alice"}

func ptr[T any](v T) *T { return &v }

func TestPaging(t *testing.T) {
	tests := []struct {
		page, perPage         int
		wantPage, wantPerPage int
	}{
		{0, 0, 1, 30},
		{-3, 500, 1, 100},
		{1, -5, 1, 1},
		{2, 10, 2, 10},
		{1, 100, 1, 100},
	}
	for _, tt := range tests {
		page, perPage := Paging(tt.page, tt.perPage)
		if page != tt.wantPage || perPage != tt.wantPerPage {
			t.Errorf("Paging(%d, %d) = %d, %d; want %d, %d", tt.page, tt.perPage, page, perPage, tt.wantPage, tt.wantPerPage)
		}
	}
}

func TestClient_Activities(t *testing.T) {
	var gotQuery, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/athlete/activities" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		gotQuery = r.URL.RawQuery
		gotAuth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`[
			{"id": 42, "name": "Morning Run", "type": "Run", "sport_type": "Run", "distance": 5012.3, "moving_time": 1500, "kudos_count": 3},
			{"id": 43, "type": "Ride"},
			{"id": 44, "name": "", "type": "Walk"},
			{"id": 45, "name": null}
		]`))
	}))
	defer srv.Close()

	client := NewClient(staticTokens{token: "tok"}, srv.Client(), srv.URL)
	got, err := client.Activities(context.Background(), alice, 0, 500)
	if err != nil {
		t.Fatal(err)
	}
	if gotQuery != "page=1&per_page=100" {
		t.Errorf("query = %q", gotQuery)
	}
	if gotAuth != "Bearer tok" {
		t.Errorf("authorization = %q", gotAuth)
	}

	want := []Activity{
		{ID: 42, Name: "Morning Run", Type: "Run", SportType: "Run", Distance: ptr(5012.3), MovingTime: ptr(int64(1500))},
		{ID: 43, Name: "Activity", Type: "Ride"},
		{ID: 44, Name: "", Type: "Walk"},
		{ID: 45, Name: "Activity"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("activities mismatch (-want +got):\n%s", diff)
	}
}

func TestClient_ActivitiesErrors(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		tokens   staticTokens
		wantCode string
		wantIs   error
	}{
		{name: "expired grant", status: http.StatusUnauthorized, tokens: staticTokens{token: "t"}, wantCode: "strava_not_connected", wantIs: core.ErrNotConnected},
		{name: "server error", status: http.StatusInternalServerError, tokens: staticTokens{token: "t"}, wantIs: core.ErrUpstream},
		{name: "no token", status: http.StatusOK, tokens: staticTokens{err: &core.NotConnectedError{App: AppID}}, wantCode: "strava_not_connected", wantIs: core.ErrNotConnected},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls++
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`[]`))
			}))
			defer srv.Close()

			_, err := NewClient(tt.tokens, srv.Client(), srv.URL).Activities(context.Background(), alice, 1, 30)
			if !errors.Is(err, tt.wantIs) {
				t.Fatalf("error = %v, want %v", err, tt.wantIs)
			}
			var nc *core.NotConnectedError
			if tt.wantCode != "" && (!errors.As(err, &nc) || nc.Code() != tt.wantCode) {
				t.Errorf("error = %v, want code %q", err, tt.wantCode)
			}
			if tt.tokens.err != nil && calls != 0 {
				t.Error("API must not be called without a token")
			}
		})
	}

	if _, err := NewClient(staticTokens{token: "t"}, http.DefaultClient, "").Activities(context.Background(), core.Principal{}, 1, 1); !errors.Is(err, core.ErrMissingUserContext) {
		t.Errorf("unscoped error = %v", err)
	}
}

func TestAthleteProfile(t *testing.T) {
	tok := (&oauth2.Token{AccessToken: "a"}).WithExtra(map[string]any{
		"athlete": map[string]any{
			"username":       "runner",
			"firstname":      "Alice",
			"lastname":       "Example",
			"profile_medium": "https://img/medium.jpg",
		},
	})
	got := athleteProfile(context.Background(), nil, tok)
	want := core.ConnectionInfo{Athlete: &core.Athlete{
		Username: "runner", Firstname: "Alice", Lastname: "Example", Profile: "https://img/medium.jpg",
	}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("profile mismatch (-want +got):\n%s", diff)
	}

	if got := athleteProfile(context.Background(), nil, &oauth2.Token{}); got.Athlete != nil {
		t.Errorf("missing athlete should stay nil, got %+v", got.Athlete)
	}
}

func TestNewHTTPClient(t *testing.T) {
	if c := NewHTTPClient(time.Second, false); c.Transport != nil {
		t.Error("secure client should use the default transport")
	}
	c := NewHTTPClient(time.Second, true)
	transport, ok := c.Transport.(*http.Transport)
	if !ok || !transport.TLSClientConfig.InsecureSkipVerify {
		t.Error("insecure client should skip verification")
	}
}
