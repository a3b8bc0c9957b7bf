package buildinfo

import "testing"

func TestUserAgent(t *testing.T) {
	Version = "v9.9.9"
	got := UserAgent("c0ffee", "alice", "strava")
	want := "LocalHub/v9.9.9 (correlation_id=c0ffee; user=alice; provider=strava)"
	if got != want {
		t.Errorf("UserAgent() = %q, want %q", got, want)
	}
}
