package cliconfig

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestLoad_MissingFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg.Profiles) != 0 {
		t.Errorf("expected no profiles, got %v", cfg.Profiles)
	}
	if _, err := cfg.GetProfile("http://localhost:3000"); !errors.Is(err, ErrProfileNotFound) {
		t.Errorf("expected ErrProfileNotFound, got %v", err)
	}
}

func TestSaveLoad(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	cfg := &CLIConfig{}
	if err := cfg.SetProfile("http://localhost:3000/api", &Profile{UserID: "alice"}); err != nil {
		t.Fatalf("SetProfile: %v", err)
	}
	if err := cfg.SetProfile("https://hub.example.com", &Profile{UserID: "bob"}); err != nil {
		t.Fatalf("SetProfile: %v", err)
	}
	if err := Save(cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}

	info, err := os.Stat(filepath.Join(home, ".localhub", "config.json"))
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("config file mode = %o, want 600", perm)
	}

	loaded, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := map[string]*Profile{
		"localhost:3000":  {UserID: "alice"},
		"hub.example.com": {UserID: "bob"},
	}
	if diff := cmp.Diff(want, loaded.Profiles); diff != "" {
		t.Errorf("profiles mismatch (-want +got):\n%s", diff)
	}
	if got := loaded.UserFor("http://localhost:3000"); got != "alice" {
		t.Errorf("UserFor = %q, want alice", got)
	}
	if got := loaded.UserFor("http://localhost:4000"); got != "" {
		t.Errorf("UserFor unknown host = %q, want empty", got)
	}
}

func TestSetProfile_InvalidServer(t *testing.T) {
	cfg := &CLIConfig{}
	if err := cfg.SetProfile("localhost", &Profile{UserID: "alice"}); err == nil {
		t.Error("expected error for server without scheme")
	}
}
