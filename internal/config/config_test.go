package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("SNOWDESK_CONFIG", filepath.Join(t.TempDir(), "missing.toml"))

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.BaseURL != "http://localhost:8000/api/v1" {
		t.Fatalf("base url default = %q", cfg.Server.BaseURL)
	}
	if cfg.Server.TimeoutSeconds != 30 {
		t.Fatalf("timeout default = %d", cfg.Server.TimeoutSeconds)
	}
	if cfg.Session.Role != "USER" {
		t.Fatalf("role default = %q", cfg.Session.Role)
	}
	if cfg.Cache.TTLSeconds != 30 {
		t.Fatalf("cache ttl default = %d", cfg.Cache.TTLSeconds)
	}
	if cfg.Metrics.Enabled {
		t.Fatal("metrics must be off by default")
	}
}

func TestEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	body := "[server]\nbase_url = \"http://incidents.internal:8000/api/v1\"\n\n[session]\nrole = \"ADMIN\"\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("SNOWDESK_CONFIG", path)
	t.Setenv("SNOWDESK_SESSION_ROLE", "USER")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.BaseURL != "http://incidents.internal:8000/api/v1" {
		t.Fatalf("file value not applied: %q", cfg.Server.BaseURL)
	}
	if cfg.Session.Role != "USER" {
		t.Fatalf("env must override file, got %q", cfg.Session.Role)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	t.Setenv("SNOWDESK_CONFIG", path)

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	cfg.AI.Provider = "gemini"
	cfg.Cache.TTLSeconds = 60
	if err := Save(cfg); err != nil {
		t.Fatal(err)
	}

	got, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if got.AI.Provider != "gemini" {
		t.Fatalf("provider = %q after round trip", got.AI.Provider)
	}
	if got.Cache.TTLSeconds != 60 {
		t.Fatalf("ttl = %d after round trip", got.Cache.TTLSeconds)
	}
}
