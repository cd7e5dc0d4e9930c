package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/i474232898/crop-recommendation/internal/resilience"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

// unsetenv removes keys for the duration of the test.
func unsetenv(t *testing.T, keys ...string) {
	t.Helper()
	for _, key := range keys {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoadDefaults(t *testing.T) {
	unsetenv(t, PathEnvVar, "PORT", "REQUEST_TIMEOUT", "WARM_LOCATIONS")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Fatalf("expected default port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Server.RequestTimeout != 30*time.Second {
		t.Fatalf("expected 30s request timeout, got %v", cfg.Server.RequestTimeout)
	}
	if cfg.Limits()[resilience.UpstreamNominatim] != 1 {
		t.Fatalf("expected nominatim limited to 1 rps, got %v", cfg.Limits())
	}
	if cfg.Policy() != resilience.DefaultPolicy {
		t.Fatalf("expected default policy, got %+v", cfg.Policy())
	}
	if cfg.Breaker() != resilience.DefaultBreakerSettings {
		t.Fatalf("expected default breaker settings, got %+v", cfg.Breaker())
	}
}

// TestLoadLayering verifies that the file overrides defaults and the
// environment overrides the file.
func TestLoadLayering(t *testing.T) {
	path := writeFile(t, `
server:
  port: 9000
  request_timeout: 45s
cache:
  max_entries: 50
scheduler:
  warm_interval: 10m
  warm_locations:
    - lat: 21.7
      lon: 72.98
`)
	t.Setenv("PORT", "9100")
	t.Setenv("CROP_ENGINE__PRICE_WORKERS", "8")
	t.Setenv("OPENWEATHER_API_KEY", "owm-key")
	unsetenv(t, "REQUEST_TIMEOUT", "WARM_LOCATIONS")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 9100 {
		t.Fatalf("expected env port 9100, got %d", cfg.Server.Port)
	}
	if cfg.Server.RequestTimeout != 45*time.Second {
		t.Fatalf("expected file request timeout 45s, got %v", cfg.Server.RequestTimeout)
	}
	if cfg.Cache.MaxEntries != 50 {
		t.Fatalf("expected file max entries 50, got %d", cfg.Cache.MaxEntries)
	}
	if cfg.Engine.PriceWorkers != 8 {
		t.Fatalf("expected 8 price workers, got %d", cfg.Engine.PriceWorkers)
	}
	if cfg.Upstreams.OpenWeatherAPIKey != "owm-key" {
		t.Fatalf("expected api key from env, got %q", cfg.Upstreams.OpenWeatherAPIKey)
	}
	sc := cfg.SchedulerConfig()
	if sc.WarmInterval != 10*time.Minute || len(sc.WarmLocations) != 1 || sc.WarmLocations[0].Lat != 21.7 {
		t.Fatalf("unexpected scheduler config: %+v", sc)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	unsetenv(t, PathEnvVar, "PORT", "PRICE_WORKERS", "WARM_LOCATIONS")

	path := writeFile(t, "engine:\n  price_workers: 0\n")
	if _, err := Load(path); err == nil {
		t.Fatalf("expected validation error for zero price workers")
	}

	t.Setenv("WARM_LOCATIONS", "95,10")
	if _, err := Load(""); err == nil {
		t.Fatalf("expected validation error for out of range warm location")
	}
}

func TestParseCoordinates(t *testing.T) {
	locs, err := ParseCoordinates(" 21.7,72.98 ; 28.61,77.21;")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(locs) != 2 || locs[1].Lat != 28.61 || locs[1].Lon != 77.21 {
		t.Fatalf("unexpected coordinates: %+v", locs)
	}

	for _, bad := range []string{"21.7", "a,b", "1,2,3"} {
		if _, err := ParseCoordinates(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}
