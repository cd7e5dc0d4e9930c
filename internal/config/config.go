package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/i474232898/crop-recommendation/internal/geo"
	"github.com/i474232898/crop-recommendation/internal/resilience"
	"github.com/i474232898/crop-recommendation/internal/scheduler"
	"github.com/i474232898/crop-recommendation/internal/store"
)

// PathEnvVar overrides the config file location.
const PathEnvVar = "CONFIG_PATH"

// envPrefix marks generic overrides: CROP_CACHE__MAX_ENTRIES -> cache.max_entries.
const envPrefix = "CROP_"

// AppConfig is the full service configuration.
type AppConfig struct {
	Server     ServerConfig     `koanf:"server"`
	Log        LogConfig        `koanf:"log"`
	Upstreams  UpstreamConfig   `koanf:"upstreams"`
	RateLimits RateLimitConfig  `koanf:"rate_limits"`
	Resilience ResilienceConfig `koanf:"resilience"`
	Cache      CacheConfig      `koanf:"cache"`
	Engine     EngineConfig     `koanf:"engine"`
	Scheduler  SchedulerConfig  `koanf:"scheduler"`
}

type ServerConfig struct {
	Port            int           `koanf:"port" validate:"gte=1,lte=65535"`
	ReadTimeout     time.Duration `koanf:"read_timeout" validate:"gt=0"`
	WriteTimeout    time.Duration `koanf:"write_timeout" validate:"gt=0"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"gt=0"`
	// RequestTimeout bounds one prediction end to end.
	RequestTimeout time.Duration `koanf:"request_timeout" validate:"gt=0"`
	AccessLog      bool          `koanf:"access_log"`
}

type LogConfig struct {
	Level string `koanf:"level" validate:"oneof=debug info warn warning error"`
	Color bool   `koanf:"color"`
}

// UpstreamConfig holds credentials and endpoints. An empty URL selects the
// public endpoint; an empty key disables the provider that needs it.
type UpstreamConfig struct {
	HTTPTimeout time.Duration `koanf:"http_timeout" validate:"gt=0"`

	OpenWeatherAPIKey string `koanf:"openweather_api_key"`
	OpenWeatherURL    string `koanf:"openweather_url" validate:"omitempty,url"`
	WeatherAPIKey     string `koanf:"weatherapi_api_key"`
	WeatherAPIURL     string `koanf:"weatherapi_url" validate:"omitempty,url"`
	OpenMeteoEnabled  bool   `koanf:"openmeteo_enabled"`
	OpenMeteoURL      string `koanf:"openmeteo_url" validate:"omitempty,url"`

	NominatimURL       string `koanf:"nominatim_url" validate:"omitempty,url"`
	NominatimUserAgent string `koanf:"nominatim_user_agent"`
	BigDataCloudURL    string `koanf:"bigdatacloud_url" validate:"omitempty,url"`
	GoogleAPIKey       string `koanf:"google_api_key"`

	SoilLiveEnabled bool   `koanf:"soil_live_enabled"`
	SoilGridsURL    string `koanf:"soilgrids_url" validate:"omitempty,url"`

	// PriceAPIURL enables live mandi prices when set.
	PriceAPIURL string `koanf:"price_api_url" validate:"omitempty,url"`
}

// RateLimitConfig is requests per second per upstream; 0 is unlimited.
type RateLimitConfig struct {
	Nominatim    float64 `koanf:"nominatim" validate:"gte=0"`
	BigDataCloud float64 `koanf:"bigdatacloud" validate:"gte=0"`
	Google       float64 `koanf:"google" validate:"gte=0"`
	OpenWeather  float64 `koanf:"openweather" validate:"gte=0"`
	WeatherAPI   float64 `koanf:"weatherapi" validate:"gte=0"`
	OpenMeteo    float64 `koanf:"openmeteo" validate:"gte=0"`
	SoilGrids    float64 `koanf:"soilgrids" validate:"gte=0"`
	Agmarknet    float64 `koanf:"agmarknet" validate:"gte=0"`
}

type ResilienceConfig struct {
	MaxRetries       int           `koanf:"max_retries" validate:"gte=0"`
	BaseDelay        time.Duration `koanf:"base_delay" validate:"gte=0"`
	BackoffFactor    float64       `koanf:"backoff_factor" validate:"gte=1"`
	MaxDelay         time.Duration `koanf:"max_delay" validate:"gte=0"`
	CallTimeout      time.Duration `koanf:"call_timeout" validate:"gte=0"`
	FailureThreshold uint32        `koanf:"failure_threshold" validate:"gte=1"`
	ResetTimeout     time.Duration `koanf:"reset_timeout" validate:"gt=0"`
}

type CacheConfig struct {
	MaxEntries  int           `koanf:"max_entries" validate:"gte=0"`
	WeatherTTL  time.Duration `koanf:"weather_ttl" validate:"gt=0"`
	SoilTTL     time.Duration `koanf:"soil_ttl" validate:"gt=0"`
	MarketTTL   time.Duration `koanf:"market_ttl" validate:"gt=0"`
	LocationTTL time.Duration `koanf:"location_ttl" validate:"gt=0"`
}

type EngineConfig struct {
	PriceWorkers int `koanf:"price_workers" validate:"gte=1,lte=64"`
}

type SchedulerConfig struct {
	ReapInterval  time.Duration          `koanf:"reap_interval" validate:"gt=0"`
	WarmInterval  time.Duration          `koanf:"warm_interval" validate:"gte=0"`
	WarmTimeout   time.Duration          `koanf:"warm_timeout" validate:"gt=0"`
	WarmLocations []scheduler.Coordinate `koanf:"warm_locations"`
}

// Default returns the configuration used when nothing overrides it.
func Default() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    40 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			RequestTimeout:  30 * time.Second,
			AccessLog:       true,
		},
		Log: LogConfig{
			Level: "info",
			Color: true,
		},
		Upstreams: UpstreamConfig{
			HTTPTimeout:        15 * time.Second,
			OpenMeteoEnabled:   true,
			NominatimUserAgent: geo.DefaultUserAgent,
		},
		RateLimits: RateLimitConfig{
			Nominatim: 1,
		},
		Resilience: ResilienceConfig{
			MaxRetries:       resilience.DefaultPolicy.MaxRetries,
			BaseDelay:        resilience.DefaultPolicy.BaseDelay,
			BackoffFactor:    resilience.DefaultPolicy.BackoffFactor,
			MaxDelay:         resilience.DefaultPolicy.MaxDelay,
			CallTimeout:      resilience.DefaultPolicy.CallTimeout,
			FailureThreshold: resilience.DefaultBreakerSettings.FailureThreshold,
			ResetTimeout:     resilience.DefaultBreakerSettings.ResetTimeout,
		},
		Cache: CacheConfig{
			MaxEntries:  10000,
			WeatherTTL:  store.WeatherTTL,
			SoilTTL:     store.SoilTTL,
			MarketTTL:   store.MarketTTL,
			LocationTTL: geo.LocationTTL,
		},
		Engine: EngineConfig{
			PriceWorkers: 4,
		},
		Scheduler: SchedulerConfig{
			ReapInterval: 5 * time.Minute,
			WarmTimeout:  30 * time.Second,
		},
	}
}

// Load reads configuration in three layers: defaults, an optional YAML file
// and environment variables. A .env file in the working directory is loaded
// into the environment first. path may be empty.
func Load(path string) (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file loaded", "error", err)
	}

	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path == "" {
		path = os.Getenv(PathEnvVar)
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	cfg := &AppConfig{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if raw := os.Getenv("WARM_LOCATIONS"); raw != "" {
		locs, err := ParseCoordinates(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid WARM_LOCATIONS: %w", err)
		}
		cfg.Scheduler.WarmLocations = locs
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// envAliases keeps the short variable names used in deployments.
var envAliases = map[string]string{
	"port":                 "server.port",
	"request_timeout":      "server.request_timeout",
	"log_level":            "log.level",
	"openweather_api_key":  "upstreams.openweather_api_key",
	"weatherapi_api_key":   "upstreams.weatherapi_api_key",
	"google_maps_api_key":  "upstreams.google_api_key",
	"nominatim_user_agent": "upstreams.nominatim_user_agent",
	"soil_live_enabled":    "upstreams.soil_live_enabled",
	"price_api_url":        "upstreams.price_api_url",
	"cache_max_entries":    "cache.max_entries",
	"price_workers":        "engine.price_workers",
	"warm_interval":        "scheduler.warm_interval",
}

// envKey maps an environment variable to a koanf path. Unknown variables
// map to "" and are skipped.
func envKey(key string) string {
	if strings.HasPrefix(key, envPrefix) {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(key, envPrefix)), "__", ".")
	}
	return envAliases[strings.ToLower(key)]
}

// ParseCoordinates parses "lat,lon;lat,lon".
func ParseCoordinates(raw string) ([]scheduler.Coordinate, error) {
	var out []scheduler.Coordinate
	for _, pair := range strings.Split(raw, ";") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		parts := strings.Split(pair, ",")
		if len(parts) != 2 {
			return nil, fmt.Errorf("expected lat,lon, got %q", pair)
		}
		lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
		if err != nil {
			return nil, fmt.Errorf("latitude in %q: %w", pair, err)
		}
		lon, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
		if err != nil {
			return nil, fmt.Errorf("longitude in %q: %w", pair, err)
		}
		out = append(out, scheduler.Coordinate{Lat: lat, Lon: lon})
	}
	return out, nil
}

// Validate checks field constraints and warm-up coordinates.
func (c *AppConfig) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	for _, loc := range c.Scheduler.WarmLocations {
		if loc.Lat < -90 || loc.Lat > 90 || loc.Lon < -180 || loc.Lon > 180 {
			return fmt.Errorf("invalid configuration: warm location %.4f,%.4f out of range", loc.Lat, loc.Lon)
		}
	}
	return nil
}

// Policy is the retry policy for upstream calls.
func (c *AppConfig) Policy() resilience.Policy {
	r := c.Resilience
	return resilience.Policy{
		MaxRetries:    r.MaxRetries,
		BaseDelay:     r.BaseDelay,
		BackoffFactor: r.BackoffFactor,
		MaxDelay:      r.MaxDelay,
		CallTimeout:   r.CallTimeout,
	}
}

func (c *AppConfig) Breaker() resilience.BreakerSettings {
	return resilience.BreakerSettings{
		FailureThreshold: c.Resilience.FailureThreshold,
		ResetTimeout:     c.Resilience.ResetTimeout,
	}
}

// Limits returns the per-upstream rate limits keyed by upstream name.
func (c *AppConfig) Limits() map[string]float64 {
	r := c.RateLimits
	return map[string]float64{
		resilience.UpstreamNominatim:    r.Nominatim,
		resilience.UpstreamBigDataCloud: r.BigDataCloud,
		resilience.UpstreamGoogleGeo:    r.Google,
		resilience.UpstreamOpenWeather:  r.OpenWeather,
		resilience.UpstreamWeatherAPI:   r.WeatherAPI,
		resilience.UpstreamOpenMeteo:    r.OpenMeteo,
		resilience.UpstreamSoilGrids:    r.SoilGrids,
		resilience.UpstreamAgmarknet:    r.Agmarknet,
	}
}

func (c *AppConfig) SchedulerConfig() scheduler.Config {
	return scheduler.Config{
		ReapInterval:  c.Scheduler.ReapInterval,
		WarmInterval:  c.Scheduler.WarmInterval,
		WarmTimeout:   c.Scheduler.WarmTimeout,
		WarmLocations: c.Scheduler.WarmLocations,
	}
}
