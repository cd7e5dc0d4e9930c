package weather

import (
	"context"
	"time"
)

// ProviderReading represents a single provider's normalized reading
// that can be aggregated into a Snapshot. Zero VisibilityM means the
// provider does not report visibility.
type ProviderReading struct {
	ProviderName string
	Timestamp    time.Time

	TemperatureC float64
	FeelsLikeC   float64
	HumidityPct  float64
	WindSpeedMS  float64
	PressureHpa  float64
	VisibilityM  float64
	Description  string
	Condition    Condition
}

// Provider abstracts a weather data source (e.g. OpenWeatherMap, WeatherAPI, Open-Meteo).
type Provider interface {
	Name() string
	Fetch(ctx context.Context, lat, lon float64) (ProviderReading, error)
}
