package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/i474232898/crop-recommendation/internal/resilience"
	"github.com/i474232898/crop-recommendation/internal/weather"
)

const openMeteoURL = "https://api.open-meteo.com/v1/forecast"

// OpenMeteoProvider implements the weather.Provider interface for Open-Meteo.
// It needs no API key.
type OpenMeteoProvider struct {
	baseURL string
	fetcher *resilience.Fetcher
}

// NewOpenMeteoProvider creates the provider. An empty baseURL uses the public endpoint.
func NewOpenMeteoProvider(fetcher *resilience.Fetcher, baseURL string) *OpenMeteoProvider {
	if baseURL == "" {
		baseURL = openMeteoURL
	}
	return &OpenMeteoProvider{
		baseURL: baseURL,
		fetcher: fetcher,
	}
}

func (p *OpenMeteoProvider) Name() string {
	return resilience.UpstreamOpenMeteo
}

func (p *OpenMeteoProvider) Fetch(ctx context.Context, lat, lon float64) (weather.ProviderReading, error) {
	values := url.Values{}
	values.Set("latitude", fmt.Sprintf("%f", lat))
	values.Set("longitude", fmt.Sprintf("%f", lon))
	values.Set("current", "temperature_2m,apparent_temperature,relative_humidity_2m,surface_pressure,wind_speed_10m,weather_code")
	values.Set("wind_speed_unit", "ms")
	values.Set("timezone", "UTC")
	u := fmt.Sprintf("%s?%s", p.baseURL, values.Encode())

	var payload struct {
		Current struct {
			Time                string  `json:"time"`
			Temperature         float64 `json:"temperature_2m"`
			ApparentTemperature float64 `json:"apparent_temperature"`
			RelativeHumidity    float64 `json:"relative_humidity_2m"`
			SurfacePressure     float64 `json:"surface_pressure"`
			WindSpeed           float64 `json:"wind_speed_10m"`
			WeatherCode         int     `json:"weather_code"`
		} `json:"current"`
	}

	err := p.fetcher.GetJSON(ctx, p.Name(), func(ctx context.Context) (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	}, &payload)
	if err != nil {
		return weather.ProviderReading{}, err
	}

	// Open-Meteo returns ISO8601 without seconds or zone, e.g. 2025-01-02T10:15.
	ts, err := time.Parse("2006-01-02T15:04", payload.Current.Time)
	if err != nil {
		ts = time.Now().UTC()
	}

	cond, description := mapOpenMeteoCondition(payload.Current.WeatherCode)

	return weather.ProviderReading{
		ProviderName: p.Name(),
		Timestamp:    ts.UTC(),
		TemperatureC: payload.Current.Temperature,
		FeelsLikeC:   payload.Current.ApparentTemperature,
		HumidityPct:  payload.Current.RelativeHumidity,
		WindSpeedMS:  payload.Current.WindSpeed,
		PressureHpa:  payload.Current.SurfacePressure,
		Description:  description,
		Condition:    cond,
	}, nil
}

// mapOpenMeteoCondition maps WMO weather codes (simplified).
func mapOpenMeteoCondition(code int) (weather.Condition, string) {
	switch {
	case code == 0:
		return weather.ConditionClear, "clear sky"
	case code >= 1 && code <= 3:
		return weather.ConditionCloudy, "partly cloudy"
	case code == 45 || code == 48:
		return weather.ConditionMist, "fog"
	case (code >= 51 && code <= 67) || (code >= 80 && code <= 82):
		return weather.ConditionRain, "rain"
	case (code >= 71 && code <= 77) || code == 85 || code == 86:
		return weather.ConditionSnow, "snow"
	case code >= 95:
		return weather.ConditionStorm, "thunderstorm"
	default:
		return weather.ConditionUnknown, ""
	}
}
