package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/i474232898/crop-recommendation/internal/resilience"
	"github.com/i474232898/crop-recommendation/internal/weather"
)

const openWeatherURL = "https://api.openweathermap.org/data/2.5/weather"

var errMissingAPIKey = errors.New("api key is not configured")

// OpenWeatherProvider implements the weather.Provider interface for OpenWeatherMap.
type OpenWeatherProvider struct {
	apiKey  string
	baseURL string
	fetcher *resilience.Fetcher
}

// NewOpenWeatherProvider creates the provider. An empty baseURL uses the public endpoint.
func NewOpenWeatherProvider(fetcher *resilience.Fetcher, apiKey, baseURL string) *OpenWeatherProvider {
	if baseURL == "" {
		baseURL = openWeatherURL
	}
	return &OpenWeatherProvider{
		apiKey:  apiKey,
		baseURL: baseURL,
		fetcher: fetcher,
	}
}

func (p *OpenWeatherProvider) Name() string {
	return resilience.UpstreamOpenWeather
}

func (p *OpenWeatherProvider) Fetch(ctx context.Context, lat, lon float64) (weather.ProviderReading, error) {
	if p.apiKey == "" {
		return weather.ProviderReading{}, fmt.Errorf("openweather: %w", errMissingAPIKey)
	}

	values := url.Values{}
	values.Set("appid", p.apiKey)
	values.Set("units", "metric")
	values.Set("lat", fmt.Sprintf("%f", lat))
	values.Set("lon", fmt.Sprintf("%f", lon))
	u := fmt.Sprintf("%s?%s", p.baseURL, values.Encode())

	var payload struct {
		Dt         int64   `json:"dt"`
		Visibility float64 `json:"visibility"`
		Main       struct {
			Temp      float64 `json:"temp"`
			FeelsLike float64 `json:"feels_like"`
			Humidity  float64 `json:"humidity"`
			Pressure  float64 `json:"pressure"`
		} `json:"main"`
		Wind struct {
			Speed float64 `json:"speed"`
		} `json:"wind"`
		Weather []owmCondition `json:"weather"`
	}

	err := p.fetcher.GetJSON(ctx, p.Name(), func(ctx context.Context) (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	}, &payload)
	if err != nil {
		return weather.ProviderReading{}, err
	}

	ts := time.Now().UTC()
	if payload.Dt > 0 {
		ts = time.Unix(payload.Dt, 0).UTC()
	}

	var description string
	if len(payload.Weather) > 0 {
		description = payload.Weather[0].Description
	}

	return weather.ProviderReading{
		ProviderName: p.Name(),
		Timestamp:    ts,
		TemperatureC: payload.Main.Temp,
		FeelsLikeC:   payload.Main.FeelsLike,
		HumidityPct:  payload.Main.Humidity,
		WindSpeedMS:  payload.Wind.Speed,
		PressureHpa:  payload.Main.Pressure,
		VisibilityM:  payload.Visibility,
		Description:  description,
		Condition:    mapOpenWeatherCondition(payload.Weather),
	}, nil
}

type owmCondition struct {
	Main        string `json:"main"`
	Description string `json:"description"`
}

func mapOpenWeatherCondition(items []owmCondition) weather.Condition {
	if len(items) == 0 {
		return weather.ConditionUnknown
	}
	switch items[0].Main {
	case "Clear":
		return weather.ConditionClear
	case "Clouds":
		return weather.ConditionCloudy
	case "Rain", "Drizzle":
		return weather.ConditionRain
	case "Snow":
		return weather.ConditionSnow
	case "Thunderstorm":
		return weather.ConditionStorm
	case "Mist", "Fog", "Haze", "Smoke", "Dust":
		return weather.ConditionMist
	default:
		return weather.ConditionUnknown
	}
}
