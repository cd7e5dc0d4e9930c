package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/i474232898/crop-recommendation/internal/common"
	"github.com/i474232898/crop-recommendation/internal/resilience"
	"github.com/i474232898/crop-recommendation/internal/weather"
)

const weatherAPIURL = "https://api.weatherapi.com/v1/current.json"

// WeatherAPIProvider implements the weather.Provider interface for WeatherAPI.com.
type WeatherAPIProvider struct {
	apiKey  string
	baseURL string
	fetcher *resilience.Fetcher
}

// NewWeatherAPIProvider creates the provider. An empty baseURL uses the public endpoint.
func NewWeatherAPIProvider(fetcher *resilience.Fetcher, apiKey, baseURL string) *WeatherAPIProvider {
	if baseURL == "" {
		baseURL = weatherAPIURL
	}
	return &WeatherAPIProvider{
		apiKey:  apiKey,
		baseURL: baseURL,
		fetcher: fetcher,
	}
}

func (p *WeatherAPIProvider) Name() string {
	return resilience.UpstreamWeatherAPI
}

func (p *WeatherAPIProvider) Fetch(ctx context.Context, lat, lon float64) (weather.ProviderReading, error) {
	if p.apiKey == "" {
		return weather.ProviderReading{}, fmt.Errorf("weatherapi: %w", errMissingAPIKey)
	}

	values := url.Values{}
	values.Set("key", p.apiKey)
	// WeatherAPI accepts "lat,lon" in q.
	values.Set("q", fmt.Sprintf("%f,%f", lat, lon))
	u := fmt.Sprintf("%s?%s", p.baseURL, values.Encode())

	var payload struct {
		Location struct {
			LocaltimeEpoch int64 `json:"localtime_epoch"`
		} `json:"location"`
		Current struct {
			TempC      float64 `json:"temp_c"`
			FeelsLikeC float64 `json:"feelslike_c"`
			Humidity   float64 `json:"humidity"`
			WindKph    float64 `json:"wind_kph"`
			PressureMb float64 `json:"pressure_mb"`
			VisKm      float64 `json:"vis_km"`
			Condition  struct {
				Text string `json:"text"`
			} `json:"condition"`
		} `json:"current"`
	}

	err := p.fetcher.GetJSON(ctx, p.Name(), func(ctx context.Context) (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	}, &payload)
	if err != nil {
		return weather.ProviderReading{}, err
	}

	ts := time.Now().UTC()
	if payload.Location.LocaltimeEpoch > 0 {
		ts = time.Unix(payload.Location.LocaltimeEpoch, 0).UTC()
	}

	return weather.ProviderReading{
		ProviderName: p.Name(),
		Timestamp:    ts,
		TemperatureC: payload.Current.TempC,
		FeelsLikeC:   payload.Current.FeelsLikeC,
		HumidityPct:  payload.Current.Humidity,
		// kph to m/s
		WindSpeedMS: payload.Current.WindKph / 3.6,
		PressureHpa: payload.Current.PressureMb,
		VisibilityM: payload.Current.VisKm * 1000,
		Description: payload.Current.Condition.Text,
		Condition:   mapWeatherAPICondition(payload.Current.Condition.Text),
	}, nil
}

func mapWeatherAPICondition(text string) weather.Condition {
	switch {
	case text == "":
		return weather.ConditionUnknown
	case common.ContainsFold(text, "thunder") || common.ContainsFold(text, "storm"):
		return weather.ConditionStorm
	case common.ContainsFold(text, "rain") || common.ContainsFold(text, "shower") || common.ContainsFold(text, "drizzle"):
		return weather.ConditionRain
	case common.ContainsFold(text, "snow") || common.ContainsFold(text, "sleet") || common.ContainsFold(text, "blizzard"):
		return weather.ConditionSnow
	case common.ContainsFold(text, "mist") || common.ContainsFold(text, "fog"):
		return weather.ConditionMist
	case common.ContainsFold(text, "cloud") || common.ContainsFold(text, "overcast"):
		return weather.ConditionCloudy
	case common.ContainsFold(text, "sunny") || common.ContainsFold(text, "clear"):
		return weather.ConditionClear
	default:
		return weather.ConditionUnknown
	}
}
