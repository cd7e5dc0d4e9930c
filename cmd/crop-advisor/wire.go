package main

import (
	"log/slog"
	"net/http"

	"github.com/i474232898/crop-recommendation/internal/config"
	"github.com/i474232898/crop-recommendation/internal/geo"
	"github.com/i474232898/crop-recommendation/internal/market"
	"github.com/i474232898/crop-recommendation/internal/recommend"
	"github.com/i474232898/crop-recommendation/internal/resilience"
	"github.com/i474232898/crop-recommendation/internal/soil"
	"github.com/i474232898/crop-recommendation/internal/store"
	"github.com/i474232898/crop-recommendation/internal/weather"
	"github.com/i474232898/crop-recommendation/internal/weather/providers"
)

// components is everything a command needs, built once from config.
type components struct {
	cache      *store.ResultCache
	resilience *resilience.Context
	service    *recommend.Service
}

func build(cfg *config.AppConfig) *components {
	cache := store.NewResultCache(cfg.Cache.MaxEntries)
	rc := resilience.NewContext(cache, cfg.Breaker(), cfg.Limits())

	// Shared HTTP client for outbound provider calls.
	httpClient := &http.Client{Timeout: cfg.Upstreams.HTTPTimeout}
	fetcher := resilience.NewFetcher(rc, httpClient, cfg.Policy())

	up := cfg.Upstreams

	geocoders := []geo.Geocoder{
		geo.NewNominatim(fetcher, up.NominatimURL, up.NominatimUserAgent),
		geo.NewBigDataCloud(fetcher, up.BigDataCloudURL),
	}
	if up.GoogleAPIKey != "" {
		geocoders = append(geocoders, geo.NewGoogle(fetcher, up.GoogleAPIKey))
	}
	locations := geo.NewChain(cache, cfg.Cache.LocationTTL, geocoders...)

	var provs []weather.Provider
	if up.OpenWeatherAPIKey != "" {
		provs = append(provs, providers.NewOpenWeatherProvider(fetcher, up.OpenWeatherAPIKey, up.OpenWeatherURL))
	}
	if up.WeatherAPIKey != "" {
		provs = append(provs, providers.NewWeatherAPIProvider(fetcher, up.WeatherAPIKey, up.WeatherAPIURL))
	}
	if up.OpenMeteoEnabled {
		provs = append(provs, providers.NewOpenMeteoProvider(fetcher, up.OpenMeteoURL))
	}
	if len(provs) == 0 {
		slog.Warn("no weather providers configured, conditions will be synthesized")
	}
	weatherService := weather.NewService(cache, provs, cfg.Cache.WeatherTTL)

	var soilProvider soil.Provider
	if up.SoilLiveEnabled {
		soilProvider = soil.NewSoilGrids(fetcher, up.SoilGridsURL)
	}
	soilService := soil.NewService(cache, soilProvider, cfg.Cache.SoilTTL)

	var priceProvider market.PriceProvider
	if up.PriceAPIURL != "" {
		priceProvider = market.NewAgmarknet(fetcher, up.PriceAPIURL)
	}
	prices := market.NewService(cache, priceProvider, cfg.Cache.MarketTTL)

	engine := recommend.NewEngine(prices, recommend.WithPriceWorkers(cfg.Engine.PriceWorkers))

	slog.Info("components ready",
		"geocoders", len(geocoders),
		"weather_providers", len(provs),
		"live_soil", soilProvider != nil,
		"live_prices", priceProvider != nil,
	)

	return &components{
		cache:      cache,
		resilience: rc,
		service:    recommend.NewService(locations, weatherService, soilService, engine, cfg.Server.RequestTimeout),
	}
}
