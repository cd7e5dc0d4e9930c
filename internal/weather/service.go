package weather

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/i474232898/crop-recommendation/internal/metrics"
	"github.com/i474232898/crop-recommendation/internal/store"
	"github.com/i474232898/crop-recommendation/internal/synth"
)

var errNoReadings = errors.New("no successful provider readings")

// Service fetches current conditions from every provider concurrently,
// aggregates them and caches the result per coordinate.
type Service struct {
	cache     *store.ResultCache
	providers []Provider
	synth     *synth.Synthesizer
	ttl       time.Duration
}

// NewService creates a new Service. A non-positive ttl uses store.WeatherTTL.
func NewService(cache *store.ResultCache, providers []Provider, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = store.WeatherTTL
	}
	return &Service{
		cache:     cache,
		providers: providers,
		synth:     synth.New(),
		ttl:       ttl,
	}
}

// CacheKey is the cache key for a coordinate, rounded to about 100m.
func CacheKey(lat, lon float64) string {
	return fmt.Sprintf("weather:%.3f:%.3f", lat, lon)
}

// Current returns the weather at (lat, lon). When no provider succeeds the
// snapshot is synthesized from the coordinate and is not cached.
func (s *Service) Current(ctx context.Context, lat, lon float64) Snapshot {
	snap, err := store.GetOrLoadAs(ctx, s.cache, CacheKey(lat, lon), s.ttl, func(ctx context.Context) (Snapshot, error) {
		return s.fetch(ctx, lat, lon)
	})
	if err == nil {
		return snap
	}

	slog.Warn("weather unavailable, using synthesized conditions", "lat", lat, "lon", lon, "error", err)
	metrics.Fallbacks.WithLabelValues("weather").Inc()
	return s.Fallback(lat, lon)
}

// Fallback builds the deterministic substitute snapshot for a coordinate.
func (s *Service) Fallback(lat, lon float64) Snapshot {
	w := s.synth.WeatherFor(lat, lon)
	return Snapshot{
		Timestamp:   time.Now().UTC(),
		Temperature: w.Temperature,
		FeelsLike:   w.FeelsLike,
		Humidity:    w.Humidity,
		Pressure:    w.Pressure,
		WindSpeed:   w.WindSpeed,
		Visibility:  w.Visibility,
		Description: "Clear Sky",
		Condition:   ConditionClear,
		Source:      SourceFallback,
	}.withAgronomy()
}

func (s *Service) fetch(ctx context.Context, lat, lon float64) (Snapshot, error) {
	if len(s.providers) == 0 {
		return Snapshot{}, fmt.Errorf("no weather providers configured")
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		readings = make([]*ProviderReading, len(s.providers))
	)

	for i, p := range s.providers {
		wg.Add(1)
		go func() {
			defer wg.Done()

			r, err := p.Fetch(ctx, lat, lon)
			if err != nil {
				// Log and continue; we want partial success when possible.
				slog.Warn("weather provider fetch failed", "provider", p.Name(), "error", err)
				return
			}

			mu.Lock()
			readings[i] = &r
			mu.Unlock()
		}()
	}

	wg.Wait()

	// Keep configuration order so aggregation is stable.
	ok := make([]ProviderReading, 0, len(readings))
	for _, r := range readings {
		if r != nil {
			ok = append(ok, *r)
		}
	}
	if len(ok) == 0 {
		return Snapshot{}, errNoReadings
	}

	slog.Debug("weather aggregated", "lat", lat, "lon", lon, "providers", len(ok))
	return AggregateReadings(ok), nil
}
