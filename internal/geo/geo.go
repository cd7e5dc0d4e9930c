// Package geo resolves coordinates to administrative names.
package geo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/i474232898/crop-recommendation/internal/metrics"
	"github.com/i474232898/crop-recommendation/internal/store"
)

// ErrNotFound is returned when a geocoder answers but has no usable address.
var ErrNotFound = errors.New("location not found")

// LocationTTL is how long a resolved location stays cached.
const LocationTTL = 24 * time.Hour

const (
	UnknownArea     = "Unknown Area"
	UnknownDistrict = "Unknown District"
	UnknownState    = "Unknown State"
	DefaultCountry  = "India"
)

// LocationContext is the administrative context of a coordinate.
type LocationContext struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Area      string  `json:"area"`
	District  string  `json:"district"`
	State     string  `json:"state"`
	Country   string  `json:"country"`
}

// Geocoder resolves a coordinate.
type Geocoder interface {
	Name() string
	Resolve(ctx context.Context, lat, lon float64) (LocationContext, error)
}

// Fallback is the context used when every geocoder fails.
func Fallback(lat, lon float64) LocationContext {
	return LocationContext{
		Latitude:  lat,
		Longitude: lon,
		Area:      fmt.Sprintf("Location %.3f°N, %.3f°E", lat, lon),
		District:  UnknownDistrict,
		State:     UnknownState,
		Country:   DefaultCountry,
	}
}

// Chain tries geocoders in order and caches the first answer.
type Chain struct {
	geocoders []Geocoder
	cache     *store.ResultCache
	ttl       time.Duration
}

// NewChain creates a Chain. A non-positive ttl uses LocationTTL.
func NewChain(cache *store.ResultCache, ttl time.Duration, geocoders ...Geocoder) *Chain {
	if ttl <= 0 {
		ttl = LocationTTL
	}
	return &Chain{geocoders: geocoders, cache: cache, ttl: ttl}
}

func (c *Chain) Name() string {
	return "chain"
}

// Resolve never fails: when no geocoder answers it returns Fallback.
// Fallback results are not cached.
func (c *Chain) Resolve(ctx context.Context, lat, lon float64) (LocationContext, error) {
	key := fmt.Sprintf("location:%.4f:%.4f", lat, lon)
	loc, err := store.GetOrLoadAs(ctx, c.cache, key, c.ttl, func(ctx context.Context) (LocationContext, error) {
		return c.resolve(ctx, lat, lon)
	})
	if err == nil {
		// Nearby points share a cache cell; report the ones asked for.
		loc.Latitude, loc.Longitude = lat, lon
		return loc, nil
	}
	if ctx.Err() != nil {
		return LocationContext{}, ctx.Err()
	}

	slog.Warn("all geocoders failed, using coordinate label", "lat", lat, "lon", lon, "error", err)
	metrics.Fallbacks.WithLabelValues("location").Inc()
	return Fallback(lat, lon), nil
}

func (c *Chain) resolve(ctx context.Context, lat, lon float64) (LocationContext, error) {
	var errs []error
	for _, g := range c.geocoders {
		loc, err := g.Resolve(ctx, lat, lon)
		if err == nil {
			loc.Latitude, loc.Longitude = lat, lon
			slog.Debug("location resolved", "geocoder", g.Name(), "state", loc.State, "district", loc.District)
			return loc, nil
		}
		slog.Warn("geocoder failed", "geocoder", g.Name(), "error", err)
		errs = append(errs, fmt.Errorf("%s: %w", g.Name(), err))
		if ctx.Err() != nil {
			break
		}
	}
	if len(errs) == 0 {
		return LocationContext{}, ErrNotFound
	}
	return LocationContext{}, errors.Join(errs...)
}
