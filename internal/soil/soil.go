// Package soil serves soil profiles. The soil class always comes from the
// regional table; measurements come from SoilGrids when enabled and are
// synthesized otherwise.
package soil

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/i474232898/crop-recommendation/internal/agro"
	"github.com/i474232898/crop-recommendation/internal/geo"
	"github.com/i474232898/crop-recommendation/internal/metrics"
	"github.com/i474232898/crop-recommendation/internal/store"
	"github.com/i474232898/crop-recommendation/internal/synth"
)

// Measurements are live topsoil readings.
type Measurements struct {
	PH            float64
	Nitrogen      float64
	OrganicCarbon float64
}

// Provider is a live soil property source.
type Provider interface {
	Name() string
	Properties(ctx context.Context, lat, lon float64) (Measurements, error)
}

// Service resolves the soil profile for a location.
type Service struct {
	cache    *store.ResultCache
	synth    *synth.Synthesizer
	provider Provider
	ttl      time.Duration
}

// NewService creates a Service. provider may be nil to disable live lookups.
// A non-positive ttl uses store.SoilTTL.
func NewService(cache *store.ResultCache, provider Provider, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = store.SoilTTL
	}
	return &Service{
		cache:    cache,
		synth:    synth.New(),
		provider: provider,
		ttl:      ttl,
	}
}

// Profile returns the soil profile at loc. It never fails; live errors fall
// back to the synthesized profile.
func (s *Service) Profile(ctx context.Context, loc geo.LocationContext) agro.SoilProfile {
	base := s.synthesized(loc)
	if s.provider == nil {
		return base
	}

	key := fmt.Sprintf("soil:live:%.3f:%.3f", loc.Latitude, loc.Longitude)
	m, err := store.GetOrLoadAs(ctx, s.cache, key, s.ttl, func(ctx context.Context) (Measurements, error) {
		return s.provider.Properties(ctx, loc.Latitude, loc.Longitude)
	})
	if err != nil {
		slog.Warn("live soil data unavailable, using synthesized profile",
			"provider", s.provider.Name(), "state", loc.State, "district", loc.District, "error", err)
		metrics.Fallbacks.WithLabelValues("soil").Inc()
		return base
	}

	return merge(base, m)
}

func (s *Service) synthesized(loc geo.LocationContext) agro.SoilProfile {
	key := fmt.Sprintf("soil:synth:%s:%s", loc.State, loc.District)
	if p, ok := store.GetAs[agro.SoilProfile](s.cache, key); ok {
		return p
	}
	p := s.synth.SoilFor(loc.State, loc.District)
	s.cache.Set(key, p, s.ttl)
	return p
}

// merge overlays live readings on the synthesized profile. Zero readings are
// gaps in the upstream grid and keep the synthesized value.
func merge(base agro.SoilProfile, m Measurements) agro.SoilProfile {
	if m.PH > 0 {
		base.PH.Mean = synth.Round(m.PH, 1)
	}
	if m.Nitrogen > 0 {
		base.Nitrogen.Mean = synth.Round(m.Nitrogen, 3)
	}
	if m.OrganicCarbon > 0 {
		base.OrganicCarbon.Mean = synth.Round(m.OrganicCarbon, 2)
	}
	return base
}
