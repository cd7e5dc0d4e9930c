// Package market looks up crop modal prices in INR per quintal.
package market

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/i474232898/crop-recommendation/internal/agro"
	"github.com/i474232898/crop-recommendation/internal/metrics"
	"github.com/i474232898/crop-recommendation/internal/store"
)

// Source tells where a price came from.
type Source string

const (
	SourceLive     Source = "live"
	SourceFallback Source = "fallback"
)

// Quote is a price for one crop.
type Quote struct {
	Crop            string  `json:"crop"`
	PricePerQuintal float64 `json:"price_per_quintal"`
	Source          Source  `json:"source"`
}

// PriceProvider is a live price source.
type PriceProvider interface {
	Name() string
	ModalPrice(ctx context.Context, crop, state, district string) (Quote, error)
}

// Service returns prices, preferring the cache, then the provider, then the
// historical average table.
type Service struct {
	cache    *store.ResultCache
	provider PriceProvider
	ttl      time.Duration
}

// NewService creates a Service. provider may be nil, in which case every
// price comes from the table. A non-positive ttl uses store.MarketTTL.
func NewService(cache *store.ResultCache, provider PriceProvider, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = store.MarketTTL
	}
	return &Service{cache: cache, provider: provider, ttl: ttl}
}

// CacheKey is the cache key for a crop price in a market.
func CacheKey(crop, state, district string) string {
	return fmt.Sprintf("market:%s:%s:%s", crop, state, district)
}

// Price returns the modal price for crop in the district's market. It never
// fails; a missing live price is replaced by the table average.
func (s *Service) Price(ctx context.Context, crop, state, district string) Quote {
	if s.provider == nil {
		return Fallback(crop)
	}

	q, err := store.GetOrLoadAs(ctx, s.cache, CacheKey(crop, state, district), s.ttl, func(ctx context.Context) (Quote, error) {
		return s.provider.ModalPrice(ctx, crop, state, district)
	})
	if err != nil {
		slog.Warn("live price unavailable, using historical average",
			"crop", crop, "state", state, "district", district, "error", err)
		metrics.Fallbacks.WithLabelValues("price").Inc()
		return Fallback(crop)
	}
	return q
}

// Fallback is the table price for crop.
func Fallback(crop string) Quote {
	return Quote{Crop: crop, PricePerQuintal: agro.FallbackPrice(crop), Source: SourceFallback}
}
