package recommend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/i474232898/crop-recommendation/internal/agro"
	"github.com/i474232898/crop-recommendation/internal/geo"
	"github.com/i474232898/crop-recommendation/internal/market"
	"github.com/i474232898/crop-recommendation/internal/metrics"
	"github.com/i474232898/crop-recommendation/internal/weather"
)

// ErrInvalidInput is returned for missing or out-of-range coordinates.
var ErrInvalidInput = errors.New("invalid input")

// DefaultRequestTimeout bounds one prediction end to end.
const DefaultRequestTimeout = 30 * time.Second

// Geocoder resolves a coordinate to its administrative context.
type Geocoder interface {
	Resolve(ctx context.Context, lat, lon float64) (geo.LocationContext, error)
}

// WeatherSource returns current conditions; it never fails.
type WeatherSource interface {
	Current(ctx context.Context, lat, lon float64) weather.Snapshot
}

// SoilSource returns the soil profile at a location; it never fails.
type SoilSource interface {
	Profile(ctx context.Context, loc geo.LocationContext) agro.SoilProfile
}

// MarketSummary describes the price data behind a response.
type MarketSummary struct {
	MarketStatus string      `json:"market_status"`
	DataSource   string      `json:"data_source"`
	State        string      `json:"state"`
	District     string      `json:"district"`
	Season       agro.Season `json:"season"`
	LivePrices   int         `json:"live_prices"`
}

// Response is the full prediction for a coordinate.
type Response struct {
	Success     bool                `json:"success"`
	RequestID   string              `json:"request_id"`
	GeneratedAt time.Time           `json:"generated_at"`
	Location    geo.LocationContext `json:"location"`
	WeatherData weather.Snapshot    `json:"weather_data"`
	SoilData    agro.SoilProfile    `json:"soil_data"`
	MarketData  MarketSummary       `json:"market_data"`
	Predictions Predictions         `json:"predictions"`
}

// Service assembles predictions from the collaborators and the Engine.
type Service struct {
	geocoder Geocoder
	weather  WeatherSource
	soil     SoilSource
	engine   *Engine
	timeout  time.Duration
}

// NewService creates a Service. A non-positive timeout uses DefaultRequestTimeout.
func NewService(geocoder Geocoder, weather WeatherSource, soil SoilSource, engine *Engine, timeout time.Duration) *Service {
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	return &Service{
		geocoder: geocoder,
		weather:  weather,
		soil:     soil,
		engine:   engine,
		timeout:  timeout,
	}
}

// Engine returns the ranking engine.
func (s *Service) Engine() *Engine {
	return s.engine
}

// ValidateCoordinates rejects NaN, infinite and out-of-range values.
func ValidateCoordinates(lat, lon float64) error {
	if math.IsNaN(lat) || math.IsNaN(lon) || math.IsInf(lat, 0) || math.IsInf(lon, 0) {
		return fmt.Errorf("%w: coordinates must be finite numbers", ErrInvalidInput)
	}
	if lat < -90 || lat > 90 {
		return fmt.Errorf("%w: latitude %v out of range", ErrInvalidInput, lat)
	}
	if lon < -180 || lon > 180 {
		return fmt.Errorf("%w: longitude %v out of range", ErrInvalidInput, lon)
	}
	return nil
}

// Predict resolves the location, then gathers weather and soil concurrently,
// then ranks crops. Only invalid coordinates or the caller giving up produce
// an error; every upstream failure degrades to fallback data.
func (s *Service) Predict(ctx context.Context, lat, lon float64) (Response, error) {
	if err := ValidateCoordinates(lat, lon); err != nil {
		return Response{}, err
	}

	start := time.Now()
	defer func() {
		metrics.PredictionDuration.Observe(time.Since(start).Seconds())
	}()

	parent := ctx
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	requestID := uuid.NewString()
	log := slog.With("request_id", requestID)
	log.Info("processing prediction", "lat", lat, "lon", lon)

	loc, err := s.geocoder.Resolve(ctx, lat, lon)
	if err != nil {
		if parent.Err() != nil {
			return Response{}, fmt.Errorf("resolve location: %w", err)
		}
		log.Warn("location unresolved, using coordinate label", "error", err)
		loc = geo.Fallback(lat, lon)
	}

	var (
		snap weather.Snapshot
		soil agro.SoilProfile
		g    errgroup.Group
	)
	g.Go(func() error {
		snap = s.weather.Current(ctx, lat, lon)
		return nil
	})
	g.Go(func() error {
		soil = s.soil.Profile(ctx, loc)
		return nil
	})
	_ = g.Wait()

	preds := s.engine.Rank(ctx, loc, soil.SoilType)
	// Running out of our own budget still yields a degraded answer; a caller
	// that has gone away does not need one.
	if err := parent.Err(); err != nil {
		return Response{}, fmt.Errorf("prediction aborted: %w", err)
	}

	live := 0
	for _, c := range preds.AllCrops {
		if c.PriceSource == market.SourceLive {
			live++
		}
	}

	log.Info("prediction ready", "state", loc.State, "district", loc.District,
		"season", preds.Season, "soil", soil.SoilType, "crops", len(preds.AllCrops), "live_prices", live)

	return Response{
		Success:     true,
		RequestID:   requestID,
		GeneratedAt: time.Now().UTC(),
		Location:    loc,
		WeatherData: snap,
		SoilData:    soil,
		MarketData: MarketSummary{
			MarketStatus: "Active",
			DataSource:   "AGMARKNET",
			State:        loc.State,
			District:     loc.District,
			Season:       preds.Season,
			LivePrices:   live,
		},
		Predictions: preds,
	}, nil
}
