// Package recommend ranks candidate crops for a location.
package recommend

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/i474232898/crop-recommendation/internal/agro"
	"github.com/i474232898/crop-recommendation/internal/geo"
	"github.com/i474232898/crop-recommendation/internal/market"
	"github.com/i474232898/crop-recommendation/internal/profit"
	"github.com/i474232898/crop-recommendation/internal/synth"
)

const (
	// soilMatchBonus is added to the score of a soil-matched crop that is not Low.
	soilMatchBonus = 15
	// soilMatchYieldFactor boosts the yield of the same crops.
	soilMatchYieldFactor = 1.10
	// TopN is the number of headline recommendations.
	TopN = 5
	// DefaultPriceWorkers bounds concurrent price lookups per request.
	DefaultPriceWorkers = 4
)

// PriceSource returns a market price for a crop. It must not fail; missing
// prices are substituted by the implementation.
type PriceSource interface {
	Price(ctx context.Context, crop, state, district string) market.Quote
}

// Candidate is one ranked crop.
type Candidate struct {
	profit.Breakdown

	Suitability      agro.Suitability `json:"suitability"`
	Season           agro.Season      `json:"season"`
	SoilMatch        bool             `json:"soil_match"`
	SuitabilityScore int              `json:"suitability_score"`
	Confidence       int              `json:"confidence"`
	Rank             int              `json:"rank"`
	PriceSource      market.Source    `json:"price_source"`
}

// Filters records what the candidate list was filtered by.
type Filters struct {
	Season         agro.Season   `json:"season"`
	SoilType       agro.SoilType `json:"soil_type"`
	CropsEvaluated int           `json:"crops_evaluated"`
}

// Predictions is the ranked output for one location.
type Predictions struct {
	Success            bool        `json:"success"`
	TopRecommendations []Candidate `json:"top_recommendations"`
	AllCrops           []Candidate `json:"all_crops"`
	ModelConfidence    float64     `json:"model_confidence"`
	Season             agro.Season `json:"season"`
	FiltersApplied     Filters     `json:"filters_applied"`
}

// Engine scores and orders candidate crops. It holds no per-request state.
type Engine struct {
	calc    *profit.Calculator
	prices  PriceSource
	workers int
	now     func() time.Time
}

// EngineOption customises an Engine.
type EngineOption func(*Engine)

// WithClock sets the time source used to pick the season.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) { e.now = now }
}

// WithPriceWorkers bounds concurrent price lookups.
func WithPriceWorkers(n int) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.workers = n
		}
	}
}

// WithCalculator replaces the profit calculator.
func WithCalculator(c *profit.Calculator) EngineOption {
	return func(e *Engine) { e.calc = c }
}

// NewEngine creates an Engine pricing crops through prices.
func NewEngine(prices PriceSource, opts ...EngineOption) *Engine {
	e := &Engine{
		calc:    profit.NewCalculator(),
		prices:  prices,
		workers: DefaultPriceWorkers,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Season returns the current cropping season.
func (e *Engine) Season() agro.Season {
	return agro.SeasonAt(e.now())
}

// Rank evaluates every in-season crop of the state's table and returns them
// ordered by suitability score, net profit and confidence, all descending,
// with the crop name breaking any remaining tie.
func (e *Engine) Rank(ctx context.Context, loc geo.LocationContext, soil agro.SoilType) Predictions {
	season := e.Season()

	var eligible []agro.CropProfile
	for _, c := range agro.StateCrops(loc.State) {
		if agro.InSeason(season, c.Crop) {
			eligible = append(eligible, c)
		}
	}

	quotes := e.quotes(ctx, loc, eligible)
	locationSeed := synth.LocationSeed(loc.State, loc.District)

	candidates := make([]Candidate, 0, len(eligible))
	for i, c := range eligible {
		candidates = append(candidates, e.evaluate(loc.State, c, soil, season, quotes[i], locationSeed))
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return less(candidates[j], candidates[i])
	})
	for i := range candidates {
		candidates[i].Rank = i + 1
	}

	top := candidates
	if len(top) > TopN {
		top = top[:TopN]
	}

	slog.Debug("crops ranked", "state", loc.State, "district", loc.District,
		"season", season, "soil", soil, "evaluated", len(candidates))

	return Predictions{
		Success:            true,
		TopRecommendations: top,
		AllCrops:           candidates,
		ModelConfidence:    agro.ModelConfidence(loc.State),
		Season:             season,
		FiltersApplied: Filters{
			Season:         season,
			SoilType:       soil,
			CropsEvaluated: len(candidates),
		},
	}
}

// quotes looks up every price with at most e.workers requests in flight.
// Each lookup substitutes its own fallback, so one miss never fails the rest.
func (e *Engine) quotes(ctx context.Context, loc geo.LocationContext, crops []agro.CropProfile) []market.Quote {
	out := make([]market.Quote, len(crops))

	var g errgroup.Group
	g.SetLimit(e.workers)
	for i, c := range crops {
		g.Go(func() error {
			out[i] = e.prices.Price(ctx, c.Crop, loc.State, loc.District)
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func (e *Engine) evaluate(state string, c agro.CropProfile, soil agro.SoilType, season agro.Season, quote market.Quote, locationSeed uint64) Candidate {
	stream := synth.CropRand(locationSeed, c.Crop)

	yield := stream.Yield(state, c.Crop)
	breakdown := e.calc.Compute(c.Crop, yield, quote.PricePerQuintal)

	score := c.Suitability.BaseScore()
	soilMatch := agro.SoilSuits(soil, c.Crop)
	if soilMatch && c.Suitability != agro.SuitabilityLow {
		score += soilMatchBonus
		yield *= soilMatchYieldFactor
		breakdown = e.calc.Compute(c.Crop, yield, quote.PricePerQuintal)
	}

	lo, hi := confidenceBand(score)

	return Candidate{
		Breakdown:        breakdown,
		Suitability:      c.Suitability,
		Season:           season,
		SoilMatch:        soilMatch,
		SuitabilityScore: score,
		Confidence:       stream.IntBetween(lo, hi),
		PriceSource:      quote.Source,
	}
}

// confidenceBand maps a suitability score to the inclusive confidence range.
func confidenceBand(score int) (int, int) {
	switch {
	case score >= 90:
		return 92, 98
	case score >= 75:
		return 85, 92
	case score >= 50:
		return 75, 88
	default:
		return 65, 78
	}
}

// less orders a below b.
func less(a, b Candidate) bool {
	if a.SuitabilityScore != b.SuitabilityScore {
		return a.SuitabilityScore < b.SuitabilityScore
	}
	if a.NetProfit != b.NetProfit {
		return a.NetProfit < b.NetProfit
	}
	if a.Confidence != b.Confidence {
		return a.Confidence < b.Confidence
	}
	// Alphabetical order wins the final tie.
	return a.Crop > b.Crop
}
