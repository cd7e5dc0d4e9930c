// Package synth derives reproducible fallback data from location identity.
//
// Every value produced here is a pure function of its inputs: the same
// (state, district) always yields the same soil profile and the same yield
// draws, in this process and in any other.
package synth

import (
	"math"
	"math/rand/v2"

	"github.com/i474232898/crop-recommendation/internal/agro"
)

// Soil jitter half-widths applied around the base properties.
const (
	phJitter       = 0.2
	nitrogenJitter = 0.05
	socJitter      = 2.0
)

// Physical floors for synthesized soil properties.
const (
	minPH            = 0.0
	minNitrogen      = 0.1
	minOrganicCarbon = 2.0
)

// Synthesizer produces deterministic soil and yield values.
type Synthesizer struct{}

// New returns a Synthesizer.
func New() *Synthesizer {
	return &Synthesizer{}
}

// SoilFor returns the soil profile for a state and district. The soil type
// comes from the lookup table; the measurements are the base properties of
// that type with small jitter seeded by state and soil type.
func (s *Synthesizer) SoilFor(state, district string) agro.SoilProfile {
	soilType := agro.SoilTypeFor(state, district)
	base := agro.PropertiesFor(soilType)

	r := NewRand(Seed(state, string(soilType)))
	ph := base.PH + Uniform(r, -phJitter, phJitter)
	n := base.Nitrogen + Uniform(r, -nitrogenJitter, nitrogenJitter)
	soc := base.OrganicCarbon + Uniform(r, -socJitter, socJitter)

	return agro.SoilProfile{
		SoilType:              soilType,
		PH:                    agro.Measurement{Mean: Round(math.Max(minPH, ph), 1), Unit: "pH"},
		Nitrogen:              agro.Measurement{Mean: Round(math.Max(minNitrogen, n), 3), Unit: "g/kg"},
		OrganicCarbon:         agro.Measurement{Mean: Round(math.Max(minOrganicCarbon, soc), 2), Unit: "g/kg"},
		AgriculturePercentage: Round(base.AgriculturePercentage, 1),
		ForestPercentage:      Round(base.ForestPercentage, 1),
	}
}

// LocationSeed is the seed shared by all per-crop draws for one location.
func LocationSeed(state, district string) uint64 {
	return Seed(state, district)
}

// CropStream is the ordered sequence of draws for one crop at one location.
type CropStream struct {
	r *rand.Rand
}

// CropRand returns the stream for one crop at one location. Each crop gets
// its own stream so the order in which candidates are evaluated never changes
// what any single candidate draws.
func CropRand(locationSeed uint64, crop string) *CropStream {
	return &CropStream{r: NewRand(locationSeed*seedModulus + Seed(crop))}
}

// Yield draws from crop's yield range in state.
func (c *CropStream) Yield(state, crop string) float64 {
	yr := agro.DefaultYieldRange
	if profile, ok := agro.StateCrop(state, crop); ok {
		yr = profile.Yield
	}
	return Uniform(c.r, yr.Min, yr.Max)
}

// IntBetween draws an integer from [lo, hi].
func (c *CropStream) IntBetween(lo, hi int) int {
	return IntBetween(c.r, lo, hi)
}

// YieldRangeSample draws a yield estimate for crop in state from the state's
// (min, max) table range, or the default table when the state is unlisted.
// It equals the first draw of CropRand(locationSeed, crop).
func (s *Synthesizer) YieldRangeSample(state, crop string, locationSeed uint64) float64 {
	return CropRand(locationSeed, crop).Yield(state, crop)
}
