package synth

import (
	"hash/fnv"
	"math"
	"math/rand/v2"
	"strings"
)

// seedModulus keeps derived seeds in [0, 10000).
const seedModulus = 10000

// Seed derives a stable seed from identifying parts joined with "_".
// The hash is FNV-1a so seeds are identical across processes and platforms.
func Seed(parts ...string) uint64 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(strings.Join(parts, "_")))
	return uint64(h.Sum32()) % seedModulus
}

// NewRand returns a generator scoped to one derivation. Callers must not
// share it across unrelated locations.
func NewRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// Uniform draws from [lo, hi).
func Uniform(r *rand.Rand, lo, hi float64) float64 {
	return lo + r.Float64()*(hi-lo)
}

// IntBetween draws from the closed interval [lo, hi].
func IntBetween(r *rand.Rand, lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + r.IntN(hi-lo+1)
}

// Round rounds v to the given number of decimal places.
func Round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
