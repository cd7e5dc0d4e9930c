package weather

import (
	"math"
	"time"
)

// Condition represents a normalized high-level weather condition.
type Condition string

const (
	ConditionUnknown Condition = "unknown"
	ConditionClear   Condition = "clear"
	ConditionCloudy  Condition = "cloudy"
	ConditionRain    Condition = "rain"
	ConditionSnow    Condition = "snow"
	ConditionStorm   Condition = "storm"
	ConditionMist    Condition = "mist"
)

// Stress is the crop temperature stress level.
type Stress string

const (
	StressLow    Stress = "Low"
	StressMedium Stress = "Medium"
	StressHigh   Stress = "High"
)

// Source tells whether a snapshot came from providers or was synthesized.
type Source string

const (
	SourceLive     Source = "live"
	SourceFallback Source = "fallback"
)

// gddBase is the base temperature for growing degree days, in Celsius.
const gddBase = 10.0

// defaultVisibility is used when no provider reports visibility, in metres.
const defaultVisibility = 10000.0

// Snapshot is the normalized weather view for one request. It is immutable
// once built.
type Snapshot struct {
	Timestamp   time.Time `json:"timestamp"` // always UTC
	Temperature float64   `json:"temperature"`
	FeelsLike   float64   `json:"feels_like"`
	Humidity    float64   `json:"humidity"`
	Pressure    float64   `json:"pressure"`
	WindSpeed   float64   `json:"wind_speed"`
	Visibility  float64   `json:"visibility"`
	Description string    `json:"description"`
	Condition   Condition `json:"condition"`

	GrowingDegreeDays float64  `json:"growing_degree_days"`
	TemperatureStress Stress   `json:"temperature_stress"`
	OptimalCrops      []string `json:"optimal_for_crops"`

	Source Source `json:"source"`

	// Providers contributing to this snapshot.
	Providers []ProviderContribution `json:"providers,omitempty"`
}

// ProviderContribution describes data coming from a single provider used in aggregation.
type ProviderContribution struct {
	ProviderName string    `json:"provider"`
	Timestamp    time.Time `json:"timestamp"`
}

// GrowingDegreeDays returns max(0, temp - 10) rounded to one decimal.
func GrowingDegreeDays(temp float64) float64 {
	return math.Max(0, math.Round((temp-gddBase)*10)/10)
}

// TemperatureStress classifies temp: above 35 is High, above 28 Medium.
func TemperatureStress(temp float64) Stress {
	switch {
	case temp > 35:
		return StressHigh
	case temp > 28:
		return StressMedium
	default:
		return StressLow
	}
}

// OptimalCrops lists crops that do well at the current temperature.
func OptimalCrops(temp float64) []string {
	switch {
	case temp > 30:
		return []string{"Cotton", "Sugarcane", "Rice"}
	case temp > 20:
		return []string{"Wheat", "Maize", "Soybean"}
	default:
		return []string{"Barley", "Mustard", "Chickpea"}
	}
}

// withAgronomy fills the derived agricultural fields from Temperature.
func (s Snapshot) withAgronomy() Snapshot {
	s.GrowingDegreeDays = GrowingDegreeDays(s.Temperature)
	s.TemperatureStress = TemperatureStress(s.Temperature)
	s.OptimalCrops = OptimalCrops(s.Temperature)
	return s
}
