package weather

import (
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/i474232898/crop-recommendation/internal/synth"
)

// AggregateReadings combines multiple provider readings into a single Snapshot.
// Numeric fields are averaged; the condition is the majority, ties going to
// the provider listed first. Visibility is averaged over providers that
// report it.
func AggregateReadings(readings []ProviderReading) Snapshot {
	if len(readings) == 0 {
		return Snapshot{
			Timestamp: time.Now().UTC(),
			Condition: ConditionUnknown,
		}
	}

	var (
		sumTemp       float64
		sumFeels      float64
		sumHumidity   float64
		sumWind       float64
		sumPressure   float64
		sumVisibility float64
		visibilityN   int
	)

	conditionCounts := make(map[Condition]int)
	providers := make([]ProviderContribution, 0, len(readings))
	var newestTS time.Time

	for _, r := range readings {
		sumTemp += r.TemperatureC
		sumFeels += r.FeelsLikeC
		sumHumidity += r.HumidityPct
		sumWind += r.WindSpeedMS
		sumPressure += r.PressureHpa
		if r.VisibilityM > 0 {
			sumVisibility += r.VisibilityM
			visibilityN++
		}

		conditionCounts[r.Condition]++

		if r.Timestamp.After(newestTS) {
			newestTS = r.Timestamp
		}

		providers = append(providers, ProviderContribution{
			ProviderName: r.ProviderName,
			Timestamp:    r.Timestamp,
		})
	}

	n := float64(len(readings))

	// Walk readings in order so ties resolve to the first provider.
	bestCond := ConditionUnknown
	bestCount := 0
	description := ""
	for _, r := range readings {
		if c := conditionCounts[r.Condition]; c > bestCount {
			bestCount = c
			bestCond = r.Condition
			description = r.Description
		}
	}
	if description == "" {
		description = string(bestCond)
	}

	visibility := defaultVisibility
	if visibilityN > 0 {
		visibility = sumVisibility / float64(visibilityN)
	}

	if newestTS.IsZero() {
		newestTS = time.Now().UTC()
	}

	return Snapshot{
		Timestamp:   newestTS,
		Temperature: synth.Round(sumTemp/n, 1),
		FeelsLike:   synth.Round(sumFeels/n, 1),
		Humidity:    synth.Round(sumHumidity/n, 1),
		WindSpeed:   synth.Round(sumWind/n, 1),
		Pressure:    synth.Round(sumPressure/n, 1),
		Visibility:  visibility,
		Description: cases.Title(language.English).String(description),
		Condition:   bestCond,
		Source:      SourceLive,
		Providers:   providers,
	}.withAgronomy()
}
