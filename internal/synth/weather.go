package synth

import "fmt"

// WeatherSample is a synthesized set of current conditions.
type WeatherSample struct {
	Temperature float64
	FeelsLike   float64
	Humidity    float64
	Pressure    float64
	WindSpeed   float64
	Visibility  float64
}

// WeatherFor returns plausible conditions for a coordinate. Coordinates are
// keyed at three decimals so nearby requests share a sample.
func (s *Synthesizer) WeatherFor(lat, lon float64) WeatherSample {
	r := NewRand(Seed("weather", fmt.Sprintf("%.3f", lat), fmt.Sprintf("%.3f", lon)))

	return WeatherSample{
		Temperature: Round(Uniform(r, 25, 35), 1),
		FeelsLike:   Round(Uniform(r, 27, 37), 1),
		Humidity:    float64(IntBetween(r, 40, 80)),
		Pressure:    float64(IntBetween(r, 1010, 1020)),
		WindSpeed:   Round(Uniform(r, 2, 8), 1),
		Visibility:  10000,
	}
}
