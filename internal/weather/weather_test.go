package weather

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/i474232898/crop-recommendation/internal/store"
)

type stubProvider struct {
	name    string
	reading ProviderReading
	err     error
	calls   atomic.Int32
}

func (p *stubProvider) Name() string { return p.name }

func (p *stubProvider) Fetch(ctx context.Context, lat, lon float64) (ProviderReading, error) {
	p.calls.Add(1)
	if p.err != nil {
		return ProviderReading{}, p.err
	}
	r := p.reading
	r.ProviderName = p.name
	return r, nil
}

func TestGrowingDegreeDaysAndStress(t *testing.T) {
	tests := []struct {
		temp   float64
		gdd    float64
		stress Stress
	}{
		{temp: 5, gdd: 0, stress: StressLow},
		{temp: 28, gdd: 18, stress: StressLow},
		{temp: 28.04, gdd: 18, stress: StressMedium},
		{temp: 35, gdd: 25, stress: StressMedium},
		{temp: 36.26, gdd: 26.3, stress: StressHigh},
	}

	for _, tt := range tests {
		if got := GrowingDegreeDays(tt.temp); got != tt.gdd {
			t.Fatalf("GrowingDegreeDays(%v) = %v, want %v", tt.temp, got, tt.gdd)
		}
		if got := TemperatureStress(tt.temp); got != tt.stress {
			t.Fatalf("TemperatureStress(%v) = %s, want %s", tt.temp, got, tt.stress)
		}
	}
}

func TestAggregateReadings(t *testing.T) {
	ts := time.Date(2025, 1, 2, 10, 0, 0, 0, time.UTC)
	readings := []ProviderReading{
		{ProviderName: "a", Timestamp: ts, TemperatureC: 30, HumidityPct: 60, PressureHpa: 1010, Condition: ConditionCloudy, Description: "few clouds"},
		{ProviderName: "b", Timestamp: ts.Add(time.Minute), TemperatureC: 32, HumidityPct: 70, PressureHpa: 1012, VisibilityM: 8000, Condition: ConditionClear, Description: "clear sky"},
		{ProviderName: "c", Timestamp: ts, TemperatureC: 34, HumidityPct: 80, PressureHpa: 1014, Condition: ConditionClear, Description: "sunny"},
	}

	snap := AggregateReadings(readings)

	if snap.Temperature != 32 || snap.Humidity != 70 || snap.Pressure != 1012 {
		t.Fatalf("unexpected averages: %+v", snap)
	}
	if snap.Condition != ConditionClear || snap.Description != "Clear Sky" {
		t.Fatalf("expected majority clear with first matching description, got %s %q", snap.Condition, snap.Description)
	}
	if snap.Visibility != 8000 {
		t.Fatalf("visibility should average reporting providers only, got %v", snap.Visibility)
	}
	if !snap.Timestamp.Equal(ts.Add(time.Minute)) {
		t.Fatalf("expected newest timestamp, got %v", snap.Timestamp)
	}
	if snap.GrowingDegreeDays != 22 || snap.TemperatureStress != StressMedium {
		t.Fatalf("unexpected agronomy fields: gdd=%v stress=%s", snap.GrowingDegreeDays, snap.TemperatureStress)
	}
	if len(snap.Providers) != 3 || snap.Source != SourceLive {
		t.Fatalf("unexpected provenance: %+v", snap.Providers)
	}
}

func TestAggregateReadingsTieGoesToFirstProvider(t *testing.T) {
	readings := []ProviderReading{
		{Condition: ConditionRain, Description: "light rain"},
		{Condition: ConditionCloudy, Description: "overcast"},
	}
	for i := 0; i < 20; i++ {
		if got := AggregateReadings(readings).Condition; got != ConditionRain {
			t.Fatalf("expected tie to resolve to first provider, got %s", got)
		}
	}
}

func TestServicePartialSuccessAndCaching(t *testing.T) {
	good := &stubProvider{name: "good", reading: ProviderReading{TemperatureC: 31, HumidityPct: 55, Condition: ConditionClear}}
	bad := &stubProvider{name: "bad", err: errors.New("down")}
	svc := NewService(store.NewResultCache(0), []Provider{bad, good}, time.Minute)

	first := svc.Current(context.Background(), 21.7, 72.9)
	second := svc.Current(context.Background(), 21.7, 72.9)

	if first.Source != SourceLive || first.Temperature != 31 {
		t.Fatalf("expected live snapshot from healthy provider, got %+v", first)
	}
	if second.Temperature != first.Temperature {
		t.Fatalf("expected cached snapshot, got %+v", second)
	}
	if good.calls.Load() != 1 {
		t.Fatalf("expected one provider call thanks to caching, got %d", good.calls.Load())
	}
}

func TestServiceFallsBackDeterministically(t *testing.T) {
	bad := &stubProvider{name: "bad", err: errors.New("down")}
	svc := NewService(store.NewResultCache(0), []Provider{bad}, time.Minute)

	a := svc.Current(context.Background(), 19.07, 72.87)
	b := svc.Current(context.Background(), 19.07, 72.87)

	if a.Source != SourceFallback {
		t.Fatalf("expected fallback snapshot, got %s", a.Source)
	}
	if a.Temperature != b.Temperature || a.Humidity != b.Humidity || a.WindSpeed != b.WindSpeed {
		t.Fatalf("fallback must be deterministic: %+v vs %+v", a, b)
	}
	if a.Temperature < 25 || a.Temperature > 35 {
		t.Fatalf("fallback temperature out of range: %v", a.Temperature)
	}
	if bad.calls.Load() != 2 {
		t.Fatalf("fallback results must not be cached, got %d calls", bad.calls.Load())
	}
}
