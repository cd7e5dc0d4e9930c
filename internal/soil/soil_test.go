package soil

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/i474232898/crop-recommendation/internal/agro"
	"github.com/i474232898/crop-recommendation/internal/geo"
	"github.com/i474232898/crop-recommendation/internal/resilience"
	"github.com/i474232898/crop-recommendation/internal/store"
)

var bharuch = geo.LocationContext{Latitude: 21.7, Longitude: 72.98, District: "Bharuch", State: "Gujarat", Country: "India"}

type failingProvider struct{}

func (failingProvider) Name() string { return "failing" }

func (failingProvider) Properties(ctx context.Context, lat, lon float64) (Measurements, error) {
	return Measurements{}, errors.New("down")
}

func TestProfileWithoutProviderIsSynthesized(t *testing.T) {
	svc := NewService(store.NewResultCache(0), nil, 0)

	a := svc.Profile(context.Background(), bharuch)
	b := NewService(store.NewResultCache(0), nil, 0).Profile(context.Background(), bharuch)

	if a != b {
		t.Fatalf("synthesized profile must be deterministic: %+v vs %+v", a, b)
	}
	if a.SoilType != agro.SoilBlack {
		t.Fatalf("expected Black Soil for Gujarat, got %s", a.SoilType)
	}
}

func TestProfileFallsBackWhenProviderFails(t *testing.T) {
	withFailure := NewService(store.NewResultCache(0), failingProvider{}, 0).Profile(context.Background(), bharuch)
	synthesized := NewService(store.NewResultCache(0), nil, 0).Profile(context.Background(), bharuch)

	if withFailure != synthesized {
		t.Fatalf("expected synthesized fallback, got %+v", withFailure)
	}
}

func TestProfileMergesSoilGrids(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if len(r.URL.Query()["property"]) != 3 || r.URL.Query().Get("depth") != "0-5cm" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		_, _ = w.Write([]byte(`{"properties":{"layers":[
			{"name":"phh2o","unit_measure":{"d_factor":10},"depths":[{"label":"0-5cm","values":{"mean":78}}]},
			{"name":"nitrogen","unit_measure":{"d_factor":100},"depths":[{"label":"0-5cm","values":{"mean":125}}]},
			{"name":"soc","unit_measure":{"d_factor":10},"depths":[{"label":"0-5cm","values":{"mean":null}}]}
		]}}`))
	}))
	defer srv.Close()

	rc := resilience.NewContext(store.NewResultCache(0), resilience.DefaultBreakerSettings, nil)
	fetcher := resilience.NewFetcher(rc, http.DefaultClient, resilience.Policy{CallTimeout: time.Second})
	svc := NewService(store.NewResultCache(0), NewSoilGrids(fetcher, srv.URL), time.Hour)

	got := svc.Profile(context.Background(), bharuch)
	synthesized := NewService(store.NewResultCache(0), nil, 0).Profile(context.Background(), bharuch)

	if got.PH.Mean != 7.8 || got.Nitrogen.Mean != 1.25 {
		t.Fatalf("expected live pH and nitrogen, got %+v", got)
	}
	if got.OrganicCarbon != synthesized.OrganicCarbon {
		t.Fatalf("missing SOC should keep synthesized value, got %+v", got.OrganicCarbon)
	}
	if got.SoilType != synthesized.SoilType {
		t.Fatalf("soil type must come from the regional table, got %s", got.SoilType)
	}
}
