package geo

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kelvins/geocoder"

	"github.com/i474232898/crop-recommendation/internal/resilience"
	"github.com/i474232898/crop-recommendation/internal/store"
)

func newFetcher() *resilience.Fetcher {
	rc := resilience.NewContext(store.NewResultCache(0), resilience.DefaultBreakerSettings, nil)
	return resilience.NewFetcher(rc, http.DefaultClient, resilience.Policy{MaxRetries: 0, CallTimeout: time.Second})
}

type stubGeocoder struct {
	name  string
	loc   LocationContext
	err   error
	calls atomic.Int32
}

func (s *stubGeocoder) Name() string { return s.name }

func (s *stubGeocoder) Resolve(ctx context.Context, lat, lon float64) (LocationContext, error) {
	s.calls.Add(1)
	return s.loc, s.err
}

func TestNominatimResolve(t *testing.T) {
	var ua string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ua = r.Header.Get("User-Agent")
		_, _ = w.Write([]byte(`{"address":{"town":"Ankleshwar","state_district":"Bharuch","state":"Gujarat","country":"India"}}`))
	}))
	defer srv.Close()

	loc, err := NewNominatim(newFetcher(), srv.URL, "").Resolve(context.Background(), 21.63, 73.0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if loc.Area != "Ankleshwar" || loc.District != "Bharuch" || loc.State != "Gujarat" || loc.Country != "India" {
		t.Fatalf("unexpected location: %+v", loc)
	}
	if ua != DefaultUserAgent {
		t.Fatalf("expected user agent %q, got %q", DefaultUserAgent, ua)
	}
}

func TestNominatimWithoutAddressIsNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"error":"Unable to geocode"}`))
	}))
	defer srv.Close()

	_, err := NewNominatim(newFetcher(), srv.URL, "").Resolve(context.Background(), 0, 0)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestBigDataCloudResolve(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"city":"","locality":"Pune","principalSubdivision":"Maharashtra","countryName":"India",
			"localityInfo":{"administrative":[{"name":"India","adminLevel":2},{"name":"Maharashtra","adminLevel":4}]}}`))
	}))
	defer srv.Close()

	loc, err := NewBigDataCloud(newFetcher(), srv.URL).Resolve(context.Background(), 18.52, 73.85)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if loc.Area != "Pune" || loc.District != "Maharashtra" || loc.State != "India" {
		t.Fatalf("unexpected location: %+v", loc)
	}
}

func TestBigDataCloudFallsBackToPrincipalSubdivision(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"locality":"Nagpur","principalSubdivision":"Maharashtra","countryName":"India"}`))
	}))
	defer srv.Close()

	loc, err := NewBigDataCloud(newFetcher(), srv.URL).Resolve(context.Background(), 21.14, 79.08)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if loc.District != "Maharashtra" || loc.State != "Maharashtra" {
		t.Fatalf("expected principal subdivision fallback, got %+v", loc)
	}
}

func TestGoogleResolve(t *testing.T) {
	g := NewGoogle(newFetcher(), "test-key")
	g.reverse = func(loc geocoder.Location) ([]geocoder.Address, error) {
		return []geocoder.Address{{City: "Hyderabad", County: "Rangareddy", State: "Telangana", Country: "India"}}, nil
	}

	loc, err := g.Resolve(context.Background(), 17.38, 78.48)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if loc.District != "Rangareddy" || loc.State != "Telangana" {
		t.Fatalf("unexpected location: %+v", loc)
	}
}

func TestGoogleWithoutKeyFailsFast(t *testing.T) {
	g := NewGoogle(newFetcher(), "")
	var called bool
	g.reverse = func(loc geocoder.Location) ([]geocoder.Address, error) {
		called = true
		return nil, nil
	}
	if _, err := g.Resolve(context.Background(), 1, 1); err == nil || called {
		t.Fatalf("expected error without calling the api, err=%v called=%v", err, called)
	}
}

func TestGoogleRefusesSecondKey(t *testing.T) {
	NewGoogle(newFetcher(), "test-key")
	g := NewGoogle(newFetcher(), "other-key")
	var called bool
	g.reverse = func(loc geocoder.Location) ([]geocoder.Address, error) {
		called = true
		return nil, nil
	}

	if _, err := g.Resolve(context.Background(), 1, 1); !errors.Is(err, errGoogleKeyConflict) || called {
		t.Fatalf("expected key conflict without calling the api, err=%v called=%v", err, called)
	}
	if geocoder.ApiKey != "test-key" {
		t.Fatalf("installed key was replaced: %q", geocoder.ApiKey)
	}
}

func TestChainReturnsRequestedCoordinatesFromCache(t *testing.T) {
	ok := &stubGeocoder{name: "b", loc: LocationContext{District: "Bharuch", State: "Gujarat", Country: "India"}}
	chain := NewChain(store.NewResultCache(0), time.Hour, ok)

	points := [][2]float64{{21.70001, 72.98001}, {21.70003, 72.98004}}
	for _, p := range points {
		loc, err := chain.Resolve(context.Background(), p[0], p[1])
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if loc.Latitude != p[0] || loc.Longitude != p[1] {
			t.Fatalf("expected coordinates %v, got %v,%v", p, loc.Latitude, loc.Longitude)
		}
	}
	if ok.calls.Load() != 1 {
		t.Fatalf("both points share a cache cell, got %d geocoder calls", ok.calls.Load())
	}
}

func TestChainUsesFirstSuccessAndCaches(t *testing.T) {
	failing := &stubGeocoder{name: "a", err: errors.New("down")}
	ok := &stubGeocoder{name: "b", loc: LocationContext{District: "Bharuch", State: "Gujarat", Country: "India"}}
	chain := NewChain(store.NewResultCache(0), time.Hour, failing, ok)

	for i := 0; i < 2; i++ {
		loc, err := chain.Resolve(context.Background(), 21.7, 72.9)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if loc.State != "Gujarat" || loc.Latitude != 21.7 || loc.Longitude != 72.9 {
			t.Fatalf("unexpected location: %+v", loc)
		}
	}
	if failing.calls.Load() != 1 || ok.calls.Load() != 1 {
		t.Fatalf("expected second resolve to hit the cache: a=%d b=%d", failing.calls.Load(), ok.calls.Load())
	}
}

func TestChainFallback(t *testing.T) {
	failing := &stubGeocoder{name: "a", err: errors.New("down")}
	chain := NewChain(store.NewResultCache(0), time.Hour, failing)

	loc, err := chain.Resolve(context.Background(), 21.7, 72.9)
	if err != nil {
		t.Fatalf("fallback should not be an error: %v", err)
	}
	want := Fallback(21.7, 72.9)
	if loc != want {
		t.Fatalf("expected %+v, got %+v", want, loc)
	}
	if loc.Area != "Location 21.700°N, 72.900°E" {
		t.Fatalf("unexpected area label %q", loc.Area)
	}
}
