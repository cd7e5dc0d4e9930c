package market

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/i474232898/crop-recommendation/internal/resilience"
	"github.com/i474232898/crop-recommendation/internal/store"
)

func newAgmarknet(url string) *Agmarknet {
	rc := resilience.NewContext(store.NewResultCache(0), resilience.DefaultBreakerSettings, nil)
	return NewAgmarknet(resilience.NewFetcher(rc, http.DefaultClient, resilience.Policy{CallTimeout: time.Second}), url)
}

func TestModalPriceKeys(t *testing.T) {
	tests := []struct {
		name   string
		record map[string]any
		want   float64
		ok     bool
	}{
		{name: "spaced key with separator", record: map[string]any{"Modal Price": "2,450"}, want: 2450, ok: true},
		{name: "snake case number", record: map[string]any{"modal_price": 2300.5}, want: 2300.5, ok: true},
		{name: "camel case", record: map[string]any{"modalPrice": "6100"}, want: 6100, ok: true},
		{name: "plain price", record: map[string]any{"price": "1,900.00"}, want: 1900, ok: true},
		{name: "first key wins", record: map[string]any{"price": "1", "Modal Price": "2000"}, want: 2000, ok: true},
		{name: "missing", record: map[string]any{"Min Price": "1000"}, ok: false},
		{name: "garbage", record: map[string]any{"modal_price": "n/a"}, ok: false},
		{name: "zero", record: map[string]any{"modal_price": "0"}, ok: false},
	}

	for _, tt := range tests {
		got, err := modalPrice(tt.record)
		if tt.ok && (err != nil || got != tt.want) {
			t.Fatalf("%s: got %v, %v; want %v", tt.name, got, err, tt.want)
		}
		if !tt.ok && err == nil {
			t.Fatalf("%s: expected error, got %v", tt.name, got)
		}
	}
}

func TestPriceCacheHitMakesOneUpstreamCall(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		q := r.URL.Query()
		if q.Get("commodity") != "Cotton" || q.Get("state") != "Gujarat" || q.Get("market") != "Bharuch" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		_, _ = w.Write([]byte(`[{"Modal Price":"7,125"},{"Modal Price":"6,900"}]`))
	}))
	defer srv.Close()

	svc := NewService(store.NewResultCache(0), newAgmarknet(srv.URL), time.Hour)

	first := svc.Price(context.Background(), "Cotton", "Gujarat", "Bharuch")
	second := svc.Price(context.Background(), "Cotton", "Gujarat", "Bharuch")

	if first.PricePerQuintal != 7125 || first.Source != SourceLive {
		t.Fatalf("unexpected first quote: %+v", first)
	}
	if second != first {
		t.Fatalf("expected cached quote, got %+v", second)
	}
	if hits.Load() != 1 {
		t.Fatalf("expected exactly one upstream call, got %d", hits.Load())
	}
}

func TestPriceFallsBackToTable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	svc := NewService(store.NewResultCache(0), newAgmarknet(srv.URL), time.Hour)

	q := svc.Price(context.Background(), "Wheat", "Punjab", "Ludhiana")
	if q.Source != SourceFallback || q.PricePerQuintal != 2200 {
		t.Fatalf("expected table fallback for wheat, got %+v", q)
	}

	if q := NewService(store.NewResultCache(0), nil, 0).Price(context.Background(), "Quinoa", "Punjab", "Ludhiana"); q.PricePerQuintal != 3000 {
		t.Fatalf("expected default fallback price, got %+v", q)
	}
}
