package resilience

import (
	"sort"
	"sync"

	"golang.org/x/time/rate"

	"github.com/i474232898/crop-recommendation/internal/store"
)

// Upstream names shared across the service.
const (
	UpstreamNominatim    = "nominatim"
	UpstreamBigDataCloud = "bigdatacloud"
	UpstreamGoogleGeo    = "google-geocoder"
	UpstreamOpenWeather  = "openweathermap"
	UpstreamWeatherAPI   = "weatherapi"
	UpstreamOpenMeteo    = "openmeteo"
	UpstreamSoilGrids    = "soilgrids"
	UpstreamAgmarknet    = "agmarknet"
)

// Context is the process-wide resilience state: the shared result cache and
// one breaker and rate limiter per upstream. It is built once at startup and
// passed explicitly to every component that talks to an upstream.
type Context struct {
	Cache *store.ResultCache

	settings BreakerSettings

	mu       sync.Mutex
	breakers map[string]*Breaker
	limiters map[string]*rate.Limiter
	limits   map[string]rate.Limit
}

// NewContext creates a Context. limits maps an upstream name to its maximum
// requests per second; upstreams without an entry are not rate limited.
func NewContext(cache *store.ResultCache, settings BreakerSettings, limits map[string]float64) *Context {
	if cache == nil {
		cache = store.NewResultCache(0)
	}
	c := &Context{
		Cache:    cache,
		settings: settings,
		breakers: make(map[string]*Breaker),
		limiters: make(map[string]*rate.Limiter),
		limits:   make(map[string]rate.Limit),
	}
	for name, rps := range limits {
		if rps > 0 {
			c.limits[name] = rate.Limit(rps)
		}
	}
	return c
}

// Breaker returns the breaker for upstream, creating it on first use.
func (c *Context) Breaker(upstream string) *Breaker {
	c.mu.Lock()
	defer c.mu.Unlock()

	b, ok := c.breakers[upstream]
	if !ok {
		b = NewBreaker(upstream, c.settings)
		c.breakers[upstream] = b
	}
	return b
}

// Limiter returns the rate limiter for upstream, or nil when unlimited.
func (c *Context) Limiter(upstream string) *rate.Limiter {
	c.mu.Lock()
	defer c.mu.Unlock()

	l, ok := c.limiters[upstream]
	if ok {
		return l
	}
	limit, limited := c.limits[upstream]
	if !limited {
		return nil
	}
	l = rate.NewLimiter(limit, 1)
	c.limiters[upstream] = l
	return l
}

// Breakers returns a snapshot of every breaker created so far, sorted by name.
func (c *Context) Breakers() []BreakerState {
	c.mu.Lock()
	list := make([]*Breaker, 0, len(c.breakers))
	for _, b := range c.breakers {
		list = append(list, b)
	}
	c.mu.Unlock()

	out := make([]BreakerState, 0, len(list))
	for _, b := range list {
		out = append(out, b.Snapshot())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Upstream < out[j].Upstream })
	return out
}
