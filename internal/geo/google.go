package geo

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/kelvins/geocoder"

	"github.com/i474232898/crop-recommendation/internal/common"
	"github.com/i474232898/crop-recommendation/internal/resilience"
)

var (
	errNoAPIKey          = errors.New("google geocoding api key is not configured")
	errGoogleKeyConflict = errors.New("google geocoding api key differs from the one already installed")
)

// The geocoder package keeps its key in a package variable, so only one key
// can be in use per process.
var (
	googleKeyMu sync.Mutex
	googleKey   string
)

// Google reverse-geocodes through the Google Maps Geocoding API.
type Google struct {
	fetcher *resilience.Fetcher
	apiKey  string
	keyErr  error
	reverse func(geocoder.Location) ([]geocoder.Address, error)
}

// NewGoogle creates the geocoder. Resolve fails fast when apiKey is empty or
// when an earlier Google was created with a different key.
func NewGoogle(fetcher *resilience.Fetcher, apiKey string) *Google {
	g := &Google{fetcher: fetcher, apiKey: apiKey, reverse: geocoder.GeocodingReverse}
	if apiKey == "" {
		return g
	}

	googleKeyMu.Lock()
	defer googleKeyMu.Unlock()
	switch googleKey {
	case "":
		googleKey = apiKey
		geocoder.ApiKey = apiKey
	case apiKey:
	default:
		slog.Error("refusing second google geocoding api key", "error", errGoogleKeyConflict)
		g.keyErr = errGoogleKeyConflict
	}
	return g
}

func (g *Google) Name() string {
	return resilience.UpstreamGoogleGeo
}

func (g *Google) Resolve(ctx context.Context, lat, lon float64) (LocationContext, error) {
	if g.apiKey == "" {
		return LocationContext{}, errNoAPIKey
	}
	if g.keyErr != nil {
		return LocationContext{}, g.keyErr
	}

	addresses, err := resilience.Fetch(ctx, g.fetcher, g.Name(), func(ctx context.Context) ([]geocoder.Address, error) {
		addresses, err := g.reverseContext(ctx, geocoder.Location{Latitude: lat, Longitude: lon})
		if err != nil && common.HasAny(err.Error(), "ZERO_RESULTS", "REQUEST_DENIED", "INVALID_REQUEST") {
			return nil, resilience.Permanent(err)
		}
		return addresses, err
	})
	if err != nil {
		return LocationContext{}, err
	}
	if len(addresses) == 0 {
		return LocationContext{}, ErrNotFound
	}

	a := addresses[0]
	return LocationContext{
		Area:     orDefault(common.FirstNonEmpty(a.City, a.Neighborhood), UnknownArea),
		District: orDefault(common.FirstNonEmpty(a.County, a.District), UnknownDistrict),
		State:    orDefault(a.State, UnknownState),
		Country:  orDefault(a.Country, DefaultCountry),
	}, nil
}

// reverseContext runs the blocking client call and gives up when ctx ends.
// The client has no context support, so an abandoned call finishes in the
// background and its result is dropped.
func (g *Google) reverseContext(ctx context.Context, loc geocoder.Location) ([]geocoder.Address, error) {
	type result struct {
		addresses []geocoder.Address
		err       error
	}
	done := make(chan result, 1)
	go func() {
		addresses, err := g.reverse(loc)
		done <- result{addresses, err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-done:
		return r.addresses, r.err
	}
}
