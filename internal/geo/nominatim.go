package geo

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/i474232898/crop-recommendation/internal/common"
	"github.com/i474232898/crop-recommendation/internal/resilience"
)

const (
	nominatimURL = "https://nominatim.openstreetmap.org/reverse"
	// DefaultUserAgent identifies the service to OpenStreetMap as its usage policy requires.
	DefaultUserAgent = "CropRecommendationApp/1.0"
)

// Nominatim reverse-geocodes with OpenStreetMap. Its usage policy allows one
// request per second, enforced by the resilience rate limiter.
type Nominatim struct {
	fetcher   *resilience.Fetcher
	baseURL   string
	userAgent string
}

// NewNominatim creates the geocoder. Empty arguments use the public defaults.
func NewNominatim(fetcher *resilience.Fetcher, baseURL, userAgent string) *Nominatim {
	if baseURL == "" {
		baseURL = nominatimURL
	}
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	return &Nominatim{fetcher: fetcher, baseURL: baseURL, userAgent: userAgent}
}

func (n *Nominatim) Name() string {
	return resilience.UpstreamNominatim
}

func (n *Nominatim) Resolve(ctx context.Context, lat, lon float64) (LocationContext, error) {
	values := url.Values{}
	values.Set("format", "json")
	values.Set("lat", fmt.Sprintf("%f", lat))
	values.Set("lon", fmt.Sprintf("%f", lon))
	values.Set("zoom", "18")
	values.Set("addressdetails", "1")
	u := fmt.Sprintf("%s?%s", n.baseURL, values.Encode())

	var payload struct {
		Address map[string]string `json:"address"`
	}
	err := n.fetcher.GetJSON(ctx, n.Name(), func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", n.userAgent)
		return req, nil
	}, &payload)
	if err != nil {
		return LocationContext{}, err
	}
	if len(payload.Address) == 0 {
		return LocationContext{}, ErrNotFound
	}

	a := payload.Address
	return LocationContext{
		Area:     orDefault(common.FirstNonEmpty(a["city"], a["town"], a["municipality"], a["suburb"], a["village"], a["neighbourhood"]), UnknownArea),
		District: orDefault(common.FirstNonEmpty(a["state_district"], a["county"], a["administrative_area_level_2"]), UnknownDistrict),
		State:    orDefault(common.FirstNonEmpty(a["state"], a["administrative_area_level_1"]), UnknownState),
		Country:  orDefault(a["country"], DefaultCountry),
	}, nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
