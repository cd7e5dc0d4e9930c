package geo

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/i474232898/crop-recommendation/internal/common"
	"github.com/i474232898/crop-recommendation/internal/resilience"
)

const bigDataCloudURL = "https://api.bigdatacloud.net/data/reverse-geocode-client"

// Admin levels BigDataCloud uses for Indian states and districts.
const (
	adminLevelState    = 2
	adminLevelDistrict = 4
)

// BigDataCloud uses the free client-side reverse geocoding endpoint.
type BigDataCloud struct {
	fetcher *resilience.Fetcher
	baseURL string
}

func NewBigDataCloud(fetcher *resilience.Fetcher, baseURL string) *BigDataCloud {
	if baseURL == "" {
		baseURL = bigDataCloudURL
	}
	return &BigDataCloud{fetcher: fetcher, baseURL: baseURL}
}

func (b *BigDataCloud) Name() string {
	return resilience.UpstreamBigDataCloud
}

func (b *BigDataCloud) Resolve(ctx context.Context, lat, lon float64) (LocationContext, error) {
	values := url.Values{}
	values.Set("latitude", fmt.Sprintf("%f", lat))
	values.Set("longitude", fmt.Sprintf("%f", lon))
	values.Set("localityLanguage", "en")
	u := fmt.Sprintf("%s?%s", b.baseURL, values.Encode())

	var payload struct {
		City                 string `json:"city"`
		Locality             string `json:"locality"`
		PrincipalSubdivision string `json:"principalSubdivision"`
		CountryName          string `json:"countryName"`
		LocalityInfo         struct {
			Administrative []struct {
				Name       string `json:"name"`
				AdminLevel int    `json:"adminLevel"`
			} `json:"administrative"`
		} `json:"localityInfo"`
	}
	err := b.fetcher.GetJSON(ctx, b.Name(), func(ctx context.Context) (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	}, &payload)
	if err != nil {
		return LocationContext{}, err
	}

	admin := payload.LocalityInfo.Administrative
	if payload.CountryName == "" && payload.PrincipalSubdivision == "" && len(admin) == 0 {
		return LocationContext{}, ErrNotFound
	}

	var firstAdmin, district, state string
	if len(admin) > 0 {
		firstAdmin = admin[0].Name
	}
	for _, level := range admin {
		switch level.AdminLevel {
		case adminLevelDistrict:
			district = level.Name
		case adminLevelState:
			state = level.Name
		}
	}

	return LocationContext{
		Area:     orDefault(common.FirstNonEmpty(payload.City, payload.Locality, firstAdmin), UnknownArea),
		District: orDefault(common.FirstNonEmpty(district, payload.PrincipalSubdivision), UnknownDistrict),
		State:    orDefault(common.FirstNonEmpty(state, payload.PrincipalSubdivision), UnknownState),
		Country:  orDefault(payload.CountryName, DefaultCountry),
	}, nil
}
