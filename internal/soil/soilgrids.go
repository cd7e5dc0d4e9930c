package soil

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/i474232898/crop-recommendation/internal/resilience"
)

const soilGridsURL = "https://rest.isric.org/soilgrids/v2.0/properties/query"

// topsoilDepth is the SoilGrids depth interval we read.
const topsoilDepth = "0-5cm"

// SoilGrids reads topsoil properties from the ISRIC SoilGrids REST API.
type SoilGrids struct {
	fetcher *resilience.Fetcher
	baseURL string
}

func NewSoilGrids(fetcher *resilience.Fetcher, baseURL string) *SoilGrids {
	if baseURL == "" {
		baseURL = soilGridsURL
	}
	return &SoilGrids{fetcher: fetcher, baseURL: baseURL}
}

func (s *SoilGrids) Name() string {
	return resilience.UpstreamSoilGrids
}

type sgDepth struct {
	Label  string `json:"label"`
	Values struct {
		Mean *float64 `json:"mean"`
	} `json:"values"`
}

type sgLayer struct {
	Name        string `json:"name"`
	UnitMeasure struct {
		DFactor float64 `json:"d_factor"`
	} `json:"unit_measure"`
	Depths []sgDepth `json:"depths"`
}

type soilGridsResponse struct {
	Properties struct {
		Layers []sgLayer `json:"layers"`
	} `json:"properties"`
}

// Properties returns pH, nitrogen (g/kg) and organic carbon (g/kg) at 0-5cm.
func (s *SoilGrids) Properties(ctx context.Context, lat, lon float64) (Measurements, error) {
	values := url.Values{}
	values.Set("lat", fmt.Sprintf("%f", lat))
	values.Set("lon", fmt.Sprintf("%f", lon))
	values.Add("property", "phh2o")
	values.Add("property", "nitrogen")
	values.Add("property", "soc")
	values.Set("depth", topsoilDepth)
	values.Set("value", "mean")
	u := fmt.Sprintf("%s?%s", s.baseURL, values.Encode())

	var payload soilGridsResponse
	err := s.fetcher.GetJSON(ctx, s.Name(), func(ctx context.Context) (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	}, &payload)
	if err != nil {
		return Measurements{}, err
	}

	var m Measurements
	found := 0
	for _, layer := range payload.Properties.Layers {
		v, ok := layerMean(layer.Depths, layer.UnitMeasure.DFactor)
		if !ok {
			continue
		}
		switch layer.Name {
		case "phh2o":
			m.PH = v
		case "nitrogen":
			m.Nitrogen = v
		case "soc":
			m.OrganicCarbon = v
		default:
			continue
		}
		found++
	}
	if found == 0 {
		return Measurements{}, fmt.Errorf("soilgrids: no topsoil values at %.3f,%.3f", lat, lon)
	}
	return m, nil
}

// layerMean returns the 0-5cm mean converted to target units.
func layerMean(depths []sgDepth, dFactor float64) (float64, bool) {
	if dFactor <= 0 {
		dFactor = 1
	}
	for _, d := range depths {
		if d.Label == topsoilDepth && d.Values.Mean != nil {
			return *d.Values.Mean / dFactor, true
		}
	}
	return 0, false
}
