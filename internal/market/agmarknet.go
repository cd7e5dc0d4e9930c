package market

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/i474232898/crop-recommendation/internal/resilience"
)

// ErrNoPrice is returned when the market has no usable record for a crop.
var ErrNoPrice = errors.New("no modal price in response")

// priceKeys are the field names the scraper has used for the modal price.
var priceKeys = []string{"Modal Price", "modal_price", "modalPrice", "price"}

// Agmarknet reads modal prices from an AGMARKNET scraper API that answers
// ?commodity=&state=&market= with a list of records, most recent first.
type Agmarknet struct {
	fetcher *resilience.Fetcher
	baseURL string
}

func NewAgmarknet(fetcher *resilience.Fetcher, baseURL string) *Agmarknet {
	return &Agmarknet{fetcher: fetcher, baseURL: baseURL}
}

func (a *Agmarknet) Name() string {
	return resilience.UpstreamAgmarknet
}

func (a *Agmarknet) ModalPrice(ctx context.Context, crop, state, district string) (Quote, error) {
	values := url.Values{}
	values.Set("commodity", crop)
	values.Set("state", state)
	values.Set("market", district)
	u := fmt.Sprintf("%s?%s", a.baseURL, values.Encode())

	var records []map[string]any
	err := a.fetcher.GetJSON(ctx, a.Name(), func(ctx context.Context) (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	}, &records)
	if err != nil {
		return Quote{}, err
	}
	if len(records) == 0 {
		return Quote{}, ErrNoPrice
	}

	price, err := modalPrice(records[0])
	if err != nil {
		return Quote{}, fmt.Errorf("%s %s/%s: %w", crop, state, district, err)
	}
	return Quote{Crop: crop, PricePerQuintal: price, Source: SourceLive}, nil
}

// modalPrice extracts the first recognised price field, accepting numbers
// and strings with thousands separators.
func modalPrice(record map[string]any) (float64, error) {
	for _, key := range priceKeys {
		raw, ok := record[key]
		if !ok {
			continue
		}
		d, err := decimal.NewFromString(strings.ReplaceAll(fmt.Sprint(raw), ",", ""))
		if err != nil {
			return 0, fmt.Errorf("parse %q: %w", key, err)
		}
		if !d.IsPositive() {
			return 0, fmt.Errorf("%w: non-positive %q", ErrNoPrice, key)
		}
		return d.InexactFloat64(), nil
	}
	return 0, ErrNoPrice
}
