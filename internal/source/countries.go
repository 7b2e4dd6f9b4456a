package source

import (
	"context"
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/sells-group/country-pulse/internal/model"
)

const countriesSource = "countries"

// CountriesClient fetches country metadata from a REST Countries v2
// compatible endpoint.
type CountriesClient struct {
	client *http.Client
	opts   Options
}

// NewCountriesClient creates a client for the country metadata upstream.
func NewCountriesClient(opts Options) *CountriesClient {
	opts = opts.withDefaults()
	return &CountriesClient{
		client: &http.Client{Timeout: opts.Timeout},
		opts:   opts,
	}
}

// rawCountryPayload mirrors the upstream wire shape. Capital arrives as a
// plain string in v2; currencies as an ordered array of descriptors.
type rawCountryPayload struct {
	Name       string `json:"name"`
	Capital    string `json:"capital"`
	Region     string `json:"region"`
	Population int64  `json:"population"`
	Currencies []struct {
		Code   string `json:"code"`
		Name   string `json:"name"`
		Symbol string `json:"symbol"`
	} `json:"currencies"`
	Flag string `json:"flag"`
}

// Fetch retrieves the full country list in one GET.
func (c *CountriesClient) Fetch(ctx context.Context) ([]model.RawCountry, error) {
	resp, err := get(ctx, c.client, c.opts, countriesSource)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	var payload []rawCountryPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, &UnavailableError{Source: countriesSource, Err: err}
	}

	out := make([]model.RawCountry, 0, len(payload))
	for _, p := range payload {
		rc := model.RawCountry{
			Name:       p.Name,
			Capital:    p.Capital,
			Region:     p.Region,
			Population: p.Population,
			Flag:       p.Flag,
		}
		for _, cur := range p.Currencies {
			rc.Currencies = append(rc.Currencies, model.RawCurrency{
				Code:   cur.Code,
				Name:   cur.Name,
				Symbol: cur.Symbol,
			})
		}
		out = append(out, rc)
	}

	zap.L().Debug("fetched countries", zap.Int("count", len(out)))
	return out, nil
}
