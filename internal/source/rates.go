package source

import (
	"context"
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/sells-group/country-pulse/internal/model"
)

const ratesSource = "exchange_rates"

// RatesClient fetches the exchange-rate table from an open.er-api.com
// compatible endpoint.
type RatesClient struct {
	client *http.Client
	opts   Options
}

// NewRatesClient creates a client for the exchange-rate upstream.
func NewRatesClient(opts Options) *RatesClient {
	opts = opts.withDefaults()
	return &RatesClient{
		client: &http.Client{Timeout: opts.Timeout},
		opts:   opts,
	}
}

type ratesPayload struct {
	Result   string             `json:"result"`
	BaseCode string             `json:"base_code"`
	Rates    map[string]float64 `json:"rates"`
}

// Fetch retrieves the rate table in one GET. An upstream body without a
// rates map counts as malformed and therefore unavailable.
func (c *RatesClient) Fetch(ctx context.Context) (model.RateTable, error) {
	resp, err := get(ctx, c.client, c.opts, ratesSource)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	var payload ratesPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, &UnavailableError{Source: ratesSource, Err: err}
	}
	if len(payload.Rates) == 0 {
		return nil, &UnavailableError{
			Source: ratesSource,
			Err:    errEmptyRates,
		}
	}

	zap.L().Debug("fetched exchange rates",
		zap.String("base", payload.BaseCode),
		zap.Int("count", len(payload.Rates)),
	)
	return model.RateTable(payload.Rates), nil
}
