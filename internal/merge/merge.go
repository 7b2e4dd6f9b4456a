// Package merge combines the raw country list with the exchange-rate table
// into persisted snapshots, including the synthetic GDP estimate.
package merge

import (
	"math"
	"math/rand/v2"
	"time"

	"github.com/sells-group/country-pulse/internal/model"
)

// MultiplierFunc supplies the random GDP multiplier for one country. It is
// injected so tests can fix the draw; production uses RandomMultiplier.
type MultiplierFunc func() float64

// RandomMultiplier draws uniformly from [min, max).
func RandomMultiplier(min, max float64) MultiplierFunc {
	return func() float64 {
		return min + rand.Float64()*(max-min)
	}
}

// FixedMultiplier always returns m. Test helper.
func FixedMultiplier(m float64) MultiplierFunc {
	return func() float64 { return m }
}

// Merge transforms raw countries plus a rate table into snapshots. Every
// snapshot in one call carries the same refreshed-at timestamp. Countries
// without a currency or without a known, non-zero rate get a zero GDP
// estimate rather than an error. Malformed input (missing name, negative
// population) fails the whole batch with a ValidationError.
func Merge(countries []model.RawCountry, rates model.RateTable, now time.Time, multiplier MultiplierFunc) ([]model.Country, error) {
	out := make([]model.Country, 0, len(countries))
	for _, rc := range countries {
		c := model.Country{
			Name:            rc.Name,
			Capital:         nilIfEmpty(rc.Capital),
			Region:          nilIfEmpty(rc.Region),
			Population:      rc.Population,
			FlagURL:         nilIfEmpty(rc.Flag),
			LastRefreshedAt: now,
		}

		if code := firstCurrencyCode(rc.Currencies); code != "" {
			c.CurrencyCode = &code
			if rate, ok := rates[code]; ok {
				r := rate
				c.ExchangeRate = &r
				if rate != 0 {
					c.EstimatedGDP = estimateGDP(rc.Population, rate, multiplier())
				}
			}
		}

		if err := c.Validate(); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// firstCurrencyCode returns the code of the first declared currency, or ""
// when the country declares none.
func firstCurrencyCode(currencies []model.RawCurrency) string {
	if len(currencies) == 0 {
		return ""
	}
	return currencies[0].Code
}

// estimateGDP computes population * multiplier / rate, rounded to two
// decimal places half-away-from-zero.
func estimateGDP(population int64, rate, multiplier float64) float64 {
	gdp := float64(population) * multiplier / rate
	return math.Round(gdp*100) / 100
}

func nilIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
