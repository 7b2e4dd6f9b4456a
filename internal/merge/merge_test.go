package merge

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/country-pulse/internal/model"
)

var batchTime = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func country(name string, population int64, codes ...string) model.RawCountry {
	rc := model.RawCountry{Name: name, Population: population}
	for _, code := range codes {
		rc.Currencies = append(rc.Currencies, model.RawCurrency{Code: code})
	}
	return rc
}

func TestMerge_FullRecord(t *testing.T) {
	in := []model.RawCountry{{
		Name:       "Wakanda",
		Capital:    "Birnin Zana",
		Region:     "Africa",
		Population: 1000,
		Currencies: []model.RawCurrency{{Code: "WKD"}},
		Flag:       "https://flags.example/wkd.svg",
	}}
	rates := model.RateTable{"WKD": 2.0}

	got, err := Merge(in, rates, batchTime, FixedMultiplier(1500))
	require.NoError(t, err)
	require.Len(t, got, 1)

	c := got[0]
	assert.Equal(t, "Wakanda", c.Name)
	require.NotNil(t, c.Capital)
	assert.Equal(t, "Birnin Zana", *c.Capital)
	require.NotNil(t, c.Region)
	assert.Equal(t, "Africa", *c.Region)
	require.NotNil(t, c.CurrencyCode)
	assert.Equal(t, "WKD", *c.CurrencyCode)
	require.NotNil(t, c.ExchangeRate)
	assert.InDelta(t, 2.0, *c.ExchangeRate, 0.0001)
	// 1000 * 1500 / 2.0
	assert.InDelta(t, 750000.0, c.EstimatedGDP, 0.001)
	require.NotNil(t, c.FlagURL)
	assert.Equal(t, batchTime, c.LastRefreshedAt)
}

func TestMerge_NoCurrencies(t *testing.T) {
	got, err := Merge([]model.RawCountry{country("Latveria", 500000)}, model.RateTable{"EUR": 0.9}, batchTime, FixedMultiplier(1500))
	require.NoError(t, err)
	require.Len(t, got, 1)

	assert.Nil(t, got[0].CurrencyCode)
	assert.Nil(t, got[0].ExchangeRate)
	assert.Zero(t, got[0].EstimatedGDP)
}

func TestMerge_UnknownCurrency(t *testing.T) {
	got, err := Merge([]model.RawCountry{country("Genosha", 100, "GSH")}, model.RateTable{"USD": 1.0}, batchTime, FixedMultiplier(1500))
	require.NoError(t, err)

	c := got[0]
	require.NotNil(t, c.CurrencyCode)
	assert.Equal(t, "GSH", *c.CurrencyCode)
	assert.Nil(t, c.ExchangeRate)
	assert.Zero(t, c.EstimatedGDP)
}

func TestMerge_ZeroRate(t *testing.T) {
	got, err := Merge([]model.RawCountry{country("Elbonia", 100, "ELB")}, model.RateTable{"ELB": 0}, batchTime, FixedMultiplier(1500))
	require.NoError(t, err)

	c := got[0]
	require.NotNil(t, c.ExchangeRate)
	assert.Zero(t, *c.ExchangeRate)
	assert.Zero(t, c.EstimatedGDP)
}

func TestMerge_FirstCurrencyWins(t *testing.T) {
	got, err := Merge(
		[]model.RawCountry{country("Panem", 1000, "PAN", "USD")},
		model.RateTable{"PAN": 4.0, "USD": 1.0},
		batchTime, FixedMultiplier(1500),
	)
	require.NoError(t, err)
	assert.Equal(t, "PAN", *got[0].CurrencyCode)
	assert.InDelta(t, 375000.0, got[0].EstimatedGDP, 0.001)
}

func TestMerge_MidpointFormulaExact(t *testing.T) {
	cases := []struct {
		population int64
		rate       float64
		want       float64
	}{
		{1000, 2.0, 750000},
		{7, 3.0, 3500},
		{1, 7.0, 214.29},     // 1500/7 = 214.2857... rounds up
		{333, 1500.0, 333},   // population cancels multiplier
		{1, 100000.0, 0.02},  // 0.015 rounds half away from zero
	}
	for _, tc := range cases {
		got, err := Merge([]model.RawCountry{country("X", tc.population, "AAA")}, model.RateTable{"AAA": tc.rate}, batchTime, FixedMultiplier(1500))
		require.NoError(t, err)
		assert.InDelta(t, tc.want, got[0].EstimatedGDP, 0.001,
			"population=%d rate=%f", tc.population, tc.rate)
	}
}

func TestMerge_SharedBatchTimestamp(t *testing.T) {
	got, err := Merge(
		[]model.RawCountry{country("A", 1, "AAA"), country("B", 2), country("C", 3, "CCC")},
		model.RateTable{"AAA": 1.0},
		batchTime, FixedMultiplier(1500),
	)
	require.NoError(t, err)
	require.Len(t, got, 3)
	for _, c := range got {
		assert.Equal(t, batchTime, c.LastRefreshedAt)
	}
}

func TestMerge_MissingNameRejected(t *testing.T) {
	_, err := Merge([]model.RawCountry{{Population: 10}}, model.RateTable{}, batchTime, FixedMultiplier(1500))
	require.Error(t, err)

	var verr *model.ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestMerge_NegativePopulationRejected(t *testing.T) {
	_, err := Merge([]model.RawCountry{country("Void", -5)}, model.RateTable{}, batchTime, FixedMultiplier(1500))
	require.Error(t, err)
}

func TestMerge_Empty(t *testing.T) {
	got, err := Merge(nil, nil, batchTime, FixedMultiplier(1500))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestRandomMultiplier_Range(t *testing.T) {
	m := RandomMultiplier(1000, 2000)
	for range 1000 {
		v := m()
		assert.GreaterOrEqual(t, v, 1000.0)
		assert.Less(t, v, 2000.0)
	}
}

func TestMerge_RandomDrawStaysInDerivedRange(t *testing.T) {
	// Wakanda scenario: population 1000, rate 2.0, multiplier in
	// [1000,2000) puts GDP in [500000, 1000000).
	for range 100 {
		got, err := Merge([]model.RawCountry{country("Wakanda", 1000, "WKD")}, model.RateTable{"WKD": 2.0}, batchTime, RandomMultiplier(1000, 2000))
		require.NoError(t, err)
		assert.GreaterOrEqual(t, got[0].EstimatedGDP, 500000.0)
		assert.Less(t, got[0].EstimatedGDP, 1000000.0)
	}
}
