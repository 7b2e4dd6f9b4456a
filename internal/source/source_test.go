package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const countriesBody = `[
	{"name":"Wakanda","capital":"Birnin Zana","region":"Africa","population":1000,
	 "currencies":[{"code":"WKD","name":"Wakandan Dollar","symbol":"W$"}],
	 "flag":"https://flags.example/wkd.svg"},
	{"name":"Latveria","region":"Europe","population":500000,"currencies":[]}
]`

const ratesBody = `{"result":"success","base_code":"USD","rates":{"WKD":2.0,"EUR":0.9}}`

func TestCountriesClient_Fetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(countriesBody))
	}))
	defer srv.Close()

	c := NewCountriesClient(Options{URL: srv.URL})
	got, err := c.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "Wakanda", got[0].Name)
	assert.Equal(t, "Birnin Zana", got[0].Capital)
	assert.Equal(t, int64(1000), got[0].Population)
	require.Len(t, got[0].Currencies, 1)
	assert.Equal(t, "WKD", got[0].Currencies[0].Code)

	assert.Equal(t, "Latveria", got[1].Name)
	assert.Empty(t, got[1].Capital)
	assert.Empty(t, got[1].Currencies)
}

func TestCountriesClient_Fetch_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewCountriesClient(Options{URL: srv.URL})
	_, err := c.Fetch(context.Background())
	require.Error(t, err)
	assert.True(t, IsUnavailable(err))

	var ue *UnavailableError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, "countries", ue.Source)
}

func TestCountriesClient_Fetch_MalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>not json</html>`))
	}))
	defer srv.Close()

	c := NewCountriesClient(Options{URL: srv.URL})
	_, err := c.Fetch(context.Background())
	require.Error(t, err)
	assert.True(t, IsUnavailable(err))
}

func TestCountriesClient_Fetch_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		_, _ = w.Write([]byte(countriesBody))
	}))
	defer srv.Close()

	c := NewCountriesClient(Options{URL: srv.URL, Timeout: 20 * time.Millisecond})
	_, err := c.Fetch(context.Background())
	require.Error(t, err)
	assert.True(t, IsUnavailable(err))
}

func TestRatesClient_Fetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(ratesBody))
	}))
	defer srv.Close()

	c := NewRatesClient(Options{URL: srv.URL})
	rates, err := c.Fetch(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 2.0, rates["WKD"], 0.0001)
	assert.InDelta(t, 0.9, rates["EUR"], 0.0001)

	_, ok := rates["XXX"]
	assert.False(t, ok)
}

func TestRatesClient_Fetch_EmptyRates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"result":"success","rates":{}}`))
	}))
	defer srv.Close()

	c := NewRatesClient(Options{URL: srv.URL})
	_, err := c.Fetch(context.Background())
	require.Error(t, err)

	var ue *UnavailableError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, "exchange_rates", ue.Source)
}

func TestRatesClient_Fetch_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	c := NewRatesClient(Options{URL: srv.URL})
	_, err := c.Fetch(context.Background())
	require.Error(t, err)
	assert.True(t, IsUnavailable(err))
}

func TestIsUnavailable_PlainError(t *testing.T) {
	assert.False(t, IsUnavailable(context.Canceled))
	assert.False(t, IsUnavailable(nil))
}
