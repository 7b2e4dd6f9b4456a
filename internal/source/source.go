// Package source holds the HTTP clients for the two upstream data feeds:
// the country metadata API and the exchange-rate API. Each client issues a
// single bounded GET per refresh; a failed attempt is surfaced as an
// UnavailableError and never retried.
package source

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/sells-group/country-pulse/internal/model"
)

var errEmptyRates = errors.New("rates payload has no rates map")

// Countries fetches the raw country list from the metadata upstream.
type Countries interface {
	Fetch(ctx context.Context) ([]model.RawCountry, error)
}

// Rates fetches the exchange-rate table from the rates upstream.
type Rates interface {
	Fetch(ctx context.Context) (model.RateTable, error)
}

// UnavailableError marks an upstream fetch failure (timeout, non-2xx,
// malformed body). The boundary maps it to 503 instead of 500.
type UnavailableError struct {
	Source string
	Err    error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("source %s unavailable: %v", e.Source, e.Err)
}

func (e *UnavailableError) Unwrap() error {
	return e.Err
}

// IsUnavailable reports whether any error in the chain is an upstream
// availability failure.
func IsUnavailable(err error) bool {
	var ue *UnavailableError
	return errors.As(err, &ue)
}

// Options configures an upstream client.
type Options struct {
	URL       string
	Timeout   time.Duration
	UserAgent string
	// Limiter caps request frequency against the upstream. Nil means a
	// shared default of 1 req/s with a small burst, which is far above
	// refresh traffic but keeps misbehaving callers polite.
	Limiter *rate.Limiter
}

func (o *Options) withDefaults() Options {
	out := *o
	if out.Timeout == 0 {
		out.Timeout = 15 * time.Second
	}
	if out.UserAgent == "" {
		out.UserAgent = "country-pulse/1.0"
	}
	if out.Limiter == nil {
		out.Limiter = rate.NewLimiter(1, 3)
	}
	return out
}

// get performs the single upstream GET shared by both clients. Any
// transport failure or non-2xx status comes back as an UnavailableError
// carrying the source name.
func get(ctx context.Context, client *http.Client, opts Options, name string) (*http.Response, error) {
	if err := opts.Limiter.Wait(ctx); err != nil {
		return nil, &UnavailableError{Source: name, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, opts.URL, nil)
	if err != nil {
		return nil, &UnavailableError{Source: name, Err: err}
	}
	req.Header.Set("User-Agent", opts.UserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, &UnavailableError{Source: name, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_ = resp.Body.Close()
		return nil, &UnavailableError{
			Source: name,
			Err:    fmt.Errorf("unexpected status %d from %s", resp.StatusCode, opts.URL),
		}
	}
	return resp, nil
}
