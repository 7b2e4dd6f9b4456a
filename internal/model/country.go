package model

import (
	"fmt"
	"time"
)

// RawCurrency is a single currency descriptor as delivered by the
// countries upstream.
type RawCurrency struct {
	Code   string `json:"code"`
	Name   string `json:"name,omitempty"`
	Symbol string `json:"symbol,omitempty"`
}

// RawCountry is one country record as delivered by the countries upstream,
// before merging with exchange rates.
type RawCountry struct {
	Name       string        `json:"name"`
	Capital    string        `json:"capital,omitempty"`
	Region     string        `json:"region,omitempty"`
	Population int64         `json:"population"`
	Currencies []RawCurrency `json:"currencies,omitempty"`
	Flag       string        `json:"flag,omitempty"`
}

// RateTable maps currency codes to exchange rates against the base
// currency. A missing code means no known rate.
type RateTable map[string]float64

// Country is the persisted snapshot for a single country. Name is the
// identity key; every refresh overwrites all other fields in place.
type Country struct {
	Name            string    `json:"name"`
	Capital         *string   `json:"capital"`
	Region          *string   `json:"region"`
	Population      int64     `json:"population"`
	CurrencyCode    *string   `json:"currency_code"`
	ExchangeRate    *float64  `json:"exchange_rate"`
	EstimatedGDP    float64   `json:"estimated_gdp"`
	FlagURL         *string   `json:"flag_url"`
	LastRefreshedAt time.Time `json:"last_refreshed_at"`
}

// RefreshRunStatus represents the state of a refresh run.
type RefreshRunStatus string

const (
	RefreshRunRunning  RefreshRunStatus = "running"
	RefreshRunComplete RefreshRunStatus = "complete"
	RefreshRunFailed   RefreshRunStatus = "failed"
)

// RefreshRun is the audit record for one refresh pipeline execution.
type RefreshRun struct {
	ID         string           `json:"id"`
	Status     RefreshRunStatus `json:"status"`
	Total      int              `json:"total"`
	Error      string           `json:"error,omitempty"`
	StartedAt  time.Time        `json:"started_at"`
	FinishedAt *time.Time       `json:"finished_at,omitempty"`
}

// GDPEntry is the slice of a snapshot the summary report consumes.
type GDPEntry struct {
	Name         string  `json:"name"`
	EstimatedGDP float64 `json:"estimated_gdp"`
}

// ValidationError rejects a malformed snapshot before it reaches storage.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid country: %s %s", e.Field, e.Reason)
}

// Validate checks the invariants every snapshot must satisfy before
// persistence: a non-empty name and a non-negative population.
func (c *Country) Validate() error {
	if c.Name == "" {
		return &ValidationError{Field: "name", Reason: "is required"}
	}
	if c.Population < 0 {
		return &ValidationError{Field: "population", Reason: "must be non-negative"}
	}
	return nil
}
