package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sells-group/country-pulse/internal/model"
)

// Sort values accepted by Filter.
const (
	SortGDPDesc = "gdp_desc"
	SortGDPAsc  = "gdp_asc"
)

// Filter specifies optional exact-match criteria for listing countries.
// Sort defaults to name ascending.
type Filter struct {
	Region   string `json:"region,omitempty"`
	Currency string `json:"currency,omitempty"`
	Sort     string `json:"sort,omitempty"`
}

// Store defines the persistence interface for country snapshots.
//
// Lookups that find nothing return (nil, nil); only connectivity or
// constraint failures produce errors, and those are StorageErrors.
type Store interface {
	// Countries
	Upsert(ctx context.Context, c model.Country) error
	UpsertBatch(ctx context.Context, countries []model.Country) (int64, error)
	FindAll(ctx context.Context, filter Filter) ([]model.Country, error)
	FindByName(ctx context.Context, name string) (*model.Country, error)
	DeleteByName(ctx context.Context, name string) (bool, error)

	// Aggregates
	Count(ctx context.Context) (int, error)
	TopByGDP(ctx context.Context, n int) ([]model.GDPEntry, error)
	LastRefreshedAt(ctx context.Context) (*time.Time, error)

	// Refresh audit
	CreateRefreshRun(ctx context.Context) (*model.RefreshRun, error)
	FinishRefreshRun(ctx context.Context, id string, status model.RefreshRunStatus, total int, runErr string) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// StorageError marks a persistence or query failure, distinguished from
// upstream unavailability at the boundary.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// IsStorage reports whether any error in the chain is a StorageError.
func IsStorage(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}

func storageErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Err: err}
}
