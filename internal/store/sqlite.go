package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/country-pulse/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL
// mode. The connection pool is bounded so concurrent readers queue rather
// than fail.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	db.SetMaxOpenConns(10)
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS countries (
	name              TEXT PRIMARY KEY,
	capital           TEXT,
	region            TEXT,
	population        INTEGER NOT NULL DEFAULT 0,
	currency_code     TEXT,
	exchange_rate     REAL,
	estimated_gdp     REAL NOT NULL DEFAULT 0,
	flag_url          TEXT,
	last_refreshed_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_countries_region ON countries(region);
CREATE INDEX IF NOT EXISTS idx_countries_currency ON countries(currency_code);
CREATE INDEX IF NOT EXISTS idx_countries_gdp ON countries(estimated_gdp DESC);

CREATE TABLE IF NOT EXISTS refresh_runs (
	id          TEXT PRIMARY KEY,
	status      TEXT NOT NULL DEFAULT 'running',
	total       INTEGER NOT NULL DEFAULT 0,
	error       TEXT,
	started_at  DATETIME NOT NULL,
	finished_at DATETIME
);

CREATE INDEX IF NOT EXISTS idx_refresh_runs_started ON refresh_runs(started_at DESC);
`

const sqliteUpsert = `
INSERT INTO countries (name, capital, region, population, currency_code, exchange_rate, estimated_gdp, flag_url, last_refreshed_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (name) DO UPDATE SET
	capital = excluded.capital,
	region = excluded.region,
	population = excluded.population,
	currency_code = excluded.currency_code,
	exchange_rate = excluded.exchange_rate,
	estimated_gdp = excluded.estimated_gdp,
	flag_url = excluded.flag_url,
	last_refreshed_at = excluded.last_refreshed_at`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return storageErr("migrate", err)
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Upsert(ctx context.Context, c model.Country) error {
	if err := c.Validate(); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, sqliteUpsert, countryArgs(c)...)
	return storageErr(fmt.Sprintf("upsert %s", c.Name), err)
}

// UpsertBatch writes a whole refresh batch in one transaction, one
// statement per row so per-row atomicity holds under concurrent readers.
func (s *SQLiteStore) UpsertBatch(ctx context.Context, countries []model.Country) (int64, error) {
	for _, c := range countries {
		if err := c.Validate(); err != nil {
			return 0, err
		}
	}
	if len(countries) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, storageErr("upsert batch begin", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, sqliteUpsert)
	if err != nil {
		return 0, storageErr("upsert batch prepare", err)
	}
	defer stmt.Close() //nolint:errcheck

	var written int64
	for _, c := range countries {
		if _, err := stmt.ExecContext(ctx, countryArgs(c)...); err != nil {
			return 0, storageErr(fmt.Sprintf("upsert batch %s", c.Name), err)
		}
		written++
	}

	if err := tx.Commit(); err != nil {
		return 0, storageErr("upsert batch commit", err)
	}
	return written, nil
}

func (s *SQLiteStore) FindAll(ctx context.Context, filter Filter) ([]model.Country, error) {
	query := `SELECT name, capital, region, population, currency_code, exchange_rate, estimated_gdp, flag_url, last_refreshed_at FROM countries WHERE 1=1`
	var args []any

	if filter.Region != "" {
		query += ` AND region = ?`
		args = append(args, filter.Region)
	}
	if filter.Currency != "" {
		query += ` AND currency_code = ?`
		args = append(args, filter.Currency)
	}

	switch filter.Sort {
	case SortGDPDesc:
		query += ` ORDER BY estimated_gdp DESC, name ASC`
	case SortGDPAsc:
		query += ` ORDER BY estimated_gdp ASC, name ASC`
	default:
		query += ` ORDER BY name ASC`
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storageErr("find all", err)
	}
	defer rows.Close()

	var out []model.Country
	for rows.Next() {
		c, err := scanSQLiteCountry(rows)
		if err != nil {
			return nil, storageErr("scan country", err)
		}
		out = append(out, *c)
	}
	return out, storageErr("find all iterate", rows.Err())
}

func (s *SQLiteStore) FindByName(ctx context.Context, name string) (*model.Country, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT name, capital, region, population, currency_code, exchange_rate, estimated_gdp, flag_url, last_refreshed_at
		 FROM countries WHERE name = ? COLLATE NOCASE LIMIT 1`,
		name,
	)
	c, err := scanSQLiteCountry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storageErr(fmt.Sprintf("find %s", name), err)
	}
	return c, nil
}

func (s *SQLiteStore) DeleteByName(ctx context.Context, name string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM countries WHERE name = ? COLLATE NOCASE`,
		name,
	)
	if err != nil {
		return false, storageErr(fmt.Sprintf("delete %s", name), err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, storageErr("delete rows affected", err)
	}
	return n > 0, nil
}

func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM countries`).Scan(&count)
	return count, storageErr("count", err)
}

func (s *SQLiteStore) TopByGDP(ctx context.Context, n int) ([]model.GDPEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name, estimated_gdp FROM countries
		 WHERE estimated_gdp > 0
		 ORDER BY estimated_gdp DESC, name ASC
		 LIMIT ?`,
		n,
	)
	if err != nil {
		return nil, storageErr("top by gdp", err)
	}
	defer rows.Close()

	var out []model.GDPEntry
	for rows.Next() {
		var e model.GDPEntry
		if err := rows.Scan(&e.Name, &e.EstimatedGDP); err != nil {
			return nil, storageErr("scan gdp entry", err)
		}
		out = append(out, e)
	}
	return out, storageErr("top by gdp iterate", rows.Err())
}

func (s *SQLiteStore) LastRefreshedAt(ctx context.Context) (*time.Time, error) {
	var last time.Time
	err := s.db.QueryRowContext(ctx,
		`SELECT last_refreshed_at FROM countries ORDER BY last_refreshed_at DESC LIMIT 1`,
	).Scan(&last)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storageErr("last refreshed at", err)
	}
	return &last, nil
}

func (s *SQLiteStore) CreateRefreshRun(ctx context.Context) (*model.RefreshRun, error) {
	run := &model.RefreshRun{
		ID:        uuid.New().String(),
		Status:    model.RefreshRunRunning,
		StartedAt: time.Now().UTC(),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO refresh_runs (id, status, started_at) VALUES (?, ?, ?)`,
		run.ID, string(run.Status), run.StartedAt,
	)
	if err != nil {
		return nil, storageErr("create refresh run", err)
	}
	return run, nil
}

func (s *SQLiteStore) FinishRefreshRun(ctx context.Context, id string, status model.RefreshRunStatus, total int, runErr string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE refresh_runs SET status = ?, total = ?, error = NULLIF(?, ''), finished_at = ? WHERE id = ?`,
		string(status), total, runErr, time.Now().UTC(), id,
	)
	if err != nil {
		return storageErr(fmt.Sprintf("finish refresh run %s", id), err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return storageErr("finish refresh run rows affected", err)
	}
	if n == 0 {
		return storageErr("finish refresh run", eris.Errorf("refresh run not found: %s", id))
	}
	return nil
}

// helpers

type scannable interface {
	Scan(dest ...any) error
}

func scanSQLiteCountry(row scannable) (*model.Country, error) {
	var c model.Country
	err := row.Scan(
		&c.Name, &c.Capital, &c.Region, &c.Population, &c.CurrencyCode,
		&c.ExchangeRate, &c.EstimatedGDP, &c.FlagURL, &c.LastRefreshedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}
