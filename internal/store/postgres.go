package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/country-pulse/internal/db"
	"github.com/sells-group/country-pulse/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

const countryColumns = `name, capital, region, population, currency_code, exchange_rate, estimated_gdp, flag_url, last_refreshed_at`

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the most frequently used store operations.
var preparedStatements = map[string]string{
	"upsert_country": `INSERT INTO countries (` + countryColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (name) DO UPDATE SET
			capital = EXCLUDED.capital,
			region = EXCLUDED.region,
			population = EXCLUDED.population,
			currency_code = EXCLUDED.currency_code,
			exchange_rate = EXCLUDED.exchange_rate,
			estimated_gdp = EXCLUDED.estimated_gdp,
			flag_url = EXCLUDED.flag_url,
			last_refreshed_at = EXCLUDED.last_refreshed_at`,
	"find_by_name":   `SELECT ` + countryColumns + ` FROM countries WHERE LOWER(name) = LOWER($1)`,
	"delete_by_name": `DELETE FROM countries WHERE LOWER(name) = LOWER($1)`,
	"count":          `SELECT COUNT(*) FROM countries`,
	"last_refresh":   `SELECT MAX(last_refreshed_at) FROM countries`,
}

// NewPostgres creates a PostgresStore with a bounded connection pool.
// Acquisition blocks when the pool is exhausted rather than failing.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS countries (
	name              TEXT PRIMARY KEY,
	capital           TEXT,
	region            TEXT,
	population        BIGINT NOT NULL DEFAULT 0,
	currency_code     TEXT,
	exchange_rate     DOUBLE PRECISION,
	estimated_gdp     DOUBLE PRECISION NOT NULL DEFAULT 0,
	flag_url          TEXT,
	last_refreshed_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_countries_region ON countries(region);
CREATE INDEX IF NOT EXISTS idx_countries_currency ON countries(currency_code);
CREATE INDEX IF NOT EXISTS idx_countries_gdp ON countries(estimated_gdp DESC);
CREATE INDEX IF NOT EXISTS idx_countries_name_lower ON countries(LOWER(name));

CREATE TABLE IF NOT EXISTS refresh_runs (
	id          TEXT PRIMARY KEY,
	status      TEXT NOT NULL DEFAULT 'running',
	total       INTEGER NOT NULL DEFAULT 0,
	error       TEXT,
	started_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	finished_at TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_refresh_runs_started ON refresh_runs(started_at DESC);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return storageErr("migrate", err)
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) Upsert(ctx context.Context, c model.Country) error {
	if err := c.Validate(); err != nil {
		return err
	}
	_, err := s.pool.Exec(ctx, preparedStatements["upsert_country"], countryArgs(c)...)
	return storageErr(fmt.Sprintf("upsert %s", c.Name), err)
}

// UpsertBatch writes a whole refresh batch in one transaction.
func (s *PostgresStore) UpsertBatch(ctx context.Context, countries []model.Country) (int64, error) {
	rows := make([][]any, 0, len(countries))
	for _, c := range countries {
		if err := c.Validate(); err != nil {
			return 0, err
		}
		rows = append(rows, countryArgs(c))
	}

	n, err := db.BatchUpsert(ctx, s.pool, db.UpsertConfig{
		Table: "countries",
		Columns: []string{
			"name", "capital", "region", "population", "currency_code",
			"exchange_rate", "estimated_gdp", "flag_url", "last_refreshed_at",
		},
		ConflictKeys: []string{"name"},
	}, rows)
	if err != nil {
		return 0, storageErr("upsert batch", err)
	}
	return n, nil
}

func (s *PostgresStore) FindAll(ctx context.Context, filter Filter) ([]model.Country, error) {
	query := `SELECT ` + countryColumns + ` FROM countries WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Region != "" {
		query += fmt.Sprintf(` AND region = $%d`, argIdx)
		args = append(args, filter.Region)
		argIdx++
	}
	if filter.Currency != "" {
		query += fmt.Sprintf(` AND currency_code = $%d`, argIdx)
		args = append(args, filter.Currency)
		argIdx++
	}

	switch filter.Sort {
	case SortGDPDesc:
		query += ` ORDER BY estimated_gdp DESC, name ASC`
	case SortGDPAsc:
		query += ` ORDER BY estimated_gdp ASC, name ASC`
	default:
		query += ` ORDER BY name ASC`
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, storageErr("find all", err)
	}
	defer rows.Close()

	var out []model.Country
	for rows.Next() {
		c, err := scanCountry(rows)
		if err != nil {
			return nil, storageErr("scan country", err)
		}
		out = append(out, *c)
	}
	return out, storageErr("find all iterate", rows.Err())
}

func (s *PostgresStore) FindByName(ctx context.Context, name string) (*model.Country, error) {
	row := s.pool.QueryRow(ctx, preparedStatements["find_by_name"], name)
	c, err := scanCountry(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storageErr(fmt.Sprintf("find %s", name), err)
	}
	return c, nil
}

func (s *PostgresStore) DeleteByName(ctx context.Context, name string) (bool, error) {
	tag, err := s.pool.Exec(ctx, preparedStatements["delete_by_name"], name)
	if err != nil {
		return false, storageErr(fmt.Sprintf("delete %s", name), err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *PostgresStore) Count(ctx context.Context) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx, preparedStatements["count"]).Scan(&count)
	return count, storageErr("count", err)
}

// TopByGDP returns the n highest snapshots by estimated GDP, ties broken
// by name ascending. Rows without a defined estimate (zero) are excluded.
func (s *PostgresStore) TopByGDP(ctx context.Context, n int) ([]model.GDPEntry, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT name, estimated_gdp FROM countries
		 WHERE estimated_gdp > 0
		 ORDER BY estimated_gdp DESC, name ASC
		 LIMIT $1`,
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

func (s *PostgresStore) LastRefreshedAt(ctx context.Context) (*time.Time, error) {
	var last *time.Time
	err := s.pool.QueryRow(ctx, preparedStatements["last_refresh"]).Scan(&last)
	if err != nil {
		return nil, storageErr("last refreshed at", err)
	}
	return last, nil
}

func (s *PostgresStore) CreateRefreshRun(ctx context.Context) (*model.RefreshRun, error) {
	run := &model.RefreshRun{
		ID:        uuid.New().String(),
		Status:    model.RefreshRunRunning,
		StartedAt: time.Now().UTC(),
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO refresh_runs (id, status, started_at) VALUES ($1, $2, $3)`,
		run.ID, string(run.Status), run.StartedAt,
	)
	if err != nil {
		return nil, storageErr("create refresh run", err)
	}
	return run, nil
}

func (s *PostgresStore) FinishRefreshRun(ctx context.Context, id string, status model.RefreshRunStatus, total int, runErr string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE refresh_runs SET status = $1, total = $2, error = NULLIF($3, ''), finished_at = $4 WHERE id = $5`,
		string(status), total, runErr, time.Now().UTC(), id,
	)
	if err != nil {
		return storageErr(fmt.Sprintf("finish refresh run %s", id), err)
	}
	if tag.RowsAffected() == 0 {
		return storageErr("finish refresh run", eris.Errorf("refresh run not found: %s", id))
	}
	return nil
}

// helpers

func countryArgs(c model.Country) []any {
	return []any{
		c.Name, c.Capital, c.Region, c.Population, c.CurrencyCode,
		c.ExchangeRate, c.EstimatedGDP, c.FlagURL, c.LastRefreshedAt,
	}
}

func scanCountry(row pgx.Row) (*model.Country, error) {
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
