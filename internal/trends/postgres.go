package trends

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/Outaos/data-steward/internal/db"
)

// PostgresStore implements Store using a pgx connection pool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// NewPostgres connects to Postgres and wraps the pool in a store.
func NewPostgres(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := db.Connect(ctx, databaseURL)
	if err != nil {
		return nil, err
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresFromPool wraps an existing pool, used by tests.
func NewPostgresFromPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool, closeFn: func() {}}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS scrape_runs (
	id         TEXT PRIMARY KEY,
	geo        TEXT NOT NULL,
	start_year INTEGER NOT NULL,
	end_year   INTEGER NOT NULL,
	pairs      INTEGER NOT NULL,
	status     TEXT NOT NULL DEFAULT 'running',
	row_count  INTEGER NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS trend_observations (
	run_id   TEXT NOT NULL REFERENCES scrape_runs(id),
	year     INTEGER NOT NULL,
	pair_id  INTEGER NOT NULL,
	ua_term  TEXT NOT NULL,
	ru_term  TEXT NOT NULL,
	region   TEXT NOT NULL,
	score_ua INTEGER,
	score_ru INTEGER,
	PRIMARY KEY (year, pair_id, region)
);

CREATE INDEX IF NOT EXISTS idx_scrape_runs_status ON scrape_runs(status);
CREATE INDEX IF NOT EXISTS idx_trend_observations_year ON trend_observations(year);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.closeFn()
	return nil
}

func (s *PostgresStore) CreateScrapeRun(ctx context.Context, geo string, startYear, endYear, pairs int) (*ScrapeRun, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO scrape_runs (id, geo, start_year, end_year, pairs, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		id, geo, startYear, endYear, pairs, RunStatusRunning, now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert scrape run")
	}

	return &ScrapeRun{
		ID:        id,
		Geo:       geo,
		StartYear: startYear,
		EndYear:   endYear,
		Pairs:     pairs,
		Status:    RunStatusRunning,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *PostgresStore) CompleteScrapeRun(ctx context.Context, runID string, rows int) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE scrape_runs SET status = $1, row_count = $2, updated_at = $3 WHERE id = $4`,
		RunStatusComplete, rows, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: complete scrape run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("postgres: scrape run %s not found", runID)
	}
	return nil
}

// observationColumns matches the BulkUpsert column order.
var observationColumns = []string{"run_id", "year", "pair_id", "ua_term", "ru_term", "region", "score_ua", "score_ru"}

func (s *PostgresStore) InsertObservations(ctx context.Context, runID string, obs []Observation) error {
	if len(obs) == 0 {
		return nil
	}

	rows := make([][]any, 0, len(obs))
	for _, o := range obs {
		rows = append(rows, []any{
			runID, o.Year, o.PairID, o.TermUA, o.TermRU, o.Region,
			nullableInt(o.ScoreUA), nullableInt(o.ScoreRU),
		})
	}

	_, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "trend_observations",
		Columns:      observationColumns,
		ConflictKeys: []string{"year", "pair_id", "region"},
	}, rows)
	return eris.Wrap(err, "postgres: upsert observations")
}

func (s *PostgresStore) ListObservations(ctx context.Context, filter ObservationFilter) ([]Observation, error) {
	query := `SELECT year, pair_id, ua_term, ru_term, region, score_ua, score_ru FROM trend_observations`
	where, args := observationFilterSQL(filter, "$")
	query += where + ` ORDER BY pair_id, year, region`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list observations")
	}
	defer rows.Close()

	var out []Observation
	for rows.Next() {
		var o Observation
		var ua, ru sql.NullInt64
		if err := rows.Scan(&o.Year, &o.PairID, &o.TermUA, &o.TermRU, &o.Region, &ua, &ru); err != nil {
			return nil, eris.Wrap(err, "postgres: scan observation")
		}
		o.ScoreUA = fromNullInt(ua)
		o.ScoreRU = fromNullInt(ru)
		out = append(out, o)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate observations")
}
