package trends

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
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
CREATE TABLE IF NOT EXISTS scrape_runs (
	id         TEXT PRIMARY KEY,
	geo        TEXT NOT NULL,
	start_year INTEGER NOT NULL,
	end_year   INTEGER NOT NULL,
	pairs      INTEGER NOT NULL,
	status     TEXT NOT NULL DEFAULT 'running',
	row_count  INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
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

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateScrapeRun(ctx context.Context, geo string, startYear, endYear, pairs int) (*ScrapeRun, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO scrape_runs (id, geo, start_year, end_year, pairs, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, geo, startYear, endYear, pairs, RunStatusRunning, now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert scrape run")
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

func (s *SQLiteStore) CompleteScrapeRun(ctx context.Context, runID string, rows int) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE scrape_runs SET status = ?, row_count = ?, updated_at = ? WHERE id = ?`,
		RunStatusComplete, rows, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: complete scrape run %s", runID)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return eris.Errorf("sqlite: scrape run %s not found", runID)
	}
	return nil
}

func (s *SQLiteStore) InsertObservations(ctx context.Context, runID string, obs []Observation) error {
	if len(obs) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin")
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO trend_observations (run_id, year, pair_id, ua_term, ru_term, region, score_ua, score_ru)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (year, pair_id, region) DO UPDATE SET
		   run_id = excluded.run_id,
		   ua_term = excluded.ua_term,
		   ru_term = excluded.ru_term,
		   score_ua = excluded.score_ua,
		   score_ru = excluded.score_ru`,
	)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare insert observation")
	}
	defer stmt.Close()

	for _, o := range obs {
		if _, err := stmt.ExecContext(ctx,
			runID, o.Year, o.PairID, o.TermUA, o.TermRU, o.Region, nullableInt(o.ScoreUA), nullableInt(o.ScoreRU),
		); err != nil {
			return eris.Wrapf(err, "sqlite: insert observation %s/%d", o.Region, o.Year)
		}
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit observations")
}

func (s *SQLiteStore) ListObservations(ctx context.Context, filter ObservationFilter) ([]Observation, error) {
	query := `SELECT year, pair_id, ua_term, ru_term, region, score_ua, score_ru FROM trend_observations`
	where, args := observationFilterSQL(filter, "?")
	query += where + ` ORDER BY pair_id, year, region`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list observations")
	}
	defer rows.Close()

	var out []Observation
	for rows.Next() {
		var o Observation
		var ua, ru sql.NullInt64
		if err := rows.Scan(&o.Year, &o.PairID, &o.TermUA, &o.TermRU, &o.Region, &ua, &ru); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan observation")
		}
		o.ScoreUA = fromNullInt(ua)
		o.ScoreRU = fromNullInt(ru)
		out = append(out, o)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate observations")
}

func nullableInt(p *int) any {
	if p == nil {
		return nil
	}
	return *p
}

func fromNullInt(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int64)
	return &n
}
