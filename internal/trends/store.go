package trends

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// ScrapeRun records one collection pass for provenance.
type ScrapeRun struct {
	ID        string
	Geo       string
	StartYear int
	EndYear   int
	Pairs     int
	Status    string
	Rows      int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Run statuses.
const (
	RunStatusRunning  = "running"
	RunStatusComplete = "complete"
)

// ObservationFilter narrows ListObservations. Zero values mean "any".
type ObservationFilter struct {
	PairID int
	Year   int
	Region string
}

// Store persists scrape runs and their observations. Observations are
// keyed by (year, pair_id, region); a later run overwrites earlier scores
// for the same slice.
type Store interface {
	// Runs
	CreateScrapeRun(ctx context.Context, geo string, startYear, endYear, pairs int) (*ScrapeRun, error)
	CompleteScrapeRun(ctx context.Context, runID string, rows int) error

	// Observations
	InsertObservations(ctx context.Context, runID string, obs []Observation) error
	ListObservations(ctx context.Context, filter ObservationFilter) ([]Observation, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// Open creates a Store for the configured driver.
func Open(ctx context.Context, driver, databaseURL string) (Store, error) {
	switch strings.ToLower(driver) {
	case "", "sqlite":
		return NewSQLite(databaseURL)
	case "postgres", "postgresql":
		return NewPostgres(ctx, databaseURL)
	}
	return nil, eris.Errorf("trends: unsupported store driver %q", driver)
}

// observationFilterSQL builds the WHERE clause for an ObservationFilter.
// style is "?" for SQLite or "$" for Postgres positional placeholders.
func observationFilterSQL(f ObservationFilter, style string) (string, []any) {
	var conds []string
	var args []any

	add := func(col string, val any) {
		args = append(args, val)
		if style == "$" {
			conds = append(conds, fmt.Sprintf("%s = $%d", col, len(args)))
		} else {
			conds = append(conds, col+" = ?")
		}
	}

	if f.PairID != 0 {
		add("pair_id", f.PairID)
	}
	if f.Year != 0 {
		add("year", f.Year)
	}
	if f.Region != "" {
		add("region", f.Region)
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}
