package trends

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "trends.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func TestSQLiteScrapeRunLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	run, err := s.CreateScrapeRun(ctx, "UA", 2011, 2025, 8)
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, RunStatusRunning, run.Status)

	require.NoError(t, s.CompleteScrapeRun(ctx, run.ID, 120))

	err = s.CompleteScrapeRun(ctx, "no-such-run", 0)
	assert.Error(t, err)
}

func TestSQLiteInsertAndListObservations(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	run, err := s.CreateScrapeRun(ctx, "UA", 2014, 2015, 1)
	require.NoError(t, err)

	obs := []Observation{
		{Year: 2015, PairID: 1, TermUA: "млинці", TermRU: "блины", Region: "Львівська область", ScoreUA: score(90), ScoreRU: score(10)},
		{Year: 2014, PairID: 1, TermUA: "млинці", TermRU: "блины", Region: "Львівська область", ScoreUA: score(80), ScoreRU: score(20)},
		{Year: 2014, PairID: 1, TermUA: "млинці", TermRU: "блины", Region: "Донецька область", ScoreUA: nil, ScoreRU: score(70)},
	}
	require.NoError(t, s.InsertObservations(ctx, run.ID, obs))

	got, err := s.ListObservations(ctx, ObservationFilter{})
	require.NoError(t, err)
	require.Len(t, got, 3)
	// Ordered by pair, year, region.
	assert.Equal(t, 2014, got[0].Year)
	assert.Equal(t, "Донецька область", got[0].Region)
	assert.Nil(t, got[0].ScoreUA)
	require.NotNil(t, got[0].ScoreRU)
	assert.Equal(t, 70, *got[0].ScoreRU)

	got, err = s.ListObservations(ctx, ObservationFilter{Year: 2015})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 90, *got[0].ScoreUA)

	got, err = s.ListObservations(ctx, ObservationFilter{Region: "Львівська область"})
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestSQLiteInsertObservationsOverwrites(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first, err := s.CreateScrapeRun(ctx, "UA", 2014, 2014, 1)
	require.NoError(t, err)
	require.NoError(t, s.InsertObservations(ctx, first.ID, []Observation{
		{Year: 2014, PairID: 1, TermUA: "a", TermRU: "b", Region: "Крим", ScoreUA: score(10)},
	}))

	second, err := s.CreateScrapeRun(ctx, "UA", 2014, 2014, 1)
	require.NoError(t, err)
	require.NoError(t, s.InsertObservations(ctx, second.ID, []Observation{
		{Year: 2014, PairID: 1, TermUA: "a", TermRU: "b", Region: "Крим", ScoreUA: score(55)},
	}))

	got, err := s.ListObservations(ctx, ObservationFilter{Region: "Крим"})
	require.NoError(t, err)
	require.Len(t, got, 1, "same slice from a later run replaces the row")
	assert.Equal(t, 55, *got[0].ScoreUA)
}

func TestSQLiteInsertObservationsEmpty(t *testing.T) {
	s := newTestStore(t)
	assert.NoError(t, s.InsertObservations(context.Background(), "any", nil))
}

func TestOpenUnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), "oracle", "dsn")
	assert.Error(t, err)
}
