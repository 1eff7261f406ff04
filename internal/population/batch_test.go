package population

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBatchSortsResults(t *testing.T) {
	dir := t.TempDir()
	tile := writeTile(t, dir, "center", centerTile, "3857")

	sites := []Site{
		{Name: "nowhere", Lat: 60, Lon: 120}, // far from the tile
		{Name: "off-center", Lat: 0.004, Lon: 0},
		{Name: "center", Lat: 0, Lon: 0},
	}

	results := Batch(context.Background(), DefaultConfig(), []string{tile}, sites, 1000, 4)
	require.Len(t, results, 3)

	// Successes first, population descending; the no-overlap site last.
	assert.NoError(t, results[0].Err)
	assert.NoError(t, results[1].Err)
	assert.GreaterOrEqual(t, results[0].Population, results[1].Population)
	assert.Error(t, results[2].Err)
	assert.Equal(t, "nowhere", results[2].Site.Name)
}

func TestBatchEmptySites(t *testing.T) {
	results := Batch(context.Background(), DefaultConfig(), []string{"tile.asc"}, nil, 1000, 0)
	assert.Empty(t, results)
}
