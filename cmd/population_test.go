package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Outaos/data-steward/internal/population"
)

func TestLoadSites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sites.csv")
	body := "name,lat,lon\nKamloops,50.674,-120.327\nPrince George,53.917,-122.750\nbad,notanumber,1\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	sites, err := loadSites(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, sites, 2, "malformed rows are skipped")
	assert.Equal(t, "Kamloops", sites[0].Name)
	assert.InDelta(t, 50.674, sites[0].Lat, 1e-9)
	assert.InDelta(t, -120.327, sites[0].Lon, 1e-9)
}

func TestLoadSitesMissingColumns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sites.csv")
	require.NoError(t, os.WriteFile(path, []byte("name,x,y\na,1,2\n"), 0o644))

	_, err := loadSites(context.Background(), path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "lat")
}

func TestWriteBatchCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	results := []population.SiteResult{
		{Site: population.Site{Name: "a", Lat: 50, Lon: -120}, Population: 12345},
		{Site: population.Site{Name: "b", Lat: 51, Lon: -121}, Err: assert.AnError},
	}

	require.NoError(t, writeBatchCSV(path, results))

	body, err := os.ReadFile(path)
	require.NoError(t, err)
	s := string(body)
	assert.Contains(t, s, "name,lat,lon,population,error")
	assert.Contains(t, s, "a,50,-120,12345,")
	assert.Contains(t, s, "assert.AnError")
}
