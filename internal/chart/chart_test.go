package chart

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Outaos/data-steward/internal/admin1"
	"github.com/Outaos/data-steward/internal/trends"
)

func sampleYears() []trends.YearAverage {
	return []trends.YearAverage{
		{Year: 2014, Avg: 56.7},
		{Year: 2015, Avg: 50.0},
		{Year: 2016, Avg: 62.3},
	}
}

func TestYearlyBarPNG(t *testing.T) {
	out := filepath.Join(t.TempDir(), "bar.png")

	require.NoError(t, YearlyBarPNG(sampleYears(), "Yearly average", out))

	info, err := os.Stat(out)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}

func TestYearlyBarPNGEmpty(t *testing.T) {
	err := YearlyBarPNG(nil, "t", filepath.Join(t.TempDir(), "bar.png"))
	assert.Error(t, err)
}

func TestYearlyBarHTML(t *testing.T) {
	out := filepath.Join(t.TempDir(), "bar.html")

	require.NoError(t, YearlyBarHTML(sampleYears(), "Yearly average", out))

	body, err := os.ReadFile(out)
	require.NoError(t, err)
	s := string(body)
	assert.Contains(t, s, "Yearly average")
	assert.Contains(t, s, "2014")
	assert.True(t, strings.Contains(s, "echarts"), "renders an echarts page")
}

func square(minX, minY, size float64) [][]admin1.Point {
	return [][]admin1.Point{{
		{X: minX, Y: minY},
		{X: minX, Y: minY + size},
		{X: minX + size, Y: minY + size},
		{X: minX + size, Y: minY},
		{X: minX, Y: minY},
	}}
}

func sampleRegions() []admin1.Region {
	return []admin1.Region{
		{Name: "Lviv", NameNorm: "lviv", ISO31662: "UA-46", Rings: square(23, 49, 2)},
		{Name: "Kyiv", NameNorm: "kyiv", ISO31662: "UA-30", Rings: square(30, 50, 1)},
		{Name: "Crimea", NameNorm: "крим", ISO31662: "UA-43", Rings: square(33, 44, 2)},
	}
}

func TestChoropleth(t *testing.T) {
	out := filepath.Join(t.TempDir(), "map.png")
	scores := map[string]float64{"UA-46": 80, "UA-30": 42.5}

	require.NoError(t, Choropleth(sampleRegions(), scores, "UA 2014", out))

	info, err := os.Stat(out)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}

func TestChoroplethNoMatches(t *testing.T) {
	out := filepath.Join(t.TempDir(), "map.png")

	err := Choropleth(sampleRegions(), map[string]float64{"XX-1": 5}, "t", out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no region matched")
}

func TestChoroplethNoRegions(t *testing.T) {
	err := Choropleth(nil, nil, "t", filepath.Join(t.TempDir(), "map.png"))
	assert.Error(t, err)
}

func TestRampColor(t *testing.T) {
	dark := rampColor(100, 0, 100)
	light := rampColor(0, 0, 100)
	assert.Less(t, dark.R, light.R, "higher score is darker")

	flat := rampColor(50, 50, 50)
	assert.Equal(t, uint8(40), flat.R, "degenerate range uses the dark end")
}

func TestFormatScore(t *testing.T) {
	assert.Equal(t, "42", formatScore(42.0))
	assert.Equal(t, "42.5", formatScore(42.5))
	assert.Equal(t, "0", formatScore(0))
}
