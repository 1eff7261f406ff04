package trends

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func score(v int) *int { return &v }

func obsFixture() []Observation {
	return []Observation{
		{Year: 2014, PairID: 1, Region: "Львівська область", ScoreUA: score(80), ScoreRU: score(20)},
		{Year: 2014, PairID: 2, Region: "Львівська область", ScoreUA: score(60), ScoreRU: score(40)},
		{Year: 2014, PairID: 1, Region: "Донецька область", ScoreUA: score(30), ScoreRU: score(70)},
		{Year: 2014, PairID: 2, Region: "Донецька область", ScoreUA: nil, ScoreRU: score(90)},
		{Year: 2015, PairID: 1, Region: "Львівська область", ScoreUA: score(90), ScoreRU: score(10)},
		{Year: 2015, PairID: 1, Region: "Крим", ScoreUA: score(10), ScoreRU: score(100)},
	}
}

func TestRegionYearAverages(t *testing.T) {
	avgs := RegionYearAverages(obsFixture(), 2014, LanguageUA)

	require.Len(t, avgs, 2)
	// Sorted by raw region name; Донецька precedes Львівська.
	assert.Equal(t, "Донецька область", avgs[0].Region)
	assert.InDelta(t, 30.0, avgs[0].Avg, 1e-9, "nil scores are skipped, not zeroed")
	assert.Equal(t, "львівська область", avgs[1].Norm)
	assert.InDelta(t, 70.0, avgs[1].Avg, 1e-9)
}

func TestRegionYearAveragesRULanguage(t *testing.T) {
	avgs := RegionYearAverages(obsFixture(), 2014, LanguageRU)

	require.Len(t, avgs, 2)
	assert.InDelta(t, 80.0, avgs[0].Avg, 1e-9)
	assert.InDelta(t, 30.0, avgs[1].Avg, 1e-9)
}

func TestRegionYearAveragesEmptyYear(t *testing.T) {
	assert.Empty(t, RegionYearAverages(obsFixture(), 1999, LanguageUA))
}

func TestCountryYearlyAverages(t *testing.T) {
	years, err := CountryYearlyAverages(obsFixture(), LanguageUA, AggregateOptions{})
	require.NoError(t, err)

	require.Len(t, years, 2)
	assert.Equal(t, 2014, years[0].Year)
	assert.InDelta(t, (80.0+60.0+30.0)/3, years[0].Avg, 1e-9)
	assert.Equal(t, 2015, years[1].Year)
	assert.InDelta(t, 50.0, years[1].Avg, 1e-9)
}

func TestCountryYearlyAveragesExcludeRegions(t *testing.T) {
	years, err := CountryYearlyAverages(obsFixture(), LanguageUA, AggregateOptions{
		ExcludeRegions: []string{"Крим"},
	})
	require.NoError(t, err)

	require.Len(t, years, 2)
	assert.InDelta(t, 90.0, years[1].Avg, 1e-9, "2015 keeps only Lviv once Crimea is dropped")
}

func TestCountryYearlyAveragesAreaFilter(t *testing.T) {
	years, err := CountryYearlyAverages(obsFixture(), LanguageRU, AggregateOptions{Area: "EAST"})
	require.NoError(t, err)

	require.Len(t, years, 1)
	assert.Equal(t, 2014, years[0].Year)
	assert.InDelta(t, 80.0, years[0].Avg, 1e-9)
}

func TestCountryYearlyAveragesYearBounds(t *testing.T) {
	years, err := CountryYearlyAverages(obsFixture(), LanguageUA, AggregateOptions{YearMin: 2015, YearMax: 2015})
	require.NoError(t, err)

	require.Len(t, years, 1)
	assert.Equal(t, 2015, years[0].Year)
}

func TestCountryYearlyAveragesNothingLeft(t *testing.T) {
	_, err := CountryYearlyAverages(obsFixture(), LanguageUA, AggregateOptions{YearMin: 2030})
	assert.Error(t, err)
}

func TestCountryYearlyAveragesUnknownArea(t *testing.T) {
	_, err := CountryYearlyAverages(obsFixture(), LanguageUA, AggregateOptions{Area: "NOWHERE"})
	assert.Error(t, err)
}

func TestParseLanguage(t *testing.T) {
	lang, err := ParseLanguage("ua")
	require.NoError(t, err)
	assert.Equal(t, LanguageUA, lang)

	_, err = ParseLanguage("en")
	assert.Error(t, err)
}
