package trends

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteReadCSVRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "obs.csv")
	in := []Observation{
		{Year: 2014, PairID: 1, TermUA: "млинці", TermRU: "блины", Region: "Львівська область", ScoreUA: score(80), ScoreRU: score(20)},
		{Year: 2014, PairID: 1, TermUA: "млинці", TermRU: "блины", Region: "Донецька область", ScoreUA: nil, ScoreRU: score(70)},
	}

	require.NoError(t, WriteCSV(path, in))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(raw), "\xEF\xBB\xBF"), "exports carry a UTF-8 BOM")
	assert.Contains(t, string(raw), "year,pair_id,ua_term,ru_term,region,score_ua,score_ru")

	out, err := ReadCSV(path)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestReadCSVSkipsMalformedRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "obs.csv")
	body := "year,pair_id,ua_term,ru_term,region,score_ua,score_ru\n" +
		"2014,1,a,b,Крим,10,20\n" +
		"not-a-year,1,a,b,Крим,10,20\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	obs, err := ReadCSV(path)
	require.NoError(t, err)
	require.Len(t, obs, 1)
	assert.Equal(t, 2014, obs[0].Year)
}

func TestReadCSVMissingColumn(t *testing.T) {
	path := filepath.Join(t.TempDir(), "obs.csv")
	require.NoError(t, os.WriteFile(path, []byte("year,region\n2014,Крим\n"), 0o644))

	_, err := ReadCSV(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pair_id")
}

func TestParseScore(t *testing.T) {
	assert.Nil(t, parseScore(""))
	assert.Nil(t, parseScore("NA"))

	v := parseScore("42")
	require.NotNil(t, v)
	assert.Equal(t, 42, *v)

	v = parseScore("42.0")
	require.NotNil(t, v)
	assert.Equal(t, 42, *v)
}
