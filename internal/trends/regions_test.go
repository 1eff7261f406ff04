package trends

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormText(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"  Львівська   область ", "львівська область"},
		{"місто Севастополь.", "місто севастополь"},
		{"Івано-Франківська область", "івано-франківська область"},
		{"Kyiv (city)", "kyiv city"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormText(tt.in), "input %q", tt.in)
	}
}

func TestDefaultRegionMapping(t *testing.T) {
	m := DefaultRegionMapping()

	code, ok := m.Code("Львівська область")
	require.True(t, ok)
	assert.Equal(t, "UA-46", code)

	// Trailing dot and case fold away before lookup.
	code, ok = m.Code("місто Севастополь.")
	require.True(t, ok)
	assert.Equal(t, "UA-40", code)

	_, ok = m.Code("атлантида")
	assert.False(t, ok)
}

func TestLoadRegionMappingOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "regions.yaml")
	body := "Львівська область: UA-99\nНова область: UA-98\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	m, err := LoadRegionMapping(path)
	require.NoError(t, err)

	code, _ := m.Code("львівська область")
	assert.Equal(t, "UA-99", code, "file overrides built-in entry")

	code, ok := m.Code("нова область")
	require.True(t, ok)
	assert.Equal(t, "UA-98", code)

	// Untouched defaults survive a partial file.
	code, _ = m.Code("київська область")
	assert.Equal(t, "UA-32", code)
}

func TestLoadRegionMappingEmptyPath(t *testing.T) {
	m, err := LoadRegionMapping("")
	require.NoError(t, err)
	assert.Equal(t, DefaultRegionMapping(), m)
}

func TestLoadRegionMappingBadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte(":\n -"), 0o644))

	_, err := LoadRegionMapping(path)
	assert.Error(t, err)
}

func TestAreaRegionNorms(t *testing.T) {
	set, err := AreaRegionNorms("WEST")
	require.NoError(t, err)
	assert.Len(t, set, 7)
	assert.Contains(t, set, "тернопільська область")

	set, err = AreaRegionNorms("all")
	require.NoError(t, err)
	assert.Nil(t, set, "ALL means no filter")

	set, err = AreaRegionNorms("")
	require.NoError(t, err)
	assert.Nil(t, set)

	_, err = AreaRegionNorms("ATLANTIS")
	assert.Error(t, err)
}
