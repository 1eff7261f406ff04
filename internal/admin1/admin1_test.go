package admin1

import (
	"path/filepath"
	"testing"

	"github.com/jonas-p/go-shp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func polygon(minX, minY, size float64) *shp.Polygon {
	pts := []shp.Point{
		{X: minX, Y: minY},
		{X: minX, Y: minY + size},
		{X: minX + size, Y: minY + size},
		{X: minX + size, Y: minY},
		{X: minX, Y: minY},
	}
	return &shp.Polygon{
		Box:       shp.Box{MinX: minX, MinY: minY, MaxX: minX + size, MaxY: minY + size},
		NumParts:  1,
		NumPoints: int32(len(pts)),
		Parts:     []int32{0},
		Points:    pts,
	}
}

// writeAdmin1 builds a three-record fixture: two Ukrainian regions and one
// from a neighbouring country that must be filtered out.
func writeAdmin1(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "admin1.shp")

	writer, err := shp.Create(path, shp.POLYGON)
	require.NoError(t, err)
	require.NoError(t, writer.SetFields([]shp.Field{
		shp.StringField("adm0_a3", 3),
		shp.StringField("admin", 40),
		shp.StringField("name", 40),
		shp.StringField("iso_3166_2", 10),
	}))

	records := []struct {
		a3, admin, name, iso string
		shape                *shp.Polygon
	}{
		{"UKR", "Ukraine", "Lviv", "UA-46", polygon(23.0, 49.0, 2.0)},
		{"UKR", "Ukraine", "Kyiv", "UA-30", polygon(30.0, 50.0, 1.0)},
		{"POL", "Poland", "Podkarpackie", "PL-18", polygon(21.0, 49.0, 2.0)},
	}
	for i, rec := range records {
		writer.Write(rec.shape)
		require.NoError(t, writer.WriteAttribute(i, 0, rec.a3))
		require.NoError(t, writer.WriteAttribute(i, 1, rec.admin))
		require.NoError(t, writer.WriteAttribute(i, 2, rec.name))
		require.NoError(t, writer.WriteAttribute(i, 3, rec.iso))
	}
	writer.Close()
	return path
}

func TestLoadFiltersCountry(t *testing.T) {
	path := writeAdmin1(t, t.TempDir())

	regions, err := Load(path, "UKR", "Ukraine")
	require.NoError(t, err)
	require.Len(t, regions, 2)

	assert.Equal(t, "Lviv", regions[0].Name)
	assert.Equal(t, "lviv", regions[0].NameNorm)
	assert.Equal(t, "UA-46", regions[0].ISO31662)
	require.Len(t, regions[0].Rings, 1)
	assert.Len(t, regions[0].Rings[0], 5)
}

func TestLoadNoMatches(t *testing.T) {
	path := writeAdmin1(t, t.TempDir())

	_, err := Load(path, "DEU", "Germany")
	assert.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.shp"), "UKR", "Ukraine")
	assert.Error(t, err)
}

func TestBounds(t *testing.T) {
	path := writeAdmin1(t, t.TempDir())
	regions, err := Load(path, "UKR", "Ukraine")
	require.NoError(t, err)

	minX, minY, maxX, maxY := Bounds(regions)
	assert.Equal(t, 23.0, minX)
	assert.Equal(t, 49.0, minY)
	assert.Equal(t, 31.0, maxX)
	assert.Equal(t, 51.0, maxY)
}

func TestRepresentativePointInsideSquare(t *testing.T) {
	r := Region{Rings: [][]Point{{
		{X: 0, Y: 0}, {X: 0, Y: 2}, {X: 2, Y: 2}, {X: 2, Y: 0}, {X: 0, Y: 0},
	}}}

	p := r.RepresentativePoint()
	assert.InDelta(t, 1.0, p.X, 1e-9)
	assert.InDelta(t, 1.0, p.Y, 1e-9)
}

func TestRepresentativePointConcave(t *testing.T) {
	// U-shape whose centroid lies in the notch.
	r := Region{Rings: [][]Point{{
		{X: 0, Y: 0}, {X: 0, Y: 3}, {X: 1, Y: 3}, {X: 1, Y: 1},
		{X: 3, Y: 1}, {X: 3, Y: 3}, {X: 4, Y: 3}, {X: 4, Y: 0}, {X: 0, Y: 0},
	}}}

	p := r.RepresentativePoint()
	assert.True(t, pointInRing(p, r.Rings[0]), "label point must land inside the polygon, got %+v", p)
}
