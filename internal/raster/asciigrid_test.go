package raster

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeASC(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const grid4x4 = `ncols 4
nrows 4
xllcorner 0
yllcorner 0
cellsize 500
NODATA_value -200
1 2 3 4
5 6 7 8
9 10 11 12
13 14 15 16
`

func TestOpenASCIIGrid(t *testing.T) {
	dir := t.TempDir()
	path := writeASC(t, dir, "tile.asc", grid4x4)

	src, err := OpenASCIIGrid(path)
	require.NoError(t, err)
	defer src.Close()

	cols, rows := src.Size()
	assert.Equal(t, 4, cols)
	assert.Equal(t, 4, rows)

	nodata, ok := src.Nodata()
	require.True(t, ok)
	assert.Equal(t, -200.0, nodata)

	tr := src.Transform()
	assert.Equal(t, 0.0, tr.OriginX)
	assert.Equal(t, 2000.0, tr.OriginY)
	assert.Equal(t, 500.0, tr.PixelWidth)
	assert.Equal(t, -500.0, tr.PixelHeight)

	b := src.Bounds()
	assert.Equal(t, Bounds{MinX: 0, MinY: 0, MaxX: 2000, MaxY: 2000}, b)

	_, hasCRS := src.CRS()
	assert.False(t, hasCRS, "no sidecar means no CRS")
}

func TestASCIIGridReadWindow(t *testing.T) {
	dir := t.TempDir()
	path := writeASC(t, dir, "tile.asc", grid4x4)

	src, err := OpenASCIIGrid(path)
	require.NoError(t, err)
	defer src.Close()

	g, err := src.ReadWindow(Window{Col: 1, Row: 1, Width: 2, Height: 2})
	require.NoError(t, err)
	assert.Equal(t, []float64{6, 7, 10, 11}, g.Data)
	assert.Equal(t, 500.0, g.Transform.OriginX)
	assert.Equal(t, 1500.0, g.Transform.OriginY)

	_, err = src.ReadWindow(Window{Col: 3, Row: 3, Width: 2, Height: 2})
	assert.Error(t, err)
}

func TestASCIIGridPRJSidecar(t *testing.T) {
	dir := t.TempDir()

	t.Run("bare code", func(t *testing.T) {
		path := writeASC(t, dir, "bare.asc", grid4x4)
		writeASC(t, dir, "bare.prj", "3005\n")

		src, err := OpenASCIIGrid(path)
		require.NoError(t, err)
		defer src.Close()

		crs, ok := src.CRS()
		require.True(t, ok)
		assert.Equal(t, 3005, crs.Code)
	})

	t.Run("wkt authority", func(t *testing.T) {
		path := writeASC(t, dir, "wkt.asc", grid4x4)
		wkt := `PROJCS["NAD83 / BC Albers",GEOGCS["NAD83",DATUM["North_American_Datum_1983",` +
			`SPHEROID["GRS 1980",6378137,298.257222101,AUTHORITY["EPSG","7019"]],` +
			`AUTHORITY["EPSG","6269"]],AUTHORITY["EPSG","4269"]],AUTHORITY["EPSG","3005"]]`
		writeASC(t, dir, "wkt.prj", wkt)

		src, err := OpenASCIIGrid(path)
		require.NoError(t, err)
		defer src.Close()

		crs, ok := src.CRS()
		require.True(t, ok)
		assert.Equal(t, 3005, crs.Code, "last AUTHORITY clause wins")
	})
}

func TestASCIIGridXLLCenter(t *testing.T) {
	dir := t.TempDir()
	path := writeASC(t, dir, "center.asc", `ncols 2
nrows 2
xllcenter 250
yllcenter 250
cellsize 500
1 2
3 4
`)

	src, err := OpenASCIIGrid(path)
	require.NoError(t, err)
	defer src.Close()

	tr := src.Transform()
	assert.Equal(t, 0.0, tr.OriginX)
	assert.Equal(t, 1000.0, tr.OriginY)

	_, ok := src.Nodata()
	assert.False(t, ok)
}

func TestASCIIGridMalformed(t *testing.T) {
	dir := t.TempDir()

	cases := map[string]string{
		"cell count mismatch": "ncols 2\nnrows 2\ncellsize 1\nxllcorner 0\nyllcorner 0\n1 2 3\n",
		"unknown header":      "ncols 2\nbogus 1\n",
		"missing header":      "1 2 3 4\n",
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			path := writeASC(t, dir, "bad.asc", content)
			_, err := OpenASCIIGrid(path)
			assert.Error(t, err)
		})
	}
}

func TestOpenDispatch(t *testing.T) {
	dir := t.TempDir()
	path := writeASC(t, dir, "tile.asc", grid4x4)

	src, err := Open(path)
	require.NoError(t, err)
	assert.NoError(t, src.Close())

	_, err = Open(filepath.Join(dir, "tile.xyz"))
	assert.Error(t, err)
}
