package export

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jonas-p/go-shp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Planting Sites 2025", "Planting_Sites_2025"},
		{"  cut-block #7 (draft)  ", "cut_block_7_draft"},
		{"___", "export"},
		{"", "export"},
		{"already_clean", "already_clean"},
		{"a//b\\c", "a_b_c"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SanitizeFilename(tt.in), "input %q", tt.in)
	}
}

func square(minX, minY, size float64) *shp.Polygon {
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

// writeFixtureSHP writes a two-polygon shapefile with a NAME column and a
// .prj sidecar, returning the .shp path.
func writeFixtureSHP(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "blocks.shp")

	writer, err := shp.Create(path, shp.POLYGON)
	require.NoError(t, err)
	require.NoError(t, writer.SetFields([]shp.Field{shp.StringField("NAME", 25)}))

	for i, s := range []*shp.Polygon{square(30.0, 50.0, 0.1), square(31.0, 50.5, 0.2)} {
		writer.Write(s)
		name := []string{"north block", "south block"}[i]
		require.NoError(t, writer.WriteAttribute(i, 0, name))
	}
	writer.Close()

	prj := strings.TrimSuffix(path, ".shp") + ".prj"
	require.NoError(t, os.WriteFile(prj, []byte(`GEOGCS["WGS 84",AUTHORITY["EPSG","4326"]]`), 0o644))
	return path
}

func TestCopySHP(t *testing.T) {
	srcDir := t.TempDir()
	outDir := t.TempDir()
	src := writeFixtureSHP(t, srcDir)

	out, err := CopySHP(src, outDir, "blocks_copy", Options{})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(outDir, "blocks_copy.shp"), out)

	reader, err := shp.Open(out)
	require.NoError(t, err)
	defer reader.Close()

	assert.Equal(t, shp.POLYGON, reader.GeometryType)

	n := 0
	var names []string
	for reader.Next() {
		_, shape := reader.Shape()
		require.NotNil(t, shape)
		names = append(names, strings.TrimRight(reader.Attribute(0), "\x00"))
		n++
	}
	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"north block", "south block"}, names)

	// CRS sidecar travels with the dataset.
	_, err = os.Stat(filepath.Join(outDir, "blocks_copy.prj"))
	assert.NoError(t, err)
}

func TestCopySHPOverwrite(t *testing.T) {
	srcDir := t.TempDir()
	outDir := t.TempDir()
	src := writeFixtureSHP(t, srcDir)

	_, err := CopySHP(src, outDir, "out", Options{})
	require.NoError(t, err)

	_, err = CopySHP(src, outDir, "out", Options{})
	require.Error(t, err, "refuses to clobber without overwrite")

	_, err = CopySHP(src, outDir, "out", Options{Overwrite: true})
	assert.NoError(t, err)
}

func TestDeleteShapefileSet(t *testing.T) {
	dir := t.TempDir()
	for _, ext := range []string{".shp", ".dbf", ".shx", ".prj"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "x"+ext), []byte("d"), 0o644))
	}

	DeleteShapefileSet(filepath.Join(dir, "x.shp"))

	for _, ext := range []string{".shp", ".dbf", ".shx", ".prj"} {
		_, err := os.Stat(filepath.Join(dir, "x"+ext))
		assert.True(t, os.IsNotExist(err), ext)
	}
}

func TestBuildKML(t *testing.T) {
	src := writeFixtureSHP(t, t.TempDir())

	kml, err := BuildKML(src, "blocks")
	require.NoError(t, err)

	s := string(kml)
	assert.Contains(t, s, `xmlns="http://www.opengis.net/kml/2.2"`)
	assert.Contains(t, s, "<name>north block</name>")
	assert.Contains(t, s, "<name>south block</name>")
	assert.Contains(t, s, "<outerBoundaryIs>")
	assert.Contains(t, s, "30,50 ", "ring starts at the square corner")
}

func TestExportKMZ(t *testing.T) {
	src := writeFixtureSHP(t, t.TempDir())
	outDir := t.TempDir()

	out, err := ExportKMZ(src, outDir, "blocks", Options{})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(outDir, "blocks.kmz"), out)

	zr, err := zip.OpenReader(out)
	require.NoError(t, err)
	defer zr.Close()

	require.Len(t, zr.File, 1)
	assert.Equal(t, "doc.kml", zr.File[0].Name)

	rc, err := zr.File[0].Open()
	require.NoError(t, err)
	defer rc.Close()
	body, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Contains(t, string(body), "<Placemark>")
}

func TestExportKMZRespectsOverwrite(t *testing.T) {
	src := writeFixtureSHP(t, t.TempDir())
	outDir := t.TempDir()

	_, err := ExportKMZ(src, outDir, "blocks", Options{})
	require.NoError(t, err)

	_, err = ExportKMZ(src, outDir, "blocks", Options{})
	require.Error(t, err)

	_, err = ExportKMZ(src, outDir, "blocks", Options{Overwrite: true})
	assert.NoError(t, err)
}

func TestPartRanges(t *testing.T) {
	pts := []shp.Point{{X: 0}, {X: 1}, {X: 2}, {X: 3}, {X: 4}, {X: 5}}

	rings := partRanges([]int32{0, 4}, pts)
	require.Len(t, rings, 2)
	assert.Len(t, rings[0], 4)
	assert.Len(t, rings[1], 2)

	rings = partRanges(nil, pts)
	require.Len(t, rings, 1)
	assert.Len(t, rings[0], 6)
}
