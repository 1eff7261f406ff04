package proj

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Outaos/data-steward/internal/raster"
)

func forCode(t *testing.T, code int) *Transformer {
	t.Helper()
	tr, err := ForCRS(raster.CRS{Code: code})
	require.NoError(t, err)
	return tr
}

func TestGeographicPassthrough(t *testing.T) {
	tr := forCode(t, 4326)
	assert.Equal(t, UnitDegree, tr.Units())

	x, y := tr.Forward(-123.1, 49.25)
	assert.Equal(t, -123.1, x)
	assert.Equal(t, 49.25, y)
}

func TestWebMercator(t *testing.T) {
	tr := forCode(t, 3857)
	assert.Equal(t, UnitMeter, tr.Units())

	x, y := tr.Forward(0, 0)
	assert.InDelta(t, 0, x, 1e-9)
	assert.InDelta(t, 0, y, 1e-9)

	x, _ = tr.Forward(180, 0)
	assert.InDelta(t, 20037508.342789244, x, 1e-3)

	_, y = tr.Forward(0, 45)
	assert.InDelta(t, 5621521.486, y, 1)
}

func TestMollweide(t *testing.T) {
	tr := forCode(t, 54009)

	x, y := tr.Forward(0, 0)
	assert.InDelta(t, 0, x, 1e-6)
	assert.InDelta(t, 0, y, 1e-6)

	// At the equator theta = 0, so x = sqrt(2) * R at 90°E.
	x, y = tr.Forward(90, 0)
	assert.InDelta(t, math.Sqrt2*6378137, x, 1e-3)
	assert.InDelta(t, 0, y, 1e-6)

	// The pole maps to y = sqrt(2) * R.
	x, y = tr.Forward(0, 90)
	assert.InDelta(t, 0, x, 1e-6)
	assert.InDelta(t, math.Sqrt2*6378137, y, 1e-3)

	// Southern hemisphere is symmetric.
	_, ys := tr.Forward(0, -47)
	_, yn := tr.Forward(0, 47)
	assert.InDelta(t, -yn, ys, 1e-6)
}

func TestBCAlbers(t *testing.T) {
	tr := forCode(t, 3005)

	// The central meridian maps to the false easting exactly.
	x, _ := tr.Forward(-126, 54)
	assert.InDelta(t, 1000000, x, 1e-6)

	// Northing grows with latitude, easting with longitude.
	_, y1 := tr.Forward(-126, 49)
	_, y2 := tr.Forward(-126, 59)
	assert.Greater(t, y2, y1)

	x1, _ := tr.Forward(-130, 54)
	x2, _ := tr.Forward(-122, 54)
	assert.Greater(t, x2, x1)

	// Vancouver lands in the plausible BC Albers range.
	x, y := tr.Forward(-123.1, 49.25)
	assert.InDelta(t, 1.2e6, x, 1e5)
	assert.InDelta(t, 4.5e5, y, 1e5)
}

func TestLambertAzimuthalEurope(t *testing.T) {
	tr := forCode(t, 3035)

	// The projection center maps to the false origin exactly.
	x, y := tr.Forward(10, 52)
	assert.InDelta(t, 4321000, x, 1e-6)
	assert.InDelta(t, 3210000, y, 1e-6)

	_, yN := tr.Forward(10, 60)
	assert.Greater(t, yN, y)
}

func TestUTM(t *testing.T) {
	north := forCode(t, 32610) // zone 10N, central meridian 123°W

	x, y := north.Forward(-123, 0)
	assert.InDelta(t, 500000, x, 1e-6)
	assert.InDelta(t, 0, y, 1e-6)

	_, y = north.Forward(-123, 49)
	assert.InDelta(t, 5427455, y, 50, "49°N scaled meridian arc distance")

	south := forCode(t, 32710)
	_, y = south.Forward(-123, 0)
	assert.InDelta(t, 10000000, y, 1e-6, "southern false northing")

	// Zone 31 covers Greenwich; known easting at (0, 0).
	zone31 := forCode(t, 32631)
	x, _ = zone31.Forward(0, 0)
	assert.InDelta(t, 166021.44, x, 1)
}

func TestUnsupportedCode(t *testing.T) {
	_, err := ForCRS(raster.CRS{Code: 9999})
	assert.Error(t, err)

	_, err = ForCRS(raster.CRS{Code: 0})
	assert.Error(t, err)
}
