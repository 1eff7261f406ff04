// Package population estimates how many people live within a radius of a
// point by summing gridded population tiles that intersect a circular buffer.
package population

import (
	"context"
	"math"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/Outaos/data-steward/internal/proj"
	"github.com/Outaos/data-steward/internal/raster"
)

// Config holds the aggregation knobs. The defaults match the values the
// production GHS-POP tiles were processed with.
type Config struct {
	// NodataFallback is used when a tile declares no nodata sentinel.
	NodataFallback float64
	// BufferSegments is the vertex count of the circular buffer polygon.
	BufferSegments int
}

// DefaultConfig returns the production configuration.
func DefaultConfig() Config {
	return Config{
		NodataFallback: -200,
		BufferSegments: 64,
	}
}

func (c Config) withDefaults() Config {
	if c.NodataFallback == 0 {
		c.NodataFallback = -200
	}
	if c.BufferSegments < 8 {
		c.BufferSegments = 64
	}
	return c
}

// Aggregate sums population counts from every tile whose grid intersects a
// circular buffer of radiusM meters around (lat, lon).
//
// Tiles are processed in input order. Each tile is opened and closed within
// its own iteration. The buffer is reprojected into each tile's native CRS
// independently, since tiles may use different reference systems. A cell
// contributes only when it is not the nodata sentinel, is finite, and is
// non-negative (negative codes mean uninhabited/unmeasured, never a
// subtraction).
//
// Returns a *NoOverlapError when no tile's grid intersects the buffer. A
// total of 0.0 with a nil error is legitimate: the buffer overlapped tiles
// but every covered cell was nodata or invalid.
func Aggregate(ctx context.Context, cfg Config, tilePaths []string, lat, lon, radiusM float64) (float64, error) {
	if radiusM <= 0 {
		return 0, eris.Errorf("population: radius must be positive, got %g", radiusM)
	}
	cfg = cfg.withDefaults()

	total := 0.0
	anyOverlap := false

	for _, path := range tilePaths {
		if err := ctx.Err(); err != nil {
			return 0, eris.Wrap(err, "population: aggregate cancelled")
		}
		sum, overlapped, err := aggregateTile(cfg, path, lat, lon, radiusM)
		if err != nil {
			return 0, err
		}
		if overlapped {
			anyOverlap = true
			total += sum
		}
	}

	if !anyOverlap {
		return 0, &NoOverlapError{Lat: lat, Lon: lon, RadiusM: radiusM}
	}
	return total, nil
}

// aggregateTile processes a single tile. The source is closed on every
// return path.
func aggregateTile(cfg Config, path string, lat, lon, radiusM float64) (sum float64, overlapped bool, err error) {
	src, err := raster.Open(path)
	if err != nil {
		return 0, false, &TileOpenError{Path: path, Err: err}
	}
	defer func() { _ = src.Close() }()

	crs, ok := src.CRS()
	if !ok {
		return 0, false, &MissingCRSError{Path: path}
	}

	tr, err := proj.ForCRS(crs)
	if err != nil {
		return 0, false, eris.Wrapf(err, "population: tile %s", path)
	}
	if tr.Units() == proj.UnitDegree {
		return 0, false, &UnsupportedCRSUnitsError{Path: path, Code: crs.Code}
	}

	// Longitude-first, into the tile's native CRS.
	x, y := tr.Forward(lon, lat)
	buffer := circlePolygon(x, y, radiusM, cfg.BufferSegments)

	// Cheap rectangle test before the full clip; most tiles in a large set
	// are nowhere near the query point.
	if !bufferBounds(buffer).Intersects(src.Bounds()) {
		return 0, false, nil
	}

	grid, mask, ok, err := raster.Clip(src, buffer)
	if err != nil {
		return 0, false, &TileOpenError{Path: path, Err: err}
	}
	if !ok {
		// The bbox matched but the precise clip found nothing; an expected
		// edge case, not an error.
		return 0, false, nil
	}

	nodata, declared := src.Nodata()
	if !declared {
		nodata = cfg.NodataFallback
	}

	valid := 0
	for i, v := range grid.Data {
		if !mask[i] {
			continue
		}
		if v == nodata || math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			continue
		}
		sum += v
		valid++
	}

	zap.L().Debug("population: tile contribution",
		zap.String("tile", path),
		zap.Int("crs", crs.Code),
		zap.Int("valid_cells", valid),
		zap.Float64("sum", sum),
	)
	return sum, true, nil
}

// circlePolygon approximates a circle of radius r around (x, y) with a
// closed ring of the given segment count.
func circlePolygon(x, y, r float64, segments int) *geom.Polygon {
	coords := make([]geom.Coord, 0, segments+1)
	for i := 0; i < segments; i++ {
		a := 2 * math.Pi * float64(i) / float64(segments)
		coords = append(coords, geom.Coord{x + r*math.Cos(a), y + r*math.Sin(a)})
	}
	coords = append(coords, coords[0])
	return geom.NewPolygon(geom.XY).MustSetCoords([][]geom.Coord{coords})
}

func bufferBounds(poly *geom.Polygon) raster.Bounds {
	b := poly.Bounds()
	return raster.Bounds{
		MinX: b.Min(0), MinY: b.Min(1),
		MaxX: b.Max(0), MaxY: b.Max(1),
	}
}
