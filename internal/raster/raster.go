// Package raster reads georeferenced population grids. Sources are opened per
// aggregation call and closed when the call finishes; nothing is cached across
// calls.
package raster

import (
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
)

// CRS identifies a coordinate reference system by authority code
// (EPSG or ESRI numeric code, e.g. 3005 or 54009).
type CRS struct {
	Code int
}

// Bounds is an axis-aligned rectangle in a tile's native CRS units.
type Bounds struct {
	MinX, MinY, MaxX, MaxY float64
}

// Intersects reports whether b and o overlap on both axes. Touching edges
// count as overlap, matching all-touched semantics downstream.
func (b Bounds) Intersects(o Bounds) bool {
	return b.MinX <= o.MaxX && b.MaxX >= o.MinX && b.MinY <= o.MaxY && b.MaxY >= o.MinY
}

// Transform is a north-up affine georeferencing transform. PixelHeight is
// negative for the usual top-left origin rasters.
type Transform struct {
	OriginX     float64
	OriginY     float64
	PixelWidth  float64
	PixelHeight float64
}

// CellBounds returns the spatial rectangle covered by cell (col, row).
func (t Transform) CellBounds(col, row int) Bounds {
	x0 := t.OriginX + float64(col)*t.PixelWidth
	x1 := x0 + t.PixelWidth
	y0 := t.OriginY + float64(row)*t.PixelHeight
	y1 := y0 + t.PixelHeight
	return Bounds{
		MinX: min(x0, x1), MaxX: max(x0, x1),
		MinY: min(y0, y1), MaxY: max(y0, y1),
	}
}

// Extent returns the spatial bounds of a cols×rows grid under t.
func (t Transform) Extent(cols, rows int) Bounds {
	x0 := t.OriginX
	x1 := t.OriginX + float64(cols)*t.PixelWidth
	y0 := t.OriginY
	y1 := t.OriginY + float64(rows)*t.PixelHeight
	return Bounds{
		MinX: min(x0, x1), MaxX: max(x0, x1),
		MinY: min(y0, y1), MaxY: max(y0, y1),
	}
}

// Shift returns the transform of a window whose top-left cell is (col, row).
func (t Transform) Shift(col, row int) Transform {
	return Transform{
		OriginX:     t.OriginX + float64(col)*t.PixelWidth,
		OriginY:     t.OriginY + float64(row)*t.PixelHeight,
		PixelWidth:  t.PixelWidth,
		PixelHeight: t.PixelHeight,
	}
}

// Window is a rectangular region of grid cells.
type Window struct {
	Col, Row      int
	Width, Height int
}

// Grid is a decoded window of cell values, row-major from the top-left.
type Grid struct {
	Data      []float64
	Width     int
	Height    int
	Transform Transform
}

// At returns the value of cell (col, row) within the grid.
func (g *Grid) At(col, row int) float64 {
	return g.Data[row*g.Width+col]
}

// Source is a readable raster tile. Implementations exist per file format;
// Open picks one from the path extension.
type Source interface {
	// CRS returns the declared coordinate reference system, if any.
	CRS() (CRS, bool)
	// Size returns the grid dimensions in cells.
	Size() (cols, rows int)
	// Transform returns the cell-to-coordinate affine transform.
	Transform() Transform
	// Bounds returns the tile's spatial extent in its native CRS.
	Bounds() Bounds
	// Nodata returns the declared nodata sentinel, if any.
	Nodata() (float64, bool)
	// ReadWindow decodes the given cell window into a Grid.
	ReadWindow(w Window) (*Grid, error)
	Close() error
}

// Open opens a raster tile, dispatching on the file extension.
func Open(path string) (Source, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".tif", ".tiff":
		return OpenGeoTIFF(path)
	case ".asc":
		return OpenASCIIGrid(path)
	default:
		return nil, eris.Errorf("raster: unsupported tile format %q", filepath.Ext(path))
	}
}

// clampWindow intersects a fractional cell range with the grid and returns
// the covered window, or ok=false when nothing remains.
func clampWindow(c0, c1, r0, r1, cols, rows int) (Window, bool) {
	if c0 < 0 {
		c0 = 0
	}
	if r0 < 0 {
		r0 = 0
	}
	if c1 > cols-1 {
		c1 = cols - 1
	}
	if r1 > rows-1 {
		r1 = rows - 1
	}
	if c0 > c1 || r0 > r1 {
		return Window{}, false
	}
	return Window{Col: c0, Row: r0, Width: c1 - c0 + 1, Height: r1 - r0 + 1}, true
}
