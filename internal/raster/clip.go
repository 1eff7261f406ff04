package raster

import (
	"math"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
)

// Mask marks which cells of a clipped grid fall inside a polygon.
type Mask []bool

// Clip extracts the minimal window of src covered by poly and builds an
// all-touched mask over it: a cell is marked when the polygon touches its
// rectangle at all, not only when the cell center is inside. The bool result
// is false when no cell is touched; that is an expected outcome, not an error.
func Clip(src Source, poly *geom.Polygon) (*Grid, Mask, bool, error) {
	if poly.NumLinearRings() == 0 {
		return nil, nil, false, nil
	}
	ring := poly.LinearRing(0).Coords()
	if len(ring) < 4 {
		return nil, nil, false, nil
	}

	cols, rows := src.Size()
	t := src.Transform()
	b := ringBounds(ring)

	// Fractional cell range of the polygon bbox, widened by one cell so
	// edge-touching neighbors are decided by the exact test below.
	c0 := int(math.Floor((b.MinX-t.OriginX)/t.PixelWidth)) - 1
	c1 := int(math.Floor((b.MaxX-t.OriginX)/t.PixelWidth)) + 1
	// PixelHeight is negative: larger y means smaller row index.
	r0 := int(math.Floor((b.MaxY-t.OriginY)/t.PixelHeight)) - 1
	r1 := int(math.Floor((b.MinY-t.OriginY)/t.PixelHeight)) + 1

	w, ok := clampWindow(c0, c1, r0, r1, cols, rows)
	if !ok {
		return nil, nil, false, nil
	}

	grid, err := src.ReadWindow(w)
	if err != nil {
		return nil, nil, false, eris.Wrap(err, "raster: read clip window")
	}

	mask := make(Mask, w.Width*w.Height)
	any := false
	for r := 0; r < w.Height; r++ {
		for c := 0; c < w.Width; c++ {
			cell := t.CellBounds(w.Col+c, w.Row+r)
			if polygonTouchesRect(ring, cell) {
				mask[r*w.Width+c] = true
				any = true
			}
		}
	}
	if !any {
		return nil, nil, false, nil
	}
	return grid, mask, true, nil
}

func ringBounds(ring []geom.Coord) Bounds {
	b := Bounds{
		MinX: math.Inf(1), MinY: math.Inf(1),
		MaxX: math.Inf(-1), MaxY: math.Inf(-1),
	}
	for _, c := range ring {
		b.MinX = min(b.MinX, c[0])
		b.MaxX = max(b.MaxX, c[0])
		b.MinY = min(b.MinY, c[1])
		b.MaxY = max(b.MaxY, c[1])
	}
	return b
}

// polygonTouchesRect reports whether the polygon's exterior ring and the
// rectangle share any point: a rect corner inside the ring, a ring vertex
// inside the rect, or a crossing edge pair.
func polygonTouchesRect(ring []geom.Coord, rect Bounds) bool {
	corners := [4][2]float64{
		{rect.MinX, rect.MinY},
		{rect.MaxX, rect.MinY},
		{rect.MaxX, rect.MaxY},
		{rect.MinX, rect.MaxY},
	}
	for _, p := range corners {
		if pointInRing(p[0], p[1], ring) {
			return true
		}
	}
	for _, c := range ring {
		if c[0] >= rect.MinX && c[0] <= rect.MaxX && c[1] >= rect.MinY && c[1] <= rect.MaxY {
			return true
		}
	}
	for i := 0; i+1 < len(ring); i++ {
		ax, ay := ring[i][0], ring[i][1]
		bx, by := ring[i+1][0], ring[i+1][1]
		for j := 0; j < 4; j++ {
			cx, cy := corners[j][0], corners[j][1]
			dx, dy := corners[(j+1)%4][0], corners[(j+1)%4][1]
			if segmentsIntersect(ax, ay, bx, by, cx, cy, dx, dy) {
				return true
			}
		}
	}
	return false
}

// pointInRing is an even-odd ray cast along +x.
func pointInRing(x, y float64, ring []geom.Coord) bool {
	inside := false
	for i := 0; i+1 < len(ring); i++ {
		x1, y1 := ring[i][0], ring[i][1]
		x2, y2 := ring[i+1][0], ring[i+1][1]
		if (y1 > y) != (y2 > y) {
			xint := x1 + (y-y1)/(y2-y1)*(x2-x1)
			if x < xint {
				inside = !inside
			}
		}
	}
	return inside
}

// segmentsIntersect reports whether segments ab and cd intersect, including
// collinear touching.
func segmentsIntersect(ax, ay, bx, by, cx, cy, dx, dy float64) bool {
	d1 := cross(cx, cy, dx, dy, ax, ay)
	d2 := cross(cx, cy, dx, dy, bx, by)
	d3 := cross(ax, ay, bx, by, cx, cy)
	d4 := cross(ax, ay, bx, by, dx, dy)

	if ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) &&
		((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0)) {
		return true
	}
	return (d1 == 0 && onSegment(cx, cy, dx, dy, ax, ay)) ||
		(d2 == 0 && onSegment(cx, cy, dx, dy, bx, by)) ||
		(d3 == 0 && onSegment(ax, ay, bx, by, cx, cy)) ||
		(d4 == 0 && onSegment(ax, ay, bx, by, dx, dy))
}

func cross(ax, ay, bx, by, px, py float64) float64 {
	return (bx-ax)*(py-ay) - (by-ay)*(px-ax)
}

func onSegment(ax, ay, bx, by, px, py float64) bool {
	return min(ax, bx) <= px && px <= max(ax, bx) && min(ay, by) <= py && py <= max(ay, by)
}
