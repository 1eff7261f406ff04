// Package admin1 loads first-level administrative polygons from a
// Natural Earth states-and-provinces shapefile.
package admin1

import (
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/Outaos/data-steward/internal/trends"
)

// Point is a polygon vertex in the shapefile's CRS (Natural Earth ships
// geographic WGS84).
type Point struct {
	X float64
	Y float64
}

// Region is one admin-1 polygon. Rings holds the exterior ring first,
// followed by any holes or detached parts; rendering treats each ring as
// an independent outline, which is all a filled map needs.
type Region struct {
	Name     string
	NameNorm string
	ISO31662 string
	Rings    [][]Point
}

// Load reads the shapefile and keeps only polygons belonging to the given
// country. Natural Earth admin-1 files carry adm0_a3 (ISO alpha-3); older
// cuts only have the admin country name, so both are tried.
func Load(shpPath, countryA3, countryName string) ([]Region, error) {
	reader, err := shp.Open(shpPath)
	if err != nil {
		return nil, eris.Wrapf(err, "admin1: open shapefile %s", shpPath)
	}
	defer func() { _ = reader.Close() }()

	fields := reader.Fields()
	fieldIdx := make(map[string]int, len(fields))
	for i, f := range fields {
		name := strings.TrimRight(f.String(), "\x00")
		fieldIdx[strings.ToLower(name)] = i
	}

	a3Idx, hasA3 := fieldIdx["adm0_a3"]
	adminIdx, hasAdmin := fieldIdx["admin"]
	if !hasA3 && !hasAdmin {
		return nil, eris.Errorf("admin1: %s has neither adm0_a3 nor admin column", shpPath)
	}
	nameIdx, hasName := fieldIdx["name"]
	if !hasName {
		return nil, eris.Errorf("admin1: %s has no name column", shpPath)
	}
	isoIdx, hasISO := fieldIdx["iso_3166_2"]

	attr := func(idx int) string {
		return strings.TrimSpace(strings.TrimRight(reader.Attribute(idx), "\x00"))
	}

	var regions []Region
	var skipped int
	for reader.Next() {
		_, shape := reader.Shape()

		if hasA3 {
			if attr(a3Idx) != countryA3 {
				continue
			}
		} else if !strings.EqualFold(attr(adminIdx), countryName) {
			continue
		}

		poly, ok := shape.(*shp.Polygon)
		if !ok || poly == nil {
			skipped++
			continue
		}

		name := attr(nameIdx)
		region := Region{
			Name:     name,
			NameNorm: trends.NormText(name),
			Rings:    polygonRings(poly),
		}
		if hasISO {
			region.ISO31662 = attr(isoIdx)
		}
		regions = append(regions, region)
	}

	if skipped > 0 {
		zap.L().Debug("admin1: skipped non-polygon records",
			zap.String("path", shpPath),
			zap.Int("skipped", skipped),
		)
	}
	if len(regions) == 0 {
		return nil, eris.Errorf("admin1: no polygons for %s in %s", countryA3, shpPath)
	}

	zap.L().Info("admin1: loaded regions",
		zap.String("country", countryA3),
		zap.Int("regions", len(regions)),
	)
	return regions, nil
}

func polygonRings(poly *shp.Polygon) [][]Point {
	rings := make([][]Point, 0, len(poly.Parts))
	appendRing := func(pts []shp.Point) {
		ring := make([]Point, len(pts))
		for i, p := range pts {
			ring[i] = Point{X: p.X, Y: p.Y}
		}
		rings = append(rings, ring)
	}

	if len(poly.Parts) == 0 {
		appendRing(poly.Points)
		return rings
	}
	for i, start := range poly.Parts {
		end := int32(len(poly.Points))
		if i+1 < len(poly.Parts) {
			end = poly.Parts[i+1]
		}
		if start < 0 || int(start) > len(poly.Points) || end < start {
			continue
		}
		appendRing(poly.Points[start:end])
	}
	return rings
}

// Bounds returns the min/max extent across all regions.
func Bounds(regions []Region) (minX, minY, maxX, maxY float64) {
	first := true
	for _, r := range regions {
		for _, ring := range r.Rings {
			for _, p := range ring {
				if first {
					minX, maxX = p.X, p.X
					minY, maxY = p.Y, p.Y
					first = false
					continue
				}
				if p.X < minX {
					minX = p.X
				}
				if p.X > maxX {
					maxX = p.X
				}
				if p.Y < minY {
					minY = p.Y
				}
				if p.Y > maxY {
					maxY = p.Y
				}
			}
		}
	}
	return minX, minY, maxX, maxY
}

// RepresentativePoint returns a point inside the region's largest ring,
// used for placing labels. The centroid of the ring is tested first; if
// it falls outside (crescent shapes), the midpoint of a horizontal
// crossing through the ring is used instead.
func (r Region) RepresentativePoint() Point {
	ring := largestRing(r.Rings)
	if len(ring) == 0 {
		return Point{}
	}

	c := ringCentroid(ring)
	if pointInRing(c, ring) {
		return c
	}

	// Scanline through the centroid's Y; take the midpoint of the first
	// crossing span.
	xs := crossings(ring, c.Y)
	if len(xs) >= 2 {
		return Point{X: (xs[0] + xs[1]) / 2, Y: c.Y}
	}
	return c
}

func largestRing(rings [][]Point) []Point {
	var best []Point
	bestArea := -1.0
	for _, ring := range rings {
		a := ringArea(ring)
		if a < 0 {
			a = -a
		}
		if a > bestArea {
			bestArea = a
			best = ring
		}
	}
	return best
}

func ringArea(ring []Point) float64 {
	var sum float64
	n := len(ring)
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		sum += ring[i].X*ring[j].Y - ring[j].X*ring[i].Y
	}
	return sum / 2
}

func ringCentroid(ring []Point) Point {
	a := ringArea(ring)
	if a == 0 {
		// Degenerate ring; fall back to the vertex mean.
		var c Point
		for _, p := range ring {
			c.X += p.X
			c.Y += p.Y
		}
		n := float64(len(ring))
		return Point{X: c.X / n, Y: c.Y / n}
	}
	var cx, cy float64
	n := len(ring)
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		cross := ring[i].X*ring[j].Y - ring[j].X*ring[i].Y
		cx += (ring[i].X + ring[j].X) * cross
		cy += (ring[i].Y + ring[j].Y) * cross
	}
	return Point{X: cx / (6 * a), Y: cy / (6 * a)}
}

func pointInRing(p Point, ring []Point) bool {
	inside := false
	n := len(ring)
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		if (ring[i].Y > p.Y) != (ring[j].Y > p.Y) {
			x := ring[j].X + (p.Y-ring[j].Y)/(ring[i].Y-ring[j].Y)*(ring[i].X-ring[j].X)
			if p.X < x {
				inside = !inside
			}
		}
	}
	return inside
}

func crossings(ring []Point, y float64) []float64 {
	var xs []float64
	n := len(ring)
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		if (ring[i].Y > y) != (ring[j].Y > y) {
			x := ring[j].X + (y-ring[j].Y)/(ring[i].Y-ring[j].Y)*(ring[i].X-ring[j].X)
			xs = append(xs, x)
		}
	}
	for i := 1; i < len(xs); i++ {
		for j := i; j > 0 && xs[j] < xs[j-1]; j-- {
			xs[j], xs[j-1] = xs[j-1], xs[j]
		}
	}
	return xs
}
