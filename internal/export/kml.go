package export

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

type kmlRoot struct {
	XMLName  xml.Name    `xml:"kml"`
	XMLNS    string      `xml:"xmlns,attr"`
	Document kmlDocument `xml:"Document"`
}

type kmlDocument struct {
	Name       string         `xml:"name"`
	Placemarks []kmlPlacemark `xml:"Placemark"`
}

type kmlPlacemark struct {
	Name    string      `xml:"name"`
	Point   *kmlPoint   `xml:"Point,omitempty"`
	Line    *kmlLine    `xml:"LineString,omitempty"`
	Polygon *kmlPolygon `xml:"Polygon,omitempty"`
}

type kmlPoint struct {
	Coordinates string `xml:"coordinates"`
}

type kmlLine struct {
	Coordinates string `xml:"coordinates"`
}

type kmlPolygon struct {
	Outer kmlBoundary   `xml:"outerBoundaryIs"`
	Inner []kmlBoundary `xml:"innerBoundaryIs,omitempty"`
}

type kmlBoundary struct {
	Ring kmlLinearRing `xml:"LinearRing"`
}

type kmlLinearRing struct {
	Coordinates string `xml:"coordinates"`
}

func coordString(points []shp.Point) string {
	var sb strings.Builder
	for i, p := range points {
		if i > 0 {
			sb.WriteByte(' ')
		}
		fmt.Fprintf(&sb, "%g,%g", p.X, p.Y)
	}
	return sb.String()
}

// partRanges splits a multipart shape's points by its part offsets.
func partRanges(parts []int32, points []shp.Point) [][]shp.Point {
	if len(parts) == 0 {
		return [][]shp.Point{points}
	}
	out := make([][]shp.Point, 0, len(parts))
	for i, start := range parts {
		end := int32(len(points))
		if i+1 < len(parts) {
			end = parts[i+1]
		}
		if start < 0 || int(start) > len(points) || end < start {
			continue
		}
		out = append(out, points[start:end])
	}
	return out
}

func placemarkFor(name string, shape shp.Shape) (kmlPlacemark, bool) {
	pm := kmlPlacemark{Name: name}
	switch s := shape.(type) {
	case *shp.Point:
		pm.Point = &kmlPoint{Coordinates: coordString([]shp.Point{*s})}
	case *shp.Polygon:
		rings := partRanges(s.Parts, s.Points)
		if len(rings) == 0 {
			return pm, false
		}
		// First ring is the outer boundary, the rest are holes.
		poly := &kmlPolygon{Outer: kmlBoundary{Ring: kmlLinearRing{Coordinates: coordString(rings[0])}}}
		for _, inner := range rings[1:] {
			poly.Inner = append(poly.Inner, kmlBoundary{Ring: kmlLinearRing{Coordinates: coordString(inner)}})
		}
		pm.Polygon = poly
	case *shp.PolyLine:
		pm.Line = &kmlLine{Coordinates: coordString(s.Points)}
	default:
		return pm, false
	}
	return pm, true
}

// nameFieldIndex finds a name-like attribute column, or -1.
func nameFieldIndex(fields []shp.Field) int {
	for i, f := range fields {
		name := strings.ToLower(strings.TrimRight(f.String(), "\x00"))
		if name == "name" || name == "label" || name == "title" {
			return i
		}
	}
	return -1
}

// BuildKML converts a shapefile into a KML document. Coordinates pass
// through untransformed, so the input is expected to be geographic already.
func BuildKML(srcPath, docName string) ([]byte, error) {
	reader, err := shp.Open(srcPath)
	if err != nil {
		return nil, eris.Wrapf(err, "export: open shapefile %s", srcPath)
	}
	defer func() { _ = reader.Close() }()

	nameIdx := nameFieldIndex(reader.Fields())
	doc := kmlDocument{Name: docName}

	n := 0
	skipped := 0
	for reader.Next() {
		_, shape := reader.Shape()
		n++

		name := fmt.Sprintf("Feature %d", n)
		if nameIdx >= 0 {
			if v := strings.TrimSpace(strings.TrimRight(reader.Attribute(nameIdx), "\x00")); v != "" {
				name = v
			}
		}

		if shape == nil {
			skipped++
			continue
		}
		pm, ok := placemarkFor(name, shape)
		if !ok {
			skipped++
			continue
		}
		doc.Placemarks = append(doc.Placemarks, pm)
	}

	if skipped > 0 {
		zap.L().Debug("export: skipped features for kml",
			zap.String("source", srcPath),
			zap.Int("skipped", skipped),
		)
	}

	body, err := xml.MarshalIndent(kmlRoot{
		XMLNS:    "http://www.opengis.net/kml/2.2",
		Document: doc,
	}, "", "  ")
	if err != nil {
		return nil, eris.Wrap(err, "export: marshal kml")
	}
	return append([]byte(xml.Header), body...), nil
}

// ExportKMZ writes a shapefile's features as <outFolder>/<base>.kmz, a zip
// archive holding a single doc.kml.
func ExportKMZ(srcPath, outFolder, base string, opts Options) (string, error) {
	outPath := filepath.Join(outFolder, base+".kmz")

	if _, err := os.Stat(outPath); err == nil && !opts.Overwrite {
		return "", eris.Errorf("export: %s already exists", outPath)
	}

	kmlBytes, err := BuildKML(srcPath, base)
	if err != nil {
		return "", err
	}

	f, err := os.Create(outPath)
	if err != nil {
		return "", eris.Wrapf(err, "export: create %s", outPath)
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	w, err := zw.Create("doc.kml")
	if err != nil {
		return "", eris.Wrap(err, "export: create kmz entry")
	}
	if _, err := w.Write(kmlBytes); err != nil {
		return "", eris.Wrap(err, "export: write kmz entry")
	}
	if err := zw.Close(); err != nil {
		return "", eris.Wrap(err, "export: close kmz")
	}

	zap.L().Info("export: wrote kmz", zap.String("path", outPath))
	return outPath, nil
}
