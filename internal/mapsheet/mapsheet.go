// Package mapsheet renders one PDF map sheet per feature in a planting
// openings layer.
package mapsheet

import (
	"fmt"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/Outaos/data-steward/internal/export"
)

// Page geometry. The map frame is the drawable area of an A4 portrait
// sheet; the printed scale is derived from its physical width.
const (
	pageWidth    = 8.27 * vg.Inch
	pageHeight   = 11.69 * vg.Inch
	frameWidthM  = 0.18 // meters of paper across the map frame
	frameHeightM = 0.24
)

// Options controls sheet production.
type Options struct {
	// ZoomBufferRatio pads the feature extent on each side as a fraction
	// of its width/height. Default 0.1.
	ZoomBufferRatio float64
	// ScaleStep rounds the computed scale up to its nearest multiple.
	// Default 5000.
	ScaleStep float64
	// MaxSheets stops after this many exports. Zero means all features.
	MaxSheets int
}

func (o *Options) applyDefaults() {
	if o.ZoomBufferRatio <= 0 {
		o.ZoomBufferRatio = 0.1
	}
	if o.ScaleStep <= 0 {
		o.ScaleStep = 5000
	}
}

// Produce renders a PDF per feature into outFolder and returns the
// written paths. The layer must carry an OPENING_ID column; SILV_POLYG
// is used in titles and filenames when present. Coordinates are assumed
// projected in meters, since a printed scale is meaningless otherwise.
func Produce(shpPath, outFolder string, opts Options) ([]string, error) {
	opts.applyDefaults()

	if err := os.MkdirAll(outFolder, 0o755); err != nil {
		return nil, eris.Wrapf(err, "mapsheet: create %s", outFolder)
	}

	reader, err := shp.Open(shpPath)
	if err != nil {
		return nil, eris.Wrapf(err, "mapsheet: open shapefile %s", shpPath)
	}
	defer func() { _ = reader.Close() }()

	fields := reader.Fields()
	fieldIdx := make(map[string]int, len(fields))
	for i, f := range fields {
		name := strings.TrimRight(f.String(), "\x00")
		fieldIdx[strings.ToLower(name)] = i
	}
	openingIdx, ok := fieldIdx["opening_id"]
	if !ok {
		return nil, eris.Errorf("mapsheet: %s has no OPENING_ID column", shpPath)
	}
	silvIdx, hasSilv := fieldIdx["silv_polyg"]

	crs := crsName(shpPath)

	var written []string
	skipped := 0
	for reader.Next() {
		if opts.MaxSheets > 0 && len(written) >= opts.MaxSheets {
			zap.L().Info("mapsheet: reached max exports", zap.Int("count", len(written)))
			break
		}

		_, shape := reader.Shape()
		if shape == nil {
			skipped++
			continue
		}

		openingID := strings.TrimSpace(strings.TrimRight(reader.Attribute(openingIdx), "\x00"))
		silv := ""
		if hasSilv {
			silv = strings.TrimSpace(strings.TrimRight(reader.Attribute(silvIdx), "\x00"))
		}

		outPath, err := renderSheet(shape, openingID, silv, crs, outFolder, opts)
		if err != nil {
			return written, eris.Wrapf(err, "mapsheet: opening %s", openingID)
		}
		if outPath == "" {
			skipped++
			continue
		}
		written = append(written, outPath)
	}

	if skipped > 0 {
		zap.L().Warn("mapsheet: skipped features without drawable geometry", zap.Int("skipped", skipped))
	}
	zap.L().Info("mapsheet: produced sheets",
		zap.String("source", shpPath),
		zap.Int("sheets", len(written)),
	)
	return written, nil
}

func renderSheet(shape shp.Shape, openingID, silv, crs, outFolder string, opts Options) (string, error) {
	box := shape.BBox()
	width := box.MaxX - box.MinX
	height := box.MaxY - box.MinY
	if width <= 0 || height <= 0 {
		return "", nil
	}

	minX := box.MinX - width*opts.ZoomBufferRatio
	maxX := box.MaxX + width*opts.ZoomBufferRatio
	minY := box.MinY - height*opts.ZoomBufferRatio
	maxY := box.MaxY + height*opts.ZoomBufferRatio

	scale := RoundScale(rawScale(maxX-minX, maxY-minY), opts.ScaleStep)

	// The rounded scale widens the window; recenter around the feature.
	cx, cy := (minX+maxX)/2, (minY+maxY)/2
	halfW := scale * frameWidthM / 2
	halfH := scale * frameHeightM / 2

	title := strings.TrimSpace(fmt.Sprintf("Opening %s %s", openingID, silv))

	p := plot.New()
	p.Title.Text = title
	p.HideAxes()
	p.X.Min, p.X.Max = cx-halfW, cx+halfW
	p.Y.Min, p.Y.Max = cy-halfH, cy+halfH

	if err := addShape(p, shape); err != nil {
		return "", err
	}
	if err := addInfoBlock(p, crs, scale, cx-halfW, cy-halfH, halfH*2); err != nil {
		return "", err
	}

	base := export.SanitizeFilename(strings.TrimSpace(fmt.Sprintf("Planting_%s_%s", openingID, silv)))
	outPath := filepath.Join(outFolder, base+".pdf")
	if err := p.Save(pageWidth, pageHeight, outPath); err != nil {
		return "", eris.Wrapf(err, "mapsheet: save %s", outPath)
	}
	return outPath, nil
}

// rawScale is the denominator needed to fit the window into the frame.
func rawScale(widthM, heightM float64) float64 {
	return math.Max(widthM/frameWidthM, heightM/frameHeightM)
}

// RoundScale rounds a map scale denominator up to the nearest step, so
// sheets print at tidy scales like 1:15000 instead of 1:13742.
func RoundScale(raw, step float64) float64 {
	if step <= 0 {
		return raw
	}
	return math.Ceil(raw/step) * step
}

func addShape(p *plot.Plot, shape shp.Shape) error {
	switch s := shape.(type) {
	case *shp.Polygon:
		for _, ring := range partRanges(s.Parts, s.Points) {
			xys := toXYs(ring)
			poly, err := plotter.NewPolygon(xys)
			if err != nil {
				return eris.Wrap(err, "mapsheet: polygon")
			}
			poly.Color = color.RGBA{R: 0xB8, G: 0xD8, B: 0xA8, A: 0xFF}
			poly.LineStyle.Color = color.Black
			poly.LineStyle.Width = vg.Points(1)
			p.Add(poly)
		}
	case *shp.PolyLine:
		for _, part := range partRanges(s.Parts, s.Points) {
			line, err := plotter.NewLine(toXYs(part))
			if err != nil {
				return eris.Wrap(err, "mapsheet: line")
			}
			line.Width = vg.Points(1)
			p.Add(line)
		}
	case *shp.Point:
		sc, err := plotter.NewScatter(plotter.XYs{{X: s.X, Y: s.Y}})
		if err != nil {
			return eris.Wrap(err, "mapsheet: point")
		}
		p.Add(sc)
	default:
		return eris.Errorf("mapsheet: unsupported geometry %T", shape)
	}
	return nil
}

// addInfoBlock writes the export date, CRS and scale in the lower-left
// corner of the frame.
func addInfoBlock(p *plot.Plot, crs string, scale, x, y, frameH float64) error {
	lines := []string{
		fmt.Sprintf("Scale: 1:%d", int(scale)),
		fmt.Sprintf("Spatial Reference: %s", crs),
		fmt.Sprintf("Date exported: %s", time.Now().Format("2006-01-02 03:04 PM")),
	}

	xys := make(plotter.XYs, len(lines))
	for i := range lines {
		xys[i] = plotter.XY{X: x + frameH*0.01, Y: y + frameH*0.02*float64(i+1)}
	}
	labels, err := plotter.NewLabels(plotter.XYLabels{XYs: xys, Labels: lines})
	if err != nil {
		return eris.Wrap(err, "mapsheet: info block")
	}
	for i := range labels.TextStyle {
		labels.TextStyle[i].Font.Size = vg.Points(8)
	}
	p.Add(labels)
	return nil
}

func toXYs(pts []shp.Point) plotter.XYs {
	xys := make(plotter.XYs, len(pts))
	for i, pt := range pts {
		xys[i] = plotter.XY{X: pt.X, Y: pt.Y}
	}
	return xys
}

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

var wktName = regexp.MustCompile(`^\s*\w+\["([^"]+)"`)

// crsName pulls the coordinate system name out of the .prj sidecar.
func crsName(shpPath string) string {
	prj := strings.TrimSuffix(shpPath, filepath.Ext(shpPath)) + ".prj"
	data, err := os.ReadFile(prj)
	if err != nil {
		return "Unknown"
	}
	if m := wktName.FindSubmatch(data); m != nil {
		return string(m[1])
	}
	return "Unknown"
}
