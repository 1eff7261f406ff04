package chart

import (
	"fmt"
	"image/color"
	"math"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/Outaos/data-steward/internal/admin1"
)

// missingFill marks regions with no score.
var missingFill = color.RGBA{R: 0xD3, G: 0xD3, B: 0xD3, A: 0xFF}

// Choropleth shades admin-1 polygons by score, darker meaning higher.
// scores is keyed by ISO 3166-2 code; regions without a score are drawn
// light grey with no label. Scored regions get the value printed at a
// point inside the polygon.
func Choropleth(regions []admin1.Region, scores map[string]float64, title, outPath string) error {
	if len(regions) == 0 {
		return eris.New("chart: no regions to plot")
	}

	matched := 0
	minScore, maxScore := math.Inf(1), math.Inf(-1)
	for _, r := range regions {
		if v, ok := scores[r.ISO31662]; ok {
			matched++
			minScore = math.Min(minScore, v)
			maxScore = math.Max(maxScore, v)
		}
	}
	if matched == 0 {
		return eris.New("chart: no region matched a score, check the region mapping")
	}

	p := plot.New()
	p.Title.Text = title
	p.HideAxes()

	var labelXYs plotter.XYs
	var labels []string
	for _, r := range regions {
		score, ok := scores[r.ISO31662]

		fill := missingFill
		if ok {
			fill = rampColor(score, minScore, maxScore)
		}

		rings := make([]plotter.XYer, 0, len(r.Rings))
		for _, ring := range r.Rings {
			xys := make(plotter.XYs, len(ring))
			for i, pt := range ring {
				xys[i] = plotter.XY{X: pt.X, Y: pt.Y}
			}
			rings = append(rings, xys)
		}
		poly, err := plotter.NewPolygon(rings...)
		if err != nil {
			return eris.Wrapf(err, "chart: polygon for %s", r.Name)
		}
		poly.Color = fill
		poly.LineStyle.Color = color.White
		poly.LineStyle.Width = vg.Points(0.4)
		p.Add(poly)

		if ok {
			pt := r.RepresentativePoint()
			labelXYs = append(labelXYs, plotter.XY{X: pt.X, Y: pt.Y})
			labels = append(labels, formatScore(score))
		}
	}

	scoreLabels, err := plotter.NewLabels(plotter.XYLabels{XYs: labelXYs, Labels: labels})
	if err != nil {
		return eris.Wrap(err, "chart: build score labels")
	}
	for i := range scoreLabels.TextStyle {
		scoreLabels.TextStyle[i].Font.Size = vg.Points(7)
		scoreLabels.TextStyle[i].XAlign = draw.XCenter
		scoreLabels.TextStyle[i].YAlign = draw.YCenter
	}
	p.Add(scoreLabels)

	if err := p.Save(9*vg.Inch, 7*vg.Inch, outPath); err != nil {
		return eris.Wrapf(err, "chart: save %s", outPath)
	}
	zap.L().Info("chart: wrote choropleth",
		zap.String("path", outPath),
		zap.Int("matched", matched),
		zap.Int("regions", len(regions)),
	)
	return nil
}

// rampColor maps a score onto a grey ramp, keeping the lightest shade
// clearly distinguishable from the missing-data fill.
func rampColor(v, lo, hi float64) color.RGBA {
	t := 1.0
	if hi > lo {
		t = (v - lo) / (hi - lo)
	}
	g := uint8(230 - t*190)
	return color.RGBA{R: g, G: g, B: g, A: 0xFF}
}

// formatScore prints whole numbers without a decimal point, matching the
// axis labels, and everything else with one decimal.
func formatScore(v float64) string {
	if math.Abs(v-math.Round(v)) < 1e-9 {
		return fmt.Sprintf("%d", int(math.Round(v)))
	}
	return fmt.Sprintf("%.1f", v)
}
