// Package chart renders aggregated search-interest data as bar charts
// and choropleth maps.
package chart

import (
	"fmt"
	"image/color"
	"math"
	"os"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/Outaos/data-steward/internal/trends"
)

// YearlyBarPNG renders yearly averages as a bar chart with the value
// printed above each bar.
func YearlyBarPNG(years []trends.YearAverage, title, outPath string) error {
	if len(years) == 0 {
		return eris.New("chart: no yearly averages to plot")
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Year"
	p.Y.Label.Text = "Average score"

	vals := make(plotter.Values, len(years))
	names := make([]string, len(years))
	labelXYs := make(plotter.XYs, len(years))
	labels := make([]string, len(years))
	for i, y := range years {
		vals[i] = y.Avg
		names[i] = strconv.Itoa(y.Year)
		labelXYs[i] = plotter.XY{X: float64(i), Y: y.Avg}
		labels[i] = fmt.Sprintf("%.1f", y.Avg)
	}

	bars, err := plotter.NewBarChart(vals, vg.Points(20))
	if err != nil {
		return eris.Wrap(err, "chart: build bar chart")
	}
	bars.LineStyle.Width = 0
	bars.Color = color.Gray{Y: 0x60}
	p.Add(bars)
	p.NominalX(names...)
	p.X.Tick.Label.Rotation = math.Pi / 4
	p.X.Tick.Label.XAlign = -1

	valueLabels, err := plotter.NewLabels(plotter.XYLabels{XYs: labelXYs, Labels: labels})
	if err != nil {
		return eris.Wrap(err, "chart: build value labels")
	}
	valueLabels.Offset = vg.Point{Y: vg.Points(2)}
	p.Add(valueLabels)

	if err := p.Save(11*vg.Inch, 5*vg.Inch, outPath); err != nil {
		return eris.Wrapf(err, "chart: save %s", outPath)
	}
	zap.L().Info("chart: wrote yearly bar chart", zap.String("path", outPath), zap.Int("years", len(years)))
	return nil
}

// YearlyBarHTML renders the same data as a standalone interactive HTML
// page, which is easier to share than a PNG.
func YearlyBarHTML(years []trends.YearAverage, title, outPath string) error {
	if len(years) == 0 {
		return eris.New("chart: no yearly averages to plot")
	}

	names := make([]string, len(years))
	data := make([]opts.BarData, len(years))
	for i, y := range years {
		names[i] = strconv.Itoa(y.Year)
		data[i] = opts.BarData{Value: math.Round(y.Avg*10) / 10}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: title}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Average score"}),
	)
	bar.SetXAxis(names).
		AddSeries("average score", data,
			charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}),
		)

	f, err := os.Create(outPath)
	if err != nil {
		return eris.Wrapf(err, "chart: create %s", outPath)
	}
	defer f.Close()

	if err := bar.Render(f); err != nil {
		return eris.Wrap(err, "chart: render html bar chart")
	}
	zap.L().Info("chart: wrote html bar chart", zap.String("path", outPath))
	return nil
}
