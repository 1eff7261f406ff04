package main

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Outaos/data-steward/internal/fetcher"
	"github.com/Outaos/data-steward/internal/population"
)

var populationCmd = &cobra.Command{
	Use:   "population",
	Short: "Population-within-radius estimates from gridded rasters",
}

var populationSumCmd = &cobra.Command{
	Use:   "sum",
	Short: "Sum population within a radius of one point",
	RunE:  runPopulationSum,
}

var populationBatchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Sum population for every site in a CSV",
	Long:  "Reads a CSV with name, lat and lon columns and aggregates each site against the same tile set concurrently.",
	RunE:  runPopulationBatch,
}

func init() {
	populationSumCmd.Flags().StringSlice("tile", nil, "raster tile path (repeatable)")
	populationSumCmd.Flags().Float64("lat", 0, "latitude of the query point")
	populationSumCmd.Flags().Float64("lon", 0, "longitude of the query point")
	populationSumCmd.Flags().Float64("radius", 0, "radius in meters (default from config)")
	_ = populationSumCmd.MarkFlagRequired("tile")
	_ = populationSumCmd.MarkFlagRequired("lat")
	_ = populationSumCmd.MarkFlagRequired("lon")

	populationBatchCmd.Flags().StringSlice("tile", nil, "raster tile path (repeatable)")
	populationBatchCmd.Flags().String("sites", "", "CSV of sites with name, lat, lon columns")
	populationBatchCmd.Flags().Float64("radius", 0, "radius in meters (default from config)")
	populationBatchCmd.Flags().Int("concurrency", 0, "concurrent sites (default from config)")
	populationBatchCmd.Flags().String("out", "", "write results CSV here instead of stdout")
	_ = populationBatchCmd.MarkFlagRequired("tile")
	_ = populationBatchCmd.MarkFlagRequired("sites")

	populationCmd.AddCommand(populationSumCmd)
	populationCmd.AddCommand(populationBatchCmd)
	rootCmd.AddCommand(populationCmd)
}

func populationConfig() population.Config {
	return population.Config{
		NodataFallback: cfg.Population.NodataFallback,
		BufferSegments: cfg.Population.BufferSegments,
	}
}

func radiusOrDefault(cmd *cobra.Command) float64 {
	radius, _ := cmd.Flags().GetFloat64("radius")
	if radius <= 0 {
		radius = cfg.Population.DefaultRadiusM
	}
	return radius
}

func runPopulationSum(cmd *cobra.Command, _ []string) error {
	if err := cfg.Validate("population"); err != nil {
		return err
	}

	tiles, _ := cmd.Flags().GetStringSlice("tile")
	lat, _ := cmd.Flags().GetFloat64("lat")
	lon, _ := cmd.Flags().GetFloat64("lon")
	radius := radiusOrDefault(cmd)

	total, err := population.Aggregate(cmd.Context(), populationConfig(), tiles, lat, lon, radius)
	if err != nil {
		return err
	}

	fmt.Printf("Population within %.0f m of (%.5f, %.5f): %.0f\n", radius, lat, lon, total)
	return nil
}

func runPopulationBatch(cmd *cobra.Command, _ []string) error {
	if err := cfg.Validate("population"); err != nil {
		return err
	}

	tiles, _ := cmd.Flags().GetStringSlice("tile")
	sitesPath, _ := cmd.Flags().GetString("sites")
	outPath, _ := cmd.Flags().GetString("out")
	radius := radiusOrDefault(cmd)

	concurrency, _ := cmd.Flags().GetInt("concurrency")
	if concurrency <= 0 {
		concurrency = cfg.Population.Concurrency
	}

	sites, err := loadSites(cmd.Context(), sitesPath)
	if err != nil {
		return err
	}
	if len(sites) == 0 {
		return eris.Errorf("no sites in %s", sitesPath)
	}

	results := population.Batch(cmd.Context(), populationConfig(), tiles, sites, radius, concurrency)

	if outPath != "" {
		return writeBatchCSV(outPath, results)
	}
	for _, r := range results {
		if r.Err != nil {
			fmt.Printf("%-30s ERROR %v\n", r.Site.Name, r.Err)
			continue
		}
		fmt.Printf("%-30s %12.0f\n", r.Site.Name, r.Population)
	}
	return nil
}

// loadSites streams the sites CSV, expecting name, lat and lon columns in
// the header.
func loadSites(ctx context.Context, path string) ([]population.Site, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "open sites %s", path)
	}
	defer f.Close()

	rows, errs := fetcher.StreamCSV(ctx, f, fetcher.CSVOptions{TrimSpace: true})

	var header []string
	nameIdx, latIdx, lonIdx := -1, -1, -1
	var sites []population.Site
	skipped := 0

	for row := range rows {
		if header == nil {
			header = row
			for i, name := range header {
				switch strings.ToLower(name) {
				case "name":
					nameIdx = i
				case "lat":
					latIdx = i
				case "lon":
					lonIdx = i
				}
			}
			if nameIdx < 0 || latIdx < 0 || lonIdx < 0 {
				return nil, eris.Errorf("sites CSV %s needs name, lat and lon columns", path)
			}
			continue
		}
		if len(row) <= latIdx || len(row) <= lonIdx || len(row) <= nameIdx {
			skipped++
			continue
		}
		lat, latErr := strconv.ParseFloat(row[latIdx], 64)
		lon, lonErr := strconv.ParseFloat(row[lonIdx], 64)
		if latErr != nil || lonErr != nil {
			skipped++
			continue
		}
		sites = append(sites, population.Site{Name: row[nameIdx], Lat: lat, Lon: lon})
	}
	if err := <-errs; err != nil {
		return nil, err
	}

	if skipped > 0 {
		zap.L().Warn("skipped malformed site rows", zap.String("path", path), zap.Int("rows", skipped))
	}
	return sites, nil
}

func writeBatchCSV(path string, results []population.SiteResult) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "create %s", path)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"name", "lat", "lon", "population", "error"}); err != nil {
		return eris.Wrap(err, "write header")
	}
	for _, r := range results {
		rec := []string{
			r.Site.Name,
			strconv.FormatFloat(r.Site.Lat, 'f', -1, 64),
			strconv.FormatFloat(r.Site.Lon, 'f', -1, 64),
			"",
			"",
		}
		if r.Err != nil {
			rec[4] = r.Err.Error()
		} else {
			rec[3] = strconv.FormatFloat(r.Population, 'f', 0, 64)
		}
		if err := w.Write(rec); err != nil {
			return eris.Wrap(err, "write record")
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return eris.Wrap(err, "flush csv")
	}

	zap.L().Info("wrote batch results", zap.String("path", path), zap.Int("sites", len(results)))
	return nil
}
