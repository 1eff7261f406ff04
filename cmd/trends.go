package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/Outaos/data-steward/internal/admin1"
	"github.com/Outaos/data-steward/internal/chart"
	"github.com/Outaos/data-steward/internal/trends"
)

var trendsCmd = &cobra.Command{
	Use:   "trends",
	Short: "Regional search-interest collection and reporting",
}

var trendsMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the observation store schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("trends"); err != nil {
			return err
		}
		store, err := openTrendsStore(cmd.Context())
		if err != nil {
			return err
		}
		defer store.Close()
		return store.Migrate(cmd.Context())
	},
}

var trendsScrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Collect interest-by-region scores for word pairs",
	Long:  "Fetches one request per (pair, year) slice, paced and retried, and upserts the scores into the observation store.",
	RunE:  runTrendsScrape,
}

var trendsExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export stored observations to CSV",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("trends"); err != nil {
			return err
		}
		out, _ := cmd.Flags().GetString("out")
		year, _ := cmd.Flags().GetInt("year")
		pair, _ := cmd.Flags().GetInt("pair")

		store, err := openTrendsStore(cmd.Context())
		if err != nil {
			return err
		}
		defer store.Close()

		obs, err := store.ListObservations(cmd.Context(), trends.ObservationFilter{Year: year, PairID: pair})
		if err != nil {
			return err
		}
		if len(obs) == 0 {
			return eris.New("no observations matched")
		}
		return trends.WriteCSV(out, obs)
	},
}

var trendsChartCmd = &cobra.Command{
	Use:   "chart",
	Short: "Render country-level yearly averages as a bar chart",
	RunE:  runTrendsChart,
}

var trendsChoroplethCmd = &cobra.Command{
	Use:   "choropleth",
	Short: "Render one year's regional averages on an admin-1 map",
	RunE:  runTrendsChoropleth,
}

func init() {
	trendsScrapeCmd.Flags().String("pairs", "", "YAML file of word pairs (ua/ru)")
	trendsScrapeCmd.Flags().Int("start", 0, "first year (default from config)")
	trendsScrapeCmd.Flags().Int("end", 0, "last year (default from config)")
	trendsScrapeCmd.Flags().String("csv", "", "also export the scraped rows to this CSV")
	_ = trendsScrapeCmd.MarkFlagRequired("pairs")

	trendsExportCmd.Flags().String("out", "", "output CSV path")
	trendsExportCmd.Flags().Int("year", 0, "restrict to one year")
	trendsExportCmd.Flags().Int("pair", 0, "restrict to one pair id")
	_ = trendsExportCmd.MarkFlagRequired("out")

	trendsChartCmd.Flags().String("language", "ua", "score column: ua or ru")
	trendsChartCmd.Flags().String("area", trends.AreaAll, "area preset to restrict regions")
	trendsChartCmd.Flags().Int("year-min", 0, "first year to include")
	trendsChartCmd.Flags().Int("year-max", 0, "last year to include")
	trendsChartCmd.Flags().Bool("exclude-crimea", false, "drop Crimea and Sevastopol")
	trendsChartCmd.Flags().String("csv", "", "read observations from this CSV instead of the store")
	trendsChartCmd.Flags().String("out", "", "output PNG path")
	trendsChartCmd.Flags().String("html", "", "also write an interactive HTML chart here")
	_ = trendsChartCmd.MarkFlagRequired("out")

	trendsChoroplethCmd.Flags().String("language", "ua", "score column: ua or ru")
	trendsChoroplethCmd.Flags().Int("year", 0, "year to map")
	trendsChoroplethCmd.Flags().String("shapefile", "", "Natural Earth admin-1 shapefile")
	trendsChoroplethCmd.Flags().String("csv", "", "read observations from this CSV instead of the store")
	trendsChoroplethCmd.Flags().String("out", "", "output PNG path")
	_ = trendsChoroplethCmd.MarkFlagRequired("year")
	_ = trendsChoroplethCmd.MarkFlagRequired("shapefile")
	_ = trendsChoroplethCmd.MarkFlagRequired("out")

	trendsCmd.AddCommand(trendsMigrateCmd)
	trendsCmd.AddCommand(trendsScrapeCmd)
	trendsCmd.AddCommand(trendsExportCmd)
	trendsCmd.AddCommand(trendsChartCmd)
	trendsCmd.AddCommand(trendsChoroplethCmd)
	rootCmd.AddCommand(trendsCmd)
}

func openTrendsStore(ctx context.Context) (trends.Store, error) {
	return trends.Open(ctx, cfg.Store.Driver, cfg.Store.DatabaseURL)
}

func trendsClient() *trends.Client {
	return trends.NewClient(trends.ClientConfig{
		BaseURL:           cfg.Trends.BaseURL,
		Geo:               cfg.Trends.Geo,
		Locale:            cfg.Trends.Locale,
		UserAgent:         cfg.Trends.UserAgent,
		RequestsPerMinute: cfg.Trends.RequestsPerMinute,
		MaxRetries:        cfg.Trends.MaxRetries,
		Timeout:           timeoutSecs(cfg.Trends.TimeoutSecs),
	})
}

func timeoutSecs(s int) time.Duration {
	return time.Duration(s) * time.Second
}

func loadWordPairs(path string) ([]trends.WordPair, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "read pairs %s", path)
	}
	var pairs []trends.WordPair
	if err := yaml.Unmarshal(data, &pairs); err != nil {
		return nil, eris.Wrapf(err, "parse pairs %s", path)
	}
	for i, p := range pairs {
		if p.UA == "" || p.RU == "" {
			return nil, eris.Errorf("pair %d in %s is missing a term", i+1, path)
		}
	}
	if len(pairs) == 0 {
		return nil, eris.Errorf("no pairs in %s", path)
	}
	return pairs, nil
}

func runTrendsScrape(cmd *cobra.Command, _ []string) error {
	if err := cfg.Validate("trends"); err != nil {
		return err
	}

	pairsPath, _ := cmd.Flags().GetString("pairs")
	csvPath, _ := cmd.Flags().GetString("csv")
	start, _ := cmd.Flags().GetInt("start")
	end, _ := cmd.Flags().GetInt("end")
	if start == 0 {
		start = cfg.Trends.StartYear
	}
	if end == 0 {
		end = cfg.Trends.EndYear
	}

	pairs, err := loadWordPairs(pairsPath)
	if err != nil {
		return err
	}

	store, err := openTrendsStore(cmd.Context())
	if err != nil {
		return err
	}
	defer store.Close()
	if err := store.Migrate(cmd.Context()); err != nil {
		return err
	}

	run, err := store.CreateScrapeRun(cmd.Context(), cfg.Trends.Geo, start, end, len(pairs))
	if err != nil {
		return err
	}

	obs, err := trendsClient().Scrape(cmd.Context(), pairs, start, end)
	if err != nil {
		return err
	}
	if err := store.InsertObservations(cmd.Context(), run.ID, obs); err != nil {
		return err
	}
	if err := store.CompleteScrapeRun(cmd.Context(), run.ID, len(obs)); err != nil {
		return err
	}

	zap.L().Info("scrape complete",
		zap.String("run_id", run.ID),
		zap.Int("pairs", len(pairs)),
		zap.Int("observations", len(obs)),
	)

	if csvPath != "" {
		return trends.WriteCSV(csvPath, obs)
	}
	return nil
}

// loadObservations reads from the CSV when given, otherwise from the store.
func loadObservations(ctx context.Context, csvPath string, filter trends.ObservationFilter) ([]trends.Observation, error) {
	if csvPath != "" {
		return trends.ReadCSV(csvPath)
	}
	if err := cfg.Validate("trends"); err != nil {
		return nil, err
	}
	store, err := openTrendsStore(ctx)
	if err != nil {
		return nil, err
	}
	defer store.Close()
	return store.ListObservations(ctx, filter)
}

func runTrendsChart(cmd *cobra.Command, _ []string) error {
	langStr, _ := cmd.Flags().GetString("language")
	area, _ := cmd.Flags().GetString("area")
	yearMin, _ := cmd.Flags().GetInt("year-min")
	yearMax, _ := cmd.Flags().GetInt("year-max")
	excludeCrimea, _ := cmd.Flags().GetBool("exclude-crimea")
	csvPath, _ := cmd.Flags().GetString("csv")
	outPNG, _ := cmd.Flags().GetString("out")
	outHTML, _ := cmd.Flags().GetString("html")

	lang, err := trends.ParseLanguage(langStr)
	if err != nil {
		return err
	}

	obs, err := loadObservations(cmd.Context(), csvPath, trends.ObservationFilter{})
	if err != nil {
		return err
	}

	opts := trends.AggregateOptions{YearMin: yearMin, YearMax: yearMax, Area: area}
	if excludeCrimea {
		opts.ExcludeRegions = []string{"Крим", "місто Севастополь", "місто Севастополь."}
	}

	years, err := trends.CountryYearlyAverages(obs, lang, opts)
	if err != nil {
		return err
	}

	title := fmt.Sprintf("Search interest by year (%s, %s)", lang, area)
	if err := chart.YearlyBarPNG(years, title, outPNG); err != nil {
		return err
	}
	if outHTML != "" {
		return chart.YearlyBarHTML(years, title, outHTML)
	}
	return nil
}

func runTrendsChoropleth(cmd *cobra.Command, _ []string) error {
	langStr, _ := cmd.Flags().GetString("language")
	year, _ := cmd.Flags().GetInt("year")
	shpPath, _ := cmd.Flags().GetString("shapefile")
	csvPath, _ := cmd.Flags().GetString("csv")
	out, _ := cmd.Flags().GetString("out")

	lang, err := trends.ParseLanguage(langStr)
	if err != nil {
		return err
	}

	obs, err := loadObservations(cmd.Context(), csvPath, trends.ObservationFilter{Year: year})
	if err != nil {
		return err
	}

	averages := trends.RegionYearAverages(obs, year, lang)
	if len(averages) == 0 {
		return eris.Errorf("no scores for %d", year)
	}

	mapping, err := trends.LoadRegionMapping(cfg.Trends.MappingPath)
	if err != nil {
		return err
	}

	scores := make(map[string]float64, len(averages))
	var unmapped []string
	for _, a := range averages {
		code, ok := mapping[a.Norm]
		if !ok {
			unmapped = append(unmapped, a.Region)
			continue
		}
		scores[code] = a.Avg
	}
	if len(unmapped) > 0 {
		zap.L().Warn("regions without an ISO mapping", zap.Strings("regions", unmapped))
	}

	regions, err := admin1.Load(shpPath, "UKR", "Ukraine")
	if err != nil {
		return err
	}

	title := fmt.Sprintf("Search interest by region (%s), %d", lang, year)
	return chart.Choropleth(regions, scores, title, out)
}
