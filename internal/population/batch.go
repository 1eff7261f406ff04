package population

import (
	"context"
	"sort"

	"golang.org/x/sync/errgroup"
)

// Site is a named query point.
type Site struct {
	Name string
	Lat  float64
	Lon  float64
}

// SiteResult pairs a site with its aggregation outcome.
type SiteResult struct {
	Site       Site
	Population float64
	Err        error
}

// Batch aggregates every site against the same tile set. Sites run
// concurrently up to the given limit; each invocation owns its own tile
// handles, so no further synchronization is needed. Results are sorted the
// way the triage report wants them: failures last, otherwise population
// descending.
func Batch(ctx context.Context, cfg Config, tilePaths []string, sites []Site, radiusM float64, concurrency int) []SiteResult {
	if concurrency < 1 {
		concurrency = 1
	}

	results := make([]SiteResult, len(sites))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i, site := range sites {
		g.Go(func() error {
			total, err := Aggregate(ctx, cfg, tilePaths, site.Lat, site.Lon, radiusM)
			results[i] = SiteResult{Site: site, Population: total, Err: err}
			return nil
		})
	}
	_ = g.Wait()

	sort.SliceStable(results, func(a, b int) bool {
		ra, rb := results[a], results[b]
		if (ra.Err == nil) != (rb.Err == nil) {
			return ra.Err == nil
		}
		return ra.Population > rb.Population
	})
	return results
}
