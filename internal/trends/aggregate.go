package trends

import (
	"sort"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"
)

// RegionAverage is one region's mean score across all word pairs for a
// single year.
type RegionAverage struct {
	Region string
	Norm   string
	Avg    float64
}

// RegionYearAverages averages one language's scores per region for the
// given year. Observations with no score for the language are skipped,
// so a region appears only if at least one pair had data.
func RegionYearAverages(obs []Observation, year int, lang Language) []RegionAverage {
	scores := make(map[string][]float64)
	for _, o := range obs {
		if o.Year != year {
			continue
		}
		if v, ok := o.Score(lang); ok {
			scores[o.Region] = append(scores[o.Region], float64(v))
		}
	}

	out := make([]RegionAverage, 0, len(scores))
	for region, vals := range scores {
		out = append(out, RegionAverage{
			Region: region,
			Norm:   NormText(region),
			Avg:    stat.Mean(vals, nil),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Region < out[j].Region })
	return out
}

// YearAverage is the mean score across all regions and pairs for one year.
type YearAverage struct {
	Year int
	Avg  float64
}

// AggregateOptions filters country-level aggregation.
type AggregateOptions struct {
	// YearMin and YearMax bound the years; zero means unbounded.
	YearMin int
	YearMax int
	// Area restricts to a named region preset. Empty or AreaAll keeps all.
	Area string
	// ExcludeRegions drops specific regions regardless of area, matched
	// after normalization. Typically Crimea and Sevastopol.
	ExcludeRegions []string
}

// CountryYearlyAverages averages one language's scores per year across
// regions and pairs, after applying area and exclusion filters. Errors
// when the filters leave no scored observations at all, since an empty
// chart hides the mistake.
func CountryYearlyAverages(obs []Observation, lang Language, opts AggregateOptions) ([]YearAverage, error) {
	area, err := AreaRegionNorms(opts.Area)
	if err != nil {
		return nil, err
	}

	exclude := make(map[string]struct{}, len(opts.ExcludeRegions))
	for _, r := range opts.ExcludeRegions {
		exclude[NormText(r)] = struct{}{}
	}

	matchedAreas := make(map[string]struct{})
	scores := make(map[int][]float64)
	for _, o := range obs {
		if opts.YearMin != 0 && o.Year < opts.YearMin {
			continue
		}
		if opts.YearMax != 0 && o.Year > opts.YearMax {
			continue
		}
		norm := NormText(o.Region)
		if _, drop := exclude[norm]; drop {
			continue
		}
		if area != nil {
			if _, ok := area[norm]; !ok {
				continue
			}
			matchedAreas[norm] = struct{}{}
		}
		if v, ok := o.Score(lang); ok {
			scores[o.Year] = append(scores[o.Year], float64(v))
		}
	}

	if area != nil && len(matchedAreas) < len(area) {
		missing := make([]string, 0, len(area))
		for norm := range area {
			if _, ok := matchedAreas[norm]; !ok {
				missing = append(missing, norm)
			}
		}
		sort.Strings(missing)
		zap.L().Warn("trends: area regions absent from data",
			zap.String("area", opts.Area),
			zap.Strings("regions", missing),
		)
	}

	if len(scores) == 0 {
		return nil, eris.New("trends: no scores left after filtering")
	}

	out := make([]YearAverage, 0, len(scores))
	for year, vals := range scores {
		out = append(out, YearAverage{Year: year, Avg: stat.Mean(vals, nil)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Year < out[j].Year })
	return out, nil
}
