package trends

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/Outaos/data-steward/internal/resilience"
)

const interestByRegionPath = "/trends/api/widgetdata/comparedgeo"

// xssiPrefix guards JSON endpoints against cross-site script inclusion;
// it must be stripped before decoding.
const xssiPrefix = ")]}'"

// ClientConfig configures the interest-by-region client.
type ClientConfig struct {
	// BaseURL is the provider root, e.g. "https://trends.google.com".
	BaseURL string
	// Geo restricts results to one country's subregions, e.g. "UA".
	Geo string
	// Locale is the hl parameter, e.g. "uk-UA".
	Locale string
	// UserAgent is sent verbatim; the provider rejects default Go agents.
	UserAgent string
	// RequestsPerMinute paces outgoing requests. Zero disables pacing.
	RequestsPerMinute int
	// MaxRetries is the attempt count for transient failures.
	MaxRetries int
	// Timeout bounds each HTTP request.
	Timeout time.Duration
}

// Client fetches interest-by-region scores for word pairs, one calendar
// year per request.
type Client struct {
	http    *http.Client
	baseURL string
	geo     string
	locale  string
	agent   string
	limiter *rate.Limiter
	retry   resilience.RetryConfig
}

// NewClient builds a paced, retrying client.
func NewClient(cfg ClientConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	var limiter *rate.Limiter
	if cfg.RequestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Limit(float64(cfg.RequestsPerMinute)/60.0), 1)
	}

	retry := resilience.DefaultRetryConfig()
	retry.Operation = "trends interest_by_region"
	if cfg.MaxRetries > 0 {
		retry.MaxAttempts = cfg.MaxRetries
	}

	return &Client{
		http:    &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		geo:     cfg.Geo,
		locale:  cfg.Locale,
		agent:   cfg.UserAgent,
		limiter: limiter,
		retry:   retry,
	}
}

// geoMapResponse mirrors the provider's comparedgeo payload. value and
// hasData are parallel to the requested keyword list; a false hasData
// entry means the term had too little volume in that region.
type geoMapResponse struct {
	Default struct {
		GeoMapData []struct {
			GeoName string `json:"geoName"`
			Value   []int  `json:"value"`
			HasData []bool `json:"hasData"`
		} `json:"geoMapData"`
	} `json:"default"`
}

// InterestByRegion fetches one pair's scores for one calendar year.
// Regions the provider omits are simply absent from the result.
func (c *Client) InterestByRegion(ctx context.Context, pairID int, pair WordPair, year int) ([]Observation, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "trends: rate limit wait")
		}
	}

	q := url.Values{}
	q.Set("hl", c.locale)
	q.Set("geo", c.geo)
	q.Set("resolution", "REGION")
	q.Set("keywords", pair.UA+","+pair.RU)
	q.Set("time", fmt.Sprintf("%d-01-01 %d-12-31", year, year))
	reqURL := c.baseURL + interestByRegionPath + "?" + q.Encode()

	body, err := resilience.DoVal(ctx, c.retry, func(ctx context.Context) ([]byte, error) {
		return c.fetch(ctx, reqURL)
	})
	if err != nil {
		return nil, err
	}

	var resp geoMapResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, eris.Wrap(err, "trends: decode interest_by_region")
	}

	obs := make([]Observation, 0, len(resp.Default.GeoMapData))
	for _, entry := range resp.Default.GeoMapData {
		o := Observation{
			Year:   year,
			PairID: pairID,
			TermUA: pair.UA,
			TermRU: pair.RU,
			Region: entry.GeoName,
		}
		o.ScoreUA = scoreAt(entry.Value, entry.HasData, 0)
		o.ScoreRU = scoreAt(entry.Value, entry.HasData, 1)
		obs = append(obs, o)
	}
	return obs, nil
}

func scoreAt(values []int, hasData []bool, i int) *int {
	if i >= len(values) || i >= len(hasData) || !hasData[i] {
		return nil
	}
	v := values[i]
	return &v
}

func (c *Client) fetch(ctx context.Context, reqURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "trends: build request")
	}
	req.Header.Set("User-Agent", c.agent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "trends: request")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return nil, eris.Wrap(err, "trends: read response")
	}

	if resp.StatusCode != http.StatusOK {
		err := eris.Errorf("trends: status %d from %s", resp.StatusCode, reqURL)
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return nil, resilience.NewTransientError(err, resp.StatusCode)
		}
		return nil, err
	}

	body = bytes.TrimPrefix(body, []byte(xssiPrefix))
	body = bytes.TrimLeft(body, "\r\n")
	return body, nil
}

// Scrape fetches every (pair, year) slice in order and returns the
// combined observations sorted by pair, year and region. A pair-year that
// fails after retries aborts the run; partial data would silently skew
// later aggregation.
func (c *Client) Scrape(ctx context.Context, pairs []WordPair, startYear, endYear int) ([]Observation, error) {
	if startYear > endYear {
		return nil, eris.Errorf("trends: start year %d after end year %d", startYear, endYear)
	}

	var all []Observation
	for i, pair := range pairs {
		pairID := i + 1
		for year := startYear; year <= endYear; year++ {
			obs, err := c.InterestByRegion(ctx, pairID, pair, year)
			if err != nil {
				return nil, eris.Wrapf(err, "trends: pair %d year %d", pairID, year)
			}
			if len(obs) == 0 {
				zap.L().Warn("trends: empty result",
					zap.Int("pair_id", pairID),
					zap.String("ua_term", pair.UA),
					zap.Int("year", year),
				)
				continue
			}
			all = append(all, obs...)
		}
		zap.L().Info("trends: scraped pair",
			zap.Int("pair_id", pairID),
			zap.String("ua_term", pair.UA),
			zap.String("ru_term", pair.RU),
			zap.Int("observations", len(all)),
		)
	}

	sort.Slice(all, func(i, j int) bool {
		a, b := all[i], all[j]
		if a.PairID != b.PairID {
			return a.PairID < b.PairID
		}
		if a.Year != b.Year {
			return a.Year < b.Year
		}
		return a.Region < b.Region
	})
	return all, nil
}
