// Package requests loads GIS request log exports and aggregates per-staff
// workload counts for triage reporting.
package requests

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/Outaos/data-steward/internal/fetcher"
)

// Request is one row of a GIS request log export.
type Request struct {
	Staff     string
	Completed time.Time // requested completion date; zero when unparseable
}

// Columns names the request log columns of interest. The ticket system
// renames these occasionally, so they are configurable.
type Columns struct {
	Date  string
	Staff string
}

// DefaultColumns matches the current request log export.
func DefaultColumns() Columns {
	return Columns{
		Date:  "Requested Completion Date",
		Staff: "GIS Staff Assigned",
	}
}

// ParseCompletionDate parses the compound completion date column. Exports
// carry either a plain date, or "2025-11-10;2025-11-10T08:00:00Z" where the
// right side is the authoritative ISO datetime. The right side wins when
// present; an unparseable value yields a zero time with ok=false.
func ParseCompletionDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}

	left, right, found := strings.Cut(raw, ";")
	chosen := strings.TrimSpace(left)
	if found && strings.TrimSpace(right) != "" {
		chosen = strings.TrimSpace(right)
	}

	for _, layout := range []string{
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
		"2006-01-02",
	} {
		if ts, err := time.Parse(layout, chosen); err == nil {
			return ts.UTC(), true
		}
	}
	return time.Time{}, false
}

func fromRows(header []string, rows [][]string, cols Columns) ([]Request, error) {
	dateIdx, staffIdx := -1, -1
	for i, name := range header {
		switch strings.TrimSpace(name) {
		case cols.Date:
			dateIdx = i
		case cols.Staff:
			staffIdx = i
		}
	}
	if dateIdx < 0 {
		return nil, eris.Errorf("requests: column %q not found", cols.Date)
	}
	if staffIdx < 0 {
		return nil, eris.Errorf("requests: column %q not found", cols.Staff)
	}

	reqs := make([]Request, 0, len(rows))
	unparsed := 0
	for _, row := range rows {
		var req Request
		if staffIdx < len(row) {
			req.Staff = strings.TrimSpace(row[staffIdx])
		}
		if dateIdx < len(row) {
			ts, ok := ParseCompletionDate(row[dateIdx])
			if ok {
				req.Completed = ts
			} else if strings.TrimSpace(row[dateIdx]) != "" {
				unparsed++
			}
		}
		reqs = append(reqs, req)
	}

	if unparsed > 0 {
		zap.L().Warn("requests: unparseable completion dates", zap.Int("rows", unparsed))
	}
	return reqs, nil
}

// LoadCSV reads a request log CSV export.
func LoadCSV(ctx context.Context, path string, cols Columns) ([]Request, error) {
	header, rows, err := fetcher.ReadCSV(path, fetcher.CSVOptions{HasHeader: true, TrimSpace: true})
	if err != nil {
		return nil, eris.Wrap(err, "requests: load csv")
	}
	if ctx.Err() != nil {
		return nil, eris.Wrap(ctx.Err(), "requests: load csv")
	}
	return fromRows(header, rows, cols)
}

// LoadXLSX reads a request log XLSX export (first sheet, one header row).
func LoadXLSX(path string, cols Columns) ([]Request, error) {
	header, rows, err := fetcher.ReadXLSX(path, fetcher.XLSXOptions{SkipRows: 1})
	if err != nil {
		return nil, eris.Wrap(err, "requests: load xlsx")
	}
	return fromRows(header, rows, cols)
}

// StaffCount is a per-staff request count.
type StaffCount struct {
	Staff string
	Count int
}

// CountByStaff counts requests per staff member, optionally restricted to
// completion dates within [from, to] (zero bounds are open). Counts are
// returned descending, ties broken by staff name for stable output.
func CountByStaff(reqs []Request, from, to time.Time) []StaffCount {
	counts := make(map[string]int)
	for _, r := range reqs {
		if !from.IsZero() && (r.Completed.IsZero() || r.Completed.Before(from)) {
			continue
		}
		if !to.IsZero() && (r.Completed.IsZero() || r.Completed.After(to)) {
			continue
		}
		counts[r.Staff]++
	}

	out := make([]StaffCount, 0, len(counts))
	for staff, n := range counts {
		out = append(out, StaffCount{Staff: staff, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Staff < out[j].Staff
	})
	return out
}

// MonthCount is a request count bucketed at a month start.
type MonthCount struct {
	Month time.Time // first of the month, UTC
	Count int
}

// monthStart truncates a time to the first of its month in UTC.
func monthStart(ts time.Time) time.Time {
	ts = ts.UTC()
	return time.Date(ts.Year(), ts.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// MonthlyCounts buckets one staff member's requests from start onward into
// month-start buckets, zero-filling months with no requests up to the last
// observed month. Requests with unparsed dates are ignored.
func MonthlyCounts(reqs []Request, staff string, start time.Time) []MonthCount {
	counts := make(map[time.Time]int)
	var last time.Time
	for _, r := range reqs {
		if r.Staff != staff || r.Completed.IsZero() || r.Completed.Before(start) {
			continue
		}
		m := monthStart(r.Completed)
		counts[m]++
		if m.After(last) {
			last = m
		}
	}
	if len(counts) == 0 {
		return nil
	}

	var out []MonthCount
	for m := monthStart(start); !m.After(last); m = m.AddDate(0, 1, 0) {
		out = append(out, MonthCount{Month: m, Count: counts[m]})
	}
	return out
}
