package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/Outaos/data-steward/internal/requests"
)

var requestsCmd = &cobra.Command{
	Use:   "requests",
	Short: "Request log triage",
}

var requestsTriageCmd = &cobra.Command{
	Use:   "triage",
	Short: "Count completed requests per staff member",
	RunE: func(cmd *cobra.Command, args []string) error {
		file, _ := cmd.Flags().GetString("file")
		fromStr, _ := cmd.Flags().GetString("from")
		toStr, _ := cmd.Flags().GetString("to")

		from, err := parseDateFlag(fromStr)
		if err != nil {
			return err
		}
		to, err := parseDateFlag(toStr)
		if err != nil {
			return err
		}

		reqs, err := loadRequests(cmd.Context(), file)
		if err != nil {
			return err
		}

		for _, c := range requests.CountByStaff(reqs, from, to) {
			fmt.Printf("%-30s %5d\n", c.Staff, c.Count)
		}
		return nil
	},
}

var requestsMonthlyCmd = &cobra.Command{
	Use:   "monthly",
	Short: "Monthly request counts for one staff member",
	RunE: func(cmd *cobra.Command, args []string) error {
		file, _ := cmd.Flags().GetString("file")
		staff, _ := cmd.Flags().GetString("staff")
		startStr, _ := cmd.Flags().GetString("start")

		start, err := parseDateFlag(startStr)
		if err != nil {
			return err
		}
		if start.IsZero() {
			start = time.Now().UTC().AddDate(-1, 0, 0)
		}

		reqs, err := loadRequests(cmd.Context(), file)
		if err != nil {
			return err
		}

		counts := requests.MonthlyCounts(reqs, staff, start)
		if counts == nil {
			fmt.Printf("no requests for %s since %s\n", staff, start.Format("2006-01-02"))
			return nil
		}
		for _, m := range counts {
			fmt.Printf("%s %5d\n", m.Month.Format("2006-01"), m.Count)
		}
		return nil
	},
}

func init() {
	requestsTriageCmd.Flags().String("file", "", "request log (.csv or .xlsx)")
	requestsTriageCmd.Flags().String("from", "", "count from this date (YYYY-MM-DD)")
	requestsTriageCmd.Flags().String("to", "", "count up to this date (YYYY-MM-DD)")
	_ = requestsTriageCmd.MarkFlagRequired("file")

	requestsMonthlyCmd.Flags().String("file", "", "request log (.csv or .xlsx)")
	requestsMonthlyCmd.Flags().String("staff", "", "staff member name as it appears in the log")
	requestsMonthlyCmd.Flags().String("start", "", "first month to report (YYYY-MM-DD, default a year ago)")
	_ = requestsMonthlyCmd.MarkFlagRequired("file")
	_ = requestsMonthlyCmd.MarkFlagRequired("staff")

	requestsCmd.AddCommand(requestsTriageCmd)
	requestsCmd.AddCommand(requestsMonthlyCmd)
	rootCmd.AddCommand(requestsCmd)
}

func requestColumns() requests.Columns {
	cols := requests.DefaultColumns()
	if cfg.Requests.DateColumn != "" {
		cols.Date = cfg.Requests.DateColumn
	}
	if cfg.Requests.StaffColumn != "" {
		cols.Staff = cfg.Requests.StaffColumn
	}
	return cols
}

func loadRequests(ctx context.Context, path string) ([]requests.Request, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return requests.LoadCSV(ctx, path, requestColumns())
	case ".xlsx":
		return requests.LoadXLSX(path, requestColumns())
	}
	return nil, eris.Errorf("unsupported request log format %q", filepath.Ext(path))
}

func parseDateFlag(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	ts, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, eris.Wrapf(err, "parse date %q", s)
	}
	return ts.UTC(), nil
}
