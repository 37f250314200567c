package commands

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"clubworx-backend/internal/scrapers/clubworx"

	"github.com/antzucaro/matchr"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var (
	reportsPage  *int
	reportsCount *int
	reportPage   *int
	reportCount  *int
)

func init() {
	reportsPage = reportsCmd.Flags().Int("page", 1, "The page of reports to list.")
	reportsCount = reportsCmd.Flags().Int("count", 100, "The number of reports per page.")
	reportPage = reportCmd.Flags().Int("page", 1, "The page of rows to show.")
	reportCount = reportCmd.Flags().Int("count", 100, "The number of rows per page.")
	rootCmd.AddCommand(reportsCmd)
	rootCmd.AddCommand(reportCmd)
}

var reportsCmd = &cobra.Command{
	Use:   "reports [--page <n>] [--count <n>]",
	Short: "Lists the reports available to the gym.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var reports []clubworx.ReportSummary
		err := withSession(cmd.Context(), func(session *clubworx.Session) error {
			var err error
			reports, err = session.AllReports(cmd.Context(), clubworx.PageOptions{
				Page:  *reportsPage,
				Count: *reportsCount,
			})
			return err
		})
		if err != nil {
			return err
		}

		t := newTable(cmd.OutOrStdout())
		t.AppendHeader(table.Row{"ID", "Name"})
		for _, r := range reports {
			t.AppendRow(table.Row{r.ID, r.Name})
		}
		t.Render()
		return nil
	},
}

// resolveReport finds the report whose name is most similar to name.
func resolveReport(name string, reports []clubworx.ReportSummary) (clubworx.ReportSummary, bool) {
	target := strings.ToLower(strings.TrimSpace(name))

	var best clubworx.ReportSummary
	bestScore := 0.0
	found := false
	for _, r := range reports {
		score := matchr.JaroWinkler(strings.ToLower(r.Name), target, false)
		if !found || score > bestScore {
			best = r
			bestScore = score
			found = true
		}
	}
	return best, found
}

func reportIdFromArg(ctx context.Context, session *clubworx.Session, arg string) (clubworx.ID, error) {
	if _, err := strconv.ParseInt(arg, 10, 64); err == nil {
		return clubworx.ID(arg), nil
	}

	reports, err := session.AllReports(ctx, clubworx.PageOptions{Count: 1000})
	if err != nil {
		return "", err
	}
	report, ok := resolveReport(arg, reports)
	if !ok {
		return "", fmt.Errorf("no report matches %q", arg)
	}
	return report.ID, nil
}

var reportCmd = &cobra.Command{
	Use:   "report <id | name> [--page <n>] [--count <n>]",
	Short: "Shows the rows of a report, a name picks the most similar report.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var report clubworx.Report
		err := withSession(cmd.Context(), func(session *clubworx.Session) error {
			id, err := reportIdFromArg(cmd.Context(), session, args[0])
			if err != nil {
				return err
			}
			report, err = session.ReportByID(cmd.Context(), id, clubworx.PageOptions{
				Page:  *reportPage,
				Count: *reportCount,
			})
			return err
		})
		if err != nil {
			return err
		}

		t := newTable(cmd.OutOrStdout())
		header := make(table.Row, len(report.Columns))
		for i, c := range report.Columns {
			header[i] = c
		}
		t.AppendHeader(header)
		for _, row := range report.Rows {
			values := make(table.Row, len(report.Columns))
			for i, c := range report.Columns {
				values[i] = row[c]
			}
			t.AppendRow(values)
		}
		t.Render()
		return nil
	},
}
