package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"bitbucket.org/mmdatafocus/pos_backend/models/reports"
	"github.com/spf13/cobra"
)

var balanceSheetCmd = &cobra.Command{
	Use:   "balance-sheet",
	Short: "Print or export the chart of accounts with balances",
	Example: `  posctl balance-sheet --end-date 2025-06-30
  posctl balance-sheet --start-date 2025-01-01 --end-date 2025-06-30 --out h1.xlsx`,
	RunE: runBalanceSheet,
}

func init() {
	rootCmd.AddCommand(balanceSheetCmd)
	balanceSheetCmd.Flags().String("start-date", "", "Start of period-bounded links (YYYY-MM-DD, default: beginning)")
	balanceSheetCmd.Flags().String("end-date", "", "Cut-off date (YYYY-MM-DD, default: today)")
	balanceSheetCmd.Flags().String("out", "", "Write an .xlsx file instead of printing")
}

func parseDateFlag(cmd *cobra.Command, name string, def time.Time) (time.Time, error) {
	v, _ := cmd.Flags().GetString(name)
	if strings.TrimSpace(v) == "" {
		return def, nil
	}
	t, err := time.Parse("2006-01-02", v)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --%s: %w", name, err)
	}
	return t, nil
}

func runBalanceSheet(cmd *cobra.Command, args []string) error {
	start, err := parseDateFlag(cmd, "start-date", time.Time{})
	if err != nil {
		return err
	}
	end, err := parseDateFlag(cmd, "end-date", time.Now().UTC())
	if err != nil {
		return err
	}
	end = time.Date(end.Year(), end.Month(), end.Day(), 23, 59, 59, 0, time.UTC)

	ctx, err := connect(cmd)
	if err != nil {
		return err
	}
	if out, _ := cmd.Flags().GetString("out"); out != "" {
		f, err := os.Create(out)
		if err != nil {
			return err
		}
		if err := reports.ExportBalanceSheet(ctx, f, start, end); err != nil {
			f.Close()
			return err
		}
		return f.Close()
	}

	report, err := reports.GetBalanceSheetReport(ctx, start, end)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "CODE\tACCOUNT\tOWN\tBALANCE")
	for _, r := range report.Rows {
		fmt.Fprintf(w, "%s\t%s%s\t%s\t%s\n", r.Code, strings.Repeat("  ", r.Level-1), r.Name,
			r.OwnBalance.StringFixed(2), r.Balance.StringFixed(2))
	}
	fmt.Fprintf(w, "\tTOTAL\t\t%s\n", report.Total.StringFixed(2))
	return w.Flush()
}
