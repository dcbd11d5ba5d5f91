package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"spendtrace/internal/core"
)

var query core.QuerySpending

// initHeadersCmd rewrites the header row of an existing ledger
var initHeadersCmd = &cobra.Command{
	Use:   "init-headers <ledger-id>",
	Short: "Write the column header row to A1:F1",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := engine.InitHeaders(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Headers written.")
		return nil
	},
}

// reportCmd prints per-currency totals for matching expenses
var reportCmd = &cobra.Command{
	Use:   "report <ledger-id>",
	Short: "Total matching expenses per currency",
	Long: `Sums the ledger like a spoken spending query would. Filters left at ALL
are not applied; dates are inclusive YYYY-MM-DD bounds.

Example:
  ledger-admin report 1AbC... --category Food --from 2026-10-01 --to 2026-10-31`,
	Args: cobra.ExactArgs(1),
	RunE: runReport,
}

// undoCmd clears the last entry of a ledger
var undoCmd = &cobra.Command{
	Use:   "undo <ledger-id>",
	Short: "Clear the last non-blank entry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := engine.UndoLast(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if res.Empty {
			fmt.Fprintln(cmd.OutOrStdout(), "Nothing to undo.")
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Cleared row %d.\n", res.Row)
		return nil
	},
}

func init() {
	f := reportCmd.Flags()
	f.StringVar(&query.Category, "category", core.Wildcard, "exact category, case-insensitive")
	f.StringVar(&query.Merchant, "merchant", core.Wildcard, "merchant substring")
	f.StringVar(&query.Item, "item", core.Wildcard, "item substring")
	f.StringVar(&query.StartDate, "from", core.Wildcard, "first date, inclusive")
	f.StringVar(&query.EndDate, "to", core.Wildcard, "last date, inclusive")
}

func runReport(cmd *cobra.Command, args []string) error {
	sum, err := engine.Analytics(cmd.Context(), args[0], query)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if sum.Empty() {
		fmt.Fprintln(out, "No matching expenses found.")
		return nil
	}

	fmt.Fprintf(out, "%d transactions from %s to %s\n", sum.Count, sum.Start, sum.End)
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', tabwriter.AlignRight)
	for _, cur := range sum.Currencies() {
		fmt.Fprintf(tw, "%s\t%s\t\n", cur, core.FormatAmount(sum.Totals[cur]))
	}
	return tw.Flush()
}
