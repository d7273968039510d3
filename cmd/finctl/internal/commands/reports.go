package commands

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"finboard/internal/core"
)

func (a *app) categoriesCmd() *cobra.Command {
	var typ string
	cmd := &cobra.Command{
		Use:   "categories",
		Short: "List categories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			t, err := core.ParseTxType(typ)
			if err != nil {
				return err
			}
			client, err := a.authed(cmd)
			if err != nil {
				return err
			}
			cats, err := client.Categories(cmd.Context(), t)
			if err != nil {
				return a.fail(err)
			}
			if len(cats) == 0 {
				a.printf(cmd, "No categories\n")
				return nil
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tTYPE\tICON\tID")
			for _, c := range cats {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", c.Name, c.Type, c.Icon, c.ID)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVarP(&typ, "type", "t", "", "income or expense")
	return cmd
}

func (a *app) summaryCmd() *cobra.Command {
	var from, to string
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Income, expenses and net for a date range",
		Long:  "Totals for --from to --to inclusive. Both default to the current month.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			start, end := core.PeriodMonth.Range(time.Now())
			if from == "" {
				from = start.Format(core.DateLayout)
			}
			if to == "" {
				to = end.AddDate(0, 0, -1).Format(core.DateLayout)
			}
			for _, d := range []string{from, to} {
				if _, err := core.ParseDate(d); err != nil {
					return fmt.Errorf("bad date %q: use YYYY-MM-DD", d)
				}
			}

			client, err := a.authed(cmd)
			if err != nil {
				return err
			}
			sum, err := client.Summary(cmd.Context(), from, to)
			if err != nil {
				return a.fail(err)
			}
			a.printf(cmd, "%s to %s\n", from, to)
			a.printSummary(cmd, sum)
			return nil
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "first day, YYYY-MM-DD")
	cmd.Flags().StringVar(&to, "to", "", "last day, YYYY-MM-DD")
	return cmd
}

func (a *app) dashboardCmd() *cobra.Command {
	var period string
	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Summary and top categories for a period",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p := core.ParsePeriod(period)
			client, err := a.authed(cmd)
			if err != nil {
				return err
			}
			dash, err := client.Dashboard(cmd.Context(), p)
			if err != nil {
				return a.fail(err)
			}

			a.printf(cmd, "%s\n", p.Label())
			a.printSummary(cmd, dash.Summary)
			if len(dash.TopCategories) == 0 {
				return nil
			}
			a.printf(cmd, "\nTop categories\n")
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, c := range dash.TopCategories {
				fmt.Fprintf(tw, "%s %s\t%s\t%.1f%%\n", c.CategoryIcon, c.CategoryName, c.Total.Format(a.currency), c.Percentage)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVarP(&period, "period", "p", string(core.PeriodMonth), "week, month, quarter or year")
	return cmd
}

func (a *app) printSummary(cmd *cobra.Command, s core.TransactionSummary) {
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintf(tw, "Income\t%s\t%d\t\n", s.Income.Total.Format(a.currency), s.Income.Count)
	fmt.Fprintf(tw, "Expenses\t%s\t%d\t\n", s.Expense.Total.Format(a.currency), s.Expense.Count)
	fmt.Fprintf(tw, "Net\t%s\t\t\n", s.Net.Format(a.currency))
	fmt.Fprintf(tw, "Savings rate\t%.1f%%\t\t\n", s.SavingsRate())
	_ = tw.Flush()
}
