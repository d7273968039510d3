package commands

import (
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"finboard/internal/api"
	"finboard/internal/core"
)

func (a *app) txCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "tx",
		Aliases: []string{"transactions"},
		Short:   "List, add and remove transactions",
	}
	cmd.AddCommand(a.txListCmd(), a.txAddCmd(), a.txRmCmd())
	return cmd
}

func (a *app) txListCmd() *cobra.Command {
	var (
		typ    string
		search string
		limit  int
		page   int
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List transactions, newest first",
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
			res, err := client.Transactions(cmd.Context(), api.TransactionFilter{
				Search: strings.TrimSpace(search),
				Type:   t,
				Page:   page,
				Limit:  limit,
				Sort:   "-date",
			})
			if err != nil {
				return a.fail(err)
			}

			if len(res.Transactions) == 0 {
				a.printf(cmd, "No transactions\n")
				return nil
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "DATE\tTITLE\tCATEGORY\tAMOUNT\tID")
			for _, tx := range res.Transactions {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
					tx.DateString(), tx.Title, tx.Category.Name, signedAmount(tx, a.currency), tx.ID)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			p := res.Pagination
			a.printf(cmd, "Page %d of %d, %d transactions\n", p.Current, p.Pages, p.Total)
			return nil
		},
	}
	cmd.Flags().StringVarP(&typ, "type", "t", "", "income or expense")
	cmd.Flags().StringVarP(&search, "search", "s", "", "match title or description")
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "rows per page")
	cmd.Flags().IntVar(&page, "page", 1, "page number")
	return cmd
}

func (a *app) txAddCmd() *cobra.Command {
	var (
		title, amount, typ, category, date string
		description, notes                 string
		tags                               []string
	)
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Record a transaction",
		Example: `  finctl tx add --title Groceries --amount 42.50 --category Food
  finctl tx add --title Salary --amount 2500 --type income --category Salary --date 2024-03-01`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := a.authed(cmd)
			if err != nil {
				return err
			}

			in := core.TransactionInput{
				Title:       strings.TrimSpace(title),
				Type:        core.TxType(strings.ToLower(typ)),
				Date:        date,
				Description: strings.TrimSpace(description),
				Tags:        tags,
				Notes:       strings.TrimSpace(notes),
			}
			if t, err := core.ParseTxType(string(in.Type)); err != nil || t == "" {
				return fmt.Errorf("--type must be income or expense")
			}
			if in.Date == "" {
				in.Date = time.Now().Format(core.DateLayout)
			}
			errs := core.ValidationErrors{}
			if in.Amount, err = core.ParseAmount(amount); err != nil {
				errs["amount"] = err.Error()
			}

			cats, err := client.Categories(cmd.Context(), in.Type)
			if err != nil {
				return a.fail(err)
			}
			in.Category = resolveCategory(cats, category)
			if in.Category == "" {
				errs["category"] = fmt.Sprintf("no %s category named %q", in.Type, category)
			}

			if err := core.Validate(in); err != nil {
				var verrs core.ValidationErrors
				if !errors.As(err, &verrs) {
					return err
				}
				for k, v := range verrs {
					if _, seen := errs[k]; !seen {
						errs[k] = v
					}
				}
			}
			if len(errs) > 0 {
				return errs
			}

			tx, err := client.CreateTransaction(cmd.Context(), in)
			if err != nil {
				return a.fail(err)
			}
			a.printf(cmd, "Created %s (%s %s)\n", tx.ID, tx.Title, signedAmount(tx, a.currency))
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&title, "title", "", "short title")
	f.StringVar(&amount, "amount", "", "positive amount, e.g. 12.50")
	f.StringVar(&typ, "type", string(core.Expense), "income or expense")
	f.StringVar(&category, "category", "", "category name or id")
	f.StringVar(&date, "date", "", "YYYY-MM-DD, default today")
	f.StringVar(&description, "description", "", "longer description")
	f.StringVar(&notes, "notes", "", "free-form notes")
	f.StringSliceVar(&tags, "tag", nil, "tag, repeatable")
	_ = cmd.MarkFlagRequired("title")
	_ = cmd.MarkFlagRequired("amount")
	_ = cmd.MarkFlagRequired("category")
	return cmd
}

// resolveCategory accepts an id or a case-insensitive name.
func resolveCategory(cats []core.Category, ref string) string {
	ref = strings.TrimSpace(ref)
	for _, c := range cats {
		if c.ID == ref {
			return c.ID
		}
	}
	for _, c := range cats {
		if strings.EqualFold(c.Name, ref) {
			return c.ID
		}
	}
	return ""
}

func (a *app) txRmCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "rm ID...",
		Aliases: []string{"delete"},
		Short:   "Delete transactions by id",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.authed(cmd)
			if err != nil {
				return err
			}
			for _, id := range args {
				if err := client.DeleteTransaction(cmd.Context(), id); err != nil {
					return fmt.Errorf("%s: %w", id, a.fail(err))
				}
				a.printf(cmd, "Deleted %s\n", id)
			}
			return nil
		},
	}
}

func signedAmount(tx core.Transaction, currency string) string {
	if tx.Type == core.Expense {
		return "-" + tx.Amount.Format(currency)
	}
	return "+" + tx.Amount.Format(currency)
}
