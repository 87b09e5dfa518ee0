package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"budgetdash/internal/allocation"
	"budgetdash/internal/cli"
	"budgetdash/internal/report"
)

func allocateCmd(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "allocate",
		Short: "Show budget, direct and allocated indirect cost per department",
		Long: `Compute the cost allocation over every record in the store and print
one row per department plus an organization total. Departments above the
warning threshold are listed after the table.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			b, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			rep, err := b.Allocation.Compute(cmd.Context())
			if err != nil {
				return fmt.Errorf("compute allocation: %w", err)
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(rep)
			}

			fmt.Fprintln(out, cli.TitleStyle.Render("Cost allocation"))
			bva := report.BudgetVsActual{Rows: rep.Departments, Totals: rep.Totals}
			if err := cli.RenderTable(out, bva.Table()); err != nil {
				return err
			}
			for _, r := range rep.Departments {
				band := r.Utilization.Band()
				if band == allocation.BandWarning || band == allocation.BandCritical {
					fmt.Fprintln(out, cli.BandStyle(band).Render(
						fmt.Sprintf("%s at %s of budget (%s)", r.DepartmentName, r.Utilization, band)))
				}
			}
			if len(rep.Excluded) > 0 {
				ids := make([]string, 0, len(rep.Excluded))
				for _, x := range rep.Excluded {
					ids = append(ids, x.RecordID)
				}
				fmt.Fprintln(out, cli.WarningStyle.Render("Excluded expenses: "+strings.Join(ids, ", ")))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the full allocation report as JSON")
	return cmd
}

func totalsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "totals",
		Short: "Show organization-wide totals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			b, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			rep, err := b.Allocation.Compute(cmd.Context())
			if err != nil {
				return fmt.Errorf("compute allocation: %w", err)
			}
			t := rep.Totals

			lines := []string{
				fmt.Sprintf("Budget       %s", t.TotalBudget.StringFixed(2)),
				fmt.Sprintf("Direct       %s", t.TotalDirect.StringFixed(2)),
				fmt.Sprintf("Indirect     %s", t.TotalIndirect.StringFixed(2)),
				fmt.Sprintf("Spent        %s", t.TotalSpent.StringFixed(2)),
				fmt.Sprintf("Remaining    %s", t.TotalRemaining.StringFixed(2)),
				"Utilization  " + cli.BandStyle(t.Utilization.Band()).Render(t.Utilization.String()),
			}
			if !t.Unallocated.IsZero() {
				lines = append(lines, cli.WarningStyle.Render("Unallocated  "+t.Unallocated.StringFixed(2)))
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, cli.TitleStyle.Render("Organization totals"))
			fmt.Fprintln(out, cli.BoxStyle.Render(strings.Join(lines, "\n")))
			return nil
		},
	}
}
