package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"budgetdash/internal/cli"
	"budgetdash/internal/rbac"
	"budgetdash/internal/report"
)

func exportCmd(a *app) *cobra.Command {
	var (
		output                         string
		role                           string
		department, category, from, to string
		noBOM                          bool
	)
	cmd := &cobra.Command{
		Use:   "export <kind>",
		Short: "Export a report as CSV",
		Long: fmt.Sprintf(`Export one report as CSV to stdout or to a file.

Kinds: %s

Expense-based reports accept --department, --category, --from and --to.
The export is refused when --role may not download the report.`, kindList()),
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := report.ParseKind(args[0])
			if err != nil {
				return err
			}
			r, err := rbac.ParseRole(role)
			if err != nil {
				return err
			}
			if !r.CanExport(kind) {
				return fmt.Errorf("role %s may not export %s", r, kind)
			}
			filter, err := report.ParseFilter(department, category, from, to)
			if err != nil {
				return err
			}

			b, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			rep, err := b.Allocation.Report(cmd.Context(), kind, filter)
			if err != nil {
				return fmt.Errorf("build %s report: %w", kind, err)
			}

			table := rep.Table()
			if output == "" || output == "-" {
				if err := report.WriteCSV(cmd.OutOrStdout(), table, !noBOM); err != nil {
					return fmt.Errorf("write csv: %w", err)
				}
				return nil
			}
			if err := writeCSVFile(output, table, !noBOM); err != nil {
				return err
			}
			fmt.Fprintln(cmd.ErrOrStderr(), cli.SuccessStyle.Render(
				fmt.Sprintf("Wrote %d rows of %s to %s", len(table.Rows), kind, output)))
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to this file instead of stdout")
	cmd.Flags().StringVar(&role, "role", string(rbac.RoleManager), "role whose export permissions apply")
	cmd.Flags().StringVar(&department, "department", "", "only this department id (or all)")
	cmd.Flags().StringVar(&category, "category", "", "only this category id (or all)")
	cmd.Flags().StringVar(&from, "from", "", "first date, YYYY-MM-DD")
	cmd.Flags().StringVar(&to, "to", "", "last date, YYYY-MM-DD")
	cmd.Flags().BoolVar(&noBOM, "no-bom", false, "omit the UTF-8 byte order mark")
	return cmd
}

// writeCSVFile creates path and writes the table to it. A failed close is
// reported like a failed write.
func writeCSVFile(path string, t report.Table, bom bool) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := report.WriteCSV(f, t, bom); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	return nil
}

func kindList() string {
	kinds := make([]string, 0, len(rbac.AllExports()))
	for _, k := range rbac.AllExports() {
		kinds = append(kinds, string(k))
	}
	return strings.Join(kinds, ", ")
}
