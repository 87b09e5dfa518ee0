package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/shopspring/decimal"
)

// utf8BOM lets spreadsheet applications detect the encoding of non-ASCII
// names (department and category names are often not ASCII).
const utf8BOM = "\ufeff"

// Table is the flat, export-ready form of a report.
type Table struct {
	Columns []string
	Rows    [][]string
}

func (t *Table) add(cells ...string) {
	t.Rows = append(t.Rows, cells)
}

// WriteCSV encodes the table as CSV, optionally prefixed with a UTF-8 BOM.
func WriteCSV(w io.Writer, t Table, bom bool) error {
	if bom {
		if _, err := io.WriteString(w, utf8BOM); err != nil {
			return fmt.Errorf("write bom: %w", err)
		}
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Columns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if err := cw.WriteAll(t.Rows); err != nil {
		return fmt.Errorf("write rows: %w", err)
	}
	return nil
}

func amount(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func count(n int) string {
	return strconv.Itoa(n)
}
