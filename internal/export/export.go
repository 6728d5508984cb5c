// Package export renders directory records as CSV and XLSX downloads.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/MacJediWizard/dealbook/internal/models"
)

// Format is a download file format.
type Format string

// Supported formats.
const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// ParseFormat validates a format query value. Empty means CSV.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatCSV:
		return FormatCSV, nil
	case FormatXLSX:
		return FormatXLSX, nil
	}
	return "", fmt.Errorf("unsupported export format %q", s)
}

// ContentType returns the MIME type of f.
func (f Format) ContentType() string {
	if f == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv"
}

// ListSeparator divides the investor and fund sections of a list export.
const ListSeparator = "--- Investment Funds ---"

// Column extracts one cell of a row.
type Column[T any] struct {
	Name    string
	Contact bool
	Value   func(*T) any
}

// Select drops contact columns unless includeContact is set.
func Select[T any](cols []Column[T], includeContact bool) []Column[T] {
	out := make([]Column[T], 0, len(cols))
	for _, c := range cols {
		if c.Contact && !includeContact {
			continue
		}
		out = append(out, c)
	}
	return out
}

// Table is a rendered sheet: a header row plus string cells.
type Table struct {
	Name   string
	Header []string
	Rows   [][]string
}

// BuildTable renders rows through cols.
func BuildTable[T any](name string, cols []Column[T], rows []T) Table {
	t := Table{Name: name, Header: make([]string, len(cols)), Rows: make([][]string, len(rows))}
	for i, c := range cols {
		t.Header[i] = c.Name
	}
	for r := range rows {
		record := make([]string, len(cols))
		for i, c := range cols {
			record[i] = FormatCell(c.Value(&rows[r]))
		}
		t.Rows[r] = record
	}
	return t
}

// FormatCell renders a value as CSV text. Nil becomes empty, lists are
// joined with ", " and floats never use exponent notation.
func FormatCell(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case *string:
		if x == nil {
			return ""
		}
		return *x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case *float64:
		if x == nil {
			return ""
		}
		return strconv.FormatFloat(*x, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(x, 10)
	case []string:
		parts := make([]string, 0, len(x))
		for _, s := range x {
			if s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", ")
	default:
		return fmt.Sprint(x)
	}
}

// WriteCSV writes a header and one record per row.
func WriteCSV[T any](w io.Writer, cols []Column[T], rows []T) error {
	return writeTables(w, BuildTable("", cols, rows))
}

// WriteListCSV writes a saved list as two CSV sections, investors first.
func WriteListCSV(w io.Writer, invCols []Column[models.Investor], investors []models.Investor,
	fundCols []Column[models.InvestmentFund], funds []models.InvestmentFund) error {
	if err := writeTables(w, BuildTable("", invCols, investors)); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "\n%s\n\n", ListSeparator); err != nil {
		return fmt.Errorf("write separator: %w", err)
	}
	return writeTables(w, BuildTable("", fundCols, funds))
}

func writeTables(w io.Writer, tables ...Table) error {
	cw := csv.NewWriter(w)
	for _, t := range tables {
		if err := cw.Write(t.Header); err != nil {
			return fmt.Errorf("write csv header: %w", err)
		}
		if err := cw.WriteAll(t.Rows); err != nil {
			return fmt.Errorf("write csv rows: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
