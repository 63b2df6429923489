package helpers

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/spektr-org/tableplan/table"
)

// ============================================================================
// PREVIEW BUILDER: Render-ready snapshot of a result table
// ============================================================================
// A Preview is what the summarizer and the CLI see: display labels, aligned
// string cells for the first rows, and a total line for numeric columns.
// ============================================================================

// DefaultPreviewRows is the row cap used when BuildPreview gets n ≤ 0.
const DefaultPreviewRows = 20

// Preview is a display snapshot of a table.
type Preview struct {
	Columns   []PreviewColumn `json:"columns"`
	Rows      [][]string      `json:"rows"`
	TotalRows int             `json:"totalRows"`
	Truncated bool            `json:"truncated"`
	Summary   *PreviewSummary `json:"summary,omitempty"`
}

// PreviewColumn defines a preview column.
type PreviewColumn struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Type  string `json:"type"`  // table.Kind name: "string", "int", "float", "bool", "datetime"
	Align string `json:"align"` // "left", "right"
}

// PreviewSummary holds column totals over ALL rows, not just the previewed ones.
type PreviewSummary struct {
	Label  string            `json:"label"`
	Values map[string]string `json:"values"`
}

// BuildPreview renders the first maxRows rows of t.
func BuildPreview(t *table.Table, maxRows int) *Preview {
	if maxRows <= 0 {
		maxRows = DefaultPreviewRows
	}
	if t == nil {
		return &Preview{Columns: []PreviewColumn{}, Rows: [][]string{}}
	}

	cols := t.Columns()
	columns := make([]PreviewColumn, 0, len(cols))
	for _, c := range cols {
		align := "left"
		if c.Kind.IsNumeric() {
			align = "right"
		}
		columns = append(columns, PreviewColumn{
			Key:   c.Name,
			Label: LabelForColumn(c.Name),
			Type:  c.Kind.String(),
			Align: align,
		})
	}

	shown := t.Head(maxRows)
	rows := make([][]string, 0, shown.NumRows())
	for i := 0; i < shown.NumRows(); i++ {
		row := make([]string, 0, len(cols))
		for _, v := range shown.Row(i) {
			row = append(row, table.Format(v))
		}
		rows = append(rows, row)
	}

	p := &Preview{
		Columns:   columns,
		Rows:      rows,
		TotalRows: t.NumRows(),
		Truncated: shown.NumRows() < t.NumRows(),
	}

	totals := make(map[string]string)
	for _, c := range cols {
		if !c.Kind.IsNumeric() {
			continue
		}
		sum := decimal.Zero
		for _, v := range c.Values {
			if f, ok := table.AsFloat(v); ok {
				sum = sum.Add(decimal.NewFromFloat(f))
			}
		}
		totals[c.Name] = FormatNumber(sum)
	}
	if len(totals) > 0 && t.NumRows() > 1 {
		p.Summary = &PreviewSummary{
			Label:  fmt.Sprintf("Total (%d rows)", t.NumRows()),
			Values: totals,
		}
	}
	return p
}

// LabelForColumn returns a display label for a column name:
// "unit_price" → "Unit Price".
func LabelForColumn(name string) string {
	parts := strings.FieldsFunc(name, func(r rune) bool { return r == '_' || r == '-' || r == ' ' })
	for i, p := range parts {
		parts[i] = strings.ToUpper(p[:1]) + p[1:]
	}
	if len(parts) == 0 {
		return name
	}
	return strings.Join(parts, " ")
}

// FormatNumber formats a decimal with comma separators, rounded to 2 places.
// Integral values are printed without a fraction: 1234.5 → "1,234.50",
// 1200 → "1,200".
func FormatNumber(d decimal.Decimal) string {
	d = d.Round(2)
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Neg()
	}
	fixed := d.StringFixed(2)
	whole, frac, _ := strings.Cut(fixed, ".")
	n, _ := decimal.NewFromString(whole)
	out := sign + formatInt(n.IntPart())
	if frac != "" && frac != "00" {
		out += "." + frac
	}
	return out
}

// formatInt formats an integer with comma separators.
func formatInt(n int64) string {
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}
	return fmt.Sprintf("%s,%03d", formatInt(n/1000), n%1000)
}
