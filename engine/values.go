package engine

import (
	"cmp"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/spektr-org/tableplan/schema"
	"github.com/spektr-org/tableplan/table"
)

// ============================================================================
// VALUE HELPERS: Literal conversion and cell comparison
// ============================================================================
// Plan literals are JSON values (float64, string, bool, nil, []any). Cells are
// typed by their column's Kind. Comparison converts the literal to the
// column's kind; when that is impossible the caller falls back to
// case-insensitive string equality.
// ============================================================================

// literalFloat converts a plan literal to a number.
func literalFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case int64:
		return float64(x), true
	case int:
		return float64(x), true
	case string:
		d, ok := schema.ParseNumber(x)
		if !ok {
			return 0, false
		}
		f, _ := d.Float64()
		return f, true
	default:
		return 0, false
	}
}

// literalText renders a plan literal for text comparison. Integral JSON
// numbers lose their ".0" so 5 matches the cell "5".
func literalText(v any) string {
	if f, ok := v.(float64); ok && f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return strconv.FormatInt(int64(f), 10)
	}
	return table.Format(v)
}

func literalTime(v any) (time.Time, bool) {
	switch x := v.(type) {
	case time.Time:
		return x, true
	case string:
		return schema.ParseTimestamp(x)
	default:
		return time.Time{}, false
	}
}

func literalBool(v any) (bool, bool) {
	switch x := v.(type) {
	case bool:
		return x, true
	case string:
		switch strings.ToLower(strings.TrimSpace(x)) {
		case "true", "yes", "y", "1":
			return true, true
		case "false", "no", "n", "0":
			return false, true
		}
	case float64:
		return x != 0, true
	case int64:
		return x != 0, true
	}
	return false, false
}

// compareCell orders a non-missing cell of the given kind against a literal.
// ok is false when the literal cannot be read as the cell's kind.
func compareCell(cell any, kind table.Kind, lit any) (int, bool) {
	if cell == nil || lit == nil {
		return 0, false
	}
	switch kind {
	case table.Int, table.Float:
		a, ok1 := table.AsFloat(cell)
		b, ok2 := literalFloat(lit)
		if !ok1 || !ok2 {
			return 0, false
		}
		return cmp.Compare(a, b), true
	case table.Time:
		a, ok1 := cell.(time.Time)
		b, ok2 := literalTime(lit)
		if !ok1 || !ok2 {
			return 0, false
		}
		return a.Compare(b), true
	case table.Bool:
		a, ok1 := cell.(bool)
		b, ok2 := literalBool(lit)
		if !ok1 || !ok2 {
			return 0, false
		}
		return cmp.Compare(boolRank(a), boolRank(b)), true
	default:
		if _, isList := lit.([]any); isList {
			return 0, false
		}
		return strings.Compare(strings.ToLower(table.Format(cell)), strings.ToLower(literalText(lit))), true
	}
}

// compareCells orders two cells of the same column. Missing sorts last.
func compareCells(a, b any, kind table.Kind) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	}
	switch kind {
	case table.Int, table.Float:
		fa, _ := table.AsFloat(a)
		fb, _ := table.AsFloat(b)
		return cmp.Compare(fa, fb)
	case table.Time:
		return a.(time.Time).Compare(b.(time.Time))
	case table.Bool:
		return cmp.Compare(boolRank(a.(bool)), boolRank(b.(bool)))
	default:
		return strings.Compare(table.Format(a), table.Format(b))
	}
}

func boolRank(b bool) int {
	if b {
		return 1
	}
	return 0
}

// equalCell reports cell == lit, falling back to case-insensitive text
// equality when the literal does not convert to the cell's kind.
func equalCell(cell any, kind table.Kind, lit any) bool {
	if cell == nil || lit == nil {
		return cell == nil && lit == nil
	}
	if c, ok := compareCell(cell, kind, lit); ok {
		return c == 0
	}
	return strings.EqualFold(table.Format(cell), literalText(lit))
}

// convertLiteral converts a literal to the Go type of kind.
func convertLiteral(v any, kind table.Kind) (any, bool) {
	if v == nil {
		return nil, true
	}
	switch kind {
	case table.Int:
		f, ok := literalFloat(v)
		if !ok || f != float64(int64(f)) {
			return nil, false
		}
		return int64(f), true
	case table.Float:
		f, ok := literalFloat(v)
		if !ok {
			return nil, false
		}
		return f, true
	case table.Bool:
		b, ok := literalBool(v)
		if !ok {
			return nil, false
		}
		return b, true
	case table.Time:
		ts, ok := literalTime(v)
		if !ok {
			return nil, false
		}
		return ts, true
	default:
		if s, ok := v.(string); ok {
			return s, true
		}
		return literalText(v), true
	}
}

// asTextColumn re-encodes a column as Text, keeping missing values missing.
func asTextColumn(c *table.Column) *table.Column {
	vals := make([]any, c.Len())
	for i, v := range c.Values {
		if v != nil {
			vals[i] = table.Format(v)
		}
	}
	return &table.Column{Name: c.Name, Path: c.Path, Kind: table.Text, Values: vals}
}

// rowKey builds a comparable key from the cells of the given columns.
func rowKey(cols []*table.Column, row int) string {
	var b strings.Builder
	for i, c := range cols {
		if i > 0 {
			b.WriteByte('\x1f')
		}
		v := c.Values[row]
		if v == nil {
			b.WriteString("\x00")
			continue
		}
		b.WriteString(table.Format(v))
	}
	return b.String()
}

func columnsOf(t *table.Table, names []string) []*table.Column {
	cols := make([]*table.Column, 0, len(names))
	for _, n := range names {
		if c, ok := t.Column(n); ok {
			cols = append(cols, c)
		}
	}
	return cols
}
