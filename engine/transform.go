package engine

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cast"

	"github.com/spektr-org/tableplan/schema"
	"github.com/spektr-org/tableplan/table"
)

// ============================================================================
// TRANSFORM: Derived columns, nulls, types and dates
// ============================================================================

// operand is one side of a compute: a column or a constant.
type operand struct {
	col   *table.Column
	lit   float64
	isInt bool
	desc  string
}

func (o operand) at(i int) (float64, bool) {
	if o.col == nil {
		return o.lit, true
	}
	return table.AsFloat(o.col.Values[i])
}

func resolveOperand(t *table.Table, v any) (operand, error) {
	switch x := v.(type) {
	case string:
		if name, ok := Resolve(t, x); ok {
			col, _ := t.Column(name)
			if !col.Kind.IsNumeric() {
				return operand{}, incompatiblef("compute over %s column %q", col.Kind, name)
			}
			return operand{col: col, isInt: col.Kind == table.Int, desc: name}, nil
		}
		if f, ok := literalFloat(x); ok {
			return operand{lit: f, isInt: f == float64(int64(f)), desc: x}, nil
		}
		return operand{}, columnNotFound(x)
	case nil:
		return operand{}, invalidf("compute operand is missing")
	default:
		f, ok := literalFloat(x)
		if !ok {
			return operand{}, invalidf("compute operand %v is neither a column nor a number", x)
		}
		return operand{lit: f, isInt: f == float64(int64(f)), desc: table.Format(x)}, nil
	}
}

var arithSymbols = map[string]string{
	"add":      "+",
	"subtract": "-",
	"multiply": "*",
	"divide":   "/",
}

func applyCompute(t *table.Table, op ComputeOp) (*table.Table, string, error) {
	if op.Name == "" {
		return nil, "", invalidf("compute without a result name")
	}
	symbol, ok := arithSymbols[op.Operation]
	if !ok {
		return nil, "", invalidf("unknown compute operation %q", op.Operation)
	}
	left, err := resolveOperand(t, op.Left)
	if err != nil {
		return nil, "", err
	}
	right, err := resolveOperand(t, op.Right)
	if err != nil {
		return nil, "", err
	}

	kind := table.Float
	if left.isInt && right.isInt && op.Operation != "divide" {
		kind = table.Int
	}

	n := t.NumRows()
	vals := make([]any, n)
	for i := 0; i < n; i++ {
		a, ok1 := left.at(i)
		b, ok2 := right.at(i)
		if !ok1 || !ok2 {
			continue
		}
		var r float64
		switch op.Operation {
		case "add":
			r = a + b
		case "subtract":
			r = a - b
		case "multiply":
			r = a * b
		case "divide":
			if b == 0 {
				continue
			}
			r = a / b
		}
		if kind == table.Int {
			vals[i] = int64(r)
		} else {
			vals[i] = r
		}
	}

	out, err := t.WithColumn(table.NewColumn(op.Name, kind, vals))
	if err != nil {
		return nil, "", err
	}
	return out, fmt.Sprintf("compute: %s = %s %s %s", op.Name, left.desc, symbol, right.desc), nil
}

// ============================================================================
// NULL HANDLING
// ============================================================================

func applyDropNA(t *table.Table, op DropNAOp) (*table.Table, string, error) {
	names := t.ColumnNames()
	if len(op.Columns) > 0 {
		names = ResolveAll(t, op.Columns)
		if len(names) == 0 {
			return nil, "", columnNotFound(op.Columns...)
		}
	}
	how := strings.ToLower(op.How)
	if how == "" {
		how = "any"
	}
	if how != "any" && how != "all" {
		return nil, "", invalidf("dropna how must be any or all, got %q", op.How)
	}

	cols := columnsOf(t, names)
	n := t.NumRows()
	idx := make([]int, 0, n)
	for i := 0; i < n; i++ {
		missing := 0
		for _, c := range cols {
			if c.Values[i] == nil {
				missing++
			}
		}
		drop := (how == "any" && missing > 0) || (how == "all" && missing == len(cols))
		if !drop {
			idx = append(idx, i)
		}
	}
	return t.Take(idx), fmt.Sprintf("dropna: removed %d rows (%s missing)", n-len(idx), how), nil
}

func applyFillNA(t *table.Table, op FillNAOp) (*table.Table, string, error) {
	fills := make(map[string]any)
	if len(op.Values) > 0 {
		keys := make([]string, 0, len(op.Values))
		for k := range op.Values {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if name, ok := Resolve(t, k); ok {
				fills[name] = op.Values[k]
			}
		}
		if len(fills) == 0 {
			return nil, "", columnNotFound(keys...)
		}
	} else {
		if op.Value == nil {
			return nil, "", invalidf("fillna without a value")
		}
		names := t.ColumnNames()
		if len(op.Columns) > 0 {
			names = ResolveAll(t, op.Columns)
			if len(names) == 0 {
				return nil, "", columnNotFound(op.Columns...)
			}
		}
		for _, n := range names {
			fills[n] = op.Value
		}
	}

	repl := make(map[string]*table.Column)
	filled := 0
	for _, c := range t.Columns() {
		fill, ok := fills[c.Name]
		if !ok || fill == nil {
			continue
		}
		mask := make([]bool, c.Len())
		count := 0
		for i, v := range c.Values {
			if v == nil {
				mask[i] = true
				count++
			}
		}
		if count == 0 {
			continue
		}
		vals := make([]any, c.Len())
		copy(vals, c.Values)
		kind := applyFill(vals, mask, c.Kind, fill)
		repl[c.Name] = &table.Column{Name: c.Name, Path: c.Path, Kind: kind, Values: vals}
		filled += count
	}
	if len(repl) == 0 {
		return t, "fillna: no missing values", nil
	}
	out, err := t.ReplaceColumns(repl)
	if err != nil {
		return nil, "", err
	}
	return out, fmt.Sprintf("fillna: filled %d cells in %d columns", filled, len(repl)), nil
}

// ============================================================================
// CAST
// ============================================================================

var castKinds = map[string]table.Kind{
	"int":      table.Int,
	"float":    table.Float,
	"string":   table.Text,
	"bool":     table.Bool,
	"datetime": table.Time,
}

// applyCast converts whole columns. A column holds exactly one Kind, so a
// column with any value that does not convert keeps its original kind and
// values, and is listed as kept in the log line.
func applyCast(t *table.Table, op CastOp) (*table.Table, string, error) {
	if len(op.Targets) == 0 {
		return nil, "", invalidf("cast without targets")
	}
	repl := make(map[string]*table.Column)
	var done, kept []string
	for _, target := range op.Targets {
		kind, ok := castKinds[target.Type]
		if !ok {
			kept = append(kept, fmt.Sprintf("%s (unknown type %q)", target.Column, target.Type))
			continue
		}
		name, ok := Resolve(t, target.Column)
		if !ok {
			kept = append(kept, fmt.Sprintf("%s (not found)", target.Column))
			continue
		}
		col, _ := t.Column(name)
		converted, ok := castColumn(col, kind)
		if !ok {
			kept = append(kept, fmt.Sprintf("%s (not all values convert to %s)", name, kind))
			continue
		}
		repl[name] = converted
		done = append(done, fmt.Sprintf("%s -> %s", name, kind))
	}
	if len(repl) == 0 {
		return t, "cast: nothing converted; kept " + strings.Join(kept, ", "), nil
	}
	out, err := t.ReplaceColumns(repl)
	if err != nil {
		return nil, "", err
	}
	line := "cast: " + strings.Join(done, ", ")
	if len(kept) > 0 {
		line += "; kept " + strings.Join(kept, ", ")
	}
	return out, line, nil
}

// castColumn converts every non-missing value, or reports false and leaves
// the column alone when any value fails.
func castColumn(c *table.Column, kind table.Kind) (*table.Column, bool) {
	if c.Kind == kind {
		return c, true
	}
	vals := make([]any, c.Len())
	for i, v := range c.Values {
		if v == nil {
			continue
		}
		converted, ok := castValue(v, kind)
		if !ok {
			return nil, false
		}
		vals[i] = converted
	}
	return &table.Column{Name: c.Name, Path: c.Path, Kind: kind, Values: vals}, true
}

func castValue(v any, kind table.Kind) (any, bool) {
	s, isText := v.(string)
	switch kind {
	case table.Int:
		if isText {
			d, ok := schema.ParseNumber(s)
			if !ok {
				return nil, false
			}
			return d.IntPart(), true
		}
		if t, ok := v.(time.Time); ok {
			return t.Unix(), true
		}
		n, err := cast.ToInt64E(v)
		return n, err == nil
	case table.Float:
		if isText {
			d, ok := schema.ParseNumber(s)
			if !ok {
				return nil, false
			}
			f, _ := d.Float64()
			return f, true
		}
		f, err := cast.ToFloat64E(v)
		return f, err == nil
	case table.Bool:
		if b, ok := literalBool(v); ok {
			return b, true
		}
		b, err := cast.ToBoolE(v)
		return b, err == nil
	case table.Time:
		if isText {
			return schema.ParseTimestamp(s)
		}
		ts, err := cast.ToTimeE(v)
		return ts, err == nil
	default:
		return table.Format(v), true
	}
}

// ============================================================================
// DATES
// ============================================================================

func applyDateParse(t *table.Table, op DateParseOp) (*table.Table, string, error) {
	names := ResolveAll(t, op.Columns)
	if len(names) == 0 {
		return nil, "", columnNotFound(op.Columns...)
	}
	repl := make(map[string]*table.Column)
	failed := 0
	for _, name := range names {
		col, _ := t.Column(name)
		parsed, misses := parseTimeColumn(col)
		repl[name] = parsed
		failed += misses
	}
	out, err := t.ReplaceColumns(repl)
	if err != nil {
		return nil, "", err
	}
	return out, fmt.Sprintf("date_parse: %s (%d unparseable values set missing)", strings.Join(names, ", "), failed), nil
}

// parseTimeColumn converts a column to Time. Values that do not parse become
// missing; the count of such values is returned.
func parseTimeColumn(c *table.Column) (*table.Column, int) {
	if c.Kind == table.Time {
		return c, 0
	}
	vals := make([]any, c.Len())
	misses := 0
	for i, v := range c.Values {
		if v == nil {
			continue
		}
		ts, ok := schema.ParseTimestamp(table.Format(v))
		if !ok {
			misses++
			continue
		}
		vals[i] = ts
	}
	return &table.Column{Name: c.Name, Path: c.Path, Kind: table.Time, Values: vals}, misses
}

func applyDateTrunc(t *table.Table, op DateTruncOp) (*table.Table, string, error) {
	name, ok := Resolve(t, op.Column)
	if !ok {
		return nil, "", columnNotFound(op.Column)
	}
	gran := strings.ToLower(op.Granularity)
	if gran == "" {
		gran = "day"
	}
	switch gran {
	case "day", "week", "month", "quarter", "year":
	default:
		return nil, "", invalidf("unknown date_trunc granularity %q", op.Granularity)
	}

	col, _ := t.Column(name)
	parsed, _ := parseTimeColumn(col)
	vals := make([]any, parsed.Len())
	for i, v := range parsed.Values {
		if ts, ok := v.(time.Time); ok {
			vals[i] = truncateTime(ts, gran)
		}
	}

	target := op.As
	if target == "" {
		target = name
	}
	out, err := t.WithColumn(table.NewColumn(target, table.Time, vals))
	if err != nil {
		return nil, "", err
	}
	return out, fmt.Sprintf("date_trunc: %s to %s as %s", name, gran, target), nil
}

// truncateTime floors ts to the start of its day, ISO week (Monday), month,
// quarter or year, in ts's location.
func truncateTime(ts time.Time, granularity string) time.Time {
	y, m, d := ts.Date()
	loc := ts.Location()
	switch granularity {
	case "week":
		offset := (int(ts.Weekday()) + 6) % 7
		return time.Date(y, m, d-offset, 0, 0, 0, 0, loc)
	case "month":
		return time.Date(y, m, 1, 0, 0, 0, 0, loc)
	case "quarter":
		q := (int(m)-1)/3*3 + 1
		return time.Date(y, time.Month(q), 1, 0, 0, 0, 0, loc)
	case "year":
		return time.Date(y, time.January, 1, 0, 0, 0, 0, loc)
	default:
		return time.Date(y, m, d, 0, 0, 0, 0, loc)
	}
}
