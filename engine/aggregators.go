package engine

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/spektr-org/tableplan/table"
)

// ============================================================================
// AGGREGATORS: Grouping, aggregation, pivot and frequency tables
// ============================================================================
// Grouping produces index lists into the input table, in encounter order.
// Aggregates are computed per group over non-missing values only.
// ============================================================================

// group is a set of row indices sharing a key.
type group struct {
	Key  string
	Rows []int
}

// groupRows partitions rows by the cells of keys. Rows with a missing key
// cell are dropped. No keys means one group holding every row.
func groupRows(n int, keys []*table.Column) []group {
	if len(keys) == 0 {
		all := make([]int, n)
		for i := range all {
			all[i] = i
		}
		return []group{{Key: "all", Rows: all}}
	}

	grouped := make(map[string]int)
	groups := make([]group, 0)
	for i := 0; i < n; i++ {
		if anyMissing(keys, i) {
			continue
		}
		key := rowKey(keys, i)
		g, exists := grouped[key]
		if !exists {
			g = len(groups)
			grouped[key] = g
			groups = append(groups, group{Key: key})
		}
		groups[g].Rows = append(groups[g].Rows, i)
	}
	return groups
}

// partitionRows is groupRows for window functions: rows with a missing
// partition key form their own partition instead of being dropped.
func partitionRows(n int, keys []*table.Column) []group {
	if len(keys) == 0 {
		return groupRows(n, nil)
	}
	grouped := make(map[string]int)
	groups := make([]group, 0)
	for i := 0; i < n; i++ {
		key := rowKey(keys, i)
		g, exists := grouped[key]
		if !exists {
			g = len(groups)
			grouped[key] = g
			groups = append(groups, group{Key: key})
		}
		groups[g].Rows = append(groups[g].Rows, i)
	}
	return groups
}

func anyMissing(cols []*table.Column, row int) bool {
	for _, c := range cols {
		if c.Values[row] == nil {
			return true
		}
	}
	return false
}

// ============================================================================
// AGGREGATE FUNCTIONS
// ============================================================================

// aggKind returns the result kind of agg over a column of kind in.
func aggKind(agg string, in table.Kind) (table.Kind, error) {
	switch agg {
	case "count":
		return table.Int, nil
	case "min", "max":
		return in, nil
	case "sum":
		if !in.IsNumeric() {
			return 0, incompatiblef("sum over %s column", in)
		}
		return in, nil
	case "mean", "median":
		if !in.IsNumeric() {
			return 0, incompatiblef("%s over %s column", agg, in)
		}
		return table.Float, nil
	default:
		return 0, invalidf("unknown aggregation %q", agg)
	}
}

// aggregate computes agg over the given rows of c. The caller has checked
// the combination with aggKind.
func aggregate(c *table.Column, rows []int, agg string) any {
	switch agg {
	case "count":
		var n int64
		for _, i := range rows {
			if c.Values[i] != nil {
				n++
			}
		}
		return n
	case "min", "max":
		var best any
		for _, i := range rows {
			v := c.Values[i]
			if v == nil {
				continue
			}
			if best == nil {
				best = v
				continue
			}
			cmp := compareCells(v, best, c.Kind)
			if (agg == "min" && cmp < 0) || (agg == "max" && cmp > 0) {
				best = v
			}
		}
		return best
	}

	xs := numericValues(c, rows)
	switch agg {
	case "sum":
		if c.Kind == table.Int {
			var total int64
			for _, i := range rows {
				if v, ok := c.Values[i].(int64); ok {
					total += v
				}
			}
			return total
		}
		return floats.Sum(xs)
	case "mean":
		if len(xs) == 0 {
			return nil
		}
		return stat.Mean(xs, nil)
	case "median":
		if len(xs) == 0 {
			return nil
		}
		return median(xs)
	}
	return nil
}

func numericValues(c *table.Column, rows []int) []float64 {
	xs := make([]float64, 0, len(rows))
	for _, i := range rows {
		if f, ok := table.AsFloat(c.Values[i]); ok {
			xs = append(xs, f)
		}
	}
	return xs
}

// median averages the two middle values of an even-length sample.
func median(xs []float64) float64 {
	sorted := slices.Clone(xs)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}

// ============================================================================
// GROUPBY_AGG
// ============================================================================

func applyGroupByAgg(t *table.Table, op GroupByAggOp) (*table.Table, string, error) {
	keyNames := ResolveAll(t, op.By)
	if len(op.By) > 0 && len(keyNames) == 0 {
		return nil, "", columnNotFound(op.By...)
	}

	type resolvedAgg struct {
		col  *table.Column
		agg  string
		as   string
		kind table.Kind
	}
	aggs := make([]resolvedAgg, 0, len(op.Aggregations))
	uses := make(map[string]int)
	for _, a := range op.Aggregations {
		name, ok := Resolve(t, a.Column)
		if !ok {
			continue
		}
		col, _ := t.Column(name)
		kind, err := aggKind(a.Agg, col.Kind)
		if err != nil {
			return nil, "", fmt.Errorf("%s: %w", name, err)
		}
		aggs = append(aggs, resolvedAgg{col: col, agg: a.Agg, as: a.As, kind: kind})
		uses[name]++
	}
	if len(aggs) == 0 {
		if len(op.Aggregations) == 0 {
			return nil, "", invalidf("groupby_agg without aggregations")
		}
		cols := make([]string, len(op.Aggregations))
		for i, a := range op.Aggregations {
			cols[i] = a.Column
		}
		return nil, "", columnNotFound(cols...)
	}

	keys := columnsOf(t, keyNames)
	groups := groupRows(t.NumRows(), keys)

	out := make([]*table.Column, 0, len(keys)+len(aggs))
	taken := make(map[string]bool)
	for _, k := range keys {
		vals := make([]any, len(groups))
		for gi, g := range groups {
			vals[gi] = k.Values[g.Rows[0]]
		}
		out = append(out, &table.Column{Name: k.Name, Path: k.Path, Kind: k.Kind, Values: vals})
		taken[k.Name] = true
	}

	descs := make([]string, 0, len(aggs))
	for _, a := range aggs {
		vals := make([]any, len(groups))
		for gi, g := range groups {
			vals[gi] = aggregate(a.col, g.Rows, a.agg)
		}
		var col *table.Column
		switch {
		case a.as != "":
			col = table.NewColumn(a.as, a.kind, vals)
		case uses[a.col.Name] == 1 && !taken[a.col.Name]:
			col = table.NewColumn(a.col.Name, a.kind, vals)
		default:
			col = table.NewCompoundColumn([]string{a.col.Name, a.agg}, a.kind, vals)
		}
		if taken[col.Name] {
			return nil, "", invalidf("duplicate output column %q", col.Name)
		}
		taken[col.Name] = true
		out = append(out, col)
		descs = append(descs, fmt.Sprintf("%s %s", a.col.Name, a.agg))
	}

	result, err := table.New(out...)
	if err != nil {
		return nil, "", err
	}
	by := "all rows"
	if len(keyNames) > 0 {
		by = strings.Join(keyNames, ", ")
	}
	line := fmt.Sprintf("groupby_agg: %d groups by %s (%s)", len(groups), by, strings.Join(descs, ", "))
	return result, line, nil
}

// ============================================================================
// PIVOT
// ============================================================================

func applyPivot(t *table.Table, op PivotOp) (*table.Table, string, error) {
	spreadName, ok := Resolve(t, op.Columns)
	if !ok {
		return nil, "", columnNotFound(op.Columns)
	}
	indexNames := ResolveAll(t, op.Index)
	if len(op.Index) > 0 && len(indexNames) == 0 {
		return nil, "", columnNotFound(op.Index...)
	}
	valueNames := ResolveAll(t, op.Values)
	if len(valueNames) == 0 {
		// Everything not used as index or spread key.
		if len(op.Values) > 0 {
			return nil, "", columnNotFound(op.Values...)
		}
		for _, n := range t.ColumnNames() {
			if n != spreadName && !slices.Contains(indexNames, n) {
				valueNames = append(valueNames, n)
			}
		}
	}
	if len(valueNames) == 0 {
		return nil, "", invalidf("pivot has no value columns")
	}
	if slices.Contains(indexNames, spreadName) || slices.Contains(valueNames, spreadName) {
		return nil, "", invalidf("pivot spread column %q is also an index or value column", spreadName)
	}

	agg := op.AggFunc
	if agg == "" {
		agg = "mean"
	}
	values := columnsOf(t, valueNames)
	kinds := make([]table.Kind, len(values))
	for i, v := range values {
		k, err := aggKind(agg, v.Kind)
		if err != nil {
			return nil, "", fmt.Errorf("%s: %w", v.Name, err)
		}
		kinds[i] = k
	}

	spread, _ := t.Column(spreadName)
	index := columnsOf(t, indexNames)
	n := t.NumRows()

	// Spread keys: distinct non-missing values, sorted.
	spreadKeys := make([]any, 0)
	seen := make(map[string]bool)
	for i := 0; i < n; i++ {
		v := spread.Values[i]
		if v == nil || seen[table.Format(v)] {
			continue
		}
		seen[table.Format(v)] = true
		spreadKeys = append(spreadKeys, v)
	}
	sort.SliceStable(spreadKeys, func(i, j int) bool {
		return compareCells(spreadKeys[i], spreadKeys[j], spread.Kind) < 0
	})

	rowGroups := groupRows(n, index)
	// cells[g][key] = rows of group g with that spread key
	cells := make([]map[string][]int, len(rowGroups))
	for gi, g := range rowGroups {
		cells[gi] = make(map[string][]int)
		for _, r := range g.Rows {
			v := spread.Values[r]
			if v == nil {
				continue
			}
			k := table.Format(v)
			cells[gi][k] = append(cells[gi][k], r)
		}
	}

	out := make([]*table.Column, 0, len(index)+len(values)*len(spreadKeys))
	for _, k := range index {
		vals := make([]any, len(rowGroups))
		for gi, g := range rowGroups {
			vals[gi] = k.Values[g.Rows[0]]
		}
		out = append(out, &table.Column{Name: k.Name, Path: k.Path, Kind: k.Kind, Values: vals})
	}
	for vi, v := range values {
		for _, sk := range spreadKeys {
			label := table.Format(sk)
			kind := kinds[vi]
			vals := make([]any, len(rowGroups))
			empty := make([]bool, len(rowGroups))
			filled := false
			for gi := range rowGroups {
				rows, present := cells[gi][label]
				if !present {
					empty[gi] = true
					filled = true
					continue
				}
				vals[gi] = aggregate(v, rows, agg)
			}
			if filled && op.FillValue != nil {
				kind = applyFill(vals, empty, kind, op.FillValue)
			}
			var col *table.Column
			if len(values) == 1 {
				col = table.NewColumn(label, kind, vals)
			} else {
				col = table.NewCompoundColumn([]string{v.Name, label}, kind, vals)
			}
			out = append(out, col)
		}
	}

	result, err := table.New(out...)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrInvalidOperation, err)
	}
	line := fmt.Sprintf("pivot: %d rows x %d %s values (%s of %s)",
		len(rowGroups), len(spreadKeys), spreadName, agg, strings.Join(valueNames, ", "))
	return result, line, nil
}

// applyFill writes fill into the masked cells, converted to kind. An Int
// column widens to Float for a fractional fill; a fill that does not convert
// at all turns the column into text.
func applyFill(vals []any, mask []bool, kind table.Kind, fill any) table.Kind {
	if v, ok := convertLiteral(fill, kind); ok {
		for i, m := range mask {
			if m {
				vals[i] = v
			}
		}
		return kind
	}
	if kind == table.Int {
		if f, ok := literalFloat(fill); ok {
			for i, v := range vals {
				if mask[i] {
					vals[i] = f
				} else if iv, isInt := v.(int64); isInt {
					vals[i] = float64(iv)
				}
			}
			return table.Float
		}
	}
	for i, v := range vals {
		if mask[i] {
			vals[i] = table.Format(fill)
		} else if v != nil {
			vals[i] = table.Format(v)
		}
	}
	return table.Text
}

// ============================================================================
// VALUE_COUNTS
// ============================================================================

func applyValueCounts(t *table.Table, op ValueCountsOp) (*table.Table, string, error) {
	name, ok := Resolve(t, op.Column)
	if !ok {
		return nil, "", columnNotFound(op.Column)
	}
	col, _ := t.Column(name)
	groups := groupRows(t.NumRows(), []*table.Column{col})
	sort.SliceStable(groups, func(i, j int) bool {
		return len(groups[i].Rows) > len(groups[j].Rows)
	})
	if op.K > 0 && len(groups) > op.K {
		groups = groups[:op.K]
	}

	total := 0
	for i := 0; i < t.NumRows(); i++ {
		if col.Values[i] != nil {
			total++
		}
	}

	keys := make([]any, len(groups))
	counts := make([]any, len(groups))
	for i, g := range groups {
		keys[i] = col.Values[g.Rows[0]]
		if op.Normalize {
			counts[i] = float64(len(g.Rows)) / float64(total)
		} else {
			counts[i] = int64(len(g.Rows))
		}
	}

	countName, countKind := "count", table.Int
	if op.Normalize {
		countName, countKind = "proportion", table.Float
	}
	if countName == name {
		countName += "_" + countName
	}
	result, err := table.New(
		&table.Column{Name: name, Path: col.Path, Kind: col.Kind, Values: keys},
		table.NewColumn(countName, countKind, counts),
	)
	if err != nil {
		return nil, "", err
	}
	return result, fmt.Sprintf("value_counts: %d distinct %s values", len(groups), name), nil
}
