package engine

import (
	"fmt"
	"sort"

	"github.com/spektr-org/tableplan/table"
)

// ============================================================================
// WINDOW: Per-partition rank, running sum and period change
// ============================================================================
// Window operations append (or replace) one column and never change row
// order. Partitions keep rows in table order.
// ============================================================================

// windowInput resolves the value column and partition keys of a window op.
func windowInput(t *table.Table, column string, partitionBy []string, numeric bool) (*table.Column, []group, error) {
	name, ok := Resolve(t, column)
	if !ok {
		return nil, nil, columnNotFound(column)
	}
	col, _ := t.Column(name)
	if numeric && !col.Kind.IsNumeric() {
		return nil, nil, incompatiblef("%s column %q is not numeric", col.Kind, name)
	}
	var keys []*table.Column
	if len(partitionBy) > 0 {
		keyNames := ResolveAll(t, partitionBy)
		if len(keyNames) == 0 {
			return nil, nil, columnNotFound(partitionBy...)
		}
		keys = columnsOf(t, keyNames)
	}
	return col, partitionRows(t.NumRows(), keys), nil
}

func windowName(as, column, suffix string) string {
	if as != "" {
		return as
	}
	return column + "_" + suffix
}

func applyWindowRank(t *table.Table, op WindowRankOp) (*table.Table, string, error) {
	col, parts, err := windowInput(t, op.Column, op.PartitionBy, false)
	if err != nil {
		return nil, "", err
	}
	vals := make([]any, t.NumRows())
	for _, p := range parts {
		rows := make([]int, 0, len(p.Rows))
		for _, r := range p.Rows {
			if col.Values[r] != nil {
				rows = append(rows, r)
			}
		}
		sort.SliceStable(rows, func(a, b int) bool {
			c := compareCells(col.Values[rows[a]], col.Values[rows[b]], col.Kind)
			if op.Ascending {
				return c < 0
			}
			return c > 0
		})
		var rank int64
		for i, r := range rows {
			if i == 0 || compareCells(col.Values[r], col.Values[rows[i-1]], col.Kind) != 0 {
				rank++
			}
			vals[r] = rank
		}
	}
	name := windowName(op.As, col.Name, "rank")
	out, err := t.WithColumn(table.NewColumn(name, table.Int, vals))
	if err != nil {
		return nil, "", err
	}
	return out, fmt.Sprintf("window_rank: %s over %d partitions", name, len(parts)), nil
}

func applyCumSum(t *table.Table, op CumSumOp) (*table.Table, string, error) {
	col, parts, err := windowInput(t, op.Column, op.PartitionBy, true)
	if err != nil {
		return nil, "", err
	}
	vals := make([]any, t.NumRows())
	for _, p := range parts {
		var fsum float64
		var isum int64
		for _, r := range p.Rows {
			switch v := col.Values[r].(type) {
			case int64:
				isum += v
				vals[r] = isum
			case float64:
				fsum += v
				vals[r] = fsum
			}
		}
	}
	name := windowName(op.As, col.Name, "cumsum")
	out, err := t.WithColumn(table.NewColumn(name, col.Kind, vals))
	if err != nil {
		return nil, "", err
	}
	return out, fmt.Sprintf("cumsum: %s over %d partitions", name, len(parts)), nil
}

func applyPctChange(t *table.Table, op PctChangeOp) (*table.Table, string, error) {
	col, parts, err := windowInput(t, op.Column, op.PartitionBy, true)
	if err != nil {
		return nil, "", err
	}
	periods := op.Periods
	if periods == 0 {
		periods = 1
	}
	vals := make([]any, t.NumRows())
	for _, p := range parts {
		for i, r := range p.Rows {
			j := i - periods
			if j < 0 || j >= len(p.Rows) {
				continue
			}
			cur, ok1 := table.AsFloat(col.Values[r])
			base, ok2 := table.AsFloat(col.Values[p.Rows[j]])
			if !ok1 || !ok2 || base == 0 {
				continue
			}
			vals[r] = (cur - base) / base
		}
	}
	name := windowName(op.As, col.Name, "pct_change")
	out, err := t.WithColumn(table.NewColumn(name, table.Float, vals))
	if err != nil {
		return nil, "", err
	}
	return out, fmt.Sprintf("pct_change: %s over %d periods", name, periods), nil
}
