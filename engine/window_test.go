package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spektr-org/tableplan/table"
)

func storeSales() *table.Table {
	return table.MustNew(
		table.NewColumn("store", table.Text, []any{"x", "y", "x", "y", "x", "x"}),
		table.NewColumn("sales", table.Int, []any{int64(10), int64(5), int64(30), int64(10), nil, int64(30)}),
	)
}

func TestWindowRankIsDenseAndDescendingByDefault(t *testing.T) {
	out, line, err := applyWindowRank(storeSales(), WindowRankOp{Column: "sales"})
	require.NoError(t, err)
	assert.Equal(t, []any{int64(2), int64(3), int64(1), int64(2), nil, int64(1)}, column(t, out, "sales_rank"))
	assert.Equal(t, "window_rank: sales_rank over 1 partitions", line)
}

func TestWindowRankPartitioned(t *testing.T) {
	out, _, err := applyWindowRank(storeSales(), WindowRankOp{Column: "sales", PartitionBy: []string{"store"}, Ascending: true, As: "r"})
	require.NoError(t, err)
	assert.Equal(t, []any{int64(1), int64(1), int64(2), int64(2), nil, int64(2)}, column(t, out, "r"))

	c, _ := out.Column("r")
	assert.Equal(t, table.Int, c.Kind)
}

func TestWindowRankOnText(t *testing.T) {
	tbl := table.MustNew(table.NewColumn("name", table.Text, []any{"b", "a", "c"}))
	out, _, err := applyWindowRank(tbl, WindowRankOp{Column: "name", Ascending: true})
	require.NoError(t, err)
	assert.Equal(t, []any{int64(2), int64(1), int64(3)}, column(t, out, "name_rank"))
}

func TestCumSum(t *testing.T) {
	out, line, err := applyCumSum(storeSales(), CumSumOp{Column: "sales", PartitionBy: []string{"store"}})
	require.NoError(t, err)
	assert.Equal(t, []any{int64(10), int64(5), int64(40), int64(15), nil, int64(70)}, column(t, out, "sales_cumsum"))
	assert.Equal(t, "cumsum: sales_cumsum over 2 partitions", line)

	tbl := table.MustNew(table.NewColumn("v", table.Float, []any{0.5, 1.0, nil, 2.0}))
	out, _, err = applyCumSum(tbl, CumSumOp{Column: "v", As: "running"})
	require.NoError(t, err)
	assert.Equal(t, []any{0.5, 1.5, nil, 3.5}, column(t, out, "running"))
}

func TestPctChange(t *testing.T) {
	tbl := table.MustNew(
		table.NewColumn("store", table.Text, []any{"x", "x", "y", "x", "y"}),
		table.NewColumn("sales", table.Int, []any{int64(100), int64(150), int64(0), int64(75), int64(10)}),
	)
	out, line, err := applyPctChange(tbl, PctChangeOp{Column: "sales", PartitionBy: []string{"store"}})
	require.NoError(t, err)
	assert.Equal(t, []any{nil, 0.5, nil, -0.5, nil}, column(t, out, "sales_pct_change"))
	assert.Equal(t, "pct_change: sales_pct_change over 1 periods", line)

	out, _, err = applyPctChange(tbl, PctChangeOp{Column: "sales", PartitionBy: []string{"store"}, Periods: -1})
	require.NoError(t, err)
	assert.Equal(t, []any{-1.0 / 3.0, 1.0, -1.0, nil, nil}, column(t, out, "sales_pct_change"))
}

func TestWindowErrors(t *testing.T) {
	_, _, err := applyCumSum(storeSales(), CumSumOp{Column: "store"})
	assert.ErrorIs(t, err, ErrIncompatibleType)

	_, _, err = applyPctChange(storeSales(), PctChangeOp{Column: "profit"})
	assert.ErrorIs(t, err, ErrColumnNotFound)

	_, _, err = applyWindowRank(storeSales(), WindowRankOp{Column: "sales", PartitionBy: []string{"country"}})
	assert.ErrorIs(t, err, ErrColumnNotFound)
}
