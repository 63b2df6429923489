package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spektr-org/tableplan/table"
)

func lineItems() *table.Table {
	return table.MustNew(
		table.NewColumn("sku", table.Text, []any{"a", "b", "c", "d"}),
		table.NewColumn("qty", table.Int, []any{int64(2), int64(0), nil, int64(5)}),
		table.NewColumn("price", table.Float, []any{1.5, 4.0, 2.0, nil}),
	)
}

// --- compute ---

func TestComputeColumnAndLiteral(t *testing.T) {
	out, line, err := applyCompute(lineItems(), ComputeOp{Name: "total", Operation: "multiply", Left: "qty", Right: "price"})
	require.NoError(t, err)
	assert.Equal(t, []any{3.0, 0.0, nil, nil}, column(t, out, "total"))
	assert.Equal(t, "compute: total = qty * price", line)

	out, _, err = applyCompute(lineItems(), ComputeOp{Name: "qty_plus", Operation: "add", Left: "qty", Right: 10.0})
	require.NoError(t, err)
	c, _ := out.Column("qty_plus")
	assert.Equal(t, table.Int, c.Kind)
	assert.Equal(t, []any{int64(12), int64(10), nil, int64(15)}, c.Values)
}

func TestComputeDivideByZeroIsMissing(t *testing.T) {
	out, _, err := applyCompute(lineItems(), ComputeOp{Name: "unit", Operation: "divide", Left: "price", Right: "qty"})
	require.NoError(t, err)
	c, _ := out.Column("unit")
	assert.Equal(t, table.Float, c.Kind)
	assert.Equal(t, []any{0.75, nil, nil, nil}, c.Values)
}

func TestComputeReplacesExistingColumn(t *testing.T) {
	out, _, err := applyCompute(lineItems(), ComputeOp{Name: "price", Operation: "subtract", Left: "price", Right: "0.5"})
	require.NoError(t, err)
	assert.Equal(t, []string{"sku", "qty", "price"}, out.ColumnNames())
	assert.Equal(t, []any{1.0, 3.5, 1.5, nil}, column(t, out, "price"))
}

func TestComputeErrors(t *testing.T) {
	tests := []struct {
		name string
		op   ComputeOp
		want error
	}{
		{"no name", ComputeOp{Operation: "add", Left: "qty", Right: 1.0}, ErrInvalidOperation},
		{"unknown operation", ComputeOp{Name: "x", Operation: "power", Left: "qty", Right: 2.0}, ErrInvalidOperation},
		{"text column", ComputeOp{Name: "x", Operation: "add", Left: "sku", Right: 1.0}, ErrIncompatibleType},
		{"unknown column", ComputeOp{Name: "x", Operation: "add", Left: "discount", Right: 1.0}, ErrColumnNotFound},
		{"missing operand", ComputeOp{Name: "x", Operation: "add", Left: "qty"}, ErrInvalidOperation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := applyCompute(lineItems(), tt.op)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

// --- dropna / fillna ---

func TestDropNA(t *testing.T) {
	out, line, err := applyDropNA(lineItems(), DropNAOp{})
	require.NoError(t, err)
	assert.Equal(t, []any{"a", "b"}, column(t, out, "sku"))
	assert.Equal(t, "dropna: removed 2 rows (any missing)", line)

	out, _, err = applyDropNA(lineItems(), DropNAOp{Columns: []string{"qty"}})
	require.NoError(t, err)
	assert.Equal(t, []any{"a", "b", "d"}, column(t, out, "sku"))

	out, _, err = applyDropNA(lineItems(), DropNAOp{Columns: []string{"qty", "price"}, How: "all"})
	require.NoError(t, err)
	assert.Equal(t, 4, out.NumRows())

	_, _, err = applyDropNA(lineItems(), DropNAOp{How: "some"})
	assert.ErrorIs(t, err, ErrInvalidOperation)
}

func TestFillNA(t *testing.T) {
	out, line, err := applyFillNA(lineItems(), FillNAOp{Values: map[string]any{"qty": 0.0, "Price": 9.99}})
	require.NoError(t, err)
	assert.Equal(t, []any{int64(2), int64(0), int64(0), int64(5)}, column(t, out, "qty"))
	assert.Equal(t, []any{1.5, 4.0, 2.0, 9.99}, column(t, out, "price"))
	assert.Equal(t, "fillna: filled 2 cells in 2 columns", line)

	out, _, err = applyFillNA(lineItems(), FillNAOp{Value: 1.0, Columns: []string{"qty"}})
	require.NoError(t, err)
	assert.Equal(t, []any{int64(2), int64(0), int64(1), int64(5)}, column(t, out, "qty"))
	assert.Equal(t, []any{1.5, 4.0, 2.0, nil}, column(t, out, "price"))

	_, line, err = applyFillNA(salesTable(), FillNAOp{Value: 0.0})
	require.NoError(t, err)
	assert.Equal(t, "fillna: no missing values", line)

	_, _, err = applyFillNA(lineItems(), FillNAOp{})
	assert.ErrorIs(t, err, ErrInvalidOperation)
}

// --- cast ---

func TestCast(t *testing.T) {
	tbl := table.MustNew(
		table.NewColumn("qty", table.Text, []any{"1", "2,000", nil}),
		table.NewColumn("flag", table.Text, []any{"yes", "no", "true"}),
		table.NewColumn("amount", table.Float, []any{1.5, 2.0, 3.0}),
	)
	out, line, err := applyCast(tbl, CastOp{Targets: []CastTarget{
		{Column: "qty", Type: "int"},
		{Column: "flag", Type: "bool"},
		{Column: "amount", Type: "string"},
	}})
	require.NoError(t, err)
	assert.Equal(t, []any{int64(1), int64(2000), nil}, column(t, out, "qty"))
	assert.Equal(t, []any{true, false, true}, column(t, out, "flag"))
	assert.Equal(t, []any{"1.5", "2.0", "3.0"}, column(t, out, "amount"))
	assert.Equal(t, "cast: qty -> int, flag -> bool, amount -> string", line)
}

func TestCastIsAllOrNothingPerColumn(t *testing.T) {
	tbl := table.MustNew(
		table.NewColumn("qty", table.Text, []any{"1", "two", "3"}),
		table.NewColumn("price", table.Text, []any{"1.5", "2", "3"}),
	)
	out, line, err := applyCast(tbl, CastOp{Targets: []CastTarget{
		{Column: "qty", Type: "int"},
		{Column: "price", Type: "float"},
		{Column: "price", Type: "decimal"},
	}})
	require.NoError(t, err)

	qty, _ := out.Column("qty")
	assert.Equal(t, table.Text, qty.Kind)
	assert.Equal(t, []any{"1", "two", "3"}, qty.Values)
	assert.Equal(t, []any{1.5, 2.0, 3.0}, column(t, out, "price"))
	assert.Equal(t, `cast: price -> float; kept qty (not all values convert to int), price (unknown type "decimal")`, line)
}

func TestCastNumbersAndTimes(t *testing.T) {
	ts := time.Date(2024, time.January, 2, 0, 0, 0, 0, time.UTC)
	tbl := table.MustNew(
		table.NewColumn("when", table.Time, []any{ts}),
		table.NewColumn("n", table.Float, []any{3.0}),
		table.NewColumn("day", table.Text, []any{"2024-01-02"}),
	)
	out, _, err := applyCast(tbl, CastOp{Targets: []CastTarget{
		{Column: "when", Type: "int"},
		{Column: "n", Type: "int"},
		{Column: "day", Type: "datetime"},
	}})
	require.NoError(t, err)
	assert.Equal(t, []any{ts.Unix()}, column(t, out, "when"))
	assert.Equal(t, []any{int64(3)}, column(t, out, "n"))
	assert.Equal(t, []any{ts}, column(t, out, "day"))
}

// --- dates ---

func TestDateParse(t *testing.T) {
	tbl := table.MustNew(table.NewColumn("shipped", table.Text, []any{"2024-03-01", "soon", nil, "03/15/2024"}))
	out, line, err := applyDateParse(tbl, DateParseOp{Columns: []string{"shipped"}})
	require.NoError(t, err)

	c, _ := out.Column("shipped")
	assert.Equal(t, table.Time, c.Kind)
	assert.Equal(t, []any{
		time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC),
		nil,
		nil,
		time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC),
	}, c.Values)
	assert.Equal(t, "date_parse: shipped (1 unparseable values set missing)", line)
}

func TestDateTrunc(t *testing.T) {
	ts := time.Date(2024, time.August, 15, 13, 45, 0, 0, time.UTC) // Thursday
	tests := []struct {
		granularity string
		want        time.Time
	}{
		{"", time.Date(2024, time.August, 15, 0, 0, 0, 0, time.UTC)},
		{"week", time.Date(2024, time.August, 12, 0, 0, 0, 0, time.UTC)},
		{"month", time.Date(2024, time.August, 1, 0, 0, 0, 0, time.UTC)},
		{"quarter", time.Date(2024, time.July, 1, 0, 0, 0, 0, time.UTC)},
		{"year", time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)},
	}
	tbl := table.MustNew(table.NewColumn("at", table.Time, []any{ts, nil}))
	for _, tt := range tests {
		t.Run(tt.granularity, func(t *testing.T) {
			out, _, err := applyDateTrunc(tbl, DateTruncOp{Column: "at", Granularity: tt.granularity})
			require.NoError(t, err)
			assert.Equal(t, []any{tt.want, nil}, column(t, out, "at"))
		})
	}
}

func TestDateTruncAsNewColumn(t *testing.T) {
	tbl := table.MustNew(table.NewColumn("at", table.Text, []any{"2024-05-20"}))
	out, line, err := applyDateTrunc(tbl, DateTruncOp{Column: "at", Granularity: "month", As: "month"})
	require.NoError(t, err)
	assert.Equal(t, []string{"at", "month"}, out.ColumnNames())
	assert.Equal(t, []any{"2024-05-20"}, column(t, out, "at"))
	assert.Equal(t, []any{time.Date(2024, time.May, 1, 0, 0, 0, 0, time.UTC)}, column(t, out, "month"))
	assert.Equal(t, "date_trunc: at to month as month", line)

	_, _, err = applyDateTrunc(tbl, DateTruncOp{Column: "at", Granularity: "fortnight"})
	assert.ErrorIs(t, err, ErrInvalidOperation)
}
