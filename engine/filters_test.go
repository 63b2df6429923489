package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spektr-org/tableplan/table"
)

func ordersTable() *table.Table {
	day := func(d int) any { return time.Date(2024, time.March, d, 0, 0, 0, 0, time.UTC) }
	return table.MustNew(
		table.NewColumn("region", table.Text, []any{"North", "South", "north", nil, "East"}),
		table.NewColumn("qty", table.Int, []any{int64(1), int64(5), int64(3), int64(8), nil}),
		table.NewColumn("price", table.Float, []any{9.5, 20.0, 12.25, nil, 3.0}),
		table.NewColumn("paid", table.Bool, []any{true, false, true, true, nil}),
		table.NewColumn("order_date", table.Time, []any{day(1), day(5), day(10), day(15), day(20)}),
	)
}

func filterRows(t *testing.T, conds ...Condition) []any {
	t.Helper()
	out, _, err := applyFilter(ordersTable(), FilterOp{Conditions: conds})
	require.NoError(t, err)
	assertRectangular(t, out)
	return column(t, out, "qty")
}

func TestFilterOperators(t *testing.T) {
	tests := []struct {
		name string
		cond Condition
		want []any
	}{
		{"equal text ignores case", Condition{Column: "region", Operator: "==", Value: "NORTH"}, []any{int64(1), int64(3)}},
		{"equal number", Condition{Column: "qty", Operator: "==", Value: 5.0}, []any{int64(5)}},
		{"not equal keeps missing", Condition{Column: "region", Operator: "!=", Value: "north"}, []any{int64(5), int64(8), nil}},
		{"greater", Condition{Column: "price", Operator: ">", Value: 10.0}, []any{int64(5), int64(3)}},
		{"greater or equal from text literal", Condition{Column: "qty", Operator: ">=", Value: "5"}, []any{int64(5), int64(8)}},
		{"less", Condition{Column: "qty", Operator: "<", Value: 3.0}, []any{int64(1)}},
		{"less or equal", Condition{Column: "qty", Operator: "<=", Value: 3.0}, []any{int64(1), int64(3)}},
		{"contains", Condition{Column: "region", Operator: "contains", Value: "OUT"}, []any{int64(5)}},
		{"in text", Condition{Column: "region", Operator: "in", Values: []any{"north", "east"}}, []any{int64(1), int64(3), nil}},
		{"in numbers", Condition{Column: "qty", Operator: "in", Values: []any{1.0, 8.0}}, []any{int64(1), int64(8)}},
		{"in from list value", Condition{Column: "qty", Operator: "in", Value: []any{5.0}}, []any{int64(5)}},
		{"empty in matches nothing", Condition{Column: "qty", Operator: "in", Values: []any{}}, []any{}},
		{"not in keeps missing", Condition{Column: "qty", Operator: "not_in", Values: []any{1.0, 3.0}}, []any{int64(5), int64(8), nil}},
		{"between is inclusive", Condition{Column: "qty", Operator: "between", Values: []any{3.0, 8.0}}, []any{int64(5), int64(3), int64(8)}},
		{"bool", Condition{Column: "paid", Operator: "==", Value: "yes"}, []any{int64(1), int64(3), int64(8)}},
		{"date", Condition{Column: "order_date", Operator: ">=", Value: "2024-03-10"}, []any{int64(3), int64(8), nil}},
		{"date between", Condition{Column: "order_date", Operator: "between", Values: []any{"2024-03-02", "2024-03-15"}}, []any{int64(5), int64(3), int64(8)}},
		{"fuzzy column", Condition{Column: "Regoin", Operator: "==", Value: "East"}, []any{nil}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, filterRows(t, tt.cond))
		})
	}
}

func TestFilterNumericLiteralOnTextColumn(t *testing.T) {
	codes := table.MustNew(table.NewColumn("code", table.Text, []any{"5", "A1", "B2", "Route 5"}))
	tests := []struct {
		name string
		cond Condition
		want []any
	}{
		{"equal", Condition{Column: "code", Operator: "==", Value: 5.0}, []any{"5"}},
		{"not equal", Condition{Column: "code", Operator: "!=", Value: 5.0}, []any{"A1", "B2", "Route 5"}},
		{"in", Condition{Column: "code", Operator: "in", Values: []any{5.0}}, []any{"5"}},
		{"contains", Condition{Column: "code", Operator: "contains", Value: 5.0}, []any{"5", "Route 5"}},
		{"fraction stays fractional", Condition{Column: "code", Operator: "==", Value: 5.5}, []any{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _, err := applyFilter(codes, FilterOp{Conditions: []Condition{tt.cond}})
			require.NoError(t, err)
			assert.Equal(t, tt.want, column(t, out, "code"))
		})
	}

	_, line, err := applyFilter(codes, FilterOp{Conditions: []Condition{{Column: "code", Operator: "contains", Value: 5.0}}})
	require.NoError(t, err)
	assert.Equal(t, "filter: kept 2 of 4 rows (code contains 5)", line)
}

func TestFilterConditionsAreCombinedWithAnd(t *testing.T) {
	got := filterRows(t,
		Condition{Column: "region", Operator: "==", Value: "north"},
		Condition{Column: "price", Operator: ">", Value: 10.0},
	)
	assert.Equal(t, []any{int64(3)}, got)
}

func TestFilterDropsUnusableConditions(t *testing.T) {
	out, line, err := applyFilter(ordersTable(), FilterOp{Conditions: []Condition{
		{Column: "profit", Operator: ">", Value: 1.0},
		{Column: "qty", Operator: "~=", Value: 1.0},
		{Column: "qty", Operator: ">", Value: 4.0},
	}})
	require.NoError(t, err)
	assert.Equal(t, []any{int64(5), int64(8)}, column(t, out, "qty"))
	assert.Equal(t, "filter: kept 2 of 5 rows (qty > 4.0), ignored profit >; qty ~=", line)
}

func TestFilterFailsWithoutUsableCondition(t *testing.T) {
	_, _, err := applyFilter(ordersTable(), FilterOp{})
	assert.ErrorIs(t, err, ErrInvalidOperation)

	_, _, err = applyFilter(ordersTable(), FilterOp{Conditions: []Condition{
		{Column: "profit", Operator: "==", Value: 1.0},
		{Column: "qty", Operator: "between", Values: []any{1.0}},
	}})
	assert.ErrorIs(t, err, ErrInvalidOperation)
}
