package schema

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spektr-org/tableplan/table"
)

func TestDescribeSalesTable(t *testing.T) {
	tbl := table.MustNew(
		table.NewColumn("region", table.Text, []any{"B", "A", "B", nil}),
		table.NewColumn("revenue", table.Int, []any{int64(300), int64(100), nil, int64(200)}),
	)

	s := Describe(tbl, 0)

	require.Len(t, s.Columns, 2)
	assert.Equal(t, 4, s.RowCount)
	assert.Equal(t, []string{"region", "revenue"}, s.ColumnNames())

	region, ok := s.Column("region")
	require.True(t, ok)
	assert.Equal(t, "string", region.Kind)
	assert.Equal(t, []string{"A", "B"}, region.SampleValues)
	assert.Equal(t, 2, region.UniqueCount)
	assert.Equal(t, 1, region.MissingCount)
	assert.Equal(t, "low", region.CardinalityHint)
	assert.Empty(t, region.Min)

	revenue, ok := s.Column("revenue")
	require.True(t, ok)
	assert.Equal(t, "int", revenue.Kind)
	assert.Equal(t, "100", revenue.Min)
	assert.Equal(t, "300", revenue.Max)

	require.Len(t, s.Preview, 4)
	assert.Equal(t, []string{"B", "300"}, s.Preview[0])
	assert.Equal(t, []string{"", "200"}, s.Preview[3])
}

func TestDescribeCardinalityAndSampleLimit(t *testing.T) {
	vals := make([]any, 150)
	for i := range vals {
		vals[i] = fmt.Sprintf("user-%03d", i)
	}
	tbl := table.MustNew(table.NewColumn("user", table.Text, vals))

	s := Describe(tbl, 5)

	assert.Equal(t, "high", s.Columns[0].CardinalityHint)
	assert.Equal(t, []string{"user-000", "user-001", "user-002", "user-003", "user-004"}, s.Columns[0].SampleValues)

	_, ok := s.Column("missing")
	assert.False(t, ok)
}
