package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/spektr-org/tableplan/table"
)

func namesTable(names ...string) *table.Table {
	cols := make([]*table.Column, len(names))
	for i, n := range names {
		cols[i] = table.NewColumn(n, table.Text, []any{})
	}
	return table.MustNew(cols...)
}

func TestResolveExactBeforeCaseInsensitive(t *testing.T) {
	tbl := namesTable("sales", "Sales")

	name, ok := Resolve(tbl, "Sales")
	assert.True(t, ok)
	assert.Equal(t, "Sales", name)

	name, ok = Resolve(tbl, "sales")
	assert.True(t, ok)
	assert.Equal(t, "sales", name)
}

func TestResolveIsCaseInsensitive(t *testing.T) {
	tbl := namesTable("region", "SALES")

	for _, requested := range []string{"Sales", "sales", " SALES "} {
		name, ok := Resolve(tbl, requested)
		assert.True(t, ok, requested)
		assert.Equal(t, "SALES", name, requested)
	}
}

func TestResolveFuzzy(t *testing.T) {
	name, ok := Resolve(namesTable("Revenue"), "Reveneu")
	assert.True(t, ok)
	assert.Equal(t, "Revenue", name)

	_, ok = Resolve(namesTable("Region"), "Reveneu")
	assert.False(t, ok)
}

func TestResolvePicksClosestFuzzyMatch(t *testing.T) {
	name, ok := Resolve(namesTable("Region", "Revenue", "Returns"), "revenu")
	assert.True(t, ok)
	assert.Equal(t, "Revenue", name)
}

func TestResolveIsDeterministic(t *testing.T) {
	tbl := namesTable("unit_price", "unit_cost", "quantity")
	first, ok := Resolve(tbl, "unit_pric")
	assert.True(t, ok)
	for i := 0; i < 20; i++ {
		again, _ := Resolve(tbl, "unit_pric")
		assert.Equal(t, first, again)
	}
}

func TestResolveMisses(t *testing.T) {
	tbl := namesTable("region")
	for _, requested := range []string{"", "   ", "profit"} {
		_, ok := Resolve(tbl, requested)
		assert.False(t, ok, requested)
	}
	_, ok := Resolve(nil, "region")
	assert.False(t, ok)
}

func TestResolveAllDropsMissesAndDuplicates(t *testing.T) {
	tbl := namesTable("region", "revenue")
	got := ResolveAll(tbl, []string{"Revenue", "profit", "revenue", "REGION"})
	assert.Equal(t, []string{"revenue", "region"}, got)
}

func TestSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, Similarity("abc", "abc"))
	assert.Equal(t, 0.0, Similarity("abc", "xyz"))
	assert.InDelta(t, 12.0/14.0, Similarity("reveneu", "revenue"), 1e-9)
	assert.Less(t, Similarity("reveneu", "region"), FuzzyMatchThreshold)
}
