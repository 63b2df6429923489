package schema

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spektr-org/tableplan/table"
)

func textColumn(name string, vals ...string) *table.Column {
	out := make([]any, len(vals))
	for i, v := range vals {
		out[i] = v
	}
	return table.NewColumn(name, table.Text, out)
}

func kindOf(t *testing.T, tbl *table.Table, name string) table.Kind {
	t.Helper()
	c, ok := tbl.Column(name)
	require.True(t, ok, "column %q", name)
	return c.Kind
}

func TestCoerceCurrencyAndSeparators(t *testing.T) {
	tbl := table.MustNew(textColumn("revenue", "$1,200", "€300", "£45", ""))

	out := Coerce(tbl)

	require.Equal(t, table.Int, kindOf(t, out, "revenue"))
	assert.Equal(t, int64(1200), out.Value(0, "revenue"))
	assert.Equal(t, int64(300), out.Value(1, "revenue"))
	assert.Equal(t, int64(45), out.Value(2, "revenue"))
	assert.Nil(t, out.Value(3, "revenue"))
	assert.Equal(t, table.Text, kindOf(t, tbl, "revenue"), "input table must not change")
}

func TestCoercePercentAndDecimals(t *testing.T) {
	tbl := table.MustNew(textColumn("growth", "12.5%", "3%", "-0.25%"))

	out := Coerce(tbl)

	require.Equal(t, table.Float, kindOf(t, out, "growth"))
	assert.InDelta(t, 12.5, out.Value(0, "growth"), 1e-9)
	assert.InDelta(t, 3.0, out.Value(1, "growth"), 1e-9)
	assert.InDelta(t, -0.25, out.Value(2, "growth"), 1e-9)
}

func TestCoerceThresholdIsStrict(t *testing.T) {
	// 3 of 5 parse: exactly 0.6 stays text.
	atThreshold := table.MustNew(textColumn("code", "1", "2", "3", "x", "y"))
	assert.Equal(t, table.Text, kindOf(t, Coerce(atThreshold), "code"))

	// 4 of 5 parse: above threshold, the failure becomes missing.
	above := table.MustNew(textColumn("code", "1", "2", "3", "4", "y"))
	out := Coerce(above)
	require.Equal(t, table.Int, kindOf(t, out, "code"))
	assert.Nil(t, out.Value(4, "code"))
}

func TestCoerceIgnoresMissingTokensInDenominator(t *testing.T) {
	tbl := table.MustNew(textColumn("qty", "1", "N/A", "null", "", "2", "x"))

	out := Coerce(tbl)

	// 2 parsed out of 3 non-missing = 0.67
	require.Equal(t, table.Int, kindOf(t, out, "qty"))
	assert.Nil(t, out.Value(1, "qty"))
}

func TestCoerceDatesOnlyForTemporalNames(t *testing.T) {
	tbl := table.MustNew(
		textColumn("order_date", "2026-01-15", "2026-02-01", ""),
		textColumn("label", "2026-01-15", "2026-02-01", "2026-03-01"),
		textColumn("CreatedTime", "2026-01-15 10:30:00", "2026-01-16 11:00:00", "2026-01-17 12:00:00"),
	)

	out := Coerce(tbl)

	require.Equal(t, table.Time, kindOf(t, out, "order_date"))
	assert.Equal(t, time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC), out.Value(0, "order_date"))
	assert.Nil(t, out.Value(2, "order_date"))
	assert.Equal(t, table.Text, kindOf(t, out, "label"))
	assert.Equal(t, table.Time, kindOf(t, out, "CreatedTime"))
}

func TestCoerceDateFailureLeavesText(t *testing.T) {
	tbl := table.MustNew(textColumn("ship_date", "2026-01-15", "soon", "2026-02-01"))
	assert.Equal(t, table.Text, kindOf(t, Coerce(tbl), "ship_date"))
}

func TestCoerceNumericWinsOverDate(t *testing.T) {
	tbl := table.MustNew(textColumn("date_key", "20260115", "20260116", "20260117"))
	assert.Equal(t, table.Int, kindOf(t, Coerce(tbl), "date_key"))
}

func TestCoerceLeavesTypedColumnsAlone(t *testing.T) {
	tbl := table.MustNew(table.NewColumn("n", table.Float, []any{1.5, nil}))
	assert.Same(t, tbl, Coerce(tbl))
}

func TestParseNumber(t *testing.T) {
	cases := map[string]float64{
		"1,234.50": 1234.5,
		"$ 99":     99,
		"(250)":    -250,
		"1e3":      1000,
		"₹1,00,000": 100000,
	}
	for in, want := range cases {
		d, ok := ParseNumber(in)
		require.True(t, ok, in)
		got, _ := d.Float64()
		assert.InDelta(t, want, got, 1e-9, in)
	}

	_, ok := ParseNumber("abc")
	assert.False(t, ok)
	_, ok = ParseNumber("  ")
	assert.False(t, ok)
}

func TestParseTimestampLayouts(t *testing.T) {
	for _, s := range []string{"2026-01-15", "01/15/2026", "Jan-2026", "2026-01-15T08:00:00Z", "Jan 15, 2026"} {
		_, ok := ParseTimestamp(s)
		assert.True(t, ok, s)
	}
	_, ok := ParseTimestamp("not a date")
	assert.False(t, ok)
}
