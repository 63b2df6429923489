package schema

import (
	"sort"
	"time"

	"github.com/spektr-org/tableplan/table"
)

// ============================================================================
// DESCRIBE: Column statistics for prompt building
// ============================================================================
// Per column:
//   1. Count missing and distinct values
//   2. Collect up to sampleSize distinct samples (sorted, deterministic)
//   3. Classify cardinality (low ≤ 10, medium ≤ 100, high)
//   4. Record min/max for numeric and temporal columns
// ============================================================================

const (
	// DefaultSampleSize is the number of sample values kept per column.
	DefaultSampleSize = 10
	// PreviewRows is the number of leading rows copied into a Summary.
	PreviewRows = 5
)

// Describe summarizes t. sampleSize ≤ 0 uses DefaultSampleSize.
func Describe(t *table.Table, sampleSize int) Summary {
	if sampleSize <= 0 {
		sampleSize = DefaultSampleSize
	}
	s := Summary{
		RowCount: t.NumRows(),
		Columns:  make([]ColumnMeta, 0, t.NumColumns()),
	}
	for _, c := range t.Columns() {
		s.Columns = append(s.Columns, describeColumn(c, sampleSize))
	}
	for i := 0; i < min(PreviewRows, t.NumRows()); i++ {
		row := make([]string, 0, t.NumColumns())
		for _, v := range t.Row(i) {
			row = append(row, table.Format(v))
		}
		s.Preview = append(s.Preview, row)
	}
	return s
}

func describeColumn(c *table.Column, sampleSize int) ColumnMeta {
	meta := ColumnMeta{
		Name: c.Name,
		Kind: c.Kind.String(),
	}

	unique := make(map[string]bool)
	var lo, hi any
	for _, v := range c.Values {
		if v == nil {
			meta.MissingCount++
			continue
		}
		unique[table.Format(v)] = true
		if lo == nil || less(v, lo) {
			lo = v
		}
		if hi == nil || less(hi, v) {
			hi = v
		}
	}

	meta.UniqueCount = len(unique)
	meta.SampleValues = collectSamples(unique, sampleSize)

	switch {
	case meta.UniqueCount <= 10:
		meta.CardinalityHint = "low"
	case meta.UniqueCount <= 100:
		meta.CardinalityHint = "medium"
	default:
		meta.CardinalityHint = "high"
	}

	if c.Kind.IsNumeric() || c.Kind == table.Time {
		meta.Min = table.Format(lo)
		meta.Max = table.Format(hi)
	}
	return meta
}

func less(a, b any) bool {
	if fa, ok := table.AsFloat(a); ok {
		fb, _ := table.AsFloat(b)
		return fa < fb
	}
	if ta, ok := a.(time.Time); ok {
		tb, _ := b.(time.Time)
		return ta.Before(tb)
	}
	return table.Format(a) < table.Format(b)
}

// collectSamples picks up to maxSamples representative values.
func collectSamples(uniqueSet map[string]bool, maxSamples int) []string {
	samples := make([]string, 0, len(uniqueSet))
	for v := range uniqueSet {
		samples = append(samples, v)
	}

	// Sort for deterministic output
	sort.Strings(samples)

	if len(samples) > maxSamples {
		samples = samples[:maxSamples]
	}
	return samples
}
