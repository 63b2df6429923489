package schema

// ============================================================================
// SCHEMA: Describes the shape of a table for the plan requester
// ============================================================================
// The plan requester (LLM) never sees the full data. It gets a Summary:
// column names, inferred kinds, a few sample values, cardinality hints and a
// small preview. The engine itself never needs a Summary.
// ============================================================================

// Summary describes a table.
type Summary struct {
	Name     string       `json:"name,omitempty"`
	RowCount int          `json:"rowCount"`
	Columns  []ColumnMeta `json:"columns"`
	// Preview holds the first rows, formatted, aligned with Columns.
	Preview [][]string `json:"preview,omitempty"`
}

// ColumnMeta describes one column.
type ColumnMeta struct {
	Name            string   `json:"name"`
	Kind            string   `json:"kind"` // "int", "float", "bool", "string", "datetime"
	SampleValues    []string `json:"sampleValues,omitempty"`
	UniqueCount     int      `json:"uniqueCount"`
	MissingCount    int      `json:"missingCount,omitempty"`
	CardinalityHint string   `json:"cardinalityHint"` // "low", "medium", "high"
	Min             string   `json:"min,omitempty"`
	Max             string   `json:"max,omitempty"`
}

// ColumnNames returns all column names in order.
func (s Summary) ColumnNames() []string {
	names := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		names[i] = c.Name
	}
	return names
}

// Column looks up a column by exact name.
func (s Summary) Column(name string) (ColumnMeta, bool) {
	for _, c := range s.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return ColumnMeta{}, false
}
