package table

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ============================================================================
// TABLE: In-memory, column-ordered data model
// ============================================================================
// A Table is an ordered list of named columns. Every column holds exactly one
// Kind and the same number of values. A nil value is "missing".
//
// Tables are never written after construction. Operations that change data
// build a new Table; untouched columns are shared between the old and new
// table, which is safe because nobody writes into a Values slice.
// ============================================================================

// PathSeparator joins hierarchical column label parts into a flat name.
const PathSeparator = "_"

var (
	ErrDuplicateColumn = errors.New("duplicate column name")
	ErrRaggedColumns   = errors.New("columns have different lengths")
	ErrEmptyColumnName = errors.New("empty column name")
	ErrKindMismatch    = errors.New("value does not match column kind")
)

// Kind is the inferred type of a column.
type Kind int

const (
	Text Kind = iota
	Int
	Float
	Bool
	Time
)

func (k Kind) String() string {
	switch k {
	case Int:
		return "int"
	case Float:
		return "float"
	case Bool:
		return "bool"
	case Time:
		return "datetime"
	default:
		return "string"
	}
}

// IsNumeric reports whether values of this kind take part in arithmetic.
func (k Kind) IsNumeric() bool { return k == Int || k == Float }

// Holds reports whether v is a valid non-missing value of this kind:
// string, int64, float64, bool or time.Time respectively.
func (k Kind) Holds(v any) bool {
	switch k {
	case Int:
		_, ok := v.(int64)
		return ok
	case Float:
		_, ok := v.(float64)
		return ok
	case Bool:
		_, ok := v.(bool)
		return ok
	case Time:
		_, ok := v.(time.Time)
		return ok
	default:
		_, ok := v.(string)
		return ok
	}
}

// Column is a named, typed sequence of values aligned by row index.
type Column struct {
	Name string
	// Path holds the label parts of a compound column (e.g. produced by a
	// pivot or a multi-function aggregation). Nil for simple columns.
	Path   []string
	Kind   Kind
	Values []any
}

// NewColumn creates a simple column.
func NewColumn(name string, kind Kind, values []any) *Column {
	return &Column{Name: name, Kind: kind, Values: values}
}

// NewCompoundColumn creates a column whose name is materialized from path.
func NewCompoundColumn(path []string, kind Kind, values []any) *Column {
	p := make([]string, len(path))
	copy(p, path)
	return &Column{Name: JoinPath(p), Path: p, Kind: kind, Values: values}
}

// JoinPath flattens label parts, skipping empty ones.
func JoinPath(parts []string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, PathSeparator)
}

// Len returns the number of values in the column.
func (c *Column) Len() int { return len(c.Values) }

// IsMissing reports whether row i holds no value.
func (c *Column) IsMissing(i int) bool { return c.Values[i] == nil }

// Renamed returns a copy of the column header with a new simple name.
// Values are shared.
func (c *Column) Renamed(name string) *Column {
	return &Column{Name: name, Kind: c.Kind, Values: c.Values}
}

// Table is an ordered set of equal-length columns with unique names.
type Table struct {
	columns []*Column
	index   map[string]int
	rows    int
}

// New validates the column invariants and builds a table. Every non-missing
// value must have the Go type of its column's Kind; use InferColumn to
// normalize raw values first.
func New(columns ...*Column) (*Table, error) {
	t := &Table{
		columns: make([]*Column, 0, len(columns)),
		index:   make(map[string]int, len(columns)),
	}
	for i, c := range columns {
		if c == nil || c.Name == "" {
			return nil, fmt.Errorf("column %d: %w", i, ErrEmptyColumnName)
		}
		if _, dup := t.index[c.Name]; dup {
			return nil, fmt.Errorf("column %q: %w", c.Name, ErrDuplicateColumn)
		}
		if i == 0 {
			t.rows = c.Len()
		} else if c.Len() != t.rows {
			return nil, fmt.Errorf("column %q has %d values, want %d: %w", c.Name, c.Len(), t.rows, ErrRaggedColumns)
		}
		for row, v := range c.Values {
			if v != nil && !c.Kind.Holds(v) {
				return nil, fmt.Errorf("column %q row %d: %T in %s column: %w", c.Name, row, v, c.Kind, ErrKindMismatch)
			}
		}
		t.index[c.Name] = i
		t.columns = append(t.columns, c)
	}
	return t, nil
}

// MustNew is New for statically known tables; it panics on invalid input.
func MustNew(columns ...*Column) *Table {
	t, err := New(columns...)
	if err != nil {
		panic(err)
	}
	return t
}

// NumRows returns the row count.
func (t *Table) NumRows() int { return t.rows }

// NumColumns returns the column count.
func (t *Table) NumColumns() int { return len(t.columns) }

// Columns returns the columns in order. The slice is a copy; the columns are not.
func (t *Table) Columns() []*Column {
	out := make([]*Column, len(t.columns))
	copy(out, t.columns)
	return out
}

// ColumnNames returns the column names in order.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.columns))
	for i, c := range t.columns {
		names[i] = c.Name
	}
	return names
}

// Column looks up a column by exact name.
func (t *Table) Column(name string) (*Column, bool) {
	i, ok := t.index[name]
	if !ok {
		return nil, false
	}
	return t.columns[i], true
}

// Has reports whether a column with exactly this name exists.
func (t *Table) Has(name string) bool {
	_, ok := t.index[name]
	return ok
}

// Value returns the value at (row, column name).
func (t *Table) Value(row int, name string) any {
	c, ok := t.Column(name)
	if !ok || row < 0 || row >= t.rows {
		return nil
	}
	return c.Values[row]
}

// Row returns row i as a slice aligned with ColumnNames.
func (t *Table) Row(i int) []any {
	row := make([]any, len(t.columns))
	for j, c := range t.columns {
		row[j] = c.Values[i]
	}
	return row
}

// ============================================================================
// DERIVATION: build new tables from an existing one
// ============================================================================

// Take returns a new table holding the given rows, in the given order.
func (t *Table) Take(indices []int) *Table {
	cols := make([]*Column, len(t.columns))
	for j, c := range t.columns {
		vals := make([]any, len(indices))
		for k, i := range indices {
			vals[k] = c.Values[i]
		}
		cols[j] = &Column{Name: c.Name, Path: c.Path, Kind: c.Kind, Values: vals}
	}
	return &Table{columns: cols, index: t.cloneIndex(), rows: len(indices)}
}

// Head returns the first n rows.
func (t *Table) Head(n int) *Table {
	if n >= t.rows {
		return t
	}
	if n < 0 {
		n = 0
	}
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	return t.Take(idx)
}

// Select projects the table onto the named columns, in the given order.
func (t *Table) Select(names ...string) (*Table, error) {
	cols := make([]*Column, 0, len(names))
	for _, n := range names {
		c, ok := t.Column(n)
		if !ok {
			return nil, fmt.Errorf("select %q: no such column", n)
		}
		cols = append(cols, c)
	}
	if len(cols) == 0 {
		return &Table{index: map[string]int{}, rows: 0}, nil
	}
	return New(cols...)
}

// FirstColumns keeps the first n columns.
func (t *Table) FirstColumns(n int) *Table {
	if n >= len(t.columns) {
		return t
	}
	out, _ := New(t.columns[:n]...)
	return out
}

// WithColumn returns a table where c replaces the column of the same name, or
// is appended when no such column exists.
func (t *Table) WithColumn(c *Column) (*Table, error) {
	cols := t.Columns()
	if i, ok := t.index[c.Name]; ok {
		cols[i] = c
	} else {
		cols = append(cols, c)
	}
	if len(t.columns) == 0 {
		return New(c)
	}
	return New(cols...)
}

// ReplaceColumns swaps columns by position-preserving name match.
func (t *Table) ReplaceColumns(repl map[string]*Column) (*Table, error) {
	cols := t.Columns()
	for i, c := range cols {
		if r, ok := repl[c.Name]; ok {
			cols[i] = r
		}
	}
	return New(cols...)
}

func (t *Table) cloneIndex() map[string]int {
	idx := make(map[string]int, len(t.index))
	for k, v := range t.index {
		idx[k] = v
	}
	return idx
}

// ============================================================================
// VALUE HELPERS
// ============================================================================

// Format renders a value for display and string comparison.
// Missing values render as the empty string.
func Format(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case int64:
		return fmt.Sprintf("%d", x)
	case float64:
		if x == float64(int64(x)) && x < 1e15 && x > -1e15 {
			return fmt.Sprintf("%.1f", x)
		}
		return fmt.Sprintf("%g", x)
	case bool:
		if x {
			return "true"
		}
		return "false"
	case time.Time:
		if x.Hour() == 0 && x.Minute() == 0 && x.Second() == 0 && x.Nanosecond() == 0 {
			return x.Format("2006-01-02")
		}
		return x.Format("2006-01-02 15:04:05")
	default:
		return fmt.Sprint(x)
	}
}

// AsFloat returns the numeric value of an Int or Float cell.
func AsFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case int64:
		return float64(x), true
	case float64:
		return x, true
	default:
		return 0, false
	}
}
