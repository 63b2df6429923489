package engine

// ============================================================================
// PLAN: Contract between the plan requester (LLM) and the engine
// ============================================================================
// A Plan is an ordered list of tagged operations. Each tag maps to exactly one
// Go type below; an unrecognized tag decodes to UnknownOp and is skipped at
// execution time. Plans arrive as JSON (see decode.go) or are built in Go.
// ============================================================================

// OpKind is the "op" tag of an operation.
type OpKind string

const (
	OpFilter      OpKind = "filter"
	OpSelect      OpKind = "select"
	OpGroupByAgg  OpKind = "groupby_agg"
	OpSort        OpKind = "sort"
	OpTopK        OpKind = "topk"
	OpCompute     OpKind = "compute"
	OpRename      OpKind = "rename"
	OpPivot       OpKind = "pivot"
	OpLimit       OpKind = "limit"
	OpDropNA      OpKind = "dropna"
	OpFillNA      OpKind = "fillna"
	OpCast        OpKind = "cast"
	OpDateParse   OpKind = "date_parse"
	OpDateTrunc   OpKind = "date_trunc"
	OpWindowRank  OpKind = "window_rank"
	OpCumSum      OpKind = "cumsum"
	OpPctChange   OpKind = "pct_change"
	OpValueCounts OpKind = "value_counts"
	OpDedupe      OpKind = "dedupe"
	OpSample      OpKind = "sample"
)

// Plan is an ordered list of operations plus the requester's explanation.
type Plan struct {
	Operations  []Operation
	Explanation string
}

// Empty reports whether the plan has nothing to execute.
func (p *Plan) Empty() bool { return p == nil || len(p.Operations) == 0 }

// Operation is one plan step. The set of implementations is closed.
type Operation interface {
	Kind() OpKind
}

// ============================================================================
// FILTER
// ============================================================================

// FilterOp keeps rows matching every condition.
type FilterOp struct {
	Conditions []Condition
}

// Condition is a single row predicate.
// Operator is one of == != > >= < <= contains in not_in between.
type Condition struct {
	Column   string
	Operator string
	Value    any
	Values   []any
}

// ============================================================================
// PROJECTION / RESHAPING
// ============================================================================

// SelectOp projects onto a subset of columns, in the given order.
type SelectOp struct {
	Columns []string
}

// Aggregation pairs a column with an aggregate function.
// Agg is one of sum mean count min max median.
type Aggregation struct {
	Column string
	Agg    string
	As     string // optional output name
}

// GroupByAggOp groups by key columns and aggregates.
type GroupByAggOp struct {
	By           []string
	Aggregations []Aggregation
}

// SortOp sorts by one or more columns. Ascending holds either one flag for all
// columns or one per column; empty means ascending.
type SortOp struct {
	By        []string
	Ascending []bool
}

// TopKOp keeps the K rows with the highest (or lowest) key.
type TopKOp struct {
	K         int
	By        string
	Ascending bool
}

// ComputeOp derives a column by binary arithmetic. Left and Right are either
// a column name (string) or a numeric literal.
type ComputeOp struct {
	Name      string
	Operation string // add subtract multiply divide
	Left      any
	Right     any
}

// RenameOp renames columns.
type RenameOp struct {
	Mapping map[string]string
}

// PivotOp spreads the distinct values of Columns into new columns.
type PivotOp struct {
	Index     []string
	Columns   string
	Values    []string
	AggFunc   string
	FillValue any
}

// LimitOp keeps the first N rows.
type LimitOp struct {
	N int
}

// ============================================================================
// NULL HANDLING / TYPES / DATES
// ============================================================================

// DropNAOp drops rows with missing values in Columns (all columns when empty).
// How is "any" (default) or "all".
type DropNAOp struct {
	Columns []string
	How     string
}

// FillNAOp fills missing values. Values (per column) wins over Value.
type FillNAOp struct {
	Value   any
	Values  map[string]any
	Columns []string
}

// CastTarget pairs a column with a declared type: int float string bool datetime.
type CastTarget struct {
	Column string
	Type   string
}

// CastOp converts columns to declared types.
type CastOp struct {
	Targets []CastTarget
}

// DateParseOp forces columns through timestamp parsing.
type DateParseOp struct {
	Columns []string
}

// DateTruncOp floors a timestamp column to day, week, month, quarter or year.
type DateTruncOp struct {
	Column      string
	Granularity string
	As          string
}

// ============================================================================
// WINDOW FUNCTIONS
// ============================================================================

// WindowRankOp adds a dense rank of Column. Ascending defaults to false:
// rank 1 is the highest value.
type WindowRankOp struct {
	Column      string
	PartitionBy []string
	Ascending   bool
	As          string
}

// CumSumOp adds a running sum of Column.
type CumSumOp struct {
	Column      string
	PartitionBy []string
	As          string
}

// PctChangeOp adds the period-over-period change of Column as a fraction.
type PctChangeOp struct {
	Column      string
	PartitionBy []string
	Periods     int
	As          string
}

// ============================================================================
// SUMMARIES / SAMPLING
// ============================================================================

// ValueCountsOp builds a frequency table of Column.
type ValueCountsOp struct {
	Column    string
	Normalize bool
	K         int
}

// DedupeOp drops duplicate rows, compared on Columns (all when empty).
// Keep is "first" (default) or "last".
type DedupeOp struct {
	Columns []string
	Keep    string
}

// SampleOp draws a random subset, by count (N) or fraction (Frac).
type SampleOp struct {
	N    int
	Frac float64
	Seed *int64
}

// UnknownOp is an operation whose tag the engine does not recognize.
type UnknownOp struct {
	Tag string
}

func (FilterOp) Kind() OpKind      { return OpFilter }
func (SelectOp) Kind() OpKind      { return OpSelect }
func (GroupByAggOp) Kind() OpKind  { return OpGroupByAgg }
func (SortOp) Kind() OpKind        { return OpSort }
func (TopKOp) Kind() OpKind        { return OpTopK }
func (ComputeOp) Kind() OpKind     { return OpCompute }
func (RenameOp) Kind() OpKind      { return OpRename }
func (PivotOp) Kind() OpKind       { return OpPivot }
func (LimitOp) Kind() OpKind       { return OpLimit }
func (DropNAOp) Kind() OpKind      { return OpDropNA }
func (FillNAOp) Kind() OpKind      { return OpFillNA }
func (CastOp) Kind() OpKind        { return OpCast }
func (DateParseOp) Kind() OpKind   { return OpDateParse }
func (DateTruncOp) Kind() OpKind   { return OpDateTrunc }
func (WindowRankOp) Kind() OpKind  { return OpWindowRank }
func (CumSumOp) Kind() OpKind      { return OpCumSum }
func (PctChangeOp) Kind() OpKind   { return OpPctChange }
func (ValueCountsOp) Kind() OpKind { return OpValueCounts }
func (DedupeOp) Kind() OpKind      { return OpDedupe }
func (SampleOp) Kind() OpKind      { return OpSample }
func (u UnknownOp) Kind() OpKind   { return OpKind(u.Tag) }
