package engine

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ============================================================================
// PLAN DECODING: JSON → Plan
// ============================================================================
// Accepted shapes:
//   {"operations": [ {...}, ... ], "explanation": "..."}
//   [ {...}, ... ]
// Each operation object needs an "op" tag. Field decoding is lenient: common
// aliases are accepted ("group_by" for "by", "new_column" for "name", ...),
// and fields of the wrong JSON type fall back to their defaults. Only input
// that is not a list of operations at all is rejected.
// ============================================================================

// ErrMalformedPlan is returned for JSON that is not a plan at all.
var ErrMalformedPlan = errors.New("malformed plan")

const (
	// DefaultTopK is used when a topk operation omits k.
	DefaultTopK = 10
	// DefaultLimit is used when a limit operation omits n.
	DefaultLimit = 10
)

// DecodePlan parses a JSON plan.
func DecodePlan(data []byte) (*Plan, error) {
	var p Plan
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (p *Plan) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	*p = Plan{}
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}

	var rawOps []json.RawMessage
	switch data[0] {
	case '[':
		if err := json.Unmarshal(data, &rawOps); err != nil {
			return fmt.Errorf("%w: %v", ErrMalformedPlan, err)
		}
	case '{':
		var envelope struct {
			Operations  []json.RawMessage `json:"operations"`
			Steps       []json.RawMessage `json:"steps"`
			Explanation string            `json:"explanation"`
		}
		if err := json.Unmarshal(data, &envelope); err != nil {
			return fmt.Errorf("%w: %v", ErrMalformedPlan, err)
		}
		rawOps = envelope.Operations
		if rawOps == nil {
			rawOps = envelope.Steps
		}
		p.Explanation = envelope.Explanation
	default:
		return fmt.Errorf("%w: expected object or array", ErrMalformedPlan)
	}

	p.Operations = make([]Operation, 0, len(rawOps))
	for _, raw := range rawOps {
		p.Operations = append(p.Operations, decodeOperation(raw))
	}
	return nil
}

func decodeOperation(raw json.RawMessage) Operation {
	var f fields
	if err := json.Unmarshal(raw, &f); err != nil || f == nil {
		return UnknownOp{}
	}
	tag := strings.ToLower(strings.TrimSpace(f.str("op")))

	switch OpKind(tag) {
	case OpFilter:
		return decodeFilter(f)
	case OpSelect:
		return SelectOp{Columns: f.strs("columns", "cols", "column")}
	case OpGroupByAgg:
		return GroupByAggOp{
			By:           f.strs("by", "group_by", "groupby", "keys"),
			Aggregations: f.aggregations("aggregations", "aggs", "agg"),
		}
	case OpSort:
		asc := f.bools("ascending", "asc")
		if asc == nil {
			if order := strings.ToLower(f.str("order", "direction")); order != "" {
				asc = []bool{!strings.HasPrefix(order, "desc")}
			}
		}
		return SortOp{By: f.strs("by", "columns", "column"), Ascending: asc}
	case OpTopK:
		return TopKOp{
			K:         f.intOr(DefaultTopK, "k", "n", "top", "limit"),
			By:        f.str("by", "column", "order_by"),
			Ascending: f.boolOr(false, "ascending", "asc"),
		}
	case OpCompute:
		return decodeCompute(f)
	case OpRename:
		return RenameOp{Mapping: f.strMap("mapping", "columns", "rename")}
	case OpPivot:
		return PivotOp{
			Index:     f.strs("index", "rows"),
			Columns:   f.str("columns", "column", "pivot"),
			Values:    f.strs("values", "value"),
			AggFunc:   normalizeAgg(f.str("aggfunc", "agg", "func")),
			FillValue: f.value("fill_value", "fill"),
		}
	case OpLimit:
		return LimitOp{N: f.intOr(DefaultLimit, "n", "limit", "k")}
	case OpDropNA:
		return DropNAOp{Columns: f.strs("columns", "subset", "column"), How: strings.ToLower(f.str("how"))}
	case OpFillNA:
		return FillNAOp{
			Value:   f.value("value", "fill_value"),
			Values:  f.anyMap("values", "mapping"),
			Columns: f.strs("columns", "subset", "column"),
		}
	case OpCast:
		return decodeCast(f)
	case OpDateParse:
		return DateParseOp{Columns: f.strs("columns", "column")}
	case OpDateTrunc:
		return DateTruncOp{
			Column:      f.str("column", "by"),
			Granularity: strings.ToLower(f.str("granularity", "unit", "freq", "period")),
			As:          f.str("as", "new_column", "name"),
		}
	case OpWindowRank:
		return WindowRankOp{
			Column:      f.str("column", "by", "order_by"),
			PartitionBy: f.strs("partition_by", "partition", "group_by"),
			Ascending:   f.boolOr(false, "ascending", "asc"),
			As:          f.str("as", "new_column", "name"),
		}
	case OpCumSum:
		return CumSumOp{
			Column:      f.str("column", "by"),
			PartitionBy: f.strs("partition_by", "partition", "group_by"),
			As:          f.str("as", "new_column", "name"),
		}
	case OpPctChange:
		return PctChangeOp{
			Column:      f.str("column", "by"),
			PartitionBy: f.strs("partition_by", "partition", "group_by"),
			Periods:     f.intOr(1, "periods", "period"),
			As:          f.str("as", "new_column", "name"),
		}
	case OpValueCounts:
		return ValueCountsOp{
			Column:    f.str("column", "by"),
			Normalize: f.boolOr(false, "normalize"),
			K:         f.intOr(0, "k", "top_k", "top", "limit"),
		}
	case OpDedupe:
		return DedupeOp{Columns: f.strs("columns", "subset", "column"), Keep: strings.ToLower(f.str("keep"))}
	case OpSample:
		op := SampleOp{N: f.intOr(0, "n"), Frac: f.floatOr(0, "frac", "fraction")}
		if seed, ok := f.num("seed", "random_state"); ok {
			s := int64(seed)
			op.Seed = &s
		}
		return op
	default:
		return UnknownOp{Tag: tag}
	}
}

func decodeFilter(f fields) FilterOp {
	var conds []Condition
	for _, raw := range f.rawList("conditions", "filters", "where") {
		var cf fields
		if err := json.Unmarshal(raw, &cf); err != nil || cf == nil {
			continue
		}
		conds = append(conds, decodeCondition(cf))
	}
	if conds == nil && f.has("column") {
		conds = append(conds, decodeCondition(f))
	}
	return FilterOp{Conditions: conds}
}

func decodeCondition(f fields) Condition {
	op := f.str("operator", "operation", "cmp")
	if op == "" && f.str("op") != string(OpFilter) {
		op = f.str("op")
	}
	c := Condition{
		Column:   f.str("column", "col", "field"),
		Operator: normalizeOperator(op),
		Value:    f.value("value"),
	}
	if f.has("values") {
		c.Values = f.values("values")
	}
	return c
}

func decodeCompute(f fields) ComputeOp {
	op := ComputeOp{
		Name:      f.str("name", "new_column", "as", "output"),
		Operation: normalizeArith(f.str("operation", "operator", "fn", "func")),
		Left:      f.value("left", "lhs", "a"),
		Right:     f.value("right", "rhs", "b"),
	}
	if op.Left == nil && op.Right == nil {
		if operands := f.values("columns", "operands"); len(operands) == 2 {
			op.Left, op.Right = operands[0], operands[1]
		}
	}
	return op
}

func decodeCast(f fields) CastOp {
	var targets []CastTarget
	if m := f.strMap("columns", "dtypes", "types"); len(m) > 0 {
		for _, col := range sortedStringKeys(m) {
			targets = append(targets, CastTarget{Column: col, Type: normalizeCastType(m[col])})
		}
		return CastOp{Targets: targets}
	}
	typ := normalizeCastType(f.str("type", "dtype", "to"))
	for _, col := range f.strs("columns", "column") {
		targets = append(targets, CastTarget{Column: col, Type: typ})
	}
	return CastOp{Targets: targets}
}

// ============================================================================
// ALIAS NORMALIZATION
// ============================================================================

func normalizeOperator(op string) string {
	op = strings.ToLower(strings.TrimSpace(op))
	switch op {
	case "=", "eq", "equals", "is":
		return "=="
	case "<>", "ne", "neq", "not_equals":
		return "!="
	case "gt":
		return ">"
	case "gte", "ge":
		return ">="
	case "lt":
		return "<"
	case "lte", "le":
		return "<="
	case "not in", "nin", "notin":
		return "not_in"
	case "like", "includes":
		return "contains"
	case "":
		return "=="
	default:
		return op
	}
}

func normalizeAgg(agg string) string {
	agg = strings.ToLower(strings.TrimSpace(agg))
	switch agg {
	case "avg", "average":
		return "mean"
	case "total":
		return "sum"
	case "minimum":
		return "min"
	case "maximum":
		return "max"
	case "size":
		return "count"
	default:
		return agg
	}
}

func normalizeArith(op string) string {
	op = strings.ToLower(strings.TrimSpace(op))
	switch op {
	case "+", "plus", "sum":
		return "add"
	case "-", "minus", "sub", "difference":
		return "subtract"
	case "*", "times", "mul", "product":
		return "multiply"
	case "/", "div", "ratio":
		return "divide"
	default:
		return op
	}
}

func normalizeCastType(typ string) string {
	typ = strings.ToLower(strings.TrimSpace(typ))
	switch typ {
	case "integer", "int64", "int32":
		return "int"
	case "float64", "double", "number", "numeric":
		return "float"
	case "str", "text", "object":
		return "string"
	case "boolean":
		return "bool"
	case "date", "timestamp", "datetime64", "time":
		return "datetime"
	default:
		return typ
	}
}

// ============================================================================
// FIELD ACCESS: tolerant readers over a raw JSON object
// ============================================================================

type fields map[string]json.RawMessage

func (f fields) has(key string) bool {
	_, ok := f[key]
	return ok
}

func (f fields) first(keys ...string) (json.RawMessage, bool) {
	for _, k := range keys {
		if raw, ok := f[k]; ok && !bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
			return raw, true
		}
	}
	return nil, false
}

func (f fields) str(keys ...string) string {
	raw, ok := f.first(keys...)
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}

// strs reads a string or a list of strings.
func (f fields) strs(keys ...string) []string {
	raw, ok := f.first(keys...)
	if !ok {
		return nil
	}
	var one string
	if err := json.Unmarshal(raw, &one); err == nil {
		return []string{one}
	}
	var many []any
	if err := json.Unmarshal(raw, &many); err != nil {
		return nil
	}
	out := make([]string, 0, len(many))
	for _, v := range many {
		switch x := v.(type) {
		case string:
			out = append(out, x)
		case float64:
			out = append(out, strconv.FormatFloat(x, 'f', -1, 64))
		}
	}
	return out
}

func (f fields) num(keys ...string) (float64, bool) {
	raw, ok := f.first(keys...)
	if !ok {
		return 0, false
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return n, true
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if v, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			return v, true
		}
	}
	return 0, false
}

func (f fields) intOr(def int, keys ...string) int {
	if n, ok := f.num(keys...); ok {
		return int(n)
	}
	return def
}

func (f fields) floatOr(def float64, keys ...string) float64 {
	if n, ok := f.num(keys...); ok {
		return n
	}
	return def
}

func (f fields) boolOr(def bool, keys ...string) bool {
	if b := f.bools(keys...); len(b) > 0 {
		return b[0]
	}
	return def
}

// bools reads a bool, a list of bools, or "asc"/"desc"-style strings.
func (f fields) bools(keys ...string) []bool {
	raw, ok := f.first(keys...)
	if !ok {
		return nil
	}
	var many []any
	if err := json.Unmarshal(raw, &many); err != nil {
		var one any
		if err := json.Unmarshal(raw, &one); err != nil {
			return nil
		}
		many = []any{one}
	}
	out := make([]bool, 0, len(many))
	for _, v := range many {
		if b, ok := toBool(v); ok {
			out = append(out, b)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func toBool(v any) (bool, bool) {
	switch x := v.(type) {
	case bool:
		return x, true
	case float64:
		return x != 0, true
	case string:
		switch strings.ToLower(strings.TrimSpace(x)) {
		case "true", "yes", "1", "asc", "ascending":
			return true, true
		case "false", "no", "0", "desc", "descending":
			return false, true
		}
	}
	return false, false
}

func (f fields) value(keys ...string) any {
	raw, ok := f.first(keys...)
	if !ok {
		return nil
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil
	}
	return v
}

// values reads a list; a scalar becomes a one-element list.
func (f fields) values(keys ...string) []any {
	v := f.value(keys...)
	switch x := v.(type) {
	case nil:
		return []any{}
	case []any:
		return x
	default:
		return []any{x}
	}
}

func (f fields) rawList(keys ...string) []json.RawMessage {
	raw, ok := f.first(keys...)
	if !ok {
		return nil
	}
	var list []json.RawMessage
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil
	}
	return list
}

func (f fields) strMap(keys ...string) map[string]string {
	raw, ok := f.first(keys...)
	if !ok {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		if s, ok := v.(string); ok {
			out[k] = s
		}
	}
	return out
}

func (f fields) anyMap(keys ...string) map[string]any {
	raw, ok := f.first(keys...)
	if !ok {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil
	}
	return m
}

// aggregations reads [{"column":..,"agg":..}] or {"col": "agg" | ["agg", ...]}.
func (f fields) aggregations(keys ...string) []Aggregation {
	raw, ok := f.first(keys...)
	if !ok {
		return nil
	}

	var list []fields
	if err := json.Unmarshal(raw, &list); err == nil {
		out := make([]Aggregation, 0, len(list))
		for _, a := range list {
			if a == nil {
				continue
			}
			out = append(out, Aggregation{
				Column: a.str("column", "col", "field"),
				Agg:    normalizeAgg(a.str("agg", "func", "function", "aggfunc", "op")),
				As:     a.str("as", "alias", "name"),
			})
		}
		return out
	}

	var byColumn fields
	if err := json.Unmarshal(raw, &byColumn); err != nil {
		return nil
	}
	cols := make([]string, 0, len(byColumn))
	for c := range byColumn {
		cols = append(cols, c)
	}
	sort.Strings(cols)
	var out []Aggregation
	for _, c := range cols {
		for _, agg := range byColumn.strs(c) {
			out = append(out, Aggregation{Column: c, Agg: normalizeAgg(agg)})
		}
	}
	return out
}

func sortedStringKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
