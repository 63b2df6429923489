package table

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"time"
)

// FromRecords builds a table from row maps, as decoded from JSON records.
// Column order follows order when given; any remaining keys are appended in
// first-seen order per row (map keys within one row are visited sorted so the
// result is deterministic).
func FromRecords(records []map[string]any, order ...string) (*Table, error) {
	names := make([]string, 0, len(order))
	seen := make(map[string]bool)
	for _, n := range order {
		if n != "" && !seen[n] {
			seen[n] = true
			names = append(names, n)
		}
	}
	for _, r := range records {
		for _, k := range sortedKeys(r) {
			if !seen[k] {
				seen[k] = true
				names = append(names, k)
			}
		}
	}

	cols := make([]*Column, len(names))
	for j, name := range names {
		raw := make([]any, len(records))
		for i, r := range records {
			raw[i] = r[name]
		}
		cols[j] = InferColumn(name, raw)
	}
	return New(cols...)
}

// InferColumn picks a single Kind for raw Go values and normalizes them to it.
// Mixed kinds collapse to Text.
func InferColumn(name string, raw []any) *Column {
	kind, ok := commonKind(raw)
	vals := make([]any, len(raw))
	for i, v := range raw {
		v = normalizeRaw(v)
		if v == nil {
			continue
		}
		if !ok {
			vals[i] = formatRaw(v)
			continue
		}
		switch kind {
		case Int:
			if n, isInt := v.(int64); isInt {
				vals[i] = n
				continue
			}
			f, _ := AsFloat(v)
			vals[i] = int64(f)
		case Float:
			f, _ := AsFloat(v)
			vals[i] = f
		default:
			vals[i] = v
		}
	}
	if !ok {
		kind = Text
	}
	return NewColumn(name, kind, vals)
}

func commonKind(raw []any) (Kind, bool) {
	kind := Text
	seen := false
	allIntegral := true
	for _, v := range raw {
		v = normalizeRaw(v)
		if v == nil {
			continue
		}
		var k Kind
		switch x := v.(type) {
		case int64:
			k = Int
		case float64:
			k = Float
			if x != math.Trunc(x) || math.IsInf(x, 0) || math.IsNaN(x) {
				allIntegral = false
			}
		case bool:
			k = Bool
		case time.Time:
			k = Time
		case string:
			k = Text
		default:
			return Text, false
		}
		if !seen {
			kind, seen = k, true
			continue
		}
		if kind == k {
			continue
		}
		if kind.IsNumeric() && k.IsNumeric() {
			kind = Float
			continue
		}
		return Text, false
	}
	if kind == Float && allIntegral {
		kind = Int
	}
	return kind, true
}

// normalizeRaw maps the Go numeric zoo and json.Number onto int64/float64.
func normalizeRaw(v any) any {
	switch x := v.(type) {
	case int:
		return int64(x)
	case int8:
		return int64(x)
	case int16:
		return int64(x)
	case int32:
		return int64(x)
	case uint8:
		return int64(x)
	case uint16:
		return int64(x)
	case uint32:
		return int64(x)
	case float32:
		return float64(x)
	case float64:
		if math.IsNaN(x) {
			return nil
		}
		return x
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return i
		}
		if f, err := x.Float64(); err == nil {
			return f
		}
		return x.String()
	case time.Time:
		return x
	case fmt.Stringer:
		return x.String()
	default:
		return v
	}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// formatRaw is Format, except integral floats lose their ".0"; JSON has no
// integer type, so 1 and 1.0 are indistinguishable here.
func formatRaw(v any) string {
	if f, ok := v.(float64); ok && f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return fmt.Sprintf("%d", int64(f))
	}
	return Format(v)
}
