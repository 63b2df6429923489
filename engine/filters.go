package engine

import (
	"fmt"
	"strings"

	"github.com/spektr-org/tableplan/table"
)

// ============================================================================
// FILTERS: Row predicates over resolved columns
// ============================================================================
// Single pass: every row is checked against ALL applied conditions.
// Conditions are AND-combined; values inside in/not_in are OR-combined.
// A condition whose column does not resolve, or whose operator is unknown,
// is left out. The filter fails only when no condition is left.
// ============================================================================

// predicate tests one row of a resolved column.
type predicate struct {
	col   *table.Column
	desc  string
	match func(cell any) bool
}

func applyFilter(t *table.Table, op FilterOp) (*table.Table, string, error) {
	if len(op.Conditions) == 0 {
		return nil, "", invalidf("filter without conditions")
	}

	preds := make([]predicate, 0, len(op.Conditions))
	var dropped []string
	for _, cond := range op.Conditions {
		p, err := buildPredicate(t, cond)
		if err != nil {
			dropped = append(dropped, fmt.Sprintf("%s %s", cond.Column, cond.Operator))
			continue
		}
		preds = append(preds, p)
	}
	if len(preds) == 0 {
		return nil, "", invalidf("no usable filter condition (%s)", strings.Join(dropped, "; "))
	}

	n := t.NumRows()
	indices := make([]int, 0, n)
	for i := 0; i < n; i++ {
		pass := true
		for _, p := range preds {
			if !p.match(p.col.Values[i]) {
				pass = false
				break
			}
		}
		if pass {
			indices = append(indices, i)
		}
	}

	descs := make([]string, len(preds))
	for i, p := range preds {
		descs[i] = p.desc
	}
	line := fmt.Sprintf("filter: kept %d of %d rows (%s)", len(indices), n, strings.Join(descs, " and "))
	if len(dropped) > 0 {
		line += fmt.Sprintf(", ignored %s", strings.Join(dropped, "; "))
	}
	return t.Take(indices), line, nil
}

func buildPredicate(t *table.Table, cond Condition) (predicate, error) {
	name, ok := Resolve(t, cond.Column)
	if !ok {
		return predicate{}, columnNotFound(cond.Column)
	}
	col, _ := t.Column(name)
	kind := col.Kind
	p := predicate{col: col}

	switch cond.Operator {
	case "==":
		p.desc = fmt.Sprintf("%s == %s", name, table.Format(cond.Value))
		p.match = func(cell any) bool {
			return cell != nil && equalCell(cell, kind, cond.Value)
		}
	case "!=":
		p.desc = fmt.Sprintf("%s != %s", name, table.Format(cond.Value))
		p.match = func(cell any) bool {
			return cell == nil || !equalCell(cell, kind, cond.Value)
		}
	case ">", ">=", "<", "<=":
		operator := cond.Operator
		p.desc = fmt.Sprintf("%s %s %s", name, operator, table.Format(cond.Value))
		p.match = func(cell any) bool {
			c, ok := compareCell(cell, kind, cond.Value)
			if !ok {
				return false
			}
			switch operator {
			case ">":
				return c > 0
			case ">=":
				return c >= 0
			case "<":
				return c < 0
			default:
				return c <= 0
			}
		}
	case "contains":
		needle := strings.ToLower(literalText(cond.Value))
		p.desc = fmt.Sprintf("%s contains %s", name, needle)
		p.match = func(cell any) bool {
			return cell != nil && strings.Contains(strings.ToLower(table.Format(cell)), needle)
		}
	case "in", "not_in":
		set := conditionValues(cond)
		negate := cond.Operator == "not_in"
		p.desc = fmt.Sprintf("%s %s %d values", name, cond.Operator, len(set))
		var lower map[string]bool
		if kind == table.Text {
			lower = toLowerSet(set)
		}
		p.match = func(cell any) bool {
			if cell == nil {
				return negate
			}
			var hit bool
			if lower != nil {
				hit = lower[strings.ToLower(table.Format(cell))]
			} else {
				for _, v := range set {
					if equalCell(cell, kind, v) {
						hit = true
						break
					}
				}
			}
			return hit != negate
		}
	case "between":
		bounds := conditionValues(cond)
		if len(bounds) != 2 {
			return predicate{}, invalidf("between needs two bounds, got %d", len(bounds))
		}
		lo, hi := bounds[0], bounds[1]
		p.desc = fmt.Sprintf("%s between %s and %s", name, table.Format(lo), table.Format(hi))
		p.match = func(cell any) bool {
			a, ok1 := compareCell(cell, kind, lo)
			b, ok2 := compareCell(cell, kind, hi)
			return ok1 && ok2 && a >= 0 && b <= 0
		}
	default:
		return predicate{}, invalidf("unknown filter operator %q", cond.Operator)
	}
	return p, nil
}

// conditionValues returns the value list of an in/not_in/between condition.
// A list-valued Value is accepted in place of Values.
func conditionValues(cond Condition) []any {
	if len(cond.Values) > 0 {
		return cond.Values
	}
	switch v := cond.Value.(type) {
	case []any:
		return v
	case nil:
		return nil
	default:
		return []any{v}
	}
}

// toLowerSet converts literals to a lowercase lookup set.
func toLowerSet(items []any) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		set[strings.ToLower(literalText(item))] = true
	}
	return set
}
