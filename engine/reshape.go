package engine

import (
	"fmt"
	"math"
	"math/rand/v2"
	"slices"
	"sort"
	"strings"

	"github.com/spektr-org/tableplan/table"
)

// ============================================================================
// RESHAPE: Projection, ordering and row-subset operations
// ============================================================================

func applySelect(t *table.Table, op SelectOp) (*table.Table, string, error) {
	names := ResolveAll(t, op.Columns)
	if len(names) == 0 {
		return nil, "", columnNotFound(op.Columns...)
	}
	out, err := t.Select(names...)
	if err != nil {
		return nil, "", err
	}
	return out, "select: " + strings.Join(names, ", "), nil
}

func applyRename(t *table.Table, op RenameOp) (*table.Table, string, error) {
	// Map iteration order is random; resolve sources in a fixed order.
	sources := make([]string, 0, len(op.Mapping))
	for k := range op.Mapping {
		sources = append(sources, k)
	}
	sort.Strings(sources)

	renames := make(map[string]string)
	for _, src := range sources {
		dst := op.Mapping[src]
		name, ok := Resolve(t, src)
		if !ok || dst == "" {
			continue
		}
		renames[name] = dst
	}
	if len(renames) == 0 {
		return t, "rename: nothing to rename", nil
	}

	cols := t.Columns()
	pairs := make([]string, 0, len(renames))
	for i, c := range cols {
		if dst, ok := renames[c.Name]; ok && dst != c.Name {
			cols[i] = c.Renamed(dst)
			pairs = append(pairs, fmt.Sprintf("%s -> %s", c.Name, dst))
		}
	}
	out, err := table.New(cols...)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrInvalidOperation, err)
	}
	if len(pairs) == 0 {
		return out, "rename: nothing to rename", nil
	}
	return out, "rename: " + strings.Join(pairs, ", "), nil
}

func applyLimit(t *table.Table, op LimitOp) (*table.Table, string, error) {
	if op.N < 0 {
		return nil, "", invalidf("limit with negative n %d", op.N)
	}
	out := t.Head(op.N)
	return out, fmt.Sprintf("limit: %d rows", out.NumRows()), nil
}

// ============================================================================
// SORT / TOPK
// ============================================================================

func applySort(t *table.Table, op SortOp) (*table.Table, string, error) {
	type key struct {
		col *table.Column
		asc bool
	}
	keys := make([]key, 0, len(op.By))
	descs := make([]string, 0, len(op.By))
	seen := make(map[string]bool)
	for i, requested := range op.By {
		name, ok := Resolve(t, requested)
		if !ok || seen[name] {
			continue
		}
		seen[name] = true
		asc := true
		switch {
		case len(op.Ascending) == 1:
			asc = op.Ascending[0]
		case i < len(op.Ascending):
			asc = op.Ascending[i]
		}
		col, _ := t.Column(name)
		keys = append(keys, key{col: col, asc: asc})
		dir := "asc"
		if !asc {
			dir = "desc"
		}
		descs = append(descs, name+" "+dir)
	}
	if len(keys) == 0 {
		return nil, "", columnNotFound(op.By...)
	}

	idx := identity(t.NumRows())
	sort.SliceStable(idx, func(a, b int) bool {
		for _, k := range keys {
			va, vb := k.col.Values[idx[a]], k.col.Values[idx[b]]
			c := compareCells(va, vb, k.col.Kind)
			if c == 0 {
				continue
			}
			// Missing stays last in both directions.
			if !k.asc && va != nil && vb != nil {
				c = -c
			}
			return c < 0
		}
		return false
	})
	return t.Take(idx), "sort: by " + strings.Join(descs, ", "), nil
}

func applyTopK(t *table.Table, op TopKOp) (*table.Table, string, error) {
	k := op.K
	if k < 0 {
		return nil, "", invalidf("topk with negative k %d", k)
	}
	name, ok := Resolve(t, op.By)
	var col *table.Column
	if ok {
		col, _ = t.Column(name)
	}
	if col == nil || !col.Kind.IsNumeric() {
		out := t.Head(k)
		return out, fmt.Sprintf("topk: first %d rows (no numeric key %q)", out.NumRows(), op.By), nil
	}

	idx := make([]int, 0, t.NumRows())
	for i := 0; i < t.NumRows(); i++ {
		if col.Values[i] != nil {
			idx = append(idx, i)
		}
	}
	sort.SliceStable(idx, func(a, b int) bool {
		fa, _ := table.AsFloat(col.Values[idx[a]])
		fb, _ := table.AsFloat(col.Values[idx[b]])
		if op.Ascending {
			return fa < fb
		}
		return fa > fb
	})
	if len(idx) > k {
		idx = idx[:k]
	}
	dir := "highest"
	if op.Ascending {
		dir = "lowest"
	}
	return t.Take(idx), fmt.Sprintf("topk: %d rows by %s (%s)", len(idx), name, dir), nil
}

// ============================================================================
// DEDUPE / SAMPLE
// ============================================================================

func applyDedupe(t *table.Table, op DedupeOp) (*table.Table, string, error) {
	names := t.ColumnNames()
	if len(op.Columns) > 0 {
		names = ResolveAll(t, op.Columns)
		if len(names) == 0 {
			return nil, "", columnNotFound(op.Columns...)
		}
	}
	keep := strings.ToLower(op.Keep)
	if keep == "" {
		keep = "first"
	}
	if keep != "first" && keep != "last" {
		return nil, "", invalidf("dedupe keep must be first or last, got %q", op.Keep)
	}

	cols := columnsOf(t, names)
	n := t.NumRows()
	seen := make(map[string]bool, n)
	idx := make([]int, 0, n)
	if keep == "first" {
		for i := 0; i < n; i++ {
			k := rowKey(cols, i)
			if !seen[k] {
				seen[k] = true
				idx = append(idx, i)
			}
		}
	} else {
		for i := n - 1; i >= 0; i-- {
			k := rowKey(cols, i)
			if !seen[k] {
				seen[k] = true
				idx = append(idx, i)
			}
		}
		slices.Reverse(idx)
	}
	return t.Take(idx), fmt.Sprintf("dedupe: removed %d duplicate rows (keep %s)", n-len(idx), keep), nil
}

func applySample(t *table.Table, op SampleOp, cfg *config) (*table.Table, string, error) {
	rows := t.NumRows()
	var n int
	switch {
	case op.N > 0:
		n = op.N
	case op.Frac > 0:
		if op.Frac > 1 {
			return nil, "", invalidf("sample frac %g is greater than 1", op.Frac)
		}
		n = int(math.Round(op.Frac * float64(rows)))
	default:
		return nil, "", invalidf("sample needs n or frac")
	}
	n = min(n, rows)

	var r *rand.Rand
	switch {
	case op.Seed != nil:
		seed := uint64(*op.Seed)
		r = rand.New(rand.NewPCG(seed, seed))
	case cfg.Rand != nil:
		r = cfg.Rand
	}
	var perm []int
	if r != nil {
		perm = r.Perm(rows)
	} else {
		perm = rand.Perm(rows)
	}
	idx := perm[:n]
	// Keep the sampled rows in table order.
	slices.Sort(idx)
	line := fmt.Sprintf("sample: %d of %d rows", n, rows)
	if op.Seed != nil {
		line += fmt.Sprintf(" (seed %d)", *op.Seed)
	}
	return t.Take(idx), line, nil
}

func identity(n int) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	return idx
}
