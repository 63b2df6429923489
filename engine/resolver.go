package engine

import (
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/spektr-org/tableplan/table"
)

// ============================================================================
// COLUMN RESOLVER: Requested name → actual column
// ============================================================================
// Plans are written by a language model, so column names arrive with wrong
// case, typos and stray whitespace. Resolution order, first match wins:
//   1. Exact match
//   2. Case-insensitive match
//   3. Fuzzy match: best similarity ratio over lower-cased names, accepted
//      only at or above FuzzyMatchThreshold
// A miss is reported with ok=false; it is never an error.
// ============================================================================

// FuzzyMatchThreshold is the minimum similarity ratio for a fuzzy match.
const FuzzyMatchThreshold = 0.8

// Resolve maps a requested column name to an existing column of t.
func Resolve(t *table.Table, requested string) (string, bool) {
	if t == nil {
		return "", false
	}
	if t.Has(requested) {
		return requested, true
	}

	names := t.ColumnNames()
	want := strings.ToLower(strings.TrimSpace(requested))
	if want == "" {
		return "", false
	}

	for _, n := range names {
		if strings.ToLower(n) == want {
			return n, true
		}
	}

	best, bestScore := "", 0.0
	for _, n := range names {
		score := Similarity(want, strings.ToLower(n))
		if score > bestScore {
			best, bestScore = n, score
		}
	}
	if bestScore >= FuzzyMatchThreshold {
		return best, true
	}
	return "", false
}

// ResolveAll resolves each requested name, dropping misses and duplicates.
func ResolveAll(t *table.Table, requested []string) []string {
	out := make([]string, 0, len(requested))
	seen := make(map[string]bool, len(requested))
	for _, r := range requested {
		name, ok := Resolve(t, r)
		if !ok || seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	return out
}

// Similarity is the Ratcliff/Obershelp ratio of a and b, compared rune by
// rune: 2*M/T where M is the number of matched runes and T the total.
func Similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	m := difflib.NewMatcher(splitRunes(a), splitRunes(b))
	return m.Ratio()
}

func splitRunes(s string) []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}
