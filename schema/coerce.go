package schema

import (
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cast"

	"github.com/spektr-org/tableplan/table"
)

// ============================================================================
// TYPE COERCION: Heuristic numeric/date inference for raw text columns
// ============================================================================
// Uploaded data arrives as text. Before a plan runs, every Text column is
// inspected once:
//   1. Strip currency symbols, thousands separators and percent signs, then
//      parse. More than NumericCoercionThreshold of the non-missing values
//      parsing → the column becomes Int or Float. Failures become missing.
//   2. Otherwise, if the column name looks temporal ("date", "time",
//      "timestamp"), parse every value as a timestamp. One failure → the
//      column stays text.
// Non-text columns pass through untouched.
// ============================================================================

// NumericCoercionThreshold is the share of non-missing values that must parse
// as numbers for a text column to become numeric. The comparison is strict.
const NumericCoercionThreshold = 0.6

var temporalName = regexp.MustCompile(`(?i)date|time|timestamp`)

// missingTokens are text spellings of "no value".
var missingTokens = map[string]bool{
	"": true, "null": true, "NULL": true, "None": true, "none": true,
	"nan": true, "NaN": true, "NAN": true, "N/A": true, "n/a": true, "NA": true, "#N/A": true,
}

var numericNoise = strings.NewReplacer(
	"$", "", "€", "", "£", "", "¥", "", "₹", "",
	",", "", "%", "", " ", "", "\u00a0", "",
)

// Coerce returns a table whose text columns have been converted to numeric or
// timestamp columns where the content supports it. The input is not modified.
func Coerce(t *table.Table) *table.Table {
	repl := make(map[string]*table.Column)
	for _, c := range t.Columns() {
		if c.Kind != table.Text {
			continue
		}
		if nc, ok := coerceNumeric(c); ok {
			repl[c.Name] = nc
			continue
		}
		if temporalName.MatchString(c.Name) {
			if tc, ok := coerceTemporal(c); ok {
				repl[c.Name] = tc
			}
		}
	}
	if len(repl) == 0 {
		return t
	}
	out, err := t.ReplaceColumns(repl)
	if err != nil {
		// Replacements keep names and lengths, so this cannot happen.
		return t
	}
	return out
}

// IsMissingText reports whether s spells a missing value.
func IsMissingText(s string) bool {
	return missingTokens[strings.TrimSpace(s)]
}

// ParseNumber strips formatting noise and parses s as an exact decimal.
func ParseNumber(s string) (decimal.Decimal, bool) {
	s = numericNoise.Replace(strings.TrimSpace(s))
	if s == "" {
		return decimal.Zero, false
	}
	// Accounting negatives: (1234) → -1234
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		s = "-" + s[1:len(s)-1]
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

func coerceNumeric(c *table.Column) (*table.Column, bool) {
	parsed := make([]decimal.Decimal, c.Len())
	okAt := make([]bool, c.Len())
	nonMissing, hits := 0, 0
	allIntegral := true

	for i, v := range c.Values {
		s, isStr := v.(string)
		if v == nil || (isStr && IsMissingText(s)) {
			continue
		}
		nonMissing++
		d, ok := ParseNumber(s)
		if !ok {
			continue
		}
		hits++
		parsed[i], okAt[i] = d, true
		if !d.IsInteger() || !d.Abs().LessThan(decimal.New(1, 18)) {
			allIntegral = false
		}
	}

	if nonMissing == 0 || float64(hits)/float64(nonMissing) <= NumericCoercionThreshold {
		return nil, false
	}

	kind := table.Float
	if allIntegral {
		kind = table.Int
	}
	vals := make([]any, c.Len())
	for i := range vals {
		if !okAt[i] {
			continue
		}
		if kind == table.Int {
			vals[i] = parsed[i].IntPart()
		} else {
			f, _ := parsed[i].Float64()
			vals[i] = f
		}
	}
	return table.NewColumn(c.Name, kind, vals), true
}

func coerceTemporal(c *table.Column) (*table.Column, bool) {
	vals := make([]any, c.Len())
	parsedAny := false
	for i, v := range c.Values {
		s, _ := v.(string)
		if v == nil || IsMissingText(s) {
			continue
		}
		ts, ok := ParseTimestamp(s)
		if !ok {
			return nil, false
		}
		vals[i] = ts
		parsedAny = true
	}
	if !parsedAny {
		return nil, false
	}
	return table.NewColumn(c.Name, table.Time, vals), true
}

// ============================================================================
// TIMESTAMP PARSING
// ============================================================================

var timestampLayouts = []string{
	"2006-01-02",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006/01/02",
	"01/02/2006",
	"01/02/2006 15:04",
	"1/2/2006",
	"02-Jan-2006",
	"Jan-2006",
	"January 2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"2 Jan 2006",
	"2006-01",
}

// ParseTimestamp parses s with the known layouts, falling back to cast's
// broader list.
func ParseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, true
		}
	}
	if ts, err := cast.ToTimeE(s); err == nil {
		return ts, true
	}
	return time.Time{}, false
}
