package main

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spektr-org/tableplan/engine"
	"github.com/spektr-org/tableplan/helpers"
	"github.com/spektr-org/tableplan/table"
)

// ============================================================================
// OUTPUT TYPES
// ============================================================================

type cliOutput struct {
	Question    string           `json:"question,omitempty"`
	Explanation string           `json:"explanation,omitempty"`
	RunID       string           `json:"runId"`
	Columns     []columnOutput   `json:"columns"`
	Rows        [][]any          `json:"rows"`
	Log         []string         `json:"log"`
	Skipped     []string         `json:"skipped,omitempty"`
	Ignored     []string         `json:"ignored,omitempty"`
	Truncated   bool             `json:"truncated"`
	Preview     *helpers.Preview `json:"preview,omitempty"`
}

type columnOutput struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

func newCLIOutput(question string, plan *engine.Plan, res *engine.Result, previewRows int) cliOutput {
	out := cliOutput{
		Question:  question,
		RunID:     res.RunID,
		Log:       res.Log,
		Ignored:   res.Ignored,
		Truncated: res.Truncated,
		Preview:   helpers.BuildPreview(res.Table, previewRows),
	}
	if plan != nil {
		out.Explanation = plan.Explanation
	}
	if out.Log == nil {
		out.Log = []string{}
	}
	for _, e := range res.Skipped {
		out.Skipped = append(out.Skipped, e.Error())
	}

	t := res.Table
	for _, c := range t.Columns() {
		out.Columns = append(out.Columns, columnOutput{Name: c.Name, Type: c.Kind.String()})
	}
	out.Rows = make([][]any, 0, t.NumRows())
	for i := 0; i < t.NumRows(); i++ {
		row := t.Row(i)
		for j, v := range row {
			row[j] = jsonValue(v)
		}
		out.Rows = append(out.Rows, row)
	}
	return out
}

// jsonValue maps a cell to a value encoding/json can always marshal.
func jsonValue(v any) any {
	switch x := v.(type) {
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return nil
		}
		return x
	case time.Time:
		return table.Format(x)
	default:
		return v
	}
}

// ============================================================================
// JSON OUTPUT
// ============================================================================

func writeJSON(w io.Writer, v any, pretty bool) error {
	var out []byte
	var err error

	if pretty {
		out, err = json.MarshalIndent(v, "", "  ")
	} else {
		out, err = json.Marshal(v)
	}
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(out))
	return err
}

// ============================================================================
// TEXT OUTPUT
// ============================================================================

// writeText prints the preview as an aligned table followed by the log.
func writeText(w io.Writer, p *helpers.Preview, res *engine.Result) {
	if len(p.Columns) == 0 {
		fmt.Fprintln(w, "(empty result)")
	} else {
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

		labels := make([]string, len(p.Columns))
		rules := make([]string, len(p.Columns))
		for i, c := range p.Columns {
			labels[i] = fmt.Sprintf("%s (%s)", c.Key, c.Type)
			rules[i] = "---"
		}
		fmt.Fprintln(tw, strings.Join(labels, "\t"))
		fmt.Fprintln(tw, strings.Join(rules, "\t"))
		for _, row := range p.Rows {
			fmt.Fprintln(tw, strings.Join(row, "\t"))
		}
		tw.Flush()

		if p.Truncated {
			fmt.Fprintf(w, "(%d of %d rows)\n", len(p.Rows), p.TotalRows)
		}
		if p.Summary != nil {
			totals := make([]string, 0, len(p.Summary.Values))
			for _, c := range p.Columns {
				if v, ok := p.Summary.Values[c.Key]; ok {
					totals = append(totals, fmt.Sprintf("%s=%s", c.Key, v))
				}
			}
			fmt.Fprintf(w, "%s: %s\n", p.Summary.Label, strings.Join(totals, ", "))
		}
	}

	if res == nil {
		return
	}
	if len(res.Log) > 0 {
		fmt.Fprintln(w, "\nsteps:")
		for i, line := range res.Log {
			fmt.Fprintf(w, "  %d. %s\n", i+1, line)
		}
	}
	for _, e := range res.Skipped {
		fmt.Fprintf(w, "  skipped: %v\n", e)
	}
	for _, tag := range res.Ignored {
		fmt.Fprintf(w, "  ignored unknown operation %q\n", tag)
	}
}
