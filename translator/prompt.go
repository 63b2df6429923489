package translator

import (
	"fmt"
	"strings"
	"time"

	"github.com/spektr-org/tableplan/helpers"
	"github.com/spektr-org/tableplan/schema"
)

// ============================================================================
// PROMPT BUILDER: Schema-driven prompts for planning and summarizing
// ============================================================================
// The planning prompt is generated from a schema.Summary:
//   - Columns → listed with kind, cardinality and sample values
//   - Preview → the first few rows, for value formats
//   - Operation catalogue → every op the engine executes, with its fields
//
// Total data sent to AI: a few KB of metadata per question. Never the table.
// ============================================================================

// BuildPlanPrompt generates the complete planning prompt.
func BuildPlanPrompt(question string, sum schema.Summary) string {
	var b strings.Builder

	name := sum.Name
	if name == "" {
		name = "table"
	}

	// ── Header ────────────────────────────────────────────────────────────
	fmt.Fprintf(&b, `You are an analysis planner for a tabular dataset called "%s".

CURRENT DATE: %s

YOUR ROLE:
Translate the user's question into a plan: an ordered list of operations that a
computation engine will run against the table.
You are a PLANNER ONLY. Do NOT compute any values. The engine does all computation locally.

`, name, time.Now().Format("2006-01-02"))

	// ── Schema Description ────────────────────────────────────────────────
	fmt.Fprintf(&b, "TABLE (%d rows):\n", sum.RowCount)
	b.WriteString(buildColumnDescription(sum))
	b.WriteString("\n")

	// ── Preview ───────────────────────────────────────────────────────────
	if len(sum.Preview) > 0 {
		b.WriteString("FIRST ROWS:\n")
		b.WriteString(strings.Join(sum.ColumnNames(), " | "))
		b.WriteString("\n")
		for _, row := range sum.Preview {
			b.WriteString(strings.Join(row, " | "))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	// ── Response Format + Catalogue ───────────────────────────────────────
	b.WriteString(planResponseFormat)
	b.WriteString(operationCatalogue)
	b.WriteString(buildExamplePlans(sum))

	// ── Question ──────────────────────────────────────────────────────────
	fmt.Fprintf(&b, "\nQUESTION: %s\n\nRespond with valid JSON only:", question)
	return b.String()
}

// BuildSummaryPrompt generates the prompt that turns a result into an answer.
func BuildSummaryPrompt(question string, preview *helpers.Preview, log []string) string {
	var b strings.Builder

	b.WriteString(`You are a senior data analyst. Answer the question precisely using only the result table below.
If the result does not answer the question, say so.

`)
	fmt.Fprintf(&b, "QUESTION: %s\n\n", question)

	if len(log) > 0 {
		b.WriteString("STEPS APPLIED:\n")
		for i, line := range log {
			fmt.Fprintf(&b, "%d. %s\n", i+1, line)
		}
		b.WriteString("\n")
	}

	b.WriteString("RESULT:\n")
	if preview == nil || len(preview.Columns) == 0 {
		b.WriteString("(empty result)\n")
	} else {
		labels := make([]string, len(preview.Columns))
		for i, c := range preview.Columns {
			labels[i] = c.Key
		}
		b.WriteString(strings.Join(labels, " | "))
		b.WriteString("\n")
		for _, row := range preview.Rows {
			b.WriteString(strings.Join(row, " | "))
			b.WriteString("\n")
		}
		if preview.Truncated {
			fmt.Fprintf(&b, "(showing %d of %d rows)\n", len(preview.Rows), preview.TotalRows)
		}
		if preview.Summary != nil {
			totals := make([]string, 0, len(preview.Summary.Values))
			for _, c := range preview.Columns {
				if v, ok := preview.Summary.Values[c.Key]; ok {
					totals = append(totals, fmt.Sprintf("%s=%s", c.Key, v))
				}
			}
			fmt.Fprintf(&b, "%s: %s\n", preview.Summary.Label, strings.Join(totals, ", "))
		}
	}

	b.WriteString(`
Instructions: Provide a one-sentence direct answer first.
Then list 2-4 concise bullet justifications that quote values from the result.
`)
	return b.String()
}

// ============================================================================
// SECTION BUILDERS
// ============================================================================

func buildColumnDescription(sum schema.Summary) string {
	var b strings.Builder
	for _, c := range sum.Columns {
		fmt.Fprintf(&b, "- \"%s\" [%s, %s cardinality, %d distinct", c.Name, c.Kind, c.CardinalityHint, c.UniqueCount)
		if c.MissingCount > 0 {
			fmt.Fprintf(&b, ", %d missing", c.MissingCount)
		}
		b.WriteString("]")
		if c.Min != "" || c.Max != "" {
			fmt.Fprintf(&b, " range %s .. %s", c.Min, c.Max)
		}
		if len(c.SampleValues) > 0 {
			fmt.Fprintf(&b, " values: [%s]", strings.Join(quotedValues(c.SampleValues), ", "))
		}
		b.WriteString("\n")
	}
	return b.String()
}

const planResponseFormat = `RESPONSE FORMAT (ALWAYS valid JSON, no markdown):
{
  "explanation": "one line describing what the plan computes",
  "operations": [
    {"op": "<operation>", ...fields}
  ]
}
Return {"operations": []} if the question cannot be answered from this table.

`

const operationCatalogue = `OPERATIONS (applied in order; column names must come from TABLE above):
- filter: {"op":"filter","conditions":[{"column":c,"operator":"==|!=|>|>=|<|<=|contains|in|not_in|between","value":v,"values":[...]}]}
  "in"/"not_in" use "values"; "between" uses "values":[low, high] (inclusive). Text comparison ignores case.
- select: {"op":"select","columns":[...]}
- groupby_agg: {"op":"groupby_agg","by":[...],"aggregations":[{"column":c,"agg":"sum|mean|count|min|max|median","as":optional}]}
- sort: {"op":"sort","by":[...],"ascending":true|false|[...]}
- topk: {"op":"topk","k":10,"by":numeric column,"ascending":false}
- compute: {"op":"compute","name":new column,"operation":"add|subtract|multiply|divide","left":column or number,"right":column or number}
- rename: {"op":"rename","mapping":{"old":"new"}}
- pivot: {"op":"pivot","index":[...],"columns":c,"values":[...],"aggfunc":"mean","fill_value":optional}
- limit: {"op":"limit","n":10}
- dropna: {"op":"dropna","columns":optional [...],"how":"any|all"}
- fillna: {"op":"fillna","value":v} or {"op":"fillna","values":{"column":v}}
- cast: {"op":"cast","columns":{"column":"int|float|string|bool|datetime"}}
- date_parse: {"op":"date_parse","columns":[...]}
- date_trunc: {"op":"date_trunc","column":c,"granularity":"day|week|month|quarter|year","as":optional}
- window_rank: {"op":"window_rank","column":c,"partition_by":optional [...],"ascending":false,"as":optional}
- cumsum: {"op":"cumsum","column":c,"partition_by":optional [...],"as":optional}
- pct_change: {"op":"pct_change","column":c,"partition_by":optional [...],"periods":1,"as":optional}
- value_counts: {"op":"value_counts","column":c,"normalize":false,"k":optional}
- dedupe: {"op":"dedupe","columns":optional [...],"keep":"first|last"}
- sample: {"op":"sample","n":optional,"frac":optional,"seed":optional}

RULES:
- Prefer the fewest operations that answer the question.
- Aggregated columns keep their source name when aggregated once; otherwise they are named "<column>_<agg>".
- Operations that reference unknown columns are skipped by the engine.

`

func buildExamplePlans(sum schema.Summary) string {
	var text, number, temporal string
	for _, c := range sum.Columns {
		switch c.Kind {
		case "int", "float":
			if number == "" {
				number = c.Name
			}
		case "datetime":
			if temporal == "" {
				temporal = c.Name
			}
		case "string":
			if text == "" && c.CardinalityHint != "high" {
				text = c.Name
			}
		}
	}
	if text == "" || number == "" {
		return ""
	}

	var b strings.Builder
	b.WriteString("EXAMPLE PLANS:\n")
	fmt.Fprintf(&b, "- \"total %s by %s\" → [{\"op\":\"groupby_agg\",\"by\":[\"%s\"],\"aggregations\":[{\"column\":\"%s\",\"agg\":\"sum\"}]},{\"op\":\"sort\",\"by\":[\"%s\"],\"ascending\":false}]\n",
		number, text, text, number, number)
	fmt.Fprintf(&b, "- \"top 5 rows by %s\" → [{\"op\":\"topk\",\"k\":5,\"by\":\"%s\"}]\n", number, number)
	fmt.Fprintf(&b, "- \"how common is each %s\" → [{\"op\":\"value_counts\",\"column\":\"%s\",\"normalize\":true}]\n", text, text)
	if temporal != "" {
		fmt.Fprintf(&b, "- \"monthly %s trend\" → [{\"op\":\"date_trunc\",\"column\":\"%s\",\"granularity\":\"month\",\"as\":\"month\"},{\"op\":\"groupby_agg\",\"by\":[\"month\"],\"aggregations\":[{\"column\":\"%s\",\"agg\":\"sum\"}]},{\"op\":\"sort\",\"by\":[\"month\"]}]\n",
			number, temporal, number)
	}
	return b.String()
}

// ============================================================================
// HELPERS
// ============================================================================

func quotedValues(vals []string) []string {
	quoted := make([]string, len(vals))
	for i, v := range vals {
		quoted[i] = fmt.Sprintf("\"%s\"", v)
	}
	return quoted
}
