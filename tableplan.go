// Package tableplan runs declarative analysis plans against in-memory tables.
//
// Usage:
//
//	import "github.com/spektr-org/tableplan/engine"
//
//	plan, err := engine.DecodePlan(planJSON)
//	result, err := engine.Execute(tbl, plan,
//	    engine.WithMaxColumns(50),
//	    engine.WithLogger(logger),
//	)
//
// The engine takes a table (see package table) and a plan (an ordered list of
// filter, groupby_agg, topk, pivot, ... operations, usually produced by an AI
// translator), and returns the resulting table plus a provenance log with one
// line per applied operation. Column references are resolved leniently
// (exact, case-insensitive, then fuzzy) and a failing operation is skipped
// instead of aborting the plan.
//
// Plan generation and result summarization are handled separately by the
// translator package. The engine never calls any external service; all
// computation is local.
package tableplan
