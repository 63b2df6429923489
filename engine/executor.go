package engine

import (
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/spektr-org/tableplan/schema"
	"github.com/spektr-org/tableplan/table"
)

// ============================================================================
// EXECUTOR: Plan runner + operation dispatch
// ============================================================================
// Entry point: Execute(table, plan, opts...)
//
// Pipeline:
//   1. Validate the inputs (nil table, empty plan)
//   2. Coerce text columns to numbers and timestamps
//   3. Apply each operation in order; a failing operation leaves the table
//      as it was and the run continues
//   4. Cap the result width and return the table with its provenance log
//
// This function never calls an AI service. All computation is local and the
// input table is never modified.
// ============================================================================

// Result is the outcome of running a plan.
type Result struct {
	RunID     string
	Table     *table.Table
	Log       []string          // one line per applied operation, in order
	Skipped   []*OperationError // operations that failed and were passed over
	Ignored   []string          // tags of operations the engine does not know
	Truncated bool              // result width was capped
}

// Execute runs a plan against a table and returns the resulting table with
// its provenance log. It returns ErrNilTable for a nil table and ErrEmptyPlan
// when the plan has no operations; every other problem is recorded on the
// Result and the run carries on.
//
// Options:
//   - WithMaxColumns(n): width cap applied after the last operation
//   - WithLogger(l): structured logger for the run
//   - WithRand(r): random source for sample operations without a seed
//   - WithoutCoercion(): skip the type-coercion pass
func Execute(t *table.Table, plan *Plan, opts ...Option) (*Result, error) {
	if t == nil {
		return nil, ErrNilTable
	}
	if plan.Empty() {
		return nil, ErrEmptyPlan
	}
	cfg := applyOptions(opts)

	res := &Result{RunID: uuid.NewString()}
	logger := cfg.Logger.With(slog.String("run_id", res.RunID))
	logger.Info("🔧 tableplan: executing plan",
		slog.Int("rows", t.NumRows()),
		slog.Int("columns", t.NumColumns()),
		slog.Int("operations", len(plan.Operations)))

	current := t
	if cfg.Coerce {
		current = schema.Coerce(current)
	}

	for i, op := range plan.Operations {
		if op == nil {
			continue
		}
		if u, unknown := op.(UnknownOp); unknown {
			res.Ignored = append(res.Ignored, u.Tag)
			logger.Debug("ignoring unknown operation", slog.Int("index", i), slog.String("op", u.Tag))
			continue
		}

		next, line, err := apply(current, op, cfg)
		if err != nil {
			opErr := &OperationError{Index: i, Op: op.Kind(), Err: err}
			res.Skipped = append(res.Skipped, opErr)
			logger.Warn("⚠️ operation skipped",
				slog.Int("index", i),
				slog.String("op", string(op.Kind())),
				slog.Any("error", err))
			continue
		}
		current = next
		res.Log = append(res.Log, line)
		logger.Debug(line,
			slog.Int("index", i),
			slog.Int("rows", current.NumRows()),
			slog.Int("columns", current.NumColumns()))
	}

	if cfg.MaxColumns > 0 && current.NumColumns() > cfg.MaxColumns {
		width := current.NumColumns()
		current = current.FirstColumns(cfg.MaxColumns)
		res.Truncated = true
		res.Log = append(res.Log, fmt.Sprintf("truncated result to %d of %d columns", cfg.MaxColumns, width))
	}

	res.Table = current
	logger.Info("✅ tableplan: plan finished",
		slog.Int("rows", current.NumRows()),
		slog.Int("columns", current.NumColumns()),
		slog.Int("applied", len(res.Log)),
		slog.Int("skipped", len(res.Skipped)),
		slog.Int("ignored", len(res.Ignored)))
	return res, nil
}

// apply dispatches one operation to its handler.
func apply(t *table.Table, op Operation, cfg *config) (*table.Table, string, error) {
	switch o := op.(type) {
	case FilterOp:
		return applyFilter(t, o)
	case SelectOp:
		return applySelect(t, o)
	case GroupByAggOp:
		return applyGroupByAgg(t, o)
	case SortOp:
		return applySort(t, o)
	case TopKOp:
		return applyTopK(t, o)
	case ComputeOp:
		return applyCompute(t, o)
	case RenameOp:
		return applyRename(t, o)
	case PivotOp:
		return applyPivot(t, o)
	case LimitOp:
		return applyLimit(t, o)
	case DropNAOp:
		return applyDropNA(t, o)
	case FillNAOp:
		return applyFillNA(t, o)
	case CastOp:
		return applyCast(t, o)
	case DateParseOp:
		return applyDateParse(t, o)
	case DateTruncOp:
		return applyDateTrunc(t, o)
	case WindowRankOp:
		return applyWindowRank(t, o)
	case CumSumOp:
		return applyCumSum(t, o)
	case PctChangeOp:
		return applyPctChange(t, o)
	case ValueCountsOp:
		return applyValueCounts(t, o)
	case DedupeOp:
		return applyDedupe(t, o)
	case SampleOp:
		return applySample(t, o, cfg)
	default:
		return nil, "", invalidf("unsupported operation %T", op)
	}
}
