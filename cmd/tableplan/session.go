package main

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"

	"github.com/spektr-org/tableplan/engine"
	"github.com/spektr-org/tableplan/helpers"
	"github.com/spektr-org/tableplan/internal/config"
	"github.com/spektr-org/tableplan/schema"
	"github.com/spektr-org/tableplan/table"
	"github.com/spektr-org/tableplan/translator"
)

// errNoTranslator is returned for questions when no API key is configured.
var errNoTranslator = errors.New("GEMINI_API_KEY required for questions")

// session holds one loaded table and the collaborators used against it.
type session struct {
	table   *table.Table
	name    string
	cfg     *config.Config
	logger  *slog.Logger
	planner translator.PlanRequester
	summary translator.Summarizer
	last    *engine.Result
}

func newSession(t *table.Table, name string, cfg *config.Config, logger *slog.Logger) *session {
	s := &session{table: t, name: name, cfg: cfg, logger: logger}
	if g := newGemini(cfg, logger); g != nil {
		s.planner = g
		s.summary = g
	}
	return s
}

// describe summarizes the coerced table, as the engine will see it.
func (s *session) describe() schema.Summary {
	sum := schema.Describe(schema.Coerce(s.table), schema.DefaultSampleSize)
	sum.Name = s.name
	return sum
}

func (s *session) requestPlan(ctx context.Context, question string) (*engine.Plan, error) {
	if s.planner == nil {
		return nil, errNoTranslator
	}
	return s.planner.RequestPlan(ctx, question, s.describe())
}

func (s *session) options() []engine.Option {
	opts := []engine.Option{
		engine.WithMaxColumns(s.cfg.Engine.MaxColumns),
		engine.WithLogger(s.logger),
	}
	if !s.cfg.Engine.Coerce {
		opts = append(opts, engine.WithoutCoercion())
	}
	if seed := uint64(s.cfg.Engine.Seed); seed != 0 {
		opts = append(opts, engine.WithRand(rand.New(rand.NewPCG(seed, seed))))
	}
	return opts
}

func (s *session) execute(plan *engine.Plan) (*engine.Result, error) {
	res, err := engine.Execute(s.table, plan, s.options()...)
	if err != nil {
		return nil, err
	}
	s.last = res
	return res, nil
}

// summarize returns an AI answer for the result, or "" when no summarizer is
// configured or the call fails.
func (s *session) summarize(ctx context.Context, question string, preview *helpers.Preview, log []string) string {
	if s.summary == nil || question == "" {
		return ""
	}
	answer, err := s.summary.Summarize(ctx, question, preview, log)
	if err != nil {
		s.logger.Warn("⚠️ summary failed", slog.Any("error", err))
		return ""
	}
	return answer
}
