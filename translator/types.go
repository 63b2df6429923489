package translator

import (
	"context"
	"time"

	"github.com/spektr-org/tableplan/engine"
	"github.com/spektr-org/tableplan/helpers"
	"github.com/spektr-org/tableplan/schema"
)

// ============================================================================
// TRANSLATOR: AI boundary for questions → plans and results → answers
// ============================================================================
// The translator is the ONLY component that calls an external AI service.
// For planning it sees the schema summary (names, kinds, sample values) and
// the question. For summarizing it sees the result preview and the
// provenance log. It never sees the full input table.
// ============================================================================

// PlanRequester turns a question into an analysis plan.
// An absent or unusable plan is returned as an empty plan, not an error;
// callers check Plan.Empty().
type PlanRequester interface {
	RequestPlan(ctx context.Context, question string, sum schema.Summary) (*engine.Plan, error)
}

// Summarizer turns a result preview and its provenance log into a short
// natural-language answer.
type Summarizer interface {
	Summarize(ctx context.Context, question string, preview *helpers.Preview, log []string) (string, error)
}

// Config holds translator configuration.
type Config struct {
	APIKey   string        // AI provider API key (consumer's key)
	Model    string        // Model name (e.g., "gemini-2.0-flash")
	Endpoint string        // API endpoint override (empty = default)
	Timeout  time.Duration // HTTP timeout per call (0 = default)
}

const (
	DefaultModel    = "gemini-2.0-flash"
	DefaultEndpoint = "https://generativelanguage.googleapis.com/v1beta/models"
	DefaultTimeout  = 30 * time.Second
)

// DefaultGeminiConfig returns a Config with sensible Gemini defaults.
func DefaultGeminiConfig(apiKey string) Config {
	return Config{
		APIKey:   apiKey,
		Model:    DefaultModel,
		Endpoint: DefaultEndpoint,
		Timeout:  DefaultTimeout,
	}
}
