package translator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/spektr-org/tableplan/engine"
	"github.com/spektr-org/tableplan/helpers"
	"github.com/spektr-org/tableplan/schema"
)

// ============================================================================
// GEMINI: Google Gemini implementation of PlanRequester and Summarizer
// ============================================================================
// This is the ONLY file that makes external API calls.
// ============================================================================

// ErrNoAPIKey is returned when a call is attempted without an API key.
var ErrNoAPIKey = errors.New("gemini API key is not set")

// Gemini implements PlanRequester and Summarizer over the Gemini REST API.
type Gemini struct {
	config Config
	client *http.Client
	logger *slog.Logger
}

var (
	_ PlanRequester = (*Gemini)(nil)
	_ Summarizer    = (*Gemini)(nil)
)

// NewGemini creates a new Gemini client. A nil logger means slog.Default().
func NewGemini(cfg Config, logger *slog.Logger) *Gemini {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Gemini{
		config: cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

// RequestPlan asks the model for a plan answering question over a table
// described by sum. A response that does not decode to a plan yields an
// empty plan and a nil error so the caller can fall back.
func (g *Gemini) RequestPlan(ctx context.Context, question string, sum schema.Summary) (*engine.Plan, error) {
	prompt := BuildPlanPrompt(question, sum)
	g.logger.Info("🔄 translator: requesting plan",
		slog.String("question", truncate(question, 80)),
		slog.String("table", sum.Name),
		slog.Int("columns", len(sum.Columns)))

	response, err := g.generate(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("gemini API error: %w", err)
	}

	plan, err := parsePlanResponse(response)
	if err != nil {
		g.logger.Warn("⚠️ translator: unusable plan response", slog.Any("error", err))
		return &engine.Plan{}, nil
	}
	g.logger.Info("✅ translator: plan received", slog.Int("operations", len(plan.Operations)))
	return plan, nil
}

// Summarize asks the model for a short answer grounded in the result preview.
func (g *Gemini) Summarize(ctx context.Context, question string, preview *helpers.Preview, log []string) (string, error) {
	prompt := BuildSummaryPrompt(question, preview, log)
	response, err := g.generate(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("gemini API error: %w", err)
	}
	return strings.TrimSpace(response), nil
}

// ============================================================================
// GEMINI API CALL
// ============================================================================

// geminiRequest is the Gemini API request body.
type geminiRequest struct {
	Contents         []geminiContent   `json:"contents"`
	GenerationConfig *generationConfig `json:"generationConfig,omitempty"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type generationConfig struct {
	Temperature float64 `json:"temperature"`
}

// geminiResponse is the Gemini API response body.
type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Message string `json:"message"`
		Code    int    `json:"code"`
	} `json:"error"`
}

// generate sends a prompt to the Gemini API and returns the text response.
func (g *Gemini) generate(ctx context.Context, prompt string) (string, error) {
	if g.config.APIKey == "" {
		return "", ErrNoAPIKey
	}
	url := fmt.Sprintf("%s/%s:generateContent?key=%s",
		strings.TrimRight(g.config.Endpoint, "/"), g.config.Model, g.config.APIKey)

	reqBody := geminiRequest{
		Contents: []geminiContent{{
			Parts: []geminiPart{{Text: prompt}},
		}},
		GenerationConfig: &generationConfig{Temperature: 0.2},
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonBody))
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("gemini API returned %d: %s", resp.StatusCode, truncate(string(body), 200))
	}

	var geminiResp geminiResponse
	if err := json.Unmarshal(body, &geminiResp); err != nil {
		return "", fmt.Errorf("failed to parse Gemini response: %w", err)
	}

	if geminiResp.Error != nil {
		return "", fmt.Errorf("gemini error %d: %s", geminiResp.Error.Code, geminiResp.Error.Message)
	}

	if len(geminiResp.Candidates) == 0 || len(geminiResp.Candidates[0].Content.Parts) == 0 {
		return "", errors.New("gemini returned empty response")
	}

	return geminiResp.Candidates[0].Content.Parts[0].Text, nil
}

// ============================================================================
// HELPERS
// ============================================================================

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
