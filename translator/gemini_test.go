package translator

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spektr-org/tableplan/engine"
	"github.com/spektr-org/tableplan/helpers"
	"github.com/spektr-org/tableplan/schema"
)

// ============================================================================
// GEMINI CLIENT TESTS
// ============================================================================
// Tests cover:
//   1. Request shape: URL, model, API key, prompt body
//   2. Plan responses: fenced JSON, prose around JSON, unusable text
//   3. API failures: non-200 status, error payloads, empty candidates
// ============================================================================

// --- Test Fixtures ---

func salesSummary() schema.Summary {
	return schema.Summary{
		Name:     "sales.csv",
		RowCount: 3,
		Columns: []schema.ColumnMeta{
			{Name: "region", Kind: "string", SampleValues: []string{"A", "B", "C"}, UniqueCount: 3, CardinalityHint: "low"},
			{Name: "revenue", Kind: "int", UniqueCount: 3, CardinalityHint: "low", Min: "100", Max: "300"},
		},
		Preview: [][]string{{"A", "100"}, {"B", "300"}},
	}
}

// geminiServer answers every generateContent call with text and records the
// last request.
type geminiServer struct {
	*httptest.Server
	path   string
	key    string
	prompt string
}

func newGeminiServer(t *testing.T, status int, body string) *geminiServer {
	t.Helper()
	s := &geminiServer{}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.path = r.URL.Path
		s.key = r.URL.Query().Get("key")
		var req geminiRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err == nil && len(req.Contents) > 0 && len(req.Contents[0].Parts) > 0 {
			s.prompt = req.Contents[0].Parts[0].Text
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(s.Close)
	return s
}

func textResponse(t *testing.T, text string) string {
	t.Helper()
	payload := map[string]any{
		"candidates": []any{
			map[string]any{"content": map[string]any{"parts": []any{map[string]any{"text": text}}}},
		},
	}
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	return string(data)
}

func testClient(endpoint string) *Gemini {
	cfg := DefaultGeminiConfig("test-key")
	cfg.Endpoint = endpoint
	return NewGemini(cfg, slog.New(slog.DiscardHandler))
}

// --- Plans ---

func TestRequestPlanFencedJSON(t *testing.T) {
	srv := newGeminiServer(t, http.StatusOK, textResponse(t,
		"```json\n{\"explanation\":\"top regions\",\"operations\":[{\"op\":\"topk\",\"k\":2,\"by\":\"revenue\"}]}\n```"))

	plan, err := testClient(srv.URL).RequestPlan(context.Background(), "top 2 regions by revenue", salesSummary())
	require.NoError(t, err)
	assert.Equal(t, "top regions", plan.Explanation)
	assert.Equal(t, []engine.Operation{engine.TopKOp{K: 2, By: "revenue"}}, plan.Operations)

	assert.Equal(t, "/"+DefaultModel+":generateContent", srv.path)
	assert.Equal(t, "test-key", srv.key)
	assert.Contains(t, srv.prompt, "QUESTION: top 2 regions by revenue")
	assert.Contains(t, srv.prompt, `"revenue" [int`)
}

func TestRequestPlanWithProse(t *testing.T) {
	srv := newGeminiServer(t, http.StatusOK, textResponse(t,
		`Here is the plan: [{"op":"limit","n":1}] Hope this helps.`))

	plan, err := testClient(srv.URL).RequestPlan(context.Background(), "first row", salesSummary())
	require.NoError(t, err)
	assert.Equal(t, []engine.Operation{engine.LimitOp{N: 1}}, plan.Operations)
}

func TestRequestPlanUnusableResponseIsEmptyPlan(t *testing.T) {
	srv := newGeminiServer(t, http.StatusOK, textResponse(t, "I cannot answer that from this table."))

	plan, err := testClient(srv.URL).RequestPlan(context.Background(), "who won the match?", salesSummary())
	require.NoError(t, err)
	require.NotNil(t, plan)
	assert.True(t, plan.Empty())
}

// --- Failures ---

func TestRequestPlanAPIErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"status", http.StatusTooManyRequests, `{"error":"quota"}`, "returned 429"},
		{"error payload", http.StatusOK, `{"error":{"code":400,"message":"bad model"}}`, "gemini error 400: bad model"},
		{"no candidates", http.StatusOK, `{"candidates":[]}`, "empty response"},
		{"not json", http.StatusOK, `<html>`, "failed to parse Gemini response"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newGeminiServer(t, tt.status, tt.body)
			_, err := testClient(srv.URL).RequestPlan(context.Background(), "q", salesSummary())
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestNoAPIKey(t *testing.T) {
	g := NewGemini(Config{}, nil)
	_, err := g.RequestPlan(context.Background(), "q", salesSummary())
	assert.ErrorIs(t, err, ErrNoAPIKey)

	_, err = g.Summarize(context.Background(), "q", nil, nil)
	assert.ErrorIs(t, err, ErrNoAPIKey)
}

func TestNewGeminiDefaults(t *testing.T) {
	g := NewGemini(Config{APIKey: "k"}, nil)
	assert.Equal(t, DefaultModel, g.config.Model)
	assert.Equal(t, DefaultEndpoint, g.config.Endpoint)
	assert.Equal(t, DefaultTimeout, g.client.Timeout)
	assert.NotNil(t, g.logger)
}

// --- Summaries ---

func TestSummarize(t *testing.T) {
	srv := newGeminiServer(t, http.StatusOK, textResponse(t, "\n  Region B leads with 300.\n"))
	preview := &helpers.Preview{
		Columns: []helpers.PreviewColumn{{Key: "region"}, {Key: "revenue"}},
		Rows:    [][]string{{"B", "300"}},
	}

	answer, err := testClient(srv.URL).Summarize(context.Background(), "which region leads?", preview, []string{"topk: 1 rows by revenue (highest)"})
	require.NoError(t, err)
	assert.Equal(t, "Region B leads with 300.", answer)
	assert.Contains(t, srv.prompt, "1. topk: 1 rows by revenue (highest)")
	assert.Contains(t, srv.prompt, "B | 300")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 3))
	assert.Equal(t, "ab...", truncate("abc", 2))
	assert.True(t, strings.HasSuffix(truncate(strings.Repeat("x", 300), 200), "..."))
}
