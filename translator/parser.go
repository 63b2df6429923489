package translator

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spektr-org/tableplan/engine"
)

// ============================================================================
// RESPONSE PARSER: Extracts a plan from the AI response
// ============================================================================

var errNoJSON = errors.New("response contains no JSON object or array")

// parsePlanResponse decodes the plan in a model response. Markdown fences and
// any prose around the outermost JSON value are stripped first.
func parsePlanResponse(response string) (*engine.Plan, error) {
	body, err := extractJSON(response)
	if err != nil {
		return nil, err
	}
	plan, err := engine.DecodePlan([]byte(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse plan response: %w (response: %.200s)", err, body)
	}
	return plan, nil
}

// extractJSON returns the outermost JSON object or array in s.
func extractJSON(s string) (string, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```JSON")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	s = strings.TrimSpace(s)

	start := strings.IndexAny(s, "{[")
	if start < 0 {
		return "", errNoJSON
	}
	closer := "}"
	if s[start] == '[' {
		closer = "]"
	}
	end := strings.LastIndex(s, closer)
	if end < start {
		return "", errNoJSON
	}
	return s[start : end+1], nil
}
