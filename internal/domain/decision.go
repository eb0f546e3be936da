package domain

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Trading actions the LLM may return.
const (
	ActionBuy  = "buy"
	ActionSell = "sell"
	ActionHold = "hold"
)

// Decision is the parsed LLM trading decision.
type Decision struct {
	Action     string  `json:"decision"`
	Reason     string  `json:"reason"`
	Confidence float64 `json:"confidence_level"`
}

// ParseDecision builds a validated decision from the raw LLM response.
func ParseDecision(raw string) (*Decision, error) {
	response := sanitizeDecisionPayload(raw)

	if !json.Valid([]byte(response)) {
		return nil, errors.New("invalid JSON structure")
	}

	var decision Decision
	if err := json.Unmarshal([]byte(response), &decision); err != nil {
		return nil, errors.Wrap(err, "JSON unmarshal error")
	}

	decision.Action = strings.ToLower(strings.TrimSpace(decision.Action))

	if decision.Action == "" {
		return nil, errors.New("decision field is required")
	}
	if decision.Reason == "" {
		return nil, errors.New("reason field is required")
	}
	switch decision.Action {
	case ActionBuy, ActionSell, ActionHold:
	default:
		return nil, fmt.Errorf("invalid decision: %s", decision.Action)
	}
	if decision.Confidence < 0 || decision.Confidence > 1 {
		return nil, fmt.Errorf("invalid confidence_level: %f (must be 0.0-1.0)", decision.Confidence)
	}

	return &decision, nil
}

// sanitizeDecisionPayload strips markdown code fences some models wrap
// around the JSON body despite instructions.
func sanitizeDecisionPayload(raw string) string {
	response := strings.TrimSpace(raw)
	response = strings.TrimPrefix(response, "```json")
	response = strings.TrimPrefix(response, "```")
	response = strings.TrimSuffix(response, "```")
	return strings.TrimSpace(response)
}
