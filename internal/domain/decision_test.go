package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseDecision_ValidJSON(t *testing.T) {
	decision, err := ParseDecision(`{"decision":"buy","reason":"breakout above resistance","confidence_level":0.72}`)
	require.NoError(t, err)
	require.Equal(t, ActionBuy, decision.Action)
	require.Equal(t, "breakout above resistance", decision.Reason)
	require.InDelta(t, 0.72, decision.Confidence, 1e-9)
}

func TestParseDecision_StripsCodeFences(t *testing.T) {
	raw := "```json\n{\"decision\":\"sell\",\"reason\":\"trend reversal\",\"confidence_level\":0.6}\n```"
	decision, err := ParseDecision(raw)
	require.NoError(t, err)
	require.Equal(t, ActionSell, decision.Action)
}

func TestParseDecision_NormalizesCase(t *testing.T) {
	decision, err := ParseDecision(`{"decision":" HOLD ","reason":"sideways","confidence_level":0.4}`)
	require.NoError(t, err)
	require.Equal(t, ActionHold, decision.Action)
}

func TestParseDecision_RejectsUnknownAction(t *testing.T) {
	_, err := ParseDecision(`{"decision":"short","reason":"bearish","confidence_level":0.5}`)
	require.Error(t, err)
}

func TestParseDecision_RejectsConfidenceOutOfRange(t *testing.T) {
	_, err := ParseDecision(`{"decision":"buy","reason":"sure thing","confidence_level":1.5}`)
	require.Error(t, err)
}

func TestParseDecision_RejectsMissingReason(t *testing.T) {
	_, err := ParseDecision(`{"decision":"buy","confidence_level":0.5}`)
	require.Error(t, err)
}

func TestParseDecision_RejectsProse(t *testing.T) {
	_, err := ParseDecision("I recommend buying because the trend is strong.")
	require.Error(t, err)
}
