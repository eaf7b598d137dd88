package ai

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseEvaluationAcceptsValidPayload(t *testing.T) {
	result, err := ParseEvaluation(`{"score": 7, "feedback": "good structure", "highlights": ["teh", "their is"]}`)
	require.NoError(t, err)
	require.Equal(t, 7, result.Score)
	require.Equal(t, "good structure", result.Feedback)
	require.Equal(t, []string{"teh", "their is"}, result.Highlights)
}

func TestParseEvaluationNormalisesMissingHighlightsToEmpty(t *testing.T) {
	result, err := ParseEvaluation(`{"score": 10, "feedback": "flawless", "highlights": []}`)
	require.NoError(t, err)
	require.NotNil(t, result.Highlights)
	require.Empty(t, result.Highlights)
}

func TestParseEvaluationRejectsOutOfRangeScore(t *testing.T) {
	_, err := ParseEvaluation(`{"score": 11, "feedback": "x", "highlights": []}`)
	require.Error(t, err)

	_, err = ParseEvaluation(`{"score": -1, "feedback": "x", "highlights": []}`)
	require.Error(t, err)
}

func TestParseEvaluationRejectsNonIntegerScore(t *testing.T) {
	_, err := ParseEvaluation(`{"score": 7.5, "feedback": "x", "highlights": []}`)
	require.Error(t, err)
}

func TestParseEvaluationRejectsMissingFields(t *testing.T) {
	_, err := ParseEvaluation(`{"score": 7}`)
	require.Error(t, err)
}

func TestParseEvaluationRejectsMalformedJSON(t *testing.T) {
	_, err := ParseEvaluation(`the essay deserves a 7`)
	require.Error(t, err)
}

func TestNewOpenAIEvaluatorRequiresAPIKey(t *testing.T) {
	_, err := NewOpenAIEvaluator(OpenAIConfig{})
	require.Error(t, err)
}

func TestNewOpenAIEvaluatorAppliesDefaults(t *testing.T) {
	evaluator, err := NewOpenAIEvaluator(OpenAIConfig{APIKey: "test-key"})
	require.NoError(t, err)
	require.Equal(t, "gpt-4o-mini", evaluator.cfg.Model)
	require.Equal(t, 500, evaluator.cfg.MaxTokens)
	require.Equal(t, 3, evaluator.cfg.MaxRetries)
}
