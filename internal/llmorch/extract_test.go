package llmorch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkgrisk/analyzer/internal/model"
)

func TestExtractJSON_FencedBlock(t *testing.T) {
	raw := "Here is my answer:\n```json\n{\"score\": 80}\n```\nThanks"
	got, err := extractJSON(raw)
	require.NoError(t, err)
	assert.JSONEq(t, `{"score": 80}`, got)
}

func TestExtractJSON_BraceMatchingFallback(t *testing.T) {
	raw := `some preamble {"a": {"b": 1}} trailing text`
	got, err := extractJSON(raw)
	require.NoError(t, err)
	assert.JSONEq(t, `{"a": {"b": 1}}`, got)
}

func TestExtractJSON_NoObjectErrors(t *testing.T) {
	_, err := extractJSON("no json here")
	assert.Error(t, err)
}

func TestExtractJSON_UnterminatedErrors(t *testing.T) {
	_, err := extractJSON(`{"a": 1`)
	assert.Error(t, err)
}

func TestParseInto_ValidatesSchema(t *testing.T) {
	var out readmeResult
	raw := `{"score": 80, "installation": 90, "quick_start": 70, "examples": 60, "rationale": "good docs"}`
	require.NoError(t, parseInto(raw, AssessmentReadme, &out))
	assert.Equal(t, 80.0, out.Score)
	assert.Equal(t, "good docs", out.Rationale)
}

func TestParseInto_RejectsWrongType(t *testing.T) {
	var out readmeResult
	raw := `{"score": "eighty", "installation": 90, "quick_start": 70, "examples": 60, "rationale": "good docs"}`
	err := parseInto(raw, AssessmentReadme, &out)
	assert.Error(t, err)
}

func TestParseInto_RejectsInvalidEnum(t *testing.T) {
	var out sentimentResult
	raw := `{"score": 50, "tone": "furious", "frustration_level": 10, "rationale": "x"}`
	err := parseInto(raw, AssessmentSentiment, &out)
	assert.Error(t, err)
}

func TestParseInto_RejectsMissingRequiredField(t *testing.T) {
	var out maintenanceResult
	raw := `{"score": 50, "rationale": "x"}`
	err := parseInto(raw, AssessmentMaintenance, &out)
	assert.Error(t, err)
}

func TestParseAssessment_ReadmeFoldsSignals(t *testing.T) {
	raw := `{"score": 80, "installation": 90, "quick_start": 70, "examples": 60, "rationale": "good docs"}`
	score, err := parseAssessment(AssessmentReadme, raw)
	require.NoError(t, err)
	assert.Equal(t, 80.0, score.Score)
	assert.Contains(t, score.Signals, "installation=90.0")
}

func TestParseAssessment_Security(t *testing.T) {
	raw := `{"score": 40, "critical_findings": ["hardcoded secret"], "rationale": "risky"}`
	score, err := parseAssessment(AssessmentSecurity, raw)
	require.NoError(t, err)
	assert.Equal(t, []string{"hardcoded secret"}, score.Signals)
}

func TestAssign_SetsCorrectField(t *testing.T) {
	result := &model.LLMAssessment{}
	score := model.QualitativeScore{Score: 55, Rationale: "ok"}
	assign(result, AssessmentGovernance, score)
	require.NotNil(t, result.Governance)
	assert.Equal(t, 55.0, result.Governance.Score)
	assert.Nil(t, result.Readme)
}
