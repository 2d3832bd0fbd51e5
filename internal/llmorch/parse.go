package llmorch

import (
	"errors"
	"fmt"
	"time"

	"github.com/pkgrisk/analyzer/internal/model"
)

var (
	errEmptyPrompt = errors.New("llmorch: no prompt for assessment")
	errNoChoices   = errors.New("llmorch: completion returned no choices")
)

func daysSince(t time.Time) float64 {
	if t.IsZero() {
		return 0
	}
	return time.Since(t).Hours() / 24
}

// parseAssessment extracts and validates the assessment-specific JSON
// schema, then folds it into the model's uniform QualitativeScore
// shape. Schema-specific fields the scorer needs beyond score/rationale
// are serialized into Signals as "key=value" strings rather than
// widening QualitativeScore itself.
func parseAssessment(a Assessment, raw string) (model.QualitativeScore, error) {
	switch a {
	case AssessmentReadme:
		var r readmeResult
		if err := parseInto(raw, a, &r); err != nil {
			return model.QualitativeScore{}, err
		}
		return model.QualitativeScore{
			Score:     r.Score,
			Rationale: r.Rationale,
			Signals: []string{
				fmt.Sprintf("installation=%.1f", r.Installation),
				fmt.Sprintf("quick_start=%.1f", r.QuickStart),
				fmt.Sprintf("examples=%.1f", r.Examples),
			},
		}, nil

	case AssessmentSentiment:
		var r sentimentResult
		if err := parseInto(raw, a, &r); err != nil {
			return model.QualitativeScore{}, err
		}
		return model.QualitativeScore{
			Score:     r.Score,
			Rationale: r.Rationale,
			Signals: []string{
				"tone=" + r.Tone,
				fmt.Sprintf("frustration=%.1f", r.Frustration),
			},
		}, nil

	case AssessmentCommunication:
		var r communicationResult
		if err := parseInto(raw, a, &r); err != nil {
			return model.QualitativeScore{}, err
		}
		return model.QualitativeScore{Score: r.Score, Rationale: r.Rationale}, nil

	case AssessmentMaintenance:
		var r maintenanceResult
		if err := parseInto(raw, a, &r); err != nil {
			return model.QualitativeScore{}, err
		}
		return model.QualitativeScore{
			Score:     r.Score,
			Rationale: r.Rationale,
			Signals:   []string{"status=" + r.Status},
		}, nil

	case AssessmentChangelog:
		var r changelogResult
		if err := parseInto(raw, a, &r); err != nil {
			return model.QualitativeScore{}, err
		}
		return model.QualitativeScore{
			Score:     r.Score,
			Rationale: r.Rationale,
			Signals: []string{
				fmt.Sprintf("quality=%.1f", r.Quality),
				fmt.Sprintf("breaking_marked=%t", r.BreakingMarked),
				fmt.Sprintf("has_migration_guide=%t", r.HasMigrationGuide),
			},
		}, nil

	case AssessmentGovernance:
		var r governanceResult
		if err := parseInto(raw, a, &r); err != nil {
			return model.QualitativeScore{}, err
		}
		return model.QualitativeScore{
			Score:     r.Score,
			Rationale: r.Rationale,
			Signals: []string{
				fmt.Sprintf("has_succession=%t", r.HasSuccession),
				fmt.Sprintf("multiple_owners=%t", r.MultipleOwners),
				"bus_factor_risk=" + r.BusFactorRisk,
			},
		}, nil

	case AssessmentSecurity:
		var r securityResult
		if err := parseInto(raw, a, &r); err != nil {
			return model.QualitativeScore{}, err
		}
		return model.QualitativeScore{
			Score:     r.Score,
			Rationale: r.Rationale,
			Signals:   r.CriticalFindings,
		}, nil
	}
	return model.QualitativeScore{}, fmt.Errorf("llmorch: unknown assessment %q", a)
}

func assign(result *model.LLMAssessment, a Assessment, score model.QualitativeScore) {
	switch a {
	case AssessmentReadme:
		result.Readme = &score
	case AssessmentSentiment:
		result.Sentiment = &score
	case AssessmentCommunication:
		result.Communication = &score
	case AssessmentMaintenance:
		result.Maintenance = &score
	case AssessmentChangelog:
		result.Changelog = &score
	case AssessmentGovernance:
		result.Governance = &score
	case AssessmentSecurity:
		result.Security = &score
	}
}
