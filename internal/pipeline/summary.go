package pipeline

import (
	"fmt"

	"github.com/pkgrisk/analyzer/internal/model"
)

// buildSummary synthesizes a human-readable digest from every section of
// the analysis. Supply-chain critical findings are unshifted to the
// front of Concerns, ahead of anything scoring-derived, since they are
// the signal most likely to need immediate action.
func buildSummary(a model.Analysis) model.Summary {
	var s model.Summary

	for _, finding := range a.SupplyChain.CriticalFindings {
		s.Concerns = append([]string{finding}, s.Concerns...)
	}

	if a.Vulns.HasUnpatched() {
		s.Concerns = append(s.Concerns, fmt.Sprintf("%d unpatched known vulnerabilit(y/ies)", countUnpatched(a.Vulns)))
	}

	if a.Scores != nil {
		switch a.Scores.Grade {
		case model.GradeA, model.GradeB:
			s.Highlights = append(s.Highlights, fmt.Sprintf("overall grade %s (%.0f/100)", a.Scores.Grade, a.Scores.Overall))
		case model.GradeD, model.GradeF:
			s.Concerns = append(s.Concerns, fmt.Sprintf("overall grade %s (%.0f/100)", a.Scores.Grade, a.Scores.Overall))
		}
		if a.Scores.RiskTier == model.RiskTierProhibited || a.Scores.RiskTier == model.RiskTierRestricted {
			s.Concerns = append(s.Concerns, fmt.Sprintf("risk tier: %s", a.Scores.RiskTier))
		}
		if a.Scores.Confidence == model.ConfidenceLow {
			s.Concerns = append(s.Concerns, "low confidence: "+joinConcerns(a.Scores.ConfidenceFactors))
		}
	}

	if a.RepoFacts.Info.Archived {
		s.Concerns = append(s.Concerns, "repository is archived")
	}
	if a.RepoFacts.Info.Deprecated {
		s.Concerns = append(s.Concerns, "repository shows deprecation signals")
	}
	if a.RepoFacts.Contributors.Total >= 5 {
		s.Highlights = append(s.Highlights, fmt.Sprintf("%d active contributors", a.RepoFacts.Contributors.Total))
	}

	if a.LLM != nil && !a.LLM.Skipped {
		if a.LLM.Security != nil && a.LLM.Security.Score < 50 {
			s.Concerns = append(s.Concerns, "LLM security review flagged concerns: "+a.LLM.Security.Rationale)
		}
		if a.LLM.Maintenance != nil && a.LLM.Maintenance.Score >= 80 {
			s.Highlights = append(s.Highlights, "LLM maintenance review: "+a.LLM.Maintenance.Rationale)
		}
	}

	if !a.Availability.Scorable() {
		s.Concerns = append(s.Concerns, "not scored: "+a.Availability.Reason())
	}

	return s
}

func countUnpatched(h model.CVEHistory) int {
	n := 0
	for _, c := range h.Items {
		if !c.Withdrawn && c.FixedVersion == "" {
			n++
		}
	}
	return n
}

func joinConcerns(items []string) string {
	out := ""
	for i, s := range items {
		if i > 0 {
			out += "; "
		}
		out += s
	}
	return out
}
