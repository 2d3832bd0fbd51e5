package scorer

import "github.com/pkgrisk/analyzer/internal/model"

func busFactorScore(in Input) float64 {
	f := in.Facts
	score := 50.0

	if f.Contributors.EntropyDefined {
		bonus := 8 * f.Contributors.EntropyBits
		if bonus > 25 {
			bonus = 25
		}
		score += bonus
	} else if f.Contributors.CountAtLeast5Pct > 0 {
		score += float64(f.Contributors.CountAtLeast5Pct) * 2
	}

	switch {
	case f.Contributors.TopContributorPct > 90:
		score -= 20
	case f.Contributors.TopContributorPct > 75:
		score -= 10
	case f.Contributors.TopContributorPct > 0 && f.Contributors.TopContributorPct < 50:
		score += 10
	}

	switch {
	case f.Contributors.ActiveLast6Months >= 5:
		score += 10
	case f.Contributors.ActiveLast6Months >= 2:
		score += 5
	case f.Contributors.ActiveLast6Months == 1:
		score -= 10
	}

	switch f.Contributors.Trend {
	case model.TrendGrowing:
		score += 5
	case model.TrendDeclining:
		score -= 10
	}

	if f.Files.HasCodeowners {
		score += 5
	}
	if f.Files.HasGovernance {
		score += 5
	}

	switch {
	case in.Metadata.MaintainerCount >= 3:
		score += 10
	case in.Metadata.MaintainerCount == 2:
		score += 5
	case in.Metadata.MaintainerCount == 1:
		score -= 5
	}

	score += llmGovernanceAdjustment(in.LLM)

	return score
}

func llmGovernanceAdjustment(llm *model.LLMAssessment) float64 {
	if llm == nil || llm.Governance == nil {
		return 0
	}
	var adj float64
	if parseBoolSignal(llm.Governance.Signals, "has_succession") {
		adj += 10
	}
	if parseBoolSignal(llm.Governance.Signals, "multiple_owners") {
		adj += 5
	}
	switch signalValue(llm.Governance.Signals, "bus_factor_risk") {
	case "high":
		adj -= 15
	case "low":
		adj += 10
	}
	return adj
}
