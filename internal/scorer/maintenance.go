package scorer

import (
	"math"

	"github.com/pkgrisk/analyzer/internal/model"
)

var releaseCadenceSweetSpot = map[model.Ecosystem][2]int{
	model.EcosystemNPM:      {12, 52},
	model.EcosystemHomebrew: {4, 12},
}

var issueResponseThresholdHrs = map[model.Ecosystem]float64{
	model.EcosystemNPM:      24,
	model.EcosystemHomebrew: 48,
}

func maintenanceScore(in Input) float64 {
	f := in.Facts
	score := 100.0

	if f.Info.Archived {
		score -= 40
	}
	if f.Info.Deprecated {
		score -= 30
	}

	daysSinceCommit := in.Now.Sub(f.Info.PushedAt).Hours() / 24
	if daysSinceCommit < 0 {
		daysSinceCommit = 0
	}
	recencyFactor := math.Exp(-daysSinceCommit / 180)
	score *= 0.3 + 0.7*recencyFactor

	switch {
	case f.Commits.CommitsLast180d == 0:
		score -= 20
	case f.Commits.CommitsLast180d >= 10:
		score += 8 // +5 base plus the additional +3
	case f.Commits.CommitsLast180d >= 1:
		score += 5
	}

	threshold := issueResponseThresholdHrs[in.Ecosystem]
	if threshold == 0 {
		threshold = 24
	}
	switch {
	case f.Issues.AvgFirstResponseHrs > 0 && f.Issues.AvgFirstResponseHrs < threshold:
		score += 10
	case f.Issues.AvgFirstResponseHrs > 0 && f.Issues.AvgFirstResponseHrs < 7*24:
		score += 5
	case f.Issues.AvgFirstResponseHrs > 30*24:
		score -= 10
	}
	if f.Issues.AvgCloseTimeHrs > 0 && f.Issues.AvgCloseTimeHrs < 30*24 {
		score += 5
	}

	switch {
	case f.Issues.CloseRatePct > 0 && f.Issues.CloseRatePct < 30:
		score -= 15
	case f.Issues.CloseRatePct > 70:
		score += 5
	}

	stalePenalty := float64(f.PRs.StaleCount) * -2
	if stalePenalty < -15 {
		stalePenalty = -15
	}
	score += stalePenalty

	score += releaseCadenceAdjustment(in.Ecosystem, f.Releases.ReleasesLastYear, f.Commits.CommitsLast365d)

	if in.LLM != nil && in.LLM.Maintenance != nil {
		baseline := maintenanceStatusBaseline[signalValue(in.LLM.Maintenance.Signals, "status")]
		if baseline == 0 {
			baseline = in.LLM.Maintenance.Score
		}
		score = 0.7*score + 0.3*baseline
	}

	return score
}

func releaseCadenceAdjustment(eco model.Ecosystem, releasesLastYear, commitsLastYear int) float64 {
	sweet, ok := releaseCadenceSweetSpot[eco]
	if !ok {
		sweet = [2]int{4, 52}
	}
	switch {
	case releasesLastYear >= sweet[0] && releasesLastYear <= sweet[1]:
		return 10
	case releasesLastYear >= 1 && releasesLastYear < sweet[0]:
		return 5
	case releasesLastYear == 0 && commitsLastYear > 0:
		return -5
	case releasesLastYear == 0:
		return -10
	default:
		return 0
	}
}

var maintenanceStatusBaseline = map[string]float64{
	"actively-maintained": 100,
	"maintained":          80,
	"minimal":             60,
	"stale":               40,
	"abandoned":           20,
}

