// Package scorer computes the weighted composite risk assessment for a
// package from every fact gathered about it: repository health,
// vulnerability history, supply-chain findings, cross-forge aggregator
// data, and (when available) LLM qualitative assessments.
package scorer

import (
	"time"

	"github.com/pkgrisk/analyzer/internal/model"
	"github.com/pkgrisk/analyzer/pkg/observability"
)

// Input bundles every fact the scorer reads. HasRepoFacts distinguishes
// a GitHub repository (full RepoFacts available) from a partial_forge
// result (aggregator-only data for a non-GitHub forge) — several
// categories have no non-GitHub data source and are excluded from
// weighting in that case rather than scored from nothing.
type Input struct {
	HasRepoFacts bool
	Facts        model.RepoFacts
	Vulns        model.CVEHistory
	LLM          *model.LLMAssessment
	Installs     model.InstallStats
	Ecosystem    model.Ecosystem
	Metadata     model.PackageMetadata
	SupplyChain  model.SupplyChainData
	Aggregator   model.AggregatorData
	PackageAge   time.Duration
	Now          time.Time
}

const (
	weightSecurity      = 0.30
	weightMaintenance   = 0.25
	weightCommunity     = 0.15
	weightBusFactor     = 0.10
	weightDocumentation = 0.10
	weightStability     = 0.10
)

// Score computes the full composite Scores for one package. logger may
// be nil; when given, it is used to flag the degenerate case where
// every component is unavailable and the overall score falls back to 0.
func Score(in Input, logger observability.Logger) model.Scores {
	components := []model.ScoreComponent{
		{Name: "security", Weight: weightSecurity, RawScore: clamp(securityScore(in)), Available: true},
		{Name: "maintenance", Weight: weightMaintenance, Available: in.HasRepoFacts},
		{Name: "community", Weight: weightCommunity, Available: true},
		{Name: "bus_factor", Weight: weightBusFactor, Available: in.HasRepoFacts},
		{Name: "documentation", Weight: weightDocumentation, Available: true},
		{Name: "stability", Weight: weightStability, Available: in.HasRepoFacts},
	}
	if in.HasRepoFacts {
		components[1].RawScore = clamp(maintenanceScore(in))
		components[3].RawScore = clamp(busFactorScore(in))
		components[5].RawScore = clamp(stabilityScore(in))
	}
	components[2].RawScore = clamp(communityScore(in))
	components[4].RawScore = clamp(documentationScore(in))

	overall := weightedMean(components)
	if overall == 0 && !anyAvailable(components) && logger != nil {
		logger.Warnf("scorer: %s %s: every score component unavailable, overall forced to 0", in.Ecosystem, in.Metadata.Name)
	}
	grade := model.GradeFromScore(overall)

	concerns := confidenceConcerns(in)
	confidence := model.ConfidenceHigh
	switch {
	case len(concerns) > 2:
		confidence = model.ConfidenceLow
	case len(concerns) > 0:
		confidence = model.ConfidenceMedium
	}

	securityRaw := components[0].RawScore
	return model.Scores{
		Overall:           overall,
		Grade:             grade,
		RiskTier:          riskTier(in, overall, securityRaw),
		UpdateUrgency:     updateUrgency(in),
		Confidence:        confidence,
		ConfidenceFactors: concerns,
		ProjectAgeBand:    model.AgeBandFromAge(in.PackageAge),
		Components:        components,
	}
}

func anyAvailable(components []model.ScoreComponent) bool {
	for _, c := range components {
		if c.Available {
			return true
		}
	}
	return false
}

func weightedMean(components []model.ScoreComponent) float64 {
	var weightedSum, weightTotal float64
	for _, c := range components {
		if !c.Available {
			continue
		}
		weightedSum += c.RawScore * c.Weight
		weightTotal += c.Weight
	}
	if weightTotal == 0 {
		return 0
	}
	return weightedSum / weightTotal
}

func clamp(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 100:
		return 100
	default:
		return v
	}
}

func confidenceConcerns(in Input) []string {
	var concerns []string
	if in.LLM == nil || in.LLM.Skipped {
		concerns = append(concerns, "missing LLM assessment")
	}
	if in.PackageAge > 0 && in.PackageAge < 6*30*24*time.Hour {
		concerns = append(concerns, "package age < 6 months")
	}
	if in.HasRepoFacts && in.Facts.Contributors.Total < 2 {
		concerns = append(concerns, "fewer than 2 contributors")
	}
	totalIssues := in.Facts.Issues.OpenCount + in.Facts.Issues.ClosedCount
	if in.HasRepoFacts && totalIssues < 5 {
		concerns = append(concerns, "fewer than 5 issues ever")
	}
	return concerns
}
