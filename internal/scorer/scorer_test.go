package scorer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/pkgrisk/analyzer/internal/model"
)

func TestCVEPenalty_Cap(t *testing.T) {
	history := model.CVEHistory{}
	for i := 0; i < 10; i++ {
		history.Items = append(history.Items, model.CVEDetail{Severity: model.SeverityCritical})
	}
	assert.Equal(t, float64(cvePenaltyCap), cvePenalty(history))
}

func TestCVEPenalty_IgnoresWithdrawn(t *testing.T) {
	history := model.CVEHistory{Items: []model.CVEDetail{
		{Severity: model.SeverityCritical, Withdrawn: true},
		{Severity: model.SeverityLow},
	}}
	assert.Equal(t, -3.0, cvePenalty(history))
}

func TestAgeBandFromAge(t *testing.T) {
	cases := []struct {
		years float64
		want  model.ProjectAgeBand
	}{
		{0.5, model.AgeBandNew},
		{2, model.AgeBandEstablished},
		{5, model.AgeBandMature},
		{10, model.AgeBandLegacy},
	}
	for _, c := range cases {
		age := time.Duration(c.years * 365 * 24 * float64(time.Hour))
		assert.Equal(t, c.want, model.AgeBandFromAge(age), "years=%v", c.years)
	}
}

func TestGradeFromScore(t *testing.T) {
	cases := []struct {
		score float64
		want  model.Grade
	}{
		{95, model.GradeA},
		{85, model.GradeB},
		{75, model.GradeC},
		{65, model.GradeD},
		{40, model.GradeF},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, model.GradeFromScore(c.score), "score=%v", c.score)
	}
}

func TestScore_WithoutRepoFacts_ExcludesRepoDependentComponents(t *testing.T) {
	scores := Score(Input{
		HasRepoFacts: false,
		Ecosystem:    model.EcosystemNPM,
		Metadata:     model.PackageMetadata{Name: "left-pad"},
		Now:          time.Now(),
	}, nil)

	byName := make(map[string]model.ScoreComponent, len(scores.Components))
	for _, c := range scores.Components {
		byName[c.Name] = c
	}
	assert.False(t, byName["maintenance"].Available)
	assert.False(t, byName["bus_factor"].Available)
	assert.False(t, byName["stability"].Available)
	assert.True(t, byName["security"].Available)
	assert.True(t, byName["community"].Available)
	assert.True(t, byName["documentation"].Available)
}

func TestScore_ProhibitsArchivedRepo(t *testing.T) {
	scores := Score(Input{
		HasRepoFacts: true,
		Facts:        model.RepoFacts{Info: model.RepoInfo{Archived: true}},
		Ecosystem:    model.EcosystemNPM,
		Now:          time.Now(),
	}, nil)
	assert.Equal(t, model.RiskTierProhibited, scores.RiskTier)
}

func TestScore_UrgencyCriticalOnCredentialAccessFlag(t *testing.T) {
	scores := Score(Input{
		SupplyChain: model.SupplyChainData{
			Available:       true,
			BehavioralFlags: []model.SupplyChainBehavioralFlag{model.FlagAccessesCredentials},
		},
		Ecosystem: model.EcosystemNPM,
		Now:       time.Now(),
	}, nil)
	assert.Equal(t, model.UrgencyCritical, scores.UpdateUrgency)
}

func TestScore_UrgencyCriticalOnUnpatchedCriticalCVE(t *testing.T) {
	scores := Score(Input{
		Vulns: model.CVEHistory{Items: []model.CVEDetail{
			{Severity: model.SeverityCritical},
		}},
		Ecosystem: model.EcosystemNPM,
		Now:       time.Now(),
	}, nil)
	assert.Equal(t, model.UrgencyCritical, scores.UpdateUrgency)
}

func TestConfidenceConcerns_LowWithoutLLMAndFewContributors(t *testing.T) {
	concerns := confidenceConcerns(Input{
		HasRepoFacts: true,
		Facts:        model.RepoFacts{Contributors: model.ContributorStats{Total: 1}},
		PackageAge:   30 * 24 * time.Hour,
	})
	assert.Contains(t, concerns, "missing LLM assessment")
	assert.Contains(t, concerns, "package age < 6 months")
	assert.Contains(t, concerns, "fewer than 2 contributors")
}
