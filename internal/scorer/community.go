package scorer

import (
	"time"

	"github.com/pkgrisk/analyzer/internal/model"
)

// installThresholds bands monthly download counts into a community
// bonus, per ecosystem since typical volumes differ by an order of
// magnitude between registries.
var installThresholds = map[model.Ecosystem][3]int64{
	model.EcosystemNPM:      {1_000_000, 100_000, 10_000},
	model.EcosystemPyPI:     {1_000_000, 100_000, 10_000},
	model.EcosystemHomebrew: {50_000, 10_000, 1_000},
	model.EcosystemCrates:   {500_000, 50_000, 5_000},
}

func communityScore(in Input) float64 {
	score := 70.0

	stars, forks := communityStarsForks(in)
	score += starsPerYearBonus(stars, in.PackageAge)
	if stars > 0 && float64(forks)/float64(stars) > 0.1 {
		score += 5
	}

	if in.HasRepoFacts {
		switch in.Facts.Contributors.Trend {
		case model.TrendGrowing:
			score += 10
		case model.TrendDeclining:
			score -= 15
		}
		switch {
		case in.Facts.Contributors.FirstTimeLast6Mo >= 5:
			score += 5
		case in.Facts.Contributors.FirstTimeLast6Mo >= 1:
			score += 2
		}
		score += communityHealthBonus(in.Facts.Files, in.Facts.Info.HasDiscussions)
	}

	score += installCountBonus(in.Ecosystem, in.Installs)
	score += llmSentimentAdjustment(in.LLM)

	return score
}

func communityStarsForks(in Input) (int, int) {
	if in.HasRepoFacts {
		return in.Facts.Info.Stars, in.Facts.Info.Forks
	}
	return in.Aggregator.Basic.Stars, in.Aggregator.Basic.Forks
}

func starsPerYearBonus(stars int, age time.Duration) float64 {
	years := age.Hours() / 24 / 365
	if years < 0.5 {
		years = 0.5
	}
	perYear := float64(stars) / years
	switch {
	case perYear >= 1000:
		return 15
	case perYear >= 200:
		return 10
	case perYear >= 20:
		return 5
	default:
		return 0
	}
}

func communityHealthBonus(files model.RepoFiles, hasDiscussions bool) float64 {
	var bonus float64
	if files.HasContributing {
		bonus += 5
	}
	if files.HasIssueTemplate {
		bonus += 3
	}
	if files.HasPRTemplate {
		bonus += 3
	}
	if files.HasCodeOfConduct {
		bonus += 3
	}
	if hasDiscussions {
		bonus += 5
	}
	return bonus
}

func installCountBonus(eco model.Ecosystem, installs model.InstallStats) float64 {
	if installs.DownloadsLast30d == nil {
		return 0
	}
	thresholds, ok := installThresholds[eco]
	if !ok {
		thresholds = installThresholds[model.EcosystemNPM]
	}
	count := *installs.DownloadsLast30d
	switch {
	case count >= thresholds[0]:
		return 15
	case count >= thresholds[1]:
		return 10
	case count >= thresholds[2]:
		return 5
	default:
		return 0
	}
}

func llmSentimentAdjustment(llm *model.LLMAssessment) float64 {
	if llm == nil || llm.Sentiment == nil {
		return 0
	}
	var adj float64
	switch signalValue(llm.Sentiment.Signals, "tone") {
	case "positive":
		adj += 10
	case "mixed":
		adj -= 5
	case "negative":
		adj -= 15
	}
	frustration := parseFloatSignal(llm.Sentiment.Signals, "frustration")
	switch {
	case frustration >= 7:
		adj -= 10
	case frustration >= 5:
		adj -= 5
	}
	return adj
}
