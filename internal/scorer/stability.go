package scorer

import "github.com/pkgrisk/analyzer/internal/model"

func stabilityScore(in Input) float64 {
	f := in.Facts
	score := 60.0

	if f.Releases.LatestIsMajorGE1 {
		score += 15
	}
	switch {
	case f.Releases.PrereleaseRatio > 0.5:
		score -= 10
	case f.Releases.PrereleaseRatio < 0.1:
		score += 5
	}
	if f.Files.HasTestsDir {
		score += 5
	}

	score += ciDepthAdjustment(f.CI.Depth)

	regressionIssues := countRegressionIssues(f)
	switch {
	case regressionIssues > 5:
		score -= 10
	case regressionIssues > 0:
		score -= 5
	}

	if in.LLM != nil && in.LLM.Changelog != nil {
		if parseBoolSignal(in.LLM.Changelog.Signals, "breaking_marked") {
			score += 5
		}
		if parseBoolSignal(in.LLM.Changelog.Signals, "has_migration_guide") {
			score += 5
		}
	}

	return score
}

func ciDepthAdjustment(d model.CIDepth) float64 {
	if !d.HasTests && !d.HasLint && !d.HasSecurity && !d.HasRelease && !d.HasMultiPlatform {
		return -5
	}
	score := 5.0
	if d.HasTests {
		score += 5
	}
	if d.HasLint {
		score += 3
	}
	if d.HasSecurity {
		score += 5
	}
	if d.HasRelease {
		score += 3
	}
	if d.HasMultiPlatform {
		score += 5
	}
	if d.PassRateKnown {
		switch {
		case d.PassRatePct >= 95:
			score += 5
		case d.PassRatePct < 70:
			score -= 10
		}
	}
	return score
}

// countRegressionIssues has no dedicated repo-host field (GitHub
// doesn't expose a structured "regression" classification); it is
// approximated as the open-issue count divided by 10, and is 0 when the
// close rate is zero.
func countRegressionIssues(f model.RepoFacts) int {
	if f.Issues.CloseRatePct == 0 {
		return 0
	}
	return f.Issues.OpenCount / 10
}
