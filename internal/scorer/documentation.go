package scorer

import "github.com/pkgrisk/analyzer/internal/model"

// documentationScore is a 40-point presence budget plus a 60-point
// quality budget driven by the LLM readme/changelog assessments. When
// no LLM assessment ran, a flat 30-point baseline substitutes for the
// quality budget if a README exists at all.
func documentationScore(in Input) float64 {
	var score float64
	var files model.RepoFiles
	if in.HasRepoFacts {
		files = in.Facts.Files
	}

	if files.HasReadme {
		score += 10
		score += readmeSizeTierBonus(files.ReadmeBytes)
	}
	if files.HasDocsDir {
		score += 10
	}
	if files.HasExamplesDir {
		score += 10
	}
	if files.HasChangelog {
		score += 5
	}

	if in.LLM != nil && in.LLM.Readme != nil {
		score += scaledSub(llmSignalFloat(in.LLM.Readme, "installation"))
		score += scaledSub(llmSignalFloat(in.LLM.Readme, "quick_start"))
		score += scaledSub(llmSignalFloat(in.LLM.Readme, "examples"))
		if in.LLM.Changelog != nil {
			score += clampMax(parseFloatSignal(in.LLM.Changelog.Signals, "quality")*0.15, 15)
		}
	} else if files.HasReadme {
		score += 30
	}

	if in.Metadata.HasTypes {
		score += 5
	}

	return score
}

// readmeSizeTierBonus bands README length into the remaining 5 points
// of the 15-point README presence budget (10 for existing, up to 5 more
// for substantive length).
func readmeSizeTierBonus(bytes int) float64 {
	switch {
	case bytes >= 5000:
		return 5
	case bytes >= 1500:
		return 3
	case bytes > 0:
		return 1
	default:
		return 0
	}
}

func scaledSub(raw float64) float64 {
	return clampMax(raw*1.5*0.1, 15)
}

func clampMax(v, max float64) float64 {
	if v > max {
		return max
	}
	return v
}

func llmSignalFloat(q *model.QualitativeScore, key string) float64 {
	return parseFloatSignal(q.Signals, key)
}
