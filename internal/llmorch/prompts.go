package llmorch

import (
	"fmt"
	"strings"
)

const systemPreamble = "You are a software supply-chain risk analyst. Respond with a single JSON object matching the requested schema and nothing else. Do not include explanations outside the JSON."

// prompt returns the (system, user) pair for one assessment. Every
// prompt asks for low-temperature, deterministic-leaning output; the
// temperature itself is set on the request, not in the prompt text.
func prompt(a Assessment, c Content) (string, string) {
	switch a {
	case AssessmentReadme:
		return systemPreamble, fmt.Sprintf(
			`Evaluate this README for documentation quality. Score 0-100 overall, and separately score installation clarity, quick-start clarity, and usage examples (each 0-100).
Schema: {"score": number, "installation": number, "quick_start": number, "examples": number, "rationale": string}

README:
%s`, truncate(c.Readme, 12000))

	case AssessmentSentiment:
		return systemPreamble, fmt.Sprintf(
			`Evaluate the overall community sentiment and maintainer tone from these recent issue titles/bodies/comments. Score 0-100, classify tone as "positive", "mixed", or "negative", and rate frustration_level 0-10.
Schema: {"score": number, "tone": string, "frustration_level": number, "rationale": string}

Issue activity:
%s`, truncate(strings.Join(c.MaintainerComments, "\n---\n"), 12000))

	case AssessmentCommunication:
		return systemPreamble, fmt.Sprintf(
			`Evaluate maintainer communication quality and responsiveness from these recent issue threads. Score 0-100.
Schema: {"score": number, "rationale": string}

Issue activity:
%s`, truncate(strings.Join(c.MaintainerComments, "\n---\n"), 12000))

	case AssessmentMaintenance:
		f := c.RepoFacts
		return systemPreamble, fmt.Sprintf(
			`Assess project maintenance health from these structured signals (not free text). Score 0-100 and classify status as one of "actively-maintained", "maintained", "minimal", "stale", "abandoned".
Schema: {"score": number, "status": string, "rationale": string}

Signals:
- days since last commit: %.0f
- commits in last 180 days: %d
- commits in last 365 days: %d
- open issues: %d, closed issues: %d
- average issue close time (hours): %.1f
- archived: %t
- deprecated: %t`,
			daysSince(f.Info.PushedAt), f.Commits.CommitsLast180d, f.Commits.CommitsLast365d,
			f.Issues.OpenCount, f.Issues.ClosedCount, f.Issues.AvgCloseTimeHrs,
			f.Info.Archived, f.Info.Deprecated)

	case AssessmentChangelog:
		return systemPreamble, fmt.Sprintf(
			`Evaluate this changelog. Score 0-100 overall and 0-100 for quality/detail. Report whether breaking changes are clearly marked and whether migration guides are present.
Schema: {"score": number, "quality": number, "breaking_changes_marked": bool, "has_migration_guides": bool, "rationale": string}

Changelog:
%s`, truncate(c.Changelog, 12000))

	case AssessmentGovernance:
		return systemPreamble, fmt.Sprintf(
			`Evaluate project governance and maintainer succession risk from this governance document (it may be empty, meaning none was found). Score 0-100. Report whether a succession plan exists, whether multiple maintainers share ownership, and classify bus_factor_risk as "low", "medium", or "high".
Schema: {"score": number, "has_succession_plan": bool, "multiple_maintainers": bool, "bus_factor_risk": string, "rationale": string}

Governance document:
%s`, truncate(c.Governance, 8000))

	case AssessmentSecurity:
		var b strings.Builder
		for _, s := range c.SourceSamples {
			b.WriteString("--- ")
			b.WriteString(s.Path)
			b.WriteString(" ---\n")
			b.WriteString(s.Content)
			b.WriteString("\n")
		}
		return systemPreamble, fmt.Sprintf(
			`Review these source file samples (chosen for likely security relevance: entry points, config, auth, input handling, database access, network calls) for security concerns. Score 0-100 (100 = no concerns). List any critical findings as short human-readable strings.
Schema: {"score": number, "critical_findings": [string], "rationale": string}

Source samples:
%s`, truncate(b.String(), 40000))
	}
	return systemPreamble, ""
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "\n...(truncated)"
}
