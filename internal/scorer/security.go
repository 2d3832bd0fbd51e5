package scorer

import (
	"time"

	"github.com/pkgrisk/analyzer/internal/model"
)

var cveSeverityPenalty = map[model.Severity]float64{
	model.SeverityCritical: -20,
	model.SeverityHigh:     -15,
	model.SeverityMedium:   -8,
	model.SeverityLow:      -3,
	model.SeverityUnknown:  -10,
}

const cvePenaltyCap = -60

// securityScore starts from a 100 baseline and applies every additive
// adjustment in §4.G's Security section. It degrades gracefully when
// RepoFacts is absent (partial_forge): only CVE and supply-chain
// adjustments apply.
func securityScore(in Input) float64 {
	score := 100.0

	score += cvePenalty(in.Vulns)
	score += patchTimeAdjustment(in.Vulns, in.Now)

	if in.HasRepoFacts {
		score += vulnerableDepsPenalty(in)
		score += securityPostureAdjustment(in.Facts.Security)
		score += signedCommitsAdjustment(in.Facts.Commits.SignedCommitPct)
	}

	score += supplyChainBonuses(in)
	score += clampFloor(supplyChainPenalties(in.SupplyChain), -80)
	score += llmSecurityBlend(in, score)

	return score
}

func cvePenalty(h model.CVEHistory) float64 {
	var total float64
	for _, c := range h.Items {
		if c.Withdrawn {
			continue
		}
		total += cveSeverityPenalty[c.Severity]
	}
	if total < cvePenaltyCap {
		return cvePenaltyCap
	}
	return total
}

func patchTimeAdjustment(h model.CVEHistory, now time.Time) float64 {
	var adj float64
	if avg, ok := h.AvgDaysToPatch(); ok {
		switch {
		case avg < 7:
			adj += 10
		case avg < 30:
			adj += 5
		case avg > 90:
			adj -= 10
		}
	}
	if age, ok := h.OldestUnpatchedAge(now); ok && age > 30*24*time.Hour {
		adj -= 15
	}
	return adj
}

func vulnerableDepsPenalty(in Input) float64 {
	count := in.Facts.Security.VulnerableDeps
	if in.Aggregator.DepGraph.VulnerableCount > count {
		count = in.Aggregator.DepGraph.VulnerableCount
	}
	penalty := float64(count) * -5
	if penalty < -20 {
		return -20
	}
	return penalty
}

func securityPostureAdjustment(s model.SecurityFacts) float64 {
	var adj float64
	if !s.HasSecurityPolicy {
		adj -= 10
	}
	switch {
	case len(s.SecurityTools) == 0:
		adj -= 10
	case len(s.SecurityTools) == 2:
		adj += 5
	case len(s.SecurityTools) >= 3:
		adj += 10
	}
	return adj
}

func signedCommitsAdjustment(pct float64) float64 {
	switch {
	case pct >= 80:
		return 10
	case pct >= 50:
		return 5
	default:
		return 0
	}
}

func supplyChainBonuses(in Input) float64 {
	var adj float64
	level := in.Facts.Security.SLSALevel
	if in.Aggregator.SLSALevel > level {
		level = in.Aggregator.SLSALevel
	}
	switch {
	case level >= 3:
		adj += 15
	case level == 2:
		adj += 10
	case level == 1:
		adj += 5
	}
	hasSigstore := in.Facts.Security.HasSigstore
	hasSBOM := in.Facts.Security.HasSBOM
	reproducible := in.Facts.Security.ReproducibleBuild
	if in.Aggregator.SLSAAttestation {
		hasSigstore = hasSigstore || in.Aggregator.SLSAAttestation
	}
	if hasSigstore {
		adj += 10
	}
	if hasSBOM {
		adj += 5
	}
	if reproducible {
		adj += 5
	}
	return adj
}

// supplyChainPenalties implements §4.G's additive supply-chain risk
// penalty list. "During preinstall" distinctions use the aggregate
// HasPreinstall flag crossed with the aggregate pattern flags, since
// the lifecycle scanner doesn't track pattern-to-script-location
// pairs individually — a documented approximation, not a spec gap.
func supplyChainPenalties(sc model.SupplyChainData) float64 {
	if !sc.Available {
		return 0
	}
	var penalty float64
	lc := sc.Lifecycle

	if lc.HasRuntimeInstall {
		penalty -= 50
	}
	if lc.HasCredentialAccess {
		penalty -= 40
	}
	if lc.HasObfuscation {
		penalty -= 30
	}
	switch {
	case lc.HasPreinstall && lc.HasNetworkFetch:
		penalty -= 25
	case lc.HasNetworkFetch:
		penalty -= 15
	}
	if lc.HasPreinstall && lc.HasPipeToShell {
		penalty -= 20
	}
	if lc.HasPreinstall {
		penalty -= 10
	} else if lc.HasPostinstall {
		penalty -= 5
	}
	if lc.HasCredentialAccess && lc.HasNetworkFetch {
		penalty -= 20
	}
	if !lc.HasPreinstall && !lc.HasInstall && !lc.HasPostinstall {
		penalty += 5
	}

	tarballFindings := len(sc.Tarball.KnownMalicious)
	if tarballFindings > 2 {
		tarballFindings = 2
	}
	penalty -= float64(tarballFindings) * 20

	if len(sc.Tarball.ExtraFiles) > 10 {
		penalty -= 15
	}

	for _, diff := range sc.VersionDiffs {
		if diff.IsAnomalous {
			penalty -= 15
		}
		for _, s := range diff.NewScripts {
			switch s {
			case "preinstall", "install":
				penalty -= 20
			case "postinstall":
				penalty -= 10
			}
		}
	}

	if sc.Publishing.PublisherKnown && !sc.Publishing.PublisherInMaintainers {
		penalty -= 15
	}
	if sc.Publishing.HasProvenance {
		if sc.Publishing.ProvenanceVerified {
			penalty += 10
		} else {
			penalty += 5
		}
	}

	return penalty
}

func clampFloor(v, floor float64) float64 {
	if v < floor {
		return floor
	}
	return v
}

// llmSecurityBlend blends the running score with the LLM security
// assessment at 80/20, then subtracts per-critical-finding penalties.
// Returns the delta to add (blended - running), since the caller
// already holds the running score. The LLM security prompt's score is
// specified on this pipeline's uniform 0-100 scale (see schemas.go),
// so no further ×10 rescale applies here.
func llmSecurityBlend(in Input, running float64) float64 {
	if in.LLM == nil || in.LLM.Security == nil {
		return 0
	}
	blended := running*0.8 + in.LLM.Security.Score*0.2
	delta := blended - running

	findings := len(in.LLM.Security.Signals)
	penalty := float64(findings) * -10
	if penalty < -20 {
		penalty = -20
	}
	return delta + penalty
}
