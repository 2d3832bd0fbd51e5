package supplychain

import (
	"context"
	"fmt"

	"github.com/pkgrisk/analyzer/internal/adapters"
	"github.com/pkgrisk/analyzer/internal/model"
	"github.com/pkgrisk/analyzer/pkg/observability"
)

// Analyze runs the four supply-chain sub-analyses for an npm package's
// currently published version and aggregates them into a single
// SupplyChainData record. repoTree is the set of paths known to exist in
// the tagged repository (nil when the repository tree could not be
// fetched); it is used only to decide which tarball members are
// "extra" relative to source control. logger may be nil, in which case
// sub-analysis failures are silently degraded as before.
func Analyze(ctx context.Context, npm *adapters.NpmAdapter, name string, repoTree map[string]bool, logger observability.Logger) (model.SupplyChainData, error) {
	if logger == nil {
		logger = observability.NewNoopLogger()
	}

	manifests, latest, err := npm.FetchVersionManifests(ctx, name)
	if err != nil {
		return model.SupplyChainData{}, fmt.Errorf("supplychain: fetching manifests for %s: %w", name, err)
	}
	latestManifest, ok := manifests[latest]
	if !ok {
		return model.SupplyChainData{}, fmt.Errorf("supplychain: %s has no manifest for dist-tag latest %q", name, latest)
	}

	data := model.SupplyChainData{Available: true}
	data.Lifecycle = AnalyzeLifecycle(latestManifest.Scripts)

	if latestManifest.TarballURL != "" {
		raw, err := npm.FetchTarball(ctx, latestManifest.TarballURL)
		if err != nil {
			logger.Warnf("supplychain: %s: tarball fetch failed: %v", name, err)
		} else if tarball, err := AnalyzeTarball(raw, repoTree); err != nil {
			logger.Warnf("supplychain: %s: tarball analysis failed: %v", name, err)
		} else {
			data.Tarball = tarball
		}
	}

	if diff, ok := AnalyzeVersionDiff(manifests, latest); ok {
		data.VersionDiffs = []model.VersionDiff{diff}
	}

	data.Publishing = AnalyzePublishing(latestManifest)

	aggregate(&data)
	return data, nil
}

// aggregate computes the composite risk score and level: the maximum of
// the four component scores, plus a compounding +20 when two or more
// components independently score 50 or higher, capped at 100.
func aggregate(data *model.SupplyChainData) {
	components := []float64{
		data.Lifecycle.Score,
		data.Tarball.Score,
		versionDiffMax(data.VersionDiffs),
		data.Publishing.Score,
	}

	var maxScore float64
	atOrAbove50 := 0
	for _, c := range components {
		if c > maxScore {
			maxScore = c
		}
		if c >= 50 {
			atOrAbove50++
		}
	}
	if atOrAbove50 >= 2 {
		maxScore += 20
	}
	if maxScore > 100 {
		maxScore = 100
	}

	data.OverallRiskScore = maxScore
	data.RiskLevel = model.RiskLevelFromScore(maxScore)

	data.AllSuspiciousPatterns = append(append([]model.SuspiciousPattern{}, data.Lifecycle.Patterns...), data.Tarball.Patterns...)
	for _, p := range data.AllSuspiciousPatterns {
		if isCriticalPattern(p.Pattern) || p.Pattern == "known_malicious_filename" {
			data.CriticalFindings = append(data.CriticalFindings, p.Description)
		}
	}

	if data.Lifecycle.HasRuntimeInstall {
		data.BehavioralFlags = append(data.BehavioralFlags, model.FlagInstallsAlternativeRuntime)
	}
	if data.Lifecycle.HasCredentialAccess {
		data.BehavioralFlags = append(data.BehavioralFlags, model.FlagAccessesCredentials)
	}
	if data.Lifecycle.HasNetworkFetch {
		data.BehavioralFlags = append(data.BehavioralFlags, model.FlagMakesNetworkCalls)
	}
	if data.Lifecycle.HasObfuscation {
		data.BehavioralFlags = append(data.BehavioralFlags, model.FlagContainsObfuscation)
	}
}

func versionDiffMax(diffs []model.VersionDiff) float64 {
	var max float64
	for _, d := range diffs {
		if d.Score > max {
			max = d.Score
		}
	}
	return max
}
