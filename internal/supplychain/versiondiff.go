package supplychain

import (
	"fmt"
	"sort"

	"github.com/Masterminds/semver/v3"

	"github.com/pkgrisk/analyzer/internal/adapters"
	"github.com/pkgrisk/analyzer/internal/model"
)

// AnalyzeVersionDiff compares the latest dist-tag version against its
// immediate semver predecessor, flags a major-version jump of more than
// 5, and reports any newly introduced scripts or dependencies. The
// predecessor is taken by semver order, so the major delta is never
// negative and a backward release is not detected.
func AnalyzeVersionDiff(manifests map[string]adapters.NpmVersionManifest, latest string) (model.VersionDiff, bool) {
	versions := make([]*semver.Version, 0, len(manifests))
	raw := make(map[string]string)
	for v := range manifests {
		sv, err := semver.NewVersion(v)
		if err != nil {
			continue
		}
		versions = append(versions, sv)
		raw[sv.String()] = v
	}
	if len(versions) < 2 {
		return model.VersionDiff{}, false
	}
	sort.Sort(semver.Collection(versions))

	latestSv, err := semver.NewVersion(latest)
	if err != nil {
		latestSv = versions[len(versions)-1]
	}

	var prev *semver.Version
	for i, v := range versions {
		if v.Equal(latestSv) && i > 0 {
			prev = versions[i-1]
			break
		}
	}
	if prev == nil {
		return model.VersionDiff{}, false
	}

	fromKey := raw[prev.String()]
	toKey := raw[latestSv.String()]
	from := manifests[fromKey]
	to := manifests[toKey]

	diff := model.VersionDiff{
		FromVersion: fromKey,
		ToVersion:   toKey,
		PublishedAt: to.PublishedAt,
		BumpKind:    bumpKind(prev, latestSv),
	}

	majorDelta := int(latestSv.Major()) - int(prev.Major())
	switch {
	case majorDelta < 0:
		diff.IsAnomalous = true
		diff.AnomalyReason = "version went backward"
	case majorDelta > 5:
		diff.IsAnomalous = true
		diff.AnomalyReason = fmt.Sprintf("major version jumped by %d", majorDelta)
	}

	diff.NewScripts = newKeys(from.Scripts, to.Scripts)
	diff.NewDependencies = newKeys(from.Dependencies, to.Dependencies)
	for _, s := range diff.NewScripts {
		if s == "preinstall" || s == "install" || s == "postinstall" {
			diff.NewDangerousScript = true
			break
		}
	}

	diff.Score = versionDiffScore(diff)
	return diff, true
}

func bumpKind(from, to *semver.Version) string {
	switch {
	case to.Major() != from.Major():
		return "major"
	case to.Minor() != from.Minor():
		return "minor"
	default:
		return "patch"
	}
}

func newKeys(from, to map[string]string) []string {
	var out []string
	for k := range to {
		if _, existed := from[k]; !existed {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

func versionDiffScore(d model.VersionDiff) float64 {
	var score float64
	if d.IsAnomalous {
		score += 15
	}
	for _, s := range d.NewScripts {
		switch s {
		case "preinstall", "install":
			score += 20
		case "postinstall":
			score += 10
		}
	}
	if score > 100 {
		score = 100
	}
	return score
}
