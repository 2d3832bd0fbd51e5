package vuln

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkgrisk/analyzer/internal/model"
)

func TestBuildQueryBody_KnownEcosystem(t *testing.T) {
	body, err := buildQueryBody(model.PackageRef{Ecosystem: model.EcosystemNPM, Name: "left-pad"}, model.RepoRef{})
	require.NoError(t, err)
	assert.Contains(t, string(body), `"ecosystem":"npm"`)
	assert.Contains(t, string(body), `"name":"left-pad"`)
}

func TestBuildQueryBody_HomebrewFallsBackToPurl(t *testing.T) {
	body, err := buildQueryBody(model.PackageRef{Ecosystem: model.EcosystemHomebrew, Name: "jq"}, model.RepoRef{
		Platform: model.PlatformGitHub, Owner: "jqlang", Repo: "jq",
	})
	require.NoError(t, err)
	assert.Contains(t, string(body), "pkg:github/jqlang/jq")
}

func TestBuildQueryBody_HomebrewWithoutRepoErrors(t *testing.T) {
	_, err := buildQueryBody(model.PackageRef{Ecosystem: model.EcosystemHomebrew, Name: "jq"}, model.RepoRef{})
	assert.Error(t, err)
}

func TestBandFromString(t *testing.T) {
	cases := map[string]model.Severity{
		"CRITICAL": model.SeverityCritical,
		"high":     model.SeverityHigh,
		"Moderate": model.SeverityMedium,
		"low":      model.SeverityLow,
	}
	for in, want := range cases {
		got, ok := bandFromString(in)
		assert.True(t, ok)
		assert.Equal(t, want, got)
	}
	_, ok := bandFromString("bogus")
	assert.False(t, ok)
}

func TestSeverityFromCVSS(t *testing.T) {
	assert.Equal(t, model.SeverityCritical, severityFromCVSS(9.8))
	assert.Equal(t, model.SeverityHigh, severityFromCVSS(7.5))
	assert.Equal(t, model.SeverityMedium, severityFromCVSS(5.0))
	assert.Equal(t, model.SeverityLow, severityFromCVSS(2.0))
}

func TestExplicitSeverityBand_RejectsCVSSType(t *testing.T) {
	_, ok := explicitSeverityBand(osvSeverity{Type: "CVSS_V3", Score: "9.8"})
	assert.False(t, ok)

	sev, ok := explicitSeverityBand(osvSeverity{Type: "manual", Score: "HIGH"})
	assert.True(t, ok)
	assert.Equal(t, model.SeverityHigh, sev)
}

func TestResolveSeverity_ParsesCVSSV3Vector(t *testing.T) {
	v := osvVuln{
		Severity: []osvSeverity{
			{Type: "CVSS_V3", Score: "CVSS:3.1/AV:N/AC:L/PR:N/UI:N/S:U/C:H/I:H/A:H"},
		},
	}
	sev, score, known := resolveSeverity(v)
	assert.Equal(t, model.SeverityCritical, sev)
	assert.True(t, known)
	assert.Greater(t, score, 9.0)
}

func TestResolveSeverity_FallsBackToEcosystemSpecific(t *testing.T) {
	v := osvVuln{
		Affected: []osvAffected{
			{EcosystemSpecific: osvEcosystemSpecific{Severity: "HIGH"}},
		},
	}
	sev, _, known := resolveSeverity(v)
	assert.Equal(t, model.SeverityHigh, sev)
	assert.False(t, known)
}

func TestSortCVEs_SeverityThenRecency(t *testing.T) {
	older := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	items := []model.CVEDetail{
		{ID: "low-old", Severity: model.SeverityLow, PublishedAt: older},
		{ID: "critical-old", Severity: model.SeverityCritical, PublishedAt: older},
		{ID: "critical-new", Severity: model.SeverityCritical, PublishedAt: newer},
	}
	sortCVEs(items)
	assert.Equal(t, "critical-new", items[0].ID)
	assert.Equal(t, "critical-old", items[1].ID)
	assert.Equal(t, "low-old", items[2].ID)
}

func TestLookupReleaseDate_VPrefixVariants(t *testing.T) {
	at := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	dates := map[string]time.Time{"v1.2.3": at}

	got, ok := lookupReleaseDate(dates, "1.2.3")
	assert.True(t, ok)
	assert.Equal(t, at, got)

	_, ok = lookupReleaseDate(dates, "9.9.9")
	assert.False(t, ok)
}

func TestNormalizeVuln_ExtractsFixedVersionAndPatchTime(t *testing.T) {
	v := osvVuln{
		ID:        "GHSA-xxxx",
		Published: "2024-01-01T00:00:00Z",
		Affected: []osvAffected{
			{Ranges: []osvRange{{Events: []osvEvent{
				{Introduced: "1.0.0"},
				{Fixed: "1.0.1"},
			}}}},
		},
	}
	dates := map[string]time.Time{"1.0.1": time.Date(2024, 1, 11, 0, 0, 0, 0, time.UTC)}
	detail := normalizeVuln(v, dates)
	assert.Equal(t, "1.0.1", detail.FixedVersion)
	assert.Equal(t, "1.0.0", detail.AffectedVersion)
	assert.True(t, detail.DaysToPatchKnown)
	assert.Equal(t, 10, detail.DaysToPatch)
}

func TestNormalizeVuln_Withdrawn(t *testing.T) {
	v := osvVuln{ID: "GHSA-withdrawn", Withdrawn: "2024-02-02T00:00:00Z"}
	detail := normalizeVuln(v, nil)
	assert.True(t, detail.Withdrawn)
}
