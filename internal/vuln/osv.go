// Package vuln fetches vulnerability history from an OSV-shaped
// aggregator: one ecosystem-keyed query per package, normalized into the
// pipeline's CVEHistory with severity resolution, fixed-version
// extraction, and days-to-patch computed against a release-date table
// supplied by the repo-host fetcher.
package vuln

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/package-url/packageurl-go"

	"github.com/pkgrisk/analyzer/internal/model"
	"github.com/pkgrisk/analyzer/internal/resilience"
	"github.com/pkgrisk/analyzer/pkg/observability"
)

const osvQueryURL = "https://api.osv.dev/v1/query"

// ecosystemKeys maps this pipeline's ecosystems onto OSV's own ecosystem
// vocabulary. Homebrew has no OSV ecosystem key; it is queried by purl
// instead, with partial coverage as a result.
var ecosystemKeys = map[model.Ecosystem]string{
	model.EcosystemNPM:  "npm",
	model.EcosystemPyPI: "PyPI",
	model.EcosystemCrates: "crates.io",
}

// Fetcher queries OSV for a package's vulnerability history.
type Fetcher struct {
	client *retryablehttp.Client
	logger observability.Logger
}

func NewFetcher(logger observability.Logger) *Fetcher {
	if logger == nil {
		logger = observability.NewNoopLogger()
	}
	c := retryablehttp.NewClient()
	c.RetryMax = 3
	c.RetryWaitMin = 250 * time.Millisecond
	c.RetryWaitMax = 4 * time.Second
	c.Logger = nil
	c.HTTPClient.Timeout = 30 * time.Second
	return &Fetcher{client: c, logger: logger}
}

// FetchCVEHistory queries OSV for pkg and resolves each vulnerability's
// severity, fixed version, and (when releaseDates has a matching tag)
// days-to-patch. releaseDates is the repo-host fetcher's tag->publish
// date table; it may be nil if repo facts were unavailable.
func (f *Fetcher) FetchCVEHistory(ctx context.Context, pkg model.PackageRef, repoRef model.RepoRef, releaseDates map[string]time.Time) (model.CVEHistory, error) {
	body, err := f.query(ctx, pkg, repoRef)
	if err != nil {
		f.logger.Warnf("vuln: %s: osv query failed: %v", pkg, err)
		return model.CVEHistory{}, err
	}

	history := model.CVEHistory{}
	for _, v := range body.Vulns {
		detail := normalizeVuln(v, releaseDates)
		history.Items = append(history.Items, detail)
	}
	sortCVEs(history.Items)
	return history, nil
}

func (f *Fetcher) query(ctx context.Context, pkg model.PackageRef, repoRef model.RepoRef) (osvQueryResponse, error) {
	reqBody, err := buildQueryBody(pkg, repoRef)
	if err != nil {
		return osvQueryResponse{}, err
	}

	result, err := resilience.ExecuteWithCircuitBreaker(ctx, resilience.OSVCircuitBreaker, resilience.CircuitBreakerConfig{}, func() (interface{}, error) {
		req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, osvQueryURL, reqBody)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		resp, err := f.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		raw, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode == http.StatusNotFound {
			return osvQueryResponse{}, nil
		}
		if resp.StatusCode >= 400 {
			return nil, fmt.Errorf("osv: query failed with status %d: %s", resp.StatusCode, string(raw))
		}
		var parsed osvQueryResponse
		if err := json.Unmarshal(raw, &parsed); err != nil {
			return nil, fmt.Errorf("osv: decoding response: %w", err)
		}
		return parsed, nil
	})
	if err != nil {
		return osvQueryResponse{}, err
	}
	return result.(osvQueryResponse), nil
}

func buildQueryBody(pkg model.PackageRef, repoRef model.RepoRef) ([]byte, error) {
	if key, ok := ecosystemKeys[pkg.Ecosystem]; ok {
		return json.Marshal(map[string]interface{}{
			"package": map[string]string{"name": pkg.Name, "ecosystem": key},
		})
	}

	// Homebrew (and anything else without an OSV ecosystem key) is
	// queried by the purl of its GitHub source repository instead.
	if repoRef.Platform != model.PlatformGitHub || repoRef.Owner == "" {
		return nil, fmt.Errorf("osv: no ecosystem key and no GitHub repo for %s", pkg)
	}
	purl := packageurl.PackageURL{
		Type:      "github",
		Namespace: repoRef.Owner,
		Name:      repoRef.Repo,
	}
	return json.Marshal(map[string]interface{}{
		"package": map[string]string{"purl": purl.ToString()},
	})
}

func normalizeVuln(v osvVuln, releaseDates map[string]time.Time) model.CVEDetail {
	detail := model.CVEDetail{
		ID:          v.ID,
		Aliases:     v.Aliases,
		Summary:     firstNonEmpty(v.Summary, v.Details),
		PublishedAt: parseTime(v.Published),
		Withdrawn:   v.Withdrawn != "",
	}

	detail.Severity, detail.CVSSScore, detail.CVSSKnown = resolveSeverity(v)

	for _, affected := range v.Affected {
		for _, r := range affected.Ranges {
			for _, ev := range r.Events {
				if ev.Fixed != "" && detail.FixedVersion == "" {
					detail.FixedVersion = ev.Fixed
				}
				if ev.Introduced != "" && detail.AffectedVersion == "" {
					detail.AffectedVersion = ev.Introduced
				}
			}
		}
		if detail.FixedVersion != "" {
			break
		}
	}

	if detail.FixedVersion != "" && !detail.PublishedAt.IsZero() && releaseDates != nil {
		if patchAt, ok := lookupReleaseDate(releaseDates, detail.FixedVersion); ok {
			detail.PatchReleaseAt = patchAt
			days := int(patchAt.Sub(detail.PublishedAt).Hours() / 24)
			if days < 0 {
				days = 0
			}
			detail.DaysToPatch = days
			detail.DaysToPatchKnown = true
		}
	}

	return detail
}

// lookupReleaseDate tries the fixed-version string first as an exact
// tag, then v-prefixed, then with a leading v stripped — release tagging
// conventions vary per repository.
func lookupReleaseDate(dates map[string]time.Time, version string) (time.Time, bool) {
	if t, ok := dates[version]; ok {
		return t, true
	}
	if t, ok := dates["v"+version]; ok {
		return t, true
	}
	if stripped := strings.TrimPrefix(version, "v"); stripped != version {
		if t, ok := dates[stripped]; ok {
			return t, true
		}
	}
	return time.Time{}, false
}

// resolveSeverity implements the parse order: explicit severity field,
// then CVSS v3 numeric score, then ecosystem_specific severity.
func resolveSeverity(v osvVuln) (model.Severity, float64, bool) {
	for _, s := range v.Severity {
		if sev, ok := explicitSeverityBand(s); ok {
			return sev, 0, false
		}
		if strings.HasPrefix(s.Type, "CVSS_V3") {
			if score, ok := cvssV3BaseScore(s.Score); ok {
				return severityFromCVSS(score), score, true
			}
		}
	}

	for _, affected := range v.Affected {
		if sev := affected.EcosystemSpecific.Severity; sev != "" {
			if band, ok := bandFromString(sev); ok {
				return band, 0, false
			}
		}
	}

	return model.SeverityUnknown, 0, false
}

// explicitSeverityBand recognizes a non-CVSS severity entry that is
// already one of CRITICAL/HIGH/MEDIUM/LOW.
func explicitSeverityBand(s osvSeverity) (model.Severity, bool) {
	if strings.HasPrefix(s.Type, "CVSS") {
		return "", false
	}
	return bandFromString(s.Score)
}

func bandFromString(s string) (model.Severity, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "CRITICAL":
		return model.SeverityCritical, true
	case "HIGH":
		return model.SeverityHigh, true
	case "MODERATE", "MEDIUM":
		return model.SeverityMedium, true
	case "LOW":
		return model.SeverityLow, true
	default:
		return "", false
	}
}

func severityFromCVSS(score float64) model.Severity {
	switch {
	case score >= 9:
		return model.SeverityCritical
	case score >= 7:
		return model.SeverityHigh
	case score >= 4:
		return model.SeverityMedium
	default:
		return model.SeverityLow
	}
}

func sortCVEs(items []model.CVEDetail) {
	sort.Slice(items, func(i, j int) bool {
		if items[i].Severity.Rank() != items[j].Severity.Rank() {
			return items[i].Severity.Rank() < items[j].Severity.Rank()
		}
		return items[i].PublishedAt.After(items[j].PublishedAt)
	})
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339, s)
	return t
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

type osvQueryResponse struct {
	Vulns []osvVuln `json:"vulns"`
}

type osvVuln struct {
	ID        string        `json:"id"`
	Summary   string        `json:"summary"`
	Details   string        `json:"details"`
	Published string        `json:"published"`
	Modified  string        `json:"modified"`
	Withdrawn string        `json:"withdrawn"`
	Aliases   []string      `json:"aliases"`
	Severity  []osvSeverity `json:"severity"`
	Affected  []osvAffected `json:"affected"`
	References []osvReference `json:"references"`
}

type osvSeverity struct {
	Type  string `json:"type"`
	Score string `json:"score"`
}

type osvAffected struct {
	Package           osvPackage        `json:"package"`
	Ranges            []osvRange        `json:"ranges"`
	EcosystemSpecific osvEcosystemSpecific `json:"ecosystem_specific"`
}

type osvPackage struct {
	Name      string `json:"name"`
	Ecosystem string `json:"ecosystem"`
	Purl      string `json:"purl"`
}

type osvRange struct {
	Type   string     `json:"type"`
	Events []osvEvent `json:"events"`
}

type osvEvent struct {
	Introduced string `json:"introduced"`
	Fixed      string `json:"fixed"`
}

type osvEcosystemSpecific struct {
	Severity string `json:"severity"`
}

type osvReference struct {
	Type string `json:"type"`
	URL  string `json:"url"`
}
