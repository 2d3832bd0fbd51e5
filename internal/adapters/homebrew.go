package adapters

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/pkgrisk/analyzer/internal/model"
	pkgerrors "github.com/pkgrisk/analyzer/pkg/common/errors"
	"github.com/pkgrisk/analyzer/pkg/observability"
)

const homebrewBaseURL = "https://formulae.brew.sh/api"

// HomebrewAdapter fetches package data from the Homebrew formula API.
//
// Data sources:
//   - formula list: https://formulae.brew.sh/api/formula.json
//   - per-formula:   https://formulae.brew.sh/api/formula/{name}.json
//   - analytics:     https://formulae.brew.sh/api/analytics/install/30d.json
type HomebrewAdapter struct {
	client    *retryablehttp.Client
	analytics map[string]int64
	logger    observability.Logger
}

func NewHomebrewAdapter(logger observability.Logger) *HomebrewAdapter {
	if logger == nil {
		logger = observability.NewNoopLogger()
	}
	return &HomebrewAdapter{client: newHTTPClient(30 * time.Second), logger: logger}
}

func (a *HomebrewAdapter) Ecosystem() model.Ecosystem { return model.EcosystemHomebrew }

func (a *HomebrewAdapter) loadAnalytics(ctx context.Context) (map[string]int64, error) {
	if a.analytics != nil {
		return a.analytics, nil
	}

	var resp homebrewAnalyticsResponse
	u := fmt.Sprintf("%s/analytics/install/30d.json", homebrewBaseURL)
	if err := fetchJSON(ctx, a.client, u, &resp); err != nil {
		return nil, err
	}

	analytics := make(map[string]int64, len(resp.Items))
	for _, item := range resp.Items {
		count, err := strconv.ParseInt(strings.ReplaceAll(item.Count, ",", ""), 10, 64)
		if err != nil {
			continue
		}
		analytics[item.Formula] = count
	}
	a.analytics = analytics
	return analytics, nil
}

func (a *HomebrewAdapter) ListPackages(ctx context.Context, limit int) ([]string, error) {
	analytics, err := a.loadAnalytics(ctx)
	if err != nil {
		return nil, err
	}

	var formulas []homebrewFormulaSummary
	u := fmt.Sprintf("%s/formula.json", homebrewBaseURL)
	if err := fetchJSON(ctx, a.client, u, &formulas); err != nil {
		return nil, err
	}

	names := make([]string, 0, len(formulas))
	for _, f := range formulas {
		if f.Name != "" {
			names = append(names, f.Name)
		}
	}

	sort.SliceStable(names, func(i, j int) bool {
		ci, cj := analytics[names[i]], analytics[names[j]]
		if ci != cj {
			return ci > cj
		}
		return names[i] < names[j]
	})

	return truncate(names, limit), nil
}

func (a *HomebrewAdapter) GetPackageMetadata(ctx context.Context, name string) (model.PackageMetadata, error) {
	u := fmt.Sprintf("%s/formula/%s.json", homebrewBaseURL, name)

	var data homebrewFormula
	if err := fetchJSON(ctx, a.client, u, &data); err != nil {
		if pkgerrors.IsNotFound(err) {
			return model.PackageMetadata{}, &pkgerrors.PackageNotFound{Ecosystem: string(model.EcosystemHomebrew), Name: name}
		}
		return model.PackageMetadata{}, err
	}

	version := data.Versions.Stable
	if version == "" {
		version = data.Versions.Head
	}

	repoURL := homebrewRepoURL(data)

	deps := make([]string, 0, len(data.Dependencies))
	deps = append(deps, data.Dependencies...)

	resolvedName := data.Name
	if resolvedName == "" {
		resolvedName = name
	}

	return model.PackageMetadata{
		Name:          resolvedName,
		Description:   data.Desc,
		Version:       version,
		Homepage:      data.Homepage,
		RepositoryURL: repoURL,
		License:       data.License,
		Dependencies:  deps,
	}, nil
}

// homebrewRepoURL tries the homepage, then the head (git clone) URL,
// then parses owner/repo out of the stable tarball URL, in that order —
// matching which of the three is most often a clean repository URL.
func homebrewRepoURL(data homebrewFormula) string {
	if strings.Contains(data.Homepage, "github.com") {
		return data.Homepage
	}
	headURL := data.URLs.Head.URL
	if strings.Contains(headURL, "github.com") {
		return strings.TrimSuffix(headURL, ".git")
	}
	stableURL := data.URLs.Stable.URL
	if strings.Contains(stableURL, "github.com") {
		parts := strings.Split(stableURL, "/")
		if len(parts) >= 5 && parts[2] == "github.com" {
			return fmt.Sprintf("https://github.com/%s/%s", parts[3], parts[4])
		}
	}
	return ""
}

// GetInstallStats returns the 30-day install count from analytics; the
// formula API publishes 30d, 90d, and 365d as separate, independently
// fetched analytics files, which this adapter does not fetch eagerly.
func (a *HomebrewAdapter) GetInstallStats(ctx context.Context, name string) (model.InstallStats, error) {
	analytics, err := a.loadAnalytics(ctx)
	if err != nil {
		a.logger.Warnf("adapters: homebrew %s: analytics fetch failed: %v", name, err)
		return model.InstallStats{}, nil
	}
	count, ok := analytics[name]
	if !ok {
		return model.InstallStats{}, nil
	}
	return model.InstallStats{DownloadsLast30d: int64Ptr(count)}, nil
}

func (a *HomebrewAdapter) GetSourceRepo(metadata model.PackageMetadata) (model.RepoRef, bool) {
	u := metadata.RepositoryURL
	if u == "" {
		return model.RepoRef{}, false
	}
	return ParseRepoURL(u)
}

type homebrewFormulaSummary struct {
	Name string `json:"name"`
}

type homebrewFormula struct {
	Name         string   `json:"name"`
	Desc         string   `json:"desc"`
	Homepage     string   `json:"homepage"`
	License      string   `json:"license"`
	Dependencies []string `json:"dependencies"`
	Versions     struct {
		Stable string `json:"stable"`
		Head   string `json:"head"`
	} `json:"versions"`
	URLs struct {
		Stable struct {
			URL string `json:"url"`
		} `json:"stable"`
		Head struct {
			URL string `json:"url"`
		} `json:"head"`
	} `json:"urls"`
}

type homebrewAnalyticsResponse struct {
	Items []homebrewAnalyticsItem `json:"items"`
}

type homebrewAnalyticsItem struct {
	Formula string `json:"formula"`
	Count   string `json:"count"`
}
