package adapters

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/pkgrisk/analyzer/internal/model"
	pkgerrors "github.com/pkgrisk/analyzer/pkg/common/errors"
	"github.com/pkgrisk/analyzer/pkg/observability"
)

const (
	pypiBaseURL  = "https://pypi.org/pypi"
	pypiStatsURL = "https://pypistats.org/api"
)

var (
	pypiNameSep      = regexp.MustCompile(`[-_.]+`)
	pypiReqNameMatch = regexp.MustCompile(`^([a-zA-Z0-9][-a-zA-Z0-9._]*)`)
	pypiKeywordSplit = regexp.MustCompile(`[,\s]+`)
	pypiTreeSuffix   = regexp.MustCompile(`/tree/[^/]+/?$`)
	pypiBlobSuffix   = regexp.MustCompile(`/blob/[^/]+/?$`)
)

// PyPiAdapter fetches package data from the Python Package Index.
//
// Data sources:
//   - metadata: https://pypi.org/pypi/{package}/json
//   - downloads: https://pypistats.org/api/packages/{package}/recent
type PyPiAdapter struct {
	client      *retryablehttp.Client
	topPackages []string
	logger      observability.Logger
}

func NewPyPiAdapter(logger observability.Logger) *PyPiAdapter {
	if logger == nil {
		logger = observability.NewNoopLogger()
	}
	return &PyPiAdapter{client: newHTTPClient(30 * time.Second), logger: logger}
}

func (a *PyPiAdapter) Ecosystem() model.Ecosystem { return model.EcosystemPyPI }

// ListPackages returns a curated fallback list. The upstream
// hugovk/top-pypi-packages dataset changes format often enough that a
// live fetch would need its own staleness handling; the fallback list
// is the same one the fetch would fall back to on failure.
func (a *PyPiAdapter) ListPackages(ctx context.Context, limit int) ([]string, error) {
	if a.topPackages == nil {
		a.topPackages = pypiFallbackPackages
	}
	return truncate(a.topPackages, limit), nil
}

func (a *PyPiAdapter) pypiNormalizeName(name string) string {
	return strings.ToLower(pypiNameSep.ReplaceAllString(name, "-"))
}

func (a *PyPiAdapter) GetPackageMetadata(ctx context.Context, name string) (model.PackageMetadata, error) {
	normalized := a.pypiNormalizeName(name)
	u := fmt.Sprintf("%s/%s/json", pypiBaseURL, normalized)

	var doc pypiDoc
	if err := fetchJSON(ctx, a.client, u, &doc); err != nil {
		if pkgerrors.IsNotFound(err) {
			return model.PackageMetadata{}, &pkgerrors.PackageNotFound{Ecosystem: string(model.EcosystemPyPI), Name: name}
		}
		return model.PackageMetadata{}, err
	}

	info := doc.Info
	repoURL := a.extractRepoURL(info)
	deps := a.parseDependencies(info.RequiresDist)

	author := info.Author
	if author == "" {
		author = info.Maintainer
	}
	authorEmail := info.AuthorEmail
	if authorEmail == "" {
		authorEmail = info.MaintainerEmail
	}

	resolvedName := info.Name
	if resolvedName == "" {
		resolvedName = name
	}
	homepage := info.HomePage
	if homepage == "" {
		homepage = info.ProjectURL
	}

	return model.PackageMetadata{
		Name:           resolvedName,
		Description:    info.Summary,
		Version:        info.Version,
		Homepage:       homepage,
		RepositoryURL:  repoURL,
		License:        a.extractLicense(info),
		Keywords:       a.parseKeywords(info.Keywords),
		Dependencies:   deps,
		Author:         author,
		AuthorEmail:    authorEmail,
		RequiresPython: info.RequiresPython,
	}, nil
}

// extractRepoURL checks project_urls for common source-code keys in
// priority order, then falls back to home_page, then to any
// project_urls entry that looks like a forge URL.
func (a *PyPiAdapter) extractRepoURL(info pypiInfo) string {
	repoKeys := []string{
		"Source", "Source Code", "Repository", "GitHub",
		"Code", "Homepage", "Home", "source", "repository",
		"github", "Git", "git",
	}
	for _, key := range repoKeys {
		if u, ok := info.ProjectURLs[key]; ok && looksLikeForgeURL(u) {
			return u
		}
	}
	if looksLikeForgeURL(info.HomePage) {
		return info.HomePage
	}
	for _, u := range info.ProjectURLs {
		if looksLikeForgeURL(u) {
			return u
		}
	}
	return ""
}

func looksLikeForgeURL(u string) bool {
	return u != "" && (strings.Contains(u, "github.com") || strings.Contains(u, "gitlab.com") || strings.Contains(u, "bitbucket.org"))
}

func (a *PyPiAdapter) extractLicense(info pypiInfo) string {
	lic := strings.TrimSpace(info.License)
	if lic != "" && !strings.EqualFold(lic, "UNKNOWN") {
		if len(lic) > 100 {
			return ""
		}
		return lic
	}
	for _, c := range info.Classifiers {
		if name, ok := strings.CutPrefix(c, "License :: OSI Approved :: "); ok {
			return name
		}
	}
	return ""
}

func (a *PyPiAdapter) parseKeywords(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := pypiKeywordSplit.Split(raw, -1)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// parseDependencies extracts bare package names from requires_dist
// entries, dropping extras-gated ("extra == ...") dependencies and
// de-duplicating by normalized name.
func (a *PyPiAdapter) parseDependencies(requiresDist []string) []string {
	if len(requiresDist) == 0 {
		return nil
	}
	seen := make(map[string]bool)
	var out []string
	for _, req := range requiresDist {
		if strings.Contains(req, "extra ==") || strings.Contains(req, "extra==") {
			continue
		}
		m := pypiReqNameMatch.FindStringSubmatch(req)
		if m == nil {
			continue
		}
		dep := a.pypiNormalizeName(m[1])
		if !seen[dep] {
			seen[dep] = true
			out = append(out, dep)
		}
	}
	return out
}

func (a *PyPiAdapter) GetInstallStats(ctx context.Context, name string) (model.InstallStats, error) {
	normalized := a.pypiNormalizeName(name)
	u := fmt.Sprintf("%s/packages/%s/recent", pypiStatsURL, normalized)

	var resp pypiStatsResponse
	if err := fetchJSON(ctx, a.client, u, &resp); err != nil {
		a.logger.Warnf("adapters: pypi %s: downloads fetch failed: %v", name, err)
		return model.InstallStats{}, nil
	}

	month := int64(resp.Data.LastMonth)
	return model.InstallStats{
		DownloadsLast30d:  int64Ptr(month),
		DownloadsLast90d:  int64Ptr(month * 3),
		Provenance90d:     model.ProvenanceEstimated,
		DownloadsLast365d: int64Ptr(month * 12),
		Provenance365d:    model.ProvenanceEstimated,
	}, nil
}

func (a *PyPiAdapter) GetSourceRepo(metadata model.PackageMetadata) (model.RepoRef, bool) {
	u := metadata.RepositoryURL
	if u == "" {
		u = metadata.Homepage
	}
	if u == "" {
		return model.RepoRef{}, false
	}
	u = pypiTreeSuffix.ReplaceAllString(u, "")
	u = pypiBlobSuffix.ReplaceAllString(u, "")
	return ParseRepoURL(u)
}

type pypiDoc struct {
	Info pypiInfo `json:"info"`
}

type pypiInfo struct {
	Name            string            `json:"name"`
	Summary         string            `json:"summary"`
	Version         string            `json:"version"`
	HomePage        string            `json:"home_page"`
	ProjectURL      string            `json:"project_url"`
	ProjectURLs     map[string]string `json:"project_urls"`
	License         string            `json:"license"`
	Classifiers     []string          `json:"classifiers"`
	Keywords        string            `json:"keywords"`
	RequiresDist    []string          `json:"requires_dist"`
	RequiresPython  string            `json:"requires_python"`
	Author          string            `json:"author"`
	AuthorEmail     string            `json:"author_email"`
	Maintainer      string            `json:"maintainer"`
	MaintainerEmail string            `json:"maintainer_email"`
}

type pypiStatsResponse struct {
	Data struct {
		LastDay   int `json:"last_day"`
		LastWeek  int `json:"last_week"`
		LastMonth int `json:"last_month"`
	} `json:"data"`
}

var pypiFallbackPackages = []string{
	// Data science / ML
	"numpy", "pandas", "scipy", "matplotlib", "scikit-learn",
	"tensorflow", "torch", "keras", "xgboost", "lightgbm",
	"seaborn", "plotly", "jupyter", "notebook", "ipython",
	// Web frameworks
	"django", "flask", "fastapi", "starlette", "tornado",
	"aiohttp", "httpx", "requests", "urllib3", "certifi",
	// CLI / utilities
	"click", "typer", "rich", "tqdm", "colorama",
	"pyyaml", "toml", "python-dotenv", "pydantic", "attrs",
	// Testing
	"pytest", "pytest-cov", "coverage", "mock", "responses",
	"hypothesis", "faker", "factory-boy", "tox", "nox",
	// Dev tools
	"black", "ruff", "mypy", "pylint", "flake8",
	"isort", "pre-commit", "setuptools", "wheel", "twine",
	// Database
	"sqlalchemy", "psycopg2", "pymysql", "redis", "pymongo",
	"alembic", "databases", "asyncpg", "motor", "peewee",
	// AWS / cloud
	"boto3", "botocore", "awscli", "google-cloud-storage",
	"azure-storage-blob", "s3transfer", "paramiko", "fabric",
	// Async
	"asyncio", "trio", "anyio", "uvloop", "celery",
	// Security
	"cryptography", "pyjwt", "bcrypt", "passlib", "python-jose",
	// Parsing / serialization
	"beautifulsoup4", "lxml", "html5lib", "jsonschema", "marshmallow",
	"orjson", "ujson", "msgpack", "protobuf", "grpcio",
}
