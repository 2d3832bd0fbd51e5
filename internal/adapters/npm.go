package adapters

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/pkgrisk/analyzer/internal/model"
	pkgerrors "github.com/pkgrisk/analyzer/pkg/common/errors"
	"github.com/pkgrisk/analyzer/pkg/observability"
)

const (
	npmRegistryURL  = "https://registry.npmjs.org"
	npmDownloadsURL = "https://api.npmjs.org/downloads"
)

// NpmAdapter fetches package data from the npm registry.
//
// Data sources:
//   - metadata: https://registry.npmjs.org/{package}
//   - downloads: https://api.npmjs.org/downloads/point/{period}/{package}
type NpmAdapter struct {
	client  *retryablehttp.Client
	popular []string
	logger  observability.Logger
}

func NewNpmAdapter(logger observability.Logger) *NpmAdapter {
	if logger == nil {
		logger = observability.NewNoopLogger()
	}
	return &NpmAdapter{client: newHTTPClient(30 * time.Second), logger: logger}
}

func (a *NpmAdapter) Ecosystem() model.Ecosystem { return model.EcosystemNPM }

// ListPackages returns a curated list of the most depended-upon npm
// packages. npms.io no longer serves wildcard listing, so there is no
// live endpoint for "all npm packages ranked by dependents"; this list
// approximates that ranking by tier.
func (a *NpmAdapter) ListPackages(ctx context.Context, limit int) ([]string, error) {
	if a.popular == nil {
		a.popular = npmPopularPackages
	}
	return truncate(a.popular, limit), nil
}

func (a *NpmAdapter) GetPackageMetadata(ctx context.Context, name string) (model.PackageMetadata, error) {
	encoded := strings.ReplaceAll(name, "/", "%2F")
	u := fmt.Sprintf("%s/%s", npmRegistryURL, encoded)

	var data npmPackageDoc
	if err := fetchJSON(ctx, a.client, u, &data); err != nil {
		if pkgerrors.IsNotFound(err) {
			return model.PackageMetadata{}, &pkgerrors.PackageNotFound{Ecosystem: string(model.EcosystemNPM), Name: name}
		}
		return model.PackageMetadata{}, err
	}

	latest := data.DistTags["latest"]
	version := data.Versions[latest]

	repoURL := npmExtractRepoURL(firstNonNilRepo(data.Repository, version.Repository))

	maintainerNames := make([]string, 0, len(data.Maintainers))
	for _, m := range data.Maintainers {
		if m.Name != "" {
			maintainerNames = append(maintainerNames, m.Name)
		}
	}

	hasTypes := version.Types != "" || version.Typings != "" || strings.HasSuffix(version.Main, ".d.ts")

	description := data.Description
	if description == "" {
		description = version.Description
	}
	homepage := data.Homepage
	if homepage == "" {
		homepage = version.Homepage
	}
	keywords := data.Keywords
	if len(keywords) == 0 {
		keywords = version.Keywords
	}

	deps := make([]string, 0, len(version.Dependencies))
	for dep := range version.Dependencies {
		deps = append(deps, dep)
	}

	resolvedName := data.Name
	if resolvedName == "" {
		resolvedName = name
	}

	return model.PackageMetadata{
		Name:            resolvedName,
		Description:     description,
		Version:         latest,
		Homepage:        homepage,
		RepositoryURL:   repoURL,
		License:         npmExtractLicense(data.License, version.License),
		Keywords:        keywords,
		Dependencies:    deps,
		Maintainers:     maintainerNames,
		MaintainerCount: len(maintainerNames),
		HasTypes:        hasTypes,
		IsScoped:        strings.HasPrefix(name, "@"),
	}, nil
}

// GetInstallStats fetches 30-day downloads and estimates the 90d/365d
// windows from it; npm's downloads API only exposes point-in-time
// totals for fixed periods, not arbitrary rolling windows.
func (a *NpmAdapter) GetInstallStats(ctx context.Context, name string) (model.InstallStats, error) {
	encoded := strings.ReplaceAll(name, "/", "%2F")

	var month npmDownloadsPoint
	u := fmt.Sprintf("%s/point/last-month/%s", npmDownloadsURL, encoded)
	if err := fetchJSON(ctx, a.client, u, &month); err != nil {
		a.logger.Warnf("adapters: npm %s: downloads fetch failed: %v", name, err)
		return model.InstallStats{}, nil
	}

	last30 := int64(month.Downloads)
	return model.InstallStats{
		DownloadsLast30d:  int64Ptr(last30),
		DownloadsLast90d:  int64Ptr(last30 * 3),
		Provenance90d:     model.ProvenanceEstimated,
		DownloadsLast365d: int64Ptr(last30 * 12),
		Provenance365d:    model.ProvenanceEstimated,
	}, nil
}

// CheckTypesPackageExists reports whether a matching @types/* package
// exists for an untyped, unscoped package.
func (a *NpmAdapter) CheckTypesPackageExists(ctx context.Context, name string) bool {
	if strings.HasPrefix(name, "@") {
		return false
	}
	typesName := fmt.Sprintf("@types/%s", name)
	encoded := strings.ReplaceAll(typesName, "/", "%2F")
	u := fmt.Sprintf("%s/%s", npmRegistryURL, encoded)
	return headExists(ctx, a.client, u)
}

func (a *NpmAdapter) GetSourceRepo(metadata model.PackageMetadata) (model.RepoRef, bool) {
	u := metadata.RepositoryURL
	if u == "" {
		u = metadata.Homepage
	}
	if u == "" {
		return model.RepoRef{}, false
	}

	u = npmCleanGitURL(u)

	if rest, ok := strings.CutPrefix(u, "github:"); ok {
		if owner, repo, ok := splitOwnerRepo(rest); ok {
			return model.RepoRef{Platform: model.PlatformGitHub, Owner: owner, Repo: repo}, true
		}
	}
	if rest, ok := strings.CutPrefix(u, "gitlab:"); ok {
		if owner, repo, ok := splitOwnerRepo(rest); ok {
			return model.RepoRef{Platform: model.PlatformGitLab, Owner: owner, Repo: repo}, true
		}
	}

	return ParseRepoURL(u)
}

func splitOwnerRepo(s string) (owner, repo string, ok bool) {
	parts := strings.SplitN(s, "/", 2)
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], strings.TrimSuffix(parts[1], ".git"), true
}

func npmCleanGitURL(u string) string {
	u = strings.ReplaceAll(u, "git+", "")
	u = strings.Replace(u, "git://", "https://", 1)
	u = strings.TrimSuffix(u, ".git")
	return u
}

func npmExtractRepoURL(repo npmRepository) string {
	if repo.URL == "" {
		return ""
	}
	return npmCleanGitURL(repo.URL)
}

func firstNonNilRepo(a, b npmRepository) npmRepository {
	if a.URL != "" {
		return a
	}
	return b
}

func npmExtractLicense(pkgLicense, versionLicense interface{}) string {
	if lic := licenseString(pkgLicense); lic != "" {
		return lic
	}
	return licenseString(versionLicense)
}

func licenseString(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case map[string]interface{}:
		if s, ok := t["type"].(string); ok && s != "" {
			return s
		}
		if s, ok := t["name"].(string); ok {
			return s
		}
	case []interface{}:
		if len(t) > 0 {
			return licenseString(t[0])
		}
	}
	return ""
}

func truncate(s []string, limit int) []string {
	if limit <= 0 || limit >= len(s) {
		out := make([]string, len(s))
		copy(out, s)
		return out
	}
	out := make([]string, limit)
	copy(out, s[:limit])
	return out
}

// npmPackageDoc mirrors the fields of the npm registry's full package
// document that this adapter needs; the registry document carries many
// more fields that are intentionally left unparsed.
type npmPackageDoc struct {
	Name        string                    `json:"name"`
	Description string                    `json:"description"`
	Homepage    string                    `json:"homepage"`
	Keywords    []string                  `json:"keywords"`
	License     interface{}               `json:"license"`
	Repository  npmRepository             `json:"repository"`
	DistTags    map[string]string         `json:"dist-tags"`
	Versions    map[string]npmVersionDoc  `json:"versions"`
	Maintainers []npmMaintainer           `json:"maintainers"`
	Time        map[string]string         `json:"time"`
}

type npmVersionDoc struct {
	Version      string            `json:"version"`
	Description  string            `json:"description"`
	Homepage     string            `json:"homepage"`
	Keywords     []string          `json:"keywords"`
	License      interface{}       `json:"license"`
	Repository   npmRepository     `json:"repository"`
	Dependencies map[string]string `json:"dependencies"`
	Scripts      map[string]string `json:"scripts"`
	Types        string            `json:"types"`
	Typings      string            `json:"typings"`
	Main         string            `json:"main"`
	Dist         npmDist           `json:"dist"`
	NpmUser      npmMaintainer     `json:"_npmUser"`
	Maintainers  []npmMaintainer   `json:"maintainers"`
}

type npmDist struct {
	Tarball string `json:"tarball"`
	Shasum  string `json:"shasum"`
}

// NpmVersionManifest is the subset of a single published version's
// manifest the supply-chain analyzer needs: lifecycle scripts,
// declared dependencies, and where to download the published tarball.
type NpmVersionManifest struct {
	Version      string
	Scripts      map[string]string
	Dependencies map[string]string
	TarballURL   string
	Publisher    string
	Maintainers  []string
	PublishedAt  time.Time
}

// FetchVersionManifests returns every published version's manifest for
// name, keyed by version string, together with the latest dist-tag. The
// map has no order; callers sort versions by semver themselves. Used by the supply-chain analyzer to compare the newest version
// against its immediate predecessor.
func (a *NpmAdapter) FetchVersionManifests(ctx context.Context, name string) (map[string]NpmVersionManifest, string, error) {
	encoded := strings.ReplaceAll(name, "/", "%2F")
	u := fmt.Sprintf("%s/%s", npmRegistryURL, encoded)

	var data npmPackageDoc
	if err := fetchJSON(ctx, a.client, u, &data); err != nil {
		if pkgerrors.IsNotFound(err) {
			return nil, "", &pkgerrors.PackageNotFound{Ecosystem: string(model.EcosystemNPM), Name: name}
		}
		return nil, "", err
	}

	out := make(map[string]NpmVersionManifest, len(data.Versions))
	for v, doc := range data.Versions {
		maintainers := make([]string, 0, len(doc.Maintainers))
		for _, m := range doc.Maintainers {
			if m.Name != "" {
				maintainers = append(maintainers, m.Name)
			}
		}
		var publishedAt time.Time
		if raw, ok := data.Time[v]; ok {
			publishedAt, _ = time.Parse(time.RFC3339, raw)
		}
		out[v] = NpmVersionManifest{
			Version:      v,
			Scripts:      doc.Scripts,
			Dependencies: doc.Dependencies,
			TarballURL:   doc.Dist.Tarball,
			Publisher:    doc.NpmUser.Name,
			Maintainers:  maintainers,
			PublishedAt:  publishedAt,
		}
	}
	return out, data.DistTags["latest"], nil
}

// FetchTarball downloads the published tarball at url, returning the raw
// gzip bytes for the supply-chain analyzer to enumerate.
func (a *NpmAdapter) FetchTarball(ctx context.Context, url string) ([]byte, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("building tarball request for %s: %w", url, err)
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching tarball %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return nil, pkgerrors.FromHTTPError(resp.StatusCode, "tarball fetch failed", url)
	}
	return io.ReadAll(resp.Body)
}

// npmRepository unmarshals either form of the npm "repository" field:
// a plain string, or {"type":"git","url":"..."}.
type npmRepository struct {
	URL string
}

func (r *npmRepository) UnmarshalJSON(data []byte) error {
	var asString string
	if err := json.Unmarshal(data, &asString); err == nil {
		r.URL = asString
		return nil
	}
	var asObject struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(data, &asObject); err != nil {
		return nil
	}
	r.URL = asObject.URL
	return nil
}

type npmMaintainer struct {
	Name string `json:"name"`
}

type npmDownloadsPoint struct {
	Downloads int `json:"downloads"`
}

var npmPopularPackages = []string{
	// Tier 1: core utilities
	"lodash", "chalk", "commander", "debug", "uuid", "semver", "glob",
	"yargs", "fs-extra", "axios", "moment", "async", "underscore",
	"dotenv", "minimist", "colors", "rimraf", "mkdirp", "bluebird",
	"cross-env", "inquirer", "ora", "rxjs", "ws", "cheerio",
	// Tier 2: build/dev tools
	"typescript", "webpack", "babel-core", "@babel/core", "eslint",
	"prettier", "jest", "mocha", "chai", "esbuild", "rollup",
	"postcss", "autoprefixer", "sass", "less", "terser",
	// Tier 3: frontend frameworks
	"react", "react-dom", "vue", "angular", "@angular/core", "svelte",
	"preact", "next", "nuxt", "gatsby", "vite", "solid-js",
	// Tier 4: backend/server
	"express", "koa", "fastify", "hapi", "socket.io", "body-parser",
	"cors", "helmet", "morgan", "cookie-parser", "compression",
	// Tier 5: data/database
	"mongoose", "sequelize", "redis", "pg", "mysql", "mysql2",
	"mongodb", "knex", "typeorm", "prisma", "graphql", "apollo-server",
	// Tier 6: http/networking
	"node-fetch", "got", "superagent", "request", "form-data",
	"http-proxy", "https-proxy-agent", "socks-proxy-agent",
	// Tier 7: testing
	"sinon", "nock", "supertest", "enzyme", "@testing-library/react",
	"cypress", "puppeteer", "playwright", "jsdom",
	// Tier 8: types
	"@types/node", "@types/react", "@types/lodash", "@types/jest",
	"@types/express", "@types/mocha", "@types/chai",
	// Tier 9: CLI/dev experience
	"yargs-parser", "boxen", "execa", "cosmiconfig", "tslib",
	"source-map-support", "electron", "nodemon", "ts-node",
	// Tier 10: security/crypto
	"jsonwebtoken", "bcrypt", "bcryptjs", "crypto-js", "argon2",
}
