// Package aggregator fetches cross-forge project signals from a
// deps.dev-shaped aggregator: SLSA attestation presence, the resolved
// dependency graph (rolled up via BFS), and either a full OpenSSF
// Scorecard (GitHub projects) or basic project counters (everyone
// else). Each of the three sub-queries is independently failure-
// isolated; one failing never blocks the others.
package aggregator

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/sync/errgroup"

	"github.com/pkgrisk/analyzer/internal/model"
	"github.com/pkgrisk/analyzer/internal/resilience"
	"github.com/pkgrisk/analyzer/pkg/observability"
)

const baseURL = "https://api.deps.dev/v3"

var ecosystemSystems = map[model.Ecosystem]string{
	model.EcosystemNPM:    "npm",
	model.EcosystemPyPI:   "pypi",
	model.EcosystemCrates: "cargo",
}

// maxConcurrentSubQueries bounds how many of a package's independent
// deps.dev sub-queries (SLSA, dependency graph, project metrics) run at
// once.
const maxConcurrentSubQueries = 3

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

// Fetch runs the two version-keyed sub-queries (SLSA, dependency graph)
// for pkg@version and, when repoRef is known, the third, project-level
// query keyed off the repository, concurrently
// and bounded by maxConcurrentSubQueries. Each sub-query's failure
// degrades only its own field of AggregatorData, never the others.
func (f *Fetcher) Fetch(ctx context.Context, pkg model.PackageRef, version string, repoRef model.RepoRef) model.AggregatorData {
	var data model.AggregatorData

	var g errgroup.Group
	g.SetLimit(maxConcurrentSubQueries)

	if system, ok := ecosystemSystems[pkg.Ecosystem]; ok && version != "" {
		g.Go(func() error {
			attested, level, err := f.fetchSLSA(ctx, system, pkg.Name, version)
			if err != nil {
				f.logger.Warnf("aggregator: %s: slsa fetch failed: %v", pkg, err)
				return nil
			}
			data.SLSAAttestation = attested
			data.SLSALevel = level
			return nil
		})
		g.Go(func() error {
			graph, err := f.fetchDependencyGraph(ctx, system, pkg.Name, version)
			if err != nil {
				f.logger.Warnf("aggregator: %s: dependency graph fetch failed: %v", pkg, err)
				return nil
			}
			data.DepGraph = graph
			return nil
		})
	}

	if repoRef.Owner != "" && repoRef.Repo != "" {
		if projectKey := projectKeyFor(repoRef); projectKey != "" {
			g.Go(func() error {
				if repoRef.Platform == model.PlatformGitHub {
					sc, err := f.fetchScorecard(ctx, projectKey)
					if err != nil {
						f.logger.Warnf("aggregator: %s: scorecard fetch failed: %v", pkg, err)
						return nil
					}
					data.Scorecard = sc
					return nil
				}
				basic, err := f.fetchBasicMetrics(ctx, projectKey)
				if err != nil {
					f.logger.Warnf("aggregator: %s: basic metrics fetch failed: %v", pkg, err)
					return nil
				}
				data.Basic = basic
				return nil
			})
		}
	}

	_ = g.Wait()
	return data
}

func projectKeyFor(ref model.RepoRef) string {
	var domain string
	switch ref.Platform {
	case model.PlatformGitHub:
		domain = "github.com"
	case model.PlatformGitLab:
		domain = "gitlab.com"
	case model.PlatformBitbucket:
		domain = "bitbucket.org"
	default:
		return ""
	}
	return fmt.Sprintf("%s/%s/%s", domain, ref.Owner, ref.Repo)
}

func (f *Fetcher) get(ctx context.Context, path string, out interface{}) error {
	_, err := resilience.ExecuteWithCircuitBreaker(ctx, resilience.AggregatorCircuitBreaker, resilience.CircuitBreakerConfig{}, func() (interface{}, error) {
		req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, baseURL+path, nil)
		if err != nil {
			return nil, err
		}
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
			return nil, errNotFound
		}
		if resp.StatusCode >= 400 {
			return nil, fmt.Errorf("aggregator: GET %s: status %d: %s", path, resp.StatusCode, string(raw))
		}
		return nil, json.Unmarshal(raw, out)
	})
	return err
}

var errNotFound = fmt.Errorf("aggregator: not found")

// fetchSLSA reads the version record and reports SLSA attestation
// presence plus the level inferred from the attestation's predicate
// type suffix (e.g. "...slsa_provenance/v1" style enums commonly end in
// a numeric level marker).
func (f *Fetcher) fetchSLSA(ctx context.Context, system, name, version string) (bool, int, error) {
	path := fmt.Sprintf("/systems/%s/packages/%s/versions/%s", system, url.PathEscape(name), url.PathEscape(version))
	var resp depsDevVersionResponse
	if err := f.get(ctx, path, &resp); err != nil {
		if err == errNotFound {
			return false, 0, nil
		}
		return false, 0, err
	}
	if len(resp.SLSAAttestations) == 0 {
		return false, 0, nil
	}
	level := 0
	for _, a := range resp.SLSAAttestations {
		if l := slsaLevelFromString(a.PredicateType); l > level {
			level = l
		}
	}
	return true, level, nil
}

func slsaLevelFromString(predicateType string) int {
	lower := strings.ToLower(predicateType)
	for i := 4; i >= 1; i-- {
		if strings.Contains(lower, "level"+strconv.Itoa(i)) || strings.Contains(lower, "l"+strconv.Itoa(i)) {
			return i
		}
	}
	if lower != "" {
		return 1
	}
	return 0
}

// fetchDependencyGraph fetches the resolved dependency graph and rolls
// it up by BFS from the root node: depth 1 is direct, deeper is
// transitive.
func (f *Fetcher) fetchDependencyGraph(ctx context.Context, system, name, version string) (model.DependencyGraphSummary, error) {
	path := fmt.Sprintf("/systems/%s/packages/%s/versions/%s:dependencies", system, url.PathEscape(name), url.PathEscape(version))
	var resp depsDevDependenciesResponse
	if err := f.get(ctx, path, &resp); err != nil {
		if err == errNotFound {
			return model.DependencyGraphSummary{}, nil
		}
		return model.DependencyGraphSummary{}, err
	}
	return bfsRollup(resp), nil
}

// bfsRollup walks the edge list breadth-first from node 0 (the root),
// classifying each reachable node by its shortest distance from the
// root: distance 1 is direct, >1 is transitive.
func bfsRollup(resp depsDevDependenciesResponse) model.DependencyGraphSummary {
	if len(resp.Nodes) == 0 {
		return model.DependencyGraphSummary{Known: true}
	}

	adjacency := make(map[int][]int)
	for _, e := range resp.Edges {
		adjacency[e.FromNode] = append(adjacency[e.FromNode], e.ToNode)
	}

	depth := make(map[int]int)
	depth[0] = 0
	queue := []int{0}
	maxDepth := 0
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		for _, next := range adjacency[n] {
			if _, visited := depth[next]; visited {
				continue
			}
			depth[next] = depth[n] + 1
			if depth[next] > maxDepth {
				maxDepth = depth[next]
			}
			queue = append(queue, next)
		}
	}

	summary := model.DependencyGraphSummary{Known: true, MaxDepth: maxDepth}
	for node, d := range depth {
		if d == 0 {
			continue
		}
		if d == 1 {
			summary.DirectCount++
		} else {
			summary.TransitiveCount++
		}
		if resp.Nodes[node].Vulnerable {
			summary.VulnerableCount++
		}
	}
	return summary
}

// fetchScorecard fetches the OpenSSF Scorecard for a GitHub project.
func (f *Fetcher) fetchScorecard(ctx context.Context, projectKey string) (model.Scorecard, error) {
	path := fmt.Sprintf("/projects/%s", url.PathEscape(projectKey))
	var resp depsDevProjectResponse
	if err := f.get(ctx, path, &resp); err != nil {
		if err == errNotFound {
			return model.Scorecard{}, nil
		}
		return model.Scorecard{}, err
	}
	if resp.Scorecard.OverallScore == 0 && len(resp.Scorecard.Check) == 0 {
		return model.Scorecard{}, nil
	}

	sc := model.Scorecard{OverallScore: resp.Scorecard.OverallScore, Known: true}
	for _, check := range resp.Scorecard.Check {
		sc.Checks = append(sc.Checks, model.ScorecardCheck{Name: check.Name, Score: check.Score, Reason: check.Reason})
		switch strings.ToLower(check.Name) {
		case "fuzzing":
			sc.FuzzingEnabled = check.Score >= 5
		case "sast":
			sc.SASTEnabled = check.Score >= 5
		case "cii-best-practices":
			sc.CIIBadge = check.Score >= 5
		}
	}
	return sc, nil
}

// fetchBasicMetrics fetches the lightweight project counters for a
// non-GitHub forge lacking a Scorecard.
func (f *Fetcher) fetchBasicMetrics(ctx context.Context, projectKey string) (model.BasicProjectMetrics, error) {
	path := fmt.Sprintf("/projects/%s", url.PathEscape(projectKey))
	var resp depsDevProjectResponse
	if err := f.get(ctx, path, &resp); err != nil {
		if err == errNotFound {
			return model.BasicProjectMetrics{}, nil
		}
		return model.BasicProjectMetrics{}, err
	}
	if resp.StarsCount == 0 && resp.ForksCount == 0 && resp.OpenIssuesCount == 0 {
		return model.BasicProjectMetrics{}, nil
	}
	return model.BasicProjectMetrics{
		Stars:          resp.StarsCount,
		Forks:          resp.ForksCount,
		OpenIssues:     resp.OpenIssuesCount,
		License:        resp.License,
		OSSFuzzCovered: resp.OSSFuzzCovered,
		Known:          true,
	}, nil
}

type depsDevVersionResponse struct {
	SLSAAttestations []struct {
		PredicateType string `json:"predicateType"`
	} `json:"slsaAttestations"`
}

type depsDevDependenciesResponse struct {
	Nodes []struct {
		VersionKey struct {
			System string `json:"system"`
			Name   string `json:"name"`
		} `json:"versionKey"`
		Vulnerable bool `json:"vulnerable"`
	} `json:"nodes"`
	Edges []struct {
		FromNode int `json:"fromNode"`
		ToNode   int `json:"toNode"`
	} `json:"edges"`
}

type depsDevProjectResponse struct {
	Scorecard struct {
		OverallScore float64 `json:"overallScore"`
		Check        []struct {
			Name   string `json:"name"`
			Score  int    `json:"score"`
			Reason string `json:"reason"`
		} `json:"check"`
	} `json:"scorecard"`
	StarsCount      int    `json:"starsCount"`
	ForksCount      int    `json:"forksCount"`
	OpenIssuesCount int    `json:"openIssuesCount"`
	License         string `json:"license"`
	OSSFuzzCovered  bool   `json:"ossFuzzCovered"`
}
