package llmorch

import (
	"context"

	"github.com/pkgrisk/analyzer/internal/model"
	"github.com/pkgrisk/analyzer/internal/repohost"
)

const (
	maxIssuesSampled       = 10
	maxCommentsPerIssue    = 5
	maxSecuritySampleBytes = 60_000
	maxSecuritySampleFiles = 12
)

// ContentFetcher is the subset of repohost.Client the orchestrator's
// phase-1 content fetch needs. Defined here so llmorch can be tested
// against a fake without importing repohost's GitHub wiring.
type ContentFetcher interface {
	FetchReadme(ctx context.Context, ref model.RepoRef) string
	FetchChangelog(ctx context.Context, ref model.RepoRef) string
	FetchGovernanceDocs(ctx context.Context, ref model.RepoRef) string
	FetchMaintainerComments(ctx context.Context, ref model.RepoRef, maxIssues, maxComments int) []string
	FetchSourceSamples(ctx context.Context, ref model.RepoRef, tree map[string]bool, language string, maxBytes, maxFiles int) []repohost.SourceSample
}

// Content bundles every piece of fetched material an assessment's
// prompt might need, gathered once in phase 1 and reused across all
// seven phase-2 prompts (an assessment ignores the fields it doesn't
// need).
type Content struct {
	Readme            string
	Changelog         string
	Governance        string
	MaintainerComments []string
	SourceSamples     []repohost.SourceSample
	RepoFacts         model.RepoFacts
}

// fetchContent runs every phase-1 sub-fetch. Each is independent; a
// fetcher returning its zero value (no README, empty tree) simply
// leaves that field empty rather than failing the whole fetch.
func fetchContent(ctx context.Context, fetcher ContentFetcher, ref model.RepoRef, facts model.RepoFacts, tree map[string]bool) Content {
	return Content{
		Readme:             fetcher.FetchReadme(ctx, ref),
		Changelog:          fetcher.FetchChangelog(ctx, ref),
		Governance:         fetcher.FetchGovernanceDocs(ctx, ref),
		MaintainerComments: fetcher.FetchMaintainerComments(ctx, ref, maxIssuesSampled, maxCommentsPerIssue),
		SourceSamples:      fetcher.FetchSourceSamples(ctx, ref, tree, facts.Info.Language, maxSecuritySampleBytes, maxSecuritySampleFiles),
		RepoFacts:          facts,
	}
}
