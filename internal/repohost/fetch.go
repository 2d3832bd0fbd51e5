package repohost

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/go-github/v60/github"
	"golang.org/x/sync/errgroup"

	"github.com/pkgrisk/analyzer/internal/model"
	"github.com/pkgrisk/analyzer/internal/resilience"
)

// maxConcurrentSubFetches bounds how many of a repository's independent
// sub-fetches (contributors, commits, issues, ...) run at once, so one
// repository's analysis never opens more connections than the GitHub
// client's own rate-limit pacing assumes.
const maxConcurrentSubFetches = 4

// ErrRepoNotFound is returned when GitHub has no repository at the
// given owner/repo.
var ErrRepoNotFound = errors.New("repohost: repository not found")

// ErrRepoPrivate is returned when the repository exists but is private
// (or otherwise inaccessible to the configured token).
var ErrRepoPrivate = errors.New("repohost: repository is private or inaccessible")

// FetchRepoFacts gathers every GitHub-shaped fact this pipeline scores
// a package's source repository on. The repository lookup itself is
// fatal; every sub-fetch after it is best-effort, logging and leaving
// its RepoFacts sub-record at the zero value on failure rather than
// aborting the whole fetch — a repo with branch-protection-locked
// Actions access, say, should still be scored on everything else.
func (c *Client) FetchRepoFacts(ctx context.Context, ref model.RepoRef) (model.RepoFacts, error) {
	if ref.Platform != model.PlatformGitHub {
		return model.RepoFacts{}, fmt.Errorf("repohost: %s is not a GitHub repository", ref.Platform)
	}

	repo, err := c.getRepository(ctx, ref.Owner, ref.Repo)
	if err != nil {
		return model.RepoFacts{}, err
	}
	if repo.GetPrivate() {
		return model.RepoFacts{}, ErrRepoPrivate
	}

	facts := model.RepoFacts{Info: repoInfoFrom(repo)}

	type step struct {
		name string
		run  func() error
	}
	// "security" depends on "ci status" having already populated
	// facts.CI, so it is fetched separately after the bounded fan-out
	// below rather than folded into it.
	concurrentSteps := []step{
		{"contributors", func() (e error) { facts.Contributors, e = c.fetchContributorStats(ctx, ref); return }},
		{"commits", func() (e error) { facts.Commits, e = c.fetchCommitActivity(ctx, ref); return }},
		{"issues", func() (e error) { facts.Issues, e = c.fetchIssueStats(ctx, ref); return }},
		{"pull requests", func() (e error) { facts.PRs, e = c.fetchPRStats(ctx, ref); return }},
		{"releases", func() (e error) { facts.Releases, facts.ReleaseDates, e = c.fetchReleaseStats(ctx, ref); return }},
		{"community files", func() (e error) { facts.Files, e = c.fetchRepoFiles(ctx, ref); return }},
		{"ci status", func() (e error) { facts.CI, e = c.fetchCIStatus(ctx, ref); return }},
	}

	var g errgroup.Group
	g.SetLimit(maxConcurrentSubFetches)
	for _, s := range concurrentSteps {
		s := s
		g.Go(func() error {
			if err := s.run(); err != nil {
				c.logger.Warnf("repohost: %s/%s: %s fetch failed, leaving zero value: %v", ref.Owner, ref.Repo, s.name, err)
			}
			// Sub-fetch failures are isolated per field, never
			// aborting the others, so the group itself never errors.
			return nil
		})
	}
	_ = g.Wait()

	if err := (step{"security", func() (e error) { facts.Security, e = c.fetchSecurityFacts(ctx, ref, facts.CI); return }}).run(); err != nil {
		c.logger.Warnf("repohost: %s/%s: security fetch failed, leaving zero value: %v", ref.Owner, ref.Repo, err)
	}

	facts.Info.Deprecated = DeprecationSignals(facts.Info)

	return facts, nil
}

func (c *Client) getRepository(ctx context.Context, owner, repo string) (*github.Repository, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	result, err := resilience.ExecuteWithCircuitBreaker(ctx, resilience.GitHubCircuitBreaker, resilience.CircuitBreakerConfig{}, func() (interface{}, error) {
		r, resp, err := c.gh.Repositories.Get(ctx, owner, repo)
		if err != nil {
			if resp != nil && resp.StatusCode == 404 {
				return nil, ErrRepoNotFound
			}
			return nil, err
		}
		return r, nil
	})
	if err != nil {
		if errors.Is(err, ErrRepoNotFound) {
			return nil, ErrRepoNotFound
		}
		return nil, fmt.Errorf("repohost: fetching %s/%s: %w", owner, repo, err)
	}
	return result.(*github.Repository), nil
}

func repoInfoFrom(r *github.Repository) model.RepoInfo {
	info := model.RepoInfo{
		ID:             r.GetID(),
		FullName:       r.GetFullName(),
		Description:    r.GetDescription(),
		CreatedAt:      r.GetCreatedAt().Time,
		UpdatedAt:      r.GetUpdatedAt().Time,
		PushedAt:       r.GetPushedAt().Time,
		Stars:          r.GetStargazersCount(),
		Forks:          r.GetForksCount(),
		OpenIssues:     r.GetOpenIssuesCount(),
		Language:       r.GetLanguage(),
		Topics:         r.Topics,
		Archived:       r.GetArchived(),
		Fork:           r.GetFork(),
		HasDiscussions: r.GetHasDiscussions(),
	}
	if info.PushedAt.Before(info.CreatedAt) {
		info.PushedAt = info.CreatedAt
	}
	return info
}
