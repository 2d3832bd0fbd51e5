package repohost

import (
	"context"
	"time"

	"github.com/google/go-github/v60/github"

	"github.com/pkgrisk/analyzer/internal/model"
)

const issueSampleSize = 100

// fetchIssueStats samples up to 100 of the most recently created issues,
// open and closed (pull requests excluded via PullRequestLinks), to
// estimate close-time turnaround and close rate. First-response time is
// not computed: that would need each issue's comment list, which does
// not fit a per-package request budget.
func (c *Client) fetchIssueStats(ctx context.Context, ref model.RepoRef) (model.IssueStats, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	opts := &github.IssueListByRepoOptions{
		State:       "all",
		Sort:        "created",
		Direction:   "desc",
		ListOptions: github.ListOptions{PerPage: issueSampleSize},
	}
	issues, _, err := c.gh.Issues.ListByRepo(ctx, ref.Owner, ref.Repo, opts)
	if err != nil {
		return model.IssueStats{}, err
	}

	var stats model.IssueStats
	var totalCloseHrs float64
	var sampledClosed int

	for _, issue := range issues {
		if issue.IsPullRequest() {
			continue
		}
		switch issue.GetState() {
		case "open":
			stats.OpenCount++
		case "closed":
			stats.ClosedCount++
			created := issue.GetCreatedAt().Time
			closed := issue.GetClosedAt().Time
			if !created.IsZero() && !closed.IsZero() {
				totalCloseHrs += closed.Sub(created).Hours()
				sampledClosed++
			}
		}
	}

	stats.SampledCount = stats.OpenCount + stats.ClosedCount
	if sampledClosed > 0 {
		stats.AvgCloseTimeHrs = totalCloseHrs / float64(sampledClosed)
	}
	if stats.SampledCount > 0 {
		stats.CloseRatePct = float64(stats.ClosedCount) / float64(stats.SampledCount) * 100
	}
	// First-response time needs each issue's comment thread, which this
	// sample does not fetch; left at zero until a dedicated per-issue
	// comment fetch is budgeted for.
	return stats, nil
}

const staleAfter = 30 * 24 * time.Hour

// fetchPRStats samples the most recent pull requests to count open,
// merged, and stale (open for more than 30 days) PRs.
func (c *Client) fetchPRStats(ctx context.Context, ref model.RepoRef) (model.PRStats, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	opts := &github.PullRequestListOptions{
		State:       "all",
		Sort:        "created",
		Direction:   "desc",
		ListOptions: github.ListOptions{PerPage: issueSampleSize},
	}
	prs, _, err := c.gh.PullRequests.List(ctx, ref.Owner, ref.Repo, opts)
	if err != nil {
		return model.PRStats{}, err
	}

	var stats model.PRStats
	now := time.Now()
	for _, pr := range prs {
		switch {
		case pr.GetMergedAt().IsZero() && pr.GetState() == "open":
			stats.OpenCount++
			if now.Sub(pr.GetCreatedAt().Time) > staleAfter {
				stats.StaleCount++
			}
		case !pr.GetMergedAt().IsZero():
			stats.MergedCount++
		}
	}
	return stats, nil
}
