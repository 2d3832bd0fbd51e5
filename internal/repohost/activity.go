package repohost

import (
	"context"
	"math"
	"time"

	"github.com/google/go-github/v60/github"

	"github.com/pkgrisk/analyzer/internal/model"
)

const (
	sixMonths = 182 * 24 * time.Hour
	oneYear   = 365 * 24 * time.Hour
)

// fetchContributorStats derives active-contributor counts, concentration,
// and commit-entropy from GitHub's weekly per-contributor commit stats.
// GitHub computes this asynchronously; a 202 on first request (an empty,
// nil-error result from go-github) is treated as "not ready yet" rather
// than an error, leaving the zero value.
func (c *Client) fetchContributorStats(ctx context.Context, ref model.RepoRef) (model.ContributorStats, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	stats, _, err := c.gh.Repositories.ListContributorsStats(ctx, ref.Owner, ref.Repo)
	if err != nil {
		return model.ContributorStats{}, err
	}
	if len(stats) == 0 {
		return model.ContributorStats{}, nil
	}

	now := time.Now()
	cutoffNow := now.Add(-sixMonths)
	cutoffPrev := now.Add(-2 * sixMonths)

	var (
		total           int
		activeNow       int
		activePrev      int
		firstTimeActive int
		commitsByAuthor []int
	)
	totalAll := 0
	for _, s := range stats {
		total++
		authorTotal := s.GetTotal()
		totalAll += authorTotal
		commitsByAuthor = append(commitsByAuthor, authorTotal)

		var commitsNow, commitsPrev, firstWeekCommits int
		firstActiveWeek := true
		for _, w := range s.Weeks {
			week := w.GetWeek().Time
			commits := w.GetCommits()
			if commits == 0 {
				continue
			}
			if week.After(cutoffNow) {
				commitsNow += commits
			} else if week.After(cutoffPrev) {
				commitsPrev += commits
			}
			if firstActiveWeek {
				firstWeekCommits = commits
				firstActiveWeek = false
			}
		}
		if commitsNow > 0 {
			activeNow++
		}
		if commitsPrev > 0 {
			activePrev++
		}
		// A contributor whose only activity in the whole history falls
		// in the most recent window is a first-time contributor this period.
		if commitsNow > 0 && commitsNow == authorTotal && firstWeekCommits > 0 {
			firstTimeActive++
		}
	}

	topPct := 0.0
	atLeast5Pct := 0
	if totalAll > 0 {
		maxCommits := 0
		for _, n := range commitsByAuthor {
			if n > maxCommits {
				maxCommits = n
			}
			if float64(n)/float64(totalAll) >= 0.05 {
				atLeast5Pct++
			}
		}
		topPct = float64(maxCommits) / float64(totalAll) * 100
	}

	entropy, entropyDefined := commitEntropy(commitsByAuthor, totalAll)

	return model.ContributorStats{
		Total:              total,
		ActiveLast6Months:  activeNow,
		PriorActive6Months: activePrev,
		TopContributorPct:  topPct,
		CountAtLeast5Pct:   atLeast5Pct,
		FirstTimeLast6Mo:   firstTimeActive,
		Trend:              model.ComputeTrend(activeNow, activePrev),
		EntropyBits:        entropy,
		EntropyDefined:     entropyDefined,
	}, nil
}

// commitEntropy computes Shannon entropy (in bits) of the distribution
// of commits across contributors: higher entropy means commit load is
// spread evenly, near zero means one contributor dominates.
func commitEntropy(commitsByAuthor []int, total int) (float64, bool) {
	if total == 0 || len(commitsByAuthor) == 0 {
		return 0, false
	}
	entropy := 0.0
	for _, n := range commitsByAuthor {
		if n == 0 {
			continue
		}
		p := float64(n) / float64(total)
		entropy -= p * math.Log2(p)
	}
	return entropy, true
}

// fetchCommitActivity samples up to 300 commits (3 pages) from the
// default branch's history and buckets them into the 180d/365d windows.
// This is a sample, not an exhaustive count, for repositories with a
// commit cadence high enough that exact counts would need many more
// requests than the per-package analysis budget allows.
func (c *Client) fetchCommitActivity(ctx context.Context, ref model.RepoRef) (model.CommitActivity, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	since := time.Now().Add(-oneYear)
	opts := &github.CommitsListOptions{
		Since:       since,
		ListOptions: github.ListOptions{PerPage: 100},
	}

	var (
		activity     model.CommitActivity
		signed, seen int
	)
	cutoff180 := time.Now().Add(-180 * 24 * time.Hour)
	cutoff365 := since

	for page := 1; page <= 3; page++ {
		opts.Page = page
		commits, resp, err := c.gh.Repositories.ListCommits(ctx, ref.Owner, ref.Repo, opts)
		if err != nil {
			if seen > 0 {
				break
			}
			return model.CommitActivity{}, err
		}
		for _, rc := range commits {
			cd := rc.GetCommit().GetAuthor().GetDate().Time
			if cd.IsZero() {
				cd = rc.GetCommit().GetCommitter().GetDate().Time
			}
			if cd.After(activity.LastCommitAt) {
				activity.LastCommitAt = cd
			}
			if cd.After(cutoff180) {
				activity.CommitsLast180d++
			}
			if cd.After(cutoff365) {
				activity.CommitsLast365d++
			}
			seen++
			if rc.GetCommit().GetVerification().GetVerified() {
				signed++
			}
		}
		if resp.NextPage == 0 {
			break
		}
	}

	if seen > 0 {
		activity.SignedCommitPct = math.Round(float64(signed)/float64(seen)*1000) / 10
	}
	return activity, nil
}
