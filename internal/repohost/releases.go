package repohost

import (
	"context"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/google/go-github/v60/github"

	"github.com/pkgrisk/analyzer/internal/model"
)

// releaseDates is a repository's tag->publish-date table, kept
// alongside its derived ReleaseStats in the client's LRU cache so
// repeated lookups within one process lifetime (a monorepo backing
// several packages, or a stale-refresh re-analysis) skip the GitHub
// round trip entirely.
type releaseDates map[string]time.Time

type releaseCacheEntry struct {
	stats model.ReleaseStats
	dates releaseDates
}

// fetchReleaseStats lists up to 100 releases (GitHub returns them
// newest-first) and derives release cadence, pre-release ratio, and
// whether the repository has reached a stable major version.
func (c *Client) fetchReleaseStats(ctx context.Context, ref model.RepoRef) (model.ReleaseStats, map[string]time.Time, error) {
	cacheKey := ref.Owner + "/" + ref.Repo
	if cached, ok := c.releaseEntryCache.Get(cacheKey); ok {
		return cached.stats, cached.dates, nil
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	releases, _, err := c.gh.Repositories.ListReleases(ctx, ref.Owner, ref.Repo, &github.ListOptions{PerPage: 100})
	if err != nil {
		return model.ReleaseStats{}, nil, err
	}

	stats := model.ReleaseStats{TotalReleases: len(releases)}
	dates := make(releaseDates, len(releases))
	cutoff := time.Now().Add(-oneYear)

	var prereleases int
	for i, r := range releases {
		published := r.GetPublishedAt().Time
		if published.IsZero() {
			published = r.GetCreatedAt().Time
		}
		dates[r.GetTagName()] = published
		if published.After(cutoff) {
			stats.ReleasesLastYear++
		}
		if r.GetPrerelease() {
			prereleases++
		}
		if i == 0 {
			stats.LatestIsMajorGE1 = isMajorGE1(r.GetTagName())
		}
	}
	if len(releases) > 0 {
		stats.PrereleaseRatio = float64(prereleases) / float64(len(releases))
	}

	c.releaseEntryCache.Add(cacheKey, releaseCacheEntry{stats: stats, dates: dates})
	return stats, dates, nil
}

func isMajorGE1(tag string) bool {
	v, err := semver.NewVersion(strings.TrimPrefix(tag, "v"))
	if err != nil {
		return false
	}
	return v.Major() >= 1
}
