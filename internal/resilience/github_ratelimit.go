package resilience

import "time"

// GitHubRateLimitInfo is the rate-limit state captured from a GitHub API
// response's X-RateLimit-* headers. The repo-host fetcher's transport
// reports this after every request so the daemon can sleep ahead of
// exhaustion instead of discovering it via a 403.
type GitHubRateLimitInfo struct {
	Limit     int
	Remaining int
	Reset     time.Time
	Used      int
}

// Exhausted reports whether remaining requests have dropped at or below
// threshold.
func (i GitHubRateLimitInfo) Exhausted(threshold int) bool {
	return i.Remaining <= threshold
}
