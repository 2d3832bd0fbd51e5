// Package repohost fetches repository-shaped facts from GitHub:
// identity, contributor and commit activity, issue/PR/release
// turnaround, CI depth, security posture, and documentation presence.
package repohost

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/pkgrisk/analyzer/internal/resilience"
)

const apiVersionHeader = "2022-11-28"

// headerTransport stamps every request with the GitHub REST API version
// and a user agent, matching how the teacher's header transport adds
// required headers ahead of the oauth2 transport's Authorization header.
type headerTransport struct {
	base http.RoundTripper
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", apiVersionHeader)
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", "pkgrisk-analyzer")
	}
	return t.base.RoundTrip(req)
}

// rateLimitTransport captures the X-RateLimit-* headers of every
// response so the daemon can sleep ahead of exhaustion instead of
// discovering it from a 403, and logs once remaining drops below
// threshold — the same shape as the teacher's updateRateLimits warning.
type rateLimitTransport struct {
	base      http.RoundTripper
	threshold int
	onWarn    func(resilience.GitHubRateLimitInfo)

	mu     sync.RWMutex
	latest resilience.GitHubRateLimitInfo
}

func (t *rateLimitTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.base.RoundTrip(req)
	if err != nil || resp == nil {
		return resp, err
	}

	info := resilience.GitHubRateLimitInfo{
		Limit:     atoiOr(resp.Header.Get("X-RateLimit-Limit"), 0),
		Remaining: atoiOr(resp.Header.Get("X-RateLimit-Remaining"), 0),
		Used:      atoiOr(resp.Header.Get("X-RateLimit-Used"), 0),
	}
	if resetSec := resp.Header.Get("X-RateLimit-Reset"); resetSec != "" {
		if epoch, convErr := strconv.ParseInt(resetSec, 10, 64); convErr == nil {
			info.Reset = time.Unix(epoch, 0)
		}
	}
	if info.Limit == 0 {
		return resp, nil
	}

	t.mu.Lock()
	t.latest = info
	t.mu.Unlock()

	if info.Exhausted(t.threshold) && t.onWarn != nil {
		t.onWarn(info)
	}
	return resp, nil
}

// Latest returns the most recently observed rate-limit state.
func (t *rateLimitTransport) Latest() resilience.GitHubRateLimitInfo {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.latest
}

func atoiOr(s string, fallback int) int {
	if s == "" {
		return fallback
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return fallback
	}
	return n
}
