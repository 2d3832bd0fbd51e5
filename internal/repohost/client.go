package repohost

import (
	"context"
	"net/http"
	"time"

	"github.com/google/go-github/v60/github"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/oauth2"

	"github.com/pkgrisk/analyzer/internal/resilience"
	"github.com/pkgrisk/analyzer/pkg/observability"
)

// releaseCacheSize bounds the number of repositories whose tag->publish
// date table is kept in memory. Several packages from the same
// monorepo (or a batch re-run shortly after the last one) hit the same
// repository's release list repeatedly within one process lifetime.
const releaseCacheSize = 256

// Client wraps a go-github client with the rate-limit-capturing
// transport the rest of the daemon reads to pace itself ahead of
// exhaustion, and a default per-call timeout.
type Client struct {
	gh                *github.Client
	rateTransport     *rateLimitTransport
	requestTimeout    time.Duration
	logger            observability.Logger
	releaseEntryCache *lru.Cache[string, releaseCacheEntry]
}

// Config controls how the underlying HTTP client is built.
type Config struct {
	Token              string
	RateLimitThreshold int
	RequestTimeout     time.Duration
	OnRateLimitWarning func(resilience.GitHubRateLimitInfo)
	Logger             observability.Logger
}

// NewClient builds a GitHub client authenticated with a personal access
// token. An empty token yields an unauthenticated client, which GitHub
// limits to 60 requests/hour — callers should treat that as
// development-only.
func NewClient(cfg Config) *Client {
	if cfg.RequestTimeout == 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	if cfg.RateLimitThreshold == 0 {
		cfg.RateLimitThreshold = 50
	}

	rt := &rateLimitTransport{
		base:      &headerTransport{base: http.DefaultTransport},
		threshold: cfg.RateLimitThreshold,
		onWarn:    cfg.OnRateLimitWarning,
	}

	httpClient := &http.Client{Timeout: cfg.RequestTimeout}
	if cfg.Token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token})
		tc := oauth2.NewClient(context.Background(), ts)
		if transport, ok := tc.Transport.(*oauth2.Transport); ok {
			transport.Base = rt
			httpClient.Transport = transport
		} else {
			httpClient.Transport = rt
		}
	} else {
		httpClient.Transport = rt
	}

	logger := cfg.Logger
	if logger == nil {
		logger = observability.NewNoopLogger()
	}

	cache, err := lru.New[string, releaseCacheEntry](releaseCacheSize)
	if err != nil {
		// Only returns an error for a non-positive size, which
		// releaseCacheSize never is.
		panic(err)
	}

	return &Client{
		gh:                github.NewClient(httpClient),
		rateTransport:     rt,
		requestTimeout:    cfg.RequestTimeout,
		logger:            logger,
		releaseEntryCache: cache,
	}
}

// RateLimit returns the most recently observed rate-limit state.
func (c *Client) RateLimit() resilience.GitHubRateLimitInfo {
	return c.rateTransport.Latest()
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, c.requestTimeout)
}
