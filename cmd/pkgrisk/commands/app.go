// Package commands wires the cobra CLI surface to the analysis pipeline:
// per-package and batch analysis, registry listing, and the continuous
// daemon.
package commands

import (
	"context"
	"fmt"

	"github.com/pkgrisk/analyzer/internal/adapters"
	"github.com/pkgrisk/analyzer/internal/aggregator"
	"github.com/pkgrisk/analyzer/internal/config"
	"github.com/pkgrisk/analyzer/internal/daemon"
	"github.com/pkgrisk/analyzer/internal/llmorch"
	"github.com/pkgrisk/analyzer/internal/metrics"
	"github.com/pkgrisk/analyzer/internal/pipeline"
	"github.com/pkgrisk/analyzer/internal/publish"
	"github.com/pkgrisk/analyzer/internal/repohost"
	"github.com/pkgrisk/analyzer/internal/resilience"
	"github.com/pkgrisk/analyzer/internal/storage"
	"github.com/pkgrisk/analyzer/internal/vuln"
	"github.com/pkgrisk/analyzer/pkg/observability"
)

// App bundles every long-lived dependency the CLI commands share, built
// once per invocation from loaded configuration.
type App struct {
	Config          *config.Config
	Adapters        []adapters.Adapter
	Pipeline        *pipeline.Pipeline
	Store           *storage.Store
	RepoHost        *repohost.Client
	Publisher       *publish.Publisher
	Logger          observability.Logger
	Metrics         *metrics.Collector
	PrometheusAddr  string
}

// NewApp loads configuration and wires every fetcher/orchestrator the
// pipeline needs.
func NewApp() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}

	logger := observability.NewStandardLogger("pkgrisk")

	allAdapters, err := adapters.All(logger)
	if err != nil {
		return nil, fmt.Errorf("constructing adapters: %w", err)
	}

	rh := repohost.NewClient(repohost.Config{
		Token:              cfg.GitHub.Token,
		RateLimitThreshold: cfg.GitHub.RateLimitThreshold,
		RequestTimeout:     cfg.GitHub.RequestTimeout,
		OnRateLimitWarning: func(info resilience.GitHubRateLimitInfo) {
			logger.Warnf("github rate limit low: %d/%d remaining, resets %s", info.Remaining, info.Limit, info.Reset)
		},
		Logger: logger,
	})

	vulnFetcher := vuln.NewFetcher(logger)
	aggFetcher := aggregator.NewFetcher(logger)

	var orch *llmorch.Orchestrator
	if cfg.LLM.Enabled {
		mode := llmorch.ModeSequential
		if cfg.LLM.Parallel {
			mode = llmorch.ModeParallel
		}
		orch = llmorch.New(llmorch.Config{
			EndpointURL: cfg.LLM.BaseURL,
			Model:       cfg.LLM.Model,
			Mode:        mode,
		}, rh)
	}

	store := storage.New(cfg.DataDir)

	mc, err := metrics.NewCollector(cfg.DataDir+"/.metrics.json", observability.NewMetricsClient(), logger)
	if err != nil {
		return nil, fmt.Errorf("initializing metrics collector: %w", err)
	}

	p := pipeline.New(allAdapters, rh, vulnFetcher, aggFetcher, orch, store, mc, logger)

	pub := publish.New(cfg.Publish, cfg.GitHub.Token, logger)

	promAddr := ""
	if cfg.Metrics.Enabled {
		observability.NewPrometheusMetricsClient("pkgrisk", "analyzer", nil)
		promAddr = cfg.Metrics.ListenAddr
	}

	return &App{
		Config:         cfg,
		Adapters:       allAdapters,
		Pipeline:       p,
		Store:          store,
		RepoHost:       rh,
		Publisher:      pub,
		Logger:         logger,
		Metrics:        mc,
		PrometheusAddr: promAddr,
	}, nil
}

// ServeMetrics starts the Prometheus /metrics endpoint if configured,
// returning immediately with a no-op channel otherwise.
func (a *App) ServeMetrics(ctx context.Context) <-chan error {
	return observability.ServeMetrics(ctx, a.PrometheusAddr)
}

// NewDaemon builds the continuous-run daemon from this App's dependencies.
func (a *App) NewDaemon() *daemon.Daemon {
	return daemon.New(a.Pipeline, a.Adapters, a.Store, a.RepoHost, a.Publisher, a.Logger, a.Config.Daemon, a.Config.Queue, a.Config.Publish, a.Config.GitHub)
}
