// Package daemon runs the continuous analysis loop: pulling packages
// from each ecosystem's work queue, running them through the pipeline,
// pacing itself against GitHub's rate limit, backing off exponentially
// on repeated failures, and periodically publishing accumulated
// artifacts and refreshing its queues.
package daemon

import (
	"context"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/pkgrisk/analyzer/internal/adapters"
	"github.com/pkgrisk/analyzer/internal/config"
	"github.com/pkgrisk/analyzer/internal/model"
	"github.com/pkgrisk/analyzer/internal/pipeline"
	"github.com/pkgrisk/analyzer/internal/queue"
	"github.com/pkgrisk/analyzer/internal/repohost"
	"github.com/pkgrisk/analyzer/internal/storage"
	"github.com/pkgrisk/analyzer/pkg/observability"
)

// Publisher periodically ships accumulated artifacts somewhere durable
// (a git remote, typically). Implemented by internal/publish.
type Publisher interface {
	Publish(ctx context.Context) error
}

const sleepPollInterval = 10 * time.Second

// Daemon owns one work queue per ecosystem and drives them through the
// pipeline until Stop is called.
type Daemon struct {
	Pipeline  *pipeline.Pipeline
	Adapters  map[model.Ecosystem]adapters.Adapter
	Store     *storage.Store
	RepoHost  *repohost.Client
	Publisher Publisher
	Logger    observability.Logger
	Config    config.DaemonConfig
	Queues    config.QueueConfig
	Publish   config.PublishConfig
	GitHub    config.GitHubConfig

	queues     map[model.Ecosystem]*queue.Queue
	ecosystems []model.Ecosystem
	ecoIdx     int

	stopping       atomic.Bool
	processedTotal int
	mu             sync.Mutex

	lastStats map[model.Ecosystem]queue.WorkQueueStats
}

// New builds a Daemon covering the given ecosystems.
func New(p *pipeline.Pipeline, adapterList []adapters.Adapter, store *storage.Store, rh *repohost.Client, pub Publisher, logger observability.Logger, daemonCfg config.DaemonConfig, queueCfg config.QueueConfig, publishCfg config.PublishConfig, githubCfg config.GitHubConfig) *Daemon {
	byEco := make(map[model.Ecosystem]adapters.Adapter, len(adapterList))
	queues := make(map[model.Ecosystem]*queue.Queue, len(adapterList))
	ecosystems := make([]model.Ecosystem, 0, len(adapterList))
	for _, a := range adapterList {
		eco := a.Ecosystem()
		byEco[eco] = a
		queues[eco] = queue.New(eco, queueCfg.NewRatio, queueCfg.StaleRatio)
		ecosystems = append(ecosystems, eco)
	}
	return &Daemon{
		Pipeline:   p,
		Adapters:   byEco,
		Store:      store,
		RepoHost:   rh,
		Publisher:  pub,
		Logger:     logger,
		Config:     daemonCfg,
		Queues:     queueCfg,
		Publish:    publishCfg,
		GitHub:     githubCfg,
		queues:     queues,
		ecosystems: ecosystems,
		lastStats:  make(map[model.Ecosystem]queue.WorkQueueStats, len(ecosystems)),
	}
}

// Stop requests cooperative shutdown. The running loop checks this
// between packages and during its interruptible sleeps, never mid-analysis.
func (d *Daemon) Stop() {
	d.stopping.Store(true)
}

func (d *Daemon) stopped() bool {
	return d.stopping.Load()
}

// QueueStats returns the WorkQueueStats from each ecosystem's most
// recent refresh, keyed by ecosystem. Surfaced by the monitor command.
func (d *Daemon) QueueStats() map[model.Ecosystem]queue.WorkQueueStats {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make(map[model.Ecosystem]queue.WorkQueueStats, len(d.lastStats))
	for eco, s := range d.lastStats {
		out[eco] = s
	}
	return out
}

// QueueState returns the live interleave position and backlog depth
// for each ecosystem's queue, without mutating it.
func (d *Daemon) QueueState() map[model.Ecosystem]queue.QueueState {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make(map[model.Ecosystem]queue.QueueState, len(d.queues))
	for eco, q := range d.queues {
		out[eco] = q.PeekQueueState()
	}
	return out
}

// Run drives the continuous loop until ctx is canceled or Stop is called.
func (d *Daemon) Run(ctx context.Context) error {
	defer d.finishBatch()
	// Runs before finishBatch: a cooperative shutdown forces one last
	// publish of whatever was analyzed since the last interval publish.
	defer func() {
		if d.Publisher == nil || !d.Publish.Enabled {
			return
		}
		if err := d.Publisher.Publish(context.Background()); err != nil && d.Logger != nil {
			d.Logger.Errorf("daemon: final publish failed: %v", err)
		}
	}()

	staleAfter := time.Duration(d.Queues.StaleThresholdDays) * 24 * time.Hour
	refreshInterval := d.Queues.RefreshInterval
	if refreshInterval <= 0 {
		refreshInterval = time.Hour
	}

	// Opportunistic refresh: forced on first start regardless of interval.
	d.refreshAll(ctx, staleAfter)
	lastRefresh := time.Now()

	errBackoff := d.newErrorBackoff()

	for {
		if d.stopped() || ctx.Err() != nil {
			return ctx.Err()
		}

		if time.Since(lastRefresh) >= refreshInterval {
			d.refreshAll(ctx, staleAfter)
			lastRefresh = time.Now()
		}

		if d.RepoHost != nil {
			rl := d.RepoHost.RateLimit()
			if d.Pipeline != nil && d.Pipeline.Metrics != nil {
				d.Pipeline.Metrics.UpdateGitHubRateLimit(rl.Remaining, rl.Limit, rl.Reset)
			}
			if rl.Exhausted(d.rateLimitThreshold()) {
				wait := time.Until(rl.Reset)
				if d.Logger != nil {
					d.Logger.Warnf("daemon: GitHub rate limit exhausted, sleeping %s until reset", wait)
				}
				if !d.interruptibleSleep(ctx, wait) {
					return ctx.Err()
				}
				continue
			}
		}

		ref, status, ok := d.nextWork()
		if !ok {
			if d.Pipeline != nil && d.Pipeline.Metrics != nil {
				d.Pipeline.Metrics.FinishBatch()
			}
			if !d.interruptibleSleep(ctx, d.idleSleep()) {
				return ctx.Err()
			}
			continue
		}

		if d.Logger != nil {
			d.Logger.Infof("daemon: analyzing %s (%s)", ref, status)
		}

		_, err := d.Pipeline.Analyze(ctx, ref)
		if err != nil {
			if d.Logger != nil {
				d.Logger.Errorf("daemon: %s: %v", ref, err)
			}
			wait := errBackoff.NextBackOff()
			if wait == backoff.Stop {
				wait = d.errorBackoffMax()
			}
			if !d.interruptibleSleep(ctx, wait) {
				return ctx.Err()
			}
			continue
		}
		errBackoff.Reset()

		d.mu.Lock()
		d.processedTotal++
		shouldPublish := d.Publisher != nil && d.Publish.Enabled && d.Publish.Interval > 0 && d.processedTotal%d.Publish.Interval == 0
		d.mu.Unlock()

		if shouldPublish {
			if err := d.Publisher.Publish(ctx); err != nil && d.Logger != nil {
				d.Logger.Errorf("daemon: publish failed: %v", err)
			}
		}
	}
}

// newErrorBackoff builds an exponential backoff sequence bounded by the
// configured base and cap, with no overall elapsed-time limit — the
// daemon runs forever, so NextBackOff must never itself expire.
func (d *Daemon) newErrorBackoff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = d.errorBackoffBase()
	b.MaxInterval = d.errorBackoffMax()
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}

func (d *Daemon) errorBackoffBase() time.Duration {
	if d.Config.ErrorBackoffBase > 0 {
		return d.Config.ErrorBackoffBase
	}
	return 5 * time.Second
}

func (d *Daemon) errorBackoffMax() time.Duration {
	if d.Config.ErrorBackoffMax > 0 {
		return d.Config.ErrorBackoffMax
	}
	return 300 * time.Second
}

func (d *Daemon) rateLimitThreshold() int {
	if d.GitHub.RateLimitThreshold > 0 {
		return d.GitHub.RateLimitThreshold
	}
	return 50
}

func (d *Daemon) idleSleep() time.Duration {
	if d.Config.IdleSleep > 0 {
		return d.Config.IdleSleep
	}
	return 60 * time.Second
}

// interruptibleSleep sleeps in sleepPollInterval increments so Stop/ctx
// cancellation is observed within ~10s rather than blocking for the full
// duration. Returns false if interrupted.
func (d *Daemon) interruptibleSleep(ctx context.Context, total time.Duration) bool {
	deadline := time.Now().Add(total)
	for {
		if d.stopped() || ctx.Err() != nil {
			return false
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return true
		}
		step := sleepPollInterval
		if remaining < step {
			step = remaining
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(step):
		}
	}
}

// finishBatch clears is_running on the dashboard once Run returns,
// regardless of whether it exited via Stop or context cancellation — a
// cooperative shutdown always leaves the dashboard
// showing the daemon is no longer active.
func (d *Daemon) finishBatch() {
	if d.Pipeline != nil && d.Pipeline.Metrics != nil {
		d.Pipeline.Metrics.FinishBatch()
	}
}

func (d *Daemon) refreshAll(ctx context.Context, staleAfter time.Duration) {
	var names []string
	total := 0
	for _, eco := range d.ecosystems {
		stats, err := d.queues[eco].Refresh(ctx, d.Adapters[eco], d.Store, staleAfter, 0)
		if err != nil {
			if d.Logger != nil {
				d.Logger.Errorf("daemon: refreshing %s queue: %v", eco, err)
			}
			continue
		}
		d.mu.Lock()
		d.lastStats[eco] = stats
		d.mu.Unlock()
		names = append(names, string(eco))
		total += d.queues[eco].Len()
	}
	sort.Strings(names)
	if d.Pipeline != nil && d.Pipeline.Metrics != nil {
		d.Pipeline.Metrics.StartBatch(model.Ecosystem(strings.Join(names, "+")), total)
	}
}

// nextWork round-robins across ecosystems, pulling from whichever one's
// turn it is; an empty queue is skipped in favor of the next ecosystem
// rather than stalling the whole daemon on one exhausted list.
func (d *Daemon) nextWork() (model.PackageRef, queue.Status, bool) {
	if len(d.ecosystems) == 0 {
		return model.PackageRef{}, "", false
	}
	for i := 0; i < len(d.ecosystems); i++ {
		eco := d.ecosystems[d.ecoIdx]
		d.ecoIdx = (d.ecoIdx + 1) % len(d.ecosystems)
		if ref, status, ok := d.queues[eco].Next(); ok {
			return ref, status, true
		}
	}
	return model.PackageRef{}, "", false
}
