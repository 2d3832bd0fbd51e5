// Package metrics collects the continuous-run dashboard snapshot: a
// mutex-guarded, file-backed record of run progress and cumulative
// history, alongside the live Prometheus counters pushed through
// observability.MetricsClient. The snapshot survives daemon restarts;
// only the run-scoped fields (total/completed/current package/
// start_time/is_running) reset on every StartBatch — result counters,
// grade distribution, stage timings, and the activity/error rings are
// cumulative across the process's lifetime.
package metrics

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pkgrisk/analyzer/internal/model"
	"github.com/pkgrisk/analyzer/pkg/observability"
)

const (
	activityRingSize = 50
	errorRingSize    = 10
)

// ActivityEntry is one completed-package record in the recent-activity
// ring, covering all three completion outcomes (scored, unavailable,
// error), mirroring the continuous-run dashboard's activity_log.
type ActivityEntry struct {
	Time    time.Time `json:"time"`
	Package string    `json:"package"`
	Status  string    `json:"status"` // scored, unavailable, error
	Score   *float64  `json:"score,omitempty"`
	Grade   string    `json:"grade,omitempty"`
	Message string    `json:"message,omitempty"`
}

// ErrorEntry is one failed-package record in the recent-error ring.
type ErrorEntry struct {
	Time    time.Time `json:"time"`
	Package string    `json:"package"`
	Stage   string    `json:"stage"`
	Message string    `json:"message"`
}

// Snapshot is the full dashboard state, serialized verbatim to
// <data_dir>/.metrics.json. Field names mirror the continuous-run
// dashboard's external JSON shape exactly.
type Snapshot struct {
	Ecosystem         string    `json:"ecosystem"`
	TotalPackages     int       `json:"total_packages"`
	CompletedPackages int       `json:"completed_packages"`
	CurrentPackage    string    `json:"current_package"`
	StartTime         time.Time `json:"start_time"`
	IsRunning         bool      `json:"is_running"`

	ScoredCount       int            `json:"scored_count"`
	UnavailableCount  int            `json:"unavailable_count"`
	ErrorCount        int            `json:"error_count"`
	GradeDistribution map[string]int `json:"grade_distribution"`
	TotalScore        float64        `json:"total_score"`

	GitHubRateLimitRemaining int       `json:"github_rate_limit_remaining"`
	GitHubRateLimitTotal     int       `json:"github_rate_limit_total"`
	GitHubRateLimitReset     time.Time `json:"github_rate_limit_reset"`

	LLMAvailable bool   `json:"llm_available"`
	LLMModel     string `json:"llm_model"`
	OSVStatus    string `json:"osv_status"`

	StageTimings map[string]float64 `json:"stage_timings"`
	StageCounts  map[string]int64   `json:"stage_counts"`

	RecentErrors []ErrorEntry    `json:"recent_errors"`
	ActivityLog  []ActivityEntry `json:"activity_log"`

	LastUpdated time.Time `json:"last_updated"`
}

// ProgressPercent is completed_packages/total_packages as a percentage,
// 0 when no batch has started.
func (s Snapshot) ProgressPercent() float64 {
	if s.TotalPackages == 0 {
		return 0
	}
	return (float64(s.CompletedPackages) / float64(s.TotalPackages)) * 100
}

// ElapsedSeconds is the time since start_time, 0 if no batch is running.
func (s Snapshot) ElapsedSeconds() float64 {
	if s.StartTime.IsZero() {
		return 0
	}
	return time.Since(s.StartTime).Seconds()
}

// ETASeconds estimates remaining time from the observed completion rate
// so far this run. The second return value is false when there isn't
// enough data yet (nothing completed, or no total to aim for).
func (s Snapshot) ETASeconds() (float64, bool) {
	if s.CompletedPackages == 0 || s.TotalPackages == 0 {
		return 0, false
	}
	elapsed := s.ElapsedSeconds()
	if elapsed <= 0 {
		return 0, false
	}
	rate := float64(s.CompletedPackages) / elapsed
	if rate <= 0 {
		return 0, false
	}
	remaining := s.TotalPackages - s.CompletedPackages
	return float64(remaining) / rate, true
}

// AverageScore is total_score/scored_count. The second return value is
// false when nothing has been scored yet.
func (s Snapshot) AverageScore() (float64, bool) {
	if s.ScoredCount == 0 {
		return 0, false
	}
	return s.TotalScore / float64(s.ScoredCount), true
}

// Collector owns the dashboard snapshot and the live metrics sink.
type Collector struct {
	mu       sync.Mutex
	path     string
	snapshot Snapshot
	metrics  observability.MetricsClient
	logger   observability.Logger
}

// NewCollector loads an existing snapshot from path if present,
// seeding a fresh one otherwise. metrics may be nil (no live export).
func NewCollector(path string, metrics observability.MetricsClient, logger observability.Logger) (*Collector, error) {
	c := &Collector{
		path:    path,
		metrics: metrics,
		logger:  logger,
		snapshot: Snapshot{
			GradeDistribution: map[string]int{},
			StageTimings:      map[string]float64{},
			StageCounts:       map[string]int64{},
		},
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return c, nil
		}
		return nil, fmt.Errorf("metrics: reading snapshot %s: %w", path, err)
	}
	var loaded Snapshot
	if err := json.Unmarshal(raw, &loaded); err != nil {
		return nil, fmt.Errorf("metrics: decoding snapshot %s: %w", path, err)
	}
	if loaded.GradeDistribution == nil {
		loaded.GradeDistribution = map[string]int{}
	}
	if loaded.StageTimings == nil {
		loaded.StageTimings = map[string]float64{}
	}
	if loaded.StageCounts == nil {
		loaded.StageCounts = map[string]int64{}
	}
	c.snapshot = loaded
	return c, nil
}

// StartBatch resets the run-scoped fields for a new analysis run while
// preserving every cumulative counter, ring buffer, and status field
// carried over from a prior run or a restart.
func (c *Collector) StartBatch(ecosystem model.Ecosystem, total int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snapshot.Ecosystem = string(ecosystem)
	c.snapshot.TotalPackages = total
	c.snapshot.CompletedPackages = 0
	c.snapshot.CurrentPackage = ""
	c.snapshot.StartTime = time.Now()
	c.snapshot.IsRunning = true
	c.save()
	if c.metrics != nil {
		c.metrics.RecordGauge("pkgrisk_batch_total", float64(total), map[string]string{"ecosystem": string(ecosystem)})
	}
}

// FinishBatch marks the run as idle. Called from the daemon's
// cooperative-shutdown path and when a queue drains with nothing left
// to pull.
func (c *Collector) FinishBatch() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snapshot.IsRunning = false
	c.snapshot.CurrentPackage = ""
	c.save()
}

// SetCurrentPackage records which package the pipeline is actively
// processing, for the dashboard's "in progress" display.
func (c *Collector) SetCurrentPackage(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snapshot.CurrentPackage = name
	c.save()
}

// RecordStageTiming folds one stage duration into its running average
// using avg_{n+1} = (avg_n*n + duration) / (n+1), and forwards it to
// the live metrics sink as a histogram. Deliberately not saved to disk
// on every call — stage timings fire far more often than completions,
// and the in-memory value is read back via Snapshot regardless.
func (c *Collector) RecordStageTiming(stage string, d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := c.snapshot.StageCounts[stage]
	avg := c.snapshot.StageTimings[stage]
	ms := float64(d.Milliseconds())
	c.snapshot.StageTimings[stage] = (avg*float64(n) + ms) / float64(n+1)
	c.snapshot.StageCounts[stage] = n + 1
	if c.metrics != nil {
		c.metrics.RecordHistogram("pkgrisk_stage_duration_seconds", d.Seconds(), map[string]string{"stage": stage})
	}
}

// RecordScored records a completed, scored package.
func (c *Collector) RecordScored(ref model.PackageRef, scores model.Scores) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snapshot.ScoredCount++
	c.snapshot.TotalScore += scores.Overall
	c.snapshot.GradeDistribution[string(scores.Grade)]++
	c.completePackage(ActivityEntry{
		Time:    time.Now(),
		Package: ref.String(),
		Status:  "scored",
		Score:   &scores.Overall,
		Grade:   string(scores.Grade),
	})
	c.save()
	if c.metrics != nil {
		c.metrics.IncrementCounterWithLabels("pkgrisk_packages_scored_total", 1, map[string]string{"ecosystem": string(ref.Ecosystem), "grade": string(scores.Grade)})
		c.metrics.RecordGauge("pkgrisk_last_score", scores.Overall, map[string]string{"ecosystem": string(ref.Ecosystem), "package": ref.Name})
	}
}

// RecordUnavailable records a package that could not be scored because
// its availability classification disqualified it.
func (c *Collector) RecordUnavailable(ref model.PackageRef, reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snapshot.UnavailableCount++
	c.completePackage(ActivityEntry{
		Time:    time.Now(),
		Package: ref.String(),
		Status:  "unavailable",
		Message: reason,
	})
	c.save()
	if c.metrics != nil {
		c.metrics.IncrementCounterWithLabels("pkgrisk_packages_unavailable_total", 1, map[string]string{"ecosystem": string(ref.Ecosystem), "reason": reason})
	}
}

// RecordError records a pipeline-stage failure for package ref. This
// both pushes to the separate recent-errors ring and completes the
// package in the activity log, matching the upstream dashboard's
// record_error plus complete_package(status="error") pairing.
func (c *Collector) RecordError(ref model.PackageRef, stage string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snapshot.ErrorCount++
	c.pushError(ErrorEntry{Time: time.Now(), Package: ref.String(), Stage: stage, Message: err.Error()})
	c.completePackage(ActivityEntry{
		Time:    time.Now(),
		Package: ref.String(),
		Status:  "error",
		Message: fmt.Sprintf("%s: %v", stage, err),
	})
	c.save()
	if c.metrics != nil {
		c.metrics.IncrementCounterWithLabels("pkgrisk_errors_total", 1, map[string]string{"ecosystem": string(ref.Ecosystem), "stage": stage})
	}
	if c.logger != nil {
		c.logger.Warnf("pipeline: %s: %s stage failed: %v", ref, stage, err)
	}
}

// UpdateGitHubRateLimit records the repo-host fetcher's most recently
// observed rate-limit state so the dashboard surfaces it without a
// reader needing direct access to the GitHub client.
func (c *Collector) UpdateGitHubRateLimit(remaining, total int, reset time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snapshot.GitHubRateLimitRemaining = remaining
	c.snapshot.GitHubRateLimitTotal = total
	c.snapshot.GitHubRateLimitReset = reset
	c.save()
}

// UpdateLLMStatus records whether the configured LLM endpoint is
// currently reachable.
func (c *Collector) UpdateLLMStatus(available bool, model string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snapshot.LLMAvailable = available
	c.snapshot.LLMModel = model
	c.save()
}

// UpdateOSVStatus records the vulnerability fetcher's last observed
// reachability of the OSV aggregator ("ok", "degraded", "unknown").
func (c *Collector) UpdateOSVStatus(status string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snapshot.OSVStatus = status
	c.save()
}

// Snapshot returns a copy of the current dashboard state.
func (c *Collector) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot
}

// completePackage increments completed_packages, clears the in-flight
// current package, and appends one activity-log entry. Caller must
// hold c.mu.
func (c *Collector) completePackage(e ActivityEntry) {
	c.snapshot.CompletedPackages++
	c.snapshot.CurrentPackage = ""
	c.pushActivity(e)
}

func (c *Collector) pushActivity(e ActivityEntry) {
	c.snapshot.ActivityLog = append(c.snapshot.ActivityLog, e)
	if len(c.snapshot.ActivityLog) > activityRingSize {
		c.snapshot.ActivityLog = c.snapshot.ActivityLog[len(c.snapshot.ActivityLog)-activityRingSize:]
	}
}

func (c *Collector) pushError(e ErrorEntry) {
	c.snapshot.RecentErrors = append(c.snapshot.RecentErrors, e)
	if len(c.snapshot.RecentErrors) > errorRingSize {
		c.snapshot.RecentErrors = c.snapshot.RecentErrors[len(c.snapshot.RecentErrors)-errorRingSize:]
	}
}

// save writes the snapshot atomically; the caller must hold c.mu.
// Write failures are logged, not propagated — the in-memory snapshot
// stays authoritative for the running process regardless.
func (c *Collector) save() {
	if c.path == "" {
		return
	}
	c.snapshot.LastUpdated = time.Now()
	raw, err := json.MarshalIndent(c.snapshot, "", "  ")
	if err != nil {
		if c.logger != nil {
			c.logger.Errorf("metrics: marshaling snapshot: %v", err)
		}
		return
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		if c.logger != nil {
			c.logger.Errorf("metrics: creating snapshot directory: %v", err)
		}
		return
	}
	tmp := c.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		if c.logger != nil {
			c.logger.Errorf("metrics: writing snapshot: %v", err)
		}
		return
	}
	if err := os.Rename(tmp, c.path); err != nil {
		if c.logger != nil {
			c.logger.Errorf("metrics: finalizing snapshot: %v", err)
		}
	}
}
