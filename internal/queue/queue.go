// Package queue classifies and orders the packages a continuous run
// works through: new packages never analyzed, and stale packages whose
// last analysis is older than the configured threshold. The two queues
// are drained at a configurable interleave ratio so a long backlog of
// new packages never starves re-checks of already-analyzed ones.
package queue

import (
	"context"
	"sort"
	"time"

	"github.com/pkgrisk/analyzer/internal/adapters"
	"github.com/pkgrisk/analyzer/internal/model"
	"github.com/pkgrisk/analyzer/internal/storage"
)

// Status classifies a package relative to its last analysis.
type Status string

const (
	StatusNew       Status = "new"
	StatusStale     Status = "stale"
	StatusUpToDate  Status = "up_to_date"
)

// Classify compares a package's last-analyzed timestamp against the
// staleness threshold.
func Classify(analyzedAt time.Time, staleAfter time.Duration, now time.Time) Status {
	if analyzedAt.IsZero() {
		return StatusNew
	}
	if now.Sub(analyzedAt) >= staleAfter {
		return StatusStale
	}
	return StatusUpToDate
}

// Queue holds the ordered new/stale worklists for one ecosystem and
// interleaves them at a fixed ratio as the daemon pulls work.
type Queue struct {
	Ecosystem  model.Ecosystem
	newRatio   int
	staleRatio int

	newItems   []model.PackageRef
	staleItems []model.PackageRef

	newIdx, staleIdx int
	cyclePos         int
}

// New builds an empty queue for ecosystem with the given interleave
// ratio (newRatio new packages pulled per staleRatio stale packages).
func New(ecosystem model.Ecosystem, newRatio, staleRatio int) *Queue {
	if newRatio <= 0 {
		newRatio = 1
	}
	if staleRatio <= 0 {
		staleRatio = 1
	}
	return &Queue{Ecosystem: ecosystem, newRatio: newRatio, staleRatio: staleRatio}
}

// Refresh rebuilds the new/stale worklists from the adapter's current
// package listing and the store's persisted analysis timestamps.
// New packages keep the adapter's discovery order; stale packages sort
// oldest-analyzed-first. The cycle position resets so a refresh always
// starts a fresh interleave cycle. The returned WorkQueueStats
// summarizes what the refresh found, for callers (the daemon, the
// monitor command) that surface queue introspection.
func (q *Queue) Refresh(ctx context.Context, adapter adapters.Adapter, store *storage.Store, staleAfter time.Duration, limit int) (WorkQueueStats, error) {
	names, err := adapter.ListPackages(ctx, limit)
	if err != nil {
		return WorkQueueStats{}, err
	}

	now := time.Now()
	var newItems, staleItems []model.PackageRef
	var staleTimes []time.Time
	var upToDate int

	for _, name := range names {
		ref := model.PackageRef{Ecosystem: q.Ecosystem, Name: name}
		analyzedAt := store.AnalyzedAt(ref)
		switch Classify(analyzedAt, staleAfter, now) {
		case StatusNew:
			newItems = append(newItems, ref)
		case StatusStale:
			staleItems = append(staleItems, ref)
			staleTimes = append(staleTimes, analyzedAt)
		default:
			upToDate++
		}
	}

	order := make([]int, len(staleItems))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return staleTimes[order[a]].Before(staleTimes[order[b]]) })
	sortedStale := make([]model.PackageRef, len(order))
	for i, k := range order {
		sortedStale[i] = staleItems[k]
	}
	staleItems = sortedStale

	q.newItems = newItems
	q.staleItems = staleItems
	q.newIdx = 0
	q.staleIdx = 0
	q.cyclePos = 0

	stats := WorkQueueStats{
		NewPackages:   len(newItems),
		StalePackages: len(staleItems),
		UpToDate:      upToDate,
		Ecosystems:    map[string]int{string(q.Ecosystem): len(names)},
	}
	stats.TotalAnalyzed = stats.UpToDate + stats.StalePackages
	return stats, nil
}

// Len reports the total remaining work across both worklists.
func (q *Queue) Len() int {
	return (len(q.newItems) - q.newIdx) + (len(q.staleItems) - q.staleIdx)
}

// WorkQueueStats summarizes the outcome of the most recent Refresh:
// how many packages were found new, stale, already up to date, and the
// per-ecosystem package counts behind those totals.
type WorkQueueStats struct {
	NewPackages   int            `json:"new_packages"`
	StalePackages int            `json:"stale_packages"`
	UpToDate      int            `json:"up_to_date"`
	TotalAnalyzed int            `json:"total_analyzed"`
	Ecosystems    map[string]int `json:"ecosystems"`
}

// QueueState is the live interleave position and backlog depth,
// surfaced by the monitor command for operators watching a running
// daemon rather than reading a point-in-time refresh summary.
type QueueState struct {
	NewRemaining      int `json:"new_remaining"`
	StaleRemaining    int `json:"stale_remaining"`
	CyclePosition     int `json:"cycle_position"`
	TotalKnownPackages int `json:"total_known_packages"`
}

// PeekQueueState reports the queue's current interleave position and
// backlog without mutating it.
func (q *Queue) PeekQueueState() QueueState {
	return QueueState{
		NewRemaining:        len(q.newItems) - q.newIdx,
		StaleRemaining:      len(q.staleItems) - q.staleIdx,
		CyclePosition:       q.cyclePos,
		TotalKnownPackages:  len(q.newItems) + len(q.staleItems),
	}
}

// Next pops the next package per the interleave ratio: newRatio
// consecutive pulls from the new worklist, then staleRatio from the
// stale worklist, repeating. When the worklist whose turn it is has
// been exhausted, Next falls through to whichever worklist still has
// work rather than stalling.
func (q *Queue) Next() (model.PackageRef, Status, bool) {
	cycleLen := q.newRatio + q.staleRatio
	for attempts := 0; attempts < cycleLen; attempts++ {
		wantNew := q.cyclePos < q.newRatio
		q.cyclePos = (q.cyclePos + 1) % cycleLen

		if wantNew {
			if ref, ok := q.popNew(); ok {
				return ref, StatusNew, true
			}
		} else {
			if ref, ok := q.popStale(); ok {
				return ref, StatusStale, true
			}
		}
	}

	// Both preferred picks this round were exhausted; drain whatever
	// remains.
	if ref, ok := q.popNew(); ok {
		return ref, StatusNew, true
	}
	if ref, ok := q.popStale(); ok {
		return ref, StatusStale, true
	}
	return model.PackageRef{}, "", false
}

func (q *Queue) popNew() (model.PackageRef, bool) {
	if q.newIdx >= len(q.newItems) {
		return model.PackageRef{}, false
	}
	ref := q.newItems[q.newIdx]
	q.newIdx++
	return ref, true
}

func (q *Queue) popStale() (model.PackageRef, bool) {
	if q.staleIdx >= len(q.staleItems) {
		return model.PackageRef{}, false
	}
	ref := q.staleItems[q.staleIdx]
	q.staleIdx++
	return ref, true
}
