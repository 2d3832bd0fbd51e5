package queue

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/pkgrisk/analyzer/internal/model"
)

func TestClassify(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, StatusNew, Classify(time.Time{}, 24*time.Hour, now))
	assert.Equal(t, StatusStale, Classify(now.Add(-48*time.Hour), 24*time.Hour, now))
	assert.Equal(t, StatusUpToDate, Classify(now.Add(-time.Hour), 24*time.Hour, now))
}

func newTestQueue(newCount, staleCount, newRatio, staleRatio int) *Queue {
	q := New(model.EcosystemNPM, newRatio, staleRatio)
	for i := 0; i < newCount; i++ {
		q.newItems = append(q.newItems, model.PackageRef{Ecosystem: model.EcosystemNPM, Name: "new"})
	}
	for i := 0; i < staleCount; i++ {
		q.staleItems = append(q.staleItems, model.PackageRef{Ecosystem: model.EcosystemNPM, Name: "stale"})
	}
	return q
}

func TestNext_InterleavesAtConfiguredRatio(t *testing.T) {
	q := newTestQueue(4, 4, 2, 1)

	var order []Status
	for i := 0; i < 6; i++ {
		_, status, ok := q.Next()
		assert.True(t, ok)
		order = append(order, status)
	}
	assert.Equal(t, []Status{StatusNew, StatusNew, StatusStale, StatusNew, StatusNew, StatusStale}, order)
}

func TestNext_FallsThroughWhenPreferredWorklistExhausted(t *testing.T) {
	q := newTestQueue(0, 2, 1, 1)

	ref, status, ok := q.Next()
	assert.True(t, ok)
	assert.Equal(t, StatusStale, status)
	assert.Equal(t, "stale", ref.Name)
}

func TestNext_ReturnsFalseWhenDrained(t *testing.T) {
	q := newTestQueue(0, 0, 1, 1)
	_, _, ok := q.Next()
	assert.False(t, ok)
}

func TestLenAndPeekQueueState(t *testing.T) {
	q := newTestQueue(3, 2, 1, 1)
	assert.Equal(t, 5, q.Len())

	_, _, _ = q.Next()

	state := q.PeekQueueState()
	assert.Equal(t, 5, state.TotalKnownPackages)
	assert.Equal(t, 4, q.Len())
	assert.Equal(t, 1, state.CyclePosition)
}
