package metrics

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkgrisk/analyzer/internal/model"
)

func newTestCollector(t *testing.T) *Collector {
	t.Helper()
	path := filepath.Join(t.TempDir(), ".metrics.json")
	c, err := NewCollector(path, nil, nil)
	require.NoError(t, err)
	return c
}

func TestStartBatch_ResetsRunScopedFields(t *testing.T) {
	c := newTestCollector(t)
	c.RecordScored(model.PackageRef{Ecosystem: model.EcosystemNPM, Name: "a"}, model.Scores{Overall: 90, Grade: model.GradeA})

	c.StartBatch(model.EcosystemNPM, 10)
	snap := c.Snapshot()
	assert.Equal(t, 10, snap.TotalPackages)
	assert.Zero(t, snap.CompletedPackages)
	assert.True(t, snap.IsRunning)
	// cumulative counters survive the reset
	assert.Equal(t, 1, snap.ScoredCount)
}

func TestFinishBatch_MarksIdle(t *testing.T) {
	c := newTestCollector(t)
	c.StartBatch(model.EcosystemNPM, 5)
	c.FinishBatch()
	snap := c.Snapshot()
	assert.False(t, snap.IsRunning)
	assert.Empty(t, snap.CurrentPackage)
}

func TestRecordScored_UpdatesTotalsAndGradeDistribution(t *testing.T) {
	c := newTestCollector(t)
	c.RecordScored(model.PackageRef{Ecosystem: model.EcosystemNPM, Name: "left-pad"}, model.Scores{Overall: 80, Grade: model.GradeB})
	c.RecordScored(model.PackageRef{Ecosystem: model.EcosystemNPM, Name: "chalk"}, model.Scores{Overall: 90, Grade: model.GradeA})

	snap := c.Snapshot()
	assert.Equal(t, 2, snap.ScoredCount)
	assert.Equal(t, 2, snap.CompletedPackages)
	assert.Equal(t, 170.0, snap.TotalScore)
	assert.Equal(t, 1, snap.GradeDistribution["A"])
	assert.Equal(t, 1, snap.GradeDistribution["B"])

	avg, ok := snap.AverageScore()
	assert.True(t, ok)
	assert.Equal(t, 85.0, avg)
}

func TestRecordUnavailable(t *testing.T) {
	c := newTestCollector(t)
	c.RecordUnavailable(model.PackageRef{Ecosystem: model.EcosystemNPM, Name: "x"}, "archived")
	snap := c.Snapshot()
	assert.Equal(t, 1, snap.UnavailableCount)
	assert.Equal(t, 1, snap.CompletedPackages)
	require.Len(t, snap.ActivityLog, 1)
	assert.Equal(t, "unavailable", snap.ActivityLog[0].Status)
}

func TestRecordError_PushesBothRings(t *testing.T) {
	c := newTestCollector(t)
	c.RecordError(model.PackageRef{Ecosystem: model.EcosystemNPM, Name: "x"}, "vuln", errors.New("boom"))
	snap := c.Snapshot()
	assert.Equal(t, 1, snap.ErrorCount)
	require.Len(t, snap.RecentErrors, 1)
	assert.Equal(t, "vuln", snap.RecentErrors[0].Stage)
	require.Len(t, snap.ActivityLog, 1)
	assert.Equal(t, "error", snap.ActivityLog[0].Status)
}

func TestActivityRing_CapsAtConfiguredSize(t *testing.T) {
	c := newTestCollector(t)
	for i := 0; i < activityRingSize+5; i++ {
		c.RecordUnavailable(model.PackageRef{Ecosystem: model.EcosystemNPM, Name: "x"}, "reason")
	}
	snap := c.Snapshot()
	assert.Len(t, snap.ActivityLog, activityRingSize)
}

func TestErrorRing_CapsAtConfiguredSize(t *testing.T) {
	c := newTestCollector(t)
	for i := 0; i < errorRingSize+3; i++ {
		c.RecordError(model.PackageRef{Ecosystem: model.EcosystemNPM, Name: "x"}, "stage", errors.New("e"))
	}
	snap := c.Snapshot()
	assert.Len(t, snap.RecentErrors, errorRingSize)
}

func TestSnapshot_ProgressAndETA(t *testing.T) {
	s := Snapshot{}
	assert.Zero(t, s.ProgressPercent())
	_, ok := s.ETASeconds()
	assert.False(t, ok)

	s.TotalPackages = 10
	s.CompletedPackages = 5
	assert.Equal(t, 50.0, s.ProgressPercent())
}

func TestCollector_PersistsAndReloadsSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", ".metrics.json")
	c1, err := NewCollector(path, nil, nil)
	require.NoError(t, err)
	c1.RecordScored(model.PackageRef{Ecosystem: model.EcosystemNPM, Name: "left-pad"}, model.Scores{Overall: 70, Grade: model.GradeC})

	c2, err := NewCollector(path, nil, nil)
	require.NoError(t, err)
	snap := c2.Snapshot()
	assert.Equal(t, 1, snap.ScoredCount)
	assert.Equal(t, 70.0, snap.TotalScore)
}
