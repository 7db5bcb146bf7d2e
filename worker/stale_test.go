package worker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drewmudry/shootplan-api/analysis"
	"github.com/drewmudry/shootplan-api/models"
)

func TestFailStaleJobs(t *testing.T) {
	f := newFixture(t, func(ctx context.Context, text string) (*analysis.Result, error) {
		return breakdown(), nil
	})
	now := time.Now()

	stale, _ := f.queueJob(t, false)
	require.NoError(t, f.db.Model(stale).UpdateColumn("updated_at", now.Add(-time.Hour)).Error)
	fresh, _ := f.queueJob(t, false)
	done := models.AnalysisJob{ProjectID: f.project.ID, UserID: f.user.ID, Status: models.JobComplete}
	require.NoError(t, f.db.Create(&done).Error)
	require.NoError(t, f.db.Model(&done).UpdateColumn("updated_at", now.Add(-time.Hour)).Error)

	n, err := f.p.FailStaleJobs(context.Background(), now, StaleJobAge)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	var got models.AnalysisJob
	require.NoError(t, f.db.First(&got, "id = ?", stale.ID).Error)
	assert.Equal(t, models.JobFailed, got.Status)
	assert.Equal(t, string(analysis.KindTimeout), got.ErrorKind)
	assert.Equal(t, "Retry", got.PrimaryAction)

	require.NoError(t, f.db.First(&got, "id = ?", fresh.ID).Error)
	assert.Equal(t, models.JobQueued, got.Status)

	var project models.Project
	require.NoError(t, f.db.First(&project, f.project.ID).Error)
	assert.Equal(t, models.AnalysisFailed, project.AnalysisStatus)
}

func TestFailStaleJobs_SkipsJobTouchedSinceLookup(t *testing.T) {
	f := newFixture(t, func(ctx context.Context, text string) (*analysis.Result, error) {
		return breakdown(), nil
	})
	now := time.Now()
	cutoff := now.Add(-StaleJobAge)

	job, _ := f.queueJob(t, false)
	require.NoError(t, f.db.Model(job).UpdateColumn("updated_at", now.Add(-time.Hour)).Error)

	var loaded models.AnalysisJob
	require.NoError(t, f.db.First(&loaded, "id = ?", job.ID).Error)

	// A worker picks the job up after the sweep read it.
	require.NoError(t, f.db.Model(&loaded).UpdateColumns(map[string]interface{}{
		"status":     models.JobProcessing,
		"updated_at": now,
	}).Error)

	failed, err := f.p.failStaleJob(context.Background(), &loaded, cutoff)
	require.NoError(t, err)
	assert.False(t, failed)

	var got models.AnalysisJob
	require.NoError(t, f.db.First(&got, "id = ?", job.ID).Error)
	assert.Equal(t, models.JobProcessing, got.Status)
	assert.Empty(t, got.ErrorKind)
}
