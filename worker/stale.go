package worker

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/drewmudry/shootplan-api/analysis"
	"github.com/drewmudry/shootplan-api/models"
)

// StaleJobAge is how long a queued or running job may go without an update
// before it is considered lost. It is well above two timed-out attempts.
const StaleJobAge = 10 * time.Minute

var unfinishedJobs = []string{models.JobQueued, models.JobProcessing}

// FailStaleJobs marks unfinished jobs not updated since before now-maxAge as
// failed with a timeout, so their projects can be analyzed again. It returns
// how many jobs it failed.
func (p *Processor) FailStaleJobs(ctx context.Context, now time.Time, maxAge time.Duration) (int, error) {
	cutoff := now.Add(-maxAge)
	var jobs []models.AnalysisJob
	if err := p.DB.WithContext(ctx).
		Where("status IN ? AND updated_at < ?", unfinishedJobs, cutoff).
		Find(&jobs).Error; err != nil {
		return 0, errors.Wrap(err, "find stale analysis jobs")
	}

	failed := 0
	for i := range jobs {
		ok, err := p.failStaleJob(ctx, &jobs[i], cutoff)
		if err != nil {
			p.Logger.Error("failed to fail stale analysis job", zap.String("job_id", jobs[i].ID.String()), zap.Error(err))
			continue
		}
		if ok {
			failed++
		}
	}
	return failed, nil
}

// failStaleJob fails job only if it is still unfinished and untouched since
// cutoff, so a worker that reported progress in the meantime keeps its job.
func (p *Processor) failStaleJob(ctx context.Context, job *models.AnalysisJob, cutoff time.Time) (bool, error) {
	ae := analysis.NewError(analysis.KindTimeout, "the analysis stopped responding", nil)
	finished := time.Now()

	res := p.DB.WithContext(ctx).Model(&models.AnalysisJob{}).
		Where("id = ? AND status IN ? AND updated_at < ?", job.ID, unfinishedJobs, cutoff).
		Updates(map[string]interface{}{
			"status":           models.JobFailed,
			"error_kind":       string(ae.Kind),
			"error_message":    ae.Message,
			"suggestion":       ae.Suggestion,
			"primary_action":   ae.PrimaryAction,
			"secondary_action": ae.SecondaryAction,
			"finished_at":      finished,
		})
	if res.Error != nil {
		return false, errors.Wrapf(res.Error, "fail stale analysis job %s", job.ID)
	}
	if res.RowsAffected == 0 {
		return false, nil
	}

	p.Logger.Warn("failed stale analysis job", zap.String("job_id", job.ID.String()), zap.Time("updated_at", job.UpdatedAt))
	job.Status = models.JobFailed
	job.ErrorKind = string(ae.Kind)
	job.FinishedAt = &finished
	if err := p.DB.WithContext(ctx).Model(&models.Project{}).
		Where("id = ?", job.ProjectID).
		Update("analysis_status", models.AnalysisFailed).Error; err != nil {
		p.Logger.Warn("failed to mark project analysis as failed", zap.Uint("project_id", job.ProjectID), zap.Error(err))
	}
	p.publish(ctx, job, ae.Message)
	return true, nil
}
