package worker

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/drewmudry/shootplan-api/analysis"
	"github.com/drewmudry/shootplan-api/models"
	"github.com/drewmudry/shootplan-api/planning"
	"github.com/drewmudry/shootplan-api/tasks"
)

// HandleScriptAnalysis processes tasks from QueueScriptAnalysis. The job row
// records progress and the final outcome; a successful breakdown replaces the
// project's sequences, characters and locations in one transaction and
// chains complexity scoring.
func (p *Processor) HandleScriptAnalysis(ctx context.Context, payload string) error {
	var task tasks.ScriptAnalysisPayload
	if err := json.Unmarshal([]byte(payload), &task); err != nil {
		return errors.Wrap(err, "decode analysis task")
	}
	jobID, err := uuid.Parse(task.JobID)
	if err != nil {
		return errors.Wrap(err, "parse job id")
	}

	log := p.Logger.With(zap.String("job_id", task.JobID), zap.Uint("project_id", task.ProjectID))

	var job models.AnalysisJob
	if err := p.DB.WithContext(ctx).First(&job, "id = ?", jobID).Error; err != nil {
		return errors.Wrap(err, "load analysis job")
	}
	if job.IsFinished() {
		log.Info("analysis job already finished, skipping", zap.String("status", job.Status))
		return nil
	}

	var project models.Project
	if err := p.DB.WithContext(ctx).First(&project, job.ProjectID).Error; err != nil {
		return p.failJob(ctx, &job, analysis.NewError(analysis.KindValidation, "project no longer exists", err))
	}

	now := time.Now()
	job.Status = models.JobProcessing
	job.StartedAt = &now
	job.Attempt = 1
	p.saveJob(ctx, &job)
	p.DB.WithContext(ctx).Model(&project).Update("analysis_status", models.AnalysisProcessing)
	p.publish(ctx, &job, "")

	onProgress := func(message string, attempt int) {
		job.Progress = message
		job.Attempt = attempt
		p.saveJob(ctx, &job)
		p.publish(ctx, &job, message)
	}

	var result *analysis.Result
	if job.Truncate {
		result, err = p.Analyzer.AnalyzeTruncated(ctx, project.ScriptText, onProgress)
	} else {
		result, err = p.Analyzer.Analyze(ctx, project.ScriptText, onProgress)
	}
	if err != nil {
		return p.failJob(ctx, &job, err)
	}

	var sequenceCount int
	err = p.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		n, err := ingest(tx, &project, result)
		if err != nil {
			return err
		}
		sequenceCount = n
		return models.ChargeAnalysis(tx, job.UserID)
	})
	if err != nil {
		return p.failJob(ctx, &job, analysis.NewError(analysis.KindAPI, "could not save the analysis", err))
	}

	finished := time.Now()
	job.Status = models.JobComplete
	job.Progress = "Analysis complete"
	job.FinishedAt = &finished
	p.saveJob(ctx, &job)
	p.publish(ctx, &job, "Analysis complete")
	log.Info("script analysis stored", zap.Int("sequences", sequenceCount))

	if err := p.Enqueue(ctx, tasks.QueueComplexityScoring, tasks.ComplexityScoringPayload{ProjectID: project.ID}); err != nil {
		return errors.Wrap(err, "queue complexity scoring")
	}
	return nil
}

// HandleComplexityScoring processes tasks from QueueComplexityScoring.
func (p *Processor) HandleComplexityScoring(ctx context.Context, payload string) error {
	var task tasks.ComplexityScoringPayload
	if err := json.Unmarshal([]byte(payload), &task); err != nil {
		return errors.Wrap(err, "decode scoring task")
	}

	q := p.DB.WithContext(ctx).Where("project_id = ?", task.ProjectID)
	if len(task.SequenceIDs) > 0 {
		q = q.Where("id IN ?", task.SequenceIDs)
	}
	var sequences []models.Sequence
	if err := q.Find(&sequences).Error; err != nil {
		return errors.Wrap(err, "load sequences")
	}

	return p.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range sequences {
			seq := &sequences[i]
			seq.Rescore()
			if err := tx.Model(seq).Updates(map[string]interface{}{
				"complexity_score":    seq.ComplexityScore,
				"complexity_category": seq.ComplexityCategory,
			}).Error; err != nil {
				return errors.Wrapf(err, "score sequence %d", seq.ID)
			}
		}
		p.Logger.Info("sequences scored", zap.Uint("project_id", task.ProjectID), zap.Int("count", len(sequences)))
		return nil
	})
}

func (p *Processor) failJob(ctx context.Context, job *models.AnalysisJob, err error) error {
	ae, ok := analysis.AsError(err)
	if !ok {
		ae = analysis.NewError(analysis.KindOf(err), err.Error(), err)
	}
	finished := time.Now()
	job.Status = models.JobFailed
	job.ErrorKind = string(ae.Kind)
	job.ErrorMessage = ae.Message
	job.Suggestion = ae.Suggestion
	job.PrimaryAction = ae.PrimaryAction
	job.SecondaryAction = ae.SecondaryAction
	job.FinishedAt = &finished
	p.saveJob(ctx, job)
	if dbErr := p.DB.WithContext(ctx).Model(&models.Project{}).
		Where("id = ?", job.ProjectID).
		Update("analysis_status", models.AnalysisFailed).Error; dbErr != nil {
		p.Logger.Warn("failed to mark project analysis as failed", zap.Error(dbErr))
	}
	p.publish(ctx, job, ae.Message)
	return errors.Wrapf(err, "analysis job %s", job.ID)
}

func (p *Processor) saveJob(ctx context.Context, job *models.AnalysisJob) {
	if err := p.DB.WithContext(ctx).Save(job).Error; err != nil {
		p.Logger.Warn("failed to update analysis job", zap.String("job_id", job.ID.String()), zap.Error(err))
	}
}

func (p *Processor) publish(ctx context.Context, job *models.AnalysisJob, message string) {
	event := tasks.AnalysisEvent{
		JobID:     job.ID.String(),
		ProjectID: job.ProjectID,
		UserID:    job.UserID,
		Status:    job.Status,
		Attempt:   job.Attempt,
		Message:   message,
		ErrorKind: job.ErrorKind,
	}
	if err := tasks.Publish(ctx, p.RDB, event); err != nil {
		p.Logger.Warn("failed to publish analysis event", zap.Error(err))
	}
}

// ingest replaces the breakdown of project with result and returns the
// number of sequences stored.
func ingest(tx *gorm.DB, project *models.Project, result *analysis.Result) (int, error) {
	if err := tx.Exec("DELETE FROM sequence_characters WHERE sequence_id IN (SELECT id FROM sequences WHERE project_id = ?)", project.ID).Error; err != nil {
		return 0, errors.Wrap(err, "clear sequence characters")
	}
	for _, m := range []interface{}{&models.Sequence{}, &models.Character{}, &models.Location{}} {
		if err := tx.Where("project_id = ?", project.ID).Delete(m).Error; err != nil {
			return 0, errors.Wrap(err, "clear previous breakdown")
		}
	}

	locations := make(map[string]uint)
	for _, l := range result.Locations {
		key := nameKey(l.Name)
		if key == "" {
			continue
		}
		if _, dup := locations[key]; dup {
			continue
		}
		row := models.Location{ProjectID: project.ID, Name: strings.TrimSpace(l.Name), Description: l.Description, Type: strings.ToUpper(l.Type)}
		if err := tx.Create(&row).Error; err != nil {
			return 0, errors.Wrap(err, "create location")
		}
		locations[key] = row.ID
	}

	characters := make(map[string]models.Character)
	for _, c := range result.Characters {
		key := nameKey(c.Name)
		if key == "" {
			continue
		}
		if _, dup := characters[key]; dup {
			continue
		}
		row := models.Character{ProjectID: project.ID, Name: strings.TrimSpace(c.Name), Description: c.Description, Category: c.Category}
		if err := tx.Create(&row).Error; err != nil {
			return 0, errors.Wrap(err, "create character")
		}
		characters[key] = row
	}

	for i, s := range result.Sequences {
		seq := models.Sequence{
			ProjectID:   project.ID,
			Number:      s.Number,
			Title:       strings.TrimSpace(s.Heading),
			Description: s.Description,
			IntExt:      strings.ToUpper(strings.TrimSpace(s.IntExt)),
			TimeOfDay:   normalizeTimeOfDay(s.TimeOfDay, s.Heading),
			Eighths:     s.Eighths,
		}
		if seq.Number <= 0 {
			seq.Number = i + 1
		}
		if seq.Eighths < 1 {
			seq.Eighths = 1
		}
		if s.StoryDay > 0 {
			day := s.StoryDay
			seq.StoryDay = &day
		}
		if id, ok := locations[nameKey(s.Location)]; ok {
			seq.LocationID = &id
		}
		seen := make(map[string]bool)
		for _, name := range s.Characters {
			key := nameKey(name)
			if c, ok := characters[key]; ok && !seen[key] {
				seq.Characters = append(seq.Characters, c)
				seen[key] = true
			}
		}
		seq.SetFactors(s.Factors)

		if err := tx.Create(&seq).Error; err != nil {
			return 0, errors.Wrapf(err, "create sequence %d", seq.Number)
		}
	}

	updates := map[string]interface{}{"analysis_status": models.AnalysisComplete}
	if result.GeneralInfo != nil {
		raw, err := json.Marshal(result.GeneralInfo)
		if err != nil {
			return 0, errors.Wrap(err, "encode general info")
		}
		updates["general_info"] = datatypes.JSON(raw)
		if project.Genre == "" {
			updates["genre"] = result.GeneralInfo.Genre
		}
		if project.Logline == "" {
			updates["logline"] = result.GeneralInfo.Logline
		}
	}
	if result.ProductionSummary != nil {
		raw, err := json.Marshal(result.ProductionSummary)
		if err != nil {
			return 0, errors.Wrap(err, "encode production summary")
		}
		updates["production_summary"] = datatypes.JSON(raw)
	}
	if err := tx.Model(project).Updates(updates).Error; err != nil {
		return 0, errors.Wrap(err, "update project")
	}
	return len(result.Sequences), nil
}

func normalizeTimeOfDay(value, heading string) string {
	v := strings.ToUpper(strings.TrimSpace(value))
	if v == "DIA" {
		v = planning.TimeOfDayDay
	}
	if planning.ValidTimeOfDay(v) {
		return v
	}
	return planning.InferTimeOfDay(heading)
}

func nameKey(name string) string {
	return strings.ToUpper(strings.TrimSpace(name))
}
