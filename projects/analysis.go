package projects

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/drewmudry/shootplan-api/analysis"
	"github.com/drewmudry/shootplan-api/models"
	"github.com/drewmudry/shootplan-api/tasks"
)

type StartAnalysisRequest struct {
	// Truncate analyzes only the first pages of an over-long script.
	Truncate bool `json:"truncate"`
}

// StartAnalysis validates the stored script, checks the user's allowance and
// queues an analysis job. Failures that would make the job fail for sure are
// answered synchronously with the analysis error body.
func (h *Handler) StartAnalysis(c *gin.Context) {
	project := FromContext(c)
	ctx := c.Request.Context()

	var req StartAnalysisRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	text := project.ScriptText
	if req.Truncate {
		text, _ = analysis.Truncate(text)
	}
	if err := analysis.Validate(text); err != nil {
		ae, _ := analysis.AsError(err)
		c.JSON(ae.HTTPStatus(), ae)
		return
	}

	var user models.User
	if err := h.DB.WithContext(ctx).First(&user, project.UserID).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	if !user.CanAnalyze() {
		ae := analysis.NewError(analysis.KindPaymentRequired, "no script analyses left on this account", nil)
		c.JSON(ae.HTTPStatus(), ae)
		return
	}

	var running models.AnalysisJob
	err := h.DB.WithContext(ctx).
		Where("project_id = ? AND status IN ?", project.ID, []string{models.JobQueued, models.JobProcessing}).
		First(&running).Error
	if err == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "An analysis is already running for this project", "job": running})
		return
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	job := models.AnalysisJob{
		ProjectID: project.ID,
		UserID:    project.UserID,
		Status:    models.JobQueued,
		Truncate:  req.Truncate,
		Progress:  "Queued",
	}
	err = h.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&job).Error; err != nil {
			return err
		}
		return tx.Model(project).Update("analysis_status", models.AnalysisQueued).Error
	})
	if err != nil {
		h.Logger.Error("failed to create analysis job", zap.Uint("project_id", project.ID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create analysis job"})
		return
	}

	payload := tasks.ScriptAnalysisPayload{
		JobID:     job.ID.String(),
		ProjectID: project.ID,
		UserID:    project.UserID,
		Truncate:  req.Truncate,
	}
	if err := tasks.Enqueue(ctx, h.Redis, tasks.QueueScriptAnalysis, payload); err != nil {
		h.Logger.Error("failed to queue analysis", zap.String("job_id", job.ID.String()), zap.Error(err))
		h.DB.WithContext(ctx).Model(&job).Updates(map[string]interface{}{
			"status":        models.JobFailed,
			"error_kind":    string(analysis.KindNetwork),
			"error_message": "could not queue the analysis",
		})
		h.DB.WithContext(ctx).Model(project).Update("analysis_status", models.AnalysisFailed)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Analysis queue unavailable"})
		return
	}

	h.Logger.Info("analysis queued", zap.String("job_id", job.ID.String()), zap.Uint("project_id", project.ID))
	c.JSON(http.StatusAccepted, job)
}

func (h *Handler) GetAnalysisJob(c *gin.Context) {
	project := FromContext(c)
	jobID, err := uuid.Parse(c.Param("job"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid job ID"})
		return
	}

	var job models.AnalysisJob
	err = h.DB.WithContext(c.Request.Context()).First(&job, "id = ? AND project_id = ?", jobID, project.ID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Analysis job not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	c.JSON(http.StatusOK, job)
}
