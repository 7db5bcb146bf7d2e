package festivals

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/drewmudry/shootplan-api/models"
	"github.com/drewmudry/shootplan-api/projects"
)

const (
	KindFestival = "festival"
	KindGrant    = "grant"
)

type Handler struct {
	DB     *gorm.DB
	Logger *zap.Logger
}

func NewHandler(db *gorm.DB, log *zap.Logger) *Handler {
	return &Handler{DB: db, Logger: log}
}

type ApplicationRequest struct {
	Name     string     `json:"name" binding:"required"`
	Kind     string     `json:"kind" binding:"omitempty,oneof=festival grant"`
	Deadline *time.Time `json:"deadline"`
	Status   string     `json:"status" binding:"omitempty,oneof=planned submitted accepted rejected expired"`
	FeeCents int64      `json:"fee_cents" binding:"min=0"`
	URL      string     `json:"url" binding:"omitempty,url"`
	Notes    string     `json:"notes"`
}

// List returns the project's applications, nearest deadline first. ?kind=
// narrows to festivals or grants.
func (h *Handler) List(c *gin.Context) {
	project := projects.FromContext(c)
	q := h.DB.WithContext(c.Request.Context()).Where("project_id = ?", project.ID)
	if kind := c.Query("kind"); kind != "" {
		q = q.Where("kind = ?", kind)
	}

	apps := []models.FestivalApplication{}
	if err := q.Order("deadline IS NULL, deadline, id").Find(&apps).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve applications"})
		return
	}
	c.JSON(http.StatusOK, apps)
}

func (h *Handler) Create(c *gin.Context) {
	project := projects.FromContext(c)
	var req ApplicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	app := models.FestivalApplication{ProjectID: project.ID}
	apply(&app, req)
	if err := h.DB.WithContext(c.Request.Context()).Create(&app).Error; err != nil {
		h.Logger.Error("failed to create application", zap.Uint("project_id", project.ID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create application"})
		return
	}
	c.JSON(http.StatusCreated, app)
}

func (h *Handler) Update(c *gin.Context) {
	app, ok := h.load(c)
	if !ok {
		return
	}
	var req ApplicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	apply(app, req)
	if err := h.DB.WithContext(c.Request.Context()).Save(app).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update application"})
		return
	}
	c.JSON(http.StatusOK, app)
}

func (h *Handler) Delete(c *gin.Context) {
	app, ok := h.load(c)
	if !ok {
		return
	}
	if err := h.DB.WithContext(c.Request.Context()).Delete(app).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete application"})
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) load(c *gin.Context) (*models.FestivalApplication, bool) {
	project := projects.FromContext(c)
	id, ok := projects.ParamID(c, "app")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid application ID"})
		return nil, false
	}
	var app models.FestivalApplication
	err := h.DB.WithContext(c.Request.Context()).First(&app, "id = ? AND project_id = ?", id, project.ID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Application not found"})
		return nil, false
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return nil, false
	}
	return &app, true
}

func apply(app *models.FestivalApplication, req ApplicationRequest) {
	app.Name = strings.TrimSpace(req.Name)
	app.Kind = req.Kind
	if app.Kind == "" {
		app.Kind = KindFestival
	}
	if req.Status != "" {
		app.Status = req.Status
	} else if app.Status == "" {
		app.Status = models.FestivalPlanned
	}
	app.Deadline = req.Deadline
	app.FeeCents = req.FeeCents
	app.URL = req.URL
	app.Notes = req.Notes
}

// ExpireOverdue marks planned applications whose deadline passed before now
// as expired and returns how many changed.
func ExpireOverdue(ctx context.Context, db *gorm.DB, now time.Time) (int64, error) {
	res := db.WithContext(ctx).Model(&models.FestivalApplication{}).
		Where("status = ? AND deadline IS NOT NULL AND deadline < ?", models.FestivalPlanned, now).
		Update("status", models.FestivalExpired)
	return res.RowsAffected, res.Error
}
