package audiences

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/drewmudry/shootplan-api/models"
	"github.com/drewmudry/shootplan-api/projects"
)

const DefaultPriority = 3

type Handler struct {
	DB     *gorm.DB
	Logger *zap.Logger
}

func NewHandler(db *gorm.DB, log *zap.Logger) *Handler {
	return &Handler{DB: db, Logger: log}
}

type AudienceRequest struct {
	Name        string   `json:"name" binding:"required"`
	Description string   `json:"description"`
	AgeMin      *int     `json:"age_min" binding:"omitempty,min=0,max=120"`
	AgeMax      *int     `json:"age_max" binding:"omitempty,min=0,max=120"`
	Channels    []string `json:"channels"`
	Priority    int      `json:"priority" binding:"omitempty,min=1,max=5"`
}

// List returns the project's target audiences, highest priority first.
func (h *Handler) List(c *gin.Context) {
	project := projects.FromContext(c)
	audiences := []models.Audience{}
	if err := h.DB.WithContext(c.Request.Context()).
		Where("project_id = ?", project.ID).
		Order("priority, id").
		Find(&audiences).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve audiences"})
		return
	}
	c.JSON(http.StatusOK, audiences)
}

func (h *Handler) Create(c *gin.Context) {
	project := projects.FromContext(c)
	req, ok := bind(c)
	if !ok {
		return
	}

	audience := models.Audience{ProjectID: project.ID}
	apply(&audience, req)
	if err := h.DB.WithContext(c.Request.Context()).Create(&audience).Error; err != nil {
		h.Logger.Error("failed to create audience", zap.Uint("project_id", project.ID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create audience"})
		return
	}
	c.JSON(http.StatusCreated, audience)
}

func (h *Handler) Update(c *gin.Context) {
	audience, ok := h.load(c)
	if !ok {
		return
	}
	req, ok := bind(c)
	if !ok {
		return
	}

	apply(audience, req)
	if err := h.DB.WithContext(c.Request.Context()).Save(audience).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update audience"})
		return
	}
	c.JSON(http.StatusOK, audience)
}

func (h *Handler) Delete(c *gin.Context) {
	audience, ok := h.load(c)
	if !ok {
		return
	}
	if err := h.DB.WithContext(c.Request.Context()).Delete(audience).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete audience"})
		return
	}
	c.Status(http.StatusNoContent)
}

func bind(c *gin.Context) (AudienceRequest, bool) {
	var req AudienceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return req, false
	}
	if req.AgeMin != nil && req.AgeMax != nil && *req.AgeMin > *req.AgeMax {
		c.JSON(http.StatusBadRequest, gin.H{"error": "age_min must not exceed age_max"})
		return req, false
	}
	return req, true
}

func (h *Handler) load(c *gin.Context) (*models.Audience, bool) {
	project := projects.FromContext(c)
	id, ok := projects.ParamID(c, "audience")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid audience ID"})
		return nil, false
	}
	var audience models.Audience
	err := h.DB.WithContext(c.Request.Context()).First(&audience, "id = ? AND project_id = ?", id, project.ID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Audience not found"})
		return nil, false
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return nil, false
	}
	return &audience, true
}

// apply copies req onto a. Channels are trimmed, lowercased and deduplicated.
func apply(a *models.Audience, req AudienceRequest) {
	a.Name = strings.TrimSpace(req.Name)
	a.Description = req.Description
	a.AgeMin = req.AgeMin
	a.AgeMax = req.AgeMax
	a.Priority = req.Priority
	if a.Priority == 0 {
		a.Priority = DefaultPriority
	}

	channels := []string{}
	seen := make(map[string]bool)
	for _, ch := range req.Channels {
		ch = strings.ToLower(strings.TrimSpace(ch))
		if ch == "" || seen[ch] {
			continue
		}
		seen[ch] = true
		channels = append(channels, ch)
	}
	a.Channels = datatypes.NewJSONType(channels)
}
