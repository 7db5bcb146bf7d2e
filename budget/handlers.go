package budget

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/drewmudry/shootplan-api/models"
	"github.com/drewmudry/shootplan-api/projects"
)

type Handler struct {
	DB     *gorm.DB
	Logger *zap.Logger
}

func NewHandler(db *gorm.DB, log *zap.Logger) *Handler {
	return &Handler{DB: db, Logger: log}
}

type LineRequest struct {
	Category      string `json:"category" binding:"required"`
	Concept       string `json:"concept" binding:"required"`
	Units         int    `json:"units" binding:"min=0"`
	UnitCostCents int64  `json:"unit_cost_cents" binding:"min=0"`
	Notes         string `json:"notes"`
}

type CategoryTotal struct {
	Category   string `json:"category"`
	Lines      int    `json:"lines"`
	TotalCents int64  `json:"total_cents"`
}

type Summary struct {
	Categories []CategoryTotal `json:"categories"`
	TotalCents int64           `json:"total_cents"`
}

// List returns the budget lines ordered by category.
func (h *Handler) List(c *gin.Context) {
	project := projects.FromContext(c)
	lines := []models.BudgetLine{}
	if err := h.DB.WithContext(c.Request.Context()).
		Where("project_id = ?", project.ID).
		Order("category, id").
		Find(&lines).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve budget"})
		return
	}
	c.JSON(http.StatusOK, lines)
}

func (h *Handler) Create(c *gin.Context) {
	project := projects.FromContext(c)
	var req LineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	line := models.BudgetLine{ProjectID: project.ID}
	apply(&line, req)
	if err := h.DB.WithContext(c.Request.Context()).Create(&line).Error; err != nil {
		h.Logger.Error("failed to create budget line", zap.Uint("project_id", project.ID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create budget line"})
		return
	}
	c.JSON(http.StatusCreated, line)
}

func (h *Handler) Update(c *gin.Context) {
	line, ok := h.load(c)
	if !ok {
		return
	}
	var req LineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	apply(line, req)
	if err := h.DB.WithContext(c.Request.Context()).Save(line).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update budget line"})
		return
	}
	c.JSON(http.StatusOK, line)
}

func (h *Handler) Delete(c *gin.Context) {
	line, ok := h.load(c)
	if !ok {
		return
	}
	if err := h.DB.WithContext(c.Request.Context()).Delete(line).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete budget line"})
		return
	}
	c.Status(http.StatusNoContent)
}

// GetSummary totals the budget per category.
func (h *Handler) GetSummary(c *gin.Context) {
	project := projects.FromContext(c)
	summary, err := Summarize(c.Request.Context(), h.DB, project.ID)
	if err != nil {
		h.Logger.Error("failed to summarize budget", zap.Uint("project_id", project.ID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to summarize budget"})
		return
	}
	c.JSON(http.StatusOK, summary)
}

// Summarize totals the project's budget lines per category, categories in
// name order.
func Summarize(ctx context.Context, db *gorm.DB, projectID uint) (*Summary, error) {
	var lines []models.BudgetLine
	if err := db.WithContext(ctx).Where("project_id = ?", projectID).Find(&lines).Error; err != nil {
		return nil, err
	}

	byCategory := make(map[string]*CategoryTotal)
	summary := &Summary{Categories: []CategoryTotal{}}
	for i := range lines {
		total := lines[i].TotalCents()
		ct, ok := byCategory[lines[i].Category]
		if !ok {
			ct = &CategoryTotal{Category: lines[i].Category}
			byCategory[lines[i].Category] = ct
		}
		ct.Lines++
		ct.TotalCents += total
		summary.TotalCents += total
	}
	for _, ct := range byCategory {
		summary.Categories = append(summary.Categories, *ct)
	}
	sort.Slice(summary.Categories, func(i, j int) bool {
		return summary.Categories[i].Category < summary.Categories[j].Category
	})
	return summary, nil
}

func (h *Handler) load(c *gin.Context) (*models.BudgetLine, bool) {
	project := projects.FromContext(c)
	id, ok := projects.ParamID(c, "line")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid budget line ID"})
		return nil, false
	}
	var line models.BudgetLine
	err := h.DB.WithContext(c.Request.Context()).First(&line, "id = ? AND project_id = ?", id, project.ID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Budget line not found"})
		return nil, false
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return nil, false
	}
	return &line, true
}

func apply(line *models.BudgetLine, req LineRequest) {
	line.Category = strings.ToLower(strings.TrimSpace(req.Category))
	line.Concept = strings.TrimSpace(req.Concept)
	line.Units = req.Units
	if line.Units == 0 {
		line.Units = 1
	}
	line.UnitCostCents = req.UnitCostCents
	line.Notes = req.Notes
}
