package financing

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/drewmudry/shootplan-api/budget"
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

type SourceRequest struct {
	Name        string     `json:"name" binding:"required"`
	Kind        string     `json:"kind" binding:"required,oneof=public private own coproduction presale"`
	AmountCents int64      `json:"amount_cents" binding:"min=0"`
	Status      string     `json:"status" binding:"omitempty,oneof=prospect committed received"`
	ExpectedAt  *time.Time `json:"expected_at"`
	Notes       string     `json:"notes"`
}

// Coverage compares the money raised against the budget. Secured counts
// committed and received sources; prospects are tracked apart.
type Coverage struct {
	BudgetCents    int64   `json:"budget_cents"`
	ProspectCents  int64   `json:"prospect_cents"`
	CommittedCents int64   `json:"committed_cents"`
	ReceivedCents  int64   `json:"received_cents"`
	SecuredCents   int64   `json:"secured_cents"`
	GapCents       int64   `json:"gap_cents"`
	CoveredPercent float64 `json:"covered_percent"`
}

func (h *Handler) List(c *gin.Context) {
	project := projects.FromContext(c)
	q := h.DB.WithContext(c.Request.Context()).Where("project_id = ?", project.ID)
	if status := c.Query("status"); status != "" {
		q = q.Where("status = ?", status)
	}

	sources := []models.FinancingSource{}
	if err := q.Order("amount_cents DESC, id").Find(&sources).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve financing"})
		return
	}
	c.JSON(http.StatusOK, sources)
}

func (h *Handler) Create(c *gin.Context) {
	project := projects.FromContext(c)
	var req SourceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	source := models.FinancingSource{ProjectID: project.ID}
	apply(&source, req)
	if err := h.DB.WithContext(c.Request.Context()).Create(&source).Error; err != nil {
		h.Logger.Error("failed to create financing source", zap.Uint("project_id", project.ID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create financing source"})
		return
	}
	c.JSON(http.StatusCreated, source)
}

func (h *Handler) Update(c *gin.Context) {
	source, ok := h.load(c)
	if !ok {
		return
	}
	var req SourceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	apply(source, req)
	if err := h.DB.WithContext(c.Request.Context()).Save(source).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update financing source"})
		return
	}
	c.JSON(http.StatusOK, source)
}

func (h *Handler) Delete(c *gin.Context) {
	source, ok := h.load(c)
	if !ok {
		return
	}
	if err := h.DB.WithContext(c.Request.Context()).Delete(source).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete financing source"})
		return
	}
	c.Status(http.StatusNoContent)
}

// GetCoverage reports how much of the budget the financing covers.
func (h *Handler) GetCoverage(c *gin.Context) {
	project := projects.FromContext(c)
	ctx := c.Request.Context()

	summary, err := budget.Summarize(ctx, h.DB, project.ID)
	if err != nil {
		h.Logger.Error("failed to summarize budget", zap.Uint("project_id", project.ID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute coverage"})
		return
	}
	var sources []models.FinancingSource
	if err := h.DB.WithContext(ctx).Where("project_id = ?", project.ID).Find(&sources).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute coverage"})
		return
	}
	c.JSON(http.StatusOK, Cover(summary.TotalCents, sources))
}

// Cover computes the coverage of budgetCents by sources. The gap never goes
// below zero.
func Cover(budgetCents int64, sources []models.FinancingSource) Coverage {
	cov := Coverage{BudgetCents: budgetCents}
	for _, s := range sources {
		switch s.Status {
		case models.FinancingReceived:
			cov.ReceivedCents += s.AmountCents
		case models.FinancingCommitted:
			cov.CommittedCents += s.AmountCents
		default:
			cov.ProspectCents += s.AmountCents
		}
	}
	cov.SecuredCents = cov.CommittedCents + cov.ReceivedCents
	if gap := budgetCents - cov.SecuredCents; gap > 0 {
		cov.GapCents = gap
	}
	if budgetCents > 0 {
		cov.CoveredPercent = float64(cov.SecuredCents) * 100 / float64(budgetCents)
	}
	return cov
}

func (h *Handler) load(c *gin.Context) (*models.FinancingSource, bool) {
	project := projects.FromContext(c)
	id, ok := projects.ParamID(c, "source")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid financing source ID"})
		return nil, false
	}
	var source models.FinancingSource
	err := h.DB.WithContext(c.Request.Context()).First(&source, "id = ? AND project_id = ?", id, project.ID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Financing source not found"})
		return nil, false
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return nil, false
	}
	return &source, true
}

func apply(source *models.FinancingSource, req SourceRequest) {
	source.Name = strings.TrimSpace(req.Name)
	source.Kind = req.Kind
	if req.Status != "" {
		source.Status = req.Status
	} else if source.Status == "" {
		source.Status = models.FinancingProspect
	}
	source.AmountCents = req.AmountCents
	source.ExpectedAt = req.ExpectedAt
	source.Notes = req.Notes
}
