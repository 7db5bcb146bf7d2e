package breakdown

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/drewmudry/shootplan-api/complexity"
	"github.com/drewmudry/shootplan-api/models"
	"github.com/drewmudry/shootplan-api/planning"
	"github.com/drewmudry/shootplan-api/projects"
)

type Handler struct {
	DB     *gorm.DB
	Logger *zap.Logger
}

func NewHandler(db *gorm.DB, log *zap.Logger) *Handler {
	return &Handler{DB: db, Logger: log}
}

// SequenceRequest is the editable part of a sequence. Complexity factors are
// optional on create and edited through their own endpoint afterwards.
type SequenceRequest struct {
	Number           int                 `json:"number" binding:"required,min=1"`
	Title            string              `json:"title" binding:"required"`
	Description      string              `json:"description"`
	IntExt           string              `json:"int_ext" binding:"omitempty,oneof=INT EXT INT/EXT"`
	TimeOfDay        string              `json:"time_of_day"`
	Eighths          int                 `json:"eighths" binding:"required,min=1"`
	EffectiveEighths *int                `json:"effective_eighths" binding:"omitempty,min=1"`
	LocationID       *uint               `json:"location_id"`
	CharacterIDs     []uint              `json:"character_ids"`
	StoryDay         *int                `json:"story_day"`
	Factors          *complexity.Factors `json:"complexity_factors"`
}

func (h *Handler) ListSequences(c *gin.Context) {
	project := projects.FromContext(c)
	seqs := []models.Sequence{}
	if err := h.DB.WithContext(c.Request.Context()).
		Preload("Characters").Preload("Location").
		Where("project_id = ?", project.ID).
		Order("number, id").
		Find(&seqs).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve sequences"})
		return
	}
	c.JSON(http.StatusOK, seqs)
}

func (h *Handler) CreateSequence(c *gin.Context) {
	project := projects.FromContext(c)
	var req SequenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	seq := models.Sequence{ProjectID: project.ID}
	if err := h.apply(c, project.ID, &seq, req); err != nil {
		return
	}
	if req.Factors == nil {
		seq.SetFactors(complexity.Factors{})
	}

	if err := h.DB.WithContext(c.Request.Context()).Create(&seq).Error; err != nil {
		h.Logger.Error("failed to create sequence", zap.Uint("project_id", project.ID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create sequence"})
		return
	}
	c.JSON(http.StatusCreated, seq)
}

func (h *Handler) UpdateSequence(c *gin.Context) {
	project := projects.FromContext(c)
	seq, ok := h.loadSequence(c, project.ID)
	if !ok {
		return
	}
	var req SequenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.apply(c, project.ID, seq, req); err != nil {
		return
	}

	err := h.DB.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Characters", "Location").Save(seq).Error; err != nil {
			return err
		}
		return tx.Model(seq).Association("Characters").Replace(seq.Characters)
	})
	if err != nil {
		h.Logger.Error("failed to update sequence", zap.Uint("sequence_id", seq.ID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update sequence"})
		return
	}
	c.JSON(http.StatusOK, seq)
}

func (h *Handler) DeleteSequence(c *gin.Context) {
	project := projects.FromContext(c)
	seq, ok := h.loadSequence(c, project.ID)
	if !ok {
		return
	}
	if err := h.DB.WithContext(c.Request.Context()).Select("Characters").Delete(seq).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete sequence"})
		return
	}
	c.Status(http.StatusNoContent)
}

// UpdateComplexity replaces the factors of a sequence and stores the derived
// score and category with them.
func (h *Handler) UpdateComplexity(c *gin.Context) {
	project := projects.FromContext(c)
	seq, ok := h.loadSequence(c, project.ID)
	if !ok {
		return
	}
	var factors complexity.Factors
	if err := c.ShouldBindJSON(&factors); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if factors.NumCharacters < 0 || factors.NumExtras < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Counts cannot be negative"})
		return
	}

	seq.SetFactors(factors)
	if err := h.DB.WithContext(c.Request.Context()).Model(seq).Updates(map[string]interface{}{
		"complejidad_factores": seq.ComplexityFactors,
		"complexity_score":     seq.ComplexityScore,
		"complexity_category":  seq.ComplexityCategory,
	}).Error; err != nil {
		h.Logger.Error("failed to store complexity", zap.Uint("sequence_id", seq.ID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update complexity"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"sequence_id": seq.ID,
		"factors":     factors,
		"evaluation":  complexity.Evaluate(factors),
	})
}

type SequenceComplexity struct {
	SequenceID uint                  `json:"sequence_id"`
	Number     int                   `json:"number"`
	Title      string                `json:"title"`
	Factors    complexity.Factors    `json:"factors"`
	Evaluation complexity.Evaluation `json:"evaluation"`
}

type ComplexityReport struct {
	Sequences         []SequenceComplexity        `json:"sequences"`
	ByCategory        map[complexity.Category]int `json:"by_category"`
	AverageScore      float64                     `json:"average_score"`
	TotalExtraMinutes int                         `json:"total_extra_minutes"`
}

// GetComplexity evaluates every sequence of the project.
func (h *Handler) GetComplexity(c *gin.Context) {
	project := projects.FromContext(c)
	var seqs []models.Sequence
	if err := h.DB.WithContext(c.Request.Context()).
		Where("project_id = ?", project.ID).
		Order("number, id").
		Find(&seqs).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve sequences"})
		return
	}

	report := ComplexityReport{
		Sequences: make([]SequenceComplexity, 0, len(seqs)),
		ByCategory: map[complexity.Category]int{
			complexity.CategoryLow:     0,
			complexity.CategoryMedium:  0,
			complexity.CategoryHigh:    0,
			complexity.CategoryExtreme: 0,
		},
	}
	total := 0
	for _, seq := range seqs {
		f := seq.Factors()
		ev := complexity.Evaluate(f)
		report.Sequences = append(report.Sequences, SequenceComplexity{
			SequenceID: seq.ID,
			Number:     seq.Number,
			Title:      seq.Title,
			Factors:    f,
			Evaluation: ev,
		})
		report.ByCategory[ev.Category]++
		report.TotalExtraMinutes += ev.ExtraMinutes
		total += ev.Score
	}
	if len(seqs) > 0 {
		report.AverageScore = float64(total) / float64(len(seqs))
	}
	c.JSON(http.StatusOK, report)
}

// apply copies req onto seq after checking that the referenced location and
// characters belong to the project. It writes the error response itself.
func (h *Handler) apply(c *gin.Context, projectID uint, seq *models.Sequence, req SequenceRequest) error {
	timeOfDay := strings.ToUpper(strings.TrimSpace(req.TimeOfDay))
	if timeOfDay != "" && !planning.ValidTimeOfDay(timeOfDay) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid time of day"})
		return errInvalid
	}

	db := h.DB.WithContext(c.Request.Context())
	if req.LocationID != nil {
		var count int64
		if err := db.Model(&models.Location{}).Where("id = ? AND project_id = ?", *req.LocationID, projectID).Count(&count).Error; err != nil {
			h.Logger.Error("failed to check sequence location", zap.Uint("project_id", projectID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
			return err
		}
		if count == 0 {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Location not found in project"})
			return errInvalid
		}
	}

	characters := []models.Character{}
	if len(req.CharacterIDs) > 0 {
		if err := db.Where("id IN ? AND project_id = ?", req.CharacterIDs, projectID).Find(&characters).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
			return err
		}
		if len(characters) != len(unique(req.CharacterIDs)) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Character not found in project"})
			return errInvalid
		}
	}

	seq.Number = req.Number
	seq.Title = strings.TrimSpace(req.Title)
	seq.Description = req.Description
	seq.IntExt = req.IntExt
	seq.TimeOfDay = timeOfDay
	seq.Eighths = req.Eighths
	seq.EffectiveEighths = req.EffectiveEighths
	seq.LocationID = req.LocationID
	seq.Location = nil
	seq.Characters = characters
	seq.StoryDay = req.StoryDay
	if req.Factors != nil {
		seq.SetFactors(*req.Factors)
	}
	return nil
}

var errInvalid = errors.New("invalid sequence request")

func (h *Handler) loadSequence(c *gin.Context, projectID uint) (*models.Sequence, bool) {
	id, ok := projects.ParamID(c, "seq")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid sequence ID"})
		return nil, false
	}
	var seq models.Sequence
	err := h.DB.WithContext(c.Request.Context()).Preload("Characters").
		First(&seq, "id = ? AND project_id = ?", id, projectID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Sequence not found"})
		return nil, false
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return nil, false
	}
	return &seq, true
}

func unique(ids []uint) map[uint]struct{} {
	set := make(map[uint]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}
