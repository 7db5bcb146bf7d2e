package breakdown

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/drewmudry/shootplan-api/models"
	"github.com/drewmudry/shootplan-api/projects"
)

type LocationRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	Type        string `json:"type" binding:"omitempty,oneof=INT EXT INT/EXT"`
}

type CharacterRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	Category    string `json:"category"`
}

func (h *Handler) ListLocations(c *gin.Context) {
	project := projects.FromContext(c)
	locations := []models.Location{}
	if err := h.DB.WithContext(c.Request.Context()).Where("project_id = ?", project.ID).Order("name").Find(&locations).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve locations"})
		return
	}
	c.JSON(http.StatusOK, locations)
}

func (h *Handler) CreateLocation(c *gin.Context) {
	project := projects.FromContext(c)
	var req LocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	loc := models.Location{
		ProjectID:   project.ID,
		Name:        strings.ToUpper(strings.TrimSpace(req.Name)),
		Description: req.Description,
		Type:        req.Type,
	}
	if err := h.DB.WithContext(c.Request.Context()).Create(&loc).Error; err != nil {
		h.Logger.Error("failed to create location", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create location"})
		return
	}
	c.JSON(http.StatusCreated, loc)
}

// DeleteLocation removes the location. Sequences and days that used it keep
// existing without one.
func (h *Handler) DeleteLocation(c *gin.Context) {
	project := projects.FromContext(c)
	id, ok := projects.ParamID(c, "loc")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid location ID"})
		return
	}

	err := h.DB.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		var loc models.Location
		if err := tx.First(&loc, "id = ? AND project_id = ?", id, project.ID).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Sequence{}).Where("location_id = ?", loc.ID).Update("location_id", nil).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.ShootingDay{}).Where("location_id = ?", loc.ID).Update("location_id", nil).Error; err != nil {
			return err
		}
		return tx.Delete(&loc).Error
	})
	h.deleted(c, err, "Location not found")
}

func (h *Handler) ListCharacters(c *gin.Context) {
	project := projects.FromContext(c)
	characters := []models.Character{}
	if err := h.DB.WithContext(c.Request.Context()).Where("project_id = ?", project.ID).Order("name").Find(&characters).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve characters"})
		return
	}
	c.JSON(http.StatusOK, characters)
}

func (h *Handler) CreateCharacter(c *gin.Context) {
	project := projects.FromContext(c)
	var req CharacterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ch := models.Character{
		ProjectID:   project.ID,
		Name:        strings.ToUpper(strings.TrimSpace(req.Name)),
		Description: req.Description,
		Category:    req.Category,
	}
	if err := h.DB.WithContext(c.Request.Context()).Create(&ch).Error; err != nil {
		h.Logger.Error("failed to create character", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create character"})
		return
	}
	c.JSON(http.StatusCreated, ch)
}

// DeleteCharacter removes the character from every sequence before deleting it.
func (h *Handler) DeleteCharacter(c *gin.Context) {
	project := projects.FromContext(c)
	id, ok := projects.ParamID(c, "char")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid character ID"})
		return
	}

	err := h.DB.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		var ch models.Character
		if err := tx.First(&ch, "id = ? AND project_id = ?", id, project.ID).Error; err != nil {
			return err
		}
		if err := tx.Exec("DELETE FROM sequence_characters WHERE character_id = ?", ch.ID).Error; err != nil {
			return err
		}
		return tx.Delete(&ch).Error
	})
	h.deleted(c, err, "Character not found")
}

func (h *Handler) deleted(c *gin.Context, err error, notFound string) {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": notFound})
	case err != nil:
		h.Logger.Error("delete failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete"})
	default:
		c.Status(http.StatusNoContent)
	}
}
