package projects

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/drewmudry/shootplan-api/auth"
	"github.com/drewmudry/shootplan-api/models"
)

const ctxProject = "project"

// RequireProject loads the :id project of the authenticated user. Projects
// of other users answer 404.
func RequireProject(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseUint(c.Param("id"), 10, 64)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid project ID"})
			return
		}

		var project models.Project
		err = db.WithContext(c.Request.Context()).First(&project, "id = ? AND user_id = ?", id, auth.UserID(c)).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Project not found"})
			return
		}
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
			return
		}

		c.Set(ctxProject, &project)
		c.Next()
	}
}

// FromContext returns the project loaded by RequireProject.
func FromContext(c *gin.Context) *models.Project {
	p, _ := c.MustGet(ctxProject).(*models.Project)
	return p
}

// ParamID parses a numeric path parameter.
func ParamID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}
