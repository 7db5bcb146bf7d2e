package projects

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/drewmudry/shootplan-api/analysis"
	"github.com/drewmudry/shootplan-api/auth"
	"github.com/drewmudry/shootplan-api/models"
)

// MaxUploadBytes caps an uploaded script file.
const MaxUploadBytes = 2 << 20

type Handler struct {
	DB     *gorm.DB
	Redis  *redis.Client
	Logger *zap.Logger
}

func NewHandler(db *gorm.DB, rdb *redis.Client, log *zap.Logger) *Handler {
	return &Handler{DB: db, Redis: rdb, Logger: log}
}

type ProjectRequest struct {
	Title   string `json:"title" binding:"required,max=200"`
	Logline string `json:"logline"`
	Genre   string `json:"genre"`
}

func (h *Handler) CreateProject(c *gin.Context) {
	var req ProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	project := models.Project{
		UserID:         auth.UserID(c),
		Title:          strings.TrimSpace(req.Title),
		Logline:        req.Logline,
		Genre:          req.Genre,
		AnalysisStatus: models.AnalysisNone,
	}
	if err := h.DB.WithContext(c.Request.Context()).Create(&project).Error; err != nil {
		h.Logger.Error("failed to create project", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create project"})
		return
	}
	c.JSON(http.StatusCreated, project)
}

func (h *Handler) ListProjects(c *gin.Context) {
	projects := []models.Project{}
	if err := h.DB.WithContext(c.Request.Context()).
		Where("user_id = ?", auth.UserID(c)).
		Order("updated_at DESC").
		Find(&projects).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve projects"})
		return
	}

	if len(projects) > 0 {
		ids := make([]uint, len(projects))
		for i, p := range projects {
			ids[i] = p.ID
		}
		var counts []struct {
			ProjectID uint
			Count     int
		}
		if err := h.DB.WithContext(c.Request.Context()).Model(&models.Sequence{}).
			Select("project_id, COUNT(*) AS count").
			Where("project_id IN ?", ids).
			Group("project_id").
			Scan(&counts).Error; err == nil {
			byProject := make(map[uint]int, len(counts))
			for _, row := range counts {
				byProject[row.ProjectID] = row.Count
			}
			for i := range projects {
				projects[i].SequenceCount = byProject[projects[i].ID]
			}
		}
	}

	c.JSON(http.StatusOK, projects)
}

func (h *Handler) GetProject(c *gin.Context) {
	project := FromContext(c)
	var count int64
	h.DB.WithContext(c.Request.Context()).Model(&models.Sequence{}).Where("project_id = ?", project.ID).Count(&count)
	project.SequenceCount = int(count)
	c.JSON(http.StatusOK, project)
}

func (h *Handler) UpdateProject(c *gin.Context) {
	project := FromContext(c)
	var req ProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	project.Title = strings.TrimSpace(req.Title)
	project.Logline = req.Logline
	project.Genre = req.Genre
	if err := h.DB.WithContext(c.Request.Context()).Model(project).Updates(map[string]interface{}{
		"title":   project.Title,
		"logline": project.Logline,
		"genre":   project.Genre,
	}).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update project"})
		return
	}
	c.JSON(http.StatusOK, project)
}

// DeleteProject removes the project and everything planned under it.
func (h *Handler) DeleteProject(c *gin.Context) {
	project := FromContext(c)
	err := h.DB.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM sequence_characters WHERE sequence_id IN (SELECT id FROM sequences WHERE project_id = ?)", project.ID).Error; err != nil {
			return err
		}
		for _, m := range []interface{}{
			&models.Sequence{}, &models.ShootingDay{}, &models.Character{}, &models.Location{},
			&models.FestivalApplication{}, &models.BudgetLine{}, &models.FinancingSource{},
			&models.Audience{}, &models.AnalysisJob{},
		} {
			if err := tx.Where("project_id = ?", project.ID).Delete(m).Error; err != nil {
				return err
			}
		}
		return tx.Delete(project).Error
	})
	if err != nil {
		h.Logger.Error("failed to delete project", zap.Uint("project_id", project.ID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete project"})
		return
	}
	c.Status(http.StatusNoContent)
}

type ScriptRequest struct {
	ScriptText string `json:"script_text" binding:"required"`
	Filename   string `json:"filename"`
}

// ScriptInfo describes a stored script and how analysis will treat it.
type ScriptInfo struct {
	Chars          int     `json:"chars"`
	EstimatedPages float64 `json:"estimated_pages"`
	TooLong        bool    `json:"too_long"`
	Warning        string  `json:"warning,omitempty"`
}

func describeScript(text string) ScriptInfo {
	info := ScriptInfo{
		Chars:          utf8.RuneCountInString(text),
		EstimatedPages: analysis.EstimatePages(text),
	}
	if info.EstimatedPages > analysis.MaxPages {
		info.TooLong = true
		info.Warning = fmt.Sprintf("Only the first %d pages can be analyzed", analysis.MaxPages)
	}
	return info
}

// UploadScript stores the script text, sent as JSON or as a multipart .txt
// file in the "file" field.
func (h *Handler) UploadScript(c *gin.Context) {
	project := FromContext(c)

	var text, filename string
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		var err error
		text, filename, err = readScriptFile(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	} else {
		var req ScriptRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		text, filename = req.ScriptText, req.Filename
	}

	if strings.TrimSpace(text) == "" {
		c.JSON(http.StatusUnprocessableEntity, analysis.NewError(analysis.KindValidation, "script text is empty", nil))
		return
	}

	info := describeScript(text)
	project.ScriptText = text
	project.ScriptFilename = filename
	project.ScriptChars = info.Chars
	if err := h.DB.WithContext(c.Request.Context()).Model(project).Updates(map[string]interface{}{
		"script_text":     text,
		"script_filename": filename,
		"script_chars":    info.Chars,
	}).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save script"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"project": project, "script": info})
}

func readScriptFile(c *gin.Context) (string, string, error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxUploadBytes+1<<10)
	header, err := c.FormFile("file")
	if err != nil {
		return "", "", errors.New("missing file field")
	}
	if ext := strings.ToLower(filepath.Ext(header.Filename)); ext != ".txt" {
		return "", "", fmt.Errorf("unsupported file type %q, upload the extracted text as .txt", ext)
	}
	if header.Size > MaxUploadBytes {
		return "", "", errors.New("script file is too large")
	}

	f, err := header.Open()
	if err != nil {
		return "", "", errors.New("could not read file")
	}
	defer f.Close()

	raw, err := io.ReadAll(f)
	if err != nil {
		return "", "", errors.New("could not read file")
	}
	if !utf8.Valid(raw) {
		return "", "", errors.New("script file must be UTF-8 text")
	}
	return string(raw), header.Filename, nil
}
