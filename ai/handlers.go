// Package ai exposes the script analysis and free-form generation endpoints
// the web app calls directly.
package ai

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/drewmudry/shootplan-api/analysis"
	"github.com/drewmudry/shootplan-api/auth"
	"github.com/drewmudry/shootplan-api/models"
	"github.com/drewmudry/shootplan-api/processing"
)

// Generator produces free-form text. *processing.Client implements it.
type Generator interface {
	GenerateText(ctx context.Context, req processing.TextRequest) (string, error)
}

type Handler struct {
	DB        *gorm.DB
	Analyzer  *analysis.Analyzer
	Generator Generator
	Logger    *zap.Logger
}

func NewHandler(db *gorm.DB, analyzer *analysis.Analyzer, gen Generator, log *zap.Logger) *Handler {
	return &Handler{DB: db, Analyzer: analyzer, Generator: gen, Logger: log}
}

type AnalyzeRequest struct {
	ScriptText string `json:"scriptText" binding:"required"`
	Truncate   bool   `json:"truncate"`
}

// failure is the envelope body for a failed analysis.
type failure struct {
	Success bool `json:"success"`
	*analysis.Error
	Code analysis.Kind `json:"code"`
}

func fail(c *gin.Context, err error) {
	ae, ok := analysis.AsError(err)
	if !ok {
		ae = analysis.NewError(analysis.KindOf(err), err.Error(), err)
	}
	c.JSON(ae.HTTPStatus(), failure{Error: ae, Code: ae.Kind})
}

// AnalyzeScript runs a synchronous analysis and answers with the analysis
// envelope. It uses up one free analysis on success, like queued jobs do.
func (h *Handler) AnalyzeScript(c *gin.Context) {
	var req AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, analysis.NewError(analysis.KindValidation, "scriptText is required", err))
		return
	}

	userID := auth.UserID(c)
	var user models.User
	if err := h.DB.WithContext(c.Request.Context()).First(&user, userID).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	if !user.CanAnalyze() {
		fail(c, analysis.NewError(analysis.KindPaymentRequired, "no script analyses left on this account", nil))
		return
	}

	run := h.Analyzer.Analyze
	if req.Truncate {
		run = h.Analyzer.AnalyzeTruncated
	}
	result, err := run(c.Request.Context(), req.ScriptText, func(msg string, attempt int) {
		h.Logger.Debug("analysis progress", zap.Uint("user_id", userID), zap.String("message", msg), zap.Int("attempt", attempt))
	})
	if err != nil {
		h.Logger.Warn("script analysis failed", zap.Uint("user_id", userID), zap.String("kind", string(analysis.KindOf(err))), zap.Error(err))
		fail(c, err)
		return
	}

	if err := models.ChargeAnalysis(h.DB.WithContext(c.Request.Context()), userID); err != nil {
		h.Logger.Error("failed to charge analysis", zap.Uint("user_id", userID), zap.Error(err))
	}
	c.JSON(http.StatusOK, analysis.Envelope{Success: true, Analysis: result})
}

// Generate returns {text}. A rate-limited provider answers 429.
func (h *Handler) Generate(c *gin.Context) {
	var req processing.TextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if h.Generator == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Text generation is not configured"})
		return
	}

	text, err := h.Generator.GenerateText(c.Request.Context(), req)
	if err != nil {
		h.Logger.Warn("text generation failed", zap.Error(err))
		if analysis.IsKind(err, analysis.KindRateLimit) {
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "Rate limit exceeded, try again later"})
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": "Text generation failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"text": text})
}
