package planning

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/drewmudry/shootplan-api/auth"
	"github.com/drewmudry/shootplan-api/dragdrop"
	"github.com/drewmudry/shootplan-api/models"
	"github.com/drewmudry/shootplan-api/projects"
)

type Handler struct {
	Store  *Store
	Drags  *dragdrop.Registry
	Logger *zap.Logger
}

func NewHandler(db *gorm.DB, drags *dragdrop.Registry, log *zap.Logger) *Handler {
	return &Handler{Store: NewStore(db), Drags: drags, Logger: log}
}

type DayView struct {
	models.ShootingDay
	Scenes []Scene `json:"scenes"`
}

type PlanResponse struct {
	Days       []DayView `json:"days"`
	Unassigned []Scene   `json:"unassigned"`
	Stats      Stats     `json:"stats"`
}

// GetPlan returns the days with their scenes in shooting order, the
// unassigned pool and the plan statistics.
func (h *Handler) GetPlan(c *gin.Context) {
	project := projects.FromContext(c)
	plan, err := h.Store.Load(c.Request.Context(), project.ID)
	if err != nil {
		h.Logger.Error("failed to load plan", zap.Uint("project_id", project.ID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load plan"})
		return
	}

	scenes, days := plan.Snapshot()
	byID := make(map[uint]Scene, len(scenes))
	for _, s := range scenes {
		byID[s.ID] = s
	}

	views := make([]DayView, 0, len(days))
	for i, d := range days {
		view := DayView{ShootingDay: plan.Days[i], Scenes: make([]Scene, 0, len(d.SceneIDs))}
		for _, id := range d.SceneIDs {
			view.Scenes = append(view.Scenes, byID[id])
		}
		views = append(views, view)
	}

	c.JSON(http.StatusOK, PlanResponse{
		Days:       views,
		Unassigned: Unassigned(scenes, days, Filter{}),
		Stats:      Aggregate(scenes, days),
	})
}

// GetUnassigned lists the unassigned pool, filtered by ?location= and
// ?time_of_day=.
func (h *Handler) GetUnassigned(c *gin.Context) {
	project := projects.FromContext(c)
	var f Filter
	if err := c.ShouldBindQuery(&f); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	plan, err := h.Store.Load(c.Request.Context(), project.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load plan"})
		return
	}
	scenes, days := plan.Snapshot()
	c.JSON(http.StatusOK, Unassigned(scenes, days, f))
}

func (h *Handler) CreateDay(c *gin.Context) {
	project := projects.FromContext(c)
	var in DayInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if in.TimeOfDay != "" && !ValidTimeOfDay(in.TimeOfDay) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid time of day"})
		return
	}

	day, err := h.Store.CreateDay(c.Request.Context(), project.ID, in)
	if err != nil {
		h.storeError(c, err, "Day not found")
		return
	}
	c.JSON(http.StatusCreated, day)
}

func (h *Handler) UpdateDay(c *gin.Context) {
	project := projects.FromContext(c)
	dayID, ok := projects.ParamID(c, "day")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid day ID"})
		return
	}
	var in DayInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if in.TimeOfDay != "" && !ValidTimeOfDay(in.TimeOfDay) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid time of day"})
		return
	}

	day, err := h.Store.UpdateDay(c.Request.Context(), project.ID, dayID, in)
	if err != nil {
		h.storeError(c, err, "Day not found")
		return
	}
	c.JSON(http.StatusOK, day)
}

func (h *Handler) DeleteDay(c *gin.Context) {
	project := projects.FromContext(c)
	dayID, ok := projects.ParamID(c, "day")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid day ID"})
		return
	}
	if err := h.Store.DeleteDay(c.Request.Context(), project.ID, dayID); err != nil {
		h.storeError(c, err, "Day not found")
		return
	}
	c.Status(http.StatusNoContent)
}

type StartDragRequest struct {
	SequenceID uint `json:"sequence_id" binding:"required"`
}

// StartDrag puts a sequence of this project into the caller's drag slot.
func (h *Handler) StartDrag(c *gin.Context) {
	project := projects.FromContext(c)
	var req StartDragRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var seq models.Sequence
	err := h.Store.DB.WithContext(c.Request.Context()).
		Preload("Characters").
		First(&seq, "id = ? AND project_id = ?", req.SequenceID, project.ID).Error
	if err != nil {
		h.storeError(c, err, "Sequence not found")
		return
	}

	scene := dragdrop.DraggedScene{
		SceneID:          seq.ID,
		Number:           seq.Number,
		Title:            seq.Title,
		Eighths:          seq.Eighths,
		EffectiveEighths: seq.EffectiveEighths,
		CharacterNames:   seq.CharacterNames(),
		OriginDayID:      seq.ShootingDayID,
	}
	replaced := h.Drags.For(auth.SessionKey(c)).StartDrag(scene)
	if replaced {
		h.Logger.Debug("drag replaced an unfinished drag", zap.Uint("user_id", auth.UserID(c)), zap.Uint("sequence_id", seq.ID))
	}
	c.JSON(http.StatusOK, gin.H{"dragging": true, "scene": scene, "replaced": replaced})
}

func (h *Handler) GetDrag(c *gin.Context) {
	scene, ok := h.Drags.For(auth.SessionKey(c)).Current()
	if !ok {
		c.JSON(http.StatusOK, gin.H{"dragging": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"dragging": true, "scene": scene})
}

// EndDrag cancels the caller's drag. It succeeds when nothing is dragged.
func (h *Handler) EndDrag(c *gin.Context) {
	h.Drags.For(auth.SessionKey(c)).EndDrag()
	c.Status(http.StatusNoContent)
}

// Drop moves the dragged sequence to the target and ends the drag whether
// the move succeeds or not.
func (h *Handler) Drop(c *gin.Context) {
	project := projects.FromContext(c)
	var target Target
	if err := c.ShouldBindJSON(&target); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if target.NewDay != nil && target.NewDay.TimeOfDay != "" && !ValidTimeOfDay(target.NewDay.TimeOfDay) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid time of day"})
		return
	}

	var result *ReassignResult
	err := h.Drags.For(auth.SessionKey(c)).Drop(func(scene dragdrop.DraggedScene) error {
		var err error
		result, err = h.Store.Reassign(c.Request.Context(), project.ID, scene.SceneID, target)
		return err
	})
	switch {
	case errors.Is(err, dragdrop.ErrNotDragging):
		c.JSON(http.StatusConflict, gin.H{"error": "No scene is being dragged"})
	case err != nil:
		h.storeError(c, err, "Sequence not found")
	default:
		c.JSON(http.StatusOK, result)
	}
}

func (h *Handler) storeError(c *gin.Context, err error, notFound string) {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": notFound})
		return
	case errors.Is(err, ErrInvalidTarget), errors.Is(err, ErrInvalidLocation):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	h.Logger.Error("plan store error", zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
}
