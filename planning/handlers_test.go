package planning

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/drewmudry/shootplan-api/dragdrop"
	"github.com/drewmudry/shootplan-api/internal/testutil"
	"github.com/drewmudry/shootplan-api/models"
	"github.com/drewmudry/shootplan-api/projects"
)

type api struct {
	*fixture
	router *gin.Engine
	drags  *dragdrop.Registry
	base   string
}

func newAPI(t *testing.T) *api {
	t.Helper()
	f := newFixture(t)
	drags := dragdrop.NewRegistry(time.Minute)
	h := NewHandler(f.db, drags, zap.NewNop())

	r := gin.New()
	r.Use(testutil.AsUser(f.project.UserID))
	p := r.Group("/projects/:id", projects.RequireProject(f.db))
	p.GET("/plan", h.GetPlan)
	p.GET("/plan/unassigned", h.GetUnassigned)
	p.POST("/plan/days", h.CreateDay)
	p.PUT("/plan/days/:day", h.UpdateDay)
	p.DELETE("/plan/days/:day", h.DeleteDay)
	p.POST("/plan/drag", h.StartDrag)
	p.GET("/plan/drag", h.GetDrag)
	p.DELETE("/plan/drag", h.EndDrag)
	p.POST("/plan/drop", h.Drop)

	return &api{fixture: f, router: r, drags: drags, base: fmt.Sprintf("/projects/%d/plan", f.project.ID)}
}

func (a *api) do(method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, a.base+path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v))
}

func (a *api) createDay(t *testing.T, body interface{}) models.ShootingDay {
	t.Helper()
	w := a.do(http.MethodPost, "/days", body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var day models.ShootingDay
	decode(t, w, &day)
	return day
}

func TestHandler_DragAndDropIntoDay(t *testing.T) {
	a := newAPI(t)
	day := a.createDay(t, gin.H{"time_of_day": TimeOfDayNight})

	w := a.do(http.MethodPost, "/drag", gin.H{"sequence_id": a.seqs[0].ID})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var started struct {
		Dragging bool                 `json:"dragging"`
		Replaced bool                 `json:"replaced"`
		Scene    dragdrop.DraggedScene `json:"scene"`
	}
	decode(t, w, &started)
	assert.True(t, started.Dragging)
	assert.False(t, started.Replaced)
	assert.Equal(t, []string{"MARTA"}, started.Scene.CharacterNames)
	assert.Nil(t, started.Scene.OriginDayID)

	w = a.do(http.MethodGet, "/drag", nil)
	assert.Contains(t, w.Body.String(), `"dragging":true`)

	w = a.do(http.MethodPost, "/drop", gin.H{"day_id": day.ID})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var res ReassignResult
	decode(t, w, &res)
	require.NotNil(t, res.Sequence.ShootingDayID)
	assert.Equal(t, day.ID, *res.Sequence.ShootingDayID)

	w = a.do(http.MethodGet, "/drag", nil)
	assert.JSONEq(t, `{"dragging":false}`, w.Body.String())

	w = a.do(http.MethodGet, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var plan PlanResponse
	decode(t, w, &plan)
	require.Len(t, plan.Days, 1)
	require.Len(t, plan.Days[0].Scenes, 1)
	assert.Equal(t, a.seqs[0].ID, plan.Days[0].Scenes[0].ID)
	assert.Len(t, plan.Unassigned, 3)
	assert.Equal(t, 1, plan.Stats.ScheduledScenes)
	assert.Equal(t, 1, plan.Stats.NightCount)
}

func TestHandler_DropToNewDay(t *testing.T) {
	a := newAPI(t)

	a.do(http.MethodPost, "/drag", gin.H{"sequence_id": a.seqs[1].ID})
	w := a.do(http.MethodPost, "/drop", gin.H{"new_day": gin.H{"time_of_day": TimeOfDayDay, "notes": "cocina"}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var res ReassignResult
	decode(t, w, &res)
	assert.True(t, res.CreatedDay)
	require.NotNil(t, res.Day)
	assert.Equal(t, "cocina", res.Day.Notes)
}

func TestHandler_DropWithoutDragConflicts(t *testing.T) {
	a := newAPI(t)
	w := a.do(http.MethodPost, "/drop", gin.H{})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestHandler_FailedDropEndsDrag(t *testing.T) {
	a := newAPI(t)
	a.do(http.MethodPost, "/drag", gin.H{"sequence_id": a.seqs[0].ID})

	missing := uint(9999)
	w := a.do(http.MethodPost, "/drop", gin.H{"day_id": missing})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = a.do(http.MethodGet, "/drag", nil)
	assert.JSONEq(t, `{"dragging":false}`, w.Body.String())

	var seq models.Sequence
	require.NoError(t, a.db.First(&seq, a.seqs[0].ID).Error)
	assert.Nil(t, seq.ShootingDayID)
}

func TestHandler_StartDragReportsReplacement(t *testing.T) {
	a := newAPI(t)
	a.do(http.MethodPost, "/drag", gin.H{"sequence_id": a.seqs[0].ID})
	w := a.do(http.MethodPost, "/drag", gin.H{"sequence_id": a.seqs[1].ID})
	assert.Contains(t, w.Body.String(), `"replaced":true`)

	w = a.do(http.MethodDelete, "/drag", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = a.do(http.MethodDelete, "/drag", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestHandler_StartDragUnknownSequence(t *testing.T) {
	a := newAPI(t)
	w := a.do(http.MethodPost, "/drag", gin.H{"sequence_id": 9999})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = a.do(http.MethodPost, "/drag", gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandler_UnassignedFilters(t *testing.T) {
	a := newAPI(t)

	w := a.do(http.MethodGet, "/unassigned?location=playa&time_of_day=all", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var scenes []Scene
	decode(t, w, &scenes)
	require.Len(t, scenes, 1)
	assert.Equal(t, a.seqs[2].ID, scenes[0].ID)

	w = a.do(http.MethodGet, "/unassigned?time_of_day="+TimeOfDayNight, nil)
	decode(t, w, &scenes)
	require.Len(t, scenes, 1)
	assert.Equal(t, a.seqs[0].ID, scenes[0].ID)
}

func TestHandler_DayCRUD(t *testing.T) {
	a := newAPI(t)
	day := a.createDay(t, gin.H{})
	assert.Equal(t, 1, day.DayNumber)

	w := a.do(http.MethodPost, "/days", gin.H{"time_of_day": "MEDIODÍA"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = a.do(http.MethodPut, fmt.Sprintf("/days/%d", day.ID), gin.H{"day_number": 3, "notes": "exteriores"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var updated models.ShootingDay
	decode(t, w, &updated)
	assert.Equal(t, 3, updated.DayNumber)
	assert.Equal(t, "exteriores", updated.Notes)

	w = a.do(http.MethodPut, "/days/abc", gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = a.do(http.MethodDelete, fmt.Sprintf("/days/%d", day.ID), nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = a.do(http.MethodDelete, fmt.Sprintf("/days/%d", day.ID), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandler_DragIsPerUser(t *testing.T) {
	a := newAPI(t)
	a.do(http.MethodPost, "/drag", gin.H{"sequence_id": a.seqs[0].ID})

	assert.True(t, a.drags.For(fmt.Sprintf("user:%d", a.project.UserID)).IsDragging())
	assert.False(t, a.drags.For("user:0").IsDragging())
}

func TestHandler_DayLocationMustBelongToProject(t *testing.T) {
	a := newAPI(t)

	other := testutil.CreateUser(t, a.db, "rival@example.com")
	otherProject := testutil.CreateProject(t, a.db, other.ID, "Otro")
	foreign := models.Location{ProjectID: otherProject.ID, Name: "ESTUDIO"}
	require.NoError(t, a.db.Create(&foreign).Error)
	own := models.Location{ProjectID: a.project.ID, Name: "FARO"}
	require.NoError(t, a.db.Create(&own).Error)

	w := a.do(http.MethodPost, "/days", gin.H{"location_id": foreign.ID})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code, w.Body.String())

	day := a.createDay(t, gin.H{"location_id": own.ID})
	require.NotNil(t, day.LocationID)
	assert.Equal(t, own.ID, *day.LocationID)

	w = a.do(http.MethodPut, fmt.Sprintf("/days/%d", day.ID), gin.H{"location_id": foreign.ID})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code, w.Body.String())

	a.do(http.MethodPost, "/drag", gin.H{"sequence_id": a.seqs[1].ID})
	w = a.do(http.MethodPost, "/drop", gin.H{"new_day": gin.H{"location_id": foreign.ID}})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code, w.Body.String())
	assert.False(t, a.drags.For(fmt.Sprintf("user:%d", a.project.UserID)).IsDragging())

	var count int64
	require.NoError(t, a.db.Model(&models.ShootingDay{}).Where("location_id = ?", foreign.ID).Count(&count).Error)
	assert.Zero(t, count)
	var seq models.Sequence
	require.NoError(t, a.db.First(&seq, a.seqs[1].ID).Error)
	assert.Nil(t, seq.ShootingDayID)
}
