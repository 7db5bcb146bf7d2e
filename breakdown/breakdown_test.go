package breakdown

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/drewmudry/shootplan-api/complexity"
	"github.com/drewmudry/shootplan-api/internal/testutil"
	"github.com/drewmudry/shootplan-api/models"
	"github.com/drewmudry/shootplan-api/planning"
	"github.com/drewmudry/shootplan-api/projects"
)

type env struct {
	db      *gorm.DB
	router  *gin.Engine
	project *models.Project
	base    string
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db := testutil.NewDB(t)
	user := testutil.CreateUser(t, db, "ad@example.com")
	project := testutil.CreateProject(t, db, user.ID, "El faro")

	h := NewHandler(db, zap.NewNop())
	r := gin.New()
	r.Use(testutil.AsUser(user.ID))
	p := r.Group("/projects/:id", projects.RequireProject(db))
	p.GET("/sequences", h.ListSequences)
	p.POST("/sequences", h.CreateSequence)
	p.PUT("/sequences/:seq", h.UpdateSequence)
	p.DELETE("/sequences/:seq", h.DeleteSequence)
	p.PUT("/sequences/:seq/complexity", h.UpdateComplexity)
	p.GET("/complexity", h.GetComplexity)
	p.GET("/locations", h.ListLocations)
	p.POST("/locations", h.CreateLocation)
	p.DELETE("/locations/:loc", h.DeleteLocation)
	p.GET("/characters", h.ListCharacters)
	p.POST("/characters", h.CreateCharacter)
	p.DELETE("/characters/:char", h.DeleteCharacter)

	return &env{db: db, router: r, project: project, base: fmt.Sprintf("/projects/%d", project.ID)}
}

func (e *env) do(method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, e.base+path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *env) create(t *testing.T, path string, body interface{}, out interface{}) {
	t.Helper()
	w := e.do(http.MethodPost, path, body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), out))
}

func TestSequenceLifecycle(t *testing.T) {
	e := newEnv(t)

	var loc models.Location
	e.create(t, "/locations", gin.H{"name": "faro", "type": "EXT"}, &loc)
	assert.Equal(t, "FARO", loc.Name)

	var marta, pablo models.Character
	e.create(t, "/characters", gin.H{"name": "Marta"}, &marta)
	e.create(t, "/characters", gin.H{"name": "Pablo"}, &pablo)

	var seq models.Sequence
	e.create(t, "/sequences", gin.H{
		"number":        1,
		"title":         "EXT. FARO - NOCHE",
		"time_of_day":   "noche",
		"eighths":       3,
		"location_id":   loc.ID,
		"character_ids": []uint{marta.ID, pablo.ID},
	}, &seq)
	assert.Equal(t, planning.TimeOfDayNight, seq.TimeOfDay)
	assert.Equal(t, string(complexity.CategoryLow), seq.ComplexityCategory)
	assert.Len(t, seq.Characters, 2)

	w := e.do(http.MethodPut, fmt.Sprintf("/sequences/%d", seq.ID), gin.H{
		"number":            2,
		"title":             "EXT. FARO - NOCHE",
		"eighths":           4,
		"effective_eighths": 6,
		"character_ids":     []uint{pablo.ID},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var stored models.Sequence
	require.NoError(t, e.db.Preload("Characters").First(&stored, seq.ID).Error)
	assert.Equal(t, 2, stored.Number)
	assert.Equal(t, 6, stored.PlannedEighths())
	assert.Nil(t, stored.LocationID)
	assert.Equal(t, []string{"PABLO"}, stored.CharacterNames())

	w = e.do(http.MethodGet, "/sequences", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list []models.Sequence
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Len(t, list, 1)

	w = e.do(http.MethodDelete, fmt.Sprintf("/sequences/%d", seq.ID), nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	var joins int64
	e.db.Table("sequence_characters").Count(&joins)
	assert.Zero(t, joins)
}

func TestCreateSequence_LocationLookupFailure(t *testing.T) {
	e := newEnv(t)
	require.NoError(t, e.db.Migrator().DropTable(&models.Location{}))

	w := e.do(http.MethodPost, "/sequences", gin.H{"number": 1, "title": "X", "eighths": 1, "location_id": 1})
	assert.Equal(t, http.StatusInternalServerError, w.Code, w.Body.String())
}

func TestCreateSequenceValidation(t *testing.T) {
	e := newEnv(t)

	tests := []struct {
		name string
		body gin.H
		code int
	}{
		{"zero eighths", gin.H{"number": 1, "title": "X", "eighths": 0}, http.StatusBadRequest},
		{"bad time of day", gin.H{"number": 1, "title": "X", "eighths": 1, "time_of_day": "MEDIODÍA"}, http.StatusBadRequest},
		{"foreign location", gin.H{"number": 1, "title": "X", "eighths": 1, "location_id": 999}, http.StatusUnprocessableEntity},
		{"foreign character", gin.H{"number": 1, "title": "X", "eighths": 1, "character_ids": []uint{999}}, http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := e.do(http.MethodPost, "/sequences", tt.body)
			assert.Equal(t, tt.code, w.Code, w.Body.String())
		})
	}
}

func TestUpdateComplexity(t *testing.T) {
	e := newEnv(t)
	var seq models.Sequence
	e.create(t, "/sequences", gin.H{"number": 1, "title": "EXT. AUTOPISTA - DÍA", "eighths": 8}, &seq)

	w := e.do(http.MethodPut, fmt.Sprintf("/sequences/%d/complexity", seq.ID), gin.H{
		"stunts":          true,
		"moving_vehicles": true,
		"special_effects": true,
		"num_characters":  4,
		"num_extras":      12,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var body struct {
		Evaluation complexity.Evaluation `json:"evaluation"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 12+8+8+4+2, body.Evaluation.Score)
	assert.Equal(t, complexity.CategoryHigh, body.Evaluation.Category)

	var stored models.Sequence
	require.NoError(t, e.db.First(&stored, seq.ID).Error)
	assert.Equal(t, 34, stored.ComplexityScore)
	assert.Equal(t, string(complexity.CategoryHigh), stored.ComplexityCategory)
	assert.True(t, stored.Factors().Stunts)
	assert.Equal(t, 12, stored.Factors().NumExtras)

	w = e.do(http.MethodPut, fmt.Sprintf("/sequences/%d/complexity", seq.ID), gin.H{"num_extras": -1})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.do(http.MethodPut, "/sequences/999/complexity", gin.H{})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetComplexityReport(t *testing.T) {
	e := newEnv(t)
	var a, b models.Sequence
	e.create(t, "/sequences", gin.H{"number": 1, "title": "A", "eighths": 1}, &a)
	e.create(t, "/sequences", gin.H{
		"number":             2,
		"title":              "B",
		"eighths":            1,
		"complexity_factors": gin.H{"night_scene": true, "crane_required": true, "complex_lighting": true},
	}, &b)

	w := e.do(http.MethodGet, "/complexity", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var report ComplexityReport
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))

	require.Len(t, report.Sequences, 2)
	assert.Equal(t, 12, report.Sequences[1].Evaluation.Score)
	assert.Equal(t, 1, report.ByCategory[complexity.CategoryLow])
	assert.Equal(t, 1, report.ByCategory[complexity.CategoryMedium])
	assert.InDelta(t, 6.0, report.AverageScore, 0.001)
	assert.Equal(t, 15+30+20, report.TotalExtraMinutes)
}

func TestDeleteLocationAndCharacter(t *testing.T) {
	e := newEnv(t)
	var loc models.Location
	e.create(t, "/locations", gin.H{"name": "Cocina", "type": "INT"}, &loc)
	var ch models.Character
	e.create(t, "/characters", gin.H{"name": "Marta"}, &ch)
	var seq models.Sequence
	e.create(t, "/sequences", gin.H{"number": 1, "title": "INT. COCINA - DÍA", "eighths": 2, "location_id": loc.ID, "character_ids": []uint{ch.ID}}, &seq)

	assert.Equal(t, http.StatusNoContent, e.do(http.MethodDelete, fmt.Sprintf("/locations/%d", loc.ID), nil).Code)
	assert.Equal(t, http.StatusNoContent, e.do(http.MethodDelete, fmt.Sprintf("/characters/%d", ch.ID), nil).Code)
	assert.Equal(t, http.StatusNotFound, e.do(http.MethodDelete, fmt.Sprintf("/characters/%d", ch.ID), nil).Code)

	var stored models.Sequence
	require.NoError(t, e.db.Preload("Characters").First(&stored, seq.ID).Error)
	assert.Nil(t, stored.LocationID)
	assert.Empty(t, stored.Characters)

	w := e.do(http.MethodGet, "/locations", nil)
	assert.JSONEq(t, `[]`, w.Body.String())
}
