package festivals

import (
	"bytes"
	"context"
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
	"gorm.io/gorm"

	"github.com/drewmudry/shootplan-api/internal/testutil"
	"github.com/drewmudry/shootplan-api/models"
	"github.com/drewmudry/shootplan-api/projects"
)

func setup(t *testing.T) (*gorm.DB, *gin.Engine, *models.Project) {
	t.Helper()
	db := testutil.NewDB(t)
	user := testutil.CreateUser(t, db, "prod@example.com")
	project := testutil.CreateProject(t, db, user.ID, "El faro")

	h := NewHandler(db, zap.NewNop())
	r := gin.New()
	r.Use(testutil.AsUser(user.ID))
	p := r.Group("/projects/:id", projects.RequireProject(db))
	p.GET("/festivals", h.List)
	p.POST("/festivals", h.Create)
	p.PUT("/festivals/:app", h.Update)
	p.DELETE("/festivals/:app", h.Delete)
	return db, r, project
}

func request(r *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestApplicationCRUD(t *testing.T) {
	_, r, project := setup(t)
	base := fmt.Sprintf("/projects/%d/festivals", project.ID)

	deadline := time.Date(2026, 11, 30, 0, 0, 0, 0, time.UTC)
	w := request(r, http.MethodPost, base, gin.H{"name": "Festival de Málaga", "deadline": deadline, "fee_cents": 3500})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var app models.FestivalApplication
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &app))
	assert.Equal(t, KindFestival, app.Kind)
	assert.Equal(t, models.FestivalPlanned, app.Status)

	w = request(r, http.MethodPost, base, gin.H{"name": "Ayuda ICAA", "kind": "grant"})
	require.Equal(t, http.StatusCreated, w.Code)

	w = request(r, http.MethodGet, base+"?kind=grant", nil)
	var grants []models.FestivalApplication
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &grants))
	require.Len(t, grants, 1)
	assert.Equal(t, "Ayuda ICAA", grants[0].Name)

	w = request(r, http.MethodPut, fmt.Sprintf("%s/%d", base, app.ID), gin.H{"name": "Festival de Málaga", "status": "submitted"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &app))
	assert.Equal(t, models.FestivalSubmitted, app.Status)

	w = request(r, http.MethodDelete, fmt.Sprintf("%s/%d", base, app.ID), nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = request(r, http.MethodDelete, fmt.Sprintf("%s/%d", base, app.ID), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateValidation(t *testing.T) {
	_, r, project := setup(t)
	base := fmt.Sprintf("/projects/%d/festivals", project.ID)

	assert.Equal(t, http.StatusBadRequest, request(r, http.MethodPost, base, gin.H{"kind": "grant"}).Code)
	assert.Equal(t, http.StatusBadRequest, request(r, http.MethodPost, base, gin.H{"name": "X", "kind": "award"}).Code)
	assert.Equal(t, http.StatusBadRequest, request(r, http.MethodPost, base, gin.H{"name": "X", "fee_cents": -1}).Code)
}

func TestExpireOverdue(t *testing.T) {
	db, _, project := setup(t)
	now := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	past := now.Add(-24 * time.Hour)
	future := now.Add(24 * time.Hour)

	apps := []models.FestivalApplication{
		{ProjectID: project.ID, Name: "vencido", Status: models.FestivalPlanned, Deadline: &past},
		{ProjectID: project.ID, Name: "abierto", Status: models.FestivalPlanned, Deadline: &future},
		{ProjectID: project.ID, Name: "enviado", Status: models.FestivalSubmitted, Deadline: &past},
		{ProjectID: project.ID, Name: "sin fecha", Status: models.FestivalPlanned},
	}
	require.NoError(t, db.Create(&apps).Error)

	n, err := ExpireOverdue(context.Background(), db, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	var expired models.FestivalApplication
	require.NoError(t, db.First(&expired, apps[0].ID).Error)
	assert.Equal(t, models.FestivalExpired, expired.Status)
	assert.False(t, expired.IsOpen(now))
}
