package auth

import (
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

	"github.com/drewmudry/shootplan-api/dragdrop"
	"github.com/drewmudry/shootplan-api/internal/testutil"
	"github.com/drewmudry/shootplan-api/models"
)

func TestTokens_RoundTrip(t *testing.T) {
	tokens := NewTokens("s3cret", time.Hour)

	signed, err := tokens.Generate(42, "ana@example.com")
	require.NoError(t, err)

	claims, err := tokens.Validate(signed)
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.UserID)
	assert.Equal(t, "ana@example.com", claims.Email)

	_, err = NewTokens("other", time.Hour).Validate(signed)
	assert.Error(t, err)
}

func TestTokens_RequireSecret(t *testing.T) {
	_, err := NewTokens("", 0).Generate(1, "x@example.com")
	assert.Error(t, err)
}

func newRouter(t *testing.T) (*gin.Engine, *Tokens, *gorm.DB) {
	db := testutil.NewDB(t)
	tokens := NewTokens("s3cret", time.Hour)

	r := gin.New()
	r.GET("/whoami", Middleware(db, tokens, zap.NewNop()), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": UserID(c), "key": SessionKey(c)})
	})
	return r, tokens, db
}

func TestMiddleware_Bearer(t *testing.T) {
	r, tokens, _ := newRouter(t)
	signed, err := tokens.Generate(7, "a@example.com")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user_id":7,"key":"user:7"}`, w.Body.String())
}

func TestMiddleware_RejectsMissingAndBadCredentials(t *testing.T) {
	r, _, _ := newRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/whoami", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestMiddleware_SessionCookie(t *testing.T) {
	r, _, tdb := newRouter(t)
	user := testutil.CreateUser(t, tdb, "cookie@example.com")

	session, err := models.NewSession(user.ID, "test", "127.0.0.1")
	require.NoError(t, err)
	require.NoError(t, tdb.Create(session).Error)

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: session.SessionToken})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), fmt.Sprintf(`"key":"session:%d"`, session.ID))
	assert.NotContains(t, w.Body.String(), session.SessionToken)
}

func TestMiddleware_ExpiredSessionIsDeleted(t *testing.T) {
	r, _, tdb := newRouter(t)
	user := testutil.CreateUser(t, tdb, "old@example.com")

	session, err := models.NewSession(user.ID, "test", "127.0.0.1")
	require.NoError(t, err)
	session.ExpiresAt = time.Now().Add(-time.Minute)
	require.NoError(t, tdb.Create(session).Error)

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: session.SessionToken})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	var count int64
	tdb.Model(&models.Session{}).Count(&count)
	assert.Zero(t, count)
}

func TestLogout_ForgetsSessionDrag(t *testing.T) {
	db := testutil.NewDB(t)
	user := testutil.CreateUser(t, db, "logout@example.com")
	session, err := models.NewSession(user.ID, "test", "127.0.0.1")
	require.NoError(t, err)
	require.NoError(t, db.Create(session).Error)

	drags := dragdrop.NewRegistry(time.Minute)
	drags.For(fmt.Sprintf("session:%d", session.ID)).StartDrag(dragdrop.DraggedScene{SceneID: 1})
	require.Equal(t, 1, drags.Len())

	h := NewHandler(db, nil, NewTokens("s3cret", time.Hour), drags, zap.NewNop(), "http://localhost:3000")
	r := gin.New()
	r.POST("/logout", h.Logout)

	req := httptest.NewRequest(http.MethodPost, "/logout", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: session.SessionToken})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Zero(t, drags.Len())
	var count int64
	require.NoError(t, db.Model(&models.Session{}).Count(&count).Error)
	assert.Zero(t, count)
}
