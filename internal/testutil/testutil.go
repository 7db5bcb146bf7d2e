// Package testutil builds throwaway stores for package tests.
package testutil

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/drewmudry/shootplan-api/models"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// NewDB opens an in-memory SQLite database with every model migrated. The
// pool is limited to one connection so the database outlives each query.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(models.All()...))
	return db
}

// NewRedis starts a miniredis server and returns a client connected to it.
func NewRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb, mr
}

// CreateUser stores a user with the given email and free analyses.
func CreateUser(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()
	u := models.User{
		GoogleID:              "g-" + email,
		Email:                 email,
		SubscriptionStatus:    "free",
		FreeAnalysesRemaining: models.DefaultFreeAnalyses,
		IsActive:              true,
	}
	require.NoError(t, db.Create(&u).Error)
	return &u
}

// CreateProject stores a project owned by userID.
func CreateProject(t *testing.T, db *gorm.DB, userID uint, title string) *models.Project {
	t.Helper()
	p := models.Project{UserID: userID, Title: title, AnalysisStatus: models.AnalysisNone}
	require.NoError(t, db.Create(&p).Error)
	return &p
}

// AsUser is a middleware that authenticates every request as userID.
func AsUser(userID uint) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("user_id", userID)
		c.Next()
	}
}
