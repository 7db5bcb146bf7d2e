package auth

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/drewmudry/shootplan-api/models"
)

const (
	SessionCookie = "session_token"

	ctxUserID     = "user_id"
	ctxEmail      = "email"
	ctxSession    = "session"
	ctxSessionKey = "session_key"
)

// Middleware authenticates a request with a Bearer JWT or, failing that, the
// session cookie.
func Middleware(db *gorm.DB, tokens *Tokens, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if header := c.GetHeader("Authorization"); strings.HasPrefix(header, "Bearer ") {
			claims, err := tokens.Validate(strings.TrimPrefix(header, "Bearer "))
			if err != nil {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
				return
			}
			c.Set(ctxUserID, claims.UserID)
			c.Set(ctxEmail, claims.Email)
			c.Set(ctxSessionKey, fmt.Sprintf("user:%d", claims.UserID))
			c.Next()
			return
		}

		sessionToken, err := c.Cookie(SessionCookie)
		if err != nil || sessionToken == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "No authentication token provided"})
			return
		}

		var session models.Session
		if err := db.Preload("User").Where("session_token = ?", sessionToken).First(&session).Error; err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired session"})
			return
		}

		if session.IsExpired() {
			if err := db.Delete(&session).Error; err != nil {
				log.Warn("failed to delete expired session", zap.Uint("session_id", session.ID), zap.Error(err))
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Session expired"})
			return
		}

		if err := session.Touch(db); err != nil {
			log.Warn("failed to touch session", zap.Uint("session_id", session.ID), zap.Error(err))
		}

		c.Set(ctxUserID, session.UserID)
		c.Set(ctxEmail, session.User.Email)
		c.Set(ctxSession, &session)
		c.Set(ctxSessionKey, sessionKey(session.ID))
		c.Next()
	}
}

// UserID is the authenticated user of the request.
func UserID(c *gin.Context) uint {
	return c.GetUint(ctxUserID)
}

// SessionKey identifies the client session, for per-session state such as
// an in-flight drag.
func SessionKey(c *gin.Context) string {
	if key := c.GetString(ctxSessionKey); key != "" {
		return key
	}
	return fmt.Sprintf("user:%d", UserID(c))
}

// sessionKey names a cookie session by its row id. The token itself is a
// credential and never used as a key.
func sessionKey(id uint) string {
	return fmt.Sprintf("session:%d", id)
}

// SetUser marks the request as authenticated. Used by tests and internal
// callers that authenticate by other means.
func SetUser(c *gin.Context, userID uint, email string) {
	c.Set(ctxUserID, userID)
	c.Set(ctxEmail, email)
}
