package auth

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"gorm.io/gorm"

	"github.com/drewmudry/shootplan-api/dragdrop"
	"github.com/drewmudry/shootplan-api/models"
)

const stateCookie = "oauth_state"

type Handler struct {
	DB          *gorm.DB
	GoogleOAuth *GoogleOAuth
	Tokens      *Tokens
	Drags       *dragdrop.Registry
	Logger      *zap.Logger
	FrontendURL string
}

func NewHandler(db *gorm.DB, google *GoogleOAuth, tokens *Tokens, drags *dragdrop.Registry, log *zap.Logger, frontendURL string) *Handler {
	return &Handler{
		DB:          db,
		GoogleOAuth: google,
		Tokens:      tokens,
		Drags:       drags,
		Logger:      log,
		FrontendURL: frontendURL,
	}
}

// InitiateGoogleLogin starts the OAuth flow
func (h *Handler) InitiateGoogleLogin(c *gin.Context) {
	state, err := models.GenerateSessionToken()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start login"})
		return
	}
	c.SetCookie(stateCookie, state, 600, "/", "", false, true)

	c.Redirect(http.StatusTemporaryRedirect, h.GoogleOAuth.Config.AuthCodeURL(state, oauth2.AccessTypeOffline))
}

// GoogleCallback finishes the OAuth flow, opens a session and hands the
// frontend an access token.
func (h *Handler) GoogleCallback(c *gin.Context) {
	storedState, _ := c.Cookie(stateCookie)
	if state := c.Query("state"); state == "" || state != storedState {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid state token"})
		return
	}
	c.SetCookie(stateCookie, "", -1, "/", "", false, true)

	code := c.Query("code")
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No authorization code"})
		return
	}

	googleUser, err := h.GoogleOAuth.GetUserInfo(c.Request.Context(), code)
	if err != nil {
		h.Logger.Warn("google login failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get user info"})
		return
	}

	user, err := h.upsertUser(*googleUser)
	if err != nil {
		h.Logger.Error("failed to store user", zap.String("email", googleUser.Email), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	session, err := models.NewSession(user.ID, c.Request.UserAgent(), c.ClientIP())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create session"})
		return
	}
	if err := h.DB.Create(session).Error; err != nil {
		h.Logger.Error("failed to create session", zap.Uint("user_id", user.ID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create session"})
		return
	}
	c.SetCookie(SessionCookie, session.SessionToken, int(models.SessionTTL.Seconds()), "/", "", false, true)

	token, err := h.Tokens.Generate(user.ID, user.Email)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	h.Logger.Info("user logged in", zap.Uint("user_id", user.ID))
	c.Redirect(http.StatusTemporaryRedirect, fmt.Sprintf("%s/auth/callback?token=%s", h.FrontendURL, url.QueryEscape(token)))
}

func (h *Handler) upsertUser(info models.GoogleUserInfo) (*models.User, error) {
	var user models.User
	err := h.DB.Where("google_id = ?", info.ID).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		created := models.CreateUserFromGoogle(info)
		if err := h.DB.Create(created).Error; err != nil {
			return nil, err
		}
		return created, nil
	}
	if err != nil {
		return nil, err
	}

	now := time.Now()
	user.LastLoginAt = &now
	user.Picture = info.Picture
	user.FullName = info.Name
	if err := h.DB.Save(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// GetCurrentUser returns the authenticated user's info
func (h *Handler) GetCurrentUser(c *gin.Context) {
	var user models.User
	if err := h.DB.First(&user, UserID(c)).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}
	c.JSON(http.StatusOK, user)
}

// Logout ends the cookie session, if any, and drops per-session state.
func (h *Handler) Logout(c *gin.Context) {
	if token, err := c.Cookie(SessionCookie); err == nil && token != "" {
		var session models.Session
		if err := h.DB.Where("session_token = ?", token).First(&session).Error; err == nil {
			if err := h.DB.Delete(&session).Error; err != nil {
				h.Logger.Warn("failed to delete session", zap.Uint("session_id", session.ID), zap.Error(err))
			}
			h.Drags.Forget(sessionKey(session.ID))
		}
	}
	c.SetCookie(SessionCookie, "", -1, "/", "", false, true)
	c.SetCookie(stateCookie, "", -1, "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{"message": "Logged out successfully"})
}
