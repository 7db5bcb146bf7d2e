package stripe

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/drewmudry/shootplan-api/auth"
	"github.com/drewmudry/shootplan-api/models"
)

type Handler struct {
	DB          *gorm.DB
	Stripe      *client.API
	PriceID     string
	FrontendURL string
	Logger      *zap.Logger
}

// NewHandler creates a billing handler. A nil backends uses the live Stripe API.
func NewHandler(db *gorm.DB, secretKey, priceID, frontendURL string, backends *stripe.Backends, log *zap.Logger) *Handler {
	return &Handler{
		DB:          db,
		Stripe:      client.New(secretKey, backends),
		PriceID:     priceID,
		FrontendURL: frontendURL,
		Logger:      log,
	}
}

// CreateCheckoutSession starts a subscription checkout for the current user,
// creating the Stripe customer on first use.
func (h *Handler) CreateCheckoutSession(c *gin.Context) {
	if h.PriceID == "" {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Billing is not configured"})
		return
	}

	var user models.User
	if err := h.DB.WithContext(c.Request.Context()).First(&user, auth.UserID(c)).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}
	if user.IsSubscribed() {
		c.JSON(http.StatusConflict, gin.H{"error": "Already subscribed"})
		return
	}

	if user.StripeCustomerID == nil || *user.StripeCustomerID == "" {
		params := &stripe.CustomerParams{Email: stripe.String(user.Email)}
		params.AddMetadata("user_id", fmt.Sprintf("%d", user.ID))
		cust, err := h.Stripe.Customers.New(params)
		if err != nil {
			h.Logger.Error("failed to create stripe customer", zap.Uint("user_id", user.ID), zap.Error(err))
			c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to create Stripe customer"})
			return
		}
		user.StripeCustomerID = &cust.ID
		if err := h.DB.WithContext(c.Request.Context()).Model(&user).Update("stripe_customer_id", cust.ID).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save Stripe customer"})
			return
		}
	}

	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		Customer:          user.StripeCustomerID,
		ClientReferenceID: stripe.String(fmt.Sprintf("%d", user.ID)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{Price: stripe.String(h.PriceID), Quantity: stripe.Int64(1)},
		},
		SuccessURL: stripe.String(h.FrontendURL + "/billing/success?session_id={CHECKOUT_SESSION_ID}"),
		CancelURL:  stripe.String(h.FrontendURL + "/billing"),
	}
	sess, err := h.Stripe.CheckoutSessions.New(params)
	if err != nil {
		h.Logger.Error("failed to create checkout session", zap.Uint("user_id", user.ID), zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to create checkout session"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"checkout_url": sess.URL,
		"session_id":   sess.ID,
	})
}

// GetStatus reports the subscription state and the free analyses left.
func (h *Handler) GetStatus(c *gin.Context) {
	var user models.User
	if err := h.DB.WithContext(c.Request.Context()).First(&user, auth.UserID(c)).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"subscription_status":     user.SubscriptionStatus,
		"subscribed":              user.IsSubscribed(),
		"subscription_ends_at":    user.SubscriptionEndsAt,
		"free_analyses_remaining": user.FreeAnalysesRemaining,
		"can_analyze":             user.CanAnalyze(),
	})
}
