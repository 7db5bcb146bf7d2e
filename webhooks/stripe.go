package webhooks

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/webhook"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/drewmudry/shootplan-api/models"
)

type Handler struct {
	DB     *gorm.DB
	Secret string
	Logger *zap.Logger
}

func NewHandler(db *gorm.DB, secret string, log *zap.Logger) *Handler {
	return &Handler{DB: db, Secret: secret, Logger: log}
}

// HandleStripeWebhook verifies the signature and applies subscription events
// to the matching user.
func (h *Handler) HandleStripeWebhook(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, 1<<20))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	event, err := webhook.ConstructEventWithOptions(payload, c.GetHeader("Stripe-Signature"), h.Secret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		h.Logger.Warn("rejected stripe webhook", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid webhook signature"})
		return
	}

	switch event.Type {
	case "checkout.session.completed":
		err = h.handleCheckoutCompleted(event)
	case "customer.subscription.created", "customer.subscription.updated", "customer.subscription.deleted":
		err = h.handleSubscription(event)
	default:
		h.Logger.Debug("unhandled stripe event", zap.String("type", string(event.Type)))
	}
	if err != nil {
		h.Logger.Error("failed to apply stripe event", zap.String("type", string(event.Type)), zap.String("event_id", event.ID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process event"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}

// handleCheckoutCompleted links the Stripe customer to the user named by the
// session's client reference id and activates the subscription.
func (h *Handler) handleCheckoutCompleted(event stripe.Event) error {
	var sess stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		return err
	}
	userID, err := strconv.ParseUint(sess.ClientReferenceID, 10, 64)
	if err != nil {
		h.Logger.Warn("checkout session without user reference", zap.String("session_id", sess.ID))
		return nil
	}

	updates := map[string]interface{}{"subscription_status": "active"}
	if sess.Customer != nil && sess.Customer.ID != "" {
		updates["stripe_customer_id"] = sess.Customer.ID
	}
	return h.DB.Model(&models.User{}).Where("id = ?", userID).Updates(updates).Error
}

func (h *Handler) handleSubscription(event stripe.Event) error {
	var sub stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
		return err
	}
	if sub.Customer == nil || sub.Customer.ID == "" {
		return nil
	}

	var user models.User
	if err := h.DB.Where("stripe_customer_id = ?", sub.Customer.ID).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			h.Logger.Warn("subscription for unknown customer", zap.String("customer_id", sub.Customer.ID))
			return nil
		}
		return err
	}

	updates := map[string]interface{}{"subscription_status": subscriptionStatus(sub.Status)}
	if sub.CurrentPeriodEnd > 0 {
		updates["subscription_ends_at"] = time.Unix(sub.CurrentPeriodEnd, 0).UTC()
	}
	h.Logger.Info("subscription updated",
		zap.Uint("user_id", user.ID),
		zap.String("status", string(sub.Status)))
	return h.DB.Model(&user).Updates(updates).Error
}

// subscriptionStatus maps a Stripe status onto the user's subscription status.
func subscriptionStatus(s stripe.SubscriptionStatus) string {
	switch s {
	case stripe.SubscriptionStatusActive:
		return "active"
	case stripe.SubscriptionStatusTrialing:
		return "trial"
	case stripe.SubscriptionStatusPastDue, stripe.SubscriptionStatusUnpaid:
		return "past_due"
	case stripe.SubscriptionStatusCanceled, stripe.SubscriptionStatusIncompleteExpired:
		return "canceled"
	default:
		return "free"
	}
}
