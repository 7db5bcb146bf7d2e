package models

import (
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// DefaultFreeAnalyses is the number of script analyses a new account gets
// before a subscription is required.
const DefaultFreeAnalyses = 2

type User struct {
	ID uint `gorm:"primaryKey" json:"id"`

	// Google OAuth fields
	GoogleID      string `gorm:"uniqueIndex;not null" json:"google_id"`
	Email         string `gorm:"uniqueIndex;not null" json:"email"`
	EmailVerified bool   `gorm:"default:false" json:"email_verified"`

	// Profile from Google
	FullName   string `json:"full_name"`
	GivenName  string `json:"given_name"`
	FamilyName string `json:"family_name"`
	Picture    string `json:"picture"`
	Locale     string `json:"locale"`

	IsActive bool `gorm:"default:true" json:"is_active"`

	// Stripe/Subscription fields
	StripeCustomerID   *string    `gorm:"uniqueIndex" json:"stripe_customer_id,omitempty"`
	SubscriptionStatus string     `gorm:"default:free" json:"subscription_status"`
	SubscriptionEndsAt *time.Time `json:"subscription_ends_at,omitempty"`

	FreeAnalysesRemaining int `gorm:"not null;default:2" json:"free_analyses_remaining"`

	// Timestamps
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	LastLoginAt *time.Time     `json:"last_login_at,omitempty"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName overrides the table name
func (User) TableName() string {
	return "users"
}

// Helper methods
func (u *User) IsSubscribed() bool {
	if u.SubscriptionStatus != "active" && u.SubscriptionStatus != "trial" {
		return false
	}
	if u.SubscriptionEndsAt != nil && u.SubscriptionEndsAt.Before(time.Now()) {
		return false
	}
	return true
}

// CanAnalyze reports whether the user may start another paid script analysis.
func (u *User) CanAnalyze() bool {
	return u.IsSubscribed() || u.FreeAnalysesRemaining > 0
}

// ChargeAnalysis uses up one free analysis unless the user is subscribed.
func ChargeAnalysis(tx *gorm.DB, userID uint) error {
	var user User
	if err := tx.First(&user, userID).Error; err != nil {
		return errors.Wrap(err, "load user")
	}
	if user.IsSubscribed() {
		return nil
	}
	return tx.Model(&User{}).
		Where("id = ? AND free_analyses_remaining > 0", userID).
		Update("free_analyses_remaining", gorm.Expr("free_analyses_remaining - 1")).Error
}

type GoogleUserInfo struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	VerifiedEmail bool   `json:"verified_email"`
	Name          string `json:"name"`
	GivenName     string `json:"given_name"`
	FamilyName    string `json:"family_name"`
	Picture       string `json:"picture"`
	Locale        string `json:"locale"`
}

// CreateUserFromGoogle creates a new user from Google OAuth data
func CreateUserFromGoogle(info GoogleUserInfo) *User {
	now := time.Now()
	return &User{
		GoogleID:              info.ID,
		Email:                 info.Email,
		EmailVerified:         info.VerifiedEmail,
		FullName:              info.Name,
		GivenName:             info.GivenName,
		FamilyName:            info.FamilyName,
		Picture:               info.Picture,
		Locale:                info.Locale,
		IsActive:              true,
		FreeAnalysesRemaining: DefaultFreeAnalyses,
		LastLoginAt:           &now,
	}
}
