package models

import "time"

const (
	FestivalPlanned   = "planned"
	FestivalSubmitted = "submitted"
	FestivalAccepted  = "accepted"
	FestivalRejected  = "rejected"
	FestivalExpired   = "expired"
)

// FestivalApplication tracks a festival submission or a grant application.
type FestivalApplication struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	ProjectID uint       `gorm:"not null;index" json:"project_id"`
	Name      string     `gorm:"not null" json:"name"`
	Kind      string     `gorm:"not null;default:festival" json:"kind"` // festival or grant
	Deadline  *time.Time `gorm:"index" json:"deadline,omitempty"`
	Status    string     `gorm:"not null;default:planned" json:"status"`
	FeeCents  int64      `json:"fee_cents"`
	URL       string     `json:"url"`
	Notes     string     `gorm:"type:text" json:"notes"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

func (FestivalApplication) TableName() string {
	return "festival_applications"
}

// IsOpen reports whether the application can still be submitted.
func (f *FestivalApplication) IsOpen(now time.Time) bool {
	if f.Status != FestivalPlanned {
		return false
	}
	return f.Deadline == nil || !f.Deadline.Before(now)
}
