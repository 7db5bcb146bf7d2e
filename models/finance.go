package models

import (
	"time"

	"gorm.io/datatypes"
)

const (
	FinancingProspect  = "prospect"
	FinancingCommitted = "committed"
	FinancingReceived  = "received"
)

// BudgetLine is one costed concept of the production budget.
type BudgetLine struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	ProjectID     uint      `gorm:"not null;index" json:"project_id"`
	Category      string    `gorm:"not null;index" json:"category"`
	Concept       string    `gorm:"not null" json:"concept"`
	Units         int       `gorm:"not null;default:1" json:"units"`
	UnitCostCents int64     `gorm:"not null;default:0" json:"unit_cost_cents"`
	Notes         string    `gorm:"type:text" json:"notes"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (BudgetLine) TableName() string {
	return "budget_lines"
}

func (b *BudgetLine) TotalCents() int64 {
	return int64(b.Units) * b.UnitCostCents
}

// FinancingSource is money raised, or being sought, for a project.
type FinancingSource struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	ProjectID   uint       `gorm:"not null;index" json:"project_id"`
	Name        string     `gorm:"not null" json:"name"`
	Kind        string     `gorm:"not null" json:"kind"` // public, private, own, coproduction, presale
	AmountCents int64      `gorm:"not null;default:0" json:"amount_cents"`
	Status      string     `gorm:"not null;default:prospect" json:"status"`
	ExpectedAt  *time.Time `json:"expected_at,omitempty"`
	Notes       string     `gorm:"type:text" json:"notes"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (FinancingSource) TableName() string {
	return "financing_sources"
}

// Audience is a target audience segment for distribution and marketing.
type Audience struct {
	ID          uint                         `gorm:"primaryKey" json:"id"`
	ProjectID   uint                         `gorm:"not null;index" json:"project_id"`
	Name        string                       `gorm:"not null" json:"name"`
	Description string                       `gorm:"type:text" json:"description"`
	AgeMin      *int                         `json:"age_min,omitempty"`
	AgeMax      *int                         `json:"age_max,omitempty"`
	Channels    datatypes.JSONType[[]string] `json:"channels"`
	Priority    int                          `gorm:"not null;default:3" json:"priority"` // 1 highest
	CreatedAt   time.Time                    `json:"created_at"`
	UpdatedAt   time.Time                    `json:"updated_at"`
}

func (Audience) TableName() string {
	return "audiences"
}
