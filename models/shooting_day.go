package models

import "time"

// ShootingDay is a proposed day of the shooting plan. Empty days are kept.
type ShootingDay struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	ProjectID  uint       `gorm:"not null;index" json:"project_id"`
	DayNumber  int        `gorm:"not null" json:"day_number"`
	LocationID *uint      `json:"location_id"`
	Location   *Location  `gorm:"foreignKey:LocationID" json:"location,omitempty"`
	TimeOfDay  string     `json:"time_of_day"`
	Notes      string     `gorm:"type:text" json:"notes"`
	Date       *time.Time `json:"date,omitempty"`

	Sequences []Sequence `gorm:"foreignKey:ShootingDayID" json:"sequences,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (ShootingDay) TableName() string {
	return "shooting_days"
}
