package models

import (
	"time"

	"gorm.io/datatypes"

	"github.com/drewmudry/shootplan-api/complexity"
)

// Sequence is one scene of the script breakdown.
type Sequence struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	ProjectID   uint   `gorm:"not null;index" json:"project_id"`
	Number      int    `gorm:"not null" json:"number"`
	Title       string `json:"title"`
	Description string `gorm:"type:text" json:"description"`
	IntExt      string `json:"int_ext"`
	TimeOfDay   string `json:"time_of_day"`

	// Length in eighths of a page.
	Eighths          int  `gorm:"not null;default:1" json:"eighths"`
	EffectiveEighths *int `json:"effective_eighths,omitempty"`

	LocationID *uint       `gorm:"index" json:"location_id"`
	Location   *Location   `gorm:"foreignKey:LocationID" json:"location,omitempty"`
	Characters []Character `gorm:"many2many:sequence_characters" json:"characters,omitempty"`
	StoryDay   *int        `json:"story_day,omitempty"`

	ComplexityFactors  datatypes.JSONType[complexity.Factors] `gorm:"column:complejidad_factores" json:"complexity_factors"`
	ComplexityScore    int                                    `gorm:"not null;default:0" json:"complexity_score"`
	ComplexityCategory string                                 `gorm:"not null;default:baja" json:"complexity_category"`

	// Planning
	ShootingDayID *uint `gorm:"index" json:"shooting_day_id"`
	ShootingOrder int   `gorm:"not null;default:0" json:"shooting_order"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Sequence) TableName() string {
	return "sequences"
}

// Factors returns the complexity factors of the sequence.
func (s *Sequence) Factors() complexity.Factors {
	return s.ComplexityFactors.Data()
}

// SetFactors replaces the factors and recomputes the derived score and category.
func (s *Sequence) SetFactors(f complexity.Factors) {
	s.ComplexityFactors = datatypes.NewJSONType(f)
	s.Rescore()
}

func (s *Sequence) Rescore() {
	s.ComplexityScore = complexity.Score(s.Factors())
	s.ComplexityCategory = string(complexity.CategoryOf(s.ComplexityScore))
}

// PlannedEighths is the override when set, else the script length.
func (s *Sequence) PlannedEighths() int {
	if s.EffectiveEighths != nil {
		return *s.EffectiveEighths
	}
	return s.Eighths
}

func (s *Sequence) CharacterNames() []string {
	names := make([]string, 0, len(s.Characters))
	for _, c := range s.Characters {
		names = append(names, c.Name)
	}
	return names
}
