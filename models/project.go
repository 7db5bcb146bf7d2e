package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	AnalysisNone       = "none"
	AnalysisQueued     = "queued"
	AnalysisProcessing = "processing"
	AnalysisComplete   = "complete"
	AnalysisFailed     = "failed"
)

type Project struct {
	ID     uint `gorm:"primaryKey" json:"id"`
	UserID uint `gorm:"not null;index" json:"user_id"`
	User   User `gorm:"foreignKey:UserID" json:"-"`

	Title   string `gorm:"not null" json:"title"`
	Logline string `json:"logline"`
	Genre   string `json:"genre"`

	ScriptText     string `gorm:"type:text" json:"-"`
	ScriptFilename string `json:"script_filename"`
	ScriptChars    int    `json:"script_chars"`

	AnalysisStatus string `gorm:"not null;default:none" json:"analysis_status"`

	// Sections of the last analysis kept as returned.
	GeneralInfo       datatypes.JSON `json:"general_info,omitempty"`
	ProductionSummary datatypes.JSON `json:"production_summary,omitempty"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	// Computed, not persisted
	SequenceCount int `gorm:"-" json:"sequence_count"`
}

func (Project) TableName() string {
	return "projects"
}

func (p *Project) HasScript() bool {
	return p.ScriptText != ""
}
