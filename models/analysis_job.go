package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	JobQueued     = "queued"
	JobProcessing = "processing"
	JobComplete   = "complete"
	JobFailed     = "failed"
)

// AnalysisJob tracks one asynchronous script analysis.
type AnalysisJob struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ProjectID uint      `gorm:"not null;index" json:"project_id"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	Status    string    `gorm:"not null;default:queued;index" json:"status"`
	Truncate  bool      `json:"truncate"`
	Attempt   int       `json:"attempt"`
	Progress  string    `json:"progress"`

	ErrorKind       string `json:"error_kind,omitempty"`
	ErrorMessage    string `json:"error,omitempty"`
	Suggestion      string `json:"suggestion,omitempty"`
	PrimaryAction   string `json:"primary_action,omitempty"`
	SecondaryAction string `json:"secondary_action,omitempty"`

	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

func (AnalysisJob) TableName() string {
	return "analysis_jobs"
}

func (j *AnalysisJob) BeforeCreate(tx *gorm.DB) error {
	if j.ID == uuid.Nil {
		j.ID = uuid.New()
	}
	return nil
}

func (j *AnalysisJob) IsFinished() bool {
	return j.Status == JobComplete || j.Status == JobFailed
}
