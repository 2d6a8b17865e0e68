package models

import (
	"time"

	"gorm.io/datatypes"
)

// JobStatus defines the status of a generation job
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// GenerationJob tracks the background continuation of a project creation.
type GenerationJob struct {
	ID         uint           `gorm:"primarykey" json:"id"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	ProjectID  string         `gorm:"type:varchar(36);index;not null" json:"project_id"`
	UserID     uint           `gorm:"index;not null" json:"user_id"`
	Status     JobStatus      `gorm:"type:varchar(20);index;not null;default:'pending'" json:"status"`
	InputData  datatypes.JSON `json:"input_data" swaggertype:"object"`
	ChargeID   *uint          `json:"charge_id,omitempty"`
	ErrorLog   string         `gorm:"type:text" json:"error_log,omitempty"`
	StartedAt  *time.Time     `json:"started_at,omitempty"`
	FinishedAt *time.Time     `json:"finished_at,omitempty"`
}

func (GenerationJob) TableName() string {
	return "generation_jobs"
}

// GenerationInput is the payload stored in GenerationJob.InputData.
type GenerationInput struct {
	Prompt string `json:"prompt"`
	Mode   string `json:"mode"`
}

// Terminal reports whether the job has finished one way or the other.
func (j *GenerationJob) Terminal() bool {
	return j.Status == JobStatusCompleted || j.Status == JobStatusFailed
}
