package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Version is an immutable snapshot of a project's full document. IDs are
// UUIDv7 and break timestamp ties.
type Version struct {
	ID          string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	Code        string    `gorm:"type:text;not null" json:"code"`
	Description string    `gorm:"type:varchar(255)" json:"description"`
	ProjectID   string    `gorm:"type:varchar(36);index:idx_versions_project_ts,priority:1;not null" json:"projectId"`
	Timestamp   time.Time `gorm:"index:idx_versions_project_ts,priority:2;not null" json:"timestamp"`
}

func (v *Version) BeforeCreate(tx *gorm.DB) error {
	if v.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return err
		}
		v.ID = id.String()
	}
	if v.Timestamp.IsZero() {
		v.Timestamp = time.Now().UTC()
	}
	return nil
}
