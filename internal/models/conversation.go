package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ConversationRole string

const (
	ConversationRoleUser      ConversationRole = "user"
	ConversationRoleAssistant ConversationRole = "assistant"
)

// ConversationEntry is one turn of a project's transcript. IDs are UUIDv7 so
// entries sharing a timestamp still sort in insertion order.
type ConversationEntry struct {
	ID        string           `gorm:"type:varchar(36);primaryKey" json:"id"`
	Role      ConversationRole `gorm:"type:varchar(20);not null" json:"role"`
	Content   string           `gorm:"type:text;not null" json:"content"`
	ProjectID string           `gorm:"type:varchar(36);index:idx_conversations_project_ts,priority:1;not null" json:"projectId"`
	Timestamp time.Time        `gorm:"index:idx_conversations_project_ts,priority:2;not null" json:"timestamp"`
}

func (ConversationEntry) TableName() string {
	return "conversations"
}

func (e *ConversationEntry) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return err
		}
		e.ID = id.String()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	return nil
}
