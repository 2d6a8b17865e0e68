package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Project is a generated website. CurrentCode and CurrentVersionIndex form the
// head; an empty CurrentVersionIndex with non-nil CurrentCode means the head was
// saved by hand and is not tied to a stored Version.
type Project struct {
	ID                  string              `gorm:"type:varchar(36);primaryKey" json:"id"`
	Name                string              `gorm:"type:varchar(255);not null" json:"name"`
	InitialPrompt       string              `gorm:"type:text;not null" json:"initial_prompt"`
	CurrentCode         *string             `gorm:"type:text" json:"current_code"`
	CurrentVersionIndex string              `gorm:"type:varchar(36);not null;default:''" json:"current_version_index"`
	IsPublished         bool                `gorm:"not null;default:false" json:"isPublished"`
	UserID              uint                `gorm:"index;not null" json:"userId"`
	CreatedAt           time.Time           `json:"createdAt"`
	UpdatedAt           time.Time           `gorm:"index" json:"updatedAt"`
	Versions            []Version           `gorm:"foreignKey:ProjectID;constraint:OnDelete:CASCADE" json:"versions,omitempty"`
	Conversation        []ConversationEntry `gorm:"foreignKey:ProjectID;constraint:OnDelete:CASCADE" json:"conversation,omitempty"`
}

func (Project) TableName() string {
	return "website_projects"
}

func (p *Project) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	return nil
}

// HasCode reports whether the project has a servable document.
func (p *Project) HasCode() bool {
	return p.CurrentCode != nil && *p.CurrentCode != ""
}
