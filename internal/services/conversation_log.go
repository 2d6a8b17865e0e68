package services

import (
	"context"
	"fmt"

	"sitesmith-backend/internal/models"

	"gorm.io/gorm"
)

// Assistant turns written by the generation workflows.
const (
	MsgGeneratingWebsite = "now generating your website..."
	MsgMakingChanges     = "Now making changes to your website..."
	MsgWebsiteCreated    = "I've created your website! You can now preview it and request any changes."
	MsgChangesMade       = "I've made the changes to your website! You can now preview it"
	MsgRolledBack        = "I've rolled back your website to selected version. You can now preview it"
)

func enhancedMessage(enhanced string) string {
	return fmt.Sprintf("I've enhanced your prompt to: \"%s\"", enhanced)
}

// ConversationLog is the append-only transcript shown next to a project.
type ConversationLog struct {
	db *gorm.DB
}

func NewConversationLog(db *gorm.DB) *ConversationLog {
	return &ConversationLog{db: db}
}

func (l *ConversationLog) Append(ctx context.Context, projectID string, role models.ConversationRole, content string) (*models.ConversationEntry, error) {
	entry := &models.ConversationEntry{
		ProjectID: projectID,
		Role:      role,
		Content:   content,
	}
	if err := l.db.WithContext(ctx).Create(entry).Error; err != nil {
		return nil, fmt.Errorf("append conversation entry: %w: %w", ErrPersistence, err)
	}
	return entry, nil
}

// ListByProject returns entries oldest first.
func (l *ConversationLog) ListByProject(ctx context.Context, projectID string) ([]models.ConversationEntry, error) {
	var entries []models.ConversationEntry
	if err := l.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("timestamp asc, id asc").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}
