package services

import (
	"context"
	"errors"
	"fmt"

	"sitesmith-backend/internal/events"
	"sitesmith-backend/internal/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	projectNameMaxLen = 50
	projectNameCut    = 47

	MsgProjectPublished   = "Project Published Successfully"
	MsgProjectUnpublished = "Project Unpublished"
)

// ProjectName derives a display name from the opening prompt.
func ProjectName(prompt string) string {
	runes := []rune(prompt)
	if len(runes) > projectNameMaxLen {
		return string(runes[:projectNameCut]) + "..."
	}
	return prompt
}

// ProjectDetail is a project with its transcript, history and creation job.
type ProjectDetail struct {
	Project    *models.Project
	Generation *models.GenerationJob
}

// ProjectService covers project reads and the operations that do not
// generate code.
type ProjectService struct {
	db        *gorm.DB
	publisher SitePublisher
	events    events.Publisher
	log       *zap.Logger
}

func NewProjectService(db *gorm.DB, publisher SitePublisher, bus events.Publisher, log *zap.Logger) *ProjectService {
	if publisher == nil {
		publisher = NopPublisher{}
	}
	if bus == nil {
		bus = events.Nop{}
	}
	return &ProjectService{db: db, publisher: publisher, events: bus, log: log}
}

// create inserts the project, bumps the owner's creation counter and records
// the opening user turn in one transaction.
func (s *ProjectService) create(ctx context.Context, projectID string, userID uint, prompt string) (*models.Project, error) {
	project := &models.Project{
		ID:            projectID,
		Name:          ProjectName(prompt),
		InitialPrompt: prompt,
		UserID:        userID,
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(project).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.User{}).Where("id = ?", userID).
			UpdateColumn("total_creation", gorm.Expr("total_creation + ?", 1)).Error; err != nil {
			return err
		}
		_, err := NewConversationLog(tx).Append(ctx, project.ID, models.ConversationRoleUser, prompt)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("create project: %w: %w", ErrPersistence, err)
	}
	return project, nil
}

// Owned loads a project only when userID owns it. Foreign projects are
// reported as missing.
func (s *ProjectService) Owned(ctx context.Context, userID uint, projectID string) (*models.Project, error) {
	var project models.Project
	err := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", projectID, userID).First(&project).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, err
	}
	return &project, nil
}

// Detail returns an owned project with conversation and versions oldest first
// and the latest creation job, if any.
func (s *ProjectService) Detail(ctx context.Context, userID uint, projectID string) (*ProjectDetail, error) {
	var project models.Project
	err := s.db.WithContext(ctx).
		Preload("Conversation", func(db *gorm.DB) *gorm.DB { return db.Order("timestamp asc, id asc") }).
		Preload("Versions", func(db *gorm.DB) *gorm.DB { return db.Order("timestamp asc, id asc") }).
		Where("id = ? AND user_id = ?", projectID, userID).
		First(&project).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, err
	}

	detail := &ProjectDetail{Project: &project}
	var job models.GenerationJob
	err = s.db.WithContext(ctx).Where("project_id = ?", projectID).Order("id desc").First(&job).Error
	switch {
	case err == nil:
		detail.Generation = &job
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, err
	}
	return detail, nil
}

// Preview returns an owned project with its versions.
func (s *ProjectService) Preview(ctx context.Context, userID uint, projectID string) (*models.Project, error) {
	var project models.Project
	err := s.db.WithContext(ctx).
		Preload("Versions", func(db *gorm.DB) *gorm.DB { return db.Order("timestamp asc, id asc") }).
		Where("id = ? AND user_id = ?", projectID, userID).
		First(&project).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, err
	}
	return &project, nil
}

// MostRecent returns the user's most recently updated project, or nil.
func (s *ProjectService) MostRecent(ctx context.Context, userID uint) (*models.Project, error) {
	var project models.Project
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("updated_at desc").First(&project).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &project, nil
}

// List pages through the user's projects, newest activity first. Code and
// history are left out.
func (s *ProjectService) List(ctx context.Context, userID uint, page, limit int) ([]models.Project, int64, error) {
	var projects []models.Project
	var total int64

	db := s.db.WithContext(ctx).Model(&models.Project{}).Where("user_id = ?", userID)
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.Omit("current_code").Order("updated_at desc").Offset(offset).Limit(limit).Find(&projects).Error; err != nil {
		return nil, 0, err
	}
	return projects, total, nil
}

// TogglePublish flips IsPublished and returns the user-facing message. A
// publish mirror failure is logged and does not undo the toggle.
func (s *ProjectService) TogglePublish(ctx context.Context, userID uint, projectID string) (*models.Project, string, error) {
	project, err := s.Owned(ctx, userID, projectID)
	if err != nil {
		return nil, "", err
	}

	published := !project.IsPublished
	if err := s.db.WithContext(ctx).Model(project).Update("is_published", published).Error; err != nil {
		return nil, "", fmt.Errorf("toggle publish: %w: %w", ErrPersistence, err)
	}
	project.IsPublished = published

	if published {
		data := map[string]interface{}{}
		if project.HasCode() {
			url, err := s.publisher.Publish(ctx, project.ID, *project.CurrentCode)
			if err != nil {
				s.log.Warn("failed to mirror published site", zap.String("project_id", project.ID), zap.Error(err))
			} else if url != "" {
				data["url"] = url
			}
		}
		s.publish(ctx, events.New(events.ProjectPublished, project.ID, userID, data))
		return project, MsgProjectPublished, nil
	}

	if err := s.publisher.Unpublish(ctx, project.ID); err != nil {
		s.log.Warn("failed to remove mirrored site", zap.String("project_id", project.ID), zap.Error(err))
	}
	s.publish(ctx, events.New(events.ProjectUnpublished, project.ID, userID, nil))
	return project, MsgProjectUnpublished, nil
}

// Published returns the document of a published project. Unpublished
// projects and projects without code are reported as missing.
func (s *ProjectService) Published(ctx context.Context, projectID string) (string, error) {
	var project models.Project
	err := s.db.WithContext(ctx).Select("id", "current_code", "is_published").
		Where("id = ? AND is_published = ?", projectID, true).
		First(&project).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrProjectNotFound
		}
		return "", err
	}
	if !project.HasCode() {
		return "", ErrProjectNotFound
	}
	return *project.CurrentCode, nil
}

// Delete removes an owned project with its versions, conversation and jobs.
func (s *ProjectService) Delete(ctx context.Context, userID uint, projectID string) error {
	project, err := s.Owned(ctx, userID, projectID)
	if err != nil {
		return err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("project_id = ?", projectID).Delete(&models.Version{}).Error; err != nil {
			return err
		}
		if err := tx.Where("project_id = ?", projectID).Delete(&models.ConversationEntry{}).Error; err != nil {
			return err
		}
		if err := tx.Where("project_id = ?", projectID).Delete(&models.GenerationJob{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Project{}, "id = ?", projectID).Error
	})
	if err != nil {
		return fmt.Errorf("delete project: %w: %w", ErrPersistence, err)
	}

	if project.IsPublished {
		if err := s.publisher.Unpublish(ctx, projectID); err != nil {
			s.log.Warn("failed to remove mirrored site", zap.String("project_id", projectID), zap.Error(err))
		}
	}
	s.publish(ctx, events.New(events.ProjectDeleted, projectID, userID, nil))
	s.log.Info("project deleted", zap.String("project_id", projectID), zap.Uint("user_id", userID))
	return nil
}

func (s *ProjectService) publish(ctx context.Context, event events.Event) {
	if err := s.events.Publish(ctx, event); err != nil {
		s.log.Warn("failed to publish project event",
			zap.String("type", event.Type),
			zap.String("project_id", event.ProjectID),
			zap.Error(err))
	}
}

// syncMirror refreshes the public copy of a published project after its head
// moved.
func (s *ProjectService) syncMirror(ctx context.Context, project *models.Project, code string) {
	if !project.IsPublished {
		return
	}
	if _, err := s.publisher.Publish(ctx, project.ID, code); err != nil {
		s.log.Warn("failed to refresh mirrored site", zap.String("project_id", project.ID), zap.Error(err))
	}
}
