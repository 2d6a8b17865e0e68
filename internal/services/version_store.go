package services

import (
	"context"
	"errors"
	"fmt"

	"sitesmith-backend/internal/models"

	"gorm.io/gorm"
)

const (
	VersionDescriptionInitial = "Initial Version"
	VersionDescriptionChanges = "changes made"
)

// VersionStore keeps the append-only version history and the project head.
type VersionStore struct {
	db *gorm.DB
}

func NewVersionStore(db *gorm.DB) *VersionStore {
	return &VersionStore{db: db}
}

// Append inserts a version. It does not touch the project head.
func (s *VersionStore) Append(ctx context.Context, projectID, code, description string) (*models.Version, error) {
	version := &models.Version{
		ProjectID:   projectID,
		Code:        code,
		Description: description,
	}
	if err := s.db.WithContext(ctx).Create(version).Error; err != nil {
		return nil, fmt.Errorf("append version: %w: %w", ErrPersistence, err)
	}
	return version, nil
}

// SetHead points the project at code and versionID. A non-nil expectedHead
// makes the write conditional on current_version_index still being that value;
// a mismatch returns ErrConflict. An empty versionID marks the head untracked.
func (s *VersionStore) SetHead(ctx context.Context, projectID, versionID, code string, expectedHead *string) error {
	db := s.db.WithContext(ctx)

	q := db.Model(&models.Project{}).Where("id = ?", projectID)
	if expectedHead != nil {
		q = q.Where("current_version_index = ?", *expectedHead)
	}
	res := q.Updates(map[string]interface{}{
		"current_code":          code,
		"current_version_index": versionID,
	})
	if res.Error != nil {
		return fmt.Errorf("set head: %w: %w", ErrPersistence, res.Error)
	}
	if res.RowsAffected > 0 {
		return nil
	}

	var count int64
	if err := db.Model(&models.Project{}).Where("id = ?", projectID).Count(&count).Error; err != nil {
		return fmt.Errorf("set head: %w: %w", ErrPersistence, err)
	}
	if count == 0 {
		return ErrProjectNotFound
	}
	if expectedHead != nil {
		return fmt.Errorf("project head moved: %w", ErrConflict)
	}
	// MySQL reports zero affected rows when the values are unchanged.
	return nil
}

// Commit appends a version and moves the head to it in one transaction. It is
// the only place a generated document becomes visible.
func (s *VersionStore) Commit(ctx context.Context, projectID, code, description string, expectedHead *string) (*models.Version, error) {
	var version *models.Version
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		store := &VersionStore{db: tx}
		v, err := store.Append(ctx, projectID, code, description)
		if err != nil {
			return err
		}
		if err := store.SetHead(ctx, projectID, v.ID, code, expectedHead); err != nil {
			return err
		}
		version = v
		return nil
	})
	if err != nil {
		if classify(err, nil) == nil {
			return nil, fmt.Errorf("commit version: %w: %w", ErrPersistence, err)
		}
		return nil, err
	}
	return version, nil
}

// ListByProject returns versions oldest first.
func (s *VersionStore) ListByProject(ctx context.Context, projectID string) ([]models.Version, error) {
	var versions []models.Version
	if err := s.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("timestamp asc, id asc").
		Find(&versions).Error; err != nil {
		return nil, err
	}
	return versions, nil
}

// Get returns a version only if it belongs to projectID.
func (s *VersionStore) Get(ctx context.Context, projectID, versionID string) (*models.Version, error) {
	var version models.Version
	err := s.db.WithContext(ctx).
		Where("id = ? AND project_id = ?", versionID, projectID).
		First(&version).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrVersionNotFound
		}
		return nil, err
	}
	return &version, nil
}
