package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"sitesmith-backend/internal/models"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	PromptCacheKeyPrefix = "prompt:code:"
	PromptCacheDuration  = 24 * time.Hour
)

var ErrPromptNotFound = fmt.Errorf("prompt %w", ErrNotFound)

// PromptService stores admin overrides for the built-in system instructions.
type PromptService struct {
	db  *gorm.DB
	rdb *redis.Client
	log *zap.Logger
}

func NewPromptService(db *gorm.DB, rdb *redis.Client, log *zap.Logger) *PromptService {
	return &PromptService{db: db, rdb: rdb, log: log}
}

// CreatePrompt creates a new prompt
func (s *PromptService) CreatePrompt(ctx context.Context, code, content string) (*models.Prompt, error) {
	db := s.db.WithContext(ctx)

	var existing models.Prompt
	if err := db.Where("code = ?", code).First(&existing).Error; err == nil {
		return nil, fmt.Errorf("prompt code already exists: %w", ErrConflict)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	prompt := &models.Prompt{
		Code:    code,
		Content: content,
	}

	if err := db.Create(prompt).Error; err != nil {
		return nil, err
	}

	s.invalidate(ctx, code)
	return prompt, nil
}

// UpdatePrompt updates an existing prompt
func (s *PromptService) UpdatePrompt(ctx context.Context, code, content string) (*models.Prompt, error) {
	db := s.db.WithContext(ctx)

	var prompt models.Prompt
	if err := db.Where("code = ?", code).First(&prompt).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPromptNotFound
		}
		return nil, err
	}

	prompt.Content = content
	if err := db.Save(&prompt).Error; err != nil {
		return nil, err
	}

	s.invalidate(ctx, code)
	return &prompt, nil
}

// DeletePrompt deletes a prompt by code
func (s *PromptService) DeletePrompt(ctx context.Context, code string) error {
	result := s.db.WithContext(ctx).Where("code = ?", code).Delete(&models.Prompt{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrPromptNotFound
	}

	s.invalidate(ctx, code)
	return nil
}

// GetPromptByCode retrieves a prompt by code, using cache
func (s *PromptService) GetPromptByCode(ctx context.Context, code string) (*models.Prompt, error) {
	cacheKey := PromptCacheKeyPrefix + code

	if s.rdb != nil {
		if val, err := s.rdb.Get(ctx, cacheKey).Result(); err == nil {
			var prompt models.Prompt
			if err := json.Unmarshal([]byte(val), &prompt); err == nil {
				return &prompt, nil
			}
		}
	}

	var prompt models.Prompt
	if err := s.db.WithContext(ctx).Where("code = ?", code).First(&prompt).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPromptNotFound
		}
		return nil, err
	}

	if s.rdb != nil {
		if data, err := json.Marshal(prompt); err == nil {
			s.rdb.Set(ctx, cacheKey, data, PromptCacheDuration)
		}
	}

	return &prompt, nil
}

// ListPrompts retrieves a paginated list of prompts
func (s *PromptService) ListPrompts(ctx context.Context, page, pageSize int) ([]models.Prompt, int64, error) {
	var prompts []models.Prompt
	var total int64

	db := s.db.WithContext(ctx).Model(&models.Prompt{})

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	if err := db.Order("created_at desc").Offset(offset).Limit(pageSize).Find(&prompts).Error; err != nil {
		return nil, 0, err
	}

	return prompts, total, nil
}

// Resolve returns the stored override for code, or fallback when there is none.
// Lookup failures never block generation.
func (s *PromptService) Resolve(ctx context.Context, code, fallback string) string {
	prompt, err := s.GetPromptByCode(ctx, code)
	if err != nil {
		if !errors.Is(err, ErrPromptNotFound) {
			s.log.Warn("prompt lookup failed, using built-in", zap.String("code", code), zap.Error(err))
		}
		return fallback
	}
	if prompt.Content == "" {
		return fallback
	}
	return prompt.Content
}

func (s *PromptService) invalidate(ctx context.Context, code string) {
	if s.rdb != nil {
		s.rdb.Del(ctx, PromptCacheKeyPrefix+code)
	}
}
