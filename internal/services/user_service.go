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
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const userCacheTTL = time.Hour

func userCacheKey(userID uint) string {
	return fmt.Sprintf("user:%d", userID)
}

type UserService struct {
	db  *gorm.DB
	rdb *redis.Client
	log *zap.Logger
}

func NewUserService(db *gorm.DB, rdb *redis.Client, log *zap.Logger) *UserService {
	return &UserService{db: db, rdb: rdb, log: log}
}

// FindUserByID reads through the Redis cache. Credit balances must not be
// taken from here; use CreditLedger.Balance for read-your-writes.
func (s *UserService) FindUserByID(ctx context.Context, userID uint) (models.User, error) {
	cacheKey := userCacheKey(userID)
	if s.rdb != nil {
		val, err := s.rdb.Get(ctx, cacheKey).Result()
		if err == nil {
			var user models.User
			if err := json.Unmarshal([]byte(val), &user); err == nil {
				return user, nil
			}
		}
	}

	var user models.User
	if err := s.db.WithContext(ctx).First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return user, ErrUserNotFound
		}
		return user, err
	}

	if s.rdb != nil {
		if data, err := json.Marshal(user); err == nil {
			s.rdb.Set(ctx, cacheKey, data, userCacheTTL)
		}
	}

	return user, nil
}

// FindUsers retrieves a paginated list of users.
func (s *UserService) FindUsers(ctx context.Context, page, limit int) ([]models.User, int64, error) {
	var users []models.User
	var total int64

	offset := (page - 1) * limit

	db := s.db.WithContext(ctx)
	if err := db.Model(&models.User{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := db.Order("id asc").Limit(limit).Offset(offset).Find(&users).Error; err != nil {
		return nil, 0, err
	}

	return users, total, nil
}

// UpdateUser updates a user with optimistic locking and selective fields.
// Credits are never changed here; they move only through the ledger.
func (s *UserService) UpdateUser(ctx context.Context, id uint, updates map[string]interface{}, operator string) (*models.User, error) {
	delete(updates, "credits")

	var user models.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&user, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return err
		}

		if password, ok := updates["password"].(string); ok && password != "" {
			hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
			if err != nil {
				return err
			}
			updates["password"] = string(hashedPassword)
		}

		currentVersion := user.Version
		updates["version"] = currentVersion + 1

		result := tx.Model(&user).Where("version = ?", currentVersion).Updates(updates)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrOptimisticLock
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.rdb != nil {
		s.rdb.Del(ctx, userCacheKey(id))
	}

	fields := make([]string, 0, len(updates))
	for k := range updates {
		if k != "password" {
			fields = append(fields, k)
		}
	}
	s.log.Info("user updated", zap.Uint("user_id", id), zap.String("operator", operator), zap.Strings("fields", fields))

	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}
