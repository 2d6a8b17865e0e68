package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"sitesmith-backend/internal/models"
	"sitesmith-backend/internal/utils"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var ErrInvalidCredentials = fmt.Errorf("invalid credentials: %w", ErrUnauthenticated)

type AuthService struct {
	db            *gorm.DB
	ledger        *CreditLedger
	tokens        *utils.TokenManager
	signupCredits int
	log           *zap.Logger
}

func NewAuthService(db *gorm.DB, ledger *CreditLedger, tokens *utils.TokenManager, signupCredits int, log *zap.Logger) *AuthService {
	return &AuthService{db: db, ledger: ledger, tokens: tokens, signupCredits: signupCredits, log: log}
}

// RegisterUser creates an account. The first account becomes an admin. New
// accounts receive the signup bonus through the ledger so it is auditable.
func (s *AuthService) RegisterUser(ctx context.Context, username, password string) (*models.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, ErrInvalidInput
	}

	db := s.db.WithContext(ctx)

	var existingUser models.User
	result := db.Where("username = ?", username).First(&existingUser)
	if result.Error == nil {
		return nil, ErrUserAlreadyExists
	}
	if !errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, result.Error
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	var userCount int64
	if err := db.Model(&models.User{}).Count(&userCount).Error; err != nil {
		return nil, err
	}

	role := models.RoleUser
	if userCount == 0 {
		role = models.RoleAdmin
	}

	user := &models.User{
		Username: username,
		Password: string(hashedPassword),
		Role:     role,
		IsActive: true,
	}

	if err := db.Create(user).Error; err != nil {
		return nil, err
	}

	if s.signupCredits > 0 {
		entry, err := s.ledger.Credit(ctx, user.ID, s.signupCredits, ChargeMeta{
			Type:   models.TransactionTypeSignupBonus,
			Reason: "signup bonus",
		})
		if err != nil {
			s.log.Error("failed to grant signup credits", zap.Uint("user_id", user.ID), zap.Error(err))
		} else {
			user.Credits = entry.BalanceAfter
		}
	}

	return user, nil
}

func (s *AuthService) LoginUser(ctx context.Context, username, password string) (string, *models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("username = ?", strings.TrimSpace(username)).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return "", nil, ErrInvalidCredentials
	}

	if !user.IsActive {
		return "", nil, fmt.Errorf("account disabled: %w", ErrUnauthenticated)
	}

	token, err := s.tokens.GenerateToken(user.ID, user.Role)
	if err != nil {
		return "", nil, err
	}

	return token, &user, nil
}

// EnsureAdmin creates the configured admin account when it does not exist yet.
func (s *AuthService) EnsureAdmin(ctx context.Context, username, password string) error {
	if username == "" || password == "" {
		return nil
	}

	var admin models.User
	err := s.db.WithContext(ctx).Where("username = ?", username).First(&admin).Error
	if err == nil {
		s.log.Info("admin user already exists", zap.String("username", username))
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("failed to check for admin user: %w", err)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash admin password: %w", err)
	}

	admin = models.User{
		Username: username,
		Password: string(hashedPassword),
		Role:     models.RoleAdmin,
		IsActive: true,
	}
	if err := s.db.WithContext(ctx).Create(&admin).Error; err != nil {
		return fmt.Errorf("failed to create admin user: %w", err)
	}

	s.log.Info("admin user created", zap.String("username", username))
	return nil
}
