package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"sitesmith-backend/internal/models"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const systemOperator = "system"

// ChargeMeta describes who moved credits and why. It is copied onto the ledger row.
type ChargeMeta struct {
	Type       models.TransactionType
	Reason     string
	Operator   string
	OperatorID uint
	ProjectID  string
	IPAddress  string
	DeviceInfo string
}

// CreditLedger owns every change to User.Credits. Each change writes a hashed
// Transaction row in the same database transaction as the balance update.
type CreditLedger struct {
	db     *gorm.DB
	rdb    *redis.Client
	secret string
	log    *zap.Logger
}

func NewCreditLedger(db *gorm.DB, rdb *redis.Client, secret string, log *zap.Logger) *CreditLedger {
	return &CreditLedger{db: db, rdb: rdb, secret: secret, log: log}
}

// Debit removes amount credits. It fails closed: a balance below amount yields
// ErrInsufficientCredits and nothing is written.
func (l *CreditLedger) Debit(ctx context.Context, userID uint, amount int, meta ChargeMeta) (*models.Transaction, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("debit amount must be positive: %w", ErrInvalidInput)
	}
	if meta.Type == "" {
		meta.Type = models.TransactionTypeUserConsume
	}
	return l.apply(ctx, userID, -amount, meta, nil)
}

// Credit adds amount credits unconditionally.
func (l *CreditLedger) Credit(ctx context.Context, userID uint, amount int, meta ChargeMeta) (*models.Transaction, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("credit amount must be positive: %w", ErrInvalidInput)
	}
	if meta.Type == "" {
		meta.Type = models.TransactionTypeSystemAdmin
	}
	return l.apply(ctx, userID, amount, meta, nil)
}

// Adjust applies a signed admin correction. Negative deltas obey the same
// no-overdraft rule as Debit.
func (l *CreditLedger) Adjust(ctx context.Context, userID uint, delta int, meta ChargeMeta) (*models.Transaction, error) {
	if delta == 0 {
		return nil, fmt.Errorf("adjustment must be non-zero: %w", ErrInvalidInput)
	}
	meta.Type = models.TransactionTypeSystemAdmin
	return l.apply(ctx, userID, delta, meta, nil)
}

// Refund compensates charge exactly once. The refund row references the charge
// under a unique index, so a repeated call returns the existing refund and
// does not move credits again.
func (l *CreditLedger) Refund(ctx context.Context, charge *models.Transaction, reason string) (*models.Transaction, error) {
	if charge == nil || charge.ID == 0 || charge.Amount >= 0 {
		return nil, fmt.Errorf("refund needs a recorded debit: %w", ErrInvalidInput)
	}

	if existing, err := l.findRefund(ctx, charge.ID); err == nil {
		return existing, nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check existing refund: %w", err)
	}

	chargeID := charge.ID
	refund, err := l.apply(ctx, charge.UserID, -charge.Amount, ChargeMeta{
		Type:      models.TransactionTypeUserRefund,
		Reason:    reason,
		Operator:  systemOperator,
		ProjectID: charge.ProjectID,
	}, &chargeID)
	if err != nil {
		// Lost a race with a concurrent refund of the same charge.
		if existing, findErr := l.findRefund(ctx, charge.ID); findErr == nil {
			return existing, nil
		}
		return nil, err
	}
	return refund, nil
}

// RefundByID loads the charge and refunds it.
func (l *CreditLedger) RefundByID(ctx context.Context, chargeID uint, reason string) (*models.Transaction, error) {
	var charge models.Transaction
	if err := l.db.WithContext(ctx).First(&charge, chargeID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("charge %d: %w", chargeID, ErrNotFound)
		}
		return nil, err
	}
	return l.Refund(ctx, &charge, reason)
}

func (l *CreditLedger) Balance(ctx context.Context, userID uint) (int, error) {
	var user models.User
	if err := l.db.WithContext(ctx).Select("id", "credits").First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, ErrUserNotFound
		}
		return 0, err
	}
	return user.Credits, nil
}

func (l *CreditLedger) findRefund(ctx context.Context, chargeID uint) (*models.Transaction, error) {
	var refund models.Transaction
	if err := l.db.WithContext(ctx).Where("refund_of = ?", chargeID).First(&refund).Error; err != nil {
		return nil, err
	}
	return &refund, nil
}

func (l *CreditLedger) apply(ctx context.Context, userID uint, delta int, meta ChargeMeta, refundOf *uint) (*models.Transaction, error) {
	if meta.Operator == "" {
		meta.Operator = systemOperator
	}

	var entry *models.Transaction
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q := tx.Model(&models.User{}).Where("id = ?", userID)
		if delta < 0 {
			q = q.Where("credits >= ?", -delta)
		}
		res := q.UpdateColumn("credits", gorm.Expr("credits + ?", delta))
		if res.Error != nil {
			return res.Error
		}

		var user models.User
		if err := tx.Select("id", "credits").First(&user, userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return err
		}
		if res.RowsAffected == 0 {
			return ErrInsufficientCredits
		}

		entry = &models.Transaction{
			CreatedAt:     time.Now().UTC().Truncate(time.Millisecond),
			UserID:        userID,
			Amount:        delta,
			BalanceBefore: user.Credits - delta,
			BalanceAfter:  user.Credits,
			Reason:        meta.Reason,
			Operator:      meta.Operator,
			OperatorID:    meta.OperatorID,
			Type:          meta.Type,
			ProjectID:     meta.ProjectID,
			RefundOf:      refundOf,
			IPAddress:     meta.IPAddress,
			DeviceInfo:    meta.DeviceInfo,
		}
		entry.Hash = entry.GenerateHash(l.secret)

		return tx.Create(entry).Error
	})
	if err != nil {
		return nil, err
	}

	l.invalidateUser(ctx, userID)

	l.log.Info("ledger entry recorded",
		zap.Uint("user_id", userID),
		zap.Int("amount", delta),
		zap.Int("balance_after", entry.BalanceAfter),
		zap.String("type", string(entry.Type)),
		zap.String("project_id", entry.ProjectID),
	)

	return entry, nil
}

func (l *CreditLedger) invalidateUser(ctx context.Context, userID uint) {
	if l.rdb == nil {
		return
	}
	if err := l.rdb.Del(ctx, userCacheKey(userID)).Err(); err != nil {
		l.log.Warn("failed to invalidate user cache", zap.Uint("user_id", userID), zap.Error(err))
	}
}
