package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"strconv"
	"time"

	"sitesmith-backend/internal/models"

	"gorm.io/gorm"
)

// TransactionFilter defines criteria for filtering transactions
type TransactionFilter struct {
	UserID    *uint
	Type      *models.TransactionType
	ProjectID string
	StartTime *time.Time
	EndTime   *time.Time
	MinAmount *int
	MaxAmount *int
	Page      int
	Limit     int
}

// TransactionService reads the credit ledger for administrators.
type TransactionService struct {
	db     *gorm.DB
	secret string
}

func NewTransactionService(db *gorm.DB, secret string) *TransactionService {
	return &TransactionService{db: db, secret: secret}
}

func (s *TransactionService) query(ctx context.Context, filter TransactionFilter) *gorm.DB {
	query := s.db.WithContext(ctx).Model(&models.Transaction{})

	if filter.UserID != nil {
		query = query.Where("user_id = ?", *filter.UserID)
	}
	if filter.Type != nil {
		query = query.Where("type = ?", *filter.Type)
	}
	if filter.ProjectID != "" {
		query = query.Where("project_id = ?", filter.ProjectID)
	}
	if filter.StartTime != nil {
		query = query.Where("created_at >= ?", *filter.StartTime)
	}
	if filter.EndTime != nil {
		query = query.Where("created_at <= ?", *filter.EndTime)
	}
	if filter.MinAmount != nil {
		query = query.Where("amount >= ?", *filter.MinAmount)
	}
	if filter.MaxAmount != nil {
		query = query.Where("amount <= ?", *filter.MaxAmount)
	}
	return query
}

// FindTransactions retrieves a paginated list of transactions with filtering
func (s *TransactionService) FindTransactions(ctx context.Context, filter TransactionFilter) ([]models.Transaction, int64, error) {
	var transactions []models.Transaction
	var total int64

	query := s.query(ctx, filter)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (filter.Page - 1) * filter.Limit
	if err := query.Order("created_at desc, id desc").Limit(filter.Limit).Offset(offset).Find(&transactions).Error; err != nil {
		return nil, 0, err
	}

	return transactions, total, nil
}

// ExportTransactions returns every transaction matching filter, ignoring paging.
func (s *TransactionService) ExportTransactions(ctx context.Context, filter TransactionFilter) ([]models.Transaction, error) {
	var transactions []models.Transaction
	if err := s.query(ctx, filter).Order("created_at desc, id desc").Find(&transactions).Error; err != nil {
		return nil, err
	}
	return transactions, nil
}

// GenerateTransactionCSV renders transactions as CSV, flagging rows whose
// hash no longer verifies.
func (s *TransactionService) GenerateTransactionCSV(transactions []models.Transaction) ([]byte, error) {
	b := &bytes.Buffer{}
	w := csv.NewWriter(b)

	header := []string{
		"ID", "Time", "User ID", "Type", "Amount",
		"Balance Before", "Balance After", "Project ID", "Refund Of", "Reason",
		"Operator", "IP Address", "Device Info", "Hash", "Verified",
	}
	if err := w.Write(header); err != nil {
		return nil, err
	}

	for _, t := range transactions {
		refundOf := ""
		if t.RefundOf != nil {
			refundOf = strconv.FormatUint(uint64(*t.RefundOf), 10)
		}
		record := []string{
			strconv.FormatUint(uint64(t.ID), 10),
			t.CreatedAt.Format(time.RFC3339Nano),
			strconv.FormatUint(uint64(t.UserID), 10),
			string(t.Type),
			strconv.Itoa(t.Amount),
			strconv.Itoa(t.BalanceBefore),
			strconv.Itoa(t.BalanceAfter),
			t.ProjectID,
			refundOf,
			t.Reason,
			t.Operator,
			t.IPAddress,
			t.DeviceInfo,
			t.Hash,
			strconv.FormatBool(t.VerifyHash(s.secret)),
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}

	return b.Bytes(), nil
}
