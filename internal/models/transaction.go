package models

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

type TransactionType string

const (
	TransactionTypeSystemAdmin TransactionType = "admin_adjustment"
	TransactionTypeSignupBonus TransactionType = "signup_bonus"
	TransactionTypeUserConsume TransactionType = "user_consume"
	TransactionTypeUserRefund  TransactionType = "user_refund"
)

// Transaction is one ledger row. Amount is signed: debits are negative.
type Transaction struct {
	ID            uint            `gorm:"primarykey" json:"id"`
	CreatedAt     time.Time       `gorm:"precision:3" json:"created_at"` // Millisecond precision
	UserID        uint            `gorm:"index;not null" json:"user_id"`
	Amount        int             `gorm:"not null" json:"amount"`
	BalanceBefore int             `gorm:"not null" json:"balance_before"`
	BalanceAfter  int             `gorm:"not null" json:"balance_after"`
	Reason        string          `gorm:"type:text" json:"reason"`
	Operator      string          `gorm:"type:varchar(100)" json:"operator"`  // Username or 'system'
	OperatorID    uint            `gorm:"index;default:0" json:"operator_id"` // 0 for system, otherwise UserID
	Type          TransactionType `gorm:"type:varchar(50);index;default:'user_consume'" json:"type"`
	ProjectID     string          `gorm:"type:varchar(36);index" json:"project_id,omitempty"`
	RefundOf      *uint           `gorm:"uniqueIndex" json:"refund_of,omitempty"` // charge compensated by this row
	IPAddress     string          `gorm:"type:varchar(50)" json:"ip_address"`
	DeviceInfo    string          `gorm:"type:varchar(255)" json:"device_info"`
	Hash          string          `gorm:"type:varchar(64);default:''" json:"hash"` // HMAC SHA256
}

// GenerateHash generates a tamper-proof hash for the transaction
func (t *Transaction) GenerateHash(secret string) string {
	refundOf := uint(0)
	if t.RefundOf != nil {
		refundOf = *t.RefundOf
	}
	data := fmt.Sprintf("%d|%d|%d|%d|%d|%s|%s|%s|%d|%s|%d",
		t.UserID, t.CreatedAt.UnixNano(), t.Amount, t.BalanceBefore, t.BalanceAfter,
		t.Reason, t.Operator, t.Type, t.OperatorID, t.ProjectID, refundOf)

	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(data))
	return hex.EncodeToString(h.Sum(nil))
}

// VerifyHash reports whether the stored hash still matches the row.
func (t *Transaction) VerifyHash(secret string) bool {
	return hmac.Equal([]byte(t.Hash), []byte(t.GenerateHash(secret)))
}
