package models

import (
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&User{}, &Project{}, &Version{}, &ConversationEntry{}, &Transaction{}))
	return db
}

func TestTransactionHash(t *testing.T) {
	chargeID := uint(7)
	tx := Transaction{
		UserID:        1,
		CreatedAt:     time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Amount:        5,
		BalanceBefore: 0,
		BalanceAfter:  5,
		Reason:        "refund",
		Operator:      "system",
		Type:          TransactionTypeUserRefund,
		RefundOf:      &chargeID,
	}
	tx.Hash = tx.GenerateHash("secret")

	assert.Len(t, tx.Hash, 64)
	assert.True(t, tx.VerifyHash("secret"))
	assert.False(t, tx.VerifyHash("other"))

	tx.Amount = 50
	assert.False(t, tx.VerifyHash("secret"))
}

func TestProjectBeforeCreateAssignsID(t *testing.T) {
	db := setupTestDB(t)

	p := Project{Name: "site", InitialPrompt: "site", UserID: 1}
	require.NoError(t, db.Create(&p).Error)
	assert.Len(t, p.ID, 36)
	assert.False(t, p.HasCode())

	v := Version{Code: "<html></html>", Description: "Initial Version", ProjectID: p.ID}
	require.NoError(t, db.Create(&v).Error)
	assert.Len(t, v.ID, 36)
	assert.False(t, v.Timestamp.IsZero())

	e := ConversationEntry{Role: ConversationRoleUser, Content: "hi", ProjectID: p.ID}
	require.NoError(t, db.Create(&e).Error)
	assert.Len(t, e.ID, 36)
}

func TestRefundOfIsUnique(t *testing.T) {
	db := setupTestDB(t)

	chargeID := uint(1)
	require.NoError(t, db.Create(&Transaction{UserID: 1, Amount: 5, RefundOf: &chargeID, Type: TransactionTypeUserRefund}).Error)
	assert.Error(t, db.Create(&Transaction{UserID: 1, Amount: 5, RefundOf: &chargeID, Type: TransactionTypeUserRefund}).Error)

	// Rows that are not refunds never collide.
	require.NoError(t, db.Create(&Transaction{UserID: 1, Amount: -5}).Error)
	require.NoError(t, db.Create(&Transaction{UserID: 1, Amount: -5}).Error)
}
