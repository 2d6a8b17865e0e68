package services

import (
	"context"
	"sync"
	"testing"

	"sitesmith-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestCreditLedger_Debit(t *testing.T) {
	db := setupTestDB(t)
	_, rdb := setupTestRedis(t)
	ledger := NewCreditLedger(db, rdb, testSecret, zap.NewNop())
	ctx := context.Background()
	user := seedUser(t, db, "alice", 12)

	entry, err := ledger.Debit(ctx, user.ID, 5, ChargeMeta{ProjectID: "p1", IPAddress: "127.0.0.1"})
	require.NoError(t, err)
	assert.Equal(t, -5, entry.Amount)
	assert.Equal(t, 12, entry.BalanceBefore)
	assert.Equal(t, 7, entry.BalanceAfter)
	assert.Equal(t, models.TransactionTypeUserConsume, entry.Type)
	assert.True(t, entry.VerifyHash(testSecret))
	assert.Equal(t, 7, creditsOf(t, db, user.ID))

	t.Run("Insufficient credits", func(t *testing.T) {
		_, err := ledger.Debit(ctx, user.ID, 8, ChargeMeta{})
		assert.ErrorIs(t, err, ErrInsufficientCredits)
		assert.Equal(t, 7, creditsOf(t, db, user.ID))
	})

	t.Run("Exact balance", func(t *testing.T) {
		_, err := ledger.Debit(ctx, user.ID, 7, ChargeMeta{})
		require.NoError(t, err)
		assert.Equal(t, 0, creditsOf(t, db, user.ID))
	})

	t.Run("Unknown user", func(t *testing.T) {
		_, err := ledger.Debit(ctx, 9999, 1, ChargeMeta{})
		assert.ErrorIs(t, err, ErrUserNotFound)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("Non-positive amount", func(t *testing.T) {
		_, err := ledger.Debit(ctx, user.ID, 0, ChargeMeta{})
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	var count int64
	db.Model(&models.Transaction{}).Where("user_id = ?", user.ID).Count(&count)
	assert.Equal(t, int64(2), count, "failed debits must not leave ledger rows")
}

func TestCreditLedger_ConcurrentDebitsNeverOverdraw(t *testing.T) {
	db := setupTestDB(t)
	_, rdb := setupTestRedis(t)
	ledger := NewCreditLedger(db, rdb, testSecret, zap.NewNop())
	user := seedUser(t, db, "bob", 12)

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := ledger.Debit(context.Background(), user.ID, 5, ChargeMeta{}); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 2, succeeded)
	assert.Equal(t, 2, creditsOf(t, db, user.ID))
}

func TestCreditLedger_RefundIsIdempotent(t *testing.T) {
	db := setupTestDB(t)
	_, rdb := setupTestRedis(t)
	ledger := NewCreditLedger(db, rdb, testSecret, zap.NewNop())
	ctx := context.Background()
	user := seedUser(t, db, "carol", 5)

	charge, err := ledger.Debit(ctx, user.ID, 5, ChargeMeta{ProjectID: "p1"})
	require.NoError(t, err)
	assert.Equal(t, 0, creditsOf(t, db, user.ID))

	first, err := ledger.Refund(ctx, charge, "generation failed")
	require.NoError(t, err)
	assert.Equal(t, 5, first.Amount)
	assert.Equal(t, models.TransactionTypeUserRefund, first.Type)
	require.NotNil(t, first.RefundOf)
	assert.Equal(t, charge.ID, *first.RefundOf)
	assert.Equal(t, "p1", first.ProjectID)

	second, err := ledger.RefundByID(ctx, charge.ID, "again")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 5, creditsOf(t, db, user.ID))

	t.Run("Refusing to refund a credit", func(t *testing.T) {
		_, err := ledger.Refund(ctx, first, "nope")
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("Unknown charge", func(t *testing.T) {
		_, err := ledger.RefundByID(ctx, 424242, "nope")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestCreditLedger_AdjustAndCache(t *testing.T) {
	db := setupTestDB(t)
	mr, rdb := setupTestRedis(t)
	ledger := NewCreditLedger(db, rdb, testSecret, zap.NewNop())
	ctx := context.Background()
	user := seedUser(t, db, "dave", 3)

	mr.Set(userCacheKey(user.ID), `{"id":1}`)

	entry, err := ledger.Adjust(ctx, user.ID, 10, ChargeMeta{Reason: "goodwill", Operator: "root", OperatorID: 1})
	require.NoError(t, err)
	assert.Equal(t, models.TransactionTypeSystemAdmin, entry.Type)
	assert.Equal(t, "root", entry.Operator)
	assert.False(t, mr.Exists(userCacheKey(user.ID)), "balance change must evict the cached user")

	_, err = ledger.Adjust(ctx, user.ID, -20, ChargeMeta{})
	assert.ErrorIs(t, err, ErrInsufficientCredits)

	_, err = ledger.Adjust(ctx, user.ID, 0, ChargeMeta{})
	assert.ErrorIs(t, err, ErrInvalidInput)

	balance, err := ledger.Balance(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 13, balance)
}
