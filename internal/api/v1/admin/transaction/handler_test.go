package transaction_test

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"sitesmith-backend/internal/api/v1/admin/transaction"
	"sitesmith-backend/internal/models"
	"sitesmith-backend/internal/services"
	"sitesmith-backend/internal/testutil"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (*gin.Engine, *testutil.Stack, models.User, models.User) {
	t.Helper()
	s := testutil.NewStack(t)
	ctx := context.Background()

	alice := s.User(t, "alice", models.RoleUser, 100)
	bob := s.User(t, "bob", models.RoleUser, 0)

	charge, err := s.Ledger.Debit(ctx, alice.ID, 50, services.ChargeMeta{Reason: "Consume", ProjectID: "p-1"})
	require.NoError(t, err)
	_, err = s.Ledger.Refund(ctx, charge, "generation failed")
	require.NoError(t, err)
	_, err = s.Ledger.Adjust(ctx, bob.ID, 200, services.ChargeMeta{Reason: "Top up", Operator: "root"})
	require.NoError(t, err)

	h := transaction.NewHandler(s.Transactions, testutil.Secret, s.Log)
	r := gin.New()
	h.RegisterRoutes(r.Group("/admin"))
	return r, s, alice, bob
}

func TestListTransactions(t *testing.T) {
	r, _, alice, _ := setup(t)

	tests := []struct {
		name           string
		query          string
		expectedStatus int
		checkResponse  func(t *testing.T, data transaction.TransactionListResponse)
	}{
		{
			name:           "List All",
			expectedStatus: http.StatusOK,
			checkResponse: func(t *testing.T, data transaction.TransactionListResponse) {
				assert.Equal(t, int64(3), data.Total)
				assert.Len(t, data.Transactions, 3)
				for _, item := range data.Transactions {
					assert.True(t, item.Verified)
				}
			},
		},
		{
			name:           "Filter by UserID",
			query:          "?user_id=" + idString(alice.ID),
			expectedStatus: http.StatusOK,
			checkResponse: func(t *testing.T, data transaction.TransactionListResponse) {
				assert.Equal(t, int64(2), data.Total)
				assert.Equal(t, alice.ID, data.Transactions[0].UserID)
			},
		},
		{
			name:           "Filter by Type",
			query:          "?type=" + string(models.TransactionTypeUserRefund),
			expectedStatus: http.StatusOK,
			checkResponse: func(t *testing.T, data transaction.TransactionListResponse) {
				require.Equal(t, int64(1), data.Total)
				assert.NotNil(t, data.Transactions[0].RefundOf)
			},
		},
		{
			name:           "Filter by MinAmount",
			query:          "?min_amount=150",
			expectedStatus: http.StatusOK,
			checkResponse: func(t *testing.T, data transaction.TransactionListResponse) {
				require.Equal(t, int64(1), data.Total)
				assert.Equal(t, 200, data.Transactions[0].Amount)
			},
		},
		{
			name:           "Filter by MaxAmount and project",
			query:          "?max_amount=-10&project_id=p-1",
			expectedStatus: http.StatusOK,
			checkResponse: func(t *testing.T, data transaction.TransactionListResponse) {
				require.Equal(t, int64(1), data.Total)
				assert.Equal(t, -50, data.Transactions[0].Amount)
			},
		},
		{
			name:           "Pagination",
			query:          "?page=2&limit=2",
			expectedStatus: http.StatusOK,
			checkResponse: func(t *testing.T, data transaction.TransactionListResponse) {
				assert.Equal(t, int64(3), data.Total)
				assert.Len(t, data.Transactions, 1)
				assert.Equal(t, 2, data.Page)
			},
		},
		{
			name:           "Invalid amount",
			query:          "?min_amount=1.5",
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "Invalid start time",
			query:          "?start_time=yesterday",
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/admin/transactions"+tt.query, nil)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			require.Equal(t, tt.expectedStatus, w.Code, w.Body.String())
			if tt.checkResponse != nil {
				var resp struct {
					Status int                                 `json:"status"`
					Data   transaction.TransactionListResponse `json:"data"`
				}
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
				assert.Equal(t, http.StatusOK, resp.Status)
				tt.checkResponse(t, resp.Data)
			}
		})
	}
}

func TestExportTransactions(t *testing.T) {
	r, s, _, bob := setup(t)

	// Tamper with a row behind the ledger's back.
	require.NoError(t, s.DB.Model(&models.Transaction{}).Where("user_id = ?", bob.ID).Update("amount", 9999).Error)

	req := httptest.NewRequest(http.MethodGet, "/admin/transactions/export", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "attachment; filename=transactions_")

	records, err := csv.NewReader(strings.NewReader(w.Body.String())).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4)

	verified := map[string]string{}
	for _, rec := range records[1:] {
		verified[rec[2]] = rec[len(rec)-1]
	}
	assert.Equal(t, "false", verified[idString(bob.ID)])
}

func idString(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
