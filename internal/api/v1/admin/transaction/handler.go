package transaction

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"sitesmith-backend/internal/api/v1/common"
	"sitesmith-backend/internal/models"
	"sitesmith-backend/internal/services"
	"sitesmith-backend/internal/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const defaultPageSize = 20

type Handler struct {
	transactions *services.TransactionService
	secret       string
	log          *zap.Logger
}

func NewHandler(transactions *services.TransactionService, secret string, log *zap.Logger) *Handler {
	return &Handler{transactions: transactions, secret: secret, log: log}
}

// parseFilter reads the shared query filters. It writes a 400 and returns
// false on malformed input.
func parseFilter(c *gin.Context) (services.TransactionFilter, bool) {
	var filter services.TransactionFilter
	fail := func(msg string) (services.TransactionFilter, bool) {
		c.JSON(http.StatusBadRequest, utils.NewErrorResponse(http.StatusBadRequest, msg))
		return filter, false
	}

	if userIDStr, exists := c.GetQuery("user_id"); exists {
		userID, err := strconv.ParseUint(userIDStr, 10, 64)
		if err != nil {
			return fail("Invalid user_id")
		}
		uid := uint(userID)
		filter.UserID = &uid
	}

	if typeStr, exists := c.GetQuery("type"); exists {
		t := models.TransactionType(typeStr)
		filter.Type = &t
	}

	filter.ProjectID = c.Query("project_id")

	if startTimeStr, exists := c.GetQuery("start_time"); exists {
		startTime, err := time.Parse(time.RFC3339, startTimeStr)
		if err != nil {
			return fail("Invalid start_time format")
		}
		filter.StartTime = &startTime
	}

	if endTimeStr, exists := c.GetQuery("end_time"); exists {
		endTime, err := time.Parse(time.RFC3339, endTimeStr)
		if err != nil {
			return fail("Invalid end_time format")
		}
		filter.EndTime = &endTime
	}

	if minAmountStr, exists := c.GetQuery("min_amount"); exists {
		minAmount, err := strconv.Atoi(minAmountStr)
		if err != nil {
			return fail("Invalid min_amount")
		}
		filter.MinAmount = &minAmount
	}

	if maxAmountStr, exists := c.GetQuery("max_amount"); exists {
		maxAmount, err := strconv.Atoi(maxAmountStr)
		if err != nil {
			return fail("Invalid max_amount")
		}
		filter.MaxAmount = &maxAmount
	}

	return filter, true
}

// ListTransactions godoc
// @Summary List transactions
// @Description Get a paginated list of ledger rows with filtering. Admin only.
// @Tags admin
// @Produce json
// @Security Bearer
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Items per page" default(20)
// @Param user_id query int false "Filter by user ID"
// @Param type query string false "Filter by transaction type"
// @Param project_id query string false "Filter by project ID"
// @Param start_time query string false "Filter by start time (RFC3339)"
// @Param end_time query string false "Filter by end time (RFC3339)"
// @Param min_amount query int false "Filter by minimum amount"
// @Param max_amount query int false "Filter by maximum amount"
// @Success 200 {object} utils.Response{data=TransactionListResponse}
// @Failure 400 {object} utils.Response
// @Failure 401 {object} utils.Response
// @Failure 403 {object} utils.Response
// @Failure 500 {object} utils.Response
// @Router /admin/transactions [get]
func (h *Handler) ListTransactions(c *gin.Context) {
	page, limit, ok := common.Paginate(c, defaultPageSize)
	if !ok {
		return
	}
	filter, ok := parseFilter(c)
	if !ok {
		return
	}
	filter.Page = page
	filter.Limit = limit

	transactions, total, err := h.transactions.FindTransactions(c.Request.Context(), filter)
	if err != nil {
		common.RespondError(c, h.log, err, nil)
		return
	}

	items := make([]TransactionListItem, 0, len(transactions))
	for _, t := range transactions {
		items = append(items, TransactionListItem{
			ID:            t.ID,
			CreatedAt:     t.CreatedAt,
			UserID:        t.UserID,
			Amount:        t.Amount,
			BalanceBefore: t.BalanceBefore,
			BalanceAfter:  t.BalanceAfter,
			Reason:        t.Reason,
			Operator:      t.Operator,
			Type:          t.Type,
			ProjectID:     t.ProjectID,
			RefundOf:      t.RefundOf,
			IPAddress:     t.IPAddress,
			DeviceInfo:    t.DeviceInfo,
			Hash:          t.Hash,
			Verified:      t.VerifyHash(h.secret),
		})
	}

	c.JSON(http.StatusOK, utils.NewSuccessResponse("Transactions retrieved successfully", TransactionListResponse{
		Pagination:   utils.NewPagination(total, page, limit),
		Transactions: items,
	}))
}

// ExportTransactions godoc
// @Summary Export transactions
// @Description Export every matching ledger row to CSV. Rows whose hash no longer verifies are flagged. Admin only.
// @Tags admin
// @Produce text/csv
// @Security Bearer
// @Param user_id query int false "Filter by user ID"
// @Param type query string false "Filter by transaction type"
// @Param project_id query string false "Filter by project ID"
// @Param start_time query string false "Filter by start time (RFC3339)"
// @Param end_time query string false "Filter by end time (RFC3339)"
// @Success 200 {string} string "CSV content"
// @Failure 400 {object} utils.Response
// @Failure 401 {object} utils.Response
// @Failure 500 {object} utils.Response
// @Router /admin/transactions/export [get]
func (h *Handler) ExportTransactions(c *gin.Context) {
	filter, ok := parseFilter(c)
	if !ok {
		return
	}

	transactions, err := h.transactions.ExportTransactions(c.Request.Context(), filter)
	if err != nil {
		common.RespondError(c, h.log, err, nil)
		return
	}

	csvContent, err := h.transactions.GenerateTransactionCSV(transactions)
	if err != nil {
		common.RespondError(c, h.log, err, nil)
		return
	}

	filename := fmt.Sprintf("transactions_%s.csv", time.Now().Format("20060102150405"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	c.Data(http.StatusOK, "text/csv", csvContent)
}
