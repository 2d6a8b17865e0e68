package user

import (
	"errors"
	"net/http"
	"strconv"

	"sitesmith-backend/internal/api/v1/common"
	"sitesmith-backend/internal/middleware"
	"sitesmith-backend/internal/services"
	"sitesmith-backend/internal/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const defaultPageSize = 20

type Handler struct {
	users  *services.UserService
	ledger *services.CreditLedger
	log    *zap.Logger
}

func NewHandler(users *services.UserService, ledger *services.CreditLedger, log *zap.Logger) *Handler {
	return &Handler{users: users, ledger: ledger, log: log}
}

func parseUserID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, utils.NewErrorResponse(http.StatusBadRequest, "Invalid user ID"))
		return 0, false
	}
	return uint(id), true
}

// operator names the acting admin for audit fields.
func operator(c *gin.Context) (string, uint) {
	if u, ok := middleware.CurrentUser(c); ok {
		return u.Username, u.ID
	}
	return "unknown", 0
}

// ListUsers godoc
// @Summary List all users
// @Description Get a paginated list of users. Admin only.
// @Tags admin
// @Produce json
// @Security Bearer
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Items per page" default(20)
// @Success 200 {object} utils.Response{data=UserListResponse}
// @Failure 400 {object} utils.Response
// @Failure 401 {object} utils.Response
// @Failure 403 {object} utils.Response
// @Failure 500 {object} utils.Response
// @Router /admin/users [get]
func (h *Handler) ListUsers(c *gin.Context) {
	page, limit, ok := common.Paginate(c, defaultPageSize)
	if !ok {
		return
	}

	users, total, err := h.users.FindUsers(c.Request.Context(), page, limit)
	if err != nil {
		common.RespondError(c, h.log, err, nil)
		return
	}

	items := make([]UserListItem, 0, len(users))
	for i := range users {
		items = append(items, newUserListItem(&users[i]))
	}

	c.JSON(http.StatusOK, utils.NewSuccessResponse("Users retrieved successfully", UserListResponse{
		Pagination: utils.NewPagination(total, page, limit),
		Users:      items,
	}))
}

// UpdateUser godoc
// @Summary Update a user
// @Description Update username, password, role or active flag. Credits change only through the credits endpoint. Admin only.
// @Tags admin
// @Accept json
// @Produce json
// @Security Bearer
// @Param id path int true "User ID"
// @Param body body UpdateUserRequest true "User details to update"
// @Success 200 {object} utils.Response{data=UserListItem}
// @Failure 400 {object} utils.Response
// @Failure 401 {object} utils.Response
// @Failure 404 {object} utils.Response
// @Failure 409 {object} utils.Response
// @Failure 500 {object} utils.Response
// @Router /admin/users/{id} [patch]
func (h *Handler) UpdateUser(c *gin.Context) {
	id, ok := parseUserID(c)
	if !ok {
		return
	}

	var req UpdateUserRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	updates := make(map[string]interface{})
	if req.Username != nil {
		updates["username"] = *req.Username
	}
	if req.Password != nil {
		updates["password"] = *req.Password
	}
	if req.Role != nil {
		updates["role"] = *req.Role
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}

	if len(updates) == 0 {
		c.JSON(http.StatusBadRequest, utils.NewErrorResponse(http.StatusBadRequest, "No fields to update"))
		return
	}

	name, _ := operator(c)
	updatedUser, err := h.users.UpdateUser(c.Request.Context(), id, updates, name)
	if err != nil {
		common.RespondError(c, h.log, err, map[int]string{
			http.StatusNotFound: "User not found",
			http.StatusConflict: services.ErrOptimisticLock.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, utils.NewSuccessResponse("User updated successfully", newUserListItem(updatedUser)))
}

// AdjustCredits godoc
// @Summary Adjust a user's credits
// @Description Add or remove credits with a recorded reason. The balance never goes below zero. Admin only.
// @Tags admin
// @Accept json
// @Produce json
// @Security Bearer
// @Param id path int true "User ID"
// @Param body body AdjustCreditsRequest true "Signed amount and reason"
// @Success 200 {object} utils.Response{data=AdjustCreditsResponse}
// @Failure 400 {object} utils.Response
// @Failure 401 {object} utils.Response
// @Failure 404 {object} utils.Response
// @Failure 500 {object} utils.Response
// @Router /admin/users/{id}/credits [post]
func (h *Handler) AdjustCredits(c *gin.Context) {
	id, ok := parseUserID(c)
	if !ok {
		return
	}

	var req AdjustCreditsRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	ctx := c.Request.Context()
	name, operatorID := operator(c)
	tx, err := h.ledger.Adjust(ctx, id, req.Amount, services.ChargeMeta{
		Reason:     req.Reason,
		Operator:   name,
		OperatorID: operatorID,
		IPAddress:  c.ClientIP(),
		DeviceInfo: c.Request.UserAgent(),
	})
	if err != nil {
		if errors.Is(err, services.ErrInsufficientCredits) {
			c.JSON(http.StatusBadRequest, utils.NewErrorResponse(http.StatusBadRequest, "Adjustment would make the balance negative"))
			return
		}
		common.RespondError(c, h.log, err, map[int]string{http.StatusNotFound: "User not found"})
		return
	}

	u, err := h.users.FindUserByID(ctx, id)
	if err != nil {
		common.RespondError(c, h.log, err, nil)
		return
	}

	h.log.Info("credits adjusted",
		zap.Uint("user_id", id),
		zap.Int("amount", req.Amount),
		zap.String("operator", name))

	c.JSON(http.StatusOK, utils.NewSuccessResponse("Credits adjusted successfully", AdjustCreditsResponse{
		User:          newUserListItem(&u),
		TransactionID: tx.ID,
	}))
}
