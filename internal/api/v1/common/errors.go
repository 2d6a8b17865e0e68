// Package common holds helpers shared by the v1 handlers.
package common

import (
	"errors"
	"net/http"

	"sitesmith-backend/internal/middleware"
	"sitesmith-backend/internal/models"
	"sitesmith-backend/internal/services"
	"sitesmith-backend/internal/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const internalErrorMessage = "Something went wrong, please try again later"

// StatusFor maps a service error kind to an HTTP status.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, services.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrInsufficientCredits):
		return http.StatusForbidden
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// RespondError writes the error envelope for err. Client errors use
// clientMessages[status] when given, otherwise a default per status. Server
// errors get a generic message; details only reach the log.
func RespondError(c *gin.Context, log *zap.Logger, err error, clientMessages map[int]string) {
	status := StatusFor(err)

	if status == http.StatusInternalServerError {
		log.Error("request failed",
			zap.String("request_id", c.GetString(middleware.RequestIDKey)),
			zap.String("route", c.FullPath()),
			zap.Error(err))
		_ = c.Error(err)
		c.JSON(status, utils.NewErrorResponse(status, internalErrorMessage))
		return
	}

	message, ok := clientMessages[status]
	if !ok {
		message = defaultMessage(status, err)
	}
	c.JSON(status, utils.NewErrorResponse(status, message))
}

func defaultMessage(status int, err error) string {
	switch status {
	case http.StatusUnauthorized:
		return "Unauthorized"
	case http.StatusForbidden:
		return "add credits to continue"
	case http.StatusNotFound:
		return "Not found"
	case http.StatusConflict:
		if errors.Is(err, services.ErrProjectBusy) {
			return "This project is already being updated, please wait"
		}
		return "Conflict"
	default:
		return err.Error()
	}
}

// RequireUser returns the authenticated user or writes a 401.
func RequireUser(c *gin.Context) (models.User, bool) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, utils.NewErrorResponse(http.StatusUnauthorized, "Unauthorized"))
		return models.User{}, false
	}
	return user, true
}

// RequestMeta captures the caller's address and agent for the ledger.
func RequestMeta(c *gin.Context) services.RequestMeta {
	return services.RequestMeta{
		IPAddress:  c.ClientIP(),
		DeviceInfo: c.Request.UserAgent(),
	}
}

// Paginate parses ?page and ?limit, writing a 400 on bad input.
func Paginate(c *gin.Context, defaultLimit int) (int, int, bool) {
	page, limit, err := utils.ParsePagination(c, defaultLimit)
	if err != nil {
		c.JSON(http.StatusBadRequest, utils.NewErrorResponse(http.StatusBadRequest, err.Error()))
		return 0, 0, false
	}
	return page, limit, true
}
