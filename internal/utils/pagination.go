package utils

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
)

const MaxPageSize = 100

var (
	ErrInvalidPage  = errors.New("Invalid page number")
	ErrInvalidLimit = errors.New("Invalid limit number")
)

// ParsePagination reads ?page and ?limit, both 1-based, limit capped at MaxPageSize.
func ParsePagination(c *gin.Context, defaultLimit int) (int, int, error) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		return 0, 0, ErrInvalidPage
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultLimit)))
	if err != nil || limit < 1 {
		return 0, 0, ErrInvalidLimit
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	return page, limit, nil
}
