package middleware

import (
	"net/http"

	"sitesmith-backend/internal/models"
	"sitesmith-backend/internal/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AdminAuth lets only admins through. It must run after Auth.
func AdminAuth(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := CurrentUser(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, utils.NewErrorResponse(http.StatusUnauthorized, "Unauthorized"))
			return
		}

		if user.Role != models.RoleAdmin {
			log.Warn("unauthorized admin access attempt",
				zap.Uint("user_id", user.ID),
				zap.String("path", c.Request.URL.Path),
				zap.String("ip", c.ClientIP()))
			c.AbortWithStatusJSON(http.StatusForbidden, utils.NewErrorResponse(http.StatusForbidden, "Forbidden: Admins only"))
			return
		}

		c.Next()
	}
}
