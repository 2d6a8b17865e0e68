package user

import "github.com/gin-gonic/gin"

func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/users", h.ListUsers)
	router.PATCH("/users/:id", h.UpdateUser)
	router.POST("/users/:id/credits", h.AdjustCredits)
}
