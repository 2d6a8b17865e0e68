package transaction

import "github.com/gin-gonic/gin"

func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/transactions", h.ListTransactions)
	router.GET("/transactions/export", h.ExportTransactions)
}
