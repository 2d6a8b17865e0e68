package prompt

import "github.com/gin-gonic/gin"

func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	prompts := router.Group("/prompts")
	{
		prompts.GET("", h.ListPrompts)
		prompts.POST("", h.CreatePrompt)
		prompts.GET("/:code", h.GetPrompt)
		prompts.PUT("/:code", h.UpdatePrompt)
		prompts.DELETE("/:code", h.DeletePrompt)
	}
}
