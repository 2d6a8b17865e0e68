package project

import "github.com/gin-gonic/gin"

func (h *Handler) RegisterRoutes(router *gin.RouterGroup, authMiddleware gin.HandlerFunc) {
	project := router.Group("/project")
	project.GET("/published/:projectId", h.Published)

	protected := project.Group("", authMiddleware)
	{
		protected.POST("/revision/:projectId", h.Revise)
		protected.PUT("/save/:projectId", h.Save)
		protected.GET("/rollback/:projectId/:versionId", h.Rollback)
		protected.GET("/preview/:projectId", h.Preview)
		protected.DELETE("/:projectId", h.Delete)
		if h.stream != nil {
			protected.GET("/:projectId/events", h.stream.Serve)
		}
	}
}
