package user

import "github.com/gin-gonic/gin"

func (h *Handler) RegisterRoutes(router *gin.RouterGroup, authMiddleware gin.HandlerFunc) {
	router.GET("/auth/user", authMiddleware, h.CurrentUser)

	user := router.Group("/user", authMiddleware)
	{
		user.GET("/credits", h.Credits)
		user.POST("/project", h.CreateProject)
		user.GET("/project/:projectId", h.GetProject)
		user.GET("/projects", h.RecentProject)
		user.GET("/projects/all", h.ListProjects)
		user.GET("/publish-toggle/:projectId", h.TogglePublish)
	}
}
