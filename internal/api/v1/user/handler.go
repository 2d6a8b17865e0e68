package user

import (
	"net/http"

	"sitesmith-backend/internal/api/v1/common"
	"sitesmith-backend/internal/services"
	"sitesmith-backend/internal/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const defaultProjectPageSize = 20

type Handler struct {
	ledger       *services.CreditLedger
	projects     *services.ProjectService
	orchestrator *services.RevisionOrchestrator
	tokens       *utils.TokenManager
	log          *zap.Logger
}

func NewHandler(
	ledger *services.CreditLedger,
	projects *services.ProjectService,
	orchestrator *services.RevisionOrchestrator,
	tokens *utils.TokenManager,
	log *zap.Logger,
) *Handler {
	return &Handler{
		ledger:       ledger,
		projects:     projects,
		orchestrator: orchestrator,
		tokens:       tokens,
		log:          log,
	}
}

// CurrentUser godoc
// @Summary Get current user
// @Description Get current user's information with a refreshed token
// @Tags user
// @Produce  json
// @Security Bearer
// @Success 200 {object} utils.Response{data=user.UserResponse}
// @Failure 401 {object} utils.Response
// @Failure 500 {object} utils.Response
// @Router /auth/user [get]
func (h *Handler) CurrentUser(c *gin.Context) {
	u, ok := common.RequireUser(c)
	if !ok {
		return
	}

	// The middleware copy may come from cache; credits must be current.
	credits, err := h.ledger.Balance(c.Request.Context(), u.ID)
	if err != nil {
		common.RespondError(c, h.log, err, nil)
		return
	}
	u.Credits = credits

	token, err := h.tokens.GenerateToken(u.ID, u.Role)
	if err != nil {
		common.RespondError(c, h.log, err, nil)
		return
	}

	c.JSON(http.StatusOK, utils.NewSuccessResponse("User information retrieved successfully", NewUserResponse(&u, token)))
}

// Credits godoc
// @Summary Get credit balance
// @Tags user
// @Produce  json
// @Security Bearer
// @Success 200 {object} utils.Response{data=user.CreditsResponse}
// @Failure 401 {object} utils.Response
// @Router /user/credits [get]
func (h *Handler) Credits(c *gin.Context) {
	u, ok := common.RequireUser(c)
	if !ok {
		return
	}

	credits, err := h.ledger.Balance(c.Request.Context(), u.ID)
	if err != nil {
		common.RespondError(c, h.log, err, nil)
		return
	}
	c.JSON(http.StatusOK, utils.NewSuccessResponse("Credits retrieved successfully", CreditsResponse{Credits: credits}))
}

// CreateProject godoc
// @Summary Create a project
// @Description Charge one generation and start building a website from the prompt. Returns immediately; poll the project until a version appears or the generation fails.
// @Tags user
// @Accept  json
// @Produce  json
// @Security Bearer
// @Param   input body CreateProjectInput true "Initial prompt"
// @Success 200 {object} utils.Response{data=user.CreateProjectResponse}
// @Failure 400 {object} utils.Response
// @Failure 401 {object} utils.Response
// @Failure 403 {object} utils.Response
// @Failure 500 {object} utils.Response
// @Router /user/project [post]
func (h *Handler) CreateProject(c *gin.Context) {
	u, ok := common.RequireUser(c)
	if !ok {
		return
	}

	var input CreateProjectInput
	if !utils.BindAndValidate(c, &input) {
		return
	}

	project, _, err := h.orchestrator.CreateProject(c.Request.Context(), u.ID, input.InitialPrompt, common.RequestMeta(c))
	if err != nil {
		common.RespondError(c, h.log, err, map[int]string{
			http.StatusForbidden: "add credits to create more projects",
		})
		return
	}

	c.JSON(http.StatusOK, utils.NewSuccessResponse("Project creation started", CreateProjectResponse{ProjectID: project.ID}))
}

// GetProject godoc
// @Summary Get a project
// @Description Project with its conversation and versions oldest first, plus the creation job status
// @Tags user
// @Produce  json
// @Security Bearer
// @Param   projectId path string true "Project ID"
// @Success 200 {object} utils.Response{data=user.ProjectDetailResponse}
// @Failure 401 {object} utils.Response
// @Failure 404 {object} utils.Response
// @Router /user/project/{projectId} [get]
func (h *Handler) GetProject(c *gin.Context) {
	u, ok := common.RequireUser(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	detail, err := h.projects.Detail(ctx, u.ID, c.Param("projectId"))
	if err != nil {
		common.RespondError(c, h.log, err, map[int]string{http.StatusNotFound: "Project not found"})
		return
	}
	credits, err := h.ledger.Balance(ctx, u.ID)
	if err != nil {
		common.RespondError(c, h.log, err, nil)
		return
	}

	c.JSON(http.StatusOK, utils.NewSuccessResponse("Project retrieved successfully", ProjectDetailResponse{
		Credits:    credits,
		Project:    NewProjectResponse(detail.Project),
		Generation: detail.Generation,
	}))
}

// RecentProject godoc
// @Summary Get the most recently updated project
// @Tags user
// @Produce  json
// @Security Bearer
// @Success 200 {object} utils.Response{data=user.RecentProjectResponse}
// @Failure 401 {object} utils.Response
// @Router /user/projects [get]
func (h *Handler) RecentProject(c *gin.Context) {
	u, ok := common.RequireUser(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	project, err := h.projects.MostRecent(ctx, u.ID)
	if err != nil {
		common.RespondError(c, h.log, err, nil)
		return
	}
	credits, err := h.ledger.Balance(ctx, u.ID)
	if err != nil {
		common.RespondError(c, h.log, err, nil)
		return
	}

	c.JSON(http.StatusOK, utils.NewSuccessResponse("Project retrieved successfully", RecentProjectResponse{
		Credits: credits,
		Project: project,
	}))
}

// ListProjects godoc
// @Summary List projects
// @Description Page through the user's projects, most recently updated first. Code and history are omitted.
// @Tags user
// @Produce  json
// @Security Bearer
// @Param   page  query int false "Page number" default(1)
// @Param   limit query int false "Page size" default(20)
// @Success 200 {object} utils.Response{data=user.ProjectListResponse}
// @Failure 400 {object} utils.Response
// @Failure 401 {object} utils.Response
// @Router /user/projects/all [get]
func (h *Handler) ListProjects(c *gin.Context) {
	u, ok := common.RequireUser(c)
	if !ok {
		return
	}
	page, limit, ok := common.Paginate(c, defaultProjectPageSize)
	if !ok {
		return
	}

	projects, total, err := h.projects.List(c.Request.Context(), u.ID, page, limit)
	if err != nil {
		common.RespondError(c, h.log, err, nil)
		return
	}

	c.JSON(http.StatusOK, utils.NewSuccessResponse("Projects retrieved successfully", ProjectListResponse{
		Pagination: utils.NewPagination(total, page, limit),
		Items:      projects,
	}))
}

// TogglePublish godoc
// @Summary Toggle publish
// @Description Publish or unpublish a project. Published projects are served by the public endpoint.
// @Tags user
// @Produce  json
// @Security Bearer
// @Param   projectId path string true "Project ID"
// @Success 200 {object} utils.Response{data=user.PublishToggleResponse}
// @Failure 401 {object} utils.Response
// @Failure 404 {object} utils.Response
// @Router /user/publish-toggle/{projectId} [get]
func (h *Handler) TogglePublish(c *gin.Context) {
	u, ok := common.RequireUser(c)
	if !ok {
		return
	}

	project, message, err := h.projects.TogglePublish(c.Request.Context(), u.ID, c.Param("projectId"))
	if err != nil {
		common.RespondError(c, h.log, err, map[int]string{http.StatusNotFound: "Project not found"})
		return
	}

	c.JSON(http.StatusOK, utils.NewSuccessResponse(message, PublishToggleResponse{
		ID:          project.ID,
		IsPublished: project.IsPublished,
	}))
}
