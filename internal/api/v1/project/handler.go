package project

import (
	"errors"
	"net/http"

	"sitesmith-backend/internal/api/v1/common"
	"sitesmith-backend/internal/api/v1/user"
	"sitesmith-backend/internal/services"
	"sitesmith-backend/internal/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const msgProjectNotFound = "Project not found"

type Handler struct {
	projects     *services.ProjectService
	orchestrator *services.RevisionOrchestrator
	stream       *Stream
	log          *zap.Logger
}

// NewHandler builds the project handler. stream may be nil, in which case the
// events endpoint is not registered.
func NewHandler(projects *services.ProjectService, orchestrator *services.RevisionOrchestrator, stream *Stream, log *zap.Logger) *Handler {
	return &Handler{projects: projects, orchestrator: orchestrator, stream: stream, log: log}
}

// Revise godoc
// @Summary Request a revision
// @Description Charge one generation, rewrite the page from the message and store it as a new version. Any failure after the charge is refunded and leaves the current page unchanged.
// @Tags project
// @Accept  json
// @Produce  json
// @Security Bearer
// @Param   projectId path string true "Project ID"
// @Param   input body RevisionInput true "Requested change"
// @Success 200 {object} utils.Response{data=project.VersionResponse}
// @Failure 400 {object} utils.Response
// @Failure 401 {object} utils.Response
// @Failure 403 {object} utils.Response
// @Failure 404 {object} utils.Response
// @Failure 409 {object} utils.Response
// @Failure 500 {object} utils.Response
// @Router /project/revision/{projectId} [post]
func (h *Handler) Revise(c *gin.Context) {
	u, ok := common.RequireUser(c)
	if !ok {
		return
	}

	var input RevisionInput
	if !utils.BindAndValidate(c, &input) {
		return
	}

	version, err := h.orchestrator.Revise(c.Request.Context(), u.ID, c.Param("projectId"), input.Message, common.RequestMeta(c))
	if err != nil {
		common.RespondError(c, h.log, err, map[int]string{
			http.StatusForbidden: "add more credits to make changes",
			http.StatusNotFound:  msgProjectNotFound,
		})
		return
	}

	c.JSON(http.StatusOK, utils.NewSuccessResponse("Changes made successfully", newVersionResponse(version)))
}

// Save godoc
// @Summary Save code
// @Description Replace the current page with hand-edited code. No version is recorded and no credits are charged.
// @Tags project
// @Accept  json
// @Produce  json
// @Security Bearer
// @Param   projectId path string true "Project ID"
// @Param   input body SaveInput true "Full HTML document"
// @Success 200 {object} utils.Response
// @Failure 400 {object} utils.Response
// @Failure 401 {object} utils.Response
// @Failure 404 {object} utils.Response
// @Failure 409 {object} utils.Response
// @Router /project/save/{projectId} [put]
func (h *Handler) Save(c *gin.Context) {
	u, ok := common.RequireUser(c)
	if !ok {
		return
	}

	var input SaveInput
	if !utils.BindAndValidate(c, &input) {
		return
	}

	if err := h.orchestrator.Save(c.Request.Context(), u.ID, c.Param("projectId"), input.Code); err != nil {
		common.RespondError(c, h.log, err, map[int]string{
			http.StatusBadRequest: "Code is required",
			http.StatusNotFound:   msgProjectNotFound,
		})
		return
	}

	c.JSON(http.StatusOK, utils.NewSuccessResponse("Project code saved successfully", nil))
}

// Rollback godoc
// @Summary Roll back to a version
// @Description Point the project back at an earlier version. History is kept.
// @Tags project
// @Produce  json
// @Security Bearer
// @Param   projectId path string true "Project ID"
// @Param   versionId path string true "Version ID"
// @Success 200 {object} utils.Response{data=project.VersionResponse}
// @Failure 401 {object} utils.Response
// @Failure 404 {object} utils.Response
// @Failure 409 {object} utils.Response
// @Router /project/rollback/{projectId}/{versionId} [get]
func (h *Handler) Rollback(c *gin.Context) {
	u, ok := common.RequireUser(c)
	if !ok {
		return
	}

	version, err := h.orchestrator.Rollback(c.Request.Context(), u.ID, c.Param("projectId"), c.Param("versionId"))
	if err != nil {
		notFound := msgProjectNotFound
		if errors.Is(err, services.ErrVersionNotFound) {
			notFound = "Version not found"
		}
		common.RespondError(c, h.log, err, map[int]string{http.StatusNotFound: notFound})
		return
	}

	c.JSON(http.StatusOK, utils.NewSuccessResponse("Version rolled back", newVersionResponse(version)))
}

// Delete godoc
// @Summary Delete a project
// @Description Delete the project with its versions and conversation. Credit history is kept.
// @Tags project
// @Produce  json
// @Security Bearer
// @Param   projectId path string true "Project ID"
// @Success 200 {object} utils.Response
// @Failure 401 {object} utils.Response
// @Failure 404 {object} utils.Response
// @Router /project/{projectId} [delete]
func (h *Handler) Delete(c *gin.Context) {
	u, ok := common.RequireUser(c)
	if !ok {
		return
	}

	if err := h.projects.Delete(c.Request.Context(), u.ID, c.Param("projectId")); err != nil {
		common.RespondError(c, h.log, err, map[int]string{http.StatusNotFound: msgProjectNotFound})
		return
	}

	c.JSON(http.StatusOK, utils.NewSuccessResponse("Project deleted successfully", nil))
}

// Preview godoc
// @Summary Preview a project
// @Tags project
// @Produce  json
// @Security Bearer
// @Param   projectId path string true "Project ID"
// @Success 200 {object} utils.Response{data=user.ProjectResponse}
// @Failure 401 {object} utils.Response
// @Failure 404 {object} utils.Response
// @Router /project/preview/{projectId} [get]
func (h *Handler) Preview(c *gin.Context) {
	u, ok := common.RequireUser(c)
	if !ok {
		return
	}

	project, err := h.projects.Preview(c.Request.Context(), u.ID, c.Param("projectId"))
	if err != nil {
		common.RespondError(c, h.log, err, map[int]string{http.StatusNotFound: msgProjectNotFound})
		return
	}

	c.JSON(http.StatusOK, utils.NewSuccessResponse("Project retrieved successfully", user.NewProjectResponse(project)))
}

// Published godoc
// @Summary Get a published page
// @Description Public. Returns the code of a published project; unpublished or empty projects are reported as missing.
// @Tags project
// @Produce  json
// @Param   projectId path string true "Project ID"
// @Success 200 {object} utils.Response{data=project.PublishedResponse}
// @Failure 404 {object} utils.Response
// @Router /project/published/{projectId} [get]
func (h *Handler) Published(c *gin.Context) {
	code, err := h.projects.Published(c.Request.Context(), c.Param("projectId"))
	if err != nil {
		common.RespondError(c, h.log, err, map[int]string{http.StatusNotFound: msgProjectNotFound})
		return
	}

	c.JSON(http.StatusOK, utils.NewSuccessResponse("Project retrieved successfully", PublishedResponse{Code: code}))
}
