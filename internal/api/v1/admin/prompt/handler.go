package prompt

import (
	"errors"
	"net/http"

	"sitesmith-backend/internal/api/v1/common"
	"sitesmith-backend/internal/services"
	"sitesmith-backend/internal/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const defaultPageSize = 10

type Handler struct {
	prompts *services.PromptService
	log     *zap.Logger
}

func NewHandler(prompts *services.PromptService, log *zap.Logger) *Handler {
	return &Handler{prompts: prompts, log: log}
}

func knownCode(c *gin.Context) (string, bool) {
	code := c.Param("code")
	if _, ok := services.BuiltinPrompts[code]; !ok {
		c.JSON(http.StatusNotFound, utils.NewErrorResponse(http.StatusNotFound, "Unknown prompt code"))
		return "", false
	}
	return code, true
}

// CreatePrompt godoc
// @Summary Override a system prompt
// @Description Store an override for one of the built-in enhancer or generator instructions
// @Tags admin_prompts
// @Accept json
// @Produce json
// @Security Bearer
// @Param request body CreatePromptRequest true "Create Prompt Request"
// @Success 201 {object} utils.Response{data=models.Prompt}
// @Failure 400 {object} utils.Response
// @Failure 409 {object} utils.Response
// @Failure 500 {object} utils.Response
// @Router /admin/prompts [post]
func (h *Handler) CreatePrompt(c *gin.Context) {
	var req CreatePromptRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	prompt, err := h.prompts.CreatePrompt(c.Request.Context(), req.Code, req.Content)
	if err != nil {
		common.RespondError(c, h.log, err, map[int]string{http.StatusConflict: "Prompt already overridden, update it instead"})
		return
	}

	c.JSON(http.StatusCreated, utils.NewResponse(http.StatusCreated, "Prompt created successfully", prompt))
}

// UpdatePrompt godoc
// @Summary Update a prompt override
// @Tags admin_prompts
// @Accept json
// @Produce json
// @Security Bearer
// @Param code path string true "Prompt Code"
// @Param request body UpdatePromptRequest true "Update Prompt Request"
// @Success 200 {object} utils.Response{data=models.Prompt}
// @Failure 400 {object} utils.Response
// @Failure 404 {object} utils.Response
// @Failure 500 {object} utils.Response
// @Router /admin/prompts/{code} [put]
func (h *Handler) UpdatePrompt(c *gin.Context) {
	code, ok := knownCode(c)
	if !ok {
		return
	}
	var req UpdatePromptRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	prompt, err := h.prompts.UpdatePrompt(c.Request.Context(), code, req.Content)
	if err != nil {
		common.RespondError(c, h.log, err, map[int]string{http.StatusNotFound: "Prompt not found"})
		return
	}

	c.JSON(http.StatusOK, utils.NewSuccessResponse("Prompt updated successfully", prompt))
}

// DeletePrompt godoc
// @Summary Delete a prompt override
// @Description Remove the override so the built-in instruction is used again
// @Tags admin_prompts
// @Produce json
// @Security Bearer
// @Param code path string true "Prompt Code"
// @Success 200 {object} utils.Response
// @Failure 404 {object} utils.Response
// @Failure 500 {object} utils.Response
// @Router /admin/prompts/{code} [delete]
func (h *Handler) DeletePrompt(c *gin.Context) {
	code, ok := knownCode(c)
	if !ok {
		return
	}

	if err := h.prompts.DeletePrompt(c.Request.Context(), code); err != nil {
		common.RespondError(c, h.log, err, map[int]string{http.StatusNotFound: "Prompt not found"})
		return
	}

	c.JSON(http.StatusOK, utils.NewSuccessResponse("Prompt deleted successfully", nil))
}

// GetPrompt godoc
// @Summary Get the prompt in effect
// @Description Returns the override when one exists, otherwise the built-in instruction
// @Tags admin_prompts
// @Produce json
// @Security Bearer
// @Param code path string true "Prompt Code"
// @Success 200 {object} utils.Response{data=PromptResponse}
// @Failure 404 {object} utils.Response
// @Failure 500 {object} utils.Response
// @Router /admin/prompts/{code} [get]
func (h *Handler) GetPrompt(c *gin.Context) {
	code, ok := knownCode(c)
	if !ok {
		return
	}

	prompt, err := h.prompts.GetPromptByCode(c.Request.Context(), code)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, utils.NewSuccessResponse("Prompt retrieved successfully", PromptResponse{
			Code: code, Content: prompt.Content, Overridden: true,
		}))
	case errors.Is(err, services.ErrPromptNotFound):
		c.JSON(http.StatusOK, utils.NewSuccessResponse("Prompt retrieved successfully", PromptResponse{
			Code: code, Content: services.BuiltinPrompts[code],
		}))
	default:
		common.RespondError(c, h.log, err, nil)
	}
}

// ListPrompts godoc
// @Summary List prompt overrides
// @Tags admin_prompts
// @Produce json
// @Security Bearer
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Page size" default(10)
// @Success 200 {object} utils.Response{data=PromptListResponse}
// @Failure 400 {object} utils.Response
// @Failure 500 {object} utils.Response
// @Router /admin/prompts [get]
func (h *Handler) ListPrompts(c *gin.Context) {
	page, limit, ok := common.Paginate(c, defaultPageSize)
	if !ok {
		return
	}

	prompts, total, err := h.prompts.ListPrompts(c.Request.Context(), page, limit)
	if err != nil {
		common.RespondError(c, h.log, err, nil)
		return
	}

	c.JSON(http.StatusOK, utils.NewSuccessResponse("Prompts retrieved successfully", PromptListResponse{
		Pagination: utils.NewPagination(total, page, limit),
		Items:      prompts,
	}))
}
