package auth

import (
	"errors"
	"net/http"

	"sitesmith-backend/internal/api/v1/common"
	"sitesmith-backend/internal/api/v1/user"
	"sitesmith-backend/internal/middleware"
	"sitesmith-backend/internal/services"
	"sitesmith-backend/internal/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Handler struct {
	auth     *services.AuthService
	tokens   *utils.TokenManager
	denylist *services.TokenDenylist
	log      *zap.Logger
}

func NewHandler(auth *services.AuthService, tokens *utils.TokenManager, denylist *services.TokenDenylist, log *zap.Logger) *Handler {
	return &Handler{auth: auth, tokens: tokens, denylist: denylist, log: log}
}

// Register godoc
// @Summary Register a new user
// @Description Register a new user with a username and password. New accounts receive the signup credit bonus.
// @Tags auth
// @Accept  json
// @Produce  json
// @Param   input     body   RegisterInput  true  "Register Input"
// @Success 201 {object} utils.Response{data=user.UserResponse}
// @Failure 400 {object} utils.Response
// @Failure 409 {object} utils.Response
// @Failure 500 {object} utils.Response
// @Router /auth/register [post]
func (h *Handler) Register(c *gin.Context) {
	var input RegisterInput
	if !utils.BindAndValidate(c, &input) {
		return
	}

	u, err := h.auth.RegisterUser(c.Request.Context(), input.Username, input.Password)
	if err != nil {
		if errors.Is(err, services.ErrUserAlreadyExists) {
			c.JSON(http.StatusConflict, utils.NewErrorResponse(http.StatusConflict, "User with this username already exists"))
			return
		}
		common.RespondError(c, h.log, err, nil)
		return
	}

	token, err := h.tokens.GenerateToken(u.ID, u.Role)
	if err != nil {
		common.RespondError(c, h.log, err, nil)
		return
	}

	c.JSON(http.StatusCreated, utils.NewResponse(http.StatusCreated, "User registered successfully", user.NewUserResponse(u, token)))
}

// Login godoc
// @Summary Log in a user
// @Description Log in a user with a username and password
// @Tags auth
// @Accept  json
// @Produce  json
// @Param   input     body   LoginInput  true  "Login Input"
// @Success 200 {object} utils.Response{data=user.UserResponse}
// @Failure 400 {object} utils.Response
// @Failure 401 {object} utils.Response
// @Router /auth/login [post]
func (h *Handler) Login(c *gin.Context) {
	var input LoginInput
	if !utils.BindAndValidate(c, &input) {
		return
	}

	token, u, err := h.auth.LoginUser(c.Request.Context(), input.Username, input.Password)
	if err != nil {
		if errors.Is(err, services.ErrUnauthenticated) {
			c.JSON(http.StatusUnauthorized, utils.NewErrorResponse(http.StatusUnauthorized, "Invalid username or password"))
			return
		}
		common.RespondError(c, h.log, err, nil)
		return
	}

	c.JSON(http.StatusOK, utils.NewSuccessResponse("Logged in successfully", user.NewUserResponse(u, token)))
}

// Logout godoc
// @Summary Log out a user
// @Description Revoke the current token until it expires
// @Tags auth
// @Produce  json
// @Security Bearer
// @Success 200 {object} utils.Response
// @Failure 401 {object} utils.Response
// @Failure 500 {object} utils.Response
// @Router /auth/logout [post]
func (h *Handler) Logout(c *gin.Context) {
	tokenString := c.GetString(middleware.ContextTokenKey)
	if tokenString == "" {
		c.JSON(http.StatusUnauthorized, utils.NewErrorResponse(http.StatusUnauthorized, "Unauthorized"))
		return
	}

	remaining := middleware.TokenRemaining(c)
	if remaining <= 0 {
		remaining = h.tokens.TTL()
	}

	if err := h.denylist.Add(c.Request.Context(), tokenString, remaining); err != nil {
		h.log.Error("failed to denylist token", zap.Error(err))
		c.JSON(http.StatusInternalServerError, utils.NewErrorResponse(http.StatusInternalServerError, "Failed to denylist token"))
		return
	}

	c.JSON(http.StatusOK, utils.NewSuccessResponse("Logged out successfully", nil))
}
