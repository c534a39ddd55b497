package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/retroboard/internal/middleware"
	"github.com/localnerve/retroboard/internal/services"
	"github.com/localnerve/retroboard/internal/types"
	"github.com/localnerve/retroboard/internal/utils"
)

// AuthHandler handles session routes
type AuthHandler struct {
	Service *services.Service
}

// Login handles POST /api/auth/login
// @Summary Sign in
// @Description Start a session for an existing user
// @Tags Auth
// @Accept json
// @Produce json
// @Param body body types.AuthRequest true "Credentials"
// @Success 200 {object} services.Session
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Failure 429 {object} utils.ErrorResponseStruct
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req types.AuthRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	session, err := h.Service.SignIn(c.UserContext(), req.Email)
	if err != nil {
		return err
	}
	return utils.SuccessResponse(c, session, fiber.StatusOK)
}

// Signup handles POST /api/auth/signup
// @Summary Sign up
// @Description Create a user and start a session. The first user becomes admin.
// @Tags Auth
// @Accept json
// @Produce json
// @Param body body types.AuthRequest true "Email and name"
// @Success 201 {object} services.Session
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 409 {object} utils.ErrorResponseStruct
// @Failure 429 {object} utils.ErrorResponseStruct
// @Router /auth/signup [post]
func (h *AuthHandler) Signup(c *fiber.Ctx) error {
	var req types.AuthRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	session, err := h.Service.SignUp(c.UserContext(), req.Email, req.Name)
	if err != nil {
		return err
	}
	return utils.SuccessResponse(c, session, fiber.StatusCreated)
}

// Logout handles POST /api/auth/logout
// @Summary Sign out
// @Description Invalidate every token issued to the user so far
// @Tags Auth
// @Accept json
// @Produce json
// @Param body body types.LogoutRequest false "User to sign out, defaults to the caller"
// @Success 200 {object} utils.OkResponseStruct
// @Failure 401 {object} utils.ErrorResponseStruct
// @Failure 403 {object} utils.ErrorResponseStruct
// @Security BearerAuth
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	var req types.LogoutRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if err := h.Service.SignOut(c.UserContext(), middleware.CurrentUser(c), req.UserID); err != nil {
		return err
	}
	return utils.OkResponse(c)
}

// Me handles GET /api/auth/me
// @Summary Current user
// @Description Resolve the bearer token to its user, or null
// @Tags Auth
// @Produce json
// @Success 200 {object} models.User
// @Router /auth/me [get]
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	user, err := h.Service.CurrentUser(c.UserContext(), middleware.BearerToken(c))
	if err != nil {
		return err
	}
	return orNull(c, user)
}
