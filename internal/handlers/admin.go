package handlers

import (
	"bytes"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/retroboard/internal/config"
	"github.com/localnerve/retroboard/internal/database"
	"github.com/localnerve/retroboard/internal/export"
	"github.com/localnerve/retroboard/internal/services"
	"github.com/localnerve/retroboard/internal/types"
	"github.com/localnerve/retroboard/internal/utils"
	"gorm.io/gorm"
)

// AdminHandler handles user administration, export, schema setup and health routes
type AdminHandler struct {
	Service *services.Service
	Config  *config.Config
	// DB is nil when the store is not relational
	DB *gorm.DB
}

// ListUsers handles GET /api/users
// @Summary List users
// @Tags Users
// @Produce json
// @Success 200 {array} models.User
// @Failure 403 {object} utils.ErrorResponseStruct
// @Security BearerAuth
// @Router /users [get]
func (h *AdminHandler) ListUsers(c *fiber.Ctx) error {
	users, err := h.Service.ListUsers(c.UserContext())
	if err != nil {
		return err
	}
	return orEmpty(c, users)
}

// GetUser handles GET /api/users/:id
// @Summary Get a user
// @Tags Users
// @Produce json
// @Param id path string true "User ID"
// @Success 200 {object} models.User "null when the user does not exist"
// @Failure 403 {object} utils.ErrorResponseStruct
// @Security BearerAuth
// @Router /users/{id} [get]
func (h *AdminHandler) GetUser(c *fiber.Ctx) error {
	user, err := h.Service.GetUser(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return orNull(c, user)
}

// CreateUser handles POST /api/users
// @Summary Create a user
// @Tags Users
// @Accept json
// @Produce json
// @Param body body types.UserRequest true "User"
// @Success 201 {object} models.User
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 409 {object} utils.ErrorResponseStruct
// @Security BearerAuth
// @Router /users [post]
func (h *AdminHandler) CreateUser(c *fiber.Ctx) error {
	var req types.UserRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	user, err := h.Service.CreateUser(c.UserContext(), req)
	if err != nil {
		return err
	}
	return utils.SuccessResponse(c, user, fiber.StatusCreated)
}

// UpdateUser handles PUT /api/users/:id
// @Summary Update a user
// @Tags Users
// @Accept json
// @Produce json
// @Param id path string true "User ID"
// @Param body body types.UserRequest true "Fields to change"
// @Success 200 {object} models.User
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Security BearerAuth
// @Router /users/{id} [put]
func (h *AdminHandler) UpdateUser(c *fiber.Ctx) error {
	var req types.UserRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	user, err := h.Service.UpdateUser(c.UserContext(), c.Params("id"), req)
	if err != nil {
		return err
	}
	return utils.SuccessResponse(c, user, fiber.StatusOK)
}

// DeleteUser handles DELETE /api/users/:id
// @Summary Delete a user
// @Tags Users
// @Produce json
// @Param id path string true "User ID"
// @Success 200 {object} utils.OkResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Security BearerAuth
// @Router /users/{id} [delete]
func (h *AdminHandler) DeleteUser(c *fiber.Ctx) error {
	if err := h.Service.DeleteUser(c.UserContext(), c.Params("id")); err != nil {
		return err
	}
	return utils.OkResponse(c)
}

// Export handles GET /api/admin/export
// @Summary Export everything
// @Description JSON snapshot of all users, boards, columns, cards, comments and buffered reactions. format=xlsx returns a workbook.
// @Tags Admin
// @Produce json
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param format query string false "json (default) or xlsx"
// @Success 200 {object} models.Snapshot
// @Failure 403 {object} utils.ErrorResponseStruct
// @Failure 429 {object} utils.ErrorResponseStruct
// @Security BearerAuth
// @Router /admin/export [get]
func (h *AdminHandler) Export(c *fiber.Ctx) error {
	snap, err := h.Service.Snapshot(c.UserContext())
	if err != nil {
		return err
	}

	switch c.Query("format", "json") {
	case "json":
		return utils.SuccessResponse(c, snap, fiber.StatusOK)
	case "xlsx":
		var buf bytes.Buffer
		if err := export.Write(&buf, snap); err != nil {
			return err
		}
		name := fmt.Sprintf("retroboard-%s.xlsx", time.Now().UTC().Format("20060102-150405"))
		c.Set(fiber.HeaderContentType, export.ContentType)
		c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", name))
		return c.Status(fiber.StatusOK).Send(buf.Bytes())
	}
	return types.BadRequest("unknown export format %q", c.Query("format"))
}

// SetupDB handles GET /api/setup-db
// @Summary Set up the schema
// @Description Migrate every table and create the indexes. Safe to repeat.
// @Tags Admin
// @Produce json
// @Success 200 {object} database.SetupResult
// @Failure 500 {object} utils.ErrorResponseStruct
// @Router /setup-db [get]
func (h *AdminHandler) SetupDB(c *fiber.Ctx) error {
	if h.DB == nil {
		return utils.SuccessResponse(c, database.SetupResult{Dialect: h.Config.DBType}, fiber.StatusOK)
	}
	result, err := database.SetupSchema(h.DB.WithContext(c.UserContext()))
	if err != nil {
		return err
	}
	return utils.SuccessResponse(c, result, fiber.StatusOK)
}

// Health handles GET /api/health
// @Summary Health check
// @Tags Admin
// @Produce json
// @Success 200 {object} services.HealthCheckResult
// @Failure 503 {object} services.HealthCheckResult
// @Router /health [get]
func (h *AdminHandler) Health(c *fiber.Ctx) error {
	result := h.Service.HealthCheck(c.UserContext(), h.Config.DBType, h.Config.DBDatabase)
	status := fiber.StatusOK
	if result.Status != "healthy" {
		status = fiber.StatusServiceUnavailable
	}
	return c.Status(status).JSON(result)
}
