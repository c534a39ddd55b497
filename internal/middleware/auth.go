package middleware

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/retroboard/internal/models"
	"github.com/localnerve/retroboard/internal/services"
)

// userKey is the fiber Locals key holding the authenticated *models.User
const userKey = "user"

// Authenticator resolves a session token to its user
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*models.User, error)
}

// AuthAdmin validates that the request carries an admin session
func AuthAdmin(auth Authenticator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return authorize(c, auth, true)
	}
}

// AuthUser validates that the request carries any valid session
func AuthUser(auth Authenticator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return authorize(c, auth, false)
	}
}

// authorize performs the authorization check
func authorize(c *fiber.Ctx, auth Authenticator, admin bool) error {
	user, err := auth.Authenticate(c.UserContext(), BearerToken(c))
	if err != nil {
		return err
	}
	if admin && !user.IsAdmin() {
		return services.ErrAdminRequired
	}

	c.Locals(userKey, user)
	return c.Next()
}

// BearerToken returns the token of an "Authorization: Bearer" header, or ""
func BearerToken(c *fiber.Ctx) string {
	header := c.Get(fiber.HeaderAuthorization)
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// CurrentUser returns the user stored by AuthUser or AuthAdmin
func CurrentUser(c *fiber.Ctx) *models.User {
	user, _ := c.Locals(userKey).(*models.User)
	return user
}
