package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/handout-api/internal/models"
	"github.com/noah-isme/handout-api/internal/utils"
)

// Roles understood by WithAuth.
const (
	AuthRoleAny     = "any"
	AuthRoleStaff   = "staff"
	AuthRoleStudent = models.RoleStudent
)

// AuthOptions configures WithAuth. Any role other than AuthRoleAny implies RequireUser.
type AuthOptions struct {
	Role        string
	RequireUser bool
}

// WithAuth guards a single handler with the caller checks described by opts.
func WithAuth(handler fiber.Handler, opts AuthOptions) fiber.Handler {
	role := strings.ToLower(strings.TrimSpace(opts.Role))
	if role == "" {
		role = AuthRoleAny
	}
	requireUser := opts.RequireUser || role != AuthRoleAny

	return func(c *fiber.Ctx) error {
		if status, message := authorize(c, role, requireUser); status != 0 {
			return utils.Fail(c, status, message, nil)
		}
		return handler(c)
	}
}

// authorize returns a non-zero status when the caller fails the check.
func authorize(c *fiber.Ctx, role string, requireUser bool) (int, string) {
	if requireUser && c.Locals("user_id") == nil {
		return fiber.StatusUnauthorized, "authentication required"
	}

	current := normalizeRoleValue(c.Locals("user_role"))
	switch role {
	case AuthRoleAny:
		return 0, ""
	case AuthRoleStaff:
		if models.IsStaff(current) {
			return 0, ""
		}
	default:
		if current == role {
			return 0, ""
		}
	}
	return fiber.StatusForbidden, "insufficient permissions"
}
