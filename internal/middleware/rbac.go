package middleware

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/handout-api/internal/utils"
)

// RequireStaff lets instructors and admins through and rejects everyone else with 403.
// It must run after JWTProtected.
func RequireStaff() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if status, message := authorize(c, AuthRoleStaff, true); status != 0 {
			return utils.Fail(c, status, message, nil)
		}
		return c.Next()
	}
}

func normalizeRoleValue(value interface{}) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return strings.ToLower(strings.TrimSpace(v))
	case fmt.Stringer:
		return strings.ToLower(strings.TrimSpace(v.String()))
	default:
		return strings.ToLower(strings.TrimSpace(fmt.Sprint(v)))
	}
}
