package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
)

func staffApp(locals map[string]interface{}) *fiber.App {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		for key, value := range locals {
			c.Locals(key, value)
		}
		return c.Next()
	})
	app.Get("/courses/:course/telemetry", RequireStaff(), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})
	return app
}

func TestRequireStaff(t *testing.T) {
	cases := map[string]struct {
		locals map[string]interface{}
		status int
	}{
		"instructor":      {map[string]interface{}{"user_id": uint(7), "user_role": "instructor"}, fiber.StatusOK},
		"admin uppercase": {map[string]interface{}{"user_id": uint(1), "user_role": " ADMIN "}, fiber.StatusOK},
		"student":         {map[string]interface{}{"user_id": uint(3), "user_role": "student"}, fiber.StatusForbidden},
		"no role":         {map[string]interface{}{"user_id": uint(3)}, fiber.StatusForbidden},
		"anonymous":       {map[string]interface{}{"user_role": "admin"}, fiber.StatusUnauthorized},
	}

	for name, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/courses/Programming%20101/telemetry", nil)
		resp, err := staffApp(tc.locals).Test(req)
		require.NoError(t, err, name)
		require.Equal(t, tc.status, resp.StatusCode, name)
	}
}
