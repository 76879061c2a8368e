package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	applog "eshop/internal/log"
)

// MaxBody rejects requests whose declared body exceeds max bytes. Paths under
// uploadPrefix are exempt and fall back to the server-wide limit.
func MaxBody(max int, uploadPrefix string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if uploadPrefix != "" && strings.HasPrefix(c.Path(), uploadPrefix) {
			return c.Next()
		}
		if n := c.Request().Header.ContentLength(); n > max {
			applog.Security(c, "request.too_large", map[string]any{"bytes": n})
			return c.SendStatus(fiber.StatusRequestEntityTooLarge)
		}
		return c.Next()
	}
}
