package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"eshop/internal/domain"
	applog "eshop/internal/log"
)

func render(c *fiber.Ctx, tmpl string, data fiber.Map) error {
	if data == nil {
		data = fiber.Map{}
	}
	if u := c.Locals("user"); u != nil {
		data["User"] = u
	}
	// Pick up the token the CSRF middleware put into Locals, falling back to
	// the cookie so forms never carry an empty hidden field.
	tok, _ := c.Locals("CSRFToken").(string)
	if tok == "" {
		tok = c.Cookies("csrf_")
	}
	if tok != "" {
		data["CSRFToken"] = tok
	}
	return c.Render(tmpl, data)
}

func notFound(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusNotFound).Render("notfound", fiber.Map{"Message": msg})
}

// fail maps domain errors to a status and page. Anything unrecognised goes to
// the app ErrorHandler so internals never reach the visitor.
func fail(c *fiber.Ctx, action string, err error) error {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		applog.Security(c, "validation.fail", map[string]any{"action": action, "field": verr.Field})
		return c.Status(fiber.StatusBadRequest).Render("notfound", fiber.Map{"Message": "Please check your input: " + verr.Error()})
	case errors.Is(err, domain.ErrNotFound):
		return notFound(c, "This item is no longer available")
	case errors.Is(err, domain.ErrEmptyCart):
		return c.Status(fiber.StatusBadRequest).Render("notfound", fiber.Map{"Message": "Your cart is empty."})
	case domain.IsGatewayUnavailable(err):
		applog.Error(c, action, err, nil)
		return c.Status(fiber.StatusServiceUnavailable).Render("notfound", fiber.Map{
			"Message": "Payments are temporarily unavailable. Your cart is saved, please try again shortly.",
		})
	}
	applog.Error(c, action, err, nil)
	return err
}
