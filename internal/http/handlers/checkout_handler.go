package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"eshop/internal/checkout"
	"eshop/internal/domain"
	applog "eshop/internal/log"
	"eshop/internal/services"
)

type CheckoutHandler struct {
	Cart     *services.CartService
	Checkout *checkout.Orchestrator
}

// Start snapshots the cart into a payment session and sends the visitor to
// the provider's hosted page.
func (h *CheckoutHandler) Start(c *fiber.Ctx) error {
	sid := ensureSID(c)
	cur, err := h.Cart.Load(c.UserContext(), sid)
	if err != nil {
		return fail(c, "checkout.load", err)
	}

	email := ""
	if u, ok := c.Locals("user").(*domain.User); ok && u != nil {
		email = u.Email
	}
	url, err := h.Checkout.CreateSession(c.UserContext(), sid, cur, email)
	if errors.Is(err, domain.ErrEmptyCart) {
		applog.Info(c, "checkout.empty", nil)
		cv, verr := h.Cart.View(c.UserContext(), sid)
		if verr != nil {
			return fail(c, "cart.view", verr)
		}
		return render(c.Status(fiber.StatusBadRequest), "cart", fiber.Map{"Cart": cv, "Err": "Your cart is empty."})
	}
	if err != nil {
		return fail(c, "checkout.create", err)
	}
	applog.Audit(c, "checkout.create", map[string]any{"lines": len(cur.Lines), "items": cur.Count()})
	return c.Redirect(url, fiber.StatusSeeOther)
}

// Success confirms a paid checkout. Unpaid or foreign sessions do not touch
// the cart.
func (h *CheckoutHandler) Success(c *fiber.Ctx) error {
	sid := ensureSID(c)
	id := c.Query("session_id")
	err := h.Checkout.ConfirmSuccess(c.UserContext(), sid, id)
	switch {
	case errors.Is(err, domain.ErrNotPaid):
		applog.Security(c, "checkout.success.unpaid", map[string]any{"checkout": id})
		return c.Status(fiber.StatusPaymentRequired).Render("notfound", fiber.Map{"Message": "We could not confirm your payment yet."})
	case errors.Is(err, domain.ErrNotFound):
		applog.Security(c, "access.denied.checkout", map[string]any{"checkout": id})
		return notFound(c, "Order not found")
	case err != nil:
		return fail(c, "checkout.confirm", err)
	}
	applog.Audit(c, "checkout.paid", map[string]any{"checkout": id})
	return render(c, "success", fiber.Map{})
}
