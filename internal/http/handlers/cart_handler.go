package handlers

import (
	"strings"

	"eshop/internal/cart"
	"eshop/internal/log"
	"eshop/internal/services"
	"eshop/internal/validate"

	"github.com/gofiber/fiber/v2"
)

type CartHandler struct {
	Cart *services.CartService
}

func (h *CartHandler) View(c *fiber.Ctx) error {
	sid := ensureSID(c)
	cv, err := h.Cart.View(c.UserContext(), sid)
	if err != nil {
		return fail(c, "cart.view", err)
	}
	return render(c, "cart", fiber.Map{"Cart": cv})
}

// Quick adds one unit of a product and returns the visitor to the listing.
func (h *CartHandler) Quick(c *fiber.Ctx) error {
	sid := ensureSID(c)
	key, ok := validate.Key(c.Params("key"))
	if !ok {
		log.Security(c, "validation.fail", map[string]any{"field": "product"})
		return notFound(c, "This item is no longer available")
	}
	if err := h.Cart.Increment(c.UserContext(), sid, key); err != nil {
		return fail(c, "cart.increment", err)
	}
	log.Audit(c, "cart.increment", map[string]any{"key": key})
	return c.Redirect("/")
}

// Update applies every qty_<key> field of the cart form. The whole form is
// checked before anything changes.
func (h *CartHandler) Update(c *fiber.Ctx) error {
	sid := ensureSID(c)
	var (
		updates []cart.Line
		bad     error
	)
	c.Request().PostArgs().VisitAll(func(k, v []byte) {
		name := string(k)
		if bad != nil || !strings.HasPrefix(name, "qty_") {
			return
		}
		key, ok := validate.Key(strings.TrimPrefix(name, "qty_"))
		if !ok {
			return
		}
		qty, err := validate.Qty(string(v))
		if err != nil {
			bad = err
			return
		}
		updates = append(updates, cart.Line{Key: key, Qty: qty})
	})
	if bad != nil {
		return fail(c, "cart.update", bad)
	}
	if err := h.Cart.SetAll(c.UserContext(), sid, updates); err != nil {
		return fail(c, "cart.update", err)
	}
	log.Audit(c, "cart.update", map[string]any{"lines": len(updates)})
	return c.Redirect("/cart")
}

func (h *CartHandler) Clear(c *fiber.Ctx) error {
	sid := ensureSID(c)
	if err := h.Cart.Clear(c.UserContext(), sid); err != nil {
		return fail(c, "cart.clear", err)
	}
	log.Audit(c, "cart.clear", nil)
	return c.Redirect("/cart")
}
