package handlers

import (
	"eshop/internal/log"
	"eshop/internal/services"
	"eshop/internal/validate"

	"github.com/gofiber/fiber/v2"
)

type HomeHandler struct {
	Catalog *services.CatalogService
	Cart    *services.CartService
}

func (h *HomeHandler) Home(c *fiber.Ctx) error {
	sid := ensureSID(c)
	if err := h.Cart.Init(c.UserContext(), sid); err != nil {
		return fail(c, "cart.init", err)
	}
	products, err := h.Catalog.Featured(c.UserContext())
	if err != nil {
		return fail(c, "catalog.featured", err)
	}
	return render(c, "home", fiber.Map{"Products": products})
}

type ProductHandler struct {
	Catalog *services.CatalogService
	Cart    *services.CartService
}

func (h *ProductHandler) Detail(c *fiber.Ctx) error {
	key, ok := validate.Key(c.Params("key"))
	if !ok {
		log.Security(c, "validation.fail", map[string]any{"field": "product"})
		return notFound(c, "This item is no longer available")
	}
	page, err := h.Catalog.Product(c.UserContext(), key)
	if err != nil {
		return fail(c, "product.detail", err)
	}
	sid := ensureSID(c)
	inCart := 0
	if cur, err := h.Cart.Load(c.UserContext(), sid); err == nil {
		inCart = cur.Qty(key)
	}
	return render(c, "product", fiber.Map{"P": page.Product, "Images": page.Images, "InCart": inCart})
}

// SetQty replaces the cart quantity for the product on the page.
func (h *ProductHandler) SetQty(c *fiber.Ctx) error {
	sid := ensureSID(c)
	key, ok := validate.Key(c.Params("key"))
	if !ok {
		log.Security(c, "validation.fail", map[string]any{"field": "product"})
		return notFound(c, "This item is no longer available")
	}
	qty, err := validate.Qty(c.FormValue("qty"))
	if err != nil {
		return fail(c, "cart.set", err)
	}
	if err := h.Cart.Set(c.UserContext(), sid, key, qty); err != nil {
		return fail(c, "cart.set", err)
	}
	log.Audit(c, "cart.set", map[string]any{"key": key, "qty": qty})
	return c.Redirect("/cart")
}
