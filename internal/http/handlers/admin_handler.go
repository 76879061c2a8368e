package handlers

import (
	"mime/multipart"

	"github.com/gofiber/fiber/v2"

	"eshop/internal/domain"
	applog "eshop/internal/log"
	"eshop/internal/repos"
	"eshop/internal/services"
	"eshop/internal/validate"
)

type AdminHandler struct {
	Admin     *services.AdminService
	Checkouts *repos.CheckoutRepo
}

// GET /admin
func (h *AdminHandler) Dashboard(c *fiber.Ctx) error {
	prods, err := h.Admin.Products(c.UserContext())
	if err != nil {
		applog.Error(c, "admin.products.list.fail", err, nil)
		return c.Status(500).Render("notfound", fiber.Map{"Message": "Could not load products"})
	}
	recent, err := h.Checkouts.ListLatest(c.UserContext(), 25)
	if err != nil {
		applog.Error(c, "admin.checkouts.list.fail", err, nil)
		return c.Status(500).Render("notfound", fiber.Map{"Message": "Could not load checkouts"})
	}
	return render(c, "admin_dashboard", fiber.Map{"Products": prods, "Checkouts": recent})
}

// GET /admin/products/new
func (h *AdminHandler) NewForm(c *fiber.Ctx) error {
	return render(c, "product_form", fiber.Map{"Action": "/admin/products/new", "P": domain.Product{}})
}

// POST /admin/products/new
func (h *AdminHandler) Create(c *fiber.Ctx) error {
	d, files, err := readProductForm(c)
	if err != nil {
		return h.formError(c, "/admin/products/new", domain.Product{}, err)
	}
	p, err := h.Admin.CreateProduct(c.UserContext(), d, files)
	if err != nil {
		return h.formError(c, "/admin/products/new", domain.Product{}, err)
	}
	applog.Audit(c, "admin.products.create", map[string]any{"key": p.Key, "images": len(files)})
	return c.Redirect("/product/" + p.Key)
}

// GET /admin/products/:key/edit
func (h *AdminHandler) EditForm(c *fiber.Ctx) error {
	key, ok := validate.Key(c.Params("key"))
	if !ok {
		return notFound(c, "Product not found")
	}
	p, err := h.Admin.Product(c.UserContext(), key)
	if err != nil {
		return fail(c, "admin.products.edit", err)
	}
	return render(c, "product_form", fiber.Map{"Action": "/admin/products/" + key + "/edit", "P": p, "Edit": true})
}

// POST /admin/products/:key/edit
func (h *AdminHandler) Update(c *fiber.Ctx) error {
	key, ok := validate.Key(c.Params("key"))
	if !ok {
		return notFound(c, "Product not found")
	}
	action := "/admin/products/" + key + "/edit"
	d, files, err := readProductForm(c)
	if err != nil {
		return h.formError(c, action, domain.Product{Key: key}, err)
	}
	p, err := h.Admin.UpdateProduct(c.UserContext(), key, d, files)
	if err != nil {
		return h.formError(c, action, domain.Product{Key: key}, err)
	}
	applog.Audit(c, "admin.products.update", map[string]any{"key": p.Key, "images": len(files)})
	return c.Redirect("/product/" + p.Key)
}

func (h *AdminHandler) formError(c *fiber.Ctx, action string, p domain.Product, err error) error {
	if !domain.IsValidation(err) {
		return fail(c, "admin.products.save", err)
	}
	applog.Security(c, "validation.fail", map[string]any{"action": "admin.products.save", "err": err.Error()})
	return render(c.Status(fiber.StatusBadRequest), "product_form", fiber.Map{
		"Action": action, "P": p, "Edit": p.Key != "", "Err": err.Error(),
	})
}

func readProductForm(c *fiber.Ctx) (domain.ProductDraft, []*multipart.FileHeader, error) {
	price, err := validate.Amount("price", c.FormValue("price"))
	if err != nil {
		return domain.ProductDraft{}, nil, err
	}
	sale, err := validate.OptionalAmount("sale_price", c.FormValue("sale_price"))
	if err != nil {
		return domain.ProductDraft{}, nil, err
	}
	stock, err := validate.Amount("stock", c.FormValue("stock"))
	if err != nil {
		return domain.ProductDraft{}, nil, err
	}
	ref, ok := validate.PriceRef(c.FormValue("price_ref"))
	if !ok {
		return domain.ProductDraft{}, nil, domain.Invalid("price_ref", "must look like a provider price id")
	}
	d, err := domain.NewProductDraft(
		c.FormValue("name"),
		c.FormValue("description"),
		validate.Checkbox(c.FormValue("featured")),
		price, sale, int(stock), ref,
	)
	if err != nil {
		return domain.ProductDraft{}, nil, err
	}

	var files []*multipart.FileHeader
	if form, err := c.MultipartForm(); err == nil {
		files = form.File["images"]
	}
	return d, files, nil
}
