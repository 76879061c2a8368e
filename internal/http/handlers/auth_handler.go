package handlers

import (
	"errors"
	"time"

	"eshop/internal/domain"
	"eshop/internal/log"
	"eshop/internal/services"
	"eshop/internal/validate"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// SecureCookies marks the sid cookie Secure. Set once at boot.
var SecureCookies bool

type AuthHandler struct {
	Auth *services.AuthService
	Cart *services.CartService
}

func ensureSID(c *fiber.Ctx) string {
	sid := c.Cookies("sid")
	if sid == "" {
		sid = uuid.NewString()
		c.Cookie(&fiber.Cookie{
			Name:     "sid",
			Value:    sid,
			Path:     "/",
			HTTPOnly: true,
			SameSite: fiber.CookieSameSiteLaxMode,
			Secure:   SecureCookies,
		})
		// Later reads in the same request must see the new id.
		c.Request().Header.SetCookie("sid", sid)
	}
	return sid
}

func (h *AuthHandler) LoginForm(c *fiber.Ctx) error {
	return render(c, "login", fiber.Map{"Err": ""})
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	sid := ensureSID(c)
	email := c.FormValue("email")
	pass := c.FormValue("password")
	if _, ok := validate.Email(email); !ok {
		log.Security(c, "auth.login.fail", map[string]any{"email": email, "reason": "bad_format"})
		return c.Status(fiber.StatusUnauthorized).Render("login", fiber.Map{"Err": "Invalid email or password", "CSRFToken": c.Cookies("csrf_")})
	}
	if !validate.Password(pass) {
		log.Security(c, "auth.login.fail", map[string]any{"email": email, "reason": "bad_password_format"})
		return c.Status(fiber.StatusUnauthorized).Render("login", fiber.Map{"Err": "Invalid email or password", "CSRFToken": c.Cookies("csrf_")})
	}

	if _, err := h.Auth.Login(c.UserContext(), sid, email, pass); err != nil {
		log.Security(c, "auth.login.fail", map[string]any{"email": email})
		return c.Status(fiber.StatusUnauthorized).Render("login", fiber.Map{"Err": "Invalid email or password", "CSRFToken": c.Cookies("csrf_")})
	}

	log.Audit(c, "auth.login.success", map[string]any{"email": email})
	return c.Redirect("/")
}

func (h *AuthHandler) RegisterForm(c *fiber.Ctx) error {
	return render(c, "register", fiber.Map{"Err": ""})
}

func (h *AuthHandler) Register(c *fiber.Ctx) error {
	sid := ensureSID(c)
	form := fiber.Map{
		"FirstName": c.FormValue("first_name"),
		"LastName":  c.FormValue("last_name"),
		"Email":     c.FormValue("email"),
	}
	again := func(msg string) error {
		form["Err"] = msg
		return render(c.Status(fiber.StatusBadRequest), "register", form)
	}

	first, ok := validate.Name(c.FormValue("first_name"))
	if !ok {
		log.Security(c, "validation.fail", map[string]any{"field": "first_name"})
		return again("First name is required")
	}
	last, ok := validate.Name(c.FormValue("last_name"))
	if !ok {
		log.Security(c, "validation.fail", map[string]any{"field": "last_name"})
		return again("Last name is required")
	}
	email, ok := validate.Email(c.FormValue("email"))
	if !ok {
		log.Security(c, "validation.fail", map[string]any{"field": "email"})
		return again("Enter a valid email address")
	}
	pass := c.FormValue("password")
	if !validate.Password(pass) {
		return again("Password must be 8-72 characters")
	}
	if pass != c.FormValue("confirm") {
		return again("Passwords do not match")
	}

	u, err := h.Auth.Register(c.UserContext(), sid, services.Registration{
		FirstName: first, LastName: last, Email: email, Password: pass,
	})
	if errors.Is(err, domain.ErrEmailTaken) {
		log.Security(c, "auth.register.fail", map[string]any{"email": email, "reason": "taken"})
		return again("An account with that email already exists")
	}
	if err != nil {
		return fail(c, "auth.register", err)
	}
	log.Audit(c, "auth.register", map[string]any{"email": u.Email, "user": u.ID})
	return c.Redirect("/")
}

// Logout unbinds the session and drops the visitor's cart.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	sid := ensureSID(c)
	if err := h.Auth.Logout(c.UserContext(), sid); err != nil {
		log.Error(c, "auth.logout", err, map[string]any{"sid": sid})
	}
	if h.Cart != nil {
		if err := h.Cart.Clear(c.UserContext(), sid); err != nil {
			log.Error(c, "cart.clear", err, map[string]any{"sid": sid})
		}
	}
	c.Cookie(&fiber.Cookie{
		Name:     "sid",
		Value:    "",
		Path:     "/",
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
		Secure:   SecureCookies,
		Expires:  time.Now().Add(-1 * time.Hour),
	})
	log.Audit(c, "auth.logout", map[string]any{"sid": sid})
	return c.Redirect("/")
}
