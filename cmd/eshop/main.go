package main

import (
	"context"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/csrf"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"eshop/internal/checkout"
	"eshop/internal/config"
	"eshop/internal/http/handlers"
	applog "eshop/internal/log"
	"eshop/internal/payment"
	"eshop/internal/repos"
	"eshop/internal/services"
	"eshop/internal/sessions"
)

func main() {
	cfg := config.Load()

	// Optional file logging
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			log.Printf("[warn] could not open log file %s: %v", cfg.LogFile, err)
		} else {
			mw := io.MultiWriter(os.Stdout, f)
			log.SetOutput(mw)
		}
	}

	db, err := repos.OpenDB(cfg.DBDSN)
	if err != nil {
		log.Fatal(err)
	}

	store, err := cartStore(cfg, db)
	if err != nil {
		log.Fatal(err)
	}

	var gw checkout.Gateway = payment.NewStripeGateway(payment.StripeConfig{
		Key:              cfg.StripeKey,
		URL:              cfg.StripeURL,
		ShippingRate:     cfg.ShippingRate,
		AllowedCountries: cfg.AllowedCountries,
		Timeout:          cfg.GatewayTimeout,
	})
	gw = payment.NewBreaker(gw, payment.BreakerConfig{Name: "stripe", Tolerated: payment.ClientFault})
	if cfg.StripeKey == "" {
		applog.Boot("payment.config", "STRIPE_API_KEY is not set; checkout will fail until it is")
	}

	app := newApp(cfg, db, store, gw)
	log.Fatal(app.Listen(":" + cfg.Port))
}

func cartStore(cfg config.Config, db *sqlx.DB) (services.CartStore, error) {
	if cfg.CartStore != "redis" {
		return repos.NewCartRepo(db), nil
	}
	client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	applog.Boot("cart.store", "carts -> redis %s", cfg.RedisAddr)
	return sessions.NewRedisStore(client, sessions.DefaultTTL), nil
}

func newApp(cfg config.Config, db *sqlx.DB, store services.CartStore, gw checkout.Gateway) *fiber.App {
	handlers.SecureCookies = cfg.CookieSecure

	userRepo := repos.NewUserRepo(db)
	authSvc := &services.AuthService{Users: userRepo}
	deps := handlers.NewDeps(db, cfg, authSvc, store, gw)

	engine := handlers.Views("./web/templates")
	engine.Reload(true)

	app := fiber.New(fiber.Config{
		Views:     engine,
		BodyLimit: 16 << 20, // room for admin image uploads; see MaxBody below
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			applog.Error(c, "server.error", err, nil)
			code := fiber.StatusInternalServerError
			if fe, ok := err.(*fiber.Error); ok && fe.Code < 500 {
				code = fe.Code
			}
			if rerr := c.Status(code).Render("notfound", fiber.Map{
				"Message": "Something went wrong. Please try again.",
			}); rerr != nil {
				return c.Status(code).SendString("Something went wrong. Please try again.")
			}
			return nil
		},
	})

	// ---------- Middlewares ----------
	app.Use(requestid.New())
	app.Use(logger.New())
	app.Use(helmet.New())
	app.Use(handlers.MaxBody(1<<20, "/admin/"))
	app.Use(handlers.AttachUser(authSvc))
	app.Use(limiter.New(limiter.Config{
		Max:        60,
		Expiration: time.Minute,
		Next: func(c *fiber.Ctx) bool {
			p := string(c.Request().URI().Path())
			return strings.HasPrefix(p, "/static/") || strings.HasPrefix(p, "/media/")
		},
	}))
	app.Use(csrf.New(csrf.Config{
		KeyLookup:      "form:csrf",
		CookieName:     "csrf_",
		CookieSameSite: "Lax",
		CookieSecure:   cfg.CookieSecure,
		ContextKey:     "csrf",
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			applog.Security(c, "csrf.fail", nil)
			return c.Status(fiber.StatusForbidden).Render("notfound", fiber.Map{"Message": "Security check failed. Please refresh and try again."})
		},
	}))
	app.Use(func(c *fiber.Ctx) error {
		if tok, ok := c.Locals("csrf").(string); ok {
			c.Locals("CSRFToken", tok)
		}
		return c.Next()
	})

	// ---------- Static assets ----------
	mediaDir := cfg.MediaDir
	if !filepath.IsAbs(mediaDir) {
		if abs, err := filepath.Abs(mediaDir); err == nil {
			mediaDir = abs
		}
	}
	applog.Boot("static", "/static -> ./web/static")
	applog.Boot("static", "/media  -> %s", mediaDir)

	app.Static("/static", "./web/static")
	app.Get("/media/*", handlers.Media(mediaDir))

	// Public pages
	app.Get("/", deps.HomeHandler.Home)
	app.Get("/product/:key", deps.ProductHandler.Detail)
	app.Post("/product/:key", deps.ProductHandler.SetQty)

	// Cart & checkout
	app.Get("/cart", deps.CartHandler.View)
	app.Post("/cart", deps.CartHandler.Update)
	app.Post("/cart/clear", deps.CartHandler.Clear)
	app.Post("/cart/quick/:key", deps.CartHandler.Quick)
	app.Post("/checkout", limiter.New(limiter.Config{
		Max:        10,
		Expiration: time.Minute,
		LimitReached: func(c *fiber.Ctx) error {
			applog.Security(c, "rate.checkout.hit", nil)
			return c.Status(fiber.StatusTooManyRequests).Render("notfound", fiber.Map{"Message": "Too many checkout attempts. Please wait a minute."})
		},
	}), deps.CheckoutHandler.Start)
	app.Get("/success", deps.CheckoutHandler.Success)

	// Auth routes (login throttled)
	authH := deps.AuthHandler
	app.Get("/login", authH.LoginForm)
	app.Post("/login", limiter.New(limiter.Config{
		Max:        5,
		Expiration: 10 * time.Minute,
		LimitReached: func(c *fiber.Ctx) error {
			applog.Security(c, "rate.login.hit", nil)
			return c.Status(fiber.StatusTooManyRequests).Render("login", fiber.Map{"Err": "Too many attempts. Please try again later."})
		},
	}), authH.Login)
	app.Get("/register", authH.RegisterForm)
	app.Post("/register", limiter.New(limiter.Config{Max: 10, Expiration: 10 * time.Minute}), authH.Register)
	app.Post("/logout", authH.Logout)

	// Admin
	adminH := deps.AdminHandler
	admin := app.Group("/admin", handlers.RequireAdmin(authSvc))
	admin.Get("/", adminH.Dashboard)
	admin.Get("/products/new", adminH.NewForm)
	admin.Post("/products/new", adminH.Create)
	admin.Get("/products/:key/edit", adminH.EditForm)
	admin.Post("/products/:key/edit", adminH.Update)

	// Health & 404
	app.Get("/healthz", func(c *fiber.Ctx) error { return c.JSON(fiber.Map{"ok": true}) })
	app.Use(func(c *fiber.Ctx) error {
		return c.Status(404).Render("notfound", fiber.Map{"Message": "Page not found"})
	})

	return app
}
