package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/csrf"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/jmoiron/sqlx"

	"eshop/internal/checkout"
	"eshop/internal/config"
	"eshop/internal/http/handlers"
	"eshop/internal/repos"
	"eshop/internal/services"
)

// fakeGateway stands in for the payment provider.
type fakeGateway struct {
	mu     sync.Mutex
	reqs   []checkout.Request
	paid      map[string]bool
	paidCalls int
	failed    bool
}

func (g *fakeGateway) CreateSession(_ context.Context, req checkout.Request) (checkout.Session, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failed {
		return checkout.Session{}, errors.New("connection refused")
	}
	g.reqs = append(g.reqs, req)
	return checkout.Session{ID: "cs_test_1", URL: "https://pay.example/cs_test_1"}, nil
}

func (g *fakeGateway) Paid(_ context.Context, id string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.paidCalls++
	return g.paid[id], nil
}

type testApp struct {
	app   *fiber.App
	db    *sqlx.DB
	users *repos.UserRepo
	gw    *fakeGateway
	deps  *handlers.Deps
}

// newShopApp mounts the storefront routes the way main does, minus the
// global rate limiter, over an in-memory database and a fake gateway.
func newShopApp(t *testing.T) *testApp {
	t.Helper()
	cfg := config.Config{DBDSN: ":memory:", MediaDir: t.TempDir(), BaseURL: "http://shop.test"}
	db, err := repos.OpenDB(cfg.DBDSN)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	userRepo := repos.NewUserRepo(db)
	authSvc := &services.AuthService{Users: userRepo}
	gw := &fakeGateway{paid: map[string]bool{}}
	deps := handlers.NewDeps(db, cfg, authSvc, repos.NewCartRepo(db), gw)

	app := fiber.New(fiber.Config{Views: handlers.Views("../../web/templates")})
	app.Use(requestid.New())
	app.Use(handlers.MaxBody(1<<20, "/admin/"))
	app.Use(handlers.AttachUser(authSvc))
	app.Use(csrf.New(csrf.Config{KeyLookup: "form:csrf", CookieName: "csrf_", CookieSameSite: "Lax"}))

	app.Get("/", deps.HomeHandler.Home)
	app.Get("/product/:key", deps.ProductHandler.Detail)
	app.Post("/product/:key", deps.ProductHandler.SetQty)
	app.Get("/cart", deps.CartHandler.View)
	app.Post("/cart", deps.CartHandler.Update)
	app.Post("/cart/clear", deps.CartHandler.Clear)
	app.Post("/cart/quick/:key", limiter.New(limiter.Config{Max: 3, Expiration: 0}), deps.CartHandler.Quick)
	app.Post("/checkout", deps.CheckoutHandler.Start)
	app.Get("/success", deps.CheckoutHandler.Success)
	app.Get("/login", deps.AuthHandler.LoginForm)
	app.Post("/login", deps.AuthHandler.Login)
	app.Get("/register", deps.AuthHandler.RegisterForm)
	app.Post("/register", deps.AuthHandler.Register)
	app.Post("/logout", deps.AuthHandler.Logout)

	admin := app.Group("/admin", handlers.RequireAdmin(authSvc))
	admin.Get("/", deps.AdminHandler.Dashboard)
	admin.Get("/products/new", deps.AdminHandler.NewForm)
	admin.Post("/products/new", deps.AdminHandler.Create)
	admin.Get("/products/:key/edit", deps.AdminHandler.EditForm)
	admin.Post("/products/:key/edit", deps.AdminHandler.Update)

	return &testApp{app: app, db: db, users: userRepo, gw: gw, deps: deps}
}

func extractCookie(resp *http.Response, name string) string {
	for _, c := range resp.Cookies() {
		if c.Name == name {
			return c.Value
		}
	}
	return ""
}

// csrfToken fetches a fresh token the way a browser would, via the login page.
func (ta *testApp) csrfToken(t *testing.T) string {
	t.Helper()
	resp, err := ta.app.Test(httptest.NewRequest("GET", "/login", nil))
	if err != nil {
		t.Fatal(err)
	}
	tok := extractCookie(resp, "csrf_")
	if tok == "" {
		t.Fatal("csrf token missing")
	}
	return tok
}

// postForm sends a csrf-protected urlencoded form as the given session.
func (ta *testApp) postForm(t *testing.T, path, sid, tok, body string) *http.Response {
	t.Helper()
	req := httptest.NewRequest("POST", path, strings.NewReader("csrf="+tok+"&"+body))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.AddCookie(&http.Cookie{Name: "csrf_", Value: tok})
	if sid != "" {
		req.AddCookie(&http.Cookie{Name: "sid", Value: sid})
	}
	resp, err := ta.app.Test(req)
	if err != nil {
		t.Fatal(err)
	}
	return resp
}

func (ta *testApp) get(t *testing.T, path, sid string) *http.Response {
	t.Helper()
	req := httptest.NewRequest("GET", path, nil)
	if sid != "" {
		req.AddCookie(&http.Cookie{Name: "sid", Value: sid})
	}
	resp, err := ta.app.Test(req)
	if err != nil {
		t.Fatal(err)
	}
	return resp
}

type logEntry struct {
	Level  string         `json:"level"`
	Action string         `json:"action"`
	Fields map[string]any `json:"fields"`
}

type lockedWriter struct {
	w  *bytes.Buffer
	mu *sync.Mutex
}

func (lw *lockedWriter) Write(p []byte) (int, error) {
	lw.mu.Lock()
	defer lw.mu.Unlock()
	return lw.w.Write(p)
}

// captureLogs temporarily replaces the standard logger output.
func captureLogs(t *testing.T, fn func()) []logEntry {
	t.Helper()
	var buf bytes.Buffer
	var mu sync.Mutex
	oldW := log.Writer()
	oldFlags := log.Flags()
	log.SetOutput(&lockedWriter{w: &buf, mu: &mu})
	log.SetFlags(0) // remove timestamps to make JSON parseable
	defer func() {
		log.SetOutput(oldW)
		log.SetFlags(oldFlags)
	}()

	fn()

	var entries []logEntry
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		var e logEntry
		if err := json.Unmarshal([]byte(line), &e); err == nil {
			entries = append(entries, e)
		}
	}
	return entries
}

func findLog(entries []logEntry, action string) (logEntry, bool) {
	for _, e := range entries {
		if e.Action == action {
			return e, true
		}
	}
	return logEntry{}, false
}
