package handlers

import (
	"eshop/internal/checkout"
	"eshop/internal/config"
	"eshop/internal/media"
	"eshop/internal/repos"
	"eshop/internal/services"

	"github.com/jmoiron/sqlx"
)

type Deps struct {
	HomeHandler     *HomeHandler
	ProductHandler  *ProductHandler
	CartHandler     *CartHandler
	CheckoutHandler *CheckoutHandler
	AuthHandler     *AuthHandler
	AdminHandler    *AdminHandler

	Carts *services.CartService
}

// NewDeps wires repositories, services and handlers. carts and gw are chosen
// by the caller so tests and main can swap the cart backend and the payment
// provider.
func NewDeps(db *sqlx.DB, cfg config.Config, auth *services.AuthService, carts services.CartStore, gw checkout.Gateway) *Deps {
	prodRepo := repos.NewProductRepo(db)
	checkoutRepo := repos.NewCheckoutRepo(db)
	images := &media.Store{Root: cfg.MediaDir}

	catalogSvc := services.NewCatalogService(prodRepo, images)
	cartSvc := services.NewCartService(carts, prodRepo)
	adminSvc := services.NewAdminService(prodRepo, images)
	orch := &checkout.Orchestrator{
		Catalog:    prodRepo,
		Gateway:    gw,
		Ledger:     checkoutRepo,
		Carts:      cartSvc,
		SuccessURL: cfg.BaseURL + "/success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:  cfg.BaseURL + "/cart",
		Timeout:    cfg.GatewayTimeout,
	}

	return &Deps{
		HomeHandler:     &HomeHandler{Catalog: catalogSvc, Cart: cartSvc},
		ProductHandler:  &ProductHandler{Catalog: catalogSvc, Cart: cartSvc},
		CartHandler:     &CartHandler{Cart: cartSvc},
		CheckoutHandler: &CheckoutHandler{Cart: cartSvc, Checkout: orch},
		AuthHandler:     &AuthHandler{Auth: auth, Cart: cartSvc},
		AdminHandler:    &AdminHandler{Admin: adminSvc, Checkouts: checkoutRepo},
		Carts:           cartSvc,
	}
}
