package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Port     string `env:"PORT" envDefault:"8080"`
	DBDSN    string `env:"DB_DSN" envDefault:"eshop.db"` // sqlite file in project root
	MediaDir string `env:"MEDIA_DIR" envDefault:"./web/media"`
	LogFile  string `env:"LOG_FILE" envDefault:"./eshop.log"`
	BaseURL  string `env:"BASE_URL" envDefault:"http://localhost:8080"`

	// CartStore selects where visitor carts live: "sqlite" or "redis".
	CartStore string `env:"CART_STORE" envDefault:"sqlite"`
	RedisAddr string `env:"REDIS_ADDR" envDefault:"localhost:6379"`

	StripeKey        string        `env:"STRIPE_API_KEY"`
	StripeURL        string        `env:"STRIPE_API_URL"`
	ShippingRate     string        `env:"STRIPE_SHIPPING_RATE"`
	AllowedCountries []string      `env:"STRIPE_ALLOWED_COUNTRIES" envDefault:"JP,US" envSeparator:","`
	GatewayTimeout   time.Duration `env:"GATEWAY_TIMEOUT" envDefault:"10s"`

	CookieSecure bool `env:"COOKIE_SECURE" envDefault:"false"`
}

// Load reads the environment. A malformed variable is fatal at boot.
func Load() Config {
	cfg, err := Parse()
	if err != nil {
		log.Fatalf("[config] %v", err)
	}
	log.Printf("[config] PORT=%s DB_DSN=%s MEDIA_DIR=%s LOG_FILE=%s CART_STORE=%s BASE_URL=%s STRIPE_API_KEY=%s",
		cfg.Port, cfg.DBDSN, cfg.MediaDir, cfg.LogFile, cfg.CartStore, cfg.BaseURL, mask(cfg.StripeKey))
	return cfg
}

func Parse() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	switch cfg.CartStore {
	case "sqlite", "redis":
	default:
		return Config{}, fmt.Errorf("CART_STORE must be sqlite or redis, got %q", cfg.CartStore)
	}
	if cfg.GatewayTimeout <= 0 {
		cfg.GatewayTimeout = 10 * time.Second
	}
	return cfg, nil
}

func mask(secret string) string {
	if len(secret) <= 8 {
		if secret == "" {
			return "(unset)"
		}
		return "****"
	}
	return secret[:7] + "****"
}
